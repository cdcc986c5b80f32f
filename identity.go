package synthia

// Identity is the optional authenticated user behind a satellite. Every
// operation that talks to the federation consumes it explicitly instead of
// checking for empty strings.
type Identity struct {
	userID string
	known  bool
}

// Anonymous returns the unauthenticated identity.
func Anonymous() Identity {
	return Identity{}
}

// Identified returns an authenticated identity for the given user id.
// An empty id is treated as anonymous.
func Identified(userID string) Identity {
	if userID == "" {
		return Identity{}
	}
	return Identity{userID: userID, known: true}
}

// UserID returns the user id and whether the identity is authenticated.
func (id Identity) UserID() (string, bool) {
	return id.userID, id.known
}

// IsAnonymous reports whether no authenticated user is known.
func (id Identity) IsAnonymous() bool {
	return !id.known
}

func (id Identity) String() string {
	if !id.known {
		return "anonymous"
	}
	return id.userID
}
