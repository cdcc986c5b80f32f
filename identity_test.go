package synthia

import "testing"

func TestIdentity_Anonymous(t *testing.T) {
	id := Anonymous()
	if !id.IsAnonymous() {
		t.Fatal("expected anonymous")
	}
	if _, known := id.UserID(); known {
		t.Fatal("anonymous must have no user id")
	}
	if id.String() != "anonymous" {
		t.Fatalf("unexpected string: %s", id.String())
	}
}

func TestIdentity_Identified(t *testing.T) {
	id := Identified("user-1")
	if id.IsAnonymous() {
		t.Fatal("expected identified")
	}
	userID, known := id.UserID()
	if !known || userID != "user-1" {
		t.Fatalf("unexpected: %s %v", userID, known)
	}
}

func TestIdentity_EmptyIDIsAnonymous(t *testing.T) {
	if !Identified("").IsAnonymous() {
		t.Fatal("empty user id must collapse to anonymous")
	}
}
