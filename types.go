package synthia

import "time"

// Default confidence assigned client-side when the federation has not scored
// an item yet.
const (
	DefaultMemoryConfidence    = 0.5
	DefaultKnowledgeConfidence = 0.5
	DefaultObservationCount    = 1
)

// MemoryRecord is a single stored memory for a satellite.
type MemoryRecord struct {
	Content    string   `json:"content"`
	MemoryType string   `json:"memory_type"`
	Importance string   `json:"importance"`
	Confidence float64  `json:"confidence"`
	TopicTags  []string `json:"topic_tags,omitempty"`
}

// NewMemoryRecord creates a record with the client-side default confidence.
func NewMemoryRecord(content, memoryType, importance string, tags ...string) MemoryRecord {
	return MemoryRecord{
		Content:    content,
		MemoryType: memoryType,
		Importance: importance,
		Confidence: DefaultMemoryConfidence,
		TopicTags:  tags,
	}
}

// KnowledgeEntry is one evolved knowledge item, keyed externally by a string
// identifier. Confidence and observation count are overwritten wholesale from
// federation evolution responses when present, else locally seeded.
type KnowledgeEntry struct {
	Value        interface{} `json:"value"`
	Confidence   float64     `json:"confidence"`
	Observations int         `json:"observations"`
	Type         string      `json:"type"`
}

// SessionState is the per-user session record. It is either fully absent
// (never initialized) or a complete record; partial updates are applied via
// SessionUpdate.
type SessionState struct {
	ConversationSummary string                 `json:"conversation_summary,omitempty"`
	ActiveContext       map[string]interface{} `json:"active_context"`
	PendingTopics       []string               `json:"pending_topics"`
	CommunicationStyle  string                 `json:"communication_style"`
	VerbosityPreference string                 `json:"verbosity_preference"`
	TotalInteractions   int                    `json:"total_interactions"`
	TotalSessions       int                    `json:"total_sessions"`
}

// DefaultSessionState returns a complete zero-history session record.
func DefaultSessionState() *SessionState {
	return &SessionState{
		ActiveContext:       map[string]interface{}{},
		PendingTopics:       []string{},
		CommunicationStyle:  "balanced",
		VerbosityPreference: "medium",
	}
}

// SessionUpdate is a partial session update. Nil fields are left untouched;
// non-nil fields replace the corresponding session field (shallow merge).
type SessionUpdate struct {
	ConversationSummary *string                `json:"conversation_summary,omitempty"`
	ActiveContext       map[string]interface{} `json:"active_context,omitempty"`
	PendingTopics       []string               `json:"pending_topics,omitempty"`
	CommunicationStyle  *string                `json:"communication_style,omitempty"`
	VerbosityPreference *string                `json:"verbosity_preference,omitempty"`
	TotalInteractions   *int                   `json:"total_interactions,omitempty"`
	TotalSessions       *int                   `json:"total_sessions,omitempty"`
}

// Apply shallow-merges the update into s.
func (u SessionUpdate) Apply(s *SessionState) {
	if u.ConversationSummary != nil {
		s.ConversationSummary = *u.ConversationSummary
	}
	if u.ActiveContext != nil {
		s.ActiveContext = u.ActiveContext
	}
	if u.PendingTopics != nil {
		s.PendingTopics = u.PendingTopics
	}
	if u.CommunicationStyle != nil {
		s.CommunicationStyle = *u.CommunicationStyle
	}
	if u.VerbosityPreference != nil {
		s.VerbosityPreference = *u.VerbosityPreference
	}
	if u.TotalInteractions != nil {
		s.TotalInteractions = *u.TotalInteractions
	}
	if u.TotalSessions != nil {
		s.TotalSessions = *u.TotalSessions
	}
}

// CachedSnapshot is the last-known-good state persisted per satellite id.
type CachedSnapshot struct {
	Memories  []MemoryRecord            `json:"memories"`
	Knowledge map[string]KnowledgeEntry `json:"knowledge"`
	Session   *SessionState             `json:"session,omitempty"`
	SavedAt   string                    `json:"saved_at,omitempty"`
}

// ConversationTurn is a single chat turn in the short-term window used for
// sovereign-mode continuity.
type ConversationTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// NewConversationTurn creates a turn. Role is "user" or "assistant".
func NewConversationTurn(role, content string) ConversationTurn {
	return ConversationTurn{Role: role, Content: content}
}

func nowRFC3339() string {
	return time.Now().Format(time.RFC3339)
}
