package domain

// Message is a single persisted question/answer pair of a conversation.
type Message struct {
	PK             string
	SK             string
	ConversationID string
	Question       string
	Answer         string
	Sources        int
	Status         string
	TTL            int64
}

// ConversationMeta stores aggregate conversation state.
type ConversationMeta struct {
	PK             string
	SK             string
	ConversationID string
	LastActivity   string
	Turns          int
	TTL            int64
}
