package chat

import "time"

// Conversation is one 1:1 chat. The primary key is the canonical pairing of
// the two participant ids (identity.CanonicalConversationID), so ParticipantA
// always sorts before ParticipantB. The last-message summary is denormalized
// for list views and updated in the same transaction as every append.
type Conversation struct {
	ID              string    `gorm:"primaryKey;type:varchar(130)" json:"conversation_id"`
	ParticipantA    string    `gorm:"type:varchar(64);index;not null" json:"participant_a"`
	ParticipantB    string    `gorm:"type:varchar(64);index;not null" json:"participant_b"`
	LastMessageText string    `gorm:"type:text;not null" json:"last_message_text"`
	LastMessageTime int64     `gorm:"index;not null" json:"last_message_time"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"-"`
}

func (Conversation) TableName() string { return "conversations" }

func (c Conversation) HasParticipant(userID string) bool {
	return userID == c.ParticipantA || userID == c.ParticipantB
}

// OtherParticipant returns the peer of userID, or "" if userID is not a
// participant.
func (c Conversation) OtherParticipant(userID string) string {
	switch userID {
	case c.ParticipantA:
		return c.ParticipantB
	case c.ParticipantB:
		return c.ParticipantA
	}
	return ""
}

// Message ids are monotonic ULIDs, so ordering by (timestamp, id) reproduces
// send order even when two appends land in the same millisecond.
type Message struct {
	ID             string    `gorm:"primaryKey;type:varchar(26)" json:"id"`
	ConversationID string    `gorm:"type:varchar(130);not null;index:idx_messages_conv_time,priority:1" json:"conversation_id"`
	SenderID       string    `gorm:"type:varchar(64);not null" json:"sender_id"`
	SenderName     string    `gorm:"type:varchar(128);not null" json:"sender_name"`
	Text           string    `gorm:"type:text;not null" json:"text"`
	Timestamp      int64     `gorm:"not null;index:idx_messages_conv_time,priority:2" json:"timestamp"`
	CreatedAt      time.Time `json:"-"`
}

func (Message) TableName() string { return "messages" }

// MessagesSnapshot is the payload delivered to message-stream subscribers.
type MessagesSnapshot struct {
	ConversationID string    `json:"conversation_id"`
	Messages       []Message `json:"messages"`
}

// ConversationsSnapshot is the payload delivered to conversation-list
// subscribers.
type ConversationsSnapshot struct {
	UserID        string         `json:"user_id"`
	Conversations []Conversation `json:"conversations"`
}

// MessageEvent is published to the message-event queue after a successful
// append; the unread worker consumes it.
type MessageEvent struct {
	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"message_id"`
	SenderID       string `json:"sender_id"`
	RecipientID    string `json:"recipient_id"`
	Timestamp      int64  `json:"timestamp"`
}
