package chat

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

// EnsureConversation inserts conv if no row with its id exists. The
// conditional insert (ON CONFLICT DO NOTHING) makes concurrent creators for
// the same pair converge on a single row; losers get the stored record back
// unchanged. The bool reports whether this call created the row.
func (r *Repo) EnsureConversation(ctx context.Context, conv *Conversation) (*Conversation, bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(conv)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected > 0 {
		return conv, true, nil
	}

	var existing Conversation
	if err := r.db.WithContext(ctx).First(&existing, "id = ?", conv.ID).Error; err != nil {
		return nil, false, err
	}
	return &existing, false, nil
}

func (r *Repo) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	var conv Conversation
	if err := r.db.WithContext(ctx).First(&conv, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &conv, nil
}

// AppendMessage commits the message row and the conversation summary update
// atomically: either both land or neither does.
func (r *Repo) AppendMessage(ctx context.Context, m *Message) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(m).Error; err != nil {
			return err
		}
		return tx.Model(&Conversation{}).
			Where("id = ?", m.ConversationID).
			Updates(map[string]any{
				"last_message_text": m.Text,
				"last_message_time": m.Timestamp,
			}).Error
	})
}

// ListMessages returns the full log in ASC (timestamp, id) order; id is a
// monotonic ULID, so equal timestamps resolve to send order.
func (r *Repo) ListMessages(ctx context.Context, conversationID string) ([]Message, error) {
	msgs := []Message{}
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("timestamp ASC, id ASC").
		Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

// ListConversationsForUser returns every conversation the user participates
// in, most recently active first.
func (r *Repo) ListConversationsForUser(ctx context.Context, userID string) ([]Conversation, error) {
	convs := []Conversation{}
	if err := r.db.WithContext(ctx).
		Where("participant_a = ? OR participant_b = ?", userID, userID).
		Order("last_message_time DESC").
		Find(&convs).Error; err != nil {
		return nil, err
	}
	return convs, nil
}
