package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/suPer8Hu/gopherchat/internal/common"
	"github.com/suPer8Hu/gopherchat/internal/fanout"
	"github.com/suPer8Hu/gopherchat/internal/identity"
	"github.com/suPer8Hu/gopherchat/internal/logger"
)

// EventPublisher pushes message events to the queue the unread worker
// consumes. Implementations must be safe for concurrent use.
type EventPublisher interface {
	PublishMessageEvent(ctx context.Context, ev MessageEvent) error
}

// MessageTopic is the fan-out topic for one conversation's message stream.
func MessageTopic(conversationID string) string { return "conv:" + conversationID }

// ConversationListTopic is the fan-out topic for one user's conversation list.
func ConversationListTopic(userID string) string { return "user:" + userID }

// Service owns all writes to the conversation store and every fan-out
// trigger.
//
// Appends, subscriptions and ensure-creates for the same conversation are
// serialized on a per-conversation mutex; different conversations proceed in
// parallel. Because every publish to a conversation's topic happens under
// that lock, all subscribers observe one global per-conversation sequence.
// Conversation-list snapshots are serialized per user the same way. A lock
// order of conversation before user (users in sorted order) keeps the two
// levels deadlock-free.
type Service struct {
	repo   *Repo
	hub    *fanout.Hub
	events EventPublisher // optional
	log    *logger.Logger

	convLocks *keyedMutex
	userLocks *keyedMutex
}

func NewService(repo *Repo, hub *fanout.Hub, events EventPublisher, log *logger.Logger) *Service {
	return &Service{
		repo:      repo,
		hub:       hub,
		events:    events,
		log:       log.With("service", "chat"),
		convLocks: newKeyedMutex(),
		userLocks: newKeyedMutex(),
	}
}

// OpenConversation returns the conversation for the pair, creating it on
// first contact. Creation is idempotent: racing callers converge on a single
// stored record. A fresh conversation has an empty summary text and the
// creation time as its last-message time, matching what list views show
// before the first message.
func (s *Service) OpenConversation(ctx context.Context, userA, userB string) (*Conversation, error) {
	id, err := identity.CanonicalConversationID(userA, userB)
	if err != nil {
		return nil, err
	}
	if userA > userB {
		userA, userB = userB, userA
	}

	unlock := s.convLocks.Lock(id)
	defer unlock()

	conv, created, err := s.repo.EnsureConversation(ctx, &Conversation{
		ID:              id,
		ParticipantA:    userA,
		ParticipantB:    userB,
		LastMessageText: "",
		LastMessageTime: time.Now().UnixMilli(),
	})
	if err != nil {
		return nil, storeErr(err)
	}

	if created {
		s.notifyConversationLists(ctx, conv.ParticipantA, conv.ParticipantB)
	}
	return conv, nil
}

// AppendMessage validates, persists and fans out one message. The sender must
// be a participant; non-members get ErrConversationNotFound so the
// conversation's existence stays hidden.
func (s *Service) AppendMessage(ctx context.Context, conversationID, senderID, senderName, text string) (*Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	if strings.TrimSpace(senderName) == "" {
		senderName = "Anonymous"
	}

	unlock := s.convLocks.Lock(conversationID)
	defer unlock()

	conv, err := s.repo.GetConversation(ctx, conversationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, storeErr(err)
	}
	if !conv.HasParticipant(senderID) {
		return nil, ErrConversationNotFound
	}

	id, err := common.NewULID()
	if err != nil {
		return nil, storeErr(err)
	}

	m := &Message{
		ID:             id,
		ConversationID: conversationID,
		SenderID:       senderID,
		SenderName:     senderName,
		Text:           text,
		Timestamp:      time.Now().UnixMilli(),
	}
	if err := s.repo.AppendMessage(ctx, m); err != nil {
		return nil, storeErr(err)
	}

	s.notifyMessages(ctx, conversationID)
	s.notifyConversationLists(ctx, conv.ParticipantA, conv.ParticipantB)

	if s.events != nil {
		ev := MessageEvent{
			ConversationID: conversationID,
			MessageID:      m.ID,
			SenderID:       senderID,
			RecipientID:    conv.OtherParticipant(senderID),
			Timestamp:      m.Timestamp,
		}
		if err := s.events.PublishMessageEvent(ctx, ev); err != nil {
			s.log.Warn("publish message event", "conversation_id", conversationID, "error", err)
		}
	}

	return m, nil
}

// ListMessages returns the full ordered log for the conversation.
func (s *Service) ListMessages(ctx context.Context, conversationID string) ([]Message, error) {
	if _, err := s.repo.GetConversation(ctx, conversationID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, storeErr(err)
	}
	msgs, err := s.repo.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, storeErr(err)
	}
	return msgs, nil
}

// GetConversation returns the conversation if userID participates in it.
func (s *Service) GetConversation(ctx context.Context, conversationID, userID string) (*Conversation, error) {
	conv, err := s.repo.GetConversation(ctx, conversationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, storeErr(err)
	}
	if !conv.HasParticipant(userID) {
		return nil, ErrConversationNotFound
	}
	return conv, nil
}

// ListConversationsForUser returns the user's conversations, most recently
// active first. Unknown users simply have no conversations.
func (s *Service) ListConversationsForUser(ctx context.Context, userID string) ([]Conversation, error) {
	convs, err := s.repo.ListConversationsForUser(ctx, userID)
	if err != nil {
		return nil, storeErr(err)
	}
	return convs, nil
}

// SubscribeMessages registers observer for the conversation's message stream
// and synchronously delivers the current full log before returning. Taking
// the conversation lock here guarantees the initial snapshot and later
// updates form one ordered sequence with no gap and no reordering.
func (s *Service) SubscribeMessages(ctx context.Context, conversationID string, observer fanout.Observer) (*fanout.Subscription, error) {
	unlock := s.convLocks.Lock(conversationID)
	defer unlock()

	if _, err := s.repo.GetConversation(ctx, conversationID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, storeErr(err)
	}

	msgs, err := s.repo.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, storeErr(err)
	}

	sub := s.hub.Subscribe(MessageTopic(conversationID), observer)
	observer(MessagesSnapshot{ConversationID: conversationID, Messages: msgs})
	return sub, nil
}

// SubscribeConversationList is the list-scoped analogue of SubscribeMessages:
// current list first, then a fresh snapshot on every summary change or new
// conversation involving the user.
func (s *Service) SubscribeConversationList(ctx context.Context, userID string, observer fanout.Observer) (*fanout.Subscription, error) {
	unlock := s.userLocks.Lock(userID)
	defer unlock()

	convs, err := s.repo.ListConversationsForUser(ctx, userID)
	if err != nil {
		return nil, storeErr(err)
	}

	sub := s.hub.Subscribe(ConversationListTopic(userID), observer)
	observer(ConversationsSnapshot{UserID: userID, Conversations: convs})
	return sub, nil
}

func (s *Service) notifyMessages(ctx context.Context, conversationID string) {
	if s.hub.SubscriberCount(MessageTopic(conversationID)) == 0 {
		return
	}
	msgs, err := s.repo.ListMessages(ctx, conversationID)
	if err != nil {
		s.log.Error("load message snapshot", "conversation_id", conversationID, "error", err)
		return
	}
	s.hub.Publish(MessageTopic(conversationID), MessagesSnapshot{
		ConversationID: conversationID,
		Messages:       msgs,
	})
}

// notifyConversationLists publishes a fresh list snapshot to each user, one
// at a time in sorted order under that user's lock.
func (s *Service) notifyConversationLists(ctx context.Context, userIDs ...string) {
	if len(userIDs) == 2 && userIDs[0] > userIDs[1] {
		userIDs[0], userIDs[1] = userIDs[1], userIDs[0]
	}
	for _, uid := range userIDs {
		if s.hub.SubscriberCount(ConversationListTopic(uid)) == 0 {
			continue
		}
		unlock := s.userLocks.Lock(uid)
		convs, err := s.repo.ListConversationsForUser(ctx, uid)
		if err != nil {
			s.log.Error("load conversation list snapshot", "user_id", uid, "error", err)
			unlock()
			continue
		}
		s.hub.Publish(ConversationListTopic(uid), ConversationsSnapshot{
			UserID:        uid,
			Conversations: convs,
		})
		unlock()
	}
}
