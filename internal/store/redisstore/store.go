// Package redisstore keeps per-user unread counters. Counters are advisory:
// every accessor tolerates Redis being down and the send path never blocks on
// them.
package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// counters expire if a conversation goes quiet for this long; the badge is
// worthless after that anyway and the keyspace stays bounded.
const unreadTTL = 30 * 24 * time.Hour

type Store struct {
	rdb *redis.Client
}

func New(addr, password string, db int) (*Store, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		DialTimeout: 5 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Store{rdb: rdb}, nil
}

func (s *Store) Close() error { return s.rdb.Close() }

func unreadKey(userID, conversationID string) string {
	return "unread:" + userID + ":" + conversationID
}

// IncrUnread bumps the recipient's unread counter for the conversation.
func (s *Store) IncrUnread(ctx context.Context, userID, conversationID string) error {
	key := unreadKey(userID, conversationID)
	pipe := s.rdb.TxPipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, unreadTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// ResetUnread clears the counter when the user opens the conversation.
func (s *Store) ResetUnread(ctx context.Context, userID, conversationID string) error {
	return s.rdb.Del(ctx, unreadKey(userID, conversationID)).Err()
}

// UnreadCounts fetches counters for the given conversations in one MGET.
// Missing keys count as zero.
func (s *Store) UnreadCounts(ctx context.Context, userID string, conversationIDs []string) (map[string]int64, error) {
	out := make(map[string]int64, len(conversationIDs))
	if len(conversationIDs) == 0 {
		return out, nil
	}
	keys := make([]string, len(conversationIDs))
	for i, id := range conversationIDs {
		keys[i] = unreadKey(userID, id)
	}
	vals, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	for i, v := range vals {
		if v == nil {
			continue
		}
		var n int64
		if _, err := fmt.Sscanf(v.(string), "%d", &n); err == nil {
			out[conversationIDs[i]] = n
		}
	}
	return out, nil
}
