package redishandler

import (
	"context"
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/redis/go-redis/v9"

	"github.com/saxenaaman628/contestant-voting-client/internal/models"
)

const sessionKeyPrefix = "voting:session:"

// SessionStore keeps session-scoped votes in a Redis hash per session. The
// hash expires with the session, which is how the vote is forgotten.
type SessionStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewSessionStore(rdb *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{rdb: rdb, ttl: ttl}
}

func SessionKey(sessionID string) string {
	return sessionKeyPrefix + sessionID
}

func (s *SessionStore) Get(ctx context.Context, sessionID string) (models.SessionVote, bool, error) {
	data, err := s.rdb.HGetAll(ctx, SessionKey(sessionID)).Result()
	if err != nil {
		return models.SessionVote{}, false, err
	}
	if len(data) == 0 {
		return models.SessionVote{}, false, nil
	}

	var vote models.SessionVote
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.StringToTimeHookFunc(time.RFC3339Nano),
		Result:     &vote,
	})
	if err != nil {
		return models.SessionVote{}, false, err
	}
	if err := decoder.Decode(data); err != nil {
		return models.SessionVote{}, false, fmt.Errorf("decode session %s: %w", sessionID, err)
	}
	if vote.ContestantID == "" {
		return models.SessionVote{}, false, nil
	}
	return vote, true, nil
}

func (s *SessionStore) Put(ctx context.Context, sessionID string, vote models.SessionVote) error {
	key := SessionKey(sessionID)

	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, key, map[string]interface{}{
		"contestant_id":   vote.ContestantID,
		"contestant_name": vote.ContestantName,
		"vote_time":       vote.VoteTime.UTC().Format(time.RFC3339Nano),
	})
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store session %s: %w", sessionID, err)
	}
	return nil
}
