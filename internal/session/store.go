package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/saxenaaman628/contestant-voting-client/internal/models"
	"github.com/saxenaaman628/contestant-voting-client/internal/utils"
)

// TokenStore keeps the session vote as claims of the session token itself,
// so the vote survives a restart and ends with the session.
type TokenStore struct {
	path   string
	secret string
	now    func() time.Time
}

func NewTokenStore(path, secret string, now func() time.Time) *TokenStore {
	if now == nil {
		now = time.Now
	}
	return &TokenStore{path: path, secret: secret, now: now}
}

func (s *TokenStore) Get(_ context.Context, sessionID string) (models.SessionVote, bool, error) {
	claims, err := s.read()
	switch {
	case errors.Is(err, os.ErrNotExist), errors.Is(err, jwt.ErrTokenExpired):
		return models.SessionVote{}, false, nil
	case err != nil:
		return models.SessionVote{}, false, err
	}
	if claims.SessionID != sessionID || claims.VotedContestantID == "" {
		return models.SessionVote{}, false, nil
	}

	vote := models.SessionVote{
		ContestantID:   claims.VotedContestantID,
		ContestantName: claims.VotedContestantName,
	}
	if claims.VotedAt != nil {
		vote.VoteTime = claims.VotedAt.Time
	}
	return vote, true, nil
}

// Put re-signs the current session token with the vote added. The expiry is
// left as it was.
func (s *TokenStore) Put(_ context.Context, sessionID string, vote models.SessionVote) error {
	claims, err := s.read()
	if err != nil {
		return fmt.Errorf("read session token: %w", err)
	}
	if claims.SessionID != sessionID {
		return fmt.Errorf("session token belongs to session %s, not %s", claims.SessionID, sessionID)
	}

	claims.VotedContestantID = vote.ContestantID
	claims.VotedContestantName = vote.ContestantName
	claims.VotedAt = jwt.NewNumericDate(vote.VoteTime)
	token, err := utils.SignSessionClaims(*claims, s.secret)
	if err != nil {
		return err
	}
	return writeToken(s.path, token)
}

func (s *TokenStore) read() (*utils.SessionClaims, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	return utils.ParseSessionToken(strings.TrimSpace(string(raw)), s.secret, s.now())
}
