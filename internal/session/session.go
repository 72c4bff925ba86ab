// Package session gives the client a browser-like session identity. The
// session survives a process restart until it expires, the way a tab's
// session storage survives a page reload.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/saxenaaman628/contestant-voting-client/internal/utils"
)

type Session struct {
	ID        string
	ExpiresAt time.Time
	// Resumed is true when the session was read back from the token file.
	Resumed bool
}

// Remaining is the session lifetime left at now.
func (s Session) Remaining(now time.Time) time.Duration {
	if d := s.ExpiresAt.Sub(now); d > 0 {
		return d
	}
	return 0
}

// Resume returns the session stored in path when its token is still valid,
// otherwise starts a new one and writes its token to path. An empty path
// keeps the session in memory only.
func Resume(path, secret string, ttl time.Duration, now time.Time, logger *slog.Logger) (Session, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case err == nil:
			claims, err := utils.ParseSessionToken(strings.TrimSpace(string(raw)), secret, now)
			if err == nil {
				return Session{ID: claims.SessionID, ExpiresAt: claims.ExpiresAt.Time, Resumed: true}, nil
			}
			logger.Info("starting new voting session",
				"event", "session_token_rejected",
				"path", path,
				"reason", err.Error(),
			)
		case !errors.Is(err, os.ErrNotExist):
			return Session{}, fmt.Errorf("read session token: %w", err)
		}
	}

	s := Session{ID: uuid.NewString(), ExpiresAt: now.Add(ttl)}
	token, err := utils.GenerateSessionToken(s.ID, now, ttl, secret)
	if err != nil {
		return Session{}, err
	}
	if path != "" {
		if err := writeToken(path, token); err != nil {
			return Session{}, err
		}
	}
	logger.Info("voting session started", "event", "session_started", "session_id", s.ID, "expires_at", s.ExpiresAt)
	return s, nil
}

func writeToken(path, token string) error {
	if err := os.WriteFile(path, []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("write session token: %w", err)
	}
	return nil
}
