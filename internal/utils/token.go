package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims identifies one client voting session and, once cast, the
// session's vote.
type SessionClaims struct {
	SessionID           string           `json:"sid"`
	VotedContestantID   string           `json:"vcid,omitempty"`
	VotedContestantName string           `json:"vcname,omitempty"`
	VotedAt             *jwt.NumericDate `json:"vat,omitempty"`
	jwt.RegisteredClaims
}

func GenerateSessionToken(sessionID string, issuedAt time.Time, ttl time.Duration, secret string) (string, error) {
	return SignSessionClaims(SessionClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
		},
	}, secret)
}

// SignSessionClaims signs claims as they are, keeping their expiry.
func SignSessionClaims(claims SessionClaims, secret string) (string, error) {
	if secret == "" {
		return "", errors.New("empty signing secret")
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseSessionToken verifies the signature and expiry of a session token as
// of now.
func ParseSessionToken(tokenString, secret string, now time.Time) (*SessionClaims, error) {
	claims := &SessionClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		return nil, err
	}
	if claims.SessionID == "" {
		return nil, fmt.Errorf("session token has no session id")
	}
	return claims, nil
}
