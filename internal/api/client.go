// Package api is the HTTP client for the remote voting service.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	domainerrors "github.com/saxenaaman628/contestant-voting-client/internal/domain/errors"
	"github.com/saxenaaman628/contestant-voting-client/internal/models"
)

const (
	PathContestants = "/voting/contestants"
	PathStatus      = "/voting/status"
	PathSubmit      = "/voting/submit"

	HeaderSessionID = "X-Session-ID"
	HeaderRequestID = "X-Request-ID"

	maxBodyBytes = 1 << 20
)

type Client struct {
	baseURL   string
	http      *http.Client
	sessionID string
	logger    *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithSessionID tags every request with the client session identity.
func WithSessionID(id string) Option {
	return func(c *Client) { c.sessionID = id }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Contestants fetches the full ballot with aggregate totals.
func (c *Client) Contestants(ctx context.Context) (models.ContestantList, error) {
	const op = "load contestants"
	status, env, err := c.do(ctx, http.MethodGet, PathContestants, nil, "")
	if err != nil {
		return models.ContestantList{}, &domainerrors.NetworkError{Op: op, Err: err}
	}
	if !isSuccess(status) || !env.Success {
		return models.ContestantList{}, &domainerrors.NetworkError{Op: op, Err: statusError(status, env.Message)}
	}

	var list models.ContestantList
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &list.Contestants); err != nil {
			return models.ContestantList{}, &domainerrors.NetworkError{Op: op, Err: fmt.Errorf("decode contestants: %w", err)}
		}
	}
	if env.TotalVotes != nil {
		list.TotalVotes = *env.TotalVotes
	} else {
		for _, ct := range list.Contestants {
			list.TotalVotes += ct.Votes
		}
	}
	if env.TotalContestants != nil {
		list.TotalContestants = *env.TotalContestants
	} else {
		list.TotalContestants = len(list.Contestants)
	}
	return list, nil
}

// Status fetches the visitor's daily-quota record.
func (c *Client) Status(ctx context.Context) (models.VotingStatus, error) {
	const op = "load voting status"
	status, env, err := c.do(ctx, http.MethodGet, PathStatus, nil, "")
	if err != nil {
		return models.VotingStatus{}, &domainerrors.NetworkError{Op: op, Err: err}
	}
	if !isSuccess(status) || !env.Success {
		return models.VotingStatus{}, &domainerrors.NetworkError{Op: op, Err: statusError(status, env.Message)}
	}

	var out models.VotingStatus
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &out); err != nil {
			return models.VotingStatus{}, &domainerrors.NetworkError{Op: op, Err: fmt.Errorf("decode status: %w", err)}
		}
	}
	return out, nil
}

// Submit casts one vote. A well-formed refusal from the server is a
// RejectedError; everything else that is not a success is a NetworkError.
func (c *Client) Submit(ctx context.Context, contestantID string) (models.SubmitVoteResult, error) {
	const op = "submit vote"
	requestID := uuid.NewString()
	status, env, err := c.do(ctx, http.MethodPost, PathSubmit, models.SubmitVoteRequest{ContestantID: contestantID}, requestID)
	if err != nil {
		return models.SubmitVoteResult{}, &domainerrors.NetworkError{Op: op, Err: err}
	}
	if status >= http.StatusInternalServerError {
		return models.SubmitVoteResult{}, &domainerrors.NetworkError{Op: op, Err: statusError(status, env.Message)}
	}
	if !isSuccess(status) || !env.Success {
		c.logger.Warn("vote rejected by server",
			"event", "voting_submit_rejected",
			"request_id", requestID,
			"contestant_id", contestantID,
			"status", status,
			"message", env.Message,
		)
		return models.SubmitVoteResult{}, &domainerrors.RejectedError{Status: status, Message: env.Message}
	}

	var out models.SubmitVoteResult
	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, &out); err != nil {
			return models.SubmitVoteResult{}, &domainerrors.NetworkError{Op: op, Err: fmt.Errorf("decode submit result: %w", err)}
		}
	}
	out.Message = env.Message
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, requestID string) (int, models.Envelope, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, models.Envelope{}, err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, models.Envelope{}, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.sessionID != "" {
		req.Header.Set(HeaderSessionID, c.sessionID)
	}
	if requestID != "" {
		req.Header.Set(HeaderRequestID, requestID)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("voting api request failed",
			"event", "voting_api_request_failed",
			"method", method,
			"path", path,
			"error", err.Error(),
		)
		return 0, models.Envelope{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return resp.StatusCode, models.Envelope{}, err
	}
	c.logger.Debug("voting api request completed",
		"event", "voting_api_request_completed",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	var env models.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return resp.StatusCode, models.Envelope{}, fmt.Errorf("unexpected response (status %d): %w", resp.StatusCode, err)
	}
	return resp.StatusCode, env, nil
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

func statusError(status int, message string) error {
	if message == "" {
		message = http.StatusText(status)
	}
	return fmt.Errorf("status %d: %s", status, message)
}
