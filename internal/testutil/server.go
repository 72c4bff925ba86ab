// Package testutil provides an in-process fake of the remote voting API for
// tests: the three REST endpoints plus the websocket push endpoint.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/saxenaaman628/contestant-voting-client/internal/models"
	"github.com/saxenaaman628/contestant-voting-client/internal/stats"
)

type failure struct {
	status  int
	message string
	raw     string
}

// FakeServer enforces a daily quota per process the way the real server does
// per visitor, and broadcasts a voteUpdate to push subscribers on every vote.
type FakeServer struct {
	mu          sync.Mutex
	contestants []models.Contestant
	remaining   int
	dailyCount  int
	voted       []models.VotedContestant

	calls      map[string]int
	headers    map[string]http.Header
	failures   map[string]failure
	omitRemain bool
	conns      map[*websocket.Conn]*sync.Mutex
	subscribed chan struct{}
	upgrader   websocket.Upgrader
	server     *httptest.Server
}

// NewFakeServer starts a server with the given ballot and daily quota. It is
// closed when the test ends.
func NewFakeServer(t testing.TB, contestants []models.Contestant, quota int) *FakeServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &FakeServer{
		contestants: append([]models.Contestant(nil), contestants...),
		remaining:   quota,
		calls:       map[string]int{},
		headers:     map[string]http.Header{},
		failures:    map[string]failure{},
		conns:       map[*websocket.Conn]*sync.Mutex{},
		subscribed:  make(chan struct{}, 16),
	}

	r := gin.New()
	f.RegisterRoutes(r)
	f.server = httptest.NewServer(r)
	t.Cleanup(func() {
		f.CloseConnections()
		f.server.Close()
	})
	return f
}

// URL is the base for both the REST API and the push endpoint.
func (f *FakeServer) URL() string { return f.server.URL }

func (f *FakeServer) RegisterRoutes(r *gin.Engine) {
	voting := r.Group("/voting")
	voting.Use(f.record)
	{
		voting.GET("/contestants", f.listContestants)
		voting.GET("/status", f.status)
		voting.POST("/submit", f.submit)
		voting.GET("/ws", f.socket)
	}
}

// Calls returns how many requests hit path, e.g. "/voting/submit".
func (f *FakeServer) Calls(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[path]
}

// LastHeader returns a header of the most recent request to path.
func (f *FakeServer) LastHeader(path, name string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if h, ok := f.headers[path]; ok {
		return h.Get(name)
	}
	return ""
}

// Fail makes every request to path answer with status and a
// {success:false} body until Recover is called.
func (f *FakeServer) Fail(path string, status int, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[path] = failure{status: status, message: message}
}

// FailRaw makes path answer with a raw, possibly non-JSON body.
func (f *FakeServer) FailRaw(path string, status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[path] = failure{status: status, raw: body}
}

func (f *FakeServer) Recover(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.failures, path)
}

// OmitRemainingVotes drops remainingVotes from submit responses.
func (f *FakeServer) OmitRemainingVotes(omit bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.omitRemain = omit
}

// SetRemaining overrides the server-side quota, e.g. to simulate a vote
// cast from another device.
func (f *FakeServer) SetRemaining(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.remaining = n
}

// SetVotes changes a tally without broadcasting it.
func (f *FakeServer) SetVotes(id string, votes int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.contestants {
		if f.contestants[i].ID == id {
			f.contestants[i].Votes = votes
		}
	}
}

// Broadcast sends a voteUpdate to every subscribed websocket client.
func (f *FakeServer) Broadcast(ev models.TallyUpdateEvent) {
	f.mu.Lock()
	conns := make(map[*websocket.Conn]*sync.Mutex, len(f.conns))
	for c, l := range f.conns {
		conns[c] = l
	}
	f.mu.Unlock()

	for conn, lock := range conns {
		lock.Lock()
		_ = conn.WriteJSON(gin.H{"event": models.EventVoteUpdate, "data": ev})
		lock.Unlock()
	}
}

// WaitSubscribed blocks until a websocket client has sent the
// subscribe-voting handshake.
func (f *FakeServer) WaitSubscribed(t testing.TB, timeout time.Duration) {
	t.Helper()
	select {
	case <-f.subscribed:
	case <-time.After(timeout):
		t.Fatal("timed out waiting for push subscription")
	}
}

// CloseConnections drops every websocket client.
func (f *FakeServer) CloseConnections() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for conn := range f.conns {
		conn.Close()
		delete(f.conns, conn)
	}
}

func (f *FakeServer) record(c *gin.Context) {
	path := c.FullPath()
	f.mu.Lock()
	f.calls[path]++
	f.headers[path] = c.Request.Header.Clone()
	fail, failing := f.failures[path]
	f.mu.Unlock()

	if !failing {
		c.Next()
		return
	}
	if fail.raw != "" {
		c.Data(fail.status, "text/plain", []byte(fail.raw))
	} else {
		c.JSON(fail.status, gin.H{"success": false, "message": fail.message})
	}
	c.Abort()
}

func (f *FakeServer) listContestants(c *gin.Context) {
	f.mu.Lock()
	d := stats.Recompute(f.contestants)
	f.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"data":             d.Contestants,
		"totalVotes":       d.TotalVotes,
		"totalContestants": len(d.Contestants),
	})
}

func (f *FakeServer) status(c *gin.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": models.VotingStatus{
			DailyVoteCount:   f.dailyCount,
			RemainingVotes:   f.remaining,
			VotedContestants: append([]models.VotedContestant{}, f.voted...),
		},
	})
}

func (f *FakeServer) submit(c *gin.Context) {
	var req models.SubmitVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Contestant ID is required"})
		return
	}

	f.mu.Lock()
	idx := -1
	for i := range f.contestants {
		if f.contestants[i].ID == req.ContestantID {
			idx = i
			break
		}
	}
	if idx < 0 {
		f.mu.Unlock()
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Contestant not found"})
		return
	}
	for _, v := range f.voted {
		if v.ContestantID == req.ContestantID {
			f.mu.Unlock()
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "You have already voted for this contestant today"})
			return
		}
	}
	if f.remaining <= 0 {
		f.mu.Unlock()
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "You have reached your daily vote limit"})
		return
	}

	f.contestants[idx].Votes++
	f.remaining--
	f.dailyCount++
	f.voted = append(f.voted, models.VotedContestant{ContestantID: req.ContestantID, VoteTime: time.Now().UTC()})
	d := stats.Recompute(f.contestants)
	updated := d.Contestants[idx]
	remaining := f.remaining
	omit := f.omitRemain
	f.mu.Unlock()

	f.Broadcast(models.TallyUpdateEvent{
		ContestantID:   updated.ID,
		NewVoteCount:   updated.Votes,
		VotePercentage: updated.VotePercentage,
		TotalVotes:     d.TotalVotes,
	})

	data := gin.H{"contestantName": updated.Name}
	if !omit {
		data["remainingVotes"] = remaining
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data, "message": "Vote submitted successfully"})
}

func (f *FakeServer) socket(c *gin.Context) {
	conn, err := f.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	var hello models.PushMessage
	if err := conn.ReadJSON(&hello); err != nil || hello.Event != models.EventSubscribeVoting {
		return
	}

	f.mu.Lock()
	f.conns[conn] = &sync.Mutex{}
	f.mu.Unlock()
	select {
	case f.subscribed <- struct{}{}:
	default:
	}

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	f.mu.Lock()
	delete(f.conns, conn)
	f.mu.Unlock()
}
