// Package chat is the client core: it owns the session state and keeps
// the local view of threads and messages consistent with the backend
// under asynchronous, possibly-failing calls.
//
// The controller deliberately swallows read failures (list/load): they are
// logged and the previous rendering stays in place. Only send failures are
// surfaced to the user, because the user's own message is already on
// screen by then.
package chat

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/arkadia/console/pkg/api"
	"github.com/arkadia/console/pkg/identity"
	"github.com/arkadia/console/pkg/prefs"
)

// Backend is the REST surface the controller consumes. *api.Client
// satisfies it; tests substitute a fake.
type Backend interface {
	ListThreads(ctx context.Context, userID string) ([]api.Thread, error)
	CreateThread(ctx context.Context, userID string) (api.Thread, error)
	ListMessages(ctx context.Context, threadID api.ThreadID) ([]api.Message, error)
	Send(ctx context.Context, req api.OracleRequest) (api.OracleResponse, error)
}

// ThreadPrefs is the slice of the prefs store used to persist the thread
// selection.
type ThreadPrefs interface {
	Set(key, value string) error
	Delete(key string) error
}

// Controller implements the thread directory and the message
// synchronizer on top of shared session State. Methods never propagate
// backend failures to the caller.
type Controller struct {
	state   *State
	backend Backend
	view    View
	prefs   ThreadPrefs
	ids     *identity.Manager
	log     *slog.Logger

	mu      sync.Mutex
	threads []api.Thread // last successfully fetched directory
}

func NewController(state *State, backend Backend, view View, threadPrefs ThreadPrefs, ids *identity.Manager, log *slog.Logger) *Controller {
	if log == nil {
		log = slog.Default()
	}
	return &Controller{
		state:   state,
		backend: backend,
		view:    view,
		prefs:   threadPrefs,
		ids:     ids,
		log:     log,
	}
}

// State exposes the session state for read access by the UI.
func (c *Controller) State() *State { return c.state }

// LoadThreads fetches the directory for the current identity and renders
// it. When nothing is selected yet and the list is non-empty, the first
// entry is adopted; the backend sorts most-recent-first, so index 0 is a
// default-selection policy, not a property of the data. A fetch failure
// leaves the previously rendered list untouched.
func (c *Controller) LoadThreads(ctx context.Context) {
	userID := c.state.UserID()
	if userID == "" {
		return
	}

	threads, err := c.backend.ListThreads(ctx, userID)
	if err != nil {
		c.log.Error("failed to load threads", "user", userID, "error", err)
		return
	}

	c.mu.Lock()
	c.threads = threads
	c.mu.Unlock()
	c.view.RenderThreads(threads, c.state.ThreadID())

	if c.state.ThreadID() == nil && len(threads) > 0 {
		c.setThread(threads[0].ID)
		c.LoadMessages(ctx)
		c.view.RenderThreads(threads, c.state.ThreadID())
	}
}

// CreateThread requests a new thread, adopts it as current, and refreshes
// the directory and message pane. On failure the current selection is
// left untouched.
func (c *Controller) CreateThread(ctx context.Context) {
	userID := c.state.UserID()
	if userID == "" {
		return
	}

	t, err := c.backend.CreateThread(ctx, userID)
	if err != nil {
		c.log.Error("failed to create thread", "user", userID, "error", err)
		return
	}

	c.setThread(t.ID)
	c.LoadThreads(ctx)
	c.LoadMessages(ctx)
}

// SelectThread makes id the current thread, persists the choice, reloads
// its messages, and re-renders the directory to move the highlight.
func (c *Controller) SelectThread(ctx context.Context, id api.ThreadID) {
	c.setThread(id)
	c.LoadMessages(ctx)

	c.mu.Lock()
	threads := c.threads
	c.mu.Unlock()
	c.view.RenderThreads(threads, c.state.ThreadID())
}

// LoadMessages fetches and renders the current thread's history. With no
// thread selected the pane is cleared without a backend call. A fetch
// failure leaves the previous rendering in place.
func (c *Controller) LoadMessages(ctx context.Context) {
	threadID := c.state.ThreadID()
	if threadID == nil {
		c.view.RenderMessages(nil)
		return
	}

	msgs, err := c.backend.ListMessages(ctx, *threadID)
	if err != nil {
		c.log.Error("failed to load messages", "thread", *threadID, "error", err)
		return
	}
	c.view.RenderMessages(msgs)
}

// Send submits one user turn. Empty text, a missing identity, or a send
// already in flight make it a silent no-op. The provisional user message
// is rendered and the input cleared before the request is issued, so
// perceived latency does not depend on the backend. On failure the
// provisional message is not rolled back; the user gets a notice instead.
func (c *Controller) Send(ctx context.Context, text string) {
	text = strings.TrimSpace(text)
	userID := c.state.UserID()
	if text == "" || userID == "" {
		return
	}
	if !c.state.beginSend() {
		return
	}
	defer c.state.endSend()

	c.view.AppendMessage(api.Message{
		ID:        api.MessageID(uuid.NewString()),
		Role:      api.RoleUser,
		Sender:    userID,
		Content:   text,
		CreatedAt: api.Timestamp{Time: time.Now()},
	})
	c.view.ClearInput()

	resp, err := c.backend.Send(ctx, api.OracleRequest{
		Sender:   userID,
		Message:  text,
		ThreadID: c.state.ThreadID(),
	})
	if err != nil {
		c.log.Error("send failed", "user", userID, "error", err)
		c.view.Notify("Send failed: " + err.Error())
		return
	}

	// The backend may have created the thread for us; adopt its id either way.
	c.setThread(resp.ThreadID)

	c.view.AppendMessage(api.Message{
		ID:        api.MessageID(uuid.NewString()),
		Role:      api.RoleArkana,
		Sender:    "arkana",
		Content:   resp.Reply,
		CreatedAt: api.Timestamp{Time: time.Now()},
	})

	// A new turn can retitle the thread; refresh the directory.
	c.LoadThreads(ctx)
}

// SetIdentity switches to a user-edited identity. The active thread
// selection becomes stale and is cleared before the directory is reloaded
// under the new identity.
func (c *Controller) SetIdentity(ctx context.Context, raw string) {
	id := c.ids.Set(raw)
	c.state.setUserID(id.ID)
	c.clearThread()
	c.LoadThreads(ctx)
}

// setThread is the single funnel for thread selection: the in-memory
// value and the persisted value change together so they cannot diverge.
func (c *Controller) setThread(id api.ThreadID) {
	c.state.setThreadID(&id)
	if err := c.prefs.Set(prefs.KeyThreadID, string(id)); err != nil {
		c.log.Warn("could not persist thread selection", "thread", id, "error", err)
	}
}

func (c *Controller) clearThread() {
	c.state.setThreadID(nil)
	if err := c.prefs.Delete(prefs.KeyThreadID); err != nil {
		c.log.Warn("could not clear persisted thread selection", "error", err)
	}
}
