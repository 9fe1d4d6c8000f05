package chat

import (
	"sync"

	"github.com/arkadia/console/pkg/api"
)

// State is the single mutable session state shared by the thread
// directory and the message synchronizer. All mutation goes through its
// methods; nothing outside this package writes fields directly.
type State struct {
	mu       sync.Mutex
	userID   string
	threadID *api.ThreadID
	sending  bool
}

// NewState initializes session state. threadID may be nil when no thread
// was persisted from an earlier run.
func NewState(userID string, threadID *api.ThreadID) *State {
	return &State{userID: userID, threadID: threadID}
}

func (s *State) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

func (s *State) setUserID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = id
}

// ThreadID returns the current thread selection, nil when no thread
// exists or is selected yet.
func (s *State) ThreadID() *api.ThreadID {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.threadID == nil {
		return nil
	}
	id := *s.threadID
	return &id
}

func (s *State) setThreadID(id *api.ThreadID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threadID = id
}

// Sending reports whether a send is currently in flight.
func (s *State) Sending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sending
}

// beginSend tries to claim the single in-flight send slot. It returns
// false when a send is already outstanding; the caller must treat that as
// a no-op, not queue the message.
func (s *State) beginSend() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sending {
		return false
	}
	s.sending = true
	return true
}

func (s *State) endSend() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sending = false
}
