// Package identity resolves and persists the stable client identity that
// scopes all thread and message operations.
package identity

import (
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

// Fallback is substituted when the user sets an empty identity.
const Fallback = "anonymous"

const tokenPrefix = "node_"

// Store is the subset of the prefs store the manager needs.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string) error
}

const storeKey = "user_id"

// Identity is a token identifying the local user to the backend.
type Identity struct {
	ID string
}

// Manager loads, generates, and persists identities. It never touches the
// network.
type Manager struct {
	store Store
	log   *slog.Logger
}

func NewManager(store Store, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{store: store, log: log}
}

// Resolve returns the persisted identity, generating and persisting a new
// random token on first run. A storage-write failure is non-fatal: the
// generated identity is still returned and used for the session.
func (m *Manager) Resolve() Identity {
	if stored, ok := m.store.Get(storeKey); ok && stored != "" {
		return Identity{ID: stored}
	}

	id := Identity{ID: NewToken()}
	if err := m.store.Set(storeKey, id.ID); err != nil {
		m.log.Warn("could not persist generated identity", "error", err)
	}
	return id
}

// Set normalizes and persists a user-edited identity. Empty input falls
// back to the anonymous token. Callers must treat this as an identity
// switch and clear the active thread selection.
func (m *Manager) Set(raw string) Identity {
	id := Identity{ID: strings.TrimSpace(raw)}
	if id.ID == "" {
		id.ID = Fallback
	}
	if err := m.store.Set(storeKey, id.ID); err != nil {
		m.log.Warn("could not persist identity", "error", err)
	}
	return id
}

// NewToken generates a pseudo-random identity token. The prefix marks
// client-generated tokens apart from user-chosen names.
func NewToken() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return tokenPrefix + raw[:6]
}
