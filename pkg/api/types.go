package api

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Role identifies which side of the conversation produced a message.
type Role string

const (
	RoleUser   Role = "user"
	RoleArkana Role = "arkana"
)

// IsUser reports whether the role is the local user. The backend emits
// "arkana" for the assistant side; anything that is not "user" renders as
// the assistant.
func (r Role) IsUser() bool { return r == RoleUser }

// ThreadID is an opaque thread identifier. The backend serializes thread
// ids as JSON numbers, but the client never does arithmetic on them, so
// they are carried as strings. Numeric values round-trip back to the wire
// as numbers.
type ThreadID string

func (t *ThreadID) UnmarshalJSON(data []byte) error {
	s, err := unquoteID(data)
	if err != nil {
		return fmt.Errorf("thread id: %w", err)
	}
	*t = ThreadID(s)
	return nil
}

func (t ThreadID) MarshalJSON() ([]byte, error) {
	if _, err := strconv.ParseInt(string(t), 10, 64); err == nil {
		return []byte(t), nil
	}
	return json.Marshal(string(t))
}

// MessageID is an opaque message identifier, server-assigned for fetched
// messages and locally generated for provisional ones.
type MessageID string

func (m *MessageID) UnmarshalJSON(data []byte) error {
	s, err := unquoteID(data)
	if err != nil {
		return fmt.Errorf("message id: %w", err)
	}
	*m = MessageID(s)
	return nil
}

// unquoteID accepts either a JSON string or a JSON number.
func unquoteID(data []byte) (string, error) {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}

// Timestamp wraps time.Time to accept the backend's timestamp encoding.
// The backend emits naive ISO 8601 strings without a zone offset; RFC 3339
// is accepted as well.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		parsed, err := time.Parse(layout, s)
		if err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", s)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Format(time.RFC3339))
}

// Thread is a named conversation owned by one identity.
type Thread struct {
	ID        ThreadID  `json:"id"`
	Title     string    `json:"title,omitempty"`
	CreatedAt Timestamp `json:"created_at"`
	UpdatedAt Timestamp `json:"updated_at,omitempty"`
}

// DisplayTitle returns the title if set, otherwise a fallback built from
// the id and creation date.
func (t Thread) DisplayTitle() string {
	if t.Title != "" {
		return t.Title
	}
	label := "Thread #" + string(t.ID)
	if !t.CreatedAt.IsZero() {
		label += " · " + t.CreatedAt.Format("2006-01-02")
	}
	return label
}

// Message is one turn in a thread.
type Message struct {
	ID        MessageID `json:"id"`
	Role      Role      `json:"role"`
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	CreatedAt Timestamp `json:"created_at"`
}

// Status is the backend readiness report from GET /status. Readiness is
// the rasa_ok field, not HTTP success.
type Status struct {
	Service string `json:"service"`
	Message string `json:"message"`
	RasaOK  bool   `json:"rasa_ok"`
}

// OracleRequest is the body of POST /oracle. ThreadID is null when the
// user has no thread yet; the backend creates one and returns its id.
type OracleRequest struct {
	Sender   string    `json:"sender"`
	Message  string    `json:"message"`
	ThreadID *ThreadID `json:"thread_id"`
}

// OracleResponse is the reply payload of POST /oracle.
type OracleResponse struct {
	Sender   string   `json:"sender"`
	Reply    string   `json:"reply"`
	ThreadID ThreadID `json:"thread_id"`
}
