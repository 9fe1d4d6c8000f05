package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/status", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"service":"arkana-oracle-temple","message":"House of Three online. Arkana listening.","rasa_backend":null,"rasa_ok":true}`)
	}))
	defer server.Close()

	c := New(server.URL)
	st, err := c.Status(context.Background())
	require.NoError(t, err)
	assert.True(t, st.RasaOK)
	assert.Equal(t, "House of Three online. Arkana listening.", st.Message)
}

func TestListThreads_NumericIDs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/threads", r.URL.Path)
		require.Equal(t, "node_ab12cd", r.URL.Query().Get("user_id"))
		w.Header().Set("Content-Type", "application/json")
		// The backend serializes ids as integers and timestamps without a zone.
		io.WriteString(w, `[
			{"id": 9, "title": "Second", "created_at": "2026-01-02T10:00:00", "updated_at": "2026-01-02T11:00:00"},
			{"id": 1, "title": null, "created_at": "2026-01-01T00:00:00", "updated_at": "2026-01-01T00:00:00"}
		]`)
	}))
	defer server.Close()

	c := New(server.URL)
	threads, err := c.ListThreads(context.Background(), "node_ab12cd")
	require.NoError(t, err)
	require.Len(t, threads, 2)
	assert.Equal(t, ThreadID("9"), threads[0].ID)
	assert.Equal(t, ThreadID("1"), threads[1].ID)
	assert.Equal(t, "Second", threads[0].DisplayTitle())
	assert.Equal(t, "Thread #1 · 2026-01-01", threads[1].DisplayTitle())
}

func TestListMessages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/threads/7/messages", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `[
			{"id": 100, "role": "user", "sender": "node_ab12cd", "content": "hello", "created_at": "2026-01-01T00:00:00"},
			{"id": 101, "role": "arkana", "sender": "arkana", "content": "I hear you.", "created_at": "2026-01-01T00:00:03"}
		]`)
	}))
	defer server.Close()

	c := New(server.URL)
	msgs, err := c.ListMessages(context.Background(), "7")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.True(t, msgs[0].Role.IsUser())
	assert.False(t, msgs[1].Role.IsUser())
	assert.True(t, msgs[0].CreatedAt.Before(msgs[1].CreatedAt.Time))
}

func TestSend_NullThreadID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/oracle", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "node_ab12cd", body["sender"])
		assert.Equal(t, "hello", body["message"])
		assert.Nil(t, body["thread_id"])

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"sender": "arkana", "reply": "I hear you.", "thread_id": 3}`)
	}))
	defer server.Close()

	c := New(server.URL)
	resp, err := c.Send(context.Background(), OracleRequest{
		Sender:  "node_ab12cd",
		Message: "hello",
	})
	require.NoError(t, err)
	assert.Equal(t, ThreadID("3"), resp.ThreadID)
	assert.Equal(t, "I hear you.", resp.Reply)
}

func TestSend_NumericThreadIDOnWire(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		// A numeric thread id must go back to the wire as a number, not a string.
		assert.JSONEq(t, `{"sender":"u1","message":"hi","thread_id":3}`, string(raw))
		io.WriteString(w, `{"sender": "arkana", "reply": "ok", "thread_id": 3}`)
	}))
	defer server.Close()

	id := ThreadID("3")
	c := New(server.URL)
	_, err := c.Send(context.Background(), OracleRequest{Sender: "u1", Message: "hi", ThreadID: &id})
	require.NoError(t, err)
}

func TestNon2xxIsTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, "upstream exploded")
	}))
	defer server.Close()

	c := New(server.URL)
	_, err := c.ListThreads(context.Background(), "u1")
	require.Error(t, err)

	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.StatusBadGateway, te.StatusCode)
	assert.Equal(t, "upstream exploded", te.Body)
}

func TestNetworkFailureIsTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	c := New(server.URL)
	_, err := c.Status(context.Background())
	require.Error(t, err)

	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Zero(t, te.StatusCode)
}

func TestTimestampParsing(t *testing.T) {
	cases := map[string]string{
		"naive":    `"2026-01-01T12:30:00"`,
		"rfc3339":  `"2026-01-01T12:30:00Z"`,
		"fraction": `"2026-01-01T12:30:00.123456"`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			var ts Timestamp
			require.NoError(t, json.Unmarshal([]byte(raw), &ts))
			assert.Equal(t, 2026, ts.Year())
			assert.Equal(t, 30, ts.Minute())
		})
	}

	var ts Timestamp
	require.Error(t, json.Unmarshal([]byte(`"not-a-time"`), &ts))
}
