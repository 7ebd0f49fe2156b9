// internal/conversation/session_test.go
package conversation

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sailmatch-workers/internal/common/logger"
)

func newTestSessionStore(t *testing.T) (*SessionStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewSessionStore(client, 2*time.Hour, logger.NewTestLogger(t)), mr
}

func TestSessionLoadMissingReturnsFresh(t *testing.T) {
	store, _ := newTestSessionStore(t)

	session, err := store.Load(context.Background(), "nope")
	require.NoError(t, err)
	assert.Equal(t, "nope", session.ID)
	assert.Empty(t, session.History)
	assert.NotNil(t, session.KnownIDs)
}

func TestSessionLoadEmptyIDGeneratesOne(t *testing.T) {
	store, _ := newTestSessionStore(t)

	session, err := store.Load(context.Background(), "")
	require.NoError(t, err)
	assert.NotEmpty(t, session.ID)
}

func TestSessionRoundTrip(t *testing.T) {
	store, _ := newTestSessionStore(t)
	ctx := context.Background()

	session := newSession("s-1")
	session.History = []Message{{Role: "user", Content: "hello"}}
	session.KnownIDs["journey-1"] = true
	session.Pending = &PendingAction{
		ToolName:  "approve_registration",
		Arguments: map[string]interface{}{"registrationId": "reg-1"},
		Label:     "Approve this registration?",
	}
	require.NoError(t, store.Save(ctx, session))

	loaded, err := store.Load(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, session.History, loaded.History)
	assert.True(t, loaded.KnownIDs["journey-1"])
	require.NotNil(t, loaded.Pending)
	assert.Equal(t, "approve_registration", loaded.Pending.ToolName)
}

func TestSessionSaveSetsTTL(t *testing.T) {
	store, mr := newTestSessionStore(t)

	require.NoError(t, store.Save(context.Background(), newSession("s-ttl")))
	assert.Greater(t, mr.TTL(sessionKey("s-ttl")), time.Duration(0))
}

func TestSessionExpiresAfterTTL(t *testing.T) {
	store, mr := newTestSessionStore(t)
	ctx := context.Background()

	session := newSession("s-exp")
	session.History = []Message{{Role: "user", Content: "hi"}}
	require.NoError(t, store.Save(ctx, session))

	mr.FastForward(3 * time.Hour)

	loaded, err := store.Load(ctx, "s-exp")
	require.NoError(t, err)
	assert.Empty(t, loaded.History)
}

func TestSessionCorruptPayloadDiscarded(t *testing.T) {
	store, mr := newTestSessionStore(t)
	mr.Set(sessionKey("s-bad"), "{not json")

	loaded, err := store.Load(context.Background(), "s-bad")
	require.NoError(t, err)
	assert.Empty(t, loaded.History)
}

func TestSessionTrim(t *testing.T) {
	session := newSession("s-trim")
	for i := 0; i < 6; i++ {
		session.History = append(session.History, Message{Role: "user", Content: string(rune('a' + i))})
	}

	trimmed := session.Trim(4)
	require.Len(t, trimmed, 4)
	assert.Equal(t, "c", trimmed[0].Content)
	assert.Equal(t, "f", trimmed[3].Content)
}
