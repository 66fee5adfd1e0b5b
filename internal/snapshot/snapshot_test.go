package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStores(t *testing.T) {
	for name, s := range map[string]Store[int]{
		"memory": NewMemoryStore[int](),
		"lru":    NewLRUStore[int](4, time.Hour),
	} {
		t.Run(name, func(t *testing.T) {
			_, ok := s.Get("a")
			assert.False(t, ok)
			s.Set("a", 1)
			s.Set("a", 2)
			v, ok := s.Get("a")
			require.True(t, ok)
			assert.Equal(t, 2, v)
			s.Delete("a")
			_, ok = s.Get("a")
			assert.False(t, ok)
		})
	}
}

func TestLRUStoreEvictsOldest(t *testing.T) {
	s := NewLRUStore[string](2, 0)
	s.Set("a", "1")
	s.Set("b", "2")
	s.Set("c", "3")
	_, ok := s.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 2, s.Len())
}

func TestSaveLastWriterWins(t *testing.T) {
	s := NewMemoryStore[*Snapshot]()
	Save(s, &Snapshot{ChannelID: "ch", Console: []LogEntry{{Level: "log", Message: "first"}}})
	Save(s, &Snapshot{ChannelID: "ch", Console: []LogEntry{{Level: "log", Message: "second"}}})

	snap, ok := s.Get("ch")
	require.True(t, ok)
	assert.Equal(t, "second", snap.Console[0].Message)
	assert.False(t, snap.UpdatedAt.IsZero())
}

func TestPollBounded(t *testing.T) {
	var calls int
	_, err := Poll(context.Background(), time.Millisecond, 3, func() (int, bool) {
		calls++
		return 0, false
	})
	assert.ErrorIs(t, err, ErrPollTimeout)
	assert.Equal(t, 3, calls)

	calls = 0
	v, err := Poll(context.Background(), time.Millisecond, 0, func() (int, bool) {
		calls++
		return 7, true
	})
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	assert.Equal(t, 1, calls)
}

func TestPollCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Poll(ctx, time.Hour, 5, func() (int, bool) { return 0, false })
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestPendingResolveAndAwait(t *testing.T) {
	store := NewMemoryStore[Entry]()
	p := NewPending(store)
	req := p.Submit("ch", "eval")
	assert.NotEmpty(t, req.ID)
	assert.False(t, p.Resolve("unknown", json.RawMessage(`1`)))

	go func() {
		time.Sleep(5 * time.Millisecond)
		p.Resolve(req.ID, json.RawMessage(`{"value":42}`))
	}()
	res, err := p.Await(context.Background(), req, 2*time.Millisecond, 100)
	require.NoError(t, err)
	assert.JSONEq(t, `{"value":42}`, string(res))
	assert.Equal(t, 0, store.Len())
	assert.False(t, p.Resolve(req.ID, json.RawMessage(`1`)))
}

func TestPendingAwaitTimeoutPurges(t *testing.T) {
	store := NewMemoryStore[Entry]()
	p := NewPending(store)
	req := p.Submit("ch", "props")

	_, err := p.Await(context.Background(), req, time.Millisecond, 2)
	assert.ErrorIs(t, err, ErrPollTimeout)
	_, ok := p.Lookup(req.ID)
	assert.False(t, ok)
}
