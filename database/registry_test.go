package database

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/ukv-go/errors"
)

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) OnDatabaseEvent(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) types() []EventType {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]EventType, len(l.events))
	for i, e := range l.events {
		out[i] = e.Type
	}
	return out
}

func TestRegistry_OpenClose(t *testing.T) {
	b := newFake()
	r := NewRegistry(b, WithName("reg"))
	log := &eventLog{}
	r.Subscribe(log)

	d, err := r.Open("")
	require.NoError(t, err)
	assert.Equal(t, "reg", d.Name())
	assert.Equal(t, 1, r.Len())

	require.NoError(t, d.Close())
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, []EventType{EventOpened, EventClosed}, log.types())
	assert.Same(t, d, log.events[0].DB)
	assert.Equal(t, log.events[0].ID, log.events[1].ID)

	require.NoError(t, d.Close())
	assert.Len(t, log.types(), 2, "double close must not emit a second event")
}

func TestRegistry_OpenFailureNotTracked(t *testing.T) {
	b := newFake()
	b.failWith = "bad config"
	r := NewRegistry(b)

	_, err := r.Open("x")
	assert.True(t, errors.IsKind(err, errors.KindInitialization))
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_OptionOverride(t *testing.T) {
	r := NewRegistry(newFake(), WithName("default"))
	d, err := r.Open("", WithName("custom"))
	require.NoError(t, err)
	assert.Equal(t, "custom", d.Name())
	require.NoError(t, r.CloseAll())
}

func TestRegistry_CloseAll(t *testing.T) {
	b := newFake()
	r := NewRegistry(b)

	var dbs []*DB
	for i := 0; i < 5; i++ {
		d, err := r.Open("")
		require.NoError(t, err)
		dbs = append(dbs, d)
	}
	require.NoError(t, dbs[2].Close())
	assert.Equal(t, 4, r.Len())

	require.NoError(t, r.CloseAll())
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, 5, b.frees)
	assert.Zero(t, b.badFrees)
	for _, d := range dbs {
		assert.Equal(t, StateClosed, d.State())
	}

	_, err := r.Open("")
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindInvalidState))
	assert.Equal(t, 6, b.frees, "handle opened after CloseAll must be released")
}

func TestRegistry_ObserverFunc(t *testing.T) {
	r := NewRegistry(newFake())
	var got []string
	r.Subscribe(ObserverFunc(func(e Event) {
		got = append(got, e.Type.String())
	}))

	d, err := r.Open("")
	require.NoError(t, err)
	require.NoError(t, d.Close())
	assert.Equal(t, []string{"opened", "closed"}, got)
}
