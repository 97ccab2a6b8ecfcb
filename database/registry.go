package database

import (
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wippyai/ukv-go/database/internal/handles"
	"github.com/wippyai/ukv-go/errors"
)

type EventType uint8

const (
	EventOpened EventType = iota
	EventClosed
)

func (t EventType) String() string {
	if t == EventOpened {
		return "opened"
	}
	return "closed"
}

// Event reports a handle opened or closed through a Registry.
type Event struct {
	DB   *DB
	ID   uint32
	Type EventType
}

// Observer receives registry lifecycle events. Events are delivered
// synchronously on the goroutine that opened or closed the handle.
type Observer interface {
	OnDatabaseEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) OnDatabaseEvent(e Event) { f(e) }

// Registry tracks every handle opened through it so they can all be
// released before the process exits.
type Registry struct {
	binding Binding
	table   *handles.Table[*DB]
	opts    []Option
}

func NewRegistry(b Binding, opts ...Option) *Registry {
	return &Registry{
		binding: b,
		table:   handles.New[*DB](),
		opts:    opts,
	}
}

// Open opens a database and tracks it until it is closed.
func (r *Registry) Open(config string, opts ...Option) (*DB, error) {
	all := append(append([]Option(nil), r.opts...), opts...)
	d, err := Open(r.binding, config, all...)
	if err != nil {
		return nil, err
	}

	id, err := r.table.Insert(d)
	if err != nil {
		closeErr := d.Close()
		return nil, multierr.Append(
			errors.Wrap(errors.PhaseRuntime, errors.KindInvalidState, err, "registry is closed"),
			closeErr)
	}

	d.mu.Lock()
	d.onClose = func(*DB) { r.table.Remove(id) }
	d.mu.Unlock()
	return d, nil
}

// Len returns the number of open handles.
func (r *Registry) Len() int {
	return r.table.Len()
}

// Subscribe adds an observer for lifecycle events.
func (r *Registry) Subscribe(o Observer) {
	r.table.Subscribe(observerAdapter{o})
}

// CloseAll closes every open handle and stops accepting new ones.
func (r *Registry) CloseAll() error {
	r.table.Close()

	var err error
	n := 0
	r.table.Each(func(_ handles.Handle, d *DB) bool {
		err = multierr.Append(err, d.Close())
		n++
		return true
	})
	Logger().Info("closed all databases", zap.Int("count", n))
	return err
}

type observerAdapter struct {
	o Observer
}

func (a observerAdapter) OnHandleEvent(e handles.Event[*DB]) {
	typ := EventOpened
	if e.Type == handles.EventRemoved {
		typ = EventClosed
	}
	a.o.OnDatabaseEvent(Event{Type: typ, ID: uint32(e.Handle), DB: e.Value})
}
