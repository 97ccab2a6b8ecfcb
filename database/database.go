package database

import (
	"sync"
	"unsafe"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wippyai/ukv-go/errors"
)

// State is the lifecycle state of a DB.
type State uint8

const (
	StateUninitialized State = iota
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

const noMessage = "engine reported an error without a message"

// Option configures a DB.
type Option func(*DB)

// WithName labels the handle in log output.
func WithName(name string) Option {
	return func(d *DB) { d.name = name }
}

// DB owns one native database handle. A handle starts uninitialized, is
// open after a successful Init and closed after Close; closed is final.
//
// One DB may be shared between goroutines. Borrow calls run concurrently
// with each other and Close waits until they return. DB only guards the
// lifecycle: callers must synchronize concurrent native calls on one
// handle themselves unless the engine documents them as thread-safe.
type DB struct {
	lastErr error
	binding Binding
	ptr     unsafe.Pointer
	onClose func(*DB)
	config  string
	name    string
	mu      sync.RWMutex
	state   State
}

// New returns an uninitialized DB.
func New(b Binding, opts ...Option) *DB {
	d := &DB{binding: b}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Open is New followed by Init.
func Open(b Binding, config string, opts ...Option) (*DB, error) {
	d := New(b, opts...)
	if err := d.Init(config); err != nil {
		return nil, err
	}
	return d, nil
}

// With opens a database, passes it to fn and closes it on every return
// path, including a panic in fn.
func With(b Binding, config string, fn func(*DB) error, opts ...Option) (err error) {
	d, err := Open(b, config, opts...)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, d.Close())
	}()
	return fn(d)
}

// Init asks the engine for a handle. The config string is passed through
// unchanged; its meaning is defined by the engine.
//
// If the engine reports an error the DB stays uninitialized and Init may
// be retried. A handle the engine wrote next to an error is never adopted.
func (d *DB) Init(config string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state != StateUninitialized {
		return errors.InvalidState("init", d.state.String())
	}

	req := &InitRequest{Config: config}
	d.binding.DatabaseInit(req)

	if req.Error != nil {
		msg := d.binding.ErrorMessage(req.Error)
		d.binding.ErrorFree(req.Error)
		if msg == "" {
			msg = noMessage
		}
		if req.DB != nil {
			Logger().Warn("engine returned a handle together with an error, ignoring it",
				zap.String("db", d.name))
		}
		d.lastErr = errors.InitFailed(msg)
		Logger().Debug("database init failed", zap.String("db", d.name), zap.String("error", msg))
		return d.lastErr
	}
	if req.DB == nil {
		d.lastErr = errors.InitFailed("engine returned no handle")
		return d.lastErr
	}

	d.ptr = req.DB
	d.config = config
	d.state = StateOpen
	d.lastErr = nil
	Logger().Debug("database opened", zap.String("db", d.name), zap.Int("config_bytes", len(config)))
	return nil
}

// Close releases the native handle exactly once. Closing a closed DB is a
// no-op; closing an uninitialized DB marks it closed without a native call.
func (d *DB) Close() error {
	d.mu.Lock()
	var hook func(*DB)
	switch d.state {
	case StateClosed:
		d.mu.Unlock()
		return nil
	case StateOpen:
		d.binding.DatabaseFree(d.ptr)
		d.ptr = nil
		hook = d.onClose
		Logger().Debug("database closed", zap.String("db", d.name))
	}
	d.state = StateClosed
	d.mu.Unlock()

	if hook != nil {
		hook(d)
	}
	return nil
}

// Borrow lends the native pointer to fn for the duration of the call. The
// pointer must not be retained after fn returns, and fn must not call
// Init or Close on d.
func (d *DB) Borrow(fn func(unsafe.Pointer) error) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.state != StateOpen {
		return errors.UseAfterClose("borrow")
	}
	return fn(d.ptr)
}

func (d *DB) State() State {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state
}

// Config returns the config string the handle was opened with.
func (d *DB) Config() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.config
}

// Err returns the error decoded by the last failed Init, or nil.
func (d *DB) Err() error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.lastErr
}

func (d *DB) Name() string {
	return d.name
}
