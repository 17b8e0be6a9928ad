package stores

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/bookrack/internal/storage"
)

// ErrSchemaDrift marks a durable entry written under a different schema version.
var ErrSchemaDrift = errors.New("schema version mismatch")

// Schema describes how a store's state S maps to its persisted subset P.
type Schema[S, P any] struct {
	Namespace string
	Version   int

	// Initial returns the state used when nothing usable is stored.
	Initial func() S

	// Persist extracts the fields written to durable storage. Transient fields are left out.
	Persist func(S) P

	// Restore validates a decoded subset and builds the full state from it.
	Restore func(P) (S, error)
}

// envelope is the durable representation: {"state": <subset>, "version": N}.
type envelope[P any] struct {
	State   P   `json:"state"`
	Version int `json:"version"`
}

func (s Schema[S, P]) encode(state S) (string, error) {
	data, err := json.Marshal(envelope[P]{State: s.Persist(state), Version: s.Version})
	if err != nil {
		return "", fmt.Errorf("failed to encode %s: %w", s.Namespace, err)
	}
	return string(data), nil
}

func (s Schema[S, P]) decode(raw string) (S, error) {
	var zero S

	var env struct {
		State   json.RawMessage `json:"state"`
		Version int             `json:"version"`
	}
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return zero, fmt.Errorf("malformed envelope: %w", err)
	}
	if len(env.State) == 0 || string(env.State) == "null" {
		return zero, errors.New("envelope has no state")
	}
	if env.Version != s.Version {
		return zero, fmt.Errorf("%w: stored %d, expected %d", ErrSchemaDrift, env.Version, s.Version)
	}

	var subset P
	if err := json.Unmarshal(env.State, &subset); err != nil {
		return zero, fmt.Errorf("malformed state: %w", err)
	}
	return s.Restore(subset)
}

// Persisted is a named, versioned, durable value of type S.
type Persisted[S, P any] struct {
	mu        sync.RWMutex
	storage   storage.Storage
	schema    Schema[S, P]
	logger    *log.Logger
	state     S
	err       error
	observers map[int]func(S)
	nextID    int
}

// NewPersisted hydrates a [Persisted] from st. It never fails: unusable entries yield schema.Initial().
func NewPersisted[S, P any](st storage.Storage, schema Schema[S, P], logger *log.Logger) *Persisted[S, P] {
	if logger == nil {
		logger = log.Default()
	}
	p := &Persisted[S, P]{
		storage:   st,
		schema:    schema,
		logger:    logger.With("namespace", schema.Namespace),
		observers: make(map[int]func(S)),
	}
	p.state = p.load()
	return p
}

func (p *Persisted[S, P]) load() S {
	raw, ok, err := p.storage.Get(p.schema.Namespace)
	if err != nil {
		return p.discard("storage read failed", err)
	}
	if !ok {
		return p.schema.Initial()
	}

	state, err := p.schema.decode(raw)
	if err != nil {
		return p.discard("stored state rejected", err)
	}
	return state
}

// discard is the single place where stored data is dropped in favour of the initial state.
//
// Schema drift loses the previous data. It is logged but the entry is left in place until the next write.
func (p *Persisted[S, P]) discard(reason string, err error) S {
	p.logger.Warn("resetting to initial state", "reason", reason, "error", err)
	return p.schema.Initial()
}

// State returns the current in-memory state.
func (p *Persisted[S, P]) State() S {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// Update replaces the state with merge(current), writes the persisted subset, and notifies subscribers.
//
// merge must not mutate its argument. The new state is returned even when the durable write fails.
func (p *Persisted[S, P]) Update(merge func(S) S) S {
	p.mu.Lock()
	next := merge(p.state)
	p.state = next
	p.err = p.write(next)
	observers := p.snapshotObservers()
	p.mu.Unlock()

	for _, fn := range observers {
		fn(next)
	}
	return next
}

// Reset deletes the durable entry and returns to the initial state.
func (p *Persisted[S, P]) Reset() S {
	p.mu.Lock()
	next := p.schema.Initial()
	p.state = next
	p.err = p.storage.Delete(p.schema.Namespace)
	if p.err != nil {
		p.logger.Error("failed to clear state", "error", p.err)
	}
	observers := p.snapshotObservers()
	p.mu.Unlock()

	for _, fn := range observers {
		fn(next)
	}
	return next
}

// snapshotObservers copies the observer list. Callers hold p.mu.
func (p *Persisted[S, P]) snapshotObservers() []func(S) {
	observers := make([]func(S), 0, len(p.observers))
	for _, fn := range p.observers {
		observers = append(observers, fn)
	}
	return observers
}

func (p *Persisted[S, P]) write(state S) error {
	raw, err := p.schema.encode(state)
	if err == nil {
		err = p.storage.Set(p.schema.Namespace, raw)
	}
	if err != nil {
		p.logger.Error("failed to persist state", "error", err)
		return err
	}
	return nil
}

// Err returns the error of the most recent durable write, or nil if it succeeded.
func (p *Persisted[S, P]) Err() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.err
}

// Subscribe registers fn to run after every update. The returned function unregisters it.
func (p *Persisted[S, P]) Subscribe(fn func(S)) (cancel func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextID
	p.nextID++
	p.observers[id] = fn
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.observers, id)
	}
}
