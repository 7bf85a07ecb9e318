// Package state holds the live board snapshot shared between a
// long-running consumer (the watcher, the shell) and the loads that
// refresh it.
//
// Reloads are two-phase: a cheap placeholder snapshot publishes
// synchronously, the hydrated board follows from a goroutine. A
// generation counter ties each hydration to the reload that started
// it; when reloads overlap, a result whose generation is no longer
// current is discarded, so a slow old load can never clobber a newer
// one.
package state

import (
	"sync"

	"kb/internal/board"
)

// Phase says how far the current generation's reload has come.
type Phase int

const (
	// PhaseLoading means the snapshot holds the placeholder while the
	// hydration runs.
	PhaseLoading Phase = iota

	// PhaseReady means the snapshot holds a fully hydrated board.
	PhaseReady

	// PhaseFailed means the hydration failed; Err says why and Board
	// still holds the placeholder.
	PhaseFailed
)

// Snapshot is one published board state. Consumers treat it as
// read-only.
type Snapshot struct {
	Board *board.Board
	Err   error
	Gen   uint64
	Phase Phase
}

// Loader produces board hydrations. *board.Folder satisfies it.
type Loader interface {
	Title() string
	Load() (*board.Board, error)
}

var _ Loader = (*board.Folder)(nil)

// Store is the owned container for the current snapshot. All mutation
// runs through Reload; readers get copies via Current or Subscribe.
type Store struct {
	loader Loader

	mu      sync.Mutex
	current Snapshot
	gen     uint64
	subs    map[int]chan Snapshot
	nextSub int
}

// NewStore creates a store with no snapshot yet. Call Reload to
// populate it.
func NewStore(loader Loader) *Store {
	return &Store{
		loader: loader,
		subs:   make(map[int]chan Snapshot),
	}
}

// Current returns the latest published snapshot. Before the first
// Reload it is the zero Snapshot with a nil board.
func (s *Store) Current() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.current
}

// Reload starts a new generation. The placeholder for it is published
// before Reload returns; the hydrated (or failed) snapshot follows
// asynchronously unless an even newer Reload starts first. Returns the
// new generation.
func (s *Store) Reload() uint64 {
	s.mu.Lock()
	s.gen++
	gen := s.gen

	placeholder := Snapshot{
		Board: board.NewPlaceholder(s.loader.Title()),
		Gen:   gen,
		Phase: PhaseLoading,
	}

	s.current = placeholder
	s.notifyLocked(placeholder)
	s.mu.Unlock()

	go s.hydrate(gen, placeholder.Board)

	return gen
}

// hydrate runs the load for one generation and publishes the result if
// that generation is still current.
func (s *Store) hydrate(gen uint64, placeholder *board.Board) {
	b, err := s.loader.Load()

	snap := Snapshot{Board: b, Gen: gen, Phase: PhaseReady}
	if err != nil {
		snap = Snapshot{Board: placeholder, Err: err, Gen: gen, Phase: PhaseFailed}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gen != gen {
		// A newer reload owns the state now.
		return
	}

	s.current = snap
	s.notifyLocked(snap)
}

// Subscribe registers for snapshot updates. The channel holds only the
// latest unread snapshot; a slow consumer skips intermediates instead
// of backing up the publisher. The returned func unsubscribes and
// closes the channel.
func (s *Store) Subscribe() (<-chan Snapshot, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++

	ch := make(chan Snapshot, 1)
	s.subs[id] = ch

	var once sync.Once

	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()

			delete(s.subs, id)
			close(ch)
		})
	}

	return ch, cancel
}

// notifyLocked fans a snapshot out to all subscribers, replacing any
// unread one. Sends happen under s.mu and never block: the channel has
// one slot and is drained first.
func (s *Store) notifyLocked(snap Snapshot) {
	for _, ch := range s.subs {
		select {
		case <-ch:
		default:
		}

		ch <- snap
	}
}
