package combat

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// recordTimeout bounds how long a finished session waits on its Recorder.
const recordTimeout = 5 * time.Second

// Recorder persists the summary of a finished encounter.
type Recorder interface {
	Record(ctx context.Context, s Summary) error
}

// Engine manages all active combat sessions, keyed by clearing ID.
// All methods are safe for concurrent use; the sessions themselves are not.
type Engine struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	roller   DieRoller
	logger   *zap.Logger
	rules    Rules
	recorder Recorder
}

// NewEngine creates an empty Engine.
//
// Precondition: roller and logger must be non-nil; recorder may be nil.
// Postcondition: Returns a non-nil Engine ready for use.
func NewEngine(roller DieRoller, logger *zap.Logger, rules Rules, recorder Recorder) *Engine {
	return &Engine{
		sessions: make(map[string]*Session),
		roller:   roller,
		logger:   logger,
		rules:    rules,
		recorder: recorder,
	}
}

// Start begins combat in loc and runs it to its first suspension point.
//
// Precondition: loc must be non-nil.
// Postcondition: Returns the new Session, or an error if a live session
// already exists in the clearing. A finished session in the clearing is
// replaced.
func (e *Engine) Start(loc Location, sink Sink) (*Session, error) {
	id := loc.LocationID()
	s := NewSession(loc, e.roller, sink, e.logger, e.rules)
	s.onDone = e.record

	e.mu.Lock()
	if prev, ok := e.sessions[id]; ok && !prev.Done() {
		e.mu.Unlock()
		return nil, fmt.Errorf("combat already active in clearing %q", id)
	}
	e.sessions[id] = s
	e.mu.Unlock()

	s.Start()
	return s, nil
}

// Get returns the session in clearingID.
//
// Postcondition: Returns (session, true) if found, or (nil, false) otherwise.
func (e *Engine) Get(clearingID string) (*Session, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s, ok := e.sessions[clearingID]
	return s, ok
}

// Stop removes the session in clearingID. A live session is ended first,
// which fails with ErrEndCombatNotAllowed while enemies remain.
func (e *Engine) Stop(clearingID string) error {
	e.mu.Lock()
	s, ok := e.sessions[clearingID]
	e.mu.Unlock()
	if !ok {
		return nil
	}
	if !s.Done() {
		if err := s.EndCombat(); err != nil {
			return err
		}
	}
	e.mu.Lock()
	if e.sessions[clearingID] == s {
		delete(e.sessions, clearingID)
	}
	e.mu.Unlock()
	return nil
}

// Reap removes every finished session and returns how many were removed.
func (e *Engine) Reap() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for id, s := range e.sessions {
		if s.Done() {
			delete(e.sessions, id)
			n++
		}
	}
	return n
}

func (e *Engine) record(sum Summary) {
	if e.recorder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	if err := e.recorder.Record(ctx, sum); err != nil {
		e.logger.Error("recording encounter failed", zap.String("encounter", sum.ID), zap.Error(err))
	}
}
