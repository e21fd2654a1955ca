package dice

import (
	"sync"

	"go.uber.org/zap"
)

// Pools rolls single dice on behalf of named pools and keeps a per-pool
// history. Every roll is logged at debug level.
type Pools struct {
	src    Source
	logger *zap.Logger

	mu      sync.Mutex
	history map[Purpose][]int
}

// NewPools creates a Pools that draws from src and logs to logger.
//
// Precondition: src and logger must be non-nil.
func NewPools(src Source, logger *zap.Logger) *Pools {
	return &Pools{
		src:     src,
		logger:  logger,
		history: make(map[Purpose][]int),
	}
}

// Roll rolls one die for purpose.
//
// Postcondition: Returns a value in [1, Sides]; the value is appended to the
// purpose's history.
func (p *Pools) Roll(purpose Purpose) int {
	v := p.src.Intn(Sides) + 1

	p.mu.Lock()
	p.history[purpose] = append(p.history[purpose], v)
	p.mu.Unlock()

	p.logger.Debug("die roll",
		zap.String("purpose", string(purpose)),
		zap.Int("value", v),
	)
	return v
}

// History returns a copy of the values rolled for purpose, oldest first.
func (p *Pools) History(purpose Purpose) []RollResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	vals := p.history[purpose]
	out := make([]RollResult, len(vals))
	for i, v := range vals {
		out[i] = RollResult{Purpose: purpose, Value: v}
	}
	return out
}
