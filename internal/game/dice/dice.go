// Package dice provides the randomness abstraction and the purpose-keyed die
// pools used by the combat engine.
package dice

import "fmt"

// Purpose names an independent die pool. Each roll-driven rule draws from its
// own pool so that histories can be audited per rule.
type Purpose string

const (
	PurposeRandomAssignment Purpose = "random assignment"
	PurposeMissile          Purpose = "missile"
	PurposeReposition       Purpose = "reposition"
	PurposeTactics          Purpose = "change tactics"
	PurposePlacement        Purpose = "placement"
)

// Sides is the number of faces on every die the engine rolls.
const Sides = 6

// RollResult records a single die roll against a pool.
type RollResult struct {
	Purpose Purpose
	Value   int
}

// String returns a human-readable audit string, e.g. "missile: 4".
//
// Precondition: r.Purpose is non-empty.
func (r RollResult) String() string {
	if r.Purpose == "" {
		panic("dice: RollResult.String() precondition violated: Purpose must be non-empty")
	}
	return fmt.Sprintf("%s: %d", r.Purpose, r.Value)
}

// Source is the randomness provider for dice rolls.
//
// Implementations MUST be safe for concurrent use.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
}
