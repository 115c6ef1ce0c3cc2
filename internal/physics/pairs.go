package physics

import (
	"fmt"

	"github.com/san-kum/crowdsim/internal/dynamo"
)

// PairForce returns the force on i from j. It must be antisymmetric:
// PairForce(j, i) == -PairForce(i, j).
type PairForce func(i, j *dynamo.Agent) (dynamo.Vec2, error)

// PairAccumulator sums a PairForce over interacting agent pairs, evaluating
// each unordered pair at most once and applying +F to i and -F to j. A
// neighbour-search structure can implement this without touching the force
// law.
type PairAccumulator interface {
	Accumulate(agents []*dynamo.Agent, force PairForce) ([]dynamo.Vec2, error)
}

// AllPairs visits every unordered pair. O(n^2).
type AllPairs struct{}

func (AllPairs) Accumulate(agents []*dynamo.Agent, force PairForce) ([]dynamo.Vec2, error) {
	out := make([]dynamo.Vec2, len(agents))
	for i := 0; i < len(agents); i++ {
		for j := 0; j < i; j++ {
			f, err := force(agents[i], agents[j])
			if err != nil {
				return nil, fmt.Errorf("agents %d and %d: %w", j, i, err)
			}
			out[i] = out[i].Add(f)
			out[j] = out[j].Sub(f)
		}
	}
	return out, nil
}
