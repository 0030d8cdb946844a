package sampling

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypicalKeepsAtLeastOne(t *testing.T) {
	c := []candidate{{id: 0, p: 0.7}, {id: 1, p: 0.2}, {id: 2, p: 0.1}}
	out := typical(c, 0.01)
	assert.Len(t, out, 1)
	assert.InDelta(t, 1.0, out[0].p, 1e-9)
}

func TestTypicalNoopAtOne(t *testing.T) {
	c := []candidate{{id: 0, p: 0.5}, {id: 1, p: 0.5}}
	assert.Len(t, typical(c, 1), 2)
}

func TestTopPCutsAtMass(t *testing.T) {
	c := []candidate{{id: 0, p: 0.6}, {id: 1, p: 0.3}, {id: 2, p: 0.1}}
	out := topP(c, 0.8)
	assert.Len(t, out, 2)
}
