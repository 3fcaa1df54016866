package repositories

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLikeDelta(t *testing.T) {
	tests := []struct {
		name   string
		old    bool
		target bool
		want   int64
	}{
		{"first like", false, true, 1},
		{"unlike", true, false, -1},
		{"like resubmitted", true, true, 0},
		{"unlike without prior like", false, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, likeDelta(tt.old, tt.target))
		})
	}
}
