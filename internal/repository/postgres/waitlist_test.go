package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasWaitlistRoom(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		count    int
		want     bool
	}{
		{"empty list with capacity", 10, 0, true},
		{"one slot left", 10, 9, true},
		{"exactly full", 10, 10, false},
		{"over full", 10, 11, false},
		{"zero capacity is unbounded", 0, 100000, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, hasWaitlistRoom(tt.capacity, tt.count))
		})
	}
}
