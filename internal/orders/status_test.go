package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StatusPending, StatusPaid))
	assert.False(t, CanTransition(StatusPaid, StatusPending))
	assert.False(t, CanTransition(StatusPaid, StatusPaid))
}

func TestApplyPaidIdempotent(t *testing.T) {
	once := ApplyPaid(StatusPending)
	twice := ApplyPaid(once)
	assert.Equal(t, StatusPaid, once)
	assert.Equal(t, once, twice)
}
