package instance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoff_blocksAfterFailure(t *testing.T) {
	b := NewBackoff(10*time.Millisecond, time.Second)
	assert.False(t, b.Blocked())

	b.Failure()
	assert.True(t, b.Blocked())

	time.Sleep(15 * time.Millisecond)
	assert.False(t, b.Blocked())
}

func TestBackoff_capsAtMax(t *testing.T) {
	b := NewBackoff(time.Second, 2*time.Second)
	for i := 0; i < 10; i++ {
		b.Failure()
	}
	assert.LessOrEqual(t, time.Until(b.nextTry), 2*time.Second+time.Millisecond)
}

func TestBackoff_successResets(t *testing.T) {
	b := NewBackoff(10*time.Millisecond, time.Second)
	b.Failure()
	assert.True(t, b.Blocked())

	b.Success()
	assert.False(t, b.Blocked())
}
