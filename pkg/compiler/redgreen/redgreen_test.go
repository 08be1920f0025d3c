package redgreen

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/wundergraph/graphql-compiler/pkg/intern"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func TestTracker(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	tracker := New(WithClock(clock.Now))
	a, b := intern.Intern("A"), intern.Intern("B")

	t.Run("green definitions report nothing", func(t *testing.T) {
		_, ok := tracker.Pass(a)
		assert.False(t, ok)
	})

	t.Run("red keeps the first failure", func(t *testing.T) {
		tracker.Fail(a)
		clock.Advance(time.Minute)
		tracker.Fail(a)
		tracker.Fail(b)
		clock.Advance(time.Minute)

		assert.Equal(t, []Red{{Name: a, Age: 2 * time.Minute}, {Name: b, Age: time.Minute}}, tracker.Failing())
	})

	t.Run("turning green reports the duration once", func(t *testing.T) {
		failing, ok := tracker.Pass(a)
		assert.True(t, ok)
		assert.Equal(t, 2*time.Minute, failing)
		_, ok = tracker.Pass(a)
		assert.False(t, ok)
	})

	t.Run("forget", func(t *testing.T) {
		tracker.Forget(b)
		assert.Empty(t, tracker.Failing())
	})

	t.Run("restore", func(t *testing.T) {
		since := clock.now.Add(-time.Hour)
		tracker.Restore(a, since)
		got, ok := tracker.Since(a)
		assert.True(t, ok)
		assert.Equal(t, since, got)
		failing, _ := tracker.Pass(a)
		assert.Equal(t, time.Hour, failing)
	})
}
