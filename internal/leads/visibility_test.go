package leads

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func offerableLead(now time.Time) *Lead {
	return &Lead{
		AvailableSlots: 3,
		Status:         StatusNew,
		CreatedAt:      now.Add(-time.Hour),
	}
}

func TestOfferable(t *testing.T) {
	now := time.Now()

	t.Run("fresh lead with slots", func(t *testing.T) {
		assert.True(t, Offerable(offerableLead(now), now))
	})

	t.Run("exactly at the window edge", func(t *testing.T) {
		l := offerableLead(now)
		l.CreatedAt = now.Add(-VisibilityWindow)
		assert.True(t, Offerable(l, now))
	})

	t.Run("older than the window", func(t *testing.T) {
		l := offerableLead(now)
		l.CreatedAt = now.Add(-VisibilityWindow - time.Second)
		assert.False(t, Offerable(l, now))
	})

	t.Run("no slots left", func(t *testing.T) {
		l := offerableLead(now)
		l.AvailableSlots = 0
		assert.False(t, Offerable(l, now))
	})

	t.Run("in-progress still offerable", func(t *testing.T) {
		l := offerableLead(now)
		l.Status = StatusInProgress
		assert.True(t, Offerable(l, now))
	})

	t.Run("terminal statuses are not", func(t *testing.T) {
		for _, s := range []Status{StatusClosed, StatusCancelled} {
			l := offerableLead(now)
			l.Status = s
			assert.False(t, Offerable(l, now), "status=%s", s)
		}
	})
}

func TestVisibility_CollectsAllReasons(t *testing.T) {
	now := time.Now()
	l := &Lead{
		AvailableSlots: 0,
		Status:         StatusClosed,
		CreatedAt:      now.Add(-72 * time.Hour),
	}

	v := Visibility(l, now)
	assert.False(t, v.Offerable)
	assert.Len(t, v.Reasons, 3)
}

func TestVisibility_OfferableHasNoReasons(t *testing.T) {
	now := time.Now()
	v := Visibility(offerableLead(now), now)
	assert.True(t, v.Offerable)
	assert.Empty(t, v.Reasons)
}
