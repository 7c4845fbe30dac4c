package sellers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseStatus(t *testing.T) {
	for _, valid := range []string{"pending", "approved", "rejected", "blocked"} {
		got, err := ParseStatus(valid)
		assert.NoError(t, err)
		assert.Equal(t, Status(valid), got)
	}

	for _, invalid := range []string{"", "active", "APPROVED", "deleted"} {
		_, err := ParseStatus(invalid)
		assert.Error(t, err, "raw=%q", invalid)
	}
}

func TestCanPurchase(t *testing.T) {
	s := &Seller{Status: StatusApproved, IsActive: true}
	assert.True(t, s.CanPurchase())

	s.IsActive = false
	assert.False(t, s.CanPurchase())

	s.IsActive = true
	for _, status := range []Status{StatusPending, StatusRejected, StatusBlocked} {
		s.Status = status
		assert.False(t, s.CanPurchase(), "status=%s", status)
	}
}
