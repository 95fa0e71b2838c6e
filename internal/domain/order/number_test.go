package order

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNumber(t *testing.T) {
	now := time.UnixMilli(1_700_000_123_456)

	n := NewNumber(now)
	require.Len(t, n, len("ORD-")+9)
	assert.Equal(t, "ORD-123456", n[:10], "six time digits follow the prefix")
	assert.Regexp(t, `^ORD-\d{9}$`, n)
}

func TestStatus(t *testing.T) {
	for _, s := range Statuses {
		got, err := ParseStatus(string(s))
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}

	_, err := ParseStatus("pending")
	assert.Error(t, err, "statuses are case-sensitive")

	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusReady.Terminal())
	assert.True(t, StatusServed.Terminal())
	assert.True(t, StatusCancelled.Terminal())
}

func TestTotal(t *testing.T) {
	lines := []Line{
		{MenuItemID: "a", Quantity: 3, Price: dec("0.333")},
		{MenuItemID: "b", Quantity: 1, Price: dec("1.00")},
	}
	assert.Equal(t, "2.00", Total(lines).StringFixed(2))
	assert.True(t, Total(nil).IsZero())
}
