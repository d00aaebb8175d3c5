package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageURLs_ValueScan(t *testing.T) {
	t.Parallel()

	v, err := ImageURLs{"https://cdn/a.jpg", "https://cdn/b c.png"}.Value()
	require.NoError(t, err)

	var got ImageURLs
	require.NoError(t, got.Scan(v))
	assert.Equal(t, ImageURLs{"https://cdn/a.jpg", "https://cdn/b c.png"}, got)

	empty, err := ImageURLs(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "{}", empty)

	var fromNull ImageURLs
	require.NoError(t, fromNull.Scan(nil))
	assert.Nil(t, fromNull)
}

func TestReturnStatus_Classes(t *testing.T) {
	t.Parallel()

	for _, s := range []ReturnStatus{ReturnRequested, ReturnApproved, ReturnInTransit, ReturnReceived} {
		assert.True(t, s.Open(), s)
		assert.False(t, s.Completed(), s)
	}
	for _, s := range []ReturnStatus{ReturnRefunded, ReturnReplacementShipped, ReturnReplaced} {
		assert.True(t, s.Completed(), s)
		assert.False(t, s.Open(), s)
	}
	assert.False(t, ReturnRejected.Open() || ReturnRejected.Completed())
	assert.False(t, ReturnStatus("lost").Valid())
}
