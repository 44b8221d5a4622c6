package surface

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotifications(t *testing.T) {
	assert.Equal(t, "0 notifications", Notifications(0))
	assert.Equal(t, "1 notification", Notifications(1))
	assert.Equal(t, "3 notifications", Notifications(3))
}

func TestClearTexts(t *testing.T) {
	assert.Equal(t, "This will remove all 1 notification. This action cannot be undone.", ClearWarning(1))
	assert.Equal(t, "All notifications have been successfully removed.", ClearDone(0))
	assert.Equal(t, "Cleared. 2 notifications arrived since.", ClearDone(2))
	assert.Equal(t, "Notifications: 4", CountLine(4))
}
