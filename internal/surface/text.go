// Package surface holds the wording shared by every presentation surface.
package surface

import "fmt"

// Notifications renders "1 notification" or "3 notifications".
func Notifications(n int) string {
	if n == 1 {
		return "1 notification"
	}
	return fmt.Sprintf("%d notifications", n)
}

// CountLine is the one-line status used by the CLI and chat replies.
func CountLine(n int) string { return fmt.Sprintf("Notifications: %d", n) }

// ClearWarning is shown before a clear-all.
func ClearWarning(n int) string {
	return fmt.Sprintf("This will remove all %s. This action cannot be undone.", Notifications(n))
}

// ClearDone is shown after a clear-all has been rechecked.
func ClearDone(remaining int) string {
	if remaining == 0 {
		return "All notifications have been successfully removed."
	}
	return fmt.Sprintf("Cleared. %s arrived since.", Notifications(remaining))
}

// Paused describes a stopped monitor.
const Paused = "Monitoring paused"

// Cleared is flashed on status indicators right after a clear-all.
const Cleared = "Cleared!"
