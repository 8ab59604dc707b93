package dispatcher

import (
	"fmt"
	"math"
	"time"
)

// FormatTimeRemaining renders the delta until an event start as a human
// phrase: "now" once the start has passed, otherwise the largest applicable
// unit (days, hours plus minutes, or minutes alone).
func FormatTimeRemaining(until time.Duration) string {
	if until <= 0 {
		return "now"
	}

	if days := int(until.Hours()) / 24; days >= 1 {
		return fmt.Sprintf("in %d %s", days, plural(days, "day"))
	}

	hours := int(until.Hours())
	minutes := int(until.Minutes()) % 60

	if hours >= 1 {
		if minutes == 0 {
			return fmt.Sprintf("in %d %s", hours, plural(hours, "hour"))
		}

		return fmt.Sprintf(
			"in %d %s %d %s",
			hours, plural(hours, "hour"),
			minutes, plural(minutes, "minute"),
		)
	}

	// Sub-minute deltas round up so a reminder never reads "in 0 minutes".
	minutes = int(math.Ceil(until.Minutes()))

	return fmt.Sprintf("in %d %s", minutes, plural(minutes, "minute"))
}

func plural(n int, unit string) string {
	if n == 1 {
		return unit
	}

	return unit + "s"
}
