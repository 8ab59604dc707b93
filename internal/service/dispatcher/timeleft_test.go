package dispatcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatTimeRemaining(t *testing.T) {
	tests := []struct {
		name  string
		until time.Duration
		want  string
	}{
		{"already started", -5 * time.Minute, "now"},
		{"exactly now", 0, "now"},
		{"under a minute rounds up", 20 * time.Second, "in 1 minute"},
		{"single minute", time.Minute, "in 1 minute"},
		{"minutes only", 45 * time.Minute, "in 45 minutes"},
		{"single hour exact", time.Hour, "in 1 hour"},
		{"hours and minutes", 2*time.Hour + 30*time.Minute, "in 2 hours 30 minutes"},
		{"hour and one minute", time.Hour + time.Minute, "in 1 hour 1 minute"},
		{"single day", 24 * time.Hour, "in 1 day"},
		{"days dominate hours", 49 * time.Hour, "in 2 days"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatTimeRemaining(tt.until))
		})
	}
}
