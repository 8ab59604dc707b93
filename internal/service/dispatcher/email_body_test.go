package dispatcher

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"calremind/internal/model"
)

func TestBuildEmailBody(t *testing.T) {
	ev := model.Event{
		ID:          uuid.New(),
		Title:       "Quarterly planning",
		Description: "Bring the roadmap draft",
		Location:    "Room 4B",
		StartTime:   time.Date(2025, 1, 10, 15, 0, 0, 0, time.UTC),
		EndTime:     time.Date(2025, 1, 10, 16, 0, 0, 0, time.UTC),
	}

	text, html := BuildEmailBody(ev, "in 30 minutes")

	assert.Contains(t, text, "Quarterly planning")
	assert.Contains(t, text, "Starts in 30 minutes")
	assert.Contains(t, text, "Room 4B")
	assert.Contains(t, text, "Bring the roadmap draft")
	assert.Contains(t, text, "Fri, 10 Jan 2025 15:00 UTC")

	assert.Contains(t, html, "Quarterly planning")
	assert.Contains(t, html, "Room 4B")
	assert.NotContains(t, html, "src=", "html body must not reference external assets")
	assert.NotContains(t, html, "href=", "html body must not reference external assets")
}

func TestBuildEmailBody_OmitsEmptyFields(t *testing.T) {
	ev := model.Event{
		Title:     "Standup",
		StartTime: time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2025, 1, 10, 9, 15, 0, 0, time.UTC),
	}

	text, html := BuildEmailBody(ev, "in 5 minutes")

	assert.NotContains(t, text, "Where:")
	assert.NotContains(t, html, "Where")
}

func TestBuildEmailBody_EscapesHTML(t *testing.T) {
	ev := model.Event{
		Title:     "<script>alert(1)</script>",
		StartTime: time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2025, 1, 10, 9, 15, 0, 0, time.UTC),
	}

	_, html := BuildEmailBody(ev, "in 5 minutes")

	assert.NotContains(t, html, "<script>")
}
