package dispatcher

import (
	"fmt"
	"html/template"
	"strings"

	"calremind/internal/model"
)

const emailTimeLayout = "Mon, 02 Jan 2006 15:04 MST"

// htmlBody is self-contained with inline styling only, so rendering never
// depends on external assets.
var htmlBody = template.Must(template.New("reminder").Parse(`<!DOCTYPE html>
<html>
<body style="margin:0;padding:0;background-color:#f4f5f7;font-family:Arial,Helvetica,sans-serif;">
  <div style="max-width:560px;margin:24px auto;background-color:#ffffff;border-radius:8px;padding:24px;">
    <h2 style="margin:0 0 4px;color:#1a1a2e;">{{.Title}}</h2>
    <p style="margin:0 0 16px;color:#e94560;font-weight:bold;">Starts {{.TimeRemaining}}</p>
    <table style="width:100%;border-collapse:collapse;color:#333333;font-size:14px;">
      <tr><td style="padding:4px 0;width:90px;color:#888888;">When</td><td style="padding:4px 0;">{{.Start}} &ndash; {{.End}}</td></tr>
      {{if .Location}}<tr><td style="padding:4px 0;color:#888888;">Where</td><td style="padding:4px 0;">{{.Location}}</td></tr>{{end}}
      {{if .Description}}<tr><td style="padding:4px 0;color:#888888;vertical-align:top;">Details</td><td style="padding:4px 0;">{{.Description}}</td></tr>{{end}}
    </table>
  </div>
</body>
</html>`))

type emailFields struct {
	Title         string
	TimeRemaining string
	Start         string
	End           string
	Location      string
	Description   string
}

// BuildEmailBody renders the plaintext and HTML variants of a reminder email
// from the same event fields.
func BuildEmailBody(ev model.Event, timeRemaining string) (text, html string) {
	fields := emailFields{
		Title:         ev.Title,
		TimeRemaining: timeRemaining,
		Start:         ev.StartTime.UTC().Format(emailTimeLayout),
		End:           ev.EndTime.UTC().Format(emailTimeLayout),
		Location:      ev.Location,
		Description:   ev.Description,
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", fields.Title)
	fmt.Fprintf(&b, "Starts %s\n\n", fields.TimeRemaining)
	fmt.Fprintf(&b, "When: %s - %s\n", fields.Start, fields.End)
	if fields.Location != "" {
		fmt.Fprintf(&b, "Where: %s\n", fields.Location)
	}
	if fields.Description != "" {
		fmt.Fprintf(&b, "\n%s\n", fields.Description)
	}
	text = b.String()

	var h strings.Builder
	if err := htmlBody.Execute(&h, fields); err != nil {
		// Template and fields are static; fall back to plaintext on the
		// off chance execution fails.
		return text, "<pre>" + template.HTMLEscapeString(text) + "</pre>"
	}

	return text, h.String()
}
