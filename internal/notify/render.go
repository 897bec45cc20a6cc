package notify

import (
	"bytes"
	"text/template"
	"time"
)

var bodyTemplate = template.Must(template.New("ping").Parse(
	`Someone was just at {{.PlaceName}}{{if .Mood}} (mood: {{.Mood}}){{end}}.

Their check-in runs until {{.Until}}.

{{.PlaceURL}}
`))

// Render returns the subject and plain-text body for msg.
func Render(msg PingEmail) (subject, body string, err error) {
	var buf bytes.Buffer
	err = bodyTemplate.Execute(&buf, struct {
		PingEmail
		Until string
	}{msg, msg.ExpiresAt.UTC().Format(time.RFC1123)})
	if err != nil {
		return "", "", err
	}
	return "Someone was just at " + msg.PlaceName, buf.String(), nil
}
