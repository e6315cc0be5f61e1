package notify

import (
	"bytes"
	"strings"
	"text/template"
	"time"

	"github.com/md-rashed-zaman/autobook/services/booking-service/internal/booking"
)

// Message is the rendered customer-facing text for one lifecycle event.
type Message struct {
	Subject string
	Email   string
	SMS     string
}

var templates = template.Must(template.New("notify").Funcs(template.FuncMap{
	"date":  func(t time.Time) string { return t.Format("2006-01-02") },
	"clock": func(t time.Time) string { return t.Format("15:04") },
	"when":  func(t time.Time) string { return t.Format("Mon 2 Jan 2006 15:04 MST") },
}).Parse(`
{{define "created.subject"}}Appointment Confirmation - AutoBook{{end}}
{{define "created.email"}}Your appointment has been successfully booked.

Service:     {{with .Service}}{{.Name}}{{else}}N/A{{end}}
Date & Time: {{when .StartTime}}
{{- with .Service}}
Duration:    {{.DurationMinutes}} minutes
Price:       ${{.Price}}
{{- end}}
{{- with .Vehicle}}
Vehicle:     {{.Year}} {{.Make}} {{.Model}}
{{- end}}

Please arrive 10 minutes before your appointment time.
If you need to cancel or reschedule, please contact us at least {{.WindowHours}} hours in advance.

Thank you for choosing AutoBook!
{{end}}
{{define "created.sms"}}AutoBook: Appointment confirmed! {{with .Service}}{{.Name}}{{else}}Service{{end}} on {{date .StartTime}} at {{clock .StartTime}}.{{end}}
{{define "cancelled.subject"}}Appointment Cancelled - AutoBook{{end}}
{{define "cancelled.email"}}Your appointment scheduled for {{when .StartTime}} has been cancelled.
{{- with .CancellationReason}}
Reason: {{.}}
{{- end}}

If you'd like to reschedule, please visit our website or contact us.

Thank you for your understanding.
{{end}}
{{define "cancelled.sms"}}AutoBook: Your appointment on {{date .StartTime}} has been cancelled. Visit our website to reschedule.{{end}}
`))

type messageData struct {
	booking.View
	WindowHours int
}

// Renderer renders messages with times shown in a fixed location.
type Renderer struct {
	Location           *time.Location
	CancellationWindow time.Duration
}

func (r Renderer) Render(evt booking.Event, v booking.View) (Message, error) {
	loc := r.Location
	if loc == nil {
		loc = time.UTC
	}
	v.StartTime = v.StartTime.In(loc)
	v.EndTime = v.EndTime.In(loc)
	data := messageData{View: v, WindowHours: int(r.CancellationWindow / time.Hour)}

	var msg Message
	for _, part := range []struct {
		name string
		dst  *string
	}{
		{"subject", &msg.Subject},
		{"email", &msg.Email},
		{"sms", &msg.SMS},
	} {
		var buf bytes.Buffer
		if err := templates.ExecuteTemplate(&buf, string(evt)+"."+part.name, data); err != nil {
			return Message{}, err
		}
		*part.dst = strings.TrimSpace(buf.String())
	}
	return msg, nil
}
