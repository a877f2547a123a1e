package notify

import (
	"fmt"
	"html"
	"strings"

	"github.com/artcircle/waitlist/internal/model"
)

// Message is a rendered notification.
type Message struct {
	Subject string
	Text    string
	HTML    string
}

type summaryLine struct {
	label string
	value string
}

// FormatSummary renders a human readable summary of a submission.
func FormatSummary(s *model.Submission) Message {
	lines := []summaryLine{
		{"Name", s.Name},
		{"Email", s.Email},
		{"Phone", optional(s.PhoneNumber)},
		{"Instagram", s.InstagramHandle},
		{"Qualifications", optional(s.Qualifications)},
		{"Years of experience", fmt.Sprintf("%d", s.YearsOfExperience)},
		{"Minimum price", s.MinimumPrice},
		{"Art shows", optional(s.ArtShowsParticipation)},
		{"Accepts commissions", yesNo(s.AcceptsCommissionedWork)},
		{"Hosts workshops", yesNo(s.HostsWorkshops)},
		{"Marketing consent", yesNo(s.MarketingConsent)},
		{"Data processing consent", yesNo(s.DataProcessingConsent)},
	}

	var text, body strings.Builder
	text.WriteString("New artist waitlist application\n\n")
	body.WriteString("<h2>New artist waitlist application</h2>\n<table>\n")
	for _, l := range lines {
		fmt.Fprintf(&text, "%s: %s\n", l.label, l.value)
		fmt.Fprintf(&body, "<tr><th align=\"left\">%s</th><td>%s</td></tr>\n",
			html.EscapeString(l.label), html.EscapeString(l.value))
	}
	body.WriteString("</table>\n")

	return Message{
		Subject: "New artist application: " + s.Name,
		Text:    text.String(),
		HTML:    body.String(),
	}
}

func optional(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
