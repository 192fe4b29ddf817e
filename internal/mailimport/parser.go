package mailimport

import (
	"fmt"
	"regexp"
	"strings"

	"nashcrm_backend/platform/phone"
)

// leadData is what the parser manages to pull out of a lead
// notification email before it becomes a create request.
type leadData struct {
	FullName string
	Phone    string
	LeadID   string
	FormID   string
	Source   string
	Body     string
}

// Subject keywords that mark an email as a lead notification.
var leadSubjectKeywords = []string{
	"new lead",
	"form submission",
	"contact form",
	"заявка",
	"форма",
	"lead id",
	"form id",
	"заявление",
	"запрос",
	"inquiry",
}

// Structural markers of a form-generated body. A subject miss is
// forgiven when at least three of these appear.
var leadBodyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\*{0,2}form[_ ]?id:`),
	regexp.MustCompile(`(?i)\*{0,2}lead[_ ]?id:`),
	regexp.MustCompile(`(?i)\*{0,2}name:`),
	regexp.MustCompile(`(?i)\*{0,2}phone(?:[_ ]?number)?:`),
	regexp.MustCompile(`(?i)\*{0,2}email:`),
	regexp.MustCompile(`(?i)\*{0,2}source:`),
}

var marketingKeywords = []string{
	"unsubscribe",
	"newsletter",
	"promotional",
	"special offer",
	"limited time",
	"discount code",
	"click here to",
	"view in browser",
}

var suspiciousSenderParts = []string{
	"noreply@",
	"no-reply@",
	"marketing@",
	"promo@",
	"newsletter@",
	"mailer-daemon@",
}

// isLeadEmail decides whether an inbound message looks like a lead
// notification worth parsing. Marketing blasts and robot senders are
// rejected before any content check.
func isLeadEmail(subject, sender, body string) bool {
	loweredSender := strings.ToLower(sender)
	for _, part := range suspiciousSenderParts {
		if strings.Contains(loweredSender, part) {
			return false
		}
	}

	loweredBody := strings.ToLower(body)
	for _, kw := range marketingKeywords {
		if strings.Contains(loweredBody, kw) {
			return false
		}
	}

	loweredSubject := strings.ToLower(subject)
	for _, kw := range leadSubjectKeywords {
		if strings.Contains(loweredSubject, kw) {
			return true
		}
	}

	matches := 0
	for _, p := range leadBodyPatterns {
		if p.MatchString(body) {
			matches++
		}
	}
	return matches >= 3
}

// extractField pulls the value after a labelled line. Values may be
// wrapped in markdown emphasis (**Label:** value, *Label:* value) or
// appear as a bare "Label: value" line.
func extractField(body string, labels ...string) string {
	for _, label := range labels {
		p := regexp.MustCompile(`(?im)^\s*\*{0,2}` + regexp.QuoteMeta(label) + `\s*:\*{0,2}\s*([^*\r\n]+)`)
		if m := p.FindStringSubmatch(body); m != nil {
			if v := strings.TrimSpace(m[1]); v != "" {
				return v
			}
		}
	}
	return ""
}

// extractLead parses the structured fields out of a lead email body.
// Name, phone, lead id and form id are all required; anything missing
// means the email is skipped rather than imported half-filled.
func extractLead(body string) (leadData, bool) {
	d := leadData{
		FullName: extractField(body, "Name", "Full Name", "Client Name"),
		Phone:    extractField(body, "Phone Number", "Phone", "Tel"),
		LeadID:   extractField(body, "Lead Id", "Lead ID", "lead_id"),
		FormID:   extractField(body, "form_id", "Form Id", "Form ID"),
		Source:   extractField(body, "Source", "Campaign"),
		Body:     body,
	}
	if d.FullName == "" || d.Phone == "" || d.LeadID == "" || d.FormID == "" {
		return leadData{}, false
	}
	d.Phone = phone.Normalize(d.Phone)
	return d, true
}

// description assembles the stored lead description from the parsed
// metadata plus the raw email text, so nothing from the original
// message is lost.
func (d leadData) description(subject string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Imported from email.\nSubject: %s\nForm ID: %s\nLead ID: %s\n", subject, d.FormID, d.LeadID)
	if d.Source != "" {
		fmt.Fprintf(&b, "Source: %s\n", d.Source)
	}
	b.WriteString("\n")
	b.WriteString(strings.TrimSpace(d.Body))
	return b.String()
}
