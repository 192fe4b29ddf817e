package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	subjectDailyReport = "Daily CRM report"
	subjectHotLead     = "Hot lead needs contact"
)

type dailyReportEmailData struct {
	Title          string
	Date           string
	NewLeads       int
	CompletedLeads int
	DeclinedLeads  int
	QueuedLeads    int
	InWorkLeads    int
	Received       string
}

type hotLeadEmailData struct {
	Title      string
	ClientName string
	Phone      string
	LeadCount  int
}

func renderEmailTemplate(name string, data any) (string, error) {
	templates := []string{"templates/base.html", "templates/" + name}
	tmpl, err := template.New("base.html").ParseFS(templateFS, templates...)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}

func formatCurrency(cents int64) string {
	return fmt.Sprintf("%d.%02d UAH", cents/100, cents%100)
}
