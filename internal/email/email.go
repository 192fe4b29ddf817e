// Package email sends the CRM's outbound mail: the daily activity report
// and hot-lead alerts for managers.
package email

import (
	"context"

	"nashcrm_backend/platform/config"
)

// DailyReportData carries the figures rendered into the daily report mail.
type DailyReportData struct {
	Date           string
	NewLeads       int
	CompletedLeads int
	DeclinedLeads  int
	ReceivedCents  int64
	QueuedLeads    int
	InWorkLeads    int
}

type Sender interface {
	SendDailyReport(ctx context.Context, toEmail string, data DailyReportData) error
	SendHotLeadAlert(ctx context.Context, toEmail, clientName, phone string, leadCount int) error
	SendCustomEmail(ctx context.Context, toEmail, subject, htmlContent string) error
}

// NoopSender is used when outbound email is disabled.
type NoopSender struct{}

func (NoopSender) SendDailyReport(context.Context, string, DailyReportData) error { return nil }

func (NoopSender) SendHotLeadAlert(context.Context, string, string, string, int) error { return nil }

func (NoopSender) SendCustomEmail(context.Context, string, string, string) error { return nil }

// NewSender builds the configured sender, falling back to a no-op when email
// is switched off.
func NewSender(cfg config.EmailConfig) Sender {
	if !cfg.IsEmailEnabled() {
		return NoopSender{}
	}
	return NewSMTPSender(
		cfg.GetSMTPHost(),
		cfg.GetSMTPPort(),
		cfg.GetSMTPUser(),
		cfg.GetSMTPPassword(),
		cfg.GetEmailFromAddress(),
		cfg.GetEmailFromName(),
	)
}
