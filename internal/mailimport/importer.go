package mailimport

import (
	"context"
	"time"

	leadtransport "nashcrm_backend/internal/leads/transport"
	"nashcrm_backend/platform/config"
	"nashcrm_backend/platform/logger"
)

// LeadCreator is the slice of the leads service the importer needs.
type LeadCreator interface {
	Create(ctx context.Context, req leadtransport.CreateLeadRequest) (leadtransport.LeadResponse, error)
	HasDeliveryNumber(ctx context.Context, deliveryNumber string) (bool, error)
}

// SettingsSource lists the mailboxes to poll.
type SettingsSource interface {
	ListEnabled(ctx context.Context) ([]Settings, error)
}

// Importer polls configured IMAP mailboxes and turns recognized lead
// notification emails into leads. Duplicate notifications are skipped
// by the lead id carried in the email.
type Importer struct {
	cfg      config.MailImportConfig
	settings SettingsSource
	leads    LeadCreator
	dial     func(Settings) (Mailbox, error)
	log      *logger.Logger
}

func New(cfg config.MailImportConfig, settings SettingsSource, leads LeadCreator, log *logger.Logger) *Importer {
	return &Importer{
		cfg:      cfg,
		settings: settings,
		leads:    leads,
		dial:     dialIMAP,
		log:      log,
	}
}

// Run polls on the configured interval until the context is canceled.
// A failed iteration is logged and the loop keeps going.
func (i *Importer) Run(ctx context.Context) error {
	interval := i.cfg.GetMailImportInterval()
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := i.RunOnce(ctx); err != nil {
			i.log.EffectError("mail_import", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce processes every enabled mailbox a single time. One broken
// mailbox does not stop the others.
func (i *Importer) RunOnce(ctx context.Context) error {
	boxes, err := i.mailboxes(ctx)
	if err != nil {
		return err
	}

	for _, s := range boxes {
		created, err := i.importMailbox(ctx, s)
		if err != nil {
			i.log.Error("mailbox import failed",
				"mailbox", s.Email,
				"error", err.Error())
			continue
		}
		if created > 0 {
			i.log.Info("mail import finished",
				"mailbox", s.Email,
				"leads_created", created)
		}
	}
	return nil
}

// mailboxes resolves the list to poll. Database rows win; the
// environment settings are only a fallback for single-mailbox setups.
func (i *Importer) mailboxes(ctx context.Context) ([]Settings, error) {
	if i.settings != nil {
		rows, err := i.settings.ListEnabled(ctx)
		if err != nil {
			return nil, err
		}
		if len(rows) > 0 {
			return rows, nil
		}
	}

	if !i.cfg.IsMailImportEnabled() || i.cfg.GetIMAPUser() == "" {
		return nil, nil
	}
	return []Settings{{
		Email:       i.cfg.GetIMAPUser(),
		AppPassword: i.cfg.GetIMAPPassword(),
		IMAPHost:    i.cfg.GetIMAPHost(),
		IMAPPort:    i.cfg.GetIMAPPort(),
		Folder:      i.cfg.GetIMAPFolder(),
		Enabled:     true,
	}}, nil
}

func (i *Importer) importMailbox(ctx context.Context, s Settings) (int, error) {
	box, err := i.dial(s)
	if err != nil {
		return 0, err
	}
	defer box.Close()

	messages, err := box.Fetch()
	if err != nil {
		return 0, err
	}

	created := 0
	for _, msg := range messages {
		if ctx.Err() != nil {
			return created, ctx.Err()
		}

		ok, err := i.importMessage(ctx, msg)
		if err != nil {
			i.log.Error("lead email import failed",
				"mailbox", s.Email,
				"uid", msg.UID,
				"error", err.Error())
			continue
		}
		if ok {
			created++
		}

		if err := box.MarkProcessed(msg.UID); err != nil {
			i.log.EffectError("imap_mark_seen", err)
		}
	}
	return created, nil
}

// importMessage parses one email and creates the lead if it is a new
// one. Returns true only when a lead was actually created.
func (i *Importer) importMessage(ctx context.Context, msg Message) (bool, error) {
	if !isLeadEmail(msg.Subject, msg.Sender, msg.Body) {
		return false, nil
	}

	data, ok := extractLead(msg.Body)
	if !ok {
		i.log.Warn("lead email missing required fields",
			"uid", msg.UID,
			"subject", msg.Subject)
		return false, nil
	}

	exists, err := i.leads.HasDeliveryNumber(ctx, data.LeadID)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	source := data.Source
	if source == "" {
		source = "email"
	}

	_, err = i.leads.Create(ctx, leadtransport.CreateLeadRequest{
		FullName:       data.FullName,
		Phone:          data.Phone,
		Source:         source,
		Description:    data.description(msg.Subject),
		DeliveryNumber: data.LeadID,
		OrderNumber:    data.FormID,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}
