package mailimport

import (
	"fmt"

	imap "github.com/BrianLeishman/go-imap"
)

// Message is a single inbound email as the importer sees it.
type Message struct {
	UID     int
	Subject string
	Sender  string
	Body    string
}

// Mailbox is the slice of an IMAP session the importer needs.
type Mailbox interface {
	Fetch() ([]Message, error)
	MarkProcessed(uid int) error
	Close() error
}

type imapMailbox struct {
	dialer *imap.Dialer
}

// dialIMAP opens a real IMAP session for one mailbox. Unseen messages
// are fetched and marked seen after processing, so a crash mid-run at
// worst re-reads an email that deduplication already covers.
func dialIMAP(s Settings) (Mailbox, error) {
	d, err := imap.New(s.Email, s.AppPassword, s.IMAPHost, s.IMAPPort)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", s.IMAPHost, err)
	}

	folder := s.Folder
	if folder == "" {
		folder = "INBOX"
	}
	if err := d.SelectFolder(folder); err != nil {
		d.Close()
		return nil, fmt.Errorf("select folder %q: %w", folder, err)
	}
	return &imapMailbox{dialer: d}, nil
}

func (m *imapMailbox) Fetch() ([]Message, error) {
	uids, err := m.dialer.GetUIDs("UNSEEN")
	if err != nil {
		return nil, fmt.Errorf("search unseen: %w", err)
	}
	if len(uids) == 0 {
		return nil, nil
	}

	emails, err := m.dialer.GetEmails(uids...)
	if err != nil {
		return nil, fmt.Errorf("fetch emails: %w", err)
	}

	out := make([]Message, 0, len(emails))
	for uid, e := range emails {
		if e == nil {
			continue
		}
		sender := ""
		for addr := range e.From {
			sender = addr
			break
		}
		out = append(out, Message{
			UID:     uid,
			Subject: e.Subject,
			Sender:  sender,
			Body:    e.Text,
		})
	}
	return out, nil
}

func (m *imapMailbox) MarkProcessed(uid int) error {
	return m.dialer.MarkSeen(uid)
}

func (m *imapMailbox) Close() error {
	m.dialer.Close()
	return nil
}
