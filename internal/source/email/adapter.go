package email

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"engagewatch/internal/model"
	"engagewatch/internal/source"
)

// fetchLimit bounds how many candidate messages one run pulls from the
// mailbox.
const fetchLimit = 100

// Adapter implements source.Source over an IMAP mailbox, matching
// messages from a known notification sender and parsing them into
// notification records.
type Adapter struct {
	client *IMAPClient
	parser *Parser
	sender string
	log    zerolog.Logger
}

// NewAdapter creates a new email source adapter. sender is the From
// address notification emails are expected to come from
// (e.g. noreply@linkedin.com).
func NewAdapter(
	host, port, username, password string,
	useTLS bool,
	sender string,
	log zerolog.Logger,
) *Adapter {
	return &Adapter{
		client: NewIMAPClient(host, port, username, password, useTLS),
		parser: NewParser(),
		sender: sender,
		log:    log,
	}
}

// Type returns the source type identifier for email.
func (a *Adapter) Type() model.SourceType {
	return model.SourceTypeEmail
}

// FetchNotifications fetches notification emails from the lookback
// window and parses them into candidate records. Connection failures
// are fatal; individual unparseable messages are skipped and counted.
func (a *Adapter) FetchNotifications(
	ctx context.Context, windowDays int,
) (*source.FetchResult, error) {
	since := time.Now().AddDate(0, 0, -windowDays)

	msgs, skipped, err := a.client.FetchSince(
		ctx, a.sender, since, fetchLimit,
	)
	if err != nil {
		return nil, fmt.Errorf("fetching notification emails: %w", err)
	}

	a.log.Debug().
		Int("messages", len(msgs)).
		Int("skipped", skipped).
		Str("sender", a.sender).
		Msg("fetched mailbox batch")

	result := &source.FetchResult{Skipped: skipped}
	for _, msg := range msgs {
		n, ok := a.parser.Parse(msg)
		if !ok {
			// Not an engagement notification; ignore.
			continue
		}
		result.Notifications = append(result.Notifications, n)
	}

	return result, nil
}
