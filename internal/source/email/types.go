package email

import "time"

// Envelope holds the parsed envelope data from an IMAP message.
type Envelope struct {
	MessageID string
	Subject   string
	From      string
	Date      time.Time
	UID       uint32
}

// RawMessage is one fetched notification email: envelope plus whatever
// body variants the message carried.
type RawMessage struct {
	Envelope Envelope
	TextBody string
	HTMLBody string
}
