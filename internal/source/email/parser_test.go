package email

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"engagewatch/internal/model"
)

func notificationMail(subject, body string) RawMessage {
	return RawMessage{
		Envelope: Envelope{
			MessageID: "<" + subject + "@mail.example>",
			Subject:   subject,
			From:      "LinkedIn",
			Date:      time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC),
		},
		TextBody: body,
	}
}

func TestParseCommentNotification(t *testing.T) {
	p := NewParser()

	msg := notificationMail(
		"John Doe commented on your post",
		"John Doe commented on your post\n\n"+
			"Great write-up, the section on error handling really helped me.\n\n"+
			"Your post: \"Lessons from a year of running Go in production\"\n\n"+
			"Unsubscribe from these emails",
	)

	n, ok := p.Parse(msg)
	require.True(t, ok)
	assert.Equal(t, model.KindComment, n.Kind)
	assert.Equal(t, "John Doe", n.ActorName)
	assert.Equal(t,
		"Great write-up, the section on error handling really helped me.",
		n.ContentSnippet)
	assert.Equal(t,
		"Lessons from a year of running Go in production",
		n.PostSnippet)
	assert.Equal(t, model.SourceTypeEmail, n.Source)
	assert.False(t, n.OccurredAt.IsZero())
}

func TestParseLikeAndShare(t *testing.T) {
	p := NewParser()

	n, ok := p.Parse(notificationMail("Jane Smith liked your post", ""))
	require.True(t, ok)
	assert.Equal(t, model.KindLike, n.Kind)
	assert.Equal(t, "Jane Smith", n.ActorName)
	assert.Empty(t, n.ContentSnippet)

	n, ok = p.Parse(notificationMail("Alex Kim reacted to your post", ""))
	require.True(t, ok)
	assert.Equal(t, model.KindLike, n.Kind)
	assert.Equal(t, "Alex Kim", n.ActorName)

	n, ok = p.Parse(notificationMail("Sam Lee shared your post", ""))
	require.True(t, ok)
	assert.Equal(t, model.KindShare, n.Kind)
	assert.Equal(t, "Sam Lee", n.ActorName)
}

func TestParsePrecedenceCommentBeatsLike(t *testing.T) {
	p := NewParser()

	// Digest-style subject carrying both cues: the comment rule sits
	// first in the default order and must win.
	msg := notificationMail(
		"John Doe commented on your post",
		"Several people liked your post this week.",
	)

	n, ok := p.Parse(msg)
	require.True(t, ok)
	assert.Equal(t, model.KindComment, n.Kind)
}

func TestParseCustomRuleOrder(t *testing.T) {
	// Precedence is the rule list order, not hard-coded.
	defaults := DefaultRules()
	p := NewParser(defaults[1], defaults[0], defaults[2])

	msg := notificationMail("Pat Morgan liked your post", "")
	msg.TextBody = "Pat Morgan commented on your post earlier today."

	n, ok := p.Parse(msg)
	require.True(t, ok)
	assert.Equal(t, model.KindLike, n.Kind)
}

func TestParseUnrecognizedDiscarded(t *testing.T) {
	p := NewParser()

	_, ok := p.Parse(notificationMail(
		"Your weekly job alerts", "12 new jobs match your preferences",
	))
	assert.False(t, ok)
}

func TestParseMalformedBodyNeverFails(t *testing.T) {
	p := NewParser()

	// Empty body: classification still works off the subject, optional
	// fields stay empty.
	n, ok := p.Parse(notificationMail("John Doe commented on your post", ""))
	require.True(t, ok)
	assert.Equal(t, model.KindComment, n.Kind)
	assert.Empty(t, n.ContentSnippet)
	assert.Empty(t, n.PostSnippet)

	// Garbage body and subject: no record, no failure.
	_, ok = p.Parse(notificationMail("\x00\xff\xfe", "\x00garbage\xff"))
	assert.False(t, ok)
}

func TestParseUnknownActor(t *testing.T) {
	p := NewParser()

	// Cue only in the body, so the author pattern finds nothing in the
	// subject.
	msg := notificationMail(
		"New activity on your post",
		"Someone commented on your post.",
	)

	n, ok := p.Parse(msg)
	require.True(t, ok)
	assert.Equal(t, model.KindComment, n.Kind)
	assert.Equal(t, "Unknown", n.ActorName)
}

func TestParseHTMLOnlyBody(t *testing.T) {
	p := NewParser()

	msg := notificationMail("John Doe commented on your post", "")
	msg.HTMLBody = "<html><body>" +
		"<p>John Doe commented on your post</p>" +
		"<p>The benchmarks here match what we saw in our own migration.</p>" +
		"<p><a href=\"#\">Unsubscribe</a></p>" +
		"</body></html>"

	n, ok := p.Parse(msg)
	require.True(t, ok)
	assert.Equal(t,
		"The benchmarks here match what we saw in our own migration.",
		n.ContentSnippet)
}

func TestParseStableIDs(t *testing.T) {
	p := NewParser()

	msg := notificationMail(
		"John Doe commented on your post",
		"A different rendering of the same notification email.",
	)

	first, ok := p.Parse(msg)
	require.True(t, ok)
	second, ok := p.Parse(msg)
	require.True(t, ok)
	assert.Equal(t, first.ID, second.ID,
		"same message must derive the same id across runs")

	// Same actor, different message: distinct event, distinct id.
	other := msg
	other.Envelope.MessageID = "<other@mail.example>"
	third, ok := p.Parse(other)
	require.True(t, ok)
	assert.NotEqual(t, first.ID, third.ID)
}

func TestParseMissingMessageID(t *testing.T) {
	p := NewParser()

	msg := notificationMail("John Doe commented on your post", "")
	msg.Envelope.MessageID = ""

	n, ok := p.Parse(msg)
	require.True(t, ok)
	assert.NotEmpty(t, n.ID)

	// Still stable for the same sender/subject/date.
	again, _ := p.Parse(msg)
	assert.Equal(t, n.ID, again.ID)
}

func TestStripHTML(t *testing.T) {
	got := stripHTML(
		"<div>Hello &amp; welcome<br>New line</div><p>Para</p>",
	)
	assert.Contains(t, got, "Hello & welcome")
	assert.Contains(t, got, "New line")
	assert.NotContains(t, got, "<")
}
