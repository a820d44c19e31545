package email

import (
	"regexp"
	"strings"

	"engagewatch/internal/model"
)

// Rule classifies a notification email. Rules are evaluated in order and
// the first match wins, so precedence between overlapping cues is the
// position in the rule list, not anything hard-coded.
type Rule struct {
	// Kind is the engagement type this rule detects.
	Kind model.Kind

	// SubjectCues match against the lowercased subject line.
	SubjectCues []string

	// BodyCues additionally match against the lowercased body text.
	BodyCues []string

	// AuthorPattern extracts the actor's display name from the subject.
	// Its first capture group is the name.
	AuthorPattern *regexp.Regexp
}

func (r Rule) matches(subject, body string) bool {
	for _, cue := range r.SubjectCues {
		if strings.Contains(subject, cue) {
			return true
		}
	}
	for _, cue := range r.BodyCues {
		if strings.Contains(body, cue) {
			return true
		}
	}
	return false
}

// DefaultRules returns the rule set in the provider's observed
// precedence order: an explicit comment cue beats a like cue beats a
// share cue.
func DefaultRules() []Rule {
	return []Rule{
		{
			Kind: model.KindComment,
			SubjectCues: []string{
				"commented on your post",
				"commented on your",
			},
			BodyCues:      []string{"commented on your"},
			AuthorPattern: regexp.MustCompile(`(?i)^(.+?) commented on`),
		},
		{
			Kind: model.KindLike,
			SubjectCues: []string{
				"liked your post",
				"reacted to your post",
			},
			AuthorPattern: regexp.MustCompile(`(?i)^(.+?) (?:liked|reacted to)`),
		},
		{
			Kind: model.KindShare,
			SubjectCues: []string{
				"shared your post",
				"reposted your post",
			},
			AuthorPattern: regexp.MustCompile(`(?i)^(.+?) (?:shared|reposted)`),
		},
	}
}

// Parser turns raw notification emails into notification records using
// an ordered rule list.
type Parser struct {
	rules []Rule
}

// NewParser creates a parser. With no rules given it uses DefaultRules.
func NewParser(rules ...Rule) *Parser {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Parser{rules: rules}
}

// Parse classifies one message. It returns false when no rule matches,
// meaning the message is not a recognized engagement notification and
// should be discarded.
//
// Extraction is defensive: any field that cannot be recovered is left
// empty or unknown. Parse never fails a whole record over one bad field.
func (p *Parser) Parse(msg RawMessage) (model.Notification, bool) {
	body := msg.TextBody
	if strings.TrimSpace(body) == "" && msg.HTMLBody != "" {
		body = stripHTML(msg.HTMLBody)
	}

	subjectLower := strings.ToLower(msg.Envelope.Subject)
	bodyLower := strings.ToLower(body)

	for _, rule := range p.rules {
		if !rule.matches(subjectLower, bodyLower) {
			continue
		}

		n := model.Notification{
			ID:         messageID(msg.Envelope),
			Kind:       rule.Kind,
			ActorName:  extractAuthor(rule, msg.Envelope.Subject),
			OccurredAt: msg.Envelope.Date,
			Source:     model.SourceTypeEmail,
		}

		if rule.Kind == model.KindComment {
			n.ContentSnippet = extractCommentText(body)
		}
		n.PostSnippet = extractPostExcerpt(body)

		return n, true
	}

	return model.Notification{}, false
}

// messageID derives the stable notification ID for an email. Message-ID
// plus the date identifies a logical event across resends; when the
// Message-ID header is absent the sender and subject stand in for it.
func messageID(env Envelope) string {
	date := ""
	if !env.Date.IsZero() {
		date = env.Date.UTC().Format("2006-01-02T15:04:05Z")
	}
	if env.MessageID != "" {
		return model.DeriveID(env.MessageID, date)
	}
	return model.DeriveID(env.From, env.Subject, date)
}

func extractAuthor(rule Rule, subject string) string {
	if rule.AuthorPattern == nil {
		return "Unknown"
	}
	m := rule.AuthorPattern.FindStringSubmatch(subject)
	if len(m) < 2 || strings.TrimSpace(m[1]) == "" {
		return "Unknown"
	}
	return strings.TrimSpace(m[1])
}

// boilerplateCues mark lines that belong to the notification template
// or its footer, not to the comment itself.
var boilerplateCues = []string{
	"unsubscribe",
	"linkedin",
	"commented on your",
	"liked your post",
	"reacted to your",
	"shared your post",
	"reposted your",
	"your post",
}

// extractCommentText scans the body for the first line that looks like
// comment content rather than boilerplate: long enough to be a real
// sentence and free of template vocabulary.
func extractCommentText(body string) string {
	for _, line := range strings.Split(body, "\n") {
		text := strings.TrimSpace(line)
		if len(text) <= 20 {
			continue
		}
		if containsAny(strings.ToLower(text), boilerplateCues) {
			continue
		}
		return model.Truncate(text, model.MaxContentSnippet)
	}
	return ""
}

func containsAny(s string, cues []string) bool {
	for _, cue := range cues {
		if strings.Contains(s, cue) {
			return true
		}
	}
	return false
}

var (
	postExcerptQuoted = regexp.MustCompile(`(?i)your post[^\n"]*"([^"\n]+)"`)
	postExcerptInline = regexp.MustCompile(`(?i)your post\s*[:\-]\s*([^\n"]+)`)
)

// extractPostExcerpt pulls an excerpt of the post the notification
// refers to: a quoted excerpt when present, otherwise text after a
// "your post:" introducer on the same line.
func extractPostExcerpt(body string) string {
	if m := postExcerptQuoted.FindStringSubmatch(body); len(m) == 2 {
		return model.Truncate(m[1], model.MaxPostSnippet)
	}
	if m := postExcerptInline.FindStringSubmatch(body); len(m) == 2 {
		return model.Truncate(m[1], model.MaxPostSnippet)
	}
	return ""
}

// htmlTagPattern matches HTML tags for stripping.
var htmlTagPattern = regexp.MustCompile(`<[^>]*>`)

// stripHTML removes HTML tags from a string and decodes common
// entities, providing a basic plain-text rendering.
func stripHTML(html string) string {
	if html == "" {
		return ""
	}

	result := html
	for _, tag := range []string{
		"<br>", "<br/>", "<br />", "</p>", "</div>", "</li>",
	} {
		result = strings.ReplaceAll(result, tag, "\n")
	}

	result = htmlTagPattern.ReplaceAllString(result, "")

	replacer := strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
		"&nbsp;", " ",
	)
	result = replacer.Replace(result)

	for strings.Contains(result, "\n\n\n") {
		result = strings.ReplaceAll(result, "\n\n\n", "\n\n")
	}

	return strings.TrimSpace(result)
}
