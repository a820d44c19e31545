package monitor

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"engagewatch/internal/model"
	"engagewatch/internal/source"
	"engagewatch/internal/store"
	"engagewatch/tests/testutil"
)

// fakeSource returns a canned batch, standing in for a mailbox whose
// contents do not change between runs.
type fakeSource struct {
	result *source.FetchResult
	err    error
	calls  int
}

func (f *fakeSource) Type() model.SourceType { return model.SourceTypeEmail }

func (f *fakeSource) FetchNotifications(
	_ context.Context, _ int,
) (*source.FetchResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func comment(id, actor, text string) model.Notification {
	return model.Notification{
		ID:             id,
		Kind:           model.KindComment,
		ActorName:      actor,
		ContentSnippet: text,
		OccurredAt:     time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC),
		Source:         model.SourceTypeEmail,
	}
}

func newRunner(t *testing.T, src source.Source) (*Runner, *store.SQLiteStore, *bytes.Buffer) {
	t.Helper()
	st := testutil.NewTestStore(t)
	out := &bytes.Buffer{}
	return &Runner{
		Source: src,
		Store:  st,
		Out:    out,
		Log:    zerolog.Nop(),
	}, st, out
}

func TestRunIsIdempotent(t *testing.T) {
	// Three comment notifications, two from the same actor with
	// different comments: three distinct events.
	batch := &source.FetchResult{
		Notifications: []model.Notification{
			comment("n1", "John Doe", "First comment"),
			comment("n2", "Jane Smith", "Second comment"),
			comment("n3", "John Doe", "Another comment"),
		},
	}
	src := &fakeSource{result: batch}
	r, _, out := newRunner(t, src)

	require.NoError(t, r.Run(context.Background()))
	assert.Contains(t, out.String(), "Found 3 new notifications")
	assert.Contains(t, out.String(), "NEW COMMENTS (3)")
	assert.Contains(t, out.String(), "John Doe")
	assert.Contains(t, out.String(), "Jane Smith")

	// Same mailbox contents, second run: everything is seen now.
	out.Reset()
	require.NoError(t, r.Run(context.Background()))
	assert.Contains(t, out.String(), "No new notifications")
	assert.Equal(t, 2, src.calls)
}

func TestRunOnlyNewEventsSurvive(t *testing.T) {
	src := &fakeSource{result: &source.FetchResult{
		Notifications: []model.Notification{comment("n1", "John Doe", "hi")},
	}}
	r, _, out := newRunner(t, src)

	require.NoError(t, r.Run(context.Background()))

	// The source re-renders the old event and adds one more.
	src.result = &source.FetchResult{
		Notifications: []model.Notification{
			comment("n1", "John Doe", "hi (resent with different text)"),
			comment("n2", "Jane Smith", "brand new"),
		},
	}

	out.Reset()
	require.NoError(t, r.Run(context.Background()))
	assert.Contains(t, out.String(), "Found 1 new notification")
	assert.Contains(t, out.String(), "Jane Smith")
	assert.NotContains(t, out.String(), "John Doe")
}

func TestRunFatalError(t *testing.T) {
	authErr := &source.AuthError{
		SourceType: model.SourceTypeEmail,
		Message:    "bad credentials",
	}
	src := &fakeSource{err: authErr}
	r, st, out := newRunner(t, src)

	err := r.Run(context.Background())
	require.Error(t, err)
	assert.True(t, source.IsAuthError(err))

	// Exactly one report, and it names the failure.
	assert.Contains(t, out.String(), "Authentication failed")

	// A run that never fetched must not advance the seen set.
	seen, loadErr := st.LoadSeen(context.Background())
	require.NoError(t, loadErr)
	assert.Empty(t, seen)
}

func TestRunPartialStillReports(t *testing.T) {
	src := &fakeSource{result: &source.FetchResult{
		Notifications: []model.Notification{
			comment("n1", "John Doe", "made it through"),
		},
		Skipped:     2,
		RateLimited: true,
	}}
	r, _, out := newRunner(t, src)

	// Partial batches are a success with a caveat, not a failure.
	require.NoError(t, r.Run(context.Background()))
	assert.Contains(t, out.String(), "Found 1 new notification")
	assert.Contains(t, out.String(), "results are partial")
	assert.Contains(t, out.String(), "rate limited")
}

func TestRunRecordsHistory(t *testing.T) {
	src := &fakeSource{result: &source.FetchResult{
		Notifications: []model.Notification{
			comment("n1", "John Doe", "a"),
			comment("n2", "Jane Smith", "b"),
		},
		Skipped: 1,
	}}
	r, st, _ := newRunner(t, src)

	require.NoError(t, r.Run(context.Background()))

	last, err := st.LastRun(context.Background())
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, model.SourceTypeEmail, last.Source)
	assert.Equal(t, 2, last.Total)
	assert.Equal(t, 2, last.Fresh)
	assert.Equal(t, 1, last.Skipped)

	// Zero-new runs still advance the history.
	require.NoError(t, r.Run(context.Background()))
	last, err = st.LastRun(context.Background())
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, 0, last.Fresh)
}

func TestRunOtherErrorsAreNotAuthErrors(t *testing.T) {
	src := &fakeSource{err: errors.New("connection refused")}
	r, _, out := newRunner(t, src)

	err := r.Run(context.Background())
	require.Error(t, err)
	assert.False(t, source.IsAuthError(err))
	assert.Contains(t, out.String(), "Run failed")
}
