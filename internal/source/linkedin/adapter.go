package linkedin

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"engagewatch/internal/model"
	"engagewatch/internal/source"
)

// postCount bounds how many recent posts one run considers.
const postCount = 50

// Adapter implements source.Source over the LinkedIn REST API: it
// fetches the caller's recent posts and then each post's comments
// (and, best-effort, likes).
type Adapter struct {
	client *Client
	log    zerolog.Logger
}

// NewAdapter creates a new LinkedIn source adapter.
func NewAdapter(baseURL, token string, log zerolog.Logger) *Adapter {
	return &Adapter{
		client: NewClient(baseURL, token),
		log:    log,
	}
}

// Type returns the source type identifier for the API adapter.
func (a *Adapter) Type() model.SourceType {
	return model.SourceTypeAPI
}

// FetchNotifications fetches posts created inside the lookback window,
// then their comments and likes. A rate-limit response stops all
// further requests for this run and marks the batch partial; one post's
// sub-fetch failing skips that post and continues with the rest.
func (a *Adapter) FetchNotifications(
	ctx context.Context, windowDays int,
) (*source.FetchResult, error) {
	cutoff := time.Now().AddDate(0, 0, -windowDays)

	posts, err := a.recentPosts(ctx, cutoff)
	if err != nil {
		if source.IsRateLimitError(err) {
			// Limited before we got anything; still a reportable run.
			return &source.FetchResult{RateLimited: true}, nil
		}
		return nil, err
	}

	a.log.Debug().Int("posts", len(posts)).Msg("fetched recent posts")

	result := &source.FetchResult{}
	for _, post := range posts {
		comments, err := a.postComments(ctx, post.ID)
		if err != nil {
			if source.IsRateLimitError(err) {
				a.log.Warn().Str("post", post.ID).
					Msg("rate limited, stopping batch")
				result.RateLimited = true
				break
			}
			a.log.Warn().Err(err).Str("post", post.ID).
				Msg("skipping post, comment fetch failed")
			result.Skipped++
			continue
		}

		postSnippet := model.Truncate(post.Text.Text, model.MaxPostSnippet)
		for _, c := range comments {
			result.Notifications = append(
				result.Notifications, commentNotification(post, c, postSnippet),
			)
		}

		// Likes are best-effort: a failure here is not even a skip,
		// except for a rate limit, which still ends the batch.
		likes, err := a.postLikes(ctx, post.ID)
		if err != nil {
			if source.IsRateLimitError(err) {
				result.RateLimited = true
				break
			}
			a.log.Debug().Err(err).Str("post", post.ID).
				Msg("like fetch failed")
			continue
		}
		for _, l := range likes {
			result.Notifications = append(
				result.Notifications, likeNotification(post, l, postSnippet),
			)
		}
	}

	return result, nil
}

// recentPosts fetches the caller's posts and keeps those created at or
// after cutoff.
func (a *Adapter) recentPosts(
	ctx context.Context, cutoff time.Time,
) ([]Share, error) {
	params := url.Values{}
	params.Set("q", "owners")
	params.Set("count", strconv.Itoa(postCount))

	var page sharePage
	if err := a.client.Get(ctx, "/shares", params, &page); err != nil {
		return nil, fmt.Errorf("fetching posts: %w", err)
	}

	var posts []Share
	for _, p := range page.Elements {
		if eventTime(p.Created).Before(cutoff) {
			continue
		}
		posts = append(posts, p)
	}
	return posts, nil
}

func (a *Adapter) postComments(
	ctx context.Context, postID string,
) ([]Comment, error) {
	params := url.Values{}
	params.Set("count", "100")

	var page commentPage
	path := "/socialActions/" + url.PathEscape(postID) + "/comments"
	if err := a.client.Get(ctx, path, params, &page); err != nil {
		return nil, err
	}
	return page.Elements, nil
}

func (a *Adapter) postLikes(
	ctx context.Context, postID string,
) ([]Like, error) {
	params := url.Values{}
	params.Set("count", "100")

	var page likePage
	path := "/socialActions/" + url.PathEscape(postID) + "/likes"
	if err := a.client.Get(ctx, path, params, &page); err != nil {
		return nil, err
	}
	return page.Elements, nil
}

func commentNotification(
	post Share, c Comment, postSnippet string,
) model.Notification {
	id := c.ID
	if id == "" {
		id = model.DeriveID(
			post.ID, c.Actor.ID,
			strconv.FormatInt(c.Created.Time, 10),
		)
	}
	return model.Notification{
		ID:             id,
		Kind:           model.KindComment,
		ActorName:      actorName(c.Actor),
		ContentSnippet: model.Truncate(c.Message.Text, model.MaxContentSnippet),
		PostSnippet:    postSnippet,
		OccurredAt:     eventTime(c.Created),
		Source:         model.SourceTypeAPI,
	}
}

func likeNotification(
	post Share, l Like, postSnippet string,
) model.Notification {
	// Likes have no native event id; one actor liking one post is one
	// logical event, so the pair is the identity.
	return model.Notification{
		ID:          model.DeriveID("like", post.ID, l.Actor.ID),
		Kind:        model.KindLike,
		ActorName:   actorName(l.Actor),
		PostSnippet: postSnippet,
		OccurredAt:  eventTime(l.Created),
		Source:      model.SourceTypeAPI,
	}
}

func actorName(a actor) string {
	if a.Name == "" {
		return "Unknown"
	}
	return a.Name
}

// eventTime converts LinkedIn's epoch-millisecond timestamps; zero or
// negative values stay the zero time (rendered as "unknown").
func eventTime(ts timestamp) time.Time {
	if ts.Time <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ts.Time)
}
