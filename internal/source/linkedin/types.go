package linkedin

// sharePage is one page of the caller's shares (posts).
type sharePage struct {
	Elements []Share `json:"elements"`
}

// Share is a LinkedIn post owned by the caller.
type Share struct {
	ID      string    `json:"id"`
	Text    shareText `json:"text"`
	Created timestamp `json:"created"`
}

type shareText struct {
	Text string `json:"text"`
}

// commentPage is one page of comments on a post.
type commentPage struct {
	Elements []Comment `json:"elements"`
}

// Comment is a single comment on a post.
type Comment struct {
	ID      string      `json:"id"`
	Actor   actor       `json:"actor"`
	Message commentText `json:"message"`
	Created timestamp   `json:"created"`
}

type commentText struct {
	Text string `json:"text"`
}

// likePage is one page of likes on a post.
type likePage struct {
	Elements []Like `json:"elements"`
}

// Like is a single like on a post.
type Like struct {
	Actor   actor     `json:"actor"`
	Created timestamp `json:"created"`
}

type actor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// timestamp carries LinkedIn's epoch-milliseconds creation time.
type timestamp struct {
	Time int64 `json:"time"`
}
