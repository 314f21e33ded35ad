// Package reddit is a minimal Reddit API client for the tracker: OAuth2
// client-credentials auth, newest-post listings per subreddit, and full comment-tree
// retrieval with "more children" expansion.
package reddit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	DefaultTokenURL = "https://www.reddit.com/api/v1/access_token"
	DefaultBaseURL  = "https://oauth.reddit.com"

	// MaxListingLimit is the largest page size the listing API accepts.
	MaxListingLimit = 100

	// morechildrenBatch is the maximum number of comment IDs per morechildren request.
	morechildrenBatch = 100
)

// ServerError is the distinguished retryable upstream condition: any 5xx response.
// Every other non-2xx response is surfaced as a plain error and never retried.
type ServerError struct {
	StatusCode int
	Body       string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("reddit server error: status %d: %s", e.StatusCode, e.Body)
}

// IsServerError reports whether err is (or wraps) a retryable upstream server error.
func IsServerError(err error) bool {
	var se *ServerError
	return errors.As(err, &se)
}

// Config configures the client. Base and token URLs are injectable for tests.
type Config struct {
	ClientID     string
	ClientSecret string
	UserAgent    string
	TokenURL     string
	BaseURL      string
	HTTPClient   *http.Client
}

// Client talks to the Reddit API with a cached app-only bearer token.
type Client struct {
	cfg  Config
	http *http.Client

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// New builds a client. A nil HTTP client defaults to a 30-second request timeout; a
// stuck call beyond that surfaces as an error rather than blocking forever.
func New(cfg Config) *Client {
	if cfg.TokenURL == "" {
		cfg.TokenURL = DefaultTokenURL
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{cfg: cfg, http: httpClient}
}

// Post is one t3 thing from a listing or comment page.
type Post struct {
	ID          string  `json:"id"`
	Subreddit   string  `json:"subreddit"`
	Title       string  `json:"title"`
	Permalink   string  `json:"permalink"`
	URL         string  `json:"url"`
	CreatedUTC  float64 `json:"created_utc"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
}

// Comment is one flattened t1 thing from a post's comment tree.
type Comment struct {
	ID     string
	Body   string
	Author string
	Score  int
}

// ListNew fetches the newest posts of a subreddit, up to limit (capped at the API
// maximum page size).
func (c *Client) ListNew(ctx context.Context, subreddit string, limit int) ([]Post, error) {
	if limit <= 0 || limit > MaxListingLimit {
		limit = MaxListingLimit
	}
	endpoint := fmt.Sprintf("%s/r/%s/new?limit=%d&raw_json=1", c.cfg.BaseURL, url.PathEscape(subreddit), limit)

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("list r/%s/new: %w", subreddit, err)
	}

	var listing thing
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, fmt.Errorf("decode r/%s listing: %w", subreddit, err)
	}

	posts := make([]Post, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		if child.Kind != "t3" {
			continue
		}
		var p Post
		if err := json.Unmarshal(child.Data, &p); err != nil {
			return nil, fmt.Errorf("decode post in r/%s listing: %w", subreddit, err)
		}
		posts = append(posts, p)
	}
	return posts, nil
}

// FetchComments fetches a post and its complete comment tree. Truncated branches are
// expanded through the morechildren endpoint until no stubs remain, so the returned
// slice is the full flattened tree in depth-first order (expanded stubs appended after
// the branch that referenced them).
func (c *Client) FetchComments(ctx context.Context, postID string) (Post, []Comment, error) {
	endpoint := fmt.Sprintf("%s/comments/%s?limit=500&depth=100&raw_json=1", c.cfg.BaseURL, url.PathEscape(postID))

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return Post{}, nil, fmt.Errorf("fetch comments for %s: %w", postID, err)
	}

	// The comments endpoint returns a two-element array: the post listing and the
	// comment listing.
	var pages []thing
	if err := json.Unmarshal(body, &pages); err != nil {
		return Post{}, nil, fmt.Errorf("decode comment page for %s: %w", postID, err)
	}
	if len(pages) < 2 || len(pages[0].Data.Children) == 0 {
		return Post{}, nil, fmt.Errorf("comment page for %s has unexpected shape", postID)
	}

	var post Post
	if err := json.Unmarshal(pages[0].Data.Children[0].Data, &post); err != nil {
		return Post{}, nil, fmt.Errorf("decode post %s: %w", postID, err)
	}

	var comments []Comment
	pending, err := walkComments(pages[1].Data.Children, &comments)
	if err != nil {
		return Post{}, nil, err
	}

	for len(pending) > 0 {
		batch := pending
		if len(batch) > morechildrenBatch {
			batch = batch[:morechildrenBatch]
		}
		pending = pending[len(batch):]

		more, extra, err := c.moreChildren(ctx, post.ID, batch)
		if err != nil {
			return Post{}, nil, err
		}
		comments = append(comments, more...)
		pending = append(pending, extra...)
	}

	return post, comments, nil
}

// moreChildren resolves one batch of truncated comment IDs. It returns the decoded
// comments plus any further stub IDs the response itself contains.
func (c *Client) moreChildren(ctx context.Context, postID string, children []string) ([]Comment, []string, error) {
	form := url.Values{
		"api_type": {"json"},
		"link_id":  {"t3_" + postID},
		"children": {strings.Join(children, ",")},
	}
	endpoint := c.cfg.BaseURL + "/api/morechildren?raw_json=1"

	body, err := c.do(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
	if err != nil {
		return nil, nil, fmt.Errorf("morechildren for %s: %w", postID, err)
	}

	var resp struct {
		JSON struct {
			Data struct {
				Things []child `json:"things"`
			} `json:"data"`
		} `json:"json"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, nil, fmt.Errorf("decode morechildren for %s: %w", postID, err)
	}

	var comments []Comment
	pending, err := walkComments(resp.JSON.Data.Things, &comments)
	if err != nil {
		return nil, nil, err
	}
	return comments, pending, nil
}

// thing is the generic Reddit envelope.
type thing struct {
	Kind string `json:"kind"`
	Data struct {
		Children []child `json:"children"`
	} `json:"data"`
}

type child struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

type commentData struct {
	ID      string          `json:"id"`
	Body    string          `json:"body"`
	Author  string          `json:"author"`
	Score   int             `json:"score"`
	Replies json.RawMessage `json:"replies"`
}

type moreData struct {
	Children []string `json:"children"`
}

// walkComments flattens a comment forest depth-first into out and returns the IDs of
// any "more" stubs encountered.
func walkComments(children []child, out *[]Comment) ([]string, error) {
	var pending []string
	for _, ch := range children {
		switch ch.Kind {
		case "t1":
			var cd commentData
			if err := json.Unmarshal(ch.Data, &cd); err != nil {
				return nil, fmt.Errorf("decode comment: %w", err)
			}
			*out = append(*out, Comment{ID: cd.ID, Body: cd.Body, Author: cd.Author, Score: cd.Score})

			// Replies is either a nested listing or an empty string.
			if len(cd.Replies) > 0 && cd.Replies[0] == '{' {
				var replies thing
				if err := json.Unmarshal(cd.Replies, &replies); err != nil {
					return nil, fmt.Errorf("decode replies of %s: %w", cd.ID, err)
				}
				more, err := walkComments(replies.Data.Children, out)
				if err != nil {
					return nil, err
				}
				pending = append(pending, more...)
			}
		case "more":
			var md moreData
			if err := json.Unmarshal(ch.Data, &md); err != nil {
				return nil, fmt.Errorf("decode more stub: %w", err)
			}
			pending = append(pending, md.Children...)
		}
	}
	return pending, nil
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, endpoint, nil, "")
}

func (c *Client) do(ctx context.Context, method, endpoint string, body io.Reader, contentType string) ([]byte, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 500 {
		return nil, &ServerError{StatusCode: resp.StatusCode, Body: snippet(b)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, snippet(b))
	}
	return b, nil
}

// accessToken returns a cached app-only token, fetching a fresh one when missing or
// within a minute of expiry.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry.Add(-time.Minute)) {
		return c.token, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.cfg.ClientID, c.cfg.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch access token: %w", err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read token response: %w", err)
	}
	if resp.StatusCode >= 500 {
		return "", &ServerError{StatusCode: resp.StatusCode, Body: snippet(b)}
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token request failed with status %d: %s", resp.StatusCode, snippet(b))
	}

	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(b, &tok); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("token response missing access_token")
	}

	c.token = tok.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	return c.token, nil
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 200 {
		s = s[:200] + "…"
	}
	return strconv.Quote(s)
}
