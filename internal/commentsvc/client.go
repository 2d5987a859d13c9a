// Package commentsvc is the HTTP client for the site's comment endpoints.
package commentsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const maxResponseSize = 1 << 20

// Options configures a Client.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	Tokens     TokenProvider
	Logger     logrus.FieldLogger
}

// Client calls the comment endpoints. Every POST carries the CSRF token and
// the XHR marker so the server answers with JSON instead of a page.
type Client struct {
	base   *url.URL
	http   *http.Client
	tokens TokenProvider
	log    logrus.FieldLogger
}

// New creates a Client for the site at opts.BaseURL.
func New(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", opts.BaseURL)
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	tokens := opts.Tokens
	if tokens == nil {
		tokens = CookieToken{Jar: hc.Jar, Site: base}
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &Client{base: base, http: hc, tokens: tokens, log: log}, nil
}

// BaseURL returns the site root the client talks to.
func (c *Client) BaseURL() *url.URL { return c.base }

// Vote records an up or down vote and returns the authoritative tally.
func (c *Client) Vote(ctx context.Context, commentID string, dir Direction) (*VoteResult, error) {
	if commentID == "" {
		return nil, ErrMissingID
	}
	var out VoteResult
	path := fmt.Sprintf("/news/comment/%s/vote/%s/", url.PathEscape(commentID), dir.route())
	if err := c.post(ctx, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Reply posts a reply under parentID.
func (c *Client) Reply(ctx context.Context, articleID, parentID, content string) (*Created, error) {
	if articleID == "" || parentID == "" {
		return nil, ErrMissingID
	}
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}
	form := url.Values{
		"content":           {content},
		"parent_comment_id": {parentID},
	}
	var out Created
	path := fmt.Sprintf("/news/article/%s/comment/%s/reply/", url.PathEscape(articleID), url.PathEscape(parentID))
	if err := c.post(ctx, path, form, &out); err != nil {
		return nil, err
	}
	if out.ParentID == "" {
		out.ParentID = ID(parentID)
	}
	return &out, nil
}

// CreateComment posts a top-level comment on an article.
func (c *Client) CreateComment(ctx context.Context, articleID, content string) (*Created, error) {
	if articleID == "" {
		return nil, ErrMissingID
	}
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}
	var out Created
	path := fmt.Sprintf("/news/article/%s/comment/", url.PathEscape(articleID))
	if err := c.post(ctx, path, url.Values{"content": {content}}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Edit replaces the content of a comment and returns what the server stored.
func (c *Client) Edit(ctx context.Context, commentID, content string) (*Edited, error) {
	if commentID == "" {
		return nil, ErrMissingID
	}
	var out Edited
	path := fmt.Sprintf("/news/comment/%s/edit/", url.PathEscape(commentID))
	if err := c.post(ctx, path, url.Values{"content": {content}}, &out); err != nil {
		return nil, err
	}
	if out.CommentID == "" {
		out.CommentID = ID(commentID)
	}
	return &out, nil
}

// Delete removes a comment on the server.
func (c *Client) Delete(ctx context.Context, commentID string) (*Deleted, error) {
	if commentID == "" {
		return nil, ErrMissingID
	}
	var out Deleted
	path := fmt.Sprintf("/news/comment/%s/delete/", url.PathEscape(commentID))
	if err := c.post(ctx, path, nil, &out); err != nil {
		return nil, err
	}
	if out.CommentID == "" {
		out.CommentID = ID(commentID)
	}
	return &out, nil
}

// Report flags a comment for moderation.
func (c *Client) Report(ctx context.Context, commentID string) (*Reported, error) {
	if commentID == "" {
		return nil, ErrMissingID
	}
	var out Reported
	path := fmt.Sprintf("/news/comment/%s/report/", url.PathEscape(commentID))
	if err := c.post(ctx, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchArticle loads the server-rendered article page. The response also
// seeds the cookie jar with the CSRF cookie.
func (c *Client) FetchArticle(ctx context.Context, articleID, sort string) ([]byte, error) {
	if articleID == "" {
		return nil, ErrMissingID
	}
	u := c.resolve(fmt.Sprintf("/news/article/%s/", url.PathEscape(articleID)))
	if sort != "" {
		u.RawQuery = url.Values{"sort": {sort}}.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching article %s: %w", articleID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8*maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("reading article %s: %w", articleID, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: article %s returned status %d", ErrUnexpectedResponse, articleID, resp.StatusCode)
	}
	return body, nil
}

func (c *Client) resolve(path string) *url.URL {
	u := *c.base
	u.Path = strings.TrimRight(c.base.Path, "/") + path
	return &u
}

func (c *Client) post(ctx context.Context, path string, form url.Values, out any) error {
	requestID := uuid.New().String()
	log := c.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"method":     http.MethodPost,
		"path":       path,
	})

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.resolve(path).String(), body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("X-CSRFToken", c.tokens.Token())
	req.Header.Set("X-Request-Id", requestID)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		log.WithError(err).Warn("comment service request failed")
		return fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("reading response for %s: %w", path, err)
	}
	log.WithFields(logrus.Fields{
		"status":  resp.StatusCode,
		"elapsed": time.Since(start),
	}).Debug("comment service responded")

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("%w: %s returned status %d with %s", ErrUnexpectedResponse, path, resp.StatusCode, snippet(raw))
	}
	if !env.Success {
		msg := env.Error
		if msg == "" {
			msg = env.Message
		}
		return &ServiceError{Status: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding response for %s: %w", path, err)
	}
	return nil
}

func snippet(b []byte) string {
	b = bytes.TrimSpace(b)
	if len(b) > 64 {
		b = append(b[:64:64], "..."...)
	}
	if len(b) == 0 {
		return "an empty body"
	}
	return fmt.Sprintf("%q", b)
}
