package osuapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"curator/contexts/curation/round-lifecycle/ports"
)

const (
	defaultTimeout = 30 * time.Second

	// tokenRefreshMargin renews the access token slightly before expiry so
	// in-flight requests never race the cutoff.
	tokenRefreshMargin = time.Minute
)

// Client is the discussion platform gateway. It authenticates with the
// client-credentials grant and refreshes the token on demand instead of
// persisting it anywhere.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpClient   *http.Client
	logger       *slog.Logger

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

func NewClient(baseURL string, clientID string, clientSecret string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: defaultTimeout},
		logger:       logger,
	}
}

var _ ports.DiscussionGateway = (*Client)(nil)

// EnsureToken obtains or refreshes the access token. It reports whether a new
// token was fetched, so callers can log refreshes distinctly from reuse.
func (c *Client) EnsureToken(ctx context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.expiresAt.Add(-tokenRefreshMargin)) {
		return false, nil
	}

	body, err := json.Marshal(map[string]any{
		"grant_type":    "client_credentials",
		"client_id":     c.clientID,
		"client_secret": c.clientSecret,
		"scope":         "public",
	})
	if err != nil {
		return false, fmt.Errorf("osuapi: encode token request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/oauth/token", bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("osuapi: build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("osuapi: token request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return false, fmt.Errorf("osuapi: token request: status %d", resp.StatusCode)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return false, fmt.Errorf("osuapi: decode token response: %w", err)
	}
	c.token = payload.AccessToken
	c.expiresAt = time.Now().Add(time.Duration(payload.ExpiresIn) * time.Second)
	c.logger.Info("access token refreshed",
		"event", "osuapi_token_refreshed",
		"module", "curation/round-lifecycle",
		"layer", "adapter",
		"expires_in", payload.ExpiresIn,
	)
	return true, nil
}

func (c *Client) CreateThread(ctx context.Context, forumID int64, title string, body string) (ports.CreatedThread, error) {
	return c.createTopic(ctx, map[string]any{
		"forum_id": forumID,
		"title":    title,
		"body":     body,
	})
}

func (c *Client) CreateThreadWithPoll(
	ctx context.Context,
	forumID int64,
	title string,
	body string,
	poll ports.PollSpec,
) (ports.CreatedThread, error) {
	return c.createTopic(ctx, map[string]any{
		"forum_id":  forumID,
		"title":     title,
		"body":      body,
		"with_poll": true,
		"forum_topic_poll": map[string]any{
			"title":        poll.Title,
			"options":      strings.Join(poll.Options, "\n"),
			"max_options":  poll.MaxOptions,
			"length_days":  poll.LengthDays,
			"vote_change":  poll.VoteChange,
			"hide_results": poll.HideResults,
		},
	})
}

func (c *Client) createTopic(ctx context.Context, body map[string]any) (ports.CreatedThread, error) {
	raw, err := c.do(ctx, http.MethodPost, "/api/v2/forums/topics", body)
	if err != nil {
		return ports.CreatedThread{}, err
	}
	var payload struct {
		Topic struct {
			ID int64 `json:"id"`
		} `json:"topic"`
		Post struct {
			ID int64 `json:"id"`
		} `json:"post"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return ports.CreatedThread{}, fmt.Errorf("osuapi: decode create topic response: %w", err)
	}
	return ports.CreatedThread{TopicID: payload.Topic.ID, PostID: payload.Post.ID}, nil
}

func (c *Client) EditPost(ctx context.Context, postID int64, body string) error {
	_, err := c.do(ctx, http.MethodPut, "/api/v2/forums/posts/"+strconv.FormatInt(postID, 10), map[string]any{
		"body": body,
	})
	return err
}

func (c *Client) EditThreadTitle(ctx context.Context, topicID int64, title string) error {
	_, err := c.do(ctx, http.MethodPut, "/api/v2/forums/topics/"+strconv.FormatInt(topicID, 10), map[string]any{
		"forum_topic": map[string]any{"topic_title": title},
	})
	return err
}

func (c *Client) ReplyThread(ctx context.Context, topicID int64, body string) (int64, error) {
	raw, err := c.do(ctx, http.MethodPost, "/api/v2/forums/topics/"+strconv.FormatInt(topicID, 10)+"/reply", map[string]any{
		"body": body,
	})
	if err != nil {
		return 0, err
	}
	var payload struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return 0, fmt.Errorf("osuapi: decode reply response: %w", err)
	}
	return payload.ID, nil
}

func (c *Client) PinThread(ctx context.Context, topicID int64, pinned bool) error {
	pin := "0"
	if pinned {
		// 2 is the "announcement" pin level; plain sticky is 1.
		pin = "2"
	}
	_, err := c.do(ctx, http.MethodPost,
		"/api/v2/forums/topics/"+strconv.FormatInt(topicID, 10)+"/pin?pin="+pin, nil)
	return err
}

func (c *Client) LockThread(ctx context.Context, topicID int64) error {
	_, err := c.do(ctx, http.MethodPost,
		"/api/v2/forums/topics/"+strconv.FormatInt(topicID, 10)+"/lock?lock=1", nil)
	return err
}

func (c *Client) GetThread(ctx context.Context, topicID int64) (ports.ThreadState, error) {
	raw, err := c.do(ctx, http.MethodGet, "/api/v2/forums/topics/"+strconv.FormatInt(topicID, 10), nil)
	if err != nil {
		return ports.ThreadState{}, err
	}
	var payload struct {
		Topic struct {
			ID   int64 `json:"id"`
			Poll *struct {
				Options []struct {
					Text      optionText `json:"text"`
					VoteCount *int       `json:"vote_count"`
				} `json:"options"`
			} `json:"poll"`
		} `json:"topic"`
		Posts []struct {
			ID int64 `json:"id"`
		} `json:"posts"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return ports.ThreadState{}, fmt.Errorf("osuapi: decode topic response: %w", err)
	}

	state := ports.ThreadState{TopicID: payload.Topic.ID, Raw: raw}
	if len(payload.Posts) > 0 {
		state.FirstPostID = payload.Posts[0].ID
	}
	if payload.Topic.Poll != nil {
		poll := &ports.ThreadPoll{}
		for _, option := range payload.Topic.Poll.Options {
			poll.Options = append(poll.Options, ports.ThreadPollOption{
				Text:      option.Text.Value,
				VoteCount: option.VoteCount,
			})
		}
		state.Poll = poll
	}
	return state, nil
}

func (c *Client) SendAnnouncement(ctx context.Context, announcement ports.Announcement) error {
	if len(announcement.Messages) == 0 {
		return nil
	}
	raw, err := c.do(ctx, http.MethodPost, "/api/v2/chat/channels", map[string]any{
		"type":        "ANNOUNCE",
		"name":        announcement.ChannelName,
		"description": announcement.ChannelDescription,
		"target_ids":  announcement.Recipients,
		"message":     announcement.Messages[0],
	})
	if err != nil {
		return err
	}
	if len(announcement.Messages) == 1 {
		return nil
	}

	var payload struct {
		ChannelID int64 `json:"channel_id"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("osuapi: decode channel response: %w", err)
	}
	for _, message := range announcement.Messages[1:] {
		path := "/api/v2/chat/channels/" + strconv.FormatInt(payload.ChannelID, 10) + "/messages"
		if _, err := c.do(ctx, http.MethodPost, path, map[string]any{
			"message":   message,
			"is_action": false,
		}); err != nil {
			return err
		}
	}
	return nil
}

// optionText accepts both the plain string and the {bbcode, html} object
// forms the API uses for poll option labels.
type optionText struct {
	Value string
}

func (t *optionText) UnmarshalJSON(data []byte) error {
	var plain string
	if err := json.Unmarshal(data, &plain); err == nil {
		t.Value = plain
		return nil
	}
	var structured struct {
		BBCode string `json:"bbcode"`
		HTML   string `json:"html"`
	}
	if err := json.Unmarshal(data, &structured); err != nil {
		return err
	}
	if structured.BBCode != "" {
		t.Value = structured.BBCode
		return nil
	}
	t.Value = structured.HTML
	return nil
}

func (c *Client) do(ctx context.Context, method string, path string, body any) (json.RawMessage, error) {
	if _, err := c.EnsureToken(ctx); err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("osuapi: encode %s request: %w", path, err)
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("osuapi: build request: %w", err)
	}
	c.mu.Lock()
	req.Header.Set("Authorization", "Bearer "+c.token)
	c.mu.Unlock()
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("osuapi: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("osuapi: read %s response: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("osuapi: %s %s: status %d", method, path, resp.StatusCode)
	}
	return raw, nil
}
