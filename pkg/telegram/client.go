package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"certwatch/pkg/serrors"
)

// DefaultBaseURL is the public Telegram Bot API endpoint.
const DefaultBaseURL = "https://api.telegram.org"

// Client talks to the Telegram Bot API and fulfills the API interface.
// It is safe for concurrent use.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	token       string
	pollTimeout time.Duration // long-poll wait passed to getUpdates
}

// apiResponse is the envelope every Bot API call returns.
type apiResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

// SendMessage delivers text to chatID using Markdown formatting.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	type sendReq struct {
		ChatID    int64  `json:"chat_id"`
		Text      string `json:"text"`
		ParseMode string `json:"parse_mode,omitempty"`
	}

	_, err := c.call(ctx, "sendMessage", sendReq{ChatID: chatID, Text: text, ParseMode: "Markdown"})
	if err != nil {
		return fmt.Errorf("could not send message: %w", err)
	}

	return nil
}

// GetUpdates long-polls for updates starting at offset. The HTTP client's
// timeout must exceed the poll timeout or every call would be cut short.
func (c *Client) GetUpdates(ctx context.Context, offset int64) ([]Update, error) {
	type updatesReq struct {
		Offset         int64    `json:"offset"`
		Timeout        int      `json:"timeout"`
		AllowedUpdates []string `json:"allowed_updates"`
	}

	raw, err := c.call(ctx, "getUpdates", updatesReq{
		Offset:         offset,
		Timeout:        int(c.pollTimeout.Seconds()),
		AllowedUpdates: []string{"message"},
	})
	if err != nil {
		return nil, fmt.Errorf("could not get updates: %w", err)
	}

	var updates []Update
	if err := json.Unmarshal(raw, &updates); err != nil {
		return nil, serrors.Wrap(serrors.ErrMalformed, err, "could not decode updates")
	}

	return updates, nil
}

// call performs one Bot API method invocation and unwraps the response
// envelope, mapping HTTP and API-level failures to semantic kinds.
func (c *Client) call(ctx context.Context, method string, payload any) (json.RawMessage, error) {
	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("could not marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx,
		http.MethodPost,
		c.baseURL+"/bot"+c.token+"/"+method,
		bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, serrors.Wrap(serrors.ErrUnreachable, err, "could not send request")
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read response body: %w", err)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, serrors.With(serrors.ErrRateLimited, "rate limited: %s", strings.TrimSpace(string(b)))
	}

	var envelope apiResponse
	if err := json.Unmarshal(b, &envelope); err != nil {
		return nil, serrors.Wrap(serrors.ErrMalformed, err, "could not decode response")
	}
	if !envelope.OK {
		return nil, serrors.With(serrors.ErrUnavailable, "%s failed: %s", method, envelope.Description)
	}

	return envelope.Result, nil
}

// Ensure Client conforms to the API interface at compile time.
var _ API = (*Client)(nil)

// Options configure a Telegram client.
type Options struct {
	// Token is the bot token issued by BotFather.
	Token string
	// BaseURL overrides the Bot API endpoint; empty means DefaultBaseURL.
	BaseURL string
	// PollTimeout is the long-poll wait for GetUpdates.
	PollTimeout time.Duration
}

// New constructs a Client using the provided http.Client. The http.Client's
// timeout should be larger than Options.PollTimeout.
func New(httpClient *http.Client, opts Options) *Client {
	base := opts.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}

	return &Client{
		httpClient:  httpClient,
		baseURL:     strings.TrimSuffix(base, "/"),
		token:       opts.Token,
		pollTimeout: opts.PollTimeout,
	}
}
