package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/agentstation/notesync/pkg/errors"
	"github.com/agentstation/notesync/pkg/logging"
)

// DefaultBaseURL is the public Notion API endpoint.
const DefaultBaseURL = "https://api.notion.com"

// DefaultAPIVersion is the Notion-Version header value the client pins to.
const DefaultAPIVersion = "2022-06-28"

// ClientOptions configures a Client. Zero values get sensible defaults.
type ClientOptions struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	APIVersion string
	UserAgent  string
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// Client is a typed HTTP client for the Notion API. Requests that fail with
// 429 or 5xx are retried with capped exponential backoff, honoring the
// Retry-After header when present.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	apiVersion string
	userAgent  string
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

// NewClient creates a Notion API client from options.
func NewClient(opts ClientOptions) (*Client, error) {
	token := strings.TrimSpace(opts.Token)
	if token == "" {
		return nil, errors.ErrTokenRequired
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	apiVersion := strings.TrimSpace(opts.APIVersion)
	if apiVersion == "" {
		apiVersion = DefaultAPIVersion
	}
	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	baseDelay := opts.BaseDelay
	if baseDelay <= 0 {
		baseDelay = 100 * time.Millisecond
	}
	maxDelay := opts.MaxDelay
	if maxDelay <= 0 {
		maxDelay = 2 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: httpClient,
		apiVersion: apiVersion,
		userAgent:  strings.TrimSpace(opts.UserAgent),
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		maxDelay:   maxDelay,
	}, nil
}

// RetrievePage fetches a page by id. A page that no longer resolves returns
// an error matching errors.ErrNotFound; callers treat that as "never
// synced", not a failure.
func (c *Client) RetrievePage(ctx context.Context, pageID string) (*Page, error) {
	var page Page
	if err := c.do(ctx, http.MethodGet, "/v1/pages/"+url.PathEscape(pageID), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

type pageProperties struct {
	Title titleProperty `json:"title"`
}

type titleProperty struct {
	Title []RichText `json:"title"`
}

type createPageRequest struct {
	Parent     Parent         `json:"parent"`
	Properties pageProperties `json:"properties"`
	Children   []Block        `json:"children,omitempty"`
}

// CreatePage creates a page titled title under parentID and writes blocks as
// its content. The first MaxChildrenPerRequest blocks go with the creation
// call; remaining chunks are appended sequentially, in original order.
func (c *Client) CreatePage(ctx context.Context, parentID, title string, blocks []Block) (string, error) {
	chunks := Chunk(blocks)

	req := createPageRequest{
		Parent: Parent{Type: "page_id", PageID: parentID},
		Properties: pageProperties{
			Title: titleProperty{Title: []RichText{Text(title)}},
		},
	}
	if len(chunks) > 0 {
		req.Children = chunks[0]
	}

	var page Page
	if err := c.do(ctx, http.MethodPost, "/v1/pages", req, &page); err != nil {
		return "", err
	}

	if len(chunks) > 1 {
		for _, chunk := range chunks[1:] {
			if err := c.AppendChildren(ctx, page.ID, chunk); err != nil {
				return "", err
			}
		}
	}

	logging.Ctx(ctx).Debug().
		Str("page_id", page.ID).
		Str("title", title).
		Int("blocks", len(blocks)).
		Msg("Created page")
	return page.ID, nil
}

type appendChildrenRequest struct {
	Children []Block `json:"children"`
}

// AppendChildren appends blocks to an existing page or block.
func (c *Client) AppendChildren(ctx context.Context, blockID string, blocks []Block) error {
	req := appendChildrenRequest{Children: blocks}
	return c.do(ctx, http.MethodPatch, "/v1/blocks/"+url.PathEscape(blockID)+"/children", req, nil)
}

// ListChildren returns one page of a block's direct children. Pass the
// returned NextCursor to continue while HasMore is set.
func (c *Client) ListChildren(ctx context.Context, blockID, cursor string) (Children, error) {
	endpoint := "/v1/blocks/" + url.PathEscape(blockID) + "/children?page_size=100"
	if cursor != "" {
		endpoint += "&start_cursor=" + url.QueryEscape(cursor)
	}
	var children Children
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &children); err != nil {
		return Children{}, err
	}
	return children, nil
}

type trashPageRequest struct {
	Archived bool `json:"archived"`
}

// Trash marks a page as trashed. The page's content is not verified first.
func (c *Client) Trash(ctx context.Context, pageID string) error {
	req := trashPageRequest{Archived: true}
	if err := c.do(ctx, http.MethodPatch, "/v1/pages/"+url.PathEscape(pageID), req, nil); err != nil {
		return err
	}
	logging.Ctx(ctx).Debug().Str("page_id", pageID).Msg("Trashed page")
	return nil
}

// notionErrorBody is the JSON error envelope the API returns.
type notionErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload, target any) error {
	var bodyBytes []byte
	if payload != nil {
		var err error
		bodyBytes, err = json.Marshal(payload)
		if err != nil {
			return errors.WrapParse("json", "request body", err)
		}
	}
	requestID := uuid.NewString()

	for attempt := 0; ; attempt++ {
		var reqBody io.Reader
		if bodyBytes != nil {
			reqBody = bytes.NewReader(bodyBytes)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reqBody)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Notion-Version", c.apiVersion)
		req.Header.Set("Accept", "application/json")
		req.Header.Set("X-Request-Id", requestID)
		if bodyBytes != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.userAgent != "" {
			req.Header.Set("User-Agent", c.userAgent)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if attempt < c.maxRetries {
				if waitErr := sleepContext(ctx, c.retryDelay(attempt+1, "")); waitErr != nil {
					return waitErr
				}
				continue
			}
			return err
		}

		respBody, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return readErr
		}

		if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
			if target == nil {
				return nil
			}
			if err := json.Unmarshal(respBody, target); err != nil {
				return errors.WrapParse("json", method+" "+endpoint, err)
			}
			return nil
		}

		if (resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500) && attempt < c.maxRetries {
			logging.Ctx(ctx).Debug().
				Int("status", resp.StatusCode).
				Int("attempt", attempt+1).
				Str("endpoint", endpoint).
				Msg("Retrying request")
			if waitErr := sleepContext(ctx, c.retryDelay(attempt+1, resp.Header.Get("Retry-After"))); waitErr != nil {
				return waitErr
			}
			continue
		}

		apiErr := &errors.APIError{
			StatusCode: resp.StatusCode,
			Endpoint:   endpoint,
			Message:    strings.TrimSpace(string(respBody)),
		}
		var parsed notionErrorBody
		if json.Unmarshal(respBody, &parsed) == nil {
			apiErr.Code = parsed.Code
			if strings.TrimSpace(parsed.Message) != "" {
				apiErr.Message = parsed.Message
			}
		}
		return apiErr
	}
}

func (c *Client) retryDelay(attempt int, retryAfterHeader string) time.Duration {
	if retryAfter := parseRetryAfterSeconds(retryAfterHeader); retryAfter > 0 {
		if retryAfter > c.maxDelay {
			return c.maxDelay
		}
		return retryAfter
	}
	delay := c.baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= c.maxDelay {
			return c.maxDelay
		}
	}
	if delay > c.maxDelay {
		return c.maxDelay
	}
	return delay
}

func parseRetryAfterSeconds(header string) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

func sleepContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
