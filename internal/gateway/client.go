package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client talks to the record store's REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// SetTokenSource wires the session manager in after construction; the
// manager itself needs the client to log in.
func (c *Client) SetTokenSource(ts TokenSource) { c.tokens = ts }

func (c *Client) recordsURL(collection string) string {
	return c.baseURL + "/api/collections/" + url.PathEscape(collection) + "/records"
}

func (c *Client) do(ctx context.Context, method, rawURL string, body any, out any) error {
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode body: %w", err)
		}
		rdr = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, rdr)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if tok := c.tokens.Token(); tok != "" {
			req.Header.Set("Authorization", tok)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil || payload.Message == "" {
		payload.Message = resp.Status
	}
	return &Error{Status: resp.StatusCode, Message: payload.Message}
}

func (c *Client) List(ctx context.Context, collection string, page, perPage int, opts ListOptions) (*ListResult, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("perPage", strconv.Itoa(perPage))
	if opts.Filter != "" {
		q.Set("filter", opts.Filter)
	}
	if opts.Sort != "" {
		q.Set("sort", opts.Sort)
	}
	if opts.Expand != "" {
		q.Set("expand", opts.Expand)
	}

	var res ListResult
	if err := c.do(ctx, http.MethodGet, c.recordsURL(collection)+"?"+q.Encode(), nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) FullList(ctx context.Context, collection string, batch int, opts ListOptions) ([]Record, error) {
	if batch <= 0 {
		batch = 200
	}
	var all []Record
	for page := 1; ; page++ {
		res, err := c.List(ctx, collection, page, batch, opts)
		if err != nil {
			return nil, err
		}
		all = append(all, res.Items...)
		if page >= res.TotalPages || len(res.Items) == 0 {
			return all, nil
		}
	}
}

func (c *Client) GetOne(ctx context.Context, collection, id string) (Record, error) {
	var rec Record
	if err := c.do(ctx, http.MethodGet, c.recordsURL(collection)+"/"+url.PathEscape(id), nil, &rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (c *Client) Create(ctx context.Context, collection string, data map[string]any) (Record, error) {
	var rec Record
	if err := c.do(ctx, http.MethodPost, c.recordsURL(collection), data, &rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (c *Client) Update(ctx context.Context, collection, id string, data map[string]any) (Record, error) {
	var rec Record
	if err := c.do(ctx, http.MethodPatch, c.recordsURL(collection)+"/"+url.PathEscape(id), data, &rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (c *Client) Delete(ctx context.Context, collection, id string) error {
	return c.do(ctx, http.MethodDelete, c.recordsURL(collection)+"/"+url.PathEscape(id), nil, nil)
}

func (c *Client) AuthWithPassword(ctx context.Context, identity, password string) (*Auth, error) {
	body := map[string]any{"identity": identity, "password": password}

	var res struct {
		Token  string `json:"token"`
		Record Record `json:"record"`
	}
	authURL := c.baseURL + "/api/collections/users/auth-with-password"
	if err := c.do(ctx, http.MethodPost, authURL, body, &res); err != nil {
		return nil, err
	}
	return &Auth{Token: res.Token, Record: res.Record}, nil
}

func (c *Client) FileURL(rec Record, filename string, opts ...FileOption) string {
	if filename == "" {
		return ""
	}
	u := c.baseURL + "/api/files/" +
		url.PathEscape(rec.GetString("collectionName")) + "/" +
		url.PathEscape(rec.ID()) + "/" +
		url.PathEscape(filename)

	q := url.Values{}
	for _, opt := range opts {
		opt(q)
	}
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

type FileOption func(url.Values)

// WithThumb requests a thumbnail variant, e.g. "150x150".
func WithThumb(size string) FileOption {
	return func(q url.Values) { q.Set("thumb", size) }
}
