// Package rest talks to a PostgREST endpoint (as exposed by Supabase) and
// adapts it to jobs.Store.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

// DefaultTimeout applies to every REST call when the caller does not supply
// an http.Client.
const DefaultTimeout = 10 * time.Second

const maxErrorBody = 4 << 10

// StatusError reports a response with status >= 400.
type StatusError struct {
	Method     string
	Table      string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Table, e.StatusCode, e.Body)
}

// Client is a minimal PostgREST client authenticated with an API key.
type Client struct {
	baseURL string
	key     string
	http    *http.Client
}

// NewClient builds a client for baseURL (the project URL, without /rest/v1).
// A nil httpClient gets one with DefaultTimeout.
func NewClient(baseURL, key string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		key:     key,
		http:    httpClient,
	}
}

// Select returns the rows of table matching filters, projected to columns.
// Filters use PostgREST operator syntax, e.g. {"source_url": "eq.https://..."}.
func (c *Client) Select(ctx context.Context, table string, filters map[string]string, columns string) ([]map[string]any, error) {
	if columns == "" {
		columns = "*"
	}
	params := url.Values{}
	params.Set("select", columns)
	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		params.Set(k, filters[k])
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.tableURL(table)+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build select request: %w", err)
	}
	c.authorize(req)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", table, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if err := checkStatus(resp, http.MethodGet, table); err != nil {
		return nil, err
	}

	var rows []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode select %s: %w", table, err)
	}
	return rows, nil
}

// Insert posts one row to table without asking for it back.
func (c *Client) Insert(ctx context.Context, table string, row any) error {
	payload, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("marshal %s row: %w", table, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tableURL(table), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build insert request: %w", err)
	}
	c.authorize(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=minimal")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("insert %s: %w", table, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if err := checkStatus(resp, http.MethodPost, table); err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *Client) tableURL(table string) string {
	return c.baseURL + "/rest/v1/" + url.PathEscape(table)
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("apikey", c.key)
	req.Header.Set("Authorization", "Bearer "+c.key)
}

func checkStatus(resp *http.Response, method, table string) error {
	if resp.StatusCode < http.StatusBadRequest {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{
		Method:     method,
		Table:      table,
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(body)),
	}
}
