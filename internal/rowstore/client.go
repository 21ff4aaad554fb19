package rowstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/chemo-it/backoffice/config"
	"go.uber.org/zap"
)

// restPrefix is the REST root of the hosted row store.
const restPrefix = "/rest/v1"

// Result is the outcome of a row-store call that reached the remote end.
// Data holds the raw JSON response body (empty on 204 responses) and
// StatusCode the HTTP status. Transport-level failures are reported as an
// error from Execute with a zero Result instead.
type Result struct {
	Data       json.RawMessage
	StatusCode int
}

// ErrorMessage extracts the "message" field of a row-store error body, if
// present. The store reports constraint violations there.
func (r Result) ErrorMessage() string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(r.Data, &payload); err != nil {
		return ""
	}
	return payload.Message
}

// Client issues authenticated CRUD calls against the row store's REST
// interface. It is stateless beyond its configuration and safe for
// concurrent use.
type Client struct {
	baseURL string
	key     string
	http    *http.Client
	log     *zap.Logger
}

func New(cfg config.RowStoreConfig, log *zap.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("row store base URL is required")
	}
	if strings.TrimSpace(cfg.ServiceRoleKey) == "" {
		return nil, errors.New("row store service role key is required")
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/") + restPrefix,
		key:     cfg.ServiceRoleKey,
		http:    &http.Client{Timeout: cfg.Timeout},
		log:     log,
	}, nil
}

// Execute performs one request against the row store. method is an HTTP
// verb, path the table path with its filter predicate (e.g. "/users?id=eq.5"),
// body an optional JSON payload for writes. When returnRepresentation is
// true the store is asked to return the written row in the response body.
//
// Both the apikey and Authorization headers must carry the service-role key:
// the bearer token is what bypasses row-level security, the apikey alone
// does not.
func (c *Client) Execute(ctx context.Context, method, path string, body any, returnRepresentation bool) (Result, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return Result{}, fmt.Errorf("encode row store body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return Result{}, fmt.Errorf("build row store request: %w", err)
	}

	req.Header.Set("apikey", c.key)
	req.Header.Set("Authorization", "Bearer "+c.key)
	req.Header.Set("Content-Type", "application/json")
	if returnRepresentation {
		req.Header.Set("Prefer", "return=representation")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("row store request failed",
			zap.String("method", method),
			zap.Error(err),
		)
		return Result{}, fmt.Errorf("row store request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("read row store response: %w", err)
	}

	return Result{Data: data, StatusCode: resp.StatusCode}, nil
}
