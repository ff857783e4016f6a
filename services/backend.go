package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"bnpl-checkout/shared"
)

var ErrNotConfigured = errors.New("backend is not configured")

// StatusError is returned for a non-2xx upstream response.
type StatusError struct {
	Method string
	URL    string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.URL, e.Code)
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}

// BackendClient calls the underwriting backend. Every request carries the
// x-api-key header.
type BackendClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewBackendClient(baseURL, apiKey string, httpClient *http.Client) *BackendClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 20 * time.Second}
	}
	return &BackendClient{baseURL: baseURL, apiKey: apiKey, httpClient: httpClient}
}

func (c *BackendClient) BaseURL() string { return c.baseURL }

func (c *BackendClient) do(ctx context.Context, method, path string, body any) ([]byte, error) {
	if c.baseURL == "" {
		return nil, ErrNotConfigured
	}
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Method: method, URL: path, Code: resp.StatusCode}
	}
	return data, nil
}

// CreateLinkToken creates a bank-link token.
func (c *BackendClient) CreateLinkToken(ctx context.Context) (string, error) {
	data, err := c.do(ctx, http.MethodPost, "/api/create_link_token", struct{}{})
	if err != nil {
		return "", err
	}
	var out struct {
		LinkToken string `json:"link_token"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("decode link token: %w", err)
	}
	if out.LinkToken == "" {
		return "", errors.New("empty link token")
	}
	return out.LinkToken, nil
}

// SetAccessToken exchanges a bank-link public token.
func (c *BackendClient) SetAccessToken(ctx context.Context, publicToken string) error {
	_, err := c.do(ctx, http.MethodPost, "/api/set_access_token", map[string]string{"publicToken": publicToken})
	return err
}

// FetchVerificationStatus polls the partner status endpoint for a user. It
// returns the raw payload and whether it carries any data.
func (c *BackendClient) FetchVerificationStatus(ctx context.Context, source shared.Source, userID string) (json.RawMessage, bool, error) {
	path := "/underwriting/get-privy"
	if source != "" {
		path = "/underwriting/get-" + string(source) + "-or-privy"
	}
	data, err := c.do(ctx, http.MethodGet, path+"?privyId="+url.QueryEscape(userID), nil)
	if err != nil {
		return nil, false, err
	}
	return json.RawMessage(data), HasData(data), nil
}

// FetchPortfolio returns the raw portfolio response for wallet addresses.
func (c *BackendClient) FetchPortfolio(ctx context.Context, addresses []string) (json.RawMessage, error) {
	data, err := c.do(ctx, http.MethodPost, "/debank/portfolio", map[string][]string{"walletAddresses": addresses})
	if err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}

// FetchScanAccessToken issues an access token for the identity-scan widget.
func (c *BackendClient) FetchScanAccessToken(ctx context.Context) (string, error) {
	data, err := c.do(ctx, http.MethodGet, "/zkme/access-token", nil)
	if err != nil {
		return "", err
	}
	var out struct {
		AccessToken string `json:"accessToken"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("decode scan token: %w", err)
	}
	if out.AccessToken == "" {
		return "", errors.New("empty scan access token")
	}
	return out.AccessToken, nil
}

// HasData reports whether a JSON payload is a non-empty array or object.
func HasData(data []byte) bool {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return false
	}
	switch t := v.(type) {
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return false
	}
}
