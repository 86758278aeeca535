package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Aaron-1990/line-routing/pkg/routing"
)

// apiClient is a thin wrapper over the routingd HTTP API.
type apiClient struct {
	baseURL string
	token   string
	apiKey  string
	http    *http.Client
}

func newAPIClient(baseURL, token, apiKey string, timeout time.Duration) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

// apiError is a non-2xx response. The body is kept so callers can decode
// structured payloads such as a rejected write's validation result.
type apiError struct {
	Status int
	Body   []byte
}

func (e *apiError) Error() string {
	var eb errorBody
	if json.Unmarshal(e.Body, &eb) == nil && eb.Message != "" {
		return fmt.Sprintf("%s (HTTP %d)", eb.Message, e.Status)
	}
	return fmt.Sprintf("HTTP %d: %s", e.Status, strings.TrimSpace(string(e.Body)))
}

// do sends one request and decodes the JSON response into out when out
// is non-nil. Non-2xx responses come back as an *apiError.
func (c *apiClient) do(method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	} else if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return &apiError{Status: resp.StatusCode, Body: data}
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

// Wire shapes of the routingd API. Kept local so the CLI stays a plain
// HTTP client of the server rather than linking its internals.

type stepsPayload struct {
	Steps []routing.Step `json:"steps"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
	ExpiresIn int64  `json:"expires_in"`
	Username  string `json:"username"`
	Role      string `json:"role"`
}

type modelsResponse struct {
	Models []string `json:"models"`
	Count  int      `json:"count"`
}

type orderResponse struct {
	ModelID string   `json:"modelId"`
	Order   []string `json:"order"`
}

type batchesResponse struct {
	ModelID string     `json:"modelId"`
	Batches [][]string `json:"batches"`
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}
