// Package ollama is the client for the text-generation backend. A single
// bounded-timeout call, no retries: any failure is reported as a typed
// *Error so the caller can choose the fallback path instead of unwinding
// through exception-style control flow.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// defaultMaxTokens bounds the generated output length.
const defaultMaxTokens = 256

// Kind classifies a generation failure.
type Kind string

const (
	KindTransport Kind = "transport"
	KindTimeout   Kind = "timeout"
	KindMalformed Kind = "malformed-response"
)

// Error is a typed generation failure.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("ollama: %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Client talks to an Ollama-compatible /api/generate endpoint with
// deterministic sampling (temperature 0) and a fixed output cap.
type Client struct {
	baseURL    string
	model      string
	maxTokens  int
	httpClient *http.Client
}

// New creates a client for the backend at baseURL. Every Generate call is
// bounded by timeout; when it fires the failure is reported as
// KindTimeout and handled by the fallback path, there is no mid-call
// cancellation beyond that.
func New(baseURL, model string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		maxTokens:  defaultMaxTokens,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type generateRequest struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
	Stream      bool    `json:"stream"`
}

// generateResponse covers both accepted response shapes: a top-level
// response string, or a list of result objects each carrying its text in
// one of several fields.
type generateResponse struct {
	Response string           `json:"response"`
	Results  []generateResult `json:"results"`
}

type generateResult struct {
	Response string `json:"response"`
	Content  string `json:"content"`
	Text     string `json:"text"`
}

// Generate sends the prompt and returns the extracted answer text. It
// never returns a partial result: on any transport error, non-2xx status
// or body that yields no text, the returned error is a *Error with the
// matching Kind.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(generateRequest{
		Model:       c.model,
		Prompt:      prompt,
		MaxTokens:   c.maxTokens,
		Temperature: 0,
		Stream:      false,
	})
	if err != nil {
		return "", &Error{Kind: KindMalformed, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return "", &Error{Kind: KindTransport, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return "", &Error{Kind: KindTimeout, Err: err}
		}
		return "", &Error{Kind: KindTransport, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", &Error{Kind: KindTransport, Err: fmt.Errorf("backend returned status %d", resp.StatusCode)}
	}

	var body generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", &Error{Kind: KindMalformed, Err: fmt.Errorf("decoding response body: %w", err)}
	}

	text := extractText(body)
	if text == "" {
		return "", &Error{Kind: KindMalformed, Err: errors.New("response carries no answer text")}
	}
	return text, nil
}

// extractText prefers the single top-level response field; otherwise it
// collects the first non-empty of response/content/text from each result
// object, joined by blank lines.
func extractText(body generateResponse) string {
	if s := strings.TrimSpace(body.Response); s != "" {
		return s
	}
	var parts []string
	for _, r := range body.Results {
		for _, candidate := range []string{r.Response, r.Content, r.Text} {
			if s := strings.TrimSpace(candidate); s != "" {
				parts = append(parts, s)
				break
			}
		}
	}
	return strings.Join(parts, "\n\n")
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
