// Package llmclient streams completions from a local Ollama-compatible model
// server. The wire format is newline-delimited JSON envelopes
// ({"model","created_at","response","done"}), not the OpenAI-style SSE
// framing a hosted API would use, so each line is a complete JSON value
// rather than a "data: " prefixed chunk.
package llmclient

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/coreagent/coreagent/pkg/agentcore"
	"github.com/coreagent/coreagent/pkg/agentutil"
)

// Params controls one generation request.
type Params struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// Fragment is one piece of a streamed response, delivered to the caller as
// soon as it is decoded off the wire.
type Fragment struct {
	Text string
	Done bool
	// FinishReason is set only on the final fragment.
	FinishReason string
	// Err is set on the final fragment when the stream ended because of a
	// mid-stream read failure rather than a clean "done" line.
	Err error
}

// envelope mirrors the Ollama /api/generate streaming line shape.
type envelope struct {
	Model     string `json:"model"`
	CreatedAt string `json:"created_at"`
	Response  string `json:"response"`
	Done      bool   `json:"done"`
	// DoneReason is populated on the final line by servers that send it;
	// it is optional and defaults to "stop" when absent.
	DoneReason string `json:"done_reason"`
}

// Client streams generations from an Ollama-compatible HTTP endpoint.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	retryAttempts int
}

func New(baseURL string, retryAttempts int) *Client {
	return &Client{
		baseURL:       baseURL,
		httpClient:    &http.Client{Timeout: 0},
		retryAttempts: retryAttempts,
	}
}

// Stream issues a generation request and returns a channel of Fragments.
// The channel is closed when the stream completes, the context is
// canceled, or an unrecoverable transport error occurs (in which case the
// returned error is non-nil and no channel is returned).
//
// The HTTP connect/initial-response phase is retried with backoff (through
// agentutil.DoWithRetry) since that failure mode is the common
// "server not warmed up yet" case; once bytes start streaming, a mid-stream
// read failure is surfaced as a StreamInterrupted CoreError on the channel's
// final fragment rather than retried, since replaying a partial generation
// from scratch would duplicate already-delivered text.
func (c *Client) Stream(ctx context.Context, prompt string, params Params) (<-chan Fragment, error) {
	if c.baseURL == "" {
		return nil, agentcore.New(agentcore.KindTransport, "no model server base URL configured", nil)
	}

	retry := agentutil.ExponentialBackoff(c.retryAttempts, 30*time.Second, 500*time.Millisecond)

	resp, err := agentutil.DoWithRetry(ctx, retry, func(attemptCtx context.Context) (*http.Response, error) {
		return c.dial(attemptCtx, prompt, params)
	})
	if err != nil {
		return nil, agentcore.New(agentcore.KindTransport, "failed to reach model server", err)
	}

	out := make(chan Fragment, 16)
	go c.pump(resp, out)
	return out, nil
}

func (c *Client) dial(ctx context.Context, prompt string, params Params) (*http.Response, error) {
	body := map[string]any{
		"model":  params.Model,
		"prompt": prompt,
		"stream": true,
		"options": map[string]any{
			"temperature": params.Temperature,
		},
	}
	if params.MaxTokens > 0 {
		body["options"].(map[string]any)["num_predict"] = params.MaxTokens
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		detail, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("model server returned status %d: %s", resp.StatusCode, string(detail))
	}
	return resp, nil
}

func (c *Client) pump(resp *http.Response, out chan<- Fragment) {
	defer close(out)
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var env envelope
		if err := json.Unmarshal(line, &env); err != nil {
			// A malformed line mid-stream does not abort the whole
			// generation; it is skipped and the stream continues.
			continue
		}

		frag := Fragment{Text: env.Response, Done: env.Done}
		if env.Done {
			reason := env.DoneReason
			if reason == "" {
				reason = "stop"
			}
			frag.FinishReason = reason
		}
		out <- frag

		if env.Done {
			return
		}
	}

	if err := scanner.Err(); err != nil {
		out <- Fragment{
			Done:         true,
			FinishReason: "error",
			Err:          agentcore.New(agentcore.KindStreamInterrupted, "model server stream ended unexpectedly", err),
		}
	}
}
