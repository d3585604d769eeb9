package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

// client is the per-provider transport behind the gateway.
type client interface {
	complete(ctx context.Context, req Request) (string, error)
	stream(ctx context.Context, req Request) (*Stream, error)
	probe(ctx context.Context) error
}

type httpCall struct {
	provider  string
	method    string
	endpoint  string
	headers   map[string]string
	body      any
	streaming bool
}

// do sends the call and returns the response for any 2xx status. On
// error the body is already closed; otherwise the caller owns it.
func do(ctx context.Context, hc *http.Client, call httpCall) (*http.Response, error) {
	var body io.Reader
	if call.body != nil {
		data, err := json.Marshal(call.body)
		if err != nil {
			return nil, fmt.Errorf("%s: marshal request: %w", call.provider, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, call.method, call.endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: create request: %w", ErrProvider, call.provider, err)
	}
	if call.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if call.streaming {
		req.Header.Set("Accept", "text/event-stream")
	}
	for k, v := range call.headers {
		req.Header.Set(k, v)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrProvider, call.provider, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, readError(call.provider, resp)
	}
	return resp, nil
}

// readError extracts error.message from the common provider error shape,
// falling back to the raw body.
func readError(provider string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	msg := gjson.GetBytes(body, "error.message").String()
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	return &StatusError{
		Provider:   provider,
		StatusCode: resp.StatusCode,
		Message:    msg,
	}
}

// readJSON reads a complete response body and checks it is valid JSON.
func readJSON(provider string, resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: read response: %w", ErrProvider, provider, err)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: %s: malformed response", ErrProvider, provider)
	}
	return body, nil
}

// sseStream adapts an SSE body into a Stream. extract returns the text
// carried by one event, or done=true when the provider signals the end.
func sseStream(provider string, body io.ReadCloser, extract func(ev sseEvent) (text string, done bool, err error)) *Stream {
	scanner := newSSEScanner(body)

	return newStream(func() (string, error) {
		if !scanner.Next() {
			if err := scanner.Err(); err != nil {
				return "", fmt.Errorf("%w: %s: read stream: %w", ErrProvider, provider, err)
			}
			return "", io.EOF
		}

		text, done, err := extract(scanner.Event())
		if err != nil {
			return "", err
		}
		if done {
			return "", io.EOF
		}
		return text, nil
	}, body)
}

func streamError(provider, data string) error {
	if msg := gjson.Get(data, "error.message"); msg.Exists() {
		return fmt.Errorf("%w: %s: %s", ErrProvider, provider, msg.String())
	}
	return nil
}
