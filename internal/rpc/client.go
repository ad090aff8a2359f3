package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/oklog/ulid/v2"
	"github.com/tmaxmax/go-sse"

	"github.com/wagiedev/mcp-bridge-go/internal/bus"
	bridgeerrors "github.com/wagiedev/mcp-bridge-go/internal/errors"
)

// HTTPCaller issues JSON-RPC calls against a remote dispatcher endpoint
// and streams its push notifications. A fresh session identity is minted
// per caller and sent on every request.
type HTTPCaller struct {
	log        *slog.Logger
	endpoint   string
	headers    map[string]string
	httpClient *http.Client
	sessionID  string

	lifeCtx context.Context
	cancel  context.CancelFunc
}

// NewHTTPCaller creates a caller for the given endpoint. A nil httpClient
// falls back to http.DefaultClient; headers are sent verbatim on every
// request alongside the session header.
func NewHTTPCaller(log *slog.Logger, endpoint string, httpClient *http.Client, headers map[string]string) *HTTPCaller {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	lifeCtx, cancel := context.WithCancel(context.Background())

	return &HTTPCaller{
		log:        log.With("component", "rpc"),
		endpoint:   endpoint,
		headers:    headers,
		httpClient: httpClient,
		sessionID:  ulid.Make().String(),
		lifeCtx:    lifeCtx,
		cancel:     cancel,
	}
}

// SessionID returns the identity this caller presents to the remote side.
func (c *HTTPCaller) SessionID() string {
	return c.sessionID
}

// Call issues a single JSON-RPC request and returns the remote result.
// Network, status, and decode failures surface as TransportError; error
// objects returned by the remote dispatcher are rebuilt into their
// original domain error types.
func (c *HTTPCaller) Call(ctx context.Context, method string, params map[string]any) (map[string]any, error) {
	body, err := json.Marshal(Request{
		JSONRPC: Version,
		ID:      ulid.Make().String(),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return nil, &bridgeerrors.TransportError{Method: method, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &bridgeerrors.TransportError{Method: method, Err: err}
	}

	c.applyHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &bridgeerrors.TransportError{Method: method, Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, &bridgeerrors.TransportError{
			Method: method,
			Err:    fmt.Errorf("unexpected status %d", res.StatusCode),
		}
	}

	var resp Response
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return nil, &bridgeerrors.TransportError{Method: method, Err: err}
	}

	if resp.Error != nil {
		return nil, errorFromWire(resp.Error)
	}

	return resp.Result, nil
}

// Notifications opens the remote notification stream and returns a channel
// of decoded notifications. The channel closes when ctx ends, the caller
// is closed, or the stream breaks.
func (c *HTTPCaller) Notifications(ctx context.Context) (<-chan bus.Notification, error) {
	select {
	case <-c.lifeCtx.Done():
		return nil, bridgeerrors.ErrClientClosed
	default:
	}

	streamCtx, cancel := context.WithCancel(ctx)
	context.AfterFunc(c.lifeCtx, cancel)

	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		cancel()

		return nil, &bridgeerrors.TransportError{Method: "notifications", Err: err}
	}

	c.applyHeaders(req)
	req.Header.Set("Accept", "text/event-stream")

	res, err := c.httpClient.Do(req)
	if err != nil {
		cancel()

		return nil, &bridgeerrors.TransportError{Method: "notifications", Err: err}
	}

	if res.StatusCode != http.StatusOK {
		res.Body.Close()
		cancel()

		return nil, &bridgeerrors.TransportError{
			Method: "notifications",
			Err:    fmt.Errorf("unexpected status %d", res.StatusCode),
		}
	}

	ch := make(chan bus.Notification)

	go func() {
		defer close(ch)
		defer res.Body.Close()
		defer cancel()

		for ev, err := range sse.Read(res.Body, nil) {
			if err != nil {
				if streamCtx.Err() == nil {
					c.log.Debug("Notification stream ended", "error", err)
				}

				return
			}

			var n Notification
			if err := json.Unmarshal([]byte(ev.Data), &n); err != nil {
				c.log.Debug("Skipping undecodable notification", "error", err)

				continue
			}

			select {
			case <-streamCtx.Done():
				return
			case ch <- bus.Notification{Method: n.Method, Params: n.Params}:
			}
		}
	}()

	return ch, nil
}

// Close aborts any open notification streams. In-flight calls governed by
// their own contexts are unaffected.
func (c *HTTPCaller) Close() error {
	c.cancel()

	return nil
}

func (c *HTTPCaller) applyHeaders(req *http.Request) {
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	req.Header.Set(SessionHeader, c.sessionID)
}
