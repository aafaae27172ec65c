package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"netifmgr/internal/pkg/logging"
	"netifmgr/internal/pkg/version"
	"netifmgr/internal/port"
	"netifmgr/internal/types"

	"github.com/gorilla/websocket"
)

// Client talks to a running server. It implements port.InterfaceService so commands can
// work against a remote daemon the same way they work in process.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Ensure Client implements the InterfaceService port
var _ port.InterfaceService = (*Client)(nil)

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// NewClient creates a client for the server at baseURL (e.g. "http://127.0.0.1:8740").
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RemoteError is a failure reported by the server. It unwraps to a *types.Error of the
// same kind so errors.Is and types.KindOf work across the wire.
type RemoteError struct {
	StatusCode int
	Response   ErrorResponse
}

func (e *RemoteError) Error() string {
	return e.Response.Error
}

func (e *RemoteError) Unwrap() error {
	if e.Response.Kind == "" {
		return nil
	}
	return &types.Error{
		Kind:   types.Kind(e.Response.Kind),
		Device: e.Response.Device,
		Field:  e.Response.Field,
		Value:  e.Response.Value,
	}
}

func (c *Client) ListInterfaces(ctx context.Context) ([]types.HardwareInterface, error) {
	var hw []types.HardwareInterface
	if err := c.do(ctx, http.MethodGet, "/api/interfaces", nil, &hw); err != nil {
		return nil, err
	}
	return hw, nil
}

func (c *Client) AddLogicInterface(ctx context.Context, payload types.AddPayload) (types.LogicInterface, error) {
	var created types.LogicInterface
	path := "/api/interfaces/" + url.PathEscape(payload.Device) + "/logic"
	body := map[string]string{
		"name":    payload.Name,
		"method":  payload.Method,
		"ip":      payload.IP,
		"mask":    payload.Mask,
		"gateway": payload.Gateway,
	}
	if err := c.do(ctx, http.MethodPost, path, body, &created); err != nil {
		return types.LogicInterface{}, err
	}
	return created, nil
}

func (c *Client) UpdateLogicInterface(ctx context.Context, payload types.UpdatePayload) (types.LogicInterface, error) {
	var updated types.LogicInterface
	if err := c.do(ctx, http.MethodPut, "/api/logic", payload, &updated); err != nil {
		return types.LogicInterface{}, err
	}
	return updated, nil
}

func (c *Client) RemoveLogicInterface(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodDelete, "/api/logic/"+url.PathEscape(name), nil, nil)
}

// Subscribe opens the websocket feed. Connection failures are logged and end the feed.
func (c *Client) Subscribe() port.Subscription {
	ctx, cancel := context.WithCancel(context.Background())
	sub := &remoteSubscription{ch: make(chan []types.HardwareInterface, 1), cancel: cancel}
	go sub.run(ctx, "ws"+strings.TrimPrefix(c.baseURL, "http")+"/api/events")
	return sub
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", version.UserAgent())
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		remote := &RemoteError{StatusCode: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(&remote.Response); err != nil || remote.Response.Error == "" {
			remote.Response.Error = fmt.Sprintf("server returned %s", resp.Status)
		}
		return remote
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

type remoteSubscription struct {
	ch     chan []types.HardwareInterface
	cancel context.CancelFunc
}

func (s *remoteSubscription) Updates() <-chan []types.HardwareInterface {
	return s.ch
}

func (s *remoteSubscription) Close() {
	s.cancel()
}

func (s *remoteSubscription) run(ctx context.Context, wsURL string) {
	defer close(s.ch)
	logger := logging.WithComponent("api-client")

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to event stream")
		return
	}
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() == nil {
				logger.WithError(err).Warn("Event stream closed")
			}
			return
		}
		if msg.Topic != TopicNetworkUpdate {
			continue
		}
		select {
		case s.ch <- msg.Data:
		default:
			select {
			case <-s.ch:
			default:
			}
			s.ch <- msg.Data
		}
	}
}
