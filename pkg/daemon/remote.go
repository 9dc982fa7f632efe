package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/grovetools/recordsync/errors"
	"github.com/grovetools/recordsync/logging"
	"github.com/grovetools/recordsync/pkg/events"
	"github.com/grovetools/recordsync/pkg/records"
	"github.com/grovetools/recordsync/version"
	"github.com/sirupsen/logrus"
)

// baseURL is the dummy host used for Unix socket HTTP requests.
// The actual connection goes through the Unix socket, not this URL.
const baseURL = "http://unix"

// RemoteClient implements Client by calling the daemon's HTTP API over a Unix socket.
// Subscriptions share one websocket whose messages are republished on a local bus, so handlers
// see events in the daemon's order. The stream is not reconnected once it ends.
type RemoteClient struct {
	httpClient   *http.Client
	streamClient *http.Client
	dialer       *websocket.Dialer
	socketPath   string
	logger       *logrus.Entry

	bus *events.Bus

	mu     sync.Mutex
	conn   *websocket.Conn
	done   chan struct{}
	closed bool
}

// NewRemoteClient creates a new RemoteClient connected to the daemon socket.
func NewRemoteClient(socketPath string) (*RemoteClient, error) {
	dial := func(ctx context.Context, _, _ string) (net.Conn, error) {
		var d net.Dialer
		return d.DialContext(ctx, "unix", socketPath)
	}

	transport := &http.Transport{
		DialContext:     dial,
		MaxIdleConns:    10,
		IdleConnTimeout: 90 * time.Second,
	}

	return &RemoteClient{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   10 * time.Second,
		},
		// Streams stay open, so they must not inherit the request timeout.
		streamClient: &http.Client{Transport: transport},
		dialer: &websocket.Dialer{
			NetDialContext:   dial,
			HandshakeTimeout: 5 * time.Second,
		},
		socketPath: socketPath,
		logger:     logging.NewLogger("daemon-client"),
		bus:        events.NewBus(),
	}, nil
}

// GetAll returns the daemon's mirrored records of type t. It fails with FETCH_FAILED while the
// daemon's own mirror is still loading.
func (c *RemoteClient) GetAll(ctx context.Context, t records.Type) ([]records.Record, error) {
	var body struct {
		Loading bool              `json:"loading"`
		Items   []json.RawMessage `json:"items"`
	}
	if err := c.getJSON(ctx, "/api/records/"+url.PathEscape(t.Kind()), &body); err != nil {
		return nil, err
	}
	// An empty list from a loading daemon is not a snapshot.
	if body.Loading {
		return nil, errors.FetchFailed(string(t), fmt.Errorf("daemon mirror is still loading"))
	}

	out := make([]records.Record, 0, len(body.Items))
	for _, raw := range body.Items {
		rec, err := records.UnmarshalJSON(t, raw)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// GetRecord returns one record from the daemon.
func (c *RemoteClient) GetRecord(ctx context.Context, t records.Type, id string) (records.Record, error) {
	var raw json.RawMessage
	path := "/api/records/" + url.PathEscape(t.Kind()) + "/" + url.PathEscape(id)
	if err := c.getJSON(ctx, path, &raw); err != nil {
		return nil, err
	}
	return records.UnmarshalJSON(t, raw)
}

// Subscribe implements mirror.Source. The first call opens the websocket stream.
func (c *RemoteClient) Subscribe(eventType events.Type, recordType records.Type, handler events.Handler) (events.Subscription, error) {
	if _, err := records.ParseKind(string(recordType)); err != nil {
		return nil, err
	}
	if err := c.ensureStream(); err != nil {
		return nil, err
	}
	return c.bus.Subscribe(eventType, handler, events.FilterByRecordType(recordType)), nil
}

// StreamEvents follows the daemon's Server-Sent Events stream. An empty kind receives every
// record type. The channel is closed when ctx is done or the stream ends.
func (c *RemoteClient) StreamEvents(ctx context.Context, kind records.Type) (<-chan events.Message, error) {
	endpoint := baseURL + "/api/stream"
	if kind != "" {
		endpoint += "?kind=" + url.QueryEscape(kind.Kind())
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to create request")
	}

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return nil, errors.DaemonUnreachable(endpoint, err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, statusError(endpoint, resp)
	}

	ch := make(chan events.Message)
	go func() {
		defer close(ch)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			var msg events.Message
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &msg); err != nil {
				c.logger.WithError(err).Warn("Skipping malformed stream message")
				continue
			}
			select {
			case ch <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

// RunningConfig fetches the daemon's /api/config document.
func (c *RemoteClient) RunningConfig(ctx context.Context) (map[string]interface{}, error) {
	var out map[string]interface{}
	if err := c.getJSON(ctx, "/api/config", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// IsRunning checks if the daemon is responding.
func (c *RemoteClient) IsRunning() bool {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Close ends the event stream and idle connections.
func (c *RemoteClient) Close() error {
	c.mu.Lock()
	c.closed = true
	conn, done := c.conn, c.done
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		conn.Close()
		<-done
	}
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *RemoteClient) ensureStream() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return errors.New(errors.ErrCodeDaemonUnreachable, "client is closed")
	}
	if c.conn != nil {
		return nil
	}

	endpoint := "ws://unix/api/ws"
	conn, _, err := c.dialer.Dial(endpoint, nil)
	if err != nil {
		return errors.DaemonUnreachable(endpoint, err)
	}
	c.conn = conn
	c.done = make(chan struct{})
	go c.readStream(conn, c.done)
	return nil
}

// readStream republishes daemon messages on the local bus until the connection ends.
func (c *RemoteClient) readStream(conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	for {
		var msg events.Message
		if err := conn.ReadJSON(&msg); err != nil {
			c.mu.Lock()
			closing := c.closed
			if c.conn == conn {
				c.conn = nil
			}
			c.mu.Unlock()
			if !closing {
				c.logger.WithError(err).Warn("Daemon event stream ended")
			}
			return
		}

		e, err := msg.Event()
		if err != nil {
			c.logger.WithError(err).Warn("Skipping undecodable event")
			continue
		}
		c.bus.Publish(e)
	}
}

func (c *RemoteClient) getJSON(ctx context.Context, path string, out interface{}) error {
	endpoint := baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to create request")
	}
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.DaemonUnreachable(endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(endpoint, resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to decode daemon response").
			WithDetail("endpoint", endpoint)
	}
	return nil
}

// statusError turns a non-200 response into the SyncError the daemon sent, when it sent one.
func statusError(endpoint string, resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	var se errors.SyncError
	if err := json.Unmarshal(data, &se); err == nil && se.Code != "" {
		return &se
	}
	return errors.New(errors.ErrCodeDaemonUnreachable, fmt.Sprintf("daemon returned status %d", resp.StatusCode)).
		WithDetail("endpoint", endpoint)
}
