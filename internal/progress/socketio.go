package progress

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/vk/streamgrid/internal/ctxlog"
	"github.com/vk/streamgrid/internal/pipeline"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// EventName is the socket.io event carrying pipeline events.
const EventName = "pipeline_event"

// Emitter sends one socket.io event.
type Emitter interface {
	Emit(event string, args ...any)
}

// SocketIOOptions configure Dial.
type SocketIOOptions struct {
	URL                string
	Namespace          string
	InsecureSkipVerify bool
	ConnectTimeout     time.Duration
}

// SocketIOObserver streams pipeline events to a socket.io server. Node
// visits are not sent; progress is sent at most once per step of
// MinProgressStep per node.
type SocketIOObserver struct {
	emitter         Emitter
	close           func()
	MinProgressStep float64

	mu           sync.Mutex
	lastProgress map[string]float64
}

// NewSocketIOObserver wraps an emitter.
func NewSocketIOObserver(e Emitter) *SocketIOObserver {
	return &SocketIOObserver{
		emitter:         e,
		MinProgressStep: 0.1,
		lastProgress:    make(map[string]float64),
	}
}

type socketEmitter struct {
	io *socket.Socket
}

func (e socketEmitter) Emit(event string, args ...any) {
	e.io.Emit(event, args...)
}

// Dial connects to a socket.io server over websocket and returns an observer
// bound to the connection.
func Dial(ctx context.Context, opts SocketIOOptions) (*SocketIOObserver, error) {
	logger := ctxlog.FromContext(ctx).With("observer", "socketio", "url", opts.URL)

	parsedURL, err := url.Parse(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	timeout := opts.ConnectTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	sopts := socket.DefaultOptions()
	sopts.SetPath(parsedURL.Path)
	if opts.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		sopts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	sopts.SetTransports(types.NewSet(transports.WebSocket))

	connected := make(chan error, 1)
	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, sopts)
	io := manager.Socket(opts.Namespace, sopts)

	io.Once(types.EventName("connect"), func(...any) {
		logger.Info("Connected progress stream.", "sid", io.Id())
		connected <- nil
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		connected <- connectError(errs...)
	})
	io.Connect()

	select {
	case err := <-connected:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("waiting for socket.io connection: %w", ctx.Err())
	case <-time.After(timeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s waiting for socket.io connection", timeout)
	}

	o := NewSocketIOObserver(socketEmitter{io: io})
	o.close = func() { io.Disconnect() }
	return o, nil
}

// OnEvent implements pipeline.Observer.
func (o *SocketIOObserver) OnEvent(_ context.Context, ev pipeline.Event) {
	switch ev.Kind {
	case pipeline.EventNodeVisited:
		return
	case pipeline.EventProgress:
		o.mu.Lock()
		last, seen := o.lastProgress[ev.Node]
		if seen && ev.Progress < 1 && ev.Progress-last < o.MinProgressStep {
			o.mu.Unlock()
			return
		}
		o.lastProgress[ev.Node] = ev.Progress
		o.mu.Unlock()
	case pipeline.EventUpdateStarted:
		o.mu.Lock()
		clear(o.lastProgress)
		o.mu.Unlock()
	}
	o.emitter.Emit(EventName, Payload(ev))
}

// Close disconnects the underlying socket, if Dial created it.
func (o *SocketIOObserver) Close() {
	if o.close != nil {
		o.close()
	}
}

// Payload flattens an event into JSON-friendly values.
func Payload(ev pipeline.Event) map[string]any {
	p := map[string]any{
		"kind":   string(ev.Kind),
		"run_id": ev.RunID.String(),
		"time":   ev.Time.UTC().Format(time.RFC3339Nano),
	}
	if ev.Pass != "" {
		p["pass"] = string(ev.Pass)
	}
	if ev.Node != "" {
		p["node"] = ev.Node
		p["node_kind"] = ev.NodeKind
	}
	if ev.Request != nil {
		p["request"] = ev.Request.String()
	}
	if ev.Duration > 0 {
		p["duration_ms"] = float64(ev.Duration) / float64(time.Millisecond)
	}
	if ev.Kind == pipeline.EventProgress {
		p["progress"] = ev.Progress
	}
	if ev.Err != nil {
		p["error"] = ev.Err.Error()
	}
	if len(ev.Targets) > 0 {
		p["targets"] = ev.Targets
	}
	if r := ev.Result; r != nil {
		p["executed"] = r.Executed
		p["reused"] = r.Reused
		p["skipped"] = r.Skipped
		p["failed"] = r.Failed
		p["short_circuited"] = r.ShortCircuited
	}
	return p
}

// connectError turns the arguments of a connect_error event into an error.
func connectError(args ...any) error {
	if len(args) == 0 || args[0] == nil {
		return errors.New("connection refused")
	}
	if err, ok := args[0].(error); ok {
		return err
	}
	return fmt.Errorf("%v", args[0])
}
