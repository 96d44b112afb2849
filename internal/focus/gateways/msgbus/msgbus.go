package msgbus

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"

	"focusgate/internal/focus/common/log"
	"focusgate/internal/focus/services/guard"
)

// Service is what the transport needs from the application: the guard's
// commands plus the tracker's activity sink.
type Service interface {
	CheckURL(url string) (bool, string)
	StartBreak(ctx context.Context, durationMin int, resumeURL string) (int64, error)
	StopBreak(ctx context.Context) error
	BlockNow(ctx context.Context) error
	UnblockNow(ctx context.Context) error
	UnblockURL(ctx context.Context, pattern string) error
	Reload(ctx context.Context) error
	Status() guard.Status
	SetActiveURL(url string)
	Idle()
}

// UnixTransport serves the command protocol over a unix domain socket:
// newline-delimited JSON requests, one JSON response line each.
type UnixTransport struct {
	path   string
	logger log.Logger

	mu      sync.RWMutex
	ln      net.Listener
	running bool
	stopCh  chan struct{}
}

// NewUnixTransport creates a transport bound to the given socket path.
func NewUnixTransport(path string, logger log.Logger) *UnixTransport {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &UnixTransport{
		path:   path,
		logger: logger,
		stopCh: make(chan struct{}),
	}
}

// Start begins accepting connections and dispatching commands to svc.
func (t *UnixTransport) Start(ctx context.Context, svc Service) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return fmt.Errorf("message transport already running")
	}

	// A previous unclean shutdown may have left the socket file behind.
	if err := os.Remove(t.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to clear stale socket %s: %w", t.path, err)
	}

	ln, err := net.Listen("unix", t.path)
	if err != nil {
		return fmt.Errorf("failed to bind socket %s: %w", t.path, err)
	}
	t.ln = ln
	t.running = true

	t.logger.Info(map[string]any{
		"transport": "unix",
		"socket":    t.path,
	}, "message transport started")

	go t.acceptLoop(ctx, svc)
	return nil
}

// Stop gracefully shuts down the transport.
func (t *UnixTransport) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return nil
	}
	close(t.stopCh)

	var closeErr error
	if t.ln != nil {
		closeErr = t.ln.Close()
	}
	t.running = false

	t.logger.Info(map[string]any{
		"transport": "unix",
		"socket":    t.path,
	}, "message transport stopped")

	return closeErr
}

// Address returns the socket path the transport is bound to.
func (t *UnixTransport) Address() string {
	return t.path
}

func (t *UnixTransport) acceptLoop(ctx context.Context, svc Service) {
	for {
		conn, err := t.ln.Accept()
		if err != nil {
			t.mu.RLock()
			running := t.running
			t.mu.RUnlock()
			if !running {
				return // normal shutdown
			}
			select {
			case <-ctx.Done():
				return
			case <-t.stopCh:
				return
			default:
			}
			t.logger.Warn(map[string]any{"error": err.Error()}, "failed to accept connection")
			continue
		}
		go t.handleConn(ctx, conn, svc)
	}
}

// maxRequestBytes bounds one request line. Checked URLs can be large
// (data URLs); the bufio default of 64 KiB is too tight for them.
const maxRequestBytes = 1 << 20

func (t *UnixTransport) handleConn(ctx context.Context, conn net.Conn, svc Service) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), maxRequestBytes)
	enc := json.NewEncoder(conn)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			t.logger.Warn(map[string]any{"error": err.Error()}, "failed to decode request")
			_ = enc.Encode(Response{OK: false, Error: "malformed request"})
			continue
		}

		resp := t.dispatch(ctx, svc, req)
		if err := enc.Encode(resp); err != nil {
			t.logger.Warn(map[string]any{"error": err.Error()}, "failed to write response")
			return
		}
	}
	if err := scanner.Err(); err != nil {
		t.logger.Warn(map[string]any{"error": err.Error()}, "failed to read request")
		_ = enc.Encode(Response{OK: false, Error: "request too large or unreadable"})
	}
}

// dispatch routes one command to the service.
func (t *UnixTransport) dispatch(ctx context.Context, svc Service, req Request) Response {
	t.logger.Debug(map[string]any{"type": req.Type}, "command received")

	switch req.Type {
	case TypeCheckURL:
		blocked, redirect := svc.CheckURL(req.URL)
		return Response{OK: true, Blocked: blocked, Redirect: redirect}

	case TypeStartBreak:
		until, err := svc.StartBreak(ctx, req.Duration, req.URL)
		if errors.Is(err, guard.ErrBreakLimit) {
			return Response{OK: false, Code: CodeBreakLimit}
		}
		if err != nil {
			return Response{OK: false, Error: err.Error()}
		}
		return Response{OK: true, BreakUntil: until}

	case TypeStopBreak:
		if err := svc.StopBreak(ctx); err != nil {
			return Response{OK: false, Error: err.Error()}
		}
		return Response{OK: true}

	case TypeBlockNow:
		if err := svc.BlockNow(ctx); err != nil {
			return Response{OK: false, Error: err.Error()}
		}
		return Response{OK: true}

	case TypeUnblockNow:
		if err := svc.UnblockNow(ctx); err != nil {
			return Response{OK: false, Error: err.Error()}
		}
		return Response{OK: true}

	case TypeUnblockURL:
		if err := svc.UnblockURL(ctx, req.URL); err != nil {
			return Response{OK: false, Error: err.Error()}
		}
		return Response{OK: true}

	case TypeReload:
		if err := svc.Reload(ctx); err != nil {
			return Response{OK: false, Error: err.Error()}
		}
		return Response{OK: true}

	case TypeStatus:
		st := svc.Status()
		return Response{
			OK:         true,
			State:      st.State.String(),
			Mode:       string(st.Mode),
			BreakUntil: st.BreakUntil,
		}

	case TypeActiveURL:
		svc.SetActiveURL(req.URL)
		return Response{OK: true}

	case TypeIdle:
		svc.Idle()
		return Response{OK: true}

	default:
		return Response{OK: false, Error: fmt.Sprintf("unknown command: %q", req.Type)}
	}
}
