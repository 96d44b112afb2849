package msgbus

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"focusgate/internal/focus/domain"
	"focusgate/internal/focus/services/guard"
)

// fakeService records dispatched commands and returns canned answers.
type fakeService struct {
	calls      []string
	checkBlock bool
	breakErr   error
	breakUntil int64
	activeURL  string
}

func (s *fakeService) CheckURL(url string) (bool, string) {
	s.calls = append(s.calls, "check-url")
	if s.checkBlock {
		return true, "focusgate://blocked?url=" + url
	}
	return false, ""
}

func (s *fakeService) StartBreak(ctx context.Context, durationMin int, resumeURL string) (int64, error) {
	s.calls = append(s.calls, "start-break")
	return s.breakUntil, s.breakErr
}

func (s *fakeService) StopBreak(ctx context.Context) error {
	s.calls = append(s.calls, "stop-break")
	return nil
}

func (s *fakeService) BlockNow(ctx context.Context) error {
	s.calls = append(s.calls, "block-now")
	return nil
}

func (s *fakeService) UnblockNow(ctx context.Context) error {
	s.calls = append(s.calls, "unblock-now")
	return nil
}

func (s *fakeService) UnblockURL(ctx context.Context, pattern string) error {
	s.calls = append(s.calls, "unblock-url")
	return nil
}

func (s *fakeService) Reload(ctx context.Context) error {
	s.calls = append(s.calls, "reload")
	return nil
}

func (s *fakeService) Status() guard.Status {
	s.calls = append(s.calls, "status")
	return guard.Status{State: domain.FocusScheduled, Mode: domain.ModeBlock, BreakUntil: 42}
}

func (s *fakeService) SetActiveURL(url string) {
	s.calls = append(s.calls, "active-url")
	s.activeURL = url
}

func (s *fakeService) Idle() {
	s.calls = append(s.calls, "idle")
}

// startTransport boots a transport on a throwaway socket and returns a
// connected client.
func startTransport(t *testing.T, svc Service) net.Conn {
	t.Helper()
	socket := filepath.Join(t.TempDir(), "focusgate.sock")
	tr := NewUnixTransport(socket, nil)

	require.NoError(t, tr.Start(context.Background(), svc))
	t.Cleanup(func() { _ = tr.Stop() })

	conn, err := net.Dial("unix", socket)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func roundTrip(t *testing.T, conn net.Conn, req Request) Response {
	t.Helper()
	doc, err := json.Marshal(req)
	require.NoError(t, err)
	_, err = conn.Write(append(doc, '\n'))
	require.NoError(t, err)

	scanner := bufio.NewScanner(conn)
	require.True(t, scanner.Scan(), "expected a response line: %v", scanner.Err())

	var resp Response
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &resp))
	return resp
}

func TestTransport_CheckURL(t *testing.T) {
	svc := &fakeService{checkBlock: true}
	conn := startTransport(t, svc)

	resp := roundTrip(t, conn, Request{Type: TypeCheckURL, URL: "https://reddit.com/"})
	assert.True(t, resp.OK)
	assert.True(t, resp.Blocked)
	assert.Equal(t, "focusgate://blocked?url=https://reddit.com/", resp.Redirect)
}

func TestTransport_StartBreak(t *testing.T) {
	svc := &fakeService{breakUntil: 1234}
	conn := startTransport(t, svc)

	resp := roundTrip(t, conn, Request{Type: TypeStartBreak, Duration: 10})
	assert.True(t, resp.OK)
	assert.Equal(t, int64(1234), resp.BreakUntil)
}

func TestTransport_StartBreakQuotaExhausted(t *testing.T) {
	svc := &fakeService{breakErr: guard.ErrBreakLimit}
	conn := startTransport(t, svc)

	resp := roundTrip(t, conn, Request{Type: TypeStartBreak})
	assert.False(t, resp.OK)
	assert.Equal(t, CodeBreakLimit, resp.Code)
	assert.Empty(t, resp.Error, "a quota rejection is not an error")
}

func TestTransport_Status(t *testing.T) {
	conn := startTransport(t, &fakeService{})

	resp := roundTrip(t, conn, Request{Type: TypeStatus})
	assert.True(t, resp.OK)
	assert.Equal(t, "scheduled", resp.State)
	assert.Equal(t, "block", resp.Mode)
	assert.Equal(t, int64(42), resp.BreakUntil)
}

func TestTransport_SimpleCommands(t *testing.T) {
	svc := &fakeService{}
	conn := startTransport(t, svc)

	for _, typ := range []string{
		TypeStopBreak, TypeBlockNow, TypeUnblockNow,
		TypeUnblockURL, TypeReload, TypeIdle,
	} {
		resp := roundTrip(t, conn, Request{Type: typ})
		assert.True(t, resp.OK, "command %q failed", typ)
	}
	assert.Equal(t, []string{
		"stop-break", "block-now", "unblock-now",
		"unblock-url", "reload", "idle",
	}, svc.calls)
}

func TestTransport_ActiveURL(t *testing.T) {
	svc := &fakeService{}
	conn := startTransport(t, svc)

	resp := roundTrip(t, conn, Request{Type: TypeActiveURL, URL: "https://example.com/"})
	assert.True(t, resp.OK)
	assert.Equal(t, "https://example.com/", svc.activeURL)
}

func TestTransport_UnknownCommand(t *testing.T) {
	conn := startTransport(t, &fakeService{})

	resp := roundTrip(t, conn, Request{Type: "no-such-command"})
	assert.False(t, resp.OK)
	assert.Contains(t, resp.Error, "unknown command")
}

func TestTransport_MalformedRequest(t *testing.T) {
	conn := startTransport(t, &fakeService{})

	_, err := conn.Write([]byte("{broken\n"))
	require.NoError(t, err)

	scanner := bufio.NewScanner(conn)
	require.True(t, scanner.Scan())
	var resp Response
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &resp))
	assert.False(t, resp.OK)
	assert.Equal(t, "malformed request", resp.Error)
}

func TestTransport_LargeURLRequest(t *testing.T) {
	svc := &fakeService{}
	conn := startTransport(t, svc)

	// well past the bufio.Scanner default line limit of 64 KiB
	url := "https://example.com/" + strings.Repeat("a", 100_000)
	resp := roundTrip(t, conn, Request{Type: TypeCheckURL, URL: url})
	assert.True(t, resp.OK)
	assert.Equal(t, []string{"check-url"}, svc.calls)
}

func TestTransport_OversizedRequestGetsErrorResponse(t *testing.T) {
	conn := startTransport(t, &fakeService{})

	big := Request{Type: TypeCheckURL, URL: strings.Repeat("a", maxRequestBytes+1024)}
	doc, err := json.Marshal(big)
	require.NoError(t, err)
	// the server stops reading once the line limit is exceeded, so the
	// write may fail partway; only the response matters
	go func() {
		_, _ = conn.Write(append(doc, '\n'))
	}()

	scanner := bufio.NewScanner(conn)
	require.True(t, scanner.Scan(), "expected an error response: %v", scanner.Err())
	var resp Response
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &resp))
	assert.False(t, resp.OK)
	assert.NotEmpty(t, resp.Error)
}

func TestTransport_MultipleRequestsPerConnection(t *testing.T) {
	conn := startTransport(t, &fakeService{})

	for i := 0; i < 3; i++ {
		resp := roundTrip(t, conn, Request{Type: TypeStatus})
		assert.True(t, resp.OK)
	}
}

func TestTransport_StartTwiceFails(t *testing.T) {
	socket := filepath.Join(t.TempDir(), "focusgate.sock")
	tr := NewUnixTransport(socket, nil)

	require.NoError(t, tr.Start(context.Background(), &fakeService{}))
	defer tr.Stop()

	assert.Error(t, tr.Start(context.Background(), &fakeService{}))
	assert.Equal(t, socket, tr.Address())
}

func TestTransport_StopIdempotent(t *testing.T) {
	tr := NewUnixTransport(filepath.Join(t.TempDir(), "focusgate.sock"), nil)
	require.NoError(t, tr.Start(context.Background(), &fakeService{}))
	require.NoError(t, tr.Stop())
	assert.NoError(t, tr.Stop())
}

func TestTransport_ReplacesStaleSocket(t *testing.T) {
	socket := filepath.Join(t.TempDir(), "focusgate.sock")
	// a file left behind by an unclean shutdown
	require.NoError(t, os.WriteFile(socket, nil, 0o600))

	tr := NewUnixTransport(socket, nil)
	require.NoError(t, tr.Start(context.Background(), &fakeService{}))
	defer tr.Stop()

	conn, err := net.Dial("unix", socket)
	require.NoError(t, err)
	conn.Close()
}
