package ipc

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Kyle6012/hypr-xdisplay/internal/supervisor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockHandler records calls and keeps just enough state to answer
type mockHandler struct {
	mu        sync.Mutex
	casts     map[supervisor.Key]supervisor.Status
	recording supervisor.RecorderStatus
	mirrors   []supervisor.Status
	recOpts   *supervisor.RecorderOptions
	startErr  error
}

func newMockHandler() *mockHandler {
	return &mockHandler{casts: map[supervisor.Key]supervisor.Status{}}
}

func (m *mockHandler) StartCast(_ context.Context, key supervisor.Key, port uint16, extra string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.startErr != nil {
		m.casts[key] = supervisor.Status{Error: "Failed to start: " + m.startErr.Error()}
		return m.startErr
	}
	m.casts[key] = supervisor.Status{Running: true, Port: port, Target: extra, Message: key.String() + " started successfully."}
	return nil
}

func (m *mockHandler) StopCast(key supervisor.Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.casts[key] = supervisor.Status{Message: key.String() + " stopped."}
	return nil
}

func (m *mockHandler) CastStatus(key supervisor.Key) supervisor.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.casts[key]
}

func (m *mockHandler) CastStatuses() []supervisor.KeyStatus {
	out := make([]supervisor.KeyStatus, 0, 8)
	for _, k := range supervisor.Keys() {
		out = append(out, supervisor.KeyStatus{Key: k, Status: m.CastStatus(k)})
	}
	return out
}

func (m *mockHandler) StartRecording(_ context.Context, opts *supervisor.RecorderOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recOpts = opts
	m.recording = supervisor.RecorderStatus{Status: supervisor.Status{Running: true}, Output: filepath.Join(opts.Dir, "rec.mp4")}
	return m.recording.Output, nil
}

func (m *mockHandler) StopRecording() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recording = supervisor.RecorderStatus{Status: supervisor.Status{Message: "Recording stopped."}}
	return nil
}

func (m *mockHandler) PauseRecording() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.recording.Running {
		return supervisor.ErrNotRunning
	}
	m.recording.Paused = true
	return nil
}

func (m *mockHandler) ResumeRecording() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.recording.Running {
		return supervisor.ErrNotRunning
	}
	m.recording.Paused = false
	return nil
}

func (m *mockHandler) RecorderStatus() supervisor.RecorderStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.recording
}

func (m *mockHandler) StartMirror(_ context.Context, serial string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mirrors = append(m.mirrors, supervisor.Status{Running: true, Target: serial})
	return nil
}

func (m *mockHandler) StopMirror(serial string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.mirrors {
		if m.mirrors[i].Target == serial {
			m.mirrors[i].Running = false
		}
	}
	return nil
}

func (m *mockHandler) MirrorStatuses() []supervisor.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]supervisor.Status(nil), m.mirrors...)
}

func startTestServer(t *testing.T, h Handler) (*SocketServer, *Client) {
	t.Helper()
	server := NewSocketServer(filepath.Join(t.TempDir(), "test.sock"), h)
	require.NoError(t, server.Start())
	t.Cleanup(server.Stop)
	return server, NewClientWithTimeout(server.SocketPath(), 2*time.Second)
}

func TestSocketServerStartStop(t *testing.T) {
	server := NewSocketServer(filepath.Join(t.TempDir(), "test.sock"), newMockHandler())
	require.NoError(t, server.Start())

	info, err := os.Stat(server.SocketPath())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	// starting again is a no-op
	require.NoError(t, server.Start())

	server.Stop()
	_, err = os.Stat(server.SocketPath())
	assert.True(t, os.IsNotExist(err))

	// stopping again must not panic
	server.Stop()
}

func TestSocketServerCleanupExistingSocket(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stale.sock")
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o600))

	server := NewSocketServer(path, newMockHandler())
	require.NoError(t, server.Start())
	server.Stop()
}

func TestSocketServerRefusesLiveSocket(t *testing.T) {
	first := newMockHandler()
	server, client := startTestServer(t, first)

	second := NewSocketServer(server.SocketPath(), newMockHandler())
	err := second.Start()
	require.ErrorIs(t, err, ErrAlreadyRunning)

	// the first daemon still owns the socket
	key := supervisor.Key{Protocol: supervisor.VNC, Role: supervisor.Receiver}
	_, err = client.StartCast(key, 5900, "")
	require.NoError(t, err)
	assert.True(t, first.CastStatus(key).Running)

	// a failed start must not unlink the live socket on Stop
	second.Stop()
	_, err = os.Stat(server.SocketPath())
	require.NoError(t, err)
	assert.True(t, client.Ping())
}

func TestSocketServerStopKeepsReplacedSocket(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.sock")
	first := NewSocketServer(path, newMockHandler())
	require.NoError(t, first.Start())

	// simulate the path being taken over after the first daemon lost it
	require.NoError(t, os.Remove(path))
	second := NewSocketServer(path, newMockHandler())
	require.NoError(t, second.Start())
	t.Cleanup(second.Stop)

	first.Stop()
	_, err := os.Stat(path)
	require.NoError(t, err, "stopping the old server removed the new socket")
	assert.True(t, NewClientWithTimeout(path, 2*time.Second).Ping())
}

func TestSocketServerStopWithOpenConnection(t *testing.T) {
	h := newMockHandler()
	server, client := startTestServer(t, h)
	require.True(t, client.Ping())

	done := make(chan struct{})
	go func() {
		server.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop() took too long")
	}
}

func TestClientCasting(t *testing.T) {
	h := newMockHandler()
	_, client := startTestServer(t, h)
	key := supervisor.Key{Protocol: supervisor.AirPlay, Role: supervisor.Sender}

	st, err := client.StartCast(key, 0, "192.168.1.40")
	require.NoError(t, err)
	assert.True(t, st.Running)
	assert.Equal(t, "192.168.1.40", st.Target)
	assert.Equal(t, "AirPlay Sender started successfully.", st.Message)

	st, err = client.CastStatus(key)
	require.NoError(t, err)
	assert.True(t, st.Running)

	st, err = client.StopCast(key)
	require.NoError(t, err)
	assert.False(t, st.Running)
	assert.Equal(t, "AirPlay Sender stopped.", st.Message)

	h.mu.Lock()
	h.startErr = assert.AnError
	h.mu.Unlock()
	st, err = client.StartCast(key, 0, "192.168.1.40")
	assert.Error(t, err)
	assert.Contains(t, st.Error, "Failed to start")
}

func TestServerRejectsUnknownCastKey(t *testing.T) {
	h := newMockHandler()
	_, client := startTestServer(t, h)

	_, err := client.StartCast(supervisor.Key{Protocol: supervisor.Protocol(42), Role: supervisor.Sender}, 0, "")
	assert.ErrorContains(t, err, "unknown protocol 42")

	h.mu.Lock()
	defer h.mu.Unlock()
	assert.Empty(t, h.casts)
}

func TestClientRecording(t *testing.T) {
	h := newMockHandler()
	_, client := startTestServer(t, h)

	_, err := client.PauseRecording()
	assert.ErrorContains(t, err, supervisor.ErrNotRunning.Error())

	out, err := client.StartRecording(supervisor.RecorderOptions{Dir: "/videos", Codec: "libx265", Framerate: 24})
	require.NoError(t, err)
	assert.Equal(t, "/videos/rec.mp4", out)
	h.mu.Lock()
	opts := h.recOpts
	h.mu.Unlock()
	require.NotNil(t, opts)
	assert.Equal(t, "libx265", opts.Codec)
	assert.Equal(t, 24, opts.Framerate)

	rs, err := client.PauseRecording()
	require.NoError(t, err)
	assert.True(t, rs.Paused)

	rs, err = client.ResumeRecording()
	require.NoError(t, err)
	assert.False(t, rs.Paused)

	rs, err = client.StopRecording()
	require.NoError(t, err)
	assert.False(t, rs.Running)
	assert.Equal(t, "Recording stopped.", rs.Message)
}

func TestClientMirrorsAndStatusAll(t *testing.T) {
	h := newMockHandler()
	_, client := startTestServer(t, h)

	mirrors, err := client.StartMirror("emulator-5554")
	require.NoError(t, err)
	require.Len(t, mirrors, 1)
	assert.True(t, mirrors[0].Running)

	_, err = client.StartCast(supervisor.Key{Protocol: supervisor.VNC, Role: supervisor.Receiver}, 5900, "")
	require.NoError(t, err)

	all, err := client.StatusAll()
	require.NoError(t, err)
	assert.Len(t, all.Casts, 8)
	assert.Len(t, all.Mirrors, 1)
	require.NotNil(t, all.Recorder)

	var running int
	for _, ks := range all.Casts {
		if ks.Status.Running {
			running++
			assert.Equal(t, uint16(5900), ks.Status.Port)
		}
	}
	assert.Equal(t, 1, running)

	mirrors, err = client.StopMirror("emulator-5554")
	require.NoError(t, err)
	assert.False(t, mirrors[0].Running)
}

func TestClientDaemonNotRunning(t *testing.T) {
	client := NewClientWithTimeout(filepath.Join(t.TempDir(), "absent.sock"), 200*time.Millisecond)
	_, err := client.StatusAll()
	assert.ErrorIs(t, err, ErrDaemonNotRunning)
	assert.False(t, client.Ping())
}
