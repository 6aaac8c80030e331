package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Kyle6012/hypr-xdisplay/internal/logger"
	"github.com/Kyle6012/hypr-xdisplay/internal/supervisor"
)

// Handler performs the operations the daemon exposes over the socket
type Handler interface {
	StartCast(ctx context.Context, key supervisor.Key, port uint16, extra string) error
	StopCast(key supervisor.Key) error
	CastStatus(key supervisor.Key) supervisor.Status
	CastStatuses() []supervisor.KeyStatus

	StartRecording(ctx context.Context, opts *supervisor.RecorderOptions) (string, error)
	StopRecording() error
	PauseRecording() error
	ResumeRecording() error
	RecorderStatus() supervisor.RecorderStatus

	StartMirror(ctx context.Context, serial string) error
	StopMirror(serial string) error
	MirrorStatuses() []supervisor.Status
}

// ErrAlreadyRunning is returned by Start when another daemon answers on
// the socket path
var ErrAlreadyRunning = errors.New("hypr-xdisplay daemon is already running")

const dialTimeout = time.Second

// SocketServer serves Handler over a Unix socket
type SocketServer struct {
	mu         sync.Mutex
	listener   net.Listener
	socketPath string
	socketInfo os.FileInfo
	handler    Handler
	wg         sync.WaitGroup
	cancel     context.CancelFunc
	running    bool
}

// NewSocketServer creates a socket server bound to socketPath once started
func NewSocketServer(socketPath string, handler Handler) *SocketServer {
	return &SocketServer{
		socketPath: socketPath,
		handler:    handler,
	}
}

// SocketPath returns the path the server listens on
func (s *SocketServer) SocketPath() string {
	return s.socketPath
}

// Start starts the socket server
func (s *SocketServer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	if err := removeStaleSocket(s.socketPath); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.socketPath), 0o755); err != nil {
		return fmt.Errorf("failed to create socket directory: %w", err)
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create socket listener: %w", err)
	}

	// Stop unlinks the path itself, and only while it is still ours
	if ul, ok := listener.(*net.UnixListener); ok {
		ul.SetUnlinkOnClose(false)
	}

	if err := os.Chmod(s.socketPath, 0o600); err != nil {
		listener.Close()
		os.Remove(s.socketPath)
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	info, err := os.Stat(s.socketPath)
	if err != nil {
		listener.Close()
		return fmt.Errorf("failed to stat socket: %w", err)
	}

	s.listener = listener
	s.socketInfo = info
	s.running = true

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go s.acceptConnections(ctx)

	logger.Infof("IPC socket server started at %s", s.socketPath)
	return nil
}

// Stop stops the socket server and removes the socket file
func (s *SocketServer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	s.running = false
	if s.cancel != nil {
		s.cancel()
	}
	if s.listener != nil {
		s.listener.Close()
	}

	s.wg.Wait()

	// Another daemon may have replaced a socket we lost
	if info, err := os.Stat(s.socketPath); err == nil && os.SameFile(info, s.socketInfo) {
		os.Remove(s.socketPath)
	}

	logger.Info("IPC socket server stopped")
}

// removeStaleSocket clears a socket left by a crashed daemon. A path that
// still accepts connections belongs to a live daemon and is left alone.
func removeStaleSocket(path string) error {
	conn, err := net.DialTimeout("unix", path, dialTimeout)
	if err == nil {
		conn.Close()
		return fmt.Errorf("%w on %s", ErrAlreadyRunning, path)
	}
	if !isNotListening(err) {
		return fmt.Errorf("failed to check existing socket: %w", err)
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove existing socket: %w", err)
	}
	return nil
}

func (s *SocketServer) acceptConnections(ctx context.Context) {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			logger.Errorf("Failed to accept connection: %v", err)
			continue
		}

		s.wg.Add(1)
		go s.handleConnection(ctx, conn)
	}
}

func (s *SocketServer) handleConnection(ctx context.Context, conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	// Unblock the read below when the server stops
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	logger.Debug("New IPC connection established")

	for {
		data, err := readFrame(conn)
		if err != nil {
			logger.Debugf("Connection closed or read error: %v", err)
			return
		}

		var req Request
		var resp *Response
		if err := req.Unmarshal(data); err != nil {
			resp = errorResponse(fmt.Errorf("invalid request: %w", err))
		} else {
			resp = s.handleRequest(ctx, &req)
		}

		if err := writeFrame(conn, resp.Marshal()); err != nil {
			logger.Errorf("Failed to send response: %v", err)
			return
		}
	}
}

func (s *SocketServer) handleRequest(ctx context.Context, req *Request) *Response {
	logger.Debug("IPC request", "op", req.Op.String(), "key", req.Key.String(), "serial", req.Serial)

	switch req.Op {
	case OpCastStart:
		err := s.handler.StartCast(ctx, req.Key, req.Port, req.Extra)
		return castResponse(err, req.Key, s.handler.CastStatus(req.Key))

	case OpCastStop:
		err := s.handler.StopCast(req.Key)
		return castResponse(err, req.Key, s.handler.CastStatus(req.Key))

	case OpCastStatus:
		return castResponse(nil, req.Key, s.handler.CastStatus(req.Key))

	case OpRecordStart:
		opts := req.Recorder
		if opts == nil {
			opts = &supervisor.RecorderOptions{}
		}
		output, err := s.handler.StartRecording(ctx, opts)
		resp := recorderResponse(err, s.handler.RecorderStatus())
		resp.Output = output
		return resp

	case OpRecordStop:
		return recorderResponse(s.handler.StopRecording(), s.handler.RecorderStatus())

	case OpRecordPause:
		return recorderResponse(s.handler.PauseRecording(), s.handler.RecorderStatus())

	case OpRecordResume:
		return recorderResponse(s.handler.ResumeRecording(), s.handler.RecorderStatus())

	case OpRecordStatus:
		return recorderResponse(nil, s.handler.RecorderStatus())

	case OpMirrorStart:
		return mirrorResponse(s.handler.StartMirror(ctx, req.Serial), s.handler.MirrorStatuses())

	case OpMirrorStop:
		return mirrorResponse(s.handler.StopMirror(req.Serial), s.handler.MirrorStatuses())

	case OpStatusAll:
		rs := s.handler.RecorderStatus()
		return &Response{
			OK:       true,
			Casts:    s.handler.CastStatuses(),
			Recorder: &rs,
			Mirrors:  s.handler.MirrorStatuses(),
		}

	default:
		return errorResponse(fmt.Errorf("unknown operation: %s", req.Op))
	}
}

func errorResponse(err error) *Response {
	return &Response{OK: false, Error: err.Error()}
}

func castResponse(err error, key supervisor.Key, st supervisor.Status) *Response {
	resp := &Response{OK: err == nil, Casts: []supervisor.KeyStatus{{Key: key, Status: st}}}
	if err != nil {
		resp.Error = err.Error()
	}
	return resp
}

func recorderResponse(err error, rs supervisor.RecorderStatus) *Response {
	resp := &Response{OK: err == nil, Recorder: &rs}
	if err != nil {
		resp.Error = err.Error()
	}
	return resp
}

func mirrorResponse(err error, statuses []supervisor.Status) *Response {
	resp := &Response{OK: err == nil, Mirrors: statuses}
	if err != nil {
		resp.Error = err.Error()
	}
	return resp
}
