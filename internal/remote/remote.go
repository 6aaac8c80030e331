// Package remote serves the control panel over SSH
package remote

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Kyle6012/hypr-xdisplay/internal/config"
	"github.com/Kyle6012/hypr-xdisplay/internal/logger"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/activeterm"
	bm "github.com/charmbracelet/wish/bubbletea"
	gossh "golang.org/x/crypto/ssh"
)

// ModelFactory builds the panel shown to one SSH session
type ModelFactory func(sess ssh.Session) tea.Model

// Server is the SSH endpoint for the remote panel
type Server struct {
	address      string
	hostKeyPath  string
	authKeysPath string
	newModel     ModelFactory

	mu       sync.Mutex
	srv      *ssh.Server
	listener net.Listener

	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a remote panel server from the remote config section
func New(cfg config.RemoteConfig, newModel ModelFactory) *Server {
	return &Server{
		address:      cfg.Address,
		hostKeyPath:  cfg.HostKeyPath,
		authKeysPath: cfg.AuthorizedKeysPath,
		newModel:     newModel,
	}
}

// Start begins listening. The server stops when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if s.newModel == nil {
		return errors.New("remote panel has no model factory")
	}
	if err := os.MkdirAll(filepath.Dir(s.hostKeyPath), 0o700); err != nil {
		return fmt.Errorf("failed to create host key directory: %w", err)
	}

	srv, err := wish.NewServer(
		wish.WithAddress(s.address),
		wish.WithHostKeyPath(s.hostKeyPath),
		wish.WithPublicKeyAuth(s.publicKeyAuth),
		wish.WithMiddleware(
			bm.Middleware(s.teaHandler),
			activeterm.Middleware(),
			s.loggingMiddleware(),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create SSH server: %w", err)
	}

	ln, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.address, err)
	}

	s.mu.Lock()
	s.srv, s.listener = srv, ln
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		logger.Infof("Remote panel listening on %s", ln.Addr())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
			logger.Errorf("SSH server error: %v", err)
		}
	}()

	context.AfterFunc(ctx, s.Stop)
	return nil
}

// Addr returns the bound address, useful when listening on port 0
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return s.address
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down and closes open sessions
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		srv := s.srv
		s.mu.Unlock()
		if srv == nil {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			_ = srv.Close()
		}
		s.wg.Wait()
	})
}

func (s *Server) teaHandler(sess ssh.Session) (tea.Model, []tea.ProgramOption) {
	return s.newModel(sess), []tea.ProgramOption{tea.WithAltScreen()}
}

// publicKeyAuth accepts keys listed in the authorized keys file. The file is
// read on every attempt so edits apply without a restart.
func (s *Server) publicKeyAuth(ctx ssh.Context, key ssh.PublicKey) bool {
	fingerprint := gossh.FingerprintSHA256(key)
	addr := ctx.RemoteAddr().String()

	allowed, err := LoadAuthorizedKeys(s.authKeysPath)
	if err != nil {
		logger.Warn("Rejecting SSH key, authorized keys unavailable", "path", s.authKeysPath, "err", err)
		return false
	}
	if _, ok := allowed[fingerprint]; ok {
		logger.Infof("SSH key accepted user=%s addr=%s key=%s", ctx.User(), addr, fingerprint)
		return true
	}
	logger.Infof("SSH key denied user=%s addr=%s key=%s", ctx.User(), addr, fingerprint)
	return false
}

func (s *Server) loggingMiddleware() wish.Middleware {
	return func(h ssh.Handler) ssh.Handler {
		return func(sess ssh.Session) {
			start := time.Now()
			logger.Debugf("SSH session started: user=%s addr=%s", sess.User(), sess.RemoteAddr())
			h(sess)
			logger.Debugf("SSH session ended: addr=%s duration=%s", sess.RemoteAddr(), time.Since(start).Round(time.Second))
		}
	}
}

// LoadAuthorizedKeys reads an OpenSSH authorized_keys file and returns the
// SHA256 fingerprints it lists, mapped to the key comment
func LoadAuthorizedKeys(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read authorized keys: %w", err)
	}

	keys := make(map[string]string)
	for len(data) > 0 {
		pub, comment, _, rest, err := gossh.ParseAuthorizedKey(data)
		if err != nil {
			// no more parsable keys
			break
		}
		keys[gossh.FingerprintSHA256(pub)] = comment
		data = rest
	}
	return keys, nil
}
