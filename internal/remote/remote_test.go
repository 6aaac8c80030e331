package remote

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Kyle6012/hypr-xdisplay/internal/config"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/ssh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gossh "golang.org/x/crypto/ssh"
)

type quitModel struct{}

func (quitModel) Init() tea.Cmd                       { return tea.Quit }
func (quitModel) Update(tea.Msg) (tea.Model, tea.Cmd) { return quitModel{}, nil }
func (quitModel) View() string                        { return "" }

func newTestSigner(t *testing.T) gossh.Signer {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	signer, err := gossh.NewSignerFromKey(priv)
	require.NoError(t, err)
	return signer
}

func writeAuthorizedKeys(t *testing.T, path string, keys ...gossh.PublicKey) {
	t.Helper()
	var data []byte
	data = append(data, "# managed by tests\n"...)
	for _, k := range keys {
		data = append(data, gossh.MarshalAuthorizedKey(k)...)
	}
	require.NoError(t, os.WriteFile(path, data, 0o600))
}

func TestLoadAuthorizedKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "authorized_keys")
	a, b := newTestSigner(t), newTestSigner(t)
	writeAuthorizedKeys(t, path, a.PublicKey(), b.PublicKey())

	keys, err := LoadAuthorizedKeys(path)
	require.NoError(t, err)
	assert.Len(t, keys, 2)
	assert.Contains(t, keys, gossh.FingerprintSHA256(a.PublicKey()))
	assert.Contains(t, keys, gossh.FingerprintSHA256(b.PublicKey()))

	_, err = LoadAuthorizedKeys(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestServerPublicKeyAuth(t *testing.T) {
	dir := t.TempDir()
	allowed, stranger := newTestSigner(t), newTestSigner(t)
	authPath := filepath.Join(dir, "authorized_keys")
	writeAuthorizedKeys(t, authPath, allowed.PublicKey())

	srv := New(config.RemoteConfig{
		Address:            "127.0.0.1:0",
		HostKeyPath:        filepath.Join(dir, "keys", "host_ed25519"),
		AuthorizedKeysPath: authPath,
	}, func(ssh.Session) tea.Model { return quitModel{} })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, srv.Start(ctx))
	defer srv.Stop()

	dial := func(signer gossh.Signer) error {
		client, err := gossh.Dial("tcp", srv.Addr(), &gossh.ClientConfig{
			User:            "tester",
			Auth:            []gossh.AuthMethod{gossh.PublicKeys(signer)},
			HostKeyCallback: gossh.InsecureIgnoreHostKey(),
			Timeout:         2 * time.Second,
		})
		if err != nil {
			return err
		}
		return client.Close()
	}

	assert.NoError(t, dial(allowed))
	assert.Error(t, dial(stranger))

	// the file is re-read on each attempt
	writeAuthorizedKeys(t, authPath, allowed.PublicKey(), stranger.PublicKey())
	assert.NoError(t, dial(stranger))

	assert.FileExists(t, filepath.Join(dir, "keys", "host_ed25519"))
}

func TestServerStopsWithContext(t *testing.T) {
	dir := t.TempDir()
	srv := New(config.RemoteConfig{
		Address:            "127.0.0.1:0",
		HostKeyPath:        filepath.Join(dir, "host_ed25519"),
		AuthorizedKeysPath: filepath.Join(dir, "authorized_keys"),
	}, func(ssh.Session) tea.Model { return quitModel{} })

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, srv.Start(ctx))
	addr := srv.Addr()
	cancel()

	assert.Eventually(t, func() bool {
		_, err := gossh.Dial("tcp", addr, &gossh.ClientConfig{
			User:            "tester",
			HostKeyCallback: gossh.InsecureIgnoreHostKey(),
			Timeout:         200 * time.Millisecond,
		})
		return err != nil
	}, 2*time.Second, 50*time.Millisecond)

	// stopping twice is fine
	srv.Stop()
}

func TestStartWithoutFactory(t *testing.T) {
	srv := New(config.RemoteConfig{Address: "127.0.0.1:0"}, nil)
	assert.Error(t, srv.Start(context.Background()))
}
