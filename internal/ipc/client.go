package ipc

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/Kyle6012/hypr-xdisplay/internal/logger"
	"github.com/Kyle6012/hypr-xdisplay/internal/supervisor"
	"golang.org/x/sys/unix"
)

// ErrDaemonNotRunning is returned when nothing listens on the socket
var ErrDaemonNotRunning = errors.New("hypr-xdisplay daemon is not running")

// Client talks to a running daemon. Each call uses its own connection.
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a client for the daemon listening at socketPath
func NewClient(socketPath string) *Client {
	return &Client{
		socketPath: socketPath,
		timeout:    5 * time.Second,
	}
}

// NewClientWithTimeout creates a client with a custom dial and read timeout
func NewClientWithTimeout(socketPath string, timeout time.Duration) *Client {
	c := NewClient(socketPath)
	c.timeout = timeout
	return c
}

// StartCast starts a casting session
func (c *Client) StartCast(key supervisor.Key, port uint16, extra string) (supervisor.Status, error) {
	resp, err := c.call(&Request{Op: OpCastStart, Key: key, Port: port, Extra: extra})
	return castStatus(resp, err)
}

// StopCast stops a casting session
func (c *Client) StopCast(key supervisor.Key) (supervisor.Status, error) {
	resp, err := c.call(&Request{Op: OpCastStop, Key: key})
	return castStatus(resp, err)
}

// CastStatus fetches the status of one casting session
func (c *Client) CastStatus(key supervisor.Key) (supervisor.Status, error) {
	resp, err := c.call(&Request{Op: OpCastStatus, Key: key})
	return castStatus(resp, err)
}

// StartRecording starts the recorder and returns the output path
func (c *Client) StartRecording(opts supervisor.RecorderOptions) (string, error) {
	resp, err := c.call(&Request{Op: OpRecordStart, Recorder: &opts})
	if err != nil {
		return "", err
	}
	return resp.Output, resp.Err()
}

// StopRecording stops the recorder
func (c *Client) StopRecording() (supervisor.RecorderStatus, error) {
	return c.recorderCall(OpRecordStop)
}

// PauseRecording pauses the recorder
func (c *Client) PauseRecording() (supervisor.RecorderStatus, error) {
	return c.recorderCall(OpRecordPause)
}

// ResumeRecording resumes the recorder
func (c *Client) ResumeRecording() (supervisor.RecorderStatus, error) {
	return c.recorderCall(OpRecordResume)
}

// RecorderStatus fetches the recorder status
func (c *Client) RecorderStatus() (supervisor.RecorderStatus, error) {
	return c.recorderCall(OpRecordStatus)
}

// StartMirror opens a mirror window for an Android device
func (c *Client) StartMirror(serial string) ([]supervisor.Status, error) {
	return c.mirrorCall(&Request{Op: OpMirrorStart, Serial: serial})
}

// StopMirror closes a mirror window
func (c *Client) StopMirror(serial string) ([]supervisor.Status, error) {
	return c.mirrorCall(&Request{Op: OpMirrorStop, Serial: serial})
}

// StatusAll fetches every session status in one round trip
func (c *Client) StatusAll() (*Response, error) {
	resp, err := c.call(&Request{Op: OpStatusAll})
	if err != nil {
		return nil, err
	}
	return resp, resp.Err()
}

// Ping reports whether the daemon answers
func (c *Client) Ping() bool {
	_, err := c.StatusAll()
	return err == nil
}

func (c *Client) recorderCall(op Op) (supervisor.RecorderStatus, error) {
	resp, err := c.call(&Request{Op: op})
	if err != nil {
		return supervisor.RecorderStatus{}, err
	}
	var rs supervisor.RecorderStatus
	if resp.Recorder != nil {
		rs = *resp.Recorder
	}
	return rs, resp.Err()
}

func (c *Client) mirrorCall(req *Request) ([]supervisor.Status, error) {
	resp, err := c.call(req)
	if err != nil {
		return nil, err
	}
	return resp.Mirrors, resp.Err()
}

func castStatus(resp *Response, err error) (supervisor.Status, error) {
	if err != nil {
		return supervisor.Status{}, err
	}
	var st supervisor.Status
	if len(resp.Casts) > 0 {
		st = resp.Casts[0].Status
	}
	return st, resp.Err()
}

// call sends one request and waits for its response
func (c *Client) call(req *Request) (*Response, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		if isNotListening(err) {
			return nil, ErrDaemonNotRunning
		}
		return nil, fmt.Errorf("failed to connect to daemon: %w", err)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			logger.Errorf("Failed to close IPC connection: %v", err)
		}
	}()

	if err := conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
		logger.Warnf("Failed to set connection deadline: %v", err)
	}

	if err := writeFrame(conn, req.Marshal()); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	data, err := readFrame(conn)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var resp Response
	if err := resp.Unmarshal(data); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &resp, nil
}

func isNotListening(err error) bool {
	return errors.Is(err, unix.ECONNREFUSED) || errors.Is(err, unix.ENOENT)
}
