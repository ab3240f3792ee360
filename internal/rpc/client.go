package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"gitlab.com/gridnode.net/internal/core/ports/primary"
	"gitlab.com/gridnode.net/internal/domain"
	"gitlab.com/gridnode.net/internal/tcp/connectionmanager"
	"gitlab.com/gridnode.net/internal/tcp/defs"
)

var _ domain.TaskDispatcher = &Client{}

// Client is the outbound call channel to one worker process. The TCP
// connection is dialed lazily on the first call and redialed after a send
// failure on the next one.
type Client struct {
	address     string
	dialTimeout time.Duration
	logger      primary.Logger

	mu   sync.Mutex
	conn net.Conn
}

func newClient(host string, port int, dialTimeout time.Duration, logger primary.Logger) *Client {
	return &Client{
		address:     fmt.Sprintf("%s:%d", host, port),
		dialTimeout: dialTimeout,
		logger:      logger,
	}
}

// PushTask forwards a task assignment to the worker process.
func (c *Client) PushTask(ctx context.Context, task *domain.Task) error {
	payload, err := json.Marshal(defs.TaskAssignData{Task: task})
	if err != nil {
		return fmt.Errorf("failed to marshal task assignment: %w", err)
	}
	return c.send(ctx, defs.MsgAssignTask, payload)
}

// ArgWaitComplete resolves a queued actor-call argument dependency.
func (c *Client) ArgWaitComplete(ctx context.Context, tag int64) error {
	payload, err := json.Marshal(defs.ArgWaitCompleteData{Tag: tag})
	if err != nil {
		return fmt.Errorf("failed to marshal arg wait completion: %w", err)
	}
	return c.send(ctx, defs.MsgArgWaitComplete, payload)
}

func (c *Client) send(ctx context.Context, msgType byte, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		dialer := net.Dialer{Timeout: c.dialTimeout}
		conn, err := dialer.DialContext(ctx, "tcp", c.address)
		if err != nil {
			return fmt.Errorf("worker unreachable at %s: %w", c.address, err)
		}
		c.conn = conn
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetWriteDeadline(deadline)
		defer c.conn.SetWriteDeadline(time.Time{})
	}

	if err := connectionmanager.SendMessage(c.conn, msgType, payload); err != nil {
		// Drop the broken connection; the next call redials.
		_ = c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}

func (c *Client) close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}
