package client

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/skypro1111/passwdgen-service/internal/protocol"
)

// Config contains client configuration
type Config struct {
	Host    string
	Port    int
	Timeout time.Duration // how long to wait for a reply
}

// Client sends protocol requests to a single server
type Client struct {
	config Config
	conn   *net.UDPConn

	// Statistics
	totalRequests  uint64
	failedRequests uint64
	mu             sync.RWMutex
}

// ClientStats represents client statistics
type ClientStats struct {
	TotalRequests  uint64 `json:"total_requests"`
	FailedRequests uint64 `json:"failed_requests"`
}

// NewClient resolves the server address and opens a UDP socket towards it
func NewClient(config Config) (*Client, error) {
	if config.Host == "" {
		return nil, fmt.Errorf("server host cannot be empty")
	}
	if config.Port < 1 || config.Port > 65535 {
		return nil, fmt.Errorf("server port must be between 1 and 65535, got %d", config.Port)
	}
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}

	addr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(config.Host, strconv.Itoa(config.Port)))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve hostname %s: %w", config.Host, err)
	}

	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("failed to create socket: %w", err)
	}

	return &Client{config: config, conn: conn}, nil
}

// RemoteAddr returns the resolved server address
func (c *Client) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// Request sends line (without its trailing newline) as one datagram and returns the
// reply payload verbatim. The wait for the reply is bounded by the configured timeout
// and by ctx.
func (c *Client) Request(ctx context.Context, line string) (string, error) {
	c.mu.Lock()
	c.totalRequests++
	c.mu.Unlock()

	reply, err := c.roundTrip(ctx, line)
	if err != nil {
		c.mu.Lock()
		c.failedRequests++
		c.mu.Unlock()
		return "", err
	}

	return reply, nil
}

func (c *Client) roundTrip(ctx context.Context, line string) (string, error) {
	payload := protocol.Truncate([]byte(strings.TrimRight(line, "\r\n")))

	if _, err := c.conn.Write(payload); err != nil {
		return "", fmt.Errorf("failed to send request to server: %w", err)
	}

	deadline := time.Now().Add(c.config.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.conn.SetReadDeadline(deadline); err != nil {
		return "", fmt.Errorf("failed to set read deadline: %w", err)
	}

	// Unblock the read as soon as ctx is cancelled
	stop := context.AfterFunc(ctx, func() {
		c.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	buffer := make([]byte, protocol.BufferSize)
	n, err := c.conn.Read(buffer)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("failed to receive response from server: %w", ctxErr)
		}
		return "", fmt.Errorf("failed to receive response from server: %w", err)
	}

	return string(protocol.Truncate(buffer[:n])), nil
}

// GetStats returns current client statistics
func (c *Client) GetStats() ClientStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return ClientStats{
		TotalRequests:  c.totalRequests,
		FailedRequests: c.failedRequests,
	}
}

// Close releases the socket
func (c *Client) Close() error {
	return c.conn.Close()
}
