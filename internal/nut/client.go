// internal/nut/client.go
package nut

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/textproto"
	"regexp"
	"strings"
	"time"
)

// DefaultAddr is where upsd listens on a stock install
const DefaultAddr = "127.0.0.1:3493"

// ErrRejected is returned when upsd answers a query with an ERR line
var ErrRejected = errors.New("request rejected")

// varLineRe matches lines like: VAR apc-1 battery.charge.warning "50"
// The value runs from the first to the last double quote and is not unescaped.
var varLineRe = regexp.MustCompile(`^VAR ([^ ]+) ([^ ]+) "(.*)"`)

// Snapshot holds every variable reported for one UPS by a single query
type Snapshot map[string]string

// Get returns the value of key, or "" if the UPS did not report it
func (s Snapshot) Get(key string) string {
	return s[key]
}

// ParseVarLine extracts key and value from a single LIST VAR data line
func ParseVarLine(line string) (key, value string, ok bool) {
	m := varLineRe.FindStringSubmatch(line)
	if m == nil {
		return "", "", false
	}
	return m[2], m[3], true
}

// Client is a minimal upsd client. upsd drops idle connections quickly, so
// callers are expected to query at a short, fixed interval.
//
// See https://networkupstools.org/docs/developer-guide.chunked/net-protocol.html
type Client struct {
	addr string
	conn net.Conn
	w    *bufio.Writer
	r    *textproto.Reader
}

// Dial connects to upsd at addr
func Dial(ctx context.Context, addr string) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &ConnectionError{Addr: addr, Err: err}
	}
	return NewClient(conn), nil
}

// NewClient wraps an established connection
func NewClient(conn net.Conn) *Client {
	return &Client{
		addr: conn.RemoteAddr().String(),
		conn: conn,
		w:    bufio.NewWriter(conn),
		r:    textproto.NewReader(bufio.NewReader(conn)),
	}
}

// Addr returns the remote address
func (c *Client) Addr() string {
	return c.addr
}

// Close closes the connection
func (c *Client) Close() error {
	return c.conn.Close()
}

// ListVars sends LIST VAR for ups and collects the response into a Snapshot.
// Reads block until upsd answers; cancelling ctx unblocks them.
func (c *Client) ListVars(ctx context.Context, ups string) (Snapshot, error) {
	// Clear any deadline left by an earlier cancellation
	if err := c.conn.SetDeadline(time.Time{}); err != nil {
		return nil, &ConnectionError{Addr: c.addr, Err: err}
	}
	stop := context.AfterFunc(ctx, func() {
		c.conn.SetDeadline(time.Now())
	})
	defer stop()

	if _, err := fmt.Fprintf(c.w, "LIST VAR %s\n", ups); err != nil {
		return nil, c.ioError(ctx, err)
	}
	if err := c.w.Flush(); err != nil {
		return nil, c.ioError(ctx, err)
	}

	// The first line echoes the request (BEGIN LIST VAR <ups>) and carries no data
	first, err := c.readLine()
	if err != nil {
		return nil, c.ioError(ctx, err)
	}
	if strings.HasPrefix(first, "ERR ") {
		return nil, &ProtocolError{UPS: ups, Line: first, Err: ErrRejected}
	}

	snap := make(Snapshot)
	for {
		line, err := c.readLine()
		if err != nil {
			return nil, c.ioError(ctx, err)
		}

		key, value, ok := ParseVarLine(line)
		if !ok {
			// Normally END LIST VAR <ups>; any other line ends the list too
			break
		}
		snap[key] = value
	}

	return snap, nil
}

func (c *Client) readLine() (string, error) {
	line, err := c.r.ReadLine()
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, " \t\r\n"), nil
}

func (c *Client) ioError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return &ConnectionError{Addr: c.addr, Err: err}
}
