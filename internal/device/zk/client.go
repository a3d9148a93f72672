package zk

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/bhaskarRao-22/attendance-sync/internal/device"
)

const (
	// maxChunk is the largest slice of a staged table the terminal returns per read.
	maxChunk = 65472
	// maxTableSize rejects staged tables no terminal would hold.
	maxTableSize = 64 << 20
)

// Client is one TCP session with a terminal. Calls are serialized.
type Client struct {
	conn    net.Conn
	ip      string
	timeout time.Duration
	loc     *time.Location

	mu        sync.Mutex
	sessionID uint16
	replyID   uint16
}

var _ device.Client = (*Client)(nil)

// Dial connects to the terminal at addr and opens a protocol session.
// Record timestamps are interpreted in loc.
func Dial(ctx context.Context, addr string, timeout time.Duration, loc *time.Location) (*Client, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if loc == nil {
		loc = time.Local
	}
	host, _, errSplit := net.SplitHostPort(addr)
	if errSplit != nil {
		return nil, fmt.Errorf("zk: parse address %q: %w", addr, errSplit)
	}
	dialer := net.Dialer{Timeout: timeout}
	conn, errDial := dialer.DialContext(ctx, "tcp", addr)
	if errDial != nil {
		return nil, fmt.Errorf("zk: dial %s: %w", addr, errDial)
	}
	c := &Client{conn: conn, ip: host, timeout: timeout, loc: loc}
	if errConnect := c.connect(ctx); errConnect != nil {
		_ = conn.Close()
		return nil, errConnect
	}
	return c, nil
}

// NewDialer adapts Dial to a device.Dialer bound to one terminal.
func NewDialer(addr string, timeout time.Duration, loc *time.Location) device.Dialer {
	return func(ctx context.Context) (device.Client, error) {
		c, err := Dial(ctx, addr, timeout, loc)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

func (c *Client) connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	reply, err := c.exec(ctx, cmdConnect, nil)
	if err != nil {
		return fmt.Errorf("zk: connect: %w", err)
	}
	switch reply.Command {
	case cmdAckOK:
		c.sessionID = reply.SessionID
		return nil
	case cmdAckUnauth:
		return fmt.Errorf("zk: connect: %w", device.ErrUnauthorized)
	default:
		return fmt.Errorf("%w: connect answered with command %d", device.ErrProtocol, reply.Command)
	}
}

// Users reads the enrolled user table.
func (c *Client) Users(ctx context.Context) ([]device.User, error) {
	data, err := c.readTable(ctx, cmdUserTempRRQ, fctUser)
	if err != nil {
		return nil, fmt.Errorf("zk: read users: %w", err)
	}
	return decodeUsers(data), nil
}

// Punches reads the full attendance log.
func (c *Client) Punches(ctx context.Context) ([]device.Punch, error) {
	data, err := c.readTable(ctx, cmdAttLogRRQ, 0)
	if err != nil {
		return nil, fmt.Errorf("zk: read attendance: %w", err)
	}
	return decodePunches(data, c.ip, c.loc), nil
}

// Disconnect ends the protocol session and closes the socket.
func (c *Client) Disconnect() error {
	if c == nil || c.conn == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, errExit := c.exec(context.Background(), cmdExit, nil)
	errClose := c.conn.Close()
	if errClose != nil {
		return fmt.Errorf("zk: close: %w", errClose)
	}
	if errExit != nil && !errors.Is(errExit, net.ErrClosed) {
		return fmt.Errorf("zk: exit: %w", errExit)
	}
	return nil
}

// readTable stages a table on the terminal and downloads it, either inline or
// in chunks depending on how the terminal answers.
func (c *Client) readTable(ctx context.Context, command uint16, fct uint32) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	reply, err := c.exec(ctx, cmdDataWRRQ, bufferRequest(command, fct))
	if err != nil {
		return nil, err
	}
	switch reply.Command {
	case cmdData:
		return reply.Data, nil
	case cmdAckOK, cmdPrepareData:
	default:
		return nil, replyError(reply)
	}
	if len(reply.Data) < 5 {
		return nil, fmt.Errorf("%w: short staging reply", device.ErrProtocol)
	}
	staged := binary.LittleEndian.Uint32(reply.Data[1:5])
	if staged > maxTableSize {
		return nil, fmt.Errorf("%w: staged table of %d bytes exceeds %d", device.ErrProtocol, staged, maxTableSize)
	}
	size := int(staged)

	data := make([]byte, 0, size)
	for start := 0; start < size; start += maxChunk {
		n := min(maxChunk, size-start)
		chunk, errChunk := c.readChunk(ctx, start, n)
		if errChunk != nil {
			return nil, errChunk
		}
		data = append(data, chunk...)
	}
	if _, errFree := c.exec(ctx, cmdFreeData, nil); errFree != nil {
		return nil, errFree
	}
	return data, nil
}

func (c *Client) readChunk(ctx context.Context, start, size int) ([]byte, error) {
	reply, err := c.exec(ctx, cmdReadBuffer, chunkRequest(start, size))
	if err != nil {
		return nil, err
	}
	switch reply.Command {
	case cmdData:
		return reply.Data, nil
	case cmdPrepareData:
	default:
		return nil, replyError(reply)
	}
	chunk := make([]byte, 0, size)
	for {
		pkt, errRead := c.read(ctx)
		if errRead != nil {
			return nil, errRead
		}
		switch pkt.Command {
		case cmdData:
			chunk = append(chunk, pkt.Data...)
		case cmdAckOK:
			return chunk, nil
		default:
			return nil, replyError(pkt)
		}
	}
}

// exec sends a command and waits for the next frame. Callers hold c.mu.
func (c *Client) exec(ctx context.Context, command uint16, data []byte) (packet, error) {
	if command == cmdConnect {
		c.sessionID = 0
		c.replyID = 0
	} else {
		c.replyID++
	}
	if err := c.deadline(ctx); err != nil {
		return packet{}, err
	}
	if _, err := c.conn.Write(encodePacket(command, c.sessionID, c.replyID, data)); err != nil {
		return packet{}, err
	}
	return c.read(ctx)
}

func (c *Client) read(ctx context.Context) (packet, error) {
	if err := c.deadline(ctx); err != nil {
		return packet{}, err
	}
	return readPacket(c.conn)
}

func (c *Client) deadline(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var deadline time.Time
	if c.timeout > 0 {
		deadline = time.Now().Add(c.timeout)
	}
	if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
		deadline = d
	}
	return c.conn.SetDeadline(deadline)
}

func replyError(p packet) error {
	switch p.Command {
	case cmdAckUnauth:
		return device.ErrUnauthorized
	case cmdAckError:
		return fmt.Errorf("%w: terminal refused command", device.ErrProtocol)
	default:
		return fmt.Errorf("%w: unexpected command %d", device.ErrProtocol, p.Command)
	}
}
