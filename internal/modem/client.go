package modem

import (
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"
)

// Client is the TCP implementation of Commander. It writes Action
// blocks and feeds every received block into the Events channel; the
// orchestrator's loop is the only consumer.
type Client struct {
	conn   net.Conn
	events chan Event

	mu     sync.Mutex // guards writes and the action counter
	nextID int
}

// Dial's connect timeout matches the daemon's supervision interval.
const connectTimeout = 10 * time.Second

// Connect establishes the session with the modem daemon.
func Connect(addr string) (*Client, error) {
	conn, err := net.DialTimeout("tcp", addr, connectTimeout)
	if err != nil {
		return nil, fmt.Errorf("dial modem daemon: %w", err)
	}
	c := &Client{
		conn:   conn,
		events: make(chan Event, 64),
	}
	go c.readLoop()
	return c, nil
}

// Events returns the stream of notifications and responses. The
// channel is closed when the connection drops.
func (c *Client) Events() <-chan Event {
	return c.events
}

// Close tears down the session.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) readLoop() {
	defer close(c.events)
	parser := NewParser(c.conn)
	for {
		evt, ok := parser.Next()
		if !ok {
			return
		}
		c.events <- evt
	}
}

// send writes one Action block. kvs are alternating key-value pairs
// appended after the Action and ActionID headers.
func (c *Client) send(action string, kvs ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	block := "Action: " + action + "\r\nActionID: " + strconv.Itoa(c.nextID) + "\r\n"
	for i := 0; i+1 < len(kvs); i += 2 {
		block += kvs[i] + ": " + kvs[i+1] + "\r\n"
	}
	block += "\r\n"
	if _, err := c.conn.Write([]byte(block)); err != nil {
		return fmt.Errorf("sending %s: %w", action, err)
	}
	return nil
}

func itoa(v int) string { return strconv.Itoa(v) }

func (c *Client) Dial(slot int, number, callType string) error {
	return c.send("Dial", "Slot", itoa(slot), "Number", number, "CallType", callType)
}

func (c *Client) End(slot, callID int) error {
	return c.send("End", "Slot", itoa(slot), "CallID", itoa(callID))
}

func (c *Client) EndAll(slot int) error {
	return c.send("EndAll", "Slot", itoa(slot))
}

func (c *Client) Hold(slot, callID int) error {
	return c.send("Hold", "Slot", itoa(slot), "CallID", itoa(callID))
}

func (c *Client) Retrieve(slot, callID int) error {
	return c.send("Retrieve", "Slot", itoa(slot), "CallID", itoa(callID))
}

func (c *Client) Swap(slot int) error {
	return c.send("Swap", "Slot", itoa(slot))
}

func (c *Client) Answer(slot int, kind AnswerKind) error {
	return c.send("Answer", "Slot", itoa(slot), "Kind", kind.String())
}

func (c *Client) Join(slot int) error {
	return c.send("Join", "Slot", itoa(slot))
}

func (c *Client) Split(slot, callID int) error {
	return c.send("Split", "Slot", itoa(slot), "CallID", itoa(callID))
}

func (c *Client) Transfer(slot int) error {
	return c.send("Transfer", "Slot", itoa(slot))
}

func (c *Client) StartDTMF(slot int, digit byte) error {
	return c.send("StartDTMF", "Slot", itoa(slot), "Digit", string(digit))
}

func (c *Client) StopDTMF(slot int) error {
	return c.send("StopDTMF", "Slot", itoa(slot))
}

func (c *Client) BurstDTMF(slot int, digits string) error {
	return c.send("BurstDTMF", "Slot", itoa(slot), "Digits", digits)
}

func (c *Client) SetAudioPath(path AudioPath) error {
	return c.send("SetAudioPath", "Path", string(path))
}

func (c *Client) SetMute(mute bool) error {
	flag := "0"
	if mute {
		flag = "1"
	}
	return c.send("SetMute", "Mute", flag)
}

func (c *Client) SetFlightMode(enabled bool) error {
	flag := "0"
	if enabled {
		flag = "1"
	}
	return c.send("SetFlightMode", "Enabled", flag)
}
