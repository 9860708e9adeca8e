// Package modem speaks the line protocol of the modem daemon: events
// and command responses arrive as blocks of "Key: Value" lines
// terminated by a blank line, commands are written as "Action" blocks.
package modem

import "strconv"

// Event type names reported by the modem daemon.
const (
	EventCallStatus    = "CallStatus"
	EventSimStatus     = "SimStatus"
	EventNetworkStatus = "NetworkStatus"
	EventPhoneStatus   = "PhoneStatus"
	EventDtmfAck       = "DtmfAck"
	EventSatRequest    = "SatRequest"
)

// Event is a parsed modem notification or command response, kept as an
// ordered set of key-value pairs.
type Event struct {
	headers []header
}

type header struct {
	Key   string
	Value string
}

// NewEvent builds an Event from alternating key-value pairs. Test
// helper and fixture constructor.
func NewEvent(kvs ...string) Event {
	e := Event{}
	for i := 0; i+1 < len(kvs); i += 2 {
		e.headers = append(e.headers, header{Key: kvs[i], Value: kvs[i+1]})
	}
	return e
}

// Get returns the value for the given key, or empty string if absent.
func (e Event) Get(key string) string {
	for _, h := range e.headers {
		if h.Key == key {
			return h.Value
		}
	}
	return ""
}

// Type returns the Event header value (the notification type).
func (e Event) Type() string {
	return e.Get("Event")
}

// GetInt returns the integer value for the given key, or 0.
func (e Event) GetInt(key string) int {
	v, _ := strconv.Atoi(e.Get(key))
	return v
}

// GetBool interprets the value as a flag. The daemon writes "1"/"0"
// but tolerate true/false spellings too.
func (e Event) GetBool(key string) bool {
	switch e.Get(key) {
	case "1", "true", "yes":
		return true
	}
	return false
}

// Slot returns the SIM slot index the event belongs to.
func (e Event) Slot() int {
	return e.GetInt("Slot")
}

// IsResponse reports whether this block answers a command rather than
// carrying a notification.
func (e Event) IsResponse() bool {
	return e.Get("Response") != ""
}

// Succeeded reports whether a response block carries a success status.
func (e Event) Succeeded() bool {
	return e.Get("Response") == "Success"
}

// ActionID returns the correlation id echoed from the command.
func (e Event) ActionID() string {
	return e.Get("ActionID")
}
