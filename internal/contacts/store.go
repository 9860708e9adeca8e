// Package contacts looks up caller details, the block list and the
// bounded call log the engine appends to.
package contacts

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a number has no contact entry.
var ErrNotFound = errors.New("contacts: not found")

// Contact is one address-book entry.
type Contact struct {
	Number string `json:"number"`
	Name   string `json:"name"`
	// EmergencyContact marks the entry as an ICE contact; dials to it
	// get the relaxed slot-selection default.
	EmergencyContact bool `json:"emergency_contact"`
}

// LogEntry is one call-log record.
type LogEntry struct {
	Kind      string    `json:"kind"`
	Slot      int       `json:"slot"`
	Number    string    `json:"number"`
	Name      string    `json:"name,omitempty"`
	StartTime time.Time `json:"start_time,omitempty"`
	EndTime   time.Time `json:"end_time"`
	EndCause  string    `json:"end_cause,omitempty"`
}

// Store is the contact and call-log backend.
type Store interface {
	// Lookup resolves a number to a contact. ErrNotFound when absent.
	Lookup(ctx context.Context, number string) (Contact, error)
	// IsBlocked reports whether the number is on the block list.
	IsBlocked(ctx context.Context, number string) (bool, error)
	// AddLog appends a call-log record.
	AddLog(ctx context.Context, e LogEntry) error
	Close() error
}
