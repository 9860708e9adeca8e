package collab

import (
	"fmt"

	"github.com/google/uuid"
)

// MockAudio records audio session operations.
type MockAudio struct {
	Sessions  []string
	Destroyed []string
	Routes    map[string]Route
	Err       error
}

// NewMockAudio creates a MockAudio.
func NewMockAudio() *MockAudio {
	return &MockAudio{Routes: make(map[string]Route)}
}

func (m *MockAudio) CreateSession() (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	id := uuid.NewString()
	m.Sessions = append(m.Sessions, id)
	m.Routes[id] = RouteReceiver
	return id, nil
}

func (m *MockAudio) DestroySession(id string) error {
	m.Destroyed = append(m.Destroyed, id)
	delete(m.Routes, id)
	return m.Err
}

func (m *MockAudio) SetRoute(id string, r Route) error {
	if m.Err != nil {
		return m.Err
	}
	if _, ok := m.Routes[id]; !ok {
		return fmt.Errorf("audio: unknown session %s", id)
	}
	m.Routes[id] = r
	return nil
}

func (m *MockAudio) CurrentRoute(id string) (Route, error) {
	if r, ok := m.Routes[id]; ok {
		return r, nil
	}
	return "", fmt.Errorf("audio: unknown session %s", id)
}

// Live returns the number of sessions created and not yet destroyed.
func (m *MockAudio) Live() int {
	return len(m.Sessions) - len(m.Destroyed)
}

// MockRinger records alert and tone activity.
type MockRinger struct {
	Alerting bool
	Alerts   []string
	Effects  []Effect
	Signals  []string
}

// NewMockRinger creates a MockRinger.
func NewMockRinger() *MockRinger {
	return &MockRinger{}
}

func (m *MockRinger) StartAlert(number string) error {
	m.Alerting = true
	m.Alerts = append(m.Alerts, number)
	return nil
}

func (m *MockRinger) StopAlert() error {
	m.Alerting = false
	return nil
}

func (m *MockRinger) PlayEffect(e Effect) error {
	m.Effects = append(m.Effects, e)
	return nil
}

func (m *MockRinger) PlaySignal(cause string) error {
	m.Signals = append(m.Signals, cause)
	return nil
}

// MockHandsFree records forwarded call events.
type MockHandsFree struct {
	Events   []CallEvent
	LinkOpen bool
	Attached bool
}

// NewMockHandsFree creates a MockHandsFree.
func NewMockHandsFree() *MockHandsFree {
	return &MockHandsFree{}
}

func (m *MockHandsFree) SendCallEvent(e CallEvent) error {
	m.Events = append(m.Events, e)
	return nil
}

func (m *MockHandsFree) OpenLink() error {
	m.LinkOpen = true
	return nil
}

func (m *MockHandsFree) CloseLink() error {
	m.LinkOpen = false
	return nil
}

func (m *MockHandsFree) Connected() bool {
	return m.Attached
}

// MockRecorder records start/stop calls.
type MockRecorder struct {
	Running bool
	Started []int
}

// NewMockRecorder creates a MockRecorder.
func NewMockRecorder() *MockRecorder {
	return &MockRecorder{}
}

func (m *MockRecorder) Start(callID int) error {
	m.Running = true
	m.Started = append(m.Started, callID)
	return nil
}

func (m *MockRecorder) Stop() error {
	m.Running = false
	return nil
}

func (m *MockRecorder) Active() bool {
	return m.Running
}
