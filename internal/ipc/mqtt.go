package ipc

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTSurface is the paho-backed Surface.
type MQTTSurface struct {
	client mqtt.Client
	prefix string
	qos    byte

	watched map[string]bool // name -> currently present
	reqs    chan Request
	clients chan ClientEvent
}

// MQTTOptions configures the surface.
type MQTTOptions struct {
	Broker   string
	ClientID string
	Prefix   string
	QoS      byte
	// WatchedClients are the client names whose presence is tracked.
	WatchedClients []string
}

// NewMQTTSurface connects to the broker and subscribes the request and
// presence topics.
func NewMQTTSurface(opts MQTTOptions) (*MQTTSurface, error) {
	clientOpts := mqtt.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetMaxReconnectInterval(60 * time.Second)

	client := mqtt.NewClient(clientOpts)
	token := client.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connecting to MQTT broker %s: %w", opts.Broker, err)
	}

	s := &MQTTSurface{
		client:  client,
		prefix:  opts.Prefix,
		qos:     opts.QoS,
		watched: make(map[string]bool),
		reqs:    make(chan Request, 16),
		clients: make(chan ClientEvent, 16),
	}
	for _, name := range opts.WatchedClients {
		s.watched[name] = false
	}

	if err := s.subscribe(s.prefix+"/req/+", s.onRequest); err != nil {
		return nil, err
	}
	if err := s.subscribe(s.prefix+"/client/+", s.onPresence); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *MQTTSurface) subscribe(filter string, h mqtt.MessageHandler) error {
	token := s.client.Subscribe(filter, s.qos, h)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribing %s: %w", filter, err)
	}
	return nil
}

// onRequest parses one inbound command. The method is the last topic
// segment; malformed payloads are dropped before the engine sees them.
func (s *MQTTSurface) onRequest(_ mqtt.Client, msg mqtt.Message) {
	idx := strings.LastIndex(msg.Topic(), "/")
	if idx < 0 {
		return
	}
	var req Request
	if err := json.Unmarshal(msg.Payload(), &req); err != nil {
		return
	}
	req.Method = msg.Topic()[idx+1:]
	select {
	case s.reqs <- req:
	default:
		// Loop backlogged; shedding a request is better than blocking
		// the broker callback.
	}
}

// onPresence tracks watched client liveness. Clients publish a
// retained non-empty payload on <prefix>/client/<name> and register an
// LWT that clears it.
func (s *MQTTSurface) onPresence(_ mqtt.Client, msg mqtt.Message) {
	idx := strings.LastIndex(msg.Topic(), "/")
	if idx < 0 {
		return
	}
	name := msg.Topic()[idx+1:]
	if _, ok := s.watched[name]; !ok {
		return
	}
	present := len(msg.Payload()) > 0
	if s.watched[name] == present {
		return
	}
	s.watched[name] = present
	select {
	case s.clients <- ClientEvent{Name: name, Present: present}:
	default:
	}
}

func (s *MQTTSurface) Requests() <-chan Request {
	return s.reqs
}

func (s *MQTTSurface) ClientEvents() <-chan ClientEvent {
	return s.clients
}

func (s *MQTTSurface) Respond(req Request, resp Response) error {
	resp.RequestID = req.RequestID
	return s.publish(s.prefix+"/resp/"+req.RequestID, resp)
}

func (s *MQTTSurface) PublishCallEvent(p CallEventPayload) error {
	return s.publish(s.prefix+"/event/call", p)
}

func (s *MQTTSurface) PublishDialStatus(p DialStatusPayload) error {
	return s.publish(s.prefix+"/event/dial-status", p)
}

func (s *MQTTSurface) PublishDTMF(p DTMFPayload) error {
	return s.publish(s.prefix+"/event/dtmf", p)
}

func (s *MQTTSurface) PublishAudio(p AudioPayload) error {
	return s.publish(s.prefix+"/event/audio", p)
}

func (s *MQTTSurface) PublishMute(p MutePayload) error {
	return s.publish(s.prefix+"/event/mute", p)
}

func (s *MQTTSurface) PublishRecord(p RecordPayload) error {
	return s.publish(s.prefix+"/event/record", p)
}

func (s *MQTTSurface) publish(topic string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling payload: %w", err)
	}
	token := s.client.Publish(topic, s.qos, false, data)
	token.Wait()
	return token.Error()
}

func (s *MQTTSurface) Close() error {
	s.client.Disconnect(1000)
	return nil
}
