package ipc

// Published records one published payload for test assertions.
type Published struct {
	Topic   string
	Payload any
}

// Mock records every publish and lets tests inject requests and
// client events.
type Mock struct {
	published []Published
	responses []Response
	reqs      chan Request
	clients   chan ClientEvent
	closed    bool
	err       error
}

// NewMock creates a Mock surface.
func NewMock() *Mock {
	return &Mock{
		reqs:    make(chan Request, 16),
		clients: make(chan ClientEvent, 16),
	}
}

// Inject queues a request as if a client had published it.
func (m *Mock) Inject(req Request) {
	m.reqs <- req
}

// InjectClientEvent queues a presence change.
func (m *Mock) InjectClientEvent(e ClientEvent) {
	m.clients <- e
}

// Published returns a copy of everything published so far.
func (m *Mock) PublishedEvents() []Published {
	out := make([]Published, len(m.published))
	copy(out, m.published)
	return out
}

// Responses returns every response sent so far.
func (m *Mock) Responses() []Response {
	out := make([]Response, len(m.responses))
	copy(out, m.responses)
	return out
}

// LastResponse returns the most recent response, or a zero Response.
func (m *Mock) LastResponse() Response {
	if len(m.responses) == 0 {
		return Response{}
	}
	return m.responses[len(m.responses)-1]
}

// EventsOn returns the payloads published to one topic suffix.
func (m *Mock) EventsOn(topic string) []any {
	var out []any
	for _, p := range m.published {
		if p.Topic == topic {
			out = append(out, p.Payload)
		}
	}
	return out
}

// Reset clears recorded publishes and responses.
func (m *Mock) Reset() {
	m.published = nil
	m.responses = nil
}

// SetError makes every publish fail with err. Pass nil to clear.
func (m *Mock) SetError(err error) {
	m.err = err
}

// Closed reports whether Close was called.
func (m *Mock) Closed() bool {
	return m.closed
}

func (m *Mock) Requests() <-chan Request {
	return m.reqs
}

func (m *Mock) ClientEvents() <-chan ClientEvent {
	return m.clients
}

func (m *Mock) Respond(req Request, resp Response) error {
	if m.err != nil {
		return m.err
	}
	resp.RequestID = req.RequestID
	m.responses = append(m.responses, resp)
	return nil
}

func (m *Mock) record(topic string, payload any) error {
	if m.err != nil {
		return m.err
	}
	m.published = append(m.published, Published{Topic: topic, Payload: payload})
	return nil
}

func (m *Mock) PublishCallEvent(p CallEventPayload) error {
	return m.record("event/call", p)
}

func (m *Mock) PublishDialStatus(p DialStatusPayload) error {
	return m.record("event/dial-status", p)
}

func (m *Mock) PublishDTMF(p DTMFPayload) error {
	return m.record("event/dtmf", p)
}

func (m *Mock) PublishAudio(p AudioPayload) error {
	return m.record("event/audio", p)
}

func (m *Mock) PublishMute(p MutePayload) error {
	return m.record("event/mute", p)
}

func (m *Mock) PublishRecord(p RecordPayload) error {
	return m.record("event/record", p)
}

func (m *Mock) Close() error {
	m.closed = true
	return nil
}
