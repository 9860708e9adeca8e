package ipc

// Surface is the engine-facing side of the IPC layer. The orchestrator
// consumes Requests and ClientEvents on its loop and publishes typed
// payloads; only transport errors are returned.
type Surface interface {
	// Requests delivers inbound client commands.
	Requests() <-chan Request
	// ClientEvents delivers presence changes for watched clients.
	ClientEvents() <-chan ClientEvent

	// Respond answers one request.
	Respond(req Request, resp Response) error

	PublishCallEvent(p CallEventPayload) error
	PublishDialStatus(p DialStatusPayload) error
	PublishDTMF(p DTMFPayload) error
	PublishAudio(p AudioPayload) error
	PublishMute(p MutePayload) error
	PublishRecord(p RecordPayload) error

	Close() error
}
