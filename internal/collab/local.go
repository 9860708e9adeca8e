package collab

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Local implementations for headless deployments. The daemon owns the
// session bookkeeping; alerts and tones are rendered by the UI client
// from the published event stream, and call audio routing is mirrored
// to the modem's audio path by the engine.

// LocalAudio tracks the call audio session and its route.
type LocalAudio struct {
	log     *logrus.Entry
	session string
	route   Route
}

// NewLocalAudio creates a LocalAudio.
func NewLocalAudio(log *logrus.Entry) *LocalAudio {
	return &LocalAudio{log: log}
}

func (a *LocalAudio) CreateSession() (string, error) {
	if a.session != "" {
		return "", fmt.Errorf("audio: session %s already open", a.session)
	}
	a.session = uuid.NewString()
	a.route = RouteReceiver
	a.log.Infof("audio session %s opened", a.session)
	return a.session, nil
}

func (a *LocalAudio) DestroySession(id string) error {
	if id != a.session {
		return fmt.Errorf("audio: unknown session %s", id)
	}
	a.log.Infof("audio session %s closed", a.session)
	a.session = ""
	return nil
}

func (a *LocalAudio) SetRoute(id string, r Route) error {
	if id != a.session {
		return fmt.Errorf("audio: unknown session %s", id)
	}
	a.route = r
	return nil
}

func (a *LocalAudio) CurrentRoute(id string) (Route, error) {
	if id != a.session {
		return "", fmt.Errorf("audio: unknown session %s", id)
	}
	return a.route, nil
}

// LocalRinger logs alert activity; the ringtone itself is rendered by
// the UI client from the incoming call events.
type LocalRinger struct {
	log *logrus.Entry
}

// NewLocalRinger creates a LocalRinger.
func NewLocalRinger(log *logrus.Entry) *LocalRinger {
	return &LocalRinger{log: log}
}

func (r *LocalRinger) StartAlert(number string) error {
	r.log.Infof("alert start for %s", number)
	return nil
}

func (r *LocalRinger) StopAlert() error {
	r.log.Debug("alert stop")
	return nil
}

func (r *LocalRinger) PlayEffect(e Effect) error {
	r.log.Debugf("effect %s", e)
	return nil
}

func (r *LocalRinger) PlaySignal(cause string) error {
	r.log.Infof("signal tone for %s", cause)
	return nil
}

// LocalHandsFree is the accessory link stub used when no HFP service
// is attached.
type LocalHandsFree struct {
	log  *logrus.Entry
	open bool
}

// NewLocalHandsFree creates a LocalHandsFree.
func NewLocalHandsFree(log *logrus.Entry) *LocalHandsFree {
	return &LocalHandsFree{log: log}
}

func (h *LocalHandsFree) SendCallEvent(e CallEvent) error {
	h.log.Debugf("hfp %s call %d", e.Kind, e.CallID)
	return nil
}

func (h *LocalHandsFree) OpenLink() error {
	h.open = true
	return nil
}

func (h *LocalHandsFree) CloseLink() error {
	h.open = false
	return nil
}

func (h *LocalHandsFree) Connected() bool {
	return h.open
}

// LocalRecorder reports no recording capability.
type LocalRecorder struct{}

// NewLocalRecorder creates a LocalRecorder.
func NewLocalRecorder() *LocalRecorder {
	return &LocalRecorder{}
}

func (r *LocalRecorder) Start(callID int) error {
	return fmt.Errorf("recorder: not available")
}

func (r *LocalRecorder) Stop() error {
	return nil
}

func (r *LocalRecorder) Active() bool {
	return false
}
