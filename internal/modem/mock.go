package modem

import "fmt"

// Command records one command issued to the Mock.
type Command struct {
	Action string
	Slot   int
	CallID int
	Arg    string
}

// Mock records all commands for test assertions and lets tests script
// transport failures per action.
type Mock struct {
	commands []Command
	fail     map[string]error
}

// NewMock creates a Mock commander.
func NewMock() *Mock {
	return &Mock{fail: make(map[string]error)}
}

// Commands returns a copy of every recorded command.
func (m *Mock) Commands() []Command {
	out := make([]Command, len(m.commands))
	copy(out, m.commands)
	return out
}

// Last returns the most recent command, or a zero Command.
func (m *Mock) Last() Command {
	if len(m.commands) == 0 {
		return Command{}
	}
	return m.commands[len(m.commands)-1]
}

// Reset clears all recorded commands.
func (m *Mock) Reset() {
	m.commands = nil
}

// FailNext makes every subsequent command with the given action return
// err. Pass nil to clear.
func (m *Mock) FailNext(action string, err error) {
	if err == nil {
		delete(m.fail, action)
		return
	}
	m.fail[action] = err
}

// CountAction returns how many commands with the given action were
// recorded.
func (m *Mock) CountAction(action string) int {
	n := 0
	for _, c := range m.commands {
		if c.Action == action {
			n++
		}
	}
	return n
}

func (m *Mock) record(cmd Command) error {
	if err := m.fail[cmd.Action]; err != nil {
		return fmt.Errorf("%s: %w", cmd.Action, err)
	}
	m.commands = append(m.commands, cmd)
	return nil
}

func (m *Mock) Dial(slot int, number, callType string) error {
	return m.record(Command{Action: "Dial", Slot: slot, Arg: number + "/" + callType})
}

func (m *Mock) End(slot, callID int) error {
	return m.record(Command{Action: "End", Slot: slot, CallID: callID})
}

func (m *Mock) EndAll(slot int) error {
	return m.record(Command{Action: "EndAll", Slot: slot})
}

func (m *Mock) Hold(slot, callID int) error {
	return m.record(Command{Action: "Hold", Slot: slot, CallID: callID})
}

func (m *Mock) Retrieve(slot, callID int) error {
	return m.record(Command{Action: "Retrieve", Slot: slot, CallID: callID})
}

func (m *Mock) Swap(slot int) error {
	return m.record(Command{Action: "Swap", Slot: slot})
}

func (m *Mock) Answer(slot int, kind AnswerKind) error {
	return m.record(Command{Action: "Answer", Slot: slot, Arg: kind.String()})
}

func (m *Mock) Join(slot int) error {
	return m.record(Command{Action: "Join", Slot: slot})
}

func (m *Mock) Split(slot, callID int) error {
	return m.record(Command{Action: "Split", Slot: slot, CallID: callID})
}

func (m *Mock) Transfer(slot int) error {
	return m.record(Command{Action: "Transfer", Slot: slot})
}

func (m *Mock) StartDTMF(slot int, digit byte) error {
	return m.record(Command{Action: "StartDTMF", Slot: slot, Arg: string(digit)})
}

func (m *Mock) StopDTMF(slot int) error {
	return m.record(Command{Action: "StopDTMF", Slot: slot})
}

func (m *Mock) BurstDTMF(slot int, digits string) error {
	return m.record(Command{Action: "BurstDTMF", Slot: slot, Arg: digits})
}

func (m *Mock) SetAudioPath(path AudioPath) error {
	return m.record(Command{Action: "SetAudioPath", Arg: string(path)})
}

func (m *Mock) SetMute(mute bool) error {
	arg := "0"
	if mute {
		arg = "1"
	}
	return m.record(Command{Action: "SetMute", Arg: arg})
}

func (m *Mock) SetFlightMode(enabled bool) error {
	arg := "0"
	if enabled {
		arg = "1"
	}
	return m.record(Command{Action: "SetFlightMode", Arg: arg})
}
