// Package simsel chooses the radio subscription for outgoing calls and
// classifies dialed numbers as emergency calls.
package simsel

// NetworkStatus is the registration state reported per slot.
type NetworkStatus int

const (
	NetworkOutOfService NetworkStatus = iota
	Network2G
	Network3G
	NetworkEmergencyOnly
)

// String returns the wire name of the network status.
func (n NetworkStatus) String() string {
	switch n {
	case Network2G:
		return "2g"
	case Network3G:
		return "3g"
	case NetworkEmergencyOnly:
		return "emergency"
	default:
		return "oos"
	}
}

// ParseNetworkStatus maps a wire name back to a NetworkStatus.
func ParseNetworkStatus(s string) NetworkStatus {
	switch s {
	case "2g":
		return Network2G
	case "3g":
		return Network3G
	case "emergency":
		return NetworkEmergencyOnly
	}
	return NetworkOutOfService
}

// CardType distinguishes how the SIM encodes its emergency list.
type CardType int

const (
	// CardSIM carries a flat list of up to five emergency numbers.
	CardSIM CardType = iota
	// CardUSIM carries a categorized emergency list.
	CardUSIM
)

// EccEntry is one emergency number from the SIM or a default table.
type EccEntry struct {
	Number   string
	Category Category
}

// SlotStatus is the per-slot SIM and network state, created once at
// daemon start and updated in place on every modem notification.
type SlotStatus struct {
	Slot int

	NoSIM            bool
	SIMInitialized   bool
	PhoneInitialized bool
	FlightMode       bool
	CardType         CardType

	Network NetworkStatus
	MCC     string
	MNC     string

	// SimECC is the SIM-provided emergency list.
	SimECC []EccEntry

	// PreferredVoice marks this slot as the preferred voice
	// subscription when both SIMs are usable.
	PreferredVoice bool
}

// Usable reports whether the slot can carry a normal outgoing call.
func (s *SlotStatus) Usable() bool {
	return !s.NoSIM && s.SIMInitialized && s.PhoneInitialized
}

// InService reports whether the slot has any registration at all.
func (s *SlotStatus) InService() bool {
	return s.Network != NetworkOutOfService
}
