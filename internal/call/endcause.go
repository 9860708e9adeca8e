package call

// EndCause is the modem-reported release cause for an ended leg.
type EndCause int

// Release causes, aligned with the Q.850 subset the modem reports.
const (
	CauseUnknown        EndCause = 0
	CauseUnassigned     EndCause = 1
	CauseNormal         EndCause = 16
	CauseBusy           EndCause = 17
	CauseNoAnswer       EndCause = 19
	CauseRejected       EndCause = 21
	CauseInvalidNumber  EndCause = 28
	CauseNormalUnspec   EndCause = 31
	CauseCongestion     EndCause = 34
	CauseNoService      EndCause = 38
	CauseBlockedByUser  EndCause = 100
	CauseRejectedByUser EndCause = 101
)

// causeInfo maps release causes to names and descriptions.
var causeInfo = map[EndCause]struct {
	Name        string
	Description string
}{
	CauseUnknown:        {"unknown", "Unknown or no cause provided"},
	CauseUnassigned:     {"unassigned_number", "The dialed number is not assigned"},
	CauseNormal:         {"normal_clearing", "The call was ended normally by one of the parties"},
	CauseBusy:           {"user_busy", "The destination was busy"},
	CauseNoAnswer:       {"no_answer", "The destination did not answer within the timeout"},
	CauseRejected:       {"call_rejected", "The call was rejected by the destination"},
	CauseInvalidNumber:  {"invalid_number", "The dialed number is malformed or unreachable"},
	CauseNormalUnspec:   {"normal_unspecified", "Normal call clearing, unspecified cause"},
	CauseCongestion:     {"congestion", "All circuits are busy or no circuit is available"},
	CauseNoService:      {"no_service", "The network is not available"},
	CauseBlockedByUser:  {"blocked", "The call was auto-rejected by the block list"},
	CauseRejectedByUser: {"rejected_by_user", "The user declined the call"},
}

// Name returns the short cause name.
func (c EndCause) Name() string {
	if info, ok := causeInfo[c]; ok {
		return info.Name
	}
	return "unknown"
}

// Description returns the human-readable cause description.
func (c EndCause) Description() string {
	if info, ok := causeInfo[c]; ok {
		return info.Description
	}
	return causeInfo[CauseUnknown].Description
}

// LogKind classifies an ended leg for the call log.
type LogKind int

const (
	LogAnswered LogKind = iota
	LogMissed
	LogRejected
	LogBlocked
	LogOutgoing
)

// String returns the wire name of the log classification.
func (k LogKind) String() string {
	switch k {
	case LogMissed:
		return "missed"
	case LogRejected:
		return "rejected"
	case LogBlocked:
		return "blocked"
	case LogOutgoing:
		return "outgoing"
	default:
		return "answered"
	}
}

// ClassifyEnd decides the call-log entry kind for a leg that just
// reached idle. wasAnswered is whether the leg was ever active.
func ClassifyEnd(leg *Leg, wasAnswered bool) LogKind {
	if leg.Direction == MobileOriginated {
		return LogOutgoing
	}
	if wasAnswered {
		return LogAnswered
	}
	switch leg.EndCause {
	case CauseBlockedByUser:
		return LogBlocked
	case CauseRejectedByUser, CauseRejected:
		return LogRejected
	default:
		return LogMissed
	}
}
