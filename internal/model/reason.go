package model

// PlayerID identifies a connected player. Empty ID is invalid.
type PlayerID string

// Reason is attached to every recorded location and decides which
// EnterReason/LeaveReason a resulting transition reports.
type Reason uint8

const (
	ReasonMove Reason = iota + 1
	ReasonTeleport
	ReasonRespawn
	ReasonJoinServer
	ReasonWorldChange
)

// EnterReason is reported with an enter transition.
type EnterReason uint8

const (
	EnterMove EnterReason = iota + 1
	EnterTeleport
	EnterRespawn
	EnterJoinServer
	EnterWorldChange
)

// LeaveReason is reported with a leave transition.
type LeaveReason uint8

const (
	LeaveMove LeaveReason = iota + 1
	LeaveTeleport
	LeaveDead
	LeaveWorldChange
	LeaveDisconnect
)

// IsValid reports whether r is a known reason.
func (r Reason) IsValid() bool {
	return r >= ReasonMove && r <= ReasonWorldChange
}

// EnterReason maps the reason to the one reported when a region is entered.
func (r Reason) EnterReason() EnterReason {
	switch r {
	case ReasonTeleport:
		return EnterTeleport
	case ReasonRespawn:
		return EnterRespawn
	case ReasonJoinServer:
		return EnterJoinServer
	case ReasonWorldChange:
		return EnterWorldChange
	default:
		return EnterMove
	}
}

// LeaveReason maps the reason to the one reported when a region is left.
// A respawn means the player left its previous regions by dying.
func (r Reason) LeaveReason() LeaveReason {
	switch r {
	case ReasonTeleport:
		return LeaveTeleport
	case ReasonRespawn:
		return LeaveDead
	case ReasonWorldChange:
		return LeaveWorldChange
	default:
		return LeaveMove
	}
}

func (r Reason) String() string {
	switch r {
	case ReasonMove:
		return "MOVE"
	case ReasonTeleport:
		return "TELEPORT"
	case ReasonRespawn:
		return "RESPAWN"
	case ReasonJoinServer:
		return "JOIN_SERVER"
	case ReasonWorldChange:
		return "WORLD_CHANGE"
	default:
		return "UNKNOWN"
	}
}

func (r EnterReason) String() string {
	switch r {
	case EnterMove:
		return "MOVE"
	case EnterTeleport:
		return "TELEPORT"
	case EnterRespawn:
		return "RESPAWN"
	case EnterJoinServer:
		return "JOIN_SERVER"
	case EnterWorldChange:
		return "WORLD_CHANGE"
	default:
		return "UNKNOWN"
	}
}

// IsValid reports whether r is a known leave reason.
func (r LeaveReason) IsValid() bool {
	return r >= LeaveMove && r <= LeaveDisconnect
}

func (r LeaveReason) String() string {
	switch r {
	case LeaveMove:
		return "MOVE"
	case LeaveTeleport:
		return "TELEPORT"
	case LeaveDead:
		return "DEAD"
	case LeaveWorldChange:
		return "WORLD_CHANGE"
	case LeaveDisconnect:
		return "DISCONNECT"
	default:
		return "UNKNOWN"
	}
}
