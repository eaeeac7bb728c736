package dialog

import "time"

type Mode int

const (
	ModeAddMovie Mode = iota + 1
	ModeAddPart
	ModeDelete
	ModeDeletePart
	ModeAddChannel
	ModeRemoveChannel
)

func (m Mode) String() string {
	switch m {
	case ModeAddMovie:
		return "add_movie"
	case ModeAddPart:
		return "add_part"
	case ModeDelete:
		return "delete"
	case ModeDeletePart:
		return "delete_part"
	case ModeAddChannel:
		return "add_channel"
	case ModeRemoveChannel:
		return "remove_channel"
	}
	return "none"
}

type State int

const (
	StateIdle State = iota
	StateAwaitingAsset
	StateAwaitingCode
	StateAwaitingPartLabel
	StateAwaitingDeleteCode
	StateAwaitingDeletePartCode
	StateAwaitingChannel
)

func (s State) String() string {
	switch s {
	case StateAwaitingAsset:
		return "awaiting_asset"
	case StateAwaitingCode:
		return "awaiting_code"
	case StateAwaitingPartLabel:
		return "awaiting_part_label"
	case StateAwaitingDeleteCode:
		return "awaiting_delete_code"
	case StateAwaitingDeletePartCode:
		return "awaiting_delete_part_code"
	case StateAwaitingChannel:
		return "awaiting_channel"
	}
	return "idle"
}

// Session is the in-progress flow of one admin.
type Session struct {
	ID        string
	AdminID   int64
	Mode      Mode
	State     State
	Code      string
	Asset     string
	UpdatedAt time.Time
}
