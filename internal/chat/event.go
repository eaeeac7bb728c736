// Package chat holds transport-neutral inbound events and outbound markup.
package chat

type EventKind int

const (
	KindText EventKind = iota
	KindVideo
	KindCallback
)

func (k EventKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindVideo:
		return "video"
	case KindCallback:
		return "callback"
	}
	return "unknown"
}

type Event struct {
	Kind      EventKind
	SenderID  int64
	ChatID    int64
	MessageID int

	// Text is the message text for KindText.
	Text string
	// Asset is the opaque video handle for KindVideo.
	Asset string

	CallbackID string
	Data       string
}

type MemberStatus string

const (
	StatusCreator       MemberStatus = "creator"
	StatusAdministrator MemberStatus = "administrator"
	StatusMember        MemberStatus = "member"
	StatusRestricted    MemberStatus = "restricted"
	StatusLeft          MemberStatus = "left"
	StatusKicked        MemberStatus = "kicked"
)

// Joined reports whether the status counts as channel membership.
func (s MemberStatus) Joined() bool {
	switch s {
	case StatusCreator, StatusAdministrator, StatusMember, StatusRestricted:
		return true
	}
	return false
}
