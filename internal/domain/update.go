package domain

// UpdateKind classifies an inbound chat event.
type UpdateKind string

const (
	UpdateCommand UpdateKind = "command"
	UpdateText    UpdateKind = "text"
	UpdateButton  UpdateKind = "button"
)

// User identifies the sender of an update.
type User struct {
	ID       int64
	Username string
}

// Update is a transport-agnostic inbound event.
type Update struct {
	ID     int64
	Kind   UpdateKind
	From   User
	ChatID int64

	// Command is the verb without the leading slash; Args is the rest of the line.
	Command string
	Args    string

	Text string

	// Payload and CallbackID are set for button presses.
	Payload    string
	CallbackID string
}

// Button is an inline reply affordance attached to an outbound message.
type Button struct {
	Text    string
	Payload string
}
