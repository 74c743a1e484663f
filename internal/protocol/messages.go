package protocol

// HELLO (client -> bot)
type HelloMsg struct {
	Type            string            `json:"type"`
	ProtocolVersion string            `json:"protocol_version"`
	ClientName      string            `json:"client_name"`
	Player          string            `json:"player,omitempty"`
	AccountMode     string            `json:"account_mode,omitempty"`
	Capabilities    HelloCapabilities `json:"capabilities"`
}

type HelloCapabilities struct {
	Gravestones bool `json:"gravestones,omitempty"`
	MaxCommands int  `json:"max_commands,omitempty"`
}

// WELCOME (bot -> client)
type WelcomeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	SessionID       string `json:"session_id"`
	TickRateHz      int    `json:"tick_rate_hz"`
	// AckTimeoutTicks is how long the bot waits for an ack before treating a
	// command as failed.
	AckTimeoutTicks int `json:"ack_timeout_ticks"`
}

// ERROR (bot -> client)
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message"`
}

func NewError(code, message string) ErrorMsg {
	return ErrorMsg{Type: TypeError, ProtocolVersion: Version, Code: code, Message: message}
}
