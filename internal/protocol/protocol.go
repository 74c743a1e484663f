package protocol

import "github.com/bytedance/sonic"

const Version = "1.0"

// Message types.
const (
	TypeHello   = "HELLO"
	TypeWelcome = "WELCOME"
	TypeObs     = "OBS"
	TypeAct     = "ACT"
	TypeError   = "ERROR"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := sonic.Unmarshal(b, &m)
	return m, err
}

// Decode unmarshals a full message once its type is known.
func Decode(b []byte, v any) error { return sonic.Unmarshal(b, v) }

// Encode marshals an outgoing message.
func Encode(v any) ([]byte, error) { return sonic.Marshal(v) }
