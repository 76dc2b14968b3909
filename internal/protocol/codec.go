package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrEmptyLine is returned by Decode for blank input; callers skip
// blank lines rather than treating them as protocol errors.
var ErrEmptyLine = errors.New("protocol: empty line")

// Envelope is the outer record on the wire. Message stays raw until the
// caller knows which payload type to decode into.
type Envelope struct {
	Type    Type            `json:"type"`
	Message json.RawMessage `json:"message"`
}

// Encode frames a payload as a single newline-terminated JSON record.
func Encode(t Type, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("protocol: encoding %s payload: %w", t, err)
	}
	line, err := json.Marshal(Envelope{Type: t, Message: raw})
	if err != nil {
		return nil, fmt.Errorf("protocol: encoding %s envelope: %w", t, err)
	}
	return append(line, '\n'), nil
}

// Decode parses one line into an envelope. The line may carry trailing
// newline or carriage-return bytes from the transport.
func Decode(line []byte) (Envelope, error) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return Envelope{}, ErrEmptyLine
	}
	var env Envelope
	if err := json.Unmarshal(line, &env); err != nil {
		return Envelope{}, fmt.Errorf("protocol: malformed record: %w", err)
	}
	return env, nil
}

// Payload unmarshals the envelope's message into v.
func (e Envelope) Payload(v any) error {
	if err := json.Unmarshal(e.Message, v); err != nil {
		return fmt.Errorf("protocol: decoding %s payload: %w", e.Type, err)
	}
	return nil
}
