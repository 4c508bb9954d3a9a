package messaging

import (
	"errors"
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Purpose selects which handler processes an envelope.
type Purpose string

const (
	PurposeAddUser       Purpose = "ADD_USER"
	PurposeAddProfile    Purpose = "ADD_PROFILE"
	PurposeAddLocation   Purpose = "ADD_LOCATION"
	PurposeAddWord       Purpose = "ADD_WORD"
	PurposeCreatePayment Purpose = "CREATE_PAYMENT_PURPOSE"
)

// ErrBadEnvelope marks a malformed or unrecognizable message body. The
// consumer logs these and drops the message without retry.
var ErrBadEnvelope = errors.New("malformed envelope")

// Envelope is the broker message body: a purpose tag plus one payload stored
// as a JSON-encoded string under a purpose-specific key.
type Envelope struct {
	Purpose Purpose

	fields map[string]jsoniter.RawMessage
}

// DecodeEnvelope parses a raw message body.
func DecodeEnvelope(body []byte) (Envelope, error) {
	var fields map[string]jsoniter.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrBadEnvelope, err)
	}

	raw, ok := fields["purpose"]
	if !ok {
		return Envelope{}, fmt.Errorf("%w: missing purpose", ErrBadEnvelope)
	}

	var purpose string
	if err := json.Unmarshal(raw, &purpose); err != nil {
		return Envelope{}, fmt.Errorf("%w: purpose: %v", ErrBadEnvelope, err)
	}

	return Envelope{Purpose: Purpose(purpose), fields: fields}, nil
}

// Payload decodes the JSON-encoded string stored under key into v.
func (e Envelope) Payload(key string, v any) error {
	raw, ok := e.fields[key]
	if !ok {
		return fmt.Errorf("%w: missing payload %q", ErrBadEnvelope, key)
	}

	var inner string
	if err := json.Unmarshal(raw, &inner); err != nil {
		return fmt.Errorf("%w: payload %q: %v", ErrBadEnvelope, key, err)
	}
	if err := json.Unmarshal([]byte(inner), v); err != nil {
		return fmt.Errorf("%w: payload %q: %v", ErrBadEnvelope, key, err)
	}
	return nil
}

// EncodeEnvelope builds a message body for one payload.
func EncodeEnvelope(purpose Purpose, key string, payload any) ([]byte, error) {
	inner, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", purpose, err)
	}

	body, err := json.Marshal(map[string]string{
		"purpose": string(purpose),
		key:       string(inner),
	})
	if err != nil {
		return nil, fmt.Errorf("encode %s envelope: %w", purpose, err)
	}
	return body, nil
}
