package service

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"vnpay-broker/internal/domains/ticket/model"
)

// DecodePayload turns a QR ?data= value into a Ticket. The value may be
// plain JSON or base64 (URL or standard alphabet, padded or not) of JSON.
func DecodePayload(raw string) (*model.Ticket, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, model.ErrEmptyPayload
	}
	if len(raw) > model.MaxPayloadLength {
		return nil, model.ErrPayloadTooLong
	}

	data := []byte(raw)
	if !strings.HasPrefix(raw, "{") {
		decoded, err := decodeBase64(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", model.ErrInvalidPayload, err)
		}
		data = decoded
	}

	var ticket model.Ticket
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&ticket); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidPayload, err)
	}

	ticket.Normalize()
	if ticket.Kind == "" {
		ticket.Kind = model.KindTicket
	}
	if err := ticket.Validate(); err != nil {
		return nil, err
	}
	return &ticket, nil
}

// decodeBase64 accepts both alphabets with or without padding. A '+' that
// went through form decoding arrives as a space and is restored first.
func decodeBase64(s string) ([]byte, error) {
	s = strings.ReplaceAll(s, " ", "+")
	s = strings.TrimRight(s, "=")

	if strings.ContainsAny(s, "-_") {
		return base64.RawURLEncoding.DecodeString(s)
	}
	out, err := base64.RawStdEncoding.DecodeString(s)
	if err != nil {
		return base64.RawURLEncoding.DecodeString(s)
	}
	return out, nil
}
