package core

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// SignalKind names a call-signaling message.
type SignalKind string

const (
	SignalCallRequest  SignalKind = "call-request"
	SignalCallAccepted SignalKind = "call-accepted"
	SignalICECandidate SignalKind = "ice-candidate"
	SignalCallEnd      SignalKind = "call-end"
)

// CallType is the media a call request asks for.
type CallType string

const (
	CallTypeVoice CallType = "voice"
	CallTypeVideo CallType = "video"
)

// Signal is a call-setup message addressed to one user.
// The set of implementations is closed: CallRequest, CallAccepted,
// ICECandidate and CallEnd.
type Signal interface {
	Command
	Kind() SignalKind
	Target() string
	Validate() error
	signal()
}

// CallRequest carries the caller's session description.
type CallRequest struct {
	To       string
	CallType CallType
	Offer    json.RawMessage
}

// CallAccepted carries the callee's answer.
type CallAccepted struct {
	To     string
	Answer json.RawMessage
}

// ICECandidate carries one trickled network candidate.
type ICECandidate struct {
	To        string
	Candidate json.RawMessage
}

// CallEnd hangs up.
type CallEnd struct {
	To string
}

func (CallRequest) Kind() SignalKind  { return SignalCallRequest }
func (CallAccepted) Kind() SignalKind { return SignalCallAccepted }
func (ICECandidate) Kind() SignalKind { return SignalICECandidate }
func (CallEnd) Kind() SignalKind      { return SignalCallEnd }

func (s CallRequest) Target() string  { return s.To }
func (s CallAccepted) Target() string { return s.To }
func (s ICECandidate) Target() string { return s.To }
func (s CallEnd) Target() string      { return s.To }

func (CallRequest) signal()  {}
func (CallAccepted) signal() {}
func (ICECandidate) signal() {}
func (CallEnd) signal()      {}

func (CallRequest) command()  {}
func (CallAccepted) command() {}
func (ICECandidate) command() {}
func (CallEnd) command()      {}

// Validate checks the fields call-request requires.
func (s CallRequest) Validate() error {
	if s.To == "" {
		return malformed(SignalCallRequest, "to is required")
	}
	if s.CallType != CallTypeVoice && s.CallType != CallTypeVideo {
		return malformed(SignalCallRequest, "type must be voice or video")
	}
	if !hasPayload(s.Offer) {
		return malformed(SignalCallRequest, "offer is required")
	}
	return nil
}

// Validate checks the fields call-accepted requires.
func (s CallAccepted) Validate() error {
	if s.To == "" {
		return malformed(SignalCallAccepted, "to is required")
	}
	if !hasPayload(s.Answer) {
		return malformed(SignalCallAccepted, "answer is required")
	}
	return nil
}

// Validate checks the fields ice-candidate requires.
func (s ICECandidate) Validate() error {
	if s.To == "" {
		return malformed(SignalICECandidate, "to is required")
	}
	if !hasPayload(s.Candidate) {
		return malformed(SignalICECandidate, "candidate is required")
	}
	return nil
}

// Validate checks the fields call-end requires.
func (s CallEnd) Validate() error {
	if s.To == "" {
		return malformed(SignalCallEnd, "to is required")
	}
	return nil
}

// DeliveredName returns the event name the recipient sees for a signal kind.
func DeliveredName(kind SignalKind) string {
	switch kind {
	case SignalCallEnd:
		return "call-ended"
	default:
		return string(kind)
	}
}

func malformed(kind SignalKind, detail string) error {
	return fmt.Errorf("%w: %s: %s", ErrMalformedMessage, kind, detail)
}

func hasPayload(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}
