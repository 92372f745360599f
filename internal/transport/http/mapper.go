package http

import (
	"github.com/vovakirdan/twinlink-server/internal/core"
	"github.com/vovakirdan/twinlink-server/internal/proto"
)

// inboundToCommand maps a client frame to a core command. A nil command with
// a nil error means the frame is ignored.
func inboundToCommand(inbound proto.Inbound) (core.Command, *core.CoreError) {
	switch inbound.Event {
	case proto.EventCallRequest:
		return core.CallRequest{
			To:       inbound.To,
			CallType: core.CallType(inbound.Type),
			Offer:    inbound.Offer,
		}, nil
	case proto.EventCallAccepted:
		return core.CallAccepted{To: inbound.To, Answer: inbound.Answer}, nil
	case proto.EventICECandidate:
		return core.ICECandidate{To: inbound.To, Candidate: inbound.Candidate}, nil
	case proto.EventCallEnd:
		return core.CallEnd{To: inbound.To}, nil
	case proto.EventJoinConversation:
		return core.JoinConversation{ConversationID: inbound.ConversationID}, nil
	case proto.EventLeaveConversation:
		return core.LeaveConversation{ConversationID: inbound.ConversationID}, nil
	case proto.EventTyping:
		if inbound.IsTyping == nil {
			return nil, &core.CoreError{Code: core.ErrCodeMalformed, Message: "typing: isTyping is required"}
		}
		return core.SetTyping{ConversationID: inbound.ConversationID, IsTyping: *inbound.IsTyping}, nil
	case proto.EventAuth:
		// Already authenticated; a repeated auth frame is harmless.
		return nil, nil
	case "":
		return nil, &core.CoreError{Code: core.ErrCodeMalformed, Message: "event is required"}
	default:
		return nil, &core.CoreError{Code: core.ErrCodeUnknownEvent, Message: "unknown event " + inbound.Event}
	}
}

// outboundFromEvent renders an event queued on a socket connection.
func outboundFromEvent(event *core.Event) (any, bool) {
	switch event.Kind {
	case core.EventSignal:
		return outboundSignal(event.From, event.Signal)
	case core.EventTyping:
		if event.Typing == nil {
			return nil, false
		}
		return proto.OutboundTyping{
			Event:          proto.EventTyping,
			ConversationID: event.Typing.ConversationID,
			From:           event.From,
			IsTyping:       event.Typing.IsTyping,
		}, true
	case core.EventError:
		if event.Error == nil {
			return proto.NewError(core.ErrCodeInternal, "unknown error"), true
		}
		return proto.NewError(event.Error.Code, event.Error.Message), true
	default:
		return nil, false
	}
}

func outboundSignal(from string, sig core.Signal) (any, bool) {
	if sig == nil {
		return nil, false
	}
	out := proto.OutboundSignal{
		Event: core.DeliveredName(sig.Kind()),
		From:  from,
	}
	switch s := sig.(type) {
	case core.CallRequest:
		out.Type = string(s.CallType)
		out.Offer = s.Offer
	case core.CallAccepted:
		out.Answer = s.Answer
	case core.ICECandidate:
		out.Candidate = s.Candidate
	case core.CallEnd:
	}
	return out, true
}

// streamFrameFromEvent renders an event queued on a stream connection.
func streamFrameFromEvent(event *core.Event) (proto.StreamFrame, bool) {
	if event.Kind != core.EventDomain || event.Domain == nil {
		return proto.StreamFrame{}, false
	}
	return proto.StreamFrame{
		Type:      event.Domain.Type,
		Payload:   event.Domain.Payload,
		Timestamp: event.Domain.CreatedAt.UnixMilli(),
	}, true
}
