package sip

import (
	"context"

	"github.com/ghettovoice/siptx/internal/util"
)

// TransportProto is a transport protocol name as it appears in the Via header.
type TransportProto string

// Transport protocols.
const (
	TransportProtoUDP  TransportProto = "UDP"
	TransportProtoTCP  TransportProto = "TCP"
	TransportProtoTLS  TransportProto = "TLS"
	TransportProtoSCTP TransportProto = "SCTP"
	TransportProtoWS   TransportProto = "WS"
	TransportProtoWSS  TransportProto = "WSS"
)

// IsReliable reports whether the protocol provides reliable delivery.
// Unknown protocols are considered unreliable.
func (p TransportProto) IsReliable() bool {
	switch util.Upper(p) {
	case TransportProtoTCP, TransportProtoTLS, TransportProtoSCTP, TransportProtoWS, TransportProtoWSS:
		return true
	default:
		return false
	}
}

// Transport delivers serialized messages to the network.
// Send must not block for long, its error is reported to the transaction user.
type Transport interface {
	// Protocol returns the protocol name written into the Via header.
	Protocol() TransportProto
	// Send sends a serialized message.
	Send(ctx context.Context, msg string) error
}

// ReliableTransport is an optional interface a [Transport] implements to
// override the reliability derived from its protocol name.
type ReliableTransport interface {
	Transport
	Reliable() bool
}

// IsReliableTransport reports whether retransmissions are needed over the transport.
func IsReliableTransport(tp Transport) bool {
	if tp == nil {
		return false
	}
	if rtp, ok := tp.(ReliableTransport); ok {
		return rtp.Reliable()
	}
	return tp.Protocol().IsReliable()
}
