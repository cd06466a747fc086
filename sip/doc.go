// Package sip implements the SIP transaction layer described in RFC 3261 Section 17,
// with the updates of RFC 6026 and RFC 4320.
//
// The package provides four transaction types:
//   - [InviteClientTransaction]
//   - [NonInviteClientTransaction]
//   - [InviteServerTransaction]
//   - [NonInviteServerTransaction]
//
// Each transaction is a self-driven actor. It sends messages through a [Transport],
// runs its own retransmission and cleanup timers and reports to the transaction user
// through the callbacks of [TransactionUser], [ClientTransactionUser] and [ServerTransactionUser].
// Once a transaction reaches [TransactionStateTerminated] it disposes itself.
//
// The package also carries a minimal message model ([Request], [Response], [Headers], [Via])
// that covers what the transaction layer reads and writes. Parsing of the wire format
// is left to the transport layer.
package sip

//go:generate go tool errtrace -w .
//go:generate go tool mockgen -typed -source=transport.go -destination=mock_transport_test.go -package=sip_test
