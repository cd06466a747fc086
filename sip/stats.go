package sip

import (
	"sync/atomic"
	"time"
)

// TransactionCounts is a counter per transaction type.
type TransactionCounts struct {
	ClientInvite    uint64 `json:"client_invite"`
	ClientNonInvite uint64 `json:"client_non_invite"`
	ServerInvite    uint64 `json:"server_invite"`
	ServerNonInvite uint64 `json:"server_non_invite"`
}

// Of returns the counter of the given transaction type, zero for unknown types.
func (c TransactionCounts) Of(typ TransactionType) uint64 {
	switch typ {
	case TransactionTypeClientInvite:
		return c.ClientInvite
	case TransactionTypeClientNonInvite:
		return c.ClientNonInvite
	case TransactionTypeServerInvite:
		return c.ServerInvite
	case TransactionTypeServerNonInvite:
		return c.ServerNonInvite
	default:
		return 0
	}
}

// TransactionStats is a snapshot taken by [StatsRecorder.Report].
type TransactionStats struct {
	Time time.Time `json:"time"`
	// Active counts transactions created and not disposed yet.
	Active TransactionCounts `json:"active"`
	// Created counts every transaction ever created.
	Created TransactionCounts `json:"created"`
	// Timeouts counts Timer B, F and H expirations and 408 responses to non-INVITE requests.
	Timeouts        uint64 `json:"timeouts"`
	TransportErrors uint64 `json:"transport_errors"`
	Retransmissions uint64 `json:"retransmissions"`
}

var txTypeIdx = [...]TransactionType{
	TransactionTypeClientInvite,
	TransactionTypeClientNonInvite,
	TransactionTypeServerInvite,
	TransactionTypeServerNonInvite,
}

func txTypeIndex(typ TransactionType) int {
	for i, t := range txTypeIdx {
		if t == typ {
			return i
		}
	}
	return -1
}

// StatsRecorder collects counters of the transactions it is passed to
// with [ClientTransactionOptions] or [ServerTransactionOptions].
// Zero value is ready to use, nil recorder records nothing.
type StatsRecorder struct {
	active  [len(txTypeIdx)]atomic.Int64
	created [len(txTypeIdx)]atomic.Uint64

	timeouts,
	transpErrs,
	retrans atomic.Uint64
}

// Report returns the current counters.
func (rcdr *StatsRecorder) Report() TransactionStats {
	stats := TransactionStats{Time: time.Now()}
	if rcdr == nil {
		return stats
	}

	var active, created [len(txTypeIdx)]uint64
	for i := range txTypeIdx {
		active[i] = uint64(max(rcdr.active[i].Load(), 0))
		created[i] = rcdr.created[i].Load()
	}
	stats.Active = TransactionCounts{active[0], active[1], active[2], active[3]}
	stats.Created = TransactionCounts{created[0], created[1], created[2], created[3]}
	stats.Timeouts = rcdr.timeouts.Load()
	stats.TransportErrors = rcdr.transpErrs.Load()
	stats.Retransmissions = rcdr.retrans.Load()
	return stats
}

func (rcdr *StatsRecorder) txCreated(typ TransactionType) {
	if i := txTypeIndex(typ); rcdr != nil && i >= 0 {
		rcdr.active[i].Add(1)
		rcdr.created[i].Add(1)
	}
}

func (rcdr *StatsRecorder) txDisposed(typ TransactionType) {
	if i := txTypeIndex(typ); rcdr != nil && i >= 0 {
		rcdr.active[i].Add(-1)
	}
}

func (rcdr *StatsRecorder) txTimedOut() {
	if rcdr != nil {
		rcdr.timeouts.Add(1)
	}
}

func (rcdr *StatsRecorder) txTransportError() {
	if rcdr != nil {
		rcdr.transpErrs.Add(1)
	}
}

func (rcdr *StatsRecorder) txRetransmitted() {
	if rcdr != nil {
		rcdr.retrans.Add(1)
	}
}
