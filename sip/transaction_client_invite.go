package sip

import (
	"context"
	"log/slog"
	"time"

	"braces.dev/errtrace"
)

// InviteClientTransaction is an INVITE client transaction as described in
// RFC 3261 Section 17.1.1 with the Accepted state of RFC 6026.
//
// Unlike RFC 6026, retransmissions of a 2xx response are handled by the transaction:
// the ACK supplied by the transaction user with [InviteClientTransaction.AckResponse]
// is cached by the To tag of the 2xx and replayed on each retransmission.
type InviteClientTransaction struct {
	*clientTransact

	// ack of a non-2xx final response, built by the transaction
	ack *Request
	// To tag of a 2xx response => ACK sent by the TU, nil until the TU sends it
	ack2xx map[string]*Request
}

// NewInviteClientTransaction creates a new INVITE client transaction and sends the request.
// The topmost Via of the request is updated with the transaction branch and the transport protocol.
// A failure of the initial send is reported to the transaction user and terminates the transaction.
func NewInviteClientTransaction(
	ctx context.Context,
	req *Request,
	tp Transport,
	tu *ClientTransactionUser,
	opts *ClientTransactionOptions,
) (*InviteClientTransaction, error) {
	if req == nil || !req.Method.Equal(RequestMethodInvite) {
		return nil, errtrace.Wrap(NewInvalidArgumentError(ErrMethodNotAllowed))
	}

	tx := &InviteClientTransaction{
		ack2xx: make(map[string]*Request),
	}
	clnTx, err := newClientTransact(TransactionTypeClientInvite, tx, req, tp, tu, opts)
	if err != nil {
		return nil, errtrace.Wrap(err)
	}
	tx.clientTransact = clnTx
	tx.initFSM(TransactionStateCalling)

	tx.do(ctx, func() error { return errtrace.Wrap(tx.actCalling(ctx)) }) //nolint:errcheck
	return tx, nil
}

const (
	txEvtTimerA = "timer_a"
	txEvtTimerB = "timer_b"
	txEvtTimerD = "timer_d"
	txEvtTimerM = "timer_m"
)

const (
	timerA = "A"
	timerB = "B"
	timerD = "D"
	timerM = "M"
)

func (tx *InviteClientTransaction) initFSM(start TransactionState) {
	tx.clientTransact.initFSM(start)

	tx.fsm.SetTriggerParameters(txEvtSendAck, reflectRequestType)

	tx.fsm.Configure(TransactionStateCalling).
		OnExit(tx.actStopCallingTimers).
		InternalTransition(txEvtTimerA, tx.actResendReq).
		Permit(txEvtRecv1xx, TransactionStateProceeding).
		Permit(txEvtRecv2xx, TransactionStateAccepted).
		Permit(txEvtRecv300699, TransactionStateCompleted).
		Permit(txEvtTimerB, TransactionStateTerminated).
		Permit(txEvtTranspErr, TransactionStateTerminated)

	tx.fsm.Configure(TransactionStateProceeding).
		OnEntry(tx.actProceeding).
		OnEntryFrom(txEvtRecv1xx, tx.actPassRes).
		InternalTransition(txEvtRecv1xx, tx.actPassRes).
		Permit(txEvtRecv2xx, TransactionStateAccepted).
		Permit(txEvtRecv300699, TransactionStateCompleted).
		Permit(txEvtTranspErr, TransactionStateTerminated)

	tx.fsm.Configure(TransactionStateAccepted).
		OnEntry(tx.actAccepted).
		OnEntryFrom(txEvtRecv2xx, tx.actPass2xx).
		InternalTransition(txEvtRecv2xx, tx.actRecv2xxRetrans).
		InternalTransition(txEvtSendAck, tx.actSendAck2xx).
		Ignore(txEvtRecv1xx).
		Ignore(txEvtRecv300699).
		Permit(txEvtTimerM, TransactionStateTerminated).
		Permit(txEvtTranspErr, TransactionStateTerminated)

	tx.fsm.Configure(TransactionStateCompleted).
		OnEntry(tx.actCompleted).
		OnEntryFrom(txEvtRecv300699, tx.actPassResSendAck).
		InternalTransition(txEvtRecv300699, tx.actResendAck).
		Ignore(txEvtRecv1xx).
		Ignore(txEvtRecv2xx).
		Permit(txEvtTimerD, TransactionStateTerminated).
		Permit(txEvtTranspErr, TransactionStateTerminated)

	tx.fsm.Configure(TransactionStateTerminated).
		Ignore(txEvtRecv1xx).
		Ignore(txEvtRecv2xx).
		Ignore(txEvtRecv300699)
}

// AckResponse sends the ACK to a 2xx response.
// It is allowed only in the Accepted state, the ACK must carry the To tag of a received 2xx response.
// The ACK gets a new branch and is cached to answer retransmissions of that 2xx.
func (tx *InviteClientTransaction) AckResponse(ctx context.Context, ack *Request) error {
	if ack == nil || !ack.Method.Equal(RequestMethodAck) {
		return errtrace.Wrap(NewInvalidArgumentError(ErrMethodNotAllowed))
	}
	if ack.ToTag() == "" {
		return errtrace.Wrap(NewInvalidArgumentError(ErrMissingToTag))
	}

	return errtrace.Wrap(tx.do(ctx, func() error {
		return errtrace.Wrap(tx.fsm.FireCtx(ctx, txEvtSendAck, ack))
	}))
}

func (tx *InviteClientTransaction) actCalling(ctx context.Context) error {
	tx.log.LogAttrs(ctx, slog.LevelDebug, "transaction calling", slog.Any("transaction", tx))

	tx.sendReq(ctx, tx.req)

	if !tx.reliable {
		tx.startTimer(ctx, timerA, tx.timings.TimeA(), tx.onTimerA)
	}
	tx.startTimer(ctx, timerB, tx.timings.TimeB(), tx.onTimerB)
	return nil
}

func (tx *InviteClientTransaction) actStopCallingTimers(ctx context.Context, _ ...any) error {
	tx.stopTimer(ctx, timerA)
	tx.stopTimer(ctx, timerB)
	return nil
}

func (tx *InviteClientTransaction) onTimerA(ctx context.Context, d time.Duration) {
	if tx.State() != TransactionStateCalling {
		return
	}

	tx.mustFire(ctx, txEvtTimerA)
	if tx.State() == TransactionStateCalling {
		tx.startTimer(ctx, timerA, doubleCapped(d, 0), tx.onTimerA)
	}
}

func (tx *InviteClientTransaction) onTimerB(ctx context.Context, _ time.Duration) {
	if tx.State() != TransactionStateCalling {
		return
	}

	tx.onRequestTimeout(ctx)
	tx.mustFire(ctx, txEvtTimerB)
}

func (tx *InviteClientTransaction) actAccepted(ctx context.Context, _ ...any) error {
	tx.log.LogAttrs(ctx, slog.LevelDebug, "transaction accepted", slog.Any("transaction", tx))

	tx.startTimer(ctx, timerM, tx.timings.TimeM(), tx.onTimerM)
	return nil
}

func (tx *InviteClientTransaction) actPass2xx(ctx context.Context, args ...any) error {
	res := args[0].(*Response) //nolint:forcetypeassert
	tx.ack2xx[res.ToTag()] = nil
	tx.passRes(ctx, res)
	return nil
}

// actRecv2xxRetrans answers a retransmitted 2xx with the cached ACK.
// A 2xx with a new To tag comes from another fork and is passed to the TU.
func (tx *InviteClientTransaction) actRecv2xxRetrans(ctx context.Context, args ...any) error {
	res := args[0].(*Response) //nolint:forcetypeassert
	ack, seen := tx.ack2xx[res.ToTag()]
	if !seen {
		return errtrace.Wrap(tx.actPass2xx(ctx, res))
	}
	if ack == nil {
		tx.log.LogAttrs(ctx, slog.LevelDebug, "2xx retransmission before ACK, waiting for TU",
			slog.Any("transaction", tx),
			slog.Any("response", res),
		)
		return nil
	}

	tx.stats.txRetransmitted()
	tx.sendReq(ctx, ack)
	return nil
}

func (tx *InviteClientTransaction) actSendAck2xx(ctx context.Context, args ...any) error {
	ack := args[0].(*Request) //nolint:forcetypeassert
	tag := ack.ToTag()
	if _, seen := tx.ack2xx[tag]; !seen {
		return errtrace.Wrap(NewInvalidArgumentError(newMissingResponseError("no 2xx response with To tag %q", tag)))
	}

	ack = ack.Clone()
	if err := ack.SetVia(GenerateBranch(tx.rand), tx.tp.Protocol()); err != nil {
		return errtrace.Wrap(err)
	}
	tx.ack2xx[tag] = ack

	tx.sendReq(ctx, ack)
	return nil
}

func (tx *InviteClientTransaction) onTimerM(ctx context.Context, _ time.Duration) {
	if tx.State() != TransactionStateAccepted {
		return
	}
	tx.mustFire(ctx, txEvtTimerM)
}

func (tx *InviteClientTransaction) actCompleted(ctx context.Context, _ ...any) error {
	tx.log.LogAttrs(ctx, slog.LevelDebug, "transaction completed", slog.Any("transaction", tx))

	tx.startTimer(ctx, timerD, tx.zeroIfReliable(tx.timings.TimeD()), tx.onTimerD)
	return nil
}

func (tx *InviteClientTransaction) actPassResSendAck(ctx context.Context, args ...any) error {
	res := args[0].(*Response) //nolint:forcetypeassert
	tx.ack = tx.buildAck(res)
	tx.sendReq(ctx, tx.ack)
	tx.passRes(ctx, res)
	return nil
}

func (tx *InviteClientTransaction) actResendAck(ctx context.Context, _ ...any) error {
	tx.stats.txRetransmitted()
	tx.sendReq(ctx, tx.ack)
	return nil
}

// buildAck builds the ACK to a non-2xx final response as described in RFC 3261 Section 17.1.1.3.
func (tx *InviteClientTransaction) buildAck(res *Response) *Request {
	ack := &Request{
		Method: RequestMethodAck,
		URI:    tx.req.URI,
	}
	for _, h := range tx.req.Headers {
		switch {
		case hdrNameEq(h.Name, "Via"):
			if ack.Headers.Has("Via") {
				continue
			}
			via, _ := tx.req.TopVia()
			ack.Headers.Add(h.Name, via.String())
		case hdrNameEq(h.Name, "To"):
			if to, ok := res.Headers.Get("To"); ok {
				ack.Headers.Add(h.Name, to)
			} else {
				ack.Headers.Add(h.Name, h.Value)
			}
		case hdrNameEq(h.Name, "CSeq"):
			seq, _, _ := tx.req.CSeq()
			ack.Headers.Add(h.Name, formatCSeq(seq, RequestMethodAck))
		case hdrNameEq(h.Name, "From"),
			hdrNameEq(h.Name, "Call-ID"),
			hdrNameEq(h.Name, "Route"),
			hdrNameEq(h.Name, "Max-Forwards"):
			ack.Headers.Add(h.Name, h.Value)
		}
	}
	if !ack.Headers.Has("Max-Forwards") {
		ack.Headers.Add("Max-Forwards", "70")
	}
	return ack
}

func (tx *InviteClientTransaction) onTimerD(ctx context.Context, _ time.Duration) {
	if tx.State() != TransactionStateCompleted {
		return
	}
	tx.mustFire(ctx, txEvtTimerD)
}
