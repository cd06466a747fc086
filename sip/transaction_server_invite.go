package sip

import (
	"context"
	"log/slog"
	"time"

	"braces.dev/errtrace"
)

// InviteServerTransaction is an INVITE server transaction as described in
// RFC 3261 Section 17.2.1 with the Accepted state of RFC 6026.
//
// A transport error does not change the transaction state, the transaction user
// is informed and the transaction keeps waiting as RFC 6026 requires.
type InviteServerTransaction struct {
	*serverTransact

	lastProvRes  string
	lastFinalRes string
}

// NewInviteServerTransaction creates a new INVITE server transaction for the inbound INVITE request.
// The transaction answers with 100 Trying at once unless [ServerTransactionOptions.No100Trying] is set.
func NewInviteServerTransaction(
	ctx context.Context,
	req *Request,
	tp Transport,
	tu *ServerTransactionUser,
	opts *ServerTransactionOptions,
) (*InviteServerTransaction, error) {
	if req == nil || !req.Method.Equal(RequestMethodInvite) {
		return nil, errtrace.Wrap(NewInvalidArgumentError(ErrMethodNotAllowed))
	}

	tx := new(InviteServerTransaction)
	srvTx, err := newServerTransact(TransactionTypeServerInvite, tx, req, tp, tu, opts)
	if err != nil {
		return nil, errtrace.Wrap(err)
	}
	tx.serverTransact = srvTx
	tx.initFSM(TransactionStateProceeding)

	if !opts.no100Trying() {
		tx.do(ctx, func() error { //nolint:errcheck
			return errtrace.Wrap(tx.fsm.FireCtx(ctx, txEvtSend1xx, NewResponse(req, ResponseStatusTrying, "")))
		})
	}
	return tx, nil
}

const (
	txEvtTimerG        = "timer_g"
	txEvtTimerH        = "timer_h"
	txEvtTimerI        = "timer_i"
	txEvtTimerL        = "timer_l"
	txEvtTimerProgress = "timer_progress"
)

const (
	timerG        = "G"
	timerH        = "H"
	timerI        = "I"
	timerL        = "L"
	timerProgress = "progress"
)

func (tx *InviteServerTransaction) initFSM(start TransactionState) {
	tx.serverTransact.initFSM(start)

	tx.fsm.Configure(TransactionStateProceeding).
		OnExit(tx.actStopProgress).
		InternalTransition(txEvtRecvReq, tx.actResendProvRes).
		InternalTransition(txEvtRecvAck, tx.actUnexpectedReq).
		InternalTransition(txEvtSend1xx, tx.actSend1xx).
		InternalTransition(txEvtTimerProgress, tx.actResendProvRes).
		Permit(txEvtSend2xx, TransactionStateAccepted).
		Permit(txEvtSend300699, TransactionStateCompleted).
		Ignore(txEvtTranspErr)

	tx.fsm.Configure(TransactionStateAccepted).
		OnEntry(tx.actAccepted).
		OnEntryFrom(txEvtSend2xx, tx.actSendFinalRes).
		InternalTransition(txEvtSend2xx, tx.actSendFinalRes).
		InternalTransition(txEvtRetransmit2xx, tx.actResendFinalRes).
		InternalTransition(txEvtRecvAck, tx.actUnexpectedReq).
		Ignore(txEvtRecvReq).
		Ignore(txEvtTranspErr).
		Permit(txEvtTimerL, TransactionStateTerminated)

	tx.fsm.Configure(TransactionStateCompleted).
		OnEntry(tx.actCompleted).
		OnEntryFrom(txEvtSend300699, tx.actSendFinalRes).
		InternalTransition(txEvtRecvReq, tx.actResendFinalRes).
		InternalTransition(txEvtTimerG, tx.actResendFinalRes).
		Permit(txEvtRecvAck, TransactionStateConfirmed).
		Permit(txEvtTimerH, TransactionStateTerminated).
		Ignore(txEvtTranspErr)

	tx.fsm.Configure(TransactionStateConfirmed).
		OnEntry(tx.actConfirmed).
		Ignore(txEvtRecvReq).
		Ignore(txEvtRecvAck).
		Ignore(txEvtTranspErr).
		Permit(txEvtTimerI, TransactionStateTerminated)

	tx.fsm.Configure(TransactionStateTerminated).
		Ignore(txEvtRecvReq).
		Ignore(txEvtRecvAck)
}

// RecvRequest is called by the dispatcher on retransmissions of the INVITE and on the ACK to a non-2xx response.
// Requests of other methods are logged and discarded.
func (tx *InviteServerTransaction) RecvRequest(ctx context.Context, req *Request) error {
	if req == nil {
		return errtrace.Wrap(NewInvalidArgumentError("invalid request"))
	}

	return errtrace.Wrap(tx.do(ctx, func() error {
		tx.log.LogAttrs(ctx, slog.LevelDebug, "request received",
			slog.Any("transaction", tx),
			slog.Any("request", req),
		)

		switch {
		case req.Method.Equal(RequestMethodInvite):
			return errtrace.Wrap(tx.fsm.FireCtx(ctx, txEvtRecvReq, req))
		case req.Method.Equal(RequestMethodAck):
			return errtrace.Wrap(tx.fsm.FireCtx(ctx, txEvtRecvAck, req))
		default:
			tx.logUnexpectedReq(ctx, req)
			return nil
		}
	}))
}

// Respond sends the response of the transaction user.
//
// Provisional responses are allowed only in the Proceeding state, 2xx responses in the Proceeding and Accepted states,
// other final responses only in the Proceeding state. Responses in other states return [ErrInvalidStateTransition].
func (tx *InviteServerTransaction) Respond(ctx context.Context, res *Response) error {
	if err := tx.validateRes(res); err != nil {
		return errtrace.Wrap(err)
	}
	return errtrace.Wrap(tx.respond(ctx, res))
}

// RetransmitAcceptedResponse resends the cached 2xx response.
// It does nothing unless the transaction is in the Accepted state.
func (tx *InviteServerTransaction) RetransmitAcceptedResponse(ctx context.Context) error {
	return errtrace.Wrap(tx.do(ctx, func() error {
		if tx.State() != TransactionStateAccepted || tx.lastFinalRes == "" {
			return nil
		}
		return errtrace.Wrap(tx.fsm.FireCtx(ctx, txEvtRetransmit2xx))
	}))
}

func (tx *InviteServerTransaction) actSend1xx(ctx context.Context, args ...any) error {
	res := args[0].(*Response) //nolint:forcetypeassert
	tx.lastProvRes = res.String()
	tx.sendRes(ctx, tx.lastProvRes)

	// keep proxies from cancelling a long-pending INVITE, RFC 3261 Section 13.3.1.1
	if res.Status != ResponseStatusTrying && !tx.hasTimer(timerProgress) {
		tx.startTimer(ctx, timerProgress, tx.timings.TimeProgress(), tx.onTimerProgress)
	}
	return nil
}

func (tx *InviteServerTransaction) actResendProvRes(ctx context.Context, _ ...any) error {
	if tx.lastProvRes == "" {
		return nil
	}
	tx.resend(ctx, tx.lastProvRes)
	return nil
}

func (tx *InviteServerTransaction) onTimerProgress(ctx context.Context, d time.Duration) {
	if tx.State() != TransactionStateProceeding {
		return
	}

	tx.mustFire(ctx, txEvtTimerProgress)
	tx.startTimer(ctx, timerProgress, d, tx.onTimerProgress)
}

func (tx *InviteServerTransaction) actStopProgress(ctx context.Context, _ ...any) error {
	tx.stopTimer(ctx, timerProgress)
	return nil
}

func (tx *InviteServerTransaction) actSendFinalRes(ctx context.Context, args ...any) error {
	res := args[0].(*Response) //nolint:forcetypeassert
	tx.lastFinalRes = res.String()
	tx.sendRes(ctx, tx.lastFinalRes)
	return nil
}

func (tx *InviteServerTransaction) actResendFinalRes(ctx context.Context, _ ...any) error {
	if tx.lastFinalRes == "" {
		return errtrace.Wrap(newMissingResponseError("no final response to retransmit"))
	}
	tx.resend(ctx, tx.lastFinalRes)
	return nil
}

func (tx *InviteServerTransaction) actAccepted(ctx context.Context, _ ...any) error {
	tx.log.LogAttrs(ctx, slog.LevelDebug, "transaction accepted", slog.Any("transaction", tx))

	tx.startTimer(ctx, timerL, tx.timings.TimeL(), tx.onTimerL)
	return nil
}

func (tx *InviteServerTransaction) onTimerL(ctx context.Context, _ time.Duration) {
	if tx.State() != TransactionStateAccepted {
		return
	}
	tx.mustFire(ctx, txEvtTimerL)
}

func (tx *InviteServerTransaction) actCompleted(ctx context.Context, _ ...any) error {
	tx.log.LogAttrs(ctx, slog.LevelDebug, "transaction completed", slog.Any("transaction", tx))

	if !tx.reliable {
		tx.startTimer(ctx, timerG, tx.timings.TimeG(), tx.onTimerG)
	}
	tx.startTimer(ctx, timerH, tx.timings.TimeH(), tx.onTimerH)
	return nil
}

// onTimerG retransmits the final response with the interval doubling up to T2, see RFC 3261 Section 17.2.1.
func (tx *InviteServerTransaction) onTimerG(ctx context.Context, d time.Duration) {
	if tx.State() != TransactionStateCompleted {
		return
	}

	tx.mustFire(ctx, txEvtTimerG)
	tx.startTimer(ctx, timerG, doubleCapped(d, tx.timings.T2()), tx.onTimerG)
}

func (tx *InviteServerTransaction) onTimerH(ctx context.Context, _ time.Duration) {
	if tx.State() != TransactionStateCompleted {
		return
	}

	tx.log.LogAttrs(ctx, slog.LevelDebug, "ACK timed out", slog.Any("transaction", tx))

	tx.stats.txTimedOut()
	if fn := tx.tu.OnAckTimeout; fn != nil {
		tx.enqueue(func() { fn(tx.ctx) })
	}
	tx.mustFire(ctx, txEvtTimerH)
}

func (tx *InviteServerTransaction) actConfirmed(ctx context.Context, _ ...any) error {
	tx.log.LogAttrs(ctx, slog.LevelDebug, "transaction confirmed", slog.Any("transaction", tx))

	tx.stopTimer(ctx, timerG)
	tx.stopTimer(ctx, timerH)
	tx.startTimer(ctx, timerI, tx.zeroIfReliable(tx.timings.TimeI()), tx.onTimerI)
	return nil
}

func (tx *InviteServerTransaction) onTimerI(ctx context.Context, _ time.Duration) {
	if tx.State() != TransactionStateConfirmed {
		return
	}
	tx.mustFire(ctx, txEvtTimerI)
}
