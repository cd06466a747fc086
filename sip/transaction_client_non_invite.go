package sip

import (
	"context"
	"log/slog"
	"time"

	"braces.dev/errtrace"
)

// NonInviteClientTransaction is a non-INVITE client transaction as described in
// RFC 3261 Section 17.1.2 with the updates of RFC 4320.
type NonInviteClientTransaction struct {
	*clientTransact
}

// NewNonInviteClientTransaction creates a new non-INVITE client transaction and sends the request.
// CANCEL requests must carry the branch of the INVITE they cancel.
// A failure of the initial send is reported to the transaction user and terminates the transaction.
func NewNonInviteClientTransaction(
	ctx context.Context,
	req *Request,
	tp Transport,
	tu *ClientTransactionUser,
	opts *ClientTransactionOptions,
) (*NonInviteClientTransaction, error) {
	if req == nil || req.Method.Equal(RequestMethodInvite) || req.Method.Equal(RequestMethodAck) {
		return nil, errtrace.Wrap(NewInvalidArgumentError(ErrMethodNotAllowed))
	}

	tx := new(NonInviteClientTransaction)
	clnTx, err := newClientTransact(TransactionTypeClientNonInvite, tx, req, tp, tu, opts)
	if err != nil {
		return nil, errtrace.Wrap(err)
	}
	tx.clientTransact = clnTx
	tx.initFSM(TransactionStateTrying)

	tx.do(ctx, func() error { return errtrace.Wrap(tx.actTrying(ctx)) }) //nolint:errcheck
	return tx, nil
}

const (
	txEvtTimerE = "timer_e"
	txEvtTimerF = "timer_f"
	txEvtTimerK = "timer_k"
)

const (
	timerE = "E"
	timerF = "F"
	timerK = "K"
)

func (tx *NonInviteClientTransaction) initFSM(start TransactionState) {
	tx.clientTransact.initFSM(start)

	tx.fsm.Configure(TransactionStateTrying).
		InternalTransition(txEvtTimerE, tx.actResendReq).
		Permit(txEvtRecv1xx, TransactionStateProceeding).
		Permit(txEvtRecv2xx, TransactionStateCompleted).
		Permit(txEvtRecv300699, TransactionStateCompleted).
		Permit(txEvtTimerF, TransactionStateTerminated).
		Permit(txEvtTranspErr, TransactionStateTerminated)

	tx.fsm.Configure(TransactionStateProceeding).
		OnEntry(tx.actProceeding).
		OnEntryFrom(txEvtRecv1xx, tx.actPassRes).
		InternalTransition(txEvtRecv1xx, tx.actPassRes).
		InternalTransition(txEvtTimerE, tx.actResendReq).
		Permit(txEvtRecv2xx, TransactionStateCompleted).
		Permit(txEvtRecv300699, TransactionStateCompleted).
		Permit(txEvtTimerF, TransactionStateTerminated).
		Permit(txEvtTranspErr, TransactionStateTerminated)

	tx.fsm.Configure(TransactionStateCompleted).
		OnEntry(tx.actCompleted).
		OnEntryFrom(txEvtRecv2xx, tx.actPassFinal).
		OnEntryFrom(txEvtRecv300699, tx.actPassFinal).
		Ignore(txEvtRecv1xx).
		Ignore(txEvtRecv2xx).
		Ignore(txEvtRecv300699).
		Ignore(txEvtTranspErr).
		Permit(txEvtTimerK, TransactionStateTerminated)

	tx.fsm.Configure(TransactionStateTerminated).
		Ignore(txEvtRecv1xx).
		Ignore(txEvtRecv2xx).
		Ignore(txEvtRecv300699)
}

func (tx *NonInviteClientTransaction) actTrying(ctx context.Context) error {
	tx.log.LogAttrs(ctx, slog.LevelDebug, "transaction trying", slog.Any("transaction", tx))

	tx.sendReq(ctx, tx.req)

	if !tx.reliable {
		tx.startTimer(ctx, timerE, tx.timings.TimeE(), tx.onTimerE)
	}
	tx.startTimer(ctx, timerF, tx.timings.TimeF(), tx.onTimerF)
	return nil
}

// onTimerE retransmits the request with the interval doubling up to T2 in the Trying state
// and fixed to T2 in the Proceeding state, see RFC 3261 Section 17.1.2.2.
func (tx *NonInviteClientTransaction) onTimerE(ctx context.Context, d time.Duration) {
	state := tx.State()
	if state != TransactionStateTrying && state != TransactionStateProceeding {
		return
	}

	tx.mustFire(ctx, txEvtTimerE)

	next := tx.timings.T2()
	if state == TransactionStateTrying {
		next = doubleCapped(d, tx.timings.T2())
	}
	tx.startTimer(ctx, timerE, next, tx.onTimerE)
}

func (tx *NonInviteClientTransaction) onTimerF(ctx context.Context, _ time.Duration) {
	if state := tx.State(); state != TransactionStateTrying && state != TransactionStateProceeding {
		return
	}

	tx.onRequestTimeout(ctx)
	tx.mustFire(ctx, txEvtTimerF)
}

func (tx *NonInviteClientTransaction) actCompleted(ctx context.Context, _ ...any) error {
	tx.log.LogAttrs(ctx, slog.LevelDebug, "transaction completed", slog.Any("transaction", tx))

	tx.stopTimer(ctx, timerE)
	tx.stopTimer(ctx, timerF)
	tx.startTimer(ctx, timerK, tx.zeroIfReliable(tx.timings.TimeK()), tx.onTimerK)
	return nil
}

// actPassFinal passes the final response to the TU.
// A 408 response is reported as a request timeout, see RFC 4320 Section 4.1.
func (tx *NonInviteClientTransaction) actPassFinal(ctx context.Context, args ...any) error {
	res := args[0].(*Response) //nolint:forcetypeassert
	if res.Status == ResponseStatusRequestTimeout {
		tx.onRequestTimeout(ctx)
		return nil
	}

	tx.passRes(ctx, res)
	return nil
}

func (tx *NonInviteClientTransaction) onTimerK(ctx context.Context, _ time.Duration) {
	if tx.State() != TransactionStateCompleted {
		return
	}
	tx.mustFire(ctx, txEvtTimerK)
}
