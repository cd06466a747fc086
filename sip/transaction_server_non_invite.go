package sip

import (
	"context"
	"log/slog"
	"time"

	"braces.dev/errtrace"
)

// NonInviteServerTransaction is a non-INVITE server transaction as described in
// RFC 3261 Section 17.2.2 with the updates of RFC 4320.
type NonInviteServerTransaction struct {
	*serverTransact

	lastRes string
}

// NewNonInviteServerTransaction creates a new non-INVITE server transaction for the inbound request.
func NewNonInviteServerTransaction(
	_ context.Context,
	req *Request,
	tp Transport,
	tu *ServerTransactionUser,
	opts *ServerTransactionOptions,
) (*NonInviteServerTransaction, error) {
	if req == nil || req.Method.Equal(RequestMethodInvite) || req.Method.Equal(RequestMethodAck) {
		return nil, errtrace.Wrap(NewInvalidArgumentError(ErrMethodNotAllowed))
	}

	tx := new(NonInviteServerTransaction)
	srvTx, err := newServerTransact(TransactionTypeServerNonInvite, tx, req, tp, tu, opts)
	if err != nil {
		return nil, errtrace.Wrap(err)
	}
	tx.serverTransact = srvTx
	tx.initFSM(TransactionStateTrying)
	return tx, nil
}

const txEvtTimerJ = "timer_j"

const timerJ = "J"

func (tx *NonInviteServerTransaction) initFSM(start TransactionState) {
	tx.serverTransact.initFSM(start)

	tx.fsm.Configure(TransactionStateTrying).
		Ignore(txEvtRecvReq).
		Permit(txEvtSend1xx, TransactionStateProceeding).
		Permit(txEvtSend2xx, TransactionStateCompleted).
		Permit(txEvtSend300699, TransactionStateCompleted).
		Permit(txEvtTranspErr, TransactionStateTerminated)

	tx.fsm.Configure(TransactionStateProceeding).
		OnEntry(tx.actProceeding).
		OnEntryFrom(txEvtSend1xx, tx.actSendRes).
		InternalTransition(txEvtRecvReq, tx.actResendRes).
		InternalTransition(txEvtSend1xx, tx.actSendRes).
		Permit(txEvtSend2xx, TransactionStateCompleted).
		Permit(txEvtSend300699, TransactionStateCompleted).
		Permit(txEvtTranspErr, TransactionStateTerminated)

	tx.fsm.Configure(TransactionStateCompleted).
		OnEntry(tx.actCompleted).
		OnEntryFrom(txEvtSend2xx, tx.actSendRes).
		OnEntryFrom(txEvtSend300699, tx.actSendRes).
		InternalTransition(txEvtRecvReq, tx.actResendRes).
		Permit(txEvtTimerJ, TransactionStateTerminated).
		Permit(txEvtTranspErr, TransactionStateTerminated)

	tx.fsm.Configure(TransactionStateTerminated).
		Ignore(txEvtRecvReq)
}

// RecvRequest is called by the dispatcher on retransmissions of the original request.
func (tx *NonInviteServerTransaction) RecvRequest(ctx context.Context, req *Request) error {
	if req == nil {
		return errtrace.Wrap(NewInvalidArgumentError("invalid request"))
	}

	return errtrace.Wrap(tx.do(ctx, func() error {
		tx.log.LogAttrs(ctx, slog.LevelDebug, "request received",
			slog.Any("transaction", tx),
			slog.Any("request", req),
		)

		if !req.Method.Equal(tx.req.Method) {
			tx.logUnexpectedReq(ctx, req)
			return nil
		}
		return errtrace.Wrap(tx.fsm.FireCtx(ctx, txEvtRecvReq, req))
	}))
}

// Respond sends the response of the transaction user.
//
// Only 100 is allowed as a provisional response, see RFC 4320 Section 4.1.
// Responses after the final one are not sent and return [ErrInvalidStateTransition],
// the final response stays cached for request retransmissions.
func (tx *NonInviteServerTransaction) Respond(ctx context.Context, res *Response) error {
	if err := tx.validateRes(res); err != nil {
		return errtrace.Wrap(err)
	}
	if res.Status.IsProvisional() && res.Status != ResponseStatusTrying {
		return errtrace.Wrap(newInvalidStatusCodeError(
			"provisional status %d is not allowed in non-INVITE transaction", res.Status))
	}
	return errtrace.Wrap(tx.respond(ctx, res))
}

func (tx *NonInviteServerTransaction) actSendRes(ctx context.Context, args ...any) error {
	res := args[0].(*Response) //nolint:forcetypeassert
	tx.lastRes = res.String()
	tx.sendRes(ctx, tx.lastRes)
	return nil
}

func (tx *NonInviteServerTransaction) actResendRes(ctx context.Context, _ ...any) error {
	if tx.lastRes == "" {
		return errtrace.Wrap(newMissingResponseError("no response to retransmit"))
	}
	tx.resend(ctx, tx.lastRes)
	return nil
}

func (tx *NonInviteServerTransaction) actCompleted(ctx context.Context, _ ...any) error {
	tx.log.LogAttrs(ctx, slog.LevelDebug, "transaction completed", slog.Any("transaction", tx))

	tx.startTimer(ctx, timerJ, tx.zeroIfReliable(tx.timings.TimeJ()), tx.onTimerJ)
	return nil
}

func (tx *NonInviteServerTransaction) onTimerJ(ctx context.Context, _ time.Duration) {
	if tx.State() != TransactionStateCompleted {
		return
	}
	tx.mustFire(ctx, txEvtTimerJ)
}
