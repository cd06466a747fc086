package sip

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"reflect"

	"braces.dev/errtrace"

	"github.com/ghettovoice/siptx/log"
)

// ClientTransaction represents a SIP client transaction.
type ClientTransaction interface {
	Transaction
	// Request returns the request that created the transaction.
	Request() *Request
	// RecvResponse is called by the dispatcher on each response matched to the transaction.
	RecvResponse(ctx context.Context, res *Response) error
}

// ClientTransactionUser is a set of callbacks of the client transaction user.
// All callbacks are optional.
type ClientTransactionUser struct {
	TransactionUser
	// OnRequestTimeout is called when the request timed out or a 408 response was received.
	// The transaction layer never generates the 408 response itself, see RFC 4320 Section 4.1.
	OnRequestTimeout func(ctx context.Context)
	// ReceiveResponse is called with each response passed up by the transaction.
	ReceiveResponse func(ctx context.Context, res *Response)
}

func (u *ClientTransactionUser) value() ClientTransactionUser {
	if u == nil {
		return ClientTransactionUser{}
	}
	return *u
}

// Rand is a source of pseudo-random numbers used to generate branches.
// [*rand.Rand] satisfies it.
type Rand interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// ClientTransactionOptions contains options for a client transaction.
type ClientTransactionOptions struct {
	// Timings is the SIP timing config that will be used with the transaction.
	// If zero, the default SIP timing config will be used.
	Timings TimingConfig
	// Clock is the time source of the transaction timers.
	// If nil, the runtime timers will be used.
	Clock Clock
	// Rand is the random source used to generate the transaction branch.
	// If nil, the global source of math/rand/v2 will be used.
	Rand Rand
	// Stats is the recorder of transaction statistics. Optional.
	Stats *StatsRecorder
	// Log is the logger that will be used with the transaction.
	// If nil, the [log.Default] will be used.
	Log *slog.Logger
}

func (o *ClientTransactionOptions) base() baseOptions {
	if o == nil {
		return baseOptions{timings: defTimingCfg, log: log.Default()}
	}
	return baseOptions{
		timings: o.Timings,
		clock:   o.Clock,
		stats:   o.Stats,
		log:     o.Log,
	}
}

func (o *ClientTransactionOptions) rand() Rand {
	if o == nil || o.Rand == nil {
		return globalRand{}
	}
	return o.Rand
}

// GenerateBranch returns a new RFC 3261 branch: the magic cookie followed by 7 random digits.
func GenerateBranch(rnd Rand) string {
	if rnd == nil {
		rnd = globalRand{}
	}
	return fmt.Sprintf("%s%07d", MagicCookie, rnd.IntN(10_000_000))
}

type clientTransact struct {
	*baseTransact
	req  *Request
	tu   ClientTransactionUser
	rand Rand
}

func newClientTransact(
	typ TransactionType,
	impl transactImpl,
	req *Request,
	tp Transport,
	tu *ClientTransactionUser,
	opts *ClientTransactionOptions,
) (*clientTransact, error) {
	if err := req.Validate(); err != nil {
		return nil, errtrace.Wrap(err)
	}
	if tp == nil {
		return nil, errtrace.Wrap(NewInvalidArgumentError("invalid transport"))
	}

	// CANCEL shares the branch with the request it cancels
	var id string
	if req.Method.Equal(RequestMethodCancel) {
		if id = req.Branch(); id == "" {
			return nil, errtrace.Wrap(NewInvalidArgumentError(ErrMissingBranch))
		}
	} else {
		id = GenerateBranch(opts.rand())
	}
	if err := req.SetVia(id, tp.Protocol()); err != nil {
		return nil, errtrace.Wrap(err)
	}

	tuv := tu.value()
	tx := &clientTransact{
		req:  req,
		tu:   tuv,
		rand: opts.rand(),
	}
	tx.baseTransact = newBaseTransact(typ, impl, id, tp, tuv.TransactionUser, opts.base())
	return tx, nil
}

// Request returns the request that created the transaction.
func (tx *clientTransact) Request() *Request {
	if tx == nil {
		return nil
	}
	return tx.req
}

// RecvResponse is called by the dispatcher on each response matched to the transaction.
// Responses with status codes outside the 100-699 range are rejected with [ErrInvalidStatusCode].
func (tx *clientTransact) RecvResponse(ctx context.Context, res *Response) error {
	if res == nil {
		return errtrace.Wrap(NewInvalidArgumentError("invalid response"))
	}
	if !res.Status.IsValid() {
		return errtrace.Wrap(newInvalidStatusCodeError("status %d is out of 100-699 range", res.Status))
	}

	return errtrace.Wrap(tx.do(ctx, func() error {
		tx.log.LogAttrs(ctx, slog.LevelDebug, "response received",
			slog.Any("transaction", tx.impl),
			slog.Any("response", res),
		)

		switch {
		case res.Status.IsProvisional():
			return errtrace.Wrap(tx.fsm.FireCtx(ctx, txEvtRecv1xx, res))
		case res.Status.IsSuccessful():
			return errtrace.Wrap(tx.fsm.FireCtx(ctx, txEvtRecv2xx, res))
		default:
			return errtrace.Wrap(tx.fsm.FireCtx(ctx, txEvtRecv300699, res))
		}
	}))
}

func (tx *clientTransact) initFSM(start TransactionState) {
	tx.baseTransact.initFSM(start)

	resType := reflect.TypeOf((*Response)(nil))
	tx.fsm.SetTriggerParameters(txEvtRecv1xx, resType)
	tx.fsm.SetTriggerParameters(txEvtRecv2xx, resType)
	tx.fsm.SetTriggerParameters(txEvtRecv300699, resType)
}

func (tx *clientTransact) sendReq(ctx context.Context, req *Request) {
	tx.log.LogAttrs(ctx, slog.LevelDebug, "send request",
		slog.Any("transaction", tx.impl),
		slog.Any("request", req),
	)

	tx.send(ctx, req.String())
}

func (tx *clientTransact) actResendReq(ctx context.Context, _ ...any) error {
	tx.stats.txRetransmitted()
	tx.sendReq(ctx, tx.req)
	return nil
}

func (tx *clientTransact) actPassRes(ctx context.Context, args ...any) error {
	res := args[0].(*Response) //nolint:forcetypeassert
	tx.passRes(ctx, res)
	return nil
}

func (tx *clientTransact) passRes(ctx context.Context, res *Response) {
	tx.log.LogAttrs(ctx, slog.LevelDebug, "pass response",
		slog.Any("transaction", tx.impl),
		slog.Any("response", res),
	)

	if fn := tx.tu.ReceiveResponse; fn != nil {
		tx.enqueue(func() { fn(tx.ctx, res) })
	}
}

// onRequestTimeout informs the transaction user that the request timed out.
func (tx *clientTransact) onRequestTimeout(ctx context.Context) {
	tx.log.LogAttrs(ctx, slog.LevelDebug, "request timed out", slog.Any("transaction", tx.impl))

	tx.stats.txTimedOut()
	if fn := tx.tu.OnRequestTimeout; fn != nil {
		tx.enqueue(func() { fn(tx.ctx) })
	}
}

func (tx *clientTransact) actProceeding(ctx context.Context, _ ...any) error {
	tx.log.LogAttrs(ctx, slog.LevelDebug, "transaction proceeding", slog.Any("transaction", tx.impl))

	return nil
}
