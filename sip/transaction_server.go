package sip

import (
	"context"
	"log/slog"
	"reflect"

	"braces.dev/errtrace"

	"github.com/ghettovoice/siptx/log"
)

// ServerTransaction represents a SIP server transaction.
type ServerTransaction interface {
	Transaction
	// Request returns the request that created the transaction.
	Request() *Request
	// RecvRequest is called by the dispatcher on each request matched to the transaction.
	RecvRequest(ctx context.Context, req *Request) error
	// Respond sends the response of the transaction user.
	Respond(ctx context.Context, res *Response) error
}

// ServerTransactionUser is a set of callbacks of the server transaction user.
// All callbacks are optional.
type ServerTransactionUser struct {
	TransactionUser
	// OnAckTimeout is called when the INVITE server transaction terminates
	// without receiving an ACK to its non-2xx final response.
	OnAckTimeout func(ctx context.Context)
}

func (u *ServerTransactionUser) value() ServerTransactionUser {
	if u == nil {
		return ServerTransactionUser{}
	}
	return *u
}

// ServerTransactionOptions contains options for a server transaction.
type ServerTransactionOptions struct {
	// Timings is the SIP timing config that will be used with the transaction.
	// If zero, the default SIP timing config will be used.
	Timings TimingConfig
	// Clock is the time source of the transaction timers.
	// If nil, the runtime timers will be used.
	Clock Clock
	// Stats is the recorder of transaction statistics. Optional.
	Stats *StatsRecorder
	// Log is the logger that will be used with the transaction.
	// If nil, the [log.Default] will be used.
	Log *slog.Logger
	// No100Trying disables the automatic 100 Trying response of the INVITE server transaction,
	// the layer above sends provisional responses itself.
	No100Trying bool
}

func (o *ServerTransactionOptions) base() baseOptions {
	if o == nil {
		return baseOptions{timings: defTimingCfg}
	}
	return baseOptions{
		timings: o.Timings,
		clock:   o.Clock,
		stats:   o.Stats,
		log:     o.Log,
	}
}

func (o *ServerTransactionOptions) no100Trying() bool { return o != nil && o.No100Trying }

var (
	reflectRequestType  = reflect.TypeOf((*Request)(nil))
	reflectResponseType = reflect.TypeOf((*Response)(nil))
)

type serverTransact struct {
	*baseTransact
	req *Request
	tu  ServerTransactionUser
}

func newServerTransact(
	typ TransactionType,
	impl transactImpl,
	req *Request,
	tp Transport,
	tu *ServerTransactionUser,
	opts *ServerTransactionOptions,
) (*serverTransact, error) {
	if err := req.Validate(); err != nil {
		return nil, errtrace.Wrap(err)
	}
	if tp == nil {
		return nil, errtrace.Wrap(NewInvalidArgumentError("invalid transport"))
	}

	id := req.Branch()
	if id == "" {
		return nil, errtrace.Wrap(NewInvalidArgumentError(ErrMissingBranch))
	}

	tuv := tu.value()
	tx := &serverTransact{
		req: req,
		tu:  tuv,
	}
	tx.baseTransact = newBaseTransact(typ, impl, id, tp, tuv.TransactionUser, opts.base())
	return tx, nil
}

// Request returns the request that created the transaction.
func (tx *serverTransact) Request() *Request {
	if tx == nil {
		return nil
	}
	return tx.req
}

func (tx *serverTransact) initFSM(start TransactionState) {
	tx.baseTransact.initFSM(start)

	tx.fsm.SetTriggerParameters(txEvtRecvReq, reflectRequestType)
	tx.fsm.SetTriggerParameters(txEvtRecvAck, reflectRequestType)
	tx.fsm.SetTriggerParameters(txEvtSend1xx, reflectResponseType)
	tx.fsm.SetTriggerParameters(txEvtSend2xx, reflectResponseType)
	tx.fsm.SetTriggerParameters(txEvtSend300699, reflectResponseType)
}

func (tx *serverTransact) validateRes(res *Response) error {
	if res == nil {
		return errtrace.Wrap(NewInvalidArgumentError("invalid response"))
	}
	if !res.Status.IsValid() {
		return errtrace.Wrap(newInvalidStatusCodeError("status %d is out of 100-699 range", res.Status))
	}
	return nil
}

// respond fires the send event matching the response status.
func (tx *serverTransact) respond(ctx context.Context, res *Response) error {
	return errtrace.Wrap(tx.do(ctx, func() error {
		switch {
		case res.Status.IsProvisional():
			return errtrace.Wrap(tx.fsm.FireCtx(ctx, txEvtSend1xx, res))
		case res.Status.IsSuccessful():
			return errtrace.Wrap(tx.fsm.FireCtx(ctx, txEvtSend2xx, res))
		default:
			return errtrace.Wrap(tx.fsm.FireCtx(ctx, txEvtSend300699, res))
		}
	}))
}

func (tx *serverTransact) sendRes(ctx context.Context, msg string) {
	tx.log.LogAttrs(ctx, slog.LevelDebug, "send response",
		slog.Any("transaction", tx.impl),
		slog.String(log.MessageKey, msg),
	)

	tx.send(ctx, msg)
}

func (tx *serverTransact) actUnexpectedReq(ctx context.Context, args ...any) error {
	req := args[0].(*Request) //nolint:forcetypeassert
	tx.logUnexpectedReq(ctx, req)
	return nil
}

func (tx *serverTransact) logUnexpectedReq(ctx context.Context, req *Request) {
	tx.log.LogAttrs(ctx, slog.LevelWarn, "unexpected request discarded",
		slog.Any("transaction", tx.impl),
		slog.Any("request", req),
	)
}

func (tx *serverTransact) actProceeding(ctx context.Context, _ ...any) error {
	tx.log.LogAttrs(ctx, slog.LevelDebug, "transaction proceeding", slog.Any("transaction", tx.impl))

	return nil
}
