package sip

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"braces.dev/errtrace"
	"github.com/qmuntal/stateless"

	"github.com/ghettovoice/siptx/internal/timeutil"
	"github.com/ghettovoice/siptx/internal/types"
	"github.com/ghettovoice/siptx/log"
)

// TransactionState is a state of a SIP transaction.
type TransactionState string

// Transaction states as described in RFC 3261 Section 17 and RFC 6026.
const (
	TransactionStateCalling    TransactionState = "Calling"
	TransactionStateTrying     TransactionState = "Trying"
	TransactionStateProceeding TransactionState = "Proceeding"
	TransactionStateAccepted   TransactionState = "Accepted"
	TransactionStateCompleted  TransactionState = "Completed"
	TransactionStateConfirmed  TransactionState = "Confirmed"
	TransactionStateTerminated TransactionState = "Terminated"
)

// TransactionType is a type of a SIP transaction.
type TransactionType string

// Transaction types.
const (
	TransactionTypeClientInvite    TransactionType = "client_invite"
	TransactionTypeClientNonInvite TransactionType = "client_non_invite"
	TransactionTypeServerInvite    TransactionType = "server_invite"
	TransactionTypeServerNonInvite TransactionType = "server_non_invite"
)

// Transaction represents a SIP transaction.
type Transaction interface {
	// ID returns the transaction ID, the branch of the topmost Via header.
	ID() string
	// Type returns the transaction type.
	Type() TransactionType
	// State returns the current transaction state.
	State() TransactionState
	// Transport returns the transport the transaction sends messages through.
	Transport() Transport
	// AddStateChangeListener registers a listener called after each state change.
	// The listener is never called for the initial state.
	// Call the returned function to remove the listener.
	AddStateChangeListener(fn StateChangeListener, opts *StateChangeListenerOptions) (remove func())
	// Dispose stops all timers and drops all listeners.
	// It is safe to call it multiple times.
	Dispose()
}

// StateChangeListener is called with the new state after each transaction state change.
type StateChangeListener = func(ctx context.Context, state TransactionState)

// StateChangeListenerOptions are options of a state change listener.
type StateChangeListenerOptions struct {
	// Once removes the listener after the first call.
	Once bool
}

func (o *StateChangeListenerOptions) once() bool { return o != nil && o.Once }

// TransactionUser is a set of callbacks of the layer above the transaction.
// All callbacks are optional.
type TransactionUser struct {
	// OnStateChange is called once per transaction state change,
	// before state change listeners.
	OnStateChange func(ctx context.Context, state TransactionState)
	// OnTransportError is called when the transaction fails to send a message.
	// The error wraps [ErrTransport].
	OnTransportError func(ctx context.Context, err error)
}

type txCtxKey struct{}

// TransactionFromContext returns the transaction passed with callback context.
func TransactionFromContext(ctx context.Context) (Transaction, bool) {
	tx, ok := ctx.Value(txCtxKey{}).(Transaction)
	return tx, ok
}

const (
	txEvtRecv1xx       = "recv_1xx"
	txEvtRecv2xx       = "recv_2xx"
	txEvtRecv300699    = "recv_300-699"
	txEvtRecvReq       = "recv_req"
	txEvtRecvAck       = "recv_ack"
	txEvtSend1xx       = "send_1xx"
	txEvtSend2xx       = "send_2xx"
	txEvtSend300699    = "send_300-699"
	txEvtSendAck       = "send_ack"
	txEvtRetransmit2xx = "retransmit_2xx"
	txEvtTranspErr     = "transport_error"
)

type transactImpl interface {
	Transaction
	slog.LogValuer
}

type baseOptions struct {
	timings TimingConfig
	clock   Clock
	stats   *StatsRecorder
	log     *slog.Logger
}

// baseTransact is a serialized actor, all entries fire the state machine under mu.
// Callbacks of the transaction user are queued and called after mu is released.
type baseTransact struct {
	ctx      context.Context //nolint:containedctx
	typ      TransactionType
	id       string
	impl     transactImpl
	tp       Transport
	reliable bool
	tu       TransactionUser
	timings  TimingConfig
	clock    Clock
	stats    *StatsRecorder
	log      *slog.Logger

	mu       sync.Mutex
	fsm      *stateless.StateMachine
	timers   map[string]*txTimer
	pending  []func()
	sendErrs []error
	disposed bool

	stateLsnrs types.CallbackManager[StateChangeListener]
}

func newBaseTransact(
	typ TransactionType,
	impl transactImpl,
	id string,
	tp Transport,
	tu TransactionUser,
	opts baseOptions,
) *baseTransact {
	clock := opts.clock
	if clock == nil {
		clock = timeutil.RealClock()
	}
	logger := opts.log
	if logger == nil {
		logger = log.Default()
	}
	return &baseTransact{
		ctx:      context.WithValue(context.Background(), txCtxKey{}, impl),
		typ:      typ,
		id:       id,
		impl:     impl,
		tp:       tp,
		reliable: IsReliableTransport(tp),
		tu:       tu,
		timings:  opts.timings,
		clock:    clock,
		stats:    opts.stats,
		log:      logger,
	}
}

func (tx *baseTransact) initFSM(start TransactionState) {
	tx.fsm = stateless.NewStateMachine(start)
	tx.fsm.OnUnhandledTrigger(func(_ context.Context, state stateless.State, trigger stateless.Trigger, _ []string) error {
		return fmt.Errorf("%w: %q in state %q", ErrInvalidStateTransition, trigger, state) //errtrace:skip
	})
	tx.fsm.OnTransitioning(tx.onTransitioning)

	tx.fsm.Configure(TransactionStateTerminated).
		OnEntry(tx.actTerminated).
		Ignore(txEvtTranspErr)

	tx.stats.txCreated(tx.typ)
}

// ID returns the transaction ID.
func (tx *baseTransact) ID() string {
	if tx == nil {
		return ""
	}
	return tx.id
}

// Type returns the transaction type.
func (tx *baseTransact) Type() TransactionType {
	if tx == nil {
		return ""
	}
	return tx.typ
}

// State returns the current transaction state.
func (tx *baseTransact) State() TransactionState {
	if tx == nil || tx.fsm == nil {
		return ""
	}
	return tx.fsm.MustState().(TransactionState) //nolint:forcetypeassert
}

// Transport returns the transaction transport.
func (tx *baseTransact) Transport() Transport {
	if tx == nil {
		return nil
	}
	return tx.tp
}

// LogValue implements [slog.LogValuer].
func (tx *baseTransact) LogValue() slog.Value {
	if tx == nil {
		return slog.Value{}
	}
	return slog.GroupValue(
		slog.String("id", tx.id),
		slog.Any("type", tx.typ),
		slog.Any("state", tx.State()),
	)
}

func (tx *baseTransact) String() string {
	if tx == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s transaction %s", tx.typ, tx.id)
}

// AddStateChangeListener registers a listener called after each state change.
func (tx *baseTransact) AddStateChangeListener(
	fn StateChangeListener,
	opts *StateChangeListenerOptions,
) (remove func()) {
	if opts.once() {
		return tx.stateLsnrs.AddOnce(fn)
	}
	return tx.stateLsnrs.Add(fn)
}

// Dispose stops all timers and drops all listeners.
// Calls to a transaction disposed before termination return [ErrTransactionDisposed].
func (tx *baseTransact) Dispose() {
	tx.mu.Lock()
	tx.disposeUnsafe(tx.ctx)
	tx.mu.Unlock()
}

func (tx *baseTransact) disposeUnsafe(ctx context.Context) {
	if tx.disposed {
		return
	}
	tx.disposed = true

	tx.stopAllTimers(ctx)
	tx.stateLsnrs.Clear()
	tx.stats.txDisposed(tx.typ)

	tx.log.LogAttrs(ctx, slog.LevelDebug, "transaction disposed", slog.Any("transaction", tx.impl))
}

// do runs fn in the transaction critical section.
// Send failures recorded by fn are turned into transport error events,
// then queued callbacks are called in order outside the critical section.
func (tx *baseTransact) do(ctx context.Context, fn func() error) error {
	tx.mu.Lock()
	if tx.disposed && tx.State() != TransactionStateTerminated {
		tx.mu.Unlock()
		return errtrace.Wrap(ErrTransactionDisposed)
	}

	err := fn()
	for len(tx.sendErrs) > 0 {
		sendErr := tx.sendErrs[0]
		tx.sendErrs = tx.sendErrs[1:]
		tx.handleTranspErr(ctx, sendErr)
	}

	pending := tx.pending
	tx.pending = nil
	tx.mu.Unlock()

	for _, fn := range pending {
		fn()
	}
	return errtrace.Wrap(err)
}

func (tx *baseTransact) enqueue(fn func()) {
	tx.pending = append(tx.pending, fn)
}

func (tx *baseTransact) mustFire(ctx context.Context, evt string, args ...any) {
	if err := tx.fsm.FireCtx(ctx, evt, args...); err != nil {
		panic(fmt.Errorf("fire %q in state %q: %w", evt, tx.State(), err))
	}
}

// onTransitioning queues the state change notification before entry actions of the new state run,
// so the transaction user sees the state before anything the entry actions pass to it,
// and listeners are taken before termination drops them.
func (tx *baseTransact) onTransitioning(ctx context.Context, tr stateless.Transition) {
	if tr.Source == tr.Destination {
		return
	}
	state := tr.Destination.(TransactionState) //nolint:forcetypeassert

	tx.log.LogAttrs(ctx, slog.LevelDebug, "transaction state changed",
		slog.Any("transaction", tx.impl),
		slog.Any("from", tr.Source),
		slog.Any("to", state),
	)

	lsnrs := tx.stateLsnrs.Take()
	onChange := tx.tu.OnStateChange
	tx.enqueue(func() {
		if onChange != nil {
			onChange(tx.ctx, state)
		}
		for _, fn := range lsnrs {
			fn(tx.ctx, state)
		}
	})
}

func (tx *baseTransact) actTerminated(ctx context.Context, _ ...any) error {
	tx.log.LogAttrs(ctx, slog.LevelDebug, "transaction terminated", slog.Any("transaction", tx.impl))

	tx.disposeUnsafe(ctx)
	return nil
}

// send passes the message to the transport.
// A failure is recorded and handled once the current event is processed.
func (tx *baseTransact) send(ctx context.Context, msg string) {
	if err := tx.tp.Send(ctx, msg); err != nil {
		err = NewTransportError(err)

		tx.log.LogAttrs(ctx, slog.LevelWarn, "failed to send message",
			slog.Any("transaction", tx.impl),
			slog.String(log.MessageKey, msg),
			slog.Any("error", err),
		)

		tx.sendErrs = append(tx.sendErrs, errtrace.Wrap(err))
	}
}

func (tx *baseTransact) resend(ctx context.Context, msg string) {
	tx.stats.txRetransmitted()
	tx.send(ctx, msg)
}

func (tx *baseTransact) handleTranspErr(ctx context.Context, err error) {
	tx.stats.txTransportError()

	if fn := tx.tu.OnTransportError; fn != nil {
		tx.enqueue(func() { fn(tx.ctx, err) })
	}
	tx.mustFire(ctx, txEvtTranspErr, err)
}

type txTimer struct {
	name string
	dur  time.Duration
	tmr  Timer
}

// timerFunc is called in the transaction critical section with the duration the timer was started with.
type timerFunc = func(ctx context.Context, dur time.Duration)

// startTimer starts the named timer replacing a running one with the same name.
func (tx *baseTransact) startTimer(ctx context.Context, name string, d time.Duration, fn timerFunc) {
	tx.stopTimer(ctx, name)

	t := &txTimer{name: name, dur: d}
	if tx.timers == nil {
		tx.timers = make(map[string]*txTimer)
	}
	tx.timers[name] = t
	t.tmr = tx.clock.AfterFunc(d, func() { tx.fireTimer(t, fn) })

	tx.log.LogAttrs(ctx, slog.LevelDebug, "timer "+name+" started",
		slog.Any("transaction", tx.impl),
		slog.Time("expires_at", tx.clock.Now().Add(d)),
	)
}

func (tx *baseTransact) stopTimer(ctx context.Context, name string) {
	t, ok := tx.timers[name]
	if !ok {
		return
	}
	t.tmr.Stop()
	delete(tx.timers, name)

	tx.log.LogAttrs(ctx, slog.LevelDebug, "timer "+name+" stopped", slog.Any("transaction", tx.impl))
}

func (tx *baseTransact) stopAllTimers(ctx context.Context) {
	for name := range tx.timers {
		tx.stopTimer(ctx, name)
	}
}

func (tx *baseTransact) hasTimer(name string) bool {
	_, ok := tx.timers[name]
	return ok
}

func (tx *baseTransact) fireTimer(t *txTimer, fn timerFunc) {
	tx.do(tx.ctx, func() error { //nolint:errcheck
		// stopped or replaced while the callback was waiting for the lock
		if cur, ok := tx.timers[t.name]; !ok || cur != t {
			return nil
		}
		delete(tx.timers, t.name)

		tx.log.LogAttrs(tx.ctx, slog.LevelDebug, "timer "+t.name+" expired", slog.Any("transaction", tx.impl))

		fn(tx.ctx, t.dur)
		return nil
	})
}

// zeroIfReliable returns zero wait duration for reliable transports.
func (tx *baseTransact) zeroIfReliable(d time.Duration) time.Duration {
	if tx.reliable {
		return 0
	}
	return d
}
