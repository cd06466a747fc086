package sip_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/mock/gomock"

	"github.com/ghettovoice/siptx/sip"
)

func newNonInviteServerTx(
	tb testing.TB,
	proto sip.TransportProto,
	opts *sip.ServerTransactionOptions,
) (*sip.NonInviteServerTransaction, *sip.Request, *stubTransport, *tuRecorder) {
	tb.Helper()

	rec := new(tuRecorder)
	tp := newStubTransport(proto)
	req := newReq(tb, sip.RequestMethodRegister, srvBranch)

	tx, err := sip.NewNonInviteServerTransaction(tb.Context(), req, tp, rec.serverUser(), opts)
	if err != nil {
		tb.Fatalf("sip.NewNonInviteServerTransaction() error = %v, want nil", err)
	}
	return tx, req, tp, rec
}

func TestNonInviteServerTransaction_Proceeding(t *testing.T) {
	t.Parallel()

	clock := newManualClock()
	tx, req, tp, rec := newNonInviteServerTx(t, sip.TransportProtoUDP, &sip.ServerTransactionOptions{Clock: clock})
	ctx := t.Context()

	assertState(t, tx, sip.TransactionStateTrying)
	if got := tx.Type(); got != sip.TransactionTypeServerNonInvite {
		t.Fatalf("tx.Type() = %q, want %q", got, sip.TransactionTypeServerNonInvite)
	}

	// nothing to answer a retransmission with yet
	if err := tx.RecvRequest(ctx, req); err != nil {
		t.Fatalf("tx.RecvRequest(ctx, REGISTER) error = %v, want nil", err)
	}
	assertSent(t, tp, nil)

	if err := tx.Respond(ctx, newRes(t, req, sip.ResponseStatusTrying, "")); err != nil {
		t.Fatalf("tx.Respond(ctx, 100) error = %v, want nil", err)
	}
	assertState(t, tx, sip.TransactionStateProceeding)
	assertSent(t, tp, []string{tryingLine})
	assertEvents(t, rec, []string{"state Proceeding"})

	if err := tx.RecvRequest(ctx, req); err != nil {
		t.Fatalf("tx.RecvRequest(ctx, REGISTER) error = %v, want nil", err)
	}
	assertSent(t, tp, []string{tryingLine})

	for _, status := range []sip.ResponseStatus{sip.ResponseStatusRinging, sip.ResponseStatusSessionProgress, 199} {
		err := tx.Respond(ctx, newRes(t, req, status, ""))
		if !errors.Is(err, sip.ErrInvalidStatusCode) {
			t.Fatalf("tx.Respond(ctx, %d) error = %v, want %v", status, err, sip.ErrInvalidStatusCode)
		}
	}
	assertSent(t, tp, nil)

	if err := tx.Respond(ctx, newRes(t, req, sip.ResponseStatusOK, "a1")); err != nil {
		t.Fatalf("tx.Respond(ctx, 200) error = %v, want nil", err)
	}
	assertState(t, tx, sip.TransactionStateCompleted)
	assertSent(t, tp, []string{okLine})
	assertEvents(t, rec, []string{"state Completed"})

	clock.Advance(64*sip.T1 - 1)
	assertState(t, tx, sip.TransactionStateCompleted)
	clock.Advance(1)
	assertState(t, tx, sip.TransactionStateTerminated)
	assertEvents(t, rec, []string{"state Terminated"})
}

func TestNonInviteServerTransaction_Completed(t *testing.T) {
	t.Parallel()

	clock := newManualClock()
	stats := new(sip.StatsRecorder)
	tx, req, tp, rec := newNonInviteServerTx(t, sip.TransportProtoUDP,
		&sip.ServerTransactionOptions{Clock: clock, Stats: stats})
	ctx := t.Context()

	if err := tx.Respond(ctx, newRes(t, req, sip.ResponseStatusOK, "a1")); err != nil {
		t.Fatalf("tx.Respond(ctx, 200) error = %v, want nil", err)
	}
	assertState(t, tx, sip.TransactionStateCompleted)
	assertEvents(t, rec, []string{"state Completed"})
	final := tp.drain()
	if len(final) != 1 {
		t.Fatalf("sent %d messages, want 1", len(final))
	}

	// responses after the final one are rejected and never reach the wire
	for _, status := range []sip.ResponseStatus{sip.ResponseStatusTrying, sip.ResponseStatusOK, sip.ResponseStatusBusyHere} {
		err := tx.Respond(ctx, newRes(t, req, status, "a1"))
		if !errors.Is(err, sip.ErrInvalidStateTransition) {
			t.Fatalf("tx.Respond(ctx, %d) error = %v, want %v", status, err, sip.ErrInvalidStateTransition)
		}
	}
	assertSent(t, tp, nil)
	assertState(t, tx, sip.TransactionStateCompleted)

	// and the cached one is still used for retransmissions
	for range 2 {
		if err := tx.RecvRequest(ctx, req); err != nil {
			t.Fatalf("tx.RecvRequest(ctx, REGISTER) error = %v, want nil", err)
		}
	}
	if diff := cmp.Diff([]string{final[0], final[0]}, tp.drain()); diff != "" {
		t.Fatalf("retransmitted responses mismatch (-want +got):\n%s", diff)
	}
	if got := stats.Report().Retransmissions; got != 2 {
		t.Fatalf("stats.Report().Retransmissions = %d, want 2", got)
	}

	// a request of another method is not a retransmission
	if err := tx.RecvRequest(ctx, newReq(t, sip.RequestMethodOptions, srvBranch)); err != nil {
		t.Fatalf("tx.RecvRequest(ctx, OPTIONS) error = %v, want nil", err)
	}
	assertSent(t, tp, nil)
	assertEvents(t, rec, nil)
}

func TestNonInviteServerTransaction_Terminated(t *testing.T) {
	t.Parallel()

	clock := newManualClock()
	tx, req, tp, rec := newNonInviteServerTx(t, sip.TransportProtoTCP, &sip.ServerTransactionOptions{Clock: clock})
	ctx := t.Context()

	if err := tx.Respond(ctx, newRes(t, req, sip.ResponseStatusOK, "a1")); err != nil {
		t.Fatalf("tx.Respond(ctx, 200) error = %v, want nil", err)
	}
	assertSent(t, tp, []string{okLine})

	// Timer J is zero on reliable transport
	clock.Advance(0)
	assertState(t, tx, sip.TransactionStateTerminated)
	assertEvents(t, rec, []string{"state Completed", "state Terminated"})

	err := tx.Respond(ctx, newRes(t, req, sip.ResponseStatusBusyHere, "a1"))
	if !errors.Is(err, sip.ErrInvalidStateTransition) {
		t.Fatalf("tx.Respond(ctx, 486) error = %v, want %v", err, sip.ErrInvalidStateTransition)
	}
	if err := tx.RecvRequest(ctx, req); err != nil {
		t.Fatalf("tx.RecvRequest(ctx, REGISTER) error = %v, want nil", err)
	}
	assertSent(t, tp, nil)
	assertState(t, tx, sip.TransactionStateTerminated)
}

func TestNonInviteServerTransaction_TransportError(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		status sip.ResponseStatus
		want   []string
	}{
		{"provisional", sip.ResponseStatusTrying, []string{"state Proceeding", "transport error", "state Terminated"}},
		{"final", sip.ResponseStatusOK, []string{"state Completed", "transport error", "state Terminated"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			clock := newManualClock()
			tx, req, tp, rec := newNonInviteServerTx(t, sip.TransportProtoUDP, &sip.ServerTransactionOptions{Clock: clock})
			tp.setErr(errors.New("connection reset by peer"))

			if err := tx.Respond(t.Context(), newRes(t, req, c.status, "a1")); err != nil {
				t.Fatalf("tx.Respond(ctx, %d) error = %v, want nil", c.status, err)
			}
			assertState(t, tx, sip.TransactionStateTerminated)
			assertEvents(t, rec, c.want)
			if got := clock.Pending(); got != 0 {
				t.Fatalf("clock.Pending() = %d, want 0", got)
			}
		})
	}
}

func TestNewNonInviteServerTransaction_InvalidArgs(t *testing.T) {
	t.Parallel()

	tp := newStubTransport(sip.TransportProtoUDP)
	noCSeq := newReq(t, sip.RequestMethodOptions, srvBranch)
	noCSeq.Headers.Del("CSeq")

	cases := []struct {
		name string
		req  *sip.Request
		tp   sip.Transport
		want error
	}{
		{"INVITE", newInviteReq(t, srvBranch), tp, sip.ErrMethodNotAllowed},
		{"ACK", newReq(t, sip.RequestMethodAck, srvBranch), tp, sip.ErrMethodNotAllowed},
		{"no branch", newReq(t, sip.RequestMethodOptions, ""), tp, sip.ErrMissingBranch},
		{"no CSeq", noCSeq, tp, sip.ErrInvalidMessage},
		{"nil transport", newReq(t, sip.RequestMethodOptions, srvBranch), nil, sip.ErrInvalidArgument},
	}
	for _, c := range cases {
		_, err := sip.NewNonInviteServerTransaction(t.Context(), c.req, c.tp, nil, nil)
		if !errors.Is(err, c.want) {
			t.Errorf("%s: sip.NewNonInviteServerTransaction() error = %v, want %v", c.name, err, c.want)
		}
	}
}

func TestNonInviteServerTransaction_FinalResponseSentOnce(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	tp := NewMockTransport(ctrl)
	tp.EXPECT().Protocol().Return(sip.TransportProtoUDP).AnyTimes()
	// the answer and one retransmission of it, the rejected 486 is never sent
	tp.EXPECT().Send(gomock.Any(), sentStartLine(okLine)).Return(nil).Times(2)

	req := newReq(t, sip.RequestMethodRegister, srvBranch)
	ctx := t.Context()

	tx, err := sip.NewNonInviteServerTransaction(ctx, req, tp, nil,
		&sip.ServerTransactionOptions{Clock: newManualClock()})
	if err != nil {
		t.Fatalf("sip.NewNonInviteServerTransaction() error = %v, want nil", err)
	}
	defer tx.Dispose()

	if err := tx.Respond(ctx, newRes(t, req, sip.ResponseStatusOK, "a1")); err != nil {
		t.Fatalf("tx.Respond(ctx, 200) error = %v, want nil", err)
	}
	err = tx.Respond(ctx, newRes(t, req, sip.ResponseStatusBusyHere, "a1"))
	if !errors.Is(err, sip.ErrInvalidStateTransition) {
		t.Fatalf("tx.Respond(ctx, 486) error = %v, want %v", err, sip.ErrInvalidStateTransition)
	}
	if err := tx.RecvRequest(ctx, req); err != nil {
		t.Fatalf("tx.RecvRequest(ctx, REGISTER) error = %v, want nil", err)
	}
}
