package xdelimit_test

//go:generate mockgen -destination=mock_carrier_test.go -package=xdelimit_test -mock_names=Carrier=MockCarrier github.com/omeyang/xasync/pkg/context/xambient Carrier

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/omeyang/xasync/pkg/async/xdelimit"
	"github.com/omeyang/xasync/pkg/context/xambient"
	"github.com/omeyang/xasync/pkg/context/xctx"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func traced(t *testing.T, traceID string) context.Context {
	t.Helper()
	ctx, err := xctx.WithTraceID(context.Background(), traceID)
	require.NoError(t, err)
	return ctx
}

// observe 返回记录调用时环境 trace ID 的回调。
func observe(c xambient.Carrier, seen *string) xdelimit.Func[int] {
	return func(int) error {
		*seen = xctx.TraceID(c.Current())
		return nil
	}
}

func TestWrap_Idempotent(t *testing.T) {
	slot := xambient.NewSlot(traced(t, "trace-A"))
	var seen string
	var cb xdelimit.Callback[int] = observe(slot, &seen)

	first := xdelimit.Wrap(slot, cb)
	require.True(t, xdelimit.IsWrapped(first))
	assert.False(t, xdelimit.IsWrapped(cb))

	slot.Swap(traced(t, "trace-B"))
	second := xdelimit.Wrap(slot, first)
	assert.Same(t, first, second)

	w, ok := second.(*xdelimit.Wrapped[int])
	require.True(t, ok)
	assert.Equal(t, "trace-A", xctx.TraceID(w.Snapshot()))
	assert.Same(t, slot, w.Carrier())
}

func TestWrapped_ContextFidelity(t *testing.T) {
	slot := xambient.NewSlot(traced(t, "X"))
	var seen string
	wrapped := xdelimit.Wrap[int](slot, observe(slot, &seen))

	slot.Swap(traced(t, "Y"))
	require.NoError(t, wrapped.Call(1))
	assert.Equal(t, "X", seen)
}

func TestWrapped_NoLeakage(t *testing.T) {
	slot := xambient.NewSlot(traced(t, "X"))
	var seen string
	wrapped := xdelimit.Wrap[int](slot, observe(slot, &seen))

	y := traced(t, "Y")
	slot.Swap(y)
	require.NoError(t, wrapped.Call(1))
	assert.Equal(t, y, slot.Current())

	failing := xdelimit.Wrap[int](slot, xdelimit.Func[int](func(int) error {
		return errors.New("failed")
	}))
	require.Error(t, failing.Call(1))
	assert.Equal(t, y, slot.Current())
}

func TestWrapped_FailurePassThrough(t *testing.T) {
	slot := xambient.NewSlot(traced(t, "X"))
	want := fmt.Errorf("segment failed: %w", context.DeadlineExceeded)
	wrapped := xdelimit.Wrap[int](slot, xdelimit.Func[int](func(int) error { return want }))

	y := traced(t, "Y")
	slot.Swap(y)
	got := wrapped.Call(1)
	assert.True(t, got == want, "error must be returned verbatim")
	assert.ErrorIs(t, got, context.DeadlineExceeded)
	assert.Equal(t, y, slot.Current())
}

func TestWrapped_PanicRestoresAmbient(t *testing.T) {
	slot := xambient.NewSlot(traced(t, "X"))
	var seen string
	wrapped := xdelimit.Wrap[int](slot, xdelimit.Func[int](func(int) error {
		seen = xctx.TraceID(slot.Current())
		panic("boom")
	}))

	y := traced(t, "Y")
	slot.Swap(y)
	assert.PanicsWithValue(t, "boom", func() { _ = wrapped.Call(1) })
	assert.Equal(t, "X", seen)
	assert.Equal(t, y, slot.Current())
}

func TestCapture_DualArgumentIndependence(t *testing.T) {
	slot := xambient.NewSlot(traced(t, "A"))
	var errSeen, segSeen string
	var onError xdelimit.Callback[error] = xdelimit.Func[error](func(error) error {
		errSeen = xctx.TraceID(slot.Current())
		return nil
	})
	var segment xdelimit.Callback[int] = observe(slot, &segSeen)

	xdelimit.Capture(slot, &onError, &segment)
	require.True(t, xdelimit.IsWrapped(onError))
	require.True(t, xdelimit.IsWrapped(segment))

	we := onError.(*xdelimit.Wrapped[error])
	ws := segment.(*xdelimit.Wrapped[int])
	assert.Equal(t, we.Snapshot(), ws.Snapshot())

	slot.Swap(traced(t, "B"))
	require.NoError(t, onError.Call(errors.New("x")))
	require.NoError(t, segment.Call(1))
	assert.Equal(t, "A", errSeen)
	assert.Equal(t, "A", segSeen)
}

func TestCapture_EndToEnd(t *testing.T) {
	slot := xambient.NewSlot(traced(t, "trace-A"))
	var seen string
	var errA xdelimit.Callback[error] = xdelimit.Func[error](func(error) error { return nil })
	var segB xdelimit.Callback[int] = observe(slot, &seen)

	xdelimit.Capture(slot, &errA, &segB)
	slot.Swap(traced(t, "trace-B"))

	require.NoError(t, segB.Call(1))
	assert.Equal(t, "trace-A", seen)
	assert.Equal(t, "trace-B", xctx.TraceID(slot.Current()))
}

func TestCapture_Reentrant(t *testing.T) {
	slot := xambient.NewSlot(traced(t, "trace-A"))
	var seen string
	var errA xdelimit.Callback[error] = xdelimit.Func[error](func(error) error { return nil })
	var segB xdelimit.Callback[int] = observe(slot, &seen)

	xdelimit.Capture(slot, &errA, &segB)
	firstErr, firstSeg := errA, segB

	slot.Swap(traced(t, "trace-B"))
	xdelimit.Capture(slot, &errA, &segB)
	assert.Same(t, firstErr, errA)
	assert.Same(t, firstSeg, segB)
	assert.Equal(t, "trace-A", xctx.TraceID(segB.(*xdelimit.Wrapped[int]).Snapshot()))
}

func TestCapture_NilArguments(t *testing.T) {
	slot := xambient.NewSlot(nil)
	assert.NotPanics(t, func() {
		xdelimit.Capture[error, int](slot, nil, nil)
	})

	var onError xdelimit.Callback[error]
	var segment xdelimit.Callback[int] = xdelimit.Func[int](func(int) error { return nil })
	xdelimit.Capture(slot, &onError, &segment)
	assert.Nil(t, onError)
	assert.True(t, xdelimit.IsWrapped(segment))
}

func TestWrap_EmptyAmbientCapturesRoot(t *testing.T) {
	var slot xambient.Slot
	w := xdelimit.Wrap[int](&slot, xdelimit.Func[int](func(int) error { return nil }))
	assert.Equal(t, context.Background(), w.(*xdelimit.Wrapped[int]).Snapshot())
}

func TestWrap_DefaultCarrier(t *testing.T) {
	xambient.ResetDefault()
	t.Cleanup(xambient.ResetDefault)

	xambient.Default().Swap(traced(t, "global"))
	var seen string
	w := xdelimit.WrapFunc[int](nil, func(int) error {
		seen = xctx.TraceID(xambient.Default().Current())
		return nil
	})
	xambient.Default().Swap(nil)

	require.NoError(t, w.Call(1))
	assert.Equal(t, "global", seen)
	assert.Empty(t, xctx.TraceID(xambient.Default().Current()))
	assert.Same(t, xambient.Default(), w.(*xdelimit.Wrapped[int]).Carrier())
}

func TestWrap_NilCallbacks(t *testing.T) {
	slot := xambient.NewSlot(nil)
	assert.Nil(t, xdelimit.Wrap[int](slot, nil))
	assert.Nil(t, xdelimit.WrapFunc[int](slot, nil))

	var nilFunc xdelimit.Func[int]
	got := xdelimit.Wrap[int](slot, nilFunc)
	assert.False(t, xdelimit.IsWrapped(got))
	assert.ErrorIs(t, got.Call(1), xdelimit.ErrNilCallback)
	assert.False(t, xdelimit.IsWrapped("not a callback"))
}

func TestWrap_TypedNilWrapped(t *testing.T) {
	slot := xambient.NewSlot(nil)
	var nilWrapped *xdelimit.Wrapped[int]

	assert.Nil(t, xdelimit.Wrap[int](slot, nilWrapped))
	assert.False(t, xdelimit.IsWrapped(nilWrapped))
	assert.ErrorIs(t, nilWrapped.Call(1), xdelimit.ErrNilCallback)

	var onError xdelimit.Callback[error] = (*xdelimit.Wrapped[error])(nil)
	var segment xdelimit.Callback[int] = xdelimit.Func[int](nil)
	assert.NotPanics(t, func() { xdelimit.Capture(slot, &onError, &segment) })
	assert.False(t, xdelimit.IsWrapped(onError))
	assert.False(t, xdelimit.IsWrapped(segment))
	assert.ErrorIs(t, onError.Call(nil), xdelimit.ErrNilCallback)
}

func TestWrapped_Unwrap(t *testing.T) {
	calls := 0
	orig := xdelimit.Func[int](func(int) error { calls++; return nil })
	w := xdelimit.Wrap[int](xambient.NewSlot(nil), orig).(*xdelimit.Wrapped[int])
	require.NoError(t, w.Unwrap().Call(1))
	assert.Equal(t, 1, calls)
}

func TestWrapped_SwapOrderWithMockCarrier(t *testing.T) {
	ctrl := gomock.NewController(t)
	carrier := NewMockCarrier(ctrl)

	snapshot := traced(t, "snap")
	current := traced(t, "current")
	gomock.InOrder(
		carrier.EXPECT().Current().Return(snapshot),
		carrier.EXPECT().Swap(snapshot).Return(current),
		carrier.EXPECT().Swap(current).Return(snapshot),
	)

	w := xdelimit.WrapFunc[int](carrier, func(int) error { return nil })
	require.NoError(t, w.Call(1))
}

func TestWrapped_IndependentSlotsConcurrent(t *testing.T) {
	const n = 32
	var wg sync.WaitGroup
	errs := make(chan string, n)

	for i := range n {
		want := fmt.Sprintf("trace-%d", i)
		slot := xambient.NewSlot(traced(t, want))
		w := xdelimit.WrapFunc[int](slot, func(int) error {
			if got := xctx.TraceID(slot.Current()); got != want {
				errs <- got
			}
			return nil
		})
		slot.Swap(nil)

		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				_ = w.Call(0)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for got := range errs {
		t.Errorf("unexpected ambient trace %q", got)
	}
}
