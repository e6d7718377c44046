package xdelimit_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/omeyang/xasync/pkg/async/xdelimit"
	"github.com/omeyang/xasync/pkg/async/xinstrument"
	"github.com/omeyang/xasync/pkg/context/xambient"
	"github.com/omeyang/xasync/pkg/context/xctx"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// scheduler 模拟带 delimit 入口的调度器类型。
type scheduler struct {
	slot *xambient.Slot
}

func (s *scheduler) Carrier() xambient.Carrier { return s.slot }

func (s *scheduler) DelimitSegment(onError xdelimit.Callback[error], segment xdelimit.Callback[int]) {}

func (s *scheduler) DelimitCount(onError xdelimit.Callback[error], n int) {}

func (s *scheduler) Run(onError xdelimit.Callback[error], segment xdelimit.Callback[int]) {}

var schedulerType = reflect.TypeFor[*scheduler]()

func newHook(t *testing.T, fallback xambient.Carrier, opts ...xdelimit.HookOption) *xdelimit.Hook {
	t.Helper()
	opts = append([]xdelimit.HookOption{xdelimit.WithTypeName(xinstrument.TypeName(schedulerType))}, opts...)
	h, err := xdelimit.NewHook(fallback, opts...)
	require.NoError(t, err)
	return h
}

func TestHook_Matches(t *testing.T) {
	h := newHook(t, nil)
	assert.Equal(t, xdelimit.HookName, h.Name())
	assert.True(t, h.Matches(xinstrument.MustMethodOf(schedulerType, "DelimitSegment")))
	assert.False(t, h.Matches(xinstrument.MustMethodOf(schedulerType, "DelimitCount")), "second argument is not a callback")
	assert.False(t, h.Matches(xinstrument.MustMethodOf(schedulerType, "Run")), "name prefix mismatch")

	def, err := xdelimit.NewHook(nil)
	require.NoError(t, err)
	assert.False(t, def.Matches(xinstrument.MustMethodOf(schedulerType, "DelimitSegment")), "default target is the execution type")

	custom := newHook(t, nil, xdelimit.WithMethodPrefix("Run"), xdelimit.WithMethodPrefix(""))
	assert.True(t, custom.Matches(xinstrument.MustMethodOf(schedulerType, "Run")))
}

func TestHook_OnEnterUsesReceiverCarrier(t *testing.T) {
	s := &scheduler{slot: xambient.NewSlot(traced(t, "trace-A"))}
	fallback := xambient.NewSlot(traced(t, "fallback"))
	h := newHook(t, fallback)

	var seen string
	call := &xinstrument.Call{
		Method:   xinstrument.MustMethodOf(schedulerType, "DelimitSegment"),
		Receiver: s,
		Args: []any{
			xdelimit.Func[error](func(error) error { return nil }),
			xdelimit.Func[int](func(int) error {
				seen = xctx.TraceID(s.slot.Current())
				return nil
			}),
		},
	}
	h.OnEnter(call)

	onError, ok := call.Args[0].(xdelimit.Callback[error])
	require.True(t, ok)
	segment, ok := call.Args[1].(xdelimit.Callback[int])
	require.True(t, ok)
	assert.True(t, xdelimit.IsWrapped(onError))
	assert.True(t, xdelimit.IsWrapped(segment))

	s.slot.Swap(traced(t, "trace-B"))
	require.NoError(t, segment.Call(0))
	assert.Equal(t, "trace-A", seen)
	assert.Equal(t, "trace-B", xctx.TraceID(s.slot.Current()))
}

func TestHook_OnEnterFallbackCarrier(t *testing.T) {
	fallback := xambient.NewSlot(traced(t, "fallback"))
	h := newHook(t, fallback)

	call := &xinstrument.Call{
		Method: xinstrument.MustMethodOf(schedulerType, "DelimitSegment"),
		Args:   []any{nil, xdelimit.Func[int](func(int) error { return nil })},
	}
	h.OnEnter(call)

	assert.Nil(t, call.Args[0], "absent onError stays absent")
	w, ok := call.Args[1].(*xdelimit.Wrapped[int])
	require.True(t, ok)
	assert.Same(t, fallback, w.Carrier())
	assert.Equal(t, "fallback", xctx.TraceID(w.Snapshot()))
}

func TestHook_OnEnterShortArgs(t *testing.T) {
	h := newHook(t, nil)
	assert.NotPanics(t, func() {
		h.OnEnter(nil)
		h.OnEnter(&xinstrument.Call{Args: []any{xdelimit.Func[int](nil)}})
	})
}

func TestHook_ThroughHostIsIdempotent(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	s := &scheduler{slot: xambient.NewSlot(traced(t, "trace-A"))}
	h := newHook(t, nil, xdelimit.WithMeterProvider(mp), xdelimit.WithMeterProvider(nil))
	host := xinstrument.NewHost()
	require.NoError(t, host.Register(h))

	method := xinstrument.MustMethodOf(schedulerType, "DelimitSegment")
	call := &xinstrument.Call{
		Method:   method,
		Receiver: s,
		Args: []any{
			xdelimit.Func[error](func(error) error { return nil }),
			xdelimit.Func[int](func(int) error { return nil }),
		},
	}
	host.Enter(call)
	first := call.Args[1]

	s.slot.Swap(traced(t, "trace-B"))
	host.Enter(call)
	assert.Same(t, first, call.Args[1])
	assert.Equal(t, "trace-A", xctx.TraceID(call.Args[1].(*xdelimit.Wrapped[int]).Snapshot()))

	counts := wrapCounts(t, reader)
	assert.Equal(t, int64(2), counts["wrapped"])
	assert.Equal(t, int64(2), counts["reused"])
}

func TestHook_OnEnterSkipsNilCallbacks(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	h := newHook(t, xambient.NewSlot(nil), xdelimit.WithMeterProvider(mp))
	call := &xinstrument.Call{
		Method: xinstrument.MustMethodOf(schedulerType, "DelimitSegment"),
		Args:   []any{xdelimit.Func[error](nil), (*xdelimit.Wrapped[int])(nil)},
	}
	h.OnEnter(call)

	assert.False(t, xdelimit.IsWrapped(call.Args[0]))
	assert.False(t, xdelimit.IsWrapped(call.Args[1]))
	assert.Empty(t, wrapCounts(t, reader), "nil callbacks are not counted")
}

func TestHook_Probe(t *testing.T) {
	h := newHook(t, nil)
	require.NoError(t, h.Probe(schedulerType).Verify())

	err := h.Probe(reflect.TypeFor[*struct{ x int }]()).Verify()
	require.Error(t, err)
	assert.ErrorIs(t, err, xinstrument.ErrIncompatible)

	var mismatch *xinstrument.MismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Contains(t, mismatch.Description, "Delimit")
}

func wrapCounts(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	counts := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != xdelimit.MetricWrapTotal {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				v, _ := dp.Attributes.Value("outcome")
				counts[v.AsString()] += dp.Value
			}
		}
	}
	return counts
}
