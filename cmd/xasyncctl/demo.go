package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/trace"

	"github.com/omeyang/xasync/pkg/async/xdelimit"
	"github.com/omeyang/xasync/pkg/async/xexec"
	"github.com/omeyang/xasync/pkg/observability/xlog"
)

// segmentResult 一个段开始时看到的 trace 与发起请求的 trace 的对比。
type segmentResult struct {
	step int
	want trace.TraceID
	got  trace.TraceID
}

func (r segmentResult) preserved() bool {
	return r.want.IsValid() && r.want == r.got
}

// demoReport 一次 Execution 的观测结果。
type demoReport struct {
	mu        sync.Mutex
	execution string
	trace     trace.TraceID
	segments  []segmentResult
}

func (r *demoReport) add(step int, got trace.TraceID) {
	r.mu.Lock()
	r.segments = append(r.segments, segmentResult{step: step, want: r.trace, got: got})
	r.mu.Unlock()
}

// demoBlock 返回一个演示任务：开启 request span 后连续 delimit steps 次，
// 每个段记录自己看到的 trace，再从段内 delimit 下一段。
func demoBlock(tracer trace.Tracer, logger xlog.Logger, steps int, report *demoReport) xexec.Block {
	return func(x *xexec.Execution) error {
		ctx, span := tracer.Start(x.Context(), "request")
		defer span.End()
		x.SetContext(ctx)

		report.mu.Lock()
		report.execution = x.ID()
		report.trace = span.SpanContext().TraceID()
		report.mu.Unlock()

		return delimitStep(x, tracer, logger, 1, steps, report)
	}
}

func delimitStep(x *xexec.Execution, tracer trace.Tracer, logger xlog.Logger, step, steps int, report *demoReport) error {
	onError := xdelimit.Func[error](func(err error) error {
		logger.Warn(x.Context(), "segment failed", slog.Int("step", step), xlog.Err(err))
		return nil
	})
	segment := xdelimit.Func[*xexec.Continuation](func(c *xexec.Continuation) error {
		ctx, span := tracer.Start(x.Context(), fmt.Sprintf("segment-%d", step))
		defer span.End()

		report.add(step, trace.SpanContextFromContext(x.Context()).TraceID())
		logger.Debug(ctx, "segment running", slog.Int("step", step))

		if step < steps {
			x.SetContext(ctx)
			if err := delimitStep(x, tracer, logger, step+1, steps, report); err != nil {
				return err
			}
		}
		return c.Complete()
	})
	return x.Delimit(onError, segment)
}

// printReports 输出各 Execution 的段结果，返回 (保持数, 总段数)。
func printReports(w io.Writer, reports []*demoReport) (int, int) {
	preserved, total := 0, 0
	for _, r := range reports {
		r.mu.Lock()
		fmt.Fprintf(w, "execution %s trace %s\n", r.execution, r.trace)
		for _, s := range r.segments {
			state := "lost"
			if s.preserved() {
				state = "preserved"
				preserved++
			}
			total++
			fmt.Fprintf(w, "  segment %d: trace %s %s\n", s.step, s.got, state)
		}
		r.mu.Unlock()
	}
	return preserved, total
}

func waitRound(ctx context.Context, x *xexec.Execution) error {
	if err := x.Wait(ctx); err != nil {
		return fmt.Errorf("execution %s: %w", x.ID(), err)
	}
	return nil
}
