package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/omeyang/xasync/pkg/async/xdelimit"
	"github.com/omeyang/xasync/pkg/async/xexec"
	"github.com/omeyang/xasync/pkg/async/xinstrument"
	"github.com/omeyang/xasync/pkg/config/xconf"
	"github.com/omeyang/xasync/pkg/observability/xlog"
	"github.com/omeyang/xasync/pkg/observability/xmetrics"
)

const tracerName = "github.com/omeyang/xasync/cmd/xasyncctl"

func createRunCommand(stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "并发运行演示 Execution 并报告各段的 trace 是否保持",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "executions", Aliases: []string{"n"}, Usage: "每轮并发的 Execution 数", Value: 3},
			&cli.IntFlag{Name: "steps", Usage: "每个 Execution 串联的 delimit 段数", Value: 2},
			&cli.StringFlag{Name: "traceparent", Usage: "W3C traceparent，作为所有请求的远端父 span"},
			&cli.BoolFlag{Name: "no-instrument", Usage: "关闭 delimit 拦截，观察上下文丢失"},
			&cli.IntFlag{Name: "rounds", Usage: "运行轮数", Value: 1},
			&cli.StringFlag{Name: "schedule", Usage: "轮次调度，cron 表达式或 @every <duration>（不足 1s 按 1s 计）", Value: "@every 1s"},
			&cli.BoolFlag{Name: "watch", Usage: "监视配置文件，热更新日志级别与拦截开关（需 --config）"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			opts := runOptions{
				configPath:   cmd.String("config"),
				executions:   int(cmd.Int("executions")),
				steps:        int(cmd.Int("steps")),
				traceparent:  cmd.String("traceparent"),
				noInstrument: cmd.Bool("no-instrument"),
				rounds:       int(cmd.Int("rounds")),
				schedule:     cmd.String("schedule"),
				watch:        cmd.Bool("watch"),
			}
			return runDemo(ctx, opts, stdout, stderr)
		},
	}
}

type runOptions struct {
	configPath   string
	executions   int
	steps        int
	traceparent  string
	noInstrument bool
	rounds       int
	schedule     string
	watch        bool
}

func (o runOptions) validate() error {
	switch {
	case o.executions < 1:
		return usagef("--executions must be positive, got %d", o.executions)
	case o.steps < 1:
		return usagef("--steps must be positive, got %d", o.steps)
	case o.rounds < 1:
		return usagef("--rounds must be positive, got %d", o.rounds)
	case o.watch && o.configPath == "":
		return usagef("--watch requires --config")
	}
	return nil
}

// roundSchedule 解析轮次调度。单轮运行不需要调度，返回 nil。
func (o runOptions) roundSchedule() (cron.Schedule, error) {
	if o.rounds == 1 {
		return nil, nil
	}
	sched, err := cron.ParseStandard(o.schedule)
	if err != nil {
		return nil, usagef("invalid --schedule %q: %v", o.schedule, err)
	}
	return sched, nil
}

// waitNext 阻塞到调度的下一个触发点。
func waitNext(ctx context.Context, sched cron.Schedule) error {
	timer := time.NewTimer(time.Until(sched.Next(time.Now())))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func runDemo(ctx context.Context, opts runOptions, stdout, stderr io.Writer) (err error) {
	if err := opts.validate(); err != nil {
		return err
	}
	sched, err := opts.roundSchedule()
	if err != nil {
		return err
	}
	seed, err := seedContext(ctx, opts.traceparent)
	if err != nil {
		return err
	}
	cfg, app, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}

	logger, closeLog, err := newLogger(app.Log, stderr)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, closeLog()) }()

	tel := newTelemetry()
	defer func() {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), app.Engine.ShutdownTimeout)
		defer cancel()
		err = errors.Join(err, tel.shutdown(sctx))
	}()

	observer, err := xmetrics.NewOTelObserver(
		xmetrics.WithTracerProvider(tel.tp),
		xmetrics.WithMeterProvider(tel.mp),
	)
	if err != nil {
		return err
	}
	engine, err := xexec.New(
		xexec.WithWorkers(app.Engine.Workers),
		xexec.WithQueueSize(app.Engine.QueueSize),
		xexec.WithLogger(logger),
		xexec.WithObserver(observer),
		xexec.WithContextPropagation(
			xdelimit.WithTypeName(app.Instrumentation.TypeName),
			xdelimit.WithMethodPrefix(app.Instrumentation.MethodPrefix),
			xdelimit.WithMeterProvider(tel.mp),
		),
	)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), app.Engine.ShutdownTimeout)
		defer cancel()
		err = errors.Join(err, engine.Close(sctx))
	}()
	engine.Host().SetEnabled(app.Instrumentation.Enabled && !opts.noInstrument)

	if opts.watch {
		w, err := xconf.Watch(ctx, cfg, applyReload(logger, engine.Host(), opts.noInstrument))
		if err != nil {
			return err
		}
		defer func() { err = errors.Join(err, w.Stop()) }()
	}

	tracer := tel.tp.Tracer(tracerName)
	preserved, total := 0, 0
	for round := 1; round <= opts.rounds; round++ {
		if round > 1 {
			if err := waitNext(ctx, sched); err != nil {
				return err
			}
		}
		p, n, err := runRound(seed, engine, tracer, logger, opts, stdout)
		if err != nil {
			return err
		}
		preserved += p
		total += n
	}

	instrumented := "off"
	if engine.Host().Enabled() {
		instrumented = "on"
	}
	fmt.Fprintf(stdout, "summary: preserved %d/%d segments, instrumentation=%s\n", preserved, total, instrumented)

	counts, err := tel.wrapCounts(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "delimit wraps: wrapped=%d reused=%d\n", counts["wrapped"], counts["reused"])
	fmt.Fprintf(stdout, "spans recorded: %d\n", len(tel.spans.Ended()))
	return nil
}

func runRound(ctx context.Context, engine *xexec.Engine, tracer trace.Tracer, logger xlog.Logger, opts runOptions, stdout io.Writer) (int, int, error) {
	reports := make([]*demoReport, opts.executions)
	g, gctx := errgroup.WithContext(ctx)
	for i := range reports {
		reports[i] = &demoReport{}
		g.Go(func() error {
			x, err := engine.Start(gctx, demoBlock(tracer, logger, opts.steps, reports[i]))
			if err != nil {
				return err
			}
			return waitRound(gctx, x)
		})
	}
	if err := g.Wait(); err != nil {
		return 0, 0, err
	}
	preserved, total := printReports(stdout, reports)
	return preserved, total, nil
}

// applyReload 把重载后的配置应用到运行中的日志与拦截宿主。
func applyReload(logger xlog.LoggerWithLevel, host *xinstrument.Host, noInstrument bool) xconf.WatchCallback {
	return func(cfg xconf.Config, err error) {
		ctx := context.Background()
		if err != nil {
			logger.Warn(ctx, "config reload failed", xlog.Err(err))
			return
		}
		app, err := xconf.LoadApp(cfg)
		if err != nil {
			logger.Warn(ctx, "reloaded config rejected", xlog.Err(err))
			return
		}
		if level, err := xlog.ParseLevel(app.Log.Level); err == nil {
			logger.SetLevel(level)
		}
		host.SetEnabled(app.Instrumentation.Enabled && !noInstrument)
		logger.Info(ctx, "config reloaded",
			slog.String("log_level", app.Log.Level),
			slog.Bool("instrumentation", host.Enabled()))
	}
}

func createProbeCommand(stdout io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "probe",
		Usage: "校验 Execution API 与 delimit 钩子的兼容性",
		Action: func(context.Context, *cli.Command) error {
			probe, err := xexec.CompatibilityProbe()
			if err != nil {
				return err
			}
			if err := probe.Verify(); err != nil {
				fmt.Fprintf(stdout, "incompatible: %v\n", err)
				return err
			}
			fmt.Fprintf(stdout, "compatible: %d requirements satisfied\n", len(probe.Requirements))
			return nil
		},
	}
}

func createVersionCommand(stdout io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "打印版本信息",
		Action: func(context.Context, *cli.Command) error {
			fmt.Fprintf(stdout, "xasyncctl %s\ncommit: %s\nbuilt: %s\n", Version, GitCommit, BuildTime)
			return nil
		},
	}
}
