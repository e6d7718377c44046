// xasyncctl 驱动 xexec 引擎运行演示任务，用于观察 delimit 上下文传播效果。
//
// 用法:
//
//	xasyncctl [全局选项] <命令> [命令参数]
//
// 全局选项:
//
//	-c, --config   配置文件路径（yaml/json），缺省使用内置默认值
//
// 命令:
//
//	run            并发运行若干演示 Execution，报告每个段看到的 trace 是否与发起时一致
//	probe          校验 Execution API 仍满足 delimit 钩子的形状要求
//	version        打印版本信息
//
// 退出码:
//
//	0: 成功
//	1: 执行失败或探针不兼容
//	2: 参数错误
//
// 示例:
//
//	xasyncctl run -n 4 --steps 3
//	xasyncctl run --no-instrument
//	xasyncctl run --traceparent 00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01
//	xasyncctl -c xasync.yaml run --watch --rounds 10
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
)

// 版本信息，可通过 -ldflags "-X main.Version=..." 注入。
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// usageError 参数错误，映射为退出码 2。
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

func createApp(stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "xasyncctl",
		Usage:     "xasync 执行引擎与上下文传播演示工具",
		Version:   fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime),
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "配置文件路径（.yaml/.yml/.json）",
			},
		},
		Commands: []*cli.Command{
			createRunCommand(stdout, stderr),
			createProbeCommand(stdout),
			createVersionCommand(stdout),
		},
		// 设计决策: 禁止 urfave/cli 直接 os.Exit，退出码统一由 run 映射。
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	err := createApp(stdout, stderr).Run(ctx, args)
	if err == nil {
		return 0
	}
	var uerr *usageError
	if errors.As(err, &uerr) {
		fmt.Fprintf(stderr, "参数错误: %v\n", uerr)
		return 2
	}
	fmt.Fprintf(stderr, "错误: %v\n", err)
	return 1
}
