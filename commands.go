/*
 * @module commands
 * @description 命令行入口：serve 启动HTTP服务，lookup/history/examples 直接调用查询编排服务
 * @architecture 命令模式 - cobra 子命令
 * @stateFlow 解析参数 -> 加载配置 -> 初始化日志 -> 装配服务 -> 执行子命令 -> 释放资源
 * @rules 未指定子命令时等同于 serve；CLI 与 HTTP 共用同一套配置与装配逻辑
 * @dependencies github.com/spf13/cobra, github.com/go-chi/chi/v5, github.com/dapr/go-sdk
 * @refs api/routes.go, service/app.go
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	daprd "github.com/dapr/go-sdk/service/http"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	httpSwagger "github.com/swaggo/http-swagger"

	"snpfreq-service/api"
	"snpfreq-service/logger"
	"snpfreq-service/service"
	"snpfreq-service/service/config"
	"snpfreq-service/service/lookup"
	"snpfreq-service/service/render"
)

var (
	userID string

	rootCmd = &cobra.Command{
		Use:           "snpfreq",
		Short:         "SNP population frequency lookup service",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runServe,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE:  runServe,
	}

	lookupCmd = &cobra.Command{
		Use:   "lookup [rsid]",
		Short: "Look up population frequencies for an rsID",
		Args:  cobra.ExactArgs(1),
		RunE:  runLookup,
	}

	historyCmd = &cobra.Command{
		Use:   "history",
		Short: "List rsIDs looked up by a user in the last 24 hours",
		Args:  cobra.NoArgs,
		RunE:  runHistory,
	}

	examplesCmd = &cobra.Command{
		Use:   "examples",
		Short: "Print example rsIDs",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			printExamples(cmd.OutOrStdout())
		},
	}
)

func init() {
	lookupCmd.Flags().StringVar(&userID, "user", "cli", "user id charged for the lookup")
	historyCmd.Flags().StringVar(&userID, "user", "cli", "user id whose history is listed")

	rootCmd.AddCommand(serveCmd, lookupCmd, historyCmd, examplesCmd)
}

// bootstrap 加载配置、初始化日志并装配服务
func bootstrap(ctx context.Context) (*service.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger.InitLogger(cfg.LogLevel, cfg.LogFormat)

	return service.NewApp(ctx, cfg, nil)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	mux := chi.NewRouter()
	deps := api.DependenciesFromApp(app)

	// 如果有BASE_CONTEXT，则在该路径下挂载所有路由
	if base := app.Settings.BaseContext; base != "" {
		mux.Route(base, func(r chi.Router) {
			api.InitRoute(r, deps)
			r.Handle("/metrics", promhttp.Handler())
			r.Handle("/swagger*", httpSwagger.WrapHandler)
		})
	} else {
		api.InitRoute(mux, deps)
		mux.Handle("/metrics", promhttp.Handler())
		mux.Handle("/swagger*", httpSwagger.WrapHandler)
	}

	s := daprd.NewServiceWithMux(":"+strconv.Itoa(app.Settings.ListenPort), mux)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP服务启动", "port", app.Settings.ListenPort, "base_context", app.Settings.BaseContext)
		errCh <- s.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP服务异常退出: %w", err)
		}
		return nil
	case <-ctx.Done():
		slog.Info("收到退出信号，正在停止服务")
		if err := s.GracefulStop(); err != nil {
			slog.Warn("服务停止失败", "error", err)
		}
		return nil
	}
}

func runLookup(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
	defer cancel()

	app, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	out, err := app.Lookup.Resolve(ctx, userID, args[0])
	if err != nil {
		return describeLookupError(err)
	}

	w := cmd.OutOrStdout()
	for _, chunk := range render.Text(out.Result) {
		fmt.Fprintln(w, chunk)
		fmt.Fprintln(w)
	}
	if out.Result.Report != "" {
		fmt.Fprintf(w, "Report: %s\n", out.Result.Report)
	}
	for _, img := range out.Result.Images {
		fmt.Fprintf(w, "Charts: %s\n", img)
	}
	fmt.Fprintf(w, "Source: %s, remaining this hour: %d\n", out.Source, out.Remaining)
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	app, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	ids, err := app.Lookup.History(ctx, userID)
	if err != nil {
		return describeLookupError(err)
	}

	w := cmd.OutOrStdout()
	if len(ids) == 0 {
		fmt.Fprintln(w, "No lookups in the last 24 hours.")
		return nil
	}
	for _, id := range ids {
		fmt.Fprintln(w, id)
	}
	return nil
}

func printExamples(w io.Writer) {
	fmt.Fprintln(w, "Example rsIDs:")
	for _, ex := range lookup.Examples() {
		fmt.Fprintf(w, "  %s (%s)\n", ex.RSID, ex.Gene)
	}
}

// describeLookupError 把查询错误转为命令行可读的信息
func describeLookupError(err error) error {
	var le *lookup.LookupError
	if !errors.As(err, &le) {
		return err
	}
	switch le.Kind {
	case lookup.KindValidation:
		return fmt.Errorf("invalid rsID or user: %w", err)
	case lookup.KindRejected:
		if le.Quota != nil {
			return fmt.Errorf("hourly limit of %d lookups reached, resets at %s",
				le.Quota.Limit, time.Unix(le.Quota.ResetAt, 0).Format(time.RFC3339))
		}
		return err
	case lookup.KindNotFound:
		return fmt.Errorf("%s was not found in dbSNP", le.RSID)
	default:
		return fmt.Errorf("lookup failed (%s): %w", le.Kind, err)
	}
}
