package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aid2e/pipeline-core/internal/trial"
	"github.com/aid2e/pipeline-core/internal/triald"
	"github.com/aid2e/pipeline-core/pkg/config"
	"github.com/aid2e/pipeline-core/pkg/logger"
)

func main() {
	var httpAddr string
	var runConfigPath string
	var paramConfigPath string
	var objConfigPath string
	var logLevel string

	flag.StringVar(&httpAddr, "http-addr", ":8080", "HTTP listen address")
	flag.StringVar(&runConfigPath, "run-config", "run_config.yaml", "run/environment configuration file")
	flag.StringVar(&paramConfigPath, "param-config", "param_config.yaml", "design parameter configuration file")
	flag.StringVar(&objConfigPath, "objectives-config", "objectives.yaml", "objectives configuration file")
	flag.StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error); overrides run config")
	flag.Parse()

	runCfg, err := config.LoadRunConfig(runConfigPath)
	if err != nil {
		logger.Error("failed to load run config", "file", runConfigPath, "error", err)
		os.Exit(1)
	}
	paramCfg, err := config.LoadParamConfig(paramConfigPath)
	if err != nil {
		logger.Error("failed to load parameter config", "file", paramConfigPath, "error", err)
		os.Exit(1)
	}
	objCfg, err := config.LoadObjectivesConfig(objConfigPath)
	if err != nil {
		logger.Error("failed to load objectives config", "file", objConfigPath, "error", err)
		os.Exit(1)
	}

	if logLevel == "" {
		logLevel = runCfg.LogLevel
	}
	logger.SetDefault(logger.NewText(logLevel, os.Stdout))

	manager, err := trial.NewManager(runCfg, paramCfg, objCfg, nil)
	if err != nil {
		logger.Error("failed to wire trial manager", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	store := triald.NewTrialStore()
	executor := triald.NewTrialExecutor(store, manager)

	httpSrv := &http.Server{
		Addr:              httpAddr,
		Handler:           triald.NewHTTPServer(store, executor).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		logger.Info("HTTP server listening", "addr", httpAddr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown requested")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", "error", err)
	}
	executor.Wait()
}
