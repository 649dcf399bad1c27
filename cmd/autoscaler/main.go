// Package main implements the replicactl autoscaler service.
// The autoscaler samples a scaling metric, computes desired replicas for the
// target workload, applies them through the Kubernetes scale subresource,
// and serves status and decision history via HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	_ "github.com/KimMachineGun/automemlimit"
	_ "go.uber.org/automaxprocs"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	metricsclientset "k8s.io/metrics/pkg/client/clientset/versioned"

	"github.com/DRAJ6/replicactl/cmd/autoscaler/config"
	"github.com/DRAJ6/replicactl/cmd/autoscaler/logger"
	"github.com/DRAJ6/replicactl/cmd/autoscaler/metrics"
	"github.com/DRAJ6/replicactl/cmd/autoscaler/router"
	"github.com/DRAJ6/replicactl/cmd/autoscaler/store"
	"github.com/DRAJ6/replicactl/pkg/autoscaler"
	"github.com/DRAJ6/replicactl/pkg/backend"
	"github.com/DRAJ6/replicactl/pkg/httpx"
	"github.com/DRAJ6/replicactl/pkg/scaling"
	"github.com/DRAJ6/replicactl/pkg/source"
)

func main() {
	cfg := config.ParseFlags()

	logger := logger.New(cfg)
	slog.SetDefault(logger)

	logger.Info("starting replicactl autoscaler",
		"version", "v0.1.0",
		"target", cfg.Target,
		"namespace", cfg.Namespace,
		"source", cfg.Source,
	)

	policy, err := scaling.NewPolicy(cfg.TargetValue, int32(cfg.MinReplicas), int32(cfg.MaxReplicas))
	if err != nil {
		logger.Error("invalid scaling policy", "error", err)
		os.Exit(1)
	}

	var window *scaling.Window
	if cfg.StabilizationWindow > 0 {
		window, err = scaling.NewWindow(cfg.StabilizationWindow, time.Second)
		if err != nil {
			logger.Error("invalid stabilization window", "error", err)
			os.Exit(1)
		}
	}

	restConfig, err := buildKubeConfig(cfg.Kubeconfig)
	if err != nil {
		logger.Error("failed to build kubernetes config", "error", err)
		os.Exit(1)
	}
	kubeClient, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		logger.Error("failed to create kubernetes client", "error", err)
		os.Exit(1)
	}

	src, err := buildSource(cfg, restConfig, kubeClient)
	if err != nil {
		logger.Error("failed to create metric source", "error", err)
		os.Exit(1)
	}

	jnl := store.New(cfg, logger)
	defer func() {
		if closer, ok := jnl.(interface{ Close() error }); ok {
			closer.Close()
		}
	}()

	scaler, err := autoscaler.New(autoscaler.Config{
		Target:      scaling.Target{Name: cfg.Target, Namespace: cfg.Namespace},
		Policy:      policy,
		Source:      src,
		Backend:     backend.NewKubernetesBackend(kubeClient),
		Window:      window,
		Journal:     jnl,
		Recorder:    metrics.New(),
		CallTimeout: cfg.CallTimeout,
		Logger:      logger,
	})
	if err != nil {
		logger.Error("failed to create autoscaler", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mgr := autoscaler.NewManager(cfg.Interval, logger)
	if err := mgr.Add(ctx, scaler); err != nil {
		logger.Error("failed to register target", "error", err)
		os.Exit(1)
	}

	handler := router.SetupRoutes(mgr, jnl, logger)
	httpServer := httpx.NewServer(cfg.Listen, handler, logger)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- httpServer.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig)
	case err := <-serverErr:
		if err != nil {
			logger.Error("server failed", "error", err)
		}
	}

	logger.Info("shutting down")
	mgr.Stop()
	cancel()

	if err := httpServer.Stop(10 * time.Second); err != nil {
		logger.Error("server shutdown failed", "error", err)
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}

// buildSource creates the configured metric source, wrapped in EMA smoothing
// when enabled.
func buildSource(cfg *config.Config, restConfig *rest.Config, kubeClient kubernetes.Interface) (source.Source, error) {
	var src source.Source

	switch cfg.Source {
	case "prometheus":
		promSource, err := source.NewPrometheusSource(cfg.PromURL, cfg.PromQuery)
		if err != nil {
			return nil, err
		}
		src = promSource

	case "resource":
		metricsClient, err := metricsclientset.NewForConfig(restConfig)
		if err != nil {
			return nil, err
		}
		src = source.NewResourceSource(kubeClient, metricsClient)

	default:
		return nil, fmt.Errorf("unknown metric source %q", cfg.Source)
	}

	if cfg.Smoothing > 0 {
		return source.NewSmoothed(src, cfg.Smoothing)
	}
	return src, nil
}

// buildKubeConfig resolves the kubernetes client config in order: the
// explicit kubeconfig path (flag or KUBECONFIG), the in-cluster config,
// then ~/.kube/config.
func buildKubeConfig(kubeconfig string) (*rest.Config, error) {
	if kubeconfig != "" {
		return clientcmd.BuildConfigFromFlags("", kubeconfig)
	}
	if c, err := rest.InClusterConfig(); err == nil {
		return c, nil
	}
	if home, err := os.UserHomeDir(); err == nil {
		if c, err := clientcmd.BuildConfigFromFlags("", filepath.Join(home, ".kube", "config")); err == nil {
			return c, nil
		}
	}
	return nil, errors.New("no valid kubeconfig found")
}
