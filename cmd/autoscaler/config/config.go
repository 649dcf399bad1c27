// Package config implements the replicactl autoscaler config.
package config

import (
	"flag"
	"fmt"
	"os"
	"time"
)

// Config holds all autoscaler configuration.
type Config struct {
	Listen              string
	Target              string
	Namespace           string
	MinReplicas         int
	MaxReplicas         int
	TargetValue         float64
	Interval            time.Duration
	StabilizationWindow time.Duration
	Source              string
	PromURL             string
	PromQuery           string
	Smoothing           float64
	Kubeconfig          string
	CallTimeout         time.Duration
	Store               string
	JournalKeep         int
	RedisAddr           string
	RedisPassword       string
	RedisDB             int
	RedisTTL            time.Duration
	LogFormat           string
	LogLevel            string
}

// ParseFlags parses command-line flags and environment variables into a Config.
// Exits with status 1 if required flags (target, target-value, and prom-query
// for the prometheus source) are missing. Environment variables are used as
// fallbacks when flags are not provided.
func ParseFlags() *Config {
	cfg := &Config{}

	// Server
	flag.StringVar(&cfg.Listen, "listen", getEnv("LISTEN", ":8080"), "HTTP listen address")

	// Target workload
	flag.StringVar(&cfg.Target, "target", getEnv("TARGET", ""), "Target Deployment name (required)")
	flag.StringVar(&cfg.Namespace, "namespace", getEnv("NAMESPACE", "default"), "Target namespace")

	// Scaling policy
	flag.IntVar(&cfg.MinReplicas, "min", getEnvInt("MIN_REPLICAS", 1), "Minimum replicas")
	flag.IntVar(&cfg.MaxReplicas, "max", getEnvInt("MAX_REPLICAS", 10), "Maximum replicas")
	flag.Float64Var(&cfg.TargetValue, "target-value", getEnvFloat("TARGET_VALUE", 0), "Target metric value per replica (required)")
	flag.DurationVar(&cfg.StabilizationWindow, "stabilization-window", getEnvDuration("STABILIZATION_WINDOW", 5*time.Minute), "Scale-down stabilization window (0 disables)")

	// Metric source
	flag.StringVar(&cfg.Source, "source", getEnv("SOURCE", "prometheus"), "Metric source: prometheus or resource")
	flag.StringVar(&cfg.PromURL, "prom-url", getEnv("PROM_URL", "http://localhost:9090"), "Prometheus URL")
	flag.StringVar(&cfg.PromQuery, "prom-query", getEnv("PROM_QUERY", ""), "Prometheus query (required for prometheus source)")
	flag.Float64Var(&cfg.Smoothing, "smoothing", getEnvFloat("SMOOTHING", 0), "EMA smoothing factor in (0,1], 0 disables")

	// Kubernetes
	flag.StringVar(&cfg.Kubeconfig, "kubeconfig", getEnv("KUBECONFIG", ""), "Path to kubeconfig (defaults to in-cluster config)")

	// Timing
	flag.DurationVar(&cfg.Interval, "interval", getEnvDuration("INTERVAL", 15*time.Second), "Reconcile interval")
	flag.DurationVar(&cfg.CallTimeout, "call-timeout", getEnvDuration("CALL_TIMEOUT", 10*time.Second), "Timeout for individual metric and backend calls")

	// Decision journal
	flag.StringVar(&cfg.Store, "store", getEnv("STORE", "memory"), "Journal store: memory or redis")
	flag.IntVar(&cfg.JournalKeep, "journal-keep", getEnvInt("JOURNAL_KEEP", 256), "Decisions kept per target")
	flag.StringVar(&cfg.RedisAddr, "redis-addr", getEnv("REDIS_ADDR", "localhost:6379"), "Redis address")
	flag.StringVar(&cfg.RedisPassword, "redis-password", getEnv("REDIS_PASSWORD", ""), "Redis password")
	flag.IntVar(&cfg.RedisDB, "redis-db", getEnvInt("REDIS_DB", 0), "Redis database number")
	flag.DurationVar(&cfg.RedisTTL, "redis-ttl", getEnvDuration("REDIS_TTL", 24*time.Hour), "TTL for redis journal keys (0 disables)")

	// Logging
	flag.StringVar(&cfg.LogFormat, "log-format", getEnv("LOG_FORMAT", "text"), "Log format: text or json")
	flag.StringVar(&cfg.LogLevel, "log-level", getEnv("LOG_LEVEL", "info"), "Log level: debug, info, warn, error")

	flag.Parse()

	if cfg.Target == "" {
		fmt.Fprintln(os.Stderr, "Error: --target is required")
		os.Exit(1)
	}
	if cfg.TargetValue == 0 {
		fmt.Fprintln(os.Stderr, "Error: --target-value is required")
		os.Exit(1)
	}
	if cfg.Source == "prometheus" && cfg.PromQuery == "" {
		fmt.Fprintln(os.Stderr, "Error: --prom-query is required when --source=prometheus")
		os.Exit(1)
	}

	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var i int
		if _, err := fmt.Sscanf(value, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		var f float64
		if _, err := fmt.Sscanf(value, "%f", &f); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
