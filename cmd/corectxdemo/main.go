// Command corectxdemo wires a small corectx tree end to end: a root
// Context carrying a worker pool Runnable and a greeter member, a child
// Context under a demo sigil, and a Prometheus endpoint exposing
// corectx's own metrics. Grounded on jfk9w-hikkabot/cmd/hikkabot/main.go's
// config-struct-plus-Uses() composition shape and
// 2lar-b2/backend2/infrastructure/di/providers.go's environment-switched
// zap construction, scaled down to what one runtime actually needs to
// demonstrate its pieces.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/centraunit/corectx"
	"github.com/centraunit/corectx/workers"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Config is the demo's top-level configuration, loaded from a YAML file
// and validated with go-playground/validator tags.
type Config struct {
	Environment string `yaml:"environment" validate:"oneof=development production"`

	Server struct {
		MetricsAddr string `yaml:"metrics_addr" validate:"required"`
	} `yaml:"server"`

	Workers struct {
		PoolSize   int `yaml:"pool_size" validate:"min=1"`
		QueueDepth int `yaml:"queue_depth" validate:"min=1"`
	} `yaml:"workers"`

	Greeting string `yaml:"greeting" validate:"required"`
}

func defaultConfig() Config {
	var c Config
	c.Environment = "development"
	c.Server.MetricsAddr = ":9090"
	c.Workers.PoolSize = 4
	c.Workers.QueueDepth = 64
	c.Greeting = "hello from corectx"
	return c
}

func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, nil
			}
			return cfg, fmt.Errorf("open config: %w", err)
		}
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
			return cfg, fmt.Errorf("decode config: %w", err)
		}
	}
	if err := validator.New().Struct(cfg); err != nil {
		return cfg, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func newLogger(environment string) (*zap.Logger, error) {
	if environment == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// greeter is a small ContextMember demonstrating a plain member with no
// event or filter capabilities.
type greeter struct {
	message string
}

func (g *greeter) NotifyContextTeardown() {}

// demoSigil tags the child Context created for the request-scope demo.
type demoSigil struct{}

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (optional)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "corectxdemo:", err)
		os.Exit(1)
	}

	log, err := newLogger(cfg.Environment)
	if err != nil {
		fmt.Fprintln(os.Stderr, "corectxdemo:", err)
		os.Exit(1)
	}
	defer log.Sync()

	root := corectx.GlobalContext()
	root.SetLogger(log)

	pool := workers.New(cfg.Workers.PoolSize, cfg.Workers.QueueDepth, log)
	if err := corectx.Add(root, pool); err != nil {
		log.Fatal("add pool", zap.Error(err))
	}
	if err := corectx.Add(root, &greeter{message: cfg.Greeting}); err != nil {
		log.Fatal("add greeter", zap.Error(err))
	}

	if err := root.Initiate(); err != nil {
		log.Fatal("initiate root", zap.Error(err))
	}

	child := corectx.Create[demoSigil](root)
	if err := child.Initiate(); err != nil {
		log.Fatal("initiate child", zap.Error(err))
	}
	if g, ok := corectx.FindByType[*greeter](child); ok {
		log.Info("resolved greeter from child", zap.String("message", g.message))
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(corectx.MetricsRegistry(), promhttp.HandlerOpts{}))
	server := &http.Server{Addr: cfg.Server.MetricsAddr, Handler: mux}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)

	_ = child.SignalShutdown(true, corectx.Graceful)
	_ = root.SignalShutdown(true, corectx.Graceful)
}
