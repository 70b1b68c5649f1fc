// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/kadirpekel/throttlefs/admin"
	"github.com/kadirpekel/throttlefs/audit"
	"github.com/kadirpekel/throttlefs/config"
	"github.com/kadirpekel/throttlefs/hostfs"
	"github.com/kadirpekel/throttlefs/internal/logging"
	"github.com/kadirpekel/throttlefs/observability"
	"github.com/kadirpekel/throttlefs/plugins"
	"github.com/kadirpekel/throttlefs/registry"
)

const shutdownGrace = 5 * time.Second

// ServeCmd boots the admin HTTP and gRPC surfaces against a fresh
// in-process Registry and Host, for running throttlefs standalone instead
// of embedded in a host process.
type ServeCmd struct {
	HTTPAddr string   `help:"Admin HTTP listen address." default:":8080"`
	GRPCAddr string   `help:"Admin gRPC listen address." default:":8081"`
	Policy   string   `help:"Path to a YAML policy file to load at startup." type:"path"`
	Watch    bool     `help:"Re-apply the policy file on every write."`
	Plugin   []string `help:"Register a plugin-backed backend as name=path. Repeatable." placeholder:"NAME=PATH"`

	AuthSecret string `help:"Shared HS256 secret gating mutating admin calls. Empty disables auth." env:"THROTTLEFSCTL_AUTH_SECRET"`
	AuthIssuer string `help:"Expected JWT issuer when auth is enabled." default:"throttlefsctl"`

	Metrics       bool   `help:"Expose Prometheus metrics at /metrics on the admin HTTP server."`
	TraceExporter string `help:"Trace exporter: none, stdout, or otlp." default:"none"`
	OTLPEndpoint  string `help:"OTLP collector endpoint, when --trace-exporter=otlp." default:"localhost:4317"`

	AuditCapacity int `help:"Number of recent rejection records the in-memory audit ring buffer retains." default:"1024"`
}

func (c *ServeCmd) Run(cli *CLI) error {
	logger := logging.Get()
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	reg := registry.New()

	if c.Policy != "" {
		policy, err := config.Load(c.Policy)
		if err != nil {
			return err
		}
		if err := policy.Validate(); err != nil {
			return fmt.Errorf("throttlefsctl: invalid policy: %w", err)
		}
		if err := policy.Apply(reg); err != nil {
			return fmt.Errorf("throttlefsctl: applying policy: %w", err)
		}
		logger.Info("loaded policy", "path", c.Policy, "quotas", len(policy.Quotas))

		if c.Watch {
			watcher, err := config.Watch(c.Policy, reg, logger)
			if err != nil {
				return fmt.Errorf("throttlefsctl: watching policy: %w", err)
			}
			defer watcher.Close()
		}
	}

	boot, err := observability.NewBootstrap(ctx, observability.Config{
		EnableMetrics: c.Metrics,
		TraceExporter: observability.TraceExporterKind(c.TraceExporter),
		OTLPEndpoint:  c.OTLPEndpoint,
	})
	if err != nil {
		return fmt.Errorf("throttlefsctl: observability: %w", err)
	}
	defer boot.Shutdown(context.Background())

	host := hostfs.New(reg)
	host.SetObservability(boot.Manager)
	host.SetAudit(audit.NewMemoryStore(c.AuditCapacity))
	defer host.Shutdown()

	if len(c.Plugin) > 0 {
		loader := plugins.NewLoader(hclog.LevelFromString(cli.LogLevel))
		host.SetLoader(loader)
		for _, spec := range c.Plugin {
			name, path, ok := splitNameValue(spec)
			if !ok {
				return fmt.Errorf("throttlefsctl: invalid --plugin %q, want name=path", spec)
			}
			host.RegisterPlugin(name, path)
			logger.Info("registered plugin backend", "name", name, "path", path)
		}
	}

	auth := admin.AdminAuth{
		Enabled: c.AuthSecret != "",
		Secret:  []byte(c.AuthSecret),
		Issuer:  c.AuthIssuer,
	}

	httpServer := admin.NewServer(reg, host, logger, auth)
	mux := http.NewServeMux()
	mux.Handle("/", httpServer.Handler())
	if boot.PrometheusHandler != nil {
		mux.Handle("/metrics", promhttp.Handler())
	}
	httpSrv := &http.Server{Addr: c.HTTPAddr, Handler: mux}

	grpcSrv := admin.NewGRPCServer(reg, host, logger, auth)

	group, gctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.Info("admin http listening", "addr", c.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	group.Go(func() error {
		lis, err := net.Listen("tcp", c.GRPCAddr)
		if err != nil {
			return err
		}
		logger.Info("admin grpc listening", "addr", c.GRPCAddr)
		if err := grpcSrv.Serve(lis); err != nil {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
		grpcSrv.GracefulStop()
		return nil
	})

	return group.Wait()
}

func splitNameValue(s string) (name, value string, ok bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == '=' {
			return s[:i], s[i+1:], true
		}
	}
	return "", "", false
}
