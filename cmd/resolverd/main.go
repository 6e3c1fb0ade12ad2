// resolverd serves the domain resolver over HTTP and offers one-shot lookups.
//
// Subcommands
//
//	serve               – run the HTTP API (GET /domain/{name}, /healthz, /metrics)
//	lookup <domain>     – resolve one domain and print the record
//	candidates <tld>    – print the RDAP servers that would be raced for a TLD
//
// Configuration comes from the environment (and .env); see internal/config.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	resolver "github.com/datum-labs/rdap-resolver"
	"github.com/datum-labs/rdap-resolver/internal/config"
	"github.com/datum-labs/rdap-resolver/internal/httpapi"
	"github.com/datum-labs/rdap-resolver/internal/logging"
)

var (
	flagJSON    = true
	flagEnvFile string
)

func main() {
	root := &cobra.Command{
		Use:          "resolverd",
		Short:        "Domain registration resolver (RDAP, WHOIS gateway, WHOIS extraction)",
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVar(&flagJSON, "json", true, "emit JSON; set --json=false for text output")
	root.PersistentFlags().StringVar(&flagEnvFile, "env-file", "", "load environment from this file instead of .env")

	root.AddCommand(cmdServe(), cmdLookup(), cmdCandidates())

	if err := root.Execute(); err != nil {
		log.Fatal(err)
	}
}

type app struct {
	cfg      config.Config
	log      *zap.Logger
	registry *prometheus.Registry
	res      *resolver.Resolver
}

// newApp loads configuration and wires the resolver.
func newApp() (*app, error) {
	var files []string
	if flagEnvFile != "" {
		files = append(files, flagEnvFile)
	}
	cfg, err := config.Load(files...)
	if err != nil && !errors.Is(err, config.ErrNoFallback) {
		return nil, err
	}
	logger, lerr := logging.New(cfg.LogLevel, cfg.Env)
	if lerr != nil {
		return nil, lerr
	}
	if err != nil {
		logger.Warn(err.Error())
	}

	opts := []resolver.Option{
		resolver.WithUserAgent(cfg.UserAgent),
		resolver.WithBootstrapURL(cfg.BootstrapURL),
		resolver.WithTimeout(cfg.RequestTimeout),
		resolver.WithStagger(cfg.Stagger),
		resolver.WithMaxCandidates(cfg.MaxCandidates),
		resolver.WithGateway(cfg.GatewayURL, cfg.GatewayKey),
		resolver.WithExtraction(cfg.RawWhoisURL, cfg.ExtractURL, cfg.ExtractKey),
		resolver.WithFallbackRateLimit(cfg.FallbackRPS, cfg.FallbackBurst),
		resolver.WithLogger(logger),
	}
	if cfg.PolicyFile != "" {
		f, err := os.Open(cfg.PolicyFile)
		if err != nil {
			return nil, fmt.Errorf("policy file: %w", err)
		}
		p, err := resolver.LoadPolicy(f)
		f.Close()
		if err != nil {
			return nil, err
		}
		opts = append(opts, resolver.WithPolicy(p))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	opts = append(opts, resolver.WithMetrics(resolver.NewMetrics(reg)))

	return &app{cfg: cfg, log: logger, registry: reg, res: resolver.New(opts...)}, nil
}

func cmdServe() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.log.Sync()

			srv := httpapi.New(a.res, a.log.Named("http"), promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}), a.cfg.RequestTimeout+15*time.Second)
			r := chi.NewRouter()
			r.Mount("/", srv.Routes())
			hs := &http.Server{Addr: a.cfg.ListenAddr, Handler: r, ReadHeaderTimeout: 10 * time.Second}

			errCh := make(chan error, 1)
			go func() { errCh <- hs.ListenAndServe() }()
			a.log.Info("listening", zap.String("addr", a.cfg.ListenAddr))

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			select {
			case sig := <-sigCh:
				a.log.Info("shutting down", zap.String("signal", sig.String()))
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return hs.Shutdown(ctx)
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return fmt.Errorf("server error: %w", err)
			}
		},
	}
}

func cmdLookup() *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <domain>",
		Short: "Resolve one domain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.log.Sync()

			rec, err := a.res.Resolve(cmd.Context(), args[0])
			var rerr *resolver.ResolveError
			if errors.As(err, &rerr) {
				if flagJSON {
					_ = printJSON(rerr.Record())
				}
				for _, f := range rerr.Failures {
					fmt.Fprintf(os.Stderr, "  %s: %v\n", f.Source, f.Err)
				}
				return err
			}
			if err != nil {
				return err
			}
			if flagJSON {
				return printJSON(rec)
			}
			printRecord(rec)
			return nil
		},
	}
}

func cmdCandidates() *cobra.Command {
	return &cobra.Command{
		Use:   "candidates <tld>",
		Short: "Print the RDAP servers raced for a TLD",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.log.Sync()

			eps := a.res.Candidates(cmd.Context(), args[0])
			if flagJSON {
				return printJSON(map[string]any{"tld": strings.TrimPrefix(args[0], "."), "servers": eps})
			}
			for _, ep := range eps {
				fmt.Println(ep)
			}
			return nil
		},
	}
}

func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}

func printRecord(r *resolver.Record) {
	fmt.Printf("\n=== %s (%s via %s, %dms) ===\n", r.Domain, r.Availability, r.Source, r.QueryTimeMs)
	if r.Registrar != nil {
		fmt.Printf("registrar: %s", r.Registrar.Name)
		if r.Registrar.IANAID != "" {
			fmt.Printf(" (IANA %s)", r.Registrar.IANAID)
		}
		fmt.Println()
	}
	if d := r.Dates; d != nil {
		fmt.Printf("created: %s  updated: %s  expires: %s\n", d.Created, d.Updated, d.Expires)
	}
	if len(r.Status) > 0 {
		fmt.Printf("status: %v\n", r.Status)
	}
	if len(r.NameServers) > 0 {
		fmt.Println("nameservers:")
		for _, ns := range r.NameServers {
			fmt.Printf("  - %s\n", ns)
		}
	}
	fmt.Printf("dnssec: %s\n", r.DNSSEC)
}
