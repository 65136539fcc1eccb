// Package main provides the cpustat command, which reports CPU utilization
// and the related kernel counters of this or a remote Linux host.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"expvar"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"

	"github.com/opd-ai/go-cpustat/internal/config"
	"github.com/opd-ai/go-cpustat/internal/profiling"
	"github.com/opd-ai/go-cpustat/pkg/cpustat"
)

// Version is the current version of cpustat.
// This default value can be overridden at build time using:
//
//	go build -ldflags "-X main.Version=x.y.z"
var Version = "0.1.0-dev"

// settingFlags maps command line flags onto configuration setting keys.
var settingFlags = map[string]string{
	"duration":         "duration",
	"interval":         "interval",
	"count":            "count",
	"source":           "source",
	"proc-root":        "proc_root",
	"remote":           "remote",
	"identity":         "remote_identity",
	"agent":            "remote_agent",
	"known-hosts":      "remote_known_hosts",
	"insecure":         "remote_insecure",
	"remote-proc-root": "remote_proc_root",
	"output":           "output",
	"log-level":        "log_level",
	"log-format":       "log_format",
	"metrics-addr":     "metrics_address",
}

type cliOptions struct {
	configPath  string
	printConfig string
	watch       bool
	version     bool
	cpuProfile  string
	memProfile  string
}

func newFlagSet(opts *cliOptions) *pflag.FlagSet {
	fs := pflag.NewFlagSet("cpustat", pflag.ContinueOnError)
	fs.StringVarP(&opts.configPath, "config", "c", "", "path to a configuration file (Lua, YAML or key/value)")
	fs.BoolVar(&opts.watch, "watch", false, "report repeatedly until interrupted, reloading the config file on change")
	fs.StringVar(&opts.printConfig, "print-config", "", "print the effective configuration as lua, legacy or yaml and exit")
	fs.BoolVarP(&opts.version, "version", "v", false, "print version and exit")
	fs.StringVar(&opts.cpuProfile, "cpuprofile", "", "write a CPU profile to this file")
	fs.StringVar(&opts.memProfile, "memprofile", "", "write a heap profile to this file on exit")

	fs.StringP("duration", "d", "", "sampling window, in seconds or as a Go duration (default 1s)")
	fs.String("interval", "", "pause between windows in watch mode")
	fs.String("count", "", "stop watch mode after this many windows")
	fs.String("source", "", "counter backend: auto, local, remote or portable")
	fs.String("proc-root", "", "proc mount point for the local source")
	fs.String("remote", "", "read a remote host over SSH, as [user@]host[:port]")
	fs.String("identity", "", "SSH private key for the remote source")
	fs.Bool("agent", false, "authenticate to the remote host with ssh-agent")
	fs.String("known-hosts", "", "known_hosts file for the remote source")
	fs.Bool("insecure", false, "skip remote host key verification")
	fs.String("remote-proc-root", "", "proc mount point on the remote host")
	fs.StringP("output", "o", "", "report format: text or json")
	fs.String("log-level", "", "log level: debug, info, warn or error")
	fs.String("log-format", "", "log format: text or json")
	fs.String("metrics-addr", "", "serve /metrics, /debug/vars and /healthz on this address")
	return fs
}

// overrides returns a function applying every setting flag given on the
// command line.
func overrides(fs *pflag.FlagSet) func(*config.Config) error {
	return func(cfg *config.Config) error {
		var errs []error
		fs.Visit(func(f *pflag.Flag) {
			key, ok := settingFlags[f.Name]
			if !ok {
				return
			}
			if err := config.Set(cfg, key, f.Value.String()); err != nil {
				errs = append(errs, fmt.Errorf("--%s: %w", f.Name, err))
			}
		})
		return errors.Join(errs...)
	}
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	var opts cliOptions
	fs := newFlagSet(&opts)
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(stderr, "unexpected argument: %s\n", fs.Arg(0))
		return 2
	}

	if opts.version {
		fmt.Fprintf(stdout, "cpustat version %s\n", Version)
		return 0
	}

	configure := overrides(fs)
	if opts.printConfig != "" {
		return runPrintConfig(opts, configure, stdout, stderr)
	}

	prof := profiling.Config{CPUProfilePath: opts.cpuProfile, MemProfilePath: opts.memProfile}
	if prof.Enabled() {
		session, err := profiling.Start(prof)
		if err != nil {
			fmt.Fprintf(stderr, "Failed to start profiling: %v\n", err)
			return 1
		}
		defer func() {
			if err := session.Stop(); err != nil {
				fmt.Fprintf(stderr, "Warning: failed to stop profiling: %v\n", err)
			}
		}()
	}

	metrics := cpustat.NewMetrics()
	client, err := newClient(opts, configure, metrics)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if opts.configPath != "" {
		go reloadOnHangup(ctx, client, stderr)
	}

	cfg := client.Config()
	if cfg.Metrics.Address != "" {
		shutdown, err := serveMetrics(cfg.Metrics.Address, client, metrics, stderr)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		defer shutdown()
	}

	if opts.watch {
		err := client.Watch(ctx, func(r *cpustat.Report, err error) error {
			if err != nil {
				fmt.Fprintf(stderr, "Warning: %v\n", err)
				return nil
			}
			return writeReport(stdout, r, client.Config().Output.Format)
		})
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	r, err := client.Report(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return 130
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if err := writeReport(stdout, r, cfg.Output.Format); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	// With a metrics endpoint the process keeps serving scrapes.
	if cfg.Metrics.Address != "" {
		<-ctx.Done()
	}
	return 0
}

func newClient(opts cliOptions, configure func(*config.Config) error, metrics *cpustat.Metrics) (*cpustat.Client, error) {
	clientOpts := &cpustat.Options{
		Metrics:     metrics,
		Configure:   configure,
		WatchConfig: opts.watch,
	}
	if opts.configPath != "" {
		return cpustat.NewFromFile(opts.configPath, clientOpts)
	}

	cfg := config.DefaultConfig()
	if err := configure(&cfg); err != nil {
		return nil, err
	}
	return cpustat.New(&cfg, clientOpts)
}

// runPrintConfig prints the configuration that a run with the same flags
// would use.
func runPrintConfig(opts cliOptions, configure func(*config.Config) error, stdout, stderr io.Writer) int {
	var cfg *config.Config
	if opts.configPath != "" {
		loaded, err := config.LoadFile(opts.configPath, configure)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		cfg = loaded
	} else {
		defaults := config.DefaultConfig()
		if err := configure(&defaults); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		cfg = &defaults
	}

	out, err := config.NewMigrator().Marshal(cfg, config.Format(opts.printConfig))
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	stdout.Write(out)
	return 0
}

func writeReport(w io.Writer, r *cpustat.Report, format config.OutputFormat) error {
	if format == config.OutputJSON {
		return r.WriteJSON(w)
	}
	if err := r.WriteText(w); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w)
	return err
}

// reloadOnHangup reloads the configuration file on SIGHUP.
func reloadOnHangup(ctx context.Context, client *cpustat.Client, stderr io.Writer) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	for {
		select {
		case <-ctx.Done():
			return
		case <-sigCh:
			if err := client.ReloadConfig(); err != nil {
				fmt.Fprintf(stderr, "Reload failed: %v\n", err)
			}
		}
	}
}

// metricsHandler serves the Prometheus registry at /metrics, the expvar
// counters at /debug/vars and the client health at /healthz.
func metricsHandler(client *cpustat.Client, metrics *cpustat.Metrics) (http.Handler, error) {
	reg := prometheus.NewRegistry()
	if err := reg.Register(client.Collector()); err != nil {
		return nil, fmt.Errorf("registering collector: %w", err)
	}
	if err := reg.Register(collectors.NewGoCollector()); err != nil {
		return nil, fmt.Errorf("registering go collector: %w", err)
	}
	metrics.RegisterExpvar()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.Handle("/debug/vars", expvar.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		h := client.Health()
		w.Header().Set("Content-Type", "application/json")
		if h.IsUnhealthy() {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(h)
	})
	return mux, nil
}

func serveMetrics(addr string, client *cpustat.Client, metrics *cpustat.Metrics, stderr io.Writer) (func(), error) {
	handler, err := metricsHandler(client, metrics)
	if err != nil {
		return nil, err
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(stderr, "Metrics server: %v\n", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}, nil
}
