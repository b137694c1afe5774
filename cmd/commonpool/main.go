// Command commonpool runs common-pool exchange simulations and serves their
// records.
//
//	commonpool run   [-config cfg.yaml] [-id ID] [-seed N]
//	commonpool serve [-config cfg.yaml] [-addr :5000]
//	commonpool runs  [-config cfg.yaml] [-s3] [-rebuild]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/commonpool/artifact"
	"github.com/hupe1980/commonpool/config"
	"github.com/hupe1980/commonpool/core"
	"github.com/hupe1980/commonpool/exchange"
	"github.com/hupe1980/commonpool/runner"
	"github.com/hupe1980/commonpool/viewer"
)

var exitFunc = os.Exit

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	exitFunc(code)
}

func cli(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return 2
	}
	switch args[0] {
	case "run":
		return cmdRun(ctx, args[1:], stdout, stderr)
	case "serve":
		return cmdServe(ctx, args[1:], stderr)
	case "runs":
		return cmdRuns(ctx, args[1:], stdout, stderr)
	case "-h", "-help", "--help", "help":
		usage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", args[0])
		usage(stderr)
		return 2
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: commonpool <run|serve|runs> [flags]")
}

// loadConfig returns Default when path is empty.
func loadConfig(path string) (config.Config, error) {
	if path == "" {
		cfg := config.Default()
		return cfg, cfg.Validate()
	}
	return config.Load(path)
}

func cmdRun(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cfgPath := fs.String("config", "", "path to YAML configuration")
	id := fs.String("id", "", "simulation id (overrides config)")
	seed := fs.Int64("seed", 0, "random seed (overrides config; 0 keeps config)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return 1
	}
	if *id != "" {
		cfg.Simulation.ID = *id
	}
	if *seed != 0 {
		cfg.Simulation.Seed = *seed
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return 1
	}

	logger := newLogger(cfg.Logging, stderr)

	m, err := newModel(ctx, cfg.Model)
	if err != nil {
		fmt.Fprintf(stderr, "model: %v\n", err)
		return 1
	}
	store, closeStore, err := newStore(ctx, cfg.Output, logger)
	if err != nil {
		fmt.Fprintf(stderr, "output: %v\n", err)
		return 1
	}
	defer closeStore()

	reg := prometheus.NewRegistry()
	metrics := exchange.NewMetrics(reg)
	if cfg.Metrics.Addr != "" {
		stopMetrics := serveMetrics(cfg.Metrics.Addr, reg, logger)
		defer stopMetrics()
	}

	r := runner.New(newCapability(m, cfg.Capability, logger), func(o *runner.Options) {
		o.Simulation = cfg.Simulation
		o.Store = store
		o.Logger = logger
		o.Metrics = metrics
	})

	report, err := r.Run(ctx)
	if report != nil {
		if werr := report.WriteSummary(stdout); werr != nil {
			return 1
		}
	}
	if err != nil {
		if errors.Is(err, core.ErrPersistence) {
			fmt.Fprintf(stderr, "failed to save simulation record: %v\n", err)
		} else {
			fmt.Fprintf(stderr, "simulation failed: %v\n", err)
		}
		return 1
	}
	return 0
}

func cmdServe(ctx context.Context, args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cfgPath := fs.String("config", "", "path to YAML configuration")
	addr := fs.String("addr", "", "listen address (overrides config)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return 1
	}
	if *addr != "" {
		cfg.Viewer.Addr = *addr
	}
	logger := newLogger(cfg.Logging, stderr)

	reader, _, closeReader, err := newReader(cfg.Output, logger)
	if err != nil {
		fmt.Fprintf(stderr, "output: %v\n", err)
		return 1
	}
	defer closeReader()

	srv, err := viewer.New(reader, func(o *viewer.Options) {
		o.Logger = logger
		o.Registry = prometheus.NewRegistry()
	})
	if err != nil {
		fmt.Fprintf(stderr, "viewer: %v\n", err)
		return 1
	}
	if err := srv.ListenAndServe(ctx, cfg.Viewer.Addr); err != nil {
		fmt.Fprintf(stderr, "viewer: %v\n", err)
		return 1
	}
	return 0
}

func cmdRuns(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cfgPath := fs.String("config", "", "path to YAML configuration")
	fromS3 := fs.Bool("s3", false, "list the S3 mirror instead of the output directory")
	rebuild := fs.Bool("rebuild", false, "rebuild the index from the output directory before listing")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return 1
	}
	logger := newLogger(cfg.Logging, stderr)

	reader, db, closeReader, err := newReader(cfg.Output, logger)
	if err != nil {
		fmt.Fprintf(stderr, "output: %v\n", err)
		return 1
	}
	defer closeReader()

	if *rebuild {
		if db == nil {
			fmt.Fprintln(stderr, "rebuild: output.index_path is not set")
			return 1
		}
		n, err := db.Rebuild(ctx, artifact.NewFileStore(cfg.Output.Dir, func(o *artifact.FileStoreOptions) { o.Logger = logger }))
		if err != nil {
			fmt.Fprintf(stderr, "rebuild: %v\n", err)
			return 1
		}
		logger.Info("index.rebuilt", "path", cfg.Output.IndexPath, "records", n)
	}
	if *fromS3 {
		mirror, err := newMirror(ctx, cfg.Output.S3, logger)
		if err != nil {
			fmt.Fprintf(stderr, "s3: %v\n", err)
			return 1
		}
		reader = mirror
	}

	list, err := reader.List(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "list: %v\n", err)
		return 1
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTART\tPARTICIPANTS\tEXCHANGES\tFILE")
	for _, s := range list {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n",
			s.ID, s.StartTime.Format(core.FilenameTimeLayout), len(s.Participants), s.ExchangesCount, s.Filename)
	}
	if err := tw.Flush(); err != nil {
		return 1
	}
	return 0
}
