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

	"github.com/danmuck/bitpacket/internal/config"
	"github.com/danmuck/bitpacket/internal/logging"
	"github.com/danmuck/bitpacket/internal/observability"
	"github.com/danmuck/bitpacket/internal/protocol"
	"github.com/danmuck/bitpacket/internal/protocol/export"
	"github.com/danmuck/bitpacket/internal/server"
	"github.com/rs/zerolog/log"
)

type options struct {
	configPath string
	inputPath  string
	part       string
	batch      bool
	tree       bool
	cborPath   string
	metricsOut string
	serveAddr  string
}

func main() {
	logging.ConfigureRuntime()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "bitsctl: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("bitsctl", flag.ContinueOnError)
	fs.StringVar(&opts.configPath, "config", "", "TOML config path (defaults when empty)")
	fs.StringVar(&opts.inputPath, "input", "", "transmission file (stdin when empty)")
	fs.StringVar(&opts.part, "part", "both", "result to print: versions|value|both")
	fs.BoolVar(&opts.batch, "batch", false, "decode one transmission per input line")
	fs.BoolVar(&opts.tree, "tree", false, "print the decoded packet tree")
	fs.StringVar(&opts.cborPath, "cbor", "", "write the decoded tree as CBOR to this path")
	fs.StringVar(&opts.metricsOut, "metrics-out", "", "write decode metrics in text format to this path")
	fs.StringVar(&opts.serveAddr, "serve", "", "run the HTTP decode service on this address")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	switch opts.part {
	case "versions", "value", "both":
	default:
		return options{}, fmt.Errorf("unknown -part %q (want versions|value|both)", opts.part)
	}
	if opts.batch && opts.cborPath != "" {
		return options{}, fmt.Errorf("-cbor needs a single transmission, not -batch")
	}
	return opts, nil
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}

	cfg := config.Default()
	if opts.configPath != "" {
		cfg, err = config.Load(opts.configPath)
		if err != nil {
			return err
		}
	}
	if os.Getenv(logging.EnvLogLevel) == "" {
		logging.ApplyLevel(cfg.Log.Level)
	}
	observability.RegisterMetrics()

	if opts.serveAddr != "" {
		cfg.Server.Addr = opts.serveAddr
		return server.New(cfg).Serve(ctx)
	}

	text, err := readInput(opts.inputPath, stdin)
	if err != nil {
		return err
	}

	analyzer := protocol.NewAnalyzer("cli", cfg.Limits)
	if opts.batch {
		err = runBatch(ctx, analyzer, cfg.Batch.Workers, text, opts, stdout)
	} else {
		err = runSingle(analyzer, text, opts, stdout)
	}

	if opts.metricsOut != "" {
		if merr := writeMetrics(opts.metricsOut); merr != nil && err == nil {
			err = merr
		}
	}
	return err
}

func runSingle(a *protocol.Analyzer, text string, opts options, out io.Writer) error {
	report, err := a.Analyze(text)
	if err != nil {
		return err
	}
	printReport(out, "", report, opts)

	if opts.cborPath != "" {
		data, err := export.MarshalCBOR(report.Packet)
		if err != nil {
			return err
		}
		if err := os.WriteFile(opts.cborPath, data, 0o644); err != nil {
			return fmt.Errorf("write cbor: %w", err)
		}
		log.Info().Str("path", opts.cborPath).Int("bytes", len(data)).Msg("packet tree exported")
	}
	return nil
}

func runBatch(ctx context.Context, a *protocol.Analyzer, workers int, text string, opts options, out io.Writer) error {
	inputs := protocol.SplitTransmissions(text)
	results, err := a.AnalyzeAll(ctx, inputs, workers)
	if err != nil {
		return err
	}
	failed := 0
	for _, res := range results {
		prefix := fmt.Sprintf("%d: ", res.Index+1)
		if res.Err != nil {
			failed++
			fmt.Fprintf(out, "%serror: %v\n", prefix, res.Err)
			continue
		}
		printReport(out, prefix, res.Report, opts)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d transmissions failed", failed, len(results))
	}
	return nil
}

func printReport(out io.Writer, prefix string, r *protocol.Report, opts options) {
	switch opts.part {
	case "versions":
		fmt.Fprintf(out, "%s%d\n", prefix, r.VersionSum)
	case "value":
		fmt.Fprintf(out, "%s%d\n", prefix, r.Value)
	default:
		fmt.Fprintf(out, "%sversion_sum=%d value=%d\n", prefix, r.VersionSum, r.Value)
	}
	if opts.tree {
		fmt.Fprintf(out, "%s%s\n", prefix, r.Packet)
	}
}

func readInput(path string, stdin io.Reader) (string, error) {
	if path == "" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return string(data), nil
}

func writeMetrics(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	if err := observability.WriteText(f); err != nil {
		f.Close()
		return fmt.Errorf("write metrics: %w", err)
	}
	return f.Close()
}
