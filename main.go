package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/moepig/net-conf-gen/config"
	"github.com/moepig/net-conf-gen/generate"
	"github.com/moepig/net-conf-gen/renderer"
	"github.com/moepig/net-conf-gen/sources"
	"github.com/moepig/net-conf-gen/sources/csvfile"
	"github.com/moepig/net-conf-gen/sources/elasticache"
	"github.com/moepig/net-conf-gen/tui"
)

func init() {
	// Register providers
	sources.Register(csvfile.NewProvider())
	sources.Register(elasticache.NewProvider())
}

type options struct {
	template     string
	input        string
	output       string
	templateRoot string
	nameField    string
	ext          string
	delimiter    rune
	onRowError   generate.Policy
	configPath   string
	interactive  bool
	logLevel     slog.Level

	templateRootSet bool
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	// The form owns the terminal, so only errors are logged while it runs
	level := opts.logLevel
	if opts.interactive && level < slog.LevelError {
		level = slog.LevelError
	}

	// Initialize slog logger
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	ctx := context.Background()

	// Run the application
	if err := run(ctx, os.Stdout, opts); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	var (
		opts        options
		logLevelStr string
		delimiter   string
		onRowError  string
	)

	flagSet := pflag.NewFlagSet("net-conf-gen", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVar(&opts.template, "template", "", "template name, relative to --template-root")
	flagSet.StringVar(&opts.input, "input", "", "path to the CSV data file")
	flagSet.StringVar(&opts.output, "output", "./output", "output directory")
	flagSet.StringVar(&opts.templateRoot, "template-root", "./templates", "directory templates are resolved from")
	flagSet.StringVar(&opts.nameField, "name-field", generate.DefaultNamingField, "column whose value names each output file")
	flagSet.StringVar(&opts.ext, "ext", generate.DefaultExtension, "output file extension")
	flagSet.StringVar(&delimiter, "delimiter", "", "field delimiter (default ',' or tab for .tsv files)")
	flagSet.StringVar(&onRowError, "on-row-error", string(generate.PolicyAbort), "what to do with a row that fails to render (abort, skip)")
	flagSet.StringVar(&opts.configPath, "config", "", "path to a job file; runs every job it defines")
	flagSet.BoolVar(&opts.interactive, "interactive", false, "open the interactive form")
	flagSet.StringVar(&logLevelStr, "log-level", "info", "log level (debug, info, warn, error)")
	flagSet.Usage = func() {
		fmt.Fprintf(stderr, `net-conf-gen renders one configuration file per row of a data source.

Usage:
  net-conf-gen --template <name> --input <data.csv> [--output <dir>]
  net-conf-gen --config <jobs.yaml>
  net-conf-gen --interactive

Flags:
`)
		flagSet.PrintDefaults()
	}

	if err := flagSet.Parse(args); err != nil {
		return nil, err
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return nil, fmt.Errorf("unexpected argument: %s", rest[0])
	}

	level, err := parseLogLevel(logLevelStr)
	if err != nil {
		return nil, err
	}
	opts.logLevel = level

	if opts.onRowError, err = generate.ParsePolicy(onRowError); err != nil {
		return nil, err
	}
	if opts.delimiter, err = config.ParseDelimiter(delimiter); err != nil {
		return nil, fmt.Errorf("invalid --delimiter: %w", err)
	}
	opts.templateRootSet = flagSet.Changed("template-root")

	if opts.interactive && opts.configPath != "" {
		return nil, fmt.Errorf("--interactive and --config cannot be combined")
	}
	if !opts.interactive && opts.configPath == "" && (opts.template == "" || opts.input == "") {
		return nil, fmt.Errorf("--template and --input are required (or use --config or --interactive)")
	}

	return &opts, nil
}

// parseLogLevel parses a log level name
func parseLogLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level '%s' (must be debug, info, warn, or error)", s)
	}
}

func run(ctx context.Context, stdout io.Writer, opts *options) error {
	switch {
	case opts.interactive:
		return runInteractive(ctx, opts)
	case opts.configPath != "":
		return runJobFile(ctx, stdout, opts)
	default:
		return runSingle(ctx, stdout, opts)
	}
}

func runSingle(ctx context.Context, stdout io.Writer, opts *options) error {
	gen := generate.NewGenerator(renderer.NewRenderer(opts.templateRoot))

	result, err := gen.Run(ctx, generate.Job{
		TemplateID:  opts.template,
		SourceType:  generate.DefaultSourceType,
		Source:      sources.ProviderConfig{Path: opts.input, Delimiter: opts.delimiter},
		OutputDir:   opts.output,
		NamingField: opts.nameField,
		Extension:   opts.ext,
		OnRowError:  opts.onRowError,
	})
	if err != nil {
		return err
	}

	report(stdout, result)
	return nil
}

func runJobFile(ctx context.Context, stdout io.Writer, opts *options) error {
	// Load job file
	slog.Info("Loading job file", "config_path", opts.configPath)
	genCfg, err := config.LoadGenConfig(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load job file: %w", err)
	}

	templateRoot := genCfg.TemplateRoot
	if opts.templateRootSet {
		templateRoot = opts.templateRoot
	}
	gen := generate.NewGenerator(renderer.NewRenderer(templateRoot))

	for _, jobCfg := range genCfg.Jobs {
		slog.Info("Running job",
			"name", jobCfg.Name,
			"template", jobCfg.Template,
			"source", jobCfg.Source.Type)

		job, err := jobCfg.ToJob()
		if err != nil {
			return fmt.Errorf("invalid job '%s': %w", jobCfg.Name, err)
		}

		result, err := gen.Run(ctx, job)
		if err != nil {
			return fmt.Errorf("job '%s' failed: %w", jobCfg.Name, err)
		}
		report(stdout, result)
	}

	slog.Info("Done!")
	return nil
}

func runInteractive(ctx context.Context, opts *options) error {
	gen := generate.NewGenerator(renderer.NewRenderer(opts.templateRoot))
	return tui.Run(func(templateID, dataPath, outputDir string) (int, error) {
		return gen.RenderCSV(ctx, templateID, dataPath, outputDir)
	}, opts.output)
}

func report(w io.Writer, result *generate.Result) {
	if n := len(result.Skipped); n > 0 {
		fmt.Fprintf(w, "Skipped %d row(s):\n", n)
		for _, rowErr := range result.Skipped {
			fmt.Fprintf(w, "  %v\n", rowErr)
		}
	}
	fmt.Fprintf(w, "All configs generated in %s\n", result.OutputDir)
}
