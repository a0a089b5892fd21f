// Package cli implements the sim-run command-line interface: a one-shot
// fetch-replay-diff-report run against a configured candidate service.
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/evalgo/simreplay/internal/fetcher"
	"github.com/evalgo/simreplay/internal/report"
	"github.com/evalgo/simreplay/internal/runner"
)

// cfgFile holds the path to the sim-run YAML configuration file. It is a
// plain cobra flag, not a viper key, because it selects which file the
// rest of the configuration comes from.
var cfgFile string

var (
	writeHTML     bool
	writeJSON     bool
	verbose       bool
	endpointNames []string
	initConfigFl  bool
)

// RootCmd is the sim-run entry point:
//
//	sim-run --config FILE [--local-app URL] [--fixtures DIR] [--output DIR]
//	         [--html] [--json] [--verbose] [--endpoints NAME...] [--init]
var RootCmd = &cobra.Command{
	Use:   "sim-run",
	Short: "replay recorded fixtures against a candidate service and diff the results",
	Long: `sim-run fetches recorded endpoint fixtures, replays each one's recorded
input against a running candidate service, diffs the observed response
against the golden output, and writes a pass/fail report.

Exit code is 0 only when no fixture failed, no stub was missed, and no
errors were recorded; any regression, stub miss, or error produces exit
code 1, suitable for use as a CI gate. Blocked writes are listed in the
report but do not by themselves change the exit code.`,
	RunE: runSimRun,
}

// init registers the sim-run flags and binds the runtime overrides to
// Viper keys, so each resolves with flag > SIM_RUN_* environment
// variable > flag default precedence.
func init() {
	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "sim.yaml", "path to the sim-run YAML configuration file")
	RootCmd.PersistentFlags().String("local-app", "", "candidate base URL; overrides candidate_url from the config file")
	RootCmd.PersistentFlags().String("fixtures", "", "override the configured fixtures cache directory")
	RootCmd.PersistentFlags().String("output", ".", "directory to write report.md / report.html / report.json into")
	RootCmd.PersistentFlags().BoolVar(&writeHTML, "html", false, "also write an HTML report")
	RootCmd.PersistentFlags().BoolVar(&writeJSON, "json", false, "also write a JSON report")
	RootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "emit debug-level logs")
	RootCmd.PersistentFlags().StringSliceVar(&endpointNames, "endpoints", nil, "restrict the run to these configured endpoint names")
	RootCmd.PersistentFlags().BoolVar(&initConfigFl, "init", false, "write a default configuration file to --config and exit")

	viper.BindPFlag("local_app", RootCmd.PersistentFlags().Lookup("local-app"))
	viper.BindPFlag("fixtures_dir", RootCmd.PersistentFlags().Lookup("fixtures"))
	viper.BindPFlag("output_dir", RootCmd.PersistentFlags().Lookup("output"))

	// SIM_RUN_LOCAL_APP, SIM_RUN_FIXTURES_DIR, SIM_RUN_OUTPUT_DIR.
	viper.SetEnvPrefix("SIM_RUN")
	viper.AutomaticEnv()
}

// exitCode is set by runSimRun and read back by Execute, since cobra's RunE
// signature has no room for a typed exit status beyond error/no-error.
var exitCode int

// Execute runs the CLI, returning the process exit code it settled on.
func Execute() int {
	if err := RootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("sim-run: command failed")
		return 1
	}
	return exitCode
}

func runSimRun(cmd *cobra.Command, args []string) error {
	setupLogging()

	if initConfigFl {
		if err := runner.WriteDefaultConfig(cfgFile); err != nil {
			exitCode = 1
			return err
		}
		cmd.Printf("wrote default configuration to %s\n", cfgFile)
		exitCode = 0
		return nil
	}

	cfg, err := runner.LoadConfig(cfgFile)
	if err != nil {
		exitCode = 1
		return err
	}
	if dir := viper.GetString("fixtures_dir"); dir != "" {
		cfg.CacheDir = dir
	}

	source, closeSource, err := buildSource(cfg)
	if err != nil {
		exitCode = 1
		return err
	}
	defer closeSource()

	manifest, err := openManifest(cfg)
	if err != nil {
		exitCode = 1
		return err
	}
	if manifest != nil {
		defer manifest.Close()
	}

	opts := runner.Options{
		CandidateURL:   viper.GetString("local_app"),
		EndpointAllow:  endpointNames,
		RequestTimeout: 30 * time.Second,
	}

	rep, err := runner.Run(context.Background(), cfg, source, manifest, opts)
	if err != nil {
		exitCode = 1
		return err
	}

	if err := writeReports(rep, viper.GetString("output_dir")); err != nil {
		exitCode = 1
		return err
	}

	exitCode = rep.ExitCode()
	log.Info().
		Int("total", rep.Total).
		Int("passed", rep.Passed).
		Int("failed", rep.Failed).
		Int("stub_misses", rep.StubMisses).
		Int("exit_code", exitCode).
		Msg("sim-run: run complete")
	return nil
}

func setupLogging() {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}

// buildSource constructs the fetcher.Source configured by cfg.Source.Type,
// the runner's pluggable storage backend selection.
func buildSource(cfg runner.SimConfig) (fetcher.Source, func(), error) {
	noop := func() {}
	switch cfg.Source.Type {
	case "", "local":
		root := cfg.Source.Root
		if root == "" {
			root = cfg.FixturesDir
		}
		return &fetcher.LocalSource{Root: root}, noop, nil
	case "s3":
		client, err := buildS3Client(cfg.Source)
		if err != nil {
			return nil, noop, err
		}
		return &fetcher.S3Source{Client: client, Bucket: cfg.Source.Bucket, Prefix: cfg.Source.Prefix}, noop, nil
	case "redis":
		opt, err := redis.ParseURL(cfg.Source.Root)
		if err != nil {
			return nil, noop, fmt.Errorf("cli: parse redis source URL: %w", err)
		}
		client := redis.NewClient(opt)
		return &fetcher.RedisSource{Client: client, Prefix: cfg.Source.Prefix}, func() { _ = client.Close() }, nil
	default:
		return nil, noop, fmt.Errorf("cli: unknown source.type %q", cfg.Source.Type)
	}
}

// buildS3Client loads the ambient AWS config and, when SourceConfig
// supplies static credentials and/or a custom endpoint, overrides them so
// the source can point at an S3-compatible store (MinIO, Hetzner) instead
// of real AWS.
func buildS3Client(src runner.SourceConfig) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if src.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(src.AccessKey, src.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("cli: load AWS config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if src.Endpoint != "" {
			o.BaseEndpoint = &src.Endpoint
			o.UsePathStyle = true
		}
	}), nil
}

func openManifest(cfg runner.SimConfig) (*fetcher.Manifest, error) {
	if cfg.CacheDir == "" {
		return nil, nil
	}
	path := cfg.ManifestPath
	if path == "" {
		path = filepath.Join(cfg.CacheDir, "manifest.db")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("cli: create manifest directory: %w", err)
	}
	return fetcher.OpenManifest(path)
}

func writeReports(rep report.SimulationReport, outputDir string) error {
	if outputDir == "" {
		outputDir = "."
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("cli: create output directory: %w", err)
	}

	md, err := report.RenderMarkdown(rep)
	if err != nil {
		return fmt.Errorf("cli: render markdown report: %w", err)
	}
	if err := os.WriteFile(filepath.Join(outputDir, "report.md"), []byte(md), 0o644); err != nil {
		return fmt.Errorf("cli: write report.md: %w", err)
	}

	if writeHTML {
		html, err := report.RenderHTML(rep)
		if err != nil {
			return fmt.Errorf("cli: render html report: %w", err)
		}
		if err := os.WriteFile(filepath.Join(outputDir, "report.html"), []byte(html), 0o644); err != nil {
			return fmt.Errorf("cli: write report.html: %w", err)
		}
	}

	if writeJSON {
		data, err := jsonMarshalReport(rep)
		if err != nil {
			return fmt.Errorf("cli: marshal json report: %w", err)
		}
		if err := os.WriteFile(filepath.Join(outputDir, "report.json"), data, 0o644); err != nil {
			return fmt.Errorf("cli: write report.json: %w", err)
		}
	}

	return nil
}
