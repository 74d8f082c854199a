// Command vocaiyze runs a spoken conversation with a language model, either
// live from the microphone or once over an input file.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vango-go/vocaiyze/internal/dotenv"
	"github.com/vango-go/vocaiyze/pkg/config"
)

const (
	modeInteractive = "interactive"
	modeFile        = "file"
)

type options struct {
	mode       string
	input      string
	output     string
	configPath string
	logFormat  string
	logLevel   string
	logFile    string
	envFile    string
}

var opts options

var rootCmd = &cobra.Command{
	Use:   "vocaiyze",
	Short: "Voice conversation assistant",
	Long: `vocaiyze listens, transcribes, asks a language model for a reply and
speaks it back. Interactive mode runs until an exit phrase, /exit or
interrupt. File mode answers a single .txt, .mp3 or .wav input.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context(), opts, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML config file (defaults to $VOCAIYZE_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	rootCmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "text", "log format: text or json")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&opts.logFile, "log-file", "", "also write logs to this file")

	rootCmd.Flags().StringVar(&opts.mode, "mode", modeInteractive, "run mode: interactive or file")
	rootCmd.Flags().StringVar(&opts.input, "input", "", "input file for file mode (.txt, .mp3 or .wav)")
	rootCmd.Flags().StringVar(&opts.output, "output", "", "output path for file mode")

	rootCmd.AddCommand(historyCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, o options, in io.Reader, out io.Writer) error {
	cfg, logger, closeLog, err := setup(o)
	if err != nil {
		return err
	}
	defer closeLog()

	switch o.mode {
	case modeInteractive:
		return runInteractive(ctx, cfg, logger, in, out)
	case modeFile:
		if o.input == "" {
			return fmt.Errorf("--input is required in file mode")
		}
		return runFile(ctx, cfg, logger, o.input, o.output, out)
	default:
		return fmt.Errorf("unknown mode %q (want %s or %s)", o.mode, modeInteractive, modeFile)
	}
}

// setup loads configuration and installs the logger as the slog default.
func setup(o options) (config.Config, *slog.Logger, func(), error) {
	if o.envFile != "" {
		if err := dotenv.LoadFiles(o.envFile); err != nil {
			return config.Config{}, nil, nil, fmt.Errorf("load %s: %w", o.envFile, err)
		}
	}

	path := o.configPath
	if path == "" {
		path = os.Getenv("VOCAIYZE_CONFIG")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, nil, nil, err
	}

	var w io.Writer = os.Stderr
	closeLog := func() {}
	if o.logFile != "" {
		f, err := os.OpenFile(o.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return config.Config{}, nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w = io.MultiWriter(os.Stderr, f)
		closeLog = func() { _ = f.Close() }
	}
	logger := setupLogger(w, o.logFormat, o.logLevel)
	slog.SetDefault(logger)
	return cfg, logger, closeLog, nil
}

func setupLogger(w io.Writer, format, level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handlerOpts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, handlerOpts)
	} else {
		handler = slog.NewTextHandler(w, handlerOpts)
	}
	return slog.New(handler)
}
