// Command jarvis is a self-correcting execution assistant: it asks a language
// model for code, runs it in a workspace, and feeds failures back until the
// task succeeds or the retry budget runs out.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"jarvis/cmd/jarvis/chat"
	"jarvis/internal/config"
	"jarvis/internal/logging"
	"jarvis/internal/session"
)

// Set by -ldflags at release time.
var version = "dev"

var (
	// Global flags
	verbose    bool
	configPath string
	workspace  string
	jsonOutput bool
	noWatch    bool
	timeout    time.Duration

	// Logger
	logger *zap.Logger

	// Loaded in PersistentPreRunE
	cfg *config.Config
)

// errTurnFailed makes the process exit non-zero without printing twice.
var errTurnFailed = errors.New("turn did not succeed")

var rootCmd = &cobra.Command{
	Use:   "jarvis",
	Short: "jarvis - self-correcting execution assistant",
	Long: `jarvis turns requests into Python or shell code, runs it in a sandboxed
workspace directory, and feeds errors back to the model until the code works,
escalating to a web search when the same failure repeats.

Run without arguments to start the interactive chat.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// The chat UI owns the terminal, so process logging stays quiet there.
		if cmd == cmd.Root() {
			logger = zap.NewNop()
		} else {
			zcfg := zap.NewProductionConfig()
			zcfg.Encoding = "console"
			zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
			if verbose {
				zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			var err error
			logger, err = zcfg.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
		}
		return loadConfig()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAudit()
		logging.CloseAll()
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runChat,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: "+config.DefaultConfigPath+")")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")
	rootCmd.PersistentFlags().BoolVar(&noWatch, "no-watch", false, "Disable the workspace file watcher")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "Overall timeout for run and batch (0 = none)")

	rootCmd.AddCommand(runCmd, batchCmd, agentCmd, mcpCmd, memoryCmd, modelsCmd, configCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errTurnFailed) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

// loadConfig reads .env and the config file, applies flag overrides and starts
// the file loggers under the workspace.
func loadConfig() error {
	if err := config.LoadDotEnv(); err != nil {
		logger.Warn("Ignoring .env", zap.Error(err))
	}

	path := configPath
	if path == "" {
		path = config.DefaultConfigPath
	}
	var err error
	cfg, err = config.Load(path)
	if err != nil {
		return err
	}
	if workspace != "" {
		cfg.Workspace.Dir = workspace
	}
	if noWatch {
		cfg.Workspace.Watch = false
	}
	if verbose {
		cfg.Logging.DebugMode = true
		cfg.Logging.Level = "debug"
	}

	root, err := cfg.ResolveWorkspace(cwd())
	if err != nil {
		return err
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return fmt.Errorf("failed to create workspace: %w", err)
	}
	if err := logging.Initialize(cfg.Logging.Options(root)); err != nil {
		logger.Warn("File logging disabled", zap.Error(err))
	}
	if cfg.Logging.DebugMode {
		if err := logging.InitAudit(); err != nil {
			logger.Warn("Audit logging disabled", zap.Error(err))
		}
	}
	logger.Debug("Config loaded",
		zap.String("path", path),
		zap.String("workspace", root),
		zap.String("provider", cfg.LLM.Provider),
		zap.String("model", cfg.LLM.Model))
	return nil
}

func cwd() string {
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	return dir
}

// signalContext is canceled on SIGINT/SIGTERM and, when set, after --timeout.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	if timeout <= 0 {
		return ctx, stop
	}
	tctx, cancel := context.WithTimeout(ctx, timeout)
	return tctx, func() {
		cancel()
		stop()
	}
}

// bootApp wires a full session from the loaded config.
func bootApp(ctx context.Context) (*session.App, error) {
	app, err := session.Boot(ctx, cfg, session.BootOptions{BaseDir: cwd(), NoWatch: noWatch})
	if err != nil {
		return nil, err
	}
	logger.Info("Session started",
		zap.String("session", app.Driver.SessionID()),
		zap.String("workspace", app.Workspace.Root()),
		zap.Int("tools", app.Tools.Count()))
	return app, nil
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	app, err := bootApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	return chat.Run(ctx, app.Driver, chat.Options{
		Title:     "jarvis " + version,
		Workspace: app.Workspace.Root(),
		Model:     cfg.LLM.Provider + "/" + cfg.LLM.Model,
		Verbose:   verbose,
	})
}
