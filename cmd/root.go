package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"camextract/internal/config"
	"camextract/internal/extract"
	"camextract/internal/imagefile"
	"camextract/internal/logging"
	"camextract/internal/tui"
)

const progName = "camextract"

// ConfigEnv names a defaults file to use instead of the search path.
const ConfigEnv = "CAMEXTRACT_CONFIG"

func newRootCmd(exitCode *int) *cobra.Command {
	cmd := &cobra.Command{
		Use:   progName + " [options] file...",
		Short: "camextract - extract previews, metadata and sensor data from camera raw files",
		Long: "camextract reads camera raw containers and writes the embedded JPEG preview, the " +
			"metadata, or the sensor data as RAW, TIFF, DNG, PPM or a CSV histogram next to a " +
			"chosen output directory.",
		// Options use the single-dash grammar of config.Parse.
		DisableFlagParsing: true,
		SilenceUsage:       true,
		SilenceErrors:      true,
		RunE: func(cmd *cobra.Command, args []string) error {
			*exitCode = run(cmd.Context(), args, cmd.OutOrStdout(), cmd.ErrOrStderr())
			return nil
		},
	}
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	return cmd
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := 0
	err := newRootCmd(&code).ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(code)
}

// run is the whole command: it returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, files, err := loadConfig(args)
	if errors.Is(err, config.ErrHelp) {
		config.WriteUsage(stdout, progName)
		return 0
	}
	if err != nil {
		fmt.Fprintln(stderr, err)
		var usageErr *config.UsageError
		if errors.As(err, &usageErr) {
			config.WriteUsage(stderr, progName)
		}
		return 1
	}

	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	logger, closeLog, err := logging.Setup(stderr, cfg.LogFile, level)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer func() { _ = closeLog() }()

	logger = logger.With("run_id", uuid.NewString())
	ctx = logging.WithLogger(ctx, logger)
	logger.Debug("starting run", "files", len(files), "output_dir", cfg.OutputDir, "kind", cfg.Kind.String())

	showProgress := cfg.Progress && isTerminal(stdout)
	if cfg.Progress && !showProgress {
		logger.Warn("progress view needs a terminal on stdout, printing lines instead")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := stdout
	var updates chan extract.ProgressUpdate
	var uiDone <-chan struct{}
	if showProgress {
		lines = io.Discard
		updates = make(chan extract.ProgressUpdate, 64)
		program := tea.NewProgram(tui.NewModel(updates, cancel), tea.WithOutput(stdout), tea.WithoutSignalHandler())
		uiDone = watchProgress(func() error {
			_, err := program.Run()
			return err
		}, updates, logger)
	}

	driver := extract.NewDriver(imagefile.NewBackend(logger), cfg, lines, updates)
	summary, runErr := driver.Run(ctx, files)

	if updates != nil {
		close(updates)
		<-uiDone
	}

	interrupted := runErr != nil
	if interrupted {
		logger.Warn("run interrupted, remaining files skipped", "err", runErr)
	}

	fmt.Fprintf(stdout, "Files processed: %d\terrors: %d\n", summary.Files, summary.Errors)
	if showProgress {
		fmt.Fprintln(stdout, tui.RenderSummary(tui.SummaryRows(summary, interrupted)))
	}

	if interrupted {
		return 1
	}
	return summary.ExitCode()
}

// watchProgress runs view on its own goroutine. Once view returns, for any
// reason, the remaining updates are drained so the driver never blocks on a
// full channel. The returned channel closes after updates is closed.
func watchProgress(view func() error, updates <-chan extract.ProgressUpdate, logger *slog.Logger) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := view(); err != nil {
			logger.Warn("progress view stopped", "err", err)
		}
		for range updates {
		}
	}()
	return done
}

// loadConfig layers the command line over file and environment defaults.
func loadConfig(args []string) (config.Config, []string, error) {
	v, err := config.NewViper(os.Getenv(ConfigEnv))
	if err != nil {
		return config.Config{}, nil, err
	}
	base, err := config.LoadDefaults(v)
	if err != nil {
		return config.Config{}, nil, err
	}
	return config.Parse(args, base)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
