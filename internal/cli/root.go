package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/leca/dt-image-store/internal/config"
	"github.com/leca/dt-image-store/internal/imageproc"
	"github.com/leca/dt-image-store/internal/logging"
	"github.com/leca/dt-image-store/internal/metrics"
	"github.com/leca/dt-image-store/internal/model"
	"github.com/leca/dt-image-store/internal/storage"
	"github.com/spf13/cobra"
)

// app carries the global flags and what is derived from them.
type app struct {
	configPath string
	basePath   string
	logLevel   string

	cfg    *config.Config
	logger *slog.Logger
}

// NewRootCommand builds the imagestore command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "imagestore",
		Short:         "A content-addressed image store with derived sizes",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML config file (default $IMAGESTORE_CONFIG)")
	root.PersistentFlags().StringVar(&a.basePath, "base", "", "storage base directory (overrides storage_path)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error (overrides log_level)")

	root.AddCommand(
		newServeCommand(a),
		newAddCommand(a),
		newAddSizeCommand(a),
		newDeleteCommand(a),
		newCleanCommand(a),
		newNeedsCleaningCommand(a),
		newPathCommand(a),
	)
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := NewRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		slog.Error("failed to execute command", "error", err)
		os.Exit(1)
	}
}

func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.basePath != "" {
		cfg.StoragePath = a.basePath
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}

	logger, err := logging.New(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	a.cfg = cfg
	a.logger = logger
	return nil
}

func (a *app) openStore(rec metrics.Recorder) (*storage.FileSystem, error) {
	opts, err := a.cfg.StorageOptions()
	if err != nil {
		return nil, err
	}
	opts.Logger = a.logger
	opts.Metrics = rec
	return storage.NewFileSystem(a.cfg.StoragePath, opts)
}

// editorFlags are the flags describing an editor on add and add-size.
type editorFlags struct {
	fit        string
	width      int
	height     int
	background string
	quality    int
}

func (f *editorFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.fit, "fit", "", "resize policy: downsize, cover, pad or max-size")
	cmd.Flags().IntVar(&f.width, "width", 0, "bounding box width")
	cmd.Flags().IntVar(&f.height, "height", 0, "bounding box height")
	cmd.Flags().StringVar(&f.background, "background", "", "fill color for pad and max-size as #rrggbb")
	cmd.Flags().IntVar(&f.quality, "quality", 0, "JPEG quality 1..100 (default from config)")
}

// options returns the AddOptions the flags describe. No --fit means no editor.
func (f *editorFlags) options(validate storage.Validator) (storage.AddOptions, error) {
	opts := storage.AddOptions{Validate: validate, Quality: f.quality}
	if f.fit == "" {
		return opts, nil
	}
	editor, err := imageproc.EditorFor(f.fit, f.width, f.height, f.background)
	if err != nil {
		return opts, err
	}
	opts.Editor = editor
	return opts, nil
}

// parseID accepts either an image key or a bare id.
func parseID(s string) (uuid.UUID, error) {
	if strings.Contains(s, ".") {
		key, err := model.ParseImageKey(s)
		if err != nil {
			return uuid.Nil, err
		}
		return key.ID, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("parse image id %q: %w", s, err)
	}
	return id, nil
}
