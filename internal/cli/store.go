package cli

import (
	"fmt"
	"os"

	"github.com/leca/dt-image-store/internal/metrics"
	"github.com/leca/dt-image-store/internal/model"
	"github.com/spf13/cobra"
)

func newAddCommand(a *app) *cobra.Command {
	var ef editorFlags
	cmd := &cobra.Command{
		Use:   "add <file>",
		Short: "Store an image and print its key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := ef.options(a.cfg.Validator())
			if err != nil {
				return err
			}
			opts.MaxBytes = a.cfg.MaxUploadBytes
			store, err := a.openStore(metrics.Noop{})
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open source: %w", err)
			}
			defer f.Close()

			key, err := store.Add(f, opts)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), key)
			return nil
		},
	}
	ef.register(cmd)
	return cmd
}

func newAddSizeCommand(a *app) *cobra.Command {
	var ef editorFlags
	cmd := &cobra.Command{
		Use:   "add-size <key> <size>",
		Short: "Derive a named size from a stored image and print its path",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := model.ParseImageKey(args[0])
			if err != nil {
				return err
			}
			if ef.fit == "" {
				return fmt.Errorf("--fit is required")
			}
			opts, err := ef.options(nil)
			if err != nil {
				return err
			}
			store, err := a.openStore(metrics.Noop{})
			if err != nil {
				return err
			}

			sized, err := store.AddSize(key, args[1], opts)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), store.GetPath(sized, args[1]))
			return nil
		},
	}
	ef.register(cmd)
	return cmd
}

func newDeleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <key|id>",
		Short: "Delete an image and all of its sizes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			store, err := a.openStore(metrics.Noop{})
			if err != nil {
				return err
			}
			return store.Delete(id)
		},
	}
}

func newCleanCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Retry every pending deferred delete",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore(metrics.Noop{})
			if err != nil {
				return err
			}
			return store.Clean(cmd.Context())
		},
	}
}

func newNeedsCleaningCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "needs-cleaning",
		Short: "Print whether deferred deletes are pending",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore(metrics.Noop{})
			if err != nil {
				return err
			}
			pending, err := store.NeedsCleaning()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), pending)
			return nil
		},
	}
}

func newPathCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "path <key> [size]",
		Short: "Print where a stored image or size lives",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := model.ParseImageKey(args[0])
			if err != nil {
				return err
			}
			store, err := a.openStore(metrics.Noop{})
			if err != nil {
				return err
			}
			size := ""
			if len(args) == 2 {
				size = args[1]
			}
			fmt.Fprintln(cmd.OutOrStdout(), store.GetPath(key, size))
			return nil
		},
	}
}
