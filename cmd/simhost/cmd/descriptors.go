package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/GoCodeAlone/simhost"
)

// NewDescriptorsCommand creates the descriptors command
func NewDescriptorsCommand() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "descriptors DIR",
		Short: "List the module descriptors found in a directory",
		Long: `Scan the immediate subdirectories of DIR for manifest.toml files and print
the descriptors. With --watch the directory is re-scanned whenever a
descriptor changes, until interrupted. External components are not loaded.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(cmd)
			if err != nil {
				return err
			}
			dir := args[0]
			reg := simhost.NewRegistry(simhost.WithRegistryLogger(logger), simhost.WithLoader(nil))
			defer reg.Close()

			if err := scanDescriptors(cmd, reg, dir); err != nil {
				return err
			}
			if !watch {
				return nil
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return watchDescriptors(ctx, cmd, reg, dir, logger)
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Re-scan when descriptors change")

	return cmd
}

func scanDescriptors(cmd *cobra.Command, reg *simhost.Registry, dir string) error {
	if err := reg.LoadDescriptors(dir); err != nil {
		return fmt.Errorf("failed to scan %s: %w", dir, err)
	}
	renderDescriptors(cmd, reg.Descriptors())
	return nil
}

// watchDescriptors re-scans dir on every change below it until ctx ends.
func watchDescriptors(ctx context.Context, cmd *cobra.Command, reg *simhost.Registry, dir string, logger simhost.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := addWatches(watcher, dir); err != nil {
		return err
	}
	logger.Info("Watching descriptors", "dir", dir)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := watcher.Add(event.Name); err != nil {
						logger.Warn("Failed to watch directory", "dir", event.Name, "error", err)
					}
				}
			}
			logger.Debug("Descriptor change", "path", event.Name, "op", event.Op.String())
			if err := scanDescriptors(cmd, reg, dir); err != nil {
				logger.Error("Rescan failed", "error", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watcher error", "error", err)
		}
	}
}

// addWatches watches dir and its immediate subdirectories.
func addWatches(watcher *fsnotify.Watcher, dir string) error {
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", dir, err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if err := watcher.Add(filepath.Join(dir, entry.Name())); err != nil {
			return fmt.Errorf("failed to watch %s: %w", entry.Name(), err)
		}
	}
	return nil
}
