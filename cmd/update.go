package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"video-to-mp3/application/events"
	appupdate "video-to-mp3/application/update"
	"video-to-mp3/domain/update"

	"github.com/spf13/cobra"
)

var (
	updateYes       bool
	updateCheckOnly bool
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Check for a new release and install it",
	Long: `Fetch the release manifest and, if a newer version is published, show its
notes and ask before downloading it.

A packaged binary is replaced in place: a small helper script waits for this
process to exit, swaps the executable and starts the new version. When running
from a development build the new binary is only downloaded next to the
current one and must be put in place by hand.

Example:
  video-to-mp3 update
  video-to-mp3 update --check
  video-to-mp3 update --yes`,
	RunE: runUpdate,
}

func init() {
	rootCmd.AddCommand(updateCmd)
	updateCmd.Flags().BoolVarP(&updateYes, "yes", "y", false, "install without asking")
	updateCmd.Flags().BoolVar(&updateCheckOnly, "check", false, "only report whether an update is available")
}

func runUpdate(cmd *cobra.Command, args []string) error {
	d := newDeps(cfg, settings, logger)
	return RunUpdateWithDependencies(cmd.Context(), d.updates, d.dispatcher, DefaultPrompter, updateYes, updateCheckOnly, os.Stdout)
}

// RunUpdateWithDependencies runs the update flow with injected dependencies.
// The manager's exit hook must close dispatcher.
func RunUpdateWithDependencies(
	ctx context.Context,
	manager *appupdate.Manager,
	dispatcher *events.Dispatcher,
	prompter Prompter,
	assumeYes bool,
	checkOnly bool,
	output OutputWriter,
) error {
	fmt.Fprintf(output, "Current version: %s\n", manager.CurrentVersion())
	fmt.Fprintf(output, "Checking for updates...\n")

	manifest, newer, err := manager.Check(ctx)
	if err != nil {
		return fmt.Errorf("could not check for updates: %w", err)
	}
	if !newer {
		fmt.Fprintf(output, "You are running the latest version.\n")
		return nil
	}

	fmt.Fprintf(output, "Version %s is available.\n", manifest.Version)
	if notes := strings.TrimSpace(manifest.Notes); notes != "" {
		fmt.Fprintf(output, "\nWhat's new:\n%s\n\n", notes)
	}
	if checkOnly {
		return manager.Decline()
	}

	if !assumeYes {
		ok, err := prompter.Confirm(fmt.Sprintf("Download and install version %s?", manifest.Version), true)
		if err != nil {
			_ = manager.Decline()
			return fmt.Errorf("prompt cancelled")
		}
		if !ok {
			fmt.Fprintf(output, "Update declined.\n")
			return manager.Decline()
		}
	}

	bar := newProgressBar(output)
	var (
		failed error
		staged string
	)
	manager.SetListener(appupdate.Listener{
		OnDownloadProgress: bar.Update,
		OnUpdateComplete: func(path string) {
			staged = path
			dispatcher.Close()
		},
		OnUpdateFailed: func(err error) {
			failed = err
			dispatcher.Close()
		},
	})

	fmt.Fprintf(output, "Downloading %s...\n", manifest.URL)
	if err := manager.BeginDownload(ctx, ""); err != nil {
		return err
	}
	if err := dispatcher.Run(ctx); err != nil {
		return fmt.Errorf("update interrupted: %w", err)
	}
	bar.Done()

	if failed != nil {
		if err := manager.Acknowledge(); err != nil {
			logger.Printf("%v", err)
		}
		return failed
	}

	if staged != "" {
		fmt.Fprintf(output, "Downloaded version %s to %s.\n", manifest.Version, staged)
		fmt.Fprintf(output, "This is not a packaged build; replace the executable with it by hand.\n")
		return nil
	}

	if manager.State() == update.StateSwapping {
		fmt.Fprintf(output, "Installing version %s; it will start once this process exits.\n", manifest.Version)
	}
	return nil
}
