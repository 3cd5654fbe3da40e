package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"video-to-mp3/application/events"
	"video-to-mp3/application/process"
	"video-to-mp3/domain/conversion"
	"video-to-mp3/domain/update"

	"github.com/spf13/cobra"
)

var (
	convertMode      string
	convertAutoTrim  bool
	convertTrimTail  string
	convertOutputDir string
	convertNoCheck   bool
)

var convertCmd = &cobra.Command{
	Use:   "convert <link-or-file>",
	Short: "Convert a video link or file to MP3",
	Long: `Convert a video link or a local video file to MP3.

The input mode is explicit: --mode link (default) treats the argument as a
URL, --mode file treats it as a path. The MP3 is named after the video title
(or the file name) and saved to the output directory from settings. An
existing file with the same name is overwritten.

With --auto-trim, --trim-tail seconds are removed from the end of the clip.
Both "3,5" and "3.5" are accepted; anything unparsable falls back to 3.0.

Example:
  video-to-mp3 convert "https://youtu.be/dQw4w9WgXcQ"
  video-to-mp3 convert "https://www.tiktok.com/@user/video/123" --auto-trim --trim-tail 2,5
  video-to-mp3 convert --mode file ~/Videos/clip.mp4 --output-dir ~/Music`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)
	convertCmd.Flags().StringVar(&convertMode, "mode", string(conversion.ModeLink), "input mode: link or file")
	convertCmd.Flags().BoolVar(&convertAutoTrim, "auto-trim", false, "trim seconds off the end of the clip")
	convertCmd.Flags().StringVar(&convertTrimTail, "trim-tail", conversion.DefaultTrimText, "seconds to trim when --auto-trim is set")
	convertCmd.Flags().StringVar(&convertOutputDir, "output-dir", "", "save the MP3 here and remember the directory")
	convertCmd.Flags().BoolVar(&convertNoCheck, "no-update-check", false, "skip the background update check")
}

func runConvert(cmd *cobra.Command, args []string) error {
	mode, err := conversion.ParseMode(convertMode)
	if err != nil {
		return err
	}

	if convertOutputDir != "" {
		if err := settings.SetOutputDir(convertOutputDir); err != nil {
			return err
		}
	}

	input := process.Input{
		Mode:     mode,
		AutoTrim: convertAutoTrim,
		TrimText: convertTrimTail,
	}
	if len(args) == 1 {
		if mode == conversion.ModeFile {
			input.FilePath = args[0]
		} else {
			input.URLText = args[0]
		}
	}

	d := newDeps(cfg, settings, logger)

	verifyCtx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
	defer cancel()
	if err := d.extractor.VerifyInstalled(verifyCtx); err != nil {
		return fmt.Errorf("ffmpeg verification failed: %w", err)
	}

	checkDelay := cfg.Update.CheckDelay.Std()
	if convertNoCheck || cfg.Update.Disabled {
		checkDelay = -1
	}

	return RunConvertWithDependencies(cmd.Context(), d.service, d.dispatcher, input, checkDelay, os.Stdout)
}

// RunConvertWithDependencies starts a conversion and runs the presentation
// loop on the calling goroutine until the result arrives. A negative
// checkDelay skips the background update check.
func RunConvertWithDependencies(
	ctx context.Context,
	service *process.Service,
	dispatcher *events.Dispatcher,
	input process.Input,
	checkDelay time.Duration,
	output OutputWriter,
) error {
	bar := newProgressBar(output)
	var (
		result  *conversion.JobResult
		offered *update.Manifest
	)

	service.OnStatus(func(_ string, s conversion.Status) {
		bar.Line(statusMessage(s))
	})
	service.OnProgress(func(ev conversion.ProgressEvent) {
		bar.Update(ev.Fraction)
	})
	service.OnJobComplete(func(r conversion.JobResult) {
		bar.Done()
		result = &r
		dispatcher.Close()
	})

	if checkDelay >= 0 {
		service.OnUpdateAvailable(func(m update.Manifest) {
			offered = &m
		})
		timer := service.CheckForUpdate(ctx, checkDelay)
		defer timer.Stop()
	}

	if _, err := service.ResolveAndStartJob(ctx, input); err != nil {
		return err
	}

	if err := dispatcher.Run(ctx); err != nil {
		return fmt.Errorf("conversion interrupted: %w", err)
	}
	if result == nil {
		return fmt.Errorf("conversion ended without a result")
	}

	if offered != nil {
		fmt.Fprintf(output, "Version %s is available. Run 'video-to-mp3 update' to install it.\n", offered.Version)
	}

	if !result.Success {
		return fmt.Errorf("conversion failed: %s", result.Message)
	}

	fmt.Fprintf(output, "Saved: %s\n", result.OutputPath)
	if result.Warning != "" {
		fmt.Fprintf(output, "Warning: %s\n", result.Warning)
	}
	return nil
}
