package cmd

import (
	"log"
	"os"

	appconv "video-to-mp3/application/conversion"
	"video-to-mp3/application/events"
	"video-to-mp3/application/process"
	appupdate "video-to-mp3/application/update"
	"video-to-mp3/infrastructure/config"
	"video-to-mp3/infrastructure/ffmpeg"
	"video-to-mp3/infrastructure/filesystem"
	"video-to-mp3/infrastructure/httpupdate"
	"video-to-mp3/infrastructure/selfupdate"
	"video-to-mp3/infrastructure/ytdlp"
)

// deps holds the production object graph for one command invocation
type deps struct {
	dispatcher *events.Dispatcher
	extractor  *ffmpeg.Extractor
	updates    *appupdate.Manager
	service    *process.Service
}

func newDeps(cfg *config.Config, settings *config.SettingsManager, logger *log.Logger) *deps {
	dispatcher := events.NewDispatcher()

	extractor := ffmpeg.NewExtractor(
		ffmpeg.WithExtractorFFmpegPath(cfg.Tools.FFmpegPath),
		ffmpeg.WithFFprobePath(cfg.Tools.FFprobePath),
		ffmpeg.WithBitrate(cfg.Audio.Bitrate),
	)
	fetcher := ytdlp.NewFetcher(cfg.Tools.YtDlpPath, ytdlp.WithAutoInstall(cfg.Tools.YtDlpAutoInstall))

	orchestrator := appconv.NewOrchestrator(
		fetcher,
		extractor,
		filesystem.NewRemover(),
		dispatcher,
		cfg.TempMediaPath(),
		appconv.WithLogger(logger),
	)

	exe, err := selfupdate.Executable()
	if err != nil {
		logger.Printf("cannot locate executable: %v", err)
		exe = os.Args[0]
	}
	client := httpupdate.NewClient(cfg.Update.ManifestURL, httpupdate.WithTimeout(cfg.Update.Timeout.Std()))
	swapper := selfupdate.NewSwapper(exe,
		selfupdate.WithTimings(cfg.Update.WaitSeconds, cfg.Update.PollSeconds, cfg.Update.MaxAttempts),
	)

	updates := appupdate.NewManager(Version, client, client, swapper, dispatcher,
		appupdate.WithLogger(logger),
		appupdate.WithExitHook(dispatcher.Close),
	)

	return &deps{
		dispatcher: dispatcher,
		extractor:  extractor,
		updates:    updates,
		service:    process.NewService(orchestrator, updates, filesystem.NewChecker(), settings),
	}
}
