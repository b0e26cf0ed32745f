package main

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/kataras/golog"
	"github.com/lrstanley/go-ytdlp"

	"github.com/ytget/social-downloader/internal/config"
	"github.com/ytget/social-downloader/internal/download"
	"github.com/ytget/social-downloader/internal/lister"
	"github.com/ytget/social-downloader/internal/model"
	"github.com/ytget/social-downloader/internal/mux"
	"github.com/ytget/social-downloader/internal/orchestrator"
	"github.com/ytget/social-downloader/internal/platform"
	"github.com/ytget/social-downloader/internal/resolver"
	"github.com/ytget/social-downloader/internal/server"
	"github.com/ytget/social-downloader/internal/session"
	"github.com/ytget/social-downloader/internal/storage"
)

// Version is set during build via -ldflags "-X main.version=X.Y.Z"
var version = "dev"

const (
	AppName = "Social Downloader"

	shutdownTimeout = 15 * time.Second
)

func main() {
	logger := golog.New()

	settings, err := config.Load(logger.Child("config"))
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	cfg := settings.Config()
	logger.SetLevel(cfg.Log.Level)
	logger.Infof("%s v%s starting...", AppName, version)

	if err := platform.CreateDirectoryIfNotExists(settings.GetDownloadDirectory()); err != nil {
		logger.Warnf("failed to ensure downloads dir: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ytdlpPath := installYTDLP(ctx, cfg.YTDLP, logger)

	cookies := resolver.NewCookieCache(cfg.Resolver.Cookie, cookieSource(cfg.Resolver))
	resolverClient := resolver.NewClient(cfg.Resolver.Endpoint, logger.Child("resolver"), resolver.WithCookies(cookies))

	worker := download.NewService(
		resolverClient,
		download.NewYTDLPExtractor(ytdlpPath, cfg.FFmpeg.Path, logger.Child("ytdlp")),
		mux.NewFFmpegMuxer(cfg.FFmpeg.Path),
		download.NewFetcher(nil, download.DefaultChunkSize),
		logger.Child("download"),
		download.WithResolvedYouTube(cfg.YouTube.UseResolver),
	)

	history, err := openHistory(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("failed to open history: %v", err)
	}
	if closer, ok := history.(io.Closer); ok {
		defer closer.Close()
	}

	registry := session.NewRegistry(
		buildListers(ctx, cfg, ytdlpPath, logger.Child("lister")),
		orchestrator.NewEngine(worker, logger.Child("orchestrator")),
		history,
		logger.Child("session"),
		session.Config{
			BatchSize:          cfg.Listing.BatchSize,
			KeepAlive:          cfg.Progress.KeepAlive,
			DefaultSaveDir:     settings.GetDownloadDirectory(),
			DefaultQuality:     string(settings.GetQualityPreset()),
			DefaultConcurrency: settings.GetMaxParallelDownloads(),
		},
	)

	settings.OnChange(func(c config.Config) {
		logger.SetLevel(c.Log.Level)
		registry.SetDefaults(settings.GetDownloadDirectory(), string(settings.GetQualityPreset()), settings.GetMaxParallelDownloads())
	})
	settings.Watch()

	api := server.New(registry, logger.Child("http"),
		server.WithDirectoryPicker(platform.ChooseDirectory),
		server.WithShutdown(stop),
	)
	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("listening on http://%s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("server failed: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := registry.Stop(shutdownCtx); err != nil {
		logger.Warnf("downloads did not stop in time: %v", err)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("server shutdown: %v", err)
	}
}

func installYTDLP(ctx context.Context, cfg config.YTDLPConfig, logger *golog.Logger) string {
	if cfg.Path != "" || !cfg.AutoInstall {
		return cfg.Path
	}
	resolved, err := ytdlp.Install(ctx, nil)
	if err != nil {
		logger.Warnf("yt-dlp install failed, falling back to PATH: %v", err)
		return ""
	}
	logger.Infof("using yt-dlp %s at %s", resolved.Version, resolved.Executable)
	return resolved.Executable
}

func cookieSource(cfg config.ResolverConfig) resolver.CookieSource {
	switch {
	case cfg.CookieCommand != "":
		fields := strings.Fields(cfg.CookieCommand)
		return resolver.CommandCookie{Path: fields[0], Args: fields[1:]}
	case cfg.CookieFile != "":
		return resolver.FileCookie(cfg.CookieFile)
	case cfg.Cookie != "":
		return resolver.StaticCookie(cfg.Cookie)
	}
	return nil
}

func buildListers(ctx context.Context, cfg config.Config, ytdlpPath string, logger *golog.Logger) lister.Lister {
	flat := lister.NewFlatLister(lister.YTDLPFlat(ytdlpPath))

	youtube := []lister.Lister{}
	if cfg.YouTube.APIKey != "" {
		api, err := lister.NewAPILister(ctx, cfg.YouTube.APIKey)
		if err != nil {
			logger.Warnf("YouTube Data API unavailable: %v", err)
		} else {
			youtube = append(youtube, api)
		}
	}
	youtube = append(youtube, lister.NewUploadsLister(), flat)

	return lister.NewRouter().
		Register(model.PlatformYouTube, lister.NewChain(logger, youtube...)).
		Register(model.PlatformTikTok, flat).
		Register(model.PlatformDouyin, lister.NewDouyinLister(cfg.Douyin.Endpoint, cfg.Douyin.Cookie, nil, nil))
}

func openHistory(ctx context.Context, cfg config.Config, logger *golog.Logger) (storage.HistoryRepository, error) {
	if cfg.Database.URL == "" {
		return storage.NewMemory(cfg.History.Capacity), nil
	}
	pg, err := storage.OpenPostgres(ctx, cfg.Database.URL)
	if err != nil {
		return nil, err
	}
	logger.Info("download history stored in postgres")
	return pg, nil
}
