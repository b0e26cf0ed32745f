// Package config loads application settings from defaults, an optional
// config file, a .env file and SOCIALDL_ environment variables.
package config

import (
	"errors"
	"io/fs"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/kataras/golog"
	"github.com/spf13/viper"

	"github.com/ytget/social-downloader/internal/platform"
)

// Quality presets for downloads
type QualityPreset string

const (
	QualityBest   QualityPreset = "best"
	QualityMedium QualityPreset = "medium"
	QualityAudio  QualityPreset = "audio"
)

// Settings keys
const (
	KeyDownloadDir    = "download_directory"
	KeyMaxParallel    = "max_parallel_downloads"
	KeyQualityPreset  = "quality_preset"
	KeyServerHost     = "server.host"
	KeyServerPort     = "server.port"
	KeyResolverURL    = "resolver.endpoint"
	KeyResolverCookie = "resolver.cookie"
	KeyCookieCommand  = "resolver.cookie_command"
	KeyCookieFile     = "resolver.cookie_file"
	KeyDouyinEndpoint = "douyin.endpoint"
	KeyDouyinCookie   = "douyin.cookie"
	KeyYouTubeAPIKey  = "youtube.api_key"
	KeyUseResolver    = "youtube.use_resolver"
	KeyFFmpegPath     = "ffmpeg.path"
	KeyYTDLPPath      = "ytdlp.path"
	KeyYTDLPInstall   = "ytdlp.auto_install"
	KeyDatabaseURL    = "database.url"
	KeyHistorySize    = "history.capacity"
	KeyLogLevel       = "log.level"
	KeyKeepAlive      = "progress.keepalive"
	KeyBatchSize      = "listing.batch_size"
)

// Default values
const (
	DefaultMaxParallel   = 5
	MinParallel          = 1
	MaxParallel          = 10
	DefaultQualityPreset = QualityBest
	DefaultServerHost    = "127.0.0.1"
	DefaultServerPort    = 5000
	DefaultResolverURL   = "https://fsmvid.com/api/proxy"
	DefaultLogLevel      = "info"
	DefaultKeepAlive     = 30 * time.Second
	DefaultBatchSize     = 20
	DefaultHistorySize   = 100

	EnvPrefix = "SOCIALDL"
)

// Config is the decoded settings tree
type Config struct {
	DownloadDirectory    string         `mapstructure:"download_directory"`
	MaxParallelDownloads int            `mapstructure:"max_parallel_downloads"`
	QualityPreset        QualityPreset  `mapstructure:"quality_preset"`
	Server               ServerConfig   `mapstructure:"server"`
	Resolver             ResolverConfig `mapstructure:"resolver"`
	Douyin               DouyinConfig   `mapstructure:"douyin"`
	YouTube              YouTubeConfig  `mapstructure:"youtube"`
	FFmpeg               FFmpegConfig   `mapstructure:"ffmpeg"`
	YTDLP                YTDLPConfig    `mapstructure:"ytdlp"`
	Database             DatabaseConfig `mapstructure:"database"`
	History              HistoryConfig  `mapstructure:"history"`
	Log                  LogConfig      `mapstructure:"log"`
	Progress             ProgressConfig `mapstructure:"progress"`
	Listing              ListingConfig  `mapstructure:"listing"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type ResolverConfig struct {
	Endpoint      string `mapstructure:"endpoint"`
	Cookie        string `mapstructure:"cookie"`
	CookieCommand string `mapstructure:"cookie_command"`
	CookieFile    string `mapstructure:"cookie_file"`
}

type DouyinConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Cookie   string `mapstructure:"cookie"`
}

type YouTubeConfig struct {
	APIKey      string `mapstructure:"api_key"`
	UseResolver bool   `mapstructure:"use_resolver"`
}

type FFmpegConfig struct {
	Path string `mapstructure:"path"`
}

type YTDLPConfig struct {
	Path        string `mapstructure:"path"`
	AutoInstall bool   `mapstructure:"auto_install"`
}

type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

type HistoryConfig struct {
	Capacity int `mapstructure:"capacity"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type ProgressConfig struct {
	KeepAlive time.Duration `mapstructure:"keepalive"`
}

type ListingConfig struct {
	BatchSize int `mapstructure:"batch_size"`
}

// Settings manages application configuration
type Settings struct {
	mu       sync.RWMutex
	v        *viper.Viper
	cfg      Config
	log      *golog.Logger
	onChange []func(Config)
}

// Load reads .env, then config.{toml,yaml,json} from the given directories
// (the working directory when none), then the environment. A missing
// config file is not an error.
func Load(log *golog.Logger, dirs ...string) (*Settings, error) {
	if log == nil {
		log = golog.Default
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warnf("could not load .env: %v", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	if len(dirs) == 0 {
		dirs = []string{"."}
	}
	for _, dir := range dirs {
		v.AddConfigPath(dir)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		log.Debug("no config file found, using defaults and environment")
	} else {
		log.Infof("loaded config from %s", v.ConfigFileUsed())
	}

	s := &Settings{v: v, log: log}
	if err := s.reload(); err != nil {
		return nil, err
	}
	return s, nil
}

func setDefaults(v *viper.Viper) {
	downloads, err := platform.GetHomeDownloadsDir()
	if err != nil {
		downloads = "/tmp/downloads"
	}

	v.SetDefault(KeyDownloadDir, downloads)
	v.SetDefault(KeyMaxParallel, DefaultMaxParallel)
	v.SetDefault(KeyQualityPreset, string(DefaultQualityPreset))
	v.SetDefault(KeyServerHost, DefaultServerHost)
	v.SetDefault(KeyServerPort, DefaultServerPort)
	v.SetDefault(KeyResolverURL, DefaultResolverURL)
	v.SetDefault(KeyResolverCookie, "")
	v.SetDefault(KeyCookieCommand, "")
	v.SetDefault(KeyCookieFile, "")
	v.SetDefault(KeyDouyinEndpoint, "")
	v.SetDefault(KeyDouyinCookie, "")
	v.SetDefault(KeyYouTubeAPIKey, "")
	v.SetDefault(KeyUseResolver, false)
	v.SetDefault(KeyFFmpegPath, "")
	v.SetDefault(KeyYTDLPPath, "")
	v.SetDefault(KeyYTDLPInstall, false)
	v.SetDefault(KeyDatabaseURL, "")
	v.SetDefault(KeyHistorySize, DefaultHistorySize)
	v.SetDefault(KeyLogLevel, DefaultLogLevel)
	v.SetDefault(KeyKeepAlive, DefaultKeepAlive)
	v.SetDefault(KeyBatchSize, DefaultBatchSize)
}

func (s *Settings) reload() error {
	var cfg Config
	if err := s.v.Unmarshal(&cfg); err != nil {
		return err
	}
	normalize(&cfg)

	s.mu.Lock()
	s.cfg = cfg
	hooks := append([]func(Config){}, s.onChange...)
	s.mu.Unlock()

	for _, fn := range hooks {
		fn(cfg)
	}
	return nil
}

func normalize(cfg *Config) {
	cfg.MaxParallelDownloads = clampParallel(cfg.MaxParallelDownloads)
	switch cfg.QualityPreset {
	case QualityBest, QualityMedium, QualityAudio:
	default:
		cfg.QualityPreset = DefaultQualityPreset
	}
	if cfg.Progress.KeepAlive <= 0 {
		cfg.Progress.KeepAlive = DefaultKeepAlive
	}
	if cfg.Listing.BatchSize <= 0 {
		cfg.Listing.BatchSize = DefaultBatchSize
	}
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = DefaultServerPort
	}
}

func clampParallel(count int) int {
	switch {
	case count == 0:
		return DefaultMaxParallel
	case count < MinParallel:
		return MinParallel
	case count > MaxParallel:
		return MaxParallel
	}
	return count
}

// Watch reloads the settings whenever the config file changes
func (s *Settings) Watch() {
	if s.v.ConfigFileUsed() == "" {
		return
	}
	s.v.OnConfigChange(func(e fsnotify.Event) {
		s.log.Infof("config file changed: %s", e.Name)
		if err := s.reload(); err != nil {
			s.log.Errorf("error reloading config: %v", err)
		}
	})
	s.v.WatchConfig()
}

// OnChange registers fn to run after every reload
func (s *Settings) OnChange(fn func(Config)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = append(s.onChange, fn)
}

// Config returns the current settings
func (s *Settings) Config() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// GetDownloadDirectory returns the configured download directory
func (s *Settings) GetDownloadDirectory() string {
	return s.Config().DownloadDirectory
}

// GetMaxParallelDownloads returns the maximum number of parallel downloads
func (s *Settings) GetMaxParallelDownloads() int {
	return s.Config().MaxParallelDownloads
}

// GetQualityPreset returns the configured quality preset
func (s *Settings) GetQualityPreset() QualityPreset {
	return s.Config().QualityPreset
}
