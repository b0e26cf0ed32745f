package download

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kataras/golog"

	"github.com/ytget/social-downloader/internal/model"
	"github.com/ytget/social-downloader/internal/mux"
	"github.com/ytget/social-downloader/internal/platform"
	"github.com/ytget/social-downloader/internal/selector"
)

// Default extensions when the resolver omits one
const (
	DefaultImageExt = "jpg"
	DefaultVideoExt = "mp4"
	DefaultAudioExt = "m4a"
)

// Messages reported in item results
const (
	MsgUnsupported   = "platform not supported"
	MsgNoMedia       = "no downloadable media found"
	MsgCancelled     = "download cancelled"
	MsgMuxerMissing  = "ffmpeg not available, video and audio saved separately"
	MsgMergeFailed   = "merge failed, video and audio saved separately"
	MsgMissingStream = "stream URL missing"
)

// Service downloads single items
type Service struct {
	resolver  Resolver
	extractor Extractor
	muxer     mux.Muxer
	fetcher   *Fetcher
	log       *golog.Logger

	resolveYouTube bool
}

// Option configures a Service
type Option func(*Service)

// WithResolvedYouTube sends YouTube items through the resolver and muxer
// instead of the extractor.
func WithResolvedYouTube(enabled bool) Option {
	return func(s *Service) { s.resolveYouTube = enabled }
}

// NewService creates a download worker. A nil muxer reports merge_required
// for every two-stream item.
func NewService(resolver Resolver, extractor Extractor, muxer mux.Muxer, fetcher *Fetcher, log *golog.Logger, opts ...Option) *Service {
	if fetcher == nil {
		fetcher = NewFetcher(nil, DefaultChunkSize)
	}
	if log == nil {
		log = golog.Default
	}
	s := &Service{
		resolver:  resolver,
		extractor: extractor,
		muxer:     muxer,
		fetcher:   fetcher,
		log:       log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Download implements Worker. It never panics and never returns an error:
// every outcome is an ItemResult.
func (s *Service) Download(ctx context.Context, item model.DownloadItem) (result model.ItemResult) {
	result = model.ItemResult{URL: item.URL, Title: item.Title}
	defer func() {
		if r := recover(); r != nil {
			s.log.Errorf("download %s panicked: %v", item.URL, r)
			result = failed(result, fmt.Sprintf("internal error: %v", r))
		}
	}()

	if ctx.Err() != nil {
		return cancelled(result)
	}
	if !item.Platform.Supported() {
		return failed(result, MsgUnsupported)
	}

	dir := item.SaveDir
	if dir == "" {
		var err error
		if dir, err = platform.GetHomeDownloadsDir(); err != nil {
			return failed(result, err.Error())
		}
	}
	if err := platform.CreateDirectoryIfNotExists(dir); err != nil {
		return failed(result, fmt.Sprintf("create directory: %v", err))
	}

	if item.Platform == model.PlatformYouTube && !s.resolveYouTube {
		return s.downloadExtracted(ctx, item, dir, result)
	}
	return s.downloadResolved(ctx, item, dir, result)
}

func (s *Service) downloadExtracted(ctx context.Context, item model.DownloadItem, dir string, result model.ItemResult) model.ItemResult {
	if s.extractor == nil {
		return failed(result, MsgUnsupported)
	}
	s.log.Debugf("extracting %s", item.URL)

	out, err := s.extractor.Extract(ctx, item.URL, dir, item.Quality)
	if ctx.Err() != nil {
		return cancelled(result)
	}
	if err != nil {
		return failed(result, err.Error())
	}

	if out.Title != "" {
		result.Title = out.Title
	}
	if out.Filename != "" {
		result.Filename = filepath.Base(out.Filename)
	}
	result.Status = model.ItemStatusSuccess
	return result
}

func (s *Service) downloadResolved(ctx context.Context, item model.DownloadItem, dir string, result model.ItemResult) model.ItemResult {
	if s.resolver == nil {
		return failed(result, MsgUnsupported)
	}

	media, err := s.resolver.Resolve(ctx, item.Platform, item.URL)
	if ctx.Err() != nil {
		return cancelled(result)
	}
	if err != nil {
		return failed(result, err.Error())
	}

	sel := selector.Select(item.Platform, media)
	if sel.Title != "" && result.Title == "" {
		result.Title = sel.Title
	}
	base := platform.SanitizeFilename(sel.ID)

	switch sel.StreamCount {
	case 1:
		stream := sel.Streams[0]
		if stream.URL == "" {
			return failed(result, MsgMissingStream)
		}
		dest := filepath.Join(dir, base+"."+extension(stream))
		if err := s.fetch(ctx, stream.URL, dest); err != nil {
			return s.fetchFailed(ctx, result, err)
		}
		result.Status = model.ItemStatusSuccess
		result.Filename = filepath.Base(dest)
		return result

	case 2:
		return s.downloadAndMerge(ctx, sel, dir, base, result)
	}

	return failed(result, MsgNoMedia)
}

func (s *Service) downloadAndMerge(ctx context.Context, sel model.Selection, dir, base string, result model.ItemResult) model.ItemResult {
	video, audio := sel.Streams[0], sel.Streams[1]
	if video.URL == "" || audio.URL == "" {
		return failed(result, MsgMissingStream)
	}

	videoPath := filepath.Join(dir, base+"_video."+extension(video))
	audioPath := filepath.Join(dir, base+"_audio."+extension(audio))
	output := filepath.Join(dir, base+"."+DefaultVideoExt)

	if err := s.fetch(ctx, video.URL, videoPath); err != nil {
		return s.fetchFailed(ctx, result, err)
	}
	if err := s.fetch(ctx, audio.URL, audioPath); err != nil {
		_ = os.Remove(videoPath)
		return s.fetchFailed(ctx, result, err)
	}

	if s.muxer == nil || !s.muxer.Available() {
		result.Status = model.ItemStatusMergeRequired
		result.Message = MsgMuxerMissing
		result.Filename = filepath.Base(videoPath)
		return result
	}

	if err := s.muxer.Merge(ctx, videoPath, audioPath, output, sel.Title); err != nil {
		if ctx.Err() != nil {
			_ = os.Remove(videoPath)
			_ = os.Remove(audioPath)
			return cancelled(result)
		}
		s.log.Warnf("merge %s: %v", output, err)
		result.Status = model.ItemStatusMergeRequired
		result.Message = fmt.Sprintf("%s: %v", MsgMergeFailed, err)
		result.Filename = filepath.Base(videoPath)
		return result
	}

	result.Status = model.ItemStatusSuccess
	result.Filename = filepath.Base(output)
	return result
}

func (s *Service) fetch(ctx context.Context, url, dest string) error {
	n, err := s.fetcher.Fetch(ctx, url, dest)
	if err == nil {
		s.log.Debugf("saved %s (%d bytes)", dest, n)
	}
	return err
}

func (s *Service) fetchFailed(ctx context.Context, result model.ItemResult, err error) model.ItemResult {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return cancelled(result)
	}
	return failed(result, err.Error())
}

func extension(c model.MediaCandidate) string {
	ext := strings.TrimPrefix(strings.ToLower(c.Extension), ".")
	if ext != "" {
		return platform.SanitizeFilename(ext)
	}
	switch c.Type {
	case model.MediaImage:
		return DefaultImageExt
	case model.MediaAudio:
		return DefaultAudioExt
	}
	return DefaultVideoExt
}

func failed(result model.ItemResult, msg string) model.ItemResult {
	result.Status = model.ItemStatusError
	result.Message = msg
	return result
}

func cancelled(result model.ItemResult) model.ItemResult {
	result.Status = model.ItemStatusCancelled
	result.Message = MsgCancelled
	result.Filename = ""
	return result
}
