package download

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ytget/social-downloader/internal/model"
)

type stubResolver struct {
	media *model.ResolvedMedia
	err   error
	calls int
}

func (r *stubResolver) Resolve(ctx context.Context, p model.Platform, url string) (*model.ResolvedMedia, error) {
	r.calls++
	return r.media, r.err
}

type stubExtractor struct {
	out ExtractResult
	err error
	got string
}

func (e *stubExtractor) Extract(ctx context.Context, url, dir, quality string) (ExtractResult, error) {
	e.got = quality
	return e.out, e.err
}

type stubMuxer struct {
	available bool
	err       error
	merged    bool
}

func (m *stubMuxer) Available() bool { return m.available }

func (m *stubMuxer) Merge(ctx context.Context, videoPath, audioPath, outputPath, title string) error {
	if m.err != nil {
		return m.err
	}
	m.merged = true
	if err := os.WriteFile(outputPath, []byte("merged"), 0o644); err != nil {
		return err
	}
	os.Remove(videoPath)
	os.Remove(audioPath)
	return nil
}

func streamServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte("payload:" + r.URL.Path))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func item(p model.Platform, dir string) model.DownloadItem {
	return model.DownloadItem{
		URLItem: model.URLItem{URL: "https://example/" + string(p), Platform: p, Kind: model.KindVideo},
		SaveDir: dir,
		Quality: QualityBest,
	}
}

func TestService_SingleVideo(t *testing.T) {
	srv := streamServer(t)
	dir := t.TempDir()
	res := &stubResolver{media: &model.ResolvedMedia{
		Status: "success", ID: "abc", Title: "clip",
		Medias: []model.MediaCandidate{{Type: model.MediaVideo, URL: srv.URL + "/v", Extension: "mp4"}},
	}}

	s := NewService(res, nil, nil, NewFetcher(srv.Client(), 3), nil)
	result := s.Download(context.Background(), item(model.PlatformTikTok, dir))

	if result.Status != model.ItemStatusSuccess {
		t.Fatalf("Expected success, got %s (%s)", result.Status, result.Message)
	}
	if result.Filename != "abc.mp4" || result.Title != "clip" {
		t.Errorf("Unexpected result %+v", result)
	}
	data, err := os.ReadFile(filepath.Join(dir, "abc.mp4"))
	if err != nil || string(data) != "payload:/v" {
		t.Errorf("Unexpected file content %q (%v)", data, err)
	}
}

func TestService_ImageDefaultExtension(t *testing.T) {
	srv := streamServer(t)
	dir := t.TempDir()
	res := &stubResolver{media: &model.ResolvedMedia{
		Status: "success", ID: "a/b",
		Medias: []model.MediaCandidate{{Type: model.MediaImage, URL: srv.URL + "/i"}},
	}}

	result := NewService(res, nil, nil, NewFetcher(srv.Client(), 0), nil).Download(context.Background(), item(model.PlatformDouyin, dir))
	if result.Status != model.ItemStatusSuccess || result.Filename != "ab.jpg" {
		t.Errorf("Expected ab.jpg, got %+v", result)
	}
}

func TestService_TwoStreams(t *testing.T) {
	srv := streamServer(t)
	media := &model.ResolvedMedia{
		Status: "success", ID: "yt1",
		Medias: []model.MediaCandidate{
			{Type: model.MediaVideo, URL: srv.URL + "/v", Extension: "mp4", Height: 720},
			{Type: model.MediaAudio, URL: srv.URL + "/a", Extension: "m4a", Bitrate: 128},
		},
	}

	tests := []struct {
		name     string
		muxer    *stubMuxer
		status   model.ItemStatus
		filename string
		files    []string
	}{
		{"merged", &stubMuxer{available: true}, model.ItemStatusSuccess, "yt1.mp4", []string{"yt1.mp4"}},
		{"no muxer", &stubMuxer{available: false}, model.ItemStatusMergeRequired, "yt1_video.mp4", []string{"yt1_video.mp4", "yt1_audio.m4a"}},
		{"merge fails", &stubMuxer{available: true, err: errors.New("bad codec")}, model.ItemStatusMergeRequired, "yt1_video.mp4", []string{"yt1_video.mp4", "yt1_audio.m4a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			s := NewService(&stubResolver{media: media}, &stubExtractor{}, tt.muxer, NewFetcher(srv.Client(), 0), nil, WithResolvedYouTube(true))
			result := s.Download(context.Background(), item(model.PlatformYouTube, dir))

			if result.Status != tt.status {
				t.Fatalf("Expected %s, got %s (%s)", tt.status, result.Status, result.Message)
			}
			if result.Filename != tt.filename {
				t.Errorf("Expected filename %s, got %s", tt.filename, result.Filename)
			}
			for _, f := range tt.files {
				if _, err := os.Stat(filepath.Join(dir, f)); err != nil {
					t.Errorf("Expected %s to exist: %v", f, err)
				}
			}
		})
	}
}

func TestService_Errors(t *testing.T) {
	srv := streamServer(t)

	tests := []struct {
		name     string
		platform model.Platform
		resolver *stubResolver
		contains string
	}{
		{"unsupported", model.PlatformNone, &stubResolver{}, MsgUnsupported},
		{"resolver error", model.PlatformTikTok, &stubResolver{err: errors.New("upstream down")}, "upstream down"},
		{"empty catalog", model.PlatformFacebook, &stubResolver{media: &model.ResolvedMedia{Status: "success"}}, MsgNoMedia},
		{"http 404", model.PlatformDouyin, &stubResolver{media: &model.ResolvedMedia{
			Status: "success", ID: "x",
			Medias: []model.MediaCandidate{{Type: model.MediaVideo, URL: srv.URL + "/missing", Extension: "mp4"}},
		}}, "404"},
		{"missing url", model.PlatformDouyin, &stubResolver{media: &model.ResolvedMedia{
			Status: "success", ID: "x",
			Medias: []model.MediaCandidate{{Type: model.MediaVideo, Extension: "mp4"}},
		}}, MsgMissingStream},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewService(tt.resolver, nil, nil, NewFetcher(srv.Client(), 0), nil)
			result := s.Download(context.Background(), item(tt.platform, t.TempDir()))
			if result.Status != model.ItemStatusError {
				t.Fatalf("Expected error status, got %s", result.Status)
			}
			if !strings.Contains(result.Message, tt.contains) {
				t.Errorf("Expected message containing %q, got %q", tt.contains, result.Message)
			}
		})
	}
}

func TestService_CancelledBeforeStart(t *testing.T) {
	res := &stubResolver{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := NewService(res, nil, nil, nil, nil).Download(ctx, item(model.PlatformTikTok, t.TempDir()))
	if result.Status != model.ItemStatusCancelled {
		t.Errorf("Expected cancelled, got %s", result.Status)
	}
	if res.calls != 0 {
		t.Errorf("Expected no resolver call, got %d", res.calls)
	}
}

func TestService_YouTube(t *testing.T) {
	ext := &stubExtractor{out: ExtractResult{Filename: "/tmp/x/Title [id].mp4", Title: "Title"}}
	res := &stubResolver{}
	s := NewService(res, ext, nil, nil, nil)

	it := item(model.PlatformYouTube, t.TempDir())
	it.Quality = QualityMedium
	result := s.Download(context.Background(), it)

	if result.Status != model.ItemStatusSuccess || result.Filename != "Title [id].mp4" || result.Title != "Title" {
		t.Errorf("Unexpected result %+v", result)
	}
	if ext.got != QualityMedium {
		t.Errorf("Expected quality to be passed through, got %q", ext.got)
	}
	if res.calls != 0 {
		t.Error("Expected resolver to be bypassed for YouTube")
	}

	ext.err = errors.New("yt-dlp: exit status 1")
	if result := s.Download(context.Background(), it); result.Status != model.ItemStatusError {
		t.Errorf("Expected error, got %s", result.Status)
	}
}

func TestQualityFormat(t *testing.T) {
	tests := []struct {
		quality  string
		expected string
	}{
		{QualityBest, "bv*[height<=1080]+ba/best"},
		{QualityMedium, "bv*[height<=720]+ba/best[height<=720]/best"},
		{QualityAudio, "ba/best"},
		{"Cao nhất", "bv*[height<=1080]+ba/best"},
		{"", "bv*[height<=1080]+ba/best"},
	}

	for _, tt := range tests {
		if got := QualityFormat(tt.quality); got != tt.expected {
			t.Errorf("QualityFormat(%q) = %q, expected %q", tt.quality, got, tt.expected)
		}
	}
}
