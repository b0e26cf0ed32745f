package lister

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lrstanley/go-ytdlp"

	"github.com/ytget/social-downloader/internal/model"
)

// FlatRunner returns yt-dlp single-JSON output for a flat playlist extraction
type FlatRunner func(ctx context.Context, url string) (string, error)

// YTDLPFlat runs yt-dlp through go-ytdlp without downloading anything
func YTDLPFlat(executable string) FlatRunner {
	return func(ctx context.Context, url string) (string, error) {
		dl := ytdlp.New().
			FlatPlaylist().
			DumpSingleJSON().
			IgnoreErrors()
		if executable != "" {
			dl.SetExecutable(executable)
		}
		result, err := dl.Run(ctx, url)
		if result != nil && result.Stdout != "" {
			return result.Stdout, nil
		}
		if err != nil {
			return "", fmt.Errorf("yt-dlp flat extraction: %w", err)
		}
		return "", nil
	}
}

// FlatLister lists channels with yt-dlp flat extraction. YouTube channels
// are read from their videos and shorts tabs.
type FlatLister struct {
	run FlatRunner
}

// NewFlatLister creates a flat lister
func NewFlatLister(run FlatRunner) *FlatLister {
	return &FlatLister{run: run}
}

type flatEntry struct {
	ID           string `json:"id"`
	URL          string `json:"url"`
	WebpageURL   string `json:"webpage_url"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	ViewCount    int64  `json:"view_count"`
	LikeCount    int64  `json:"like_count"`
	CommentCount int64  `json:"comment_count"`
	RepostCount  int64  `json:"repost_count"`
	SaveCount    int64  `json:"save_count"`
}

type flatPlaylist struct {
	Entries []*flatEntry `json:"entries"`
}

// List implements Lister
func (f *FlatLister) List(ctx context.Context, item model.URLItem) ([]model.ListedVideo, error) {
	var targets []string
	switch item.Platform {
	case model.PlatformYouTube:
		base := channelBase(item.URL)
		targets = []string{base + "/videos", base + "/shorts"}
	case model.PlatformTikTok:
		targets = []string{item.URL}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, item.URL)
	}

	var videos []model.ListedVideo
	var lastErr error
	for _, target := range targets {
		out, err := f.run(ctx, target)
		if err != nil {
			lastErr = err
			continue
		}
		entries, err := parseFlatOutput(out, item.Platform)
		if err != nil {
			lastErr = err
			continue
		}
		videos = append(videos, entries...)
	}
	if len(videos) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return videos, nil
}

// parseFlatOutput parses a yt-dlp single-JSON playlist dump
func parseFlatOutput(output string, platform model.Platform) ([]model.ListedVideo, error) {
	output = strings.TrimSpace(output)
	if output == "" {
		return nil, nil
	}
	var pl flatPlaylist
	if err := json.Unmarshal([]byte(output), &pl); err != nil {
		return nil, fmt.Errorf("decode yt-dlp output: %w", err)
	}

	videos := make([]model.ListedVideo, 0, len(pl.Entries))
	for _, e := range pl.Entries {
		if e == nil || e.ID == "" {
			continue
		}
		title := e.Title
		if title == "" {
			title = e.Description
		}
		videos = append(videos, model.ListedVideo{
			URL:      entryURL(e, platform),
			Title:    title,
			Views:    e.ViewCount,
			Likes:    e.LikeCount,
			Comments: e.CommentCount,
			Shares:   e.RepostCount,
			Collects: e.SaveCount,
		})
	}
	return videos, nil
}

func entryURL(e *flatEntry, platform model.Platform) string {
	if platform == model.PlatformYouTube {
		return fmt.Sprintf(YouTubeVideoURLTemplate, e.ID)
	}
	if e.WebpageURL != "" {
		return e.WebpageURL
	}
	return e.URL
}
