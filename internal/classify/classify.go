// Package classify sorts raw input URLs by platform and separates single
// videos from channel/user handles. It performs no network calls.
package classify

import (
	"strings"

	"github.com/ytget/social-downloader/internal/model"
)

// SplitLines splits a newline-joined URL list, trimming entries and
// dropping blank lines.
func SplitLines(text string) []string {
	lines := strings.FieldsFunc(text, func(r rune) bool {
		return r == '\n' || r == '\r'
	})
	urls := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			urls = append(urls, line)
		}
	}
	return urls
}

// Classify groups urls. Every channel becomes its own single-element group;
// all videos share one batch group which comes first when non-empty.
func Classify(urls []string) [][]model.URLItem {
	var groups [][]model.URLItem
	var videos []model.URLItem

	for _, raw := range urls {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		item := ClassifyURL(raw)
		if item.Kind == model.KindChannel {
			groups = append(groups, []model.URLItem{item})
			continue
		}
		videos = append(videos, item)
	}

	if len(videos) > 0 {
		groups = append([][]model.URLItem{videos}, groups...)
	}
	return groups
}

// ClassifyURL classifies a single URL
func ClassifyURL(url string) model.URLItem {
	switch {
	case strings.Contains(url, "tiktok.com"):
		if strings.HasPrefix(lastSegment(stripQuery(url)), "@") {
			return channel(url, model.PlatformTikTok, "")
		}
		return video(stripQuery(url), model.PlatformTikTok)

	case strings.Contains(url, "douyin.com"):
		if strings.Contains(url, "/user/") {
			return channel(url, model.PlatformDouyin, lastSegment(stripQuery(url)))
		}
		return video(url, model.PlatformDouyin)

	case strings.Contains(url, "youtube.com"), strings.Contains(url, "youtu.be"):
		if strings.Contains(url, "/channel/") || strings.HasPrefix(lastSegment(url), "@") {
			return channel(url, model.PlatformYouTube, "")
		}
		return video(url, model.PlatformYouTube)

	case strings.Contains(url, "facebook.com"), strings.Contains(url, "fb.watch"):
		return video(url, model.PlatformFacebook)
	}

	return video(url, model.PlatformNone)
}

func video(url string, p model.Platform) model.URLItem {
	return model.URLItem{URL: url, Platform: p, Kind: model.KindVideo}
}

func channel(url string, p model.Platform, id string) model.URLItem {
	return model.URLItem{URL: url, Platform: p, Kind: model.KindChannel, ChannelID: id}
}

func stripQuery(url string) string {
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		return url[:i]
	}
	return url
}

func lastSegment(url string) string {
	url = strings.TrimRight(url, "/")
	if i := strings.LastIndex(url, "/"); i >= 0 {
		return url[i+1:]
	}
	return url
}
