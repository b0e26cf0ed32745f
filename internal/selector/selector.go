// Package selector picks the streams to download from a resolver catalog.
package selector

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/ytget/social-downloader/internal/model"
)

// MaxHeight is the highest video height picked while a lower one exists
const MaxHeight = 1080

const facebookReelPrefix = "https://www.facebook.com/reel/"

var labelHeightRe = regexp.MustCompile(`(\d{3,4})p\b`)

// Select picks at most one video and one audio stream for platform.
// A failed or empty catalog yields a Selection with StreamCount 0.
func Select(platform model.Platform, media *model.ResolvedMedia) model.Selection {
	if !media.Succeeded() || len(media.Medias) == 0 {
		status := "error"
		if media != nil && media.Status != "" {
			status = media.Status
		}
		return model.Selection{Status: status}
	}

	var video, audio *model.MediaCandidate
	switch platform {
	case model.PlatformYouTube:
		video = BestVideo(media.Medias)
		audio = BestAudio(media.Medias)
	case model.PlatformTikTok, model.PlatformDouyin, model.PlatformFacebook:
		video = &media.Medias[0]
	default:
		for i := range media.Medias {
			if strings.EqualFold(media.Medias[i].Extension, "mp4") {
				video = &media.Medias[i]
				break
			}
		}
	}

	var streams []model.MediaCandidate
	for _, c := range []*model.MediaCandidate{video, audio} {
		if c != nil {
			streams = append(streams, *c)
		}
	}

	return model.Selection{
		Status:      media.Status,
		ID:          mediaID(platform, media),
		Title:       media.Title,
		URL:         media.URL,
		Thumbnail:   media.Thumbnail,
		Duration:    media.Duration,
		StreamCount: len(streams),
		Streams:     streams,
	}
}

func mediaID(platform model.Platform, media *model.ResolvedMedia) string {
	if media.ID != "" {
		return media.ID
	}
	if platform == model.PlatformFacebook && strings.HasPrefix(media.URL, facebookReelPrefix) {
		id := strings.TrimPrefix(media.URL, facebookReelPrefix)
		if i := strings.IndexAny(id, "/?"); i >= 0 {
			id = id[:i]
		}
		if id != "" {
			return id
		}
	}
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// ParseHeight returns the candidate height, parsing labels like "MP4 (1080p)"
// when the field is missing. Unknown heights are -1.
func ParseHeight(c model.MediaCandidate) int {
	if c.Height > 0 {
		return c.Height
	}
	if m := labelHeightRe.FindStringSubmatch(c.Label); m != nil {
		if h, err := strconv.Atoi(m[1]); err == nil {
			return h
		}
	}
	return -1
}

// BestVideo returns the best video candidate, or nil if there is none
func BestVideo(candidates []model.MediaCandidate) *model.MediaCandidate {
	var best *model.MediaCandidate
	for i := range candidates {
		c := &candidates[i]
		if c.Type != model.MediaVideo {
			continue
		}
		if best == nil || betterVideo(c, best) {
			best = c
		}
	}
	return best
}

func betterVideo(a, b *model.MediaCandidate) bool {
	ha, hb := ParseHeight(*a), ParseHeight(*b)
	okA, okB := ha <= MaxHeight, hb <= MaxHeight

	switch {
	case okA != okB:
		return okA
	case ha != hb && okA:
		return ha > hb
	case ha != hb:
		// both over the cap: closest to it wins
		return ha < hb
	}

	if ra, rb := videoExtRank(a.Extension), videoExtRank(b.Extension); ra != rb {
		return ra < rb
	}
	if a.Bitrate != b.Bitrate {
		return a.Bitrate > b.Bitrate
	}
	return a.FPS > b.FPS
}

func videoExtRank(ext string) int {
	if strings.EqualFold(ext, "mp4") {
		return 0
	}
	return 1
}

// BestAudio returns the best audio candidate, or nil if there is none
func BestAudio(candidates []model.MediaCandidate) *model.MediaCandidate {
	var best *model.MediaCandidate
	for i := range candidates {
		c := &candidates[i]
		if c.Type != model.MediaAudio {
			continue
		}
		if best == nil ||
			c.Bitrate > best.Bitrate ||
			(c.Bitrate == best.Bitrate && audioExtRank(c.Extension) < audioExtRank(best.Extension)) {
			best = c
		}
	}
	return best
}

func audioExtRank(ext string) int {
	switch strings.ToLower(ext) {
	case "m4a":
		return 0
	case "mp4":
		return 1
	case "webm":
		return 2
	}
	return 99
}
