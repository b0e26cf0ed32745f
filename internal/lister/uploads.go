package lister

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ytget/ytdlp/v2"

	"github.com/ytget/social-downloader/internal/model"
)

// DefaultParseTimeout bounds one uploads playlist crawl
const DefaultParseTimeout = 60 * time.Second

// UploadsLister reads the uploads playlist of a /channel/UC... URL
// without an API key.
type UploadsLister struct {
	timeout time.Duration
}

// NewUploadsLister creates a new uploads lister
func NewUploadsLister() *UploadsLister {
	return &UploadsLister{timeout: DefaultParseTimeout}
}

// SetTimeout sets the timeout for listing operations
func (u *UploadsLister) SetTimeout(timeout time.Duration) {
	u.timeout = timeout
}

// List implements Lister
func (u *UploadsLister) List(ctx context.Context, item model.URLItem) ([]model.ListedVideo, error) {
	playlistID := uploadsPlaylistID(item.URL)
	if item.Platform != model.PlatformYouTube || playlistID == "" {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, item.URL)
	}

	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	d := ytdlp.New()
	items, err := d.GetPlaylistItemsAll(ctx, playlistID, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to get playlist items: %v", err)
	}

	videos := make([]model.ListedVideo, 0, len(items))
	for _, it := range items {
		videos = append(videos, model.ListedVideo{
			URL:   fmt.Sprintf(YouTubeVideoURLTemplate, it.VideoID),
			Title: it.Title,
		})
	}
	return videos, nil
}

// uploadsPlaylistID maps a UC channel id to its UU uploads playlist
func uploadsPlaylistID(url string) string {
	id := channelID(url)
	if !strings.HasPrefix(id, "UC") || len(id) < 3 {
		return ""
	}
	return "UU" + id[2:]
}
