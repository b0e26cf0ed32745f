package download

import (
	"context"

	"github.com/ytget/social-downloader/internal/model"
)

// Resolver turns a post URL into a catalog of downloadable streams
type Resolver interface {
	Resolve(ctx context.Context, platform model.Platform, url string) (*model.ResolvedMedia, error)
}

// ExtractResult is what the external extractor produced
type ExtractResult struct {
	Filename string
	Title    string
}

// Extractor downloads a URL end-to-end into dir as one opaque call
type Extractor interface {
	Extract(ctx context.Context, url, dir, quality string) (ExtractResult, error)
}

// Worker downloads one item and always returns a result
type Worker interface {
	Download(ctx context.Context, item model.DownloadItem) model.ItemResult
}
