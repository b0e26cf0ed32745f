package session

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/ytget/social-downloader/internal/classify"
	"github.com/ytget/social-downloader/internal/model"
)

// Batch receives one batch of newly added playlist entries
type Batch func([]model.PlaylistEntry) error

// GaussianDelay returns a pause drawn around one second, never below 100ms
func GaussianDelay() time.Duration {
	secs := math.Max(0.1, rand.NormFloat64()*0.5+1)
	return time.Duration(secs * float64(time.Second))
}

// ListChannel replaces the playlist with the videos of one channel and
// emits them in batches.
func (r *Registry) ListChannel(ctx context.Context, channelURL string, emit Batch) error {
	urls := classify.SplitLines(channelURL)
	if len(urls) == 0 {
		return ErrEmptyRequest
	}
	item := classify.ClassifyURL(urls[0])
	if item.Kind != model.KindChannel {
		return fmt.Errorf("%w: %s", ErrNotChannel, urls[0])
	}

	p := r.resetPlaylist(item.URL)
	videos, err := r.lister.List(ctx, item)
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", item.URL, err)
	}
	r.log.Infof("listed %d videos for %s", len(videos), item.URL)

	b := r.newBatcher(p, emit, true)
	for _, v := range videos {
		video := model.URLItem{URL: v.URL, Platform: item.Platform, Kind: model.KindVideo}
		if err := b.add(ctx, video, v); err != nil {
			return err
		}
	}
	return b.flush()
}

// ListURLs replaces the playlist with the classified URLs of text. Channel
// URLs are expanded through the lister. Entries are emitted in batches.
func (r *Registry) ListURLs(ctx context.Context, text string, emit Batch) error {
	urls := classify.SplitLines(text)
	if len(urls) == 0 {
		return ErrEmptyRequest
	}

	p := r.resetPlaylist("list")
	b := r.newBatcher(p, emit, false)

	for _, group := range classify.Classify(urls) {
		for _, item := range group {
			if item.Kind != model.KindChannel {
				if err := b.add(ctx, item, model.ListedVideo{}); err != nil {
					return err
				}
				continue
			}

			videos, err := r.lister.List(ctx, item)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				r.log.Warnf("failed to expand %s: %v", item.URL, err)
				if err := b.add(ctx, item, model.ListedVideo{}); err != nil {
					return err
				}
				continue
			}
			for _, v := range videos {
				video := model.URLItem{URL: v.URL, Platform: item.Platform, Kind: model.KindVideo}
				if err := b.add(ctx, video, v); err != nil {
					return err
				}
			}
		}
		if err := b.flush(); err != nil {
			return err
		}
	}

	r.mu.Lock()
	listed := p.Len()
	r.mu.Unlock()
	r.log.Infof("listed %d entries from %d urls", listed, len(urls))
	return nil
}

func (r *Registry) resetPlaylist(source string) *model.Playlist {
	p := model.NewPlaylist(source)
	r.mu.Lock()
	r.playlist = p
	r.mu.Unlock()
	return p
}

type batcher struct {
	r       *Registry
	p       *model.Playlist
	emit    Batch
	delayed bool
	pending []model.PlaylistEntry
}

func (r *Registry) newBatcher(p *model.Playlist, emit Batch, delayed bool) *batcher {
	return &batcher{r: r, p: p, emit: emit, delayed: delayed}
}

func (b *batcher) add(ctx context.Context, item model.URLItem, listed model.ListedVideo) error {
	b.r.mu.Lock()
	entry, added := b.p.AddEntry(item, listed)
	b.r.mu.Unlock()
	if !added {
		return nil
	}

	b.pending = append(b.pending, *entry)
	if len(b.pending) < b.r.cfg.BatchSize {
		return nil
	}
	if err := b.flush(); err != nil {
		return err
	}
	if b.delayed {
		return b.r.pause(ctx)
	}
	return nil
}

func (b *batcher) flush() error {
	if len(b.pending) == 0 {
		return nil
	}
	batch := b.pending
	b.pending = nil
	return b.emit(batch)
}

func (r *Registry) pause(ctx context.Context) error {
	d := r.cfg.Delay()
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
