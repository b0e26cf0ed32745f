// Package lister expands channel/user URLs into the videos they published.
package lister

import (
	"context"
	"errors"
	"fmt"

	"github.com/kataras/golog"

	"github.com/ytget/social-downloader/internal/model"
)

// ErrUnsupported indicates a lister cannot handle the given channel
var ErrUnsupported = errors.New("channel listing not supported")

// Lister returns the videos of one channel item
type Lister interface {
	List(ctx context.Context, item model.URLItem) ([]model.ListedVideo, error)
}

// ListerFunc adapts a function to Lister
type ListerFunc func(ctx context.Context, item model.URLItem) ([]model.ListedVideo, error)

// List implements Lister
func (f ListerFunc) List(ctx context.Context, item model.URLItem) ([]model.ListedVideo, error) {
	return f(ctx, item)
}

// Router dispatches channel items to the lister of their platform
type Router struct {
	listers map[model.Platform]Lister
}

// NewRouter creates an empty router
func NewRouter() *Router {
	return &Router{listers: make(map[model.Platform]Lister)}
}

// Register sets the lister for platform
func (r *Router) Register(platform model.Platform, l Lister) *Router {
	r.listers[platform] = l
	return r
}

// List implements Lister
func (r *Router) List(ctx context.Context, item model.URLItem) ([]model.ListedVideo, error) {
	if item.Kind != model.KindChannel {
		return nil, fmt.Errorf("%w: %s is not a channel", ErrUnsupported, item.URL)
	}
	l, ok := r.listers[item.Platform]
	if !ok {
		return nil, fmt.Errorf("%w: platform %q", ErrUnsupported, item.Platform)
	}
	return l.List(ctx, item)
}

// Chain tries listers in order and returns the first successful listing
type Chain struct {
	listers []Lister
	log     *golog.Logger
}

// NewChain creates a fallback chain
func NewChain(log *golog.Logger, listers ...Lister) *Chain {
	if log == nil {
		log = golog.Default
	}
	return &Chain{listers: listers, log: log}
}

// List implements Lister
func (c *Chain) List(ctx context.Context, item model.URLItem) ([]model.ListedVideo, error) {
	lastErr := fmt.Errorf("%w: %s", ErrUnsupported, item.URL)
	for _, l := range c.listers {
		videos, err := l.List(ctx, item)
		if err == nil {
			return videos, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !errors.Is(err, ErrUnsupported) {
			c.log.Warnf("listing %s failed, trying next source: %v", item.URL, err)
		}
		lastErr = err
	}
	return nil, lastErr
}
