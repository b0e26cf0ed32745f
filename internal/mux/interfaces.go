package mux

import "context"

// Muxer merges a separate video and audio stream into one container
type Muxer interface {
	Available() bool
	Merge(ctx context.Context, videoPath, audioPath, outputPath, title string) error
}
