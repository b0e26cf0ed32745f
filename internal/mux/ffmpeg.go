// Package mux merges separately downloaded video and audio streams with ffmpeg.
package mux

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// FFmpeg constants for merge settings
const (
	FFmpegCommand = "ffmpeg"

	// Audio codec used when the source audio cannot be copied into mp4
	AudioCodec   = "aac"
	AudioBitrate = "192k"

	FastStartFlag = "+faststart"

	maxStderrTail = 512
)

// FFmpegMuxer implements Muxer using the ffmpeg command line tool
type FFmpegMuxer struct {
	Path string
}

// NewFFmpegMuxer returns a muxer. An empty path looks ffmpeg up in PATH.
func NewFFmpegMuxer(path string) *FFmpegMuxer {
	if path == "" {
		path = FFmpegCommand
	}
	return &FFmpegMuxer{Path: path}
}

// Available checks if ffmpeg is executable
func (f *FFmpegMuxer) Available() bool {
	_, err := exec.LookPath(f.Path)
	return err == nil
}

// BuildMergeArgs builds the ffmpeg arguments for a stream-copy merge.
// Audio is re-encoded to AAC unless it is already mp4-compatible.
func BuildMergeArgs(videoPath, audioPath, outputPath, title string) []string {
	args := []string{
		"-y",
		"-i", videoPath,
		"-i", audioPath,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", "copy",
	}

	switch strings.ToLower(filepath.Ext(audioPath)) {
	case ".m4a", ".mp4", ".aac":
		args = append(args, "-c:a", "copy")
	default:
		args = append(args, "-c:a", AudioCodec, "-b:a", AudioBitrate)
	}

	if title != "" {
		args = append(args, "-metadata", "title="+title)
	}
	if strings.EqualFold(filepath.Ext(outputPath), ".mp4") {
		args = append(args, "-movflags", FastStartFlag)
	}
	return append(args, outputPath)
}

// Merge merges video and audio into outputPath and deletes the inputs on
// success. A failed or cancelled merge removes the partial output and keeps
// the inputs.
func (f *FFmpegMuxer) Merge(ctx context.Context, videoPath, audioPath, outputPath, title string) error {
	cmd := exec.CommandContext(ctx, f.Path, BuildMergeArgs(videoPath, audioPath, outputPath, title)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		_ = os.Remove(outputPath)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("ffmpeg merge failed: %w: %s", err, tail(stderr.String()))
	}

	_ = os.Remove(videoPath)
	_ = os.Remove(audioPath)
	return nil
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxStderrTail {
		return s[len(s)-maxStderrTail:]
	}
	return s
}
