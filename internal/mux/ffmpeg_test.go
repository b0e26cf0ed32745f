package mux

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestBuildMergeArgs(t *testing.T) {
	tests := []struct {
		name     string
		audio    string
		output   string
		title    string
		expected []string
	}{
		{
			name:   "copy m4a",
			audio:  "a.m4a",
			output: "out.mp4",
			title:  "Clip",
			expected: []string{
				"-y", "-i", "v.mp4", "-i", "a.m4a",
				"-map", "0:v:0", "-map", "1:a:0",
				"-c:v", "copy", "-c:a", "copy",
				"-metadata", "title=Clip",
				"-movflags", "+faststart",
				"out.mp4",
			},
		},
		{
			name:   "transcode webm",
			audio:  "a.webm",
			output: "out.mkv",
			expected: []string{
				"-y", "-i", "v.mp4", "-i", "a.webm",
				"-map", "0:v:0", "-map", "1:a:0",
				"-c:v", "copy", "-c:a", "aac", "-b:a", "192k",
				"out.mkv",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildMergeArgs("v.mp4", tt.audio, tt.output, tt.title)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestNewFFmpegMuxer(t *testing.T) {
	if m := NewFFmpegMuxer(""); m.Path != FFmpegCommand {
		t.Errorf("Expected default path %q, got %q", FFmpegCommand, m.Path)
	}
	if m := NewFFmpegMuxer("/opt/ffmpeg"); m.Path != "/opt/ffmpeg" {
		t.Errorf("Expected custom path, got %q", m.Path)
	}
}

func TestFFmpegMuxer_Unavailable(t *testing.T) {
	m := NewFFmpegMuxer(filepath.Join(t.TempDir(), "missing-ffmpeg"))
	if m.Available() {
		t.Error("Expected missing binary to be unavailable")
	}
}

func TestFFmpegMuxer_MergeFailureKeepsInputs(t *testing.T) {
	dir := t.TempDir()
	video := filepath.Join(dir, "v.mp4")
	audio := filepath.Join(dir, "a.m4a")
	out := filepath.Join(dir, "out.mp4")
	for _, p := range []string{video, audio} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	m := NewFFmpegMuxer(filepath.Join(dir, "missing-ffmpeg"))
	if err := m.Merge(context.Background(), video, audio, out, ""); err == nil {
		t.Fatal("Expected merge error")
	}
	for _, p := range []string{video, audio} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("Expected input %s to be kept: %v", p, err)
		}
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Error("Expected no output file")
	}
}
