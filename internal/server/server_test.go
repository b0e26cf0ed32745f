package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ytget/social-downloader/internal/lister"
	"github.com/ytget/social-downloader/internal/model"
	"github.com/ytget/social-downloader/internal/orchestrator"
	"github.com/ytget/social-downloader/internal/session"
)

type okWorker struct{}

func (okWorker) Download(ctx context.Context, item model.DownloadItem) model.ItemResult {
	return model.ItemResult{URL: item.URL, Status: model.ItemStatusSuccess, Filename: "x.mp4"}
}

func newTestServer(t *testing.T, opts ...Option) *httptest.Server {
	t.Helper()
	noLister := lister.ListerFunc(func(ctx context.Context, item model.URLItem) ([]model.ListedVideo, error) {
		return nil, lister.ErrUnsupported
	})
	registry := session.NewRegistry(noLister, orchestrator.NewEngine(okWorker{}, nil), nil, nil, session.Config{
		Delay: func() time.Duration { return 0 },
	})
	srv := httptest.NewServer(New(registry, nil, opts...).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func readLines(t *testing.T, resp *http.Response) []string {
	t.Helper()
	var lines []string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func TestLoadVideosByList(t *testing.T) {
	srv := newTestServer(t)

	resp := post(t, srv.URL+"/api/load_videos_by_list", `{"urls":"https://fb.watch/a\nhttps://fb.watch/b"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/x-ndjson" {
		t.Errorf("Expected ndjson content type, got %s", ct)
	}

	lines := readLines(t, resp)
	if len(lines) != 1 {
		t.Fatalf("Expected 1 batch line, got %d", len(lines))
	}
	var entries []model.PlaylistEntry
	if err := json.Unmarshal([]byte(lines[0]), &entries); err != nil {
		t.Fatalf("Expected valid JSON, got %v", err)
	}
	if len(entries) != 2 || entries[1].ID != 2 || entries[0].Platform != model.PlatformFacebook {
		t.Errorf("Expected two facebook entries, got %+v", entries)
	}
}

func TestLoadVideosEmptyInput(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name string
		path string
		body string
	}{
		{"by user", "/api/load_videos_by_user", `{"channel_url":""}`},
		{"by list", "/api/load_videos_by_list", `{"urls":"  \n "}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := post(t, srv.URL+tt.path, tt.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("Expected status 400, got %d", resp.StatusCode)
			}
			lines := readLines(t, resp)
			if len(lines) != 1 {
				t.Fatalf("Expected 1 line, got %d", len(lines))
			}
			var got listError
			json.Unmarshal([]byte(lines[0]), &got)
			if !got.Error || got.Message != "Empty input" || got.Status != 400 {
				t.Errorf("Expected empty input error, got %+v", got)
			}
		})
	}
}

func TestDownloadValidation(t *testing.T) {
	srv := newTestServer(t)
	post(t, srv.URL+"/api/load_videos_by_list", `{"urls":"https://fb.watch/a"}`)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"empty list", `{"video_urls":[]}`, http.StatusBadRequest},
		{"unknown url", `{"video_urls":["https://fb.watch/other"]}`, http.StatusBadRequest},
		{"broken json", `{"video_urls":`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := post(t, srv.URL+"/api/download_videos", tt.body)
			if resp.StatusCode != tt.want {
				t.Errorf("Expected status %d, got %d", tt.want, resp.StatusCode)
			}
			var body map[string]any
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Errorf("Expected JSON body, got %v", err)
			}
		})
	}
}

func TestDownloadAndProgress(t *testing.T) {
	srv := newTestServer(t)
	post(t, srv.URL+"/api/load_videos_by_list", `{"urls":"https://fb.watch/a\nhttps://fb.watch/b"}`)

	resp := post(t, srv.URL+"/api/download_videos", `{"video_urls":["https://fb.watch/a","https://fb.watch/b"],"save_path":"`+t.TempDir()+`","quality":"best","concurrent_downloads":2}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
	var started downloadResponse
	if err := json.NewDecoder(resp.Body).Decode(&started); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if started.Status != model.TaskStatusStarted || started.Total != 2 || started.DownloadID == "" {
		t.Fatalf("Expected started response, got %+v", started)
	}

	progress, err := http.Get(srv.URL + "/api/download_progress/" + started.DownloadID)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	defer progress.Body.Close()
	if ct := progress.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Expected event stream, got %s", ct)
	}

	var events []model.ProgressEvent
	for _, line := range readLines(t, progress) {
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev model.ProgressEvent
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev); err != nil {
			t.Fatalf("Expected valid event, got %v", err)
		}
		events = append(events, ev)
	}
	if len(events) != 4 {
		t.Fatalf("Expected 4 events, got %d", len(events))
	}
	if last := events[3]; last.Type != model.EventCompleted || last.Completed != 2 {
		t.Errorf("Expected completed 2/2, got %+v", last)
	}

	snapshot, err := http.Get(srv.URL + "/api/downloads/" + started.DownloadID)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	defer snapshot.Body.Close()
	if snapshot.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", snapshot.StatusCode)
	}
}

func TestProgressInvalidID(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/download_progress/unknown")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	defer resp.Body.Close()

	lines := readLines(t, resp)
	if len(lines) != 1 || lines[0] != `data: {"error":"Invalid download_id"}` {
		t.Errorf("Expected invalid id event, got %v", lines)
	}
}

func TestStopAndHistory(t *testing.T) {
	srv := newTestServer(t)

	resp := post(t, srv.URL+"/api/download/stop", "")
	var msg struct {
		Message string `json:"message"`
	}
	json.NewDecoder(resp.Body).Decode(&msg)
	if msg.Message != "Stop command received" {
		t.Errorf("Expected stop message, got %q", msg.Message)
	}

	history, err := http.Get(srv.URL + "/api/downloads/history?limit=5")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	defer history.Body.Close()
	if history.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", history.StatusCode)
	}

	bad, err := http.Get(srv.URL + "/api/downloads/history?limit=x")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	defer bad.Body.Close()
	if bad.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", bad.StatusCode)
	}
}

func TestChooseDirectory(t *testing.T) {
	tests := []struct {
		name   string
		picked string
		want   string
	}{
		{"cancelled", "", `{"path":null}`},
		{"picked", "/home/me/Videos", `{"path":"/home/me/Videos"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, WithDirectoryPicker(func(context.Context) (string, error) {
				return tt.picked, nil
			}))
			resp, err := http.Get(srv.URL + "/api/choose-directory")
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			defer resp.Body.Close()
			lines := readLines(t, resp)
			if len(lines) != 1 || lines[0] != tt.want {
				t.Errorf("Expected %s, got %v", tt.want, lines)
			}
		})
	}
}

func TestShutdown(t *testing.T) {
	called := make(chan struct{})
	srv := newTestServer(t, WithShutdown(func() { close(called) }))

	resp := post(t, srv.URL+"/shutdown", "")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	select {
	case <-called:
	case <-time.After(time.Second):
		t.Error("Expected shutdown to be triggered")
	}
}

func TestCORSHeaders(t *testing.T) {
	srv := newTestServer(t)

	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/api/download_videos", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	defer resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Expected wildcard origin, got %q", got)
	}
}

func TestPlaylistSnapshot(t *testing.T) {
	srv := newTestServer(t)
	post(t, srv.URL+"/api/load_videos_by_list", `{"urls":"https://fb.watch/a\nhttps://example.com/b"}`)

	resp, err := http.Get(srv.URL + "/api/playlist")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	defer resp.Body.Close()

	var entries []model.PlaylistEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		t.Fatalf("Expected valid JSON, got %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if entries[0].Status != model.EntryStatusReady || entries[1].Status != model.EntryStatusError {
		t.Errorf("Expected ready then error entries, got %+v", entries)
	}
}
