package session

import "errors"

var (
	// ErrEmptyRequest is returned for listing or download requests without URLs
	ErrEmptyRequest = errors.New("empty input")

	// ErrNotChannel is returned when a channel listing gets a URL that is not a channel
	ErrNotChannel = errors.New("not a channel url")

	// ErrUnknownURL is returned when a download names URLs absent from the playlist
	ErrUnknownURL = errors.New("url not in playlist")

	// ErrTaskNotFound is returned for unknown or already consumed task ids
	ErrTaskNotFound = errors.New("invalid download_id")

	// ErrAlreadyStreaming is returned when a second consumer attaches to a task
	ErrAlreadyStreaming = errors.New("download is already being streamed")
)
