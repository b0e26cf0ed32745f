// Package model defines domain data structures shared across the backend:
// classified URLs, media candidates, the playlist session, download tasks,
// per-item results and progress events. Structures are plain values that
// serialize directly into the HTTP responses.
package model
