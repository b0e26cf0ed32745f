// Package download implements the per-item download worker. YouTube items
// go through yt-dlp (via github.com/lrstanley/go-ytdlp); every other platform
// is resolved to direct stream URLs that are fetched in large chunks and,
// when video and audio arrive separately, merged with ffmpeg.
package download
