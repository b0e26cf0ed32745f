package lister

import (
	"strings"
)

// YouTubeVideoURLTemplate builds a watch URL from a video id
const YouTubeVideoURLTemplate = "https://www.youtube.com/watch?v=%s"

// channelID returns the UC... id of a /channel/ URL
func channelID(url string) string {
	const marker = "/channel/"
	i := strings.Index(url, marker)
	if i < 0 {
		return ""
	}
	id := url[i+len(marker):]
	if j := strings.IndexAny(id, "/?#"); j >= 0 {
		id = id[:j]
	}
	return id
}

// channelHandle returns the @handle of a channel URL, without the @
func channelHandle(url string) string {
	for _, seg := range strings.Split(stripQuery(url), "/") {
		if strings.HasPrefix(seg, "@") && len(seg) > 1 {
			return seg[1:]
		}
	}
	return ""
}

// channelBase trims tab suffixes and queries so tabs can be appended
func channelBase(url string) string {
	url = strings.TrimRight(stripQuery(url), "/")
	for _, tab := range []string{"/videos", "/shorts", "/streams", "/featured"} {
		url = strings.TrimSuffix(url, tab)
	}
	return url
}

func stripQuery(url string) string {
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		return url[:i]
	}
	return url
}
