package model

// Platform identifies the social network a URL belongs to
type Platform string

const (
	PlatformYouTube  Platform = "youtube"
	PlatformTikTok   Platform = "tiktok"
	PlatformDouyin   Platform = "douyin"
	PlatformFacebook Platform = "facebook"
	// PlatformNone marks URLs no downloader supports
	PlatformNone Platform = ""
)

// Supported returns true if a downloader exists for the platform
func (p Platform) Supported() bool {
	switch p {
	case PlatformYouTube, PlatformTikTok, PlatformDouyin, PlatformFacebook:
		return true
	}
	return false
}

// ItemKind tells single videos from channel/user handles
type ItemKind string

const (
	KindVideo   ItemKind = "video"
	KindChannel ItemKind = "channel"
)

// URLItem is one classified input URL
type URLItem struct {
	URL      string   `json:"url"`
	Platform Platform `json:"platform"`
	Kind     ItemKind `json:"type"`
	// ChannelID is the platform user id needed for listing (Douyin sec_user_id)
	ChannelID string `json:"channel_id,omitempty"`
}

// MediaType is the kind of stream a candidate carries
type MediaType string

const (
	MediaVideo MediaType = "video"
	MediaAudio MediaType = "audio"
	MediaImage MediaType = "image"
)

// MediaCandidate describes one downloadable stream returned by the resolver
type MediaCandidate struct {
	Type      MediaType `json:"type"`
	URL       string    `json:"url"`
	Extension string    `json:"ext"`
	Height    int       `json:"height,omitempty"`
	Bitrate   int       `json:"bitrate,omitempty"`
	FPS       int       `json:"fps,omitempty"`
	Label     string    `json:"label,omitempty"`
}

// ResolvedMedia is the resolver catalog for one URL
type ResolvedMedia struct {
	Status    string           `json:"status"`
	ID        string           `json:"id,omitempty"`
	Title     string           `json:"title,omitempty"`
	URL       string           `json:"url,omitempty"`
	Thumbnail string           `json:"thumbnail,omitempty"`
	Duration  string           `json:"duration,omitempty"`
	Medias    []MediaCandidate `json:"medias"`
}

// Succeeded returns true if the resolver reported success
func (r *ResolvedMedia) Succeeded() bool {
	return r != nil && r.Status == "success"
}

// Selection is the stream selector output: at most one video and one audio stream
type Selection struct {
	Status      string           `json:"status"`
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	URL         string           `json:"url"`
	Thumbnail   string           `json:"thumbnail"`
	Duration    string           `json:"duration"`
	StreamCount int              `json:"cnt"`
	Streams     []MediaCandidate `json:"medias"`
}

// ListedVideo is one raw entry returned by a channel lister
type ListedVideo struct {
	URL      string `json:"url"`
	Title    string `json:"title"`
	Views    int64  `json:"views"`
	Likes    int64  `json:"likes"`
	Comments int64  `json:"comments"`
	Shares   int64  `json:"shares"`
	Collects int64  `json:"collects"`
}

// DownloadItem is a playlist entry prepared for download
type DownloadItem struct {
	URLItem
	Title   string
	SaveDir string
	Quality string
}
