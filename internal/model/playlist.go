package model

import (
	"time"
)

// PlaylistEntry represents a single listed video in the playlist session
type PlaylistEntry struct {
	ID       int         `json:"id"`
	URL      string      `json:"url"`
	Caption  string      `json:"caption"`
	Comments int64       `json:"comments"`
	Likes    int64       `json:"likes"`
	Views    int64       `json:"views"`
	Collects int64       `json:"collects"`
	Shares   int64       `json:"shares"`
	Status   EntryStatus `json:"status"`
	Platform Platform    `json:"platform"`
	Type     ItemKind    `json:"type"`
	// ChannelID is kept for entries that were added unexpanded
	ChannelID string `json:"-"`
}

// DownloadItem converts the entry into a worker input
func (e *PlaylistEntry) DownloadItem(saveDir, quality string) DownloadItem {
	return DownloadItem{
		URLItem: URLItem{
			URL:       e.URL,
			Platform:  e.Platform,
			Kind:      e.Type,
			ChannelID: e.ChannelID,
		},
		Title:   e.Caption,
		SaveDir: saveDir,
		Quality: quality,
	}
}

// Playlist is the listing session: an ordered, URL-keyed set of entries
type Playlist struct {
	Source    string
	entries   map[string]*PlaylistEntry
	order     []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewPlaylist creates a new empty playlist session
func NewPlaylist(source string) *Playlist {
	now := time.Now()
	return &Playlist{
		Source:    source,
		entries:   make(map[string]*PlaylistEntry),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AddEntry adds a listed video to the playlist. Duplicate URLs are ignored
// and reported with false.
func (p *Playlist) AddEntry(item URLItem, listed ListedVideo) (*PlaylistEntry, bool) {
	url := listed.URL
	if url == "" {
		url = item.URL
	}
	if _, exists := p.entries[url]; exists {
		return nil, false
	}

	status := EntryStatusReady
	if !item.Platform.Supported() {
		status = EntryStatusError
	}

	entry := &PlaylistEntry{
		ID:        len(p.order) + 1,
		URL:       url,
		Caption:   listed.Title,
		Comments:  listed.Comments,
		Likes:     listed.Likes,
		Views:     listed.Views,
		Collects:  listed.Collects,
		Shares:    listed.Shares,
		Status:    status,
		Platform:  item.Platform,
		Type:      item.Kind,
		ChannelID: item.ChannelID,
	}
	p.entries[url] = entry
	p.order = append(p.order, url)
	p.UpdatedAt = time.Now()
	return entry, true
}

// Get returns the entry for a URL
func (p *Playlist) Get(url string) (*PlaylistEntry, bool) {
	entry, exists := p.entries[url]
	return entry, exists
}

// Entries returns entries in insertion order
func (p *Playlist) Entries() []*PlaylistEntry {
	entries := make([]*PlaylistEntry, 0, len(p.order))
	for _, url := range p.order {
		entries = append(entries, p.entries[url])
	}
	return entries
}

// Len returns the number of entries
func (p *Playlist) Len() int {
	return len(p.order)
}

// Missing returns the URLs that are not part of the playlist
func (p *Playlist) Missing(urls []string) []string {
	var missing []string
	for _, url := range urls {
		if _, exists := p.entries[url]; !exists {
			missing = append(missing, url)
		}
	}
	return missing
}
