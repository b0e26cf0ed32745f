package resolver

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/ytget/social-downloader/internal/model"
)

// flexInt accepts numbers, numeric strings and null
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	if len(b) == 0 || string(b) == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexInt(v)
	return nil
}

// flexString accepts strings, numbers and null
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	*f = flexString(strings.TrimSpace(string(b)))
	return nil
}

type wireMedia struct {
	Type      string     `json:"type"`
	URL       string     `json:"url"`
	Ext       string     `json:"ext"`
	Extension string     `json:"extension"`
	Height    flexInt    `json:"height"`
	Bitrate   flexInt    `json:"bitrate"`
	FPS       flexInt    `json:"fps"`
	Label     flexString `json:"label"`
}

type wireResponse struct {
	Status    string      `json:"status"`
	ID        flexString  `json:"id"`
	Title     flexString  `json:"title"`
	URL       string      `json:"url"`
	Thumbnail string      `json:"thumbnail"`
	Duration  flexString  `json:"duration"`
	Medias    []wireMedia `json:"medias"`
}

func (w *wireResponse) toModel() *model.ResolvedMedia {
	media := &model.ResolvedMedia{
		Status:    w.Status,
		ID:        string(w.ID),
		Title:     string(w.Title),
		URL:       w.URL,
		Thumbnail: w.Thumbnail,
		Duration:  string(w.Duration),
		Medias:    make([]model.MediaCandidate, 0, len(w.Medias)),
	}
	for _, m := range w.Medias {
		ext := m.Ext
		if ext == "" {
			ext = m.Extension
		}
		media.Medias = append(media.Medias, model.MediaCandidate{
			Type:      model.MediaType(strings.ToLower(m.Type)),
			URL:       m.URL,
			Extension: strings.ToLower(ext),
			Height:    int(m.Height),
			Bitrate:   int(m.Bitrate),
			FPS:       int(m.FPS),
			Label:     string(m.Label),
		})
	}
	return media
}
