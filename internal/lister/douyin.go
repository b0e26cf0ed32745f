package lister

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/ytget/social-downloader/internal/model"
)

const (
	// DouyinPostEndpoint lists the posts of one user
	DouyinPostEndpoint = "https://www.douyin.com/aweme/v1/web/aweme/post/"

	// DouyinVideoURLTemplate builds a post URL from an aweme id
	DouyinVideoURLTemplate = "https://douyin.com/video/%s"

	douyinUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/90.0.4430.212 Safari/537.36"
	douyinPageSize  = 50
	douyinMaxPages  = 200
)

// Signer adds request signature parameters to a Douyin query
type Signer interface {
	Sign(query url.Values, userAgent string) error
}

type noSigner struct{}

func (noSigner) Sign(url.Values, string) error { return nil }

// DouyinLister pages through a user's posts with the max_cursor cursor
type DouyinLister struct {
	endpoint string
	cookie   string
	signer   Signer
	http     *http.Client
}

// NewDouyinLister creates a lister. A nil signer sends unsigned requests.
func NewDouyinLister(endpoint, cookie string, signer Signer, hc *http.Client) *DouyinLister {
	if endpoint == "" {
		endpoint = DouyinPostEndpoint
	}
	if signer == nil {
		signer = noSigner{}
	}
	if hc == nil {
		hc = http.DefaultClient
	}
	return &DouyinLister{endpoint: endpoint, cookie: cookie, signer: signer, http: hc}
}

type douyinPage struct {
	AwemeList []struct {
		AwemeID    string `json:"aweme_id"`
		Desc       string `json:"desc"`
		Caption    string `json:"caption"`
		ItemTitle  string `json:"item_title"`
		Statistics struct {
			PlayCount    int64 `json:"play_count"`
			DiggCount    int64 `json:"digg_count"`
			CommentCount int64 `json:"comment_count"`
			ShareCount   int64 `json:"share_count"`
			CollectCount int64 `json:"collect_count"`
		} `json:"statistics"`
	} `json:"aweme_list"`
	MaxCursor int64 `json:"max_cursor"`
	HasMore   int   `json:"has_more"`
}

// List implements Lister
func (d *DouyinLister) List(ctx context.Context, item model.URLItem) ([]model.ListedVideo, error) {
	if item.Platform != model.PlatformDouyin || item.ChannelID == "" {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, item.URL)
	}

	var videos []model.ListedVideo
	var cursor int64
	for page := 0; page < douyinMaxPages; page++ {
		p, err := d.fetchPage(ctx, item.ChannelID, cursor)
		if err != nil {
			return videos, err
		}
		for _, a := range p.AwemeList {
			if a.AwemeID == "" {
				continue
			}
			title := a.Desc
			if title == "" {
				title = a.Caption
			}
			if title == "" {
				title = a.ItemTitle
			}
			videos = append(videos, model.ListedVideo{
				URL:      fmt.Sprintf(DouyinVideoURLTemplate, a.AwemeID),
				Title:    title,
				Views:    a.Statistics.PlayCount,
				Likes:    a.Statistics.DiggCount,
				Comments: a.Statistics.CommentCount,
				Shares:   a.Statistics.ShareCount,
				Collects: a.Statistics.CollectCount,
			})
		}
		if p.HasMore == 0 {
			break
		}
		cursor = p.MaxCursor
	}
	return videos, nil
}

func (d *DouyinLister) fetchPage(ctx context.Context, secUserID string, cursor int64) (*douyinPage, error) {
	q := url.Values{}
	q.Set("device_platform", "webapp")
	q.Set("aid", "6383")
	q.Set("channel", "channel_pc_web")
	q.Set("pc_client_type", "1")
	q.Set("version_code", "290100")
	q.Set("version_name", "29.1.0")
	q.Set("cookie_enabled", "true")
	q.Set("platform", "PC")
	q.Set("from_user_page", "1")
	q.Set("publish_video_strategy_type", "2")
	q.Set("sec_user_id", secUserID)
	q.Set("max_cursor", strconv.FormatInt(cursor, 10))
	q.Set("count", strconv.Itoa(douyinPageSize))
	if err := d.signer.Sign(q, douyinUserAgent); err != nil {
		return nil, fmt.Errorf("sign douyin request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", douyinUserAgent)
	req.Header.Set("Referer", "https://www.douyin.com/")
	req.Header.Set("Accept-Language", "zh-CN,zh;q=0.8,en-US;q=0.3,en;q=0.2")
	if d.cookie != "" {
		req.Header.Set("Cookie", d.cookie)
	}

	resp, err := d.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("douyin request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("douyin http status=%d", resp.StatusCode)
	}

	var p douyinPage
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode douyin page: %w", err)
	}
	return &p, nil
}
