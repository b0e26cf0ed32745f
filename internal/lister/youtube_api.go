package lister

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"github.com/ytget/social-downloader/internal/model"
)

const apiPageSize = 50

// APILister lists a channel's uploads through the YouTube Data API v3,
// including view/like/comment counts.
type APILister struct {
	Client *youtube.Service
}

// NewAPILister creates a lister authenticated with an API key
func NewAPILister(ctx context.Context, apiKey string, opts ...option.ClientOption) (*APILister, error) {
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	client, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("youtube service: %w", err)
	}
	return &APILister{Client: client}, nil
}

// List implements Lister
func (a *APILister) List(ctx context.Context, item model.URLItem) ([]model.ListedVideo, error) {
	if item.Platform != model.PlatformYouTube {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, item.URL)
	}

	uploads, err := a.uploadsPlaylist(ctx, item.URL)
	if err != nil {
		return nil, err
	}

	var videos []model.ListedVideo
	pageToken := ""
	for {
		call := a.Client.PlaylistItems.
			List([]string{"contentDetails"}).
			PlaylistId(uploads).
			MaxResults(apiPageSize)
		if pageToken != "" {
			call.PageToken(pageToken)
		}

		response, err := call.Context(ctx).Do()
		if err != nil {
			return videos, fmt.Errorf("list uploads: %w", err)
		}

		ids := make([]string, 0, len(response.Items))
		for _, it := range response.Items {
			if it.ContentDetails != nil && it.ContentDetails.VideoId != "" {
				ids = append(ids, it.ContentDetails.VideoId)
			}
		}

		page, err := a.fetchMetadata(ctx, ids)
		if err != nil {
			return videos, err
		}
		videos = append(videos, page...)

		pageToken = response.NextPageToken
		if pageToken == "" {
			break
		}
	}
	return videos, nil
}

func (a *APILister) uploadsPlaylist(ctx context.Context, url string) (string, error) {
	call := a.Client.Channels.List([]string{"contentDetails"})
	switch {
	case channelID(url) != "":
		call.Id(channelID(url))
	case channelHandle(url) != "":
		call.ForHandle(channelHandle(url))
	default:
		return "", fmt.Errorf("%w: no channel id or handle in %s", ErrUnsupported, url)
	}

	response, err := call.Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("lookup channel: %w", err)
	}
	if len(response.Items) == 0 || response.Items[0].ContentDetails == nil ||
		response.Items[0].ContentDetails.RelatedPlaylists == nil {
		return "", fmt.Errorf("channel not found: %s", url)
	}
	return response.Items[0].ContentDetails.RelatedPlaylists.Uploads, nil
}

func (a *APILister) fetchMetadata(ctx context.Context, ids []string) ([]model.ListedVideo, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	response, err := a.Client.Videos.
		List([]string{"snippet", "statistics"}).
		Id(strings.Join(ids, ",")).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("fetch video metadata: %w", err)
	}

	videos := make([]model.ListedVideo, 0, len(response.Items))
	for _, item := range response.Items {
		v := model.ListedVideo{URL: fmt.Sprintf(YouTubeVideoURLTemplate, item.Id)}
		if item.Snippet != nil {
			v.Title = item.Snippet.Title
		}
		if item.Statistics != nil {
			v.Views = int64(item.Statistics.ViewCount)
			v.Likes = int64(item.Statistics.LikeCount)
			v.Comments = int64(item.Statistics.CommentCount)
			v.Collects = int64(item.Statistics.FavoriteCount)
		}
		videos = append(videos, v)
	}
	return videos, nil
}
