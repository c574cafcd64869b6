package youtube

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/noah-isme/edutrack-api/pkg/config"
)

const dataAPIPageSize = 50

// DataAPIStrategy reads playlists through the YouTube Data API v3.
type DataAPIStrategy struct {
	client   *resty.Client
	apiKey   string
	maxItems int
}

type playlistsResponse struct {
	Items []struct {
		Snippet struct {
			Title string `json:"title"`
		} `json:"snippet"`
	} `json:"items"`
}

type playlistItemsResponse struct {
	NextPageToken string `json:"nextPageToken"`
	Items         []struct {
		Snippet struct {
			Title      string `json:"title"`
			ResourceID struct {
				VideoID string `json:"videoId"`
			} `json:"resourceId"`
		} `json:"snippet"`
	} `json:"items"`
}

type apiErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewDataAPIStrategy builds the strategy from configuration.
func NewDataAPIStrategy(cfg config.PlaylistConfig) *DataAPIStrategy {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := resty.New().
		SetBaseURL(cfg.APIBaseURL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetHeader("Accept", "application/json")
	return &DataAPIStrategy{client: client, apiKey: cfg.APIKey, maxItems: cfg.MaxItems}
}

// Name implements Strategy.
func (s *DataAPIStrategy) Name() string { return "data_api" }

// Fetch implements Strategy.
func (s *DataAPIStrategy) Fetch(ctx context.Context, playlistID string) (*Playlist, error) {
	var meta playlistsResponse
	var apiErr apiErrorResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"part": "snippet", "id": playlistID, "key": s.apiKey}).
		SetResult(&meta).
		SetError(&apiErr).
		Get("/playlists")
	if err != nil {
		return nil, fmt.Errorf("fetch playlist: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch playlist: status %d: %s", resp.StatusCode(), apiErr.Error.Message)
	}
	if len(meta.Items) == 0 {
		return nil, fmt.Errorf("playlist %s not found", playlistID)
	}

	playlist := &Playlist{ID: playlistID, Title: meta.Items[0].Snippet.Title}
	pageToken := ""
	for {
		var page playlistItemsResponse
		req := s.client.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"part":       "snippet",
				"playlistId": playlistID,
				"maxResults": strconv.Itoa(dataAPIPageSize),
				"key":        s.apiKey,
			}).
			SetResult(&page).
			SetError(&apiErr)
		if pageToken != "" {
			req.SetQueryParam("pageToken", pageToken)
		}
		resp, err := req.Get("/playlistItems")
		if err != nil {
			return nil, fmt.Errorf("fetch playlist items: %w", err)
		}
		if resp.IsError() {
			return nil, fmt.Errorf("fetch playlist items: status %d: %s", resp.StatusCode(), apiErr.Error.Message)
		}
		for _, item := range page.Items {
			playlist.Entries = append(playlist.Entries, Entry{
				ID:    item.Snippet.ResourceID.VideoID,
				Title: item.Snippet.Title,
			})
			if s.maxItems > 0 && len(playlist.Entries) >= s.maxItems {
				return playlist, nil
			}
		}
		if page.NextPageToken == "" {
			return playlist, nil
		}
		pageToken = page.NextPageToken
	}
}
