package youtube

import (
	"context"
	"encoding/xml"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/noah-isme/edutrack-api/pkg/config"
)

// FeedStrategy reads the public Atom feed of a playlist. The feed needs no
// credentials but only lists the most recent entries.
type FeedStrategy struct {
	client   *resty.Client
	feedURL  string
	maxItems int
}

type atomFeed struct {
	XMLName xml.Name    `xml:"feed"`
	Title   string      `xml:"title"`
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	VideoID string `xml:"videoId"`
	Title   string `xml:"title"`
	Links   []struct {
		Rel  string `xml:"rel,attr"`
		Href string `xml:"href,attr"`
	} `xml:"link"`
}

// NewFeedStrategy builds the strategy from configuration.
func NewFeedStrategy(cfg config.PlaylistConfig) *FeedStrategy {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)
	return &FeedStrategy{client: client, feedURL: cfg.FeedBaseURL, maxItems: cfg.MaxItems}
}

// Name implements Strategy.
func (s *FeedStrategy) Name() string { return "feed" }

// Fetch implements Strategy.
func (s *FeedStrategy) Fetch(ctx context.Context, playlistID string) (*Playlist, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParam("playlist_id", playlistID).
		Get(s.feedURL)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch feed: status %d", resp.StatusCode())
	}

	var feed atomFeed
	if err := xml.Unmarshal(resp.Body(), &feed); err != nil {
		return nil, fmt.Errorf("decode feed: %w", err)
	}

	playlist := &Playlist{ID: playlistID, Title: feed.Title}
	for _, e := range feed.Entries {
		entry := Entry{ID: e.VideoID, Title: e.Title}
		for _, link := range e.Links {
			if link.Rel == "" || link.Rel == "alternate" {
				entry.URL = link.Href
				break
			}
		}
		playlist.Entries = append(playlist.Entries, entry)
		if s.maxItems > 0 && len(playlist.Entries) >= s.maxItems {
			break
		}
	}
	return playlist, nil
}
