// Package youtube extracts playlist metadata used to seed course catalogs.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/edutrack-api/pkg/config"
)

const (
	defaultPlaylistTitle = "Untitled Playlist"
	defaultVideoTitle    = "Untitled Video"
	watchURLPrefix       = "https://www.youtube.com/watch?v="
)

var (
	// ErrInvalidURL is returned when a URL carries no playlist id.
	ErrInvalidURL = errors.New("invalid youtube playlist url")
	// ErrNoEntries is returned when a playlist yields no usable videos.
	ErrNoEntries = errors.New("no videos found in playlist")
	// ErrUnavailable is returned when every strategy failed.
	ErrUnavailable = errors.New("playlist metadata unavailable")

	playlistIDPattern = regexp.MustCompile(`[?&]list=([a-zA-Z0-9_-]+)`)
)

// Playlist is the raw metadata returned by a strategy.
type Playlist struct {
	ID      string
	Title   string
	Entries []Entry
}

// Entry is a single playlist item. Either ID or URL identifies the video.
type Entry struct {
	ID    string
	Title string
	URL   string
}

// Video is a normalised playlist entry ready to be stored.
type Video struct {
	Title string
	Link  string
}

// Result is a normalised playlist.
type Result struct {
	PlaylistID string
	Title      string
	Videos     []Video
}

// Strategy fetches playlist metadata from one source.
type Strategy interface {
	Name() string
	Fetch(ctx context.Context, playlistID string) (*Playlist, error)
}

// Extractor runs strategies in order until one yields entries.
type Extractor struct {
	strategies []Strategy
	logger     *zap.Logger
}

// NewExtractor builds an extractor from explicit strategies.
func NewExtractor(logger *zap.Logger, strategies ...Strategy) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{strategies: strategies, logger: logger}
}

// New wires the Data API strategy, when a key is configured, ahead of the
// public feed strategy.
func New(cfg config.PlaylistConfig, logger *zap.Logger) *Extractor {
	var strategies []Strategy
	if cfg.APIKey != "" {
		strategies = append(strategies, NewDataAPIStrategy(cfg))
	}
	strategies = append(strategies, NewFeedStrategy(cfg))
	return NewExtractor(logger, strategies...)
}

// ParsePlaylistID returns the list= identifier of a playlist URL.
func ParsePlaylistID(rawURL string) (string, error) {
	match := playlistIDPattern.FindStringSubmatch(rawURL)
	if len(match) < 2 {
		return "", ErrInvalidURL
	}
	return match[1], nil
}

// Extract resolves the playlist behind rawURL and normalises its entries.
func (e *Extractor) Extract(ctx context.Context, rawURL string) (*Result, error) {
	id, err := ParsePlaylistID(rawURL)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for _, strategy := range e.strategies {
		playlist, err := strategy.Fetch(ctx, id)
		if err != nil {
			e.logger.Warn("playlist strategy failed", zap.String("strategy", strategy.Name()), zap.String("playlist_id", id), zap.Error(err))
			lastErr = err
			continue
		}
		if playlist == nil || len(playlist.Entries) == 0 {
			lastErr = ErrNoEntries
			continue
		}
		result := Normalize(playlist)
		if len(result.Videos) == 0 {
			e.logger.Warn("playlist strategy yielded no usable videos", zap.String("strategy", strategy.Name()), zap.String("playlist_id", id))
			lastErr = ErrNoEntries
			continue
		}
		e.logger.Info("playlist extracted", zap.String("strategy", strategy.Name()), zap.String("playlist_id", id), zap.Int("videos", len(result.Videos)))
		return result, nil
	}

	if errors.Is(lastErr, ErrNoEntries) {
		return nil, ErrNoEntries
	}
	if lastErr == nil {
		lastErr = errors.New("no strategies configured")
	}
	return nil, fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

// Normalize applies default titles and resolves entry links, skipping
// entries without a usable watch URL.
func Normalize(p *Playlist) *Result {
	title := strings.TrimSpace(p.Title)
	if title == "" {
		title = defaultPlaylistTitle
	}
	result := &Result{PlaylistID: p.ID, Title: title}
	for _, entry := range p.Entries {
		link, ok := VideoLink(entry)
		if !ok {
			continue
		}
		videoTitle := strings.TrimSpace(entry.Title)
		if videoTitle == "" {
			videoTitle = defaultVideoTitle
		}
		result.Videos = append(result.Videos, Video{Title: videoTitle, Link: link})
	}
	return result
}

// VideoLink returns the canonical watch URL for an entry.
func VideoLink(entry Entry) (string, bool) {
	if entry.ID != "" {
		return watchURLPrefix + entry.ID, true
	}
	if strings.Contains(entry.URL, "youtube.com/watch") || strings.Contains(entry.URL, "youtu.be") {
		link := strings.SplitN(entry.URL, "&", 2)[0]
		link = strings.SplitN(link, "?si=", 2)[0]
		return link, true
	}
	return "", false
}
