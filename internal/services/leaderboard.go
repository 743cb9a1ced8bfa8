package services

import (
	"errors"

	"github.com/warmofmeme/memeboard/internal/models"
	"github.com/warmofmeme/memeboard/internal/repository"
)

const (
	leaderboardSize     = 10
	leaderboardPageSize = 3
	leaderboardPodium   = 3
)

// LeaderboardServiceConfig describes the dependencies of the leaderboard
// service.
type LeaderboardServiceConfig struct {
	Memes *repository.Memes
	Users *repository.Users
}

// LeaderboardService produces the ranked top-ten view: the first three
// entries form a fixed podium, the rest are paged three at a time.
type LeaderboardService struct {
	memes *repository.Memes
	users *repository.Users
}

// NewLeaderboardService constructs the leaderboard service.
func NewLeaderboardService(cfg LeaderboardServiceConfig) (*LeaderboardService, error) {
	if cfg.Memes == nil || cfg.Users == nil {
		return nil, errors.New("services: meme and user repositories are required")
	}
	return &LeaderboardService{memes: cfg.Memes, users: cfg.Users}, nil
}

// LeaderboardEntry is one ranked meme enriched with its uploader's display
// fields.
type LeaderboardEntry struct {
	Rank        int         `json:"rank"`
	Meme        models.Meme `json:"meme"`
	Username    string      `json:"username"`
	UserTitle   string      `json:"userTitle,omitempty"`
	IsModerator bool        `json:"isModerator"`
}

// Leaderboard is the full ranked view plus its pagination shape.
type Leaderboard struct {
	Podium    []LeaderboardEntry   `json:"podium"`
	Pages     [][]LeaderboardEntry `json:"pages"`
	PageCount int                  `json:"pageCount"`
}

// Top returns the ranked entries for the filter, at most ten.
func (s *LeaderboardService) Top(filter repository.TrendingFilter) ([]LeaderboardEntry, error) {
	memes, err := s.memes.Trending(leaderboardSize, filter)
	if err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, 0, len(memes))
	for i, meme := range memes {
		entry := LeaderboardEntry{Rank: i + 1, Meme: meme, Username: meme.Username}
		if user, err := s.users.ByID(meme.UserID); err == nil && user != nil {
			entry.Username = user.Username
			entry.UserTitle = user.Title
			entry.IsModerator = user.Role == models.RoleModerator
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Build assembles the podium plus the remaining ranks grouped into pages of
// three. An empty result has a zero page count.
func (s *LeaderboardService) Build(filter repository.TrendingFilter) (Leaderboard, error) {
	entries, err := s.Top(filter)
	if err != nil {
		return Leaderboard{}, err
	}

	board := Leaderboard{Podium: []LeaderboardEntry{}, Pages: [][]LeaderboardEntry{}}
	podiumEnd := min(leaderboardPodium, len(entries))
	board.Podium = entries[:podiumEnd]

	for start := podiumEnd; start < len(entries); start += leaderboardPageSize {
		end := min(start+leaderboardPageSize, len(entries))
		board.Pages = append(board.Pages, entries[start:end])
	}
	board.PageCount = len(board.Pages)
	return board, nil
}
