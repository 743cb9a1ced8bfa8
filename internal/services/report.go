package services

import (
	"errors"
	"sort"

	"github.com/warmofmeme/memeboard/internal/models"
	"github.com/warmofmeme/memeboard/internal/repository"
)

// ReportServiceConfig describes the dependencies of the report service.
type ReportServiceConfig struct {
	Memes *repository.Memes
	Users *repository.Users
}

// ReportService aggregates the collection data behind the moderator reports.
// Rendering is left to the caller.
type ReportService struct {
	memes *repository.Memes
	users *repository.Users
}

// NewReportService constructs the report service.
func NewReportService(cfg ReportServiceConfig) (*ReportService, error) {
	if cfg.Memes == nil || cfg.Users == nil {
		return nil, errors.New("services: meme and user repositories are required")
	}
	return &ReportService{memes: cfg.Memes, users: cfg.Users}, nil
}

// CategoryCount is one bar of the category popularity breakdown.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// CategoryReport is the category popularity breakdown. HasData is false when
// there are no memes at all.
type CategoryReport struct {
	HasData    bool            `json:"hasData"`
	Categories []CategoryCount `json:"categories"`
}

// TopUploader is one row of the uploader ranking.
type TopUploader struct {
	Rank         int    `json:"rank"`
	Username     string `json:"username"`
	TotalUploads int    `json:"totalUploads"`
	TotalWins    int    `json:"totalWins"`
	TotalLikes   int    `json:"totalLikes"`
}

// CategoryBreakdown counts memes per category, most popular first. Ties are
// broken alphabetically so the report is stable.
func (s *ReportService) CategoryBreakdown() (CategoryReport, error) {
	memes, err := s.memes.All()
	if err != nil {
		return CategoryReport{}, err
	}
	if len(memes) == 0 {
		return CategoryReport{Categories: []CategoryCount{}}, nil
	}

	counts := map[string]int{}
	for _, meme := range memes {
		counts[meme.Category]++
	}
	categories := make([]CategoryCount, 0, len(counts))
	for category, count := range counts {
		categories = append(categories, CategoryCount{Category: category, Count: count})
	}
	sort.Slice(categories, func(i, j int) bool {
		if categories[i].Count != categories[j].Count {
			return categories[i].Count > categories[j].Count
		}
		return categories[i].Category < categories[j].Category
	})
	return CategoryReport{HasData: true, Categories: categories}, nil
}

// TopMemes returns the most voted memes, at most limit of them.
func (s *ReportService) TopMemes(limit int) ([]models.Meme, error) {
	return s.memes.Trending(limit, repository.TrendingFilter{})
}

// TopUploaders ranks users by upload count, at most limit rows.
func (s *ReportService) TopUploaders(limit int) ([]TopUploader, error) {
	users, err := s.users.All()
	if err != nil {
		return nil, err
	}
	sort.SliceStable(users, func(i, j int) bool {
		return users[i].Stats.TotalUploads > users[j].Stats.TotalUploads
	})
	if limit > 0 && len(users) > limit {
		users = users[:limit]
	}

	rows := make([]TopUploader, 0, len(users))
	for i, user := range users {
		rows = append(rows, TopUploader{
			Rank:         i + 1,
			Username:     user.Username,
			TotalUploads: user.Stats.TotalUploads,
			TotalWins:    user.Stats.TotalWins,
			TotalLikes:   user.Stats.TotalLikes,
		})
	}
	return rows, nil
}
