package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/warmofmeme/memeboard/internal/aspect"
	"github.com/warmofmeme/memeboard/internal/domain"
	"github.com/warmofmeme/memeboard/internal/models"
	"github.com/warmofmeme/memeboard/internal/repository"
	"go.uber.org/zap"
)

const achievementTarget = "AchievementService"

// AchievementServiceConfig describes the dependencies of the achievement
// service.
type AchievementServiceConfig struct {
	Achievements *repository.Achievements
	Users        *repository.Users
	Memes        *repository.Memes
	Aspects      *aspect.Registry
	Clock        func() time.Time
	Logger       *zap.Logger
}

// AchievementService manages the badge catalog and evaluates unlock rules
// against user stats.
type AchievementService struct {
	achievements *repository.Achievements
	users        *repository.Users
	memes        *repository.Memes
	aspects      *aspect.Registry
	clock        func() time.Time
	logger       *zap.Logger
}

// NewAchievementService constructs the achievement service.
func NewAchievementService(cfg AchievementServiceConfig) (*AchievementService, error) {
	if cfg.Achievements == nil || cfg.Users == nil || cfg.Memes == nil {
		return nil, errMissingRepositories
	}
	if cfg.Aspects == nil {
		return nil, errMissingRegistry
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AchievementService{
		achievements: cfg.Achievements,
		users:        cfg.Users,
		memes:        cfg.Memes,
		aspects:      cfg.Aspects,
		clock:        clock,
		logger:       logger,
	}, nil
}

// AchievementInput is the payload for creating or updating an achievement.
type AchievementInput struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Icon        string             `json:"icon"`
	Requirement models.Requirement `json:"requirement"`
	Color       string             `json:"color"`
	TextColor   string             `json:"textColor"`
}

// Validate applies the achievement field rules.
func (in AchievementInput) Validate() error {
	messages := []string{}
	if len(strings.TrimSpace(in.Name)) < 3 {
		messages = append(messages, "Achievement name must be at least 3 characters long")
	}
	if len(strings.TrimSpace(in.Description)) < 10 {
		messages = append(messages, "Description must be at least 10 characters long")
	}
	switch in.Requirement.Type {
	case models.RequirementNone:
	case models.RequirementUpload, models.RequirementSingleVote, models.RequirementTotalVotes:
		if in.Requirement.Count < 1 {
			messages = append(messages, "Requirement count must be at least 1")
		}
	default:
		messages = append(messages, "A requirement type must be selected")
	}
	if len(messages) > 0 {
		return domain.NewValidationError(messages...)
	}
	return nil
}

// CreateAchievement adds a badge to the catalog. Moderator only.
func (s *AchievementService) CreateAchievement(ctx context.Context, input AchievementInput) (models.Achievement, error) {
	call := aspect.Call{
		Target:       achievementTarget,
		Operation:    "CreateAchievement",
		Capabilities: aspect.CapMutating | aspect.CapRequiresAuth | aspect.CapRequiresModerator | aspect.CapValidated,
		Payload:      input,
	}
	return aspect.Do(s.aspects, ctx, call, func(context.Context) (models.Achievement, error) {
		return s.achievements.Create(models.Achievement{
			Name:        input.Name,
			Description: input.Description,
			Icon:        input.Icon,
			Requirement: input.Requirement,
			Color:       input.Color,
			TextColor:   input.TextColor,
		})
	})
}

// UpdateAchievement merges the patch onto the achievement. Moderator only.
func (s *AchievementService) UpdateAchievement(ctx context.Context, id string, patch models.AchievementPatch) (*models.Achievement, error) {
	call := aspect.Call{
		Target:       achievementTarget,
		Operation:    "UpdateAchievement",
		Capabilities: aspect.CapMutating | aspect.CapRequiresAuth | aspect.CapRequiresModerator,
	}
	return aspect.Do(s.aspects, ctx, call, func(context.Context) (*models.Achievement, error) {
		updated, err := s.achievements.Update(id, patch)
		if err != nil {
			return nil, err
		}
		if updated == nil {
			return nil, fmt.Errorf("achievement %s: %w", id, domain.ErrNotFound)
		}
		return updated, nil
	})
}

// DeleteAchievement removes the achievement from the catalog. Unlock records
// already stamped onto users are kept. Moderator only.
func (s *AchievementService) DeleteAchievement(ctx context.Context, id string) (bool, error) {
	call := aspect.Call{
		Target:       achievementTarget,
		Operation:    "DeleteAchievement",
		Capabilities: aspect.CapMutating | aspect.CapRequiresAuth | aspect.CapRequiresModerator,
	}
	return aspect.Do(s.aspects, ctx, call, func(context.Context) (bool, error) {
		removed, err := s.achievements.Delete(id)
		if err != nil {
			return false, err
		}
		if !removed {
			return false, fmt.Errorf("achievement %s: %w", id, domain.ErrNotFound)
		}
		return true, nil
	})
}

// Achievements returns the full catalog.
func (s *AchievementService) Achievements() ([]models.Achievement, error) {
	return s.achievements.All()
}

// Achievement returns the achievement by id, or ErrNotFound.
func (s *AchievementService) Achievement(id string) (*models.Achievement, error) {
	achievement, err := s.achievements.ByID(id)
	if err != nil {
		return nil, err
	}
	if achievement == nil {
		return nil, fmt.Errorf("achievement %s: %w", id, domain.ErrNotFound)
	}
	return achievement, nil
}

// CheckUnlocks evaluates every catalog requirement against the user's stats
// and appends unlock records for the ones newly satisfied. It returns the
// achievements unlocked by this pass.
func (s *AchievementService) CheckUnlocks(ctx context.Context, userID string) ([]models.Achievement, error) {
	call := aspect.Call{
		Target:       achievementTarget,
		Operation:    "CheckUnlocks",
		Capabilities: aspect.CapMutating,
	}
	return aspect.Do(s.aspects, ctx, call, func(context.Context) ([]models.Achievement, error) {
		user, err := s.users.ByID(userID)
		if err != nil {
			return nil, err
		}
		if user == nil {
			return nil, fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
		}

		catalog, err := s.achievements.All()
		if err != nil {
			return nil, err
		}

		bestVote := -1
		unlocked := []models.Achievement{}
		for _, achievement := range catalog {
			if user.HasAchievement(achievement.ID) {
				continue
			}
			satisfied := achievement.SatisfiedBy(user.Stats)
			if achievement.Requirement.Type == models.RequirementSingleVote {
				if bestVote < 0 {
					bestVote, err = s.bestVoteCount(userID)
					if err != nil {
						return nil, err
					}
				}
				satisfied = bestVote >= achievement.Requirement.Count
			}
			if !satisfied {
				continue
			}
			user.Unlock(achievement, s.clock())
			unlocked = append(unlocked, achievement)
		}

		if len(unlocked) == 0 {
			return unlocked, nil
		}

		achievements := user.Achievements
		if _, err := s.users.Update(userID, models.UserPatch{Achievements: &achievements}); err != nil {
			return nil, err
		}
		for _, achievement := range unlocked {
			s.logger.Info("achievement unlocked",
				zap.String("user_id", userID), zap.String("achievement", achievement.Name))
		}
		return unlocked, nil
	})
}

// bestVoteCount returns the highest voteCount among the user's memes, or 0.
func (s *AchievementService) bestVoteCount(userID string) (int, error) {
	memes, err := s.memes.ByUser(userID)
	if err != nil {
		return 0, err
	}
	best := 0
	for _, meme := range memes {
		if meme.VoteCount > best {
			best = meme.VoteCount
		}
	}
	return best, nil
}
