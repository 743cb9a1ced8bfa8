package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/warmofmeme/memeboard/internal/aspect"
	"github.com/warmofmeme/memeboard/internal/domain"
	"github.com/warmofmeme/memeboard/internal/models"
	"github.com/warmofmeme/memeboard/internal/repository"
	"go.uber.org/zap"
)

const memeTarget = "MemeService"

var errMissingRepositories = errors.New("services: all repositories are required")

// MemeServiceConfig describes the dependencies of the meme service.
type MemeServiceConfig struct {
	Memes    *repository.Memes
	Votes    *repository.Votes
	Comments *repository.Comments
	Users    *repository.Users
	Sessions aspect.SessionSource
	Aspects  *aspect.Registry
	Logger   *zap.Logger
}

// MemeService orchestrates the multi-collection invariants the store does
// not enforce: vote uniqueness, denormalized counters, and cascade deletes.
type MemeService struct {
	memes    *repository.Memes
	votes    *repository.Votes
	comments *repository.Comments
	users    *repository.Users
	sessions aspect.SessionSource
	aspects  *aspect.Registry
	logger   *zap.Logger
}

// NewMemeService constructs the meme service.
func NewMemeService(cfg MemeServiceConfig) (*MemeService, error) {
	if cfg.Memes == nil || cfg.Votes == nil || cfg.Comments == nil || cfg.Users == nil {
		return nil, errMissingRepositories
	}
	if cfg.Sessions == nil {
		return nil, errors.New("services: session source is required")
	}
	if cfg.Aspects == nil {
		return nil, errMissingRegistry
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemeService{
		memes:    cfg.Memes,
		votes:    cfg.Votes,
		comments: cfg.Comments,
		users:    cfg.Users,
		sessions: cfg.Sessions,
		aspects:  cfg.Aspects,
		logger:   logger,
	}, nil
}

// CreateMemeInput is the payload for a meme upload.
type CreateMemeInput struct {
	Title       string  `json:"title"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	ImageURL    string  `json:"imageUrl"`
	ArenaID     *string `json:"arenaId"`
}

// Validate applies the meme field rules.
func (in CreateMemeInput) Validate() error {
	messages := []string{}
	if len(strings.TrimSpace(in.Title)) < 3 {
		messages = append(messages, "Title must be at least 3 characters long")
	}
	if in.Category == "" {
		messages = append(messages, "A Category must be selected")
	}
	if len(strings.TrimSpace(in.Description)) < 10 {
		messages = append(messages, "Description must be at least 10 characters long")
	}
	if in.ImageURL == "" {
		messages = append(messages, "Image must be uploaded")
	}
	if len(messages) > 0 {
		return domain.NewValidationError(messages...)
	}
	return nil
}

// VoteResult reports the outcome of a vote toggle.
type VoteResult struct {
	Voted bool `json:"voted"`
}

// CreateMeme persists a new meme stamped with the session user and bumps the
// owner's upload counter.
func (s *MemeService) CreateMeme(ctx context.Context, input CreateMemeInput) (models.Meme, error) {
	call := aspect.Call{
		Target:       memeTarget,
		Operation:    "CreateMeme",
		Capabilities: aspect.CapMutating | aspect.CapRequiresAuth | aspect.CapValidated,
		Payload:      input,
	}
	return aspect.Do(s.aspects, ctx, call, func(context.Context) (models.Meme, error) {
		current, ok := s.sessions.CurrentUser()
		if !ok {
			return models.Meme{}, domain.ErrUnauthorized
		}

		meme, err := s.memes.Create(models.Meme{
			UserID:         current.ID,
			Username:       current.Username,
			Title:          input.Title,
			Category:       input.Category,
			Description:    input.Description,
			ImageURL:       input.ImageURL,
			ArenaID:        input.ArenaID,
			StatusComments: models.CommentsEnabled,
		})
		if err != nil {
			return models.Meme{}, err
		}

		owner, err := s.users.ByID(current.ID)
		switch {
		case err != nil:
			s.logger.Warn("upload counter lookup failed",
				zap.String("user_id", current.ID), zap.Error(err))
		case owner == nil:
			s.logger.Warn("upload counter skipped, uploader record missing",
				zap.String("user_id", current.ID))
		default:
			stats := owner.Stats
			stats.TotalUploads++
			if _, err := s.users.Update(owner.ID, models.UserPatch{Stats: &stats}); err != nil {
				s.logger.Warn("upload counter update failed",
					zap.String("user_id", owner.ID), zap.Error(err))
			}
		}

		return meme, nil
	})
}

// Meme returns the meme by id, or ErrNotFound.
func (s *MemeService) Meme(id string) (*models.Meme, error) {
	meme, err := s.memes.ByID(id)
	if err != nil {
		return nil, err
	}
	if meme == nil {
		return nil, fmt.Errorf("meme %s: %w", id, domain.ErrNotFound)
	}
	return meme, nil
}

// Memes returns every meme.
func (s *MemeService) Memes() ([]models.Meme, error) {
	return s.memes.All()
}

// Trending returns up to limit memes matching the filter, most-voted first.
func (s *MemeService) Trending(limit int, filter repository.TrendingFilter) ([]models.Meme, error) {
	return s.memes.Trending(limit, filter)
}

// MemesByUser returns the user's uploads.
func (s *MemeService) MemesByUser(userID string) ([]models.Meme, error) {
	return s.memes.ByUser(userID)
}

// MemesByCategory returns the memes in the category.
func (s *MemeService) MemesByCategory(category string) ([]models.Meme, error) {
	return s.memes.ByCategory(category)
}

// VoteMeme toggles the session user's vote on the meme. Adding a vote bumps
// the meme's voteCount and the user's totalLikes; removing one lowers both,
// floored at zero.
func (s *MemeService) VoteMeme(ctx context.Context, memeID string) (VoteResult, error) {
	call := aspect.Call{
		Target:       memeTarget,
		Operation:    "VoteMeme",
		Capabilities: aspect.CapMutating | aspect.CapRequiresAuth,
	}
	return aspect.Do(s.aspects, ctx, call, func(context.Context) (VoteResult, error) {
		current, ok := s.sessions.CurrentUser()
		if !ok {
			return VoteResult{}, domain.ErrUnauthorized
		}

		existing, err := s.votes.ByMemeAndUser(memeID, current.ID)
		if err != nil {
			return VoteResult{}, err
		}

		if existing != nil {
			if _, err := s.votes.Delete(existing.ID); err != nil {
				return VoteResult{}, err
			}
			if _, err := s.memes.DecrementVoteCount(memeID); err != nil {
				return VoteResult{}, err
			}
			if err := s.adjustTotalLikes(current.ID, -1); err != nil {
				return VoteResult{}, err
			}
			return VoteResult{Voted: false}, nil
		}

		if _, err := s.votes.Create(models.Vote{MemeID: memeID, UserID: current.ID}); err != nil {
			return VoteResult{}, err
		}
		if _, err := s.memes.IncrementVoteCount(memeID); err != nil {
			return VoteResult{}, err
		}
		if err := s.adjustTotalLikes(current.ID, 1); err != nil {
			return VoteResult{}, err
		}
		return VoteResult{Voted: true}, nil
	})
}

// HasVoted reports whether the session user has an active vote on the meme.
func (s *MemeService) HasVoted(memeID string) (bool, error) {
	current, ok := s.sessions.CurrentUser()
	if !ok {
		return false, nil
	}
	vote, err := s.votes.ByMemeAndUser(memeID, current.ID)
	if err != nil {
		return false, err
	}
	return vote != nil, nil
}

// AddComment appends a comment to the meme and bumps its comment counter.
func (s *MemeService) AddComment(ctx context.Context, memeID, text string) (models.Comment, error) {
	call := aspect.Call{
		Target:       memeTarget,
		Operation:    "AddComment",
		Capabilities: aspect.CapMutating | aspect.CapRequiresAuth | aspect.CapValidated,
		Payload:      commentInput{Text: text},
	}
	return aspect.Do(s.aspects, ctx, call, func(context.Context) (models.Comment, error) {
		current, ok := s.sessions.CurrentUser()
		if !ok {
			return models.Comment{}, domain.ErrUnauthorized
		}

		meme, err := s.memes.ByID(memeID)
		if err != nil {
			return models.Comment{}, err
		}
		if meme == nil {
			return models.Comment{}, fmt.Errorf("meme %s: %w", memeID, domain.ErrNotFound)
		}
		if meme.StatusComments == models.CommentsDisabled {
			return models.Comment{}, domain.ErrCommentsDisabled
		}

		comment, err := s.comments.Create(models.Comment{
			MemeID:   memeID,
			UserID:   current.ID,
			Username: current.Username,
			Text:     sanitizeText(text),
		})
		if err != nil {
			return models.Comment{}, err
		}
		if _, err := s.memes.IncrementCommentCount(memeID); err != nil {
			return models.Comment{}, err
		}
		return comment, nil
	})
}

// Comments returns the meme's comments ordered oldest first.
func (s *MemeService) Comments(memeID string) ([]models.Comment, error) {
	return s.comments.ByMeme(memeID)
}

// EnableComments reopens the meme's comment section. Moderator only.
func (s *MemeService) EnableComments(ctx context.Context, memeID string) (*models.Meme, error) {
	return s.setCommentStatus(ctx, "EnableComments", memeID, models.CommentsEnabled)
}

// DisableComments closes the meme's comment section. Moderator only.
func (s *MemeService) DisableComments(ctx context.Context, memeID string) (*models.Meme, error) {
	return s.setCommentStatus(ctx, "DisableComments", memeID, models.CommentsDisabled)
}

// DeleteMeme removes the meme together with its votes and comments. Only the
// owner or a moderator may delete.
func (s *MemeService) DeleteMeme(ctx context.Context, memeID string) (bool, error) {
	call := aspect.Call{
		Target:       memeTarget,
		Operation:    "DeleteMeme",
		Capabilities: aspect.CapMutating | aspect.CapRequiresAuth,
	}
	return aspect.Do(s.aspects, ctx, call, func(context.Context) (bool, error) {
		current, ok := s.sessions.CurrentUser()
		if !ok {
			return false, domain.ErrUnauthorized
		}

		meme, err := s.memes.ByID(memeID)
		if err != nil {
			return false, err
		}
		if meme == nil {
			return false, fmt.Errorf("meme %s: %w", memeID, domain.ErrNotFound)
		}
		if meme.UserID != current.ID && current.Role != models.RoleModerator {
			return false, domain.ErrForbidden
		}

		// Cascade first so a failure cannot orphan the meme itself.
		votes, err := s.votes.ByMeme(memeID)
		if err != nil {
			return false, err
		}
		for _, vote := range votes {
			if _, err := s.votes.Delete(vote.ID); err != nil {
				return false, err
			}
		}
		comments, err := s.comments.ByMeme(memeID)
		if err != nil {
			return false, err
		}
		for _, comment := range comments {
			if _, err := s.comments.Delete(comment.ID); err != nil {
				return false, err
			}
		}

		return s.memes.Delete(memeID)
	})
}

type commentInput struct {
	Text string `json:"text"`
}

func (in commentInput) Validate() error {
	if result := checkComment(in.Text); !result.IsValid {
		return domain.NewValidationError(result.Error)
	}
	return nil
}

func (s *MemeService) setCommentStatus(ctx context.Context, operation, memeID string, status models.CommentStatus) (*models.Meme, error) {
	call := aspect.Call{
		Target:       memeTarget,
		Operation:    operation,
		Capabilities: aspect.CapMutating | aspect.CapRequiresAuth | aspect.CapRequiresModerator,
	}
	return aspect.Do(s.aspects, ctx, call, func(context.Context) (*models.Meme, error) {
		meme, err := s.memes.ByID(memeID)
		if err != nil {
			return nil, err
		}
		if meme == nil {
			return nil, fmt.Errorf("meme %s: %w", memeID, domain.ErrNotFound)
		}
		return s.memes.Update(memeID, models.MemePatch{StatusComments: &status})
	})
}

func (s *MemeService) adjustTotalLikes(userID string, delta int) error {
	user, err := s.users.ByID(userID)
	if err != nil || user == nil {
		return err
	}
	stats := user.Stats
	stats.TotalLikes += delta
	if stats.TotalLikes < 0 {
		stats.TotalLikes = 0
	}
	_, err = s.users.Update(userID, models.UserPatch{Stats: &stats})
	return err
}
