package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/warmofmeme/memeboard/internal/aspect"
	"github.com/warmofmeme/memeboard/internal/domain"
	"github.com/warmofmeme/memeboard/internal/models"
	"github.com/warmofmeme/memeboard/internal/repository"
	"go.uber.org/zap"
)

const arenaTarget = "ArenaService"

// ArenaServiceConfig describes the dependencies of the arena service.
type ArenaServiceConfig struct {
	Arenas   *repository.Arenas
	Sessions aspect.SessionSource
	Aspects  *aspect.Registry
	Logger   *zap.Logger
}

// ArenaService manages themed competitions. All mutations are moderator only.
type ArenaService struct {
	arenas   *repository.Arenas
	sessions aspect.SessionSource
	aspects  *aspect.Registry
	logger   *zap.Logger
}

// NewArenaService constructs the arena service.
func NewArenaService(cfg ArenaServiceConfig) (*ArenaService, error) {
	if cfg.Arenas == nil {
		return nil, errors.New("services: arena repository is required")
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
	return &ArenaService{
		arenas:   cfg.Arenas,
		sessions: cfg.Sessions,
		aspects:  cfg.Aspects,
		logger:   logger,
	}, nil
}

// ArenaInput is the payload for creating or updating an arena.
type ArenaInput struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	StartDate   time.Time  `json:"startDate,omitzero"`
	EndDate     *time.Time `json:"endDate"`
}

// Validate applies the arena field rules.
func (in ArenaInput) Validate() error {
	messages := []string{}
	if len(strings.TrimSpace(in.Name)) < 3 {
		messages = append(messages, "Arena name must be at least 3 characters long")
	}
	if len(strings.TrimSpace(in.Description)) < 10 {
		messages = append(messages, "Description must be at least 10 characters long")
	}
	if len(messages) > 0 {
		return domain.NewValidationError(messages...)
	}
	return nil
}

// CreateArena opens a new active arena stamped with the session moderator.
func (s *ArenaService) CreateArena(ctx context.Context, input ArenaInput) (models.Arena, error) {
	call := aspect.Call{
		Target:       arenaTarget,
		Operation:    "CreateArena",
		Capabilities: aspect.CapMutating | aspect.CapRequiresAuth | aspect.CapRequiresModerator | aspect.CapValidated,
		Payload:      input,
	}
	return aspect.Do(s.aspects, ctx, call, func(context.Context) (models.Arena, error) {
		current, ok := s.sessions.CurrentUser()
		if !ok {
			return models.Arena{}, domain.ErrUnauthorized
		}
		arena, err := s.arenas.Create(models.Arena{
			Name:        input.Name,
			Description: input.Description,
			StartDate:   input.StartDate,
			EndDate:     input.EndDate,
			IsActive:    true,
			CreatedBy:   current.ID,
		})
		if err != nil {
			return models.Arena{}, err
		}
		s.logger.Info("arena created",
			zap.String("arena_id", arena.ID), zap.String("name", arena.Name))
		return arena, nil
	})
}

// UpdateArena merges the patch onto the arena.
func (s *ArenaService) UpdateArena(ctx context.Context, arenaID string, patch models.ArenaPatch) (*models.Arena, error) {
	call := aspect.Call{
		Target:       arenaTarget,
		Operation:    "UpdateArena",
		Capabilities: aspect.CapMutating | aspect.CapRequiresAuth | aspect.CapRequiresModerator,
	}
	return aspect.Do(s.aspects, ctx, call, func(context.Context) (*models.Arena, error) {
		updated, err := s.arenas.Update(arenaID, patch)
		if err != nil {
			return nil, err
		}
		if updated == nil {
			return nil, fmt.Errorf("arena %s: %w", arenaID, domain.ErrNotFound)
		}
		return updated, nil
	})
}

// DeactivateArena marks the arena inactive. Memes submitted to it are left
// untouched.
func (s *ArenaService) DeactivateArena(ctx context.Context, arenaID string) (*models.Arena, error) {
	call := aspect.Call{
		Target:       arenaTarget,
		Operation:    "DeactivateArena",
		Capabilities: aspect.CapMutating | aspect.CapRequiresAuth | aspect.CapRequiresModerator,
	}
	return aspect.Do(s.aspects, ctx, call, func(context.Context) (*models.Arena, error) {
		inactive := false
		updated, err := s.arenas.Update(arenaID, models.ArenaPatch{IsActive: &inactive})
		if err != nil {
			return nil, err
		}
		if updated == nil {
			return nil, fmt.Errorf("arena %s: %w", arenaID, domain.ErrNotFound)
		}
		return updated, nil
	})
}

// ActiveArenas returns the arenas open for submissions.
func (s *ArenaService) ActiveArenas() ([]models.Arena, error) {
	return s.arenas.Active()
}

// Arenas returns every arena, active or not.
func (s *ArenaService) Arenas() ([]models.Arena, error) {
	return s.arenas.All()
}

// Arena returns the arena by id, or ErrNotFound.
func (s *ArenaService) Arena(id string) (*models.Arena, error) {
	arena, err := s.arenas.ByID(id)
	if err != nil {
		return nil, err
	}
	if arena == nil {
		return nil, fmt.Errorf("arena %s: %w", id, domain.ErrNotFound)
	}
	return arena, nil
}
