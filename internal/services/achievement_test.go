package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/warmofmeme/memeboard/internal/domain"
	"github.com/warmofmeme/memeboard/internal/models"
)

func newAchievementService(t *testing.T, env *testEnv) *AchievementService {
	t.Helper()
	service, err := NewAchievementService(AchievementServiceConfig{
		Achievements: env.achievements,
		Users:        env.users,
		Memes:        env.memes,
		Aspects:      env.registry,
		Clock:        func() time.Time { return *env.clock },
	})
	if err != nil {
		t.Fatalf("failed to build achievement service: %v", err)
	}
	return service
}

func TestAchievementInputValidation(t *testing.T) {
	cases := []struct {
		name  string
		input AchievementInput
		valid bool
	}{
		{
			name: "complete",
			input: AchievementInput{
				Name:        "First Upload",
				Description: "Upload your very first entry",
				Requirement: models.Requirement{Type: models.RequirementUpload, Count: 1},
			},
			valid: true,
		},
		{
			name: "none requirement needs no count",
			input: AchievementInput{
				Name:        "Welcome",
				Description: "Just for showing up today",
				Requirement: models.Requirement{Type: models.RequirementNone},
			},
			valid: true,
		},
		{
			name: "short name",
			input: AchievementInput{
				Name:        "ab",
				Description: "a long enough description",
				Requirement: models.Requirement{Type: models.RequirementNone},
			},
		},
		{
			name: "zero count",
			input: AchievementInput{
				Name:        "Broken",
				Description: "a long enough description",
				Requirement: models.Requirement{Type: models.RequirementUpload},
			},
		},
		{
			name: "unknown requirement type",
			input: AchievementInput{
				Name:        "Mystery",
				Description: "a long enough description",
				Requirement: models.Requirement{Type: "streak", Count: 3},
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.input.Validate()
			if tc.valid && err != nil {
				t.Fatalf("expected valid input, got %v", err)
			}
			if !tc.valid && !domain.IsValidation(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestAchievementCRUDRequiresModerator(t *testing.T) {
	env := newTestEnv(t)
	service := newAchievementService(t, env)
	env.registerAndLogin(t, "member")

	input := AchievementInput{
		Name:        "First Upload",
		Description: "Upload your very first entry",
		Requirement: models.Requirement{Type: models.RequirementUpload, Count: 1},
	}
	if _, err := service.CreateAchievement(context.Background(), input); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for member, got %v", err)
	}

	env.promoteToModerator(t, "member")
	created, err := service.CreateAchievement(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}

	name := "Debut"
	updated, err := service.UpdateAchievement(context.Background(), created.ID, models.AchievementPatch{Name: &name})
	if err != nil || updated.Name != "Debut" {
		t.Fatalf("patch not applied: %#v err=%v", updated, err)
	}
	if _, err := service.UpdateAchievement(context.Background(), "missing", models.AchievementPatch{Name: &name}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	removed, err := service.DeleteAchievement(context.Background(), created.ID)
	if err != nil || !removed {
		t.Fatalf("expected deletion, got removed=%v err=%v", removed, err)
	}
	if _, err := service.DeleteAchievement(context.Background(), created.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for repeat delete, got %v", err)
	}
}

func TestCheckUnlocksStampsSatisfiedAchievementsOnce(t *testing.T) {
	env := newTestEnv(t)
	service := newAchievementService(t, env)

	uploadBadge, err := env.achievements.Create(models.Achievement{
		Name:        "First Upload",
		Description: "Upload your very first entry",
		Requirement: models.Requirement{Type: models.RequirementUpload, Count: 1},
	})
	if err != nil {
		t.Fatalf("unexpected seed error: %v", err)
	}
	if _, err := env.achievements.Create(models.Achievement{
		Name:        "Prolific",
		Description: "Upload five entries in total",
		Requirement: models.Requirement{Type: models.RequirementUpload, Count: 5},
	}); err != nil {
		t.Fatalf("unexpected seed error: %v", err)
	}

	env.registerAndLogin(t, "collector")
	env.createMeme(t, "First Entry")
	current, _ := env.auth.CurrentUser()

	unlocked, err := service.CheckUnlocks(context.Background(), current.ID)
	if err != nil {
		t.Fatalf("unexpected check error: %v", err)
	}
	if len(unlocked) != 1 || unlocked[0].ID != uploadBadge.ID {
		t.Fatalf("expected only the first-upload badge, got %#v", unlocked)
	}

	user, _ := env.users.ByID(current.ID)
	if !user.HasAchievement(uploadBadge.ID) {
		t.Fatalf("unlock not persisted: %#v", user.Achievements)
	}
	if len(user.Achievements) != 1 {
		t.Fatalf("expected one unlock record, got %d", len(user.Achievements))
	}
	if !user.Achievements[0].UnlockedAt.Equal(*env.clock) {
		t.Fatalf("unexpected unlock time %v", user.Achievements[0].UnlockedAt)
	}

	again, err := service.CheckUnlocks(context.Background(), current.ID)
	if err != nil || len(again) != 0 {
		t.Fatalf("expected no repeat unlocks, got %#v err=%v", again, err)
	}

	if _, err := service.CheckUnlocks(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown user, got %v", err)
	}
}

func TestCheckUnlocksUsesBestSingleMemeVoteCount(t *testing.T) {
	env := newTestEnv(t)
	service := newAchievementService(t, env)

	if _, err := env.achievements.Create(models.Achievement{
		Name:        "Crowd Favorite",
		Description: "Collect three votes on a single entry",
		Requirement: models.Requirement{Type: models.RequirementSingleVote, Count: 3},
	}); err != nil {
		t.Fatalf("unexpected seed error: %v", err)
	}

	env.registerAndLogin(t, "favorite")
	memeID := env.createMeme(t, "Popular")
	current, _ := env.auth.CurrentUser()

	unlocked, err := service.CheckUnlocks(context.Background(), current.ID)
	if err != nil || len(unlocked) != 0 {
		t.Fatalf("expected no unlock before votes, got %#v err=%v", unlocked, err)
	}

	if _, err := env.memes.Update(memeID, models.MemePatch{VoteCount: intPtr(3)}); err != nil {
		t.Fatalf("unexpected vote bump error: %v", err)
	}

	unlocked, err = service.CheckUnlocks(context.Background(), current.ID)
	if err != nil || len(unlocked) != 1 {
		t.Fatalf("expected single-vote unlock, got %#v err=%v", unlocked, err)
	}
}

func intPtr(v int) *int { return &v }
