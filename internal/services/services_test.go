package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/warmofmeme/memeboard/internal/aspect"
	"github.com/warmofmeme/memeboard/internal/models"
	"github.com/warmofmeme/memeboard/internal/repository"
	"github.com/warmofmeme/memeboard/internal/store"
	"go.uber.org/zap"
)

type sequentialIDs struct {
	next int
}

func (p *sequentialIDs) NewID() (string, error) {
	p.next++
	return fmt.Sprintf("id-%04d", p.next), nil
}

// testEnv wires a full service stack over an in-memory medium.
type testEnv struct {
	store        *store.Store
	clock        *time.Time
	users        *repository.Users
	memes        *repository.Memes
	comments     *repository.Comments
	votes        *repository.Votes
	achievements *repository.Achievements
	arenas       *repository.Arenas
	registry     *aspect.Registry
	auth         *AuthService
	meme         *MemeService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	current := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	clock := &current

	recordStore, err := store.New(store.Config{
		KV:         store.NewMemoryKV(0),
		Clock:      func() time.Time { return *clock },
		IDProvider: &sequentialIDs{},
	})
	if err != nil {
		t.Fatalf("failed to build store: %v", err)
	}

	env := &testEnv{
		store:        recordStore,
		clock:        clock,
		users:        repository.NewUsers(recordStore),
		memes:        repository.NewMemes(recordStore),
		comments:     repository.NewComments(recordStore),
		votes:        repository.NewVotes(recordStore),
		achievements: repository.NewAchievements(recordStore),
		arenas:       repository.NewArenas(recordStore),
		registry:     aspect.NewRegistry(),
	}

	env.registry.Register(aspect.NewValidationAspect())

	env.auth, err = NewAuthService(AuthServiceConfig{
		Users:   env.users,
		Store:   recordStore,
		Aspects: env.registry,
		Logger:  zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("failed to build auth service: %v", err)
	}
	env.registry.Register(aspect.NewSecurityAspect(env.auth))

	env.meme, err = NewMemeService(MemeServiceConfig{
		Memes:    env.memes,
		Votes:    env.votes,
		Comments: env.comments,
		Users:    env.users,
		Sessions: env.auth,
		Aspects:  env.registry,
		Logger:   zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("failed to build meme service: %v", err)
	}

	return env
}

// registerAndLogin creates a member account and leaves it as the session user.
func (env *testEnv) registerAndLogin(t *testing.T, username string) {
	t.Helper()
	_, err := env.auth.Register(context.Background(), RegisterInput{
		Username: username,
		Email:    username + "@warmofmeme.com",
		Password: "secret123",
	})
	if err != nil {
		t.Fatalf("failed to register %s: %v", username, err)
	}
}

// promoteToModerator raises the account's role and logs in again so the
// session copy carries the new role.
func (env *testEnv) promoteToModerator(t *testing.T, username string) {
	t.Helper()
	user, err := env.users.ByUsername(username)
	if err != nil || user == nil {
		t.Fatalf("failed to look up %s: %#v err=%v", username, user, err)
	}
	role := models.RoleModerator
	if _, err := env.users.Update(user.ID, models.UserPatch{Role: &role}); err != nil {
		t.Fatalf("failed to promote %s: %v", username, err)
	}
	if _, err := env.auth.Login(context.Background(), username, "secret123"); err != nil {
		t.Fatalf("failed to refresh session for %s: %v", username, err)
	}
}

func (env *testEnv) createMeme(t *testing.T, title string) string {
	t.Helper()
	meme, err := env.meme.CreateMeme(context.Background(), CreateMemeInput{
		Title:       title,
		Category:    "Funny",
		Description: "a sufficiently long description",
		ImageURL:    "data:image/jpeg;base64,AAAA",
	})
	if err != nil {
		t.Fatalf("failed to create meme %s: %v", title, err)
	}
	return meme.ID
}
