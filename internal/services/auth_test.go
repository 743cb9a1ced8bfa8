package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/warmofmeme/memeboard/internal/domain"
	"github.com/warmofmeme/memeboard/internal/models"
	"github.com/warmofmeme/memeboard/internal/store"
)

func TestRegisterCreatesMemberAndEstablishesSession(t *testing.T) {
	env := newTestEnv(t)

	user, err := env.auth.Register(context.Background(), RegisterInput{
		Username: "fresh",
		Email:    "fresh@warmofmeme.com",
		Password: "secret123",
	})
	if err != nil {
		t.Fatalf("unexpected register error: %v", err)
	}
	if user.Role != models.RoleMember {
		t.Fatalf("expected member role, got %q", user.Role)
	}
	if user.Stats != (models.UserStats{}) {
		t.Fatalf("expected zeroed stats, got %#v", user.Stats)
	}
	if user.Password != "" {
		t.Fatalf("password leaked in response")
	}

	current, ok := env.auth.CurrentUser()
	if !ok || current.Username != "fresh" {
		t.Fatalf("expected session for fresh, got %#v ok=%v", current, ok)
	}

	stored, err := env.users.ByUsername("fresh")
	if err != nil || stored == nil {
		t.Fatalf("user not persisted: %#v err=%v", stored, err)
	}
	if stored.Password == "secret123" || stored.Password == "" {
		t.Fatalf("expected hashed password, got %q", stored.Password)
	}
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.auth.Register(context.Background(), RegisterInput{
		Username: "short",
		Email:    "short@warmofmeme.com",
		Password: "12345",
	})
	if !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}

	if _, err := env.auth.Register(context.Background(), RegisterInput{
		Username: "short",
		Email:    "short@warmofmeme.com",
		Password: "123456",
	}); err != nil {
		t.Fatalf("six characters must pass, got %v", err)
	}
}

func TestRegisterRejectsDuplicateUsernameAndEmail(t *testing.T) {
	env := newTestEnv(t)
	env.registerAndLogin(t, "taken")

	_, err := env.auth.Register(context.Background(), RegisterInput{
		Username: "taken",
		Email:    "other@warmofmeme.com",
		Password: "secret123",
	})
	if !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists for username, got %v", err)
	}

	_, err = env.auth.Register(context.Background(), RegisterInput{
		Username: "someone_else",
		Email:    "taken@warmofmeme.com",
		Password: "secret123",
	})
	if !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists for email, got %v", err)
	}
}

func TestLoginVerifiesCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.registerAndLogin(t, "member_one")
	if err := env.auth.Logout(context.Background()); err != nil {
		t.Fatalf("unexpected logout error: %v", err)
	}

	if _, err := env.auth.Login(context.Background(), "ghost", "secret123"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown username, got %v", err)
	}
	if _, err := env.auth.Login(context.Background(), "member_one", "wrong-pass"); !errors.Is(err, domain.ErrInvalidCredential) {
		t.Fatalf("expected ErrInvalidCredential, got %v", err)
	}

	user, err := env.auth.Login(context.Background(), "member_one", "secret123")
	if err != nil {
		t.Fatalf("unexpected login error: %v", err)
	}
	if user.Password != "" {
		t.Fatalf("password leaked in login response")
	}
	if !env.auth.IsAuthenticated() {
		t.Fatalf("expected authenticated session")
	}
}

func TestSessionPersistsAcrossServiceRestarts(t *testing.T) {
	env := newTestEnv(t)
	env.registerAndLogin(t, "durable")

	raw, ok, err := env.store.GetValue(store.SessionKey)
	if err != nil || !ok {
		t.Fatalf("expected persisted session, ok=%v err=%v", ok, err)
	}
	var persisted models.User
	if err := json.Unmarshal([]byte(raw), &persisted); err != nil {
		t.Fatalf("session is not valid JSON: %v", err)
	}
	if persisted.Password != "" {
		t.Fatalf("persisted session contains password")
	}

	reborn, err := NewAuthService(AuthServiceConfig{
		Users:   env.users,
		Store:   env.store,
		Aspects: env.registry,
	})
	if err != nil {
		t.Fatalf("failed to rebuild auth service: %v", err)
	}
	current, ok := reborn.CurrentUser()
	if !ok || current.Username != "durable" {
		t.Fatalf("session not restored, got %#v ok=%v", current, ok)
	}

	if err := reborn.Logout(context.Background()); err != nil {
		t.Fatalf("unexpected logout error: %v", err)
	}
	if _, ok, _ := env.store.GetValue(store.SessionKey); ok {
		t.Fatalf("session key survived logout")
	}
}

func TestCorruptSessionIsDiscardedOnLoad(t *testing.T) {
	env := newTestEnv(t)
	if err := env.store.SetValue(store.SessionKey, "{broken"); err != nil {
		t.Fatalf("unexpected set error: %v", err)
	}

	service, err := NewAuthService(AuthServiceConfig{
		Users:   env.users,
		Store:   env.store,
		Aspects: env.registry,
	})
	if err != nil {
		t.Fatalf("corrupt session must not block startup: %v", err)
	}
	if service.IsAuthenticated() {
		t.Fatalf("expected no session after corrupt record")
	}
	if _, ok, _ := env.store.GetValue(store.SessionKey); ok {
		t.Fatalf("corrupt session record left behind")
	}
}

func TestUpdateProfileRefreshesSessionAndHashesPassword(t *testing.T) {
	env := newTestEnv(t)
	env.registerAndLogin(t, "evolving")
	current, _ := env.auth.CurrentUser()

	title := "Connoisseur"
	newPassword := "changed456"
	updated, err := env.auth.UpdateProfile(context.Background(), current.ID, models.UserPatch{
		Title:    &title,
		Password: &newPassword,
	})
	if err != nil {
		t.Fatalf("unexpected update error: %v", err)
	}
	if updated.Title != "Connoisseur" {
		t.Fatalf("patch not applied: %#v", updated)
	}

	refreshed, _ := env.auth.CurrentUser()
	if refreshed.Title != "Connoisseur" {
		t.Fatalf("session copy not refreshed: %#v", refreshed)
	}

	if err := env.auth.Logout(context.Background()); err != nil {
		t.Fatalf("unexpected logout error: %v", err)
	}
	if _, err := env.auth.Login(context.Background(), "evolving", "changed456"); err != nil {
		t.Fatalf("new password rejected: %v", err)
	}

	unknown := "whatever1"
	if _, err := env.auth.UpdateProfile(context.Background(), "missing", models.UserPatch{Password: &unknown}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown user, got %v", err)
	}
}

func TestSessionReadsAreSafeDuringLoginLogoutChurn(t *testing.T) {
	env := newTestEnv(t)
	env.registerAndLogin(t, "churner")

	const readers = 4
	const cycles = 20
	done := make(chan struct{})
	var wg sync.WaitGroup

	for reader := 0; reader < readers; reader++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				if user, ok := env.auth.CurrentUser(); ok && user.Username != "churner" {
					t.Errorf("unexpected session user %q", user.Username)
					return
				}
				env.auth.IsAuthenticated()
				env.auth.IsModerator()
			}
		}()
	}

	for cycle := 0; cycle < cycles; cycle++ {
		if err := env.auth.Logout(context.Background()); err != nil {
			t.Fatalf("logout cycle %d: %v", cycle, err)
		}
		if _, err := env.auth.Login(context.Background(), "churner", "secret123"); err != nil {
			t.Fatalf("login cycle %d: %v", cycle, err)
		}
	}
	close(done)
	wg.Wait()

	current, ok := env.auth.CurrentUser()
	if !ok || current.Username != "churner" {
		t.Fatalf("expected session for churner, got %#v ok=%v", current, ok)
	}
}

func TestUpdateProfileRequiresSession(t *testing.T) {
	env := newTestEnv(t)

	title := "Nobody"
	if _, err := env.auth.UpdateProfile(context.Background(), "u1", models.UserPatch{Title: &title}); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}
