package store

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestBootstrapProvisionsCollectionsAccountsAndAchievements(t *testing.T) {
	store, _ := newTestStore(t, 0)

	if err := store.Bootstrap(SeedConfig{}); err != nil {
		t.Fatalf("unexpected bootstrap error: %v", err)
	}

	for _, collection := range collectionNames {
		if _, ok, err := store.GetValue(collection); err != nil || !ok {
			t.Fatalf("collection %s missing, ok=%v err=%v", collection, ok, err)
		}
	}

	users, err := store.GetAll(CollectionUsers)
	if err != nil {
		t.Fatalf("unexpected read error: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 default accounts, got %d", len(users))
	}
	byName := map[string]Record{}
	for _, user := range users {
		username, _ := user["username"].(string)
		byName[username] = user
	}

	admin := byName["admin"]
	if admin == nil {
		t.Fatalf("admin account missing")
	}
	if admin["role"] != "moderator" || admin["title"] != "Administrator" {
		t.Fatalf("unexpected admin shape: %#v", admin)
	}
	hash, _ := admin["password"].(string)
	if hash == "admin123" {
		t.Fatalf("admin password stored in the clear")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte("admin123")); err != nil {
		t.Fatalf("admin hash does not verify: %v", err)
	}
	if member := byName["member"]; member == nil || member["role"] != "member" {
		t.Fatalf("member account missing or malformed: %#v", member)
	}

	achievements, err := store.GetAll(CollectionAchievements)
	if err != nil {
		t.Fatalf("unexpected read error: %v", err)
	}
	if len(achievements) != 4 {
		t.Fatalf("expected 4 default achievements, got %d", len(achievements))
	}

	memes, err := store.Count(CollectionMemes, nil)
	if err != nil || memes != 0 {
		t.Fatalf("demo data seeded without opt-in: count=%d err=%v", memes, err)
	}
}

func TestBootstrapIsIdempotent(t *testing.T) {
	store, _ := newTestStore(t, 0)

	if err := store.Bootstrap(SeedConfig{}); err != nil {
		t.Fatalf("unexpected bootstrap error: %v", err)
	}
	if err := store.Bootstrap(SeedConfig{}); err != nil {
		t.Fatalf("unexpected second bootstrap error: %v", err)
	}

	users, _ := store.Count(CollectionUsers, nil)
	if users != 2 {
		t.Fatalf("accounts duplicated, got %d", users)
	}
	achievements, _ := store.Count(CollectionAchievements, nil)
	if achievements != 4 {
		t.Fatalf("achievements duplicated, got %d", achievements)
	}
}

func TestBootstrapSeedsDemoMemesAndComments(t *testing.T) {
	store, _ := newTestStore(t, 0)

	if err := store.Bootstrap(SeedConfig{DemoData: true}); err != nil {
		t.Fatalf("unexpected bootstrap error: %v", err)
	}

	memes, err := store.GetAll(CollectionMemes)
	if err != nil {
		t.Fatalf("unexpected read error: %v", err)
	}
	if len(memes) != len(demoMemes) {
		t.Fatalf("expected %d demo memes, got %d", len(demoMemes), len(memes))
	}

	for _, meme := range memes {
		if meme["statusComments"] != "enabled" {
			t.Fatalf("demo meme with comments closed: %#v", meme)
		}

		memeID := meme.ID()
		comments, err := store.Count(CollectionComments, func(record Record) bool {
			return record["memeId"] == memeID
		})
		if err != nil {
			t.Fatalf("unexpected count error: %v", err)
		}
		if comments < 3 || comments > 8 {
			t.Fatalf("expected 3-8 demo comments, got %d", comments)
		}
		commentCount, _ := meme["commentCount"].(float64)
		if int(commentCount) != comments {
			t.Fatalf("commentCount %v out of sync with %d comments", meme["commentCount"], comments)
		}
	}
}

func TestBootstrapSkipsDemoMemesWhenEnoughExist(t *testing.T) {
	store, _ := newTestStore(t, 0)

	if err := store.Bootstrap(SeedConfig{DemoData: true}); err != nil {
		t.Fatalf("unexpected bootstrap error: %v", err)
	}
	before, _ := store.GetAll(CollectionMemes)

	if err := store.Bootstrap(SeedConfig{DemoData: true}); err != nil {
		t.Fatalf("unexpected second bootstrap error: %v", err)
	}
	after, _ := store.GetAll(CollectionMemes)

	if len(before) != len(after) {
		t.Fatalf("demo memes reseeded: %d -> %d", len(before), len(after))
	}
	if before[0].ID() != after[0].ID() {
		t.Fatalf("existing memes replaced on reseed")
	}
}
