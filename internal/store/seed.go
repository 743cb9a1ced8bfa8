package store

import (
	"fmt"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// SeedConfig controls what Bootstrap provisions on first use.
type SeedConfig struct {
	// DemoData enables the demo memes and comments used to populate the
	// leaderboard on a fresh install.
	DemoData bool
}

var collectionNames = []string{
	CollectionUsers,
	CollectionMemes,
	CollectionComments,
	CollectionVotes,
	CollectionAchievements,
	CollectionArenas,
}

type defaultAccount struct {
	username string
	password string
	email    string
	role     string
	title    string
	stats    map[string]any
}

var defaultAccounts = []defaultAccount{
	{
		username: "admin",
		password: "admin123",
		email:    "admin@warmofmeme.com",
		role:     "moderator",
		title:    "Administrator",
		stats:    map[string]any{"totalUploads": 100, "totalWins": 60, "totalLikes": 500},
	},
	{
		username: "member",
		password: "member123",
		email:    "member@warmofmeme.com",
		role:     "member",
		title:    "Member",
		stats:    map[string]any{"totalUploads": 10, "totalWins": 6, "totalLikes": 120},
	},
}

// Bootstrap runs pending migrations, ensures the six collections exist, and
// provisions default accounts, default achievements, and (when enabled) the
// demo memes and comments.
func (s *Store) Bootstrap(cfg SeedConfig) error {
	if err := s.ApplyMigrations(); err != nil {
		return err
	}

	for _, collection := range collectionNames {
		_, ok, err := s.kv.Get(collection)
		if err != nil {
			return err
		}
		if !ok {
			if err := s.writeAll(collection, []Record{}); err != nil {
				return err
			}
		}
	}

	if err := s.seedAccounts(); err != nil {
		return err
	}
	if err := s.seedAchievements(); err != nil {
		return err
	}
	if cfg.DemoData {
		if err := s.seedDemoMemes(); err != nil {
			return err
		}
		if err := s.seedDemoComments(); err != nil {
			return err
		}
	}
	return nil
}

// seedAccounts guarantees the fixed moderator and member accounts exist,
// creating any that are missing.
func (s *Store) seedAccounts() error {
	existing := map[string]bool{}
	users, err := s.GetAll(CollectionUsers)
	if err != nil {
		return err
	}
	for _, user := range users {
		if username, ok := user["username"].(string); ok {
			existing[username] = true
		}
	}

	for _, account := range defaultAccounts {
		if existing[account.username] {
			continue
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(account.password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		_, err = s.Create(CollectionUsers, Record{
			"username":     account.username,
			"password":     string(hash),
			"email":        account.email,
			"role":         account.role,
			"title":        account.title,
			"stats":        account.stats,
			"achievements": []any{},
		})
		if err != nil {
			return err
		}
		s.logger.Info("default account created", zap.String("username", account.username))
	}
	return nil
}

func (s *Store) seedAchievements() error {
	count, err := s.Count(CollectionAchievements, nil)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	defaults := []Record{
		{
			"name":        "First Upload",
			"description": "Upload your first meme",
			"icon":        "🎬",
			"requirement": map[string]any{"type": "upload", "count": 1},
		},
		{
			"name":        "Viral Creator",
			"description": "Get 100 votes on a single meme",
			"icon":        "🔥",
			"requirement": map[string]any{"type": "single_vote", "count": 100},
		},
		{
			"name":        "Top Contributor",
			"description": "Upload 50 memes",
			"icon":        "⭐",
			"requirement": map[string]any{"type": "upload", "count": 50},
		},
		{
			"name":        "Community Favorite",
			"description": "Get 1000 total votes across all memes",
			"icon":        "❤️",
			"requirement": map[string]any{"type": "total_votes", "count": 1000},
		},
	}
	for _, achievement := range defaults {
		if _, err := s.Create(CollectionAchievements, achievement); err != nil {
			return err
		}
	}
	return nil
}

type demoMeme struct {
	username    string
	title       string
	category    string
	description string
	image       string
	votes       int
	comments    int
	daysAgo     int
}

var demoMemes = []demoMeme{
	{"Cynthia Erivo", "Surprised Reaction", "Funny", "That face you make when the build passes on the first try.", "assets/meme1.jpg", 120, 45, 2},
	{"John Smith", "Epic Moment", "Relatable", "An extremely relatable moment from everyday life.", "assets/meme2.jpg", 98, 32, 3},
	{"Sarah Johnson", "Dark Humor", "Dark", "Dark humor that makes you laugh and then think about life.", "assets/meme3.jpg", 87, 28, 4},
	{"Mike Wilson", "Wholesome Content", "Wholesome", "A wholesome meme that warms the heart.", "assets/meme4.jpg", 76, 21, 5},
	{"Emma Davis", "Political Satire", "Political", "Political satire delivered with a wink.", "assets/meme5.jpg", 65, 18, 6},
	{"David Brown", "Funny Moment", "Funny", "A funny moment from daily life that gets everyone laughing.", "assets/meme6.jpg", 54, 15, 7},
	{"Lisa Anderson", "Relatable Situation", "Relatable", "A situation so relatable it hurts.", "assets/meme7.jpg", 43, 12, 8},
	{"Tom Miller", "Dark Comedy", "Dark", "Dark comedy that makes you laugh in a slightly strange way.", "assets/meme8.jpg", 38, 10, 9},
	{"Anna Taylor", "Heartwarming", "Wholesome", "Heartwarming content guaranteed to make you smile.", "assets/meme9.jpg", 29, 8, 10},
	{"Chris Lee", "Funny Reaction", "Funny", "A funny reaction for every situation imaginable.", "assets/meme10.jpg", 22, 6, 11},
}

// seedDemoMemes replaces the meme collection with the fixed demo set whenever
// fewer than ten memes exist, so a fresh leaderboard always has content.
func (s *Store) seedDemoMemes() error {
	memes, err := s.GetAll(CollectionMemes)
	if err != nil {
		return err
	}
	if len(memes) >= len(demoMemes) {
		return nil
	}

	for _, meme := range memes {
		if _, err := s.Delete(CollectionMemes, meme.ID()); err != nil {
			return err
		}
	}

	now := s.clock().UTC()
	for i, meme := range demoMemes {
		record := Record{
			"userId":         fmt.Sprintf("user%d", i+1),
			"username":       meme.username,
			"title":          meme.title,
			"category":       meme.category,
			"description":    meme.description,
			"imageUrl":       meme.image,
			"voteCount":      meme.votes,
			"commentCount":   meme.comments,
			"statusComments": "enabled",
			"arenaId":        nil,
			"createdAt":      now.AddDate(0, 0, -meme.daysAgo).Format(time.RFC3339Nano),
		}
		if _, err := s.Create(CollectionMemes, record); err != nil {
			return err
		}
	}
	s.logger.Info("demo memes seeded", zap.Int("count", len(demoMemes)))
	return nil
}

var demoCommentAuthors = []string{
	"meme_lover", "funny_guy", "dark_humor", "wholesome_user", "reaction_master",
	"meme_king", "laugh_factory", "comedy_central", "joke_teller", "humor_seeker",
	"meme_collector", "funny_bone", "laugh_out_loud", "comedy_gold",
}

var demoCommentTexts = []string{
	"This meme is hilarious! 😂",
	"So relatable!",
	"Haha this literally happened to me",
	"Top tier meme!",
	"This is what I was looking for!",
	"LOL this is way too accurate",
	"So true",
	"Best meme of the day",
	"I completely agree with this",
	"This made my day better",
	"Absolutely hilarious!",
	"Meme of the year!",
	"This needs to go viral!",
	"Perfect timing!",
	"I felt this one",
	"This actually happened",
	"Haha brilliant",
	"This is the funniest one yet",
}

// seedDemoComments fills 3-8 randomized comments per meme when the comment
// collection is empty or thinner than the meme count, then syncs each meme's
// commentCount to what was actually written.
func (s *Store) seedDemoComments() error {
	memes, err := s.GetAll(CollectionMemes)
	if err != nil {
		return err
	}
	if len(memes) == 0 {
		return nil
	}
	commentTotal, err := s.Count(CollectionComments, nil)
	if err != nil {
		return err
	}
	if commentTotal >= len(memes) {
		return nil
	}

	now := s.clock().UTC()
	for _, meme := range memes {
		perMeme := rand.IntN(6) + 3
		for i := 0; i < perMeme; i++ {
			createdAt := now.
				AddDate(0, 0, -rand.IntN(7)).
				Add(-time.Duration(rand.IntN(24*3600)) * time.Second)
			_, err := s.Create(CollectionComments, Record{
				"memeId":    meme.ID(),
				"userId":    fmt.Sprintf("user%d", rand.IntN(10)+1),
				"username":  demoCommentAuthors[rand.IntN(len(demoCommentAuthors))],
				"text":      demoCommentTexts[rand.IntN(len(demoCommentTexts))],
				"createdAt": createdAt.Format(time.RFC3339Nano),
			})
			if err != nil {
				return err
			}
		}
		if _, err := s.Update(CollectionMemes, meme.ID(), Record{"commentCount": perMeme}); err != nil {
			return err
		}
	}
	return nil
}
