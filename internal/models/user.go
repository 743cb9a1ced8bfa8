package models

import "time"

// Role enumerates the access levels a user can hold.
type Role string

const (
	RoleGuest     Role = "guest"
	RoleMember    Role = "member"
	RoleModerator Role = "moderator"
)

// UserStats carries the denormalized counters shown on profiles and the leaderboard.
type UserStats struct {
	TotalUploads int `json:"totalUploads"`
	TotalWins    int `json:"totalWins"`
	TotalLikes   int `json:"totalLikes"`
}

// UnlockedAchievement is the denormalized copy stored on the user when an
// achievement requirement is met.
type UnlockedAchievement struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	UnlockedAt time.Time `json:"unlockedAt"`
}

// User models a registered account. Password holds a bcrypt hash and is
// stripped before the record leaves the service layer.
type User struct {
	ID           string                `json:"id"`
	Username     string                `json:"username"`
	Password     string                `json:"password,omitempty"`
	Email        string                `json:"email"`
	Role         Role                  `json:"role"`
	Title        string                `json:"title,omitempty"`
	Stats        UserStats             `json:"stats"`
	Achievements []UnlockedAchievement `json:"achievements"`
	CreatedAt    time.Time             `json:"createdAt,omitzero"`
	UpdatedAt    time.Time             `json:"updatedAt,omitzero"`
}

// Normalize applies the defaulting rules used when decoding raw records.
func (u *User) Normalize() {
	if u.Role == "" {
		u.Role = RoleMember
	}
	if u.Achievements == nil {
		u.Achievements = []UnlockedAchievement{}
	}
}

// Public returns a copy safe for persistence outside the user collection.
func (u User) Public() User {
	clone := u
	clone.Password = ""
	return clone
}

// HasAchievement reports whether the achievement has already been unlocked.
func (u User) HasAchievement(achievementID string) bool {
	for _, unlocked := range u.Achievements {
		if unlocked.ID == achievementID {
			return true
		}
	}
	return false
}

// Unlock appends a denormalized unlock record unless already present.
func (u *User) Unlock(achievement Achievement, at time.Time) {
	if u.HasAchievement(achievement.ID) {
		return
	}
	u.Achievements = append(u.Achievements, UnlockedAchievement{
		ID:         achievement.ID,
		Name:       achievement.Name,
		UnlockedAt: at,
	})
}

// UserPatch is an explicit partial update for a user record. Nil fields are
// left untouched by the merge.
type UserPatch struct {
	Username     *string
	Password     *string
	Email        *string
	Role         *Role
	Title        *string
	Stats        *UserStats
	Achievements *[]UnlockedAchievement
}

// Fields renders the patch as the set of record fields to merge.
func (p UserPatch) Fields() map[string]any {
	fields := map[string]any{}
	if p.Username != nil {
		fields["username"] = *p.Username
	}
	if p.Password != nil {
		fields["password"] = *p.Password
	}
	if p.Email != nil {
		fields["email"] = *p.Email
	}
	if p.Role != nil {
		fields["role"] = string(*p.Role)
	}
	if p.Title != nil {
		fields["title"] = *p.Title
	}
	if p.Stats != nil {
		fields["stats"] = *p.Stats
	}
	if p.Achievements != nil {
		fields["achievements"] = *p.Achievements
	}
	return fields
}
