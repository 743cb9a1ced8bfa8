package models

import "time"

// RequirementType enumerates the stat an achievement requirement is measured
// against. Unknown types are never satisfied.
type RequirementType string

const (
	RequirementUpload     RequirementType = "upload"
	RequirementSingleVote RequirementType = "single_vote"
	RequirementTotalVotes RequirementType = "total_votes"
	RequirementNone       RequirementType = "none"
)

// Requirement describes what a user must accomplish to unlock an achievement.
type Requirement struct {
	Type  RequirementType `json:"type"`
	Count int             `json:"count"`
}

// Achievement models an unlockable badge configured by moderators.
type Achievement struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Icon        string      `json:"icon"`
	Requirement Requirement `json:"requirement"`
	Color       string      `json:"color"`
	TextColor   string      `json:"textColor"`
	CreatedAt   time.Time   `json:"createdAt,omitzero"`
	UpdatedAt   time.Time   `json:"updatedAt,omitzero"`
}

// Normalize applies the defaulting rules used when decoding raw records.
func (a *Achievement) Normalize() {
	if a.Icon == "" {
		a.Icon = "🏆"
	}
	if a.Color == "" {
		a.Color = "#6366f1"
	}
	if a.TextColor == "" {
		a.TextColor = "#ffffff"
	}
}

// SatisfiedBy reports whether the requirement is met by the given stats.
// single_vote requirements need per-meme data and are evaluated elsewhere;
// here they, like any unknown type, report false.
func (a Achievement) SatisfiedBy(stats UserStats) bool {
	switch a.Requirement.Type {
	case RequirementUpload:
		return stats.TotalUploads >= a.Requirement.Count
	case RequirementTotalVotes:
		return stats.TotalLikes >= a.Requirement.Count
	case RequirementNone:
		return true
	default:
		return false
	}
}

// AchievementPatch is an explicit partial update for an achievement record.
type AchievementPatch struct {
	Name        *string
	Description *string
	Icon        *string
	Requirement *Requirement
	Color       *string
	TextColor   *string
}

// Fields renders the patch as the set of record fields to merge.
func (p AchievementPatch) Fields() map[string]any {
	fields := map[string]any{}
	if p.Name != nil {
		fields["name"] = *p.Name
	}
	if p.Description != nil {
		fields["description"] = *p.Description
	}
	if p.Icon != nil {
		fields["icon"] = *p.Icon
	}
	if p.Requirement != nil {
		fields["requirement"] = *p.Requirement
	}
	if p.Color != nil {
		fields["color"] = *p.Color
	}
	if p.TextColor != nil {
		fields["textColor"] = *p.TextColor
	}
	return fields
}
