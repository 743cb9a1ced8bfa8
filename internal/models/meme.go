package models

import "time"

// CommentStatus controls whether a meme accepts new comments.
type CommentStatus string

const (
	CommentsEnabled  CommentStatus = "enabled"
	CommentsDisabled CommentStatus = "disabled"
)

// Meme models an uploaded meme. VoteCount and CommentCount are denormalized
// counters kept consistent by the service layer, not by the store.
type Meme struct {
	ID             string        `json:"id"`
	UserID         string        `json:"userId"`
	Username       string        `json:"username"`
	Title          string        `json:"title"`
	Category       string        `json:"category"`
	Description    string        `json:"description"`
	ImageURL       string        `json:"imageUrl"`
	VoteCount      int           `json:"voteCount"`
	CommentCount   int           `json:"commentCount"`
	StatusComments CommentStatus `json:"statusComments"`
	ArenaID        *string       `json:"arenaId"`
	CreatedAt      time.Time     `json:"createdAt,omitzero"`
	UpdatedAt      time.Time     `json:"updatedAt,omitzero"`
}

// Normalize applies the defaulting rules used when decoding raw records.
func (m *Meme) Normalize() {
	if m.StatusComments == "" {
		m.StatusComments = CommentsEnabled
	}
}

// MemePatch is an explicit partial update for a meme record.
type MemePatch struct {
	Title          *string
	Category       *string
	Description    *string
	ImageURL       *string
	VoteCount      *int
	CommentCount   *int
	StatusComments *CommentStatus
	ArenaID        *string
}

// Fields renders the patch as the set of record fields to merge.
func (p MemePatch) Fields() map[string]any {
	fields := map[string]any{}
	if p.Title != nil {
		fields["title"] = *p.Title
	}
	if p.Category != nil {
		fields["category"] = *p.Category
	}
	if p.Description != nil {
		fields["description"] = *p.Description
	}
	if p.ImageURL != nil {
		fields["imageUrl"] = *p.ImageURL
	}
	if p.VoteCount != nil {
		fields["voteCount"] = *p.VoteCount
	}
	if p.CommentCount != nil {
		fields["commentCount"] = *p.CommentCount
	}
	if p.StatusComments != nil {
		fields["statusComments"] = string(*p.StatusComments)
	}
	if p.ArenaID != nil {
		fields["arenaId"] = *p.ArenaID
	}
	return fields
}
