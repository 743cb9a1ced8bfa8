package models

import "time"

// Comment models a single comment on a meme. Username is a denormalized
// snapshot of the author's name at posting time.
type Comment struct {
	ID        string    `json:"id"`
	MemeID    string    `json:"memeId"`
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
}

// Vote records that a user voted for a meme. At most one vote exists per
// (meme, user) pair; the service layer enforces this before inserting.
type Vote struct {
	ID        string    `json:"id"`
	MemeID    string    `json:"memeId"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
}
