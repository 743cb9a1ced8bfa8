package models

import "time"

// Arena models a themed competition that memes can be submitted into.
// Deactivating an arena does not cascade to its memes.
type Arena struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	StartDate   time.Time  `json:"startDate,omitzero"`
	EndDate     *time.Time `json:"endDate"`
	IsActive    bool       `json:"isActive"`
	CreatedBy   string     `json:"createdBy"`
	CreatedAt   time.Time  `json:"createdAt,omitzero"`
	UpdatedAt   time.Time  `json:"updatedAt,omitzero"`
}

// ArenaPatch is an explicit partial update for an arena record.
type ArenaPatch struct {
	Name        *string
	Description *string
	StartDate   *time.Time
	EndDate     *time.Time
	IsActive    *bool
}

// Fields renders the patch as the set of record fields to merge.
func (p ArenaPatch) Fields() map[string]any {
	fields := map[string]any{}
	if p.Name != nil {
		fields["name"] = *p.Name
	}
	if p.Description != nil {
		fields["description"] = *p.Description
	}
	if p.StartDate != nil {
		fields["startDate"] = *p.StartDate
	}
	if p.EndDate != nil {
		fields["endDate"] = *p.EndDate
	}
	if p.IsActive != nil {
		fields["isActive"] = *p.IsActive
	}
	return fields
}
