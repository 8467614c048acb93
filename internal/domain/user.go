package domain

import "time"

// UserProfile is a member record keyed by the identity provider's user id.
type UserProfile struct {
	ID        string    `bson:"_id" json:"id"`
	Email     string    `bson:"email" json:"email"`
	FullName  string    `bson:"full_name" json:"fullName"`
	Role      Role      `bson:"role" json:"role"`
	Phone     string    `bson:"phone,omitempty" json:"phone,omitempty"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// ProfileFields carries the caller-supplied values for a new profile.
// An empty Role defaults to RoleUser.
type ProfileFields struct {
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	Role     Role   `json:"role,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

// Promotion identifies the profile a promotion was applied to, as it was
// before the change.
type Promotion struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FullName     string    `json:"fullName"`
	PreviousRole Role      `json:"previousRole"`
	PromotedAt   time.Time `json:"promotedAt"`
}

// ProfileStats summarizes the users collection.
type ProfileStats struct {
	Total  int64 `json:"total"`
	Admins int64 `json:"admins"`
}
