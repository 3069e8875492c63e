package domain

import "time"

// User is an account owned by the identity service. PasswordHash never
// leaves the service layer.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	ProfileImage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserProfile is the credential-free projection of a User that crosses the
// service boundary.
type UserProfile struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email,omitempty"`
	ProfileImage string    `json:"profileImage"`
	CreatedAt    time.Time `json:"createdAt"`
}

// PlaceholderProfile stands in for an owner whose identity could not be
// resolved. Listings degrade to it instead of failing.
func PlaceholderProfile() *UserProfile {
	return &UserProfile{
		Username:     "Unknown User",
		ProfileImage: "",
	}
}

// Profile strips credentials from a User.
func (u *User) Profile() *UserProfile {
	if u == nil {
		return nil
	}
	return &UserProfile{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		ProfileImage: u.ProfileImage,
		CreatedAt:    u.CreatedAt,
	}
}
