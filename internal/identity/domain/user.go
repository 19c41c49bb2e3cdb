package domain

import (
	"strings"
	"time"
)

// Column limits of the users table.
const (
	MaxNameLength     = 20
	MaxEmailLength    = 40
	MaxUsernameLength = 20
	MaxBioLength      = 255
)

type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
	GenderOther  Gender = "Other"
)

// ParseGender accepts the canonical names case-insensitively.
func ParseGender(s string) (Gender, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "male":
		return GenderMale, true
	case "female":
		return GenderFemale, true
	case "other":
		return GenderOther, true
	}
	return "", false
}

type User struct {
	ID           string
	Name         string
	Email        string
	Username     string // empty until assigned
	PasswordHash string
	Gender       Gender
	Image        string
	Bio          string
	Setup        bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsComplete reports whether every required profile field is set.
func (u User) IsComplete() bool {
	return strings.TrimSpace(u.Name) != "" &&
		strings.TrimSpace(u.Email) != "" &&
		strings.TrimSpace(u.Username) != "" &&
		u.Gender != ""
}

// Profile is the public snapshot of a user. It is what gets cached and
// returned to clients, so it never carries the password hash.
type Profile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	Gender    Gender    `json:"gender"`
	Image     string    `json:"image,omitempty"`
	Bio       string    `json:"bio,omitempty"`
	Setup     bool      `json:"setup"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u User) Profile() Profile {
	return Profile{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Username:  u.Username,
		Gender:    u.Gender,
		Image:     u.Image,
		Bio:       u.Bio,
		Setup:     u.Setup,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
