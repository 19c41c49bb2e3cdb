package http

import (
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/aussiebroadwan/bookly/internal/identity/domain"
	"github.com/aussiebroadwan/bookly/pkg/authsdk"
)

const (
	minNameLength     = 3
	minPasswordLength = 6
)

func validateSignUp(req *authsdk.SignUpRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = normalizeEmail(req.Email)

	fe := fieldErrors{}
	if n := utf8.RuneCountInString(req.Name); n < minNameLength || n > domain.MaxNameLength {
		fe.add("name", "must be between 3 and 20 characters")
	}
	checkEmail(fe, req.Email)
	if utf8.RuneCountInString(req.Password) < minPasswordLength {
		fe.add("password", "must be at least 6 characters")
	}
	return fe.err()
}

func validateSignIn(req *authsdk.SignInRequest) error {
	req.Email = normalizeEmail(req.Email)
	req.Username = strings.TrimSpace(req.Username)

	fe := fieldErrors{}
	switch {
	case req.Email == "" && req.Username == "":
		fe.add("email", "email or username is required")
	case req.Email != "" && req.Username != "":
		fe.add("email", "provide either email or username, not both")
	case req.Email != "":
		checkEmail(fe, req.Email)
	}
	if req.Password == "" {
		fe.add("password", "is required")
	}
	return fe.err()
}

// validateUpdateProfile only enforces column limits. Empty fields are
// allowed and leave the profile incomplete.
func validateUpdateProfile(req *authsdk.UpdateProfileRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	req.Username = strings.TrimSpace(req.Username)
	req.Gender = strings.TrimSpace(req.Gender)

	fe := fieldErrors{}
	if n := utf8.RuneCountInString(req.Name); n > 0 && (n < minNameLength || n > domain.MaxNameLength) {
		fe.add("name", "must be between 3 and 20 characters")
	}
	if utf8.RuneCountInString(req.Username) > domain.MaxUsernameLength {
		fe.add("username", "must be at most 20 characters")
	}
	if strings.ContainsAny(req.Username, " @") {
		fe.add("username", "must not contain spaces or '@'")
	}
	if req.Gender != "" {
		if _, ok := domain.ParseGender(req.Gender); !ok {
			fe.add("gender", "must be one of Male, Female or Other")
		}
	}
	if req.Bio != nil && utf8.RuneCountInString(*req.Bio) > domain.MaxBioLength {
		fe.add("bio", "must be at most 255 characters")
	}
	return fe.err()
}

func validateChangePassword(req *authsdk.ChangePasswordRequest) error {
	fe := fieldErrors{}
	if req.OldPassword == "" {
		fe.add("old_password", "is required")
	}
	if utf8.RuneCountInString(req.NewPassword) < minPasswordLength {
		fe.add("new_password", "must be at least 6 characters")
	}
	return fe.err()
}

func normalizeEmail(s string) string {
	return strings.TrimSpace(s)
}

func checkEmail(fe fieldErrors, email string) {
	if email == "" {
		fe.add("email", "is required")
		return
	}
	if utf8.RuneCountInString(email) > domain.MaxEmailLength {
		fe.add("email", "must be at most 40 characters")
		return
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		fe.add("email", "must be a valid email address")
	}
}
