package users

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/taskhub-server/internal/errors"
	"golang.org/x/crypto/bcrypt"
)

// Status mirrors IsLoggedIn for clients that display presence from the user record.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

type User struct {
	ID           string `bson:"_id" json:"id"`
	Email        string `bson:"email" json:"email"`
	Username     string `bson:"username" json:"username"`
	PasswordHash string `bson:"passwordHash" json:"-"` // never serialize
	FirstName    string `bson:"firstName,omitempty" json:"firstName,omitempty"`
	LastName     string `bson:"lastName,omitempty" json:"lastName,omitempty"`
	RoleID       string `bson:"roleId,omitempty" json:"roleId,omitempty"` // empty until assigned

	IsVerified bool       `bson:"isVerified" json:"isVerified"`
	IsActive   bool       `bson:"isActive" json:"isActive"`
	IsDeleted  bool       `bson:"isDeleted" json:"-"`
	DeletedAt  *time.Time `bson:"deletedAt,omitempty" json:"-"`
	IsLoggedIn bool       `bson:"isLoggedIn" json:"isLoggedIn"`
	Status     Status     `bson:"status" json:"status"`
	DateJoined time.Time  `bson:"dateJoined" json:"dateJoined"`
	LastLogin  time.Time  `bson:"lastLogin,omitempty" json:"lastLogin,omitempty"`

	PasswordResetTokenHash string     `bson:"passwordResetTokenHash,omitempty" json:"-"`
	PasswordResetExpiresAt *time.Time `bson:"passwordResetExpiresAt,omitempty" json:"-"`
}

// New builds an active, unverified user with a hashed password.
func New(email, username, password string, now time.Time) (*User, error) {
	if err := ValidatePasswordStrength(password); err != nil {
		return nil, err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("[users.New] hash password: %w", err)
	}
	return &User{
		ID:           uuid.NewString(),
		Email:        NormalizeEmail(email),
		Username:     username,
		PasswordHash: hash,
		IsActive:     true,
		Status:       StatusInactive,
		DateJoined:   now,
	}, nil
}

// RoleRef implements roles.Subject. Safe on a nil receiver.
func (u *User) RoleRef() string {
	if u == nil {
		return ""
	}
	return u.RoleID
}

// CanLogin is false for deactivated or soft-deleted accounts.
func (u *User) CanLogin() bool {
	return u.IsActive && !u.IsDeleted
}

// Sanitized returns a copy with every credential field cleared.
func (u *User) Sanitized() *User {
	if u == nil {
		return nil
	}
	copied := *u
	copied.PasswordHash = ""
	copied.PasswordResetTokenHash = ""
	copied.PasswordResetExpiresAt = nil
	return &copied
}

// CheckPassword compares password against the stored hash.
func (u *User) CheckPassword(password string) bool {
	return CheckPasswordHash(password, u.PasswordHash)
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidatePasswordStrength checks if password meets security requirements:
// - At least 8 characters long
// - Contains uppercase and lowercase letters
// - Contains at least one number
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters long: %w", apperrors.ErrWeakPassword)
	}

	var (
		hasUpper  bool
		hasLower  bool
		hasNumber bool
	)

	for _, char := range password {
		if unicode.IsUpper(char) {
			hasUpper = true
		} else if unicode.IsLower(char) {
			hasLower = true
		} else if unicode.IsDigit(char) {
			hasNumber = true
		}
	}

	if !hasUpper {
		return fmt.Errorf("password must contain at least one uppercase letter: %w", apperrors.ErrWeakPassword)
	}
	if !hasLower {
		return fmt.Errorf("password must contain at least one lowercase letter: %w", apperrors.ErrWeakPassword)
	}
	if !hasNumber {
		return fmt.Errorf("password must contain at least one number: %w", apperrors.ErrWeakPassword)
	}

	return nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
