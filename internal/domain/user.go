package domain

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
)

// Role is the built-in role carried by every user and its tokens.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return true
	}
	return false
}

// CEFRLevel is a Common European Framework of Reference level.
type CEFRLevel string

const (
	LevelA1 CEFRLevel = "A1"
	LevelA2 CEFRLevel = "A2"
	LevelB1 CEFRLevel = "B1"
	LevelB2 CEFRLevel = "B2"
	LevelC1 CEFRLevel = "C1"
	LevelC2 CEFRLevel = "C2"
)

var cefrOrder = map[CEFRLevel]int{LevelA1: 1, LevelA2: 2, LevelB1: 3, LevelB2: 4, LevelC1: 5, LevelC2: 6}

func (l CEFRLevel) IsValid() bool {
	_, ok := cefrOrder[l]
	return ok
}

// Rank orders levels from A1=1 to C2=6. Unknown levels rank 0.
func (l CEFRLevel) Rank() int {
	return cefrOrder[l]
}

const MinPasswordLength = 8

type User struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Email          string     `json:"email"`
	PasswordHash   string     `json:"-"`
	Role           Role       `json:"role"`
	IsActive       bool       `json:"isActive"`
	IsApproved     bool       `json:"isApproved"`
	EnglishLevel   CEFRLevel  `json:"englishLevel,omitempty"`
	Bio            string     `json:"bio,omitempty"`
	Specialties    []string   `json:"specialties,omitempty"`
	HourlyRate     int64      `json:"hourlyRate,omitempty"`
	OrganizationID string     `json:"organizationId,omitempty"`
	AvatarURL      string     `json:"avatarUrl,omitempty"`
	LastLoginAt    *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// NormalizeEmail lower-cases and trims an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NewUser validates registration data. Teachers start unapproved.
func NewUser(name, email, passwordHash string, role Role, level CEFRLevel) (*User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	email = NormalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: email is invalid", ErrInvalidInput)
	}
	if passwordHash == "" {
		return nil, fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	if !role.IsValid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}
	if level != "" && !level.IsValid() {
		return nil, fmt.Errorf("%w: unknown CEFR level %q", ErrInvalidInput, level)
	}

	now := time.Now().UTC()
	return &User{
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		IsActive:     true,
		IsApproved:   role != RoleTeacher,
		EnglishLevel: level,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// CanTeach reports whether the user may receive bookings.
func (u *User) CanTeach() bool {
	return u.Role == RoleTeacher && u.IsActive && u.IsApproved
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// TeacherProfile is the part of a teacher shown to anonymous visitors.
type TeacherProfile struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Bio          string    `json:"bio,omitempty"`
	Specialties  []string  `json:"specialties,omitempty"`
	HourlyRate   int64     `json:"hourlyRate"`
	EnglishLevel CEFRLevel `json:"englishLevel,omitempty"`
	AvatarURL    string    `json:"avatarUrl,omitempty"`
}

func (u *User) PublicProfile() *TeacherProfile {
	return &TeacherProfile{
		ID:           u.ID,
		Name:         u.Name,
		Bio:          u.Bio,
		Specialties:  u.Specialties,
		HourlyRate:   u.HourlyRate,
		EnglishLevel: u.EnglishLevel,
		AvatarURL:    u.AvatarURL,
	}
}

// ProfileUpdate carries optional profile changes; nil fields are left alone.
type ProfileUpdate struct {
	Name         *string
	Bio          *string
	Specialties  []string
	HourlyRate   *int64
	EnglishLevel *CEFRLevel
	AvatarURL    *string
}

// Apply validates and applies the update.
func (p ProfileUpdate) Apply(u *User) error {
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return fmt.Errorf("%w: name cannot be empty", ErrInvalidInput)
		}
		u.Name = name
	}
	if p.Bio != nil {
		u.Bio = strings.TrimSpace(*p.Bio)
	}
	if p.Specialties != nil {
		u.Specialties = p.Specialties
	}
	if p.HourlyRate != nil {
		if *p.HourlyRate < 0 {
			return fmt.Errorf("%w: hourly rate cannot be negative", ErrInvalidInput)
		}
		if u.Role != RoleTeacher {
			return fmt.Errorf("%w: only teachers have an hourly rate", ErrInvalidInput)
		}
		u.HourlyRate = *p.HourlyRate
	}
	if p.EnglishLevel != nil {
		if *p.EnglishLevel != "" && !p.EnglishLevel.IsValid() {
			return fmt.Errorf("%w: unknown CEFR level %q", ErrInvalidInput, *p.EnglishLevel)
		}
		u.EnglishLevel = *p.EnglishLevel
	}
	if p.AvatarURL != nil {
		u.AvatarURL = strings.TrimSpace(*p.AvatarURL)
	}
	u.UpdatedAt = time.Now().UTC()
	return nil
}

// UserFilter selects users for admin listings and the teacher directory.
type UserFilter struct {
	Page       int64
	Limit      int64
	Role       *Role
	IsActive   *bool
	IsApproved *bool
	Specialty  string
	Level      CEFRLevel
	Query      string
}
