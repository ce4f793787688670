package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

type OrganizationType string

const (
	OrgSchool     OrganizationType = "school"
	OrgCompany    OrganizationType = "company"
	OrgIndividual OrganizationType = "individual"
)

func (t OrganizationType) IsValid() bool {
	switch t {
	case OrgSchool, OrgCompany, OrgIndividual:
		return true
	}
	return false
}

type MemberRole string

const (
	MemberOwner   MemberRole = "owner"
	MemberAdmin   MemberRole = "admin"
	MemberTeacher MemberRole = "teacher"
	MemberStudent MemberRole = "student"
)

func (r MemberRole) IsValid() bool {
	switch r {
	case MemberOwner, MemberAdmin, MemberTeacher, MemberStudent:
		return true
	}
	return false
}

type Member struct {
	UserID   string     `json:"userId"`
	Role     MemberRole `json:"role"`
	JoinedAt time.Time  `json:"joinedAt"`
}

// OrganizationSettings limits are ignored when zero.
type OrganizationSettings struct {
	MaxTeachers int `json:"maxTeachers"`
	MaxStudents int `json:"maxStudents"`
}

type Organization struct {
	ID        string               `json:"id"`
	Name      string               `json:"name"`
	Slug      string               `json:"slug"`
	Type      OrganizationType     `json:"type"`
	OwnerID   string               `json:"ownerId"`
	Members   []Member             `json:"members"`
	Settings  OrganizationSettings `json:"settings"`
	IsActive  bool                 `json:"isActive"`
	Version   int64                `json:"version"`
	CreatedAt time.Time            `json:"createdAt"`
	UpdatedAt time.Time            `json:"updatedAt"`
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a URL slug from a display name.
func Slugify(name string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(name), "-"), "-")
}

func NewOrganization(name string, orgType OrganizationType, ownerID string, settings OrganizationSettings) (*Organization, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: organization name is required", ErrInvalidInput)
	}
	slug := Slugify(name)
	if slug == "" {
		return nil, fmt.Errorf("%w: organization name must contain letters or digits", ErrInvalidInput)
	}
	if !orgType.IsValid() {
		return nil, fmt.Errorf("%w: unknown organization type %q", ErrInvalidInput, orgType)
	}
	if ownerID == "" {
		return nil, fmt.Errorf("%w: owner is required", ErrInvalidInput)
	}
	if settings.MaxStudents < 0 || settings.MaxTeachers < 0 {
		return nil, fmt.Errorf("%w: member limits cannot be negative", ErrInvalidInput)
	}
	now := time.Now().UTC()
	return &Organization{
		Name:      name,
		Slug:      slug,
		Type:      orgType,
		OwnerID:   ownerID,
		Members:   []Member{{UserID: ownerID, Role: MemberOwner, JoinedAt: now}},
		Settings:  settings,
		IsActive:  true,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (o *Organization) MemberRoleOf(userID string) (MemberRole, bool) {
	for _, m := range o.Members {
		if m.UserID == userID {
			return m.Role, true
		}
	}
	return "", false
}

// CanManage is true for the owner and organization admins.
func (o *Organization) CanManage(userID string) bool {
	role, ok := o.MemberRoleOf(userID)
	return ok && (role == MemberOwner || role == MemberAdmin)
}

func (o *Organization) count(role MemberRole) int {
	n := 0
	for _, m := range o.Members {
		if m.Role == role {
			n++
		}
	}
	return n
}

// AddMember enforces uniqueness and the configured limits.
func (o *Organization) AddMember(userID string, role MemberRole, now time.Time) error {
	if userID == "" {
		return fmt.Errorf("%w: user is required", ErrInvalidInput)
	}
	if !role.IsValid() || role == MemberOwner {
		return fmt.Errorf("%w: member role %q cannot be assigned", ErrInvalidInput, role)
	}
	if _, exists := o.MemberRoleOf(userID); exists {
		return fmt.Errorf("%w: user is already a member", ErrConflict)
	}
	if role == MemberTeacher && o.Settings.MaxTeachers > 0 && o.count(MemberTeacher) >= o.Settings.MaxTeachers {
		return fmt.Errorf("%w: teacher limit of %d reached", ErrInvalidInput, o.Settings.MaxTeachers)
	}
	if role == MemberStudent && o.Settings.MaxStudents > 0 && o.count(MemberStudent) >= o.Settings.MaxStudents {
		return fmt.Errorf("%w: student limit of %d reached", ErrInvalidInput, o.Settings.MaxStudents)
	}
	o.Members = append(o.Members, Member{UserID: userID, Role: role, JoinedAt: now.UTC()})
	o.UpdatedAt = now.UTC()
	return nil
}

func (o *Organization) RemoveMember(userID string, now time.Time) error {
	if userID == o.OwnerID {
		return fmt.Errorf("%w: the owner cannot be removed", ErrForbidden)
	}
	for i, m := range o.Members {
		if m.UserID == userID {
			o.Members = append(o.Members[:i], o.Members[i+1:]...)
			o.UpdatedAt = now.UTC()
			return nil
		}
	}
	return fmt.Errorf("%w: user is not a member", ErrNotFound)
}

type OrganizationUpdate struct {
	Name     *string
	Type     *OrganizationType
	Settings *OrganizationSettings
}

func (u OrganizationUpdate) Apply(o *Organization) error {
	if u.Name != nil {
		name := strings.TrimSpace(*u.Name)
		if name == "" {
			return fmt.Errorf("%w: organization name cannot be empty", ErrInvalidInput)
		}
		o.Name = name
	}
	if u.Type != nil {
		if !u.Type.IsValid() {
			return fmt.Errorf("%w: unknown organization type %q", ErrInvalidInput, *u.Type)
		}
		o.Type = *u.Type
	}
	if u.Settings != nil {
		if u.Settings.MaxStudents < 0 || u.Settings.MaxTeachers < 0 {
			return fmt.Errorf("%w: member limits cannot be negative", ErrInvalidInput)
		}
		o.Settings = *u.Settings
	}
	o.UpdatedAt = time.Now().UTC()
	return nil
}

type OrganizationFilter struct {
	Page     int64
	Limit    int64
	MemberID string
	IsActive *bool
}
