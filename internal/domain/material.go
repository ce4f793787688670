package domain

import (
	"fmt"
	"strings"
	"time"
)

type MaterialType string

const (
	MaterialPDF      MaterialType = "pdf"
	MaterialImage    MaterialType = "image"
	MaterialAudio    MaterialType = "audio"
	MaterialVideo    MaterialType = "video"
	MaterialDocument MaterialType = "document"
)

func (t MaterialType) IsValid() bool {
	switch t {
	case MaterialPDF, MaterialImage, MaterialAudio, MaterialVideo, MaterialDocument:
		return true
	}
	return false
}

var documentMIMETypes = map[string]bool{
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   true,
	"application/vnd.ms-powerpoint":                                             true,
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": true,
	"text/plain": true,
}

// MaterialTypeFromMIME classifies an upload, rejecting unsupported types.
func MaterialTypeFromMIME(mimeType string) (MaterialType, error) {
	mt := strings.ToLower(strings.TrimSpace(strings.SplitN(mimeType, ";", 2)[0]))
	switch {
	case mt == "application/pdf":
		return MaterialPDF, nil
	case strings.HasPrefix(mt, "image/"):
		return MaterialImage, nil
	case strings.HasPrefix(mt, "audio/"):
		return MaterialAudio, nil
	case strings.HasPrefix(mt, "video/"):
		return MaterialVideo, nil
	case documentMIMETypes[mt]:
		return MaterialDocument, nil
	}
	return "", fmt.Errorf("%w: file type %q is not supported", ErrInvalidInput, mimeType)
}

type Material struct {
	ID            string       `json:"id"`
	UploaderID    string       `json:"uploaderId"`
	Title         string       `json:"title"`
	Description   string       `json:"description,omitempty"`
	Type          MaterialType `json:"type"`
	CEFRLevel     CEFRLevel    `json:"cefrLevel,omitempty"`
	Tags          []string     `json:"tags,omitempty"`
	ObjectKey     string       `json:"-"`
	URL           string       `json:"url"`
	MimeType      string       `json:"mimeType"`
	Size          int64        `json:"size"`
	IsPublic      bool         `json:"isPublic"`
	IsActive      bool         `json:"isActive"`
	DownloadCount int64        `json:"downloadCount"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}

// NormalizeTags lower-cases, trims and de-duplicates tags.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// CanManage reports whether user may edit or delete the material.
func (m *Material) CanManage(userID string, role Role) bool {
	return role == RoleAdmin || m.UploaderID == userID
}

// CanView reports whether user may see the material.
func (m *Material) CanView(userID string, role Role) bool {
	if m.CanManage(userID, role) {
		return true
	}
	return m.IsActive && m.IsPublic
}

type MaterialUpdate struct {
	Title       *string
	Description *string
	CEFRLevel   *CEFRLevel
	Tags        []string
	IsPublic    *bool
}

func (u MaterialUpdate) Apply(m *Material) error {
	if u.Title != nil {
		title := strings.TrimSpace(*u.Title)
		if title == "" {
			return fmt.Errorf("%w: title cannot be empty", ErrInvalidInput)
		}
		m.Title = title
	}
	if u.Description != nil {
		m.Description = strings.TrimSpace(*u.Description)
	}
	if u.CEFRLevel != nil {
		if *u.CEFRLevel != "" && !u.CEFRLevel.IsValid() {
			return fmt.Errorf("%w: unknown CEFR level %q", ErrInvalidInput, *u.CEFRLevel)
		}
		m.CEFRLevel = *u.CEFRLevel
	}
	if u.Tags != nil {
		m.Tags = NormalizeTags(u.Tags)
	}
	if u.IsPublic != nil {
		m.IsPublic = *u.IsPublic
	}
	m.UpdatedAt = time.Now().UTC()
	return nil
}

// MaterialFilter: ViewerID sees public materials plus their own.
type MaterialFilter struct {
	Page       int64
	Limit      int64
	Level      CEFRLevel
	Type       MaterialType
	Tag        string
	UploaderID string
	Query      string
	ViewerID   string
	// IncludeAll lifts the public/own restriction for admins.
	IncludeAll bool
}
