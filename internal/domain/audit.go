package domain

import "time"

// Audit actions.
const (
	AuditUserRegistered       = "user.registered"
	AuditUserApproved         = "user.approved"
	AuditUserActiveChanged    = "user.active_changed"
	AuditUserRoleChanged      = "user.role_changed"
	AuditUserPasswordChanged  = "user.password_changed"
	AuditReservationCreated   = "reservation.created"
	AuditReservationConfirmed = "reservation.confirmed"
	AuditReservationCancelled = "reservation.cancelled"
	AuditReservationCompleted = "reservation.completed"
	AuditReservationNoShow    = "reservation.no_show"
	AuditMaterialUploaded     = "material.uploaded"
	AuditMaterialUpdated      = "material.updated"
	AuditMaterialDeleted      = "material.deleted"
	AuditOrganizationCreated  = "organization.created"
	AuditOrganizationUpdated  = "organization.updated"
	AuditOrganizationMember   = "organization.member_changed"
	AuditOrganizationDeleted  = "organization.deactivated"
	AuditRoleChanged          = "role.changed"
	AuditPaymentStatus        = "payment.status_changed"
)

// Entity types used in audit entries.
const (
	EntityUser         = "user"
	EntityReservation  = "reservation"
	EntityMaterial     = "material"
	EntityOrganization = "organization"
	EntityRole         = "role"
	EntityPayment      = "payment"
)

type AuditLog struct {
	ID         string                 `json:"id"`
	ActorID    string                 `json:"actorId"`
	ActorRole  Role                   `json:"actorRole,omitempty"`
	Action     string                 `json:"action"`
	EntityType string                 `json:"entityType"`
	EntityID   string                 `json:"entityId"`
	Changes    map[string]interface{} `json:"changes,omitempty"`
	IP         string                 `json:"ip,omitempty"`
	UserAgent  string                 `json:"userAgent,omitempty"`
	CreatedAt  time.Time              `json:"createdAt"`
}

type AuditFilter struct {
	Page       int64
	Limit      int64
	ActorID    string
	EntityType string
	EntityID   string
	Action     string
	From       *time.Time
	To         *time.Time
}
