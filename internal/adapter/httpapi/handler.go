package httpapi

import (
	"net/http"

	"github.com/cemonal1/Verbfy-sub006/internal/domain"
	"github.com/cemonal1/Verbfy-sub006/internal/platform/errtrack"
	"github.com/cemonal1/Verbfy-sub006/internal/platform/logger"
)

// Services groups the operations exposed over HTTP.
type Services struct {
	Tokens        TokenParser
	Auth          AuthService
	Users         UserService
	Availability  AvailabilityService
	Reservations  ReservationService
	Sessions      SessionService
	Lessons       LessonService
	Materials     MaterialService
	Organizations OrganizationService
	Notifications NotificationService
	Payments      PaymentService
	Roles         RoleService
	Audit         AuditService
	Stream        NotificationStream
}

type Handler struct {
	svc      Services
	validate *Validator
	rs       responder
	logger   *logger.Logger
}

func NewHandler(svc Services, reporter errtrack.Reporter, log *logger.Logger) *Handler {
	if reporter == nil {
		reporter = errtrack.Nop{}
	}
	l := log.Named("HTTPHandler")
	return &Handler{
		svc:      svc,
		validate: NewValidator(),
		rs:       responder{logger: l, reporter: reporter},
		logger:   l,
	}
}

// actor returns the caller set by Authenticate. Routes without it get an
// anonymous actor, which every usecase rejects where identity matters.
func actor(r *http.Request) domain.Actor {
	a, ok := ActorFrom(r.Context())
	if !ok {
		return domain.Actor{IP: clientIP(r), UserAgent: r.UserAgent()}
	}
	return a
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := h.validate.decode(r, dst); err != nil {
		h.rs.fail(w, r, err)
		return false
	}
	return true
}
