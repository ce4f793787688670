//go:build integration

package mongodb

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/cemonal1/Verbfy-sub006/internal/config"
	"github.com/cemonal1/Verbfy-sub006/internal/domain"
	"github.com/cemonal1/Verbfy-sub006/internal/platform/logger"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
)

var testDB *mongo.Database

func TestMain(m *testing.M) {
	pool, err := dockertest.NewPool("")
	if err != nil {
		log.Fatalf("Could not construct pool: %s", err)
	}
	if err := pool.Client.Ping(); err != nil {
		log.Fatalf("Could not connect to Docker: %s", err)
	}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "mongo",
		Tag:        "6.0",
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		log.Fatalf("Could not start MongoDB resource: %s", err)
	}

	var client *mongo.Client
	cfg := config.MongoConfig{
		URI:            fmt.Sprintf("mongodb://%s", resource.GetHostPort("27017/tcp")),
		ConnectTimeout: 5 * time.Second,
	}
	if err := pool.Retry(func() error {
		var errRetry error
		client, errRetry = NewClient(context.Background(), cfg)
		return errRetry
	}); err != nil {
		log.Fatalf("Could not connect to MongoDB: %s", err)
	}
	testDB = client.Database("verbfy_test")

	code := m.Run()

	_ = client.Disconnect(context.Background())
	if err := pool.Purge(resource); err != nil {
		log.Printf("Could not purge MongoDB resource: %s", err)
	}
	os.Exit(code)
}

func TestUserRepository_Integration(t *testing.T) {
	ctx := context.Background()
	repo, err := NewUserRepository(testDB, logger.NewNop())
	require.NoError(t, err)

	u, err := domain.NewUser("Ada", "ada@verbfy.test", "hash", domain.RoleTeacher, domain.LevelC1)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, u))
	require.NotEmpty(t, u.ID)

	dup, _ := domain.NewUser("Ada Again", "ADA@verbfy.test", "hash", domain.RoleStudent, "")
	assert.ErrorIs(t, repo.Create(ctx, dup), domain.ErrConflict)

	got, err := repo.GetByEmail(ctx, "Ada@Verbfy.test")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.False(t, got.IsApproved)

	got.IsApproved = true
	got.Specialties = []string{"ielts"}
	require.NoError(t, repo.Update(ctx, got))

	teacher := domain.RoleTeacher
	approved := true
	list, total, err := repo.List(ctx, domain.UserFilter{Role: &teacher, IsApproved: &approved, Specialty: "ielts"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, list, 1)

	_, err = repo.GetByID(ctx, "not-an-id")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReservationRepository_Integration(t *testing.T) {
	ctx := context.Background()
	repo, err := NewReservationRepository(testDB, logger.NewNop())
	require.NoError(t, err)

	start := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	res := &domain.Reservation{
		StudentID: "s1", TeacherID: "t1", LessonType: domain.LessonConversation,
		ActualDate: "2026-06-01", StartTime: "10:00", EndTime: "11:00",
		StartsAt: start, EndsAt: start.Add(time.Hour), Status: domain.ReservationPending,
		CreatedAt: start, UpdatedAt: start,
	}
	require.NoError(t, repo.Create(ctx, res))

	clash := *res
	clash.ID = ""
	clash.StudentID = "s2"
	assert.ErrorIs(t, repo.Create(ctx, &clash), domain.ErrSlotUnavailable)

	overlapping, err := repo.FindOverlapping(ctx, []string{"s1"}, start.Add(30*time.Minute), start.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Len(t, overlapping, 1)

	touching, err := repo.FindOverlapping(ctx, []string{"t1"}, start.Add(time.Hour), start.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, touching)

	stale, err := repo.GetByID(ctx, res.ID)
	require.NoError(t, err)

	res.Status = domain.ReservationConfirmed
	require.NoError(t, repo.Update(ctx, res))
	assert.Equal(t, int64(1), res.Version)

	stale.Status = domain.ReservationCancelled
	assert.ErrorIs(t, repo.Update(ctx, stale), domain.ErrOptimisticLock)
}

func TestAvailabilityRepository_Integration(t *testing.T) {
	ctx := context.Background()
	repo, err := NewAvailabilityRepository(testDB, logger.NewNop())
	require.NoError(t, err)

	empty, err := repo.ListByTeacher(ctx, "t9")
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = repo.ReplaceForTeacher(ctx, "t9", []domain.Availability{
		{DayOfWeek: time.Monday, StartTime: "09:00", EndTime: "12:00", IsActive: true},
		{DayOfWeek: time.Tuesday, StartTime: "09:00", EndTime: "12:00", IsActive: true},
	})
	require.NoError(t, err)
	saved, err := repo.ReplaceForTeacher(ctx, "t9", []domain.Availability{
		{DayOfWeek: time.Friday, StartTime: "14:00", EndTime: "18:00", IsActive: true},
	})
	require.NoError(t, err)
	require.Len(t, saved, 1)

	week, err := repo.ListByTeacher(ctx, "t9")
	require.NoError(t, err)
	require.Len(t, week, 1)
	assert.Equal(t, time.Friday, week[0].DayOfWeek)
	assert.NotEmpty(t, week[0].ID)
}

func TestRoleRepository_EnsureSystemRolesKeepsEdits(t *testing.T) {
	ctx := context.Background()
	repo, err := NewRoleRepository(testDB, logger.NewNop())
	require.NoError(t, err)

	require.NoError(t, repo.EnsureSystemRoles(ctx, domain.SystemRoles()))
	student, err := repo.GetByName(ctx, string(domain.RoleStudent))
	require.NoError(t, err)

	student.Permissions = []string{domain.PermReservationsBook}
	require.NoError(t, repo.Update(ctx, student))
	require.NoError(t, repo.EnsureSystemRoles(ctx, domain.SystemRoles()))

	again, err := repo.GetByName(ctx, string(domain.RoleStudent))
	require.NoError(t, err)
	assert.Equal(t, []string{domain.PermReservationsBook}, again.Permissions)

	roles, err := repo.List(ctx, false)
	require.NoError(t, err)
	assert.Len(t, roles, 3)
}

func TestNotificationRepository_Integration(t *testing.T) {
	ctx := context.Background()
	repo, err := NewNotificationRepository(testDB, logger.NewNop())
	require.NoError(t, err)

	now := time.Now().UTC()
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Create(ctx, &domain.Notification{UserID: "u1", Type: domain.NotifySystem, Title: "hi", CreatedAt: now}))
	}
	other := &domain.Notification{UserID: "u2", Type: domain.NotifySystem, Title: "x", CreatedAt: now}
	require.NoError(t, repo.Create(ctx, other))

	assert.ErrorIs(t, repo.MarkRead(ctx, "u1", other.ID, now), domain.ErrNotFound)

	n, err := repo.MarkAllRead(ctx, "u1", now)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	unread, err := repo.CountUnread(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, unread)
}

func TestPaymentRepository_FindOpen(t *testing.T) {
	ctx := context.Background()
	repo, err := NewPaymentRepository(testDB, logger.NewNop())
	require.NoError(t, err)

	p, err := domain.NewPayment("s1", "r1", 4500, "usd", "lesson")
	require.NoError(t, err)
	p.ProviderRef = "pi_123"
	p.ClientSecret = "secret"
	require.NoError(t, repo.Create(ctx, p))

	got, err := repo.FindOpenForReservation(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
	assert.Empty(t, got.ClientSecret)

	byRef, err := repo.GetByProviderRef(ctx, "pi_123")
	require.NoError(t, err)
	assert.Equal(t, p.ID, byRef.ID)

	_, err = repo.FindOpenForReservation(ctx, "r2")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOrganizationRepository_StaleUpdate(t *testing.T) {
	ctx := context.Background()
	repo, err := NewOrganizationRepository(testDB, logger.NewNop())
	require.NoError(t, err)

	org, err := domain.NewOrganization("Stale School", domain.OrgSchool, "t1", domain.OrganizationSettings{MaxStudents: 1})
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, org))

	first, err := repo.GetByID(ctx, org.ID)
	require.NoError(t, err)
	second, err := repo.GetByID(ctx, org.ID)
	require.NoError(t, err)

	now := time.Now().UTC()
	require.NoError(t, first.AddMember("s1", domain.MemberStudent, now))
	require.NoError(t, repo.Update(ctx, first))
	assert.Equal(t, int64(2), first.Version)

	require.NoError(t, second.AddMember("s2", domain.MemberStudent, now))
	assert.ErrorIs(t, repo.Update(ctx, second), domain.ErrOptimisticLock)

	saved, err := repo.GetByID(ctx, org.ID)
	require.NoError(t, err)
	require.Len(t, saved.Members, 2)
	assert.Equal(t, "s1", saved.Members[1].UserID)
}
