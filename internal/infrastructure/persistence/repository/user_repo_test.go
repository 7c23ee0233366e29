package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/garyjia/travel-report/internal/application/port"
	"github.com/garyjia/travel-report/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_CreateAndLoadRoles(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	unit := s.unit(t, "KEU")

	u := &entity.User{
		Name:       "Budi",
		Email:      "budi@example.go.id",
		WorkUnitID: &unit.ID,
		Roles:      []entity.Role{entity.RoleLeader, entity.RoleEmployee, entity.RoleLeader},
		CreatedAt:  baseTime,
		UpdatedAt:  baseTime,
	}
	require.NoError(t, s.users.Create(ctx, u))

	got, err := s.users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "budi@example.go.id", got.Email)
	assert.Equal(t, unit.ID, *got.WorkUnitID)
	assert.ElementsMatch(t, []entity.Role{entity.RoleEmployee, entity.RoleLeader}, got.Roles)
	assert.True(t, got.CreatedAt.Equal(baseTime))
	assert.Empty(t, got.NIP)
}

func TestUserRepository_GetByIDsSkipsMissing(t *testing.T) {
	s := newTestStore(t)
	a := s.user(t, "Ani", nil, entity.RoleEmployee)
	b := s.user(t, "Bayu", nil)

	users, err := s.users.GetByIDs(context.Background(), []int64{b.ID, 999, a.ID})
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, a.ID, users[0].ID)
	assert.Equal(t, b.ID, users[1].ID)
	assert.Empty(t, users[1].Roles)

	missing, err := s.users.GetByID(context.Background(), 999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.users.Create(ctx, &entity.User{Name: "A", Email: "x@example.go.id", CreatedAt: baseTime, UpdatedAt: baseTime}))

	err := s.users.Create(ctx, &entity.User{Name: "B", Email: "x@example.go.id", CreatedAt: baseTime, UpdatedAt: baseTime})
	require.Error(t, err)
	assert.True(t, errors.Is(err, port.ErrUniqueViolation))

	// Empty emails are stored as NULL and never collide
	require.NoError(t, s.users.Create(ctx, &entity.User{Name: "C", CreatedAt: baseTime, UpdatedAt: baseTime}))
	require.NoError(t, s.users.Create(ctx, &entity.User{Name: "D", CreatedAt: baseTime, UpdatedAt: baseTime}))
}

func TestUserRepository_UpdateRolesAndDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	unit := s.unit(t, "UMUM")
	u := s.user(t, "Citra", nil, entity.RoleEmployee)

	require.NoError(t, s.users.UpdateRoles(ctx, u.ID, []entity.Role{entity.RoleLeader}, &unit.ID))
	require.NoError(t, s.units.SetHead(ctx, unit.ID, &u.ID))

	got, err := s.users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []entity.Role{entity.RoleLeader}, got.Roles)
	assert.Equal(t, unit.ID, *got.WorkUnitID)

	require.NoError(t, s.users.Delete(ctx, u.ID))

	headless, err := s.units.GetByID(ctx, unit.ID)
	require.NoError(t, err)
	assert.Nil(t, headless.HeadID)
}

func TestUserRepository_CountReferences(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	admin := s.user(t, "Admin", nil, entity.RoleAdmin)
	ani := s.user(t, "Ani", nil, entity.RoleEmployee)
	vera := s.user(t, "Vera", nil, entity.RoleVerificator)
	idle := s.user(t, "Idle", nil, entity.RoleEmployee)

	a := s.assignment(t, admin.ID, "Medan", date(2024, 3, 20), baseTime, ani.ID)
	r := s.report(t, ani.ID, a.ID, entity.ReportStatusSubmitted, baseTime)
	require.NoError(t, s.docs.Create(ctx, &entity.Documentation{
		AssignmentID: a.ID, UserID: ani.ID, PhotoPath: "documentation/1/a.jpg", CreatedAt: baseTime, UpdatedAt: baseTime,
	}))
	require.NoError(t, s.reviews.Create(ctx, &entity.Review{
		ReportID: r.ID, ReviewerID: vera.ID, ReviewerType: entity.ReviewerCommitmentOfficer,
		Status: entity.ReviewApproved, Round: 1, CreatedAt: baseTime, UpdatedAt: baseTime,
	}))

	refs, err := s.users.CountReferences(ctx, vera.ID)
	require.NoError(t, err)
	assert.Equal(t, port.UserReferences{Reviews: 1}, refs)
	assert.True(t, refs.Any())

	// a reviewer has no assignments, so only the reference count protects the row
	n, err := s.assignments.CountForUser(ctx, vera.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Error(t, s.users.Delete(ctx, vera.ID))

	refs, err = s.users.CountReferences(ctx, ani.ID)
	require.NoError(t, err)
	assert.Equal(t, port.UserReferences{Documentation: 1, Reports: 1}, refs)

	refs, err = s.users.CountReferences(ctx, idle.ID)
	require.NoError(t, err)
	assert.False(t, refs.Any())
}
