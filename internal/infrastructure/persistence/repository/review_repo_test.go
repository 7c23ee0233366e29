package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/garyjia/travel-report/internal/application/port"
	"github.com/garyjia/travel-report/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReviewRepository_OneVerdictPerTypeAndRound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	admin := s.user(t, "Admin", nil, entity.RoleAdmin)
	ani := s.user(t, "Ani", nil)
	verificator := s.user(t, "Vera", nil, entity.RoleVerificator)
	a := s.assignment(t, admin.ID, "Medan", date(2024, 3, 20), baseTime, ani.ID)
	r := s.report(t, ani.ID, a.ID, entity.ReportStatusSubmitted, baseTime)

	review := func(round int, status entity.ReviewStatus, at time.Time) *entity.Review {
		return &entity.Review{
			ReportID: r.ID, ReviewerID: verificator.ID, ReviewerType: entity.ReviewerCommitmentOfficer,
			Status: status, Notes: "checked", Round: round, CreatedAt: at, UpdatedAt: at,
		}
	}

	require.NoError(t, s.reviews.Create(ctx, review(1, entity.ReviewRejected, baseTime)))
	err := s.reviews.Create(ctx, review(1, entity.ReviewApproved, baseTime.Add(time.Minute)))
	require.Error(t, err)
	assert.True(t, errors.Is(err, port.ErrUniqueViolation))

	require.NoError(t, s.reviews.Create(ctx, review(2, entity.ReviewApproved, baseTime.Add(time.Hour))))

	reviews, err := s.reviews.ListByReport(ctx, r.ID)
	require.NoError(t, err)
	require.Len(t, reviews, 2)
	assert.Equal(t, 1, reviews[0].Round)
	assert.Equal(t, entity.ReviewRejected, reviews[0].Status)
	assert.Equal(t, "checked", reviews[0].Notes)
	assert.Equal(t, 2, reviews[1].Round)
	assert.True(t, reviews[1].CreatedAt.Equal(baseTime.Add(time.Hour)))
}

func TestDocumentationRepository_CRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	admin := s.user(t, "Admin", nil, entity.RoleAdmin)
	ani := s.user(t, "Ani", nil)
	a := s.assignment(t, admin.ID, "Medan", date(2024, 3, 20), baseTime, ani.ID)

	d := &entity.Documentation{
		AssignmentID: a.ID, UserID: ani.ID, PhotoPath: "documentation/1/photo.jpg",
		Latitude: 3.5952, Longitude: 98.6722, Address: "Jl. Balai Kota", CreatedAt: baseTime, UpdatedAt: baseTime,
	}
	require.NoError(t, s.docs.Create(ctx, d))

	got, err := s.docs.GetByID(ctx, d.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.InDelta(t, 98.6722, got.Longitude, 1e-9)
	assert.Equal(t, "Jl. Balai Kota", got.Address)
	assert.Empty(t, got.Notes)

	require.NoError(t, s.docs.Delete(ctx, d.ID))
	got, err = s.docs.GetByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}
