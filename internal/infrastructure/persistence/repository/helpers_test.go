package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/garyjia/travel-report/internal/domain/entity"
	"github.com/garyjia/travel-report/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/travel-report/pkg/database"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var baseTime = time.Date(2024, 3, 15, 3, 0, 0, 0, time.UTC)

type testStore struct {
	db          *sql.DB
	tx          *sqlite.DB
	users       *UserRepository
	units       *WorkUnitRepository
	assignments *AssignmentRepository
	reports     *ReportRepository
	expenses    *ExpenseRepository
	reviews     *ReviewRepository
	docs        *DocumentationRepository
	fullboard   *FullboardPriceRepository
	stats       *StatsRepository
}

func newTestStore(t *testing.T) *testStore {
	t.Helper()
	logger := zap.NewNop()
	db, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "travel.db")}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return &testStore{
		db:          db.DB,
		tx:          sqlite.NewDB(db.DB, logger),
		users:       NewUserRepository(db.DB, logger),
		units:       NewWorkUnitRepository(db.DB, logger),
		assignments: NewAssignmentRepository(db.DB, logger),
		reports:     NewReportRepository(db.DB, logger),
		expenses:    NewExpenseRepository(db.DB, logger),
		reviews:     NewReviewRepository(db.DB, logger),
		docs:        NewDocumentationRepository(db.DB, logger),
		fullboard:   NewFullboardPriceRepository(db.DB, logger),
		stats:       NewStatsRepository(db.DB, logger),
	}
}

func (s *testStore) user(t *testing.T, name string, unitID *int64, roles ...entity.Role) *entity.User {
	t.Helper()
	u := &entity.User{Name: name, WorkUnitID: unitID, Roles: roles, CreatedAt: baseTime, UpdatedAt: baseTime}
	require.NoError(t, s.users.Create(context.Background(), u))
	return u
}

func (s *testStore) unit(t *testing.T, code string) *entity.WorkUnit {
	t.Helper()
	w := &entity.WorkUnit{Name: "Unit " + code, Code: code, CreatedAt: baseTime, UpdatedAt: baseTime}
	require.NoError(t, s.units.Create(context.Background(), w))
	return w
}

func (s *testStore) assignment(t *testing.T, creatorID int64, destination string, start time.Time, createdAt time.Time, participants ...int64) *entity.Assignment {
	t.Helper()
	ctx := context.Background()
	a := &entity.Assignment{
		Purpose:     "Audit in " + destination,
		Destination: destination,
		StartDate:   start,
		EndDate:     start.AddDate(0, 0, 2),
		CreatorID:   creatorID,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
	require.NoError(t, s.assignments.Create(ctx, a))
	require.NoError(t, s.assignments.SetParticipants(ctx, a.ID, participants))
	return a
}

func (s *testStore) report(t *testing.T, userID, assignmentID int64, status entity.ReportStatus, createdAt time.Time) *entity.Report {
	t.Helper()
	r := &entity.Report{
		UserID:            userID,
		AssignmentID:      assignmentID,
		TravelType:        entity.TravelTypeInCity,
		Status:            status,
		TravelOrderNumber: "ST-001",
		DestinationCity:   "Bandung",
		DepartureDate:     time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		ReturnDate:        time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC),
		ActualDuration:    3,
		TravelPurpose:     "Audit",
		CreatedAt:         createdAt,
		UpdatedAt:         createdAt,
	}
	require.NoError(t, s.reports.Create(context.Background(), r))
	return r
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func int64Ptr(v int64) *int64 { return &v }

func ptrTime(t time.Time) *time.Time { return &t }
