package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/travel-report/internal/application/port"
	"github.com/garyjia/travel-report/internal/domain/entity"
	"github.com/garyjia/travel-report/internal/domain/event"
	"github.com/garyjia/travel-report/internal/domain/workflow"
)

const (
	ownerID  int64 = 10
	headID   int64 = 20
	officeID int64 = 30
)

// reportFixture wires report and review services over shared in-memory state
type reportFixture struct {
	now      time.Time
	reports  map[int64]*entity.Report
	details  map[int64]entity.ExpenseDetail
	reviews  *mockReviewRepo
	docs     *mockDocumentationRepo
	storage  *mockStorage
	events   *eventRecorder
	logger   *recordingLogger
	exporter *mockExporter

	reportSvc ReportService
	reviewSvc ReviewService
}

func newReportFixture() *reportFixture {
	f := &reportFixture{
		now:      testNow,
		reports:  make(map[int64]*entity.Report),
		details:  make(map[int64]entity.ExpenseDetail),
		reviews:  &mockReviewRepo{},
		docs:     &mockDocumentationRepo{},
		storage:  &mockStorage{},
		events:   newEventRecorder(),
		logger:   &recordingLogger{},
		exporter: &mockExporter{},
	}
	clock := func() time.Time { return f.now }

	unitID := int64(1)
	users := newMockUserRepo(
		&entity.User{ID: ownerID, Name: "Ani", WorkUnitID: &unitID, Roles: []entity.Role{entity.RoleEmployee}},
		&entity.User{ID: headID, Name: "Hadi", WorkUnitID: &unitID, Roles: []entity.Role{entity.RoleLeader}},
	)
	units := newMockWorkUnitRepo(&entity.WorkUnit{ID: unitID, Name: "Finance", Code: "FIN", HeadID: int64Ptr(headID)})

	assignments := &mockAssignmentRepo{getByIDFunc: func(ctx context.Context, id int64) (*entity.Assignment, error) {
		if id != 1 {
			return nil, nil
		}
		return &entity.Assignment{
			ID: 1, Purpose: "Audit", Destination: "Bandung", CreatorID: headID,
			Participants: []*entity.User{{ID: ownerID, Name: "Ani"}},
		}, nil
	}}

	repo := &mockReportRepo{
		createFunc: func(ctx context.Context, r *entity.Report) error {
			r.ID = int64(len(f.reports) + 1)
			cp := *r
			f.reports[r.ID] = &cp
			return nil
		},
		updateFunc: func(ctx context.Context, r *entity.Report) error {
			cp := *r
			f.reports[r.ID] = &cp
			return nil
		},
		updateStatusFunc: func(ctx context.Context, id int64, status entity.ReportStatus) error {
			f.reports[id].Status = status
			return nil
		},
		markSubmittedFunc: func(ctx context.Context, id int64, round int, at time.Time) error {
			r := f.reports[id]
			r.Status = entity.ReportStatusSubmitted
			r.ReviewRound = round
			r.SubmittedAt = &at
			return nil
		},
		deleteFunc: func(ctx context.Context, id int64) error {
			delete(f.reports, id)
			return nil
		},
		getByIDFunc: func(ctx context.Context, id int64) (*entity.Report, error) {
			r, ok := f.reports[id]
			if !ok {
				return nil, nil
			}
			cp := *r
			return &cp, nil
		},
		getByAssignmentAndUserFunc: func(ctx context.Context, assignmentID, userID int64) (*entity.Report, error) {
			for _, r := range f.reports {
				if r.AssignmentID == assignmentID && r.UserID == userID {
					return r, nil
				}
			}
			return nil, nil
		},
		listFunc: func(ctx context.Context, filter port.ReportFilter) ([]*entity.Report, int, error) {
			var out []*entity.Report
			for _, r := range f.reports {
				if filter.Scope.All || r.UserID == filter.Scope.OwnerID {
					out = append(out, r)
				}
			}
			return out, len(out), nil
		},
	}
	expenses := &mockExpenseRepo{
		details: f.details,
		saveDetailFunc: func(ctx context.Context, d entity.ExpenseDetail) error {
			switch v := d.(type) {
			case *entity.InCityReport:
				f.details[v.ReportID] = v
			case *entity.OutCityReport:
				f.details[v.ReportID] = v
			case *entity.OutCountryReport:
				f.details[v.ReportID] = v
			}
			return nil
		},
	}
	fullboard := &mockFullboardRepo{prices: map[int64]*entity.FullboardPrice{
		3: {ID: 3, Province: "Jawa Barat", Price: 430000},
	}}

	f.reportSvc = NewReportService(ReportServiceDeps{
		Reports:     repo,
		Expenses:    expenses,
		Reviews:     f.reviews,
		Assignments: assignments,
		Docs:        f.docs,
		Users:       users,
		WorkUnits:   units,
		Fullboard:   fullboard,
		Storage:     f.storage,
		Renderer:    mockRenderer{},
		Exporter:    f.exporter,
		TxManager:   &mockTxManager{},
		Events:      f.events,
		Clock:       clock,
		Logger:      f.logger,
	})
	f.reviewSvc = NewReviewService(repo, f.reviews, users, units, &mockTxManager{}, f.events, clock, f.logger)
	return f
}

func (f *reportFixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func reportInput(detail entity.ExpenseDetail) ReportInput {
	return ReportInput{
		AssignmentID:      1,
		TravelType:        detail.TravelType(),
		TravelOrderNumber: "ST-001/2024",
		DestinationCity:   "Bandung",
		DepartureDate:     time.Date(2024, time.March, 20, 0, 0, 0, 0, time.UTC),
		ReturnDate:        time.Date(2024, time.March, 22, 0, 0, 0, 0, time.UTC),
		ActualDuration:    3,
		TravelPurpose:     "Field audit",
		Detail:            detail,
		Narrative:         "We met the **regional** office.",
	}
}

func inCity() *entity.InCityReport {
	return &entity.InCityReport{TransportCost: 150000, DailyAllowance: 200000}
}

func (f *reportFixture) submittedReport(t *testing.T) *entity.Report {
	t.Helper()
	r, err := f.reportSvc.Create(context.Background(), actor(ownerID, entity.RoleEmployee), reportInput(inCity()))
	require.NoError(t, err)
	r, err = f.reportSvc.Submit(context.Background(), actor(ownerID, entity.RoleEmployee), r.ID)
	require.NoError(t, err)
	return r
}

func TestReportService_Create(t *testing.T) {
	f := newReportFixture()
	owner := actor(ownerID, entity.RoleEmployee)

	r, err := f.reportSvc.Create(context.Background(), owner, reportInput(inCity()))
	require.NoError(t, err)
	assert.Equal(t, entity.ReportStatusDraft, r.Status)
	assert.Equal(t, 0, r.ReviewRound)
	require.Contains(t, f.details, r.ID)
	assert.Len(t, f.events.ofType(event.TypeReportCreated), 1)

	_, err = f.reportSvc.Create(context.Background(), owner, reportInput(inCity()))
	assert.ErrorIs(t, err, ErrConflict)

	_, err = f.reportSvc.Create(context.Background(), actor(99, entity.RoleEmployee), reportInput(inCity()))
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestReportService_Create_OutCityAllowance(t *testing.T) {
	owner := actor(ownerID, entity.RoleEmployee)

	tests := []struct {
		name   string
		detail *entity.OutCityReport
		field  string
	}{
		{"both set", &entity.OutCityReport{FullboardPriceID: int64Ptr(3), CustomDailyAllowance: int64Ptr(100)}, "detail.fullboard_price_id"},
		{"neither set", &entity.OutCityReport{}, "detail.fullboard_price_id"},
		{"unknown price", &entity.OutCityReport{FullboardPriceID: int64Ptr(42)}, "detail.fullboard_price_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newReportFixture()
			_, err := f.reportSvc.Create(context.Background(), owner, reportInput(tt.detail))
			var verr *entity.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tt.field)
		})
	}

	f := newReportFixture()
	r, err := f.reportSvc.Create(context.Background(), owner, reportInput(&entity.OutCityReport{FullboardPriceID: int64Ptr(3)}))
	require.NoError(t, err)
	detail := f.details[r.ID].(*entity.OutCityReport)
	assert.Equal(t, int64(430000), detail.DailyAllowance())
}

func TestReportService_Update(t *testing.T) {
	f := newReportFixture()
	owner := actor(ownerID, entity.RoleEmployee)
	r, err := f.reportSvc.Create(context.Background(), owner, reportInput(inCity()))
	require.NoError(t, err)

	path, err := f.reportSvc.AttachFile(context.Background(), owner, r.ID, "transport_receipt",
		port.Upload{Filename: "ticket.png", Size: 1024, Content: []byte("png")})
	require.NoError(t, err)

	in := reportInput(&entity.InCityReport{TransportCost: 175000, DailyAllowance: 200000})
	_, err = f.reportSvc.Update(context.Background(), actor(99, entity.RoleAdmin), r.ID, in)
	assert.ErrorIs(t, err, ErrForbidden)

	in.TravelType = entity.TravelTypeOutCountry
	_, err = f.reportSvc.Update(context.Background(), owner, r.ID, in)
	var verr *entity.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "travel_type")

	in.TravelType = ""
	_, err = f.reportSvc.Update(context.Background(), owner, r.ID, in)
	require.NoError(t, err)
	detail := f.details[r.ID].(*entity.InCityReport)
	assert.Equal(t, int64(175000), detail.TransportCost)
	assert.Equal(t, path, detail.TransportReceipt, "receipts survive updates")

	_, err = f.reportSvc.Submit(context.Background(), owner, r.ID)
	require.NoError(t, err)
	_, err = f.reportSvc.Update(context.Background(), owner, r.ID, in)
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.ErrorIs(t, f.reportSvc.Delete(context.Background(), owner, r.ID), ErrInvalidState)
}

func TestReportService_Submit(t *testing.T) {
	f := newReportFixture()
	owner := actor(ownerID, entity.RoleEmployee)
	r := f.submittedReport(t)

	assert.Equal(t, entity.ReportStatusSubmitted, r.Status)
	assert.Equal(t, 1, r.ReviewRound)
	require.NotNil(t, r.SubmittedAt)

	_, err := f.reportSvc.Submit(context.Background(), owner, r.ID)
	assert.ErrorIs(t, err, ErrInvalidState)

	changed := f.events.ofType(event.TypeReportStatusChanged)
	require.Len(t, changed, 1)
	assert.Equal(t, "submitted", changed[0].GetPayloadString(event.KeyNewStatus))
}

func TestReportService_ResubmitAfterRejection(t *testing.T) {
	f := newReportFixture()
	ctx := context.Background()
	owner := actor(ownerID, entity.RoleEmployee)
	r := f.submittedReport(t)

	f.advance(time.Hour)
	_, err := f.reviewSvc.SubmitReview(ctx, actor(officeID, entity.RoleVerificator), r.ID, ReviewInput{
		ReviewerType: entity.ReviewerCommitmentOfficer, Status: entity.ReviewApproved,
	})
	require.NoError(t, err)
	f.advance(time.Hour)
	_, err = f.reviewSvc.SubmitReview(ctx, actor(headID, entity.RoleLeader), r.ID, ReviewInput{
		ReviewerType: entity.ReviewerSectionHead, Status: entity.ReviewRejected, Notes: "Receipt missing",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.ReportStatusRejected, f.reports[r.ID].Status)

	view, err := f.reportSvc.Get(ctx, owner, r.ID)
	require.NoError(t, err)
	assert.False(t, view.CanResubmit)
	assert.Equal(t, []workflow.Trigger{workflow.TriggerResubmit}, view.Actions)

	_, err = f.reportSvc.Submit(ctx, owner, r.ID)
	assert.ErrorIs(t, err, ErrInvalidState)

	f.advance(time.Hour)
	_, err = f.reportSvc.Update(ctx, owner, r.ID, reportInput(inCity()))
	require.NoError(t, err)

	view, err = f.reportSvc.Get(ctx, owner, r.ID)
	require.NoError(t, err)
	assert.True(t, view.CanResubmit)

	resubmitted, err := f.reportSvc.Submit(ctx, owner, r.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ReportStatusSubmitted, resubmitted.Status)
	assert.Equal(t, 2, resubmitted.ReviewRound)

	view, err = f.reportSvc.Get(ctx, owner, r.ID)
	require.NoError(t, err)
	assert.Equal(t, []workflow.Trigger{workflow.TriggerApprove, workflow.TriggerReject, workflow.TriggerReview}, view.Actions)

	// the new round needs both verdicts again
	f.advance(time.Hour)
	_, err = f.reviewSvc.SubmitReview(ctx, actor(officeID, entity.RoleVerificator), r.ID, ReviewInput{
		ReviewerType: entity.ReviewerCommitmentOfficer, Status: entity.ReviewApproved,
	})
	require.NoError(t, err)
	assert.Equal(t, entity.ReportStatusSubmitted, f.reports[r.ID].Status)
	_, err = f.reviewSvc.SubmitReview(ctx, actor(headID, entity.RoleLeader), r.ID, ReviewInput{
		ReviewerType: entity.ReviewerSectionHead, Status: entity.ReviewApproved,
	})
	require.NoError(t, err)
	assert.Equal(t, entity.ReportStatusApproved, f.reports[r.ID].Status)
}

func TestReportService_Get_Scope(t *testing.T) {
	f := newReportFixture()
	r, err := f.reportSvc.Create(context.Background(), actor(ownerID, entity.RoleEmployee), reportInput(inCity()))
	require.NoError(t, err)

	tests := []struct {
		name    string
		actor   *entity.Actor
		allowed bool
	}{
		{"owner", actor(ownerID, entity.RoleEmployee), true},
		{"unit head", actor(headID, entity.RoleLeader), true},
		{"other leader", actor(21, entity.RoleLeader), false},
		{"verificator", actor(officeID, entity.RoleVerificator), true},
		{"other employee", actor(11, entity.RoleEmployee), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view, err := f.reportSvc.Get(context.Background(), tt.actor, r.ID)
			if !tt.allowed {
				assert.ErrorIs(t, err, ErrForbidden)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, int64(350000), view.Total)
			require.NotNil(t, view.Narrative)
			assert.Contains(t, view.Narrative.HTML, "<p>")
		})
	}

	_, err = f.reportSvc.Get(context.Background(), actor(ownerID), 404)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReportService_AttachFile_ReplacesAfterRecord(t *testing.T) {
	f := newReportFixture()
	owner := actor(ownerID, entity.RoleEmployee)
	r, err := f.reportSvc.Create(context.Background(), owner, reportInput(inCity()))
	require.NoError(t, err)
	upload := port.Upload{Filename: "spd.pdf", Size: 2048, Content: []byte("%PDF")}

	first, err := f.reportSvc.AttachFile(context.Background(), owner, r.ID, "spd_file", upload)
	require.NoError(t, err)
	second, err := f.reportSvc.AttachFile(context.Background(), owner, r.ID, "spd_file", upload)
	require.NoError(t, err)

	assert.Equal(t, second, f.reports[r.ID].SPDFile)
	assert.Equal(t, []string{first}, f.storage.deleted)

	_, err = f.reportSvc.AttachFile(context.Background(), owner, r.ID, "visa_receipt", upload)
	assert.Error(t, err, "in-city reports have no visa receipt")

	_, err = f.reportSvc.AttachFile(context.Background(), owner, r.ID, "spd_file",
		port.Upload{Filename: "spd.exe", Size: 10})
	var verr *entity.ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = f.reportSvc.AttachFile(context.Background(), owner, r.ID, "spd_file",
		port.Upload{Filename: "big.pdf", Size: entity.MaxUploadBytes + 1})
	require.ErrorAs(t, err, &verr)
}

func TestReportService_AttachFile_CleansUpOnRecordFailure(t *testing.T) {
	f := newReportFixture()
	owner := actor(ownerID, entity.RoleEmployee)
	r, err := f.reportSvc.Create(context.Background(), owner, reportInput(inCity()))
	require.NoError(t, err)

	failing := f.reportSvc.(*reportServiceImpl)
	failing.txManager = &mockTxManager{withTransactionFunc: func(ctx context.Context, fn func(ctx context.Context) error) error {
		return errors.New("disk full")
	}}

	_, err = f.reportSvc.AttachFile(context.Background(), owner, r.ID, "spd_file",
		port.Upload{Filename: "spd.pdf", Size: 10, Content: []byte("%PDF")})
	require.Error(t, err)
	require.Len(t, f.storage.stored, 1)
	assert.Equal(t, f.storage.stored, f.storage.deleted)
	assert.Empty(t, f.reports[r.ID].SPDFile)
}

func TestReportService_Export(t *testing.T) {
	f := newReportFixture()
	r, err := f.reportSvc.Create(context.Background(), actor(ownerID, entity.RoleEmployee), reportInput(inCity()))
	require.NoError(t, err)

	data, err := f.reportSvc.Export(context.Background(), actor(1, entity.RoleAdmin), ReportQuery{})
	require.NoError(t, err)
	assert.Equal(t, []byte("xlsx"), data)
	require.Len(t, f.exporter.rows, 1)
	assert.Equal(t, r.ID, f.exporter.rows[0].Report.ID)
	assert.Equal(t, "Ani", f.exporter.rows[0].OwnerName)
	assert.Equal(t, int64(350000), f.exporter.rows[0].Total)
}
