package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/travel-report/internal/application/dispatcher"
	"github.com/garyjia/travel-report/internal/application/port"
	"github.com/garyjia/travel-report/internal/domain/entity"
	"github.com/garyjia/travel-report/internal/domain/event"
	"github.com/garyjia/travel-report/internal/domain/workflow"
)

// ReportInput carries the owner-editable fields of a report. AssignmentID
// and TravelType are fixed at creation; on update a TravelType different
// from the stored one is rejected.
type ReportInput struct {
	AssignmentID          int64
	TravelType            entity.TravelType
	TravelOrderNumber     string
	DestinationCity       string
	DepartureDate         time.Time
	ReturnDate            time.Time
	ActualDuration        int
	TravelPurpose         string
	Detail                entity.ExpenseDetail
	Narrative             string
	TransportationTypeIDs []int64
}

// ReportQuery filters report listings
type ReportQuery struct {
	Status       entity.ReportStatus
	TravelType   entity.TravelType
	AssignmentID int64
	Limit        int
	Offset       int
}

// ReportView is a report with everything a reader needs to act on it
type ReportView struct {
	*entity.Report
	Detail        entity.ExpenseDetail    `json:"detail"`
	Total         int64                   `json:"total"`
	Reviews       []*entity.Review        `json:"reviews"`
	Documentation []*entity.Documentation `json:"documentation"`
	CanResubmit   bool                    `json:"can_resubmit"`
	// Actions lists lifecycle triggers configured for the current status
	Actions       []workflow.Trigger      `json:"actions"`
	FileURLs      map[string]string       `json:"file_urls,omitempty"`
}

// ReportService manages the report lifecycle on the owner's side
type ReportService interface {
	Create(ctx context.Context, actor *entity.Actor, in ReportInput) (*entity.Report, error)
	Update(ctx context.Context, actor *entity.Actor, id int64, in ReportInput) (*entity.Report, error)
	Submit(ctx context.Context, actor *entity.Actor, id int64) (*entity.Report, error)
	Delete(ctx context.Context, actor *entity.Actor, id int64) error
	Get(ctx context.Context, actor *entity.Actor, id int64) (*ReportView, error)
	List(ctx context.Context, actor *entity.Actor, q ReportQuery) ([]*entity.Report, int, error)
	// AttachFile stores a report file or receipt and replaces the previous one
	AttachFile(ctx context.Context, actor *entity.Actor, id int64, slot string, upload port.Upload) (string, error)
	Export(ctx context.Context, actor *entity.Actor, q ReportQuery) ([]byte, error)
}

type reportServiceImpl struct {
	reports     port.ReportRepository
	expenses    port.ExpenseRepository
	reviews     port.ReviewRepository
	assignments port.AssignmentRepository
	docs        port.DocumentationRepository
	users       port.UserRepository
	fullboard   port.FullboardPriceRepository
	storage     port.FileStorage
	renderer    port.MarkdownRenderer
	exporter    port.ReportExporter
	txManager   port.TransactionManager
	events      dispatcher.Dispatcher
	team        teamChecker
	clock       Clock
	logger      Logger
}

// ReportServiceDeps groups the collaborators of ReportService
type ReportServiceDeps struct {
	Reports     port.ReportRepository
	Expenses    port.ExpenseRepository
	Reviews     port.ReviewRepository
	Assignments port.AssignmentRepository
	Docs        port.DocumentationRepository
	Users       port.UserRepository
	WorkUnits   port.WorkUnitRepository
	Fullboard   port.FullboardPriceRepository
	Storage     port.FileStorage
	Renderer    port.MarkdownRenderer
	Exporter    port.ReportExporter
	TxManager   port.TransactionManager
	Events      dispatcher.Dispatcher
	Clock       Clock
	Logger      Logger
}

// NewReportService creates a new ReportService
func NewReportService(deps ReportServiceDeps) ReportService {
	clock := deps.Clock
	if clock == nil {
		clock = SystemClock
	}
	return &reportServiceImpl{
		reports:     deps.Reports,
		expenses:    deps.Expenses,
		reviews:     deps.Reviews,
		assignments: deps.Assignments,
		docs:        deps.Docs,
		users:       deps.Users,
		fullboard:   deps.Fullboard,
		storage:     deps.Storage,
		renderer:    deps.Renderer,
		exporter:    deps.Exporter,
		txManager:   deps.TxManager,
		events:      deps.Events,
		team:        teamChecker{users: deps.Users, units: deps.WorkUnits},
		clock:       clock,
		logger:      deps.Logger,
	}
}

// Create opens a draft report for an assignment the actor participates in.
func (s *reportServiceImpl) Create(ctx context.Context, actor *entity.Actor, in ReportInput) (*entity.Report, error) {
	assignment, err := s.assignments.GetByID(ctx, in.AssignmentID)
	if err != nil {
		s.logger.Error("Failed to load assignment", "error", err, "assignment_id", in.AssignmentID)
		return nil, err
	}
	if assignment == nil {
		return nil, entity.FieldError("assignment_id", "assignment does not exist")
	}
	if !assignment.HasParticipant(actor.ID) {
		return nil, forbidden("only participants may report on an assignment")
	}

	existing, err := s.reports.GetByAssignmentAndUser(ctx, in.AssignmentID, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("check existing report: %w", err)
	}
	if existing != nil {
		return nil, conflict("a report for this assignment already exists")
	}

	now := s.clock()
	r := &entity.Report{
		UserID:       actor.ID,
		AssignmentID: in.AssignmentID,
		TravelType:   in.TravelType,
		Status:       entity.ReportStatusDraft,
		CreatedAt:    now,
	}
	applyInput(r, in, now)
	if r.Detail != nil {
		clearReceipts(r.Detail)
		r.Detail.SetTimestamps(now, now)
	}
	if err := s.validate(ctx, r); err != nil {
		return nil, err
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.reports.Create(txCtx, r); err != nil {
			if isUnique(err) {
				return conflict("a report for this assignment already exists")
			}
			return fmt.Errorf("create report: %w", err)
		}
		return s.saveParts(txCtx, r, now)
	})
	if err != nil {
		s.logger.Error("Failed to create report", "error", err, "actor_id", actor.ID, "assignment_id", in.AssignmentID)
		return nil, err
	}

	s.logger.Info("Report created", "id", r.ID, "actor_id", actor.ID, "travel_type", r.TravelType)
	s.events.Publish(ctx, event.NewEvent(event.TypeReportCreated, r.ID, actor.ID, map[string]interface{}{
		event.KeyOwnerID: r.UserID,
	}))
	return r, nil
}

// Update rewrites a draft or rejected report. Receipts are kept; they only
// change through AttachFile.
func (s *reportServiceImpl) Update(ctx context.Context, actor *entity.Actor, id int64, in ReportInput) (*entity.Report, error) {
	r, err := s.loadOwned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !r.IsEditable() {
		return nil, invalidState("only draft or rejected reports can be edited")
	}
	if in.TravelType != "" && in.TravelType != r.TravelType {
		return nil, entity.FieldError("travel_type", "travel type cannot be changed")
	}

	previous := r.Detail
	now := s.clock()
	in.TravelType = r.TravelType
	applyInput(r, in, now)
	if r.Detail != nil {
		clearReceipts(r.Detail)
		copyReceipts(previous, r.Detail)
		created := now
		if previous != nil {
			created = detailCreatedAt(previous, now)
		}
		r.Detail.SetTimestamps(created, now)
	}
	if err := s.validate(ctx, r); err != nil {
		return nil, err
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.reports.Update(txCtx, r); err != nil {
			return fmt.Errorf("update report: %w", err)
		}
		return s.saveParts(txCtx, r, now)
	})
	if err != nil {
		s.logger.Error("Failed to update report", "error", err, "id", id, "actor_id", actor.ID)
		return nil, err
	}

	s.logger.Info("Report updated", "id", id, "actor_id", actor.ID)
	s.events.Publish(ctx, event.NewEvent(event.TypeReportUpdated, id, actor.ID, map[string]interface{}{
		event.KeyOwnerID: r.UserID,
	}))
	return r, nil
}

// Submit sends a draft into review, or resubmits a rejected report that has
// been edited since its last review. Each submission opens a review round.
func (s *reportServiceImpl) Submit(ctx context.Context, actor *entity.Actor, id int64) (*entity.Report, error) {
	r, err := s.loadOwned(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	reviews, err := s.reviews.ListByReport(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load reviews: %w", err)
	}
	docs, err := s.docs.ListByAssignment(ctx, r.AssignmentID)
	if err != nil {
		return nil, fmt.Errorf("load documentation: %w", err)
	}

	machine := workflow.NewReportLifecycle(workflow.StateOf(r.Status), workflow.LifecycleGuards{
		CanResubmit: func(context.Context) bool {
			return workflow.CanResubmit(r, reviews, docs)
		},
	})
	trigger := workflow.TriggerSubmit
	if !machine.CanFire(trigger) {
		trigger = workflow.TriggerResubmit
	}
	if !machine.CanFire(trigger) {
		return nil, invalidState("report is already " + string(r.Status))
	}
	if err := machine.Fire(ctx, trigger); err != nil {
		if errors.Is(err, workflow.ErrGuardFailed) {
			return nil, invalidState("the report has not been changed since it was rejected")
		}
		return nil, invalidState(err.Error())
	}

	if err := r.Validate(); err != nil {
		return nil, err
	}

	previous := r.Status
	now := s.clock()
	round := r.ReviewRound + 1
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		return s.reports.MarkSubmitted(txCtx, id, round, now)
	})
	if err != nil {
		s.logger.Error("Failed to submit report", "error", err, "id", id, "actor_id", actor.ID)
		return nil, fmt.Errorf("submit report: %w", err)
	}

	r.Status = machine.State().Status()
	r.ReviewRound = round
	r.SubmittedAt = &now

	s.logger.Info("Report submitted", "id", id, "actor_id", actor.ID, "round", round, "trigger", trigger)
	s.events.Publish(ctx, event.NewEvent(event.TypeReportSubmitted, id, actor.ID, map[string]interface{}{
		event.KeyOwnerID: r.UserID,
	}))
	s.events.Publish(ctx, event.NewEvent(event.TypeReportStatusChanged, id, actor.ID, map[string]interface{}{
		event.KeyOwnerID:        r.UserID,
		event.KeyPreviousStatus: string(previous),
		event.KeyNewStatus:      string(r.Status),
	}))
	return r, nil
}

// Delete removes a draft report and its stored files.
func (s *reportServiceImpl) Delete(ctx context.Context, actor *entity.Actor, id int64) error {
	r, err := s.loadOwned(ctx, actor, id)
	if err != nil {
		return err
	}
	if r.Status != entity.ReportStatusDraft {
		return invalidState("only draft reports can be deleted")
	}

	files := append([]string{r.TravelOrderFile, r.SPDFile}, receiptPaths(r.Detail)...)
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		return s.reports.Delete(txCtx, id)
	})
	if err != nil {
		s.logger.Error("Failed to delete report", "error", err, "id", id, "actor_id", actor.ID)
		return fmt.Errorf("delete report: %w", err)
	}

	for _, p := range files {
		if p == "" {
			continue
		}
		if err := s.storage.Delete(ctx, p); err != nil {
			s.logger.Warn("Failed to remove stored file", "path", p, "error", err)
		}
	}

	s.logger.Info("Report deleted", "id", id, "actor_id", actor.ID)
	s.events.Publish(ctx, event.NewEvent(event.TypeReportUpdated, id, actor.ID, map[string]interface{}{
		event.KeyOwnerID: r.UserID,
	}))
	return nil
}

func (s *reportServiceImpl) Get(ctx context.Context, actor *entity.Actor, id int64) (*ReportView, error) {
	r, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	ok, err := s.team.canSeeReport(ctx, actor, r)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, forbidden("report is outside your scope")
	}

	reviews, err := s.reviews.ListByReport(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load reviews: %w", err)
	}
	docs, err := s.docs.ListByAssignment(ctx, r.AssignmentID)
	if err != nil {
		return nil, fmt.Errorf("load documentation: %w", err)
	}

	if r.Narrative != nil {
		r.Narrative.HTML = s.renderer.Render(r.Narrative.Content)
	}

	view := &ReportView{
		Report:        r,
		Detail:        r.Detail,
		Reviews:       reviews,
		Documentation: docs,
		CanResubmit:   workflow.CanResubmit(r, reviews, docs),
		Actions:       workflow.NewReportLifecycle(workflow.StateOf(r.Status), workflow.LifecycleGuards{}).PermittedTriggers(),
		FileURLs:      make(map[string]string),
	}
	if r.Detail != nil {
		view.Total = r.Detail.Total()
	}
	for _, slot := range []string{"travel_order_file", "spd_file"} {
		if p, _ := r.FileSlot(slot); *p != "" {
			view.FileURLs[slot] = s.storage.URL(ctx, *p)
		}
	}
	if r.Detail != nil {
		for _, slot := range receiptSlotNames(r.TravelType) {
			if p, ok := r.Detail.ReceiptSlot(slot); ok && *p != "" {
				view.FileURLs[slot] = s.storage.URL(ctx, *p)
			}
		}
	}
	return view, nil
}

func (s *reportServiceImpl) List(ctx context.Context, actor *entity.Actor, q ReportQuery) ([]*entity.Report, int, error) {
	items, total, err := s.reports.List(ctx, port.ReportFilter{
		Scope:        reportScopeFor(actor),
		Status:       q.Status,
		TravelType:   q.TravelType,
		AssignmentID: q.AssignmentID,
		Limit:        q.Limit,
		Offset:       q.Offset,
	})
	if err != nil {
		s.logger.Error("Failed to list reports", "error", err, "actor_id", actor.ID)
		return nil, 0, err
	}
	return items, total, nil
}

// AttachFile stores the upload first, then points the record at it, and
// only then removes the file it replaced.
func (s *reportServiceImpl) AttachFile(ctx context.Context, actor *entity.Actor, id int64, slot string, upload port.Upload) (string, error) {
	r, err := s.loadOwned(ctx, actor, id)
	if err != nil {
		return "", err
	}
	if !r.IsEditable() {
		return "", invalidState("only draft or rejected reports can be edited")
	}

	target, onReport := r.FileSlot(slot)
	if !onReport {
		if r.Detail == nil {
			return "", entity.FieldError(slot, "unknown file slot")
		}
		var ok bool
		if target, ok = r.Detail.ReceiptSlot(slot); !ok {
			return "", entity.FieldError(slot, "unknown file slot")
		}
	}
	if err := entity.ValidateUpload(slot, upload.Filename, upload.Size, false); err != nil {
		return "", err
	}

	path, err := s.storage.Store(ctx, upload, "reports", id, slot)
	if err != nil {
		s.logger.Error("Failed to store file", "error", err, "report_id", id, "slot", slot)
		return "", fmt.Errorf("store file: %w", err)
	}

	old := *target
	*target = path
	now := s.clock()
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if onReport {
			r.UpdatedAt = now
			return s.reports.Update(txCtx, r)
		}
		r.Detail.SetTimestamps(detailCreatedAt(r.Detail, now), now)
		return s.expenses.SaveDetail(txCtx, r.Detail)
	})
	if err != nil {
		if derr := s.storage.Delete(ctx, path); derr != nil {
			s.logger.Warn("Failed to remove orphaned file", "path", path, "error", derr)
		}
		s.logger.Error("Failed to record file", "error", err, "report_id", id, "slot", slot)
		return "", fmt.Errorf("record file: %w", err)
	}

	if old != "" && old != path {
		if err := s.storage.Delete(ctx, old); err != nil {
			s.logger.Warn("Failed to remove replaced file", "path", old, "error", err)
		}
	}

	s.logger.Info("Report file attached", "report_id", id, "slot", slot, "path", path)
	s.events.Publish(ctx, event.NewEvent(event.TypeReportUpdated, id, actor.ID, map[string]interface{}{
		event.KeyOwnerID: r.UserID,
	}))
	return path, nil
}

// Export renders the actor's visible reports as a spreadsheet.
func (s *reportServiceImpl) Export(ctx context.Context, actor *entity.Actor, q ReportQuery) ([]byte, error) {
	q.Limit, q.Offset = 0, 0
	reports, _, err := s.List(ctx, actor, q)
	if err != nil {
		return nil, err
	}

	ownerIDs := make([]int64, 0, len(reports))
	for _, r := range reports {
		ownerIDs = append(ownerIDs, r.UserID)
	}
	owners, err := s.users.GetByIDs(ctx, entity.UniqueIDs(ownerIDs))
	if err != nil {
		return nil, fmt.Errorf("load owners: %w", err)
	}
	names := make(map[int64]string, len(owners))
	for _, u := range owners {
		names[u.ID] = u.Name
	}

	assignments := make(map[int64]*entity.Assignment)
	rows := make([]port.ExportRow, 0, len(reports))
	for _, r := range reports {
		a, seen := assignments[r.AssignmentID]
		if !seen {
			if a, err = s.assignments.GetByID(ctx, r.AssignmentID); err != nil {
				return nil, fmt.Errorf("load assignment: %w", err)
			}
			assignments[r.AssignmentID] = a
		}
		detail, err := s.expenses.GetDetail(ctx, r.ID, r.TravelType)
		if err != nil {
			return nil, fmt.Errorf("load expense detail: %w", err)
		}
		row := port.ExportRow{Report: r, OwnerName: names[r.UserID], Assignment: a}
		if detail != nil {
			row.Total = detail.Total()
		}
		rows = append(rows, row)
	}

	data, err := s.exporter.Export(ctx, rows)
	if err != nil {
		s.logger.Error("Failed to export reports", "error", err, "actor_id", actor.ID)
		return nil, err
	}
	s.logger.Info("Reports exported", "actor_id", actor.ID, "rows", len(rows))
	return data, nil
}

// load returns the report with its detail, narrative and transportation
// types attached.
func (s *reportServiceImpl) load(ctx context.Context, id int64) (*entity.Report, error) {
	r, err := s.reports.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("Failed to get report", "error", err, "id", id)
		return nil, err
	}
	if r == nil {
		return nil, notFound("report", id)
	}
	if r.Detail, err = s.expenses.GetDetail(ctx, id, r.TravelType); err != nil {
		return nil, fmt.Errorf("load expense detail: %w", err)
	}
	if r.Narrative, err = s.expenses.GetNarrative(ctx, id); err != nil {
		return nil, fmt.Errorf("load narrative: %w", err)
	}
	if r.TransportationTypes, err = s.expenses.TransportationTypeIDs(ctx, id); err != nil {
		return nil, fmt.Errorf("load transportation types: %w", err)
	}
	return r, nil
}

func (s *reportServiceImpl) loadOwned(ctx context.Context, actor *entity.Actor, id int64) (*entity.Report, error) {
	r, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !r.IsOwner(actor.ID) {
		s.logger.Warn("Report ownership check failed", "id", id, "actor_id", actor.ID)
		return nil, forbidden("only the owner may change this report")
	}
	return r, nil
}

// validate runs entity validation and resolves the fullboard rate.
func (s *reportServiceImpl) validate(ctx context.Context, r *entity.Report) error {
	if err := r.Validate(); err != nil {
		return err
	}
	oc, ok := r.Detail.(*entity.OutCityReport)
	if !ok || oc.FullboardPriceID == nil {
		return nil
	}
	price, err := s.fullboard.GetByID(ctx, *oc.FullboardPriceID)
	if err != nil {
		return fmt.Errorf("load fullboard price: %w", err)
	}
	if price == nil {
		return entity.FieldError("detail.fullboard_price_id", "fullboard price does not exist")
	}
	oc.FullboardAmount = price.Price
	return nil
}

// saveParts writes the detail, narrative and transportation types.
func (s *reportServiceImpl) saveParts(ctx context.Context, r *entity.Report, now time.Time) error {
	r.Detail.SetReportID(r.ID)
	if err := s.expenses.SaveDetail(ctx, r.Detail); err != nil {
		return fmt.Errorf("save expense detail: %w", err)
	}
	if r.Narrative != nil {
		r.Narrative.ReportID = r.ID
		if r.Narrative.CreatedAt.IsZero() {
			r.Narrative.CreatedAt = now
		}
		r.Narrative.UpdatedAt = now
		if err := s.expenses.SaveNarrative(ctx, r.Narrative); err != nil {
			return fmt.Errorf("save narrative: %w", err)
		}
	}
	if err := s.expenses.SetTransportationTypes(ctx, r.ID, r.TransportationTypes); err != nil {
		return fmt.Errorf("save transportation types: %w", err)
	}
	return nil
}

func applyInput(r *entity.Report, in ReportInput, now time.Time) {
	r.TravelOrderNumber = strings.TrimSpace(in.TravelOrderNumber)
	r.DestinationCity = strings.TrimSpace(in.DestinationCity)
	r.DepartureDate = CivilDate(in.DepartureDate)
	r.ReturnDate = CivilDate(in.ReturnDate)
	r.ActualDuration = in.ActualDuration
	r.TravelPurpose = strings.TrimSpace(in.TravelPurpose)
	r.Detail = in.Detail
	r.TransportationTypes = entity.UniqueIDs(in.TransportationTypeIDs)
	r.UpdatedAt = now

	if content := strings.TrimSpace(in.Narrative); content != "" {
		if r.Narrative == nil {
			r.Narrative = &entity.TravelReport{}
		}
		r.Narrative.Content = content
	}
}

func clearReceipts(detail entity.ExpenseDetail) {
	for _, slot := range receiptSlotNames(detail.TravelType()) {
		if p, ok := detail.ReceiptSlot(slot); ok {
			*p = ""
		}
	}
}

func copyReceipts(from, to entity.ExpenseDetail) {
	if from == nil || from.TravelType() != to.TravelType() {
		return
	}
	for _, slot := range receiptSlotNames(to.TravelType()) {
		src, _ := from.ReceiptSlot(slot)
		dst, _ := to.ReceiptSlot(slot)
		if src != nil && dst != nil {
			*dst = *src
		}
	}
}

func detailCreatedAt(detail entity.ExpenseDetail, fallback time.Time) time.Time {
	var created time.Time
	switch d := detail.(type) {
	case *entity.InCityReport:
		created = d.CreatedAt
	case *entity.OutCityReport:
		created = d.CreatedAt
	case *entity.OutCountryReport:
		created = d.CreatedAt
	}
	if created.IsZero() {
		return fallback
	}
	return created
}
