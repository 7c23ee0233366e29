package http

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/garyjia/travel-report/internal/application/port"
	"github.com/garyjia/travel-report/internal/application/service"
	"github.com/garyjia/travel-report/internal/domain/entity"
	"github.com/garyjia/travel-report/internal/domain/event"
	"github.com/garyjia/travel-report/internal/infrastructure/storage"
)

// Mock services

type mockAssignmentService struct {
	createFunc     func(ctx context.Context, actor *entity.Actor, in service.AssignmentInput) (*entity.Assignment, error)
	updateFunc     func(ctx context.Context, actor *entity.Actor, id int64, in service.AssignmentInput) (*entity.Assignment, error)
	deleteFunc     func(ctx context.Context, actor *entity.Actor, id int64) error
	bulkDeleteFunc func(ctx context.Context, actor *entity.Actor, ids []int64) (int64, error)
	getFunc        func(ctx context.Context, actor *entity.Actor, id int64) (*entity.Assignment, error)
	listFunc       func(ctx context.Context, actor *entity.Actor, q service.AssignmentQuery) ([]*entity.Assignment, int, error)
}

func (m *mockAssignmentService) Create(ctx context.Context, actor *entity.Actor, in service.AssignmentInput) (*entity.Assignment, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, actor, in)
	}
	return &entity.Assignment{ID: 1, Purpose: in.Purpose}, nil
}

func (m *mockAssignmentService) Update(ctx context.Context, actor *entity.Actor, id int64, in service.AssignmentInput) (*entity.Assignment, error) {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, actor, id, in)
	}
	return &entity.Assignment{ID: id, Purpose: in.Purpose}, nil
}

func (m *mockAssignmentService) Delete(ctx context.Context, actor *entity.Actor, id int64) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, actor, id)
	}
	return nil
}

func (m *mockAssignmentService) BulkDelete(ctx context.Context, actor *entity.Actor, ids []int64) (int64, error) {
	if m.bulkDeleteFunc != nil {
		return m.bulkDeleteFunc(ctx, actor, ids)
	}
	return int64(len(ids)), nil
}

func (m *mockAssignmentService) Get(ctx context.Context, actor *entity.Actor, id int64) (*entity.Assignment, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, actor, id)
	}
	return &entity.Assignment{ID: id}, nil
}

func (m *mockAssignmentService) List(ctx context.Context, actor *entity.Actor, q service.AssignmentQuery) ([]*entity.Assignment, int, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, actor, q)
	}
	return nil, 0, nil
}

type mockDocumentationService struct {
	addFunc    func(ctx context.Context, actor *entity.Actor, assignmentID int64, in service.DocumentationInput) (*entity.Documentation, error)
	deleteFunc func(ctx context.Context, actor *entity.Actor, id int64) error
	listFunc   func(ctx context.Context, actor *entity.Actor, assignmentID int64) ([]*entity.Documentation, error)
}

func (m *mockDocumentationService) Add(ctx context.Context, actor *entity.Actor, assignmentID int64, in service.DocumentationInput) (*entity.Documentation, error) {
	if m.addFunc != nil {
		return m.addFunc(ctx, actor, assignmentID, in)
	}
	return &entity.Documentation{ID: 1, AssignmentID: assignmentID}, nil
}

func (m *mockDocumentationService) Delete(ctx context.Context, actor *entity.Actor, id int64) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, actor, id)
	}
	return nil
}

func (m *mockDocumentationService) List(ctx context.Context, actor *entity.Actor, assignmentID int64) ([]*entity.Documentation, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, actor, assignmentID)
	}
	return nil, nil
}

type mockReportService struct {
	createFunc func(ctx context.Context, actor *entity.Actor, in service.ReportInput) (*entity.Report, error)
	updateFunc func(ctx context.Context, actor *entity.Actor, id int64, in service.ReportInput) (*entity.Report, error)
	submitFunc func(ctx context.Context, actor *entity.Actor, id int64) (*entity.Report, error)
	deleteFunc func(ctx context.Context, actor *entity.Actor, id int64) error
	getFunc    func(ctx context.Context, actor *entity.Actor, id int64) (*service.ReportView, error)
	listFunc   func(ctx context.Context, actor *entity.Actor, q service.ReportQuery) ([]*entity.Report, int, error)
	attachFunc func(ctx context.Context, actor *entity.Actor, id int64, slot string, upload port.Upload) (string, error)
	exportFunc func(ctx context.Context, actor *entity.Actor, q service.ReportQuery) ([]byte, error)
}

func (m *mockReportService) Create(ctx context.Context, actor *entity.Actor, in service.ReportInput) (*entity.Report, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, actor, in)
	}
	return &entity.Report{ID: 1, AssignmentID: in.AssignmentID, TravelType: in.TravelType, Detail: in.Detail}, nil
}

func (m *mockReportService) Update(ctx context.Context, actor *entity.Actor, id int64, in service.ReportInput) (*entity.Report, error) {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, actor, id, in)
	}
	return &entity.Report{ID: id, TravelType: in.TravelType, Detail: in.Detail}, nil
}

func (m *mockReportService) Submit(ctx context.Context, actor *entity.Actor, id int64) (*entity.Report, error) {
	if m.submitFunc != nil {
		return m.submitFunc(ctx, actor, id)
	}
	return &entity.Report{ID: id, Status: entity.ReportStatusSubmitted}, nil
}

func (m *mockReportService) Delete(ctx context.Context, actor *entity.Actor, id int64) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, actor, id)
	}
	return nil
}

func (m *mockReportService) Get(ctx context.Context, actor *entity.Actor, id int64) (*service.ReportView, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, actor, id)
	}
	return &service.ReportView{Report: &entity.Report{ID: id}}, nil
}

func (m *mockReportService) List(ctx context.Context, actor *entity.Actor, q service.ReportQuery) ([]*entity.Report, int, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, actor, q)
	}
	return nil, 0, nil
}

func (m *mockReportService) AttachFile(ctx context.Context, actor *entity.Actor, id int64, slot string, upload port.Upload) (string, error) {
	if m.attachFunc != nil {
		return m.attachFunc(ctx, actor, id, slot, upload)
	}
	return "reports/1/" + slot + ".pdf", nil
}

func (m *mockReportService) Export(ctx context.Context, actor *entity.Actor, q service.ReportQuery) ([]byte, error) {
	if m.exportFunc != nil {
		return m.exportFunc(ctx, actor, q)
	}
	return []byte("xlsx"), nil
}

type mockReviewService struct {
	submitFunc    func(ctx context.Context, actor *entity.Actor, reportID int64, in service.ReviewInput) (*entity.Review, error)
	listFunc      func(ctx context.Context, actor *entity.Actor, reportID int64) ([]*entity.Review, error)
	recomputeFunc func(ctx context.Context, actor *entity.Actor) (*service.RecomputeResult, error)
}

func (m *mockReviewService) SubmitReview(ctx context.Context, actor *entity.Actor, reportID int64, in service.ReviewInput) (*entity.Review, error) {
	if m.submitFunc != nil {
		return m.submitFunc(ctx, actor, reportID, in)
	}
	return &entity.Review{ID: 1, ReportID: reportID, ReviewerType: in.ReviewerType, Status: in.Status}, nil
}

func (m *mockReviewService) ListReviews(ctx context.Context, actor *entity.Actor, reportID int64) ([]*entity.Review, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, actor, reportID)
	}
	return nil, nil
}

func (m *mockReviewService) RecomputeStatus(ctx context.Context, reportID int64) (entity.ReportStatus, error) {
	return entity.ReportStatusSubmitted, nil
}

func (m *mockReviewService) UpdateAllReportStatuses(ctx context.Context, actor *entity.Actor) (*service.RecomputeResult, error) {
	if m.recomputeFunc != nil {
		return m.recomputeFunc(ctx, actor)
	}
	return &service.RecomputeResult{}, nil
}

type mockDashboardService struct {
	computeFunc func(ctx context.Context, actor *entity.Actor) (*entity.DashboardStats, error)
	clearFunc   func(ctx context.Context, actor *entity.Actor) error
}

func (m *mockDashboardService) Compute(ctx context.Context, actor *entity.Actor) (*entity.DashboardStats, error) {
	if m.computeFunc != nil {
		return m.computeFunc(ctx, actor)
	}
	return &entity.DashboardStats{}, nil
}

func (m *mockDashboardService) ClearCache(ctx context.Context, actor *entity.Actor) error {
	if m.clearFunc != nil {
		return m.clearFunc(ctx, actor)
	}
	return nil
}

func (m *mockDashboardService) HandleEvent(ctx context.Context, evt *event.Event) error {
	return nil
}

type mockLeadershipService struct {
	createFunc   func(ctx context.Context, actor *entity.Actor, in service.EmployeeInput) (*entity.User, error)
	setRolesFunc func(ctx context.Context, actor *entity.Actor, userID int64, roles []entity.Role, workUnitID *int64) (*entity.User, error)
	deleteFunc   func(ctx context.Context, actor *entity.Actor, userID int64) error
}

func (m *mockLeadershipService) CreateEmployee(ctx context.Context, actor *entity.Actor, in service.EmployeeInput) (*entity.User, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, actor, in)
	}
	return &entity.User{ID: 10, Name: in.Name, Roles: in.Roles}, nil
}

func (m *mockLeadershipService) SetEmployeeRoles(ctx context.Context, actor *entity.Actor, userID int64, roles []entity.Role, workUnitID *int64) (*entity.User, error) {
	if m.setRolesFunc != nil {
		return m.setRolesFunc(ctx, actor, userID, roles, workUnitID)
	}
	return &entity.User{ID: userID, Roles: roles, WorkUnitID: workUnitID}, nil
}

func (m *mockLeadershipService) DeleteEmployee(ctx context.Context, actor *entity.Actor, userID int64) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, actor, userID)
	}
	return nil
}

type mockWorkUnitService struct {
	createFunc func(ctx context.Context, actor *entity.Actor, in service.WorkUnitInput) (*entity.WorkUnit, error)
	deleteFunc func(ctx context.Context, actor *entity.Actor, id int64) error
}

func (m *mockWorkUnitService) Create(ctx context.Context, actor *entity.Actor, in service.WorkUnitInput) (*entity.WorkUnit, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, actor, in)
	}
	return &entity.WorkUnit{ID: 1, Name: in.Name, Code: in.Code}, nil
}

func (m *mockWorkUnitService) Delete(ctx context.Context, actor *entity.Actor, id int64) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, actor, id)
	}
	return nil
}

// Mock collaborators

// stubVerifier accepts tokens of the form "user-<id>" listed in tokens
type stubVerifier struct {
	tokens map[string]int64
}

func (v *stubVerifier) Verify(token string) (int64, error) {
	if id, ok := v.tokens[token]; ok {
		return id, nil
	}
	return 0, errors.New("invalid token")
}

type stubUsers struct {
	users map[int64]*entity.User
	err   error
}

func (u *stubUsers) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	if u.err != nil {
		return nil, u.err
	}
	return u.users[id], nil
}

type stubPinger struct {
	err error
}

func (p *stubPinger) PingContext(ctx context.Context) error {
	return p.err
}

// memoryFiles is an in-memory port.FileStorage
type memoryFiles struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newMemoryFiles() *memoryFiles {
	return &memoryFiles{files: make(map[string][]byte)}
}

func (m *memoryFiles) Store(ctx context.Context, upload port.Upload, directory string, ownerID int64, kind string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := directory + "/" + kind + "_" + upload.Filename
	m.files[p] = upload.Content
	return p, nil
}

func (m *memoryFiles) Read(ctx context.Context, p string) ([]byte, error) {
	if strings.Contains(p, "..") {
		return nil, storage.ErrInvalidPath
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[p]
	if !ok {
		return nil, errors.New("file does not exist")
	}
	return data, nil
}

func (m *memoryFiles) Exists(ctx context.Context, p string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[p]
	return ok
}

func (m *memoryFiles) Delete(ctx context.Context, p string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, p)
	return nil
}

func (m *memoryFiles) URL(ctx context.Context, p string) string {
	if !m.Exists(ctx, p) {
		return ""
	}
	return "/api/files/" + p
}

// recordingLogger keeps log lines per level
type recordingLogger struct {
	mu     sync.Mutex
	infos  []string
	errors []string
}

func (l *recordingLogger) Info(msg string, keysAndValues ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infos = append(l.infos, msg)
}

func (l *recordingLogger) Error(msg string, keysAndValues ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, msg)
}

func (l *recordingLogger) errorCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.errors)
}
