package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/garyjia/travel-report/internal/application/dispatcher"
	"github.com/garyjia/travel-report/internal/application/port"
	"github.com/garyjia/travel-report/internal/domain/entity"
	"github.com/garyjia/travel-report/internal/domain/event"
)

// Mock repositories

type mockAssignmentRepo struct {
	createFunc          func(ctx context.Context, a *entity.Assignment) error
	updateFunc          func(ctx context.Context, a *entity.Assignment) error
	deleteManyFunc      func(ctx context.Context, ids []int64) (int64, error)
	getByIDFunc         func(ctx context.Context, id int64) (*entity.Assignment, error)
	listFunc            func(ctx context.Context, filter port.AssignmentFilter) ([]*entity.Assignment, int, error)
	participantIDsFunc  func(ctx context.Context, assignmentID int64) ([]int64, error)
	setParticipantsFunc func(ctx context.Context, assignmentID int64, userIDs []int64) error
	countForUserFunc    func(ctx context.Context, userID int64) (int, error)
}

func (m *mockAssignmentRepo) Create(ctx context.Context, a *entity.Assignment) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, a)
	}
	a.ID = 1
	return nil
}

func (m *mockAssignmentRepo) Update(ctx context.Context, a *entity.Assignment) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, a)
	}
	return nil
}

func (m *mockAssignmentRepo) Delete(ctx context.Context, id int64) error {
	_, err := m.DeleteMany(ctx, []int64{id})
	return err
}

func (m *mockAssignmentRepo) DeleteMany(ctx context.Context, ids []int64) (int64, error) {
	if m.deleteManyFunc != nil {
		return m.deleteManyFunc(ctx, ids)
	}
	return int64(len(ids)), nil
}

func (m *mockAssignmentRepo) GetByID(ctx context.Context, id int64) (*entity.Assignment, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockAssignmentRepo) List(ctx context.Context, filter port.AssignmentFilter) ([]*entity.Assignment, int, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, filter)
	}
	return nil, 0, nil
}

func (m *mockAssignmentRepo) ParticipantIDs(ctx context.Context, assignmentID int64) ([]int64, error) {
	if m.participantIDsFunc != nil {
		return m.participantIDsFunc(ctx, assignmentID)
	}
	return nil, nil
}

func (m *mockAssignmentRepo) SetParticipants(ctx context.Context, assignmentID int64, userIDs []int64) error {
	if m.setParticipantsFunc != nil {
		return m.setParticipantsFunc(ctx, assignmentID, userIDs)
	}
	return nil
}

func (m *mockAssignmentRepo) IsParticipant(ctx context.Context, assignmentID, userID int64) (bool, error) {
	ids, err := m.ParticipantIDs(ctx, assignmentID)
	if err != nil {
		return false, err
	}
	for _, id := range ids {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockAssignmentRepo) CountForUser(ctx context.Context, userID int64) (int, error) {
	if m.countForUserFunc != nil {
		return m.countForUserFunc(ctx, userID)
	}
	return 0, nil
}

// mockUserRepo keeps users in memory
type mockUserRepo struct {
	mu    sync.Mutex
	users map[int64]*entity.User
	next  int64

	createFunc func(ctx context.Context, u *entity.User) error
	refs       map[int64]port.UserReferences
}

func newMockUserRepo(users ...*entity.User) *mockUserRepo {
	m := &mockUserRepo{users: make(map[int64]*entity.User), next: 100}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *mockUserRepo) Create(ctx context.Context, u *entity.User) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, u)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	u.ID = m.next
	m.users[u.ID] = u
	return nil
}

func (m *mockUserRepo) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (m *mockUserRepo) GetByIDs(ctx context.Context, ids []int64) ([]*entity.User, error) {
	var out []*entity.User
	for _, id := range ids {
		u, _ := m.GetByID(ctx, id)
		if u != nil {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *mockUserRepo) UpdateRoles(ctx context.Context, id int64, roles []entity.Role, workUnitID *int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return fmt.Errorf("user %d not found", id)
	}
	u.Roles = roles
	u.WorkUnitID = workUnitID
	return nil
}

func (m *mockUserRepo) CountReferences(ctx context.Context, id int64) (port.UserReferences, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refs[id], nil
}

func (m *mockUserRepo) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, id)
	return nil
}

// mockWorkUnitRepo keeps units in memory and enforces head uniqueness
type mockWorkUnitRepo struct {
	mu    sync.Mutex
	units map[int64]*entity.WorkUnit

	createFunc func(ctx context.Context, w *entity.WorkUnit) error
}

func newMockWorkUnitRepo(units ...*entity.WorkUnit) *mockWorkUnitRepo {
	m := &mockWorkUnitRepo{units: make(map[int64]*entity.WorkUnit)}
	for _, w := range units {
		m.units[w.ID] = w
	}
	return m
}

func (m *mockWorkUnitRepo) Create(ctx context.Context, w *entity.WorkUnit) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, w)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	w.ID = int64(len(m.units) + 1)
	m.units[w.ID] = w
	return nil
}

func (m *mockWorkUnitRepo) GetByID(ctx context.Context, id int64) (*entity.WorkUnit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.units[id]
	if !ok {
		return nil, nil
	}
	cp := *w
	return &cp, nil
}

func (m *mockWorkUnitRepo) GetByHead(ctx context.Context, userID int64) (*entity.WorkUnit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range m.units {
		if w.HeadID != nil && *w.HeadID == userID {
			cp := *w
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockWorkUnitRepo) SetHead(ctx context.Context, unitID int64, headID *int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if headID != nil {
		for _, w := range m.units {
			if w.ID != unitID && w.HeadID != nil && *w.HeadID == *headID {
				return port.ErrUniqueViolation
			}
		}
	}
	w, ok := m.units[unitID]
	if !ok {
		return fmt.Errorf("unit %d not found", unitID)
	}
	if headID != nil {
		id := *headID
		w.HeadID = &id
	} else {
		w.HeadID = nil
	}
	return nil
}

func (m *mockWorkUnitRepo) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.units, id)
	return nil
}

func (m *mockWorkUnitRepo) headCount(userID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, w := range m.units {
		if w.HeadID != nil && *w.HeadID == userID {
			n++
		}
	}
	return n
}

type mockReportRepo struct {
	createFunc                 func(ctx context.Context, r *entity.Report) error
	updateFunc                 func(ctx context.Context, r *entity.Report) error
	updateStatusFunc           func(ctx context.Context, id int64, status entity.ReportStatus) error
	markSubmittedFunc          func(ctx context.Context, id int64, round int, at time.Time) error
	deleteFunc                 func(ctx context.Context, id int64) error
	getByIDFunc                func(ctx context.Context, id int64) (*entity.Report, error)
	getByAssignmentAndUserFunc func(ctx context.Context, assignmentID, userID int64) (*entity.Report, error)
	listFunc                   func(ctx context.Context, filter port.ReportFilter) ([]*entity.Report, int, error)
}

func (m *mockReportRepo) Create(ctx context.Context, r *entity.Report) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, r)
	}
	r.ID = 1
	return nil
}

func (m *mockReportRepo) Update(ctx context.Context, r *entity.Report) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, r)
	}
	return nil
}

func (m *mockReportRepo) UpdateStatus(ctx context.Context, id int64, status entity.ReportStatus) error {
	if m.updateStatusFunc != nil {
		return m.updateStatusFunc(ctx, id, status)
	}
	return nil
}

func (m *mockReportRepo) MarkSubmitted(ctx context.Context, id int64, round int, at time.Time) error {
	if m.markSubmittedFunc != nil {
		return m.markSubmittedFunc(ctx, id, round, at)
	}
	return nil
}

func (m *mockReportRepo) Delete(ctx context.Context, id int64) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

func (m *mockReportRepo) GetByID(ctx context.Context, id int64) (*entity.Report, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockReportRepo) GetByAssignmentAndUser(ctx context.Context, assignmentID, userID int64) (*entity.Report, error) {
	if m.getByAssignmentAndUserFunc != nil {
		return m.getByAssignmentAndUserFunc(ctx, assignmentID, userID)
	}
	return nil, nil
}

func (m *mockReportRepo) List(ctx context.Context, filter port.ReportFilter) ([]*entity.Report, int, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, filter)
	}
	return nil, 0, nil
}

type mockExpenseRepo struct {
	details    map[int64]entity.ExpenseDetail
	narratives map[int64]*entity.TravelReport

	saveDetailFunc func(ctx context.Context, d entity.ExpenseDetail) error
}

func (m *mockExpenseRepo) SaveDetail(ctx context.Context, d entity.ExpenseDetail) error {
	if m.saveDetailFunc != nil {
		return m.saveDetailFunc(ctx, d)
	}
	return nil
}

func (m *mockExpenseRepo) GetDetail(ctx context.Context, reportID int64, t entity.TravelType) (entity.ExpenseDetail, error) {
	if d, ok := m.details[reportID]; ok && d.TravelType() == t {
		return d, nil
	}
	return nil, nil
}

func (m *mockExpenseRepo) SaveNarrative(ctx context.Context, n *entity.TravelReport) error {
	if m.narratives == nil {
		m.narratives = make(map[int64]*entity.TravelReport)
	}
	cp := *n
	m.narratives[n.ReportID] = &cp
	return nil
}

func (m *mockExpenseRepo) GetNarrative(ctx context.Context, reportID int64) (*entity.TravelReport, error) {
	n, ok := m.narratives[reportID]
	if !ok {
		return nil, nil
	}
	cp := *n
	return &cp, nil
}

func (m *mockExpenseRepo) SetTransportationTypes(ctx context.Context, reportID int64, typeIDs []int64) error {
	return nil
}

func (m *mockExpenseRepo) TransportationTypeIDs(ctx context.Context, reportID int64) ([]int64, error) {
	return nil, nil
}

// mockReviewRepo keeps reviews in memory and enforces one verdict per
// reviewer type and round
type mockReviewRepo struct {
	mu      sync.Mutex
	reviews []*entity.Review
}

func (m *mockReviewRepo) Create(ctx context.Context, r *entity.Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.reviews {
		if existing.ReportID == r.ReportID && existing.Round == r.Round && existing.ReviewerType == r.ReviewerType {
			return port.ErrUniqueViolation
		}
	}
	r.ID = int64(len(m.reviews) + 1)
	m.reviews = append(m.reviews, r)
	return nil
}

func (m *mockReviewRepo) ListByReport(ctx context.Context, reportID int64) ([]*entity.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Review
	for _, r := range m.reviews {
		if r.ReportID == reportID {
			out = append(out, r)
		}
	}
	return out, nil
}

type mockDocumentationRepo struct {
	docs       map[int64]*entity.Documentation
	createFunc func(ctx context.Context, d *entity.Documentation) error
}

func (m *mockDocumentationRepo) Create(ctx context.Context, d *entity.Documentation) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, d)
	}
	if m.docs == nil {
		m.docs = make(map[int64]*entity.Documentation)
	}
	d.ID = int64(len(m.docs) + 1)
	m.docs[d.ID] = d
	return nil
}

func (m *mockDocumentationRepo) GetByID(ctx context.Context, id int64) (*entity.Documentation, error) {
	return m.docs[id], nil
}

func (m *mockDocumentationRepo) Delete(ctx context.Context, id int64) error {
	delete(m.docs, id)
	return nil
}

func (m *mockDocumentationRepo) ListByAssignment(ctx context.Context, assignmentID int64) ([]*entity.Documentation, error) {
	var out []*entity.Documentation
	for _, d := range m.docs {
		if d.AssignmentID == assignmentID {
			out = append(out, d)
		}
	}
	return out, nil
}

type mockFullboardRepo struct {
	prices map[int64]*entity.FullboardPrice
}

func (m *mockFullboardRepo) GetByID(ctx context.Context, id int64) (*entity.FullboardPrice, error) {
	return m.prices[id], nil
}

func (m *mockFullboardRepo) List(ctx context.Context) ([]*entity.FullboardPrice, error) {
	var out []*entity.FullboardPrice
	for _, p := range m.prices {
		out = append(out, p)
	}
	return out, nil
}

type mockStorage struct {
	mu      sync.Mutex
	stored  []string
	deleted []string

	storeFunc func(ctx context.Context, upload port.Upload, directory string, ownerID int64, kind string) (string, error)
}

func (m *mockStorage) Store(ctx context.Context, upload port.Upload, directory string, ownerID int64, kind string) (string, error) {
	if m.storeFunc != nil {
		return m.storeFunc(ctx, upload, directory, ownerID, kind)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	path := fmt.Sprintf("%s/%d/%s-%d%s", directory, ownerID, kind, len(m.stored)+1, ".png")
	m.stored = append(m.stored, path)
	return path, nil
}

func (m *mockStorage) Read(ctx context.Context, path string) ([]byte, error) { return nil, nil }
func (m *mockStorage) Exists(ctx context.Context, path string) bool         { return true }

func (m *mockStorage) Delete(ctx context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, path)
	return nil
}

func (m *mockStorage) URL(ctx context.Context, path string) string {
	return "/files/" + path
}

type mockTxManager struct {
	withTransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.withTransactionFunc != nil {
		return m.withTransactionFunc(ctx, fn)
	}
	return fn(ctx)
}

type mockMailer struct {
	mu   sync.Mutex
	sent []port.MailMessage
	err  error
}

func (m *mockMailer) Send(ctx context.Context, msg port.MailMessage) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

type mockRenderer struct{}

func (mockRenderer) Render(source string) string { return "<p>" + source + "</p>" }

type mockExporter struct {
	rows []port.ExportRow
}

func (m *mockExporter) Export(ctx context.Context, rows []port.ExportRow) ([]byte, error) {
	m.rows = rows
	return []byte("xlsx"), nil
}

// mockCache is a map without expiry
type mockCache struct {
	mu       sync.Mutex
	entries  map[string]*entity.DashboardStats
	computed int
}

func newMockCache() *mockCache {
	return &mockCache{entries: make(map[string]*entity.DashboardStats)}
}

func (m *mockCache) GetOrCompute(ctx context.Context, key string, compute func(ctx context.Context) (*entity.DashboardStats, error)) (*entity.DashboardStats, error) {
	m.mu.Lock()
	if v, ok := m.entries[key]; ok {
		m.mu.Unlock()
		return v, nil
	}
	m.mu.Unlock()

	v, err := compute(ctx)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.entries[key] = v
	m.computed++
	m.mu.Unlock()
	return v, nil
}

func (m *mockCache) RemoveMatching(match func(key string) bool) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k := range m.entries {
		if match(k) {
			delete(m.entries, k)
			n++
		}
	}
	return n
}

func (m *mockCache) Purge() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]*entity.DashboardStats)
}

func (m *mockCache) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.entries))
	for k := range m.entries {
		out = append(out, k)
	}
	return out
}

// recordingLogger keeps log lines per level
type recordingLogger struct {
	mu    sync.Mutex
	infos []string
	warns []string
	errs  []string
}

func (l *recordingLogger) Info(msg string, keysAndValues ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infos = append(l.infos, msg)
}

func (l *recordingLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

func (l *recordingLogger) Error(msg string, keysAndValues ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errs = append(l.errs, msg)
}

// eventRecorder subscribes to every event type on a real dispatcher
type eventRecorder struct {
	dispatcher.Dispatcher
	mu     sync.Mutex
	events []*event.Event
}

func newEventRecorder() *eventRecorder {
	r := &eventRecorder{Dispatcher: dispatcher.NewDispatcher()}
	for _, t := range event.DataChanging {
		r.SubscribeNamed(t, "recorder", func(ctx context.Context, evt *event.Event) error {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.events = append(r.events, evt)
			return nil
		})
	}
	return r
}

func (r *eventRecorder) ofType(t event.Type) []*event.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*event.Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

var testNow = time.Date(2024, time.March, 15, 3, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

func actor(id int64, roles ...entity.Role) *entity.Actor {
	return &entity.Actor{ID: id, Name: fmt.Sprintf("user-%d", id), Roles: roles}
}

func int64Ptr(v int64) *int64 { return &v }
