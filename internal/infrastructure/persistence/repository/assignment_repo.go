package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/garyjia/travel-report/internal/application/port"
	"github.com/garyjia/travel-report/internal/domain/entity"
	"github.com/garyjia/travel-report/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// AssignmentRepository implements port.AssignmentRepository
type AssignmentRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAssignmentRepository creates a new assignment repository
func NewAssignmentRepository(db *sql.DB, logger *zap.Logger) *AssignmentRepository {
	return &AssignmentRepository{db: db, logger: logger}
}

const assignmentSelect = `
	SELECT a.id, a.purpose, a.destination, a.start_date, a.end_date, a.creator_id,
		(SELECT COUNT(*) FROM reports rp WHERE rp.assignment_id = a.id) AS report_count,
		a.created_at, a.updated_at
	FROM assignments a
`

// Create inserts the assignment header
func (r *AssignmentRepository) Create(ctx context.Context, a *entity.Assignment) error {
	query := `
		INSERT INTO assignments (purpose, destination, start_date, end_date, creator_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	result, err := sqlite.Conn(ctx, r.db).ExecContext(ctx, query,
		a.Purpose,
		a.Destination,
		sqlite.Date(a.StartDate),
		sqlite.Date(a.EndDate),
		a.CreatorID,
		sqlite.Timestamp(a.CreatedAt),
		sqlite.Timestamp(a.UpdatedAt),
	)
	if err != nil {
		r.logger.Error("Failed to create assignment",
			zap.Int64("creator_id", a.CreatorID),
			zap.Error(err))
		return fmt.Errorf("failed to create assignment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	a.ID = id
	return nil
}

// Update writes the editable header fields
func (r *AssignmentRepository) Update(ctx context.Context, a *entity.Assignment) error {
	query := `
		UPDATE assignments
		SET purpose = ?, destination = ?, start_date = ?, end_date = ?, updated_at = ?
		WHERE id = ?
	`
	_, err := sqlite.Conn(ctx, r.db).ExecContext(ctx, query,
		a.Purpose,
		a.Destination,
		sqlite.Date(a.StartDate),
		sqlite.Date(a.EndDate),
		sqlite.Timestamp(a.UpdatedAt),
		a.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update assignment", zap.Int64("id", a.ID), zap.Error(err))
		return fmt.Errorf("failed to update assignment: %w", err)
	}
	return nil
}

// Delete removes one assignment; participants, documentation and reports cascade
func (r *AssignmentRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.DeleteMany(ctx, []int64{id})
	return err
}

// DeleteMany removes assignments by id and returns how many existed
func (r *AssignmentRepository) DeleteMany(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result, err := sqlite.Conn(ctx, r.db).ExecContext(ctx,
		`DELETE FROM assignments WHERE id IN (`+sqlite.Placeholders(len(ids))+`)`,
		sqlite.Int64Args(ids)...,
	)
	if err != nil {
		r.logger.Error("Failed to delete assignments", zap.Int64s("ids", ids), zap.Error(err))
		return 0, fmt.Errorf("failed to delete assignments: %w", err)
	}
	return result.RowsAffected()
}

// GetByID returns the assignment with participants loaded, or nil
func (r *AssignmentRepository) GetByID(ctx context.Context, id int64) (*entity.Assignment, error) {
	a, err := scanAssignment(sqlite.Conn(ctx, r.db).QueryRowContext(ctx, assignmentSelect+` WHERE a.id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get assignment", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	if err := r.loadParticipants(ctx, []*entity.Assignment{a}); err != nil {
		return nil, err
	}
	return a, nil
}

// List returns a page of assignments, newest first, and the unpaged total
func (r *AssignmentRepository) List(ctx context.Context, filter port.AssignmentFilter) ([]*entity.Assignment, int, error) {
	where, args := assignmentWhere(filter)
	conn := sqlite.Conn(ctx, r.db)

	var total int
	if err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM assignments a`+where, args...).Scan(&total); err != nil {
		r.logger.Error("Failed to count assignments", zap.Error(err))
		return nil, 0, fmt.Errorf("failed to count assignments: %w", err)
	}

	query := assignmentSelect + where + ` ORDER BY a.created_at DESC, a.id DESC` + pageClause(filter.Limit, filter.Offset)
	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list assignments", zap.Error(err))
		return nil, 0, fmt.Errorf("failed to list assignments: %w", err)
	}
	var items []*entity.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			rows.Close()
			return nil, 0, fmt.Errorf("failed to scan assignment: %w", err)
		}
		items = append(items, a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if err := r.loadParticipants(ctx, items); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func assignmentWhere(filter port.AssignmentFilter) (string, []interface{}) {
	var clauses []string
	var args []interface{}

	if filter.ParticipantID != 0 {
		clauses = append(clauses, `a.id IN (SELECT assignment_id FROM assignment_participants WHERE user_id = ?)`)
		args = append(args, filter.ParticipantID)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		pattern := likePattern(s)
		clause := `a.destination LIKE ? ESCAPE '\' OR a.purpose LIKE ? ESCAPE '\'`
		args = append(args, pattern, pattern)
		if filter.SearchParticipants {
			clause += ` OR EXISTS (
				SELECT 1 FROM assignment_participants ap
				JOIN users u ON u.id = ap.user_id
				WHERE ap.assignment_id = a.id AND u.name LIKE ? ESCAPE '\')`
			args = append(args, pattern)
		}
		clauses = append(clauses, "("+clause+")")
	}
	if filter.StartDate != nil {
		clauses = append(clauses, `a.start_date = ?`)
		args = append(args, sqlite.Date(*filter.StartDate))
	}
	if filter.HasReports != nil {
		exists := `EXISTS (SELECT 1 FROM reports rp WHERE rp.assignment_id = a.id)`
		if !*filter.HasReports {
			exists = "NOT " + exists
		}
		clauses = append(clauses, exists)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// ParticipantIDs lists the participant ids of an assignment
func (r *AssignmentRepository) ParticipantIDs(ctx context.Context, assignmentID int64) ([]int64, error) {
	rows, err := sqlite.Conn(ctx, r.db).QueryContext(ctx,
		`SELECT user_id FROM assignment_participants WHERE assignment_id = ? ORDER BY user_id`, assignmentID)
	if err != nil {
		r.logger.Error("Failed to list participants", zap.Int64("assignment_id", assignmentID), zap.Error(err))
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	defer rows.Close()
	return scanIDs(rows)
}

// SetParticipants replaces the participant set
func (r *AssignmentRepository) SetParticipants(ctx context.Context, assignmentID int64, userIDs []int64) error {
	conn := sqlite.Conn(ctx, r.db)
	if _, err := conn.ExecContext(ctx, `DELETE FROM assignment_participants WHERE assignment_id = ?`, assignmentID); err != nil {
		return fmt.Errorf("failed to clear participants: %w", err)
	}
	for _, userID := range entity.UniqueIDs(userIDs) {
		_, err := conn.ExecContext(ctx,
			`INSERT INTO assignment_participants (assignment_id, user_id) VALUES (?, ?)`, assignmentID, userID)
		if err != nil {
			r.logger.Error("Failed to add participant",
				zap.Int64("assignment_id", assignmentID),
				zap.Int64("user_id", userID),
				zap.Error(err))
			return fmt.Errorf("failed to add participant: %w", err)
		}
	}
	return nil
}

// IsParticipant reports whether userID participates in the assignment
func (r *AssignmentRepository) IsParticipant(ctx context.Context, assignmentID, userID int64) (bool, error) {
	var n int
	err := sqlite.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM assignment_participants WHERE assignment_id = ? AND user_id = ?`,
		assignmentID, userID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check participant: %w", err)
	}
	return n > 0, nil
}

// CountForUser counts assignments the user created or participates in
func (r *AssignmentRepository) CountForUser(ctx context.Context, userID int64) (int, error) {
	var n int
	err := sqlite.Conn(ctx, r.db).QueryRowContext(ctx, `
		SELECT COUNT(*) FROM assignments a
		WHERE a.creator_id = ?
			OR EXISTS (SELECT 1 FROM assignment_participants ap WHERE ap.assignment_id = a.id AND ap.user_id = ?)
	`, userID, userID).Scan(&n)
	if err != nil {
		r.logger.Error("Failed to count user assignments", zap.Int64("user_id", userID), zap.Error(err))
		return 0, fmt.Errorf("failed to count user assignments: %w", err)
	}
	return n, nil
}

// loadParticipants attaches participant users to each assignment
func (r *AssignmentRepository) loadParticipants(ctx context.Context, items []*entity.Assignment) error {
	if len(items) == 0 {
		return nil
	}
	byID := make(map[int64]*entity.Assignment, len(items))
	ids := make([]int64, 0, len(items))
	for _, a := range items {
		byID[a.ID] = a
		ids = append(ids, a.ID)
	}

	query := `
		SELECT ap.assignment_id, u.id, u.name, u.email, u.nip, u.position, u.work_unit_id, u.created_at, u.updated_at
		FROM assignment_participants ap
		JOIN users u ON u.id = ap.user_id
		WHERE ap.assignment_id IN (` + sqlite.Placeholders(len(ids)) + `)
		ORDER BY ap.assignment_id, u.name, u.id
	`
	rows, err := sqlite.Conn(ctx, r.db).QueryContext(ctx, query, sqlite.Int64Args(ids)...)
	if err != nil {
		r.logger.Error("Failed to load participants", zap.Error(err))
		return fmt.Errorf("failed to load participants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var assignmentID int64
		var u entity.User
		var email, nip, position sql.NullString
		var workUnitID sql.NullInt64
		if err := rows.Scan(
			&assignmentID, &u.ID, &u.Name, &email, &nip, &position, &workUnitID,
			sqlite.ScanTime(&u.CreatedAt), sqlite.ScanTime(&u.UpdatedAt),
		); err != nil {
			return fmt.Errorf("failed to scan participant: %w", err)
		}
		u.Email = email.String
		u.NIP = nip.String
		u.Position = position.String
		u.WorkUnitID = sqlite.Int64Ptr(workUnitID)
		if a := byID[assignmentID]; a != nil {
			a.Participants = append(a.Participants, &u)
		}
	}
	return rows.Err()
}

func scanAssignment(row rowScanner) (*entity.Assignment, error) {
	var a entity.Assignment
	if err := row.Scan(
		&a.ID, &a.Purpose, &a.Destination,
		sqlite.ScanTime(&a.StartDate), sqlite.ScanTime(&a.EndDate),
		&a.CreatorID, &a.ReportCount,
		sqlite.ScanTime(&a.CreatedAt), sqlite.ScanTime(&a.UpdatedAt),
	); err != nil {
		return nil, err
	}
	return &a, nil
}

func scanIDs(rows *sql.Rows) ([]int64, error) {
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// likePattern wraps s for a LIKE ... ESCAPE '\' substring match
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

// pageClause renders LIMIT/OFFSET; a non-positive limit means no limit
func pageClause(limit, offset int) string {
	if offset < 0 {
		offset = 0
	}
	switch {
	case limit > 0:
		return fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)
	case offset > 0:
		return fmt.Sprintf(" LIMIT -1 OFFSET %d", offset)
	}
	return ""
}

// Verify interface compliance
var _ port.AssignmentRepository = (*AssignmentRepository)(nil)
