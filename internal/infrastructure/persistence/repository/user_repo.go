package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/garyjia/travel-report/internal/application/port"
	"github.com/garyjia/travel-report/internal/domain/entity"
	"github.com/garyjia/travel-report/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// UserRepository implements port.UserRepository
type UserRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB, logger *zap.Logger) *UserRepository {
	return &UserRepository{db: db, logger: logger}
}

const userColumns = `id, name, email, nip, position, work_unit_id, created_at, updated_at`

// Create inserts the user together with its roles
func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	query := `
		INSERT INTO users (name, email, nip, position, work_unit_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	result, err := sqlite.Conn(ctx, r.db).ExecContext(ctx, query,
		u.Name,
		sqlite.NullString(u.Email),
		sqlite.NullString(u.NIP),
		sqlite.NullString(u.Position),
		sqlite.NullInt64(u.WorkUnitID),
		sqlite.Timestamp(u.CreatedAt),
		sqlite.Timestamp(u.UpdatedAt),
	)
	if err != nil {
		r.logger.Error("Failed to create user", zap.String("name", u.Name), zap.Error(err))
		return fmt.Errorf("failed to create user: %w", sqlite.MapError(err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	u.ID = id

	return r.replaceRoles(ctx, id, u.Roles)
}

// GetByID returns the user with roles, or nil when absent
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	users, err := r.GetByIDs(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, nil
	}
	return users[0], nil
}

// GetByIDs returns the existing users among ids, ordered by id
func (r *UserRepository) GetByIDs(ctx context.Context, ids []int64) ([]*entity.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE id IN (` + sqlite.Placeholders(len(ids)) + `) ORDER BY id`
	users, err := r.query(ctx, query, sqlite.Int64Args(ids)...)
	if err != nil {
		r.logger.Error("Failed to get users", zap.Int64s("ids", ids), zap.Error(err))
		return nil, fmt.Errorf("failed to get users: %w", err)
	}
	return users, nil
}

// UpdateRoles replaces the role set and work unit of a user
func (r *UserRepository) UpdateRoles(ctx context.Context, id int64, roles []entity.Role, workUnitID *int64) error {
	_, err := sqlite.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE users SET work_unit_id = ? WHERE id = ?`,
		sqlite.NullInt64(workUnitID), id,
	)
	if err != nil {
		r.logger.Error("Failed to update user work unit", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to update user: %w", err)
	}
	return r.replaceRoles(ctx, id, roles)
}

// CountReferences counts authored reviews, uploaded documentation and owned
// reports for the user
func (r *UserRepository) CountReferences(ctx context.Context, id int64) (port.UserReferences, error) {
	var refs port.UserReferences
	err := sqlite.Conn(ctx, r.db).QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM reviews WHERE reviewer_id = ?),
			(SELECT COUNT(*) FROM assignment_documentations WHERE user_id = ?),
			(SELECT COUNT(*) FROM reports WHERE user_id = ?)
	`, id, id, id).Scan(&refs.Reviews, &refs.Documentation, &refs.Reports)
	if err != nil {
		r.logger.Error("Failed to count user references", zap.Int64("id", id), zap.Error(err))
		return port.UserReferences{}, fmt.Errorf("failed to count user references: %w", err)
	}
	return refs, nil
}

// Delete removes a user; roles cascade and a headed unit loses its head
func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	if _, err := sqlite.Conn(ctx, r.db).ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id); err != nil {
		r.logger.Error("Failed to delete user", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

func (r *UserRepository) replaceRoles(ctx context.Context, userID int64, roles []entity.Role) error {
	conn := sqlite.Conn(ctx, r.db)
	if _, err := conn.ExecContext(ctx, `DELETE FROM user_roles WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to clear roles: %w", err)
	}
	for _, role := range entity.NormalizeRoles(roles) {
		if _, err := conn.ExecContext(ctx, `INSERT INTO user_roles (user_id, role) VALUES (?, ?)`, userID, string(role)); err != nil {
			r.logger.Error("Failed to assign role",
				zap.Int64("user_id", userID),
				zap.String("role", string(role)),
				zap.Error(err))
			return fmt.Errorf("failed to assign role: %w", err)
		}
	}
	return nil
}

func (r *UserRepository) query(ctx context.Context, query string, args ...interface{}) ([]*entity.User, error) {
	conn := sqlite.Conn(ctx, r.db)
	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*entity.User
	byID := make(map[int64]*entity.User)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
		byID[u.ID] = u
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, nil
	}

	ids := make([]int64, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	roleRows, err := conn.QueryContext(ctx,
		`SELECT user_id, role FROM user_roles WHERE user_id IN (`+sqlite.Placeholders(len(ids))+`) ORDER BY user_id, role`,
		sqlite.Int64Args(ids)...,
	)
	if err != nil {
		return nil, err
	}
	defer roleRows.Close()
	for roleRows.Next() {
		var userID int64
		var role string
		if err := roleRows.Scan(&userID, &role); err != nil {
			return nil, err
		}
		if u := byID[userID]; u != nil {
			u.Roles = append(u.Roles, entity.Role(role))
		}
	}
	return users, roleRows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*entity.User, error) {
	var u entity.User
	var email, nip, position sql.NullString
	var workUnitID sql.NullInt64
	if err := row.Scan(
		&u.ID, &u.Name, &email, &nip, &position, &workUnitID,
		sqlite.ScanTime(&u.CreatedAt), sqlite.ScanTime(&u.UpdatedAt),
	); err != nil {
		return nil, err
	}
	u.Email = email.String
	u.NIP = nip.String
	u.Position = position.String
	u.WorkUnitID = sqlite.Int64Ptr(workUnitID)
	return &u, nil
}

// Verify interface compliance
var _ port.UserRepository = (*UserRepository)(nil)
