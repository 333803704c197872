package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/vovakirdan/whiteboard-server/internal/store"
)

const dsnOptions = "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New opens the database at dbPath and applies the schema.
func New(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	s, err := NewWithSetup(dbPath, nil)
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Useful for tests to seed data before the store is used.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+dsnOptions)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection; it also keeps :memory: databases alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func mapError(err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return store.ErrConflict
		}
	}
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

// ==== UserStore implementation ====

const userColumns = `id, email, name, password_hash, role, subscription, created_at, last_login`

func scanUser(row interface{ Scan(...any) error }) (*store.User, error) {
	var (
		user      store.User
		sub       string
		lastLogin sql.NullTime
	)
	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.PasswordHash,
		&user.Role,
		&sub,
		&user.CreatedAt,
		&lastLogin,
	); err != nil {
		return nil, err
	}
	user.Subscription = store.Subscription(sub)
	if lastLogin.Valid {
		t := lastLogin.Time
		user.LastLogin = &t
	}
	return &user, nil
}

// CreateUser creates a new user with hashed password.
func (s *SQLiteStore) CreateUser(ctx context.Context, email, name, passwordHash string) (*store.User, error) {
	query := `
		INSERT INTO users (email, name, password_hash)
		VALUES (?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, email, name, passwordHash)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", mapError(err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.GetUserByID(ctx, id)
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id int64) (*store.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	user, err := scanUser(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("query user: %w", mapError(err))
	}
	return user, nil
}

// GetUserByEmail retrieves a user by email.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*store.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = ?`
	user, err := scanUser(s.db.QueryRowContext(ctx, query, email))
	if err != nil {
		return nil, fmt.Errorf("query user: %w", mapError(err))
	}
	return user, nil
}

// UpdateUserProfile changes name and/or email. Empty values are left untouched.
func (s *SQLiteStore) UpdateUserProfile(ctx context.Context, id int64, name, email string) (*store.User, error) {
	query := `
		UPDATE users
		SET name  = CASE WHEN ? = '' THEN name ELSE ? END,
		    email = CASE WHEN ? = '' THEN email ELSE ? END
		WHERE id = ?
	`
	result, err := s.db.ExecContext(ctx, query, name, name, email, email, id)
	if err != nil {
		return nil, fmt.Errorf("update user: %w", mapError(err))
	}
	if err := expectRow(result); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return s.GetUserByID(ctx, id)
}

// UpdateUserPassword replaces the stored password hash.
func (s *SQLiteStore) UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error {
	result, err := s.db.ExecContext(ctx, `UPDATE users SET password_hash = ? WHERE id = ?`, passwordHash, id)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if err := expectRow(result); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// UpdateUserSubscription changes the user's plan.
func (s *SQLiteStore) UpdateUserSubscription(ctx context.Context, id int64, sub store.Subscription) error {
	result, err := s.db.ExecContext(ctx, `UPDATE users SET subscription = ? WHERE id = ?`, string(sub), id)
	if err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}
	if err := expectRow(result); err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}
	return nil
}

// TouchLastLogin records a successful login.
func (s *SQLiteStore) TouchLastLogin(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE users SET last_login = CURRENT_TIMESTAMP WHERE id = ?`, id); err != nil {
		return fmt.Errorf("touch last login: %w", err)
	}
	return nil
}

// ==== RoomStore implementation ====

const roomSelect = `
	SELECT r.id, r.room_key, r.name, r.owner_id, u.name, u.email, r.is_public,
	       COALESCE(r.canvas_data, ''), r.created_at, r.updated_at
	FROM rooms r
	JOIN users u ON u.id = r.owner_id
`

func scanRoom(row interface{ Scan(...any) error }) (*store.Room, error) {
	var room store.Room
	if err := row.Scan(
		&room.ID,
		&room.Key,
		&room.Name,
		&room.OwnerID,
		&room.OwnerName,
		&room.OwnerEmail,
		&room.IsPublic,
		&room.CanvasData,
		&room.CreatedAt,
		&room.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &room, nil
}

// CreateRoom creates a new room owned by ownerID.
func (s *SQLiteStore) CreateRoom(ctx context.Context, key, name string, ownerID int64, isPublic bool) (*store.Room, error) {
	query := `
		INSERT INTO rooms (room_key, name, owner_id, is_public)
		VALUES (?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, key, name, ownerID, isPublic); err != nil {
		return nil, fmt.Errorf("insert room: %w", mapError(err))
	}
	return s.GetRoomByKey(ctx, key)
}

// GetRoomByKey retrieves a room, including owner name and email.
func (s *SQLiteStore) GetRoomByKey(ctx context.Context, key string) (*store.Room, error) {
	room, err := scanRoom(s.db.QueryRowContext(ctx, roomSelect+` WHERE r.room_key = ?`, key))
	if err != nil {
		return nil, fmt.Errorf("query room: %w", mapError(err))
	}
	return room, nil
}

// ListRoomsForUser lists rooms the user owns or collaborates on, most recently updated first.
func (s *SQLiteStore) ListRoomsForUser(ctx context.Context, userID int64) ([]*store.Room, error) {
	query := roomSelect + `
		WHERE r.owner_id = ?
		   OR r.id IN (SELECT room_id FROM room_collaborators WHERE user_id = ?)
		ORDER BY r.updated_at DESC, r.id DESC
	`
	rows, err := s.db.QueryContext(ctx, query, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("query rooms: %w", err)
	}
	defer rows.Close()

	var rooms []*store.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rooms: %w", err)
	}
	return rooms, nil
}

// UpdateRoom applies the non-nil fields of upd.
func (s *SQLiteStore) UpdateRoom(ctx context.Context, key string, upd store.RoomUpdate) (*store.Room, error) {
	query := `
		UPDATE rooms
		SET name       = COALESCE(?, name),
		    is_public  = COALESCE(?, is_public),
		    updated_at = CURRENT_TIMESTAMP
		WHERE room_key = ?
	`
	var name, isPublic any
	if upd.Name != nil {
		name = *upd.Name
	}
	if upd.IsPublic != nil {
		isPublic = *upd.IsPublic
	}

	result, err := s.db.ExecContext(ctx, query, name, isPublic, key)
	if err != nil {
		return nil, fmt.Errorf("update room: %w", err)
	}
	if err := expectRow(result); err != nil {
		return nil, fmt.Errorf("update room: %w", err)
	}
	return s.GetRoomByKey(ctx, key)
}

// SaveCanvas stores the canvas image of a room.
func (s *SQLiteStore) SaveCanvas(ctx context.Context, key, canvasData string) error {
	query := `UPDATE rooms SET canvas_data = ?, updated_at = CURRENT_TIMESTAMP WHERE room_key = ?`
	result, err := s.db.ExecContext(ctx, query, canvasData, key)
	if err != nil {
		return fmt.Errorf("save canvas: %w", err)
	}
	if err := expectRow(result); err != nil {
		return fmt.Errorf("save canvas for room %q: %w", key, err)
	}
	return nil
}

// DeleteRoom removes a room and its collaborators.
func (s *SQLiteStore) DeleteRoom(ctx context.Context, key string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM rooms WHERE room_key = ?`, key)
	if err != nil {
		return fmt.Errorf("delete room: %w", err)
	}
	if err := expectRow(result); err != nil {
		return fmt.Errorf("delete room: %w", err)
	}
	return nil
}

// AddCollaborator grants userID access to the room.
func (s *SQLiteStore) AddCollaborator(ctx context.Context, roomID, userID int64) error {
	query := `INSERT INTO room_collaborators (room_id, user_id) VALUES (?, ?)`
	if _, err := s.db.ExecContext(ctx, query, roomID, userID); err != nil {
		return fmt.Errorf("add collaborator: %w", mapError(err))
	}
	return nil
}

// IsCollaborator checks whether userID collaborates on the room.
func (s *SQLiteStore) IsCollaborator(ctx context.Context, roomID, userID int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM room_collaborators WHERE room_id = ? AND user_id = ?)`
	var exists bool
	if err := s.db.QueryRowContext(ctx, query, roomID, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("query collaborator: %w", err)
	}
	return exists, nil
}

func expectRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
