package database

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/korjavin/sanbot/models"
	_ "github.com/mattn/go-sqlite3"
)

// DB handles all database operations
type DB struct {
	conn *sql.DB
}

// New creates a new database connection and initializes tables
func New(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	if err = db.Ping(); err != nil {
		return nil, err
	}

	if err = createTables(db); err != nil {
		return nil, err
	}

	return &DB{conn: db}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// createTables creates the necessary tables if they don't exist
func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			registered_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS results (
			id TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL,
			well_being REAL NOT NULL,
			activity REAL NOT NULL,
			mood REAL NOT NULL,
			analysis TEXT,
			created_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS feedback (
			id TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL,
			text TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)
	`)
	return err
}

// CreateUser stores a newly registered user
func (db *DB) CreateUser(userID int64, name string) error {
	_, err := db.conn.Exec(
		"INSERT INTO users (id, name, registered_at) VALUES (?, ?, ?)",
		userID, name, time.Now().Unix(),
	)
	return err
}

// GetUser returns the user record, or nil if the user never registered
func (db *DB) GetUser(userID int64) (*models.User, error) {
	var user models.User
	var registeredAt int64
	err := db.conn.QueryRow(
		"SELECT id, name, registered_at FROM users WHERE id = ?",
		userID,
	).Scan(&user.ID, &user.Name, &registeredAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	user.RegisteredAt = time.Unix(registeredAt, 0)
	return &user, nil
}

// ListUsers returns all registered users
func (db *DB) ListUsers() ([]models.User, error) {
	rows, err := db.conn.Query("SELECT id, name, registered_at FROM users ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		var registeredAt int64
		if err := rows.Scan(&user.ID, &user.Name, &registeredAt); err != nil {
			return nil, err
		}
		user.RegisteredAt = time.Unix(registeredAt, 0)
		users = append(users, user)
	}

	return users, rows.Err()
}

// AppendResult durably stores a completed survey's scores and returns the
// new row id. Enrichment, if any, happens strictly after this write.
func (db *DB) AppendResult(userID int64, wellBeing, activity, mood float64) (string, error) {
	id := uuid.NewString()
	_, err := db.conn.Exec(
		"INSERT INTO results (id, user_id, well_being, activity, mood, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		id, userID, wellBeing, activity, mood, time.Now().Unix(),
	)
	if err != nil {
		return "", err
	}
	return id, nil
}

// AttachAnalysis sets the analysis text on the user's most recent result
// that has none yet. Matching no row is not an error.
func (db *DB) AttachAnalysis(userID int64, text string) error {
	_, err := db.conn.Exec(`
		UPDATE results SET analysis = ?
		WHERE id = (
			SELECT id FROM results
			WHERE user_id = ? AND analysis IS NULL
			ORDER BY created_at DESC, rowid DESC
			LIMIT 1
		)
	`, text, userID)
	return err
}

// FetchRecent returns up to limit results for the user, newest first. The
// rowid tiebreak keeps the order stable for rows written within one second.
func (db *DB) FetchRecent(userID int64, limit int) ([]models.SurveyResult, error) {
	rows, err := db.conn.Query(`
		SELECT id, user_id, well_being, activity, mood, analysis, created_at
		FROM results
		WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []models.SurveyResult
	for rows.Next() {
		var result models.SurveyResult
		var analysis sql.NullString
		var createdAt int64
		if err := rows.Scan(&result.ID, &result.UserID, &result.WellBeing,
			&result.Activity, &result.Mood, &analysis, &createdAt); err != nil {
			return nil, err
		}
		if analysis.Valid {
			text := analysis.String
			result.Analysis = &text
		}
		result.CreatedAt = time.Unix(createdAt, 0)
		results = append(results, result)
	}

	return results, rows.Err()
}

// LatestResultAt returns the timestamp of the user's newest result, with
// ok=false when the user has never completed a survey.
func (db *DB) LatestResultAt(userID int64) (time.Time, bool, error) {
	var createdAt int64
	err := db.conn.QueryRow(
		"SELECT created_at FROM results WHERE user_id = ? ORDER BY created_at DESC, rowid DESC LIMIT 1",
		userID,
	).Scan(&createdAt)

	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}

	return time.Unix(createdAt, 0), true, nil
}

// SaveFeedback appends a free-text feedback entry
func (db *DB) SaveFeedback(userID int64, text string) error {
	_, err := db.conn.Exec(
		"INSERT INTO feedback (id, user_id, text, created_at) VALUES (?, ?, ?, ?)",
		uuid.NewString(), userID, text, time.Now().Unix(),
	)
	return err
}
