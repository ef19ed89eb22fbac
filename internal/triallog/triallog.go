// Package triallog persists learning sessions and their trials in SQLite so
// sessions can be inspected and replayed after the fact.
package triallog

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id    TEXT PRIMARY KEY,
	babbling      TEXT NOT NULL,
	motor_dims    INTEGER NOT NULL,
	sensory_dims  INTEGER NOT NULL,
	created_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS trials (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id    TEXT NOT NULL,
	num           INTEGER NOT NULL,
	goal          BLOB NOT NULL,
	motor         BLOB NOT NULL,
	outcome       BLOB NOT NULL,
	competence    REAL NOT NULL,
	fallback      INTEGER NOT NULL DEFAULT 0,
	created_at    TEXT NOT NULL,
	FOREIGN KEY (session_id) REFERENCES sessions(session_id)
);

CREATE INDEX IF NOT EXISTS idx_trials_session
ON trials(session_id, num);
`

// #endregion schema

// #region records

// SessionRecord describes one logged learning session.
type SessionRecord struct {
	SessionID   string
	Babbling    string
	MotorDims   int
	SensoryDims int
	CreatedAt   time.Time
	Trials      int
}

// TrialRecord is one logged select-act-observe cycle.
type TrialRecord struct {
	SessionID  string
	Num        int
	Goal       []float64
	Motor      []float64
	Outcome    []float64
	Competence float64
	Fallback   bool
	CreatedAt  time.Time
}

// #endregion records

// #region store-struct

// Store manages session and trial rows in SQLite.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor

// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use by other packages.
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion constructor

// #region create-session

// CreateSession inserts a new session row with a fresh ID.
func (s *Store) CreateSession(babbling string, motorDims, sensoryDims int) (SessionRecord, error) {
	rec := SessionRecord{
		SessionID:   uuid.New().String(),
		Babbling:    babbling,
		MotorDims:   motorDims,
		SensoryDims: sensoryDims,
		CreatedAt:   time.Now().UTC(),
	}
	_, err := s.db.Exec(
		`INSERT INTO sessions (session_id, babbling, motor_dims, sensory_dims, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		rec.SessionID, rec.Babbling, rec.MotorDims, rec.SensoryDims,
		rec.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return SessionRecord{}, fmt.Errorf("insert session: %w", err)
	}
	return rec, nil
}

// #endregion create-session

// #region record-trial

// RecordTrial persists a single trial row.
func (s *Store) RecordTrial(rec TrialRecord) error {
	fallback := 0
	if rec.Fallback {
		fallback = 1
	}
	created := rec.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := s.db.Exec(
		`INSERT INTO trials (session_id, num, goal, motor, outcome, competence, fallback, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.SessionID, rec.Num,
		encodeVector(rec.Goal), encodeVector(rec.Motor), encodeVector(rec.Outcome),
		rec.Competence, fallback, created.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert trial: %w", err)
	}
	return nil
}

// #endregion record-trial

// #region get-session

// Session retrieves one session row with its trial count.
func (s *Store) Session(id string) (SessionRecord, error) {
	var rec SessionRecord
	var createdStr string
	err := s.db.QueryRow(
		`SELECT s.session_id, s.babbling, s.motor_dims, s.sensory_dims, s.created_at,
		        (SELECT COUNT(*) FROM trials t WHERE t.session_id = s.session_id)
		 FROM sessions s WHERE s.session_id = ?`, id,
	).Scan(&rec.SessionID, &rec.Babbling, &rec.MotorDims, &rec.SensoryDims, &createdStr, &rec.Trials)
	if err != nil {
		return SessionRecord{}, fmt.Errorf("get session %s: %w", id, err)
	}
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	return rec, nil
}

// ListSessions returns the most recent sessions.
func (s *Store) ListSessions(limit int) ([]SessionRecord, error) {
	rows, err := s.db.Query(
		`SELECT s.session_id, s.babbling, s.motor_dims, s.sensory_dims, s.created_at,
		        (SELECT COUNT(*) FROM trials t WHERE t.session_id = s.session_id)
		 FROM sessions s ORDER BY s.created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var records []SessionRecord
	for rows.Next() {
		var rec SessionRecord
		var createdStr string
		if err := rows.Scan(&rec.SessionID, &rec.Babbling, &rec.MotorDims, &rec.SensoryDims, &createdStr, &rec.Trials); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// #endregion get-session

// #region session-trials

// SessionTrials returns a session's trials in execution order.
func (s *Store) SessionTrials(sessionID string) ([]TrialRecord, error) {
	rows, err := s.db.Query(
		`SELECT session_id, num, goal, motor, outcome, competence, fallback, created_at
		 FROM trials WHERE session_id = ? ORDER BY num ASC`, sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list trials: %w", err)
	}
	defer rows.Close()

	var records []TrialRecord
	for rows.Next() {
		var rec TrialRecord
		var goalBlob, motorBlob, outcomeBlob []byte
		var fallback int
		var createdStr string
		if err := rows.Scan(&rec.SessionID, &rec.Num, &goalBlob, &motorBlob, &outcomeBlob,
			&rec.Competence, &fallback, &createdStr); err != nil {
			return nil, fmt.Errorf("scan trial: %w", err)
		}
		rec.Goal = decodeVector(goalBlob)
		rec.Motor = decodeVector(motorBlob)
		rec.Outcome = decodeVector(outcomeBlob)
		rec.Fallback = fallback != 0
		rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// #endregion session-trials

// #region vector-encoding
func encodeVector(v []float64) []byte {
	buf := make([]byte, len(v)*8)
	for i, f := range v {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(f))
	}
	return buf
}

func decodeVector(b []byte) []float64 {
	v := make([]float64, len(b)/8)
	for i := range v {
		v[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[i*8:]))
	}
	return v
}

// #endregion vector-encoding
