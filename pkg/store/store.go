// Package store keeps candidate session summaries in a sqlite file so
// sessions from different drives can be compared later.
package store

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/climabus/climabus/pkg/candidate"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by Load for an unknown session id.
var ErrNotFound = errors.New("session not found")

// Byte is the saved state of one byte position.
type Byte struct {
	Index   int
	Changes int
	// Celsius is the last decoded value, nil when nothing decoded.
	Celsius *float64
}

// Candidate is the saved state of one tracked identifier.
type Candidate struct {
	ID     uint32
	Length int
	Data   []byte
	Bytes  []Byte
}

// TotalChanges sums the byte counters.
func (c Candidate) TotalChanges() int {
	total := 0
	for _, b := range c.Bytes {
		total += b.Changes
	}
	return total
}

// Session is one watch or replay run.
type Session struct {
	ID         string
	Source     string
	Started    time.Time
	Ended      time.Time
	Frames     uint64
	Candidates []Candidate
}

// Summarize copies the tracker entries into saveable values. Byte positions
// that never changed are left out.
func Summarize(cands []*candidate.Candidate) []Candidate {
	out := make([]Candidate, 0, len(cands))
	for _, c := range cands {
		sc := Candidate{ID: c.ID(), Length: c.Length(), Data: c.Current()}
		for i := 0; i < candidate.MaxDataLen; i++ {
			n := c.ChangeCount(i)
			if n == 0 {
				continue
			}
			b := Byte{Index: i, Changes: n}
			if v, ok := c.Decoded(i); ok {
				b.Celsius = &v
			}
			sc.Bytes = append(sc.Bytes, b)
		}
		out = append(out, sc)
	}
	return out
}

// Store is a sqlite backed session store.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and applies pending schema
// migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save writes a session and its candidates in one transaction. An empty
// session id gets a new uuid, written back into sess.
func (s *Store) Save(ctx context.Context, sess *Session) error {
	if sess.ID == "" {
		sess.ID = uuid.New().String()
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO sessions (session_id, source, started_ns, ended_ns, frames) VALUES (?, ?, ?, ?, ?)",
		sess.ID, sess.Source, sess.Started.UnixNano(), sess.Ended.UnixNano(), int64(sess.Frames))
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	for _, c := range sess.Candidates {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO candidates (session_id, can_id, length, data) VALUES (?, ?, ?, ?)",
			sess.ID, int64(c.ID), c.Length, hex.EncodeToString(c.Data))
		if err != nil {
			return fmt.Errorf("insert candidate 0x%03X: %w", c.ID, err)
		}
		for _, b := range c.Bytes {
			var celsius sql.NullFloat64
			if b.Celsius != nil {
				celsius = sql.NullFloat64{Float64: *b.Celsius, Valid: true}
			}
			_, err := tx.ExecContext(ctx,
				"INSERT INTO candidate_bytes (session_id, can_id, byte_index, changes, celsius) VALUES (?, ?, ?, ?, ?)",
				sess.ID, int64(c.ID), b.Index, b.Changes, celsius)
			if err != nil {
				return fmt.Errorf("insert candidate 0x%03X byte %d: %w", c.ID, b.Index, err)
			}
		}
	}
	return tx.Commit()
}

// Sessions lists the most recent sessions first, without their candidates.
func (s *Store) Sessions(ctx context.Context, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT session_id, source, started_ns, ended_ns, frames FROM sessions ORDER BY started_ns DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// Load returns one session with its candidates ordered by identifier.
func (s *Store) Load(ctx context.Context, id string) (Session, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT session_id, source, started_ns, ended_ns, frames FROM sessions WHERE session_id = ?", id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Session{}, err
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT can_id, length, data FROM candidates WHERE session_id = ? ORDER BY can_id", id)
	if err != nil {
		return Session{}, fmt.Errorf("list candidates: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			c   Candidate
			cid int64
			hx  string
		)
		if err := rows.Scan(&cid, &c.Length, &hx); err != nil {
			return Session{}, fmt.Errorf("scan candidate: %w", err)
		}
		c.ID = uint32(cid)
		if c.Data, err = hex.DecodeString(hx); err != nil {
			return Session{}, fmt.Errorf("candidate 0x%03X data: %w", c.ID, err)
		}
		sess.Candidates = append(sess.Candidates, c)
	}
	if err := rows.Err(); err != nil {
		return Session{}, err
	}

	for i := range sess.Candidates {
		if sess.Candidates[i].Bytes, err = s.loadBytes(ctx, id, sess.Candidates[i].ID); err != nil {
			return Session{}, err
		}
	}
	return sess, nil
}

func (s *Store) loadBytes(ctx context.Context, session string, canID uint32) ([]Byte, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT byte_index, changes, celsius FROM candidate_bytes WHERE session_id = ? AND can_id = ? ORDER BY byte_index",
		session, int64(canID))
	if err != nil {
		return nil, fmt.Errorf("list candidate bytes: %w", err)
	}
	defer rows.Close()

	var out []Byte
	for rows.Next() {
		var (
			b       Byte
			celsius sql.NullFloat64
		)
		if err := rows.Scan(&b.Index, &b.Changes, &celsius); err != nil {
			return nil, fmt.Errorf("scan candidate byte: %w", err)
		}
		if celsius.Valid {
			v := celsius.Float64
			b.Celsius = &v
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(r scanner) (Session, error) {
	var (
		sess           Session
		started, ended int64
		frames         int64
		source         sql.NullString
	)
	if err := r.Scan(&sess.ID, &source, &started, &ended, &frames); err != nil {
		return Session{}, err
	}
	sess.Source = source.String
	sess.Started = time.Unix(0, started)
	sess.Ended = time.Unix(0, ended)
	sess.Frames = uint64(frames)
	return sess, nil
}
