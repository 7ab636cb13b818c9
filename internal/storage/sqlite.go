// Package storage keeps a history of status snapshots in SQLite.
package storage

import (
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/woozymasta/xsstat/internal/models"
	_ "modernc.org/sqlite" // Driver sqlite
)

const snapshotColumns = `id, address, hostname, map_name, game_type, version, mod_name, country_code,
	leader, players, spectators, fingerprint, count, first_seen, last_seen`

// Repository manages the SQLite database connection.
type Repository struct {
	db *sql.DB

	// mu serializes Record so concurrent writers see each other's rows.
	mu sync.Mutex
}

// New initializes a new SQLite connection, sets connection pool parameters, and runs migrations.
func New(dbPath string) (*Repository, error) {
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(1 * time.Hour)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Repository{db: db}, nil
}

// Close closes the underlying database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Record stores a snapshot. When the latest snapshot of the same address has
// the same fingerprint, that row is extended instead: count is incremented and
// last_seen moved forward. It reports whether a new row was inserted.
func (r *Repository) Record(s models.Snapshot) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	last, err := r.LastSnapshot(s.Address)
	if err != nil {
		return false, err
	}

	if last != nil && last.Fingerprint == s.Fingerprint {
		_, err := r.db.Exec(`
			UPDATE snapshots SET
				count = count + 1,
				last_seen = ?,
				country_code = CASE WHEN ? != '' THEN ? ELSE country_code END
			WHERE id = ?`,
			s.LastSeen.UTC(), s.CountryCode, s.CountryCode, last.ID,
		)
		return false, err
	}

	return true, r.InsertSnapshot(s)
}

// InsertSnapshot appends a snapshot row unconditionally.
func (r *Repository) InsertSnapshot(s models.Snapshot) error {
	count := s.Count
	if count < 1 {
		count = 1
	}

	_, err := r.db.Exec(`
		INSERT INTO snapshots (
			address, hostname, map_name, game_type, version, mod_name, country_code,
			leader, players, spectators, fingerprint, count, first_seen, last_seen
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.Address, s.Hostname, s.MapName, s.GameType, s.Version, s.Mod, s.CountryCode,
		s.Leader, s.Players, s.Spectators, s.Fingerprint, count, s.FirstSeen.UTC(), s.LastSeen.UTC(),
	)

	return err
}

// LastSnapshot returns the most recent snapshot of address, or nil if there is none.
func (r *Repository) LastSnapshot(address string) (*models.Snapshot, error) {
	row := r.db.QueryRow(`SELECT `+snapshotColumns+`
		FROM snapshots
		WHERE address = ?
		ORDER BY last_seen DESC, id DESC
		LIMIT 1`, address)

	s, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // Not found
	}
	if err != nil {
		return nil, err
	}

	return &s, nil
}

// ListSnapshots returns up to limit snapshots of address, newest first.
func (r *Repository) ListSnapshots(address string, limit int) ([]models.Snapshot, error) {
	rows, err := r.db.Query(`SELECT `+snapshotColumns+`
		FROM snapshots
		WHERE address = ?
		ORDER BY last_seen DESC, id DESC
		LIMIT ?`, address, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var snapshots []models.Snapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return snapshots, nil
}

// PruneBefore removes snapshots last seen before t and returns the number of deleted rows.
func (r *Repository) PruneBefore(t time.Time) (int64, error) {
	res, err := r.db.Exec(`DELETE FROM snapshots WHERE last_seen < ?`, t.UTC())
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row scanner) (models.Snapshot, error) {
	var s models.Snapshot
	err := row.Scan(
		&s.ID, &s.Address, &s.Hostname, &s.MapName, &s.GameType, &s.Version, &s.Mod, &s.CountryCode,
		&s.Leader, &s.Players, &s.Spectators, &s.Fingerprint, &s.Count, &s.FirstSeen, &s.LastSeen,
	)

	return s, err
}
