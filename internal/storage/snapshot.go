package storage

import (
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/crypto/blake2b"

	"rbls/internal/entry"
	rblserrors "rbls/internal/errors"
)

// Snapshot persists and restores per-file entry sets. Payloads are JSON
// compressed with zstd; files are keyed by workspace-relative path and
// carry a content hash for change detection.
type Snapshot struct {
	db  *DB
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// NewSnapshot creates a snapshot store over an open database.
func NewSnapshot(db *DB) (*Snapshot, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	return &Snapshot{db: db, enc: enc, dec: dec}, nil
}

// Close releases the compression state. The database stays open.
func (s *Snapshot) Close() {
	s.enc.Close()
	s.dec.Close()
}

// HashBytes returns the content hash used for change detection.
func HashBytes(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// FileRecord is one persisted file snapshot.
type FileRecord struct {
	FileID    string
	Hash      string
	Entries   []*entry.Entry
	IndexedAt time.Time
}

// Save upserts a file's entries under its content hash.
func (s *Snapshot) Save(fileID, hash string, entries []*entry.Entry) error {
	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to encode entries for %s: %w", fileID, err)
	}
	payload := s.enc.EncodeAll(raw, nil)

	return s.db.WithTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO indexed_files (file_id, hash, entry_count, payload, indexed_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(file_id) DO UPDATE SET
				hash = excluded.hash,
				entry_count = excluded.entry_count,
				payload = excluded.payload,
				indexed_at = excluded.indexed_at
		`, fileID, hash, len(entries), payload, time.Now().UTC().Format(time.RFC3339))
		return err
	})
}

// Hash returns the stored content hash for a file, or "" when the file
// has no snapshot.
func (s *Snapshot) Hash(fileID string) (string, error) {
	var hash string
	err := s.db.conn.QueryRow(
		`SELECT hash FROM indexed_files WHERE file_id = ?`, fileID,
	).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return hash, nil
}

// Load restores one file's snapshot, or nil when absent.
func (s *Snapshot) Load(fileID string) (*FileRecord, error) {
	row := s.db.conn.QueryRow(
		`SELECT file_id, hash, payload, indexed_at FROM indexed_files WHERE file_id = ?`,
		fileID,
	)
	rec, err := s.scanRecord(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return rec, err
}

// LoadAll streams every stored file snapshot to fn. Iteration stops on
// the first error.
func (s *Snapshot) LoadAll(fn func(*FileRecord) error) error {
	rows, err := s.db.conn.Query(
		`SELECT file_id, hash, payload, indexed_at FROM indexed_files ORDER BY file_id`,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		rec, err := s.scanRecord(rows.Scan)
		if err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (s *Snapshot) scanRecord(scan func(...interface{}) error) (*FileRecord, error) {
	var (
		rec       FileRecord
		payload   []byte
		indexedAt string
	)
	if err := scan(&rec.FileID, &rec.Hash, &payload, &indexedAt); err != nil {
		return nil, err
	}
	raw, err := s.dec.DecodeAll(payload, nil)
	if err != nil {
		return nil, rblserrors.New(rblserrors.SnapshotCorrupt,
			"failed to decompress snapshot for "+rec.FileID, err)
	}
	if err := json.Unmarshal(raw, &rec.Entries); err != nil {
		return nil, rblserrors.New(rblserrors.SnapshotCorrupt,
			"failed to decode snapshot for "+rec.FileID, err)
	}
	if t, err := time.Parse(time.RFC3339, indexedAt); err == nil {
		rec.IndexedAt = t
	}
	return &rec, nil
}

// Delete removes a file's snapshot.
func (s *Snapshot) Delete(fileID string) error {
	return s.db.WithTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`DELETE FROM indexed_files WHERE file_id = ?`, fileID)
		return err
	})
}

// Prune removes snapshots for files no longer present in the workspace.
// keep is the set of current file IDs.
func (s *Snapshot) Prune(keep map[string]bool) (int, error) {
	rows, err := s.db.conn.Query(`SELECT file_id FROM indexed_files`)
	if err != nil {
		return 0, err
	}
	var stale []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, err
		}
		if !keep[id] {
			stale = append(stale, id)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	if len(stale) == 0 {
		return 0, nil
	}
	err = s.db.WithTx(func(tx *sql.Tx) error {
		for _, id := range stale {
			if _, err := tx.Exec(`DELETE FROM indexed_files WHERE file_id = ?`, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(stale), nil
}

// Count returns the number of stored file snapshots.
func (s *Snapshot) Count() (int, error) {
	var n int
	err := s.db.conn.QueryRow(`SELECT COUNT(*) FROM indexed_files`).Scan(&n)
	return n, err
}
