package progress

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/oakfit/coursecast/internal/catalog"
	"github.com/oakfit/coursecast/internal/persistence/sqlite"
)

const journalSchemaVersion = 1

// Journal is the durable queue of completion writes that failed remotely.
// It survives restarts so optimistic state is never silently dropped.
type Journal struct {
	db *sql.DB
}

// OpenJournal opens (and migrates) the journal database at path.
func OpenJournal(path string) (*Journal, error) {
	db, err := sqlite.Open(path, sqlite.DefaultConfig())
	if err != nil {
		return nil, err
	}

	j := &Journal{db: db}
	if err := j.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("progress journal: migration failed: %w", err)
	}
	return j, nil
}

// Close releases the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}

func (j *Journal) migrate() error {
	var currentVersion int
	if err := j.db.QueryRow("PRAGMA user_version").Scan(&currentVersion); err != nil {
		return err
	}
	if currentVersion >= journalSchemaVersion {
		return nil
	}

	tx, err := j.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	schema := `
	CREATE TABLE IF NOT EXISTS pending_completions (
		purchase_id      TEXT NOT NULL,
		lesson_id        TEXT NOT NULL,
		course_id        TEXT NOT NULL,
		watched_minutes  INTEGER NOT NULL,
		created_at_unix  INTEGER NOT NULL,
		PRIMARY KEY (purchase_id, lesson_id)
	);
	`
	if _, err := tx.Exec(schema); err != nil {
		return err
	}
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", journalSchemaVersion)); err != nil {
		return err
	}
	return tx.Commit()
}

// Append records a pending completion write. Idempotent per purchase+lesson.
func (j *Journal) Append(ctx context.Context, w catalog.CompletionWrite) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO pending_completions
		 (purchase_id, lesson_id, course_id, watched_minutes, created_at_unix)
		 VALUES (?, ?, ?, ?, ?)`,
		string(w.PurchaseID), string(w.LessonID), string(w.CourseID),
		w.DurationWatchedMinutes, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("progress journal: append: %w", err)
	}
	return nil
}

// Pending lists journaled writes for a purchase, oldest first.
func (j *Journal) Pending(ctx context.Context, purchaseID catalog.PurchaseID) ([]catalog.CompletionWrite, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT purchase_id, lesson_id, course_id, watched_minutes
		 FROM pending_completions
		 WHERE purchase_id = ?
		 ORDER BY created_at_unix ASC`,
		string(purchaseID),
	)
	if err != nil {
		return nil, fmt.Errorf("progress journal: query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []catalog.CompletionWrite
	for rows.Next() {
		var w catalog.CompletionWrite
		var pid, lid, cid string
		if err := rows.Scan(&pid, &lid, &cid, &w.DurationWatchedMinutes); err != nil {
			return nil, fmt.Errorf("progress journal: scan: %w", err)
		}
		w.PurchaseID = catalog.PurchaseID(pid)
		w.LessonID = catalog.LessonID(lid)
		w.CourseID = catalog.CourseID(cid)
		out = append(out, w)
	}
	return out, rows.Err()
}

// Remove deletes a journaled write once its remote write succeeded.
func (j *Journal) Remove(ctx context.Context, purchaseID catalog.PurchaseID, lessonID catalog.LessonID) error {
	_, err := j.db.ExecContext(ctx,
		`DELETE FROM pending_completions WHERE purchase_id = ? AND lesson_id = ?`,
		string(purchaseID), string(lessonID),
	)
	if err != nil {
		return fmt.Errorf("progress journal: remove: %w", err)
	}
	return nil
}
