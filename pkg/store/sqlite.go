package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mkoenig/vplan-tracker/models"
)

// Identity-tuple columns default to '' instead of NULL: SQL unique
// constraints treat NULLs as distinct, which would let records with absent
// optional fields slip past dedup.
const sqliteSchema = `
PRAGMA journal_mode = WAL;

CREATE TABLE IF NOT EXISTS entries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	day TEXT NOT NULL,
	weekday TEXT NOT NULL DEFAULT '',
	lesson TEXT NOT NULL DEFAULT '',
	teacher TEXT NOT NULL DEFAULT '',
	subject TEXT NOT NULL DEFAULT '',
	original_subject TEXT NOT NULL DEFAULT '',
	room TEXT NOT NULL DEFAULT '',
	type TEXT NOT NULL DEFAULT '',
	text TEXT NOT NULL DEFAULT '',
	week_type TEXT NOT NULL DEFAULT '',
	source_page TEXT NOT NULL DEFAULT '',
	classes TEXT NOT NULL,
	color TEXT NOT NULL DEFAULT '',
	cancelled INTEGER NOT NULL DEFAULT 0,
	changed INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL,
	UNIQUE(day, lesson, subject, type, room, classes, source_page)
);

CREATE INDEX IF NOT EXISTS idx_entries_day ON entries(day);
CREATE INDEX IF NOT EXISTS idx_entries_classes ON entries(classes);

CREATE TABLE IF NOT EXISTS fetch_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp TEXT NOT NULL,
	success INTEGER NOT NULL,
	error TEXT NOT NULL DEFAULT '',
	pages_fetched INTEGER NOT NULL
);
`

// SQLiteStore is the embedded single-file backend.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens or creates the database file and applies the schema.
// Schema setup is create-if-absent and safe to re-run.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLiteStore{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) AppendEntries(entries []models.PlanEntry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO entries
			(day, weekday, lesson, teacher, subject, original_subject, room, type, text, week_type, source_page, classes, color, cancelled, changed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, e := range entries {
		res, err := stmt.Exec(
			e.Day, e.Weekday, e.Lesson, e.Teacher, e.Subject, e.OriginalSubject,
			e.Room, e.Type, e.Text, e.WeekType, e.SourcePage,
			NormalizeClasses(e.Classes), e.Color,
			boolToInt(e.Cancelled), boolToInt(e.Changed), e.CreatedAt,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert entry: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to count inserted rows: %w", err)
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit entries: %w", err)
	}
	return inserted, nil
}

func (s *SQLiteStore) Entries(filter models.EntryFilter) (models.EntryPage, error) {
	where, params := sqliteWhere(filter)

	var total int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM entries"+where, params...).Scan(&total); err != nil {
		return models.EntryPage{}, fmt.Errorf("failed to count entries: %w", err)
	}

	dir := sortKeyword(filter.Sort)
	limit := effectiveLimit(filter.Limit)
	offset := effectiveOffset(filter.Offset)
	query := fmt.Sprintf(`
		SELECT day, weekday, lesson, teacher, subject, original_subject, room, type, text, week_type, source_page, classes, color, cancelled, changed, created_at
		FROM entries%s ORDER BY day %s, lesson %s LIMIT ? OFFSET ?`, where, dir, dir)

	rows, err := s.db.Query(query, append(params, limit, offset)...)
	if err != nil {
		return models.EntryPage{}, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	entries := []models.PlanEntry{}
	for rows.Next() {
		var e models.PlanEntry
		var classes string
		var cancelled, changed int
		if err := rows.Scan(
			&e.Day, &e.Weekday, &e.Lesson, &e.Teacher, &e.Subject, &e.OriginalSubject,
			&e.Room, &e.Type, &e.Text, &e.WeekType, &e.SourcePage,
			&classes, &e.Color, &cancelled, &changed, &e.CreatedAt,
		); err != nil {
			return models.EntryPage{}, fmt.Errorf("failed to scan entry: %w", err)
		}
		e.Classes = splitClassKey(classes)
		e.Cancelled = cancelled != 0
		e.Changed = changed != 0
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return models.EntryPage{}, fmt.Errorf("failed to read entries: %w", err)
	}

	return models.EntryPage{Entries: entries, Total: total, Limit: limit, Offset: offset}, nil
}

func sqliteWhere(filter models.EntryFilter) (string, []any) {
	var conds []string
	var params []any
	if filter.Day != "" {
		conds = append(conds, "day = ?")
		params = append(params, filter.Day)
	}
	if filter.Class != "" {
		conds = append(conds, `classes LIKE ? ESCAPE '\'`)
		params = append(params, "%"+escapeLike(normalizeClassToken(filter.Class))+"%")
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + joinConds(conds), params
}

func (s *SQLiteStore) Classes() ([]string, error) {
	rows, err := s.db.Query("SELECT DISTINCT classes FROM entries")
	if err != nil {
		return nil, fmt.Errorf("failed to query classes: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan class key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read class keys: %w", err)
	}
	return collectClassTokens(keys), nil
}

func (s *SQLiteStore) Stats() (models.Stats, error) {
	var stats models.Stats
	err := s.db.QueryRow("SELECT COUNT(*), COUNT(DISTINCT day) FROM entries").
		Scan(&stats.TotalEntries, &stats.DaysTracked)
	if err != nil {
		return models.Stats{}, fmt.Errorf("failed to query stats: %w", err)
	}
	if stats.DaysTracked > 0 {
		stats.AvgPerDay = float64(stats.TotalEntries) / float64(stats.DaysTracked)
	}
	return stats, nil
}

func (s *SQLiteStore) LogFetch(entry models.FetchLogEntry) error {
	_, err := s.db.Exec(
		"INSERT INTO fetch_log (timestamp, success, error, pages_fetched) VALUES (?, ?, ?, ?)",
		entry.Timestamp.UTC().Format(time.RFC3339), boolToInt(entry.Success), entry.Error, entry.PagesFetched,
	)
	if err != nil {
		return fmt.Errorf("failed to log fetch: %w", err)
	}
	// Keep only the newest rows.
	_, err = s.db.Exec(
		"DELETE FROM fetch_log WHERE id NOT IN (SELECT id FROM fetch_log ORDER BY id DESC LIMIT ?)",
		fetchLogRetention,
	)
	if err != nil {
		return fmt.Errorf("failed to trim fetch log: %w", err)
	}
	return nil
}

func (s *SQLiteStore) FetchLog(limit int) ([]models.FetchLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		"SELECT timestamp, success, error, pages_fetched FROM fetch_log ORDER BY id DESC LIMIT ?", limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query fetch log: %w", err)
	}
	defer rows.Close()

	entries := []models.FetchLogEntry{}
	for rows.Next() {
		e, err := scanSQLiteFetchLog(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read fetch log: %w", err)
	}
	return entries, nil
}

func (s *SQLiteStore) LastSuccessfulFetch() (*models.FetchLogEntry, error) {
	rows, err := s.db.Query(
		"SELECT timestamp, success, error, pages_fetched FROM fetch_log WHERE success = 1 ORDER BY id DESC LIMIT 1",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query last successful fetch: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	e, err := scanSQLiteFetchLog(rows)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func scanSQLiteFetchLog(rows *sql.Rows) (models.FetchLogEntry, error) {
	var e models.FetchLogEntry
	var ts string
	var success int
	if err := rows.Scan(&ts, &success, &e.Error, &e.PagesFetched); err != nil {
		return models.FetchLogEntry{}, fmt.Errorf("failed to scan fetch log row: %w", err)
	}
	parsed, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return models.FetchLogEntry{}, fmt.Errorf("failed to parse fetch log timestamp: %w", err)
	}
	e.Timestamp = parsed
	e.Success = success != 0
	return e, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
