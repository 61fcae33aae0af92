package store

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/mkoenig/vplan-tracker/models"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS entries (
	id SERIAL PRIMARY KEY,
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
	cancelled BOOLEAN NOT NULL DEFAULT FALSE,
	changed BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TEXT NOT NULL,
	CONSTRAINT uq_entry UNIQUE(day, lesson, subject, type, room, classes, source_page)
);

CREATE INDEX IF NOT EXISTS idx_entries_day ON entries(day);
CREATE INDEX IF NOT EXISTS idx_entries_classes ON entries(classes);

CREATE TABLE IF NOT EXISTS fetch_log (
	id SERIAL PRIMARY KEY,
	timestamp TIMESTAMPTZ NOT NULL,
	success BOOLEAN NOT NULL,
	error TEXT NOT NULL DEFAULT '',
	pages_fetched INT NOT NULL
);
`

// PostgresStore is the networked backend for hosted operation.
type PostgresStore struct {
	db *sql.DB
}

// OpenPostgres connects using a DATABASE_URL connection string and applies
// the schema. Setup is create-if-absent, so several instances can race it.
func OpenPostgres(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec(postgresSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) AppendEntries(entries []models.PlanEntry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO entries
			(day, weekday, lesson, teacher, subject, original_subject, room, type, text, week_type, source_page, classes, color, cancelled, changed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT ON CONSTRAINT uq_entry DO NOTHING
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
			NormalizeClasses(e.Classes), e.Color, e.Cancelled, e.Changed, e.CreatedAt,
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

func (s *PostgresStore) Entries(filter models.EntryFilter) (models.EntryPage, error) {
	where, params := postgresWhere(filter)

	var total int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM entries"+where, params...).Scan(&total); err != nil {
		return models.EntryPage{}, fmt.Errorf("failed to count entries: %w", err)
	}

	dir := sortKeyword(filter.Sort)
	limit := effectiveLimit(filter.Limit)
	offset := effectiveOffset(filter.Offset)
	query := fmt.Sprintf(`
		SELECT day, weekday, lesson, teacher, subject, original_subject, room, type, text, week_type, source_page, classes, color, cancelled, changed, created_at
		FROM entries%s ORDER BY day %s, lesson %s LIMIT $%d OFFSET $%d`,
		where, dir, dir, len(params)+1, len(params)+2)

	rows, err := s.db.Query(query, append(params, limit, offset)...)
	if err != nil {
		return models.EntryPage{}, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	entries := []models.PlanEntry{}
	for rows.Next() {
		var e models.PlanEntry
		var classes string
		if err := rows.Scan(
			&e.Day, &e.Weekday, &e.Lesson, &e.Teacher, &e.Subject, &e.OriginalSubject,
			&e.Room, &e.Type, &e.Text, &e.WeekType, &e.SourcePage,
			&classes, &e.Color, &e.Cancelled, &e.Changed, &e.CreatedAt,
		); err != nil {
			return models.EntryPage{}, fmt.Errorf("failed to scan entry: %w", err)
		}
		e.Classes = splitClassKey(classes)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return models.EntryPage{}, fmt.Errorf("failed to read entries: %w", err)
	}

	return models.EntryPage{Entries: entries, Total: total, Limit: limit, Offset: offset}, nil
}

func postgresWhere(filter models.EntryFilter) (string, []any) {
	var conds []string
	var params []any
	if filter.Day != "" {
		params = append(params, filter.Day)
		conds = append(conds, fmt.Sprintf("day = $%d", len(params)))
	}
	if filter.Class != "" {
		params = append(params, "%"+escapeLike(normalizeClassToken(filter.Class))+"%")
		conds = append(conds, fmt.Sprintf(`classes LIKE $%d ESCAPE '\'`, len(params)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + joinConds(conds), params
}

func (s *PostgresStore) Classes() ([]string, error) {
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

func (s *PostgresStore) Stats() (models.Stats, error) {
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

func (s *PostgresStore) LogFetch(entry models.FetchLogEntry) error {
	_, err := s.db.Exec(
		"INSERT INTO fetch_log (timestamp, success, error, pages_fetched) VALUES ($1, $2, $3, $4)",
		entry.Timestamp.UTC(), entry.Success, entry.Error, entry.PagesFetched,
	)
	if err != nil {
		return fmt.Errorf("failed to log fetch: %w", err)
	}
	_, err = s.db.Exec(
		"DELETE FROM fetch_log WHERE id NOT IN (SELECT id FROM fetch_log ORDER BY id DESC LIMIT $1)",
		fetchLogRetention,
	)
	if err != nil {
		return fmt.Errorf("failed to trim fetch log: %w", err)
	}
	return nil
}

func (s *PostgresStore) FetchLog(limit int) ([]models.FetchLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		"SELECT timestamp, success, error, pages_fetched FROM fetch_log ORDER BY id DESC LIMIT $1", limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query fetch log: %w", err)
	}
	defer rows.Close()

	entries := []models.FetchLogEntry{}
	for rows.Next() {
		var e models.FetchLogEntry
		if err := rows.Scan(&e.Timestamp, &e.Success, &e.Error, &e.PagesFetched); err != nil {
			return nil, fmt.Errorf("failed to scan fetch log row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read fetch log: %w", err)
	}
	return entries, nil
}

func (s *PostgresStore) LastSuccessfulFetch() (*models.FetchLogEntry, error) {
	var e models.FetchLogEntry
	err := s.db.QueryRow(
		"SELECT timestamp, success, error, pages_fetched FROM fetch_log WHERE success ORDER BY id DESC LIMIT 1",
	).Scan(&e.Timestamp, &e.Success, &e.Error, &e.PagesFetched)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query last successful fetch: %w", err)
	}
	return &e, nil
}
