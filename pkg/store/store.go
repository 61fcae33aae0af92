// Package store persists plan entries and fetch-log records behind one
// contract with two interchangeable backends: an embedded SQLite file for
// single-instance operation and Postgres for hosted multi-instance
// operation. Both enforce the entry identity tuple with a storage-level
// uniqueness constraint and normalize class keys identically.
package store

import (
	"sort"
	"strings"

	"github.com/mkoenig/vplan-tracker/models"
)

// DefaultQueryLimit bounds unpaginated entry queries.
const DefaultQueryLimit = 500

// fetchLogRetention is the maximum number of fetch-log rows kept; older
// rows are dropped on every write.
const fetchLogRetention = 500

// Store is the persistence contract shared by both backends.
type Store interface {
	// AppendEntries inserts entries inside one transaction, silently
	// ignoring rows whose identity tuple already exists. It returns the
	// number of rows actually inserted.
	AppendEntries(entries []models.PlanEntry) (int, error)
	// Entries returns one page of entries ordered by day then lesson,
	// plus the total matching count before pagination.
	Entries(filter models.EntryFilter) (models.EntryPage, error)
	// Classes returns the sorted, deduplicated set of individual class
	// tokens across all stored entries.
	Classes() ([]string, error)
	Stats() (models.Stats, error)
	LogFetch(entry models.FetchLogEntry) error
	// FetchLog returns the most recent attempts, newest first.
	FetchLog(limit int) ([]models.FetchLogEntry, error)
	// LastSuccessfulFetch returns the newest successful attempt, or nil.
	LastSuccessfulFetch() (*models.FetchLogEntry, error)
	Close() error
}

// Open selects the backend: Postgres when a DATABASE_URL is configured,
// the local SQLite file otherwise.
func Open(cfg *models.Config) (Store, error) {
	if cfg.DatabaseURL != "" {
		return OpenPostgres(cfg.DatabaseURL)
	}
	return OpenSQLite(cfg.SQLitePath)
}

// NormalizeClasses produces the canonical class key for one entry: each
// class trimmed and uppercased, the set sorted, deduplicated and
// comma-joined. The key is part of the identity tuple, so both backends
// must compute it identically.
func NormalizeClasses(classes []string) string {
	seen := make(map[string]bool, len(classes))
	norm := make([]string, 0, len(classes))
	for _, c := range classes {
		c = strings.ToUpper(strings.TrimSpace(c))
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		norm = append(norm, c)
	}
	sort.Strings(norm)
	return strings.Join(norm, ",")
}

// splitClassKey reverses NormalizeClasses for reads.
func splitClassKey(key string) []string {
	var classes []string
	for _, c := range strings.Split(key, ",") {
		if c = strings.TrimSpace(c); c != "" {
			classes = append(classes, c)
		}
	}
	return classes
}

// collectClassTokens flattens stored class keys into a sorted distinct list.
func collectClassTokens(keys []string) []string {
	set := make(map[string]bool)
	for _, key := range keys {
		for _, c := range splitClassKey(key) {
			set[c] = true
		}
	}
	tokens := make([]string, 0, len(set))
	for c := range set {
		tokens = append(tokens, c)
	}
	sort.Strings(tokens)
	return tokens
}

// normalizeClassToken uppercases a query token so substring matches work
// against the uppercased class key.
func normalizeClassToken(token string) string {
	return strings.ToUpper(strings.TrimSpace(token))
}

// escapeLike neutralizes LIKE metacharacters in a user-supplied token.
// Queries using the result must carry ESCAPE '\'.
func escapeLike(token string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(token)
}

func joinConds(conds []string) string {
	return strings.Join(conds, " AND ")
}

func sortKeyword(dir string) string {
	if dir == models.SortDesc {
		return "DESC"
	}
	return "ASC"
}

func effectiveLimit(limit int) int {
	if limit <= 0 {
		return DefaultQueryLimit
	}
	return limit
}

func effectiveOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
