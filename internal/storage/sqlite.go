// Package storage persists the factor catalogue in SQLite and serves the
// keyword fallback search.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/verdantlabs/factormatch/internal/common"
	"github.com/verdantlabs/factormatch/internal/model"
	"github.com/verdantlabs/factormatch/internal/normalize"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStore implements the FactorStore interface using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLite factor store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("%w: database path is required", common.ErrMissingConfig)
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const factorColumns = `row_index, identifier, status, name_fr, name_en, category, tags_fr,
	unit_fr, unit_en, contributor, other_contributors, programme, source, url, location,
	created_at, modified_at, validity, comments_fr, comments_en,
	total, co2_fossil, ch4_fossil, ch4_biogenic, n2o, extra_gases`

// SaveFactors upserts the given factor rows in one transaction.
func (s *SQLiteStore) SaveFactors(ctx context.Context, factors []model.FactorRecord) error {
	if len(factors) == 0 {
		return nil
	}

	// A batch carrying the same row index twice means the catalogue was
	// read wrong; last-write-wins would hide that.
	seen := make(map[int]struct{}, len(factors))
	for i := range factors {
		if _, dup := seen[factors[i].RowIndex]; dup {
			return fmt.Errorf("%w: factor row %d", common.ErrDuplicateEntry, factors[i].RowIndex)
		}
		seen[factors[i].RowIndex] = struct{}{}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO factors (`+factorColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i := range factors {
		factor := &factors[i]
		gases, gasErr := json.Marshal(factor.ExtraGases)
		if gasErr != nil {
			return fmt.Errorf("failed to encode gases for row %d: %w", factor.RowIndex, gasErr)
		}

		_, err = stmt.ExecContext(ctx,
			factor.RowIndex,
			factor.Identifier,
			factor.Status,
			factor.NameFR,
			factor.NameEN,
			factor.Category,
			factor.TagsFR,
			factor.UnitFR,
			factor.UnitEN,
			factor.Contributor,
			factor.OtherContributors,
			factor.Programme,
			factor.Source,
			factor.URL,
			factor.Location,
			factor.CreatedAt,
			factor.ModifiedAt,
			factor.Validity,
			factor.CommentsFR,
			factor.CommentsEN,
			factor.Total,
			factor.CO2Fossil,
			factor.CH4Fossil,
			factor.CH4Biogenic,
			factor.N2O,
			string(gases),
		)
		if err != nil {
			return fmt.Errorf("failed to save factor row %d: %w", factor.RowIndex, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit factors: %w", err)
	}
	return nil
}

// GetFactor returns the factor stored under rowIndex.
func (s *SQLiteStore) GetFactor(ctx context.Context, rowIndex int) (*model.FactorRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+factorColumns+` FROM factors WHERE row_index = ?`, rowIndex)

	factor, err := scanFactor(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: factor row %d", common.ErrNotFound, rowIndex)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get factor row %d: %w", rowIndex, err)
	}
	return factor, nil
}

// SearchKeyword matches query tokens against factor names, tags and category.
// It is the fallback when the primary candidate source returns nothing.
func (s *SQLiteStore) SearchKeyword(ctx context.Context, query string, topK int) ([]model.MatchCandidate, error) {
	tokens := tokenList(query)
	if len(tokens) == 0 {
		return nil, nil
	}
	if topK <= 0 {
		topK = 5
	}

	conditions := make([]string, 0, len(tokens))
	args := make([]any, 0, len(tokens))
	for _, token := range tokens {
		conditions = append(conditions,
			`(name_fr LIKE ? OR name_en LIKE ? OR tags_fr LIKE ? OR category LIKE ?)`)
		pattern := "%" + token + "%"
		args = append(args, pattern, pattern, pattern, pattern)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+factorColumns+` FROM factors WHERE `+strings.Join(conditions, " OR ")+` LIMIT 200`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("keyword search failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var candidates []model.MatchCandidate
	for rows.Next() {
		factor, scanErr := scanFactor(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan factor: %w", scanErr)
		}

		score := tokenScore(tokens, factor)
		if score == 0 {
			continue
		}
		candidates = append(candidates, model.MatchCandidate{Factor: *factor, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("keyword search failed: %w", err)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	return candidates, nil
}

// Search makes the store usable as a CandidateSource directly.
func (s *SQLiteStore) Search(ctx context.Context, query string, topK int) ([]model.MatchCandidate, error) {
	return s.SearchKeyword(ctx, query, topK)
}

// SaveStrictMappings replaces the strict invoice-type table.
func (s *SQLiteStore) SaveStrictMappings(ctx context.Context, mappings map[string]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM strict_mappings`); err != nil {
		return fmt.Errorf("failed to clear strict mappings: %w", err)
	}

	for invoiceType, factorName := range mappings {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO strict_mappings (invoice_type, factor_name) VALUES (?, ?)`,
			strings.ToLower(strings.TrimSpace(invoiceType)), factorName)
		if err != nil {
			return fmt.Errorf("failed to save strict mapping %q: %w", invoiceType, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit strict mappings: %w", err)
	}
	return nil
}

// StrictMappings returns the strict invoice-type table.
func (s *SQLiteStore) StrictMappings(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT invoice_type, factor_name FROM strict_mappings`)
	if err != nil {
		return nil, fmt.Errorf("failed to load strict mappings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	mappings := make(map[string]string)
	for rows.Next() {
		var invoiceType, factorName string
		if err := rows.Scan(&invoiceType, &factorName); err != nil {
			return nil, fmt.Errorf("failed to scan strict mapping: %w", err)
		}
		mappings[invoiceType] = factorName
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load strict mappings: %w", err)
	}
	return mappings, nil
}

// FactorCount returns the number of catalogued factors.
func (s *SQLiteStore) FactorCount(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM factors`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count factors: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFactor(row rowScanner) (*model.FactorRecord, error) {
	var factor model.FactorRecord
	var identifier sql.NullInt64
	var createdAt, modifiedAt sql.NullTime
	var total, co2f, ch4f, ch4b, n2o sql.NullFloat64
	var gases string

	err := row.Scan(
		&factor.RowIndex,
		&identifier,
		&factor.Status,
		&factor.NameFR,
		&factor.NameEN,
		&factor.Category,
		&factor.TagsFR,
		&factor.UnitFR,
		&factor.UnitEN,
		&factor.Contributor,
		&factor.OtherContributors,
		&factor.Programme,
		&factor.Source,
		&factor.URL,
		&factor.Location,
		&createdAt,
		&modifiedAt,
		&factor.Validity,
		&factor.CommentsFR,
		&factor.CommentsEN,
		&total,
		&co2f,
		&ch4f,
		&ch4b,
		&n2o,
		&gases,
	)
	if err != nil {
		return nil, err
	}

	if identifier.Valid {
		factor.Identifier = &identifier.Int64
	}
	if createdAt.Valid {
		t := createdAt.Time
		factor.CreatedAt = &t
	}
	if modifiedAt.Valid {
		t := modifiedAt.Time
		factor.ModifiedAt = &t
	}
	factor.Total = nullFloat(total)
	factor.CO2Fossil = nullFloat(co2f)
	factor.CH4Fossil = nullFloat(ch4f)
	factor.CH4Biogenic = nullFloat(ch4b)
	factor.N2O = nullFloat(n2o)

	if gases != "" && gases != "null" {
		if err := json.Unmarshal([]byte(gases), &factor.ExtraGases); err != nil {
			return nil, fmt.Errorf("failed to decode gases for row %d: %w", factor.RowIndex, err)
		}
	}

	return &factor, nil
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func tokenList(query string) []string {
	seen := normalize.Tokens(query)
	tokens := make([]string, 0, len(seen))
	for token := range seen {
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)
	return tokens
}

// tokenScore is the fraction of query tokens found in the factor's
// searchable text.
func tokenScore(tokens []string, factor *model.FactorRecord) float64 {
	searchable := normalize.Fold(strings.Join([]string{
		factor.NameFR, factor.NameEN, factor.TagsFR, factor.Category,
	}, " "))

	matched := 0
	for _, token := range tokens {
		if strings.Contains(searchable, token) {
			matched++
		}
	}
	if matched == 0 {
		return 0
	}
	return float64(matched) / float64(len(tokens))
}

// IngestedAt reports when the catalogue was last written, zero when empty.
func (s *SQLiteStore) IngestedAt(ctx context.Context) (time.Time, error) {
	var stamp sql.NullTime
	err := s.db.QueryRowContext(ctx, `SELECT MAX(ingested_at) FROM factors`).Scan(&stamp)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read ingest timestamp: %w", err)
	}
	if !stamp.Valid {
		return time.Time{}, nil
	}
	return stamp.Time, nil
}
