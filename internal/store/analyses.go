package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/naka-gawa/trending-digest/internal/domain"
)

const dailyColumns = `date, raw_candidates, analysis_json, model, tokens_used, created_at`

func (db *SQLStore) HasDailyAnalysis(ctx context.Context, date string) (bool, error) {
	var exists int
	err := db.conn.QueryRowContext(ctx, db.rebind(`SELECT 1 FROM daily_analyses WHERE date = ?`), date).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check daily analysis %s: %w", date, err)
	}
	return true, nil
}

func (db *SQLStore) InsertDailyAnalysis(ctx context.Context, analysis *domain.DailyAnalysis, repos []domain.TrendingRepo) (bool, error) {
	analysisJSON, err := json.Marshal(analysis.Analysis)
	if err != nil {
		return false, fmt.Errorf("encode analysis: %w", err)
	}
	candidates := analysis.Candidates
	if candidates == nil {
		candidates = []domain.Candidate{}
	}
	candidatesJSON, err := json.Marshal(candidates)
	if err != nil {
		return false, fmt.Errorf("encode candidates: %w", err)
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx, db.rebind(`
		INSERT INTO daily_analyses (`+dailyColumns+`, headline, pattern, category_count, repo_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(date) DO NOTHING
		RETURNING id`),
		analysis.Date, string(candidatesJSON), string(analysisJSON), analysis.Model, analysis.TokensUsed,
		formatTime(analysis.CreatedAt), analysis.Analysis.Headline, analysis.Analysis.Pattern,
		len(analysis.Analysis.Categories), analysis.Analysis.RepoCount(),
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		// Conflict occurred, the date already has an analysis
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("insert daily analysis %s: %w", analysis.Date, err)
	}

	stmt, err := tx.PrepareContext(ctx, db.rebind(`
		INSERT INTO trending_repos (date, repo_full_name, description, language, stars, forks, url,
			category, ai_summary, significance, is_new)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(date, repo_full_name) DO NOTHING`))
	if err != nil {
		return false, fmt.Errorf("prepare trending repo insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range repos {
		if _, err := stmt.ExecContext(ctx, analysis.Date, r.FullName, r.Description, r.Language, r.Stars, r.Forks,
			r.URL, r.Category, r.AISummary, r.Significance, boolToInt(r.IsNew)); err != nil {
			return false, fmt.Errorf("insert trending repo %s: %w", r.FullName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDailyAnalysis(row rowScanner) (*domain.DailyAnalysis, error) {
	var (
		a              domain.DailyAnalysis
		candidatesJSON string
		analysisJSON   string
		createdAt      string
	)
	if err := row.Scan(&a.Date, &candidatesJSON, &analysisJSON, &a.Model, &a.TokensUsed, &createdAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(analysisJSON), &a.Analysis); err != nil {
		return nil, fmt.Errorf("decode analysis %s: %w", a.Date, err)
	}
	if err := json.Unmarshal([]byte(candidatesJSON), &a.Candidates); err != nil {
		return nil, fmt.Errorf("decode candidates %s: %w", a.Date, err)
	}
	a.CreatedAt = parseTime(createdAt)
	return &a, nil
}

func (db *SQLStore) GetDailyAnalysis(ctx context.Context, date string) (*domain.DailyAnalysis, error) {
	row := db.conn.QueryRowContext(ctx, db.rebind(`SELECT `+dailyColumns+` FROM daily_analyses WHERE date = ?`), date)
	a, err := scanDailyAnalysis(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

func (db *SQLStore) GetLatestDailyAnalysis(ctx context.Context) (*domain.DailyAnalysis, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+dailyColumns+` FROM daily_analyses ORDER BY date DESC LIMIT 1`)
	a, err := scanDailyAnalysis(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

// ListHistory returns the reduced projection of every analysis dated on or after since, newest first.
func (db *SQLStore) ListHistory(ctx context.Context, since string) ([]domain.HistoryEntry, error) {
	rows, err := db.conn.QueryContext(ctx, db.rebind(`
		SELECT date, headline, pattern, category_count, repo_count
		FROM daily_analyses WHERE date >= ? ORDER BY date DESC`), since)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	entries := []domain.HistoryEntry{}
	for rows.Next() {
		var e domain.HistoryEntry
		if err := rows.Scan(&e.Date, &e.Headline, &e.Pattern, &e.CategoryCount, &e.RepoCount); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ListDailyAnalysesSince returns full analyses dated on or after since, newest first.
func (db *SQLStore) ListDailyAnalysesSince(ctx context.Context, since string) ([]domain.DailyAnalysis, error) {
	rows, err := db.conn.QueryContext(ctx, db.rebind(`
		SELECT `+dailyColumns+` FROM daily_analyses WHERE date >= ? ORDER BY date DESC`), since)
	if err != nil {
		return nil, fmt.Errorf("list daily analyses: %w", err)
	}
	defer rows.Close()

	var analyses []domain.DailyAnalysis
	for rows.Next() {
		a, err := scanDailyAnalysis(rows)
		if err != nil {
			return nil, err
		}
		analyses = append(analyses, *a)
	}
	return analyses, rows.Err()
}

func (db *SQLStore) ListTrendingRepos(ctx context.Context, date string) ([]domain.TrendingRepo, error) {
	rows, err := db.conn.QueryContext(ctx, db.rebind(`
		SELECT date, repo_full_name, description, language, stars, forks, url, category, ai_summary, significance, is_new
		FROM trending_repos WHERE date = ? ORDER BY id`), date)
	if err != nil {
		return nil, fmt.Errorf("list trending repos: %w", err)
	}
	defer rows.Close()

	repos := []domain.TrendingRepo{}
	for rows.Next() {
		var (
			r     domain.TrendingRepo
			isNew int
		)
		if err := rows.Scan(&r.Date, &r.FullName, &r.Description, &r.Language, &r.Stars, &r.Forks, &r.URL,
			&r.Category, &r.AISummary, &r.Significance, &isNew); err != nil {
			return nil, err
		}
		r.IsNew = isNew == 1
		repos = append(repos, r)
	}
	return repos, rows.Err()
}
