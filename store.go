package devotional

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("not found")

// HistoryLimit is the number of recent studies kept.
const HistoryLimit = 10

// DB represents the sqlite database holding studies, plans, results and stats
type DB struct {
	db *sql.DB
}

// OpenDB opens a new database connection and creates missing tables
func OpenDB(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// sqlite allows one writer; a single connection avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &DB{db: db}
	if err := store.CreateTables(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.db.Close()
}

// CreateTables creates the necessary tables if they don't exist
func (db *DB) CreateTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS studies (
			id TEXT PRIMARY KEY,
			passage TEXT NOT NULL,
			title TEXT NOT NULL,
			num_questions INTEGER NOT NULL,
			document TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS history (
			passage TEXT PRIMARY KEY,
			study_id TEXT NOT NULL,
			title TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (study_id) REFERENCES studies(id)
		)`,
		`CREATE TABLE IF NOT EXISTS plans (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT NOT NULL,
			duration TEXT NOT NULL,
			topic TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS plan_items (
			plan_id TEXT NOT NULL,
			idx INTEGER NOT NULL,
			item_id TEXT NOT NULL,
			passage TEXT NOT NULL,
			theme TEXT NOT NULL,
			reason TEXT NOT NULL,
			PRIMARY KEY (plan_id, idx),
			FOREIGN KEY (plan_id) REFERENCES plans(id)
		)`,
		`CREATE TABLE IF NOT EXISTS quiz_results (
			id TEXT PRIMARY KEY,
			study_id TEXT NOT NULL,
			score INTEGER NOT NULL,
			total INTEGER NOT NULL,
			answers TEXT NOT NULL,
			completed_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS journal_entries (
			study_id TEXT NOT NULL,
			prompt_idx INTEGER NOT NULL,
			prompt TEXT NOT NULL,
			body TEXT NOT NULL,
			updated_at DATETIME NOT NULL,
			PRIMARY KEY (study_id, prompt_idx),
			FOREIGN KEY (study_id) REFERENCES studies(id)
		)`,
		`CREATE TABLE IF NOT EXISTS user_stats (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			streak INTEGER NOT NULL,
			last_study_date TEXT NOT NULL,
			emeralds INTEGER NOT NULL,
			protectors INTEGER NOT NULL
		)`,
	}

	for _, query := range queries {
		if _, err := db.db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute %s: %w", query, err)
		}
	}
	return nil
}

// SaveStudy stores a document and records it in the history. The document
// gets an ID if it has none.
func (db *DB) SaveStudy(passage string, numQuestions int, doc *StudyDocument) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal study: %w", err)
	}
	now := time.Now().UTC()

	tx, err := db.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		"INSERT INTO studies (id, passage, title, num_questions, document, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		doc.ID, passage, doc.Title, numQuestions, string(data), now,
	); err != nil {
		return fmt.Errorf("failed to create study: %w", err)
	}
	if _, err := tx.Exec(
		"INSERT OR REPLACE INTO history (passage, study_id, title, created_at) VALUES (?, ?, ?, ?)",
		passage, doc.ID, doc.Title, now,
	); err != nil {
		return fmt.Errorf("failed to record history: %w", err)
	}
	if _, err := tx.Exec(
		"DELETE FROM history WHERE passage NOT IN (SELECT passage FROM history ORDER BY created_at DESC LIMIT ?)",
		HistoryLimit,
	); err != nil {
		return fmt.Errorf("failed to trim history: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit study: %w", err)
	}
	return nil
}

// GetStudy retrieves a study by ID
func (db *DB) GetStudy(id string) (*StudyDocument, error) {
	var data string
	err := db.db.QueryRow("SELECT document FROM studies WHERE id = ?", id).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("study %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get study: %w", err)
	}
	var doc StudyDocument
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return nil, fmt.Errorf("failed to decode study %s: %w", id, err)
	}
	doc.ID = id
	return &doc, nil
}

// RecentHistory returns the most recent studies, one per passage, newest first
func (db *DB) RecentHistory() ([]HistoryItem, error) {
	rows, err := db.db.Query(
		"SELECT study_id, title, passage, created_at FROM history ORDER BY created_at DESC LIMIT ?",
		HistoryLimit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	defer rows.Close()

	items := []HistoryItem{}
	for rows.Next() {
		var it HistoryItem
		if err := rows.Scan(&it.StudyID, &it.Title, &it.Passage, &it.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}
		items = append(items, it)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history: %w", err)
	}
	return items, nil
}

// SaveReadingPlan stores a plan and its items, assigning an ID
func (db *DB) SaveReadingPlan(plan *ReadingPlan) error {
	if plan.ID == "" {
		plan.ID = uuid.NewString()
	}
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = time.Now().UTC()
	}

	tx, err := db.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		"INSERT INTO plans (id, title, description, duration, topic, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		plan.ID, plan.Title, plan.Description, string(plan.Duration), plan.Topic, plan.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to create plan: %w", err)
	}
	for i, it := range plan.Items {
		if _, err := tx.Exec(
			"INSERT INTO plan_items (plan_id, idx, item_id, passage, theme, reason) VALUES (?, ?, ?, ?, ?, ?)",
			plan.ID, i, it.ID, it.Passage, it.Theme, it.Reason,
		); err != nil {
			return fmt.Errorf("failed to create plan item %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit plan: %w", err)
	}
	return nil
}

// ListReadingPlans returns every plan without items, newest first
func (db *DB) ListReadingPlans() ([]ReadingPlan, error) {
	rows, err := db.db.Query("SELECT id, title, description, duration, topic, created_at FROM plans ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	defer rows.Close()

	plans := []ReadingPlan{}
	for rows.Next() {
		var p ReadingPlan
		var duration string
		if err := rows.Scan(&p.ID, &p.Title, &p.Description, &duration, &p.Topic, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan plan: %w", err)
		}
		p.Duration = PlanDuration(duration)
		p.Items = []ReadingPlanItem{}
		plans = append(plans, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating plans: %w", err)
	}
	return plans, nil
}

// GetReadingPlan retrieves a plan with its items in order
func (db *DB) GetReadingPlan(id string) (*ReadingPlan, error) {
	var p ReadingPlan
	var duration string
	err := db.db.QueryRow(
		"SELECT id, title, description, duration, topic, created_at FROM plans WHERE id = ?",
		id,
	).Scan(&p.ID, &p.Title, &p.Description, &duration, &p.Topic, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("plan %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	p.Duration = PlanDuration(duration)

	rows, err := db.db.Query(
		"SELECT item_id, passage, theme, reason FROM plan_items WHERE plan_id = ? ORDER BY idx",
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get plan items: %w", err)
	}
	defer rows.Close()

	p.Items = []ReadingPlanItem{}
	for rows.Next() {
		var it ReadingPlanItem
		if err := rows.Scan(&it.ID, &it.Passage, &it.Theme, &it.Reason); err != nil {
			return nil, fmt.Errorf("failed to scan plan item: %w", err)
		}
		p.Items = append(p.Items, it)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating plan items: %w", err)
	}
	return &p, nil
}

// DeleteReadingPlan removes a plan and its items
func (db *DB) DeleteReadingPlan(id string) error {
	tx, err := db.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM plan_items WHERE plan_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete plan items: %w", err)
	}
	res, err := tx.Exec("DELETE FROM plans WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete plan: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("plan %s: %w", id, ErrNotFound)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit plan deletion: %w", err)
	}
	return nil
}

// SaveQuizResult records the tally of a completed session
func (db *DB) SaveQuizResult(result *QuizResult) error {
	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	if result.CompletedAt.IsZero() {
		result.CompletedAt = time.Now().UTC()
	}
	answers, err := json.Marshal(result.Answers)
	if err != nil {
		return fmt.Errorf("failed to marshal answers: %w", err)
	}
	_, err = db.db.Exec(
		"INSERT INTO quiz_results (id, study_id, score, total, answers, completed_at) VALUES (?, ?, ?, ?, ?, ?)",
		result.ID, result.StudyID, result.Score, result.Total, string(answers), result.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save quiz result: %w", err)
	}
	return nil
}

// GetQuizResults returns the results recorded for a study, newest first
func (db *DB) GetQuizResults(studyID string) ([]QuizResult, error) {
	rows, err := db.db.Query(
		"SELECT id, study_id, score, total, answers, completed_at FROM quiz_results WHERE study_id = ? ORDER BY completed_at DESC",
		studyID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get quiz results: %w", err)
	}
	defer rows.Close()

	results := []QuizResult{}
	for rows.Next() {
		var r QuizResult
		var answers string
		if err := rows.Scan(&r.ID, &r.StudyID, &r.Score, &r.Total, &answers, &r.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan quiz result: %w", err)
		}
		if err := json.Unmarshal([]byte(answers), &r.Answers); err != nil {
			return nil, fmt.Errorf("failed to decode answers: %w", err)
		}
		results = append(results, r)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating quiz results: %w", err)
	}
	return results, nil
}

// GetUserStats returns the stored stats, or zero stats when none exist yet
func (db *DB) GetUserStats() (UserStats, error) {
	return getUserStats(db.db)
}

type queryRower interface {
	QueryRow(query string, args ...any) *sql.Row
}

func getUserStats(q queryRower) (UserStats, error) {
	var s UserStats
	err := q.QueryRow(
		"SELECT streak, last_study_date, emeralds, protectors FROM user_stats WHERE id = 1",
	).Scan(&s.Streak, &s.LastStudyDate, &s.Emeralds, &s.Protectors)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return UserStats{}, fmt.Errorf("failed to get user stats: %w", err)
	}
	return s, nil
}

// updateUserStats applies fn to the stored stats inside one transaction.
func (db *DB) updateUserStats(fn func(UserStats) (UserStats, error)) (UserStats, error) {
	tx, err := db.db.Begin()
	if err != nil {
		return UserStats{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	current, err := getUserStats(tx)
	if err != nil {
		return UserStats{}, err
	}
	next, err := fn(current)
	if err != nil {
		return current, err
	}
	if err := saveUserStats(tx, next); err != nil {
		return UserStats{}, err
	}
	if err := tx.Commit(); err != nil {
		return UserStats{}, fmt.Errorf("failed to commit user stats: %w", err)
	}
	return next, nil
}

func saveUserStats(tx *sql.Tx, s UserStats) error {
	if _, err := tx.Exec(
		`INSERT INTO user_stats (id, streak, last_study_date, emeralds, protectors) VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET streak = excluded.streak, last_study_date = excluded.last_study_date,
			emeralds = excluded.emeralds, protectors = excluded.protectors`,
		s.Streak, s.LastStudyDate, s.Emeralds, s.Protectors,
	); err != nil {
		return fmt.Errorf("failed to save user stats: %w", err)
	}
	return nil
}

// CheckStreak applies the missed-day rule for today
func (db *DB) CheckStreak(today time.Time) (UserStats, error) {
	return db.updateUserStats(func(s UserStats) (UserStats, error) {
		return s.CheckStreak(today), nil
	})
}

// ApplyStudyCompletion grants the daily study reward
func (db *DB) ApplyStudyCompletion(today time.Time) (UserStats, error) {
	return db.updateUserStats(func(s UserStats) (UserStats, error) {
		s, _ = s.CheckStreak(today).CompleteStudy(today)
		return s, nil
	})
}

// ApplyQuizCompletion grants the reward for a finished quiz
func (db *DB) ApplyQuizCompletion(score int) (UserStats, error) {
	return db.updateUserStats(func(s UserStats) (UserStats, error) {
		return s.CompleteQuiz(score), nil
	})
}

// BuyProtector exchanges emeralds for a streak protector
func (db *DB) BuyProtector() (UserStats, error) {
	return db.updateUserStats(UserStats.BuyProtector)
}

// SaveJournalEntry stores the answer to one reflection prompt of a stored
// study. The first answer to a prompt earns JournalReward; later edits only
// replace the text. It returns the stats after the save.
func (db *DB) SaveJournalEntry(entry *JournalEntry) (UserStats, error) {
	if strings.TrimSpace(entry.Text) == "" {
		return UserStats{}, fmt.Errorf("%w: empty journal entry", ErrInvalidInput)
	}
	doc, err := db.GetStudy(entry.StudyID)
	if err != nil {
		return UserStats{}, err
	}
	if entry.PromptIndex < 0 || entry.PromptIndex >= len(doc.ReflectionPrompts) {
		return UserStats{}, fmt.Errorf("%w: prompt %d of %d", ErrInvalidInput, entry.PromptIndex, len(doc.ReflectionPrompts))
	}
	entry.Prompt = doc.ReflectionPrompts[entry.PromptIndex]
	if entry.UpdatedAt.IsZero() {
		entry.UpdatedAt = time.Now().UTC()
	}

	tx, err := db.db.Begin()
	if err != nil {
		return UserStats{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var existing int
	if err := tx.QueryRow(
		"SELECT COUNT(*) FROM journal_entries WHERE study_id = ? AND prompt_idx = ?",
		entry.StudyID, entry.PromptIndex,
	).Scan(&existing); err != nil {
		return UserStats{}, fmt.Errorf("failed to check journal entry: %w", err)
	}
	if _, err := tx.Exec(
		`INSERT INTO journal_entries (study_id, prompt_idx, prompt, body, updated_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(study_id, prompt_idx) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		entry.StudyID, entry.PromptIndex, entry.Prompt, entry.Text, entry.UpdatedAt,
	); err != nil {
		return UserStats{}, fmt.Errorf("failed to save journal entry: %w", err)
	}

	stats, err := getUserStats(tx)
	if err != nil {
		return UserStats{}, err
	}
	if existing == 0 {
		stats = stats.CompleteJournalEntry()
		if err := saveUserStats(tx, stats); err != nil {
			return UserStats{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return UserStats{}, fmt.Errorf("failed to commit journal entry: %w", err)
	}
	return stats, nil
}

// GetJournal returns the journal entries of a study in prompt order
func (db *DB) GetJournal(studyID string) ([]JournalEntry, error) {
	rows, err := db.db.Query(
		"SELECT study_id, prompt_idx, prompt, body, updated_at FROM journal_entries WHERE study_id = ? ORDER BY prompt_idx",
		studyID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get journal: %w", err)
	}
	defer rows.Close()

	entries := []JournalEntry{}
	for rows.Next() {
		var e JournalEntry
		if err := rows.Scan(&e.StudyID, &e.PromptIndex, &e.Prompt, &e.Text, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan journal entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating journal: %w", err)
	}
	return entries, nil
}
