// Package repository provides SQL-backed persistence for reputation
// verdicts, blocklists, contacts, training records, and screening audits.
// SQLite serves the Community tier, PostgreSQL the Pro tier.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/opencomm/shrike/internal/domain"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput is returned when required fields are missing.
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.Repository backed by database/sql.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a repository from configuration and runs migrations.
func New(cfg domain.RepositoryConfig) (*SQLRepository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite", "":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported repository driver: %s", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{db: db, driver: driverName(cfg.Driver)}
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func driverName(d string) string {
	if d == "" {
		return "sqlite"
	}
	return d
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	return nil
}

// rebind converts ? placeholders to $N for postgres.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, ch := range query {
		if ch == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}

// --- Reputation ---

// SaveReputation upserts the full reputation row for a number.
func (r *SQLRepository) SaveReputation(ctx context.Context, rep *domain.ReputationResult) error {
	if rep == nil || rep.Identifier.Normalized == "" {
		return fmt.Errorf("%w: reputation requires a normalized number", ErrInvalidInput)
	}

	query := r.rebind(`
		INSERT INTO reputation (number, spam_score, report_count, category, caller_name, confidence, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (number) DO UPDATE SET
			spam_score = excluded.spam_score,
			report_count = excluded.report_count,
			category = excluded.category,
			caller_name = excluded.caller_name,
			confidence = excluded.confidence,
			updated_at = excluded.updated_at`)

	_, err := r.db.ExecContext(ctx, query,
		rep.Identifier.Normalized,
		rep.SpamScore,
		rep.ReportCount,
		rep.ReportedCategory,
		rep.CallerName,
		rep.Confidence,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save reputation: %w", err)
	}
	return nil
}

// GetReputation returns the stored verdict for a number, or ErrNotFound.
func (r *SQLRepository) GetReputation(ctx context.Context, number string) (*domain.ReputationResult, error) {
	query := r.rebind(`
		SELECT number, spam_score, report_count, category, caller_name, confidence
		FROM reputation WHERE number = ?`)

	var normalized string
	rep := &domain.ReputationResult{}
	err := r.db.QueryRowContext(ctx, query, number).Scan(
		&normalized,
		&rep.SpamScore,
		&rep.ReportCount,
		&rep.ReportedCategory,
		&rep.CallerName,
		&rep.Confidence,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reputation: %w", err)
	}

	rep.Identifier = domain.Identifier{Raw: normalized, Normalized: normalized, Kind: domain.KindNumber}
	return rep, nil
}

// IncrementReportCount records one community spam report. The score and
// confidence grow with each report and saturate at 1.0; the category is
// overwritten only when the report names one.
func (r *SQLRepository) IncrementReportCount(ctx context.Context, number string, category string) error {
	if number == "" {
		return fmt.Errorf("%w: report requires a number", ErrInvalidInput)
	}

	// Scalar minimum is MIN on sqlite but LEAST on postgres.
	minFn := "MIN"
	if r.driver == "postgres" {
		minFn = "LEAST"
	}

	query := r.rebind(fmt.Sprintf(`
		INSERT INTO reputation (number, spam_score, report_count, category, caller_name, confidence, updated_at)
		VALUES (?, 0.3, 1, ?, '', 0.4, ?)
		ON CONFLICT (number) DO UPDATE SET
			report_count = reputation.report_count + 1,
			spam_score = %[1]s(1.0, reputation.spam_score + 0.1),
			confidence = %[1]s(1.0, reputation.confidence + 0.05),
			category = CASE WHEN excluded.category != '' THEN excluded.category ELSE reputation.category END,
			updated_at = excluded.updated_at`, minFn))

	_, err := r.db.ExecContext(ctx, query, number, category, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to increment report count: %w", err)
	}
	return nil
}

// --- Blocklist ---

func (r *SQLRepository) AddBlock(ctx context.Context, number string, note string) error {
	if number == "" {
		return fmt.Errorf("%w: block requires a number", ErrInvalidInput)
	}

	query := r.rebind(`
		INSERT INTO blocklist (number, note, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT (number) DO UPDATE SET note = excluded.note`)

	_, err := r.db.ExecContext(ctx, query, number, note, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to add block: %w", err)
	}
	return nil
}

func (r *SQLRepository) RemoveBlock(ctx context.Context, number string) error {
	query := r.rebind(`DELETE FROM blocklist WHERE number = ?`)
	_, err := r.db.ExecContext(ctx, query, number)
	if err != nil {
		return fmt.Errorf("failed to remove block: %w", err)
	}
	return nil
}

func (r *SQLRepository) IsBlocked(ctx context.Context, number string) (bool, error) {
	query := r.rebind(`SELECT 1 FROM blocklist WHERE number = ?`)

	var one int
	err := r.db.QueryRowContext(ctx, query, number).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check blocklist: %w", err)
	}
	return true, nil
}

func (r *SQLRepository) ListBlocked(ctx context.Context) ([]domain.BlockEntry, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT number, note FROM blocklist ORDER BY number`)
	if err != nil {
		return nil, fmt.Errorf("failed to list blocklist: %w", err)
	}
	defer rows.Close()

	var entries []domain.BlockEntry
	for rows.Next() {
		var e domain.BlockEntry
		if err := rows.Scan(&e.Number, &e.Note); err != nil {
			return nil, fmt.Errorf("failed to scan block entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// --- Contacts ---

func (r *SQLRepository) SaveContact(ctx context.Context, contact *domain.ContactLabel) error {
	if contact == nil || contact.Number == "" {
		return fmt.Errorf("%w: contact requires a number", ErrInvalidInput)
	}

	query := r.rebind(`
		INSERT INTO contacts (number, name)
		VALUES (?, ?)
		ON CONFLICT (number) DO UPDATE SET name = excluded.name`)

	_, err := r.db.ExecContext(ctx, query, contact.Number, contact.Name)
	if err != nil {
		return fmt.Errorf("failed to save contact: %w", err)
	}
	return nil
}

func (r *SQLRepository) GetContact(ctx context.Context, number string) (*domain.ContactLabel, error) {
	query := r.rebind(`SELECT number, name FROM contacts WHERE number = ?`)

	contact := &domain.ContactLabel{}
	err := r.db.QueryRowContext(ctx, query, number).Scan(&contact.Number, &contact.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get contact: %w", err)
	}
	return contact, nil
}

// --- Training records ---

// AppendTrainingRecord stores one labeled correction. Append-only.
func (r *SQLRepository) AppendTrainingRecord(ctx context.Context, rec *domain.TrainingRecord) error {
	if rec == nil || rec.ID == "" {
		return fmt.Errorf("%w: training record requires an id", ErrInvalidInput)
	}

	features, err := json.Marshal(rec.Features)
	if err != nil {
		return fmt.Errorf("failed to encode features: %w", err)
	}

	ts := rec.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	query := r.rebind(`
		INSERT INTO training_records (id, number, kind, labeled_spam, category, features, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)

	_, err = r.db.ExecContext(ctx, query,
		rec.ID,
		rec.Identifier.Normalized,
		int(rec.Identifier.Kind),
		boolToInt(rec.UserLabeledSpam),
		rec.UserCategory,
		string(features),
		ts,
	)
	if err != nil {
		return fmt.Errorf("failed to append training record: %w", err)
	}
	return nil
}

func (r *SQLRepository) ListTrainingRecords(ctx context.Context, since time.Time, limit int) ([]*domain.TrainingRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	query := r.rebind(`
		SELECT id, number, kind, labeled_spam, category, features, created_at
		FROM training_records
		WHERE created_at >= ?
		ORDER BY created_at ASC
		LIMIT ?`)

	rows, err := r.db.QueryContext(ctx, query, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list training records: %w", err)
	}
	defer rows.Close()

	var records []*domain.TrainingRecord
	for rows.Next() {
		var (
			rec         domain.TrainingRecord
			number      string
			kind        int
			labeledSpam int
			features    string
		)
		if err := rows.Scan(&rec.ID, &number, &kind, &labeledSpam, &rec.UserCategory, &features, &rec.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan training record: %w", err)
		}

		rec.Identifier = domain.Identifier{Raw: number, Normalized: number, Kind: domain.IdentifierKind(kind)}
		rec.UserLabeledSpam = labeledSpam != 0
		if err := json.Unmarshal([]byte(features), &rec.Features); err != nil {
			return nil, fmt.Errorf("failed to decode features: %w", err)
		}

		records = append(records, &rec)
	}
	return records, rows.Err()
}

// --- Statistics ---

// IncrementStats bumps the running counters. Counters are monotonic and
// survive restarts.
func (r *SQLRepository) IncrementStats(ctx context.Context, flaggedSpam bool) error {
	query := r.rebind(`
		UPDATE stats SET
			total_analyzed = total_analyzed + 1,
			total_flagged_spam = total_flagged_spam + ?
		WHERE id = 1`)

	_, err := r.db.ExecContext(ctx, query, boolToInt(flaggedSpam))
	if err != nil {
		return fmt.Errorf("failed to increment stats: %w", err)
	}
	return nil
}

func (r *SQLRepository) GetStats(ctx context.Context) (domain.RunningStatistics, error) {
	var stats domain.RunningStatistics
	err := r.db.QueryRowContext(ctx,
		`SELECT total_analyzed, total_flagged_spam FROM stats WHERE id = 1`,
	).Scan(&stats.TotalAnalyzed, &stats.TotalFlaggedSpam)
	if errors.Is(err, sql.ErrNoRows) {
		return stats, nil
	}
	if err != nil {
		return stats, fmt.Errorf("failed to get stats: %w", err)
	}
	return stats, nil
}

// --- Rule configs ---

func (r *SQLRepository) SaveRuleConfig(ctx context.Context, rule *domain.RuleConfig) error {
	if rule == nil || rule.ID == "" || rule.Expression == "" {
		return fmt.Errorf("%w: rule requires an id and expression", ErrInvalidInput)
	}

	now := time.Now().UTC()
	query := r.rebind(`
		INSERT INTO rule_configs (id, name, description, expression, label, delta, enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			expression = excluded.expression,
			label = excluded.label,
			delta = excluded.delta,
			enabled = excluded.enabled,
			updated_at = excluded.updated_at`)

	_, err := r.db.ExecContext(ctx, query,
		rule.ID,
		rule.Name,
		rule.Description,
		rule.Expression,
		rule.Label,
		rule.Delta,
		boolToInt(rule.Enabled),
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to save rule config: %w", err)
	}
	return nil
}

func (r *SQLRepository) ListRuleConfigs(ctx context.Context) ([]*domain.RuleConfig, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, description, expression, label, delta, enabled FROM rule_configs ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list rule configs: %w", err)
	}
	defer rows.Close()

	var rules []*domain.RuleConfig
	for rows.Next() {
		var (
			rule    domain.RuleConfig
			enabled int
		)
		if err := rows.Scan(&rule.ID, &rule.Name, &rule.Description, &rule.Expression, &rule.Label, &rule.Delta, &enabled); err != nil {
			return nil, fmt.Errorf("failed to scan rule config: %w", err)
		}
		rule.Enabled = enabled != 0
		rules = append(rules, &rule)
	}
	return rules, rows.Err()
}

// --- Screening audit ---

// SaveDecision writes one screening outcome to the audit log. Audit writes
// run off the screening hot path; callers log and drop failures.
func (r *SQLRepository) SaveDecision(ctx context.Context, dec *domain.ScreeningDecision) error {
	if dec == nil || dec.ID == "" {
		return fmt.Errorf("%w: decision requires an id", ErrInvalidInput)
	}

	reasons, err := json.Marshal(dec.Reasons)
	if err != nil {
		return fmt.Errorf("failed to encode reasons: %w", err)
	}

	ts := dec.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	query := r.rebind(`
		INSERT INTO screenings (id, number, action, caller_label, display_message, confidence, category, reasons, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	_, err = r.db.ExecContext(ctx, query,
		dec.ID,
		dec.Identifier.Normalized,
		string(dec.Action),
		dec.CallerLabel,
		dec.DisplayMessage,
		dec.Confidence,
		dec.Category,
		string(reasons),
		ts,
	)
	if err != nil {
		return fmt.Errorf("failed to save decision: %w", err)
	}
	return nil
}

func (r *SQLRepository) GetDecision(ctx context.Context, id string) (*domain.ScreeningDecision, error) {
	query := r.rebind(`
		SELECT id, number, action, caller_label, display_message, confidence, category, reasons, created_at
		FROM screenings WHERE id = ?`)

	var (
		dec     domain.ScreeningDecision
		number  string
		action  string
		reasons string
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&dec.ID,
		&number,
		&action,
		&dec.CallerLabel,
		&dec.DisplayMessage,
		&dec.Confidence,
		&dec.Category,
		&reasons,
		&dec.Timestamp,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get decision: %w", err)
	}

	dec.Identifier = domain.Identifier{Raw: number, Normalized: number, Kind: domain.KindNumber}
	dec.Action = domain.ScreeningAction(action)
	if err := json.Unmarshal([]byte(reasons), &dec.Reasons); err != nil {
		return nil, fmt.Errorf("failed to decode reasons: %w", err)
	}

	return &dec, nil
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
