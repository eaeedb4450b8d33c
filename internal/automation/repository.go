package automation

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Repository persists the complete rule set.
// This abstraction allows different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Repository interface {
	// Load returns all rules in stored order.
	Load(ctx context.Context) ([]Rule, error)

	// Save atomically replaces the stored rules with rules.
	Save(ctx context.Context, rules []Rule) error
}

// SQLiteRepository implements Repository using the automation_rules table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// ─── Load ───────────────────────────────────────────────────────────

// Load retrieves all rules ordered by position.
func (r *SQLiteRepository) Load(ctx context.Context) ([]Rule, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT watch_channel, do_channel, kind, threshold, min, max, delay_ns, do_value
		FROM automation_rules
		ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("querying rules: %w", err)
	}
	defer rows.Close()

	var rules []Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rules: %w", err)
	}
	return rules, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRule(row rowScanner) (Rule, error) {
	var (
		rule              Rule
		kind              string
		threshold, lo, hi sql.NullFloat64
		delayNS           sql.NullInt64
	)

	if err := row.Scan(&rule.Watch, &rule.Do, &kind, &threshold, &lo, &hi, &delayNS, &rule.DoValue); err != nil {
		return Rule{}, fmt.Errorf("scanning rule: %w", err)
	}

	switch Kind(kind) {
	case KindBangBang:
		rule.Condition = BangBang{Threshold: threshold.Float64}
	case KindRange:
		rule.Condition = Range{Min: lo.Float64, Max: hi.Float64}
	case KindDelayed:
		rule.Condition = Delayed{
			Threshold: threshold.Float64,
			Delay:     time.Duration(delayNS.Int64),
		}
	case KindRising:
		rule.Condition = Rising{Threshold: threshold.Float64}
	case KindFalling:
		rule.Condition = Falling{Threshold: threshold.Float64}
	default:
		return Rule{}, fmt.Errorf("rule %s->%s: unknown kind %q", rule.Watch, rule.Do, kind)
	}

	return rule, nil
}

// ─── Save ───────────────────────────────────────────────────────────

// Save rewrites the table inside one transaction.
func (r *SQLiteRepository) Save(ctx context.Context, rules []Rule) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	if _, err := tx.ExecContext(ctx, `DELETE FROM automation_rules`); err != nil {
		return fmt.Errorf("clearing rules: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO automation_rules
			(position, watch_channel, do_channel, kind, threshold, min, max, delay_ns, do_value)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, rule := range rules {
		threshold, lo, hi, delayNS := conditionColumns(rule.Condition)
		if _, err := stmt.ExecContext(ctx,
			i, rule.Watch, rule.Do, string(rule.Kind()),
			threshold, lo, hi, delayNS, rule.DoValue,
		); err != nil {
			return fmt.Errorf("inserting rule %s: %w", rule.Key(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing rules: %w", err)
	}
	return nil
}

// conditionColumns flattens a condition into its nullable columns.
func conditionColumns(c Condition) (threshold, lo, hi sql.NullFloat64, delayNS sql.NullInt64) {
	valid := func(v float64) sql.NullFloat64 { return sql.NullFloat64{Float64: v, Valid: true} }

	switch c := c.(type) {
	case BangBang:
		threshold = valid(c.Threshold)
	case Range:
		lo, hi = valid(c.Min), valid(c.Max)
	case Delayed:
		threshold = valid(c.Threshold)
		delayNS = sql.NullInt64{Int64: int64(c.Delay), Valid: true}
	case Rising:
		threshold = valid(c.Threshold)
	case Falling:
		threshold = valid(c.Threshold)
	}
	return threshold, lo, hi, delayNS
}
