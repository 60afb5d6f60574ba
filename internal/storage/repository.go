// Package storage persists transactions, tag rules and the derived
// category index in SQLite.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"tally/internal/core"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// CreateTransaction inserts a transaction as a new document and returns
// its generated identifier. Tags must already be stamped; they are stored
// as-is and never updated afterward.
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (string, error) {
	id := uuid.NewString()

	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("marshal tags: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO transactions (
			id, account_number, date_time, cents_amount, currency_code, tx_type,
			reference, card_id, card_display,
			merchant_name, merchant_city,
			country_code, country_alpha3, country_name,
			category_code, category_key, category_name,
			tags
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, t.AccountNumber, t.DateTime, t.CentsAmount, string(t.CurrencyCode), string(t.Type),
		t.Reference, t.Card.ID, t.Card.Display,
		t.Merchant.Name, t.Merchant.City,
		t.Merchant.Country.Code, t.Merchant.Country.Alpha3, t.Merchant.Country.Name,
		t.Merchant.Category.Code, t.Merchant.Category.Key, t.Merchant.Category.Name,
		string(tagsJSON),
	)
	if err != nil {
		return "", fmt.Errorf("insert transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"id", id,
		"merchant", t.Merchant.Name,
		"cents_amount", t.CentsAmount,
		"tags", len(tags))

	return id, nil
}

// GetTransaction loads one transaction by id, converting the stored row
// back into the typed domain shape.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	var (
		t        core.Transaction
		tagsJSON string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, account_number, date_time, cents_amount, currency_code, tx_type,
			reference, card_id, card_display,
			merchant_name, merchant_city,
			country_code, country_alpha3, country_name,
			category_code, category_key, category_name,
			tags
		FROM transactions WHERE id = ?`, id,
	).Scan(
		&t.ID, &t.AccountNumber, &t.DateTime, &t.CentsAmount, &t.CurrencyCode, &t.Type,
		&t.Reference, &t.Card.ID, &t.Card.Display,
		&t.Merchant.Name, &t.Merchant.City,
		&t.Merchant.Country.Code, &t.Merchant.Country.Alpha3, &t.Merchant.Country.Name,
		&t.Merchant.Category.Code, &t.Merchant.Category.Key, &t.Merchant.Category.Name,
		&tagsJSON,
	)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %s: %w", id, err)
	}

	if err := json.Unmarshal([]byte(tagsJSON), &t.Tags); err != nil {
		return core.Transaction{}, fmt.Errorf("unmarshal tags for %s: %w", id, err)
	}

	return t, nil
}

// ListRules returns the full current rule set in its natural collection
// order (insertion order).
func (r *SQLiteRepository) ListRules(ctx context.Context) ([]core.TagRule, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT name, merchant_name, cents_amount, amount_operator, apply_future
		FROM tag_rules ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list tag rules: %w", err)
	}
	defer rows.Close()

	var rules []core.TagRule
	for rows.Next() {
		var (
			rule         core.TagRule
			merchantName sql.NullString
			centsAmount  sql.NullInt64
			operator     sql.NullString
		)
		if err := rows.Scan(&rule.Name, &merchantName, &centsAmount, &operator, &rule.ApplyFuture); err != nil {
			return nil, fmt.Errorf("scan tag rule: %w", err)
		}
		if merchantName.Valid {
			rule.MerchantName = merchantName.String
		}
		if centsAmount.Valid {
			v := centsAmount.Int64
			rule.CentsAmount = &v
		}
		if operator.Valid {
			rule.AmountOperator = core.Operator(operator.String)
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tag rules: %w", err)
	}

	return rules, nil
}

// InsertRule appends a rule to the rule set. Rule lifecycle is externally
// owned; this exists for seeding and tests.
func (r *SQLiteRepository) InsertRule(ctx context.Context, rule core.TagRule) error {
	var (
		merchantName sql.NullString
		centsAmount  sql.NullInt64
		operator     sql.NullString
	)
	if rule.MerchantName != "" {
		merchantName = sql.NullString{String: rule.MerchantName, Valid: true}
	}
	if rule.CentsAmount != nil {
		centsAmount = sql.NullInt64{Int64: *rule.CentsAmount, Valid: true}
	}
	if rule.AmountOperator != "" {
		operator = sql.NullString{String: string(rule.AmountOperator), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tag_rules (name, merchant_name, cents_amount, amount_operator, apply_future)
		VALUES (?, ?, ?, ?, ?)`,
		rule.Name, merchantName, centsAmount, operator, rule.ApplyFuture)
	if err != nil {
		return fmt.Errorf("insert tag rule: %w", err)
	}
	return nil
}

// UpsertCategory merges a category into the lookup index keyed by its
// natural key. Absent rows are created; on conflict supplied non-empty
// fields overwrite and empty fields retain the stored value, so applying
// the same payload twice leaves the index unchanged.
func (r *SQLiteRepository) UpsertCategory(ctx context.Context, c core.Category) error {
	if c.Key == "" {
		return core.ErrEmptyCategoryKey
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO categories (key, code, name) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			code = COALESCE(NULLIF(excluded.code, ''), categories.code),
			name = COALESCE(NULLIF(excluded.name, ''), categories.name),
			updated_at = CURRENT_TIMESTAMP`,
		c.Key, c.Code, c.Name)
	if err != nil {
		return fmt.Errorf("upsert category %s: %w", c.Key, err)
	}
	return nil
}

// GetCategory loads one category from the index by key.
func (r *SQLiteRepository) GetCategory(ctx context.Context, key string) (core.Category, error) {
	var c core.Category
	err := r.db.QueryRowContext(ctx,
		`SELECT key, code, name FROM categories WHERE key = ?`, key,
	).Scan(&c.Key, &c.Code, &c.Name)
	if err != nil {
		return core.Category{}, fmt.Errorf("get category %s: %w", key, err)
	}
	return c, nil
}

// ListCategories returns the whole category index, ordered by key.
func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key, code, name FROM categories ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.Key, &c.Code, &c.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}

	return categories, nil
}

// DatedAmount is the {date_time, cents_amount} projection used by the
// monthly reducer.
type DatedAmount struct {
	DateTime string
	Cents    int64
}

// CategoryAmount is the {category name, cents_amount} projection used by
// the per-category reducer.
type CategoryAmount struct {
	Name  string
	Cents int64
}

// ScanDatedAmounts scans all transactions projected to date and amount,
// ordered ascending by date.
func (r *SQLiteRepository) ScanDatedAmounts(ctx context.Context) ([]DatedAmount, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT date_time, cents_amount FROM transactions ORDER BY date_time`)
	if err != nil {
		return nil, fmt.Errorf("scan dated amounts: %w", err)
	}
	defer rows.Close()

	var out []DatedAmount
	for rows.Next() {
		var da DatedAmount
		if err := rows.Scan(&da.DateTime, &da.Cents); err != nil {
			return nil, fmt.Errorf("scan dated amount row: %w", err)
		}
		out = append(out, da)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dated amounts: %w", err)
	}

	return out, nil
}

// ScanCategoryAmounts scans all transactions projected to merchant
// category name and amount. No ordering is required.
func (r *SQLiteRepository) ScanCategoryAmounts(ctx context.Context) ([]CategoryAmount, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT category_name, cents_amount FROM transactions`)
	if err != nil {
		return nil, fmt.Errorf("scan category amounts: %w", err)
	}
	defer rows.Close()

	var out []CategoryAmount
	for rows.Next() {
		var ca CategoryAmount
		if err := rows.Scan(&ca.Name, &ca.Cents); err != nil {
			return nil, fmt.Errorf("scan category amount row: %w", err)
		}
		out = append(out, ca)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category amounts: %w", err)
	}

	return out, nil
}

// ListUnindexed returns ids of transactions whose category has not been
// upserted into the index yet. Recovery path for lost notifications.
func (r *SQLiteRepository) ListUnindexed(ctx context.Context, limit int) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM transactions WHERE indexed = 0 ORDER BY created_at LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list unindexed transactions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan unindexed id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate unindexed ids: %w", err)
	}

	return ids, nil
}

// MarkIndexed records that the transaction's category reached the index.
func (r *SQLiteRepository) MarkIndexed(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET indexed = 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark transaction indexed: %w", err)
	}
	return nil
}
