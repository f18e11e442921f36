package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // postgres driver
	"github.com/shopspring/decimal"

	"github.com/hrushi1881/fintrack-cycles/internal/recurrence"
)

// PostgresStore implements Store on top of database/sql + lib/pq.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens and pings the database.
func NewPostgresStore(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// EnsureSchema creates the tables when they do not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS recurrence_rules (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT '',
			nature TEXT NOT NULL DEFAULT 'other',
			frequency TEXT NOT NULL,
			interval INTEGER NOT NULL DEFAULT 1,
			anchor_day INTEGER NOT NULL DEFAULT 0,
			custom_unit TEXT NOT NULL DEFAULT '',
			start_date DATE NOT NULL,
			end_date DATE,
			base_amount NUMERIC(18,4) NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS pricing_phases (
			rule_id TEXT NOT NULL REFERENCES recurrence_rules(id) ON DELETE CASCADE,
			start_date DATE NOT NULL,
			amount NUMERIC(18,4) NOT NULL,
			label TEXT NOT NULL DEFAULT '',
			prorated BOOLEAN NOT NULL DEFAULT FALSE
		)`,
		`CREATE TABLE IF NOT EXISTS cycle_overrides (
			rule_id TEXT NOT NULL REFERENCES recurrence_rules(id) ON DELETE CASCADE,
			cycle_number INTEGER NOT NULL,
			override_date DATE,
			amount NUMERIC(18,4),
			minimum_amount NUMERIC(18,4),
			notes TEXT,
			PRIMARY KEY (rule_id, cycle_number)
		)`,
		`CREATE TABLE IF NOT EXISTS cycle_notes (
			rule_id TEXT NOT NULL REFERENCES recurrence_rules(id) ON DELETE CASCADE,
			cycle_number INTEGER NOT NULL,
			note TEXT NOT NULL,
			PRIMARY KEY (rule_id, cycle_number)
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id TEXT PRIMARY KEY,
			tx_date DATE NOT NULL,
			amount NUMERIC(18,4) NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS scheduled_payments (
			id TEXT PRIMARY KEY,
			rule_id TEXT NOT NULL REFERENCES recurrence_rules(id) ON DELETE CASCADE,
			due_date DATE NOT NULL,
			amount NUMERIC(18,4) NOT NULL,
			description TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS bills (
			id TEXT PRIMARY KEY,
			rule_id TEXT NOT NULL REFERENCES recurrence_rules(id) ON DELETE CASCADE,
			title TEXT NOT NULL DEFAULT '',
			due_date DATE NOT NULL,
			status TEXT NOT NULL,
			amount NUMERIC(18,4) NOT NULL,
			minimum_amount NUMERIC(18,4),
			cycle_number INTEGER NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensuring schema: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) ListRules(ctx context.Context) ([]recurrence.Rule, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, title, category, nature, frequency, interval,
		anchor_day, custom_unit, start_date, end_date, base_amount
		FROM recurrence_rules ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing rules: %w", err)
	}
	defer rows.Close()

	var rules []recurrence.Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing rules: %w", err)
	}
	for i := range rules {
		phases, err := s.phases(ctx, rules[i].ID)
		if err != nil {
			return nil, err
		}
		rules[i].Phases = phases
	}
	return rules, nil
}

func (s *PostgresStore) Rule(ctx context.Context, id string) (recurrence.Rule, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, title, category, nature, frequency, interval,
		anchor_day, custom_unit, start_date, end_date, base_amount
		FROM recurrence_rules WHERE id = $1`, id)

	rule, err := scanRule(row)
	if err == sql.ErrNoRows {
		return recurrence.Rule{}, ErrRuleNotFound
	}
	if err != nil {
		return recurrence.Rule{}, err
	}
	rule.Phases, err = s.phases(ctx, id)
	if err != nil {
		return recurrence.Rule{}, err
	}
	return rule, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRule(row rowScanner) (recurrence.Rule, error) {
	var (
		rule    recurrence.Rule
		nature  string
		freq    string
		unit    string
		endDate sql.NullTime
	)
	err := row.Scan(&rule.ID, &rule.Title, &rule.Category, &nature, &freq, &rule.Interval,
		&rule.AnchorDay, &unit, &rule.Start, &endDate, &rule.BaseAmount)
	if err == sql.ErrNoRows {
		return recurrence.Rule{}, err
	}
	if err != nil {
		return recurrence.Rule{}, fmt.Errorf("scanning rule: %w", err)
	}
	rule.Nature = recurrence.Nature(nature)
	rule.Frequency = recurrence.Frequency(freq)
	rule.CustomUnit = recurrence.CustomUnit(unit)
	if endDate.Valid {
		end := endDate.Time
		rule.End = &end
	}
	return rule, nil
}

func (s *PostgresStore) phases(ctx context.Context, ruleID string) ([]recurrence.PricingPhase, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT start_date, amount, label, prorated
		FROM pricing_phases WHERE rule_id = $1 ORDER BY start_date`, ruleID)
	if err != nil {
		return nil, fmt.Errorf("loading pricing phases: %w", err)
	}
	defer rows.Close()

	var phases []recurrence.PricingPhase
	for rows.Next() {
		var p recurrence.PricingPhase
		if err := rows.Scan(&p.Start, &p.Amount, &p.Label, &p.Prorated); err != nil {
			return nil, fmt.Errorf("scanning pricing phase: %w", err)
		}
		phases = append(phases, p)
	}
	return phases, rows.Err()
}

func (s *PostgresStore) SaveRule(ctx context.Context, rule recurrence.Rule) error {
	txn, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning rule save: %w", err)
	}
	defer txn.Rollback()

	var end sql.NullTime
	if rule.End != nil {
		end = sql.NullTime{Time: *rule.End, Valid: true}
	}
	_, err = txn.ExecContext(ctx, `INSERT INTO recurrence_rules
		(id, title, category, nature, frequency, interval, anchor_day, custom_unit, start_date, end_date, base_amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title, category = EXCLUDED.category, nature = EXCLUDED.nature,
			frequency = EXCLUDED.frequency, interval = EXCLUDED.interval,
			anchor_day = EXCLUDED.anchor_day, custom_unit = EXCLUDED.custom_unit,
			start_date = EXCLUDED.start_date, end_date = EXCLUDED.end_date,
			base_amount = EXCLUDED.base_amount`,
		rule.ID, rule.Title, rule.Category, string(rule.Nature), string(rule.Frequency),
		rule.Interval, rule.AnchorDay, string(rule.CustomUnit), rule.Start, end, rule.BaseAmount)
	if err != nil {
		return fmt.Errorf("saving rule: %w", err)
	}

	if _, err := txn.ExecContext(ctx, `DELETE FROM pricing_phases WHERE rule_id = $1`, rule.ID); err != nil {
		return fmt.Errorf("replacing pricing phases: %w", err)
	}
	for _, p := range rule.Phases {
		_, err := txn.ExecContext(ctx, `INSERT INTO pricing_phases (rule_id, start_date, amount, label, prorated)
			VALUES ($1, $2, $3, $4, $5)`,
			rule.ID, p.Start, p.Amount, p.Label, p.Prorated)
		if err != nil {
			return fmt.Errorf("saving pricing phase: %w", err)
		}
	}
	return txn.Commit()
}

func (s *PostgresStore) Overrides(ctx context.Context, ruleID string) (map[int]recurrence.Override, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT cycle_number, override_date, amount, minimum_amount, notes
		FROM cycle_overrides WHERE rule_id = $1`, ruleID)
	if err != nil {
		return nil, fmt.Errorf("loading overrides: %w", err)
	}
	defer rows.Close()

	out := make(map[int]recurrence.Override)
	for rows.Next() {
		var (
			ov     recurrence.Override
			date   sql.NullTime
			amount decimal.NullDecimal
			min    decimal.NullDecimal
			notes  sql.NullString
		)
		if err := rows.Scan(&ov.CycleNumber, &date, &amount, &min, &notes); err != nil {
			return nil, fmt.Errorf("scanning override: %w", err)
		}
		if date.Valid {
			d := date.Time
			ov.Date = &d
		}
		if amount.Valid {
			a := amount.Decimal
			ov.Amount = &a
		}
		if min.Valid {
			m := min.Decimal
			ov.MinimumAmount = &m
		}
		if notes.Valid {
			n := notes.String
			ov.Notes = &n
		}
		out[ov.CycleNumber] = ov
	}
	return out, rows.Err()
}

func (s *PostgresStore) SaveOverride(ctx context.Context, ruleID string, ov recurrence.Override) error {
	var (
		date   sql.NullTime
		amount decimal.NullDecimal
		min    decimal.NullDecimal
		notes  sql.NullString
	)
	if ov.Date != nil {
		date = sql.NullTime{Time: *ov.Date, Valid: true}
	}
	if ov.Amount != nil {
		amount = decimal.NullDecimal{Decimal: *ov.Amount, Valid: true}
	}
	if ov.MinimumAmount != nil {
		min = decimal.NullDecimal{Decimal: *ov.MinimumAmount, Valid: true}
	}
	if ov.Notes != nil {
		notes = sql.NullString{String: *ov.Notes, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `INSERT INTO cycle_overrides
		(rule_id, cycle_number, override_date, amount, minimum_amount, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (rule_id, cycle_number) DO UPDATE SET
			override_date = EXCLUDED.override_date, amount = EXCLUDED.amount,
			minimum_amount = EXCLUDED.minimum_amount, notes = EXCLUDED.notes`,
		ruleID, ov.CycleNumber, date, amount, min, notes)
	if err != nil {
		return fmt.Errorf("saving override: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteOverride(ctx context.Context, ruleID string, cycleNumber int) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM cycle_overrides WHERE rule_id = $1 AND cycle_number = $2`,
		ruleID, cycleNumber)
	if err != nil {
		return fmt.Errorf("deleting override: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrOverrideNotFound
	}
	return nil
}

func (s *PostgresStore) Notes(ctx context.Context, ruleID string) (map[int]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT cycle_number, note FROM cycle_notes WHERE rule_id = $1`, ruleID)
	if err != nil {
		return nil, fmt.Errorf("loading notes: %w", err)
	}
	defer rows.Close()

	out := make(map[int]string)
	for rows.Next() {
		var n int
		var note string
		if err := rows.Scan(&n, &note); err != nil {
			return nil, fmt.Errorf("scanning note: %w", err)
		}
		out[n] = note
	}
	return out, rows.Err()
}

func (s *PostgresStore) SaveNote(ctx context.Context, ruleID string, cycleNumber int, text string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO cycle_notes (rule_id, cycle_number, note)
		VALUES ($1, $2, $3)
		ON CONFLICT (rule_id, cycle_number) DO UPDATE SET note = EXCLUDED.note`,
		ruleID, cycleNumber, text)
	if err != nil {
		return fmt.Errorf("saving note: %w", err)
	}
	return nil
}

func (s *PostgresStore) Transactions(ctx context.Context, since time.Time) ([]recurrence.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, tx_date, amount, description, category
		FROM transactions WHERE tx_date >= $1 ORDER BY tx_date, id`, since)
	if err != nil {
		return nil, fmt.Errorf("loading transactions: %w", err)
	}
	defer rows.Close()

	var txs []recurrence.Transaction
	for rows.Next() {
		var tx recurrence.Transaction
		if err := rows.Scan(&tx.ID, &tx.Date, &tx.Amount, &tx.Description, &tx.Category); err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

func (s *PostgresStore) AddTransactions(ctx context.Context, txs []recurrence.Transaction) error {
	if len(txs) == 0 {
		return nil
	}
	txn, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction import: %w", err)
	}
	defer txn.Rollback()

	stmt, err := txn.PrepareContext(ctx, `INSERT INTO transactions (id, tx_date, amount, description, category)
		VALUES ($1, $2, $3, $4, $5) ON CONFLICT (id) DO NOTHING`)
	if err != nil {
		return fmt.Errorf("preparing transaction insert: %w", err)
	}
	defer stmt.Close()

	for _, tx := range txs {
		if _, err := stmt.ExecContext(ctx, tx.ID, tx.Date, tx.Amount, tx.Description, tx.Category); err != nil {
			return fmt.Errorf("inserting transaction %s: %w", tx.ID, err)
		}
	}
	return txn.Commit()
}

func (s *PostgresStore) ScheduledPayments(ctx context.Context, ruleID string) ([]recurrence.ScheduledPayment, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, due_date, amount, description
		FROM scheduled_payments WHERE rule_id = $1 ORDER BY due_date, id`, ruleID)
	if err != nil {
		return nil, fmt.Errorf("loading scheduled payments: %w", err)
	}
	defer rows.Close()

	var pays []recurrence.ScheduledPayment
	for rows.Next() {
		var p recurrence.ScheduledPayment
		if err := rows.Scan(&p.ID, &p.Date, &p.Amount, &p.Description); err != nil {
			return nil, fmt.Errorf("scanning scheduled payment: %w", err)
		}
		pays = append(pays, p)
	}
	return pays, rows.Err()
}

func (s *PostgresStore) Bills(ctx context.Context, ruleID string) ([]recurrence.Bill, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, title, due_date, status, amount, minimum_amount, cycle_number
		FROM bills WHERE rule_id = $1 ORDER BY due_date, id`, ruleID)
	if err != nil {
		return nil, fmt.Errorf("loading bills: %w", err)
	}
	defer rows.Close()

	var bills []recurrence.Bill
	for rows.Next() {
		var (
			b      recurrence.Bill
			status string
			min    decimal.NullDecimal
		)
		if err := rows.Scan(&b.ID, &b.Title, &b.DueDate, &status, &b.Amount, &min, &b.CycleNumber); err != nil {
			return nil, fmt.Errorf("scanning bill: %w", err)
		}
		b.Status = recurrence.BillStatus(status)
		if min.Valid {
			m := min.Decimal
			b.MinimumAmount = &m
		}
		bills = append(bills, b)
	}
	return bills, rows.Err()
}

func (s *PostgresStore) UpdateBill(ctx context.Context, ruleID string, bill recurrence.Bill) error {
	var min decimal.NullDecimal
	if bill.MinimumAmount != nil {
		min = decimal.NullDecimal{Decimal: *bill.MinimumAmount, Valid: true}
	}
	res, err := s.db.ExecContext(ctx, `UPDATE bills SET title = $3, due_date = $4, status = $5,
		amount = $6, minimum_amount = $7, cycle_number = $8
		WHERE rule_id = $1 AND id = $2`,
		ruleID, bill.ID, bill.Title, bill.DueDate, string(bill.Status), bill.Amount, min, bill.CycleNumber)
	if err != nil {
		return fmt.Errorf("updating bill %s: %w", bill.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrBillNotFound
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
