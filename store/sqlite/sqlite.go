/*
Package sqlite provides a SQLite-backed implementation of the persistence
collaborator contracts.

PURPOSE:
  Implements billing.TxStore and loads scholarship snapshots. In
  production the same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

TRANSACTIONAL CONTRACT:
  WithTx wraps a database transaction around the billing service's
  read-check-write sequences. The administrative fee idempotency check
  ("does an invoice already exist?") and the resulting insert execute
  inside the SAME transaction, so two concurrent requests for the same
  student+term cannot both create an invoice. Quota decrements run under
  the same boundary, avoiding lost updates.

KEY TABLES:
  fee_configs / excess_fee_configs: billing configuration
  invoices / invoice_lines:         fee and excess charges
  document_quotas:                  allowance state per student+term
  sponsors / sponsorships / awards: scholarship source records

MONEY COLUMNS:
  Monetary values are stored as their canonical fixed-point strings
  ("100.00") and re-normalized through the money kernel on load. Never
  store floats.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging): multiple readers
  don't block, single writer at a time, better crash recovery.

USAGE:
  st, err := sqlite.New("./data/sis.db")   // ":memory:" for tests
  svc := billing.NewService(st)

SEE ALSO:
  - billing/store.go: interface definitions
  - billing/store/memory.go: in-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/keystone/sis-engine/billing"
	"github.com/keystone/sis-engine/money"
	"github.com/keystone/sis-engine/scholarship"
)

const dateLayout = "2006-01-02"

// Store implements the persistence collaborator contracts using SQLite.
type Store struct {
	db *sql.DB
}

// New creates a SQLite store. Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent and lets
	// SQLite's single-writer model serialize WithTx sections.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS fee_configs (
		cycle_type TEXT PRIMARY KEY,
		fee_amount TEXT NOT NULL,
		included_units INTEGER NOT NULL,
		active INTEGER NOT NULL DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS excess_fee_configs (
		cycle_type TEXT PRIMARY KEY,
		fee_per_unit TEXT NOT NULL,
		active INTEGER NOT NULL DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS invoices (
		id TEXT PRIMARY KEY,
		student_id TEXT NOT NULL,
		term_id TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_invoices_student_term
		ON invoices(student_id, term_id);

	CREATE TABLE IF NOT EXISTS invoice_lines (
		id TEXT PRIMARY KEY,
		invoice_id TEXT NOT NULL REFERENCES invoices(id),
		line_type TEXT NOT NULL,
		description TEXT NOT NULL,
		unit_price TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		total TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_invoice_lines_invoice
		ON invoice_lines(invoice_id);

	CREATE TABLE IF NOT EXISTS document_quotas (
		id TEXT PRIMARY KEY,
		student_id TEXT NOT NULL,
		term_id TEXT NOT NULL,
		initial_units INTEGER NOT NULL,
		used_units INTEGER NOT NULL DEFAULT 0,
		active INTEGER NOT NULL DEFAULT 1,
		fee_line_item_id TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_quotas_student_term
		ON document_quotas(student_id, term_id) WHERE active = 1;

	CREATE TABLE IF NOT EXISTS sponsors (
		code TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		discount_percent TEXT NOT NULL,
		payment_mode TEXT NOT NULL,
		mou_start TEXT NOT NULL,
		mou_end TEXT,
		active INTEGER NOT NULL DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS sponsorships (
		id TEXT PRIMARY KEY,
		sponsor_code TEXT NOT NULL REFERENCES sponsors(code),
		student_id TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_sponsorships_student
		ON sponsorships(student_id);

	CREATE TABLE IF NOT EXISTS awards (
		id TEXT PRIMARY KEY,
		student_id TEXT NOT NULL,
		percent TEXT,
		fixed_amount TEXT,
		status TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT,
		sponsorship_linked INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_awards_student ON awards(student_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// BILLING STORE - billing.TxStore implementation
// =============================================================================

// querier abstracts *sql.DB and *sql.Tx so the same query methods serve
// both direct calls and WithTx sections.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type queries struct {
	q querier
}

func (s *Store) FeeConfig(ctx context.Context, cycle billing.CycleType) (*billing.FeeConfig, error) {
	return queries{s.db}.FeeConfig(ctx, cycle)
}

func (s *Store) ExcessFeeConfig(ctx context.Context, cycle billing.CycleType) (*billing.ExcessFeeConfig, error) {
	return queries{s.db}.ExcessFeeConfig(ctx, cycle)
}

func (s *Store) HasInvoice(ctx context.Context, studentID, termID string) (bool, error) {
	return queries{s.db}.HasInvoice(ctx, studentID, termID)
}

func (s *Store) CreateInvoice(ctx context.Context, inv *billing.Invoice) error {
	return queries{s.db}.CreateInvoice(ctx, inv)
}

func (s *Store) InvoiceFor(ctx context.Context, studentID, termID string) (*billing.Invoice, error) {
	return queries{s.db}.InvoiceFor(ctx, studentID, termID)
}

func (s *Store) AppendLineItem(ctx context.Context, invoiceID string, line billing.LineItem) error {
	return queries{s.db}.AppendLineItem(ctx, invoiceID, line)
}

func (s *Store) ActiveQuota(ctx context.Context, studentID, termID string) (*billing.DocumentQuota, error) {
	return queries{s.db}.ActiveQuota(ctx, studentID, termID)
}

func (s *Store) CreateQuota(ctx context.Context, q *billing.DocumentQuota) error {
	return queries{s.db}.CreateQuota(ctx, q)
}

func (s *Store) SetQuotaUsage(ctx context.Context, quotaID string, usedUnits int) error {
	return queries{s.db}.SetQuotaUsage(ctx, quotaID, usedUnits)
}

// WithTx runs fn inside one database transaction. fn returning an error
// rolls back; nil commits.
func (s *Store) WithTx(ctx context.Context, fn func(billing.Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(queries{tx}); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

var (
	_ billing.TxStore = (*Store)(nil)
	_ billing.Store   = queries{}
)

func (q queries) FeeConfig(ctx context.Context, cycle billing.CycleType) (*billing.FeeConfig, error) {
	row := q.q.QueryRowContext(ctx,
		`SELECT cycle_type, fee_amount, included_units FROM fee_configs
		 WHERE cycle_type = ? AND active = 1`, string(cycle))

	var cfg billing.FeeConfig
	var amount string
	if err := row.Scan(&cfg.CycleType, &amount, &cfg.IncludedUnits); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, billing.ErrNotFound
		}
		return nil, err
	}
	fee, err := money.Normalize(amount)
	if err != nil {
		return nil, err
	}
	cfg.FeeAmount = fee
	cfg.Active = true
	return &cfg, nil
}

func (q queries) ExcessFeeConfig(ctx context.Context, cycle billing.CycleType) (*billing.ExcessFeeConfig, error) {
	row := q.q.QueryRowContext(ctx,
		`SELECT cycle_type, fee_per_unit FROM excess_fee_configs
		 WHERE cycle_type = ? AND active = 1`, string(cycle))

	var cfg billing.ExcessFeeConfig
	var perUnit string
	if err := row.Scan(&cfg.CycleType, &perUnit); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, billing.ErrNotFound
		}
		return nil, err
	}
	fee, err := money.Normalize(perUnit)
	if err != nil {
		return nil, err
	}
	cfg.FeePerUnit = fee
	cfg.Active = true
	return &cfg, nil
}

func (q queries) HasInvoice(ctx context.Context, studentID, termID string) (bool, error) {
	var n int
	err := q.q.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM invoices WHERE student_id = ? AND term_id = ?`,
		studentID, termID).Scan(&n)
	return n > 0, err
}

func (q queries) CreateInvoice(ctx context.Context, inv *billing.Invoice) error {
	_, err := q.q.ExecContext(ctx,
		`INSERT INTO invoices (id, student_id, term_id, created_at) VALUES (?, ?, ?, ?)`,
		inv.ID, inv.StudentID, inv.TermID, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return err
	}
	for _, line := range inv.Lines {
		if err := q.AppendLineItem(ctx, inv.ID, line); err != nil {
			return err
		}
	}
	return nil
}

func (q queries) InvoiceFor(ctx context.Context, studentID, termID string) (*billing.Invoice, error) {
	row := q.q.QueryRowContext(ctx,
		`SELECT id FROM invoices WHERE student_id = ? AND term_id = ? LIMIT 1`,
		studentID, termID)

	inv := billing.Invoice{StudentID: studentID, TermID: termID}
	if err := row.Scan(&inv.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, billing.ErrNotFound
		}
		return nil, err
	}

	rows, err := q.q.QueryContext(ctx,
		`SELECT id, line_type, description, unit_price, quantity, total
		 FROM invoice_lines WHERE invoice_id = ? ORDER BY rowid`, inv.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var line billing.LineItem
		var unitPrice, total string
		if err := rows.Scan(&line.ID, &line.Type, &line.Description, &unitPrice, &line.Quantity, &total); err != nil {
			return nil, err
		}
		if line.UnitPrice, err = money.Normalize(unitPrice); err != nil {
			return nil, err
		}
		if line.Total, err = money.Normalize(total); err != nil {
			return nil, err
		}
		inv.Lines = append(inv.Lines, line)
	}
	return &inv, rows.Err()
}

func (q queries) AppendLineItem(ctx context.Context, invoiceID string, line billing.LineItem) error {
	_, err := q.q.ExecContext(ctx,
		`INSERT INTO invoice_lines (id, invoice_id, line_type, description, unit_price, quantity, total)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		line.ID, invoiceID, string(line.Type), line.Description,
		line.UnitPrice.String(), line.Quantity, line.Total.String())
	return err
}

func (q queries) ActiveQuota(ctx context.Context, studentID, termID string) (*billing.DocumentQuota, error) {
	row := q.q.QueryRowContext(ctx,
		`SELECT id, student_id, term_id, initial_units, used_units, fee_line_item_id
		 FROM document_quotas WHERE student_id = ? AND term_id = ? AND active = 1 LIMIT 1`,
		studentID, termID)

	var quota billing.DocumentQuota
	var feeLine sql.NullString
	if err := row.Scan(&quota.ID, &quota.StudentID, &quota.TermID,
		&quota.InitialUnits, &quota.UsedUnits, &feeLine); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, billing.ErrNotFound
		}
		return nil, err
	}
	quota.Active = true
	quota.FeeLineItemID = feeLine.String
	return &quota, nil
}

func (q queries) CreateQuota(ctx context.Context, quota *billing.DocumentQuota) error {
	_, err := q.q.ExecContext(ctx,
		`INSERT INTO document_quotas (id, student_id, term_id, initial_units, used_units, active, fee_line_item_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		quota.ID, quota.StudentID, quota.TermID,
		quota.InitialUnits, quota.UsedUnits, boolToInt(quota.Active), quota.FeeLineItemID)
	return err
}

func (q queries) SetQuotaUsage(ctx context.Context, quotaID string, usedUnits int) error {
	res, err := q.q.ExecContext(ctx,
		`UPDATE document_quotas SET used_units = ? WHERE id = ?`, usedUnits, quotaID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return billing.ErrNotFound
	}
	return nil
}

// =============================================================================
// CONFIG SEEDING
// =============================================================================

// SaveFeeConfig upserts an administrative fee configuration.
func (s *Store) SaveFeeConfig(ctx context.Context, cfg billing.FeeConfig) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO fee_configs (cycle_type, fee_amount, included_units, active)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(cycle_type) DO UPDATE SET
			fee_amount = excluded.fee_amount,
			included_units = excluded.included_units,
			active = excluded.active`,
		string(cfg.CycleType), cfg.FeeAmount.String(), cfg.IncludedUnits, boolToInt(cfg.Active))
	return err
}

// SaveExcessFeeConfig upserts an excess-rate configuration.
func (s *Store) SaveExcessFeeConfig(ctx context.Context, cfg billing.ExcessFeeConfig) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO excess_fee_configs (cycle_type, fee_per_unit, active)
		 VALUES (?, ?, ?)
		 ON CONFLICT(cycle_type) DO UPDATE SET
			fee_per_unit = excluded.fee_per_unit,
			active = excluded.active`,
		string(cfg.CycleType), cfg.FeePerUnit.String(), boolToInt(cfg.Active))
	return err
}

// =============================================================================
// SCHOLARSHIP RECORDS
// =============================================================================

// SaveSponsor upserts a sponsor record.
func (s *Store) SaveSponsor(ctx context.Context, sp scholarship.Sponsor) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sponsors (code, name, discount_percent, payment_mode, mou_start, mou_end, active)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(code) DO UPDATE SET
			name = excluded.name,
			discount_percent = excluded.discount_percent,
			payment_mode = excluded.payment_mode,
			mou_start = excluded.mou_start,
			mou_end = excluded.mou_end,
			active = excluded.active`,
		sp.Code, sp.Name, sp.DefaultDiscountPercent.String(), string(sp.PaymentMode),
		sp.MOUStart.Format(dateLayout), formatDatePtr(sp.MOUEnd), boolToInt(sp.Active))
	return err
}

// SaveSponsorship inserts a sponsor-student relationship.
func (s *Store) SaveSponsorship(ctx context.Context, id string, sp scholarship.Sponsorship) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sponsorships (id, sponsor_code, student_id, start_date, end_date)
		 VALUES (?, ?, ?, ?, ?)`,
		id, sp.Sponsor.Code, sp.StudentID, sp.Start.Format(dateLayout), formatDatePtr(sp.End))
	return err
}

// SaveAward inserts an individual scholarship award.
func (s *Store) SaveAward(ctx context.Context, a scholarship.Award) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO awards (id, student_id, percent, fixed_amount, status, start_date, end_date, sponsorship_linked)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.StudentID, formatAmountPtr(a.Percent), formatAmountPtr(a.FixedAmount),
		string(a.Status), a.Start.Format(dateLayout), formatDatePtr(a.End),
		boolToInt(a.SponsorshipLinked))
	return err
}

// ScholarshipSnapshot loads every sponsorship and award for a student,
// ready for the resolver.
func (s *Store) ScholarshipSnapshot(ctx context.Context, studentID string) (scholarship.Snapshot, error) {
	var snap scholarship.Snapshot

	rows, err := s.db.QueryContext(ctx,
		`SELECT sp.student_id, sp.start_date, sp.end_date,
		        o.code, o.name, o.discount_percent, o.payment_mode, o.mou_start, o.mou_end, o.active
		 FROM sponsorships sp JOIN sponsors o ON o.code = sp.sponsor_code
		 WHERE sp.student_id = ?`, studentID)
	if err != nil {
		return snap, err
	}
	defer rows.Close()

	for rows.Next() {
		var rel scholarship.Sponsorship
		var start, mouStart, percent string
		var end, mouEnd sql.NullString
		var active int
		if err := rows.Scan(&rel.StudentID, &start, &end,
			&rel.Sponsor.Code, &rel.Sponsor.Name, &percent, &rel.Sponsor.PaymentMode,
			&mouStart, &mouEnd, &active); err != nil {
			return snap, err
		}
		if rel.Start, err = time.Parse(dateLayout, start); err != nil {
			return snap, err
		}
		if rel.End, err = parseDatePtr(end); err != nil {
			return snap, err
		}
		if rel.Sponsor.DefaultDiscountPercent, err = money.Normalize(percent); err != nil {
			return snap, err
		}
		if rel.Sponsor.MOUStart, err = time.Parse(dateLayout, mouStart); err != nil {
			return snap, err
		}
		if rel.Sponsor.MOUEnd, err = parseDatePtr(mouEnd); err != nil {
			return snap, err
		}
		rel.Sponsor.Active = active == 1
		snap.Sponsorships = append(snap.Sponsorships, rel)
	}
	if err := rows.Err(); err != nil {
		return snap, err
	}

	awardRows, err := s.db.QueryContext(ctx,
		`SELECT id, student_id, percent, fixed_amount, status, start_date, end_date, sponsorship_linked
		 FROM awards WHERE student_id = ?`, studentID)
	if err != nil {
		return snap, err
	}
	defer awardRows.Close()

	for awardRows.Next() {
		var a scholarship.Award
		var percent, fixed, end sql.NullString
		var start string
		var linked int
		if err := awardRows.Scan(&a.ID, &a.StudentID, &percent, &fixed, &a.Status, &start, &end, &linked); err != nil {
			return snap, err
		}
		if a.Percent, err = parseAmountPtr(percent); err != nil {
			return snap, err
		}
		if a.FixedAmount, err = parseAmountPtr(fixed); err != nil {
			return snap, err
		}
		if a.Start, err = time.Parse(dateLayout, start); err != nil {
			return snap, err
		}
		if a.End, err = parseDatePtr(end); err != nil {
			return snap, err
		}
		a.SponsorshipLinked = linked == 1
		snap.Awards = append(snap.Awards, a)
	}
	return snap, awardRows.Err()
}

// =============================================================================
// SCAN HELPERS
// =============================================================================

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatDatePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(dateLayout)
}

func parseDatePtr(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func formatAmountPtr(a *money.Amount) any {
	if a == nil {
		return nil
	}
	return a.String()
}

func parseAmountPtr(s sql.NullString) (*money.Amount, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	a, err := money.Normalize(s.String)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
