package storage

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/theak/crm/internal/core"
)

// CustomersRepo is a sqlx implementation of core.CustomerRepository. The
// SQL is portable across the sqlite and mysql schemas.
type CustomersRepo struct {
	db *sqlx.DB
}

// NewCustomersRepo creates a customers repository over an open database.
func NewCustomersRepo(db *sqlx.DB) *CustomersRepo {
	return &CustomersRepo{db: db}
}

var _ core.CustomerRepository = (*CustomersRepo)(nil)

// Get returns the customer for a normalized domain, or core.ErrNotFound.
func (r *CustomersRepo) Get(ctx context.Context, domain string) (*core.Customer, error) {
	var c core.Customer
	err := r.db.GetContext(ctx, &c, `
		SELECT domain, status, created_at, status_changed_at
		  FROM customers
		 WHERE domain = ?
	`, domain)
	if err == sql.ErrNoRows {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query customer: %w", err)
	}
	c.DaysSinceStatusChange = daysSince(c.StatusChangedAt)
	return &c, nil
}

// List returns all customers ordered by domain ascending.
func (r *CustomersRepo) List(ctx context.Context) ([]core.Customer, error) {
	var customers []core.Customer
	err := r.db.SelectContext(ctx, &customers, `
		SELECT domain, status, created_at, status_changed_at
		  FROM customers
		 ORDER BY domain ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	for i := range customers {
		customers[i].DaysSinceStatusChange = daysSince(customers[i].StatusChangedAt)
	}
	return customers, nil
}

// Upsert inserts or updates a customer's status inside one transaction so
// the read-then-write cannot race another writer into resetting the
// status_changed_at clock on a same-status write.
func (r *CustomersRepo) Upsert(ctx context.Context, domain string, status core.Status) (core.UpsertResult, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return core.UpsertResult{}, fmt.Errorf("begin upsert tx: %w", err)
	}
	defer tx.Rollback()

	var current core.Status
	err = tx.GetContext(ctx, &current, `SELECT status FROM customers WHERE domain = ?`, domain)

	now := time.Now().UTC()
	var res core.UpsertResult

	switch {
	case err == sql.ErrNoRows:
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO customers (domain, status, created_at, status_changed_at)
			VALUES (?, ?, ?, ?)
		`, domain, status, now, now); err != nil {
			return core.UpsertResult{}, fmt.Errorf("insert customer: %w", err)
		}
		res.Created = true

	case err != nil:
		return core.UpsertResult{}, fmt.Errorf("read current status: %w", err)

	case current != status:
		if _, err := tx.ExecContext(ctx, `
			UPDATE customers SET status = ?, status_changed_at = ? WHERE domain = ?
		`, status, now, domain); err != nil {
			return core.UpsertResult{}, fmt.Errorf("update customer status: %w", err)
		}
		res.Changed = true

	default:
		// Same status: leave status_changed_at alone so dwell time keeps
		// accumulating.
	}

	if err := tx.Commit(); err != nil {
		return core.UpsertResult{}, fmt.Errorf("commit upsert tx: %w", err)
	}
	return res, nil
}

func daysSince(t time.Time) float64 {
	days := time.Since(t).Hours() / 24
	return math.Round(days*10) / 10
}
