package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed access to the billing origin data.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// InvoiceRows returns raw analysis rows for invoices issued inside
// [from, to), optionally narrowed to a zone. Ordering is arbitrary.
func (r *Repository) InvoiceRows(ctx context.Context, from, to time.Time, zoneID *int64) ([]InvoiceRow, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if zoneID != nil {
		rows, err = r.pool.Query(ctx, invoiceAnalysisByRangeAndZone, from, to, *zoneID)
	} else {
		rows, err = r.pool.Query(ctx, invoiceAnalysisByRange, from, to)
	}
	if err != nil {
		return nil, wrapQueryErr("invoice rows", err)
	}
	defer rows.Close()
	return scanInvoiceRows(rows)
}

// CustomerInvoiceRows returns every raw analysis row for one customer,
// newest first. The full lifetime is intentional: scores reflect the whole
// history, not a window.
func (r *Repository) CustomerInvoiceRows(ctx context.Context, customerID int64) ([]InvoiceRow, error) {
	rows, err := r.pool.Query(ctx, invoiceAnalysisByCustomer, customerID)
	if err != nil {
		return nil, wrapQueryErr("customer invoice rows", err)
	}
	defer rows.Close()
	return scanInvoiceRows(rows)
}

// CustomerPeriodCounts returns the grouped per-customer tallies feeding the
// ranking, with the minimum-invoice floor applied in SQL. A non-empty
// search narrows by customer name or identifier; a non-nil from/to pair
// bounds the tallied invoices to an issue-date window [from, to).
func (r *Repository) CustomerPeriodCounts(ctx context.Context, minInvoices int, search string, from, to *time.Time) ([]CustomerPeriodCounts, error) {
	query := customerPeriodCountsQuery
	var args []any
	if search != "" {
		args = append(args, "%"+search+"%")
		query += fmt.Sprintf(customerPeriodCountsSearch, len(args), len(args))
	}
	if from != nil && to != nil {
		args = append(args, *from, *to)
		query += fmt.Sprintf(customerPeriodCountsRange, len(args)-1, len(args))
	}
	args = append(args, minInvoices)
	query += fmt.Sprintf(customerPeriodCountsGroup, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapQueryErr("customer period counts", err)
	}
	defer rows.Close()

	var counts []CustomerPeriodCounts
	for rows.Next() {
		var c CustomerPeriodCounts
		if err := rows.Scan(
			&c.CustomerID, &c.Name, &c.Identifier, &c.Phone, &c.Email, &c.Address,
			&c.Total, &c.Optimal, &c.Acceptable, &c.Critical, &c.Pending, &c.AvgDaysLate,
		); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return counts, nil
}

func scanInvoiceRows(rows pgx.Rows) ([]InvoiceRow, error) {
	var result []InvoiceRow
	for rows.Next() {
		var row InvoiceRow
		if err := rows.Scan(
			&row.InvoiceID, &row.CustomerID, &row.CustomerName, &row.IssueDate,
			&row.CutoffDays, &row.FirstPaymentDate, &row.InvoiceState,
			&row.TotalAmount, &row.PaidAmount, &row.ZoneID, &row.OperatorID,
		); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func wrapQueryErr(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Errorf("analytics: %s (%s): %w", op, pgErr.Code, err)
	}
	return fmt.Errorf("analytics: %s: %w", op, err)
}
