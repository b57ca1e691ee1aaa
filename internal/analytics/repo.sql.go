package analytics

// Queries against the billing origin schema. Invoice analysis rows join
// each invoice with its customer, the customer's billing profile (cutoff
// day and zone) and the first positive payment movement. Voided invoices,
// zero totals and inactive customers never qualify for reporting.

const invoiceAnalysisSelect = `
SELECT i.id,
       i.customer_id,
       c.name,
       i.issued_on,
       bp.cutoff_days,
       fp.first_paid_at,
       i.state,
       i.total,
       COALESCE(fp.collected, 0) AS paid_amount,
       bp.zone_id,
       fp.operator_id
FROM invoices i
JOIN customers c ON c.id = i.customer_id
JOIN billing_profiles bp ON bp.customer_id = c.id
LEFT JOIN (
    SELECT invoice_id,
           MIN(paid_at) AS first_paid_at,
           SUM(collected) AS collected,
           MIN(operator_id) AS operator_id
    FROM payment_movements
    WHERE collected > 0
    GROUP BY invoice_id
) fp ON fp.invoice_id = i.id
WHERE c.status = 'ACTIVE'
  AND i.state <> 'Voided'
  AND i.total > 0`

const invoiceAnalysisByRange = invoiceAnalysisSelect + `
  AND i.issued_on >= $1
  AND i.issued_on < $2`

const invoiceAnalysisByRangeAndZone = invoiceAnalysisByRange + `
  AND bp.zone_id = $3`

const invoiceAnalysisByCustomer = invoiceAnalysisSelect + `
  AND i.customer_id = $1
ORDER BY i.issued_on DESC`

// customerPeriodCountsQuery tallies every customer's lifetime invoices per
// classification band in one grouped pass; the HAVING clause applies the
// minimum-invoice floor so thin histories never reach the ranking engine.
//
// The CASE arms reproduce the grouped query the billing origin has always
// run, and deliberately so: with a cutoff_days above 30 an invoice can land
// in both acceptable_count and pending_count, and a payment recorded before
// issue lands in none, so the tallies need not sum to total_invoices. The
// classifier in internal/scoring is the canonical taxonomy; keep this query
// aligned with the origin rather than "fixing" either side.
const customerPeriodCountsQuery = `
SELECT c.id,
       c.name,
       COALESCE(NULLIF(c.identifier, ''), 'N/A') AS identifier,
       COALESCE(NULLIF(c.mobile, ''), NULLIF(c.phone, ''), '') AS phone,
       COALESCE(c.email, '') AS email,
       COALESCE(c.address, '') AS address,
       COUNT(i.id) AS total_invoices,
       SUM(CASE
             WHEN fp.first_paid_at IS NOT NULL
              AND fp.first_paid_at::date - i.issued_on BETWEEN 0 AND 10
             THEN 1 ELSE 0
           END) AS optimal_count,
       SUM(CASE
             WHEN fp.first_paid_at IS NOT NULL
              AND fp.first_paid_at::date - i.issued_on BETWEEN 11 AND bp.cutoff_days
             THEN 1 ELSE 0
           END) AS acceptable_count,
       SUM(CASE
             WHEN fp.first_paid_at IS NOT NULL
              AND fp.first_paid_at::date - i.issued_on > bp.cutoff_days
              AND fp.first_paid_at::date - i.issued_on <= 30
             THEN 1 ELSE 0
           END) AS critical_count,
       SUM(CASE
             WHEN fp.first_paid_at IS NULL THEN 1
             WHEN fp.first_paid_at::date - i.issued_on > 30 THEN 1
             ELSE 0
           END) AS pending_count,
       COALESCE(AVG(CASE
             WHEN fp.first_paid_at IS NOT NULL
              AND fp.first_paid_at::date - i.issued_on > bp.cutoff_days
             THEN fp.first_paid_at::date - i.issued_on - bp.cutoff_days
             ELSE 0
           END), 0) AS avg_days_late
FROM customers c
JOIN invoices i ON i.customer_id = c.id
JOIN billing_profiles bp ON bp.customer_id = c.id
LEFT JOIN (
    SELECT invoice_id, MIN(paid_at) AS first_paid_at
    FROM payment_movements
    WHERE collected > 0
    GROUP BY invoice_id
) fp ON fp.invoice_id = i.id
WHERE c.status = 'ACTIVE'
  AND i.state <> 'Voided'
  AND i.total > 0`

// Optional predicates are appended with fmt.Sprintf placeholder numbering;
// see Repository.CustomerPeriodCounts for the assembly order.
const customerPeriodCountsGroup = `
GROUP BY c.id, c.name, c.identifier, c.mobile, c.phone, c.email, c.address
HAVING COUNT(i.id) >= $%d`

const customerPeriodCountsSearch = `
  AND (c.name ILIKE $%d OR c.identifier ILIKE $%d)`

const customerPeriodCountsRange = `
  AND i.issued_on >= $%d
  AND i.issued_on < $%d`
