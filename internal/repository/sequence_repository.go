package repository

import (
	"context"
	"fmt"
)

// NextRequestNumber allocates the next year-scoped request number for a
// tenant, format REQ-<year>-0001. The counter row is incremented with a
// single upsert so two concurrent creations in the same year can never
// observe the same value; called inside the create transaction, the number
// is discarded with the row if the create fails.
func (r *RequestRepository) NextRequestNumber(ctx context.Context, tenantID string, year int) (string, error) {
	var value int64
	err := r.db.WithContext(ctx).Raw(`
		INSERT INTO request_counters (tenant_id, year, value)
		VALUES (?, ?, 1)
		ON CONFLICT (tenant_id, year)
		DO UPDATE SET value = request_counters.value + 1
		RETURNING value
	`, tenantID, year).Scan(&value).Error
	if err != nil {
		return "", fmt.Errorf("failed to allocate request number: %w", err)
	}

	return fmt.Sprintf("REQ-%d-%04d", year, value), nil
}
