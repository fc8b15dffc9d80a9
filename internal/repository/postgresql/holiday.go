package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/holiday"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type holidayRepositoryImpl struct {
	db *database.DB
}

func NewHolidayRepository(db *database.DB) holiday.HolidayRepository {
	return &holidayRepositoryImpl{db: db}
}

// ListCategories implements holiday.HolidayRepository.
func (h *holidayRepositoryImpl) ListCategories(ctx context.Context, employeeID string, date time.Time) ([]holiday.Category, error) {
	q := GetQuerier(ctx, h.db)

	query := `
		SELECT DISTINCT h.category
		FROM holidays h
		JOIN employees e ON e.holiday_list_id = h.holiday_list_id
		WHERE e.id = $1 AND h.holiday_date = $2
		ORDER BY h.category
	`

	rows, err := q.Query(ctx, query, employeeID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to list holidays for employee %s: %w", employeeID, err)
	}

	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan holidays: %w", err)
	}

	categories := make([]holiday.Category, 0, len(names))
	for _, name := range names {
		categories = append(categories, holiday.Category(name))
	}
	return categories, nil
}
