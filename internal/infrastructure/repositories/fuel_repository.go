package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/you/fueltrack/domain"
)

// FuelRepositoryImpl implements domain.FuelRepository using GORM
type FuelRepositoryImpl struct {
	db *gorm.DB
}

// NewFuelRepository creates a new fuel repository
func NewFuelRepository(db *gorm.DB) domain.FuelRepository {
	return &FuelRepositoryImpl{db: db}
}

type spendingRow struct {
	UserID    uint
	Username  string
	Records   int64
	Liters    decimal.Decimal
	TotalCost decimal.Decimal
}

// CreateRecord implements domain.FuelRepository
func (r *FuelRepositoryImpl) CreateRecord(ctx context.Context, record *domain.FuelRecord) error {
	row := DBFuelRecord{
		UserID:        record.UserID,
		Date:          record.Date.UTC(),
		Mileage:       record.Mileage,
		Liters:        record.Liters,
		PricePerLiter: record.PricePerLiter,
		TotalCost:     record.TotalCost,
		Location:      record.Location,
		Notes:         record.Notes,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to create fuel record: %w", err)
	}
	record.ID = row.ID
	record.CreatedAt = row.CreatedAt
	return nil
}

// DeleteRecord implements domain.FuelRepository. Only the owner's record is removed.
func (r *FuelRepositoryImpl) DeleteRecord(ctx context.Context, id, userID uint) error {
	res := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&DBFuelRecord{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete fuel record: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}

// ListRecords implements domain.FuelRepository
func (r *FuelRepositoryImpl) ListRecords(ctx context.Context, filter domain.FuelRecordFilter) ([]domain.FuelRecord, int64, error) {
	q := r.db.WithContext(ctx).Model(&DBFuelRecord{}).Where("user_id = ?", filter.UserID)
	if filter.Month != nil {
		start, end := monthBounds(*filter.Month)
		q = q.Where("date >= ? AND date < ?", start, end)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count fuel records: %w", err)
	}

	limit, offset := page(filter.Page, filter.Limit, defaultPageSize)
	var rows []DBFuelRecord
	if err := q.Order("date DESC, id DESC").Limit(limit).Offset(offset).Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list fuel records: %w", err)
	}

	return toRecords(rows), total, nil
}

// YearRecords implements domain.FuelRepository
func (r *FuelRepositoryImpl) YearRecords(ctx context.Context, year int) ([]domain.FuelRecord, error) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	var rows []DBFuelRecord
	err := r.db.WithContext(ctx).
		Where("date >= ? AND date < ?", start, start.AddDate(1, 0, 0)).
		Order("date, id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load fuel records for %d: %w", year, err)
	}
	return toRecords(rows), nil
}

// LastMileage implements domain.FuelRepository. Zero when the user has no records.
func (r *FuelRepositoryImpl) LastMileage(ctx context.Context, userID uint) (int, error) {
	var last int
	err := r.db.WithContext(ctx).Model(&DBFuelRecord{}).
		Where("user_id = ?", userID).
		Select("COALESCE(MAX(mileage), 0)").
		Scan(&last).Error
	if err != nil {
		return 0, fmt.Errorf("failed to read last mileage: %w", err)
	}
	return last, nil
}

// MonthlySpending implements domain.FuelRepository
func (r *FuelRepositoryImpl) MonthlySpending(ctx context.Context, userID uint, month time.Time) (*domain.MonthlySpending, error) {
	start, end := monthBounds(month)

	var row spendingRow
	err := r.db.WithContext(ctx).Table("users").
		Select("users.id AS user_id, users.username AS username, COUNT(fuel_records.id) AS records, "+
			"COALESCE(SUM(fuel_records.liters), 0) AS liters, COALESCE(SUM(fuel_records.total_cost), 0) AS total_cost").
		Joins("LEFT JOIN fuel_records ON fuel_records.user_id = users.id AND fuel_records.date >= ? AND fuel_records.date < ?", start, end).
		Where("users.id = ?", userID).
		Group("users.id, users.username").
		Scan(&row).Error
	if err != nil {
		return nil, fmt.Errorf("failed to sum fuel records: %w", err)
	}
	if row.UserID == 0 {
		return nil, domain.ErrUserNotFound
	}

	out := toSpending(row)
	limit, err := r.FindLimit(ctx, userID, start)
	switch {
	case err == nil:
		l := limit.MonthlyLimit
		out.Limit = &l
	case !errors.Is(err, domain.ErrRecordNotFound):
		return nil, err
	}
	return &out, nil
}

// MonthlyReport implements domain.FuelRepository. Covers every active user.
func (r *FuelRepositoryImpl) MonthlyReport(ctx context.Context, month time.Time) ([]domain.MonthlySpending, error) {
	start, end := monthBounds(month)

	var rows []spendingRow
	err := r.db.WithContext(ctx).Table("users").
		Select("users.id AS user_id, users.username AS username, COUNT(fuel_records.id) AS records, "+
			"COALESCE(SUM(fuel_records.liters), 0) AS liters, COALESCE(SUM(fuel_records.total_cost), 0) AS total_cost").
		Joins("LEFT JOIN fuel_records ON fuel_records.user_id = users.id AND fuel_records.date >= ? AND fuel_records.date < ?", start, end).
		Where("users.is_active = ?", true).
		Group("users.id, users.username").
		Order("users.username").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to build monthly report: %w", err)
	}

	var limits []DBFuelLimit
	if err := r.db.WithContext(ctx).Where("month = ?", start).Find(&limits).Error; err != nil {
		return nil, fmt.Errorf("failed to load limits: %w", err)
	}
	byUser := make(map[uint]decimal.Decimal, len(limits))
	for _, l := range limits {
		byUser[l.UserID] = l.MonthlyLimit
	}

	report := make([]domain.MonthlySpending, 0, len(rows))
	for _, row := range rows {
		s := toSpending(row)
		if l, ok := byUser[row.UserID]; ok {
			s.Limit = &l
		}
		report = append(report, s)
	}
	return report, nil
}

// UpsertLimit implements domain.FuelRepository
func (r *FuelRepositoryImpl) UpsertLimit(ctx context.Context, limit *domain.FuelLimit) error {
	month := domain.MonthStart(limit.Month)
	row := DBFuelLimit{
		UserID:       limit.UserID,
		Month:        month,
		MonthlyLimit: limit.MonthlyLimit,
		CreatedBy:    limit.CreatedBy,
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "month"}},
		DoUpdates: clause.AssignmentColumns([]string{"monthly_limit", "created_by", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to save limit: %w", err)
	}

	stored, err := r.FindLimit(ctx, limit.UserID, month)
	if err != nil {
		return err
	}
	*limit = *stored
	return nil
}

// DeleteLimit implements domain.FuelRepository
func (r *FuelRepositoryImpl) DeleteLimit(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&DBFuelLimit{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete limit: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}

// FindLimit implements domain.FuelRepository
func (r *FuelRepositoryImpl) FindLimit(ctx context.Context, userID uint, month time.Time) (*domain.FuelLimit, error) {
	var row DBFuelLimit
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND month = ?", userID, domain.MonthStart(month)).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to load limit: %w", err)
	}
	return &domain.FuelLimit{
		ID:           row.ID,
		UserID:       row.UserID,
		Month:        row.Month.UTC(),
		MonthlyLimit: row.MonthlyLimit,
		CreatedBy:    row.CreatedBy,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}, nil
}

func monthBounds(t time.Time) (time.Time, time.Time) {
	start := domain.MonthStart(t)
	return start, start.AddDate(0, 1, 0)
}

func toRecords(rows []DBFuelRecord) []domain.FuelRecord {
	records := make([]domain.FuelRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, domain.FuelRecord{
			ID:            row.ID,
			UserID:        row.UserID,
			Date:          row.Date.UTC(),
			Mileage:       row.Mileage,
			Liters:        row.Liters,
			PricePerLiter: row.PricePerLiter,
			TotalCost:     row.TotalCost,
			Location:      row.Location,
			Notes:         row.Notes,
			CreatedAt:     row.CreatedAt,
		})
	}
	return records
}

func toSpending(row spendingRow) domain.MonthlySpending {
	return domain.MonthlySpending{
		UserID:    row.UserID,
		Username:  row.Username,
		Records:   row.Records,
		Liters:    row.Liters.Round(2),
		TotalCost: row.TotalCost.Round(2),
	}
}
