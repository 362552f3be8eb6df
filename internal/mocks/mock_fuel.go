package mocks

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/you/fueltrack/domain"
)

// MockFuelRepository implements domain.FuelRepository interface for testing
type MockFuelRepository struct {
	CreateRecordFunc    func(ctx context.Context, record *domain.FuelRecord) error
	DeleteRecordFunc    func(ctx context.Context, id, userID uint) error
	ListRecordsFunc     func(ctx context.Context, filter domain.FuelRecordFilter) ([]domain.FuelRecord, int64, error)
	LastMileageFunc     func(ctx context.Context, userID uint) (int, error)
	MonthlySpendingFunc func(ctx context.Context, userID uint, month time.Time) (*domain.MonthlySpending, error)
	MonthlyReportFunc   func(ctx context.Context, month time.Time) ([]domain.MonthlySpending, error)
	YearRecordsFunc     func(ctx context.Context, year int) ([]domain.FuelRecord, error)
	UpsertLimitFunc     func(ctx context.Context, limit *domain.FuelLimit) error
	DeleteLimitFunc     func(ctx context.Context, id uint) error
	FindLimitFunc       func(ctx context.Context, userID uint, month time.Time) (*domain.FuelLimit, error)
}

// NewMockFuelRepository creates a new MockFuelRepository with default behaviors
func NewMockFuelRepository() *MockFuelRepository {
	return &MockFuelRepository{}
}

// CreateRecord stores a fuel record
func (m *MockFuelRepository) CreateRecord(ctx context.Context, record *domain.FuelRecord) error {
	if m.CreateRecordFunc != nil {
		return m.CreateRecordFunc(ctx, record)
	}
	record.ID = 1
	return nil
}

// DeleteRecord removes an owned record
func (m *MockFuelRepository) DeleteRecord(ctx context.Context, id, userID uint) error {
	if m.DeleteRecordFunc != nil {
		return m.DeleteRecordFunc(ctx, id, userID)
	}
	return nil
}

// ListRecords lists records
func (m *MockFuelRepository) ListRecords(ctx context.Context, filter domain.FuelRecordFilter) ([]domain.FuelRecord, int64, error) {
	if m.ListRecordsFunc != nil {
		return m.ListRecordsFunc(ctx, filter)
	}
	return nil, 0, nil
}

// LastMileage returns the highest recorded mileage
func (m *MockFuelRepository) LastMileage(ctx context.Context, userID uint) (int, error) {
	if m.LastMileageFunc != nil {
		return m.LastMileageFunc(ctx, userID)
	}
	return 0, nil
}

// MonthlySpending sums one user's month
func (m *MockFuelRepository) MonthlySpending(ctx context.Context, userID uint, month time.Time) (*domain.MonthlySpending, error) {
	if m.MonthlySpendingFunc != nil {
		return m.MonthlySpendingFunc(ctx, userID, month)
	}
	return &domain.MonthlySpending{UserID: userID, Liters: decimal.Zero, TotalCost: decimal.Zero}, nil
}

// MonthlyReport sums every active user's month
func (m *MockFuelRepository) MonthlyReport(ctx context.Context, month time.Time) ([]domain.MonthlySpending, error) {
	if m.MonthlyReportFunc != nil {
		return m.MonthlyReportFunc(ctx, month)
	}
	return nil, nil
}

// YearRecords lists a year's records
func (m *MockFuelRepository) YearRecords(ctx context.Context, year int) ([]domain.FuelRecord, error) {
	if m.YearRecordsFunc != nil {
		return m.YearRecordsFunc(ctx, year)
	}
	return nil, nil
}

// UpsertLimit stores a monthly limit
func (m *MockFuelRepository) UpsertLimit(ctx context.Context, limit *domain.FuelLimit) error {
	if m.UpsertLimitFunc != nil {
		return m.UpsertLimitFunc(ctx, limit)
	}
	limit.ID = 1
	return nil
}

// DeleteLimit removes a monthly limit
func (m *MockFuelRepository) DeleteLimit(ctx context.Context, id uint) error {
	if m.DeleteLimitFunc != nil {
		return m.DeleteLimitFunc(ctx, id)
	}
	return nil
}

// FindLimit loads a monthly limit
func (m *MockFuelRepository) FindLimit(ctx context.Context, userID uint, month time.Time) (*domain.FuelLimit, error) {
	if m.FindLimitFunc != nil {
		return m.FindLimitFunc(ctx, userID, month)
	}
	return nil, domain.ErrRecordNotFound
}

// MockFuelService implements domain.FuelService interface for testing
type MockFuelService struct {
	AddRecordFunc    func(ctx context.Context, req domain.AddFuelRecordRequest) (*domain.FuelRecord, error)
	ListRecordsFunc  func(ctx context.Context, filter domain.FuelRecordFilter) ([]domain.FuelRecord, int64, error)
	DeleteRecordFunc func(ctx context.Context, userID, recordID uint, client domain.ClientContext) error
	SummaryFunc      func(ctx context.Context, userID uint, month time.Time) (*domain.MonthlySpending, error)
	ReportFunc       func(ctx context.Context, month time.Time) ([]domain.MonthlySpending, error)
	YearlyReportFunc func(ctx context.Context, year int) (*domain.YearlyReport, error)
	SetLimitFunc     func(ctx context.Context, actor *domain.CurrentUser, userID uint, month time.Time, amount decimal.Decimal, client domain.ClientContext) (*domain.FuelLimit, error)
	DeleteLimitFunc  func(ctx context.Context, actor *domain.CurrentUser, limitID uint, client domain.ClientContext) error
}

// NewMockFuelService creates a new MockFuelService with default behaviors
func NewMockFuelService() *MockFuelService {
	return &MockFuelService{}
}

// AddRecord records a purchase
func (m *MockFuelService) AddRecord(ctx context.Context, req domain.AddFuelRecordRequest) (*domain.FuelRecord, error) {
	if m.AddRecordFunc != nil {
		return m.AddRecordFunc(ctx, req)
	}
	return &domain.FuelRecord{
		ID: 1, UserID: req.UserID, Date: req.Date, Mileage: req.Mileage,
		Liters: req.Liters, PricePerLiter: req.PricePerLiter,
		TotalCost: req.Liters.Mul(req.PricePerLiter).Round(2),
	}, nil
}

// ListRecords lists the user's records
func (m *MockFuelService) ListRecords(ctx context.Context, filter domain.FuelRecordFilter) ([]domain.FuelRecord, int64, error) {
	if m.ListRecordsFunc != nil {
		return m.ListRecordsFunc(ctx, filter)
	}
	return nil, 0, nil
}

// DeleteRecord removes an owned record
func (m *MockFuelService) DeleteRecord(ctx context.Context, userID, recordID uint, client domain.ClientContext) error {
	if m.DeleteRecordFunc != nil {
		return m.DeleteRecordFunc(ctx, userID, recordID, client)
	}
	return nil
}

// Summary returns one user's month
func (m *MockFuelService) Summary(ctx context.Context, userID uint, month time.Time) (*domain.MonthlySpending, error) {
	if m.SummaryFunc != nil {
		return m.SummaryFunc(ctx, userID, month)
	}
	return &domain.MonthlySpending{UserID: userID}, nil
}

// Report returns every active user's month
func (m *MockFuelService) Report(ctx context.Context, month time.Time) ([]domain.MonthlySpending, error) {
	if m.ReportFunc != nil {
		return m.ReportFunc(ctx, month)
	}
	return nil, nil
}

// YearlyReport returns a year broken down by month
func (m *MockFuelService) YearlyReport(ctx context.Context, year int) (*domain.YearlyReport, error) {
	if m.YearlyReportFunc != nil {
		return m.YearlyReportFunc(ctx, year)
	}
	return &domain.YearlyReport{Year: year, Liters: decimal.Zero, TotalCost: decimal.Zero}, nil
}

// SetLimit stores a monthly limit
func (m *MockFuelService) SetLimit(ctx context.Context, actor *domain.CurrentUser, userID uint, month time.Time, amount decimal.Decimal, client domain.ClientContext) (*domain.FuelLimit, error) {
	if m.SetLimitFunc != nil {
		return m.SetLimitFunc(ctx, actor, userID, month, amount, client)
	}
	return &domain.FuelLimit{ID: 1, UserID: userID, Month: domain.MonthStart(month), MonthlyLimit: amount}, nil
}

// DeleteLimit removes a monthly limit
func (m *MockFuelService) DeleteLimit(ctx context.Context, actor *domain.CurrentUser, limitID uint, client domain.ClientContext) error {
	if m.DeleteLimitFunc != nil {
		return m.DeleteLimitFunc(ctx, actor, limitID, client)
	}
	return nil
}

// Compile-time interface compliance verification
var (
	_ domain.FuelRepository = (*MockFuelRepository)(nil)
	_ domain.FuelService    = (*MockFuelService)(nil)
)
