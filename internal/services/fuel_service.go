package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/you/fueltrack/domain"
)

// Currency is appended to formatted amounts
const Currency = "RSD"

// FuelServiceImpl implements domain.FuelService
type FuelServiceImpl struct {
	fuelRepo domain.FuelRepository
	userRepo domain.UserRepository
	events   domain.SecurityEventLog
	nowFn    func() time.Time
	logger   *log.Entry
}

// NewFuelService creates a new fuel service
func NewFuelService(fuelRepo domain.FuelRepository, userRepo domain.UserRepository, events domain.SecurityEventLog, nowFn func() time.Time) domain.FuelService {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &FuelServiceImpl{
		fuelRepo: fuelRepo,
		userRepo: userRepo,
		events:   events,
		nowFn:    nowFn,
		logger:   log.WithField("component", "fuel"),
	}
}

// AddRecord implements domain.FuelService. Mileage must grow with every
// record and a purchase may not push the month over its limit.
func (s *FuelServiceImpl) AddRecord(ctx context.Context, req domain.AddFuelRecordRequest) (*domain.FuelRecord, error) {
	errs := domain.ValidationErrors{}
	switch {
	case req.Date.IsZero():
		errs.Add("date", "Date is required.")
	case dayOf(req.Date).After(dayOf(s.nowFn())):
		errs.Add("date", "Date cannot be in the future.")
	}
	if req.Mileage <= 0 {
		errs.Add("mileage", "Mileage must be a positive number.")
	}
	if !req.Liters.IsPositive() {
		errs.Add("liters", "Fuel amount must be a positive number.")
	}
	if !req.PricePerLiter.IsPositive() {
		errs.Add("price_per_liter", "Price per liter must be a positive number.")
	}
	location := strings.TrimSpace(req.Location)
	notes := strings.TrimSpace(req.Notes)
	if len(location) > 100 {
		errs.Add("location", "Location must not exceed 100 characters.")
	}
	if errs.HasErrors() {
		return nil, errs
	}

	last, err := s.fuelRepo.LastMileage(ctx, req.UserID)
	if err != nil {
		return nil, s.storeError(err)
	}
	if last > 0 && req.Mileage <= last {
		errs.Add("mileage", fmt.Sprintf("Mileage must be higher than your last record (%s km).", groupThousands(strconv.Itoa(last))))
		return nil, errs
	}

	total := req.Liters.Mul(req.PricePerLiter).Round(2)

	spending, err := s.fuelRepo.MonthlySpending(ctx, req.UserID, req.Date)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		return nil, s.storeError(err)
	}
	if spending.Limit != nil && spending.TotalCost.Add(total).GreaterThan(*spending.Limit) {
		errs.Add("total_cost", fmt.Sprintf("This purchase would exceed your monthly limit. Current spending: %s, Limit: %s",
			FormatAmount(spending.TotalCost), FormatAmount(*spending.Limit)))
		return nil, fmt.Errorf("%w: %w", domain.ErrLimitExceeded, errs)
	}

	record := &domain.FuelRecord{
		UserID:        req.UserID,
		Date:          dayOf(req.Date),
		Mileage:       req.Mileage,
		Liters:        req.Liters,
		PricePerLiter: req.PricePerLiter,
		TotalCost:     total,
		Location:      location,
		Notes:         notes,
	}
	if err := s.fuelRepo.CreateRecord(ctx, record); err != nil {
		return nil, s.storeError(err)
	}

	client := req.Client
	s.record(ctx, domain.NewSecurityEvent(domain.FuelRecordAddedEvent, "User added fuel record: "+FormatAmount(total)).
		WithUser(req.UserID).WithClientContext(&client))
	return record, nil
}

// ListRecords implements domain.FuelService
func (s *FuelServiceImpl) ListRecords(ctx context.Context, filter domain.FuelRecordFilter) ([]domain.FuelRecord, int64, error) {
	if filter.Month != nil {
		m := domain.MonthStart(*filter.Month)
		filter.Month = &m
	}
	records, total, err := s.fuelRepo.ListRecords(ctx, filter)
	if err != nil {
		return nil, 0, s.storeError(err)
	}
	return records, total, nil
}

// DeleteRecord implements domain.FuelService. Only the owner can delete a record.
func (s *FuelServiceImpl) DeleteRecord(ctx context.Context, userID, recordID uint, client domain.ClientContext) error {
	if err := s.fuelRepo.DeleteRecord(ctx, recordID, userID); err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return err
		}
		return s.storeError(err)
	}
	s.record(ctx, domain.NewSecurityEvent(domain.FuelRecordDeletedEvent, fmt.Sprintf("User deleted fuel record ID: %d", recordID)).
		WithUser(userID).WithClientContext(&client))
	return nil
}

// Summary implements domain.FuelService
func (s *FuelServiceImpl) Summary(ctx context.Context, userID uint, month time.Time) (*domain.MonthlySpending, error) {
	if month.IsZero() {
		month = s.nowFn()
	}
	summary, err := s.fuelRepo.MonthlySpending(ctx, userID, month)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		return nil, s.storeError(err)
	}
	return summary, nil
}

// Report implements domain.FuelService
func (s *FuelServiceImpl) Report(ctx context.Context, month time.Time) ([]domain.MonthlySpending, error) {
	if month.IsZero() {
		month = s.nowFn()
	}
	report, err := s.fuelRepo.MonthlyReport(ctx, month)
	if err != nil {
		return nil, s.storeError(err)
	}
	return report, nil
}

// YearlyReport implements domain.FuelService. A zero year means the current one.
func (s *FuelServiceImpl) YearlyReport(ctx context.Context, year int) (*domain.YearlyReport, error) {
	if year <= 0 {
		year = s.nowFn().UTC().Year()
	}
	records, err := s.fuelRepo.YearRecords(ctx, year)
	if err != nil {
		return nil, s.storeError(err)
	}

	type bucket struct {
		totals   domain.MonthTotals
		users    map[uint]struct{}
		priceSum decimal.Decimal
	}
	var buckets [12]*bucket

	report := &domain.YearlyReport{Year: year, Liters: decimal.Zero, TotalCost: decimal.Zero}
	for _, r := range records {
		m := r.Date.UTC().Month()
		b := buckets[m-1]
		if b == nil {
			b = &bucket{
				totals:   domain.MonthTotals{Month: m, Liters: decimal.Zero, TotalCost: decimal.Zero},
				users:    make(map[uint]struct{}),
				priceSum: decimal.Zero,
			}
			buckets[m-1] = b
		}
		b.users[r.UserID] = struct{}{}
		b.totals.Records++
		b.totals.Liters = b.totals.Liters.Add(r.Liters)
		b.totals.TotalCost = b.totals.TotalCost.Add(r.TotalCost)
		b.priceSum = b.priceSum.Add(r.PricePerLiter)

		report.Records++
		report.Liters = report.Liters.Add(r.Liters)
		report.TotalCost = report.TotalCost.Add(r.TotalCost)
	}

	for _, b := range buckets {
		if b == nil {
			continue
		}
		b.totals.ActiveUsers = int64(len(b.users))
		b.totals.AvgPrice = b.priceSum.Div(decimal.NewFromInt(b.totals.Records)).Round(2)
		report.Months = append(report.Months, b.totals)
	}
	return report, nil
}

// SetLimit implements domain.FuelService. An existing limit for the month is replaced.
func (s *FuelServiceImpl) SetLimit(ctx context.Context, actor *domain.CurrentUser, userID uint, month time.Time, amount decimal.Decimal, client domain.ClientContext) (*domain.FuelLimit, error) {
	errs := domain.ValidationErrors{}
	if !amount.IsPositive() {
		errs.Add("limit", "Limit must be a positive number.")
	}
	if month.IsZero() {
		errs.Add("month", "Month is required.")
	}
	if errs.HasErrors() {
		return nil, errs
	}

	if _, err := s.userRepo.FindByID(ctx, userID); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		return nil, s.storeError(err)
	}

	limit := &domain.FuelLimit{
		UserID:       userID,
		Month:        domain.MonthStart(month),
		MonthlyLimit: amount.Round(2),
		CreatedBy:    actor.ID,
	}
	if err := s.fuelRepo.UpsertLimit(ctx, limit); err != nil {
		return nil, s.storeError(err)
	}

	s.record(ctx, domain.NewSecurityEvent(domain.LimitSetEvent, fmt.Sprintf("Admin set limit for user ID: %d", userID)).
		WithUser(actor.ID).WithClientContext(&client))
	return limit, nil
}

// DeleteLimit implements domain.FuelService
func (s *FuelServiceImpl) DeleteLimit(ctx context.Context, actor *domain.CurrentUser, limitID uint, client domain.ClientContext) error {
	if err := s.fuelRepo.DeleteLimit(ctx, limitID); err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return err
		}
		return s.storeError(err)
	}
	s.record(ctx, domain.NewSecurityEvent(domain.LimitDeletedEvent, fmt.Sprintf("Admin deleted limit ID: %d", limitID)).
		WithUser(actor.ID).WithClientContext(&client))
	return nil
}

func (s *FuelServiceImpl) storeError(err error) error {
	s.logger.WithError(err).Error("fuel store operation failed")
	return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
}

func (s *FuelServiceImpl) record(ctx context.Context, event *domain.SecurityEvent) {
	if err := s.events.Record(ctx, event); err != nil {
		s.logger.WithError(err).WithField("event_type", event.EventType).Error("failed to record security event")
	}
}

// FormatAmount renders an amount as "1,234.50 RSD"
func FormatAmount(d decimal.Decimal) string {
	s := d.StringFixed(2)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	whole, frac, _ := strings.Cut(s, ".")
	return sign + groupThousands(whole) + "." + frac + " " + Currency
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

func dayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
