package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/you/fueltrack/domain"
	"github.com/you/fueltrack/internal/http/middleware"
	"github.com/you/fueltrack/internal/services"
)

const dateLayout = "2006-01-02"

// FuelHandlers serves the employee fuel log and the manager report
type FuelHandlers struct {
	fuelSvc domain.FuelService
	debug   bool
}

// NewFuelHandlers creates new fuel handlers
func NewFuelHandlers(fuelSvc domain.FuelService, debug bool) *FuelHandlers {
	return &FuelHandlers{fuelSvc: fuelSvc, debug: debug}
}

// AddRecordRequest represents a new fuel purchase. Amounts accept JSON
// numbers or strings.
type AddRecordRequest struct {
	Date          string          `json:"date"`
	Mileage       int             `json:"mileage"`
	Liters        decimal.Decimal `json:"liters"`
	PricePerLiter decimal.Decimal `json:"price_per_liter"`
	Location      string          `json:"location"`
	Notes         string          `json:"notes"`
}

// ListRecords lists the signed in user's records, optionally for one month
func (h *FuelHandlers) ListRecords(c *gin.Context) {
	month, ok := monthQuery(c)
	if !ok {
		return
	}
	filter := domain.FuelRecordFilter{
		UserID: middleware.CurrentUserFrom(c).ID,
		Page:   intQuery(c, "page"),
		Limit:  intQuery(c, "limit"),
	}
	if !month.IsZero() {
		filter.Month = &month
	}

	records, total, err := h.fuelSvc.ListRecords(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err, "Failed to load fuel records.", h.debug)
		return
	}

	views := make([]gin.H, 0, len(records))
	for i := range records {
		views = append(views, recordView(&records[i]))
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"records": views, "total": total}})
}

// AddRecord logs a fuel purchase
func (h *FuelHandlers) AddRecord(c *gin.Context) {
	var req AddRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	var date time.Time
	if req.Date != "" {
		d, err := time.Parse(dateLayout, req.Date)
		if err != nil {
			badRequest(c, "date", "Date must use the YYYY-MM-DD format.")
			return
		}
		date = d
	}

	record, err := h.fuelSvc.AddRecord(c.Request.Context(), domain.AddFuelRecordRequest{
		UserID:        middleware.CurrentUserFrom(c).ID,
		Date:          date,
		Mileage:       req.Mileage,
		Liters:        req.Liters,
		PricePerLiter: req.PricePerLiter,
		Location:      req.Location,
		Notes:         req.Notes,
		Client:        middleware.ClientFrom(c),
	})
	if err != nil {
		respondError(c, err, "Failed to save fuel record.", h.debug)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"data": gin.H{
			"message": "Fuel record added: " + services.FormatAmount(record.TotalCost),
			"record":  recordView(record),
		},
	})
}

// DeleteRecord removes one of the signed in user's records
func (h *FuelHandlers) DeleteRecord(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.fuelSvc.DeleteRecord(c.Request.Context(), middleware.CurrentUserFrom(c).ID, id, middleware.ClientFrom(c)); err != nil {
		respondError(c, err, "Failed to delete fuel record.", h.debug)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"message": "Fuel record deleted."}})
}

// Summary returns the signed in user's spending against the monthly limit
func (h *FuelHandlers) Summary(c *gin.Context) {
	month, ok := monthQuery(c)
	if !ok {
		return
	}
	summary, err := h.fuelSvc.Summary(c.Request.Context(), middleware.CurrentUserFrom(c).ID, month)
	if err != nil {
		respondError(c, err, "Failed to load summary.", h.debug)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": spendingView(*summary)})
}

// MonthlyReport returns every active user's spending for a month
func (h *FuelHandlers) MonthlyReport(c *gin.Context) {
	month, ok := monthQuery(c)
	if !ok {
		return
	}
	if month.IsZero() {
		month = time.Now()
	}
	rows, err := h.fuelSvc.Report(c.Request.Context(), month)
	if err != nil {
		respondError(c, err, "Failed to load report.", h.debug)
		return
	}

	views := make([]gin.H, 0, len(rows))
	for _, r := range rows {
		views = append(views, spendingView(r))
	}
	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"month":    domain.MonthStart(month).Format(monthLayout),
			"currency": services.Currency,
			"users":    views,
		},
	})
}

// YearlyReport returns per-month fleet totals for ?year, defaulting to the current year
func (h *FuelHandlers) YearlyReport(c *gin.Context) {
	year := 0
	if raw := c.Query("year"); raw != "" {
		y, err := strconv.Atoi(raw)
		if err != nil || y < 2000 || y > 9999 {
			badRequest(c, "year", "Year must be a four digit number.")
			return
		}
		year = y
	}

	report, err := h.fuelSvc.YearlyReport(c.Request.Context(), year)
	if err != nil {
		respondError(c, err, "Failed to load report.", h.debug)
		return
	}

	months := make([]gin.H, 0, len(report.Months))
	for _, m := range report.Months {
		months = append(months, gin.H{
			"month":        fmt.Sprintf("%04d-%02d", report.Year, int(m.Month)),
			"active_users": m.ActiveUsers,
			"records":      m.Records,
			"liters":       m.Liters,
			"total_cost":   m.TotalCost,
			"avg_price":    m.AvgPrice,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"year":     report.Year,
			"currency": services.Currency,
			"months":   months,
			"totals": gin.H{
				"records":    report.Records,
				"liters":     report.Liters,
				"total_cost": report.TotalCost,
			},
		},
	})
}

func recordView(r *domain.FuelRecord) gin.H {
	return gin.H{
		"id":              r.ID,
		"date":            r.Date.Format(dateLayout),
		"mileage":         r.Mileage,
		"liters":          r.Liters,
		"price_per_liter": r.PricePerLiter,
		"total_cost":      r.TotalCost,
		"location":        r.Location,
		"notes":           r.Notes,
		"created_at":      r.CreatedAt,
	}
}

func spendingView(m domain.MonthlySpending) gin.H {
	return gin.H{
		"user_id":    m.UserID,
		"username":   m.Username,
		"records":    m.Records,
		"liters":     m.Liters,
		"total_cost": m.TotalCost,
		"limit":      m.Limit,
		"remaining":  m.Remaining(),
	}
}
