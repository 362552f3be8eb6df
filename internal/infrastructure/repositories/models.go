package repositories

import (
	"time"

	"github.com/shopspring/decimal"
)

// DBUser represents the database model for User (with GORM tags)
type DBUser struct {
	ID                  uint       `gorm:"primaryKey"`
	Username            string     `gorm:"uniqueIndex;size:50;not null"`
	Email               string     `gorm:"uniqueIndex;size:255;not null"`
	FirstName           string     `gorm:"size:100"`
	LastName            string     `gorm:"size:100"`
	PasswordHash        string     `gorm:"column:password_hash;not null"`
	Role                string     `gorm:"index;size:20;not null"`
	IsActive            bool       `gorm:"index"`
	FailedLoginAttempts int        `gorm:"not null;default:0"`
	LockedUntil         *time.Time `gorm:"index"`
	LastLogin           *time.Time
	CreatedAt           time.Time `gorm:"index"`
	UpdatedAt           time.Time
}

// TableName returns the table name for GORM
func (DBUser) TableName() string {
	return "users"
}

// DBSession is a durable session row
type DBSession struct {
	ID           string `gorm:"primaryKey;size:64"`
	UserID       uint   `gorm:"index;not null"`
	Username     string `gorm:"size:50"`
	Email        string `gorm:"size:255"`
	Role         string `gorm:"size:20"`
	IPAddress    string `gorm:"size:45"`
	UserAgent    string `gorm:"size:512"`
	CreatedAt    time.Time
	LastActivity time.Time
	ExpiresAt    time.Time `gorm:"index"`
}

func (DBSession) TableName() string {
	return "user_sessions"
}

// DBSecurityLog is one append-only audit row
type DBSecurityLog struct {
	ID          uint      `gorm:"primaryKey"`
	EventType   string    `gorm:"index;size:64;not null"`
	Description string    `gorm:"type:text"`
	UserID      *uint     `gorm:"index"`
	IPAddress   string    `gorm:"size:45"`
	UserAgent   string    `gorm:"size:512"`
	SessionID   string    `gorm:"size:64"`
	Severity    string    `gorm:"size:16"`
	CreatedAt   time.Time `gorm:"index"`
}

func (DBSecurityLog) TableName() string {
	return "security_logs"
}

// DBPasswordResetToken records a reset token id for single use
type DBPasswordResetToken struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"index;not null"`
	TokenID   string    `gorm:"uniqueIndex;size:64;not null"`
	ExpiresAt time.Time `gorm:"index"`
	Used      bool      `gorm:"not null;default:false"`
	CreatedAt time.Time
}

func (DBPasswordResetToken) TableName() string {
	return "password_reset_tokens"
}

// DBFuelRecord is a logged fuel purchase
type DBFuelRecord struct {
	ID            uint            `gorm:"primaryKey"`
	UserID        uint            `gorm:"index:idx_fuel_user_date;not null"`
	Date          time.Time       `gorm:"index:idx_fuel_user_date;not null"`
	Mileage       int             `gorm:"not null"`
	Liters        decimal.Decimal `gorm:"type:numeric(10,2);not null"`
	PricePerLiter decimal.Decimal `gorm:"type:numeric(10,2);not null"`
	TotalCost     decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Location      string          `gorm:"size:255"`
	Notes         string          `gorm:"type:text"`
	CreatedAt     time.Time
}

func (DBFuelRecord) TableName() string {
	return "fuel_records"
}

// DBFuelLimit is a monthly spending cap
type DBFuelLimit struct {
	ID           uint            `gorm:"primaryKey"`
	UserID       uint            `gorm:"uniqueIndex:idx_limit_user_month;not null"`
	Month        time.Time       `gorm:"uniqueIndex:idx_limit_user_month;not null"`
	MonthlyLimit decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	CreatedBy    uint
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (DBFuelLimit) TableName() string {
	return "fuel_limits"
}

// Models lists every table managed by AutoMigrate
func Models() []interface{} {
	return []interface{}{
		&DBUser{},
		&DBSession{},
		&DBSecurityLog{},
		&DBPasswordResetToken{},
		&DBFuelRecord{},
		&DBFuelLimit{},
	}
}
