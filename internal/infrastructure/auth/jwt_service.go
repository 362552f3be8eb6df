package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/you/fueltrack/domain"
)

// ResetTokenServiceImpl implements domain.ResetTokenService with HS256 JWTs
type ResetTokenServiceImpl struct {
	secretKey []byte
	issuer    string
	ttl       time.Duration
	nowFn     func() time.Time
}

// NewResetTokenService creates a new reset token service
func NewResetTokenService(secretKey, issuer string, ttl time.Duration, nowFn func() time.Time) domain.ResetTokenService {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &ResetTokenServiceImpl{
		secretKey: []byte(secretKey),
		issuer:    issuer,
		ttl:       ttl,
		nowFn:     nowFn,
	}
}

// Issue implements domain.ResetTokenService
func (j *ResetTokenServiceImpl) Issue(userID uint) (string, *domain.ResetClaims, error) {
	now := j.nowFn()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(uint64(userID), 10),
		Issuer:    j.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(j.ttl)),
		ID:        uuid.NewString(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secretKey)
	if err != nil {
		return "", nil, err
	}
	return signed, &domain.ResetClaims{
		UserID:    userID,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Parse implements domain.ResetTokenService
func (j *ResetTokenServiceImpl) Parse(tokenString string) (*domain.ResetClaims, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		return j.secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(j.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.nowFn),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, domain.ErrTokenInvalid
	}

	userID, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || userID == 0 || claims.ID == "" {
		return nil, domain.ErrTokenInvalid
	}

	return &domain.ResetClaims{
		UserID:    uint(userID),
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
