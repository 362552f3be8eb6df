package mocks

import (
	"sync"

	"github.com/you/fueltrack/domain"
)

// FakeHashPrefix marks hashes produced by MockPasswordService
const FakeHashPrefix = "hashed_"

// FakeHash returns the hash MockPasswordService produces for password, so
// fixtures can seed stored users without going through Hash.
func FakeHash(password string) string {
	return FakeHashPrefix + password
}

// MockPasswordService stands in for bcrypt with a reversible hash and
// counts every call.
type MockPasswordService struct {
	HashFunc   func(password string) (string, error)
	VerifyFunc func(hashedPassword, password string) bool

	mu       sync.Mutex
	hashes   int
	verifies int
}

func NewMockPasswordService() *MockPasswordService {
	return &MockPasswordService{}
}

func (m *MockPasswordService) Hash(password string) (string, error) {
	m.mu.Lock()
	m.hashes++
	m.mu.Unlock()

	if m.HashFunc != nil {
		return m.HashFunc(password)
	}
	return FakeHash(password), nil
}

func (m *MockPasswordService) Verify(hashedPassword, password string) bool {
	m.mu.Lock()
	m.verifies++
	m.mu.Unlock()

	if m.VerifyFunc != nil {
		return m.VerifyFunc(hashedPassword, password)
	}
	return hashedPassword == FakeHash(password)
}

// Calls reports how many times Hash and Verify ran
func (m *MockPasswordService) Calls() (hashes, verifies int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hashes, m.verifies
}

var _ domain.PasswordService = (*MockPasswordService)(nil)
