package mocks

import (
	"context"
	"sync"
)

// MockHealthChecker is a mock database health check
type MockHealthChecker struct {
	mu    sync.Mutex
	Err   error
	Calls int
}

func (m *MockHealthChecker) HealthCheck(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	return m.Err
}
