package mocks

import (
	"context"

	"github.com/richxcame/upi-guard/pkg/eventbus"
	"github.com/stretchr/testify/mock"
)

// MockPublisher is a mock event publisher
type MockPublisher struct {
	mock.Mock
}

var _ eventbus.Publisher = (*MockPublisher)(nil)

// Publish mocks publishing an event
func (m *MockPublisher) Publish(ctx context.Context, subject string, event *eventbus.Event) error {
	args := m.Called(ctx, subject, event)
	return args.Error(0)
}
