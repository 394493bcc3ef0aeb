package testing

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockScheduler is a mock of simulation.Scheduler.
type MockScheduler struct {
	mock.Mock
}

// Schedule records the scheduled task.
func (m *MockScheduler) Schedule(ctx context.Context, task string, args map[string]string) error {
	return m.Called(ctx, task, args).Error(0)
}

// MockNotifier is a mock of simulation.Notifier.
type MockNotifier struct {
	mock.Mock
}

// Send records the notification.
func (m *MockNotifier) Send(ctx context.Context, template string, args map[string]string) error {
	return m.Called(ctx, template, args).Error(0)
}

// MockBroadcaster is a mock of simulation.Broadcaster.
type MockBroadcaster struct {
	mock.Mock
}

// Publish records the published payload.
func (m *MockBroadcaster) Publish(ctx context.Context, channel string, payload any) error {
	return m.Called(ctx, channel, payload).Error(0)
}
