package handler

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	integrationapp "github.com/erp/storesync/internal/application/integration"
	"github.com/erp/storesync/internal/domain/integration"
)

type mockSyncOperations struct {
	mock.Mock
}

func (m *mockSyncOperations) SyncEntity(ctx context.Context, localID string, trigger integration.TriggerType) (*integrationapp.SyncResult, error) {
	args := m.Called(ctx, localID, trigger)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integrationapp.SyncResult), args.Error(1)
}

func (m *mockSyncOperations) BulkSync(ctx context.Context, ids []string) (*integrationapp.BulkSyncSummary, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integrationapp.BulkSyncSummary), args.Error(1)
}

func (m *mockSyncOperations) GetSyncStatus(ctx context.Context, localID string) (integrationapp.SyncStatusView, error) {
	args := m.Called(ctx, localID)
	return args.Get(0).(integrationapp.SyncStatusView), args.Error(1)
}

func (m *mockSyncOperations) ResetSyncStatus(ctx context.Context, localID string) (integrationapp.SyncStatusView, error) {
	args := m.Called(ctx, localID)
	return args.Get(0).(integrationapp.SyncStatusView), args.Error(1)
}

func (m *mockSyncOperations) TestConnection(ctx context.Context) (*integrationapp.ConnectionResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integrationapp.ConnectionResult), args.Error(1)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, task *integration.SyncTask) error {
	return m.Called(ctx, task).Error(0)
}

type mockWebhookProcessor struct {
	mock.Mock
}

func (m *mockWebhookProcessor) Handle(ctx context.Context, req integrationapp.WebhookRequest) *integrationapp.WebhookResult {
	return m.Called(ctx, req).Get(0).(*integrationapp.WebhookResult)
}

func (m *mockWebhookProcessor) Reject(ctx context.Context, req integrationapp.WebhookRequest, code int, reason error) *integrationapp.WebhookResult {
	return m.Called(ctx, req, code, reason).Get(0).(*integrationapp.WebhookResult)
}

type mockAuditReader struct {
	mock.Mock
}

func (m *mockAuditReader) List(ctx context.Context, filter integration.AuditLogFilter) ([]integration.AuditLogEntry, int64, error) {
	args := m.Called(ctx, filter)
	entries, _ := args.Get(0).([]integration.AuditLogEntry)
	return entries, args.Get(1).(int64), args.Error(2)
}

type mockReporter struct {
	mock.Mock
}

func (m *mockReporter) Report(ctx context.Context, since time.Time) (*integrationapp.SyncReport, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integrationapp.SyncReport), args.Error(1)
}

type mockSettingsManager struct {
	mock.Mock
}

func (m *mockSettingsManager) Load(ctx context.Context) (integration.Settings, error) {
	args := m.Called(ctx)
	return args.Get(0).(integration.Settings), args.Error(1)
}

func (m *mockSettingsManager) Update(ctx context.Context, next integration.Settings) (integration.Settings, error) {
	args := m.Called(ctx, next)
	return args.Get(0).(integration.Settings), args.Error(1)
}
