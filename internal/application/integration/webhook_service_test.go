package integration

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/erp/storesync/internal/domain/integration"
)

const testWebhookSecret = "0123456789abcdef0123"

type webhookEnv struct {
	*testEnv
	orders  *MockOrderWriter
	dedup   *MockEventDeduplicator
	webhook *WebhookService
}

func newWebhookEnv(t *testing.T, settings integration.Settings) *webhookEnv {
	t.Helper()
	env := &webhookEnv{
		testEnv: newTestEnv(t, settings),
		orders:  new(MockOrderWriter),
		dedup:   new(MockEventDeduplicator),
	}
	logger := zaptest.NewLogger(t)
	orderSvc := NewOrderService(env.orders, env.catalog, env.mappings, logger)
	env.webhook = NewWebhookService(WebhookDependencies{
		Settings:   env.settings,
		Mappings:   env.mappings,
		Audit:      env.audit,
		Orders:     orderSvc,
		Categories: env.categories,
		Groups:     env.groups,
		WriteBack:  env.writer,
		Dedup:      env.dedup,
	}, 0, logger)
	return env
}

func signedSettings() integration.Settings {
	s := enabledSettings()
	s.WebhookSecret = testWebhookSecret
	return s
}

func signedRequest(body string) WebhookRequest {
	return WebhookRequest{Body: []byte(body), Signature: "sha256=" + Sign(testWebhookSecret, []byte(body))}
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"eventType":"PRODUCT_UPDATED"}`)
	sig := Sign("secret-secret-secret", body)

	assert.True(t, VerifySignature("secret-secret-secret", body, sig))
	assert.True(t, VerifySignature("secret-secret-secret", body, "sha256="+sig))
	assert.False(t, VerifySignature("other-secret-secret", body, sig))
	assert.False(t, VerifySignature("secret-secret-secret", []byte(`{}`), sig))
	assert.False(t, VerifySignature("secret-secret-secret", body, "not-hex"))
	assert.False(t, VerifySignature("secret-secret-secret", body, ""))
}

func TestWebhook_SignatureEnforcement(t *testing.T) {
	ctx := context.Background()
	body := `{"eventType":"PRODUCT_UPDATED","eventId":"evt-1","data":{"productId":"R1"}}`

	tests := []struct {
		name     string
		settings func() integration.Settings
		req      WebhookRequest
		status   int
	}{
		{
			name:     "valid signature",
			settings: signedSettings,
			req:      signedRequest(body),
			status:   http.StatusOK,
		},
		{
			name:     "missing signature",
			settings: signedSettings,
			req:      WebhookRequest{Body: []byte(body)},
			status:   http.StatusUnauthorized,
		},
		{
			name:     "wrong signature",
			settings: signedSettings,
			req:      WebhookRequest{Body: []byte(body), Signature: Sign("another-secret-value", []byte(body))},
			status:   http.StatusUnauthorized,
		},
		{
			name:     "no secret and unsigned not allowed",
			settings: enabledSettings,
			req:      WebhookRequest{Body: []byte(body)},
			status:   http.StatusUnauthorized,
		},
		{
			name: "no secret and unsigned allowed",
			settings: func() integration.Settings {
				s := enabledSettings()
				s.AllowUnsignedWebhooks = true
				return s
			},
			req:    WebhookRequest{Body: []byte(body)},
			status: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newWebhookEnv(t, tt.settings())
			env.dedup.On("MarkProcessed", mock.Anything, "evt-1", integration.DefaultWebhookDedupTTL).Return(true, nil).Maybe()

			res := env.webhook.Handle(ctx, tt.req)
			assert.Equal(t, tt.status, res.StatusCode)
			if tt.status == http.StatusUnauthorized {
				assert.Equal(t, ActionRejected, res.Action)
				assert.False(t, res.Success)
			}
			// Exactly one audit entry per delivery
			entries := env.auditRepo.appended()
			require.Len(t, entries, 1)
			assert.Equal(t, integration.OperationWebhook, entries[0].Operation)
			assert.Equal(t, integration.SyncDirectionInbound, entries[0].Direction)
		})
	}
}

func TestWebhook_MalformedAndMissingType(t *testing.T) {
	ctx := context.Background()
	env := newWebhookEnv(t, signedSettings())

	res := env.webhook.Handle(ctx, signedRequest(`{not json`))
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res = env.webhook.Handle(ctx, signedRequest(`{"data":{}}`))
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Contains(t, res.Error, "event type")
}

func TestWebhook_DuplicateDelivery(t *testing.T) {
	ctx := context.Background()
	env := newWebhookEnv(t, signedSettings())
	env.dedup.On("MarkProcessed", mock.Anything, "evt-2", mock.Anything).Return(true, nil).Once()
	env.dedup.On("MarkProcessed", mock.Anything, "evt-2", mock.Anything).Return(false, nil).Once()

	body := `{"eventType":"INVENTORY_UPDATED","eventId":"evt-2","data":{"productId":"R1","quantity":4}}`
	first := env.webhook.Handle(ctx, signedRequest(body))
	assert.Equal(t, http.StatusOK, first.StatusCode)
	assert.Equal(t, ActionLogged, first.Action)

	second := env.webhook.Handle(ctx, signedRequest(body))
	assert.Equal(t, http.StatusOK, second.StatusCode)
	assert.Equal(t, ActionDuplicate, second.Action)

	entries := env.auditRepo.appended()
	require.Len(t, entries, 2)
	assert.Equal(t, integration.AuditStatusSkipped, entries[1].Status)
}

func TestWebhook_UnknownEventIgnored(t *testing.T) {
	env := newWebhookEnv(t, signedSettings())
	env.dedup.On("MarkProcessed", mock.Anything, mock.Anything, mock.Anything).Return(true, nil)

	res := env.webhook.Handle(context.Background(), signedRequest(`{"eventType":"app.installed","eventId":"evt-3"}`))
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, ActionIgnored, res.Action)
	assert.Equal(t, "APP_INSTALLED", res.EventType)
}

func TestWebhook_ProductDeleted(t *testing.T) {
	ctx := context.Background()
	env := newWebhookEnv(t, signedSettings())
	env.dedup.On("MarkProcessed", mock.Anything, mock.Anything, mock.Anything).Return(true, nil)
	seedSynced(t, env.testEnv, "SKU-500", "R500")

	res := env.webhook.Handle(ctx, signedRequest(`{"eventType":"product.deleted","eventId":"evt-4","data":{"productId":"R500"}}`))
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, ActionProcessed, res.Action)

	m := env.mapping(t, integration.EntityKindProduct, "SKU-500")
	assert.Empty(t, m.RemoteID)
	assert.Equal(t, integration.SyncStatusError, m.Status)
	env.writer.AssertCalled(t, "UpdateSyncFields", mock.Anything, "SKU-500", "", integration.SyncStatusError, mock.Anything)
}

func TestWebhook_OrderCreatedOnce(t *testing.T) {
	ctx := context.Background()
	env := newWebhookEnv(t, signedSettings())
	env.dedup.On("MarkProcessed", mock.Anything, mock.Anything, mock.Anything).Return(true, nil)
	seedSynced(t, env.testEnv, "SKU-001", "R123")
	env.orders.On("CreateSalesOrder", mock.Anything, mock.MatchedBy(func(o *integration.InboundOrder) bool {
		return o.RemoteOrderID == "ord-1" && len(o.Lines) == 1 && o.Lines[0].ItemCode == "SKU-001"
	})).Return("SO-0001", nil).Once()

	body := `{"eventType":"ORDER_CREATED","data":{"order":{"id":"ord-1","number":"1001","currency":"USD",
		"totals":{"total":"20.00"},"lineItems":[{"productId":"R123","name":"Test Item","quantity":2,"price":"10.00"}]}}}`

	res := env.webhook.Handle(ctx, signedRequest(body))
	require.Equal(t, http.StatusOK, res.StatusCode, res.Error)
	assert.Equal(t, ActionProcessed, res.Action)

	// A redelivery without event id is absorbed by the order mapping
	res = env.webhook.Handle(ctx, signedRequest(body))
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, res.Message, "already imported")

	env.orders.AssertNumberOfCalls(t, "CreateSalesOrder", 1)
	m := env.mapping(t, integration.EntityKindOrder, "SO-0001")
	assert.Equal(t, "ord-1", m.RemoteID)
	assert.Equal(t, integration.SyncDirectionInbound, m.Direction)
}

func TestWebhook_ConcurrentOrderDeliveriesCreateOnce(t *testing.T) {
	ctx := context.Background()
	env := newWebhookEnv(t, signedSettings())
	env.dedup.On("MarkProcessed", mock.Anything, mock.Anything, mock.Anything).Return(true, nil)
	seedSynced(t, env.testEnv, "SKU-001", "R123")

	body := `{"eventType":"ORDER_CREATED","data":{"order":{"id":"ord-7","number":"1007",
		"lineItems":[{"productId":"R123","name":"Test Item","quantity":1,"price":"10.00"}]}}}`

	// A redelivery arrives while the sales order is being created
	var during *WebhookResult
	env.orders.On("CreateSalesOrder", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		during = env.webhook.Handle(ctx, signedRequest(body))
	}).Return("SO-0007", nil).Once()

	res := env.webhook.Handle(ctx, signedRequest(body))
	require.Equal(t, http.StatusOK, res.StatusCode, res.Error)
	require.NotNil(t, during)
	assert.Equal(t, http.StatusConflict, during.StatusCode)
	assert.Equal(t, ActionRejected, during.Action)

	res = env.webhook.Handle(ctx, signedRequest(body))
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, res.Message, "already imported as SO-0007")

	env.orders.AssertNumberOfCalls(t, "CreateSalesOrder", 1)
	m := env.mapping(t, integration.EntityKindOrder, "SO-0007")
	assert.Equal(t, "ord-7", m.RemoteID)
	assert.Equal(t, integration.SyncStatusSynced, m.Status)
	// The product mapping and one order mapping
	assert.Equal(t, 2, env.mappingRepo.len())
}

func orderEventData(t *testing.T, raw string) map[string]any {
	t.Helper()
	var data map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &data))
	return data
}

func TestOrderService_ParallelImports(t *testing.T) {
	ctx := context.Background()
	env := newWebhookEnv(t, signedSettings())
	seedSynced(t, env.testEnv, "SKU-001", "R123")
	env.orders.On("CreateSalesOrder", mock.Anything, mock.Anything).Return("SO-0008", nil).Once()
	orders := NewOrderService(env.orders, env.catalog, env.mappings, zaptest.NewLogger(t))

	data := orderEventData(t, `{"order":{"id":"ord-8","lineItems":[{"productId":"R123","name":"Test Item","quantity":1,"price":"10.00"}]}}`)

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = orders.Import(ctx, data)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, integration.ErrSyncInProgress)
		}
	}
	env.orders.AssertNumberOfCalls(t, "CreateSalesOrder", 1)
	assert.Equal(t, "ord-8", env.mapping(t, integration.EntityKindOrder, "SO-0008").RemoteID)
}

func TestOrderService_FailedImportIsClaimedAgain(t *testing.T) {
	ctx := context.Background()
	env := newWebhookEnv(t, signedSettings())
	seedSynced(t, env.testEnv, "SKU-001", "R123")
	env.orders.On("CreateSalesOrder", mock.Anything, mock.Anything).Return("", errors.New("ledger locked")).Once()
	env.orders.On("CreateSalesOrder", mock.Anything, mock.Anything).Return("SO-0009", nil).Once()
	orders := NewOrderService(env.orders, env.catalog, env.mappings, zaptest.NewLogger(t))

	data := orderEventData(t, `{"order":{"id":"ord-9","lineItems":[{"productId":"R123","name":"Test Item","quantity":1,"price":"10.00"}]}}`)

	_, err := orders.Import(ctx, data)
	require.Error(t, err)
	reserved, err := env.mappings.FindByRemoteID(ctx, integration.EntityKindOrder, "ord-9")
	require.NoError(t, err)
	require.NotNil(t, reserved)
	assert.Equal(t, integration.SyncStatusError, reserved.Status)

	// Payment for an order that is not imported yet is not applied to the reservation
	_, err = orders.MarkPaid(ctx, map[string]any{"orderId": "ord-9"})
	assert.ErrorIs(t, err, integration.ErrOrderNotFound)

	res, err := orders.Import(ctx, data)
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Equal(t, "SO-0009", res.LocalOrderID)
	m := env.mapping(t, integration.EntityKindOrder, "SO-0009")
	assert.Equal(t, integration.SyncStatusSynced, m.Status)
	env.orders.AssertNotCalled(t, "MarkPaid", mock.Anything, mock.Anything, mock.Anything)
}

func TestWebhook_RejectRecordsAudit(t *testing.T) {
	env := newWebhookEnv(t, signedSettings())

	res := env.webhook.Reject(context.Background(), WebhookRequest{EventID: "evt-big", EventType: "ORDER_CREATED"},
		http.StatusRequestEntityTooLarge, integration.ErrPayloadTooLarge)
	assert.Equal(t, http.StatusRequestEntityTooLarge, res.StatusCode)
	assert.Equal(t, ActionRejected, res.Action)
	assert.False(t, res.Success)

	entries := env.auditRepo.appended()
	require.Len(t, entries, 1)
	assert.Equal(t, integration.OperationWebhook, entries[0].Operation)
	assert.Equal(t, integration.AuditStatusError, entries[0].Status)
	assert.Equal(t, "evt-big", entries[0].EntityRef)
	assert.Contains(t, entries[0].ErrorDetail, "payload too large")
}

func TestWebhook_OrderWithUnknownItemRejected(t *testing.T) {
	env := newWebhookEnv(t, signedSettings())
	env.dedup.On("MarkProcessed", mock.Anything, "evt-5", mock.Anything).Return(true, nil)
	env.dedup.On("Release", mock.Anything, "evt-5").Return(nil).Once()
	env.catalog.On("ExistsByCode", mock.Anything, "UNKNOWN").Return(false, nil)
	env.catalog.On("FindByBarcode", mock.Anything, "UNKNOWN").Return(nil, integration.ErrLocalEntityNotFound)

	body := `{"eventType":"ORDER_CREATED","eventId":"evt-5","data":{"id":"ord-9","lineItems":[{"sku":"UNKNOWN","name":"X","quantity":1,"price":"1"}]}}`
	res := env.webhook.Handle(context.Background(), signedRequest(body))
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	env.orders.AssertNotCalled(t, "CreateSalesOrder", mock.Anything, mock.Anything)
	env.dedup.AssertExpectations(t)
}

func TestWebhook_OrderPaid(t *testing.T) {
	ctx := context.Background()
	env := newWebhookEnv(t, signedSettings())
	env.dedup.On("MarkProcessed", mock.Anything, mock.Anything, mock.Anything).Return(true, nil)

	m, err := integration.NewEntityMapping(integration.EntityKindOrder, "SO-0002")
	require.NoError(t, err)
	m.RecordSuccess("ord-2", m.CreatedAt)
	require.NoError(t, env.mappings.Create(ctx, m))
	env.orders.On("MarkPaid", mock.Anything, "SO-0002", mock.Anything).Return(nil).Once()

	res := env.webhook.Handle(ctx, signedRequest(`{"eventType":"ORDER_PAID","eventId":"evt-6","data":{"orderId":"ord-2"}}`))
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, ActionProcessed, res.Action)

	// Unknown order without lines is only logged
	res = env.webhook.Handle(ctx, signedRequest(`{"eventType":"ORDER_PAID","eventId":"evt-7","data":{"orderId":"ord-404"}}`))
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, ActionLogged, res.Action)
	env.orders.AssertExpectations(t)
}

func TestWebhook_CategoryUpsert(t *testing.T) {
	ctx := context.Background()
	env := newWebhookEnv(t, signedSettings())
	env.dedup.On("MarkProcessed", mock.Anything, mock.Anything, mock.Anything).Return(true, nil)
	env.categories.On("FindByRemoteID", mock.Anything, "C9").Return(nil, integration.ErrCategoryMappingNotFound)
	env.groups.On("FindByName", mock.Anything, "Shoes").Return(&integration.ItemGroup{Name: "Shoes"}, nil)
	env.categories.On("FindByItemGroup", mock.Anything, "Shoes").Return(nil, integration.ErrCategoryMappingNotFound)
	env.categories.On("Save", mock.Anything, mock.MatchedBy(func(cm *integration.CategoryMapping) bool {
		return cm.ItemGroup == "Shoes" && cm.RemoteID == "C9" && cm.LastSyncAt != nil
	})).Return(nil).Once()

	res := env.webhook.Handle(ctx, signedRequest(`{"eventType":"CATEGORY_CREATED","eventId":"evt-8","data":{"category":{"id":"C9","name":"Shoes"}}}`))
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, ActionProcessed, res.Action)
	env.categories.AssertExpectations(t)
}

func TestWebhook_InternalErrorReleasesEvent(t *testing.T) {
	env := newWebhookEnv(t, signedSettings())
	env.dedup.On("MarkProcessed", mock.Anything, "evt-9", mock.Anything).Return(true, nil)
	env.dedup.On("Release", mock.Anything, "evt-9").Return(nil).Once()
	env.categories.On("FindByRemoteID", mock.Anything, "C1").Return(nil, errors.New("connection refused"))

	res := env.webhook.Handle(context.Background(), signedRequest(`{"eventType":"CATEGORY_UPDATED","eventId":"evt-9","data":{"id":"C1"}}`))
	assert.Equal(t, http.StatusInternalServerError, res.StatusCode)
	assert.Equal(t, ActionFailed, res.Action)
	env.dedup.AssertExpectations(t)
	require.Len(t, env.auditRepo.appended(), 1)
}

func TestWebhook_SettingsUnavailable(t *testing.T) {
	env := newWebhookEnv(t, signedSettings())
	env.settingsRepo.ExpectedCalls = nil
	env.settingsRepo.On("Load", mock.Anything).Return(nil, errors.New("db down"))

	res := env.webhook.Handle(context.Background(), signedRequest(`{"eventType":"PRODUCT_UPDATED"}`))
	assert.Equal(t, http.StatusInternalServerError, res.StatusCode)
}
