package integration

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap/zaptest"

	"github.com/erp/storesync/internal/domain/integration"
)

// ============================================================================
// Mocks
// ============================================================================

// MockStorefrontClient is a mock implementation of StorefrontClient
type MockStorefrontClient struct {
	mock.Mock
}

func (m *MockStorefrontClient) result(args mock.Arguments) *integration.RemoteResult {
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*integration.RemoteResult)
}

func (m *MockStorefrontClient) CreateProduct(ctx context.Context, s integration.Settings, payload *integration.ProductPayload) *integration.RemoteResult {
	return m.result(m.Called(ctx, s, payload))
}

func (m *MockStorefrontClient) UpdateProduct(ctx context.Context, s integration.Settings, remoteID string, payload *integration.ProductPayload) *integration.RemoteResult {
	return m.result(m.Called(ctx, s, remoteID, payload))
}

func (m *MockStorefrontClient) GetProduct(ctx context.Context, s integration.Settings, remoteID string) *integration.RemoteResult {
	return m.result(m.Called(ctx, s, remoteID))
}

func (m *MockStorefrontClient) DeleteProduct(ctx context.Context, s integration.Settings, remoteID string) *integration.RemoteResult {
	return m.result(m.Called(ctx, s, remoteID))
}

func (m *MockStorefrontClient) CreateCategory(ctx context.Context, s integration.Settings, payload *integration.CategoryPayload) *integration.RemoteResult {
	return m.result(m.Called(ctx, s, payload))
}

func (m *MockStorefrontClient) UpdateInventory(ctx context.Context, s integration.Settings, remoteID string, payload *integration.InventoryPayload) *integration.RemoteResult {
	return m.result(m.Called(ctx, s, remoteID, payload))
}

func (m *MockStorefrontClient) TestConnection(ctx context.Context, s integration.Settings) *integration.RemoteResult {
	return m.result(m.Called(ctx, s))
}

// MockCatalogReader is a mock implementation of CatalogReader and
// RemoteReferenceReader
type MockCatalogReader struct {
	mock.Mock
}

func (m *MockCatalogReader) FindByCode(ctx context.Context, code string) (*integration.CatalogItem, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.CatalogItem), args.Error(1)
}

func (m *MockCatalogReader) ExistsByCode(ctx context.Context, code string) (bool, error) {
	args := m.Called(ctx, code)
	return args.Bool(0), args.Error(1)
}

func (m *MockCatalogReader) FindByBarcode(ctx context.Context, barcode string) (*integration.CatalogItem, error) {
	args := m.Called(ctx, barcode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.CatalogItem), args.Error(1)
}

func (m *MockCatalogReader) FindUnsynced(ctx context.Context, limit int) ([]integration.CatalogItem, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]integration.CatalogItem), args.Error(1)
}

func (m *MockCatalogReader) FindWithRemoteID(ctx context.Context, afterCode string, limit int) ([]integration.CatalogItem, error) {
	args := m.Called(ctx, afterCode, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]integration.CatalogItem), args.Error(1)
}

// MockCatalogWriter is a mock implementation of CatalogWriter
type MockCatalogWriter struct {
	mock.Mock
}

func (m *MockCatalogWriter) UpdateSyncFields(ctx context.Context, code string, remoteID string, status integration.SyncStatus, lastSyncAt *time.Time) error {
	args := m.Called(ctx, code, remoteID, status, lastSyncAt)
	return args.Error(0)
}

// MockPriceListReader is a mock implementation of PriceListReader
type MockPriceListReader struct {
	mock.Mock
}

func (m *MockPriceListReader) FindItemPrice(ctx context.Context, priceList string, code string) (decimal.Decimal, bool, error) {
	args := m.Called(ctx, priceList, code)
	return args.Get(0).(decimal.Decimal), args.Bool(1), args.Error(2)
}

// MockItemGroupReader is a mock implementation of ItemGroupReader
type MockItemGroupReader struct {
	mock.Mock
}

func (m *MockItemGroupReader) FindByName(ctx context.Context, name string) (*integration.ItemGroup, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.ItemGroup), args.Error(1)
}

// MockCategoryMappingRepository is a mock implementation of CategoryMappingRepository
type MockCategoryMappingRepository struct {
	mock.Mock
}

func (m *MockCategoryMappingRepository) FindByItemGroup(ctx context.Context, itemGroup string) (*integration.CategoryMapping, error) {
	args := m.Called(ctx, itemGroup)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.CategoryMapping), args.Error(1)
}

func (m *MockCategoryMappingRepository) FindByRemoteID(ctx context.Context, remoteID string) (*integration.CategoryMapping, error) {
	args := m.Called(ctx, remoteID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.CategoryMapping), args.Error(1)
}

func (m *MockCategoryMappingRepository) Save(ctx context.Context, mapping *integration.CategoryMapping) error {
	args := m.Called(ctx, mapping)
	return args.Error(0)
}

// MockSettingsRepository is a mock implementation of SettingsRepository
type MockSettingsRepository struct {
	mock.Mock
}

func (m *MockSettingsRepository) Load(ctx context.Context) (*integration.Settings, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.Settings), args.Error(1)
}

func (m *MockSettingsRepository) Save(ctx context.Context, settings *integration.Settings) error {
	args := m.Called(ctx, settings)
	return args.Error(0)
}

// MockAuditLogRepository is a mock implementation of AuditLogRepository
type MockAuditLogRepository struct {
	mock.Mock
}

func (m *MockAuditLogRepository) Append(ctx context.Context, entry *integration.AuditLogEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockAuditLogRepository) FindAll(ctx context.Context, filter integration.AuditLogFilter) ([]integration.AuditLogEntry, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]integration.AuditLogEntry), args.Get(1).(int64), args.Error(2)
}

func (m *MockAuditLogRepository) PurgeBefore(ctx context.Context, status integration.AuditStatus, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, status, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAuditLogRepository) Stats(ctx context.Context, since time.Time, topErrors int) (*integration.AuditStats, error) {
	args := m.Called(ctx, since, topErrors)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.AuditStats), args.Error(1)
}

// appended returns the entries passed to Append, oldest first
func (m *MockAuditLogRepository) appended() []*integration.AuditLogEntry {
	var entries []*integration.AuditLogEntry
	for _, c := range m.Calls {
		if c.Method == "Append" {
			entries = append(entries, c.Arguments.Get(1).(*integration.AuditLogEntry))
		}
	}
	return entries
}

// MockOrderWriter is a mock implementation of OrderWriter
type MockOrderWriter struct {
	mock.Mock
}

func (m *MockOrderWriter) CreateSalesOrder(ctx context.Context, order *integration.InboundOrder) (string, error) {
	args := m.Called(ctx, order)
	return args.String(0), args.Error(1)
}

func (m *MockOrderWriter) MarkPaid(ctx context.Context, localOrderID string, paidAt time.Time) error {
	args := m.Called(ctx, localOrderID, paidAt)
	return args.Error(0)
}

// MockEventDeduplicator is a mock implementation of EventDeduplicator
type MockEventDeduplicator struct {
	mock.Mock
}

func (m *MockEventDeduplicator) MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, eventID, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockEventDeduplicator) Release(ctx context.Context, eventID string) error {
	args := m.Called(ctx, eventID)
	return args.Error(0)
}

// MockTaskPublisher is a mock implementation of TaskPublisher
type MockTaskPublisher struct {
	mock.Mock
}

func (m *MockTaskPublisher) Publish(ctx context.Context, task *integration.SyncTask) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

// published returns the tasks passed to Publish
func (m *MockTaskPublisher) published() []*integration.SyncTask {
	var tasks []*integration.SyncTask
	for _, c := range m.Calls {
		if c.Method == "Publish" {
			tasks = append(tasks, c.Arguments.Get(1).(*integration.SyncTask))
		}
	}
	return tasks
}

// ============================================================================
// In-memory mapping store
// ============================================================================

// memoryMappingRepo keeps mappings in memory with the claim semantics of the
// database store
type memoryMappingRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]integration.EntityMapping
	// beforeClaim runs ahead of every claim when set
	beforeClaim func(id uuid.UUID)
}

var _ integration.EntityMappingRepository = (*memoryMappingRepo)(nil)

func newMemoryMappingRepo() *memoryMappingRepo {
	return &memoryMappingRepo{rows: make(map[uuid.UUID]integration.EntityMapping)}
}

func (r *memoryMappingRepo) FindByID(_ context.Context, id uuid.UUID) (*integration.EntityMapping, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.rows[id]
	if !ok {
		return nil, integration.ErrMappingNotFound
	}
	return &m, nil
}

func (r *memoryMappingRepo) FindByLocalID(_ context.Context, kind integration.EntityKind, localID string) (*integration.EntityMapping, error) {
	return r.first(func(m integration.EntityMapping) bool { return m.Kind == kind && m.LocalID == localID })
}

func (r *memoryMappingRepo) FindByRemoteID(_ context.Context, kind integration.EntityKind, remoteID string) (*integration.EntityMapping, error) {
	return r.first(func(m integration.EntityMapping) bool { return m.Kind == kind && m.RemoteID == remoteID && remoteID != "" })
}

func (r *memoryMappingRepo) FindAll(_ context.Context, filter integration.EntityMappingFilter) ([]integration.EntityMapping, int64, error) {
	rows := r.where(func(m integration.EntityMapping) bool {
		return (filter.Kind == "" || m.Kind == filter.Kind) && (filter.Status == "" || m.Status == filter.Status)
	}, 0)
	return rows, int64(len(rows)), nil
}

func (r *memoryMappingRepo) FindRetryDue(_ context.Context, kind integration.EntityKind, now time.Time, limit int) ([]integration.EntityMapping, error) {
	return r.where(func(m integration.EntityMapping) bool { return m.Kind == kind && m.IsRetryDue(now) }, limit), nil
}

func (r *memoryMappingRepo) FindStalePending(_ context.Context, cutoff time.Time, limit int) ([]integration.EntityMapping, error) {
	return r.where(func(m integration.EntityMapping) bool {
		return m.Status == integration.SyncStatusPending && m.ClaimedAt != nil && m.ClaimedAt.Before(cutoff)
	}, limit), nil
}

func (r *memoryMappingRepo) FindSynced(_ context.Context, kind integration.EntityKind, limit int) ([]integration.EntityMapping, error) {
	return r.where(func(m integration.EntityMapping) bool {
		return m.Kind == kind && m.Status == integration.SyncStatusSynced && m.HasRemote()
	}, limit), nil
}

func (r *memoryMappingRepo) CountByStatus(_ context.Context, kind integration.EntityKind) (map[integration.SyncStatus]int64, error) {
	counts := map[integration.SyncStatus]int64{}
	for _, m := range r.where(func(m integration.EntityMapping) bool { return m.Kind == kind }, 0) {
		counts[m.Status]++
	}
	return counts, nil
}

func (r *memoryMappingRepo) Create(_ context.Context, m *integration.EntityMapping) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.Kind == m.Kind && (row.LocalID == m.LocalID || (m.RemoteID != "" && row.RemoteID == m.RemoteID)) {
			return integration.ErrMappingAlreadyExists
		}
	}
	r.rows[m.ID] = *m
	return nil
}

func (r *memoryMappingRepo) Save(_ context.Context, m *integration.EntityMapping) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.rows[m.ID]
	if !ok {
		return integration.ErrMappingNotFound
	}
	if stored.Version != m.Version {
		return integration.ErrMappingConflict
	}
	if m.RemoteID != "" {
		for id, row := range r.rows {
			if id != m.ID && row.Kind == m.Kind && row.RemoteID == m.RemoteID {
				return integration.ErrMappingAlreadyExists
			}
		}
	}
	m.Version++
	r.rows[m.ID] = *m
	return nil
}

func (r *memoryMappingRepo) Claim(_ context.Context, id uuid.UUID, at time.Time) (bool, error) {
	if r.beforeClaim != nil {
		r.beforeClaim(id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.rows[id]
	if !ok {
		return false, integration.ErrMappingNotFound
	}
	if m.Status == integration.SyncStatusPending || m.Status == integration.SyncStatusDisabled {
		return false, nil
	}
	m.MarkPending(at)
	m.Version++
	r.rows[id] = m
	return true, nil
}

func (r *memoryMappingRepo) first(match func(integration.EntityMapping) bool) (*integration.EntityMapping, error) {
	rows := r.where(match, 1)
	if len(rows) == 0 {
		return nil, integration.ErrMappingNotFound
	}
	return &rows[0], nil
}

func (r *memoryMappingRepo) where(match func(integration.EntityMapping) bool, limit int) []integration.EntityMapping {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []integration.EntityMapping
	for _, m := range r.rows {
		if match(m) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LocalID < out[j].LocalID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (r *memoryMappingRepo) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

// ============================================================================
// Fixtures
// ============================================================================

func enabledSettings() integration.Settings {
	s := integration.DefaultSettings()
	s.Enabled = true
	s.APIBaseURL = "https://api.storefront.test"
	s.SiteBaseURL = "https://erp.example.com"
	s.APIKey = "key-123"
	s.SiteID = "site-1"
	s.BulkItemDelay = 0
	return s
}

func testItem(code string) *integration.CatalogItem {
	return &integration.CatalogItem{
		Code:          code,
		Name:          "Test Item",
		StandardPrice: decimal.NewFromInt(10),
		IsSalesItem:   true,
		IsStockItem:   true,
		StockQty:      decimal.NewFromInt(7),
	}
}

// testEnv wires the services over mocks and the in-memory mapping store
type testEnv struct {
	settingsRepo *MockSettingsRepository
	auditRepo    *MockAuditLogRepository
	mappingRepo  *memoryMappingRepo
	catalog      *MockCatalogReader
	writer       *MockCatalogWriter
	groups       *MockItemGroupReader
	categories   *MockCategoryMappingRepository
	client       *MockStorefrontClient
	publisher    *MockTaskPublisher

	settings *SettingsService
	mappings *MappingService
	audit    *AuditService
	sync     *SyncService
}

func newTestEnv(t *testing.T, settings integration.Settings) *testEnv {
	t.Helper()
	env := &testEnv{
		settingsRepo: new(MockSettingsRepository),
		auditRepo:    new(MockAuditLogRepository),
		mappingRepo:  newMemoryMappingRepo(),
		catalog:      new(MockCatalogReader),
		writer:       new(MockCatalogWriter),
		groups:       new(MockItemGroupReader),
		categories:   new(MockCategoryMappingRepository),
		client:       new(MockStorefrontClient),
		publisher:    new(MockTaskPublisher),
	}
	env.settingsRepo.On("Load", mock.Anything).Return(&settings, nil).Maybe()
	env.auditRepo.On("Append", mock.Anything, mock.Anything).Return(nil).Maybe()
	env.writer.On("UpdateSyncFields", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	env.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil).Maybe()

	logger := zaptest.NewLogger(t)
	env.settings = NewSettingsService(env.settingsRepo, nil, integration.DefaultSettings(), 0, logger)
	env.mappings = NewMappingService(env.mappingRepo)
	env.audit = NewAuditService(env.auditRepo, logger)
	env.sync = NewSyncService(SyncDependencies{
		Settings:   env.settings,
		Mappings:   env.mappings,
		Audit:      env.audit,
		Catalog:    env.catalog,
		WriteBack:  env.writer,
		References: env.catalog,
		Groups:     env.groups,
		Categories: env.categories,
		Client:     env.client,
	}, logger)
	env.sync.SetPublisher(env.publisher)
	env.sync.wait = func(context.Context, time.Duration) error { return nil }
	return env
}

func (e *testEnv) mapping(t *testing.T, kind integration.EntityKind, localID string) *integration.EntityMapping {
	t.Helper()
	m, err := e.mappingRepo.FindByLocalID(context.Background(), kind, localID)
	if err != nil {
		t.Fatalf("mapping %s/%s: %v", kind, localID, err)
	}
	return m
}
