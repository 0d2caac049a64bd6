package handler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/storesync/backend/internal/domain/catalog"
	"github.com/storesync/backend/internal/domain/storefront"
)

// MockItemRepository implements catalog.ItemRepository for testing
type MockItemRepository struct {
	mock.Mock
}

func (m *MockItemRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*catalog.Item, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Item), args.Error(1)
}

func (m *MockItemRepository) FindByBarcode(ctx context.Context, tenantID uuid.UUID, barcode string) (*catalog.Item, error) {
	args := m.Called(ctx, tenantID, barcode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Item), args.Error(1)
}

func (m *MockItemRepository) FindByErpItemID(ctx context.Context, tenantID uuid.UUID, erpItemID string) (*catalog.Item, error) {
	args := m.Called(ctx, tenantID, erpItemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Item), args.Error(1)
}

func (m *MockItemRepository) FindByErpItemIDs(ctx context.Context, tenantID uuid.UUID, erpItemIDs []string) ([]catalog.Item, error) {
	args := m.Called(ctx, tenantID, erpItemIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Item), args.Error(1)
}

func (m *MockItemRepository) FindChildren(ctx context.Context, tenantID uuid.UUID, parentErpItemID string) ([]catalog.Item, error) {
	args := m.Called(ctx, tenantID, parentErpItemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Item), args.Error(1)
}

func (m *MockItemRepository) FindAllByTenant(ctx context.Context, tenantID uuid.UUID, page, pageSize int) ([]catalog.Item, int64, error) {
	args := m.Called(ctx, tenantID, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]catalog.Item), args.Get(1).(int64), args.Error(2)
}

func (m *MockItemRepository) Save(ctx context.Context, item *catalog.Item) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockItemRepository) SaveBatch(ctx context.Context, items []*catalog.Item) error {
	args := m.Called(ctx, items)
	return args.Error(0)
}

// MockAttributeRepository implements catalog.AttributeRepository for testing
type MockAttributeRepository struct {
	mock.Mock
}

func (m *MockAttributeRepository) FindAttributeByName(ctx context.Context, tenantID uuid.UUID, name string) (*catalog.Attribute, error) {
	args := m.Called(ctx, tenantID, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Attribute), args.Error(1)
}

func (m *MockAttributeRepository) FindAttributesByTenant(ctx context.Context, tenantID uuid.UUID) ([]catalog.Attribute, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Attribute), args.Error(1)
}

func (m *MockAttributeRepository) SaveAttribute(ctx context.Context, attribute *catalog.Attribute) error {
	args := m.Called(ctx, attribute)
	return args.Error(0)
}

func (m *MockAttributeRepository) FindPropertyByValue(ctx context.Context, attributeID uuid.UUID, value string) (*catalog.Property, error) {
	args := m.Called(ctx, attributeID, value)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Property), args.Error(1)
}

func (m *MockAttributeRepository) FindPropertiesByAttribute(ctx context.Context, attributeID uuid.UUID) ([]catalog.Property, error) {
	args := m.Called(ctx, attributeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Property), args.Error(1)
}

func (m *MockAttributeRepository) SaveProperty(ctx context.Context, property *catalog.Property) error {
	args := m.Called(ctx, property)
	return args.Error(0)
}

func (m *MockAttributeRepository) ReplaceLinks(ctx context.Context, itemID uuid.UUID, links []*catalog.AttributeLink) error {
	args := m.Called(ctx, itemID, links)
	return args.Error(0)
}

func (m *MockAttributeRepository) FindLinksByItem(ctx context.Context, itemID uuid.UUID) ([]catalog.AttributeLink, error) {
	args := m.Called(ctx, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.AttributeLink), args.Error(1)
}

func (m *MockAttributeRepository) DeleteLinksByItems(ctx context.Context, tenantID uuid.UUID, itemIDs []uuid.UUID) error {
	args := m.Called(ctx, tenantID, itemIDs)
	return args.Error(0)
}

// MockTxManager implements shared.TxManager for testing; handler tests
// assert repository effects, not transaction boundaries, so it runs the
// function inline
type MockTxManager struct{}

func (MockTxManager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// MockTaskRepository implements storefront.TaskRepository for testing
type MockTaskRepository struct {
	mock.Mock
}

func (m *MockTaskRepository) Save(ctx context.Context, tasks ...*storefront.SyncTask) error {
	args := m.Called(ctx, tasks)
	return args.Error(0)
}

func (m *MockTaskRepository) Update(ctx context.Context, task *storefront.SyncTask) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

func (m *MockTaskRepository) FindByID(ctx context.Context, id uuid.UUID) (*storefront.SyncTask, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storefront.SyncTask), args.Error(1)
}

func (m *MockTaskRepository) ClaimDue(ctx context.Context, lane storefront.TaskLane, now time.Time, limit int) ([]*storefront.SyncTask, error) {
	args := m.Called(ctx, lane, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*storefront.SyncTask), args.Error(1)
}

func (m *MockTaskRepository) FindDead(ctx context.Context, tenantID uuid.UUID, page, pageSize int) ([]*storefront.SyncTask, int64, error) {
	args := m.Called(ctx, tenantID, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*storefront.SyncTask), args.Get(1).(int64), args.Error(2)
}

func (m *MockTaskRepository) CountByStatus(ctx context.Context) (map[storefront.TaskStatus]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[storefront.TaskStatus]int64), args.Error(1)
}

func (m *MockTaskRepository) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

// MockSettingsRepository implements storefront.SettingsRepository for testing
type MockSettingsRepository struct {
	mock.Mock
}

func (m *MockSettingsRepository) FindByTenant(ctx context.Context, tenantID uuid.UUID) (*storefront.TenantSettings, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storefront.TenantSettings), args.Error(1)
}

func (m *MockSettingsRepository) Save(ctx context.Context, settings *storefront.TenantSettings) error {
	args := m.Called(ctx, settings)
	return args.Error(0)
}

// MockGateway implements storefront.Gateway for testing
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) IsConfigured(ctx context.Context, tenantID uuid.UUID) (bool, error) {
	args := m.Called(ctx, tenantID)
	return args.Bool(0), args.Error(1)
}

func (m *MockGateway) BatchCreateProducts(ctx context.Context, tenantID uuid.UUID, payloads []storefront.ProductPayload) (*storefront.BatchResult, error) {
	args := m.Called(ctx, tenantID, payloads)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storefront.BatchResult), args.Error(1)
}

func (m *MockGateway) BatchUpdateProducts(ctx context.Context, tenantID uuid.UUID, payloads []storefront.ProductPayload) (*storefront.BatchResult, error) {
	args := m.Called(ctx, tenantID, payloads)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storefront.BatchResult), args.Error(1)
}

func (m *MockGateway) BatchCreateVariations(ctx context.Context, tenantID uuid.UUID, parentID int64, payloads []storefront.VariationPayload) (*storefront.BatchResult, error) {
	args := m.Called(ctx, tenantID, parentID, payloads)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storefront.BatchResult), args.Error(1)
}

func (m *MockGateway) BatchUpdateVariations(ctx context.Context, tenantID uuid.UUID, parentID int64, payloads []storefront.VariationPayload) (*storefront.BatchResult, error) {
	args := m.Called(ctx, tenantID, parentID, payloads)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storefront.BatchResult), args.Error(1)
}

func (m *MockGateway) ListByUniqueIDs(ctx context.Context, tenantID uuid.UUID, uniqueIDs []string) ([]storefront.RemoteEntry, error) {
	args := m.Called(ctx, tenantID, uniqueIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]storefront.RemoteEntry), args.Error(1)
}

func (m *MockGateway) ListBySKUs(ctx context.Context, tenantID uuid.UUID, skus []string) ([]storefront.RemoteEntry, error) {
	args := m.Called(ctx, tenantID, skus)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]storefront.RemoteEntry), args.Error(1)
}

func (m *MockGateway) FetchAttributeTree(ctx context.Context, tenantID uuid.UUID) ([]storefront.RemoteAttribute, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]storefront.RemoteAttribute), args.Error(1)
}

func (m *MockGateway) CreateAttribute(ctx context.Context, tenantID uuid.UUID, name, slug string) (int64, error) {
	args := m.Called(ctx, tenantID, name, slug)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockGateway) CreateTerm(ctx context.Context, tenantID uuid.UUID, attributeID int64, name, slug string) (int64, error) {
	args := m.Called(ctx, tenantID, attributeID, name, slug)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockGateway) ListCategories(ctx context.Context, tenantID uuid.UUID) ([]storefront.RemoteCategory, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]storefront.RemoteCategory), args.Error(1)
}

// MockIdempotencyStore implements shared.IdempotencyStore for testing
type MockIdempotencyStore struct {
	mock.Mock
}

func (m *MockIdempotencyStore) MarkProcessed(ctx context.Context, batchKey string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, batchKey, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) IsProcessed(ctx context.Context, batchKey string) (bool, error) {
	args := m.Called(ctx, batchKey)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
