package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/storesync/backend/internal/domain/catalog"
	"github.com/storesync/backend/internal/domain/storefront"
)

// ---------------------------------------------------------------------------
// catalog.ItemRepository
// ---------------------------------------------------------------------------

type mockItemRepo struct {
	mock.Mock
}

func (m *mockItemRepo) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*catalog.Item, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Item), args.Error(1)
}

func (m *mockItemRepo) FindByBarcode(ctx context.Context, tenantID uuid.UUID, barcode string) (*catalog.Item, error) {
	args := m.Called(ctx, tenantID, barcode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Item), args.Error(1)
}

func (m *mockItemRepo) FindByErpItemID(ctx context.Context, tenantID uuid.UUID, erpItemID string) (*catalog.Item, error) {
	args := m.Called(ctx, tenantID, erpItemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Item), args.Error(1)
}

func (m *mockItemRepo) FindByErpItemIDs(ctx context.Context, tenantID uuid.UUID, erpItemIDs []string) ([]catalog.Item, error) {
	args := m.Called(ctx, tenantID, erpItemIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Item), args.Error(1)
}

func (m *mockItemRepo) FindChildren(ctx context.Context, tenantID uuid.UUID, parentErpItemID string) ([]catalog.Item, error) {
	args := m.Called(ctx, tenantID, parentErpItemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Item), args.Error(1)
}

func (m *mockItemRepo) FindAllByTenant(ctx context.Context, tenantID uuid.UUID, page, pageSize int) ([]catalog.Item, int64, error) {
	args := m.Called(ctx, tenantID, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]catalog.Item), args.Get(1).(int64), args.Error(2)
}

func (m *mockItemRepo) Save(ctx context.Context, item *catalog.Item) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *mockItemRepo) SaveBatch(ctx context.Context, items []*catalog.Item) error {
	args := m.Called(ctx, items)
	return args.Error(0)
}

// ---------------------------------------------------------------------------
// catalog.AttributeRepository
// ---------------------------------------------------------------------------

type mockAttrRepo struct {
	mock.Mock
}

func (m *mockAttrRepo) FindAttributeByName(ctx context.Context, tenantID uuid.UUID, name string) (*catalog.Attribute, error) {
	args := m.Called(ctx, tenantID, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Attribute), args.Error(1)
}

func (m *mockAttrRepo) FindAttributesByTenant(ctx context.Context, tenantID uuid.UUID) ([]catalog.Attribute, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Attribute), args.Error(1)
}

func (m *mockAttrRepo) SaveAttribute(ctx context.Context, attribute *catalog.Attribute) error {
	args := m.Called(ctx, attribute)
	return args.Error(0)
}

func (m *mockAttrRepo) FindPropertyByValue(ctx context.Context, attributeID uuid.UUID, value string) (*catalog.Property, error) {
	args := m.Called(ctx, attributeID, value)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Property), args.Error(1)
}

func (m *mockAttrRepo) FindPropertiesByAttribute(ctx context.Context, attributeID uuid.UUID) ([]catalog.Property, error) {
	args := m.Called(ctx, attributeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Property), args.Error(1)
}

func (m *mockAttrRepo) SaveProperty(ctx context.Context, property *catalog.Property) error {
	args := m.Called(ctx, property)
	return args.Error(0)
}

func (m *mockAttrRepo) ReplaceLinks(ctx context.Context, itemID uuid.UUID, links []*catalog.AttributeLink) error {
	args := m.Called(ctx, itemID, links)
	return args.Error(0)
}

func (m *mockAttrRepo) FindLinksByItem(ctx context.Context, itemID uuid.UUID) ([]catalog.AttributeLink, error) {
	args := m.Called(ctx, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.AttributeLink), args.Error(1)
}

func (m *mockAttrRepo) DeleteLinksByItems(ctx context.Context, tenantID uuid.UUID, itemIDs []uuid.UUID) error {
	args := m.Called(ctx, tenantID, itemIDs)
	return args.Error(0)
}

// ---------------------------------------------------------------------------
// storefront.Gateway
// ---------------------------------------------------------------------------

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) IsConfigured(ctx context.Context, tenantID uuid.UUID) (bool, error) {
	args := m.Called(ctx, tenantID)
	return args.Bool(0), args.Error(1)
}

func (m *mockGateway) BatchCreateProducts(ctx context.Context, tenantID uuid.UUID, payloads []storefront.ProductPayload) (*storefront.BatchResult, error) {
	args := m.Called(ctx, tenantID, payloads)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storefront.BatchResult), args.Error(1)
}

func (m *mockGateway) BatchUpdateProducts(ctx context.Context, tenantID uuid.UUID, payloads []storefront.ProductPayload) (*storefront.BatchResult, error) {
	args := m.Called(ctx, tenantID, payloads)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storefront.BatchResult), args.Error(1)
}

func (m *mockGateway) BatchCreateVariations(ctx context.Context, tenantID uuid.UUID, parentID int64, payloads []storefront.VariationPayload) (*storefront.BatchResult, error) {
	args := m.Called(ctx, tenantID, parentID, payloads)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storefront.BatchResult), args.Error(1)
}

func (m *mockGateway) BatchUpdateVariations(ctx context.Context, tenantID uuid.UUID, parentID int64, payloads []storefront.VariationPayload) (*storefront.BatchResult, error) {
	args := m.Called(ctx, tenantID, parentID, payloads)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storefront.BatchResult), args.Error(1)
}

func (m *mockGateway) ListByUniqueIDs(ctx context.Context, tenantID uuid.UUID, uniqueIDs []string) ([]storefront.RemoteEntry, error) {
	args := m.Called(ctx, tenantID, uniqueIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]storefront.RemoteEntry), args.Error(1)
}

func (m *mockGateway) ListBySKUs(ctx context.Context, tenantID uuid.UUID, skus []string) ([]storefront.RemoteEntry, error) {
	args := m.Called(ctx, tenantID, skus)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]storefront.RemoteEntry), args.Error(1)
}

func (m *mockGateway) FetchAttributeTree(ctx context.Context, tenantID uuid.UUID) ([]storefront.RemoteAttribute, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]storefront.RemoteAttribute), args.Error(1)
}

func (m *mockGateway) CreateAttribute(ctx context.Context, tenantID uuid.UUID, name, slug string) (int64, error) {
	args := m.Called(ctx, tenantID, name, slug)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockGateway) CreateTerm(ctx context.Context, tenantID uuid.UUID, attributeID int64, name, slug string) (int64, error) {
	args := m.Called(ctx, tenantID, attributeID, name, slug)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockGateway) ListCategories(ctx context.Context, tenantID uuid.UUID) ([]storefront.RemoteCategory, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]storefront.RemoteCategory), args.Error(1)
}

// ---------------------------------------------------------------------------
// storefront.TaskRepository
// ---------------------------------------------------------------------------

type mockTaskRepo struct {
	mock.Mock
}

func (m *mockTaskRepo) Save(ctx context.Context, tasks ...*storefront.SyncTask) error {
	args := m.Called(ctx, tasks)
	return args.Error(0)
}

func (m *mockTaskRepo) Update(ctx context.Context, task *storefront.SyncTask) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

func (m *mockTaskRepo) FindByID(ctx context.Context, id uuid.UUID) (*storefront.SyncTask, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storefront.SyncTask), args.Error(1)
}

func (m *mockTaskRepo) ClaimDue(ctx context.Context, lane storefront.TaskLane, now time.Time, limit int) ([]*storefront.SyncTask, error) {
	args := m.Called(ctx, lane, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*storefront.SyncTask), args.Error(1)
}

func (m *mockTaskRepo) FindDead(ctx context.Context, tenantID uuid.UUID, page, pageSize int) ([]*storefront.SyncTask, int64, error) {
	args := m.Called(ctx, tenantID, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*storefront.SyncTask), args.Get(1).(int64), args.Error(2)
}

func (m *mockTaskRepo) CountByStatus(ctx context.Context) (map[storefront.TaskStatus]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[storefront.TaskStatus]int64), args.Error(1)
}

func (m *mockTaskRepo) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

// ---------------------------------------------------------------------------
// storefront.SettingsRepository
// ---------------------------------------------------------------------------

type mockSettingsRepo struct {
	mock.Mock
}

func (m *mockSettingsRepo) FindByTenant(ctx context.Context, tenantID uuid.UUID) (*storefront.TenantSettings, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storefront.TenantSettings), args.Error(1)
}

func (m *mockSettingsRepo) Save(ctx context.Context, settings *storefront.TenantSettings) error {
	args := m.Called(ctx, settings)
	return args.Error(0)
}
