package persistence

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storesync/backend/internal/domain/catalog"
)

func TestGormTxManager_Do(t *testing.T) {
	db := newTestDB(t)
	txm := NewGormTxManager(db)
	itemRepo := NewGormItemRepository(db)
	attrRepo := NewGormAttributeRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	newLinkedItem := func(t *testing.T, erpID, barcode string) *catalog.Item {
		t.Helper()
		item, err := catalog.NewItem(tenantID, erpID, barcode, "Shirt")
		require.NoError(t, err)
		require.NoError(t, itemRepo.Save(ctx, item))

		attr, err := catalog.NewAttribute(tenantID, "Size", nil)
		require.NoError(t, err)
		prop, err := catalog.NewProperty(attr.ID, "M")
		require.NoError(t, err)
		require.NoError(t, attrRepo.ReplaceLinks(ctx, item.ID, []*catalog.AttributeLink{
			catalog.NewAttributeLink(tenantID, item.ID, attr.ID, prop.ID),
		}))
		return item
	}

	t.Run("error rolls back every write", func(t *testing.T) {
		item := newLinkedItem(t, "S1", "b-s1")

		err := txm.Do(ctx, func(ctx context.Context) error {
			if err := attrRepo.DeleteLinksByItems(ctx, tenantID, []uuid.UUID{item.ID}); err != nil {
				return err
			}
			return assert.AnError
		})
		require.ErrorIs(t, err, assert.AnError)

		links, err := attrRepo.FindLinksByItem(ctx, item.ID)
		require.NoError(t, err)
		assert.Len(t, links, 1, "link deletion rolled back with the failed commit")
	})

	t.Run("success commits the combined unit", func(t *testing.T) {
		item := newLinkedItem(t, "S2", "b-s2")
		item.Name = "Renamed"

		err := txm.Do(ctx, func(ctx context.Context) error {
			if err := attrRepo.DeleteLinksByItems(ctx, tenantID, []uuid.UUID{item.ID}); err != nil {
				return err
			}
			return itemRepo.SaveBatch(ctx, []*catalog.Item{item})
		})
		require.NoError(t, err)

		links, err := attrRepo.FindLinksByItem(ctx, item.ID)
		require.NoError(t, err)
		assert.Empty(t, links)

		stored, err := itemRepo.FindByID(ctx, tenantID, item.ID)
		require.NoError(t, err)
		assert.Equal(t, "Renamed", stored.Name)
	})
}
