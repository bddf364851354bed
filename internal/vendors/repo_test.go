package vendors

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roomezes/roomezes-backend/pkg/db"
	"github.com/roomezes/roomezes-backend/pkg/db/dbtest"
	"github.com/roomezes/roomezes-backend/pkg/db/models"
)

func TestRepositoryCreateAndFind(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()
	owner := uuid.New()
	phone := "+919800000001"

	vendor := &models.Vendor{Name: "Hostel Canteen", Category: "canteen", Phone: &phone, OwnerUserID: &owner, IsActive: true}
	require.NoError(t, repo.Create(ctx, vendor))
	require.NotEqual(t, uuid.Nil, vendor.ID)

	byID, err := repo.FindByID(ctx, vendor.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hostel Canteen", byID.Name)
	require.NotNil(t, byID.Phone)
	assert.Equal(t, phone, *byID.Phone)

	byOwner, err := repo.FindByOwner(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, vendor.ID, byOwner.ID)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.True(t, db.IsNotFound(err))
}
