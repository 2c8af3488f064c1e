package repositories

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prism-bi/prism-gateway/pkg/models"
	"github.com/prism-bi/prism-gateway/pkg/testhelpers"
)

func TestSettingsRepository(t *testing.T) {
	gdb := testhelpers.GetGatewayDB(t)
	repo := NewSettingsRepository(gdb.DB)
	ctx := context.Background()
	projectID := uuid.New()

	t.Run("get missing key returns nil without error", func(t *testing.T) {
		setting, err := repo.Get(ctx, "does.not.exist")
		require.NoError(t, err)
		assert.Nil(t, setting)
	})

	t.Run("upsert inserts then updates", func(t *testing.T) {
		first := &models.Setting{
			Key:       "ai_gateway.daily_usage",
			Value:     "1",
			ProjectID: projectID,
		}
		require.NoError(t, repo.Upsert(ctx, first))
		assert.False(t, first.CreatedAt.IsZero())
		assert.False(t, first.UpdatedAt.IsZero())

		stored, err := repo.Get(ctx, "ai_gateway.daily_usage")
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Equal(t, "1", stored.Value)
		assert.Equal(t, projectID, stored.ProjectID)

		second := &models.Setting{
			Key:       "ai_gateway.daily_usage",
			Value:     "2",
			ProjectID: projectID,
		}
		require.NoError(t, repo.Upsert(ctx, second))

		stored, err = repo.Get(ctx, "ai_gateway.daily_usage")
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Equal(t, "2", stored.Value)
		assert.False(t, stored.UpdatedAt.Before(stored.CreatedAt))
	})

	t.Run("keys are independent rows", func(t *testing.T) {
		require.NoError(t, repo.Upsert(ctx, &models.Setting{
			Key: "other.key", Value: "x", ProjectID: projectID,
		}))

		stored, err := repo.Get(ctx, "ai_gateway.daily_usage")
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Equal(t, "2", stored.Value)
	})
}
