package keywords

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storyframe-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storyframe-backend/pkg/db/models"
	"github.com/angelmondragon/storyframe-backend/pkg/enums"
)

func TestUpsertReusesExistingKeyword(t *testing.T) {
	repo := NewRepository(dbtest.OpenMigrated(t))
	ctx := context.Background()

	first, err := repo.Upsert(ctx, "dog", enums.KeywordCategoryObject)
	require.NoError(t, err)
	second, err := repo.Upsert(ctx, " dog ", enums.KeywordCategoryEmotion)
	require.NoError(t, err)

	require.Equal(t, first.ID, second.ID)
	require.Equal(t, enums.KeywordCategoryObject, second.Category)

	var count int64
	require.NoError(t, repo.DB(ctx).Model(&models.Keyword{}).Where("name = ?", "dog").Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestLinkKeepsFirstConfidence(t *testing.T) {
	repo := NewRepository(dbtest.OpenMigrated(t))
	ctx := context.Background()
	mediaID := uuid.New()

	kw, err := repo.Upsert(ctx, "beach", enums.KeywordCategoryObject)
	require.NoError(t, err)

	require.NoError(t, repo.Link(ctx, mediaID, kw.ID, decimal.RequireFromString("0.91")))
	require.NoError(t, repo.Link(ctx, mediaID, kw.ID, decimal.RequireFromString("0.42")))

	links, err := repo.ListByMedia(ctx, mediaID)
	require.NoError(t, err)
	require.Len(t, links, 1)
	// First write wins; the later, lower score is dropped.
	require.True(t, links[0].Confidence.Equal(decimal.RequireFromString("0.91")), "got %s", links[0].Confidence)
}

func TestListByMediaEmpty(t *testing.T) {
	repo := NewRepository(dbtest.OpenMigrated(t))

	links, err := repo.ListByMedia(context.Background(), uuid.New())
	require.NoError(t, err)
	require.Empty(t, links)
}

func TestWithTxRollsBackKeywordWrites(t *testing.T) {
	conn := dbtest.OpenMigrated(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	err := conn.Transaction(func(tx *gorm.DB) error {
		if _, err := repo.WithTx(tx).Upsert(ctx, "lake", enums.KeywordCategoryObject); err != nil {
			return err
		}
		return errors.New("abort")
	})
	require.Error(t, err)

	var count int64
	require.NoError(t, repo.DB(ctx).Model(&models.Keyword{}).Count(&count).Error)
	require.Zero(t, count)
}
