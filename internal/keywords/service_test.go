package keywords

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storyframe-backend/internal/media"
	"github.com/angelmondragon/storyframe-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storyframe-backend/pkg/db/models"
	"github.com/angelmondragon/storyframe-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storyframe-backend/pkg/errors"
)

func TestServiceListByMedia(t *testing.T) {
	conn := dbtest.OpenMigrated(t)
	repo := NewRepository(conn)
	svc, err := NewService(repo, media.NewRepository(conn))
	require.NoError(t, err)
	ctx := context.Background()

	m := &models.Media{FileURL: "https://storage.test/bucket/media/k/photo.jpg", FileType: "image/jpeg"}
	require.NoError(t, conn.Create(m).Error)

	empty, err := svc.ListByMedia(ctx, m.ID)
	require.NoError(t, err)
	require.NotNil(t, empty)
	require.Empty(t, empty)

	for name, score := range map[string]string{"wave": "0.8", "boat": "0.65"} {
		kw, err := repo.Upsert(ctx, name, enums.KeywordCategoryObject)
		require.NoError(t, err)
		require.NoError(t, repo.Link(ctx, m.ID, kw.ID, decimal.RequireFromString(score)))
	}

	list, err := svc.ListByMedia(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "boat", list[0].Name)
	require.Equal(t, "wave", list[1].Name)
	require.True(t, list[0].Confidence.Equal(decimal.RequireFromString("0.65")), "got %s", list[0].Confidence)
}

func TestServiceListByMediaErrors(t *testing.T) {
	conn := dbtest.OpenMigrated(t)
	svc, err := NewService(NewRepository(conn), media.NewRepository(conn))
	require.NoError(t, err)

	_, err = svc.ListByMedia(context.Background(), uuid.Nil)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)

	_, err = svc.ListByMedia(context.Background(), uuid.New())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(nil, nil)
	require.Error(t, err)
}
