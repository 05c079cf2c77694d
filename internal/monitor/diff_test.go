package monitor_test

import (
	"context"
	"testing"

	"certwatch/internal/monitor"
	"certwatch/pkg/domain"
	"certwatch/pkg/serrors"
	mockstorage "certwatch/pkg/storage/mock"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestDifferFirstScanSeedsStore(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	store := mockstorage.NewMockStore(ctrl)

	fetched := domain.NewSubdomainSet("api.example.com", "dev.example.com")
	store.EXPECT().Load(gomock.Any(), "example.com").
		Return(nil, serrors.KindOnly(serrors.ErrNotFound))
	store.EXPECT().Save(gomock.Any(), "example.com", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, set domain.SubdomainSet) error {
			require.True(t, fetched.Equal(set))

			return nil
		})

	differ := monitor.NewDiffer(store)
	newSubdomains, firstScan, err := differ.Apply(context.Background(), "example.com", fetched)
	require.NoError(t, err)
	require.True(t, firstScan)
	require.Equal(t, []string{"api.example.com", "dev.example.com"}, newSubdomains)
}

func TestDifferReportsNewSubdomains(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	store := mockstorage.NewMockStore(ctrl)

	stored := domain.NewSubdomainSet("api.example.com")
	fetched := domain.NewSubdomainSet("api.example.com", "dev.example.com", "mail.example.com")

	store.EXPECT().Load(gomock.Any(), "example.com").Return(stored, nil)
	store.EXPECT().Save(gomock.Any(), "example.com", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, set domain.SubdomainSet) error {
			require.Equal(t, 3, set.Len())

			return nil
		})

	differ := monitor.NewDiffer(store)
	newSubdomains, firstScan, err := differ.Apply(context.Background(), "example.com", fetched)
	require.NoError(t, err)
	require.False(t, firstScan)
	require.Equal(t, []string{"dev.example.com", "mail.example.com"}, newSubdomains)
}

func TestDifferKeepsVanishedSubdomains(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	store := mockstorage.NewMockStore(ctrl)

	stored := domain.NewSubdomainSet("api.example.com", "old.example.com")
	fetched := domain.NewSubdomainSet("api.example.com")

	// The union equals the stored set, so no write happens.
	store.EXPECT().Load(gomock.Any(), "example.com").Return(stored, nil)

	differ := monitor.NewDiffer(store)
	newSubdomains, firstScan, err := differ.Apply(context.Background(), "example.com", fetched)
	require.NoError(t, err)
	require.False(t, firstScan)
	require.Empty(t, newSubdomains)
}

func TestDifferSaveFailurePropagates(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	store := mockstorage.NewMockStore(ctrl)

	store.EXPECT().Load(gomock.Any(), "example.com").
		Return(domain.NewSubdomainSet(), nil)
	store.EXPECT().Save(gomock.Any(), "example.com", gomock.Any()).
		Return(serrors.With(serrors.ErrPersistence, "could not write file"))

	differ := monitor.NewDiffer(store)
	_, _, err := differ.Apply(context.Background(), "example.com",
		domain.NewSubdomainSet("dev.example.com"))
	require.ErrorIs(t, err, serrors.ErrPersistence)
}

func TestDifferLoadFailurePropagates(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	store := mockstorage.NewMockStore(ctrl)

	store.EXPECT().Load(gomock.Any(), "example.com").
		Return(nil, serrors.With(serrors.ErrPersistence, "could not decode file"))

	differ := monitor.NewDiffer(store)
	_, _, err := differ.Apply(context.Background(), "example.com",
		domain.NewSubdomainSet("dev.example.com"))
	require.ErrorIs(t, err, serrors.ErrPersistence)
}
