package repository_test

import (
	"context"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/nikolayk812/cartledger/internal/config"
	"github.com/nikolayk812/cartledger/internal/domain"
	"github.com/nikolayk812/cartledger/internal/port"
	"github.com/nikolayk812/cartledger/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/currency"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const catalogYAML = `
currency: GBP
promotions:
  - {code: TEN_OFF, reference: shirt, percent: 10, active: true}
  - {code: THREE_FOR_TWO, reference: socks, buy_n_get_one: 2, active: true}
`

type cartRepositorySuite struct {
	suite.Suite

	repo port.CartRepository
	logs *observer.ObservedLogs
}

// entry point to run the tests in the suite
func TestCartRepositorySuite(t *testing.T) {
	suite.Run(t, new(cartRepositorySuite))
}

// before each test in the suite
func (suite *cartRepositorySuite) SetupTest() {
	catalog, err := config.Parse([]byte(catalogYAML))
	suite.Require().NoError(err)

	core, logs := observer.New(zapcore.InfoLevel)
	suite.logs = logs

	suite.repo = repository.NewCart(
		repository.WithCatalog(catalog),
		repository.WithLogger(zap.New(core)),
	)
}

func (suite *cartRepositorySuite) TestGetCart() {
	tests := []struct {
		name      string
		ownerID   string
		wantError string
	}{
		{
			name:    "get cart: ok",
			ownerID: gofakeit.UUID(),
		},
		{
			name:      "get cart with empty owner ID: error",
			ownerID:   "",
			wantError: "ownerID is empty",
		},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			t := suite.T()
			ctx := t.Context()

			cart, err := suite.repo.GetCart(ctx, tt.ownerID)
			if tt.wantError != "" {
				require.EqualError(t, err, tt.wantError)
				return
			}
			require.NoError(t, err)

			assert.True(t, cart.IsEmpty())
			assert.Equal(t, currency.GBP, cart.Currency())
			assert.Len(t, cart.Promotions(), 2)

			again, err := suite.repo.GetCart(ctx, tt.ownerID)
			require.NoError(t, err)
			assert.Same(t, cart, again)
		})
	}
}

func (suite *cartRepositorySuite) TestGetCart_AppliesCatalog() {
	t := suite.T()

	cart, err := suite.repo.GetCart(t.Context(), gofakeit.UUID())
	require.NoError(t, err)

	require.NoError(t, cart.Add("shirt", 40, 1))
	require.NoError(t, cart.Add("socks", 5, 3))

	assert.Equal(t, "GBP 46.00", cart.Total().String())
	assert.Equal(t, 1, suite.logs.FilterMessage("cart created").Len())
}

func (suite *cartRepositorySuite) TestGetCart_SeparateOwners() {
	t := suite.T()
	ctx := t.Context()

	first, err := suite.repo.GetCart(ctx, "alice")
	require.NoError(t, err)
	second, err := suite.repo.GetCart(ctx, "bob")
	require.NoError(t, err)

	require.NoError(t, first.Add("shirt", 40, 1))

	assert.NotEqual(t, first.ID(), second.ID())
	assert.True(t, second.IsEmpty())

	owners, err := suite.repo.OwnerIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, owners)
}

func (suite *cartRepositorySuite) TestGetCart_Concurrent() {
	t := suite.T()
	ctx := t.Context()
	ownerID := gofakeit.UUID()

	carts := make([]*domain.Cart, 20)

	g, gctx := errgroup.WithContext(ctx)
	for i := range carts {
		g.Go(func() error {
			cart, err := suite.repo.GetCart(gctx, ownerID)
			carts[i] = cart
			return err
		})
	}
	require.NoError(t, g.Wait())

	for _, cart := range carts {
		assert.Same(t, carts[0], cart)
	}
	assert.Equal(t, 1, suite.logs.FilterMessage("cart created").Len())
}

func (suite *cartRepositorySuite) TestDeleteCart() {
	tests := []struct {
		name        string
		ownerID     string
		setup       bool
		wantDeleted bool
		wantError   string
	}{
		{
			name:        "delete existing cart: ok",
			ownerID:     gofakeit.UUID(),
			setup:       true,
			wantDeleted: true,
		},
		{
			name:        "delete non-existing cart: not found",
			ownerID:     gofakeit.UUID(),
			wantDeleted: false,
		},
		{
			name:      "delete with empty owner ID: error",
			ownerID:   "",
			wantError: "ownerID is empty",
		},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			t := suite.T()
			ctx := t.Context()

			if tt.setup {
				_, err := suite.repo.GetCart(ctx, tt.ownerID)
				require.NoError(t, err)
			}

			deleted, err := suite.repo.DeleteCart(ctx, tt.ownerID)
			if tt.wantError != "" {
				require.EqualError(t, err, tt.wantError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDeleted, deleted)

			owners, err := suite.repo.OwnerIDs(ctx)
			require.NoError(t, err)
			assert.NotContains(t, owners, tt.ownerID)
		})
	}
}

func (suite *cartRepositorySuite) TestCanceledContext() {
	t := suite.T()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := suite.repo.GetCart(ctx, gofakeit.UUID())
	require.ErrorIs(t, err, context.Canceled)

	_, err = suite.repo.DeleteCart(ctx, gofakeit.UUID())
	require.ErrorIs(t, err, context.Canceled)

	_, err = suite.repo.OwnerIDs(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func (suite *cartRepositorySuite) TestInvalidCatalogCurrency() {
	t := suite.T()

	repo := repository.NewCart(repository.WithCatalog(&config.Catalog{Currency: "??"}))

	_, err := repo.GetCart(t.Context(), gofakeit.UUID())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "catalog.CurrencyUnit")

	owners, err := repo.OwnerIDs(t.Context())
	require.NoError(t, err)
	assert.Empty(t, owners)
}
