package marketplace

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ZilDuck/blaze-marketplace/internal/entity"
	"github.com/ZilDuck/blaze-marketplace/internal/ledger"
	"github.com/ZilDuck/blaze-marketplace/internal/registry"
	"github.com/ZilDuck/blaze-marketplace/internal/units"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	deployer     = common.HexToAddress("0x000000000000000000000000000000000000de01")
	user1        = common.HexToAddress("0x0000000000000000000000000000000000000001")
	user2        = common.HexToAddress("0x0000000000000000000000000000000000000002")
	feeRecipient = common.HexToAddress("0x000000000000000000000000000000000000fee1")
	registryAddr = common.HexToAddress("0x00000000000000000000000000000000b1a2e000")
	marketAddr   = common.HexToAddress("0x000000000000000000000000000000000a2ce700")
)

type fixture struct {
	ledger   *ledger.Ledger
	registry *registry.Registry
	market   *Marketplace
}

// setup mirrors the deploy script: mint asset #1 for user1 and approve the
// marketplace to move it.
func setup(t *testing.T) fixture {
	t.Helper()

	l := ledger.New()
	for _, addr := range []common.Address{deployer, user1, user2} {
		l.Fund(addr, units.MustParseEther("10"))
	}

	reg := registry.NewRegistry(l, registryAddr, deployer, "ipfs://base/", units.MustParseEther("0.01"))
	market, err := NewMarketplace(l, marketAddr, deployer, feeRecipient, 250)
	require.NoError(t, err)
	market.RegisterCollection(reg)

	id, _, err := reg.Mint(user1, units.MustParseEther("0.01"), "ipfs://token1.json")
	require.NoError(t, err)
	require.Equal(t, uint64(1), id)

	_, err = reg.Approve(user1, marketAddr, 1)
	require.NoError(t, err)

	return fixture{l, reg, market}
}

func (f fixture) listing(id uint64) (listing entity.Listing) {
	f.ledger.View(func(c *ledger.Call) { listing = f.market.GetListing(c, registryAddr, id) })
	return listing
}

func (f fixture) proceeds(addr common.Address) (amount *big.Int) {
	f.ledger.View(func(c *ledger.Call) { amount = f.market.GetProceeds(c, addr) })
	return amount
}

func (f fixture) ownerOf(id uint64) (owner common.Address) {
	f.ledger.View(func(c *ledger.Call) { owner, _ = f.registry.OwnerOf(c, id) })
	return owner
}

func TestNewMarketplace_RejectsInvalidFee(t *testing.T) {
	_, err := NewMarketplace(ledger.New(), marketAddr, deployer, feeRecipient, 10001)
	assert.ErrorIs(t, err, entity.ErrInvalidFee)
}

func TestCreateListing(t *testing.T) {
	t.Run("seller can list an asset", func(t *testing.T) {
		f := setup(t)

		receipt, err := f.market.CreateListing(user1, registryAddr, 1, units.MustParseEther("0.1"))
		require.NoError(t, err)
		require.Len(t, receipt.Events, 1)
		assert.Equal(t, entity.ListingCreatedEvent, receipt.Events[0].Type)

		listing := f.listing(1)
		assert.True(t, listing.Active)
		assert.Equal(t, user1, listing.Seller)
		assert.Equal(t, units.MustParseEther("0.1").String(), listing.Price.String())
		assert.Equal(t, user1, f.ownerOf(1))
	})

	t.Run("only the owner can list", func(t *testing.T) {
		f := setup(t)

		_, err := f.market.CreateListing(user2, registryAddr, 1, units.MustParseEther("0.1"))
		assert.ErrorIs(t, err, entity.ErrNotOwner)
	})

	t.Run("price must be positive", func(t *testing.T) {
		f := setup(t)

		_, err := f.market.CreateListing(user1, registryAddr, 1, big.NewInt(0))
		assert.ErrorIs(t, err, entity.ErrInvalidPrice)
	})

	t.Run("second active listing fails", func(t *testing.T) {
		f := setup(t)

		_, err := f.market.CreateListing(user1, registryAddr, 1, units.MustParseEther("0.1"))
		require.NoError(t, err)

		_, err = f.market.CreateListing(user1, registryAddr, 1, units.MustParseEther("0.2"))
		assert.ErrorIs(t, err, entity.ErrAlreadyListed)
		assert.Equal(t, units.MustParseEther("0.1").String(), f.listing(1).Price.String())
	})

	t.Run("unknown asset and collection", func(t *testing.T) {
		f := setup(t)

		_, err := f.market.CreateListing(user1, registryAddr, 7, units.MustParseEther("0.1"))
		assert.ErrorIs(t, err, entity.ErrUnknownAsset)

		_, err = f.market.CreateListing(user1, user2, 1, units.MustParseEther("0.1"))
		assert.ErrorIs(t, err, entity.ErrUnknownCollection)
	})

	t.Run("slot is reusable once inactive", func(t *testing.T) {
		f := setup(t)

		_, err := f.market.CreateListing(user1, registryAddr, 1, units.MustParseEther("0.1"))
		require.NoError(t, err)
		_, err = f.market.CancelListing(user1, registryAddr, 1)
		require.NoError(t, err)

		_, err = f.market.CreateListing(user1, registryAddr, 1, units.MustParseEther("0.3"))
		require.NoError(t, err)

		listing := f.listing(1)
		assert.True(t, listing.Active)
		assert.Equal(t, units.MustParseEther("0.3").String(), listing.Price.String())
	})
}

func TestCancelListing(t *testing.T) {
	f := setup(t)

	_, err := f.market.CancelListing(user1, registryAddr, 1)
	assert.ErrorIs(t, err, entity.ErrNotActive)

	_, err = f.market.CreateListing(user1, registryAddr, 1, units.MustParseEther("0.1"))
	require.NoError(t, err)

	_, err = f.market.CancelListing(user2, registryAddr, 1)
	assert.ErrorIs(t, err, entity.ErrUnauthorized)

	receipt, err := f.market.CancelListing(user1, registryAddr, 1)
	require.NoError(t, err)
	require.Len(t, receipt.Events, 1)
	assert.Equal(t, entity.ListingCancelledEvent, receipt.Events[0].Type)

	assert.False(t, f.listing(1).Active)
	assert.Equal(t, user1, f.ownerOf(1))

	_, err = f.market.CancelListing(user1, registryAddr, 1)
	assert.ErrorIs(t, err, entity.ErrNotActive)
}

func TestBuy(t *testing.T) {
	t.Run("buyer purchases a listed asset", func(t *testing.T) {
		f := setup(t)
		_, err := f.market.CreateListing(user1, registryAddr, 1, units.MustParseEther("0.1"))
		require.NoError(t, err)

		before := f.ledger.BalanceOf(user2)
		receipt, err := f.market.Buy(user2, registryAddr, 1, units.MustParseEther("0.1"))
		require.NoError(t, err)

		assert.False(t, f.listing(1).Active)
		assert.Equal(t, user2, f.ownerOf(1))
		assert.Equal(t, units.MustParseEther("0.0975").String(), f.proceeds(user1).String())
		assert.Equal(t, units.MustParseEther("0.0025").String(), f.proceeds(feeRecipient).String())
		assert.Equal(t, units.MustParseEther("0.1").String(), new(big.Int).Sub(before, f.ledger.BalanceOf(user2)).String())
		assert.Equal(t, units.MustParseEther("0.1").String(), f.ledger.BalanceOf(marketAddr).String())

		types := make([]entity.EventType, 0)
		for _, e := range receipt.Events {
			types = append(types, e.Type)
		}
		assert.Equal(t, []entity.EventType{entity.TransferEvent, entity.SaleEvent}, types)
		assert.Equal(t, registryAddr, receipt.Events[0].Contract)
		assert.Equal(t, "2500000000000000", receipt.Events[1].Params["fee"])
	})

	t.Run("fee change applies to later sales", func(t *testing.T) {
		f := setup(t)

		_, err := f.market.SetFee(deployer, 500, feeRecipient)
		require.NoError(t, err)

		_, err = f.market.CreateListing(user1, registryAddr, 1, units.MustParseEther("0.1"))
		require.NoError(t, err)
		_, err = f.market.Buy(user2, registryAddr, 1, units.MustParseEther("0.1"))
		require.NoError(t, err)

		assert.Equal(t, units.MustParseEther("0.095").String(), f.proceeds(user1).String())
		assert.Equal(t, units.MustParseEther("0.005").String(), f.proceeds(feeRecipient).String())
	})

	t.Run("underpayment fails", func(t *testing.T) {
		f := setup(t)
		_, err := f.market.CreateListing(user1, registryAddr, 1, units.MustParseEther("0.1"))
		require.NoError(t, err)

		_, err = f.market.Buy(user2, registryAddr, 1, units.MustParseEther("0.09"))
		assert.ErrorIs(t, err, entity.ErrInsufficientPayment)
		assert.True(t, f.listing(1).Active)
		assert.Equal(t, units.MustParseEther("10").String(), f.ledger.BalanceOf(user2).String())
	})

	t.Run("overpayment is refunded", func(t *testing.T) {
		f := setup(t)
		_, err := f.market.CreateListing(user1, registryAddr, 1, units.MustParseEther("0.1"))
		require.NoError(t, err)

		before := f.ledger.BalanceOf(user2)
		_, err = f.market.Buy(user2, registryAddr, 1, units.MustParseEther("0.5"))
		require.NoError(t, err)

		assert.Equal(t, units.MustParseEther("0.1").String(), new(big.Int).Sub(before, f.ledger.BalanceOf(user2)).String())
		assert.Equal(t, units.MustParseEther("0.1").String(), f.ledger.BalanceOf(marketAddr).String())
	})

	t.Run("inactive listing fails", func(t *testing.T) {
		f := setup(t)

		_, err := f.market.Buy(user2, registryAddr, 1, units.MustParseEther("0.1"))
		assert.ErrorIs(t, err, entity.ErrNotActive)
	})

	t.Run("failed transfer leaves everything untouched", func(t *testing.T) {
		f := setup(t)
		_, err := f.market.CreateListing(user1, registryAddr, 1, units.MustParseEther("0.1"))
		require.NoError(t, err)

		// the seller moves the asset away, which also clears the approval
		_, err = f.registry.Transfer(user1, user1, deployer, 1)
		require.NoError(t, err)

		_, err = f.market.Buy(user2, registryAddr, 1, units.MustParseEther("0.1"))
		assert.ErrorIs(t, err, entity.ErrTransferFailed)

		assert.True(t, f.listing(1).Active)
		assert.Equal(t, deployer, f.ownerOf(1))
		assert.Equal(t, int64(0), f.proceeds(user1).Int64())
		assert.Equal(t, int64(0), f.proceeds(feeRecipient).Int64())
		assert.Equal(t, units.MustParseEther("10").String(), f.ledger.BalanceOf(user2).String())
		assert.Equal(t, int64(0), f.ledger.BalanceOf(marketAddr).Int64())
	})

	t.Run("missing approval fails the transfer", func(t *testing.T) {
		f := setup(t)
		_, err := f.registry.Approve(user1, common.Address{}, 1)
		require.NoError(t, err)
		_, err = f.market.CreateListing(user1, registryAddr, 1, units.MustParseEther("0.1"))
		require.NoError(t, err)

		_, err = f.market.Buy(user2, registryAddr, 1, units.MustParseEther("0.1"))
		assert.ErrorIs(t, err, entity.ErrTransferFailed)
		assert.True(t, f.listing(1).Active)
	})

	t.Run("rejected refund reverts the sale", func(t *testing.T) {
		f := setup(t)
		_, err := f.market.CreateListing(user1, registryAddr, 1, units.MustParseEther("0.1"))
		require.NoError(t, err)

		f.ledger.RegisterReceiver(user2, ledger.ReceiverFunc(func(c *ledger.Call) error {
			return errors.New("not accepting value")
		}))

		_, err = f.market.Buy(user2, registryAddr, 1, units.MustParseEther("0.2"))
		assert.ErrorIs(t, err, entity.ErrTransferFailed)
		assert.True(t, f.listing(1).Active)
		assert.Equal(t, user1, f.ownerOf(1))
		assert.Equal(t, int64(0), f.proceeds(user1).Int64())
	})
}

func TestWithdrawProceeds(t *testing.T) {
	sold := func(t *testing.T) fixture {
		f := setup(t)
		_, err := f.market.CreateListing(user1, registryAddr, 1, units.MustParseEther("0.1"))
		require.NoError(t, err)
		_, err = f.market.Buy(user2, registryAddr, 1, units.MustParseEther("0.1"))
		require.NoError(t, err)
		return f
	}

	t.Run("seller withdraws once", func(t *testing.T) {
		f := sold(t)
		before := f.ledger.BalanceOf(user1)

		receipt, err := f.market.WithdrawProceeds(user1)
		require.NoError(t, err)
		require.Len(t, receipt.Events, 1)
		assert.Equal(t, entity.ProceedsWithdrawEvent, receipt.Events[0].Type)

		gained := new(big.Int).Sub(f.ledger.BalanceOf(user1), before)
		assert.Equal(t, units.MustParseEther("0.0975").String(), gained.String())
		assert.Equal(t, int64(0), f.proceeds(user1).Int64())

		_, err = f.market.WithdrawProceeds(user1)
		assert.ErrorIs(t, err, entity.ErrNothingToWithdraw)
		assert.Equal(t, units.MustParseEther("0.0025").String(), f.ledger.BalanceOf(marketAddr).String())
	})

	t.Run("fee recipient withdraws the fee", func(t *testing.T) {
		f := sold(t)

		_, err := f.market.WithdrawProceeds(feeRecipient)
		require.NoError(t, err)
		assert.Equal(t, units.MustParseEther("0.0025").String(), f.ledger.BalanceOf(feeRecipient).String())
	})

	t.Run("nothing to withdraw", func(t *testing.T) {
		f := setup(t)

		_, err := f.market.WithdrawProceeds(user2)
		assert.ErrorIs(t, err, entity.ErrNothingToWithdraw)
	})

	t.Run("rejected transfer keeps the balance", func(t *testing.T) {
		f := sold(t)
		f.ledger.RegisterReceiver(user1, ledger.ReceiverFunc(func(c *ledger.Call) error {
			return errors.New("not accepting value")
		}))

		_, err := f.market.WithdrawProceeds(user1)
		assert.ErrorIs(t, err, entity.ErrTransferFailed)
		assert.Equal(t, units.MustParseEther("0.0975").String(), f.proceeds(user1).String())
		assert.Equal(t, units.MustParseEther("0.1").String(), f.ledger.BalanceOf(marketAddr).String())
	})

	t.Run("reentrant withdrawal finds nothing to claim", func(t *testing.T) {
		f := sold(t)
		before := f.ledger.BalanceOf(user1)

		var reentryErr error
		calls := 0
		f.ledger.RegisterReceiver(user1, ledger.ReceiverFunc(func(c *ledger.Call) error {
			calls++
			reentryErr = c.Call(marketAddr, nil, f.market.withdrawProceeds)
			return nil
		}))

		_, err := f.market.WithdrawProceeds(user1)
		require.NoError(t, err)

		assert.Equal(t, 1, calls)
		assert.ErrorIs(t, reentryErr, entity.ErrNothingToWithdraw)
		gained := new(big.Int).Sub(f.ledger.BalanceOf(user1), before)
		assert.Equal(t, units.MustParseEther("0.0975").String(), gained.String())
		assert.Equal(t, int64(0), f.proceeds(user1).Int64())
	})
}

func TestSetFee(t *testing.T) {
	f := setup(t)

	_, err := f.market.SetFee(user1, 500, user1)
	assert.ErrorIs(t, err, entity.ErrUnauthorized)

	_, err = f.market.SetFee(deployer, 10001, deployer)
	assert.ErrorIs(t, err, entity.ErrInvalidFee)

	_, err = f.market.SetFee(deployer, 500, deployer)
	require.NoError(t, err)

	f.ledger.View(func(c *ledger.Call) {
		fee := f.market.FeeConfig(c)
		assert.Equal(t, uint(500), fee.FeeBps)
		assert.Equal(t, deployer, fee.FeeRecipient)
	})
}

func TestActiveListings(t *testing.T) {
	f := setup(t)
	_, _, err := f.registry.Mint(user1, units.MustParseEther("0.01"), "")
	require.NoError(t, err)

	_, err = f.market.CreateListing(user1, registryAddr, 2, units.MustParseEther("0.2"))
	require.NoError(t, err)
	_, err = f.market.CreateListing(user1, registryAddr, 1, units.MustParseEther("0.1"))
	require.NoError(t, err)
	_, err = f.market.CancelListing(user1, registryAddr, 2)
	require.NoError(t, err)

	f.ledger.View(func(c *ledger.Call) {
		listings := f.market.ActiveListings(c)
		require.Len(t, listings, 1)
		assert.Equal(t, uint64(1), listings[0].AssetID)
	})
}

func TestActiveListings_OrdersCollectionsByAddressBytes(t *testing.T) {
	f := setup(t)

	// checksummed, the second address sorts first as text
	first := common.HexToAddress("0x00000000000000000000000000000000c011a000")
	second := common.HexToAddress("0x00000000000000000000000000000000c011c000")
	require.Greater(t, first.Hex(), second.Hex())

	for _, addr := range []common.Address{second, first} {
		reg := registry.NewRegistry(f.ledger, addr, deployer, "ipfs://base/", units.MustParseEther("0.01"))
		f.market.RegisterCollection(reg)

		id, _, err := reg.Mint(user1, units.MustParseEther("0.01"), "")
		require.NoError(t, err)
		_, err = reg.Approve(user1, marketAddr, id)
		require.NoError(t, err)
		_, err = f.market.CreateListing(user1, addr, id, units.MustParseEther("0.1"))
		require.NoError(t, err)
	}

	f.ledger.View(func(c *ledger.Call) {
		listings := f.market.ActiveListings(c)
		require.Len(t, listings, 2)
		assert.Equal(t, first, listings[0].Collection)
		assert.Equal(t, second, listings[1].Collection)
	})
}

// Proceeds owed always equal the marketplace's native balance.
func TestProceedsMatchEscrowedBalance(t *testing.T) {
	f := setup(t)
	for i := 0; i < 3; i++ {
		_, err := f.market.CreateListing(f.ownerOf(1), registryAddr, 1, big.NewInt(int64(1000+i*337)))
		require.NoError(t, err)
		_, err = f.registry.Approve(f.ownerOf(1), marketAddr, 1)
		require.NoError(t, err)

		buyer := user2
		if f.ownerOf(1) == user2 {
			buyer = user1
		}
		_, err = f.market.Buy(buyer, registryAddr, 1, big.NewInt(5000))
		require.NoError(t, err)
	}

	owed := new(big.Int)
	for _, addr := range []common.Address{user1, user2, feeRecipient} {
		owed.Add(owed, f.proceeds(addr))
	}
	assert.Equal(t, f.ledger.BalanceOf(marketAddr).String(), owed.String())
}
