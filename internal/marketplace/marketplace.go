package marketplace

import (
	"bytes"
	"fmt"
	"math/big"
	"sort"
	"strconv"

	"github.com/ZilDuck/blaze-marketplace/internal/entity"
	"github.com/ZilDuck/blaze-marketplace/internal/ledger"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Collection is the capability a marketplace needs from an asset collection.
// Every method runs inside the caller's ledger frame.
type Collection interface {
	Address() common.Address
	OwnerOf(c *ledger.Call, id uint64) (common.Address, error)
	GetApproved(c *ledger.Call, id uint64) (common.Address, error)
	TransferFrom(c *ledger.Call, from, to common.Address, id uint64) error
}

// Marketplace settles fixed-price sales. Assets stay with the seller until a
// purchase and sale proceeds are credited to a pull ledger, never pushed.
type Marketplace struct {
	ledger      *ledger.Ledger
	address     common.Address
	owner       common.Address
	fee         entity.FeeConfig
	collections map[common.Address]Collection
	listings    map[entity.ListingKey]*entity.Listing
	proceeds    map[common.Address]*big.Int
}

func NewMarketplace(l *ledger.Ledger, address, owner, feeRecipient common.Address, feeBps uint) (*Marketplace, error) {
	fee := entity.FeeConfig{FeeBps: feeBps, FeeRecipient: feeRecipient}
	if err := fee.Validate(); err != nil {
		return nil, err
	}

	return &Marketplace{
		ledger:      l,
		address:     address,
		owner:       owner,
		fee:         fee,
		collections: make(map[common.Address]Collection),
		listings:    make(map[entity.ListingKey]*entity.Listing),
		proceeds:    make(map[common.Address]*big.Int),
	}, nil
}

func (m *Marketplace) Address() common.Address {
	return m.address
}

func (m *Marketplace) Owner() common.Address {
	return m.owner
}

// RegisterCollection makes a collection tradeable. It is wiring, not a ledger
// operation, and is expected to happen before any listing.
func (m *Marketplace) RegisterCollection(collection Collection) {
	m.ledger.Configure(func() {
		m.collections[collection.Address()] = collection
	})
}

func (m *Marketplace) CreateListing(from, collection common.Address, id uint64, price *big.Int) (*ledger.Receipt, error) {
	receipt, err := m.ledger.Execute(from, m.address, nil, func(c *ledger.Call) error {
		return m.createListing(c, collection, id, price)
	})
	m.logResult("Marketplace: listing created", from, collection, id, receipt, err)

	return receipt, err
}

func (m *Marketplace) CancelListing(from, collection common.Address, id uint64) (*ledger.Receipt, error) {
	receipt, err := m.ledger.Execute(from, m.address, nil, func(c *ledger.Call) error {
		return m.cancelListing(c, collection, id)
	})
	m.logResult("Marketplace: listing cancelled", from, collection, id, receipt, err)

	return receipt, err
}

// Buy purchases an active listing with value attached. Deactivation, asset
// transfer, proceeds crediting and the refund of any overpayment commit
// together or not at all.
func (m *Marketplace) Buy(from, collection common.Address, id uint64, value *big.Int) (*ledger.Receipt, error) {
	receipt, err := m.ledger.Execute(from, m.address, value, func(c *ledger.Call) error {
		return m.buy(c, collection, id)
	})
	m.logResult("Marketplace: sale", from, collection, id, receipt, err)

	return receipt, err
}

func (m *Marketplace) WithdrawProceeds(from common.Address) (*ledger.Receipt, error) {
	receipt, err := m.ledger.Execute(from, m.address, nil, m.withdrawProceeds)
	if err != nil {
		zap.L().With(zap.String("from", from.Hex()), zap.Error(err)).Warn("Marketplace: withdrawal failed")
		return nil, err
	}

	zap.L().With(zap.String("to", from.Hex()), zap.String("txId", receipt.TxID)).Info("Marketplace: proceeds withdrawn")

	return receipt, nil
}

func (m *Marketplace) SetFee(from common.Address, feeBps uint, feeRecipient common.Address) (*ledger.Receipt, error) {
	receipt, err := m.ledger.Execute(from, m.address, nil, func(c *ledger.Call) error {
		return m.setFee(c, feeBps, feeRecipient)
	})
	if err != nil {
		zap.L().With(zap.String("from", from.Hex()), zap.Uint("feeBps", feeBps), zap.Error(err)).Warn("Marketplace: fee update failed")
		return nil, err
	}

	zap.L().With(zap.Uint("feeBps", feeBps), zap.String("feeRecipient", feeRecipient.Hex())).Info("Marketplace: fee updated")

	return receipt, nil
}

// GetListing returns the stored record for the key, or the zero value when no
// listing was ever created.
func (m *Marketplace) GetListing(c *ledger.Call, collection common.Address, id uint64) entity.Listing {
	listing, ok := m.listings[entity.ListingKey{Collection: collection, AssetID: id}]
	if !ok {
		return entity.Listing{Collection: collection, AssetID: id, Price: new(big.Int)}
	}

	return copyListing(listing)
}

// ActiveListings returns every active listing ordered by collection then
// asset id.
func (m *Marketplace) ActiveListings(c *ledger.Call) []entity.Listing {
	listings := make([]entity.Listing, 0)
	for _, listing := range m.listings {
		if listing.Active {
			listings = append(listings, copyListing(listing))
		}
	}

	sort.Slice(listings, func(i, j int) bool {
		if listings[i].Collection != listings[j].Collection {
			return bytes.Compare(listings[i].Collection.Bytes(), listings[j].Collection.Bytes()) < 0
		}
		return listings[i].AssetID < listings[j].AssetID
	})

	return listings
}

func (m *Marketplace) GetProceeds(c *ledger.Call, addr common.Address) *big.Int {
	if balance, ok := m.proceeds[addr]; ok {
		return new(big.Int).Set(balance)
	}

	return new(big.Int)
}

func (m *Marketplace) FeeConfig(c *ledger.Call) entity.FeeConfig {
	return m.fee
}

func (m *Marketplace) createListing(c *ledger.Call, collectionAddr common.Address, id uint64, price *big.Int) error {
	collection, err := m.collection(collectionAddr)
	if err != nil {
		return err
	}

	owner, err := collection.OwnerOf(c, id)
	if err != nil {
		return err
	}
	if owner != c.Caller {
		return fmt.Errorf("%w: %s does not hold asset %d", entity.ErrNotOwner, c.Caller.Hex(), id)
	}
	if price == nil || price.Sign() <= 0 {
		return entity.ErrInvalidPrice
	}

	key := entity.ListingKey{Collection: collectionAddr, AssetID: id}
	prev, existed := m.listings[key]
	if existed && prev.Active {
		return fmt.Errorf("%w: asset %d", entity.ErrAlreadyListed, id)
	}

	m.listings[key] = &entity.Listing{
		Collection: collectionAddr,
		AssetID:    id,
		Seller:     c.Caller,
		Price:      new(big.Int).Set(price),
		Active:     true,
	}
	c.OnRevert(func() {
		if existed {
			m.listings[key] = prev
		} else {
			delete(m.listings, key)
		}
	})

	c.Emit(entity.ListingCreatedEvent, map[string]string{
		"collection": collectionAddr.Hex(),
		"assetId":    strconv.FormatUint(id, 10),
		"seller":     c.Caller.Hex(),
		"price":      price.String(),
	})

	return nil
}

func (m *Marketplace) cancelListing(c *ledger.Call, collection common.Address, id uint64) error {
	listing, ok := m.listings[entity.ListingKey{Collection: collection, AssetID: id}]
	if !ok || !listing.Active {
		return fmt.Errorf("%w: asset %d", entity.ErrNotActive, id)
	}
	if listing.Seller != c.Caller {
		return fmt.Errorf("%w: only the seller may cancel", entity.ErrUnauthorized)
	}

	m.deactivate(c, listing)

	c.Emit(entity.ListingCancelledEvent, map[string]string{
		"collection": collection.Hex(),
		"assetId":    strconv.FormatUint(id, 10),
		"seller":     listing.Seller.Hex(),
	})

	return nil
}

func (m *Marketplace) buy(c *ledger.Call, collectionAddr common.Address, id uint64) error {
	listing, ok := m.listings[entity.ListingKey{Collection: collectionAddr, AssetID: id}]
	if !ok || !listing.Active {
		return fmt.Errorf("%w: asset %d", entity.ErrNotActive, id)
	}
	if c.Value.Cmp(listing.Price) < 0 {
		return fmt.Errorf("%w: sent %s, listing price is %s", entity.ErrInsufficientPayment, c.Value, listing.Price)
	}

	collection, err := m.collection(collectionAddr)
	if err != nil {
		return err
	}

	fee, sellerAmount := SplitFee(listing.Price, m.fee.FeeBps)

	m.deactivate(c, listing)

	if err := collection.TransferFrom(c, listing.Seller, c.Caller, id); err != nil {
		return fmt.Errorf("%w: asset %d: %v", entity.ErrTransferFailed, id, err)
	}

	m.credit(c, m.fee.FeeRecipient, fee)
	m.credit(c, listing.Seller, sellerAmount)

	if excess := new(big.Int).Sub(c.Value, listing.Price); excess.Sign() > 0 {
		if err := c.Send(c.Caller, excess); err != nil {
			return fmt.Errorf("%w: refund of %s: %v", entity.ErrTransferFailed, excess, err)
		}
	}

	c.Emit(entity.SaleEvent, map[string]string{
		"collection":   collectionAddr.Hex(),
		"assetId":      strconv.FormatUint(id, 10),
		"seller":       listing.Seller.Hex(),
		"buyer":        c.Caller.Hex(),
		"price":        listing.Price.String(),
		"fee":          fee.String(),
		"sellerAmount": sellerAmount.String(),
		"feeRecipient": m.fee.FeeRecipient.Hex(),
	})

	return nil
}

// withdrawProceeds zeroes the balance before sending it, so a reentrant call
// from the recipient finds nothing left to claim.
func (m *Marketplace) withdrawProceeds(c *ledger.Call) error {
	caller := c.Caller
	amount, ok := m.proceeds[caller]
	if !ok || amount.Sign() == 0 {
		return entity.ErrNothingToWithdraw
	}

	m.proceeds[caller] = new(big.Int)
	c.OnRevert(func() { m.proceeds[caller] = amount })

	if err := c.Send(caller, amount); err != nil {
		return fmt.Errorf("%w: withdrawal of %s: %v", entity.ErrTransferFailed, amount, err)
	}

	c.Emit(entity.ProceedsWithdrawEvent, map[string]string{
		"to":     caller.Hex(),
		"amount": amount.String(),
	})

	return nil
}

func (m *Marketplace) setFee(c *ledger.Call, feeBps uint, feeRecipient common.Address) error {
	if c.Caller != m.owner {
		return fmt.Errorf("%w: fee update", entity.ErrUnauthorized)
	}

	fee := entity.FeeConfig{FeeBps: feeBps, FeeRecipient: feeRecipient}
	if err := fee.Validate(); err != nil {
		return err
	}

	prev := m.fee
	m.fee = fee
	c.OnRevert(func() { m.fee = prev })

	c.Emit(entity.FeeUpdatedEvent, map[string]string{
		"feeBps":       strconv.FormatUint(uint64(feeBps), 10),
		"feeRecipient": feeRecipient.Hex(),
	})

	return nil
}

func (m *Marketplace) deactivate(c *ledger.Call, listing *entity.Listing) {
	listing.Active = false
	c.OnRevert(func() { listing.Active = true })
}

func (m *Marketplace) credit(c *ledger.Call, addr common.Address, amount *big.Int) {
	if amount.Sign() == 0 {
		return
	}

	prev, existed := m.proceeds[addr]
	balance := new(big.Int).Set(amount)
	if existed {
		balance.Add(balance, prev)
	}
	m.proceeds[addr] = balance

	c.OnRevert(func() {
		if existed {
			m.proceeds[addr] = prev
		} else {
			delete(m.proceeds, addr)
		}
	})
}

func (m *Marketplace) collection(addr common.Address) (Collection, error) {
	collection, ok := m.collections[addr]
	if !ok {
		return nil, fmt.Errorf("%w: %s", entity.ErrUnknownCollection, addr.Hex())
	}

	return collection, nil
}

func (m *Marketplace) logResult(msg string, from, collection common.Address, id uint64, receipt *ledger.Receipt, err error) {
	logger := zap.L().With(
		zap.String("from", from.Hex()),
		zap.String("collection", collection.Hex()),
		zap.Uint64("assetId", id),
	)
	if err != nil {
		logger.With(zap.Error(err)).Warn(msg + " failed")
		return
	}

	logger.With(zap.String("txId", receipt.TxID)).Info(msg)
}

func copyListing(listing *entity.Listing) entity.Listing {
	l := *listing
	l.Price = new(big.Int).Set(listing.Price)

	return l
}
