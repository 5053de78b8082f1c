package registry

import (
	"fmt"
	"math/big"
	"sort"
	"strconv"

	"github.com/ZilDuck/blaze-marketplace/internal/entity"
	"github.com/ZilDuck/blaze-marketplace/internal/ledger"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Registry owns the unique asset records of a single collection. State is
// only touched from within ledger frames, so reads go through ledger.View.
type Registry struct {
	ledger  *ledger.Ledger
	address common.Address
	config  entity.MintConfig
	assets  map[uint64]*entity.Asset
	nextId  uint64
}

func NewRegistry(l *ledger.Ledger, address, admin common.Address, baseUri string, basePrice *big.Int) *Registry {
	price := new(big.Int)
	if basePrice != nil {
		price.Set(basePrice)
	}

	return &Registry{
		ledger:  l,
		address: address,
		config:  entity.MintConfig{BasePrice: price, BaseUri: baseUri, Admin: admin},
		assets:  make(map[uint64]*entity.Asset),
		nextId:  1,
	}
}

func (r *Registry) Address() common.Address {
	return r.address
}

// Mint assigns the next id to from. value must cover the base price; any
// excess is refunded within the same transaction.
func (r *Registry) Mint(from common.Address, value *big.Int, locator string) (uint64, *ledger.Receipt, error) {
	var id uint64
	receipt, err := r.ledger.Execute(from, r.address, value, func(c *ledger.Call) error {
		price := r.config.BasePrice
		if c.Value.Cmp(price) < 0 {
			return fmt.Errorf("%w: sent %s, mint price is %s", entity.ErrInsufficientPayment, c.Value, price)
		}

		var err error
		if id, err = r.mint(c, c.Caller, locator); err != nil {
			return err
		}

		if excess := new(big.Int).Sub(c.Value, price); excess.Sign() > 0 {
			if err := c.Send(c.Caller, excess); err != nil {
				return fmt.Errorf("%w: refund of %s: %v", entity.ErrTransferFailed, excess, err)
			}
		}

		return nil
	})
	if err != nil {
		zap.L().With(zap.String("from", from.Hex()), zap.Error(err)).Warn("Registry: mint failed")
		return 0, nil, err
	}

	zap.L().With(zap.String("owner", from.Hex()), zap.Uint64("assetId", id), zap.String("txId", receipt.TxID)).Info("Registry: minted")

	return id, receipt, nil
}

func (r *Registry) AdminMint(from, recipient common.Address, locator string) (uint64, *ledger.Receipt, error) {
	var id uint64
	receipt, err := r.ledger.Execute(from, r.address, nil, func(c *ledger.Call) error {
		if c.Caller != r.config.Admin {
			return fmt.Errorf("%w: admin mint", entity.ErrUnauthorized)
		}

		var err error
		id, err = r.mint(c, recipient, locator)
		return err
	})
	if err != nil {
		zap.L().With(zap.String("from", from.Hex()), zap.String("to", recipient.Hex()), zap.Error(err)).Warn("Registry: admin mint failed")
		return 0, nil, err
	}

	zap.L().With(zap.String("owner", recipient.Hex()), zap.Uint64("assetId", id), zap.String("txId", receipt.TxID)).Info("Registry: admin minted")

	return id, receipt, nil
}

func (r *Registry) Approve(from, operator common.Address, id uint64) (*ledger.Receipt, error) {
	return r.ledger.Execute(from, r.address, nil, func(c *ledger.Call) error {
		return r.approve(c, operator, id)
	})
}

func (r *Registry) Transfer(from, sender, to common.Address, id uint64) (*ledger.Receipt, error) {
	return r.ledger.Execute(from, r.address, nil, func(c *ledger.Call) error {
		return r.transfer(c, sender, to, id)
	})
}

func (r *Registry) SetMintConfig(from common.Address, update entity.MintConfigUpdate) (*ledger.Receipt, error) {
	return r.ledger.Execute(from, r.address, nil, func(c *ledger.Call) error {
		return r.setMintConfig(c, update)
	})
}

// Withdraw sends the registry's whole balance to the admin. A zero balance is
// a no-op, not an error.
func (r *Registry) Withdraw(from common.Address) (*ledger.Receipt, error) {
	return r.ledger.Execute(from, r.address, nil, r.withdraw)
}

// TransferFrom moves an asset on behalf of the frame's account. It runs as a
// nested call so the registry sees c.Self as its caller.
func (r *Registry) TransferFrom(c *ledger.Call, from, to common.Address, id uint64) error {
	return c.Call(r.address, nil, func(sub *ledger.Call) error {
		return r.transfer(sub, from, to, id)
	})
}

func (r *Registry) OwnerOf(c *ledger.Call, id uint64) (common.Address, error) {
	asset, ok := r.assets[id]
	if !ok {
		return common.Address{}, fmt.Errorf("%w: %d", entity.ErrUnknownAsset, id)
	}

	return asset.Owner, nil
}

func (r *Registry) GetApproved(c *ledger.Call, id uint64) (common.Address, error) {
	asset, ok := r.assets[id]
	if !ok {
		return common.Address{}, fmt.Errorf("%w: %d", entity.ErrUnknownAsset, id)
	}

	return asset.Approved, nil
}

func (r *Registry) ResolveLocator(c *ledger.Call, id uint64) (string, error) {
	asset, ok := r.assets[id]
	if !ok {
		return "", fmt.Errorf("%w: %d", entity.ErrUnknownAsset, id)
	}

	return asset.Locator(r.config.BaseUri), nil
}

func (r *Registry) Asset(c *ledger.Call, id uint64) (entity.Asset, error) {
	asset, ok := r.assets[id]
	if !ok {
		return entity.Asset{}, fmt.Errorf("%w: %d", entity.ErrUnknownAsset, id)
	}

	return *asset, nil
}

func (r *Registry) MintConfig(c *ledger.Call) entity.MintConfig {
	cfg := r.config
	cfg.BasePrice = new(big.Int).Set(r.config.BasePrice)

	return cfg
}

func (r *Registry) NextID(c *ledger.Call) uint64 {
	return r.nextId
}

func (r *Registry) TotalSupply(c *ledger.Call) uint64 {
	return r.nextId - 1
}

func (r *Registry) BalanceOf(c *ledger.Call, owner common.Address) uint64 {
	return uint64(len(r.AssetsOf(c, owner)))
}

// AssetsOf returns the ids held by owner in ascending order.
func (r *Registry) AssetsOf(c *ledger.Call, owner common.Address) []uint64 {
	ids := make([]uint64, 0)
	for id, asset := range r.assets {
		if asset.Owner == owner {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return ids
}

func (r *Registry) mint(c *ledger.Call, to common.Address, locator string) (uint64, error) {
	if to == (common.Address{}) {
		return 0, fmt.Errorf("%w: mint", entity.ErrInvalidRecipient)
	}

	id := r.nextId
	r.nextId++
	r.assets[id] = &entity.Asset{ID: id, Collection: r.address, Owner: to, LocatorOverride: locator}
	c.OnRevert(func() {
		delete(r.assets, id)
		r.nextId = id
	})

	c.Emit(entity.MintEvent, map[string]string{
		"assetId": strconv.FormatUint(id, 10),
		"to":      to.Hex(),
		"locator": locator,
	})
	c.Emit(entity.TransferEvent, map[string]string{
		"assetId": strconv.FormatUint(id, 10),
		"from":    common.Address{}.Hex(),
		"to":      to.Hex(),
	})

	return id, nil
}

func (r *Registry) approve(c *ledger.Call, operator common.Address, id uint64) error {
	asset, ok := r.assets[id]
	if !ok {
		return fmt.Errorf("%w: %d", entity.ErrUnknownAsset, id)
	}
	if c.Caller != asset.Owner {
		return fmt.Errorf("%w: only the owner may approve asset %d", entity.ErrUnauthorized, id)
	}

	prev := asset.Approved
	asset.Approved = operator
	c.OnRevert(func() { asset.Approved = prev })

	c.Emit(entity.ApprovalEvent, map[string]string{
		"assetId":  strconv.FormatUint(id, 10),
		"owner":    asset.Owner.Hex(),
		"operator": operator.Hex(),
	})

	return nil
}

func (r *Registry) transfer(c *ledger.Call, from, to common.Address, id uint64) error {
	asset, ok := r.assets[id]
	if !ok {
		return fmt.Errorf("%w: %d", entity.ErrUnknownAsset, id)
	}
	if c.Caller != from && (!asset.HasApproval() || c.Caller != asset.Approved) {
		return fmt.Errorf("%w: %s may not transfer asset %d", entity.ErrUnauthorized, c.Caller.Hex(), id)
	}
	if asset.Owner != from {
		return fmt.Errorf("%w: %s does not hold asset %d", entity.ErrNotOwner, from.Hex(), id)
	}
	if to == (common.Address{}) {
		return fmt.Errorf("%w: transfer of asset %d", entity.ErrInvalidRecipient, id)
	}

	prevOwner, prevApproved := asset.Owner, asset.Approved
	asset.Owner = to
	asset.Approved = common.Address{}
	c.OnRevert(func() {
		asset.Owner = prevOwner
		asset.Approved = prevApproved
	})

	c.Emit(entity.TransferEvent, map[string]string{
		"assetId": strconv.FormatUint(id, 10),
		"from":    from.Hex(),
		"to":      to.Hex(),
	})

	return nil
}

func (r *Registry) setMintConfig(c *ledger.Call, update entity.MintConfigUpdate) error {
	if c.Caller != r.config.Admin {
		return fmt.Errorf("%w: mint config", entity.ErrUnauthorized)
	}
	if update.BasePrice != nil && update.BasePrice.Sign() < 0 {
		return fmt.Errorf("%w: negative base price", entity.ErrInvalidPrice)
	}

	prev := r.config
	c.OnRevert(func() { r.config = prev })

	params := map[string]string{}
	if update.BasePrice != nil {
		r.config.BasePrice = new(big.Int).Set(update.BasePrice)
		params["basePrice"] = update.BasePrice.String()
	}
	if update.BaseUri != nil {
		r.config.BaseUri = *update.BaseUri
		params["baseUri"] = *update.BaseUri
	}

	c.Emit(entity.MintConfigUpdatedEvent, params)

	return nil
}

func (r *Registry) withdraw(c *ledger.Call) error {
	if c.Caller != r.config.Admin {
		return fmt.Errorf("%w: withdraw", entity.ErrUnauthorized)
	}

	balance := c.BalanceOf(r.address)
	if balance.Sign() == 0 {
		return nil
	}

	if err := c.Send(r.config.Admin, balance); err != nil {
		return fmt.Errorf("%w: withdraw: %v", entity.ErrTransferFailed, err)
	}

	c.Emit(entity.RegistryWithdrawEvent, map[string]string{
		"to":     r.config.Admin.Hex(),
		"amount": balance.String(),
	})

	return nil
}
