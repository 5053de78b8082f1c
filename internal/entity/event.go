package entity

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gosimple/slug"
)

type EventType string

const (
	MintEvent              EventType = "Mint"
	TransferEvent          EventType = "Transfer"
	ApprovalEvent          EventType = "Approval"
	MintConfigUpdatedEvent EventType = "MintConfigUpdated"
	RegistryWithdrawEvent  EventType = "RegistryWithdrawal"

	ListingCreatedEvent   EventType = "ListingCreated"
	ListingCancelledEvent EventType = "ListingCancelled"
	SaleEvent             EventType = "Sale"
	ProceedsWithdrawEvent EventType = "ProceedsWithdrawn"
	FeeUpdatedEvent       EventType = "FeeUpdated"
)

// Event is an append-only record of a committed state change.
type Event struct {
	TxID     string            `json:"txId"`
	Sequence uint64            `json:"sequence"`
	Index    int               `json:"index"`
	Contract common.Address    `json:"contract"`
	Type     EventType         `json:"type"`
	Params   map[string]string `json:"params"`
}

func (e Event) Slug() string {
	return CreateEventSlug(e.TxID, e.Index)
}

func CreateEventSlug(txId string, index int) string {
	return slug.Make(fmt.Sprintf("event-%s-%d", txId, index))
}

func (e Event) Param(key string) (string, bool) {
	value, ok := e.Params[key]
	return value, ok
}
