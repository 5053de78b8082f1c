package entity

import "errors"

var (
	ErrInsufficientPayment = errors.New("payment below required price")
	ErrUnauthorized        = errors.New("caller is not authorized")
	ErrNotOwner            = errors.New("address does not own the asset")
	ErrUnknownAsset        = errors.New("asset does not exist")
	ErrUnknownCollection   = errors.New("collection is not served by this marketplace")
	ErrInvalidPrice        = errors.New("price must be greater than zero")
	ErrInvalidRecipient    = errors.New("recipient is the zero address")
	ErrAlreadyListed       = errors.New("asset is already listed")
	ErrNotActive           = errors.New("listing is not active")
	ErrTransferFailed      = errors.New("transfer failed")
	ErrNothingToWithdraw   = errors.New("no proceeds to withdraw")
	ErrInvalidFee          = errors.New("fee exceeds 10000 basis points")

	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrTransferRejected  = errors.New("transfer rejected by recipient")
)

// ErrorKind returns the taxonomy name of a ledger error, or an empty string
// if err is not one of them. Wrapping kinds are checked first so an error
// that matches several reports the outermost one.
func ErrorKind(err error) string {
	for _, k := range errorKinds {
		if errors.Is(err, k.target) {
			return k.kind
		}
	}
	return ""
}

var errorKinds = []struct {
	kind   string
	target error
}{
	{"TransferFailed", ErrTransferFailed},
	{"TransferRejected", ErrTransferRejected},
	{"InsufficientPayment", ErrInsufficientPayment},
	{"Unauthorized", ErrUnauthorized},
	{"NotOwner", ErrNotOwner},
	{"UnknownAsset", ErrUnknownAsset},
	{"UnknownCollection", ErrUnknownCollection},
	{"InvalidPrice", ErrInvalidPrice},
	{"InvalidRecipient", ErrInvalidRecipient},
	{"AlreadyListed", ErrAlreadyListed},
	{"NotActive", ErrNotActive},
	{"NothingToWithdraw", ErrNothingToWithdraw},
	{"InvalidFee", ErrInvalidFee},
	{"InsufficientFunds", ErrInsufficientFunds},
}
