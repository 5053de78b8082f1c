package api

type FaucetRequest struct {
	To     string `json:"to"`
	Amount string `json:"amount"`
}

type MintRequest struct {
	From    string `json:"from"`
	Value   string `json:"value"`
	Locator string `json:"locator"`
}

type AdminMintRequest struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Locator string `json:"locator"`
}

type ApproveRequest struct {
	From     string `json:"from"`
	Operator string `json:"operator"`
}

type TransferRequest struct {
	From   string `json:"from"`
	Sender string `json:"sender"`
	To     string `json:"to"`
}

type MintConfigRequest struct {
	From      string  `json:"from"`
	BasePrice *string `json:"basePrice"`
	BaseUri   *string `json:"baseUri"`
}

type FromRequest struct {
	From string `json:"from"`
}

type ListingRequest struct {
	From       string `json:"from"`
	Collection string `json:"collection"`
	AssetID    uint64 `json:"assetId"`
	Price      string `json:"price"`
}

type BuyRequest struct {
	From  string `json:"from"`
	Value string `json:"value"`
}

type FeeRequest struct {
	From         string `json:"from"`
	FeeBps       uint   `json:"feeBps"`
	FeeRecipient string `json:"feeRecipient"`
}
