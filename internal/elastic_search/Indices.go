package elastic_search

import (
	"fmt"
)

type Indices string

var (
	EventIndex   Indices = "event"
	ListingIndex Indices = "listing"
	AssetIndex   Indices = "asset"
)

// Get prefixes the index with the deployment, eg "blaze.dev.listing"
func (i Indices) Get(prefix string) string {
	return fmt.Sprintf("%s.%s", prefix, string(i))
}

func All() []Indices {
	return []Indices{
		EventIndex,
		ListingIndex,
		AssetIndex,
	}
}
