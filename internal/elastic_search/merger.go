package elastic_search

import (
	"github.com/ZilDuck/blaze-marketplace/internal/entity"
	"go.uber.org/zap"
)

// mergeRequests folds an update into a request still waiting in the buffer.
func mergeRequests(cached Request, action RequestAction, e entity.Entity) entity.Entity {
	switch result := cached.Entity.(type) {
	case ListingDocument:
		update := e.(ListingDocument)
		if action == ListingCancel || action == ListingSale {
			result.Active = update.Active
			result.Buyer = update.Buyer
			result.Sequence = update.Sequence
		} else {
			result = update
		}
		return result

	case AssetDocument:
		update := e.(AssetDocument)
		if action == AssetTransfer {
			result.Owner = update.Owner
			result.Sequence = update.Sequence
		} else {
			result = update
		}
		return result
	}

	zap.L().With(zap.String("slug", e.Slug()), zap.String("action", string(action))).
		Warn("ElasticSearch: Unmergeable request, keeping latest")
	return e
}
