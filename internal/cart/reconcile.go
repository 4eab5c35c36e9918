package cart

import (
	"github.com/flexystyles/storefront-backend/internal/app/model"
)

type MergeStrategy string

const (
	// MergeSum adds local quantities onto matching remote lines.
	MergeSum MergeStrategy = "sum"
	// MergeReplace lets the local quantity win on matching lines.
	MergeReplace MergeStrategy = "replace"
)

func ParseMergeStrategy(s string) MergeStrategy {
	if MergeStrategy(s) == MergeReplace {
		return MergeReplace
	}
	return MergeSum
}

// Reconcile folds a guest cart into a signed-in user's cart, summing
// quantities of lines that share a key.
func Reconcile(remote, local []model.CartLineItem) []model.CartLineItem {
	return ReconcileWith(MergeSum, remote, local)
}

// ReconcileWith is Reconcile with an explicit strategy. Neither input is
// modified and the result shares no memory with them.
func ReconcileWith(strategy MergeStrategy, remote, local []model.CartLineItem) []model.CartLineItem {
	if len(local) == 0 {
		return Clone(remote)
	}
	if len(remote) == 0 {
		return Clone(local)
	}

	merged := Clone(remote)
	for _, line := range Clone(local) {
		i := indexOf(merged, line.Key())
		switch {
		case i < 0:
			merged = append(merged, line)
		case strategy == MergeReplace:
			merged[i].Quantity = line.Quantity
		default:
			merged[i].Quantity += line.Quantity
		}
	}
	return merged
}
