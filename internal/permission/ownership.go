package permission

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// OwnershipDeniedMessage is the fixed error recorded for every row that
// fails its ownership check.
const OwnershipDeniedMessage = "Insufficient permissions for this item"

// ownershipConcurrency bounds the fan-out of per-item checks.
const ownershipConcurrency = 8

// UnPermissionedItem records one row that failed an ownership check.
type UnPermissionedItem[ID comparable] struct {
	ItemID ID     `json:"itemId"`
	Error  string `json:"error,omitempty"`
}

// PermissionCheckResult is the output of PartitionByOwnership. The two lists
// are disjoint by id, preserve the input's relative order, and together cover
// every input item.
type PermissionCheckResult[T any, ID comparable] struct {
	OwnedItems          []T
	UnPermissionedItems []UnPermissionedItem[ID]
}

// PartitionByOwnership splits already-fetched rows into those the current
// user owns and those it may not touch. Each item is checked with a Custom
// policy comparing the caller's user id against getOwnerID(item); the checks
// are independent pure comparisons, so they run concurrently. getOwnerID
// must read the in-memory row only; partitioning never goes back to the
// store.
func PartitionByOwnership[T any, ID comparable](
	ctx context.Context,
	user *User,
	items []T,
	getID func(T) ID,
	getOwnerID func(T) string,
) PermissionCheckResult[T, ID] {
	owned := make([]bool, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ownershipConcurrency)
	for i, item := range items {
		g.Go(func() error {
			check := Custom(func(_ context.Context, u *User) (bool, error) {
				return u.UserID == getOwnerID(item), nil
			}, OwnershipDeniedMessage)
			owned[i] = check(gctx, user) == nil
			return nil
		})
	}
	// The policies never return an error through the group; results land in
	// the owned slice indexed by input position.
	_ = g.Wait()

	result := PermissionCheckResult[T, ID]{
		OwnedItems:          make([]T, 0, len(items)),
		UnPermissionedItems: make([]UnPermissionedItem[ID], 0),
	}
	for i, item := range items {
		if owned[i] {
			result.OwnedItems = append(result.OwnedItems, item)
			continue
		}
		result.UnPermissionedItems = append(result.UnPermissionedItems, UnPermissionedItem[ID]{
			ItemID: getID(item),
			Error:  OwnershipDeniedMessage,
		})
	}
	return result
}
