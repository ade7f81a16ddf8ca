// Package bulk runs a batch mutation as independent per-id operations and
// aggregates the outcomes. One id failing never aborts the rest of the
// batch; there is deliberately no transaction across a batch, so a mixed
// success/failure result is the expected shape, not an error.
package bulk

import (
	"context"

	"golang.org/x/sync/errgroup"
)

const applyConcurrency = 8

// FailedItem records one id whose mutation did not go through, with the
// store's error message when it produced one.
type FailedItem[ID comparable] struct {
	ItemID ID     `json:"itemId"`
	Error  string `json:"error"`
}

// Result partitions the attempted ids. Succeeded and Failed are disjoint and
// their union is exactly the input id set, both in input order.
type Result[ID comparable] struct {
	Succeeded []ID
	Failed    []FailedItem[ID]
}

// Op mutates one row. returned reports whether the store handed back the
// affected row; a clean call that returns no row is still a failure.
type Op[ID comparable] func(ctx context.Context, id ID) (returned bool, err error)

// Messages supplies the failure texts for one resource/verb pair.
type Messages[ID comparable] struct {
	// NoRow is recorded when the store call succeeded but returned no row,
	// e.g. "Server didn't return the deleted file".
	NoRow string
	// Unknown builds the fallback for a store error with an empty message,
	// e.g. "Unknown error deleting file <id>".
	Unknown func(id ID) string
}

// Apply attempts op for every id concurrently and collects per-id outcomes
// in input order.
func Apply[ID comparable](ctx context.Context, ids []ID, op Op[ID], msgs Messages[ID]) Result[ID] {
	type outcome struct {
		returned bool
		err      error
	}
	outcomes := make([]outcome, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(applyConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			returned, err := op(gctx, id)
			outcomes[i] = outcome{returned: returned, err: err}
			return nil
		})
	}
	// Per-id errors are captured in outcomes, never surfaced through the
	// group.
	_ = g.Wait()

	result := Result[ID]{
		Succeeded: make([]ID, 0, len(ids)),
		Failed:    make([]FailedItem[ID], 0),
	}
	for i, id := range ids {
		o := outcomes[i]
		switch {
		case o.err != nil:
			msg := o.err.Error()
			if msg == "" {
				msg = msgs.Unknown(id)
			}
			result.Failed = append(result.Failed, FailedItem[ID]{ItemID: id, Error: msg})
		case !o.returned:
			result.Failed = append(result.Failed, FailedItem[ID]{ItemID: id, Error: msgs.NoRow})
		default:
			result.Succeeded = append(result.Succeeded, id)
		}
	}
	return result
}
