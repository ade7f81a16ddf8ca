package bulk_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/farm-management/internal/bulk"
)

func TestBulk(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Bulk Suite")
}

var _ = Describe("Apply", func() {
	var ctx context.Context

	messages := bulk.Messages[string]{
		NoRow: "Server didn't return the deleted row",
		Unknown: func(id string) string {
			return fmt.Sprintf("Unknown error while deleting row %s", id)
		},
	}

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("should succeed for every id when the operation succeeds", func() {
		result := bulk.Apply(ctx, []string{"a", "b", "c"},
			func(_ context.Context, id string) (bool, error) {
				return true, nil
			}, messages)

		Expect(result.Succeeded).To(Equal([]string{"a", "b", "c"}))
		Expect(result.Failed).To(BeEmpty())
	})

	It("should keep processing the rest of the batch when one id fails", func() {
		result := bulk.Apply(ctx, []string{"a", "b", "c"},
			func(_ context.Context, id string) (bool, error) {
				if id == "b" {
					return false, errors.New("row is locked")
				}
				return true, nil
			}, messages)

		Expect(result.Succeeded).To(Equal([]string{"a", "c"}))
		Expect(result.Failed).To(Equal([]bulk.FailedItem[string]{
			{ItemID: "b", Error: "row is locked"},
		}))
	})

	It("should preserve the store's error message verbatim", func() {
		result := bulk.Apply(ctx, []string{"a"},
			func(_ context.Context, _ string) (bool, error) {
				return false, errors.New("duplicate key value violates unique constraint")
			}, messages)

		Expect(result.Failed).To(HaveLen(1))
		Expect(result.Failed[0].Error).To(Equal("duplicate key value violates unique constraint"))
	})

	It("should fall back to the unknown message when the error has no text", func() {
		result := bulk.Apply(ctx, []string{"a"},
			func(_ context.Context, _ string) (bool, error) {
				return false, errors.New("")
			}, messages)

		Expect(result.Failed).To(Equal([]bulk.FailedItem[string]{
			{ItemID: "a", Error: "Unknown error while deleting row a"},
		}))
	})

	It("should treat a clean call that returned no row as a failure", func() {
		result := bulk.Apply(ctx, []string{"a"},
			func(_ context.Context, _ string) (bool, error) {
				return false, nil
			}, messages)

		Expect(result.Succeeded).To(BeEmpty())
		Expect(result.Failed).To(Equal([]bulk.FailedItem[string]{
			{ItemID: "a", Error: "Server didn't return the deleted row"},
		}))
	})

	It("should keep both lists in input order", func() {
		ids := make([]string, 0, 40)
		for i := 0; i < 40; i++ {
			ids = append(ids, fmt.Sprintf("row-%02d", i))
		}

		result := bulk.Apply(ctx, ids,
			func(_ context.Context, id string) (bool, error) {
				if id[len(id)-1]%2 == 0 {
					return false, errors.New("failed " + id)
				}
				return true, nil
			}, messages)

		Expect(len(result.Succeeded) + len(result.Failed)).To(Equal(len(ids)))

		succeeded := append([]string(nil), result.Succeeded...)
		Expect(sortedCopy(succeeded)).To(Equal(succeeded))

		failedIDs := make([]string, 0, len(result.Failed))
		for _, f := range result.Failed {
			failedIDs = append(failedIDs, f.ItemID)
		}
		Expect(sortedCopy(failedIDs)).To(Equal(failedIDs))
	})

	It("should return two empty lists for an empty id list", func() {
		result := bulk.Apply(ctx, nil,
			func(_ context.Context, _ string) (bool, error) {
				return true, nil
			}, messages)

		Expect(result.Succeeded).To(BeEmpty())
		Expect(result.Failed).To(BeEmpty())
	})
})

// sortedCopy relies on the generated ids already being zero-padded, so
// lexical order equals input order.
func sortedCopy(in []string) []string {
	out := append([]string(nil), in...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j] < out[j-1]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
