package permission_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/farm-management/internal/permission"
)

func TestPermission(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Permission Suite")
}

var _ = Describe("ForRole", func() {
	It("should grant admins the global variant of every action", func() {
		set := permission.ForRole(permission.RoleAdmin)

		Expect(set.Has(permission.FarmerSelect)).To(BeTrue())
		Expect(set.Has(permission.FarmerCreate)).To(BeTrue())
		Expect(set.Has(permission.FarmerUpdate)).To(BeTrue())
		Expect(set.Has(permission.FarmerDelete)).To(BeTrue())
		Expect(set.Has(permission.FileUpdate)).To(BeTrue())
		Expect(set.Has(permission.FileDelete)).To(BeTrue())
		Expect(set.List()).To(HaveLen(12))
	})

	It("should grant regular users only read, create and the owned variants", func() {
		set := permission.ForRole(permission.RoleUser)

		Expect(set.Has(permission.FarmerSelect)).To(BeTrue())
		Expect(set.Has(permission.FarmerCreate)).To(BeTrue())
		Expect(set.Has(permission.FarmerOwnedUpdate)).To(BeTrue())
		Expect(set.Has(permission.FarmerOwnedDelete)).To(BeTrue())
		Expect(set.Has(permission.FarmerUpdate)).To(BeFalse())
		Expect(set.Has(permission.FarmerDelete)).To(BeFalse())
		Expect(set.Has(permission.FileUpdate)).To(BeFalse())
		Expect(set.Has(permission.FileDelete)).To(BeFalse())
		Expect(set.List()).To(HaveLen(8))
	})

	It("should return the same permissions on every call for the same role", func() {
		first := permission.ForRole(permission.RoleUser)
		second := permission.ForRole(permission.RoleUser)

		Expect(first.List()).To(Equal(second.List()))
	})

	It("should hand out an independent copy per call", func() {
		first := permission.ForRole(permission.RoleUser)
		delete(first, permission.FarmerSelect)

		Expect(permission.ForRole(permission.RoleUser).Has(permission.FarmerSelect)).To(BeTrue())
	})

	It("should return an empty set for an unknown role", func() {
		Expect(permission.ForRole(permission.Role("auditor")).List()).To(BeEmpty())
	})
})

var _ = Describe("Policies", func() {
	var (
		ctx   context.Context
		admin *permission.User
		user  *permission.User
	)

	BeforeEach(func() {
		ctx = context.Background()
		admin = permission.NewUser("admin-1", "sess-a", permission.RoleAdmin)
		user = permission.NewUser("user-1", "sess-u", permission.RoleUser)
	})

	Describe("Require", func() {
		It("should pass when the user holds the permission", func() {
			Expect(permission.Require(permission.FarmerDelete)(ctx, admin)).To(Succeed())
		})

		It("should fail with a forbidden error naming the user", func() {
			err := permission.Require(permission.FarmerDelete)(ctx, user)

			var forbidden *permission.ForbiddenError
			Expect(errors.As(err, &forbidden)).To(BeTrue())
			Expect(forbidden.Message).To(Equal("User user-1 does not have permission to proceed with the action."))
		})

		It("should fail for a nil user", func() {
			err := permission.Require(permission.FarmerSelect)(ctx, nil)

			var forbidden *permission.ForbiddenError
			Expect(errors.As(err, &forbidden)).To(BeTrue())
			Expect(forbidden.Message).To(ContainSubstring("anonymous"))
		})
	})

	Describe("RequireMessage", func() {
		It("should use the supplied message on failure", func() {
			err := permission.RequireMessage(permission.FileDelete, "cannot delete files")(ctx, user)

			var forbidden *permission.ForbiddenError
			Expect(errors.As(err, &forbidden)).To(BeTrue())
			Expect(forbidden.Message).To(Equal("cannot delete files"))
		})
	})

	Describe("Custom", func() {
		It("should pass when the predicate holds", func() {
			policy := permission.Custom(func(_ context.Context, u *permission.User) (bool, error) {
				return u.UserID == "user-1", nil
			}, "")

			Expect(policy(ctx, user)).To(Succeed())
		})

		It("should propagate a predicate error unchanged", func() {
			boom := errors.New("lookup failed")
			policy := permission.Custom(func(_ context.Context, _ *permission.User) (bool, error) {
				return false, boom
			}, "")

			Expect(policy(ctx, user)).To(MatchError(boom))
		})

		It("should fail with the message when the predicate is false", func() {
			policy := permission.Custom(func(_ context.Context, _ *permission.User) (bool, error) {
				return false, nil
			}, "not yours")

			var forbidden *permission.ForbiddenError
			Expect(errors.As(policy(ctx, user), &forbidden)).To(BeTrue())
			Expect(forbidden.Message).To(Equal("not yours"))
		})
	})

	Describe("All", func() {
		It("should pass when every policy passes", func() {
			policy := permission.All(
				permission.Require(permission.FarmerSelect),
				permission.Require(permission.FarmerCreate),
			)

			Expect(policy(ctx, user)).To(Succeed())
		})

		It("should stop at the first failure and never evaluate the rest", func() {
			evaluated := false
			policy := permission.All(
				permission.RequireMessage(permission.FarmerDelete, "first failure"),
				permission.Custom(func(_ context.Context, _ *permission.User) (bool, error) {
					evaluated = true
					return true, nil
				}, ""),
			)

			err := policy(ctx, user)

			Expect(err).To(MatchError("first failure"))
			Expect(evaluated).To(BeFalse())
		})

		It("should pass with no policies", func() {
			Expect(permission.All()(ctx, user)).To(Succeed())
		})
	})

	Describe("Any", func() {
		It("should pass on the first success without evaluating the rest", func() {
			evaluated := false
			policy := permission.Any(
				permission.Require(permission.FarmerSelect),
				permission.Custom(func(_ context.Context, _ *permission.User) (bool, error) {
					evaluated = true
					return true, nil
				}, ""),
			)

			Expect(policy(ctx, user)).To(Succeed())
			Expect(evaluated).To(BeFalse())
		})

		It("should surface the last failure when every policy fails", func() {
			policy := permission.Any(
				permission.RequireMessage(permission.FarmerDelete, "first failure"),
				permission.RequireMessage(permission.FileDelete, "last failure"),
			)

			Expect(policy(ctx, user)).To(MatchError("last failure"))
		})

		It("should fail with no policies", func() {
			var forbidden *permission.ForbiddenError
			Expect(errors.As(permission.Any()(ctx, user), &forbidden)).To(BeTrue())
		})
	})

	Describe("With", func() {
		It("should run the operation after the policy passes", func() {
			result, err := permission.With(ctx, admin, permission.Require(permission.FarmerDelete),
				func(ctx context.Context) (string, error) {
					return "done", nil
				})

			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal("done"))
		})

		It("should not run the operation when the policy fails", func() {
			ran := false
			_, err := permission.With(ctx, user, permission.Require(permission.FarmerDelete),
				func(ctx context.Context) (string, error) {
					ran = true
					return "done", nil
				})

			var forbidden *permission.ForbiddenError
			Expect(errors.As(err, &forbidden)).To(BeTrue())
			Expect(ran).To(BeFalse())
		})
	})
})

type ownedRow struct {
	ID      string
	OwnerID string
}

var _ = Describe("PartitionByOwnership", func() {
	var (
		ctx  context.Context
		user *permission.User
	)

	partition := func(rows []ownedRow) permission.PermissionCheckResult[ownedRow, string] {
		return permission.PartitionByOwnership(ctx, user, rows,
			func(r ownedRow) string { return r.ID },
			func(r ownedRow) string { return r.OwnerID })
	}

	BeforeEach(func() {
		ctx = context.Background()
		user = permission.NewUser("user-1", "sess-u", permission.RoleUser)
	})

	It("should split rows by owner and preserve relative order", func() {
		rows := []ownedRow{
			{ID: "a", OwnerID: "user-1"},
			{ID: "b", OwnerID: "user-2"},
			{ID: "c", OwnerID: "user-1"},
			{ID: "d", OwnerID: "user-3"},
		}

		result := partition(rows)

		Expect(result.OwnedItems).To(Equal([]ownedRow{
			{ID: "a", OwnerID: "user-1"},
			{ID: "c", OwnerID: "user-1"},
		}))
		Expect(result.UnPermissionedItems).To(Equal([]permission.UnPermissionedItem[string]{
			{ItemID: "b", Error: "Insufficient permissions for this item"},
			{ItemID: "d", Error: "Insufficient permissions for this item"},
		}))
	})

	It("should cover every input row across the two lists", func() {
		rows := make([]ownedRow, 0, 50)
		for i := 0; i < 50; i++ {
			owner := "user-1"
			if i%3 == 0 {
				owner = "someone-else"
			}
			rows = append(rows, ownedRow{ID: fmt.Sprintf("row-%02d", i), OwnerID: owner})
		}

		result := partition(rows)

		Expect(len(result.OwnedItems) + len(result.UnPermissionedItems)).To(Equal(len(rows)))
	})

	It("should produce the same partition when run twice on the same input", func() {
		rows := []ownedRow{
			{ID: "a", OwnerID: "user-2"},
			{ID: "b", OwnerID: "user-1"},
			{ID: "c", OwnerID: "user-2"},
		}

		first := partition(rows)
		second := partition(rows)

		Expect(first).To(Equal(second))
	})

	It("should return two empty lists for empty input", func() {
		result := partition(nil)

		Expect(result.OwnedItems).To(BeEmpty())
		Expect(result.UnPermissionedItems).To(BeEmpty())
	})

	It("should deny every row when the user owns none of them", func() {
		rows := []ownedRow{
			{ID: "a", OwnerID: "user-2"},
			{ID: "b", OwnerID: "user-2"},
		}

		result := partition(rows)

		Expect(result.OwnedItems).To(BeEmpty())
		Expect(result.UnPermissionedItems).To(HaveLen(2))
	})
})
