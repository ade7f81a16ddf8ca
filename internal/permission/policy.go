package permission

import (
	"context"
	"fmt"
)

// ForbiddenError is the terminal failure of every policy. The transport
// layer maps it to HTTP 403.
type ForbiddenError struct {
	Message string
}

func (e *ForbiddenError) Error() string {
	return e.Message
}

func forbidden(user *User, message string) *ForbiddenError {
	if message == "" {
		userID := "anonymous"
		if user != nil {
			userID = user.UserID
		}
		message = fmt.Sprintf("User %s does not have permission to proceed with the action.", userID)
	}
	return &ForbiddenError{Message: message}
}

// Policy is an evaluable authorization check. A nil error means the check
// passed; otherwise the error is a *ForbiddenError, or whatever the
// predicate of a Custom policy returned.
type Policy func(ctx context.Context, user *User) error

// Custom builds a policy from an arbitrary predicate over the current user.
// A false result fails with message, or the generated default when message
// is empty. A predicate error propagates unchanged.
func Custom(predicate func(ctx context.Context, user *User) (bool, error), message string) Policy {
	return func(ctx context.Context, user *User) error {
		if user == nil {
			return forbidden(nil, message)
		}
		ok, err := predicate(ctx, user)
		if err != nil {
			return err
		}
		if !ok {
			return forbidden(user, message)
		}
		return nil
	}
}

// Require succeeds iff the current user's permission set contains required.
func Require(required Permission) Policy {
	return RequireMessage(required, "")
}

// RequireMessage is Require with a caller-supplied failure message.
func RequireMessage(required Permission, message string) Policy {
	return Custom(func(_ context.Context, user *User) (bool, error) {
		return user.Has(required), nil
	}, message)
}

// All succeeds iff every policy succeeds. Evaluation is sequential and stops
// at the first failure; that failure becomes the overall error.
func All(policies ...Policy) Policy {
	return func(ctx context.Context, user *User) error {
		for _, p := range policies {
			if err := p(ctx, user); err != nil {
				return err
			}
		}
		return nil
	}
}

// Any succeeds on the first policy that succeeds. When every policy fails,
// the last failure is returned, so order decides which error surfaces.
func Any(policies ...Policy) Policy {
	return func(ctx context.Context, user *User) error {
		var last error
		for _, p := range policies {
			if err := p(ctx, user); err != nil {
				last = err
				continue
			}
			return nil
		}
		if last == nil {
			last = forbidden(user, "")
		}
		return last
	}
}

// With runs policy to completion before op, discarding the policy's success.
func With[T any](ctx context.Context, user *User, policy Policy, op func(ctx context.Context) (T, error)) (T, error) {
	if err := policy(ctx, user); err != nil {
		var zero T
		return zero, err
	}
	return op(ctx)
}
