package permission

import "sort"

// Role is the closed set of roles known to the application. Roles are
// assigned at registration time and stored on the users table; permissions
// are always derived from the role, never stored on their own.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Permission is a grantable capability token of the form "domain:action".
// The set below is the complete enumeration; policy checks only ever
// reference these constants, so an unknown token cannot appear at runtime.
type Permission string

const (
	FarmerSelect      Permission = "_farmer:select"
	FarmerCreate      Permission = "_farmer:create"
	FarmerUpdate      Permission = "_farmer:update"
	FarmerDelete      Permission = "_farmer:delete"
	FarmerOwnedUpdate Permission = "_farmer:owned-update"
	FarmerOwnedDelete Permission = "_farmer:owned-delete"

	FileSelect      Permission = "_file:select"
	FileCreate      Permission = "_file:create"
	FileUpdate      Permission = "_file:update"
	FileDelete      Permission = "_file:delete"
	FileOwnedUpdate Permission = "_file:owned-update"
	FileOwnedDelete Permission = "_file:owned-delete"
)

// Set is an immutable-by-convention permission set. Callers get a fresh copy
// from ForRole and must not share one Set between users.
type Set map[Permission]struct{}

func NewSet(perms ...Permission) Set {
	s := make(Set, len(perms))
	for _, p := range perms {
		s[p] = struct{}{}
	}
	return s
}

func (s Set) Has(p Permission) bool {
	_, ok := s[p]
	return ok
}

// List returns the permissions in lexical order so responses and logs are
// deterministic.
func (s Set) List() []Permission {
	out := make([]Permission, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// rolePermissions is the static role table. Admins hold the global variant of
// every action; regular users can read and create, and mutate only rows they
// own via the owned-* variants.
var rolePermissions = map[Role][]Permission{
	RoleAdmin: {
		FarmerSelect, FarmerCreate, FarmerUpdate, FarmerDelete,
		FarmerOwnedUpdate, FarmerOwnedDelete,
		FileSelect, FileCreate, FileUpdate, FileDelete,
		FileOwnedUpdate, FileOwnedDelete,
	},
	RoleUser: {
		FarmerSelect, FarmerCreate, FarmerOwnedUpdate, FarmerOwnedDelete,
		FileSelect, FileCreate, FileOwnedUpdate, FileOwnedDelete,
	},
}

// ForRole maps a role to its permission set. Total over the role enum; an
// unknown role yields an empty set rather than an error because role values
// only ever come from the Role constants.
func ForRole(r Role) Set {
	return NewSet(rolePermissions[r]...)
}

// User is the request-scoped identity every policy evaluates against. It is
// built once per request by the auth middleware and discarded with the
// request; nothing in this package persists or caches it.
type User struct {
	UserID      string `json:"userId"`
	SessionID   string `json:"sessionId"`
	Role        Role   `json:"role"`
	Permissions Set    `json:"-"`
}

func NewUser(userID, sessionID string, role Role) *User {
	return &User{
		UserID:      userID,
		SessionID:   sessionID,
		Role:        role,
		Permissions: ForRole(role),
	}
}

func (u *User) Has(p Permission) bool {
	return u != nil && u.Permissions.Has(p)
}
