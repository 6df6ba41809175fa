// Package access decides what a caller may do. Every privileged operation
// is expressed as a (resource, action) pair looked up in a single policy
// table; there is no implicit role hierarchy.
package access

import "github.com/SherPsu/cms-blog/internal/models"

// Identity is the request-scoped view of the caller. The zero value is an
// anonymous visitor.
type Identity struct {
	UserID   int64
	Username string
	Email    string
	Role     models.Role
}

// Anonymous returns the identity of a visitor without a session.
func Anonymous() Identity {
	return Identity{}
}

// IsAuthenticated reports whether id belongs to a logged-in user.
func IsAuthenticated(id Identity) bool {
	return id.UserID > 0
}

// HasRole reports whether id is authenticated and holds one of roles.
func HasRole(id Identity, roles ...models.Role) bool {
	if !IsAuthenticated(id) {
		return false
	}
	for _, r := range roles {
		if id.Role == r {
			return true
		}
	}
	return false
}

// Owns reports whether id is the authenticated owner of a record created
// by userID.
func Owns(id Identity, userID int64) bool {
	return IsAuthenticated(id) && id.UserID == userID
}

// Resource names a kind of thing being protected.
type Resource string

// Action names an operation on a resource.
type Action string

const (
	AdminPanel Resource = "admin_panel"
	Post       Resource = "post"
	Category   Resource = "category"
	Comment    Resource = "comment"
	Reaction   Resource = "reaction"
	User       Resource = "user"
	Dashboard  Resource = "dashboard"
)

const (
	View            Action = "view"
	Create          Action = "create"
	EditAny         Action = "edit_any"
	DeleteAny       Action = "delete_any"
	ViewUnpublished Action = "view_unpublished"
	Manage          Action = "manage"
	Moderate        Action = "moderate"
	ViewAll         Action = "view_all"
	AutoApprove     Action = "auto_approve"
	Set             Action = "set"
	ViewUsers       Action = "view_users"
)

// Rule is a policy table key.
type Rule struct {
	Resource Resource
	Action   Action
}

var (
	everyone  = []models.Role{models.RoleAdmin, models.RoleEditor, models.RoleAuthor, models.RoleSubscriber}
	staff     = []models.Role{models.RoleAdmin, models.RoleEditor, models.RoleAuthor}
	editorial = []models.Role{models.RoleAdmin, models.RoleEditor}
	adminOnly = []models.Role{models.RoleAdmin}
)

// policy is the single source of truth for role checks.
var policy = map[Rule][]models.Role{
	{AdminPanel, View}: staff,

	{Post, Create}:          staff,
	{Post, EditAny}:         editorial,
	{Post, DeleteAny}:       editorial,
	{Post, ViewUnpublished}: editorial,

	{Category, Manage}: editorial,

	{Comment, Create}:      everyone,
	{Comment, Moderate}:    editorial,
	{Comment, ViewAll}:     editorial,
	{Comment, AutoApprove}: editorial,

	{Reaction, Set}: everyone,

	{User, Manage}: adminOnly,

	{Dashboard, ViewUsers}: adminOnly,
}

// Allowed reports whether id may perform action on resource. Unknown rules
// deny.
func Allowed(id Identity, resource Resource, action Action) bool {
	return HasRole(id, policy[Rule{resource, action}]...)
}

// Roles returns the roles permitted for a rule.
func Roles(resource Resource, action Action) []models.Role {
	roles := policy[Rule{resource, action}]
	out := make([]models.Role, len(roles))
	copy(out, roles)
	return out
}

// Require returns nil when id may perform action on resource. Otherwise it
// returns an authentication error for anonymous callers and a permission
// error for everyone else.
func Require(id Identity, resource Resource, action Action) error {
	if !IsAuthenticated(id) {
		return models.NewAuthenticationError("Authentication required")
	}
	if !Allowed(id, resource, action) {
		return models.NewPermissionError("Permission denied")
	}
	return nil
}

// CanModify reports whether id may edit or delete a record owned by
// ownerID: owners always may, and so may holders of the elevated action.
func CanModify(id Identity, ownerID int64, resource Resource, elevated Action) bool {
	return Owns(id, ownerID) || Allowed(id, resource, elevated)
}
