// Package caller models the per-request identity a query runs under.
package caller

// Context is the ephemeral identity of a caller: a user id, group
// memberships, and an optional opaque token for backends that enforce
// authorization themselves. At least one of UserID/Groups must be set
// for the query path; predicate.Compile enforces that.
type Context struct {
	userID string
	groups []string
	token  string
}

// New creates a caller context.
func New(userID string, groups []string, token string) Context {
	return Context{userID: userID, groups: groups, token: token}
}

// UserID returns the caller's user id ("" if absent).
func (c Context) UserID() string { return c.userID }

// Groups returns the caller's group memberships.
func (c Context) Groups() []string { return c.groups }

// Token returns the opaque caller token for token-enforcing backends.
func (c Context) Token() string { return c.token }

// IsAnonymous reports whether the caller supplied no identity signal at all.
func (c Context) IsAnonymous() bool {
	return c.userID == "" && len(c.groups) == 0
}
