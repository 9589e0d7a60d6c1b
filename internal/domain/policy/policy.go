// Package policy holds the canonical access-control representation and the
// normalizer that produces it from heterogeneous connector metadata.
package policy

import "sort"

// Inheritance tells whether a permission was granted directly on the
// document or inherited from a parent container.
type Inheritance string

const (
	// Direct means the permission is set on the document itself.
	Direct Inheritance = "direct"
	// Inherited means the permission comes from a parent site or library.
	Inherited Inheritance = "inherited"
)

// PermissionLevel is the fine-grained permission detail for one principal.
type PermissionLevel struct {
	Permissions []string
	Inheritance Inheritance
}

// AccessPolicy is the canonical allow/deny representation governing a
// document's visibility. Built once at ingestion or retrieval time and
// never mutated on the query path. Deny always beats allow.
type AccessPolicy struct {
	allowedUsers  map[string]struct{}
	allowedGroups map[string]struct{}
	deniedUsers   map[string]struct{}
	deniedGroups  map[string]struct{}
	permissions   map[string]PermissionLevel
}

// New creates an AccessPolicy from the four principal lists. Duplicates
// are collapsed; set semantics.
func New(allowedUsers, allowedGroups, deniedUsers, deniedGroups []string) AccessPolicy {
	return AccessPolicy{
		allowedUsers:  toSet(allowedUsers),
		allowedGroups: toSet(allowedGroups),
		deniedUsers:   toSet(deniedUsers),
		deniedGroups:  toSet(deniedGroups),
		permissions:   map[string]PermissionLevel{},
	}
}

// Empty returns a valid policy with no principals. This is the malformed-ACL
// fallback: such a document is only reachable through the public
// classification condition.
func Empty() AccessPolicy {
	return New(nil, nil, nil, nil)
}

// WithPermission records the permission detail for a principal and
// returns the policy for chaining during construction.
func (p AccessPolicy) WithPermission(principal string, level PermissionLevel) AccessPolicy {
	p.permissions[principal] = level
	return p
}

// AllowedUsers returns the allow-listed user ids, sorted.
func (p AccessPolicy) AllowedUsers() []string { return sorted(p.allowedUsers) }

// AllowedGroups returns the allow-listed groups, sorted.
func (p AccessPolicy) AllowedGroups() []string { return sorted(p.allowedGroups) }

// DeniedUsers returns the deny-listed user ids, sorted.
func (p AccessPolicy) DeniedUsers() []string { return sorted(p.deniedUsers) }

// DeniedGroups returns the deny-listed groups, sorted.
func (p AccessPolicy) DeniedGroups() []string { return sorted(p.deniedGroups) }

// Permission returns the permission detail recorded for a principal.
func (p AccessPolicy) Permission(principal string) (PermissionLevel, bool) {
	lvl, ok := p.permissions[principal]
	return lvl, ok
}

// Principals returns every principal with recorded permission detail, sorted.
func (p AccessPolicy) Principals() []string {
	out := make([]string, 0, len(p.permissions))
	for principal := range p.permissions {
		out = append(out, principal)
	}
	sort.Strings(out)
	return out
}

// IsEmpty reports whether no principal appears in any of the four sets.
func (p AccessPolicy) IsEmpty() bool {
	return len(p.allowedUsers) == 0 && len(p.allowedGroups) == 0 &&
		len(p.deniedUsers) == 0 && len(p.deniedGroups) == 0
}

// Denies reports whether the caller is deny-listed by id or by any group.
// Deny takes precedence over allow: callers must check Denies first.
func (p AccessPolicy) Denies(userID string, groups []string) bool {
	if userID != "" {
		if _, ok := p.deniedUsers[userID]; ok {
			return true
		}
	}
	for _, g := range groups {
		if _, ok := p.deniedGroups[g]; ok {
			return true
		}
	}
	return false
}

// Allows reports whether the caller is allow-listed by id or by any group.
// It does not consider deny lists; use Denies for that.
func (p AccessPolicy) Allows(userID string, groups []string) bool {
	if userID != "" {
		if _, ok := p.allowedUsers[userID]; ok {
			return true
		}
	}
	for _, g := range groups {
		if _, ok := p.allowedGroups[g]; ok {
			return true
		}
	}
	return false
}

// Equal reports structural equality of the four principal sets.
func (p AccessPolicy) Equal(other AccessPolicy) bool {
	return setsEqual(p.allowedUsers, other.allowedUsers) &&
		setsEqual(p.allowedGroups, other.allowedGroups) &&
		setsEqual(p.deniedUsers, other.deniedUsers) &&
		setsEqual(p.deniedGroups, other.deniedGroups)
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		if it != "" {
			set[it] = struct{}{}
		}
	}
	return set
}

func sorted(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func setsEqual(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
