package policy

import (
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/kbgate/internal/domain"
)

// Connector metadata arrives in one of three encodings, probed in a fixed
// priority order; the first parser that yields any principal wins.
//
//  1. structured v2: a list of JSON-encoded ACL entry objects carrying
//     permissions and inheritance detail. Connectors that emit v2 also
//     keep writing the flat fields, so v2 must win or the permission
//     levels are lost.
//  2. legacy: parallel flat string-list fields, one per set.
//  3. alternate: single-value or list fields under older connector names.
//
// The precedence of source fields within each encoding is declarative so
// it can be unit-tested instead of living in extraction code.

// target identifies which of the four canonical sets a field feeds.
type target int

const (
	targetAllowedUsers target = iota
	targetAllowedGroups
	targetDeniedUsers
	targetDeniedGroups
)

// fieldMapping binds one raw attribute name to a canonical set.
type fieldMapping struct {
	field  string
	target target
}

// legacyFields is the parallel-list encoding, including the canonical
// names the sync pipeline writes and the connector-prefixed variants
// older sync jobs emitted.
var legacyFields = []fieldMapping{
	{"access_users", targetAllowedUsers},
	{"access_groups", targetAllowedGroups},
	{"allowed_users", targetAllowedUsers},
	{"allowed_groups", targetAllowedGroups},
	{"denied_users", targetDeniedUsers},
	{"denied_groups", targetDeniedGroups},
	{"sharepoint_allowed_users", targetAllowedUsers},
	{"sharepoint_allowed_groups", targetAllowedGroups},
	{"sharepoint_denied_users", targetDeniedUsers},
	{"sharepoint_denied_groups", targetDeniedGroups},
}

// structuredFields are the attribute names that carry the JSON entry list.
var structuredFields = []string{"acl_v2", "sharepoint_acl_v2"}

// alternateFields is the last-resort probing table for older single-value
// or list encodings.
var alternateFields = []fieldMapping{
	{"allowed_principals", targetAllowedUsers},
	{"authorized_users", targetAllowedUsers},
	{"authorized_groups", targetAllowedGroups},
	{"acl_allow", targetAllowedUsers},
	{"acl_deny", targetDeniedUsers},
}

// aclEntry is one structured-v2 entry as it appears on the wire.
type aclEntry struct {
	Principal     string   `json:"principal"`
	PrincipalType string   `json:"principal_type"`
	Type          string   `json:"type"` // older emitters use "type"
	Permissions   []string `json:"permissions"`
	Access        string   `json:"access"`
	Inheritance   string   `json:"inheritance"`
}

// Normalizer converts raw connector attributes into an AccessPolicy.
type Normalizer struct {
	logger *zap.Logger
}

// NewNormalizer creates a Normalizer.
func NewNormalizer(logger *zap.Logger) *Normalizer {
	return &Normalizer{logger: logger}
}

// Normalize converts raw attributes into a canonical AccessPolicy. It is
// deterministic and never fails: malformed input yields an empty-but-valid
// policy and a logged anomaly, never an error to the caller.
func (n *Normalizer) Normalize(attrs map[string]any) AccessPolicy {
	if len(attrs) == 0 {
		return Empty()
	}

	if p, ok := n.parseStructured(attrs); ok {
		return p
	}
	if p, ok := parseLegacy(attrs); ok {
		return p
	}
	if p, ok := parseAlternate(attrs); ok {
		return p
	}

	n.logger.Debug("no acl encoding recognized, falling back to empty policy",
		zap.Int("attribute_count", len(attrs)))
	return Empty()
}

// parseLegacy reads the four parallel list fields. Returns ok=false when
// no mapped field yields a principal.
func parseLegacy(attrs map[string]any) (AccessPolicy, bool) {
	sets := [4][]string{}
	found := false
	for _, m := range legacyFields {
		vals := stringList(attrs[m.field])
		if len(vals) == 0 {
			continue
		}
		found = true
		sets[m.target] = append(sets[m.target], vals...)
	}
	if !found {
		return AccessPolicy{}, false
	}
	return New(sets[targetAllowedUsers], sets[targetAllowedGroups],
		sets[targetDeniedUsers], sets[targetDeniedGroups]), true
}

// parseStructured reads the JSON entry list. Malformed individual entries
// are skipped and logged; the rest of the list is still processed.
func (n *Normalizer) parseStructured(attrs map[string]any) (AccessPolicy, bool) {
	var raw []any
	for _, field := range structuredFields {
		if list := anyList(attrs[field]); len(list) > 0 {
			raw = list
			break
		}
	}
	if len(raw) == 0 {
		return AccessPolicy{}, false
	}

	sets := [4][]string{}
	levels := map[string]PermissionLevel{}
	parsed := 0

	for _, item := range raw {
		entry, err := decodeEntry(item)
		if err == nil && entry.Principal == "" {
			err = fmt.Errorf("%w: missing principal", domain.ErrMalformedACL)
		}
		if err != nil {
			n.logger.Warn("skipping malformed acl entry",
				zap.Any("entry", item), zap.Error(err))
			continue
		}
		parsed++

		principalType := entry.PrincipalType
		if principalType == "" {
			principalType = entry.Type
		}
		isGroup := strings.EqualFold(principalType, "group")

		switch strings.ToLower(entry.Access) {
		case "deny":
			if isGroup {
				sets[targetDeniedGroups] = append(sets[targetDeniedGroups], entry.Principal)
			} else {
				sets[targetDeniedUsers] = append(sets[targetDeniedUsers], entry.Principal)
			}
		default: // allow, or unspecified
			if isGroup {
				sets[targetAllowedGroups] = append(sets[targetAllowedGroups], entry.Principal)
			} else {
				sets[targetAllowedUsers] = append(sets[targetAllowedUsers], entry.Principal)
			}
		}

		inheritance := Inherited
		if strings.EqualFold(entry.Inheritance, string(Direct)) {
			inheritance = Direct
		}
		levels[entry.Principal] = PermissionLevel{
			Permissions: entry.Permissions,
			Inheritance: inheritance,
		}
	}

	if parsed == 0 {
		return AccessPolicy{}, false
	}

	p := New(sets[targetAllowedUsers], sets[targetAllowedGroups],
		sets[targetDeniedUsers], sets[targetDeniedGroups])
	for principal, lvl := range levels {
		p = p.WithPermission(principal, lvl)
	}
	return p, true
}

// parseAlternate probes last-resort field names holding a single principal
// or a principal list.
func parseAlternate(attrs map[string]any) (AccessPolicy, bool) {
	sets := [4][]string{}
	found := false
	for _, m := range alternateFields {
		vals := stringList(attrs[m.field])
		if len(vals) == 0 {
			continue
		}
		found = true
		sets[m.target] = append(sets[m.target], vals...)
	}
	if !found {
		return AccessPolicy{}, false
	}
	return New(sets[targetAllowedUsers], sets[targetAllowedGroups],
		sets[targetDeniedUsers], sets[targetDeniedGroups]), true
}

// decodeEntry accepts either a JSON-encoded string or an already-decoded map.
// Undecodable entries report domain.ErrMalformedACL.
func decodeEntry(item any) (aclEntry, error) {
	var entry aclEntry
	switch v := item.(type) {
	case string:
		if err := json.Unmarshal([]byte(v), &entry); err != nil {
			return aclEntry{}, fmt.Errorf("%w: %v", domain.ErrMalformedACL, err)
		}
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return aclEntry{}, fmt.Errorf("%w: %v", domain.ErrMalformedACL, err)
		}
		if err := json.Unmarshal(data, &entry); err != nil {
			return aclEntry{}, fmt.Errorf("%w: %v", domain.ErrMalformedACL, err)
		}
	}
	return entry, nil
}

// stringList coerces a raw attribute value into a string slice.
// Accepts a single string, []string, or []any of strings.
func stringList(v any) []string {
	switch val := v.(type) {
	case string:
		if val == "" {
			return nil
		}
		return []string{val}
	case []string:
		return val
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// anyList coerces a raw attribute value into a generic slice, preserving
// per-item types so structured entries can be strings or objects.
func anyList(v any) []any {
	switch val := v.(type) {
	case []any:
		return val
	case []string:
		out := make([]any, len(val))
		for i, s := range val {
			out[i] = s
		}
		return out
	default:
		return nil
	}
}
