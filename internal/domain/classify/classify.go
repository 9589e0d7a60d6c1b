// Package classify infers a sensitivity level and owning department for
// documents that carry no explicit tags. The result is a routing hint
// with known false-positive risk, not a security boundary: enforcement
// always runs against the AccessPolicy allow/deny sets.
package classify

import (
	"strings"

	"github.com/kailas-cloud/kbgate/internal/domain/policy"
)

// Level is a document sensitivity classification.
type Level string

const (
	// Public documents are retrievable by every caller.
	Public Level = "public"
	// Internal documents are visible company-wide.
	Internal Level = "internal"
	// Confidential documents are limited to specific teams.
	Confidential Level = "confidential"
	// Restricted documents are limited to a handful of named principals.
	Restricted Level = "restricted"
)

// DefaultDepartment is used when no department signal matches.
const DefaultDepartment = "general"

// Result pairs the inferred classification with the owning department.
type Result struct {
	Classification Level
	Department     string
}

// departmentKeywords maps a department to the substrings that indicate it.
// Order matters: the first matching department wins.
var departmentKeywords = []struct {
	department string
	keywords   []string
}{
	{"finance", []string{"finance", "accounting", "treasury", "budget"}},
	{"hr", []string{"hr", "human resources", "people", "talent"}},
	{"legal", []string{"legal", "compliance", "risk", "audit"}},
	{"engineering", []string{"engineering", "development", "tech", "it"}},
	{"sales", []string{"sales", "business development", "revenue"}},
	{"marketing", []string{"marketing", "communications", "brand"}},
	{"operations", []string{"operations", "ops", "facilities"}},
}

// publicGroups are company-wide groups whose presence marks a document as
// broadly visible.
var publicGroups = []string{"everyone", "all users", "company users", "all employees"}

// fullControlPermissions are permission names equivalent to full control.
var fullControlPermissions = []string{"full control", "fullcontrol", "owner", "manage"}

// aclShape is the summarized policy structure the rule table evaluates.
type aclShape struct {
	fullControlCount int
	allowedUsers     int
	allowedGroups    int
	hasPublicGroup   bool
}

// aclRules is the ordered rule table for ACL-shape inference, evaluated
// top to bottom; the first matching rule wins.
var aclRules = []struct {
	when  func(s aclShape) bool
	level Level
}{
	{func(s aclShape) bool {
		return s.fullControlCount > 0 && s.fullControlCount <= 2 && s.allowedUsers <= 3
	}, Restricted},
	{func(s aclShape) bool {
		return s.fullControlCount <= 5 && !s.hasPublicGroup
	}, Confidential},
	{func(s aclShape) bool { return s.hasPublicGroup }, Internal},
	{func(s aclShape) bool { return s.allowedGroups <= 3 }, Confidential},
	{func(aclShape) bool { return true }, Internal},
}

// Classify infers classification and department. Signals are consulted in
// a fixed tie-break order: an explicit 3+ segment path
// (department/classification/creator/...) wins outright, then ACL shape,
// then filename keywords when neither path nor ACL carry a signal.
func Classify(p policy.AccessPolicy, pathHint, filename string) Result {
	if res, ok := fromPath(pathHint); ok {
		return res
	}

	department := departmentFromNames(p.AllowedGroups())
	if department == "" {
		department = departmentFromNames([]string{filename})
	}
	if department == "" {
		department = DefaultDepartment
	}

	if !p.IsEmpty() {
		return Result{Classification: fromACLShape(p), Department: department}
	}

	return Result{Classification: Internal, Department: department}
}

// fromPath reads department and classification from a structured path.
// Only a path of 3+ segments whose second segment is a valid level counts.
func fromPath(pathHint string) (Result, bool) {
	segments := splitPath(pathHint)
	if len(segments) < 3 {
		return Result{}, false
	}
	level := Level(strings.ToLower(segments[1]))
	switch level {
	case Public, Internal, Confidential, Restricted:
		return Result{
			Classification: level,
			Department:     strings.ToLower(segments[0]),
		}, true
	default:
		return Result{}, false
	}
}

func fromACLShape(p policy.AccessPolicy) Level {
	shape := aclShape{
		fullControlCount: countFullControl(p),
		allowedUsers:     len(p.AllowedUsers()),
		allowedGroups:    len(p.AllowedGroups()),
		hasPublicGroup:   hasPublicGroup(p.AllowedGroups()),
	}
	for _, rule := range aclRules {
		if rule.when(shape) {
			return rule.level
		}
	}
	return Internal
}

func countFullControl(p policy.AccessPolicy) int {
	count := 0
	for _, principal := range p.Principals() {
		lvl, ok := p.Permission(principal)
		if !ok {
			continue
		}
		for _, perm := range lvl.Permissions {
			if isFullControl(perm) {
				count++
				break
			}
		}
	}
	return count
}

func isFullControl(permission string) bool {
	lower := strings.ToLower(permission)
	for _, fc := range fullControlPermissions {
		if lower == fc {
			return true
		}
	}
	return false
}

func hasPublicGroup(groups []string) bool {
	for _, g := range groups {
		lower := strings.ToLower(g)
		for _, pub := range publicGroups {
			if lower == pub {
				return true
			}
		}
	}
	return false
}

// departmentFromNames matches names against the keyword table,
// case-insensitive substring semantics. Returns "" when nothing matches.
func departmentFromNames(names []string) string {
	for _, name := range names {
		lower := strings.ToLower(name)
		for _, entry := range departmentKeywords {
			for _, kw := range entry.keywords {
				if strings.Contains(lower, kw) {
					return entry.department
				}
			}
		}
	}
	return ""
}

func splitPath(p string) []string {
	var segments []string
	for _, seg := range strings.Split(p, "/") {
		if seg != "" {
			segments = append(segments, seg)
		}
	}
	return segments
}
