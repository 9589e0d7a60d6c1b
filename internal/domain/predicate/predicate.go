// Package predicate compiles a caller identity into the declarative,
// allow-only filter that retrieval backends enforce at query time.
package predicate

import (
	"fmt"

	"github.com/kailas-cloud/kbgate/internal/domain"
	"github.com/kailas-cloud/kbgate/internal/domain/caller"
)

// Metadata fields a condition may target.
const (
	FieldAccessUsers    = "access_users"
	FieldAccessGroups   = "access_groups"
	FieldCreatedBy      = "created_by"
	FieldClassification = "classification"
)

// PublicClassification is the always-included fallback allow value.
const PublicClassification = "public"

// Condition is a single equality clause over a metadata field.
type Condition struct {
	field string
	value string
}

// Field returns the metadata field the condition targets.
func (c Condition) Field() string { return c.field }

// Value returns the value the field must equal.
func (c Condition) Value() string { return c.value }

// Predicate is an OR of equality conditions. It is allow-only: deny
// enforcement happens downstream in the merger against the full
// AccessPolicy, since deny lists are not expressible here.
type Predicate struct {
	conditions []Condition
}

// Conditions returns the OR'd clauses in construction order.
func (p Predicate) Conditions() []Condition { return p.conditions }

// Compile builds the authorization predicate for a caller. It fails with
// ErrValidation iff the caller supplied neither a user id nor any group;
// this is the only validation failure on the query path and must surface
// to the caller as a client error.
//
// Construction order (readability only; all conditions are OR'd):
// direct user access, creator, one clause per group, public trailer.
func Compile(c caller.Context) (Predicate, error) {
	if c.IsAnonymous() {
		return Predicate{}, fmt.Errorf(
			"%w: either user_id or user_groups must be provided", domain.ErrValidation)
	}

	var conds []Condition
	if uid := c.UserID(); uid != "" {
		conds = append(conds,
			Condition{field: FieldAccessUsers, value: uid},
			Condition{field: FieldCreatedBy, value: uid},
		)
	}
	for _, g := range c.Groups() {
		if g == "" {
			continue
		}
		conds = append(conds, Condition{field: FieldAccessGroups, value: g})
	}
	conds = append(conds, Condition{field: FieldClassification, value: PublicClassification})

	return Predicate{conditions: conds}, nil
}
