// Package cpsat is a small boolean constraint engine.
//
// A Builder collects Boolean variables and cardinality constraints of the form
// lb <= sum(literals) <= ub, each optionally guarded by enforcement literals. A Solver
// runs a depth-first search with constraint propagation over the model and reports
// every complete satisfying assignment through a callback, which may stop the search.
package cpsat

import (
	"errors"
	"fmt"
)

// ErrMixedModels is returned when a literal from another model is used.
var ErrMixedModels = errors.New("elements are not part of the same model")

// BoolVar is a literal: a reference to a Boolean variable, possibly negated.
type BoolVar struct {
	index   int32
	negated bool
}

// Not returns the negation of the literal.
func (b BoolVar) Not() BoolVar {
	return BoolVar{index: b.index, negated: !b.negated}
}

// Index returns the index of the underlying variable.
func (b BoolVar) Index() int {
	return int(b.index)
}

// Negated reports whether the literal is the negation of its variable.
func (b BoolVar) Negated() bool {
	return b.negated
}

type linearConstraint struct {
	lits    []BoolVar
	lb, ub  int
	enforce []BoolVar
}

// Builder holds the variables and constraints of one model.
type Builder struct {
	numVars     int
	constraints []linearConstraint
	err         error
}

// NewCpModelBuilder creates an empty model.
func NewCpModelBuilder() *Builder {
	return &Builder{}
}

// NewBoolVar creates a new Boolean variable.
func (b *Builder) NewBoolVar() BoolVar {
	b.numVars++
	return BoolVar{index: int32(b.numVars - 1)}
}

// VarAt returns the positive literal of the variable at index i. Using a literal whose
// index is out of range makes the model invalid.
func (b *Builder) VarAt(i int) BoolVar {
	return BoolVar{index: int32(i)}
}

// NumVariables returns the number of variables in the model.
func (b *Builder) NumVariables() int {
	return b.numVars
}

// NumConstraints returns the number of constraints in the model.
func (b *Builder) NumConstraints() int {
	return len(b.constraints)
}

// Err returns the first construction error recorded by the builder.
func (b *Builder) Err() error {
	return b.err
}

func (b *Builder) checkLiterals(lits []BoolVar) bool {
	for _, l := range lits {
		if l.index < 0 || int(l.index) >= b.numVars {
			if b.err == nil {
				b.err = fmt.Errorf("literal %d: %w", l.index, ErrMixedModels)
			}
			return false
		}
	}
	return true
}

// AddLinearConstraint adds lb <= sum(lits) <= ub.
func (b *Builder) AddLinearConstraint(lits []BoolVar, lb, ub int) Constraint {
	b.checkLiterals(lits)
	owned := make([]BoolVar, len(lits))
	copy(owned, lits)
	b.constraints = append(b.constraints, linearConstraint{lits: owned, lb: lb, ub: ub})
	return Constraint{builder: b, index: len(b.constraints) - 1}
}

// AddEquality adds sum(lits) == target.
func (b *Builder) AddEquality(lits []BoolVar, target int) Constraint {
	return b.AddLinearConstraint(lits, target, target)
}

// Constraint references a constraint inside a Builder.
type Constraint struct {
	builder *Builder
	index   int
}

// OnlyEnforceIf makes the constraint conditional: it is only enforced when all the
// given literals are true.
func (c Constraint) OnlyEnforceIf(lits ...BoolVar) Constraint {
	if c.builder == nil {
		return c
	}
	c.builder.checkLiterals(lits)
	ct := &c.builder.constraints[c.index]
	ct.enforce = append(ct.enforce, lits...)
	return c
}
