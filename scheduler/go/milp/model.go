// Copyright 2010-2024 Google LLC
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package milp offers a small API to build mixed-integer linear programs and hand them to
// a solver backend.
//
// The `Builder` struct accumulates variables, linear constraints and the objective, and
// produces an immutable `Model`. Variables and constraints are referenced by their
// position in the model (`VarIndex` and `ConstrIndex`).
// The `LinearExpr` struct provides helper methods for creating constraints and the
// objective from expressions with many variables and coefficients.
// A `Solver` consumes a `Model` and returns a `Solution`.
package milp

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sort"

	log "github.com/golang/glog"
)

var (
	// ErrDuplicateName holds the error when a variable or constraint name is reused.
	ErrDuplicateName = errors.New("name already exists in the model")
	// ErrUnknownVariable holds the error when an expression references a variable that was
	// not created by the same builder.
	ErrUnknownVariable = errors.New("variable is not part of the model")
	// ErrInvalidBounds holds the error when a lower bound is greater than an upper bound or
	// a bound is NaN.
	ErrInvalidBounds = errors.New("invalid bounds")
)

type (
	// VarIndex is the index of a variable in the model.
	VarIndex int32
	// ConstrIndex is the index of a constraint in the model.
	ConstrIndex int32
)

// LinearArgument provides an interface for VarIndex and LinearExpr.
type LinearArgument interface {
	addToLinearExpr(e *LinearExpr, c float64)
}

// Term is a variable with its coefficient.
type Term struct {
	Var   VarIndex
	Coeff float64
}

// LinearExpr is a container for a linear expression.
type LinearExpr struct {
	terms  []Term
	offset float64
}

// NewLinearExpr creates a new empty LinearExpr.
func NewLinearExpr() *LinearExpr {
	return &LinearExpr{}
}

// NewConstant creates and returns a LinearExpr containing the constant `c`.
func NewConstant(c float64) *LinearExpr {
	return &LinearExpr{offset: c}
}

// Add adds the linear argument term to the LinearExpr and returns itself.
func (l *LinearExpr) Add(la LinearArgument) *LinearExpr {
	return l.AddTerm(la, 1)
}

// AddConstant adds the constant to the LinearExpr and returns itself.
func (l *LinearExpr) AddConstant(c float64) *LinearExpr {
	l.offset += c
	return l
}

// AddTerm adds the linear argument term with the given coefficient to the LinearExpr and
// returns itself.
func (l *LinearExpr) AddTerm(la LinearArgument, coeff float64) *LinearExpr {
	la.addToLinearExpr(l, coeff)
	return l
}

// AddSum adds the sum of the linear arguments to the LinearExpr and returns itself.
func (l *LinearExpr) AddSum(las ...LinearArgument) *LinearExpr {
	for _, la := range las {
		l.Add(la)
	}
	return l
}

// AddVars adds the sum of the variables to the LinearExpr and returns itself.
func (l *LinearExpr) AddVars(vs ...VarIndex) *LinearExpr {
	for _, v := range vs {
		l.terms = append(l.terms, Term{Var: v, Coeff: 1})
	}
	return l
}

// AddWeightedSum adds the linear arguments with the corresponding coefficients to the
// LinearExpr and returns itself.
func (l *LinearExpr) AddWeightedSum(las []LinearArgument, coeffs []float64) *LinearExpr {
	if len(coeffs) != len(las) {
		log.Fatalf("las and coeffs must be the same length: %v != %v", len(las), len(coeffs))
	}
	for i, la := range las {
		l.AddTerm(la, coeffs[i])
	}
	return l
}

// Offset returns the constant part of the expression.
func (l *LinearExpr) Offset() float64 {
	return l.offset
}

// Terms returns the terms of the expression with duplicated variables merged, zero
// coefficients dropped and variables sorted by index.
func (l *LinearExpr) Terms() []Term {
	return normalize(l.terms)
}

func (l *LinearExpr) addToLinearExpr(e *LinearExpr, c float64) {
	for _, t := range l.terms {
		e.terms = append(e.terms, Term{Var: t.Var, Coeff: t.Coeff * c})
	}
	e.offset += l.offset * c
}

func (v VarIndex) addToLinearExpr(e *LinearExpr, c float64) {
	e.terms = append(e.terms, Term{Var: v, Coeff: c})
}

func normalize(terms []Term) []Term {
	if len(terms) == 0 {
		return nil
	}
	sorted := slices.Clone(terms)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Var < sorted[j].Var })
	var out []Term
	for _, t := range sorted {
		if n := len(out); n > 0 && out[n-1].Var == t.Var {
			out[n-1].Coeff += t.Coeff
			continue
		}
		out = append(out, t)
	}
	nonZero := out[:0]
	for _, t := range out {
		if t.Coeff != 0 {
			nonZero = append(nonZero, t)
		}
	}
	if len(nonZero) == 0 {
		return nil
	}
	return nonZero
}

// Variable describes a decision variable. Integer variables with bounds inside `[0,1]`
// are binary.
type Variable struct {
	Name       string
	LowerBound float64
	UpperBound float64
	Integer    bool
}

// IsBinary returns whether the variable can only take the values 0 and 1.
func (v Variable) IsBinary() bool {
	return v.Integer && v.LowerBound >= 0 && v.UpperBound <= 1
}

// Constraint is the linear constraint `LowerBound <= sum(Terms) <= UpperBound`. Missing
// sides are infinite.
type Constraint struct {
	Name       string
	Terms      []Term
	LowerBound float64
	UpperBound float64
}

// Objective is the linear objective of the model.
type Objective struct {
	Terms    []Term
	Offset   float64
	Maximize bool
}

// Model is an immutable mixed-integer linear program. Use a Builder to create one.
type Model struct {
	name        string
	variables   []Variable
	constraints []Constraint
	objective   Objective
}

// Name returns the name of the model.
func (m *Model) Name() string {
	return m.name
}

// NumVariables returns the number of variables in the model.
func (m *Model) NumVariables() int {
	return len(m.variables)
}

// NumConstraints returns the number of constraints in the model.
func (m *Model) NumConstraints() int {
	return len(m.constraints)
}

// Variable returns the variable at index `v`.
func (m *Model) Variable(v VarIndex) Variable {
	return m.variables[v]
}

// Constraint returns a copy of the constraint at index `c`.
func (m *Model) Constraint(c ConstrIndex) Constraint {
	ct := m.constraints[c]
	ct.Terms = slices.Clone(ct.Terms)
	return ct
}

// Objective returns a copy of the objective.
func (m *Model) Objective() Objective {
	o := m.objective
	o.Terms = slices.Clone(o.Terms)
	return o
}

// ObjectiveValue evaluates the objective on the given assignment.
func (m *Model) ObjectiveValue(values []float64) float64 {
	return evaluate(m.objective.Terms, values) + m.objective.Offset
}

// Violations returns the constraints that are not satisfied by `values` within the
// absolute tolerance `tol`, together with the variables whose bounds are violated.
func (m *Model) Violations(values []float64, tol float64) (constraints []ConstrIndex, variables []VarIndex) {
	for i, v := range m.variables {
		x := values[i]
		if x < v.LowerBound-tol || x > v.UpperBound+tol || (v.Integer && math.Abs(x-math.Round(x)) > tol) {
			variables = append(variables, VarIndex(i))
		}
	}
	for i, c := range m.constraints {
		activity := evaluate(c.Terms, values)
		if activity < c.LowerBound-tol || activity > c.UpperBound+tol {
			constraints = append(constraints, ConstrIndex(i))
		}
	}
	return constraints, variables
}

func evaluate(terms []Term, values []float64) float64 {
	var sum float64
	for _, t := range terms {
		sum += t.Coeff * values[t.Var]
	}
	return sum
}

// Builder accumulates the variables, constraints and objective of a model.
type Builder struct {
	name        string
	variables   []Variable
	constraints []Constraint
	objective   Objective
	varNames    map[string]VarIndex
	ctNames     map[string]ConstrIndex
	// The first and only the first error is reported in Model.
	err error
}

// NewBuilder creates and returns a new model Builder.
func NewBuilder(name string) *Builder {
	return &Builder{
		name:     name,
		varNames: make(map[string]VarIndex),
		ctNames:  make(map[string]ConstrIndex),
	}
}

func (b *Builder) setErrorf(format string, a ...any) {
	err := fmt.Errorf(format, a...)
	log.Errorf("model %q: %v", b.name, err)
	if b.err == nil {
		b.err = err
	}
}

// NewVar creates a new variable with bounds `[lb,ub]`.
//
// Make `name` an empty string if the variable does not need a name. Otherwise an error is
// reported by Model if the name already exists as a variable name.
func (b *Builder) NewVar(lb, ub float64, integer bool, name string) VarIndex {
	v := VarIndex(len(b.variables))
	if math.IsNaN(lb) || math.IsNaN(ub) || lb > ub {
		b.setErrorf("variable %q with bounds [%v,%v]: %w", name, lb, ub, ErrInvalidBounds)
	}
	if name != "" {
		if _, ok := b.varNames[name]; ok {
			b.setErrorf("variable %q: %w", name, ErrDuplicateName)
		} else {
			b.varNames[name] = v
		}
	}
	b.variables = append(b.variables, Variable{Name: name, LowerBound: lb, UpperBound: ub, Integer: integer})
	return v
}

// NewBoolVar creates a new binary variable.
func (b *Builder) NewBoolVar(name string) VarIndex {
	return b.NewVar(0, 1, true, name)
}

// LookupVar returns the variable with the given name.
func (b *Builder) LookupVar(name string) (VarIndex, bool) {
	v, ok := b.varNames[name]
	return v, ok
}

// NumVariables returns the number of variables created so far.
func (b *Builder) NumVariables() int {
	return len(b.variables)
}

func (b *Builder) checkTerms(what string, terms []Term) bool {
	for _, t := range terms {
		if t.Var < 0 || int(t.Var) >= len(b.variables) {
			b.setErrorf("%s references variable %d: %w", what, t.Var, ErrUnknownVariable)
			return false
		}
		if math.IsNaN(t.Coeff) || math.IsInf(t.Coeff, 0) {
			b.setErrorf("%s has coefficient %v on variable %d: %w", what, t.Coeff, t.Var, ErrInvalidBounds)
			return false
		}
	}
	return true
}

func constraintLabel(name string) string {
	return fmt.Sprintf("constraint %q", name)
}

// AddLinearConstraint adds the linear constraint `lb <= expr <= ub`. The constant offset of
// `expr` is moved into the bounds. Use math.Inf for a missing side.
func (b *Builder) AddLinearConstraint(name string, expr LinearArgument, lb, ub float64) ConstrIndex {
	le := NewLinearExpr().Add(expr)
	terms := le.Terms()
	c := ConstrIndex(len(b.constraints))
	b.checkTerms(constraintLabel(name), terms)
	if math.IsNaN(lb) || math.IsNaN(ub) || lb > ub {
		b.setErrorf("%s with bounds [%v,%v]: %w", constraintLabel(name), lb, ub, ErrInvalidBounds)
	}
	if name != "" {
		if _, ok := b.ctNames[name]; ok {
			b.setErrorf("%s: %w", constraintLabel(name), ErrDuplicateName)
		} else {
			b.ctNames[name] = c
		}
	}
	b.constraints = append(b.constraints, Constraint{
		Name:       name,
		Terms:      terms,
		LowerBound: lb - le.offset,
		UpperBound: ub - le.offset,
	})
	return c
}

// AddLessOrEqual adds the linear constraint `lhs <= rhs`.
func (b *Builder) AddLessOrEqual(name string, lhs LinearArgument, rhs float64) ConstrIndex {
	return b.AddLinearConstraint(name, lhs, math.Inf(-1), rhs)
}

// AddGreaterOrEqual adds the linear constraint `lhs >= rhs`.
func (b *Builder) AddGreaterOrEqual(name string, lhs LinearArgument, rhs float64) ConstrIndex {
	return b.AddLinearConstraint(name, lhs, rhs, math.Inf(1))
}

// AddEquality adds the linear constraint `lhs == rhs`.
func (b *Builder) AddEquality(name string, lhs LinearArgument, rhs float64) ConstrIndex {
	return b.AddLinearConstraint(name, lhs, rhs, rhs)
}

// NumConstraints returns the number of constraints added so far.
func (b *Builder) NumConstraints() int {
	return len(b.constraints)
}

// Minimize sets a linear minimization objective.
func (b *Builder) Minimize(obj LinearArgument) {
	b.setObjective(obj, false)
}

// Maximize sets a linear maximization objective.
func (b *Builder) Maximize(obj LinearArgument) {
	b.setObjective(obj, true)
}

func (b *Builder) setObjective(obj LinearArgument, maximize bool) {
	o := NewLinearExpr().Add(obj)
	terms := o.Terms()
	b.checkTerms("objective", terms)
	b.objective = Objective{Terms: terms, Offset: o.offset, Maximize: maximize}
}

// Model returns the built model. The builder keeps no reference that can alter the
// returned model.
//
// Model returns an error when invalid parameters have been used during model building
// (e.g. duplicated names or variables from other builders).
func (b *Builder) Model() (*Model, error) {
	if b.err != nil {
		return nil, b.err
	}
	return &Model{
		name:        b.name,
		variables:   slices.Clone(b.variables),
		constraints: slices.Clone(b.constraints),
		objective:   b.objective,
	}, nil
}
