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

package milp

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLinearExpr(t *testing.T) {
	b := NewBuilder("")
	x := b.NewBoolVar("x")
	y := b.NewBoolVar("y")
	z := b.NewBoolVar("z")

	testCases := []struct {
		name       string
		expr       *LinearExpr
		wantTerms  []Term
		wantOffset float64
	}{
		{
			name:      "Add",
			expr:      NewLinearExpr().Add(y).Add(x),
			wantTerms: []Term{{Var: x, Coeff: 1}, {Var: y, Coeff: 1}},
		},
		{
			name:      "AddTermMergesDuplicates",
			expr:      NewLinearExpr().AddTerm(x, 2).AddTerm(x, 3),
			wantTerms: []Term{{Var: x, Coeff: 5}},
		},
		{
			name:      "AddTermDropsZeros",
			expr:      NewLinearExpr().AddTerm(x, 2).AddTerm(y, 1).AddTerm(x, -2),
			wantTerms: []Term{{Var: y, Coeff: 1}},
		},
		{
			name:       "AddConstant",
			expr:       NewConstant(4).AddConstant(-1).Add(z),
			wantTerms:  []Term{{Var: z, Coeff: 1}},
			wantOffset: 3,
		},
		{
			name:       "AddSum",
			expr:       NewLinearExpr().AddSum(z, NewConstant(2).Add(x), x),
			wantTerms:  []Term{{Var: x, Coeff: 2}, {Var: z, Coeff: 1}},
			wantOffset: 2,
		},
		{
			name:      "AddVars",
			expr:      NewLinearExpr().AddVars(z, y, x),
			wantTerms: []Term{{Var: x, Coeff: 1}, {Var: y, Coeff: 1}, {Var: z, Coeff: 1}},
		},
		{
			name:       "AddNestedExpr",
			expr:       NewLinearExpr().AddTerm(NewConstant(1).AddTerm(x, 2), 3),
			wantTerms:  []Term{{Var: x, Coeff: 6}},
			wantOffset: 3,
		},
		{
			name:      "AddWeightedSum",
			expr:      NewLinearExpr().AddWeightedSum([]LinearArgument{x, y, z}, []float64{1, -2, 0}),
			wantTerms: []Term{{Var: x, Coeff: 1}, {Var: y, Coeff: -2}},
		},
		{
			name: "Empty",
			expr: NewLinearExpr(),
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			if diff := cmp.Diff(test.wantTerms, test.expr.Terms()); diff != "" {
				t.Errorf("Terms() returned with unexpected diff (-want+got):\n%v", diff)
			}
			if got := test.expr.Offset(); got != test.wantOffset {
				t.Errorf("Offset() = %v, want %v", got, test.wantOffset)
			}
		})
	}
}

func TestBuilder_Constraints(t *testing.T) {
	b := NewBuilder("constraints")
	x := b.NewBoolVar("x")
	y := b.NewBoolVar("y")
	inf := math.Inf(1)

	c0 := b.AddLessOrEqual("le", NewLinearExpr().AddVars(x, y), 1)
	c1 := b.AddGreaterOrEqual("ge", NewLinearExpr().Add(x).AddConstant(1), 1)
	c2 := b.AddEquality("eq", NewLinearExpr().AddTerm(y, 2), 2)
	c3 := b.AddLinearConstraint("range", x, 0, 1)

	m, err := b.Model()
	if err != nil {
		t.Fatalf("Model() returned with unexpected error %v", err)
	}
	want := []Constraint{
		{Name: "le", Terms: []Term{{Var: x, Coeff: 1}, {Var: y, Coeff: 1}}, LowerBound: -inf, UpperBound: 1},
		{Name: "ge", Terms: []Term{{Var: x, Coeff: 1}}, LowerBound: 0, UpperBound: inf},
		{Name: "eq", Terms: []Term{{Var: y, Coeff: 2}}, LowerBound: 2, UpperBound: 2},
		{Name: "range", Terms: []Term{{Var: x, Coeff: 1}}, LowerBound: 0, UpperBound: 1},
	}
	var got []Constraint
	for _, c := range []ConstrIndex{c0, c1, c2, c3} {
		got = append(got, m.Constraint(c))
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Constraint() returned with unexpected diff (-want+got):\n%v", diff)
	}
	if got, want := m.NumConstraints(), 4; got != want {
		t.Errorf("NumConstraints() = %v, want %v", got, want)
	}
}

func TestBuilder_LookupVar(t *testing.T) {
	b := NewBuilder("")
	b.NewBoolVar("a")
	v := b.NewVar(0, 10, true, "b")
	b.NewVar(-1, 1, false, "")

	got, ok := b.LookupVar("b")
	if !ok || got != v {
		t.Errorf("LookupVar(b) = %v, %v, want %v, true", got, ok, v)
	}
	if _, ok := b.LookupVar("missing"); ok {
		t.Errorf("LookupVar(missing) returned ok, want not found")
	}
	if got, want := b.NumVariables(), 3; got != want {
		t.Errorf("NumVariables() = %v, want %v", got, want)
	}
}

func TestBuilder_Objective(t *testing.T) {
	b := NewBuilder("")
	x := b.NewBoolVar("x")
	y := b.NewBoolVar("y")
	b.Maximize(NewLinearExpr().AddTerm(x, 3).AddTerm(y, 2).AddConstant(1))

	m, err := b.Model()
	if err != nil {
		t.Fatalf("Model() returned with unexpected error %v", err)
	}
	want := Objective{Terms: []Term{{Var: x, Coeff: 3}, {Var: y, Coeff: 2}}, Offset: 1, Maximize: true}
	if diff := cmp.Diff(want, m.Objective()); diff != "" {
		t.Errorf("Objective() returned with unexpected diff (-want+got):\n%v", diff)
	}
	if got, want := m.ObjectiveValue([]float64{1, 0}), 4.0; got != want {
		t.Errorf("ObjectiveValue() = %v, want %v", got, want)
	}
}

func TestModel_Violations(t *testing.T) {
	b := NewBuilder("")
	x := b.NewBoolVar("x")
	y := b.NewBoolVar("y")
	b.AddLessOrEqual("atmost1", NewLinearExpr().AddVars(x, y), 1)
	b.AddGreaterOrEqual("atleast1", NewLinearExpr().AddVars(x, y), 1)
	m, err := b.Model()
	if err != nil {
		t.Fatalf("Model() returned with unexpected error %v", err)
	}

	testCases := []struct {
		name            string
		values          []float64
		wantConstraints []ConstrIndex
		wantVariables   []VarIndex
	}{
		{
			name:   "Feasible",
			values: []float64{1, 0},
		},
		{
			name:            "TooMany",
			values:          []float64{1, 1},
			wantConstraints: []ConstrIndex{0},
		},
		{
			name:            "TooFew",
			values:          []float64{0, 0},
			wantConstraints: []ConstrIndex{1},
		},
		{
			name:          "Fractional",
			values:        []float64{0.5, 0.5},
			wantVariables: []VarIndex{0, 1},
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			cts, vars := m.Violations(test.values, 1e-6)
			if diff := cmp.Diff(test.wantConstraints, cts); diff != "" {
				t.Errorf("Violations() constraints returned with unexpected diff (-want+got):\n%v", diff)
			}
			if diff := cmp.Diff(test.wantVariables, vars); diff != "" {
				t.Errorf("Violations() variables returned with unexpected diff (-want+got):\n%v", diff)
			}
		})
	}
}

func TestBuilder_ModelIsImmutable(t *testing.T) {
	b := NewBuilder("")
	x := b.NewBoolVar("x")
	b.AddLessOrEqual("c", x, 1)
	m, err := b.Model()
	if err != nil {
		t.Fatalf("Model() returned with unexpected error %v", err)
	}
	b.NewBoolVar("y")
	b.AddLessOrEqual("d", x, 1)

	if got, want := m.NumVariables(), 1; got != want {
		t.Errorf("NumVariables() = %v, want %v", got, want)
	}
	if got, want := m.NumConstraints(), 1; got != want {
		t.Errorf("NumConstraints() = %v, want %v", got, want)
	}
}

func TestBuilder_ErrorHandling(t *testing.T) {
	testCases := []struct {
		name    string
		builder func() *Builder
		wantErr error
	}{
		{
			name: "DuplicateVariableName",
			builder: func() *Builder {
				b := NewBuilder("")
				b.NewBoolVar("x")
				b.NewBoolVar("x")
				return b
			},
			wantErr: ErrDuplicateName,
		},
		{
			name: "DuplicateConstraintName",
			builder: func() *Builder {
				b := NewBuilder("")
				x := b.NewBoolVar("x")
				b.AddLessOrEqual("c", x, 1)
				b.AddGreaterOrEqual("c", x, 0)
				return b
			},
			wantErr: ErrDuplicateName,
		},
		{
			name: "VariableFromOtherBuilder",
			builder: func() *Builder {
				b1 := NewBuilder("")
				b2 := NewBuilder("")
				b2.NewBoolVar("x")
				y := b2.NewBoolVar("y")
				b1.AddLessOrEqual("c", y, 1)
				return b1
			},
			wantErr: ErrUnknownVariable,
		},
		{
			name: "ObjectiveFromOtherBuilder",
			builder: func() *Builder {
				b1 := NewBuilder("")
				b2 := NewBuilder("")
				b1.Maximize(b2.NewBoolVar("x"))
				return b1
			},
			wantErr: ErrUnknownVariable,
		},
		{
			name: "InvertedVariableBounds",
			builder: func() *Builder {
				b := NewBuilder("")
				b.NewVar(1, 0, false, "x")
				return b
			},
			wantErr: ErrInvalidBounds,
		},
		{
			name: "InvertedConstraintBounds",
			builder: func() *Builder {
				b := NewBuilder("")
				x := b.NewBoolVar("x")
				b.AddLinearConstraint("c", x, 2, 1)
				return b
			},
			wantErr: ErrInvalidBounds,
		},
		{
			name: "NaNCoefficient",
			builder: func() *Builder {
				b := NewBuilder("")
				x := b.NewBoolVar("x")
				b.AddLessOrEqual("c", NewLinearExpr().AddTerm(x, math.NaN()), 1)
				return b
			},
			wantErr: ErrInvalidBounds,
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			got, err := test.builder().Model()
			if !errors.Is(err, test.wantErr) {
				t.Errorf("Model() returned with unexpected error %v; want %v", err, test.wantErr)
			}
			if got != nil {
				t.Errorf("Model() returned with unexpected model %v; want nil", got)
			}
		})
	}
}

func TestSolution_Values(t *testing.T) {
	var empty *Solution
	if empty.HasValues() {
		t.Errorf("HasValues() on nil solution = true, want false")
	}
	sol := &Solution{Status: StatusFeasible, Values: []float64{0, 0.9999, 3}}
	if !sol.HasValues() {
		t.Errorf("HasValues() = false, want true")
	}
	if got := sol.BooleanValue(1); !got {
		t.Errorf("BooleanValue(1) = %v, want true", got)
	}
	if got := sol.BooleanValue(0); got {
		t.Errorf("BooleanValue(0) = %v, want false", got)
	}
	if got, want := sol.Value(2), 3.0; got != want {
		t.Errorf("Value(2) = %v, want %v", got, want)
	}
}

func TestStatus_String(t *testing.T) {
	testCases := []struct {
		status Status
		want   string
	}{
		{StatusOptimal, "OPTIMAL"},
		{StatusTimedOut, "TIMED_OUT"},
		{StatusSolverError, "SOLVER_ERROR"},
		{Status(42), "Status(42)"},
	}
	for _, test := range testCases {
		if got := test.status.String(); got != test.want {
			t.Errorf("String() = %q, want %q", got, test.want)
		}
	}
}

func TestSolverError_Unwrap(t *testing.T) {
	inner := errors.New("boom")
	var err error = &SolverError{Backend: "test", Err: inner}
	if !errors.Is(err, inner) {
		t.Errorf("errors.Is(%v, inner) = false, want true", err)
	}
	if got, want := err.Error(), "solver test: boom"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
