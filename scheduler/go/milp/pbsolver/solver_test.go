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

package pbsolver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/crillab/gophersat/solver"
	"github.com/google/go-cmp/cmp"

	"github.com/spdasilv/Route-Scheduler-LP/scheduler/go/milp"
)

func buildModel(t *testing.T, build func(b *milp.Builder)) *milp.Model {
	t.Helper()
	b := milp.NewBuilder("test")
	build(b)
	m, err := b.Model()
	if err != nil {
		t.Fatalf("Model() returned with unexpected error %v", err)
	}
	return m
}

func TestSolver_Solve(t *testing.T) {
	testCases := []struct {
		name       string
		build      func(b *milp.Builder)
		wantStatus milp.Status
		wantValues []float64
		wantObj    float64
	}{
		{
			name: "Knapsack",
			build: func(b *milp.Builder) {
				x := b.NewBoolVar("x")
				y := b.NewBoolVar("y")
				z := b.NewBoolVar("z")
				b.AddLessOrEqual("capacity", milp.NewLinearExpr().AddTerm(x, 3).AddTerm(y, 4).AddTerm(z, 2), 6)
				b.Maximize(milp.NewLinearExpr().AddTerm(x, 5).AddTerm(y, 6).AddTerm(z, 4))
			},
			wantStatus: milp.StatusOptimal,
			wantValues: []float64{0, 1, 1},
			wantObj:    10,
		},
		{
			name: "MinimizeWithCover",
			build: func(b *milp.Builder) {
				x := b.NewBoolVar("x")
				y := b.NewBoolVar("y")
				z := b.NewBoolVar("z")
				b.AddGreaterOrEqual("cover_xy", milp.NewLinearExpr().AddVars(x, y), 1)
				b.AddGreaterOrEqual("cover_yz", milp.NewLinearExpr().AddVars(y, z), 1)
				b.Minimize(milp.NewLinearExpr().AddTerm(x, 2).AddTerm(y, 3).AddTerm(z, 2))
			},
			wantStatus: milp.StatusOptimal,
			wantValues: []float64{0, 1, 0},
			wantObj:    3,
		},
		{
			name: "Equality",
			build: func(b *milp.Builder) {
				x := b.NewBoolVar("x")
				y := b.NewBoolVar("y")
				z := b.NewBoolVar("z")
				b.AddEquality("exactly_two", milp.NewLinearExpr().AddVars(x, y, z), 2)
				b.Maximize(milp.NewLinearExpr().AddTerm(x, 1).AddTerm(y, 2).AddTerm(z, 3))
			},
			wantStatus: milp.StatusOptimal,
			wantValues: []float64{0, 1, 1},
			wantObj:    5,
		},
		{
			name: "NegativeCoefficients",
			build: func(b *milp.Builder) {
				x := b.NewBoolVar("x")
				y := b.NewBoolVar("y")
				// x implies y.
				b.AddLessOrEqual("implies", milp.NewLinearExpr().Add(x).AddTerm(y, -1), 0)
				b.Maximize(milp.NewLinearExpr().AddTerm(x, 3).AddTerm(y, -1))
			},
			wantStatus: milp.StatusOptimal,
			wantValues: []float64{1, 1},
			wantObj:    2,
		},
		{
			name: "FixedVariable",
			build: func(b *milp.Builder) {
				x := b.NewVar(1, 1, true, "x")
				y := b.NewBoolVar("y")
				b.AddLessOrEqual("one", milp.NewLinearExpr().AddVars(x, y), 1)
				b.Maximize(milp.NewLinearExpr().AddVars(y).AddConstant(7))
			},
			wantStatus: milp.StatusOptimal,
			wantValues: []float64{1, 0},
			wantObj:    7,
		},
		{
			name: "UnconstrainedVariable",
			build: func(b *milp.Builder) {
				b.NewBoolVar("x")
				y := b.NewBoolVar("y")
				b.Maximize(y)
			},
			wantStatus: milp.StatusOptimal,
			wantObj:    1,
		},
		{
			name: "Infeasible",
			build: func(b *milp.Builder) {
				x := b.NewBoolVar("x")
				y := b.NewBoolVar("y")
				b.AddGreaterOrEqual("both", milp.NewLinearExpr().AddVars(x, y), 2)
				b.AddLessOrEqual("one", milp.NewLinearExpr().AddVars(x, y), 1)
			},
			wantStatus: milp.StatusInfeasible,
		},
		{
			name: "BoundOutOfReach",
			build: func(b *milp.Builder) {
				x := b.NewBoolVar("x")
				b.AddGreaterOrEqual("three", milp.NewLinearExpr().AddTerm(x, 2), 3)
			},
			wantStatus: milp.StatusInfeasible,
		},
		{
			name:       "NoVariables",
			build:      func(b *milp.Builder) {},
			wantStatus: milp.StatusOptimal,
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			m := buildModel(t, test.build)
			got, err := New().Solve(context.Background(), m, milp.Parameters{TimeLimit: time.Minute})
			if err != nil {
				t.Fatalf("Solve() returned with unexpected error %v", err)
			}
			if got.Status != test.wantStatus {
				t.Fatalf("Solve() status = %v, want %v", got.Status, test.wantStatus)
			}
			if test.wantStatus != milp.StatusOptimal {
				if got.HasValues() {
					t.Errorf("Solve() returned values %v for status %v", got.Values, got.Status)
				}
				return
			}
			if got.ObjectiveValue != test.wantObj {
				t.Errorf("Solve() objective = %v, want %v", got.ObjectiveValue, test.wantObj)
			}
			if test.wantValues != nil {
				if diff := cmp.Diff(test.wantValues, got.Values); diff != "" {
					t.Errorf("Solve() values returned with unexpected diff (-want+got):\n%v", diff)
				}
			}
			if got.HasValues() {
				if cts, vars := m.Violations(got.Values, 1e-9); len(cts) != 0 || len(vars) != 0 {
					t.Errorf("Solve() returned an assignment violating constraints %v and variables %v", cts, vars)
				}
			}
		})
	}
}

func TestSolver_UnsupportedModel(t *testing.T) {
	testCases := []struct {
		name  string
		build func(b *milp.Builder)
	}{
		{
			name: "ContinuousVariable",
			build: func(b *milp.Builder) {
				b.NewVar(0, 1, false, "x")
			},
		},
		{
			name: "GeneralInteger",
			build: func(b *milp.Builder) {
				b.NewVar(0, 3, true, "x")
			},
		},
		{
			name: "FractionalCoefficient",
			build: func(b *milp.Builder) {
				x := b.NewBoolVar("x")
				b.AddLessOrEqual("c", milp.NewLinearExpr().AddTerm(x, 0.5), 1)
			},
		},
		{
			name: "FractionalObjective",
			build: func(b *milp.Builder) {
				x := b.NewBoolVar("x")
				b.Maximize(milp.NewLinearExpr().AddTerm(x, 1.5))
			},
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			got, err := New().Solve(context.Background(), buildModel(t, test.build), milp.Parameters{})
			var se *milp.SolverError
			if !errors.As(err, &se) {
				t.Fatalf("Solve() returned with unexpected error %v; want *milp.SolverError", err)
			}
			if !errors.Is(err, ErrUnsupportedModel) {
				t.Errorf("Solve() returned with unexpected error %v; want ErrUnsupportedModel", err)
			}
			if got.Status != milp.StatusSolverError {
				t.Errorf("Solve() status = %v, want %v", got.Status, milp.StatusSolverError)
			}
		})
	}
}

func TestSolver_CancelledContext(t *testing.T) {
	m := buildModel(t, func(b *milp.Builder) {
		x := b.NewBoolVar("x")
		b.Maximize(x)
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, err := New().Solve(ctx, m, milp.Parameters{})
	if err != nil {
		t.Fatalf("Solve() returned with unexpected error %v", err)
	}
	if got.Status != milp.StatusTimedOut {
		t.Errorf("Solve() status = %v, want %v", got.Status, milp.StatusTimedOut)
	}
	if got.HasValues() {
		t.Errorf("Solve() returned values %v, want none", got.Values)
	}
}

// stalledSearch returns a search that reports `incumbent`, if any, runs `afterIncumbent`
// and then blocks until the test ends, as a search that cannot prove optimality in time.
func stalledSearch(t *testing.T, incumbent []bool, afterIncumbent func()) func(*solver.Solver, chan solver.Result) solver.Result {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	return func(_ *solver.Solver, results chan solver.Result) solver.Result {
		defer close(results)
		if incumbent != nil {
			results <- solver.Result{Status: solver.Sat, Model: incumbent}
		}
		if afterIncumbent != nil {
			afterIncumbent()
		}
		<-release
		return solver.Result{Status: solver.Indet}
	}
}

func knapsack(t *testing.T) *milp.Model {
	t.Helper()
	return buildModel(t, func(b *milp.Builder) {
		x := b.NewBoolVar("x")
		y := b.NewBoolVar("y")
		z := b.NewBoolVar("z")
		b.AddLessOrEqual("capacity", milp.NewLinearExpr().AddTerm(x, 3).AddTerm(y, 4).AddTerm(z, 2), 6)
		b.Maximize(milp.NewLinearExpr().AddTerm(x, 5).AddTerm(y, 6).AddTerm(z, 4))
	})
}

func TestSolver_StoppedSearchKeepsIncumbent(t *testing.T) {
	testCases := []struct {
		name       string
		incumbent  []bool
		cancel     bool
		timeLimit  time.Duration
		wantValues []float64
		wantObj    float64
	}{
		{
			name:       "TimeLimit",
			incumbent:  []bool{true, false, true},
			timeLimit:  200 * time.Millisecond,
			wantValues: []float64{1, 0, 1},
			wantObj:    9,
		},
		{
			name:       "ContextCancelled",
			incumbent:  []bool{false, true, false},
			cancel:     true,
			wantValues: []float64{0, 1, 0},
			wantObj:    6,
		},
		{
			name:      "NoIncumbent",
			timeLimit: 50 * time.Millisecond,
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			var after func()
			if test.cancel {
				after = cancel
			}
			s := &Solver{optimize: stalledSearch(t, test.incumbent, after)}

			got, err := s.Solve(ctx, knapsack(t), milp.Parameters{TimeLimit: test.timeLimit})
			if err != nil {
				t.Fatalf("Solve() returned with unexpected error %v", err)
			}
			if got.Status != milp.StatusTimedOut {
				t.Errorf("Solve() status = %v, want %v", got.Status, milp.StatusTimedOut)
			}
			if diff := cmp.Diff(test.wantValues, got.Values); diff != "" {
				t.Errorf("Solve() values returned with unexpected diff (-want+got):\n%v", diff)
			}
			if got.ObjectiveValue != test.wantObj {
				t.Errorf("Solve() objective = %v, want %v", got.ObjectiveValue, test.wantObj)
			}
		})
	}
}

func TestSolver_SearchCrash(t *testing.T) {
	s := &Solver{optimize: func(*solver.Solver, chan solver.Result) solver.Result {
		panic("out of memory")
	}}
	got, err := s.Solve(context.Background(), knapsack(t), milp.Parameters{})
	var se *milp.SolverError
	if !errors.As(err, &se) || se.Backend != backendName {
		t.Errorf("Solve() returned with unexpected error %v; want *milp.SolverError from %s", err, backendName)
	}
	if got.Status != milp.StatusSolverError {
		t.Errorf("Solve() status = %v, want %v", got.Status, milp.StatusSolverError)
	}
}

func TestSolver_Deterministic(t *testing.T) {
	m := buildModel(t, func(b *milp.Builder) {
		vars := make([]milp.VarIndex, 6)
		weights := []float64{4, 2, 7, 1, 3, 5}
		obj := milp.NewLinearExpr()
		capacity := milp.NewLinearExpr()
		for i := range vars {
			vars[i] = b.NewBoolVar("")
			obj.AddTerm(vars[i], weights[i])
			capacity.AddTerm(vars[i], float64(i%3+1))
		}
		b.AddLessOrEqual("capacity", capacity, 5)
		b.Maximize(obj)
	})

	first, err := New().Solve(context.Background(), m, milp.Parameters{})
	if err != nil {
		t.Fatalf("Solve() returned with unexpected error %v", err)
	}
	second, err := New().Solve(context.Background(), m, milp.Parameters{})
	if err != nil {
		t.Fatalf("Solve() returned with unexpected error %v", err)
	}
	if first.ObjectiveValue != second.ObjectiveValue {
		t.Errorf("Solve() objectives differ: %v then %v", first.ObjectiveValue, second.ObjectiveValue)
	}
}
