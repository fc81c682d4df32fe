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
	"context"
	"fmt"
	"time"
)

// Status is the outcome of a solve.
type Status int

// Possible values of Status.
const (
	// StatusUnknown means the model was not solved.
	StatusUnknown Status = iota
	// StatusOptimal means the returned assignment is proven optimal.
	StatusOptimal
	// StatusFeasible means the returned assignment is feasible but not proven optimal.
	StatusFeasible
	// StatusInfeasible means the model has no feasible assignment.
	StatusInfeasible
	// StatusUnbounded means the objective can be improved without limit.
	StatusUnbounded
	// StatusTimedOut means the time limit was reached. The best assignment found so far, if
	// any, is returned.
	StatusTimedOut
	// StatusSolverError means the backend could not be invoked or crashed.
	StatusSolverError
)

var statusNames = map[Status]string{
	StatusUnknown:     "UNKNOWN",
	StatusOptimal:     "OPTIMAL",
	StatusFeasible:    "FEASIBLE",
	StatusInfeasible:  "INFEASIBLE",
	StatusUnbounded:   "UNBOUNDED",
	StatusTimedOut:    "TIMED_OUT",
	StatusSolverError: "SOLVER_ERROR",
}

func (s Status) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Parameters groups the generic solver parameters. The zero value means no limit.
type Parameters struct {
	// TimeLimit bounds the wall time of the solve. Cancellation is advisory: the solver
	// returns its best assignment when the limit is reached.
	TimeLimit time.Duration
	// RelativeGap is the relative optimality gap at which the search may stop. Backends
	// that only prove optimality ignore it.
	RelativeGap float64
}

// Solution is the result of a solve. Values holds one value per model variable when an
// assignment is available.
type Solution struct {
	Status         Status
	Values         []float64
	ObjectiveValue float64
	WallTime       time.Duration
}

// HasValues returns whether the solution carries an assignment.
func (s *Solution) HasValues() bool {
	return s != nil && len(s.Values) > 0
}

// Value returns the value of variable `v`, or 0 if the solution has no assignment.
func (s *Solution) Value(v VarIndex) float64 {
	if !s.HasValues() {
		return 0
	}
	return s.Values[v]
}

// BooleanValue returns the value of the binary variable `v`.
func (s *Solution) BooleanValue(v VarIndex) bool {
	return s.Value(v) > 0.5
}

// Solver is implemented by MILP backends.
type Solver interface {
	// Solve searches for an optimal assignment of `m`. Non-optimal outcomes are reported
	// through Solution.Status; a non-nil error is a *SolverError.
	Solve(ctx context.Context, m *Model, params Parameters) (*Solution, error)
}

// SolverError is returned when the backend could not be invoked or crashed.
type SolverError struct {
	Backend string
	Err     error
}

func (e *SolverError) Error() string {
	return fmt.Sprintf("solver %s: %v", e.Backend, e.Err)
}

func (e *SolverError) Unwrap() error {
	return e.Err
}
