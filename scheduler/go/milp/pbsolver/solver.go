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

// Package pbsolver solves pure binary milp models with the gophersat pseudo-boolean
// optimizer.
//
// Every variable must be an integer variable with bounds inside [0,1] and every
// coefficient must be integral. Variable `v` of the model is the gophersat variable
// `v+1`.
package pbsolver

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/crillab/gophersat/solver"
	log "github.com/golang/glog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/spdasilv/Route-Scheduler-LP/scheduler/go/milp"
)

const backendName = "gophersat"

// boundTolerance absorbs rounding noise on constraint and variable bounds.
const boundTolerance = 1e-9

// maxCoeff bounds the magnitude of coefficients that are converted to int weights.
const maxCoeff = 1 << 31

// ErrUnsupportedModel is wrapped by the *milp.SolverError returned for models that are not
// pure binary with integral coefficients.
var ErrUnsupportedModel = errors.New("model is not a pure binary integral program")

var tracer = otel.Tracer("github.com/spdasilv/Route-Scheduler-LP/scheduler/go/milp/pbsolver")

// Solver is a milp.Solver backed by gophersat. The zero value is ready to use.
type Solver struct {
	// optimize runs the search, sending every incumbent on `results` and closing it when
	// done. Nil means gophersat's Optimal.
	optimize func(gs *solver.Solver, results chan solver.Result) solver.Result
}

func optimal(gs *solver.Solver, results chan solver.Result) solver.Result {
	return gs.Optimal(results, nil)
}

// New returns a new Solver.
func New() *Solver {
	return &Solver{}
}

var _ milp.Solver = (*Solver)(nil)

// Solve searches for an optimal assignment of `m`.
//
// The search stops when optimality is proven, when params.TimeLimit elapses or when ctx
// is done. In the last two cases the best assignment found so far is returned with
// milp.StatusTimedOut; the abandoned search keeps running in the background until it
// finishes since gophersat cannot be interrupted.
func (s *Solver) Solve(ctx context.Context, m *milp.Model, params milp.Parameters) (*milp.Solution, error) {
	ctx, span := tracer.Start(ctx, "pbsolver.Solve", trace.WithAttributes(
		attribute.Int("milp.variables", m.NumVariables()),
		attribute.Int("milp.constraints", m.NumConstraints()),
	))
	defer span.End()

	start := time.Now()
	sol, err := s.solve(ctx, m, params)
	sol.WallTime = time.Since(start)

	span.SetAttributes(attribute.String("milp.status", sol.Status.String()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return sol, err
}

type outcome struct {
	res      solver.Result
	panicked any
}

func (s *Solver) solve(ctx context.Context, m *milp.Model, params milp.Parameters) (*milp.Solution, error) {
	if params.RelativeGap > 0 {
		log.V(1).Infof("pbsolver: relative gap %v ignored, the search runs until optimality is proven", params.RelativeGap)
	}
	pb, err := encode(m)
	if err != nil {
		return &milp.Solution{Status: milp.StatusSolverError}, &milp.SolverError{Backend: backendName, Err: err}
	}
	if m.NumVariables() == 0 {
		return solveEmpty(m), nil
	}
	if err := ctx.Err(); err != nil {
		log.Warningf("pbsolver: context done before the search started: %v", err)
		return &milp.Solution{Status: milp.StatusTimedOut}, nil
	}

	var timeout <-chan time.Time
	if params.TimeLimit > 0 {
		timer := time.NewTimer(params.TimeLimit)
		defer timer.Stop()
		timeout = timer.C
	}

	optimize := s.optimize
	if optimize == nil {
		optimize = optimal
	}
	gs := solver.New(pb)
	incumbents := make(chan solver.Result)
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{panicked: r}
			}
		}()
		done <- outcome{res: optimize(gs, incumbents)}
	}()

	var best []bool
	results := incumbents
	for {
		select {
		case r, ok := <-results:
			if !ok {
				results = nil
				continue
			}
			if r.Status == solver.Sat {
				log.V(1).Infof("pbsolver: incumbent with cost %d", r.Weight)
				best = r.Model
			}
		case o := <-done:
			if o.panicked != nil {
				log.Errorf("pbsolver: search crashed: %v", o.panicked)
				return &milp.Solution{Status: milp.StatusSolverError},
					&milp.SolverError{Backend: backendName, Err: fmt.Errorf("search crashed: %v", o.panicked)}
			}
			switch o.res.Status {
			case solver.Sat:
				return newSolution(m, milp.StatusOptimal, o.res.Model), nil
			case solver.Unsat:
				return &milp.Solution{Status: milp.StatusInfeasible}, nil
			default:
				return &milp.Solution{Status: milp.StatusUnknown}, nil
			}
		case <-timeout:
			log.Warningf("pbsolver: time limit %v reached", params.TimeLimit)
			go drain(incumbents)
			return newSolution(m, milp.StatusTimedOut, best), nil
		case <-ctx.Done():
			log.Warningf("pbsolver: search interrupted: %v", ctx.Err())
			go drain(incumbents)
			return newSolution(m, milp.StatusTimedOut, best), nil
		}
	}
}

// drain consumes the incumbents of an abandoned search so that it can run to completion.
func drain(results <-chan solver.Result) {
	for range results {
	}
}

func newSolution(m *milp.Model, status milp.Status, model []bool) *milp.Solution {
	sol := &milp.Solution{Status: status}
	if model == nil {
		return sol
	}
	sol.Values = make([]float64, m.NumVariables())
	for i := range sol.Values {
		if i < len(model) && model[i] {
			sol.Values[i] = 1
		}
	}
	sol.ObjectiveValue = m.ObjectiveValue(sol.Values)
	return sol
}

// solveEmpty handles models without variables, which gophersat cannot represent.
func solveEmpty(m *milp.Model) *milp.Solution {
	for c := 0; c < m.NumConstraints(); c++ {
		ct := m.Constraint(milp.ConstrIndex(c))
		if ct.LowerBound > boundTolerance || ct.UpperBound < -boundTolerance {
			return &milp.Solution{Status: milp.StatusInfeasible}
		}
	}
	return &milp.Solution{Status: milp.StatusOptimal, ObjectiveValue: m.ObjectiveValue(nil)}
}

func integral(c float64) (int, bool) {
	if c != math.Trunc(c) || math.Abs(c) > maxCoeff {
		return 0, false
	}
	return int(c), true
}

// encode translates the model into a gophersat problem with a minimization cost function.
func encode(m *milp.Model) (*solver.Problem, error) {
	n := m.NumVariables()
	// Listing every variable in a trivially true constraint declares all of them, even
	// those that appear in no other constraint.
	decl := make([]int, n)
	for i := range decl {
		decl[i] = i + 1
	}
	constrs := []solver.PBConstr{solver.AtLeast(decl, 0)}

	for i := 0; i < n; i++ {
		v := m.Variable(milp.VarIndex(i))
		if !v.Integer {
			return nil, fmt.Errorf("%w: variable %d (%q) is continuous", ErrUnsupportedModel, i, v.Name)
		}
		lo := math.Ceil(v.LowerBound - boundTolerance)
		hi := math.Floor(v.UpperBound + boundTolerance)
		if lo <= hi && (lo < 0 || hi > 1) {
			return nil, fmt.Errorf("%w: variable %d (%q) has domain [%v,%v]", ErrUnsupportedModel, i, v.Name, v.LowerBound, v.UpperBound)
		}
		switch {
		case lo > hi:
			constrs = append(constrs, solver.PropClause())
		case lo == 1:
			constrs = append(constrs, solver.PropClause(i+1))
		case hi == 0:
			constrs = append(constrs, solver.PropClause(-(i + 1)))
		}
	}

	for c := 0; c < m.NumConstraints(); c++ {
		ct := m.Constraint(milp.ConstrIndex(c))
		weights := make([]int, len(ct.Terms))
		var minAct, maxAct int
		for k, t := range ct.Terms {
			w, ok := integral(t.Coeff)
			if !ok {
				return nil, fmt.Errorf("%w: constraint %d (%q) has coefficient %v", ErrUnsupportedModel, c, ct.Name, t.Coeff)
			}
			weights[k] = w
			if w > 0 {
				maxAct += w
			} else {
				minAct += w
			}
		}
		lits := func() []int {
			out := make([]int, len(ct.Terms))
			for k, t := range ct.Terms {
				out[k] = int(t.Var) + 1
			}
			return out
		}
		if !math.IsInf(ct.LowerBound, -1) {
			lb := math.Ceil(ct.LowerBound - boundTolerance)
			switch {
			case lb <= float64(minAct):
			case lb > float64(maxAct):
				constrs = append(constrs, solver.PropClause())
			default:
				constrs = append(constrs, solver.GtEq(lits(), append([]int(nil), weights...), int(lb)))
			}
		}
		if !math.IsInf(ct.UpperBound, 1) {
			ub := math.Floor(ct.UpperBound + boundTolerance)
			switch {
			case ub >= float64(maxAct):
			case ub < float64(minAct):
				constrs = append(constrs, solver.PropClause())
			default:
				constrs = append(constrs, solver.LtEq(lits(), append([]int(nil), weights...), int(ub)))
			}
		}
	}

	pb := solver.ParsePBConstrs(constrs)

	obj := m.Objective()
	var costLits []solver.Lit
	var costWeights []int
	for _, t := range obj.Terms {
		w, ok := integral(t.Coeff)
		if !ok {
			return nil, fmt.Errorf("%w: objective has coefficient %v on variable %d", ErrUnsupportedModel, t.Coeff, t.Var)
		}
		if obj.Maximize {
			w = -w
		}
		lit := int32(t.Var) + 1
		if w < 0 {
			lit, w = -lit, -w
		}
		costLits = append(costLits, solver.IntToLit(lit))
		costWeights = append(costWeights, w)
	}
	if len(costLits) > 0 {
		pb.SetCostFunc(costLits, costWeights)
	}
	log.V(1).Infof("pbsolver: encoded %d variables into %d pseudo-boolean constraints", n, len(constrs))
	return pb, nil
}
