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

package itinerary

import (
	"context"
	"fmt"

	log "github.com/golang/glog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/spdasilv/Route-Scheduler-LP/scheduler/go/milp"
)

var tracer = otel.Tracer("github.com/spdasilv/Route-Scheduler-LP/scheduler/go/itinerary")

// Result is the outcome of Solve.
type Result struct {
	Status milp.Status
	// Objective is the total weight collected. It is zero when Itinerary is nil.
	Objective float64
	// Itinerary is nil when the solver returned no assignment (infeasible trip, unbounded
	// model, or time limit reached before the first incumbent).
	Itinerary *Itinerary
}

// Solve builds the formulation of `dom`, solves it with `solver` and decodes the
// assignment. Solver failures are returned as *milp.SolverError and inconsistent
// assignments as *MalformedSolutionError. Nothing is cached across calls.
func Solve(ctx context.Context, dom *Domain, solver milp.Solver, params milp.Parameters) (res *Result, err error) {
	ctx, span := tracer.Start(ctx, "itinerary.Solve", trace.WithAttributes(
		attribute.Int("itinerary.activities", dom.NumActivities()),
		attribute.Int("itinerary.days", dom.NumDays()),
		attribute.Int("itinerary.slots", dom.NumSlots()),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	f, err := Build(dom)
	if err != nil {
		return nil, err
	}
	sol, err := solver.Solve(ctx, f.Model(), params)
	if err != nil {
		return nil, fmt.Errorf("solving itinerary: %w", err)
	}
	span.SetAttributes(attribute.String("milp.status", sol.Status.String()))
	log.V(1).Infof("itinerary: solver returned %v in %v", sol.Status, sol.WallTime)

	return resultOf(f, sol)
}

// DecodeResponse decodes a serialized MPSolutionResponse computed for the model of `f`,
// for example by an OR-Tools linear solver service fed with milp.MarshalMPModel.
// Failures reported by the response are returned as *milp.SolverError.
func DecodeResponse(f *Formulation, data []byte) (*Result, error) {
	sol, err := milp.UnmarshalMPSolution(data, f.Model())
	if err != nil {
		return nil, fmt.Errorf("decoding solver response: %w", err)
	}
	log.V(1).Infof("itinerary: solver response has status %v", sol.Status)
	return resultOf(f, sol)
}

func resultOf(f *Formulation, sol *milp.Solution) (*Result, error) {
	res := &Result{Status: sol.Status}
	switch sol.Status {
	case milp.StatusOptimal, milp.StatusFeasible, milp.StatusTimedOut:
		if !sol.HasValues() {
			log.Warningf("itinerary: solver returned %v without an assignment", sol.Status)
			return res, nil
		}
	default:
		return res, nil
	}
	it, err := Decode(f, sol)
	if err != nil {
		return nil, err
	}
	res.Itinerary = it
	res.Objective = sol.ObjectiveValue
	return res, nil
}
