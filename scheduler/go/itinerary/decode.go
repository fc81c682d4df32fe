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
	"errors"
	"fmt"

	"github.com/samber/lo"

	"github.com/spdasilv/Route-Scheduler-LP/scheduler/go/milp"
)

// NoSlot marks the arrival at home before the first departure of a day and the departure
// from home after the last arrival.
const NoSlot = -1

// ErrNoAssignment is returned by Decode for solutions without variable values.
var ErrNoAssignment = errors.New("solution carries no assignment")

// Stop is one visit of a day plan. The ArrivalSlot of the closing home stop may equal
// Domain.NumSlots() when the last trip of the day ends with the horizon.
type Stop struct {
	Activity      int
	ArrivalSlot   int
	DepartureSlot int
}

// DayPlan is the ordered list of stops of one day. It starts and ends at home.
type DayPlan struct {
	Day   int
	Stops []Stop
}

// Activities returns the activities of the plan in visiting order.
func (p DayPlan) Activities() []int {
	return lo.Map(p.Stops, func(s Stop, _ int) int { return s.Activity })
}

// Itinerary is the decoded schedule of a trip.
type Itinerary struct {
	Days []DayPlan
	// TotalWeight is the sum of the weights of the non-home activities visited.
	TotalWeight int
}

type chosenEdge struct {
	to, slot int
}

// Decode turns the assignment of `sol` into an itinerary. The chosen edges of every day
// must form a single tour starting and ending at home; any other shape is reported as a
// *MalformedSolutionError.
func Decode(f *Formulation, sol *milp.Solution) (*Itinerary, error) {
	if !sol.HasValues() {
		return nil, ErrNoAssignment
	}
	if len(sol.Values) != f.model.NumVariables() {
		return nil, fmt.Errorf("solution has %d values for %d variables", len(sol.Values), f.model.NumVariables())
	}
	dom := f.dom
	h := dom.Home()
	it := &Itinerary{}
	seen := make(map[int]int)

	for d := 0; d < f.days; d++ {
		out := make([][]chosenEdge, f.n)
		for i := 0; i < f.n; i++ {
			for j := 0; j < f.n; j++ {
				for t := 0; t < f.slots; t++ {
					if !sol.BooleanValue(f.EdgeVar(i, j, d, t)) {
						continue
					}
					if i == j {
						return nil, &MalformedSolutionError{Day: d, Activity: i, Reason: fmt.Sprintf("self-loop chosen at slot %d", t)}
					}
					out[i] = append(out[i], chosenEdge{to: j, slot: t})
				}
			}
		}
		for i, edges := range out {
			if len(edges) > 1 {
				return nil, &MalformedSolutionError{Day: d, Activity: i, Reason: fmt.Sprintf("%d outgoing edges chosen", len(edges))}
			}
		}
		if len(out[h]) == 0 {
			return nil, &MalformedSolutionError{Day: d, Activity: h, Reason: "home has no outgoing edge"}
		}

		first := out[h][0]
		plan := DayPlan{Day: d, Stops: []Stop{{Activity: h, ArrivalSlot: NoSlot, DepartureSlot: first.slot}}}
		visited := map[int]bool{h: true}
		cur, e := h, first
		for {
			arrival := e.slot + dom.Cost(cur, e.to)
			next := e.to
			if next == h {
				plan.Stops = append(plan.Stops, Stop{Activity: h, ArrivalSlot: arrival, DepartureSlot: NoSlot})
				break
			}
			if visited[next] {
				return nil, &MalformedSolutionError{Day: d, Activity: next, Reason: "cycle that does not return home"}
			}
			visited[next] = true
			if len(out[next]) == 0 {
				return nil, &MalformedSolutionError{Day: d, Activity: next, Reason: "tour stops before returning home"}
			}
			leave := out[next][0]
			if leave.slot < arrival+dom.Duration(next) {
				return nil, &MalformedSolutionError{Day: d, Activity: next,
					Reason: fmt.Sprintf("departure at slot %d before the visit from slot %d ends", leave.slot, arrival)}
			}
			if prev, ok := seen[next]; ok {
				return nil, &MalformedSolutionError{Day: d, Activity: next, Reason: fmt.Sprintf("already visited on day %d", prev)}
			}
			seen[next] = d
			plan.Stops = append(plan.Stops, Stop{Activity: next, ArrivalSlot: arrival, DepartureSlot: leave.slot})
			it.TotalWeight += dom.Weight(next)
			cur, e = next, leave
		}
		for i, edges := range out {
			if len(edges) > 0 && !visited[i] {
				return nil, &MalformedSolutionError{Day: d, Activity: i, Reason: "chosen edge unreachable from home"}
			}
		}
		it.Days = append(it.Days, plan)
	}
	return it, nil
}
