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
	"math"

	"github.com/spdasilv/Route-Scheduler-LP/scheduler/go/milp"
)

// emitter appends the constraints of each family to the model being built.
type emitter struct {
	f *Formulation
	b *milp.Builder
}

func (e *emitter) add(family Family, expr *milp.LinearExpr, lb, ub float64, idx ...int) {
	c := e.b.AddLinearConstraint(indexedName(string(family), idx...), expr, lb, ub)
	e.f.families[family] = append(e.f.families[family], c)
}

func (e *emitter) lessOrEqual(family Family, expr *milp.LinearExpr, rhs float64, idx ...int) {
	e.add(family, expr, math.Inf(-1), rhs, idx...)
}

func (e *emitter) greaterOrEqual(family Family, expr *milp.LinearExpr, rhs float64, idx ...int) {
	e.add(family, expr, rhs, math.Inf(1), idx...)
}

func (e *emitter) equal(family Family, expr *milp.LinearExpr, rhs float64, idx ...int) {
	e.add(family, expr, rhs, rhs, idx...)
}

// edgesFrom adds Edge(i,j,d,t) for every destination j and slot t.
func (e *emitter) edgesFrom(expr *milp.LinearExpr, i, d int, coeff float64) {
	f := e.f
	for j := 0; j < f.n; j++ {
		for t := 0; t < f.slots; t++ {
			expr.AddTerm(f.EdgeVar(i, j, d, t), coeff)
		}
	}
}

// edgesInto adds Edge(i,j,d,t) for every origin i and slot t.
func (e *emitter) edgesInto(expr *milp.LinearExpr, j, d int, coeff float64) {
	f := e.f
	for i := 0; i < f.n; i++ {
		for t := 0; t < f.slots; t++ {
			expr.AddTerm(f.EdgeVar(i, j, d, t), coeff)
		}
	}
}

func (e *emitter) noSelfLoop() {
	f := e.f
	for i := 0; i < f.n; i++ {
		for d := 0; d < f.days; d++ {
			for t := 0; t < f.slots; t++ {
				e.equal(NoSelfLoop, milp.NewLinearExpr().Add(f.EdgeVar(i, i, d, t)), 0, i, d, t)
			}
		}
	}
}

func (e *emitter) startAtHome() {
	h := e.f.dom.Home()
	for d := 0; d < e.f.days; d++ {
		expr := milp.NewLinearExpr()
		e.edgesFrom(expr, h, d, 1)
		e.equal(StartAtHome, expr, 1, d)
	}
}

func (e *emitter) endAtHome() {
	h := e.f.dom.Home()
	for d := 0; d < e.f.days; d++ {
		expr := milp.NewLinearExpr()
		e.edgesInto(expr, h, d, 1)
		e.equal(EndAtHome, expr, 1, d)
	}
}

func (e *emitter) enterOnce() {
	f := e.f
	for j := 0; j < f.n; j++ {
		if j == f.dom.Home() {
			continue
		}
		expr := milp.NewLinearExpr()
		for d := 0; d < f.days; d++ {
			e.edgesInto(expr, j, d, 1)
		}
		e.lessOrEqual(EnterOnce, expr, 1, j)
	}
}

func (e *emitter) exitOnce() {
	f := e.f
	for i := 0; i < f.n; i++ {
		if i == f.dom.Home() {
			continue
		}
		expr := milp.NewLinearExpr()
		for d := 0; d < f.days; d++ {
			e.edgesFrom(expr, i, d, 1)
		}
		e.lessOrEqual(ExitOnce, expr, 1, i)
	}
}

// flowBalance leaves every non-home activity entered on a day on the same day.
func (e *emitter) flowBalance() {
	f := e.f
	for j := 0; j < f.n; j++ {
		if j == f.dom.Home() {
			continue
		}
		for d := 0; d < f.days; d++ {
			expr := milp.NewLinearExpr()
			e.edgesInto(expr, j, d, 1)
			e.edgesFrom(expr, j, d, -1)
			e.equal(FlowBalance, expr, 0, j, d)
		}
	}
}

// continueAfter requires the traveller to leave a non-home activity strictly after the
// visit that follows the trip into it ends.
func (e *emitter) continueAfter() {
	f := e.f
	for i := 0; i < f.n; i++ {
		for j := 0; j < f.n; j++ {
			if i == j || j == f.dom.Home() {
				continue
			}
			earliest := max(f.dom.Span(i, j), 1)
			for d := 0; d < f.days; d++ {
				for t := 0; t < f.slots; t++ {
					expr := milp.NewLinearExpr().Add(f.EdgeVar(i, j, d, t))
					for k := 0; k < f.n; k++ {
						if k == j {
							continue
						}
						for next := t + earliest; next < f.slots; next++ {
							expr.AddTerm(f.EdgeVar(j, k, d, next), -1)
						}
					}
					e.lessOrEqual(ContinueAfter, expr, 0, i, j, d, t)
				}
			}
		}
	}
}

// occupancy marks the span slots following a departure as busy. Slots past the horizon
// are missing from the sum, so an edge that does not fit before the end of the day is
// infeasible.
func (e *emitter) occupancy() {
	f := e.f
	for i := 0; i < f.n; i++ {
		for j := 0; j < f.n; j++ {
			span := f.dom.Span(i, j)
			if i == j || span == 0 {
				continue
			}
			for d := 0; d < f.days; d++ {
				for t := 0; t < f.slots; t++ {
					expr := milp.NewLinearExpr().AddTerm(f.EdgeVar(i, j, d, t), -float64(span))
					for s := t; s <= min(t+span-1, f.slots-1); s++ {
						expr.Add(f.BusyVar(i, j, d, s))
					}
					e.greaterOrEqual(Occupancy, expr, 0, i, j, d, t)
				}
			}
		}
	}
}

// busyRequiresEdge only lets a slot be busy for (i,j) when an edge from i to j departed
// within the span slots before it.
func (e *emitter) busyRequiresEdge() {
	f := e.f
	for i := 0; i < f.n; i++ {
		for j := 0; j < f.n; j++ {
			span := f.dom.Span(i, j)
			for d := 0; d < f.days; d++ {
				for s := 0; s < f.slots; s++ {
					expr := milp.NewLinearExpr().Add(f.BusyVar(i, j, d, s))
					for t := max(s-span+1, 0); t <= s; t++ {
						expr.AddTerm(f.EdgeVar(i, j, d, t), -1)
					}
					e.lessOrEqual(BusyRequiresEdge, expr, 0, i, j, d, s)
				}
			}
		}
	}
}

func (e *emitter) singleThread() {
	f := e.f
	for d := 0; d < f.days; d++ {
		for s := 0; s < f.slots; s++ {
			busy := make([]milp.LinearArgument, 0, f.n*f.n)
			for i := 0; i < f.n; i++ {
				for j := 0; j < f.n; j++ {
					busy = append(busy, f.BusyVar(i, j, d, s))
				}
			}
			e.lessOrEqual(SingleThread, milp.NewLinearExpr().AddSum(busy...), 1, d, s)
		}
	}
}

func (e *emitter) dayWindow() {
	f := e.f
	for d := 0; d < f.days; d++ {
		w := f.dom.DayWindow(d)
		for s := 0; s < f.slots; s++ {
			if w.Contains(s) {
				continue
			}
			expr := milp.NewLinearExpr()
			for i := 0; i < f.n; i++ {
				for j := 0; j < f.n; j++ {
					expr.AddVars(f.EdgeVar(i, j, d, s), f.BusyVar(i, j, d, s))
				}
			}
			e.lessOrEqual(DayWindow, expr, 0, d, s)
		}
	}
}

// visitSlots returns the slots spent at `j` after leaving `i` at slot `t`: the duration of
// `j` starting at the arrival slot, or the arrival slot alone for activities without
// duration. Both ends are clamped to the last slot of the day, so an arrival at slot T,
// when the last trip of the day ends with the horizon, is checked against slot T-1.
func (f *Formulation) visitSlots(i, j, t int) SlotRange {
	arrival := t + f.dom.Cost(i, j)
	last := arrival + f.dom.Duration(j) - 1
	if f.dom.Duration(j) == 0 {
		last = arrival
	}
	return SlotRange{min(arrival, f.slots-1), min(last, f.slots-1)}
}

// visitWindow returns the slots at which a visit of `j` on day `d` may take place. The
// slots of a visit with a duration are busy, so they must also lie in the day window; a
// visit without duration only needs `j` open on arrival.
func (f *Formulation) visitWindow(j, d int) Window {
	if f.dom.Duration(j) > 0 {
		return f.dom.VisitWindow(j, d)
	}
	return f.dom.OpenWindow(j, d)
}

// openOnVisit forbids edges whose visit overlaps a closed slot of the destination.
func (e *emitter) openOnVisit() {
	f := e.f
	for i := 0; i < f.n; i++ {
		for j := 0; j < f.n; j++ {
			if i == j {
				continue
			}
			for d := 0; d < f.days; d++ {
				open := f.visitWindow(j, d)
				for t := 0; t < f.slots; t++ {
					if open.ContainsRange(f.visitSlots(i, j, t)) {
						continue
					}
					e.lessOrEqual(OpenOnVisit, milp.NewLinearExpr().Add(f.EdgeVar(i, j, d, t)), 0, i, j, d, t)
				}
			}
		}
	}
}

func (e *emitter) timeBudget() {
	f := e.f
	for d := 0; d < f.days; d++ {
		expr := milp.NewLinearExpr()
		for i := 0; i < f.n; i++ {
			for j := 0; j < f.n; j++ {
				if i == j {
					continue
				}
				span := float64(f.dom.Span(i, j))
				for t := 0; t < f.slots; t++ {
					expr.AddTerm(f.EdgeVar(i, j, d, t), span)
				}
			}
		}
		e.lessOrEqual(TimeBudget, expr, float64(f.dom.Budget(d)), d)
	}
}
