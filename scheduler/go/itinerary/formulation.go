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
	"fmt"
	"slices"
	"strconv"
	"strings"

	log "github.com/golang/glog"

	"github.com/spdasilv/Route-Scheduler-LP/scheduler/go/milp"
)

// Family names a group of constraints generated by the same rule.
type Family string

// Constraint families, in emission order.
const (
	NoSelfLoop       Family = "no_self_loop"
	StartAtHome      Family = "start_at_home"
	EndAtHome        Family = "end_at_home"
	EnterOnce        Family = "enter_once"
	ExitOnce         Family = "exit_once"
	FlowBalance      Family = "flow_balance"
	ContinueAfter    Family = "continue_after"
	Occupancy        Family = "occupancy"
	BusyRequiresEdge Family = "busy_requires_edge"
	SingleThread     Family = "single_thread"
	DayWindow        Family = "day_window"
	OpenOnVisit      Family = "open_on_visit"
	TimeBudget       Family = "time_budget"
)

// Families lists every constraint family in emission order.
var Families = []Family{
	NoSelfLoop,
	StartAtHome,
	EndAtHome,
	EnterOnce,
	ExitOnce,
	FlowBalance,
	ContinueAfter,
	Occupancy,
	BusyRequiresEdge,
	SingleThread,
	DayWindow,
	OpenOnVisit,
	TimeBudget,
}

// Formulation is the mixed-integer program of a trip. It is immutable once built.
//
// Edge(i,j,d,t) is 1 when the traveller leaves activity i for activity j on day d at slot
// t. Busy(i,j,d,s) is 1 when slot s of day d is spent travelling from i to j or visiting
// j after that trip.
type Formulation struct {
	dom      *Domain
	model    *milp.Model
	families map[Family][]milp.ConstrIndex
	n        int
	days     int
	slots    int
}

// Build generates the formulation of `dom`. It is deterministic: two calls on the same
// domain return identical models.
func Build(dom *Domain) (*Formulation, error) {
	f := &Formulation{
		dom:      dom,
		families: make(map[Family][]milp.ConstrIndex),
		n:        dom.NumActivities(),
		days:     dom.NumDays(),
		slots:    dom.NumSlots(),
	}
	b := milp.NewBuilder("itinerary")
	f.declareVars(b)

	e := &emitter{f: f, b: b}
	for _, gen := range []func(){
		e.noSelfLoop,
		e.startAtHome,
		e.endAtHome,
		e.enterOnce,
		e.exitOnce,
		e.flowBalance,
		e.continueAfter,
		e.occupancy,
		e.busyRequiresEdge,
		e.singleThread,
		e.dayWindow,
		e.openOnVisit,
		e.timeBudget,
	} {
		gen()
	}
	b.Maximize(f.objective())

	m, err := b.Model()
	if err != nil {
		return nil, fmt.Errorf("building itinerary model: %w", err)
	}
	f.model = m
	if log.V(1) {
		for j := 0; j < f.n; j++ {
			for d := 0; d < f.days; d++ {
				if j != dom.Home() && f.visitWindow(j, d).IsEmpty() {
					log.Infof("itinerary: activity %d cannot be visited on day %d", j, d)
				}
			}
		}
	}
	log.V(1).Infof("itinerary: %d activities, %d days, %d slots: %d variables, %d constraints",
		f.n, f.days, f.slots, m.NumVariables(), m.NumConstraints())
	return f, nil
}

func (f *Formulation) numEdges() int {
	return f.n * f.n * f.days * f.slots
}

func (f *Formulation) declareVars(b *milp.Builder) {
	for _, kind := range []string{"edge", "busy"} {
		for i := 0; i < f.n; i++ {
			for j := 0; j < f.n; j++ {
				for d := 0; d < f.days; d++ {
					for t := 0; t < f.slots; t++ {
						b.NewBoolVar(indexedName(kind, i, j, d, t))
					}
				}
			}
		}
	}
}

// EdgeVar returns the variable Edge(i,j,d,t).
func (f *Formulation) EdgeVar(i, j, d, t int) milp.VarIndex {
	return milp.VarIndex(((i*f.n+j)*f.days+d)*f.slots + t)
}

// BusyVar returns the variable Busy(i,j,d,t).
func (f *Formulation) BusyVar(i, j, d, t int) milp.VarIndex {
	return milp.VarIndex(f.numEdges()) + f.EdgeVar(i, j, d, t)
}

// Model returns the mixed-integer program.
func (f *Formulation) Model() *milp.Model {
	return f.model
}

// Domain returns the domain the formulation was built from.
func (f *Formulation) Domain() *Domain {
	return f.dom
}

// Constraints returns the constraints of `family` in emission order.
func (f *Formulation) Constraints(family Family) []milp.ConstrIndex {
	return slices.Clone(f.families[family])
}

// Stats returns the number of constraints of each family.
func (f *Formulation) Stats() map[Family]int {
	out := make(map[Family]int, len(f.families))
	for fam, cts := range f.families {
		out[fam] = len(cts)
	}
	return out
}

// indexedName returns names such as `edge(0,1,0,33)`.
func indexedName(kind string, idx ...int) string {
	var sb strings.Builder
	sb.WriteString(kind)
	sb.WriteByte('(')
	for k, i := range idx {
		if k > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.Itoa(i))
	}
	sb.WriteByte(')')
	return sb.String()
}
