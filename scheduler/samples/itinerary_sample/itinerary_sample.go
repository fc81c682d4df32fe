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

// The itinerary_sample command plans a two-day trip from a hotel to four attractions
// open from 8:00 to 12:45, with a day starting at 8:00. The model can also be exported
// for an external MPSolver service and its response decoded.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	log "github.com/golang/glog"

	"github.com/spdasilv/Route-Scheduler-LP/scheduler/go/itinerary"
	"github.com/spdasilv/Route-Scheduler-LP/scheduler/go/milp"
	"github.com/spdasilv/Route-Scheduler-LP/scheduler/go/milp/pbsolver"
)

var (
	timeLimit   = flag.Duration("time_limit", time.Minute, "Wall time limit of the solve.")
	lpOutput    = flag.String("lp_output", "", "If set, the model is written to this file in LP format.")
	protoOutput = flag.String("proto_output", "", "If set, the model is written to this file as a serialized MPModelProto.")
	mpResponse  = flag.String("mp_response", "", "If set, the serialized MPSolutionResponse in this file is decoded instead of solving the model.")
)

const (
	numActivities = 5
	numDays       = 2
	dayStart      = 32
	lastOpenSlot  = 50
)

func newTrip() (*itinerary.Domain, error) {
	budgets := []int{10, 12}
	windows := make([]itinerary.SlotRange, numDays)
	for d, b := range budgets {
		windows[d] = itinerary.SlotRange{Start: dayStart, End: dayStart + b - 1}
	}
	costs := make([][]int, numActivities)
	for i := range costs {
		costs[i] = make([]int, numActivities)
		for j := range costs[i] {
			if i != j {
				costs[i][j] = 1
			}
		}
	}

	return itinerary.NewDomain(itinerary.Params{
		Home:       0,
		Durations:  []int{0, 1, 1, 1, 1},
		Weights:    []int{4, 2, 2, 5, 7},
		Costs:      costs,
		Budgets:    budgets,
		DayWindows: windows,
		OpenHours:  itinerary.OpenBetween(numActivities, numDays, dayStart, lastOpenSlot),
	})
}

func writeModel(f *itinerary.Formulation) error {
	if *lpOutput != "" {
		lp, err := milp.ExportModelAsLpFormat(f.Model())
		if err != nil {
			return fmt.Errorf("failed to export the model: %w", err)
		}
		if err := os.WriteFile(*lpOutput, []byte(lp), 0o644); err != nil {
			return err
		}
	}
	if *protoOutput != "" {
		b, err := milp.MarshalMPModel(f.Model())
		if err != nil {
			return fmt.Errorf("failed to serialize the model: %w", err)
		}
		if err := os.WriteFile(*protoOutput, b, 0o644); err != nil {
			return err
		}
	}
	return nil
}

func itinerarySample() error {
	dom, err := newTrip()
	if err != nil {
		return fmt.Errorf("invalid trip: %w", err)
	}
	for i := 1; i < dom.NumActivities(); i++ {
		fmt.Printf("Activity %d: weight %d, visit window %v\n", i, dom.Weight(i), dom.VisitWindow(i, 0).Ranges())
	}

	var res *itinerary.Result
	if *lpOutput != "" || *protoOutput != "" || *mpResponse != "" {
		f, err := itinerary.Build(dom)
		if err != nil {
			return fmt.Errorf("failed to build the model: %w", err)
		}
		if err := writeModel(f); err != nil {
			return err
		}
		if *mpResponse != "" {
			data, err := os.ReadFile(*mpResponse)
			if err != nil {
				return err
			}
			if res, err = itinerary.DecodeResponse(f, data); err != nil {
				return fmt.Errorf("failed to decode the solver response: %w", err)
			}
		}
	}
	if res == nil {
		if res, err = itinerary.Solve(context.Background(), dom, pbsolver.New(), milp.Parameters{TimeLimit: *timeLimit}); err != nil {
			return fmt.Errorf("failed to solve the trip: %w", err)
		}
	}

	fmt.Printf("Status: %v\n", res.Status)
	if res.Itinerary == nil {
		return nil
	}
	fmt.Printf("Total weight: %v\n", res.Itinerary.TotalWeight)
	for _, day := range res.Itinerary.Days {
		fmt.Printf("Day %d\n", day.Day)
		for _, s := range day.Stops {
			fmt.Printf("  activity %d  arrive %s  leave %s\n", s.Activity, clock(dom, s.ArrivalSlot), clock(dom, s.DepartureSlot))
		}
	}
	return nil
}

func clock(dom *itinerary.Domain, slot int) string {
	if slot == itinerary.NoSlot {
		return "  -  "
	}
	c := dom.ClockOf(slot)
	return fmt.Sprintf("%02d:%02d", int(c.Hours()), int(c.Minutes())%60)
}

func main() {
	flag.Parse()
	if err := itinerarySample(); err != nil {
		log.Exitf("itinerarySample returned with error: %v", err)
	}
}
