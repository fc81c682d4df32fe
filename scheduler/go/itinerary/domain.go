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

// Package itinerary schedules multi-day trips as a time-indexed mixed-integer program.
//
// A `Domain` holds the validated trip data: activities with durations and weights, a
// travel cost matrix, one time budget and one day window per day, and the opening hours
// of every activity. `Build` turns a domain into a `Formulation` over the binary Edge and
// Busy variables, `Decode` turns a solver assignment back into an `Itinerary`, and
// `Solve` chains the three steps.
package itinerary

import (
	"time"

	"github.com/samber/lo"
)

const (
	// DefaultSlots is the number of slots of a day when Params.Slots is zero.
	DefaultSlots = 96
	// DefaultSlotWidth is the width of a slot when Params.SlotWidth is zero.
	DefaultSlotWidth = 15 * time.Minute
)

// Params is the raw input of a trip. All durations, costs, budgets and windows are
// expressed in slots.
type Params struct {
	// Slots is the number of slots T of every day. Zero means DefaultSlots.
	Slots int
	// SlotWidth is the wall-clock length of one slot. Zero means DefaultSlotWidth.
	SlotWidth time.Duration
	// Home is the activity every day starts and ends at.
	Home int
	// Durations holds the time spent at each activity. Its length defines the number of
	// activities.
	Durations []int
	// Weights holds the score collected by visiting each activity.
	Weights []int
	// Costs holds the travel cost from activity i to activity j.
	Costs [][]int
	// Budgets holds the time budget of each day. Its length defines the number of days.
	Budgets []int
	// DayWindows holds the slots usable on each day. Nil means the full horizon every day.
	DayWindows []SlotRange
	// Open tells whether activity i is open on day d at slot t. A nil table, or a nil
	// entry for an activity or a day, means always open.
	Open [][][]bool
	// OpenHours holds the opening hours of activity i on day d as slot ranges. It is an
	// alternative to Open and follows the same nil conventions. At most one of the two can
	// be set.
	OpenHours [][][]SlotRange
}

// Domain is the validated, immutable trip data. Use NewDomain to create one.
type Domain struct {
	slots      int
	slotWidth  time.Duration
	home       int
	durations  []int
	weights    []int
	costs      [][]int
	budgets    []int
	dayWindows []SlotRange
	open       [][]Window
}

// NewDomain validates `p` and returns the corresponding Domain. The input slices are
// copied. The first inconsistency found is returned as an *InvalidDomainError.
func NewDomain(p Params) (*Domain, error) {
	d := &Domain{
		slots:     p.Slots,
		slotWidth: p.SlotWidth,
		home:      p.Home,
	}
	if d.slots == 0 {
		d.slots = DefaultSlots
	}
	if d.slots < 0 {
		return nil, invalidf("Slots", nil, "must be positive, got %d", p.Slots)
	}
	if d.slotWidth == 0 {
		d.slotWidth = DefaultSlotWidth
	}
	if d.slotWidth < 0 {
		return nil, invalidf("SlotWidth", nil, "must be positive, got %v", p.SlotWidth)
	}

	n := len(p.Durations)
	if n < 2 {
		return nil, invalidf("Durations", nil, "need home and at least one other activity, got %d activities", n)
	}
	if p.Home < 0 || p.Home >= n {
		return nil, invalidf("Home", nil, "activity %d out of range [0,%d)", p.Home, n)
	}
	if err := checkNonNegative("Durations", p.Durations); err != nil {
		return nil, err
	}
	if len(p.Weights) != n {
		return nil, invalidf("Weights", nil, "got %d weights for %d activities", len(p.Weights), n)
	}
	if err := checkNonNegative("Weights", p.Weights); err != nil {
		return nil, err
	}

	if len(p.Costs) != n {
		return nil, invalidf("Costs", nil, "got %d rows for %d activities", len(p.Costs), n)
	}
	d.costs = make([][]int, n)
	for i, row := range p.Costs {
		if len(row) != n {
			return nil, invalidf("Costs", []int{i}, "got %d columns for %d activities", len(row), n)
		}
		for j, c := range row {
			if c < 0 {
				return nil, invalidf("Costs", []int{i, j}, "negative cost %d", c)
			}
		}
		d.costs[i] = append([]int(nil), row...)
	}

	days := len(p.Budgets)
	if days == 0 {
		return nil, invalidf("Budgets", nil, "need at least one day")
	}
	if err := checkNonNegative("Budgets", p.Budgets); err != nil {
		return nil, err
	}

	if p.DayWindows == nil {
		d.dayWindows = lo.Times(days, func(int) SlotRange { return SlotRange{0, d.slots - 1} })
	} else {
		if len(p.DayWindows) != days {
			return nil, invalidf("DayWindows", nil, "got %d windows for %d days", len(p.DayWindows), days)
		}
		for i, w := range p.DayWindows {
			if w.Empty() {
				return nil, invalidf("DayWindows", []int{i}, "empty window %v", w)
			}
			if w.Start < 0 || w.End >= d.slots {
				return nil, invalidf("DayWindows", []int{i}, "window %v outside [0,%d]", w, d.slots-1)
			}
		}
		d.dayWindows = append([]SlotRange(nil), p.DayWindows...)
	}

	open, err := openWindows(p, n, days, d.slots)
	if err != nil {
		return nil, err
	}
	d.open = open

	d.durations = append([]int(nil), p.Durations...)
	d.weights = append([]int(nil), p.Weights...)
	d.budgets = append([]int(nil), p.Budgets...)
	return d, nil
}

// openWindows builds the opening window of every activity and day from either Open or
// OpenHours.
func openWindows(p Params, n, days, slots int) ([][]Window, error) {
	if p.Open != nil && p.OpenHours != nil {
		return nil, invalidf("OpenHours", nil, "set at most one of Open and OpenHours")
	}
	field, entries := "Open", len(p.Open)
	if p.OpenHours != nil {
		field, entries = "OpenHours", len(p.OpenHours)
	}
	if entries != 0 && entries != n {
		return nil, invalidf(field, nil, "got %d activities, want %d", entries, n)
	}

	always := NewWindow(0, slots-1)
	open := make([][]Window, n)
	for i := range open {
		open[i] = lo.Times(days, func(int) Window { return always })
		var byDay int
		switch {
		case len(p.Open) > 0 && p.Open[i] != nil:
			byDay = len(p.Open[i])
		case len(p.OpenHours) > 0 && p.OpenHours[i] != nil:
			byDay = len(p.OpenHours[i])
		default:
			continue
		}
		if byDay != days {
			return nil, invalidf(field, []int{i}, "got %d days, want %d", byDay, days)
		}
		for day := range open[i] {
			if len(p.Open) > 0 {
				mask := p.Open[i][day]
				if mask == nil {
					continue
				}
				if len(mask) != slots {
					return nil, invalidf(field, []int{i, day}, "got %d slots, want %d", len(mask), slots)
				}
				open[i][day] = WindowFromMask(mask)
				continue
			}
			hours := p.OpenHours[i][day]
			if hours == nil {
				continue
			}
			for k, r := range hours {
				if r.Empty() || r.Start < 0 || r.End >= slots {
					return nil, invalidf(field, []int{i, day, k}, "range %v outside [0,%d]", r, slots-1)
				}
			}
			open[i][day] = WindowFromRanges(hours)
		}
	}
	return open, nil
}

func checkNonNegative(field string, values []int) error {
	if v, i, found := lo.FindIndexOf(values, func(v int) bool { return v < 0 }); found {
		return invalidf(field, []int{i}, "negative value %d", v)
	}
	return nil
}

// NumActivities returns the number of activities, home included.
func (d *Domain) NumActivities() int { return len(d.durations) }

// NumDays returns the number of days.
func (d *Domain) NumDays() int { return len(d.budgets) }

// NumSlots returns the number of slots of every day.
func (d *Domain) NumSlots() int { return d.slots }

// SlotWidth returns the wall-clock length of one slot.
func (d *Domain) SlotWidth() time.Duration { return d.slotWidth }

// Home returns the activity every day starts and ends at.
func (d *Domain) Home() int { return d.home }

// Duration returns the time spent at activity `i`.
func (d *Domain) Duration(i int) int { return d.durations[i] }

// Weight returns the score of activity `i`.
func (d *Domain) Weight(i int) int { return d.weights[i] }

// Cost returns the travel cost from activity `i` to activity `j`.
func (d *Domain) Cost(i, j int) int { return d.costs[i][j] }

// Budget returns the time budget of day `day`.
func (d *Domain) Budget(day int) int { return d.budgets[day] }

// DayWindow returns the slots usable on day `day`.
func (d *Domain) DayWindow(day int) SlotRange { return d.dayWindows[day] }

// OpenWindow returns the slots at which activity `i` is open on day `day`.
func (d *Domain) OpenWindow(i, day int) Window { return d.open[i][day] }

// VisitWindow returns the slots at which activity `i` can be occupied on day `day`: its
// opening hours restricted to the day window.
func (d *Domain) VisitWindow(i, day int) Window {
	w := d.dayWindows[day]
	return d.open[i][day].Intersect(NewWindow(w.Start, w.End))
}

// IsOpen returns whether activity `i` is open on day `day` at slot `t`.
func (d *Domain) IsOpen(i, day, t int) bool { return d.open[i][day].Contains(t) }

// Span returns the number of slots occupied by the edge from `i` to `j`: the travel cost
// followed by the time spent at `j`.
func (d *Domain) Span(i, j int) int {
	return d.costs[i][j] + d.durations[j]
}

// ClockOf returns the offset from midnight of the start of slot `t`.
func (d *Domain) ClockOf(t int) time.Duration {
	return time.Duration(t) * d.slotWidth
}

// OpenBetween returns opening hours, for Params.OpenHours, where every activity is open
// from slot `start` to slot `end` included on every day.
func OpenBetween(activities, days, start, end int) [][][]SlotRange {
	return lo.Times(activities, func(int) [][]SlotRange {
		return lo.Times(days, func(int) []SlotRange { return []SlotRange{{start, end}} })
	})
}
