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
	"cmp"
	"fmt"
	"slices"
	"sort"
	"strings"
)

// SlotRange stores the closed slot range `[Start,End]`. If `Start` is greater than `End`,
// the range is considered empty.
type SlotRange struct {
	Start int
	End   int
}

// Empty returns whether the range holds no slot.
func (r SlotRange) Empty() bool {
	return r.Start > r.End
}

// Len returns the number of slots in the range.
func (r SlotRange) Len() int {
	if r.Empty() {
		return 0
	}
	return r.End - r.Start + 1
}

// Contains returns whether slot `t` is in the range.
func (r SlotRange) Contains(t int) bool {
	return r.Start <= t && t <= r.End
}

func (r SlotRange) String() string {
	return fmt.Sprintf("[%d,%d]", r.Start, r.End)
}

// Window is a set of slots kept as sorted, disjoint and non-adjacent ranges. It holds the
// opening hours of an activity on one day.
type Window struct {
	ranges []SlotRange
}

// NewEmptyWindow creates a window without slots.
func NewEmptyWindow() Window {
	return Window{}
}

// NewWindow creates a window of the single range `[start,end]`. If `start > end`, an empty
// window is returned.
func NewWindow(start, end int) Window {
	if start > end {
		return NewEmptyWindow()
	}
	return Window{[]SlotRange{{start, end}}}
}

// WindowFromRanges creates a window from the union of `ranges`, which may be unordered,
// overlap or touch. Empty ranges are ignored.
func WindowFromRanges(ranges []SlotRange) Window {
	sorted := slices.DeleteFunc(slices.Clone(ranges), SlotRange.Empty)
	slices.SortFunc(sorted, func(a, b SlotRange) int { return cmp.Compare(a.Start, b.Start) })
	var w Window
	for _, r := range sorted {
		if n := len(w.ranges); n > 0 && r.Start <= w.ranges[n-1].End+1 {
			w.ranges[n-1].End = max(w.ranges[n-1].End, r.End)
			continue
		}
		w.ranges = append(w.ranges, r)
	}
	return w
}

// WindowFromMask creates a window holding the slots `t` for which `mask[t]` is true.
func WindowFromMask(mask []bool) Window {
	var w Window
	start := -1
	for t, open := range mask {
		switch {
		case open && start < 0:
			start = t
		case !open && start >= 0:
			w.ranges = append(w.ranges, SlotRange{start, t - 1})
			start = -1
		}
	}
	if start >= 0 {
		w.ranges = append(w.ranges, SlotRange{start, len(mask) - 1})
	}
	return w
}

// Ranges returns a copy of the ranges of the window.
func (w Window) Ranges() []SlotRange {
	out := make([]SlotRange, len(w.ranges))
	copy(out, w.ranges)
	return out
}

// IsEmpty returns whether the window holds no slot.
func (w Window) IsEmpty() bool {
	return len(w.ranges) == 0
}

// Contains returns whether slot `t` is in the window.
func (w Window) Contains(t int) bool {
	i := sort.Search(len(w.ranges), func(i int) bool { return w.ranges[i].End >= t })
	return i < len(w.ranges) && w.ranges[i].Start <= t
}

// ContainsRange returns whether every slot of `r` is in the window. An empty range is
// always contained.
func (w Window) ContainsRange(r SlotRange) bool {
	if r.Empty() {
		return true
	}
	i := sort.Search(len(w.ranges), func(i int) bool { return w.ranges[i].End >= r.Start })
	return i < len(w.ranges) && w.ranges[i].Start <= r.Start && r.End <= w.ranges[i].End
}

// Intersect returns the slots present in both windows.
func (w Window) Intersect(o Window) Window {
	var out Window
	i, j := 0, 0
	for i < len(w.ranges) && j < len(o.ranges) {
		a, b := w.ranges[i], o.ranges[j]
		if r := (SlotRange{max(a.Start, b.Start), min(a.End, b.End)}); !r.Empty() {
			out.ranges = append(out.ranges, r)
		}
		if a.End < b.End {
			i++
		} else {
			j++
		}
	}
	return out
}

func (w Window) String() string {
	if len(w.ranges) == 0 {
		return "[]"
	}
	var sb strings.Builder
	for _, r := range w.ranges {
		sb.WriteString(r.String())
	}
	return sb.String()
}
