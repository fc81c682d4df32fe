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

import "github.com/spdasilv/Route-Scheduler-LP/scheduler/go/milp"

// objective collects the weight of every non-home activity entered. Home is never
// scored, and enter_once scores each other activity at most once.
func (f *Formulation) objective() *milp.LinearExpr {
	expr := milp.NewLinearExpr()
	for j := 0; j < f.n; j++ {
		w := f.dom.Weight(j)
		if j == f.dom.Home() || w == 0 {
			continue
		}
		for i := 0; i < f.n; i++ {
			if i == j {
				continue
			}
			for d := 0; d < f.days; d++ {
				for t := 0; t < f.slots; t++ {
					expr.AddTerm(f.EdgeVar(i, j, d, t), float64(w))
				}
			}
		}
	}
	return expr
}
