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

// The solve_with_time_limit_sample command is an example of setting a time limit on a
// binary program solved with the pure Go backend.
package main

import (
	"context"
	"fmt"
	"time"

	log "github.com/golang/glog"

	"github.com/spdasilv/Route-Scheduler-LP/scheduler/go/milp"
	"github.com/spdasilv/Route-Scheduler-LP/scheduler/go/milp/pbsolver"
)

func solveWithTimeLimitSample() error {
	b := milp.NewBuilder("knapsack")

	weights := []float64{3, 4, 5, 2}
	values := []float64{4, 5, 6, 3}
	items := make([]milp.LinearArgument, len(weights))
	for i := range items {
		items[i] = b.NewBoolVar(fmt.Sprintf("take_%d", i))
	}

	b.AddLessOrEqual("capacity", milp.NewLinearExpr().AddWeightedSum(items, weights), 9)
	b.Maximize(milp.NewLinearExpr().AddWeightedSum(items, values))

	m, err := b.Model()
	if err != nil {
		return fmt.Errorf("failed to instantiate the model: %w", err)
	}

	lp, err := milp.ExportModelAsLpFormat(m)
	if err != nil {
		return fmt.Errorf("failed to export the model: %w", err)
	}
	fmt.Print(lp)

	// Sets a time limit of 10 seconds.
	params := milp.Parameters{TimeLimit: 10 * time.Second}

	sol, err := pbsolver.New().Solve(context.Background(), m, params)
	if err != nil {
		return fmt.Errorf("failed to solve the model: %w", err)
	}

	fmt.Printf("Status: %v\n", sol.Status)
	if sol.HasValues() {
		fmt.Printf(" value = %v\n", sol.ObjectiveValue)
		for i, it := range items {
			fmt.Printf(" take_%d = %v\n", i, sol.BooleanValue(it.(milp.VarIndex)))
		}
	}

	return nil
}

func main() {
	if err := solveWithTimeLimitSample(); err != nil {
		log.Exitf("solveWithTimeLimitSample returned with error: %v", err)
	}
}
