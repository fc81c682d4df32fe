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
	"strings"
)

// InvalidDomainError is returned by NewDomain when a field of Params is inconsistent.
type InvalidDomainError struct {
	// Field is the name of the offending Params field.
	Field string
	// Index locates the offending entry inside Field, outermost first. It is empty when
	// the whole field is wrong.
	Index  []int
	Reason string
}

func (e *InvalidDomainError) Error() string {
	var sb strings.Builder
	sb.WriteString("invalid domain: ")
	sb.WriteString(e.Field)
	for _, i := range e.Index {
		fmt.Fprintf(&sb, "[%d]", i)
	}
	sb.WriteString(": ")
	sb.WriteString(e.Reason)
	return sb.String()
}

func invalidf(field string, index []int, format string, a ...any) *InvalidDomainError {
	return &InvalidDomainError{Field: field, Index: index, Reason: fmt.Sprintf(format, a...)}
}

// MalformedSolutionError is returned by Decode when the chosen edges do not form one
// tour from home per day.
type MalformedSolutionError struct {
	Day      int
	Activity int
	Reason   string
}

func (e *MalformedSolutionError) Error() string {
	return fmt.Sprintf("malformed solution: day %d, activity %d: %s", e.Day, e.Activity, e.Reason)
}
