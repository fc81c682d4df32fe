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

package milp

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"google.golang.org/protobuf/encoding/protowire"
)

// ErrMalformedResponse is returned when a serialized solver response cannot be decoded.
var ErrMalformedResponse = errors.New("malformed solver response")

// termsPerLine bounds the length of the lines written in LP format.
const termsPerLine = 8

// ExportModelAsLpFormat returns the model in CPLEX LP format. Names are rewritten to the
// characters accepted by LP readers; unnamed entities get positional names (`x<i>` for
// variables, `c<i>` for constraints). Ranged constraints are written as two rows with the
// suffixes `_lb` and `_ub`.
func ExportModelAsLpFormat(m *Model) (string, error) {
	if m == nil {
		return "", errors.New("nil model")
	}
	varNames := lpNames(len(m.variables), "x", func(i int) string { return m.variables[i].Name })
	ctNames := lpNames(len(m.constraints), "c", func(i int) string { return m.constraints[i].Name })

	var sb strings.Builder
	if m.name != "" {
		fmt.Fprintf(&sb, "\\ %s\n", m.name)
	}
	if m.objective.Maximize {
		sb.WriteString("Maximize\n")
	} else {
		sb.WriteString("Minimize\n")
	}
	sb.WriteString(" obj:")
	writeLpTerms(&sb, m.objective.Terms, varNames)
	if m.objective.Offset != 0 {
		fmt.Fprintf(&sb, " %s %s", lpSign(m.objective.Offset), lpNumber(math.Abs(m.objective.Offset)))
	}
	sb.WriteString("\n")

	sb.WriteString("Subject To\n")
	for i, c := range m.constraints {
		lbFinite := !math.IsInf(c.LowerBound, -1)
		ubFinite := !math.IsInf(c.UpperBound, 1)
		switch {
		case !lbFinite && !ubFinite:
			continue
		case lbFinite && ubFinite && c.LowerBound == c.UpperBound:
			writeLpRow(&sb, ctNames[i], c.Terms, varNames, "=", c.LowerBound)
		case lbFinite && ubFinite:
			writeLpRow(&sb, ctNames[i]+"_lb", c.Terms, varNames, ">=", c.LowerBound)
			writeLpRow(&sb, ctNames[i]+"_ub", c.Terms, varNames, "<=", c.UpperBound)
		case lbFinite:
			writeLpRow(&sb, ctNames[i], c.Terms, varNames, ">=", c.LowerBound)
		default:
			writeLpRow(&sb, ctNames[i], c.Terms, varNames, "<=", c.UpperBound)
		}
	}

	var binaries, generals []string
	sb.WriteString("Bounds\n")
	for i, v := range m.variables {
		name := varNames[i]
		if v.Integer && v.LowerBound == 0 && v.UpperBound == 1 {
			binaries = append(binaries, name)
			continue
		}
		if v.Integer {
			generals = append(generals, name)
		}
		switch {
		case v.LowerBound == v.UpperBound:
			fmt.Fprintf(&sb, " %s = %s\n", name, lpNumber(v.LowerBound))
		case math.IsInf(v.LowerBound, -1) && math.IsInf(v.UpperBound, 1):
			fmt.Fprintf(&sb, " %s free\n", name)
		default:
			fmt.Fprintf(&sb, " %s <= %s <= %s\n", lpNumber(v.LowerBound), name, lpNumber(v.UpperBound))
		}
	}
	writeLpSection(&sb, "Binaries", binaries)
	writeLpSection(&sb, "Generals", generals)
	sb.WriteString("End\n")
	return sb.String(), nil
}

func writeLpRow(sb *strings.Builder, name string, terms []Term, varNames []string, sense string, rhs float64) {
	fmt.Fprintf(sb, " %s:", name)
	if len(terms) == 0 && len(varNames) > 0 {
		terms = []Term{{Var: 0, Coeff: 0}}
	}
	writeLpTerms(sb, terms, varNames)
	fmt.Fprintf(sb, " %s %s\n", sense, lpNumber(rhs))
}

func writeLpTerms(sb *strings.Builder, terms []Term, varNames []string) {
	for k, t := range terms {
		if k > 0 && k%termsPerLine == 0 {
			sb.WriteString("\n  ")
		}
		fmt.Fprintf(sb, " %s %s %s", lpSign(t.Coeff), lpNumber(math.Abs(t.Coeff)), varNames[t.Var])
	}
}

func writeLpSection(sb *strings.Builder, title string, names []string) {
	if len(names) == 0 {
		return
	}
	sb.WriteString(title + "\n")
	for _, n := range names {
		sb.WriteString(" " + n + "\n")
	}
}

func lpSign(c float64) string {
	if c < 0 || math.Signbit(c) {
		return "-"
	}
	return "+"
}

func lpNumber(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "+inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// lpNames returns unique LP-safe names for `n` entities.
func lpNames(n int, prefix string, name func(int) string) []string {
	names := make([]string, n)
	used := make(map[string]bool, n)
	for i := range names {
		s := sanitizeLpName(name(i))
		if s == "" || used[s] {
			s = prefix + strconv.Itoa(i)
			for used[s] {
				s = "_" + s
			}
		}
		used[s] = true
		names[i] = s
	}
	return names
}

// sanitizeLpName keeps letters, digits and underscores. Names may not start with a digit.
func sanitizeLpName(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}
	out := strings.TrimRight(sb.String(), "_")
	if out != "" && out[0] >= '0' && out[0] <= '9' {
		out = "_" + out
	}
	return out
}

// Field numbers of ortools/linear_solver/linear_solver.proto.
const (
	mpModelMaximize        protowire.Number = 1
	mpModelObjectiveOffset protowire.Number = 2
	mpModelVariable        protowire.Number = 3
	mpModelConstraint      protowire.Number = 4
	mpModelName            protowire.Number = 5

	mpVarLowerBound    protowire.Number = 1
	mpVarUpperBound    protowire.Number = 2
	mpVarObjectiveCoef protowire.Number = 3
	mpVarIsInteger     protowire.Number = 4
	mpVarName          protowire.Number = 5

	mpCtLowerBound  protowire.Number = 2
	mpCtUpperBound  protowire.Number = 3
	mpCtName        protowire.Number = 4
	mpCtVarIndex    protowire.Number = 6
	mpCtCoefficient protowire.Number = 7

	mpRespStatus        protowire.Number = 1
	mpRespObjective     protowire.Number = 2
	mpRespVariableValue protowire.Number = 3
	mpRespStatusStr     protowire.Number = 7
)

// Values of MPSolverResponseStatus.
const (
	mpOptimal                      = 0
	mpFeasible                     = 1
	mpInfeasible                   = 2
	mpUnbounded                    = 3
	mpAbnormal                     = 4
	mpModelInvalid                 = 5
	mpNotSolved                    = 6
	mpSolverTypeUnavailable        = 7
	mpModelInvalidSolutionHint     = 84
	mpModelInvalidSolverParameters = 85
	mpModelIsValid                 = 97
	mpCancelledByUser              = 98
	mpUnknownStatus                = 99
	mpIncompatibleOptions          = 113
)

// MarshalMPModel serializes the model as an operations_research.MPModelProto, the input
// format of the OR-Tools linear solver service.
func MarshalMPModel(m *Model) ([]byte, error) {
	if m == nil {
		return nil, errors.New("nil model")
	}
	objCoeffs := make([]float64, len(m.variables))
	for _, t := range m.objective.Terms {
		objCoeffs[t.Var] += t.Coeff
	}

	var b []byte
	if m.objective.Maximize {
		b = protowire.AppendTag(b, mpModelMaximize, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeBool(true))
	}
	if m.objective.Offset != 0 {
		b = appendDouble(b, mpModelObjectiveOffset, m.objective.Offset)
	}
	for i, v := range m.variables {
		var vb []byte
		vb = appendDouble(vb, mpVarLowerBound, v.LowerBound)
		vb = appendDouble(vb, mpVarUpperBound, v.UpperBound)
		if objCoeffs[i] != 0 {
			vb = appendDouble(vb, mpVarObjectiveCoef, objCoeffs[i])
		}
		if v.Integer {
			vb = protowire.AppendTag(vb, mpVarIsInteger, protowire.VarintType)
			vb = protowire.AppendVarint(vb, protowire.EncodeBool(true))
		}
		if v.Name != "" {
			vb = protowire.AppendTag(vb, mpVarName, protowire.BytesType)
			vb = protowire.AppendString(vb, v.Name)
		}
		b = protowire.AppendTag(b, mpModelVariable, protowire.BytesType)
		b = protowire.AppendBytes(b, vb)
	}
	for _, c := range m.constraints {
		var cb []byte
		cb = appendDouble(cb, mpCtLowerBound, c.LowerBound)
		cb = appendDouble(cb, mpCtUpperBound, c.UpperBound)
		if c.Name != "" {
			cb = protowire.AppendTag(cb, mpCtName, protowire.BytesType)
			cb = protowire.AppendString(cb, c.Name)
		}
		if len(c.Terms) > 0 {
			var idx, coeffs []byte
			for _, t := range c.Terms {
				idx = protowire.AppendVarint(idx, uint64(int64(t.Var)))
				coeffs = protowire.AppendFixed64(coeffs, math.Float64bits(t.Coeff))
			}
			cb = protowire.AppendTag(cb, mpCtVarIndex, protowire.BytesType)
			cb = protowire.AppendBytes(cb, idx)
			cb = protowire.AppendTag(cb, mpCtCoefficient, protowire.BytesType)
			cb = protowire.AppendBytes(cb, coeffs)
		}
		b = protowire.AppendTag(b, mpModelConstraint, protowire.BytesType)
		b = protowire.AppendBytes(b, cb)
	}
	if m.name != "" {
		b = protowire.AppendTag(b, mpModelName, protowire.BytesType)
		b = protowire.AppendString(b, m.name)
	}
	return b, nil
}

func appendDouble(b []byte, num protowire.Number, v float64) []byte {
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, math.Float64bits(v))
}

// UnmarshalMPSolution decodes an operations_research.MPSolutionResponse produced for `m`.
// Solver failures reported by the response are returned as a *SolverError together with a
// solution holding StatusSolverError.
func UnmarshalMPSolution(data []byte, m *Model) (*Solution, error) {
	status := mpUnknownStatus
	var statusStr string
	var objective float64
	var values []float64
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, protowire.ParseError(n))
		}
		data = data[n:]
		switch {
		case num == mpRespStatus && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, fmt.Errorf("%w: status: %v", ErrMalformedResponse, protowire.ParseError(n))
			}
			status = int(int32(v))
			data = data[n:]
		case num == mpRespObjective && typ == protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(data)
			if n < 0 {
				return nil, fmt.Errorf("%w: objective_value: %v", ErrMalformedResponse, protowire.ParseError(n))
			}
			objective = math.Float64frombits(v)
			data = data[n:]
		case num == mpRespVariableValue && typ == protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(data)
			if n < 0 {
				return nil, fmt.Errorf("%w: variable_value: %v", ErrMalformedResponse, protowire.ParseError(n))
			}
			values = append(values, math.Float64frombits(v))
			data = data[n:]
		case num == mpRespVariableValue && typ == protowire.BytesType:
			packed, n := protowire.ConsumeBytes(data)
			if n < 0 || len(packed)%8 != 0 {
				return nil, fmt.Errorf("%w: packed variable_value", ErrMalformedResponse)
			}
			for len(packed) > 0 {
				v, k := protowire.ConsumeFixed64(packed)
				values = append(values, math.Float64frombits(v))
				packed = packed[k:]
			}
			data = data[n:]
		case num == mpRespStatusStr && typ == protowire.BytesType:
			s, n := protowire.ConsumeString(data)
			if n < 0 {
				return nil, fmt.Errorf("%w: status_str: %v", ErrMalformedResponse, protowire.ParseError(n))
			}
			statusStr = s
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, fmt.Errorf("%w: field %d: %v", ErrMalformedResponse, num, protowire.ParseError(n))
			}
			data = data[n:]
		}
	}

	sol := &Solution{}
	switch status {
	case mpOptimal:
		sol.Status = StatusOptimal
	case mpFeasible:
		sol.Status = StatusFeasible
	case mpInfeasible:
		sol.Status = StatusInfeasible
	case mpUnbounded:
		sol.Status = StatusUnbounded
	case mpCancelledByUser:
		sol.Status = StatusTimedOut
	case mpNotSolved, mpModelIsValid, mpUnknownStatus:
		sol.Status = StatusUnknown
	case mpAbnormal, mpModelInvalid, mpSolverTypeUnavailable, mpModelInvalidSolutionHint,
		mpModelInvalidSolverParameters, mpIncompatibleOptions:
		sol.Status = StatusSolverError
		return sol, &SolverError{Backend: "mpsolver", Err: fmt.Errorf("status %d: %s", status, statusStr)}
	default:
		return nil, fmt.Errorf("%w: unknown status %d", ErrMalformedResponse, status)
	}
	if len(values) > 0 {
		if m != nil && len(values) != m.NumVariables() {
			return nil, fmt.Errorf("%w: %d variable values for %d variables", ErrMalformedResponse, len(values), m.NumVariables())
		}
		sol.Values = values
		sol.ObjectiveValue = objective
	}
	return sol, nil
}
