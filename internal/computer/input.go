// File: internal/computer/input.go
package computer

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

// coordinateLength is the number of components in a coordinate pair.
const coordinateLength = 2

// inputAPI keeps numbers as their literal text so that 100.0 and 1e2 can be
// told apart from 100.
var inputAPI = jsoniter.Config{UseNumber: true}.Froze()

// actionInput is the raw input the model sends to the computer tool. Text and
// Coordinate stay nil when the model omits them or sends null.
type actionInput struct {
	Action     Action  `json:"action"`
	Text       *string `json:"text"`
	Coordinate any     `json:"coordinate"`
}

// decodeInput parses the raw tool input. The returned message is empty on
// success and otherwise is reported to the model.
func decodeInput(raw json.RawMessage) (actionInput, string) {
	var in actionInput
	if len(raw) == 0 {
		return in, ""
	}
	if err := inputAPI.Unmarshal(raw, &in); err != nil {
		return actionInput{}, fmt.Sprintf("Invalid tool input: %v", err)
	}
	return in, ""
}

// parseCoordinate checks the coordinate's shape and returns it as integers.
// The returned message is empty on success.
func parseCoordinate(v any) (x, y int, msg string) {
	list, ok := v.([]any)
	if !ok || len(list) != coordinateLength {
		return 0, 0, "Coordinate must be a list of length 2."
	}
	values := [coordinateLength]int{}
	for i, item := range list {
		n, ok := coordinateValue(item)
		if !ok {
			return 0, 0, "Coordinate must be a list of non-negative integers."
		}
		values[i] = n
	}
	return values[0], values[1], ""
}

// coordinateValue accepts only integer literals such as 100. Fractions,
// exponents and negatives are rejected even when their value is integral.
func coordinateValue(item any) (int, bool) {
	var literal string
	switch n := item.(type) {
	case json.Number:
		literal = string(n)
	case jsoniter.Number:
		literal = string(n)
	default:
		return 0, false
	}
	if literal == "" || strings.ContainsAny(literal, ".eE-+") {
		return 0, false
	}
	v, err := strconv.ParseInt(literal, 10, 64)
	if err != nil || v > math.MaxInt32 {
		return 0, false
	}
	return int(v), true
}
