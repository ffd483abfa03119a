// Package features defines the soil and weather feature contract shared by
// the trainer and the predictor service.
//
// The classifier is fit on a fixed column order. Callers supply values by
// name, so every inference path goes through Assemble, which looks values up
// by name and lays them out in the order the model was trained with.
package features

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var canonical = [...]string{"N", "P", "K", "pH", "Temp", "Humidity", "Rainfall"}

// Names is the canonical feature order used for training and inference.
var Names = canonical[:]

// Count is the number of features a model consumes.
const Count = len(canonical)

// Reading is a typed set of the seven features. JSON tags match Names.
type Reading struct {
	N        float64 `json:"N"`
	P        float64 `json:"P"`
	K        float64 `json:"K"`
	PH       float64 `json:"pH"`
	Temp     float64 `json:"Temp"`
	Humidity float64 `json:"Humidity"`
	Rainfall float64 `json:"Rainfall"`
}

// Payload returns the reading as a name-keyed object, the shape the
// prediction endpoint accepts.
func (r Reading) Payload() map[string]any {
	values := r.Vector()
	payload := make(map[string]any, Count)
	for i, name := range Names {
		payload[name] = values[i]
	}
	return payload
}

// Vector returns the reading in Names order.
func (r Reading) Vector() []float64 {
	return []float64{r.N, r.P, r.K, r.PH, r.Temp, r.Humidity, r.Rainfall}
}

// Missing returns the names that are absent from payload, in names order.
func Missing(payload map[string]any, names []string) []string {
	var missing []string
	for _, name := range names {
		if _, ok := payload[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// Assemble builds a single row from payload in the given name order.
// Every name must be present; use Missing first to report absent keys.
func Assemble(names []string, payload map[string]any) ([]float64, error) {
	row := make([]float64, len(names))
	for i, name := range names {
		raw, ok := payload[name]
		if !ok {
			return nil, fmt.Errorf("feature %s: missing", name)
		}
		v, err := ToFloat(raw)
		if err != nil {
			return nil, fmt.Errorf("feature %s: %w", name, err)
		}
		row[i] = v
	}
	return row, nil
}

// ToFloat converts a decoded JSON value to a finite float64. Numbers,
// numeric strings and booleans are accepted.
func ToFloat(raw any) (float64, error) {
	var (
		v   float64
		err error
	)
	switch x := raw.(type) {
	case json.Number:
		v, err = x.Float64()
	case float64:
		v = x
	case float32:
		v = float64(x)
	case int:
		v = float64(x)
	case int64:
		v = float64(x)
	case bool:
		if x {
			v = 1
		}
	case string:
		v, err = strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, fmt.Errorf("could not convert string to float: %q", x)
		}
	case nil:
		return 0, fmt.Errorf("value is null")
	default:
		return 0, fmt.Errorf("unsupported value type %T", raw)
	}
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("value must be finite, got %v", v)
	}
	return v, nil
}

// Equal reports whether two feature-name lists match exactly, order included.
func Equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
