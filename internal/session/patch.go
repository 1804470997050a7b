package session

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/meltforce/reptrack/internal/models"
)

// setFieldRe matches the composite form keys a session-editing surface
// submits for individual sets: sets[<id>][<field>].
var setFieldRe = regexp.MustCompile(`^sets\[(\d+)\]\[([a-z]+)\]$`)

// patchFields is the validation order within one set's group. Keeping it
// fixed makes "first validation error" deterministic regardless of how the
// client ordered its keys.
var patchFields = []string{"weight", "reps", "rpe", "rir", "notes"}

// ParseSetFields extracts the set-addressed entries from a form-style value
// bag and groups them by set ID. Keys that do not match the composite format
// are ignored; duplicate keys keep the last submitted value.
func ParseSetFields(form url.Values) map[int64]map[string]string {
	groups := make(map[int64]map[string]string)
	for key, values := range form {
		m := setFieldRe.FindStringSubmatch(key)
		if m == nil || len(values) == 0 {
			continue
		}
		setID, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			continue
		}
		group, ok := groups[setID]
		if !ok {
			group = make(map[string]string)
			groups[setID] = group
		}
		group[m[2]] = values[len(values)-1]
	}
	return groups
}

// BuildPatch validates one set's raw field values into a SetPatch.
//
// A non-empty value is parsed and range-checked; an empty (or blank) value
// clears the field to null. Field names outside the editable five are
// ignored, mirroring the tolerance for stale keys. Touching any numeric
// field marks the set completed, even when the touch only clears values.
func BuildPatch(setID int64, fields map[string]string) (models.SetPatch, error) {
	var p models.SetPatch

	for _, field := range patchFields {
		raw, ok := fields[field]
		if !ok {
			continue
		}
		value := strings.TrimSpace(raw)

		if value == "" {
			switch field {
			case "weight":
				p.Weight = models.FieldClear[float64]()
			case "reps":
				p.Reps = models.FieldClear[int]()
			case "rpe":
				p.RPE = models.FieldClear[float64]()
			case "rir":
				p.RIR = models.FieldClear[int]()
			case "notes":
				p.Notes = models.FieldClear[string]()
			}
			continue
		}

		switch field {
		case "weight":
			w, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return p, &models.ValidationError{SetID: setID, Field: field, Value: value, Reason: "not a number"}
			}
			if w < 0 {
				return p, &models.ValidationError{SetID: setID, Field: field, Value: value, Reason: "must not be negative"}
			}
			p.Weight = models.FieldValue(w)
		case "reps":
			r, err := strconv.Atoi(value)
			if err != nil {
				return p, &models.ValidationError{SetID: setID, Field: field, Value: value, Reason: "not an integer"}
			}
			if r < 0 {
				return p, &models.ValidationError{SetID: setID, Field: field, Value: value, Reason: "must not be negative"}
			}
			p.Reps = models.FieldValue(r)
		case "rpe":
			v, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return p, &models.ValidationError{SetID: setID, Field: field, Value: value, Reason: "not a number"}
			}
			if v < 1 || v > 10 {
				return p, &models.ValidationError{SetID: setID, Field: field, Value: value, Reason: "must be between 1 and 10"}
			}
			p.RPE = models.FieldValue(v)
		case "rir":
			v, err := strconv.Atoi(value)
			if err != nil {
				return p, &models.ValidationError{SetID: setID, Field: field, Value: value, Reason: "not an integer"}
			}
			if v < 0 || v > 9 {
				return p, &models.ValidationError{SetID: setID, Field: field, Value: value, Reason: "must be between 0 and 9"}
			}
			p.RIR = models.FieldValue(v)
		case "notes":
			p.Notes = models.FieldValue(raw)
		}
	}

	p.MarkCompleted = p.TouchesNumeric()
	return p, nil
}
