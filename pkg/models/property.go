package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// PropertyKind identifies the scalar type carried by a PropertyValue.
type PropertyKind string

const (
	PropertyKindString    PropertyKind = "string"
	PropertyKindNumber    PropertyKind = "number"
	PropertyKindBool      PropertyKind = "bool"
	PropertyKindTimestamp PropertyKind = "timestamp"
)

// PropertyValue is a tagged scalar value stored on a graph entity. The graph
// store persists the underlying scalar; the tag survives JSON serialization so
// audit snapshots round-trip exactly.
type PropertyValue struct {
	Kind PropertyKind
	Str  string
	Num  float64
	Bool bool
	Time time.Time
}

func StringValue(s string) PropertyValue {
	return PropertyValue{Kind: PropertyKindString, Str: s}
}

func NumberValue(n float64) PropertyValue {
	return PropertyValue{Kind: PropertyKindNumber, Num: n}
}

func BoolValue(b bool) PropertyValue {
	return PropertyValue{Kind: PropertyKindBool, Bool: b}
}

func TimeValue(t time.Time) PropertyValue {
	return PropertyValue{Kind: PropertyKindTimestamp, Time: t.UTC()}
}

// IsEmpty reports whether the value should be treated as absent for merge and
// scoring purposes. Only blank strings qualify; zero numbers and false bools
// are real values.
func (v PropertyValue) IsEmpty() bool {
	switch v.Kind {
	case PropertyKindString:
		return strings.TrimSpace(v.Str) == ""
	case "":
		return true
	default:
		return false
	}
}

// Text renders the value for string comparison and merge_all concatenation.
func (v PropertyValue) Text() string {
	switch v.Kind {
	case PropertyKindString:
		return v.Str
	case PropertyKindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case PropertyKindBool:
		return strconv.FormatBool(v.Bool)
	case PropertyKindTimestamp:
		return v.Time.UTC().Format(time.RFC3339)
	default:
		return ""
	}
}

// Equal reports whether two values carry the same kind and scalar.
func (v PropertyValue) Equal(other PropertyValue) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case PropertyKindString:
		return v.Str == other.Str
	case PropertyKindNumber:
		return v.Num == other.Num
	case PropertyKindBool:
		return v.Bool == other.Bool
	case PropertyKindTimestamp:
		return v.Time.Equal(other.Time)
	default:
		return true
	}
}

// GraphValue returns the scalar to hand to the graph driver.
func (v PropertyValue) GraphValue() any {
	switch v.Kind {
	case PropertyKindString:
		return v.Str
	case PropertyKindNumber:
		return v.Num
	case PropertyKindBool:
		return v.Bool
	case PropertyKindTimestamp:
		return v.Time.UTC()
	default:
		return nil
	}
}

// PropertyFromGraphValue converts a scalar returned by the graph driver into
// a tagged PropertyValue. Unrecognized types are rendered as strings so a
// foreign property never drops out of a snapshot.
func PropertyFromGraphValue(val any) PropertyValue {
	switch t := val.(type) {
	case string:
		return StringValue(t)
	case int64:
		return NumberValue(float64(t))
	case int:
		return NumberValue(float64(t))
	case float64:
		return NumberValue(t)
	case bool:
		return BoolValue(t)
	case time.Time:
		return TimeValue(t)
	default:
		return StringValue(fmt.Sprintf("%v", t))
	}
}

type propertyValueJSON struct {
	Kind  PropertyKind `json:"kind"`
	Value any          `json:"value"`
}

// MarshalJSON encodes the value with its kind tag.
func (v PropertyValue) MarshalJSON() ([]byte, error) {
	out := propertyValueJSON{Kind: v.Kind}
	switch v.Kind {
	case PropertyKindString:
		out.Value = v.Str
	case PropertyKindNumber:
		out.Value = v.Num
	case PropertyKindBool:
		out.Value = v.Bool
	case PropertyKindTimestamp:
		out.Value = v.Time.UTC().Format(time.RFC3339Nano)
	}
	return json.Marshal(out)
}

// UnmarshalJSON restores a tagged value written by MarshalJSON.
func (v *PropertyValue) UnmarshalJSON(data []byte) error {
	var in propertyValueJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	switch in.Kind {
	case PropertyKindString:
		s, _ := in.Value.(string)
		*v = StringValue(s)
	case PropertyKindNumber:
		n, ok := in.Value.(float64)
		if !ok {
			return fmt.Errorf("property value: expected number, got %T", in.Value)
		}
		*v = NumberValue(n)
	case PropertyKindBool:
		b, ok := in.Value.(bool)
		if !ok {
			return fmt.Errorf("property value: expected bool, got %T", in.Value)
		}
		*v = BoolValue(b)
	case PropertyKindTimestamp:
		s, ok := in.Value.(string)
		if !ok {
			return fmt.Errorf("property value: expected timestamp string, got %T", in.Value)
		}
		ts, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return fmt.Errorf("property value: invalid timestamp %q: %w", s, err)
		}
		*v = TimeValue(ts)
	default:
		return fmt.Errorf("property value: unknown kind %q", in.Kind)
	}
	return nil
}

// Properties is the open string-keyed property bag carried by an entity.
type Properties map[string]PropertyValue

// Clone returns a shallow copy of the bag.
func (p Properties) Clone() Properties {
	out := make(Properties, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
