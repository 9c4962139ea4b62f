package api

import (
	"encoding/json"
	"fmt"
	"math"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dmitrijs2005/coursecache/internal/common"
)

// Request addresses a course, and for points calls a user in the role of
// staff or student.
type Request struct {
	CourseID int64
	UserID   int64
	Staff    bool
}

func (r Request) Struct() *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"course_id": structpb.NewNumberValue(float64(r.CourseID)),
		"user_id":   structpb.NewNumberValue(float64(r.UserID)),
		"staff":     structpb.NewBoolValue(r.Staff),
	}}
}

// ParseRequest reads a Request. course_id is required, and user_id too when
// needUser is set.
func ParseRequest(s *structpb.Struct, needUser bool) (Request, error) {
	var r Request
	var err error
	fields := s.GetFields()

	if r.CourseID, err = intField(fields, "course_id", true); err != nil {
		return r, err
	}
	if r.UserID, err = intField(fields, "user_id", needUser); err != nil {
		return r, err
	}
	if v, ok := fields["staff"]; ok {
		b, ok := v.GetKind().(*structpb.Value_BoolValue)
		if !ok {
			return r, fmt.Errorf("%w: staff must be a bool", common.ErrInvalidArgument)
		}
		r.Staff = b.BoolValue
	}
	return r, nil
}

func intField(fields map[string]*structpb.Value, name string, required bool) (int64, error) {
	v, ok := fields[name]
	if !ok {
		if required {
			return 0, fmt.Errorf("%w: %s is required", common.ErrInvalidArgument, name)
		}
		return 0, nil
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok || n.NumberValue != math.Trunc(n.NumberValue) || math.Abs(n.NumberValue) > 1<<53 {
		return 0, fmt.Errorf("%w: %s must be an integer", common.ErrInvalidArgument, name)
	}
	return int64(n.NumberValue), nil
}

// Encode converts any JSON-serializable value into a Struct.
func Encode(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}

// Decode is the inverse of Encode.
func Decode(s *structpb.Struct, v any) error {
	raw, err := json.Marshal(s.AsMap())
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}
