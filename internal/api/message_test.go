package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dmitrijs2005/coursecache/internal/common"
)

func TestParseRequest(t *testing.T) {
	got, err := ParseRequest(Request{CourseID: 3, UserID: 7, Staff: true}.Struct(), true)
	require.NoError(t, err)
	assert.Equal(t, Request{CourseID: 3, UserID: 7, Staff: true}, got)

	got, err = ParseRequest(&structpb.Struct{Fields: map[string]*structpb.Value{
		"course_id": structpb.NewNumberValue(3),
	}}, false)
	require.NoError(t, err)
	assert.Equal(t, Request{CourseID: 3}, got)
}

func TestParseRequest_Errors(t *testing.T) {
	tests := []struct {
		name     string
		fields   map[string]*structpb.Value
		needUser bool
	}{
		{"missing course", map[string]*structpb.Value{}, false},
		{"missing user", map[string]*structpb.Value{"course_id": structpb.NewNumberValue(1)}, true},
		{"fractional id", map[string]*structpb.Value{"course_id": structpb.NewNumberValue(1.5)}, false},
		{"string id", map[string]*structpb.Value{"course_id": structpb.NewStringValue("1")}, false},
		{"staff not bool", map[string]*structpb.Value{"course_id": structpb.NewNumberValue(1), "staff": structpb.NewStringValue("yes")}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRequest(&structpb.Struct{Fields: tt.fields}, tt.needUser)
			assert.ErrorIs(t, err, common.ErrInvalidArgument)
		})
	}
}

func TestEncodeDecode(t *testing.T) {
	type payload struct {
		Name    string         `json:"name"`
		Points  int            `json:"points"`
		At      time.Time      `json:"at"`
		ByLevel map[string]int `json:"by_level"`
	}
	in := payload{Name: "x", Points: 4, At: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), ByLevel: map[string]int{"A": 1}}

	s, err := Encode(in)
	require.NoError(t, err)
	assert.Equal(t, float64(4), s.Fields["points"].GetNumberValue())

	var out payload
	require.NoError(t, Decode(s, &out))
	assert.Equal(t, in, out)
}
