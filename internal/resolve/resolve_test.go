package resolve

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AmineChr54/Ai-for-global-healthcare-access-sub000/internal/facility"
)

func canonical() []facility.Record {
	return []facility.Record{
		{ID: "1", Name: "Tamale Teaching Hospital"},
		{ID: "2", Name: "Korle Bu Teaching Hospital"},
		{ID: "3", Name: "Tamale Central Hospital"},
		{ID: "4", Name: ""},
		{ID: "5", Name: "St. Martin's Hospital, Agroyesum"},
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"   ", ""},
		{"Tamale Teaching Hospital", "tamale teaching hospital"},
		{"  TAMALE   Teaching\tHospital ", "tamale teaching hospital"},
		{"St. Martin's Hospital", "st martins hospital"},
		{"Mother & Child Clinic", "mother and child clinic"},
		{"Holy-Family Hospital", "holy family hospital"},
		{"Clinique Sainté Élise", "clinique sainte elise"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestResolve_ExactBeatsSubstring(t *testing.T) {
	records := []facility.Record{
		{ID: "long", Name: "Tamale Teaching Hospital Annex"},
		{ID: "exact", Name: "Tamale Teaching Hospital"},
	}
	got := Resolve([]string{"tamale teaching hospital"}, records)
	require.Len(t, got, 1)
	assert.Equal(t, "exact", got[0].ID)
	assert.Equal(t, MethodExact, got[0].Method)
}

func TestResolve_Cases(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		id     string
		method string
	}{
		{"case difference only", "tamale teaching hospital", "1", MethodExact},
		{"input is substring", "Tamale Teaching", "1", MethodSubstring},
		{"first in list order wins", "Tamale", "1", MethodSubstring},
		{"canonical contained in input", "the Korle Bu Teaching Hospital in Accra", "2", MethodSubstring},
		{"punctuation ignored", "St Martins Hospital Agroyesum", "5", MethodExact},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve([]string{tt.input}, canonical())
			require.Len(t, got, 1)
			assert.Equal(t, tt.id, got[0].ID)
			assert.Equal(t, tt.method, got[0].Method)
			assert.Equal(t, tt.input, got[0].Input)
		})
	}
}

func TestResolve_NoMatchDropped(t *testing.T) {
	got := Resolve([]string{"Unrelated Clinic XYZ", "", "  "}, canonical())
	assert.Empty(t, got)
}

func TestResolveHighlightedFacilities(t *testing.T) {
	set, matches := ResolveHighlightedFacilities([]string{
		"Korle Bu Teaching Hospital",
		"Unrelated Clinic XYZ",
		"tamale teaching hospital",
		"KORLE BU TEACHING HOSPITAL",
	}, canonical())

	require.Len(t, matches, 3)
	assert.Equal(t, "KORLE BU TEACHING HOSPITAL", matches[2].Input)
	assert.Equal(t, 2, set.Len())
	assert.Equal(t, []string{"2", "1"}, set.IDs())
	assert.True(t, set.Has("1"))
	assert.False(t, set.Has("3"))

	data, err := json.Marshal(set)
	require.NoError(t, err)
	assert.JSONEq(t, `["2","1"]`, string(data))

	empty, none := ResolveHighlightedFacilities(nil, canonical())
	assert.Zero(t, empty.Len())
	assert.NotNil(t, none)
	assert.Empty(t, none)

	set, _ = ResolveHighlightedFacilities([]string{"Tamale"}, nil)
	assert.Empty(t, set.IDs())
}

func TestHighlightSet(t *testing.T) {
	h := NewHighlightSet("a", "b", "a", "")
	assert.Equal(t, []string{"a", "b"}, h.IDs())
	assert.Len(t, h.Set(), 2)

	var nilSet *HighlightSet
	assert.False(t, nilSet.Has("a"))
	assert.Zero(t, nilSet.Len())
	assert.Empty(t, nilSet.IDs())
	assert.Empty(t, nilSet.Set())
}
