package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestID_DecodesStringAndNumber(t *testing.T) {
	var v struct {
		A ID `json:"a"`
		B ID `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"abc","b":42}`), &v))
	assert.Equal(t, ID("abc"), v.A)
	assert.Equal(t, ID("42"), v.B)
}

func TestSalary_Decoding(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		text    string
		min     float64
		max     float64
		numeric bool
	}{
		{"free text", `"Negotiable"`, "Negotiable", 0, 0, false},
		{"numeric string", `"45"`, "45", 45, 45, true},
		{"number", `60`, "", 60, 60, true},
		{"range", `{"min":30,"max":50}`, "", 30, 50, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s Salary
			require.NoError(t, json.Unmarshal([]byte(tt.in), &s))
			assert.Equal(t, tt.text, s.Text)
			if tt.numeric {
				require.NotNil(t, s.Min)
				require.NotNil(t, s.Max)
				assert.Equal(t, tt.min, *s.Min)
				assert.Equal(t, tt.max, *s.Max)
			} else {
				assert.Nil(t, s.Min)
			}
		})
	}
}

func TestSalary_InRange(t *testing.T) {
	lo, hi := 30.0, 50.0
	s := Salary{Min: &lo, Max: &hi}

	assert.True(t, s.InRange(40, 60))
	assert.True(t, s.InRange(10, 30))
	assert.False(t, s.InRange(51, 100))
	assert.False(t, Salary{Text: "Negotiable"}.InRange(0, 1000))
}

func TestOfferKind_NormalizesSpellings(t *testing.T) {
	var k OfferKind
	require.NoError(t, json.Unmarshal([]byte(`"Full-Time"`), &k))
	assert.Equal(t, OfferFullTime, k)

	require.NoError(t, json.Unmarshal([]byte(`"Stage"`), &k))
	assert.Equal(t, OfferInternship, k)

	require.NoError(t, json.Unmarshal([]byte(`"apprenticeship"`), &k))
	assert.Equal(t, OfferKind("apprenticeship"), k)
}

func TestApplicationStatus_UnknownIsPending(t *testing.T) {
	var a Application
	require.NoError(t, json.Unmarshal([]byte(`{"id":1,"status":"teleported"}`), &a))
	assert.Equal(t, ApplicationPending, a.Status)

	require.NoError(t, json.Unmarshal([]byte(`{"id":1,"status":"Hired"}`), &a))
	assert.Equal(t, ApplicationAccepted, a.Status)

	require.NoError(t, json.Unmarshal([]byte(`{"id":1,"status":42}`), &a))
	assert.Equal(t, ApplicationPending, a.Status)
}

func TestComputeStats_SumsToTotal(t *testing.T) {
	apps := []Application{
		{ID: "1", Status: ApplicationPending},
		{ID: "2", Status: ApplicationInReview},
		{ID: "3", Status: ApplicationAccepted},
		{ID: "4", Status: ApplicationRejected},
		{ID: "5", Status: ApplicationPending},
	}

	st := ComputeStats(apps)
	assert.Equal(t, 5, st.Total)
	assert.Equal(t, 2, st.Pending)
	assert.Equal(t, st.Total, st.Pending+st.InReview+st.Accepted+st.Rejected)
}
