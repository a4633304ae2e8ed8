package utils

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"farmledger/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d := ParseDate("2024-01-05")
	require.NotNil(t, d)
	assert.Equal(t, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), *d)

	d = ParseDate("2024-01-05T10:30:00.000Z")
	require.NotNil(t, d)
	assert.Equal(t, 10, d.Hour())

	assert.Nil(t, ParseDate(""))
	assert.Nil(t, ParseDate("yesterday"))
}

func TestFlexFloat(t *testing.T) {
	var body struct {
		A FlexFloat `json:"a"`
		B FlexFloat `json:"b"`
		C FlexFloat `json:"c"`
		D FlexFloat `json:"d"`
		E FlexFloat `json:"e"`
	}
	err := json.Unmarshal([]byte(`{"a": 12.5, "b": "40", "c": "", "d": "lots", "e": true}`), &body)
	require.NoError(t, err)

	assert.Equal(t, FlexFloat{Value: 12.5, Set: true}, body.A)
	assert.Equal(t, FlexFloat{Value: 40, Set: true}, body.B)
	assert.False(t, body.C.Set)
	assert.True(t, body.D.Invalid)
	assert.True(t, body.E.Invalid)
}

func TestFlexFloatRejectsNonFinite(t *testing.T) {
	for _, raw := range []string{`"NaN"`, `"nan"`, `"Inf"`, `"+Inf"`, `"-Inf"`, `"Infinity"`, `"1e400"`} {
		var f FlexFloat
		require.NoError(t, json.Unmarshal([]byte(raw), &f), raw)
		assert.True(t, f.Invalid, raw)
	}
}

func TestPositive(t *testing.T) {
	assert.True(t, Positive(0.5))
	assert.False(t, Positive(0))
	assert.False(t, Positive(-3))
	assert.False(t, Positive(math.NaN()))
	assert.False(t, Positive(math.Inf(1)))
}

func TestFlexString(t *testing.T) {
	var body struct {
		Area FlexString `json:"area"`
		Name FlexString `json:"name"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"area": 12.5, "name": "North"}`), &body))
	assert.Equal(t, FlexString("12.5"), body.Area)
	assert.Equal(t, FlexString("North"), body.Name)
}

func TestFlexStringRejectsNonText(t *testing.T) {
	for _, raw := range []string{`{"a":1}`, `[1]`, `true`} {
		var s FlexString
		assert.ErrorIs(t, json.Unmarshal([]byte(raw), &s), ErrNotText, raw)
	}

	var s FlexString
	require.NoError(t, json.Unmarshal([]byte(`null`), &s))
	assert.Equal(t, FlexString(""), s)
}

func TestRespondWithAppError(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondWithAppError(rec, apperr.Internal("Internal server error", errors.New("dial tcp 10.0.0.3:27017")))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	RespondWithAppError(rec, apperr.NotFound("Harvest log not found or unauthorized"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
