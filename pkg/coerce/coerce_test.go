package coerce

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoerceNumber(t *testing.T) {
	cases := map[string]float64{
		`12.5`:     12.5,
		`"7"`:      7,
		`" 3.25 "`: 3.25,
		`"abc"`:    0,
		`null`:     0,
		`true`:     0,
		`{"a":1}`:  0,
		`"Inf"`:    0,
		``:         0,
	}
	for raw, want := range cases {
		assert.Equal(t, want, CoerceNumber([]byte(raw)), raw)
	}
}

func TestCoerceText(t *testing.T) {
	assert.Equal(t, "Ana", CoerceText([]byte(`"Ana"`)))
	assert.Equal(t, "", CoerceText([]byte(`42`)))
	assert.Equal(t, "", CoerceText([]byte(`null`)))
}

func TestID(t *testing.T) {
	assert.Equal(t, "abc", ID(json.RawMessage(`" abc "`)))
	assert.Equal(t, "1712345678901", ID(json.RawMessage(`1712345678901`)))
	assert.Equal(t, "", ID(json.RawMessage(`{}`)))
	assert.Equal(t, "", ID(nil))
}

func TestDecodeCollectionReportsLosses(t *testing.T) {
	type rec struct {
		Name string `json:"name"`
	}

	got := DecodeCollection[rec]([]byte(`[{"name":"a"},"junk",7,{"name":"b"}]`))
	assert.False(t, got.NotList)
	assert.Equal(t, 2, got.Skipped)
	assert.Equal(t, []rec{{Name: "a"}, {Name: "b"}}, got.Items)

	got = DecodeCollection[rec]([]byte(`{"name":"a"}`))
	assert.True(t, got.NotList)
	assert.Empty(t, got.Items)

	got = DecodeCollection[rec]([]byte(`[]`))
	assert.False(t, got.NotList)
	assert.Empty(t, got.Items)
}
