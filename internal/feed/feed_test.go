package feed

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ari/statcache/internal/gameplay"
)

const samplePayload = `{
  "total_count": 3,
  "items": [
    {
      "stat_id": "1",
      "stat_key": "kills",
      "type": "int",
      "increment_only": true,
      "window": null,
      "value": 5,
      "default_value": null,
      "min_value": 0,
      "max_value": 100,
      "max_change": null
    },
    {
      "stat_id": "2",
      "stat_key": "accuracy",
      "type": "avgrate",
      "increment_only": false,
      "window": 30.0,
      "value": 0.5,
      "default_value": 0,
      "min_value": null,
      "max_value": null,
      "max_change": null
    },
    {
      "stat_id": 3,
      "stat_key": "distance",
      "type": "FLOAT",
      "increment_only": false,
      "window": 12,
      "value": 1.25,
      "max_change": 10
    }
  ]
}`

func TestDecode_JSON(t *testing.T) {
	stats, err := Decode(strings.NewReader(samplePayload), FormatJSON)
	require.NoError(t, err)
	require.Len(t, stats, 3)

	kills := stats[0]
	assert.Equal(t, int64(1), kills.ID)
	assert.Equal(t, "kills", kills.Key)
	assert.True(t, kills.IncrementOnly)
	assert.Nil(t, kills.Window)
	assert.Equal(t, gameplay.IntValues{Fields: gameplay.Fields[int64]{
		Value:    5,
		MinValue: gameplay.Ptr[int64](0),
		MaxValue: gameplay.Ptr[int64](100),
	}}, kills.Values)

	accuracy := stats[1]
	assert.Equal(t, gameplay.KindAvgRate, accuracy.Kind())
	require.NotNil(t, accuracy.Window)
	assert.Equal(t, 30.0, *accuracy.Window)
	assert.Equal(t, gameplay.AvgRateValues{Fields: gameplay.Fields[float64]{
		Value:        0.5,
		DefaultValue: gameplay.Ptr(0.0),
	}}, accuracy.Values)

	distance := stats[2]
	assert.Equal(t, int64(3), distance.ID)
	assert.Equal(t, gameplay.KindFloat, distance.Kind())
	assert.Nil(t, distance.Window, "window only applies to avgrate statistics")
	assert.Equal(t, gameplay.FloatValues{Fields: gameplay.Fields[float64]{
		Value:     1.25,
		MaxChange: gameplay.Ptr(10.0),
	}}, distance.Values)
}

func TestDecode_YAML(t *testing.T) {
	payload := `
total_count: 2
items:
  - stat_id: "10"
    stat_key: wins
    type: INT
    increment_only: true
    value: 12
    max_value: 9000
  - stat_id: 11
    stat_key: avg_lap
    type: avgrate
    window: 5.5
    value: 71.25
    default_value: ~
`
	stats, err := Decode(strings.NewReader(payload), FormatYAML)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	assert.Equal(t, int64(10), stats[0].ID)
	assert.Equal(t, gameplay.IntValues{Fields: gameplay.Fields[int64]{
		Value:    12,
		MaxValue: gameplay.Ptr[int64](9000),
	}}, stats[0].Values)

	assert.Equal(t, int64(11), stats[1].ID)
	require.NotNil(t, stats[1].Window)
	assert.Equal(t, 5.5, *stats[1].Window)
	assert.Equal(t, gameplay.AvgRateValues{Fields: gameplay.Fields[float64]{Value: 71.25}}, stats[1].Values)
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{"bad id", `{"items":[{"stat_id":"abc","stat_key":"k","type":"int","value":1}]}`, "invalid stat_id"},
		{"bad type", `{"items":[{"stat_id":"1","stat_key":"k","type":"double","value":1}]}`, "unsupported type"},
		{"fractional int", `{"items":[{"stat_id":"1","stat_key":"k","type":"int","value":1.5}]}`, "not an integer"},
		{"empty key", `{"items":[{"stat_id":"1","stat_key":"","type":"int","value":1}]}`, "empty key"},
		{"bad bound", `{"items":[{"stat_id":"1","stat_key":"k","type":"int","value":1,"min_value":"x"}]}`, "invalid number"},
		{"malformed", `{"items":`, "failed to decode"},
		{"int overflow", `{"items":[{"stat_id":"1","stat_key":"k","type":"int","value":9223372036854775808}]}`, "not an integer"},
		{"int overflow exponent", `{"items":[{"stat_id":"1","stat_key":"k","type":"int","value":9.223372036854775808e18}]}`, "not an integer"},
		{"int underflow", `{"items":[{"stat_id":"1","stat_key":"k","type":"int","value":-1e19}]}`, "not an integer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.payload), FormatJSON)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestDecode_IntBounds(t *testing.T) {
	payload := `{"items":[
		{"stat_id":"1","stat_key":"max","type":"int","value":9223372036854775807},
		{"stat_id":"2","stat_key":"min","type":"int","value":-9223372036854775808},
		{"stat_id":"3","stat_key":"exp","type":"int","value":1e18}
	]}`
	stats, err := Decode(strings.NewReader(payload), FormatJSON)
	require.NoError(t, err)
	require.Len(t, stats, 3)

	want := []int64{math.MaxInt64, math.MinInt64, 1_000_000_000_000_000_000}
	for i, st := range stats {
		iv, ok := st.Values.(gameplay.IntValues)
		require.True(t, ok, st.Key)
		assert.Equal(t, want[i], iv.Value, st.Key)
	}
}

func TestDecode_ItemIndexInError(t *testing.T) {
	payload := `{"items":[
		{"stat_id":"1","stat_key":"ok","type":"int","value":1},
		{"stat_id":"2","stat_key":"bad","type":"nope","value":1}
	]}`
	_, err := Decode(strings.NewReader(payload), FormatJSON)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "item 1")
}

func TestDecode_Empty(t *testing.T) {
	_, err := Decode(strings.NewReader(""), FormatJSON)
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = Decode(strings.NewReader(""), FormatYAML)
	assert.ErrorIs(t, err, ErrEmpty)

	stats, err := Decode(strings.NewReader(`{"items":[]}`), FormatJSON)
	require.NoError(t, err)
	assert.Empty(t, stats)
}

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path    string
		want    Format
		wantErr bool
	}{
		{"stats.json", FormatJSON, false},
		{"stats.JSON", FormatJSON, false},
		{"stats.yaml", FormatYAML, false},
		{"dir/stats.yml", FormatYAML, false},
		{"stats.toml", "", true},
		{"stats", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := FormatFromPath(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.json")
	require.NoError(t, os.WriteFile(path, []byte(samplePayload), 0644))

	stats, err := ParseFile(path)
	require.NoError(t, err)
	assert.Len(t, stats, 3)

	_, err = ParseFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestEncode_DecodesBack(t *testing.T) {
	input := []gameplay.Statistic{
		{ID: 1, Key: "kills", IncrementOnly: true, Values: gameplay.IntValues{Fields: gameplay.Fields[int64]{
			Value:        9007199254740993,
			DefaultValue: gameplay.Ptr[int64](0),
			MaxValue:     gameplay.Ptr[int64](100),
		}}},
		{ID: 2, Key: "accuracy", Window: gameplay.Ptr(30.0), Values: gameplay.AvgRateValues{Fields: gameplay.Fields[float64]{
			Value:     0.1,
			MaxChange: gameplay.Ptr(2.5),
		}}},
		{ID: 3, Key: "distance", Values: gameplay.FloatValues{Fields: gameplay.Fields[float64]{Value: 1e-7}}},
	}

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, input))
	assert.Contains(t, buf.String(), `"stat_id": "1"`)

	got, err := Decode(&buf, FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, input, got)
}

func TestEncode_RejectsNonFinite(t *testing.T) {
	err := Encode(&bytes.Buffer{}, []gameplay.Statistic{
		{ID: 1, Key: "x", Values: gameplay.FloatValues{Fields: gameplay.Fields[float64]{Value: math.Inf(1)}}},
	})
	assert.Error(t, err)
}
