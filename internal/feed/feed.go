// Package feed converts the stats service payload to and from gameplay statistics.
package feed

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ari/statcache/internal/gameplay"
)

// Format is the encoding of a payload file.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ErrEmpty is returned when a payload has no document at all.
var ErrEmpty = errors.New("empty stats payload")

// FormatFromPath picks the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported payload extension %q", filepath.Ext(path))
	}
}

// Payload is the statistics response of the stats service.
type Payload struct {
	TotalCount int    `json:"total_count" yaml:"total_count"`
	Items      []Item `json:"items" yaml:"items"`
}

// Item is one statistic as the stats service reports it. The numeric fields are
// kept as literals until the type tells whether they are integers or floats.
type Item struct {
	StatID        StatID   `json:"stat_id" yaml:"stat_id"`
	StatKey       string   `json:"stat_key" yaml:"stat_key"`
	Type          string   `json:"type" yaml:"type"`
	IncrementOnly bool     `json:"increment_only" yaml:"increment_only"`
	Window        *float64 `json:"window" yaml:"window"`
	Value         Number   `json:"value" yaml:"value"`
	DefaultValue  *Number  `json:"default_value" yaml:"default_value"`
	MinValue      *Number  `json:"min_value" yaml:"min_value"`
	MaxValue      *Number  `json:"max_value" yaml:"max_value"`
	MaxChange     *Number  `json:"max_change" yaml:"max_change"`
}

// StatID is the decimal id of a statistic. The service sends it as a string;
// bare numbers are accepted too.
type StatID string

func (id *StatID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = StatID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("stat_id must be a string or number: %w", err)
	}
	*id = StatID(n.String())
	return nil
}

// Number is the literal text of a numeric field.
type Number string

func (n *Number) UnmarshalJSON(data []byte) error {
	var num json.Number
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&num); err != nil {
		return fmt.Errorf("invalid number %s: %w", data, err)
	}
	*n = Number(num)
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	if n == "" {
		return []byte("0"), nil
	}
	return []byte(n), nil
}

func (n *Number) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a number", node.Line)
	}
	*n = Number(node.Value)
	return nil
}

func (n Number) asInt() (int64, error) {
	if n == "" {
		return 0, nil
	}
	if v, err := strconv.ParseInt(string(n), 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(string(n), 64)
	if err != nil || f != math.Trunc(f) || f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, fmt.Errorf("%q is not an integer", string(n))
	}
	return int64(f), nil
}

func (n Number) asFloat() (float64, error) {
	if n == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(string(n), 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", string(n))
	}
	return f, nil
}

// ParseFile reads a payload file and returns its statistics.
func ParseFile(path string) ([]gameplay.Statistic, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	defer f.Close()

	return Decode(f, format)
}

// Decode reads one payload and converts its items.
func Decode(r io.Reader, format Format) ([]gameplay.Statistic, error) {
	var p Payload
	var err error
	switch format {
	case FormatJSON:
		err = json.NewDecoder(r).Decode(&p)
	case FormatYAML:
		err = yaml.NewDecoder(r).Decode(&p)
	default:
		return nil, fmt.Errorf("unsupported payload format %q", format)
	}
	if errors.Is(err, io.EOF) {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s payload: %w", format, err)
	}
	return p.Statistics()
}

// Statistics converts every item of the payload.
func (p Payload) Statistics() ([]gameplay.Statistic, error) {
	stats := make([]gameplay.Statistic, 0, len(p.Items))
	for i, item := range p.Items {
		s, err := item.Statistic()
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		stats = append(stats, s)
	}
	return stats, nil
}

// Statistic converts the item to its typed form.
func (it Item) Statistic() (gameplay.Statistic, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(string(it.StatID)), 10, 64)
	if err != nil {
		return gameplay.Statistic{}, fmt.Errorf("invalid stat_id %q", string(it.StatID))
	}
	kind, ok := gameplay.ParseValueKind(it.Type)
	if !ok {
		return gameplay.Statistic{}, fmt.Errorf("stat %q: unsupported type %q", it.StatKey, it.Type)
	}

	var values gameplay.Values
	if kind == gameplay.KindInt {
		f, err := fields(it, Number.asInt)
		if err != nil {
			return gameplay.Statistic{}, fmt.Errorf("stat %q: %w", it.StatKey, err)
		}
		values = gameplay.IntValues{Fields: f}
	} else {
		f, err := fields(it, Number.asFloat)
		if err != nil {
			return gameplay.Statistic{}, fmt.Errorf("stat %q: %w", it.StatKey, err)
		}
		if kind == gameplay.KindFloat {
			values = gameplay.FloatValues{Fields: f}
		} else {
			values = gameplay.AvgRateValues{Fields: f}
		}
	}

	return gameplay.NewStatistic(id, it.StatKey, it.Window, it.IncrementOnly, values)
}

func fields[T gameplay.Number](it Item, parse func(Number) (T, error)) (gameplay.Fields[T], error) {
	var f gameplay.Fields[T]
	var err error
	if f.Value, err = parse(it.Value); err != nil {
		return f, fmt.Errorf("value: %w", err)
	}
	optional := []struct {
		name string
		src  *Number
		dst  **T
	}{
		{"default_value", it.DefaultValue, &f.DefaultValue},
		{"min_value", it.MinValue, &f.MinValue},
		{"max_value", it.MaxValue, &f.MaxValue},
		{"max_change", it.MaxChange, &f.MaxChange},
	}
	for _, o := range optional {
		if o.src == nil {
			continue
		}
		v, err := parse(*o.src)
		if err != nil {
			return f, fmt.Errorf("%s: %w", o.name, err)
		}
		*o.dst = &v
	}
	return f, nil
}
