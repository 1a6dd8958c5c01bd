package feed

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/ari/statcache/internal/gameplay"
)

// FromStatistics builds the payload the stats service would send for stats.
func FromStatistics(stats []gameplay.Statistic) (Payload, error) {
	p := Payload{TotalCount: len(stats), Items: make([]Item, 0, len(stats))}
	for _, s := range stats {
		it := Item{
			StatID:        StatID(strconv.FormatInt(s.ID, 10)),
			StatKey:       s.Key,
			Type:          string(s.Kind()),
			IncrementOnly: s.IncrementOnly,
		}
		var err error
		switch v := s.Values.(type) {
		case gameplay.IntValues:
			err = setFields(&it, v.Fields, formatInt)
		case gameplay.FloatValues:
			err = setFields(&it, v.Fields, formatFloat)
		case gameplay.AvgRateValues:
			err = setFields(&it, v.Fields, formatFloat)
			it.Window = s.Window
		default:
			err = fmt.Errorf("%w: statistic %q has no values", gameplay.ErrInvalidStatistic, s.Key)
		}
		if err != nil {
			return Payload{}, err
		}
		p.Items = append(p.Items, it)
	}
	return p, nil
}

// Encode writes stats as an indented JSON payload.
func Encode(w io.Writer, stats []gameplay.Statistic) error {
	p, err := FromStatistics(stats)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}
	return nil
}

func formatInt(v int64) (Number, error) {
	return Number(strconv.FormatInt(v, 10)), nil
}

func formatFloat(v float64) (Number, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "", fmt.Errorf("%v cannot be encoded", v)
	}
	return Number(strconv.FormatFloat(v, 'g', -1, 64)), nil
}

func setFields[T gameplay.Number](it *Item, f gameplay.Fields[T], format func(T) (Number, error)) error {
	var err error
	if it.Value, err = format(f.Value); err != nil {
		return fmt.Errorf("stat %q value: %w", it.StatKey, err)
	}
	optional := []struct {
		src *T
		dst **Number
	}{
		{f.DefaultValue, &it.DefaultValue},
		{f.MinValue, &it.MinValue},
		{f.MaxValue, &it.MaxValue},
		{f.MaxChange, &it.MaxChange},
	}
	for _, o := range optional {
		if o.src == nil {
			continue
		}
		n, err := format(*o.src)
		if err != nil {
			return fmt.Errorf("stat %q: %w", it.StatKey, err)
		}
		*o.dst = &n
	}
	return nil
}
