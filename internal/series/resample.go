package series

import (
	"time"

	"tradelens/internal/model"
)

// Bucket is one aggregated group produced by Resample:
// Open = first open, High = max high, Low = min low, Close = last close
// (by time order), Volume = summed volume.
type Bucket struct {
	Key    string
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
	Count  int
}

// Resample groups the candles of a series by an externally supplied bucket
// key function and aggregates each group. Buckets are returned in order of
// first appearance, which for a sorted series and a monotone key function is
// chronological.
func Resample(s model.TimeSeries, key func(time.Time) string) []Bucket {
	buckets := make([]Bucket, 0, 8)
	index := make(map[string]int, 8)

	for i := 0; i < s.Len(); i++ {
		c := s.At(i)
		k := key(c.TS)
		bi, seen := index[k]
		if !seen {
			index[k] = len(buckets)
			buckets = append(buckets, Bucket{
				Key:    k,
				Open:   c.Open,
				High:   c.High,
				Low:    c.Low,
				Close:  c.Close,
				Volume: c.Volume,
				Count:  1,
			})
			continue
		}
		b := &buckets[bi]
		if c.High > b.High {
			b.High = c.High
		}
		if c.Low < b.Low {
			b.Low = c.Low
		}
		b.Close = c.Close
		b.Volume += c.Volume
		b.Count++
	}
	return buckets
}
