package core

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"math/bits"
	"strings"
)

// ErrMetricMismatch is returned when a metric cannot compare descriptors of a given element type.
var ErrMetricMismatch = errors.New("metric does not support descriptor type")

// Metric selects how two descriptors are compared.
type Metric int

const (
	// MetricAuto picks a metric from the descriptor element type, see MetricFor.
	MetricAuto Metric = iota
	// MetricEuclidean is the L2 distance between float descriptors.
	MetricEuclidean
	// MetricHamming counts differing bits between binary descriptors.
	MetricHamming
	// MetricHamming2 counts differing bit pairs, for ORB descriptors computed with WTA_K 3 or 4.
	MetricHamming2
)

// Metrics maps human-readable names to metrics.
var Metrics = map[string]Metric{
	"auto":      MetricAuto,
	"euclidean": MetricEuclidean,
	"hamming":   MetricHamming,
	"hamming2":  MetricHamming2,
}

func (m Metric) String() string {
	switch m {
	case MetricAuto:
		return "auto"
	case MetricEuclidean:
		return "euclidean"
	case MetricHamming:
		return "hamming"
	case MetricHamming2:
		return "hamming2"
	default:
		return fmt.Sprintf("Metric(%d)", int(m))
	}
}

// ParseMetric returns the metric with the given name.
func ParseMetric(name string) (Metric, error) {
	m, ok := Metrics[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return MetricAuto, fmt.Errorf("unknown metric %q", name)
	}
	return m, nil
}

// MarshalText implements encoding.TextMarshaler.
func (m Metric) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Metric) UnmarshalText(text []byte) error {
	v, err := ParseMetric(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// MetricFor returns the metric used for descriptors of type t.
// wtaK is the number of points compared per ORB test; values 3 and 4 produce
// 2-bit codes that need MetricHamming2.
func MetricFor(t ElemType, wtaK int) Metric {
	if t != Uint8 {
		return MetricEuclidean
	}
	if wtaK == 3 || wtaK == 4 {
		return MetricHamming2
	}
	return MetricHamming
}

// Resolve replaces MetricAuto with the metric for t and checks that the result supports t.
func (m Metric) Resolve(t ElemType, wtaK int) (Metric, error) {
	if m == MetricAuto {
		return MetricFor(t, wtaK), nil
	}
	if !m.Supports(t) {
		return m, fmt.Errorf("%s on %s descriptors: %w", m, t, ErrMetricMismatch)
	}
	return m, nil
}

// Supports reports whether m can compare descriptors of type t.
func (m Metric) Supports(t ElemType) bool {
	switch m {
	case MetricEuclidean:
		return t == Float32
	case MetricHamming, MetricHamming2:
		return t == Uint8
	default:
		return false
	}
}

// Distance compares two rows with m. Integer bit counts are returned as float64.
func (m Metric) Distance(a, b Row) float64 {
	switch m {
	case MetricEuclidean:
		return Euclidean(a.Float, b.Float)
	case MetricHamming:
		return Hamming(a.Binary, b.Binary)
	case MetricHamming2:
		return Hamming2(a.Binary, b.Binary)
	default:
		panic(fmt.Sprintf("distance with unresolved metric %s", m))
	}
}

// Euclidean computes the Euclidean (L2) distance between two vectors.
func Euclidean(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 {
		panic("vectors must not be empty")
	}
	if len(a) != len(b) {
		panic("vectors must have the same length")
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// Hamming counts the bits that differ between two packed descriptors.
func Hamming(a, b []byte) float64 {
	checkBinary(a, b)
	return float64(popcountXor(a, b, ^uint64(0)))
}

// Hamming2 counts the 2-bit cells that differ between two packed descriptors.
func Hamming2(a, b []byte) float64 {
	checkBinary(a, b)
	return float64(popcountXor(a, b, 0x5555555555555555))
}

func checkBinary(a, b []byte) {
	if len(a) == 0 || len(b) == 0 {
		panic("vectors must not be empty")
	}
	if len(a) != len(b) {
		panic("vectors must have the same length")
	}
}

// popcountXor counts set bits of a^b. A mask other than all ones folds each
// bit pair into its low bit first, so one differing pair counts once.
func popcountXor(a, b []byte, mask uint64) int {
	fold := mask != ^uint64(0)
	var n int
	i := 0
	for ; i+8 <= len(a); i += 8 {
		x := binary.LittleEndian.Uint64(a[i:]) ^ binary.LittleEndian.Uint64(b[i:])
		if fold {
			x = (x | x>>1) & mask
		}
		n += popcount64(x)
	}
	for ; i < len(a); i++ {
		x := a[i] ^ b[i]
		if fold {
			x = (x | x>>1) & byte(mask)
		}
		n += bits.OnesCount8(x)
	}
	return n
}
