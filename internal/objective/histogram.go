// Package objective reduces per-event detector records into fitted
// resolution metrics: the residual distribution is histogrammed over a
// fixed, pre-declared range and fitted with a Gaussian around zero.
package objective

import (
	"fmt"
	"math"
)

// Default binning for residual distributions. Residuals are relative, so
// a unit range around zero covers everything a sane reconstruction emits.
const (
	DefaultBins   = 200
	DefaultMin    = -1.0
	DefaultMax    = 1.0
	DefaultWindow = 0.5
)

// Histogram is a one-dimensional fixed-range histogram with unit weights.
// Bin errors follow counting statistics (sqrt of the bin content).
type Histogram struct {
	Bins   int       `json:"bins"`
	Min    float64   `json:"min"`
	Max    float64   `json:"max"`
	Counts []float64 `json:"counts"`
	// Entries counts in-range fills; under/overflow are tracked but do
	// not enter the moments.
	Entries   int `json:"entries"`
	Underflow int `json:"underflow"`
	Overflow  int `json:"overflow"`

	sumX  float64
	sumX2 float64
}

// NewHistogram creates a histogram with the given binning; non-positive
// bins or an empty range fall back to the package defaults.
func NewHistogram(bins int, min, max float64) *Histogram {
	if bins <= 0 {
		bins = DefaultBins
	}
	if min >= max {
		min, max = DefaultMin, DefaultMax
	}
	return &Histogram{
		Bins:   bins,
		Min:    min,
		Max:    max,
		Counts: make([]float64, bins),
	}
}

// Fill adds one entry.
func (h *Histogram) Fill(x float64) {
	if x < h.Min {
		h.Underflow++
		return
	}
	if x >= h.Max {
		h.Overflow++
		return
	}
	i := int((x - h.Min) / h.BinWidth())
	if i >= h.Bins {
		i = h.Bins - 1
	}
	h.Counts[i]++
	h.Entries++
	h.sumX += x
	h.sumX2 += x * x
}

// BinWidth returns the width of one bin.
func (h *Histogram) BinWidth() float64 {
	return (h.Max - h.Min) / float64(h.Bins)
}

// BinCenter returns the center of bin i.
func (h *Histogram) BinCenter(i int) float64 {
	return h.Min + (float64(i)+0.5)*h.BinWidth()
}

// Integral returns the total in-range content.
func (h *Histogram) Integral() float64 {
	var sum float64
	for _, c := range h.Counts {
		sum += c
	}
	return sum
}

// Mean returns the mean of the in-range entries.
func (h *Histogram) Mean() float64 {
	if h.Entries == 0 {
		return 0
	}
	return h.sumX / float64(h.Entries)
}

// RMS returns the standard deviation of the in-range entries.
func (h *Histogram) RMS() float64 {
	if h.Entries == 0 {
		return 0
	}
	mean := h.Mean()
	variance := h.sumX2/float64(h.Entries) - mean*mean
	if variance < 0 {
		return 0
	}
	return math.Sqrt(variance)
}

// BinError returns the counting error on bin i.
func (h *Histogram) BinError(i int) float64 {
	return math.Sqrt(h.Counts[i])
}

func (h *Histogram) String() string {
	return fmt.Sprintf("Histogram{bins=%d range=[%g,%g) entries=%d}", h.Bins, h.Min, h.Max, h.Entries)
}
