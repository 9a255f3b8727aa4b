package objective

import (
	"bufio"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/aid2e/pipeline-core/pkg/logger"
)

// Quantity selects which reconstructed quantity the residual is built for.
type Quantity string

const (
	QuantityEnergy Quantity = "energy"
	QuantityTheta  Quantity = "theta"
	QuantityPhi    Quantity = "phi"
)

// EventRecord is one truth-cluster association from the reconstruction
// output: the truth particle's identity and four-momentum alongside the
// reconstructed quantities. Records are streamed as one JSON document
// per line.
type EventRecord struct {
	PDG  int     `json:"pdg"`
	Mass float64 `json:"mass"`
	Px   float64 `json:"px"`
	Py   float64 `json:"py"`
	Pz   float64 `json:"pz"`

	RecEnergy float64 `json:"rec_energy"`
	RecTheta  float64 `json:"rec_theta"`
	RecPhi    float64 `json:"rec_phi"`
}

// TrueEnergy computes the truth particle's energy from its four-momentum.
func (r EventRecord) TrueEnergy() float64 {
	p2 := r.Px*r.Px + r.Py*r.Py + r.Pz*r.Pz
	return math.Sqrt(p2 + r.Mass*r.Mass)
}

// TrueTheta computes the truth polar angle.
func (r EventRecord) TrueTheta() float64 {
	pt := math.Hypot(r.Px, r.Py)
	return math.Atan2(pt, r.Pz)
}

// TruePhi computes the truth azimuthal angle.
func (r EventRecord) TruePhi() float64 {
	return math.Atan2(r.Py, r.Px)
}

// Residual computes the relative residual (reconstructed - truth) / truth
// for the given quantity.
func (r EventRecord) Residual(q Quantity) (float64, error) {
	var rec, truth float64
	switch q {
	case QuantityEnergy, "":
		rec, truth = r.RecEnergy, r.TrueEnergy()
	case QuantityTheta:
		rec, truth = r.RecTheta, r.TrueTheta()
	case QuantityPhi:
		rec, truth = r.RecPhi, r.TruePhi()
	default:
		return 0, fmt.Errorf("unknown residual quantity %q", q)
	}
	if truth == 0 {
		return 0, fmt.Errorf("truth %s is zero", q)
	}
	return (rec - truth) / truth, nil
}

// Selector picks which records enter the residual distribution.
type Selector struct {
	// PDG is the truth-particle species selector.
	PDG int
	// Quantity defaults to energy.
	Quantity Quantity
	// Histogram binning and fit window; zero values take defaults.
	Bins   int
	Min    float64
	Max    float64
	Window float64
}

// NoMatchingParticlesError reports that zero records passed the selector.
// A fit on an empty histogram is meaningless and must never silently
// return a zero resolution.
type NoMatchingParticlesError struct {
	PDG  int
	File string
}

func (e *NoMatchingParticlesError) Error() string {
	return fmt.Sprintf("no particles with pdg %d in %s", e.PDG, e.File)
}

// Resolution is the extracted objective: the fitted width (and its
// uncertainty) of the relative-residual distribution, plus the fitted
// mean as a bias metric.
type Resolution struct {
	Sigma      float64    `json:"sigma"`
	SigmaError float64    `json:"sigma_error"`
	Mean       float64    `json:"mean"`
	MeanError  float64    `json:"mean_error"`
	Selected   int        `json:"selected"`
	Histogram  *Histogram `json:"histogram"`
	Fit        *GaussFit  `json:"fit"`
}

// ComputeResolution streams event records from the reconstruction
// artifact, selects entries whose truth species matches the selector,
// accumulates relative residuals into a histogram, and fits a Gaussian
// around zero.
func ComputeResolution(path string, sel Selector) (*Resolution, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open reconstruction artifact %s: %w", path, err)
	}
	defer f.Close()

	hist := NewHistogram(sel.Bins, sel.Min, sel.Max)
	selected := 0

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var rec EventRecord
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			return nil, fmt.Errorf("malformed event record at %s:%d: %w", path, line, err)
		}
		if rec.PDG != sel.PDG {
			continue
		}
		residual, err := rec.Residual(sel.Quantity)
		if err != nil {
			return nil, fmt.Errorf("event record at %s:%d: %w", path, line, err)
		}
		hist.Fill(residual)
		selected++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read reconstruction artifact %s: %w", path, err)
	}

	if selected == 0 {
		return nil, &NoMatchingParticlesError{PDG: sel.PDG, File: path}
	}

	fit, err := FitGaussian(hist, sel.Window)
	if err != nil {
		return nil, fmt.Errorf("resolution fit on %s: %w", path, err)
	}

	logger.Debug("resolution extracted",
		"file", path, "pdg", sel.PDG, "selected", selected,
		"sigma", fit.Sigma, "mean", fit.Mean)

	return &Resolution{
		Sigma:      fit.Sigma,
		SigmaError: fit.SigmaError,
		Mean:       fit.Mean,
		MeanError:  fit.MeanError,
		Selected:   selected,
		Histogram:  hist,
		Fit:        fit,
	}, nil
}

// Persist writes the histogram/fit document for later inspection and the
// plain sidecar record. The sidecar's first line is the resolution value:
// it is the sole channel through which the optimizer wrapper reads back
// a scalar.
func (r *Resolution) Persist(fitPath, sidecarPath string) error {
	doc, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode fit document: %w", err)
	}
	if err := os.WriteFile(fitPath, doc, 0o644); err != nil {
		return fmt.Errorf("failed to write fit document %s: %w", fitPath, err)
	}

	var sb strings.Builder
	for _, v := range []float64{r.Sigma, r.SigmaError, r.Mean, r.MeanError} {
		sb.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		sb.WriteByte('\n')
	}
	if err := os.WriteFile(sidecarPath, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write sidecar %s: %w", sidecarPath, err)
	}
	return nil
}

// ReadSidecar reads back the primary scalar from a sidecar record.
func ReadSidecar(path string) (float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read sidecar %s: %w", path, err)
	}
	first, _, _ := strings.Cut(strings.TrimSpace(string(data)), "\n")
	value, err := strconv.ParseFloat(strings.TrimSpace(first), 64)
	if err != nil {
		return 0, fmt.Errorf("malformed sidecar %s: %w", path, err)
	}
	return value, nil
}
