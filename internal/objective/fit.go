package objective

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// GaussFit holds the result of fitting a Gaussian to a residual
// histogram. Sigma is the resolution metric; Mean is the bias metric.
type GaussFit struct {
	Amplitude      float64 `json:"amplitude"`
	Mean           float64 `json:"mean"`
	Sigma          float64 `json:"sigma"`
	AmplitudeError float64 `json:"amplitude_error"`
	MeanError      float64 `json:"mean_error"`
	SigmaError     float64 `json:"sigma_error"`
	Window         float64 `json:"window"`
	Chi2           float64 `json:"chi2"`
	NDF            int     `json:"ndf"`
}

// FitError reports a fit that could not be performed or did not converge.
type FitError struct {
	Reason string
}

func (e *FitError) Error() string {
	return "gaussian fit failed: " + e.Reason
}

func gauss(x, amplitude, mean, sigma float64) float64 {
	d := (x - mean) / sigma
	return amplitude * math.Exp(-0.5*d*d)
}

// FitGaussian fits a Gaussian to the histogram restricted to the symmetric
// window [-window, +window] around zero, minimizing the counting-statistics
// chi-square with Nelder-Mead. The fit is seeded from the histogram's
// integral, mean, and RMS. Parameter uncertainties come from the numerical
// Hessian of the chi-square at the minimum.
func FitGaussian(h *Histogram, window float64) (*GaussFit, error) {
	if window <= 0 {
		window = DefaultWindow
	}

	var centers, counts []float64
	for i := range h.Counts {
		c := h.BinCenter(i)
		if c < -window || c > window {
			continue
		}
		if h.Counts[i] <= 0 {
			continue
		}
		centers = append(centers, c)
		counts = append(counts, h.Counts[i])
	}
	if len(centers) < 4 {
		return nil, &FitError{Reason: fmt.Sprintf("only %d populated bins in fit window", len(centers))}
	}

	chi2 := func(p []float64) float64 {
		amplitude, mean, sigma := p[0], p[1], math.Abs(p[2])
		if sigma == 0 {
			return math.Inf(1)
		}
		var sum float64
		for i, c := range centers {
			r := (counts[i] - gauss(c, amplitude, mean, sigma)) / math.Sqrt(counts[i])
			sum += r * r
		}
		return sum
	}

	seed := []float64{maxOf(counts), h.Mean(), h.RMS()}
	if seed[2] == 0 {
		seed[2] = h.BinWidth()
	}

	problem := optimize.Problem{Func: chi2}
	result, err := optimize.Minimize(problem, seed, nil, &optimize.NelderMead{})
	if err != nil {
		return nil, &FitError{Reason: err.Error()}
	}
	if err := result.Status.Err(); err != nil {
		return nil, &FitError{Reason: err.Error()}
	}

	best := result.X
	fit := &GaussFit{
		Amplitude: best[0],
		Mean:      best[1],
		Sigma:     math.Abs(best[2]),
		Window:    window,
		Chi2:      result.F,
		NDF:       len(centers) - len(best),
	}
	fit.AmplitudeError, fit.MeanError, fit.SigmaError = fitErrors(chi2, best)
	return fit, nil
}

// fitErrors estimates parameter uncertainties from the numerical Hessian
// of the chi-square at its minimum: cov = 2 H^-1.
func fitErrors(chi2 func([]float64) float64, best []float64) (float64, float64, float64) {
	n := len(best)
	hess := mat.NewDense(n, n, nil)

	step := make([]float64, n)
	for i := range best {
		step[i] = 1e-4 * math.Max(1, math.Abs(best[i]))
	}

	f0 := chi2(best)
	at := func(shifts map[int]float64) float64 {
		p := make([]float64, n)
		copy(p, best)
		for i, d := range shifts {
			p[i] += d
		}
		return chi2(p)
	}

	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			var second float64
			if i == j {
				second = (at(map[int]float64{i: step[i]}) - 2*f0 + at(map[int]float64{i: -step[i]})) /
					(step[i] * step[i])
			} else {
				second = (at(map[int]float64{i: step[i], j: step[j]}) -
					at(map[int]float64{i: step[i], j: -step[j]}) -
					at(map[int]float64{i: -step[i], j: step[j]}) +
					at(map[int]float64{i: -step[i], j: -step[j]})) /
					(4 * step[i] * step[j])
			}
			hess.Set(i, j, second)
			hess.Set(j, i, second)
		}
	}

	var inv mat.Dense
	if err := inv.Inverse(hess); err != nil {
		// Singular Hessian: report no uncertainty rather than a made-up one.
		return 0, 0, 0
	}
	errAt := func(i int) float64 {
		v := 2 * inv.At(i, i)
		if v <= 0 || math.IsNaN(v) {
			return 0
		}
		return math.Sqrt(v)
	}
	return errAt(0), errAt(1), errAt(2)
}

func maxOf(values []float64) float64 {
	best := values[0]
	for _, v := range values[1:] {
		if v > best {
			best = v
		}
	}
	return best
}
