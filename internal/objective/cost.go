package objective

// CostName is the objective name that triggers the parameter-only cost
// computation: it is derived purely from the trial's parameter values and
// never invokes the pipeline.
const CostName = "Cost"

// Cost computes the derived cost objective from the enable-flag values of
// the parameter set: each enabled optional sub-system contributes its
// value, so cost grows monotonically with the number of enabled systems.
func Cost(flagValues map[string]float64) float64 {
	var total float64
	for _, v := range flagValues {
		if v > 0 {
			total += v
		}
	}
	return total
}
