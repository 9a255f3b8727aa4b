// Package naming is the single source of truth for the cross-stage file
// naming grammar. Every stage generator and the trial manager resolve
// artifact and script names through these functions; the grammar is never
// duplicated elsewhere.
package naming

import (
	"path/filepath"
	"strings"
)

// Stage identifies one pipeline phase.
type Stage string

const (
	StageSim Stage = "sim"
	StageRec Stage = "rec"
	StageAna Stage = "ana"
)

const (
	// prefix namespaces every artifact produced by the pipeline.
	prefix = "aid2e"
	// containerExt is the container extension shared by all stage outputs.
	containerExt = ".root"
	// sidecarExt is the extension of the plain-text objective record.
	sidecarExt = ".txt"

	simSuffix = ".edm4hep"
	recSuffix = ".edm4eic"
)

// SteeringTag converts a steering file name into a tag: the directory and
// extension are stripped and remaining dots become underscores, so the tag
// embeds cleanly into output names.
func SteeringTag(steeringFile string) string {
	base := filepath.Base(steeringFile)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return strings.ReplaceAll(base, ".", "_")
}

// OutputName builds the canonical output file name for any stage of a
// trial. The name is a pure function of its key: two components computing
// the same (tag, label, steer, stage, analysis) always agree byte for byte.
func OutputName(tag, label, steer string, stage Stage, analysis string) string {
	var suffix string
	switch stage {
	case StageSim:
		suffix = simSuffix
	case StageRec:
		suffix = recSuffix
	case StageAna:
		suffix = "_" + analysis
	}
	return prefix + "_" + string(stage) + "." + tag + "_" + label + "_" + steer + suffix + containerExt
}

// ScriptName builds the canonical runner-script name for a stage.
func ScriptName(tag, label, steer string, stage Stage) string {
	return "do_" + prefix + "_" + string(stage) + "." + tag + "_" + label + "_" + steer + ".sh"
}

// SidecarName maps a stage output name to its plain-text sidecar record,
// the sole channel through which a scalar objective is read back.
func SidecarName(outputName string) string {
	return strings.TrimSuffix(outputName, containerExt) + sidecarExt
}

// FitName maps an analysis output name to the persisted histogram/fit
// document kept for later inspection.
func FitName(outputName string) string {
	return strings.TrimSuffix(outputName, containerExt) + ".fit.json"
}
