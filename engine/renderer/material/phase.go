package material

import (
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/shader"
)

// Phase is a single render phase bit. A pass belongs to exactly one phase; queues select passes
// with a mask of phases.
type Phase uint32

// MaxPhases is the number of distinct phase bits.
const MaxPhases = 32

const (
	// PhaseDefault is the main forward phase.
	PhaseDefault Phase = 1 << iota

	// PhaseForwardAdd is the additive per-light phase.
	PhaseForwardAdd

	// PhaseShadowCaster renders depth into the shadow map.
	PhaseShadowCaster

	// PhasePlanarShadow renders projected planar shadows.
	PhasePlanarShadow

	// PhaseDeferred is the deferred geometry phase.
	PhaseDeferred

	// PhaseUI renders 2D UI geometry.
	PhaseUI
)

var phaseNames = map[string]Phase{
	"default":       PhaseDefault,
	"forward-add":   PhaseForwardAdd,
	"shadow-caster": PhaseShadowCaster,
	"planarShadow":  PhasePlanarShadow,
	"deferred":      PhaseDeferred,
	"ui":            PhaseUI,
}

// PhaseByName looks up a phase by its name.
//
// Parameters:
//   - name: the phase name, e.g. "forward-add"
//
// Returns:
//   - Phase: the phase bit, 0 when unknown
//   - bool: true if the name is a known phase
func PhaseByName(name string) (Phase, bool) {
	p, ok := phaseNames[name]
	return p, ok
}

// PhaseMask combines named phases into a mask. Unknown names are ignored.
func PhaseMask(names ...string) Phase {
	var mask Phase
	for _, n := range names {
		mask |= phaseNames[n]
	}
	return mask
}

func (p Phase) String() string {
	for name, phase := range phaseNames {
		if phase == p {
			return name
		}
	}
	return "unknown"
}

// BatchingScheme selects how sub-models using a pass are merged into fewer draws.
type BatchingScheme uint32

const (
	// BatchingNone draws every sub-model on its own.
	BatchingNone BatchingScheme = iota

	// BatchingInstancing merges sub-models sharing a mesh into one instanced draw.
	BatchingInstancing

	// BatchingVBMerging merges the vertex buffers of small sub-models into one draw.
	BatchingVBMerging
)

// MacroPatch overrides a pass define when requesting a shader variant.
type MacroPatch = shader.Define
