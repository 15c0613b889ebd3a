package solver

// Phase is one barrier-separated stage of a step.
type Phase int

const (
	PhaseResetGrid Phase = iota
	PhaseLocate
	PhaseKinematics
	PhaseMapMassMomentum
	PhaseNodalVelocity
	PhaseMapForces
	PhaseSolveNodes
	PhaseStrainRate
	PhaseVolumetricAverage
	PhaseStressUpdate
	PhasePressureSmoothing
	PhaseUpdateVelocity
	PhaseRemapMomentum
	PhaseAdvect
	PhaseValidate
)

var phaseNames = [...]string{
	PhaseResetGrid:         "reset_grid",
	PhaseLocate:            "locate",
	PhaseKinematics:        "kinematics",
	PhaseMapMassMomentum:   "map_mass_momentum",
	PhaseNodalVelocity:     "nodal_velocity",
	PhaseMapForces:         "map_forces",
	PhaseSolveNodes:        "solve_nodes",
	PhaseStrainRate:        "strain_rate",
	PhaseVolumetricAverage: "volumetric_average",
	PhaseStressUpdate:      "stress_update",
	PhasePressureSmoothing: "pressure_smoothing",
	PhaseUpdateVelocity:    "update_velocity",
	PhaseRemapMomentum:     "remap_momentum",
	PhaseAdvect:            "advect",
	PhaseValidate:          "validate",
}

func (p Phase) String() string {
	if p >= 0 && int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return "unknown"
}

// Phases returns the ordered phase list for cfg.
func Phases(cfg Config) []Phase {
	phases := []Phase{
		PhaseResetGrid,
		PhaseLocate,
		PhaseKinematics,
		PhaseMapMassMomentum,
		PhaseNodalVelocity,
		PhaseMapForces,
		PhaseSolveNodes,
	}
	if cfg.Scheme == SchemeMUSL {
		phases = append(phases, PhaseUpdateVelocity, PhaseRemapMomentum)
	}
	phases = append(phases, PhaseStrainRate, PhaseVolumetricAverage, PhaseStressUpdate)
	if cfg.PressureSmoothing {
		phases = append(phases, PhasePressureSmoothing)
	}
	if cfg.Scheme != SchemeMUSL {
		phases = append(phases, PhaseUpdateVelocity)
	}
	phases = append(phases, PhaseAdvect)
	if cfg.ValidateState {
		phases = append(phases, PhaseValidate)
	}
	return phases
}
