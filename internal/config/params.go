package config

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ErrUnknownParam indicates a parameter name SetParam cannot resolve.
var ErrUnknownParam = errors.New("config: unknown parameter")

// Clone returns a deep copy of c.
func (c *Config) Clone() *Config {
	out := *c
	out.Materials = make([]MaterialConfig, len(c.Materials))
	for i, m := range c.Materials {
		params := make(map[string]float64, len(m.Params))
		for k, v := range m.Params {
			params[k] = v
		}
		m.Params = params
		out.Materials[i] = m
	}
	if c.Mesh.Structured != nil {
		s := *c.Mesh.Structured
		out.Mesh.Structured = &s
	}
	if c.Particles.Blocks != nil {
		out.Particles.Blocks = append([]BlockConfig(nil), c.Particles.Blocks...)
	}
	return &out
}

// SetParam sets one numeric parameter by name. Simulation parameters use
// their yaml names (dt, steps, output_every, workers, gravity_x,
// gravity_y, mass_tolerance), lid_velocity addresses the structured mesh
// and material.<id>.<param> addresses a material constant.
func (c *Config) SetParam(name string, v float64) error {
	s := &c.Simulation
	switch name {
	case "dt":
		s.Dt = v
	case "steps":
		s.Steps = int(v)
	case "output_every":
		s.OutputEvery = int(v)
	case "workers":
		s.Workers = int(v)
	case "gravity_x":
		s.Gravity[0] = v
	case "gravity_y":
		s.Gravity[1] = v
	case "mass_tolerance":
		s.MassTolerance = v
	case "lid_velocity":
		if c.Mesh.Structured == nil {
			return fmt.Errorf("%w: lid_velocity needs a structured mesh", ErrUnknownParam)
		}
		c.Mesh.Structured.LidVelocity = v
	default:
		return c.setMaterialParam(name, v)
	}
	return nil
}

func (c *Config) setMaterialParam(name string, v float64) error {
	parts := strings.SplitN(name, ".", 3)
	if len(parts) != 3 || parts[0] != "material" {
		return fmt.Errorf("%w: %s", ErrUnknownParam, name)
	}
	id, err := strconv.Atoi(parts[1])
	if err != nil {
		return fmt.Errorf("%w: %s", ErrUnknownParam, name)
	}
	for i := range c.Materials {
		if c.Materials[i].ID != id {
			continue
		}
		if c.Materials[i].Params == nil {
			c.Materials[i].Params = make(map[string]float64)
		}
		c.Materials[i].Params[parts[2]] = v
		return nil
	}
	return fmt.Errorf("%w: no material %d", ErrUnknownParam, id)
}

// Params lists the names SetParam accepts for c.
func (c *Config) Params() []string {
	names := []string{"dt", "steps", "output_every", "workers", "gravity_x", "gravity_y", "mass_tolerance"}
	if c.Mesh.Structured != nil {
		names = append(names, "lid_velocity")
	}
	var mat []string
	for _, m := range c.Materials {
		for k := range m.Params {
			mat = append(mat, fmt.Sprintf("material.%d.%s", m.ID, k))
		}
	}
	sort.Strings(mat)
	return append(names, mat...)
}
