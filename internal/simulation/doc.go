// Package simulation writes synthetic ensembles to disk.
//
// A Scenario describes a set of simulations that share a grid and a list of
// scalar fields, with a value function per field. Write lays the scenario
// out in the directory structure and timestep file format the ensemble
// loader reads, one subdirectory per simulation and one file per timestep:
//
//	root/
//	    sim_00/step_000.txt
//	    sim_00/step_001.txt
//	    sim_01/step_000.txt
//	    ...
//
// Scenarios back the tests of the loader and analysis layers, and the
// generate command, which produces demo data.
//
// Usage:
//
//	sc := simulation.Scenario{
//	    Simulations: 20, Steps: 5,
//	    Width: 8, Height: 8, Depth: 1,
//	    Fields: []simulation.FieldSpec{simulation.Bimodal("density", 20, 0, 10, 1)},
//	}
//	if err := sc.Write(dir); err != nil { ... }
package simulation
