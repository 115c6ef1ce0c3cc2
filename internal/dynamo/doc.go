// Package dynamo provides the core primitives of the crowd simulator.
//
// The package defines the entities and contracts shared by the force model,
// the integrator and the driver loop:
//
//   - [Vec2]: 2D vector used for positions, velocities and forces
//   - [Agent]: self-propelled pedestrian with a goal
//   - [Wall]: line-segment obstacle
//   - [Scene]: the fixed set of agents and walls of one run
//   - [ForceField]: computes per-agent accelerations from a scene snapshot
//   - [Stepper]: advances a scene by one time step
//   - [Simulator]: orchestrates simulation runs
//
// # Example
//
//	field, _ := physics.New(physics.DefaultParams())
//	sim := dynamo.New(field, integrators.NewEuler())
//	result, _ := sim.Run(ctx, scene, dynamo.DefaultConfig())
//
// # Thread Safety
//
// Simulator instances and scenes are NOT thread-safe. A step reads every
// agent before it writes any of them, so a scene must not be shared between
// concurrent runs. Use [Ensemble] to run independent scenes in parallel.
package dynamo
