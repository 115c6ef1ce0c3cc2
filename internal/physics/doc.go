// Package physics provides the social-force model of pedestrian motion.
//
// [SocialForce] implements [dynamo.ForceField]. Each agent relaxes towards
// its desired velocity and is pushed away from other agents and walls by
//
//	f = (A exp((r - d)/B) + k g(r - d)) n + kappa g(r - d) dv_t t
//
// where d is the distance to the other body, r the contact distance, n the
// unit normal pointing towards the agent, t = n rotated by 90 degrees, dv_t
// the relative tangential speed and g the ramp function [RampUp]. The first
// term is a smooth long-range repulsion; the k and kappa terms only act while
// bodies overlap.
//
// Pairwise interactions go through a [PairAccumulator] so the O(n^2)
// [AllPairs] loop can be swapped for a neighbour search without touching the
// force law.
//
//	sf, err := physics.New(physics.DefaultParams())
//	acc, err := sf.Acceleration(scene.Agents, scene.Walls)
package physics
