// Package nbody is the gravitational N-body host: particles, Newtonian
// pairwise gravity without softening, and an explicit list of attached
// effects that perturb it.
//
// Effects are attached either as forces, summed into every derivative
// evaluation, or as operators, applied as velocity kicks around each host
// step by an OperatorStepper.
//
// The packed state layout is all positions (x, y, z per particle) followed
// by all velocities, so position/velocity splitting integrators see the
// first half as coordinates.
package nbody
