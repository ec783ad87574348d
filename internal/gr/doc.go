// Package gr adds first-order post-Newtonian (1PN) corrections to the
// Newtonian accelerations of an N-body system.
//
// Three variants are available:
//
//   - Full: the Einstein-Infeld-Hoffmann equations, every massive particle
//     is a source.
//   - SingleSource: the 1PN field of one dominant mass acting on all other
//     particles.
//   - Potential: a velocity-independent effective potential around one
//     source. It gets the pericenter precession right and keeps symplectic
//     integrators symplectic. It has no Hamiltonian; DiagnosticEnergy
//     reports the energy it conserves instead.
//
// A Corrector is immutable after New and safe for concurrent use on
// distinct snapshots. It never mutates its input.
package gr
