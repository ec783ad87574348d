// Package viz renders run results in the terminal.
//
// Styles wrap lipgloss for headers, metric labels and the comparison table.
// Plots are asciigraph line charts of series derived from a stored
// trajectory:
//
//   - [HamiltonianError]: relative error of the conserved energy per sample
//   - [PericentreSeries]: unwrapped longitude of pericentre of one body
//   - [Plot]: a captioned chart of any series
package viz
