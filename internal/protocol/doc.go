// Package protocol owns transmission analysis.
//
// Ownership boundary:
// - bitstream primitives (package bitstream)
// - packet tree decode, encode and evaluation (package packet)
// - tree export formats (package export)
// - single and batch analysis entry points (this package)
package protocol
