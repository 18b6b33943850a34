// Package sim holds the host-side simulation state of the dynamic modes:
// pointer-attracted particles, flow-field advection and the cellular
// automaton.
//
// All simulations live in the normalized domain [-1, 1]², the same space
// the shaders draw in, and advance by explicit Step calls with a delta
// time in seconds. Nothing here touches the GPU; the mode layer uploads
// the arrays after each step.
package sim
