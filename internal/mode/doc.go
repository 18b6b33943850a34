// Package mode implements the five rendering modes of the engine behind
// one interface.
//
// A Mode owns every GPU object it creates between Activate and Release:
// its program, geometry and uniform buffers, bind groups and, for the
// automaton, the two state textures. The engine never reaches into a
// mode's resources; it drives the mode through Configure, Update,
// Prepare and Draw and releases it before activating another one.
package mode
