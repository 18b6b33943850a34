// Package config loads scene presets for the shapes engine.
//
// A preset names a mode, its element count and the render options it is
// drawn with. Presets are YAML or TOML files, chosen by extension:
//
//	name: starfield
//	mode: particles
//	count: 4000
//	background: midnightblue
//	particles:
//	  size: 2
//	  max_speed: 4
//
// Keys a file omits keep the engine defaults. Watch reloads a preset when
// its file changes.
package config
