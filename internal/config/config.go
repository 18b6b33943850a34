package config

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"golang.org/x/image/colornames"
	"gopkg.in/yaml.v3"

	"github.com/gogpu/shapes"
)

// Preset errors.
var (
	// ErrUnknownFormat is returned for a preset path whose extension is
	// neither .yaml, .yml nor .toml.
	ErrUnknownFormat = errors.New("config: unknown preset format")

	// ErrInvalidPreset is returned when a preset decodes but names an
	// unknown mode, variant or color.
	ErrInvalidPreset = errors.New("config: invalid preset")
)

// Format is a preset file encoding.
type Format int

const (
	FormatYAML Format = iota
	FormatTOML
)

// FormatOf returns the format for a file path by extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownFormat, path)
}

// Particles is the particle section of a preset.
type Particles struct {
	Size     float32 `yaml:"size" toml:"size"`
	MaxSpeed float32 `yaml:"max_speed" toml:"max_speed"`
}

// Flow is the flow field section of a preset.
type Flow struct {
	Scale float32 `yaml:"scale" toml:"scale"`
	Speed float32 `yaml:"speed" toml:"speed"`
}

// Automaton is the cellular automaton section of a preset.
type Automaton struct {
	SimSpeed    int     `yaml:"sim_speed" toml:"sim_speed"`
	Paused      bool    `yaml:"paused" toml:"paused"`
	BrushRadius float32 `yaml:"brush_radius" toml:"brush_radius"`
	Density     float32 `yaml:"density" toml:"density"`
}

// Tree is the fractal tree section of a preset.
type Tree struct {
	BranchCount  int     `yaml:"branch_count" toml:"branch_count"`
	WindStrength float32 `yaml:"wind_strength" toml:"wind_strength"`
}

// Preset is a saved scene: a mode, its element count and the options it
// is drawn with. Keys missing from a file keep their Default values.
type Preset struct {
	Name  string `yaml:"name,omitempty" toml:"name,omitempty"`
	Mode  string `yaml:"mode" toml:"mode"`
	Count uint32 `yaml:"count" toml:"count"`

	// Background is a CSS color name or #rgb, #rrggbb, #rrggbbaa. Empty
	// keeps the animated default background.
	Background string `yaml:"background,omitempty" toml:"background,omitempty"`

	Animate  bool       `yaml:"animate" toml:"animate"`
	Center   [2]float32 `yaml:"center,flow" toml:"center"`
	Scale    float32    `yaml:"scale" toml:"scale"`
	Spacing  float32    `yaml:"spacing" toml:"spacing"`
	Rotation float32    `yaml:"rotation" toml:"rotation"`
	Variant  string     `yaml:"variant" toml:"variant"`

	Particles Particles `yaml:"particles" toml:"particles"`
	Flow      Flow      `yaml:"flow" toml:"flow"`
	Automaton Automaton `yaml:"automaton" toml:"automaton"`
	Tree      Tree      `yaml:"tree" toml:"tree"`
}

// Default returns a polygon row preset with the engine's default options.
func Default() *Preset {
	o := shapes.DefaultRenderOptions()
	return &Preset{
		Mode:     shapes.ModePolygonRow.String(),
		Count:    8,
		Animate:  o.Animate,
		Center:   o.Center,
		Scale:    o.Scale,
		Spacing:  o.Spacing,
		Rotation: o.Rotation,
		Variant:  o.Variant.String(),
		Particles: Particles{
			Size:     o.Particles.ParticleSize,
			MaxSpeed: o.Particles.MaxSpeed,
		},
		Flow: Flow{Scale: o.Flow.FlowScale, Speed: o.Flow.FlowSpeed},
		Automaton: Automaton{
			SimSpeed:    o.Automaton.SimSpeed,
			Paused:      o.Automaton.Paused,
			BrushRadius: o.Automaton.BrushRadius,
			Density:     o.Automaton.Density,
		},
		Tree: Tree{BranchCount: o.Tree.BranchCount, WindStrength: o.Tree.WindStrength},
	}
}

// Load reads and validates the preset at path. The format is chosen by
// extension.
func Load(path string) (*Preset, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	p, err := Parse(b, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Parse decodes a preset over Default and validates it. Unknown keys are
// rejected.
func Parse(data []byte, format Format) (*Preset, error) {
	p := Default()
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(p); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("config: decode yaml: %w", err)
		}
	case FormatTOML:
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(p); err != nil {
			return nil, fmt.Errorf("config: decode toml: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownFormat, int(format))
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Save writes p to path, encoded by extension.
func Save(path string, p *Preset) error {
	format, err := FormatOf(path)
	if err != nil {
		return err
	}
	var b []byte
	switch format {
	case FormatTOML:
		b, err = toml.Marshal(p)
	default:
		b, err = yaml.Marshal(p)
	}
	if err != nil {
		return fmt.Errorf("config: encode %s: %w", path, err)
	}
	return os.WriteFile(path, b, 0o644)
}

// Validate checks the names a preset refers to. Numeric ranges are left
// to the engine, which clamps them.
func (p *Preset) Validate() error {
	if _, err := ParseMode(p.Mode); err != nil {
		return err
	}
	if _, err := shapes.ParseVariant(p.Variant); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPreset, err)
	}
	if _, _, err := p.BackgroundColor(); err != nil {
		return err
	}
	return nil
}

// Kind returns the preset's mode.
func (p *Preset) Kind() shapes.ModeKind {
	k, _ := ParseMode(p.Mode)
	return k
}

// Options returns the render options the preset describes.
func (p *Preset) Options() shapes.RenderOptions {
	v, _ := shapes.ParseVariant(p.Variant)
	return shapes.RenderOptions{
		Animate:  p.Animate,
		Center:   p.Center,
		Scale:    p.Scale,
		Spacing:  p.Spacing,
		Rotation: p.Rotation,
		Variant:  v,
		Particles: shapes.ParticleOptions{
			ParticleSize: p.Particles.Size,
			MaxSpeed:     p.Particles.MaxSpeed,
		},
		Flow: shapes.FlowOptions{FlowScale: p.Flow.Scale, FlowSpeed: p.Flow.Speed},
		Automaton: shapes.AutomatonOptions{
			SimSpeed:    p.Automaton.SimSpeed,
			Paused:      p.Automaton.Paused,
			BrushRadius: p.Automaton.BrushRadius,
			Density:     p.Automaton.Density,
		},
		Tree: shapes.TreeOptions{
			BranchCount:  p.Tree.BranchCount,
			WindStrength: p.Tree.WindStrength,
		},
	}
}

// BackgroundColor resolves Background. ok is false when it is empty.
func (p *Preset) BackgroundColor() (c color.RGBA, ok bool, err error) {
	s := strings.TrimSpace(strings.ToLower(p.Background))
	if s == "" {
		return color.RGBA{}, false, nil
	}
	if strings.HasPrefix(s, "#") {
		c, err = parseHex(s[1:])
		if err != nil {
			return color.RGBA{}, false, fmt.Errorf("%w: background %q", ErrInvalidPreset, p.Background)
		}
		return c, true, nil
	}
	c, found := colornames.Map[s]
	if !found {
		return color.RGBA{}, false, fmt.Errorf("%w: unknown color name %q", ErrInvalidPreset, p.Background)
	}
	return c, true, nil
}

func parseHex(s string) (color.RGBA, error) {
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) == 6 {
		s += "ff"
	}
	if len(s) != 8 {
		return color.RGBA{}, strconv.ErrSyntax
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.RGBA{}, err
	}
	return color.RGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

// ParseMode parses a mode name as returned by ModeKind.String. Dashes
// are accepted in place of underscores.
func ParseMode(s string) (shapes.ModeKind, error) {
	name := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for _, k := range []shapes.ModeKind{
		shapes.ModePolygonRow,
		shapes.ModeParticles,
		shapes.ModeFlowField,
		shapes.ModeAutomaton,
		shapes.ModeTree,
	} {
		if k.String() == name {
			return k, nil
		}
	}
	return shapes.ModeNone, fmt.Errorf("%w: unknown mode %q", ErrInvalidPreset, s)
}

// Apply sets the background, if any, and draws the preset on e.
func (p *Preset) Apply(e *shapes.Engine) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if c, ok, _ := p.BackgroundColor(); ok {
		const f = 1.0 / 255
		if err := e.Clear(float32(c.R)*f, float32(c.G)*f, float32(c.B)*f, float32(c.A)*f); err != nil {
			return err
		}
	}
	opt := shapes.WithOptions(p.Options())
	switch p.Kind() {
	case shapes.ModeParticles:
		return e.DrawParticles(p.Count, opt)
	case shapes.ModeFlowField:
		return e.DrawFlowField(p.Count, opt)
	case shapes.ModeAutomaton:
		return e.DrawCellularAutomata(p.Count, opt)
	case shapes.ModeTree:
		return e.DrawFractalTree(p.Count, opt)
	default:
		return e.DrawPolygonRow(p.Count, opt)
	}
}
