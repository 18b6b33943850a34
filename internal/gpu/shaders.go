package gpu

import (
	"embed"
	"fmt"
	"strings"
)

// Shader sources for the five rendering modes and the automaton step.
// Every shader defines the entry points vs_main and fs_main and reads its
// uniforms from group 0, binding 0.

//go:embed shaders/polygon.wgsl
var polygonShaderSource string

//go:embed shaders/particle.wgsl
var particleShaderSource string

//go:embed shaders/flow.wgsl
var flowShaderSource string

//go:embed shaders/life.wgsl
var lifeShaderSource string

//go:embed shaders/life_step.wgsl
var lifeStepShaderSource string

//go:embed shaders/tree.wgsl
var treeShaderSource string

//go:embed shaders/*.wgsl
var shaderFS embed.FS

// Shader names accepted by ShaderSource.
const (
	ShaderPolygon  = "polygon"
	ShaderParticle = "particle"
	ShaderFlow     = "flow"
	ShaderLife     = "life"
	ShaderLifeStep = "life_step"
	ShaderTree     = "tree"
)

// ShaderSource returns the embedded WGSL source for the named shader.
func ShaderSource(name string) (string, error) {
	switch name {
	case ShaderPolygon:
		return polygonShaderSource, nil
	case ShaderParticle:
		return particleShaderSource, nil
	case ShaderFlow:
		return flowShaderSource, nil
	case ShaderLife:
		return lifeShaderSource, nil
	case ShaderLifeStep:
		return lifeStepShaderSource, nil
	case ShaderTree:
		return treeShaderSource, nil
	}
	return "", fmt.Errorf("gpu: unknown shader %q", name)
}

// ShaderNames lists every embedded shader, sorted by file name.
func ShaderNames() []string {
	entries, err := shaderFS.ReadDir("shaders")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if n, ok := strings.CutSuffix(e.Name(), ".wgsl"); ok {
			names = append(names, n)
		}
	}
	return names
}
