package nullgpu

import "github.com/Faultbox/umbra/internal/engine/gpu"

// Shader is a named placeholder shader.
type Shader struct {
	stage gpu.Stage
	name  string
}

func (s *Shader) Stage() gpu.Stage { return s.stage }
func (s *Shader) Name() string     { return s.name }

// Library returns a shader for every name except those marked missing.
// Repeated lookups return the same handle.
type Library struct {
	missing map[string]bool
	shaders map[string]*Shader
}

// NewLibrary returns a library where the listed names are absent.
func NewLibrary(missing ...string) *Library {
	l := &Library{
		missing: make(map[string]bool),
		shaders: make(map[string]*Shader),
	}
	for _, name := range missing {
		l.missing[name] = true
	}
	return l
}

// Shader implements gpu.ShaderLibrary.
func (l *Library) Shader(stage gpu.Stage, name string) gpu.Shader {
	if l.missing[name] {
		return nil
	}
	key := stage.String() + "/" + name
	s, ok := l.shaders[key]
	if !ok {
		s = &Shader{stage: stage, name: name}
		l.shaders[key] = s
	}
	return s
}

var _ gpu.ShaderLibrary = (*Library)(nil)
