package glgpu

import (
	"embed"
	"io/fs"
	"path"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/umbra/internal/engine/gpu"
	"github.com/Faultbox/umbra/internal/logger"
)

//go:embed shaders/*.vert shaders/*.geom shaders/*.frag
var builtin embed.FS

// Shader is a compiled GL shader object.
type Shader struct {
	id    uint32
	stage gpu.Stage
	name  string
	// faces is the instance count of each draw: a vertex shader writing
	// gl_Layer renders all cube faces from one draw.
	faces int32
}

func (s *Shader) Stage() gpu.Stage { return s.stage }
func (s *Shader) Name() string     { return s.name }

// variant compiles base again with a preprocessor define.
type variant struct {
	name, base, define string
}

var variants = []variant{
	{"PS_DS_PointLightDynShadow", "PS_DS_PointLight", "SHADOW"},
	{"PS_DS_AtmosphericScattering_Rain", "PS_DS_AtmosphericScattering", "RAIN"},
}

type libKey struct {
	stage gpu.Stage
	name  string
}

// Library holds the compiled shaders. Shaders failing to compile are
// logged and left out so the passes needing them skip.
type Library struct {
	shaders map[libKey]*Shader
	log     *zap.Logger
}

// NewLibrary compiles the built-in shaders.
func NewLibrary() *Library {
	return LoadLibrary(builtin)
}

// LoadLibrary compiles every .vert, .geom and .frag file under shaders/ in
// fsys.
func LoadLibrary(fsys fs.FS) *Library {
	l := &Library{
		shaders: make(map[libKey]*Shader),
		log:     logger.Named("glgpu"),
	}
	entries, err := fs.ReadDir(fsys, "shaders")
	if err != nil {
		l.log.Error("reading shaders failed", zap.Error(err))
		return l
	}

	sources := make(map[libKey]string)
	for _, e := range entries {
		name, stage, ok := shaderFile(e.Name())
		if !ok {
			continue
		}
		data, err := fs.ReadFile(fsys, path.Join("shaders", e.Name()))
		if err != nil {
			l.log.Warn("reading shader failed", zap.String("file", e.Name()), zap.Error(err))
			continue
		}
		sources[libKey{stage, name}] = string(data)
		l.compile(stage, name, string(data))
	}
	for _, v := range variants {
		if src, ok := sources[libKey{gpu.StagePixel, v.base}]; ok {
			l.compile(gpu.StagePixel, v.name, withDefine(src, v.define))
		}
	}
	l.log.Info("shaders compiled", zap.Int("count", len(l.shaders)))
	return l
}

func (l *Library) compile(stage gpu.Stage, name, src string) {
	id, err := compileShader(src, stage)
	if err != nil {
		l.log.Warn("shader unavailable", zap.String("shader", name), zap.Error(err))
		return
	}
	s := &Shader{id: id, stage: stage, name: name, faces: 1}
	if stage == gpu.StageVertex && strings.Contains(src, "gl_Layer") {
		s.faces = gpu.CubeFaces
	}
	l.shaders[libKey{stage, name}] = s
}

// Shader implements gpu.ShaderLibrary.
func (l *Library) Shader(stage gpu.Stage, name string) gpu.Shader {
	if s, ok := l.shaders[libKey{stage, name}]; ok {
		return s
	}
	return nil
}

// Release deletes the shader objects. Linked programs keep working.
func (l *Library) Release() {
	for k, s := range l.shaders {
		gl.DeleteShader(s.id)
		delete(l.shaders, k)
	}
}
