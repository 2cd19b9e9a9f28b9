package glgpu

import (
	"fmt"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/Faultbox/umbra/internal/engine/gpu"
)

var glStages = [...]uint32{
	gpu.StageVertex:   gl.VERTEX_SHADER,
	gpu.StageGeometry: gl.GEOMETRY_SHADER,
	gpu.StagePixel:    gl.FRAGMENT_SHADER,
}

// compileShader compiles a single shader of the given stage.
func compileShader(source string, stage gpu.Stage) (uint32, error) {
	shader := gl.CreateShader(glStages[stage])
	csource, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csource, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLen)
		log := strings.Repeat("\x00", int(logLen+1))
		gl.GetShaderInfoLog(shader, logLen, nil, gl.Str(log))
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("%s shader: %s", stage, strings.TrimRight(log, "\x00"))
	}
	return shader, nil
}

// linkProgram links the shaders of set and wires its uniform blocks and
// samplers to the stage slot binding points.
func linkProgram(set gpu.ShaderSet) (uint32, error) {
	program := gl.CreateProgram()
	for _, s := range []gpu.Shader{set.Vertex, set.Geometry, set.Pixel} {
		if sh, ok := s.(*Shader); ok && sh != nil {
			gl.AttachShader(program, sh.id)
		}
	}
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLen)
		log := strings.Repeat("\x00", int(logLen+1))
		gl.GetProgramInfoLog(program, logLen, nil, gl.Str(log))
		gl.DeleteProgram(program)
		return 0, fmt.Errorf("link: %s", strings.TrimRight(log, "\x00"))
	}

	gl.UseProgram(program)
	for stage := range stagePrefix {
		st := gpu.Stage(stage)
		for slot := 0; slot < slotsPerStage; slot++ {
			b := binding(st, slot)
			block := gl.GetUniformBlockIndex(program, gl.Str(blockName(st, slot)+"\x00"))
			if block != gl.INVALID_INDEX {
				gl.UniformBlockBinding(program, block, b)
			}
			if loc := gl.GetUniformLocation(program, gl.Str(textureName(st, slot)+"\x00")); loc >= 0 {
				gl.Uniform1i(loc, int32(b))
			}
		}
	}
	return program, nil
}

type programKey struct {
	vertex, geometry, pixel *Shader
}

func keyOf(set gpu.ShaderSet) programKey {
	var k programKey
	k.vertex, _ = set.Vertex.(*Shader)
	k.geometry, _ = set.Geometry.(*Shader)
	k.pixel, _ = set.Pixel.(*Shader)
	return k
}
