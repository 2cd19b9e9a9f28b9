package glgpu

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"reflect"
	"strings"

	"github.com/Faultbox/umbra/internal/engine/gpu"
)

// slotsPerStage is how many constant buffers and textures each stage
// addresses. Stage s slot i maps to binding point and texture unit
// s*slotsPerStage+i.
const slotsPerStage = 8

var stagePrefix = [...]string{
	gpu.StageVertex:   "VS",
	gpu.StageGeometry: "GS",
	gpu.StagePixel:    "PS",
}

func validSlot(stage gpu.Stage, slot int) bool {
	return stage >= 0 && int(stage) < len(stagePrefix) && slot >= 0 && slot < slotsPerStage
}

// binding returns the uniform block binding point and texture unit of a
// stage slot.
func binding(stage gpu.Stage, slot int) uint32 {
	return uint32(int(stage)*slotsPerStage + slot)
}

// blockName is the GLSL uniform block a stage slot feeds, e.g. "PS_CB1".
func blockName(stage gpu.Stage, slot int) string {
	return fmt.Sprintf("%s_CB%d", stagePrefix[stage], slot)
}

// textureName is the GLSL sampler uniform of a stage slot, e.g. "PS_Tex3".
func textureName(stage gpu.Stage, slot int) string {
	return fmt.Sprintf("%s_Tex%d", stagePrefix[stage], slot)
}

// packer serializes constant structs. The GLSL blocks are declared std140
// with members ordered so the packed Go layout matches.
type packer struct {
	buf bytes.Buffer
}

func (p *packer) pack(data any) ([]byte, error) {
	v := reflect.ValueOf(data)
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: constants must be a struct pointer, got %T", gpu.ErrInvalidDesc, data)
	}
	p.buf.Reset()
	if err := binary.Write(&p.buf, binary.NativeEndian, data); err != nil {
		return nil, fmt.Errorf("%w: packing %T: %v", gpu.ErrInvalidDesc, data, err)
	}
	return p.buf.Bytes(), nil
}

// shaderFile maps a file name to its shader name and stage.
func shaderFile(file string) (name string, stage gpu.Stage, ok bool) {
	dot := strings.LastIndexByte(file, '.')
	if dot <= 0 {
		return "", 0, false
	}
	name = file[:dot]
	switch file[dot+1:] {
	case "vert":
		return name, gpu.StageVertex, true
	case "geom":
		return name, gpu.StageGeometry, true
	case "frag":
		return name, gpu.StagePixel, true
	}
	return "", 0, false
}

// withDefine inserts "#define name" after the #version and #extension lines.
func withDefine(src, name string) string {
	lines := strings.SplitAfter(src, "\n")
	at := 0
	for i, l := range lines {
		t := strings.TrimSpace(l)
		if strings.HasPrefix(t, "#version") || strings.HasPrefix(t, "#extension") {
			at = i + 1
		}
	}
	out := make([]string, 0, len(lines)+1)
	out = append(out, lines[:at]...)
	if at > 0 && !strings.HasSuffix(lines[at-1], "\n") {
		out = append(out, "\n")
	}
	out = append(out, "#define "+name+"\n")
	out = append(out, lines[at:]...)
	return strings.Join(out, "")
}
