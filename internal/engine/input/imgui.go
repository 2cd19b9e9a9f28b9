package input

import (
	"maps"
	"slices"

	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/veandco/go-sdl2/sdl"
)

// imguiKeys maps the bound scancodes to ImGui keys.
var imguiKeys = map[sdl.Scancode]imgui.Key{
	sdl.SCANCODE_ESCAPE: imgui.KeyEscape,
	sdl.SCANCODE_W:      imgui.KeyW,
	sdl.SCANCODE_A:      imgui.KeyA,
	sdl.SCANCODE_S:      imgui.KeyS,
	sdl.SCANCODE_D:      imgui.KeyD,
	sdl.SCANCODE_Q:      imgui.KeyQ,
	sdl.SCANCODE_E:      imgui.KeyE,
	sdl.SCANCODE_C:      imgui.KeyC,
	sdl.SCANCODE_F:      imgui.KeyF,
	sdl.SCANCODE_P:      imgui.KeyP,
	sdl.SCANCODE_R:      imgui.KeyR,
	sdl.SCANCODE_L:      imgui.KeyL,
	sdl.SCANCODE_T:      imgui.KeyT,
	sdl.SCANCODE_I:      imgui.KeyI,
	sdl.SCANCODE_H:      imgui.KeyH,
	sdl.SCANCODE_F11:    imgui.KeyF11,
	sdl.SCANCODE_F12:    imgui.KeyF12,
}

// boundKeys lists the mapped scancodes in a stable order.
var boundKeys = slices.Sorted(maps.Keys(imguiKeys))

// PointerState is the mouse state of one frame.
type PointerState struct {
	LeftDown     bool
	DeltaX       float32
	DeltaY       float32
	Wheel        float32
	X, Y         float32
	Captured     bool // the mouse is over an ImGui window
	KeysCaptured bool // an ImGui widget has keyboard focus
}

// UpdateFromUI reads the ImGui key and mouse state of this frame and feeds
// it. Use it instead of Update when the ImGui backend owns the event loop.
// Returns true if the viewer should quit.
func (i *Input) UpdateFromUI() bool {
	io := imgui.CurrentIO()
	delta := io.MouseDelta()
	pos := imgui.MousePos()
	p := PointerState{
		LeftDown:     imgui.IsMouseDown(imgui.MouseButtonLeft),
		DeltaX:       delta.X,
		DeltaY:       delta.Y,
		Wheel:        io.MouseWheel(),
		X:            pos.X,
		Y:            pos.Y,
		Captured:     io.WantCaptureMouse(),
		KeysCaptured: io.WantCaptureKeyboard(),
	}
	return i.Feed(i.poll(func(sc sdl.Scancode) bool {
		return imgui.IsKeyDown(imguiKeys[sc])
	}, p)...)
}

// poll turns key and mouse state into the transitions since the previous
// frame. down reports whether a bound key is held.
func (i *Input) poll(down func(sdl.Scancode) bool, p PointerState) []Event {
	var events []Event
	for _, sc := range boundKeys {
		isDown := down(sc) && !p.KeysCaptured
		switch {
		case isDown && !i.held[sc]:
			events = append(events, Event{Type: EventKeyDown, Key: sc})
		case !isDown && i.held[sc]:
			events = append(events, Event{Type: EventKeyUp, Key: sc})
		}
	}

	x, y := int(p.X), int(p.Y)
	left := p.LeftDown && !p.Captured
	switch {
	case left && !i.dragging:
		events = append(events, Event{Type: EventMouseDown, Button: sdl.BUTTON_LEFT, MouseX: x, MouseY: y})
	case !left && i.dragging:
		events = append(events, Event{Type: EventMouseUp, Button: sdl.BUTTON_LEFT, MouseX: x, MouseY: y})
	}
	if p.Captured {
		return events
	}
	if p.DeltaX != 0 || p.DeltaY != 0 {
		events = append(events, Event{
			Type:   EventMouseMove,
			MouseX: x,
			MouseY: y,
			RelX:   int(p.DeltaX),
			RelY:   int(p.DeltaY),
		})
	}
	if p.Wheel != 0 {
		events = append(events, Event{Type: EventMouseWheel, Wheel: p.Wheel})
	}
	return events
}
