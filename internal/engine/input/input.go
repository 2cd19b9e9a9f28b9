// Package input turns SDL2 events into viewer camera moves and actions.
package input

import (
	"github.com/veandco/go-sdl2/sdl"

	"github.com/Faultbox/umbra/internal/engine/camera"
)

// EventType is the kind of a processed event.
type EventType int

const (
	EventNone EventType = iota
	EventQuit
	EventWindowResize
	EventKeyDown
	EventKeyUp
	EventMouseMove
	EventMouseDown
	EventMouseUp
	EventMouseWheel
)

// Event represents a processed input event.
type Event struct {
	Type   EventType
	Key    sdl.Scancode
	Width  int
	Height int
	MouseX int
	MouseY int
	RelX   int
	RelY   int
	Wheel  float32
	Button uint8
}

// Action is a viewer command bound to a key or a panel widget.
type Action int

const (
	ActionNone Action = iota
	ActionCycleCascades
	ActionToggleShadows
	ActionTogglePartialUpdates
	ActionToggleRain
	ActionToggleLightLimit
	ActionToggleSun
	ActionToggleIndoor
	ActionScreenshot
	ActionDumpCascades
	ActionTogglePanel
	ActionSaveSettings // panel only
)

var keyActions = map[sdl.Scancode]Action{
	sdl.SCANCODE_C:   ActionCycleCascades,
	sdl.SCANCODE_F:   ActionToggleShadows,
	sdl.SCANCODE_P:   ActionTogglePartialUpdates,
	sdl.SCANCODE_R:   ActionToggleRain,
	sdl.SCANCODE_L:   ActionToggleLightLimit,
	sdl.SCANCODE_T:   ActionToggleSun,
	sdl.SCANCODE_I:   ActionToggleIndoor,
	sdl.SCANCODE_F12: ActionScreenshot,
	sdl.SCANCODE_F11: ActionDumpCascades,
	sdl.SCANCODE_H:   ActionTogglePanel,
}

// Input tracks the state needed between frames: drag and held keys.
type Input struct {
	events   []Event
	actions  []Action
	held     map[sdl.Scancode]bool
	dragging bool
}

// New creates a new input handler.
func New() *Input {
	return &Input{
		events: make([]Event, 0, 16),
		held:   make(map[sdl.Scancode]bool),
	}
}

// Update polls SDL events and feeds them. Returns true if the viewer
// should quit.
func (i *Input) Update() bool {
	var events []Event
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch e := event.(type) {
		case *sdl.QuitEvent:
			events = append(events, Event{Type: EventQuit})

		case *sdl.WindowEvent:
			if e.Event == sdl.WINDOWEVENT_RESIZED {
				events = append(events, Event{Type: EventWindowResize, Width: int(e.Data1), Height: int(e.Data2)})
			}

		case *sdl.KeyboardEvent:
			if e.Repeat != 0 {
				continue
			}
			if e.Type == sdl.KEYDOWN {
				events = append(events, Event{Type: EventKeyDown, Key: e.Keysym.Scancode})
			} else if e.Type == sdl.KEYUP {
				events = append(events, Event{Type: EventKeyUp, Key: e.Keysym.Scancode})
			}

		case *sdl.MouseMotionEvent:
			events = append(events, Event{
				Type:   EventMouseMove,
				MouseX: int(e.X),
				MouseY: int(e.Y),
				RelX:   int(e.XRel),
				RelY:   int(e.YRel),
			})

		case *sdl.MouseButtonEvent:
			t := EventMouseUp
			if e.Type == sdl.MOUSEBUTTONDOWN {
				t = EventMouseDown
			}
			events = append(events, Event{Type: t, MouseX: int(e.X), MouseY: int(e.Y), Button: e.Button})

		case *sdl.MouseWheelEvent:
			events = append(events, Event{Type: EventMouseWheel, Wheel: float32(e.Y)})
		}
	}
	return i.Feed(events...)
}

// Feed replaces the events of this frame with events and updates the held
// state. Returns true if a quit was requested.
func (i *Input) Feed(events ...Event) bool {
	i.events = append(i.events[:0], events...)
	i.actions = i.actions[:0]

	quit := false
	for _, e := range events {
		switch e.Type {
		case EventQuit:
			quit = true
		case EventKeyDown:
			if e.Key == sdl.SCANCODE_ESCAPE {
				quit = true
			}
			i.held[e.Key] = true
			if a, ok := keyActions[e.Key]; ok {
				i.actions = append(i.actions, a)
			}
		case EventKeyUp:
			delete(i.held, e.Key)
		case EventMouseDown:
			if e.Button == sdl.BUTTON_LEFT {
				i.dragging = true
			}
		case EventMouseUp:
			if e.Button == sdl.BUTTON_LEFT {
				i.dragging = false
			}
		}
	}
	return quit
}

// Events returns the events from the last Update.
func (i *Input) Events() []Event {
	return i.events
}

// Actions returns the key actions triggered this frame in order.
func (i *Input) Actions() []Action {
	return i.actions
}

// IsKeyPressed checks if a specific key was pressed this frame.
func (i *Input) IsKeyPressed(scancode sdl.Scancode) bool {
	for _, e := range i.events {
		if e.Type == EventKeyDown && e.Key == scancode {
			return true
		}
	}
	return false
}

// IsKeyHeld reports whether a key is down.
func (i *Input) IsKeyHeld(scancode sdl.Scancode) bool {
	return i.held[scancode]
}

func (i *Input) axis(pos, neg sdl.Scancode) float32 {
	var v float32
	if i.held[pos] {
		v++
	}
	if i.held[neg] {
		v--
	}
	return v
}

// DriveCamera applies drags, wheel and WASD/QE movement to cam.
func (i *Input) DriveCamera(cam *camera.OrbitCamera) {
	for _, e := range i.events {
		switch e.Type {
		case EventMouseMove:
			if i.dragging {
				cam.HandleDrag(float32(e.RelX), float32(e.RelY))
			}
		case EventMouseWheel:
			cam.HandleZoom(e.Wheel)
		}
	}
	forward := i.axis(sdl.SCANCODE_W, sdl.SCANCODE_S)
	right := i.axis(sdl.SCANCODE_D, sdl.SCANCODE_A)
	up := i.axis(sdl.SCANCODE_E, sdl.SCANCODE_Q)
	if forward != 0 || right != 0 || up != 0 {
		cam.HandleMovement(forward, right, up)
	}
}
