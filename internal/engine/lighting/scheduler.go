package lighting

import (
	"go.uber.org/zap"

	"github.com/Faultbox/umbra/internal/config"
	"github.com/Faultbox/umbra/internal/engine/shadow"
	"github.com/Faultbox/umbra/internal/logger"
	"github.com/Faultbox/umbra/pkg/math"
)

// Shadow update budget.
const (
	MinFrameShadowUpdates     = 4
	FrameShadowUpdateFraction = 2
	MaxImportantLightUpdates  = 1

	// importantRangeScale widens the important radius when every light is
	// updated immediately.
	importantRangeScale = 1.5
)

// ShadowState is where a light is in the shadow update cycle.
type ShadowState int

const (
	NoShadow ShadowState = iota
	PendingInit
	Queued
	Important
	Updated
)

func (s ShadowState) String() string {
	switch s {
	case NoShadow:
		return "no-shadow"
	case PendingInit:
		return "pending-init"
	case Queued:
		return "queued"
	case Important:
		return "important"
	case Updated:
		return "updated"
	default:
		return "unknown"
	}
}

// CubeFactory creates the shadow cube of a light.
type CubeFactory func(l *PointLight) (*shadow.PointCube, error)

// SchedulerStats counts the cube work of the last frame.
type SchedulerStats struct {
	Important    int // important lights rendered
	Budgeted     int // lights taken from the queue
	CubeRenders  int // cubes actually re-rendered
	CubeFailures int // cube creations that failed
	QueueLength  int // lights left in the queue
}

// FrameBudget returns how many queued lights are updated in a frame with q
// lights waiting.
func FrameBudget(q int) int {
	return min(q, max(MinFrameShadowUpdates, q/FrameShadowUpdateFraction))
}

// Scheduler spreads point light cube updates over frames. Lights close to
// the player are rendered right away, the rest wait in a FIFO queue that is
// drained by a per-frame budget.
type Scheduler struct {
	settings  *config.ShadowConfig
	factory   CubeFactory
	queue     []*PointLight
	important []*PointLight
	frame     uint64
	stats     SchedulerStats
	log       *zap.Logger
}

// NewScheduler returns a scheduler creating cubes through factory.
func NewScheduler(settings *config.ShadowConfig, factory CubeFactory) *Scheduler {
	return &Scheduler{
		settings: settings,
		factory:  factory,
		log:      logger.Named("lighting"),
	}
}

// Frame returns the number of the current frame.
func (s *Scheduler) Frame() uint64 { return s.frame }

// Stats returns the counters of the last Update.
func (s *Scheduler) Stats() SchedulerStats { return s.stats }

// QueueLength returns the number of lights waiting for an update.
func (s *Scheduler) QueueLength() int { return len(s.queue) }

// Queued reports whether l waits in the queue.
func (s *Scheduler) Queued(l *PointLight) bool { return l.queued }

// Update starts a new frame: it creates missing cubes, classifies the lights
// around player and renders the important ones followed by the budgeted
// part of the queue.
func (s *Scheduler) Update(lights []*PointLight, player math.Vec3) {
	s.frame++
	s.stats = SchedulerStats{}
	s.important = s.important[:0]

	if !s.settings.PointLightShadowsEnabled() {
		s.stats.QueueLength = len(s.queue)
		return
	}

	for _, l := range lights {
		if l.Disabled {
			continue
		}
		s.classify(l, player)
	}
	s.render()
	s.stats.QueueLength = len(s.queue)
}

func (s *Scheduler) dynamic(l *PointLight) bool {
	return l.Dynamic && s.settings.PointLightShadows >= config.PointLightShadowsDynamic
}

func (s *Scheduler) classify(l *PointLight, player math.Vec3) {
	if l.cube == nil {
		if !l.UpdateShadows {
			l.state = NoShadow
			return
		}
		l.state = PendingInit
		cube, err := s.factory(l)
		if err != nil {
			// Retried on a later frame while UpdateShadows stays set.
			l.state = NoShadow
			s.stats.CubeFailures++
			s.log.Debug("creating point light shadow cube failed",
				zap.String("light", l.Name),
				zap.Error(err))
			return
		}
		l.cube = cube
	}
	if !l.cube.IsInited() {
		l.state = NoShadow
		return
	}

	l.cube.SetLight(l.Position, l.Range, l.Indoor, s.dynamic(l))

	// NeedsUpdate means the light changed since its last render and is
	// rendered right away. UpdateShadows alone is a refresh request that
	// partial mode spreads over frames.
	moved := l.cube.NeedsUpdate()
	if !moved && !l.UpdateShadows && !s.full() {
		return
	}

	dsq := player.DistanceSq(l.Position)
	if s.settings.PartialDynamicUpdates && !moved {
		if l.queued {
			return
		}
		if dsq < l.Range*l.Range && len(s.important) < MaxImportantLightUpdates {
			s.important = append(s.important, l)
			l.state = Important
			return
		}
		s.queue = append(s.queue, l)
		l.queued = true
		l.state = Queued
		return
	}

	r := l.Range * importantRangeScale
	if moved || !l.cube.Rendered() || dsq < r*r {
		s.dequeue(l)
		s.important = append(s.important, l)
		l.state = Important
	}
}

func (s *Scheduler) full() bool {
	return s.settings.PointLightShadows >= config.PointLightShadowsFull
}

func (s *Scheduler) render() {
	for _, l := range s.important {
		s.renderLight(l)
		s.stats.Important++
	}

	n := FrameBudget(len(s.queue))
	for i := 0; i < n; i++ {
		l := s.queue[0]
		s.queue[0] = nil
		s.queue = s.queue[1:]
		l.queued = false
		s.renderLight(l)
		s.stats.Budgeted++
	}
}

// renderLight renders the cube of l, forced when the light asked for a
// refresh.
func (s *Scheduler) renderLight(l *PointLight) {
	if l.cube == nil || !l.cube.IsInited() {
		return
	}
	if l.cube.RenderCubemap(s.frame, l.UpdateShadows || s.full()) {
		s.stats.CubeRenders++
	}
	l.UpdateShadows = false
	l.state = Updated
}

// Forget drops l from the queue and releases its cube. Call it when a light
// leaves the world.
func (s *Scheduler) Forget(l *PointLight) {
	s.dequeue(l)
	if l.cube != nil {
		l.cube.Release()
		l.cube = nil
	}
	l.state = NoShadow
}

func (s *Scheduler) dequeue(l *PointLight) {
	if !l.queued {
		return
	}
	for i, q := range s.queue {
		if q == l {
			s.queue = append(s.queue[:i], s.queue[i+1:]...)
			break
		}
	}
	l.queued = false
}

// Reset forgets every queued light without releasing cubes.
func (s *Scheduler) Reset() {
	for _, l := range s.queue {
		l.queued = false
	}
	s.queue = s.queue[:0]
	s.important = s.important[:0]
}
