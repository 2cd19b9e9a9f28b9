package world

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/Faultbox/umbra/internal/config"
	"github.com/Faultbox/umbra/internal/engine/gpu"
	"github.com/Faultbox/umbra/internal/engine/shadow"
	"github.com/Faultbox/umbra/internal/logger"
	"github.com/Faultbox/umbra/pkg/math"
)

// DrawerStats counts instances of the draws since the last ResetStats.
type DrawerStats struct {
	Draws     int
	Instances int
	Culled    int
}

// Drawer draws scene instances as unit boxes scaled by their world matrix.
type Drawer struct {
	scene    *Scene
	lighting *config.LightingConfig
	lock     gpu.ResourceLock
	box      gpu.Mesh
	stats    DrawerStats
	log      *zap.Logger

	batch   [4]*Instance
	centers [4]math.Vec3
	radii   [4]float32
}

var _ shadow.WorldDrawer = (*Drawer)(nil)

// NewDrawer uploads the box mesh. lock is held while drawing so texture
// streaming cannot swap resources mid pass; nil uses a private mutex.
func NewDrawer(dev gpu.Device, scene *Scene, lighting *config.LightingConfig, lock gpu.ResourceLock) (*Drawer, error) {
	positions, indices := UnitBox()
	box, err := dev.CreateMesh(positions, indices)
	if err != nil {
		return nil, fmt.Errorf("creating box mesh: %w", err)
	}
	if lock == nil {
		lock = &sync.Mutex{}
	}
	d := &Drawer{
		scene:    scene,
		lighting: lighting,
		lock:     lock,
		box:      box,
		log:      logger.Named("world"),
	}
	d.log.Debug("world drawer ready",
		zap.String("world", scene.Name),
		zap.Int("instances", len(scene.Instances)),
		zap.Int("lights", len(scene.Lights)))
	return d, nil
}

// UnitBox returns a box spanning -0.5..0.5 on every axis.
func UnitBox() ([]math.Vec3, []uint32) {
	positions := make([]math.Vec3, 0, 8)
	for i := 0; i < 8; i++ {
		positions = append(positions, math.Vec3{
			X: float32(i&1) - 0.5,
			Y: float32(i>>1&1) - 0.5,
			Z: float32(i>>2&1) - 0.5,
		})
	}
	indices := []uint32{
		0, 2, 1, 1, 2, 3, // -Z
		4, 5, 6, 5, 7, 6, // +Z
		0, 1, 4, 1, 5, 4, // -Y
		2, 6, 3, 3, 6, 7, // +Y
		0, 4, 2, 2, 4, 6, // -X
		1, 3, 5, 3, 7, 5, // +X
	}
	return positions, indices
}

// Release frees the box mesh.
func (d *Drawer) Release() {
	if d.box != nil {
		d.box.Release()
		d.box = nil
	}
}

// Stats returns the counters since the last ResetStats.
func (d *Drawer) Stats() DrawerStats { return d.stats }

// ResetStats zeroes the counters.
func (d *Drawer) ResetStats() { d.stats = DrawerStats{} }

// drawRadius is how far from center an instance may be drawn.
func (d *Drawer) drawRadius(inst *Instance, radius float32) float32 {
	limit := d.lighting.OutdoorVobDrawRadius
	if inst.Small {
		limit = d.lighting.OutdoorSmallVobDrawRadius
	}
	return min(radius, limit)
}

// DrawWorldAround draws every instance within radius of center that passes
// the options and the frustum.
func (d *Drawer) DrawWorldAround(ctx gpu.Context, center math.Vec3, radius float32, opts shadow.DrawOptions) {
	if d.box == nil {
		return
	}
	d.lock.Lock()
	defer d.lock.Unlock()

	d.stats.Draws++
	if opts.NoCull {
		ctx.SetRasterState(gpu.RasterState{Cull: gpu.CullNone})
	}

	n := 0
	for i := range d.scene.Instances {
		inst := &d.scene.Instances[i]
		if (opts.NoNPCs && inst.NPC) || (opts.Indoor && !inst.Indoor) {
			d.stats.Culled++
			continue
		}
		r := d.drawRadius(inst, radius) + inst.Radius
		if inst.Center.DistanceSq(center) > r*r {
			d.stats.Culled++
			continue
		}
		if opts.Frustum == nil {
			d.draw(ctx, inst)
			continue
		}

		d.batch[n] = inst
		d.centers[n] = inst.Center
		d.radii[n] = inst.Radius
		n++
		if n == len(d.batch) {
			d.flush(ctx, opts, n)
			n = 0
		}
	}
	if n > 0 {
		d.flush(ctx, opts, n)
	}
}

func (d *Drawer) flush(ctx gpu.Context, opts shadow.DrawOptions, n int) {
	// Lanes past n hold stale spheres and are ignored.
	visible := opts.Frustum.IntersectsBatch4(&d.centers, &d.radii)
	for i := 0; i < n; i++ {
		if visible[i] {
			d.draw(ctx, d.batch[i])
		} else {
			d.stats.Culled++
		}
		d.batch[i] = nil
	}
}

func (d *Drawer) draw(ctx gpu.Context, inst *Instance) {
	ctx.DrawMesh(d.box, inst.World)
	d.stats.Instances++
}
