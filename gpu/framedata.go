package gpu

import (
	"errors"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Dolbhi/deferred-renderer/core"
)

// ErrCapacityExceeded reports a frame that asked for more instance records
// than the store's hard ceiling.
var ErrCapacityExceeded = errors.New("instance capacity exceeded")

// Instance records are 128 bytes, so the ceiling caps each slot's object
// buffer at 8 MiB.
const maxObjectInstances = 65536

// frameBuffers is one in-flight slot's set of upload targets. gen changes
// whenever a buffer in the slot is replaced, so bind groups built against
// the old buffers know to rebuild.
type frameBuffers struct {
	global          *wgpu.Buffer
	params          *wgpu.Buffer
	objects         *wgpu.Buffer
	objectCap       int
	pointLights     *wgpu.Buffer
	pointCap        int
	directionLights *wgpu.Buffer
	directionCap    int
	boxes           *wgpu.Buffer
	boxCap          int
	gen             uint64
}

// retiredBuffer keeps a replaced buffer alive until the GPU can no longer be
// reading it.
type retiredBuffer struct {
	buffer *wgpu.Buffer
	frame  uint64
}

// FrameStore owns the per-frame GPU buffers: one slot per frame in flight,
// cycled by Advance. Storage buffers grow by doubling; a replaced buffer is
// retired and released once its slot has been overwritten framesInFlight
// frames later.
type FrameStore struct {
	device *wgpu.Device
	queue  *wgpu.Queue
	log    core.Logger

	framesInFlight int
	frame          uint64
	frames         []frameBuffers
	retired        []retiredBuffer

	attenuationK float32

	instanceCount  int
	pointCount     int
	directionCount int
	boxCount       int
}

func NewFrameStore(device *wgpu.Device, queue *wgpu.Queue, framesInFlight, objectCap, lightCap int, attenuationK float32, log core.Logger) (*FrameStore, error) {
	if framesInFlight < 2 {
		framesInFlight = 2
	} else if framesInFlight > 3 {
		framesInFlight = 3
	}
	if objectCap < 1 {
		objectCap = 1
	}
	if objectCap > maxObjectInstances {
		objectCap = maxObjectInstances
	}
	if lightCap < 1 {
		lightCap = 1
	}

	s := &FrameStore{
		device:         device,
		queue:          queue,
		log:            log,
		framesInFlight: framesInFlight,
		frames:         make([]frameBuffers, framesInFlight),
		attenuationK:   attenuationK,
	}
	for i := range s.frames {
		f := &s.frames[i]
		var err error
		if f.global, err = s.createBuffer(fmt.Sprintf("Global Data %d", i), GlobalDataSize, wgpu.BufferUsageUniform); err != nil {
			return nil, err
		}
		if f.params, err = s.createBuffer(fmt.Sprintf("Lighting Params %d", i), LightingParamsSize, wgpu.BufferUsageUniform); err != nil {
			return nil, err
		}
		if f.objects, err = s.createBuffer(fmt.Sprintf("Object Data %d", i), objectCap*ObjectDataSize, wgpu.BufferUsageStorage); err != nil {
			return nil, err
		}
		f.objectCap = objectCap
		if f.pointLights, err = s.createBuffer(fmt.Sprintf("Point Lights %d", i), lightCap*PointLightSize, wgpu.BufferUsageStorage); err != nil {
			return nil, err
		}
		f.pointCap = lightCap
		if f.directionLights, err = s.createBuffer(fmt.Sprintf("Direction Lights %d", i), lightCap*DirectionLightSize, wgpu.BufferUsageStorage); err != nil {
			return nil, err
		}
		f.directionCap = lightCap
		if f.boxes, err = s.createBuffer(fmt.Sprintf("Box Records %d", i), lightCap*BoxRecordSize, wgpu.BufferUsageStorage); err != nil {
			return nil, err
		}
		f.boxCap = lightCap
	}
	return s, nil
}

func (s *FrameStore) createBuffer(label string, size int, usage wgpu.BufferUsage) (*wgpu.Buffer, error) {
	buf, err := s.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  uint64(size),
		Usage: usage | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", label, err)
	}
	return buf, nil
}

// growCapacity doubles current until it covers needed.
func growCapacity(current, needed int) int {
	if current < 1 {
		current = 1
	}
	for current < needed {
		current *= 2
	}
	return current
}

func (s *FrameStore) slot() *frameBuffers {
	return &s.frames[s.FrameSlot()]
}

// FrameSlot is the index of the slot frames are currently uploaded into.
func (s *FrameStore) FrameSlot() int {
	return int(s.frame % uint64(s.framesInFlight))
}

// Generation changes whenever the current slot's buffers are replaced.
// Bind groups caching buffer handles compare it to detect staleness.
func (s *FrameStore) Generation() uint64 {
	return s.slot().gen
}

// grow replaces a slot buffer with a larger one, retiring the old buffer
// until the GPU is done with it.
func (s *FrameStore) grow(buf **wgpu.Buffer, capacity *int, needed, recordSize int, label string) error {
	newCap := growCapacity(*capacity, needed)
	if newCap == *capacity {
		return nil
	}
	replacement, err := s.createBuffer(fmt.Sprintf("%s %d", label, s.FrameSlot()), newCap*recordSize, wgpu.BufferUsageStorage)
	if err != nil {
		return err
	}
	s.retired = append(s.retired, retiredBuffer{buffer: *buf, frame: s.frame})
	s.log.Debugf("%s slot %d grew %d -> %d records", label, s.FrameSlot(), *capacity, newCap)
	*buf = replacement
	*capacity = newCap
	s.slot().gen++
	return nil
}

// BeginFrame uploads the camera matrices for the current slot.
func (s *FrameStore) BeginFrame(camera core.CameraData) {
	global := NewGlobalData(camera)
	s.queue.WriteBuffer(s.slot().global, 0, global.ToBytes())
}

// SetInstances uploads the frame's object records. Exceeding the hard
// instance ceiling fails before anything is written.
func (s *FrameStore) SetInstances(instances []core.InstanceData) error {
	if len(instances) > maxObjectInstances {
		return fmt.Errorf("%w: %d instances, limit %d", ErrCapacityExceeded, len(instances), maxObjectInstances)
	}
	f := s.slot()
	if err := s.grow(&f.objects, &f.objectCap, len(instances), ObjectDataSize, "Object Data"); err != nil {
		return err
	}
	s.instanceCount = len(instances)
	if len(instances) == 0 {
		return nil
	}
	s.queue.WriteBuffer(f.objects, 0, PackInstances(instances))
	return nil
}

func (s *FrameStore) SetPointLights(lights []core.PointLight) error {
	f := s.slot()
	if err := s.grow(&f.pointLights, &f.pointCap, len(lights), PointLightSize, "Point Lights"); err != nil {
		return err
	}
	s.pointCount = len(lights)
	if len(lights) == 0 {
		return nil
	}
	s.queue.WriteBuffer(f.pointLights, 0, PackPointLights(lights))
	return nil
}

func (s *FrameStore) SetDirectionLights(lights []core.DirectionLight) error {
	f := s.slot()
	if err := s.grow(&f.directionLights, &f.directionCap, len(lights), DirectionLightSize, "Direction Lights"); err != nil {
		return err
	}
	s.directionCount = len(lights)
	if len(lights) == 0 {
		return nil
	}
	s.queue.WriteBuffer(f.directionLights, 0, PackDirectionLights(lights))
	return nil
}

func (s *FrameStore) SetBoxes(boxes []core.BoxRecord) error {
	f := s.slot()
	if err := s.grow(&f.boxes, &f.boxCap, len(boxes), BoxRecordSize, "Box Records"); err != nil {
		return err
	}
	s.boxCount = len(boxes)
	if len(boxes) == 0 {
		return nil
	}
	s.queue.WriteBuffer(f.boxes, 0, PackBoxes(boxes))
	return nil
}

// SetAmbient uploads the lighting parameter block for the current slot.
func (s *FrameStore) SetAmbient(color mgl32.Vec4) {
	s.queue.WriteBuffer(s.slot().params, 0, PackLightingParams(color, s.attenuationK))
}

// Advance moves to the next slot and releases retired buffers whose slot has
// since been rewritten.
func (s *FrameStore) Advance() {
	s.frame++
	kept := s.retired[:0]
	for _, r := range s.retired {
		if s.frame-r.frame >= uint64(s.framesInFlight) {
			if r.buffer != nil {
				r.buffer.Release()
			}
		} else {
			kept = append(kept, r)
		}
	}
	s.retired = kept
}

func (s *FrameStore) GlobalBuffer() *wgpu.Buffer         { return s.slot().global }
func (s *FrameStore) ParamsBuffer() *wgpu.Buffer         { return s.slot().params }
func (s *FrameStore) ObjectBuffer() *wgpu.Buffer         { return s.slot().objects }
func (s *FrameStore) PointLightBuffer() *wgpu.Buffer     { return s.slot().pointLights }
func (s *FrameStore) DirectionLightBuffer() *wgpu.Buffer { return s.slot().directionLights }
func (s *FrameStore) BoxBuffer() *wgpu.Buffer            { return s.slot().boxes }

func (s *FrameStore) InstanceCount() int       { return s.instanceCount }
func (s *FrameStore) PointLightCount() int     { return s.pointCount }
func (s *FrameStore) DirectionLightCount() int { return s.directionCount }
func (s *FrameStore) BoxCount() int            { return s.boxCount }

// Release frees all slot buffers and anything still retired.
func (s *FrameStore) Release() {
	for i := range s.frames {
		f := &s.frames[i]
		f.global.Release()
		f.params.Release()
		f.objects.Release()
		f.pointLights.Release()
		f.directionLights.Release()
		f.boxes.Release()
	}
	for _, r := range s.retired {
		r.buffer.Release()
	}
	s.retired = nil
}
