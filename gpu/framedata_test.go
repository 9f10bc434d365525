package gpu

import (
	"errors"
	"testing"

	"github.com/Dolbhi/deferred-renderer/core"
)

func TestGrowCapacityDoubles(t *testing.T) {
	cases := []struct {
		current, needed, want int
	}{
		{1, 1, 1},
		{1, 2, 2},
		{1, 5, 8},
		{4, 4, 4},
		{4, 3, 4},
		{3, 7, 12},
		{0, 3, 4},
		{256, 10000, 16384},
	}
	for _, c := range cases {
		if got := growCapacity(c.current, c.needed); got != c.want {
			t.Errorf("growCapacity(%d, %d) = %d, want %d", c.current, c.needed, got, c.want)
		}
	}
}

// testStore builds a store around pre-sized slots so the Set methods can run
// without a device as long as nothing forces an upload or a growth.
func testStore(framesInFlight int) *FrameStore {
	s := &FrameStore{
		log:            core.NewNopLogger(),
		framesInFlight: framesInFlight,
		frames:         make([]frameBuffers, framesInFlight),
	}
	for i := range s.frames {
		f := &s.frames[i]
		f.objectCap = 16
		f.pointCap = 16
		f.directionCap = 16
		f.boxCap = 16
	}
	return s
}

func TestInstanceCeiling(t *testing.T) {
	s := testStore(2)
	err := s.SetInstances(make([]core.InstanceData, maxObjectInstances+1))
	if !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("err = %v, want ErrCapacityExceeded", err)
	}
	if s.InstanceCount() != 0 {
		t.Fatalf("instance count %d after rejected upload", s.InstanceCount())
	}
}

func TestSetEmptySkipsUpload(t *testing.T) {
	s := testStore(2)
	if err := s.SetInstances(nil); err != nil {
		t.Fatal(err)
	}
	if err := s.SetPointLights(nil); err != nil {
		t.Fatal(err)
	}
	if err := s.SetDirectionLights(nil); err != nil {
		t.Fatal(err)
	}
	if err := s.SetBoxes(nil); err != nil {
		t.Fatal(err)
	}
	if s.InstanceCount() != 0 || s.PointLightCount() != 0 || s.DirectionLightCount() != 0 || s.BoxCount() != 0 {
		t.Fatal("counts nonzero after empty uploads")
	}
}

func TestFrameSlotCycles(t *testing.T) {
	s := testStore(3)
	want := []int{0, 1, 2, 0, 1, 2, 0}
	for i, slot := range want {
		if got := s.FrameSlot(); got != slot {
			t.Fatalf("frame %d: slot = %d, want %d", i, got, slot)
		}
		s.Advance()
	}
}

func TestRetirementSpacing(t *testing.T) {
	s := testStore(2)
	s.frame = 1
	s.retired = []retiredBuffer{
		{buffer: nil, frame: 0},
		{buffer: nil, frame: 1},
	}

	s.Advance()
	if len(s.retired) != 1 || s.retired[0].frame != 1 {
		t.Fatalf("after first advance retired = %+v, want only frame 1", s.retired)
	}

	s.Advance()
	if len(s.retired) != 0 {
		t.Fatalf("after second advance retired = %+v, want empty", s.retired)
	}
}

func TestGenerationTracksSlot(t *testing.T) {
	s := testStore(2)
	s.frames[0].gen = 7
	s.frames[1].gen = 9

	if got := s.Generation(); got != 7 {
		t.Fatalf("slot 0 generation = %d, want 7", got)
	}
	s.Advance()
	if got := s.Generation(); got != 9 {
		t.Fatalf("slot 1 generation = %d, want 9", got)
	}
}
