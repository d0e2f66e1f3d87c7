package trigger

import (
	"testing"

	"github.com/nexar-sim/modulehost/world"
)

func TestIndex_RecordWriteAdvancesWatermark(t *testing.T) {
	ix := NewIndex()
	var pos world.ComponentTypeID = 3

	if ix.Watermark(pos) != 0 {
		t.Fatalf("got %d, want 0 for an untouched type", ix.Watermark(pos))
	}

	ix.RecordWrite(pos, 5)
	if got := ix.Watermark(pos); got != 5 {
		t.Fatalf("got %d, want 5", got)
	}
}

func TestIndex_WatermarkAfterDetectsAnyWatchedType(t *testing.T) {
	ix := NewIndex()
	var pos, vel world.ComponentTypeID = 1, 2
	ix.RecordWrite(vel, 10)

	if !ix.WatermarkAfter([]world.ComponentTypeID{pos, vel}, 5) {
		t.Fatal("expected a hit since vel was written after tick 5")
	}
	if ix.WatermarkAfter([]world.ComponentTypeID{pos, vel}, 10) {
		t.Fatal("expected no hit for lastSeen equal to the write tick")
	}
}

func TestIndex_ActiveEventSetIsEmptyAtFrameStart(t *testing.T) {
	ix := NewIndex()
	var explosion world.EventTypeID = 7
	if ix.EventActive(explosion) {
		t.Fatal("expected no active events before anything is published")
	}
}

func TestIndex_RecordEventSetsBit(t *testing.T) {
	ix := NewIndex()
	var explosion world.EventTypeID = 7
	ix.RecordEvent(explosion)

	if !ix.EventActive(explosion) {
		t.Fatal("expected the published event type to be active")
	}
	var other world.EventTypeID = 8
	if ix.EventActive(other) {
		t.Fatal("expected an unpublished event type to remain inactive")
	}
}

func TestIndex_RecordEventCrossesWordBoundary(t *testing.T) {
	ix := NewIndex()
	var highID world.EventTypeID = 200
	ix.RecordEvent(highID)
	if !ix.EventActive(highID) {
		t.Fatal("expected event ids beyond the first 64-bit word to work")
	}
}

func TestIndex_SwapClearsActiveEvents(t *testing.T) {
	ix := NewIndex()
	var explosion world.EventTypeID = 7
	ix.RecordEvent(explosion)
	ix.Swap()

	if ix.EventActive(explosion) {
		t.Fatal("expected Swap to clear every active event bit")
	}
}

func TestIndex_AnyEventActive(t *testing.T) {
	ix := NewIndex()
	var a, b world.EventTypeID = 1, 2
	ix.RecordEvent(b)

	if !ix.AnyEventActive([]world.EventTypeID{a, b}) {
		t.Fatal("expected a hit since b is active")
	}
	ix.Swap()
	if ix.AnyEventActive([]world.EventTypeID{a, b}) {
		t.Fatal("expected no hit after swap cleared activity")
	}
}
