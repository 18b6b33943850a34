package shapes

import (
	"errors"
	"testing"
)

func TestSnapshot(t *testing.T) {
	e := newTestEngine(t)
	if err := e.DrawPolygonRow(3); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Render(); err != nil {
		t.Fatal(err)
	}
	img, err := e.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 64 || b.Dy() != 48 {
		t.Errorf("snapshot bounds = %v, want 64x48", b)
	}
	if len(img.Pix) != 64*48*4 {
		t.Errorf("len(Pix) = %d, want %d", len(img.Pix), 64*48*4)
	}
}

func TestSnapshotAfterDispose(t *testing.T) {
	e := newTestEngine(t)
	_ = e.Dispose()
	if _, err := e.Snapshot(); !errors.Is(err, ErrDisposed) {
		t.Errorf("Snapshot after Dispose = %v, want ErrDisposed", err)
	}
}
