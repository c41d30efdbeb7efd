package source

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFeed(t *testing.T) (accel, gps string) {
	t.Helper()
	dir := t.TempDir()
	accel = filepath.Join(dir, "accelerometer.csv")
	gps = filepath.Join(dir, "gps.csv")

	// GPS columns deliberately reordered: the header drives the mapping.
	if err := os.WriteFile(accel, []byte("x,y,z\n1,2,15000\n3,4,13000\n"), 0o644); err != nil {
		t.Fatalf("write accel feed: %v", err)
	}
	if err := os.WriteFile(gps, []byte("longitude,latitude\n30.1,50.2\n30.3,50.4\n30.5,50.6\n"), 0o644); err != nil {
		t.Fatalf("write gps feed: %v", err)
	}
	return accel, gps
}

func TestCSVSourceReadsParallelStreams(t *testing.T) {
	accel, gps := writeFeed(t)

	src, err := NewCSVSource(42, accel, gps)
	if err != nil {
		t.Fatalf("new source: %v", err)
	}
	defer src.Close()

	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	src.now = func() time.Time { return fixed }

	rec, err := src.Next()
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if rec.UserID != 42 {
		t.Fatalf("expected user id 42, got %d", rec.UserID)
	}
	if rec.Accelerometer.X != 1 || rec.Accelerometer.Z != 15000 {
		t.Fatalf("unexpected accelerometer row: %+v", rec.Accelerometer)
	}
	if rec.GPS.Latitude != 50.2 || rec.GPS.Longitude != 30.1 {
		t.Fatalf("header-driven mapping failed: %+v", rec.GPS)
	}
	if !rec.Timestamp.Equal(fixed) {
		t.Fatalf("expected injected timestamp, got %v", rec.Timestamp)
	}
}

func TestCSVSourceCyclicReplay(t *testing.T) {
	accel, gps := writeFeed(t)

	src, err := NewCSVSource(1, accel, gps)
	if err != nil {
		t.Fatalf("new source: %v", err)
	}
	defer src.Close()

	// The accelerometer feed has 2 rows; the third read must wrap around
	// instead of failing.
	var zs []float64
	for i := 0; i < 3; i++ {
		rec, err := src.Next()
		if err != nil {
			t.Fatalf("next %d: %v", i, err)
		}
		zs = append(zs, rec.Accelerometer.Z)
	}
	if zs[0] != 15000 || zs[1] != 13000 || zs[2] != 15000 {
		t.Fatalf("expected cyclic replay, got %v", zs)
	}
}

func TestCSVSourceMissingColumn(t *testing.T) {
	dir := t.TempDir()
	accel := filepath.Join(dir, "accelerometer.csv")
	gps := filepath.Join(dir, "gps.csv")
	os.WriteFile(accel, []byte("x,y\n1,2\n"), 0o644)
	os.WriteFile(gps, []byte("latitude,longitude\n50,30\n"), 0o644)

	if _, err := NewCSVSource(1, accel, gps); err == nil {
		t.Fatalf("expected error for feed missing the z column")
	}
}
