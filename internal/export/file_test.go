package export

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileWriterPublish(t *testing.T) {
	dir := t.TempDir()
	w, err := NewFileWriter(dir, nil)
	if err != nil {
		t.Fatalf("NewFileWriter() error: %v", err)
	}

	target := int32(215)
	humidity := uint32(480)
	w.Publish(Observation{
		Room:          "lounge",
		Time:          time.Now(),
		CorrectedDeci: 208,
		TargetDeci:    &target,
		HumidityDeci:  &humidity,
		HeaterOn:      true,
	})

	got, err := os.ReadFile(filepath.Join(dir, "current_lounge"))
	if err != nil {
		t.Fatalf("reading temperature file: %v", err)
	}
	want := "SET temperature = 208\nSET target = 215\n"
	if string(got) != want {
		t.Fatalf("temperature file = %q, want %q", got, want)
	}

	got, err = os.ReadFile(filepath.Join(dir, "humidity_lounge"))
	if err != nil {
		t.Fatalf("reading humidity file: %v", err)
	}
	if string(got) != "SET humidity = 480\n" {
		t.Fatalf("humidity file = %q", got)
	}
}

func TestFileWriterNoHumidity(t *testing.T) {
	dir := t.TempDir()
	w, err := NewFileWriter(dir, nil)
	if err != nil {
		t.Fatalf("NewFileWriter() error: %v", err)
	}

	w.Publish(Observation{Room: "bedroom", Time: time.Now(), CorrectedDeci: 190})

	if _, err := os.Stat(filepath.Join(dir, "current_bedroom")); err != nil {
		t.Fatalf("temperature file missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "humidity_bedroom")); !os.IsNotExist(err) {
		t.Fatal("humidity file written without a humidity value")
	}

	// No target: the temperature itself is exported as the target so
	// the collector's chart stays continuous.
	got, err := os.ReadFile(filepath.Join(dir, "current_bedroom"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "SET temperature = 190\nSET target = 190\n" {
		t.Fatalf("temperature file = %q", got)
	}
}
