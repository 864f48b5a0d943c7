package sysfs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/tamzrod/openracer/internal/hal"
)

// ---- store ----

func TestFileStore_CreatesFactoryImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nv", "racer.bin")

	s, err := OpenFileStore(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	magic, err := s.Load(hal.SlotMagic)
	if err != nil {
		t.Fatalf("load magic: %v", err)
	}
	if magic != hal.Magic {
		t.Fatalf("magic: got=0x%02x want=0x%02x", magic, hal.Magic)
	}
	age, err := s.Load(hal.SlotAge)
	if err != nil {
		t.Fatalf("load age: %v", err)
	}
	if age != 0 {
		t.Fatalf("age: got=%d want=0", age)
	}
}

func TestFileStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "racer.bin")

	s, err := OpenFileStore(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Save(hal.SlotAge, 41); err != nil {
		t.Fatalf("save: %v", err)
	}

	again, err := OpenFileStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	age, err := again.Load(hal.SlotAge)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if age != 41 {
		t.Fatalf("age after reopen: got=%d want=41", age)
	}
	magic, _ := again.Load(hal.SlotMagic)
	if magic != hal.Magic {
		t.Fatalf("magic clobbered by age write: 0x%02x", magic)
	}
}

func TestFileStore_SlotOutOfRange(t *testing.T) {
	s, err := OpenFileStore(filepath.Join(t.TempDir(), "racer.bin"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Save(7, 1); err == nil {
		t.Fatalf("expected error for slot 7")
	}
}

// ---- adc ----

func writeRaw(t *testing.T, path, v string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(v), 0o644); err != nil {
		t.Fatalf("write raw: %v", err)
	}
}

func TestIIOADC_KeepsTopEightBits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in_voltage0_raw")
	writeRaw(t, path, "1023\n")

	a, err := NewIIOADC(path, 10, zerolog.Nop())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if got := a.ReadADC(); got != 255 {
		t.Fatalf("full scale: got=%d want=255", got)
	}

	writeRaw(t, path, "600")
	if got := a.ReadADC(); got != 150 {
		t.Fatalf("600>>2: got=%d want=150", got)
	}
}

func TestIIOADC_HoldsLastValueOnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in_voltage0_raw")
	writeRaw(t, path, "200")

	a, err := NewIIOADC(path, 8, zerolog.Nop())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if got := a.ReadADC(); got != 200 {
		t.Fatalf("first read: got=%d", got)
	}

	writeRaw(t, path, "garbage")
	if got := a.ReadADC(); got != 200 {
		t.Fatalf("read after error: got=%d want=200", got)
	}
}

func TestIIOADC_RejectsBadResolution(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raw")
	writeRaw(t, path, "0")
	if _, err := NewIIOADC(path, 4, zerolog.Nop()); err == nil {
		t.Fatalf("expected error for 4-bit adc")
	}
}

// ---- bootstatus ----

func TestReadResetCause(t *testing.T) {
	cases := []struct {
		raw  string
		want hal.ResetCause
	}{
		{"0\n", hal.ResetPowerOn},
		{"32\n", hal.ResetWatchdog},
		{"0x10", hal.ResetBrownOut},
		{"4", hal.ResetExternal},
		{"48", hal.ResetBrownOut | hal.ResetWatchdog},
	}

	dir := t.TempDir()
	for _, tc := range cases {
		path := filepath.Join(dir, "bootstatus")
		writeRaw(t, path, tc.raw)

		got, err := ReadResetCause(path)
		if err != nil {
			t.Fatalf("raw=%q: %v", tc.raw, err)
		}
		if got != tc.want {
			t.Fatalf("raw=%q: got=%s want=%s", tc.raw, got, tc.want)
		}
	}
}

func TestReadResetCause_MissingFile(t *testing.T) {
	got, err := ReadResetCause(filepath.Join(t.TempDir(), "nope"))
	if err == nil {
		t.Fatalf("expected error")
	}
	if got != hal.ResetPowerOn {
		t.Fatalf("fallback cause: got=%s", got)
	}
}
