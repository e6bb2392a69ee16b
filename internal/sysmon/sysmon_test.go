package sysmon

import (
	"os"
	"testing"
)

func TestSampleSystem_ReturnsValidRanges(t *testing.T) {
	s := SampleSystem()
	if s.CPUPercent < 0 || s.CPUPercent > 100 {
		t.Errorf("CPUPercent out of range: %f", s.CPUPercent)
	}
	if s.MemPercent < 0 || s.MemPercent > 100 {
		t.Errorf("MemPercent out of range: %f", s.MemPercent)
	}
	if s.NumCPU < 1 {
		t.Errorf("NumCPU = %d", s.NumCPU)
	}
}

func TestSampleSystem_MemPercentNonZero(t *testing.T) {
	s := SampleSystem()
	if s.MemPercent == 0 {
		t.Error("expected non-zero MemPercent on a running system")
	}
}

func TestSampler_Process(t *testing.T) {
	s := NewSampler()
	_ = s.Sample()
	stats := s.Sample()
	if stats.Process.PID != int32(os.Getpid()) {
		t.Errorf("PID = %d, want %d", stats.Process.PID, os.Getpid())
	}
	if stats.Process.RSS == 0 {
		t.Error("RSS should be > 0")
	}
	if stats.Process.CPUPercent < 0 {
		t.Errorf("CPUPercent = %f", stats.Process.CPUPercent)
	}
}

func TestSampleRuntime(t *testing.T) {
	t.Parallel()
	before := SampleRuntime()
	_ = make([]byte, 1<<20)
	after := SampleRuntime()

	if before.HeapAlloc == 0 || before.Sys == 0 {
		t.Errorf("empty runtime sample: %+v", before)
	}
	if after.Sys < before.Sys {
		t.Error("Sys should not decrease between snapshots")
	}
	if after.Goroutines < 1 {
		t.Errorf("Goroutines = %d", after.Goroutines)
	}
}
