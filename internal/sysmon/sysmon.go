// Package sysmon samples the resource usage of the server process and of the
// host it runs on.
package sysmon

import (
	"os"
	"runtime"
	"sync"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
)

// System holds a snapshot of host-wide resource usage.
type System struct {
	CPUPercent float64 `json:"cpu_percent"` // 0.0 .. 100.0
	MemPercent float64 `json:"mem_percent"` // 0.0 .. 100.0
	NumCPU     int     `json:"num_cpu"`
}

// Process holds a snapshot of the current process.
type Process struct {
	PID        int32   `json:"pid"`
	CPUPercent float64 `json:"cpu_percent"`
	RSS        uint64  `json:"rss_bytes"`
	Threads    int32   `json:"threads"`
}

// Runtime holds Go runtime memory statistics.
type Runtime struct {
	Goroutines   int    `json:"goroutines"`
	HeapAlloc    uint64 `json:"heap_alloc_bytes"`
	Sys          uint64 `json:"sys_bytes"`
	NumGC        uint32 `json:"num_gc"`
	PauseTotalNs uint64 `json:"gc_pause_total_ns"`
}

// Stats is a complete sample.
type Stats struct {
	System  System  `json:"system"`
	Process Process `json:"process"`
	Runtime Runtime `json:"runtime"`
}

// Sampler samples the current process. The zero value is not usable; use
// NewSampler.
type Sampler struct {
	mu   sync.Mutex
	proc *process.Process
}

// NewSampler returns a sampler for the calling process. If the process
// cannot be inspected, process figures stay zero.
func NewSampler() *Sampler {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		p = nil
	}
	return &Sampler{proc: p}
}

// Sample collects a snapshot. CPU percentages are deltas since the previous
// call, so the first sample may report zero. Figures that cannot be read are
// left at zero.
func (s *Sampler) Sample() Stats {
	stats := Stats{System: SampleSystem(), Runtime: SampleRuntime()}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.proc == nil {
		return stats
	}
	stats.Process.PID = s.proc.Pid
	if pct, err := s.proc.Percent(0); err == nil {
		stats.Process.CPUPercent = pct
	}
	if mi, err := s.proc.MemoryInfo(); err == nil && mi != nil {
		stats.Process.RSS = mi.RSS
	}
	if n, err := s.proc.NumThreads(); err == nil {
		stats.Process.Threads = n
	}
	return stats
}

// SampleSystem collects a single system-wide CPU and memory snapshot.
// CPU uses interval=0 (delta since last call). Returns zero values on error.
func SampleSystem() System {
	s := System{NumCPU: runtime.NumCPU()}
	cpuPcts, err := cpu.Percent(0, false)
	if err == nil && len(cpuPcts) > 0 {
		s.CPUPercent = cpuPcts[0]
	}
	vmem, err := mem.VirtualMemory()
	if err == nil && vmem != nil {
		s.MemPercent = vmem.UsedPercent
	}
	return s
}

// SampleRuntime reads the Go runtime's memory statistics.
func SampleRuntime() Runtime {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return Runtime{
		Goroutines:   runtime.NumGoroutine(),
		HeapAlloc:    m.HeapAlloc,
		Sys:          m.Sys,
		NumGC:        m.NumGC,
		PauseTotalNs: m.PauseTotalNs,
	}
}
