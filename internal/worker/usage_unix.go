//go:build unix

package worker

import (
	"runtime"
	"time"

	"golang.org/x/sys/unix"
)

func selfUsage() Usage {
	var ru unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_SELF, &ru); err != nil {
		return Usage{}
	}
	maxRSS := int64(ru.Maxrss)
	if runtime.GOOS == "darwin" {
		// bytes on darwin, kilobytes elsewhere
		maxRSS /= 1024
	}
	return Usage{
		UserTime:   time.Duration(ru.Utime.Nano()),
		SystemTime: time.Duration(ru.Stime.Nano()),
		MaxRSS:     maxRSS,
	}
}
