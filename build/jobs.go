package build

import (
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
)

// DefaultJobs returns the host's logical core count.
func DefaultJobs() int {
	n, err := cpu.Counts(true)
	if err != nil || n < 1 {
		return runtime.NumCPU()
	}
	return n
}
