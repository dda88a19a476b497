package dumpers

import (
	"fmt"
	"io"
	"strings"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
)

// System dumps system-wide resource usage: memory, load average and
// CPU topology via gopsutil. Every probe is best-effort; a failed read
// is skipped rather than reported.
type System struct {
	// Static topology cached at construction.
	cpuModel   string
	cpuCores   int
	cpuThreads int
}

// NewSystem returns a system usage dumper. CPU topology is discovered
// once here; usage numbers are read at crash time.
func NewSystem() *System {
	d := &System{}
	if infos, err := cpu.Info(); err == nil && len(infos) > 0 {
		d.cpuModel = strings.TrimSpace(infos[0].ModelName)
	}
	if cores, err := cpu.Counts(false); err == nil {
		d.cpuCores = cores
	}
	if threads, err := cpu.Counts(true); err == nil {
		d.cpuThreads = threads
	}
	return d
}

// OnFatalError implements fatal.Handler.
func (d *System) OnFatalError(w io.Writer) {
	fmt.Fprintf(w, "--- system ---\n")
	if d.cpuModel != "" {
		fmt.Fprintf(w, "cpu: %s (%d cores, %d threads)\n", d.cpuModel, d.cpuCores, d.cpuThreads)
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		fmt.Fprintf(w, "mem_used_mb: %.0f / %.0f (%.1f%%)\n",
			float64(vm.Used)/1024/1024, float64(vm.Total)/1024/1024, vm.UsedPercent)
	}
	if avg, err := load.Avg(); err == nil {
		fmt.Fprintf(w, "load_avg: %.2f %.2f %.2f\n", avg.Load1, avg.Load5, avg.Load15)
	}
}
