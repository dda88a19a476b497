package dumpers

import (
	"fmt"
	"io"
	"strings"

	"github.com/jaypipes/ghw"
)

// Host dumps the static hardware inventory: physical memory, CPU
// packages and graphics cards. ghw walks sysfs and PCI databases,
// which is far too much work for a crashing process, so the whole
// report is rendered once at construction and the crash path writes
// the cached bytes.
type Host struct {
	report string
}

// NewHost probes the hardware inventory. Probes that fail leave their
// section out of the cached report.
func NewHost() *Host {
	var b strings.Builder

	if memInfo, err := ghw.Memory(); err == nil && memInfo != nil {
		fmt.Fprintf(&b, "physical_mem_gb: %.1f\n",
			float64(memInfo.TotalPhysicalBytes)/1024/1024/1024)
	}

	if cpuInfo, err := ghw.CPU(); err == nil && cpuInfo != nil {
		fmt.Fprintf(&b, "cpu_packages: %d (cores=%d threads=%d)\n",
			len(cpuInfo.Processors), cpuInfo.TotalCores, cpuInfo.TotalThreads)
		for _, proc := range cpuInfo.Processors {
			if proc.Model != "" {
				fmt.Fprintf(&b, "cpu_model: %s\n", strings.TrimSpace(proc.Model))
			}
		}
	}

	if gpuInfo, err := ghw.GPU(); err == nil && gpuInfo != nil {
		for _, card := range gpuInfo.GraphicsCards {
			if card.DeviceInfo != nil && card.DeviceInfo.Product != nil {
				fmt.Fprintf(&b, "gpu: %s\n", strings.TrimSpace(card.DeviceInfo.Product.Name))
			}
		}
	}

	return &Host{report: b.String()}
}

// OnFatalError implements fatal.Handler.
func (d *Host) OnFatalError(w io.Writer) {
	fmt.Fprintf(w, "--- host ---\n")
	if d.report == "" {
		fmt.Fprintf(w, "hardware inventory unavailable\n")
		return
	}
	_, _ = io.WriteString(w, d.report)
}
