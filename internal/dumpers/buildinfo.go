package dumpers

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"runtime/debug"
	"time"
)

// BuildInfo dumps process identity: binary, module, VCS revision, Go
// toolchain and platform. All of it is captured at construction so the
// crash path does no discovery.
type BuildInfo struct {
	version   string
	goVersion string
	goos      string
	goarch    string
	pid       int
	mainPath  string
	revision  string
	modified  bool
	started   time.Time
}

// NewBuildInfo captures build metadata. version is the release string
// injected at link time; pass "" when unknown.
func NewBuildInfo(version string) *BuildInfo {
	d := &BuildInfo{
		version:   version,
		goVersion: runtime.Version(),
		goos:      runtime.GOOS,
		goarch:    runtime.GOARCH,
		pid:       os.Getpid(),
		started:   time.Now(),
	}

	if info, ok := debug.ReadBuildInfo(); ok {
		d.mainPath = info.Main.Path
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				d.revision = s.Value
			case "vcs.modified":
				d.modified = s.Value == "true"
			}
		}
	}
	return d
}

// OnFatalError implements fatal.Handler.
func (d *BuildInfo) OnFatalError(w io.Writer) {
	fmt.Fprintf(w, "--- build ---\n")
	if d.version != "" {
		fmt.Fprintf(w, "version: %s\n", d.version)
	}
	if d.mainPath != "" {
		fmt.Fprintf(w, "module: %s\n", d.mainPath)
	}
	if d.revision != "" {
		dirty := ""
		if d.modified {
			dirty = " (modified)"
		}
		fmt.Fprintf(w, "revision: %s%s\n", d.revision, dirty)
	}
	fmt.Fprintf(w, "go: %s %s/%s\n", d.goVersion, d.goos, d.goarch)
	fmt.Fprintf(w, "pid: %d\n", d.pid)
	fmt.Fprintf(w, "uptime: %s\n", time.Since(d.started).Round(time.Second))
}
