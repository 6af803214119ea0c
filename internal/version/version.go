// Package version identifies the ipoetl build. The version is printed by
// `ipoetl version` and stamped into every gold and apply manifest as the
// generator, so an artifact directory records which build fitted it.
//
// Release builds set the variables with ldflags:
//
//	go build -ldflags "-X github.com/jmylchreest/ipoetl/internal/version.Version=1.0.0 ..."
package version

import (
	"fmt"
	"runtime"
	"strings"
)

// Product is the name manifests and the CLI report.
const Product = "ipoetl"

// Set by ldflags. Dirty is the string "true" for builds from a modified tree.
var (
	Version   = "dev"
	Commit    = "unknown"
	Dirty     = "false"
	BuildDate = "unknown"
)

// Info is the build metadata in structured form.
type Info struct {
	Version   string `json:"version"`
	Generator string `json:"generator"`
	Commit    string `json:"commit"`
	Dirty     bool   `json:"dirty"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

func dirty() bool {
	return Dirty == "true"
}

func platform() string {
	return runtime.GOOS + "/" + runtime.GOARCH
}

// Get returns the build metadata.
func Get() Info {
	return Info{
		Version:   Version,
		Generator: Generator(),
		Commit:    Commit,
		Dirty:     dirty(),
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  platform(),
	}
}

// String returns the version, suffixed with -dirty for modified trees.
func String() string {
	if dirty() {
		return Version + "-dirty"
	}
	return Version
}

// Generator is the value written to a manifest's generator field, e.g.
// "ipoetl/1.2.0". Two manifests with the same generator were produced by
// the same transformation code.
func Generator() string {
	return Product + "/" + String()
}

// Full returns the multi-line text of `ipoetl version`.
func Full() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s\n", Product, String())
	fmt.Fprintf(&sb, "  Commit:     %s\n", Commit)
	if dirty() {
		sb.WriteString("  Dirty:      yes\n")
	}
	fmt.Fprintf(&sb, "  Built:      %s\n", BuildDate)
	fmt.Fprintf(&sb, "  Go version: %s\n", runtime.Version())
	fmt.Fprintf(&sb, "  OS/Arch:    %s", platform())
	return sb.String()
}
