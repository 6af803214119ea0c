package version

import (
	"strings"
	"testing"
)

func withBuild(t *testing.T, v, dirty string) {
	t.Helper()
	oldV, oldD := Version, Dirty
	Version, Dirty = v, dirty
	t.Cleanup(func() { Version, Dirty = oldV, oldD })
}

func TestString(t *testing.T) {
	tests := []struct {
		version, dirty, want string
	}{
		{"1.2.0", "false", "1.2.0"},
		{"1.2.0", "true", "1.2.0-dirty"},
		{"dev", "", "dev"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			withBuild(t, tt.version, tt.dirty)
			if got := String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGenerator(t *testing.T) {
	withBuild(t, "0.3.1", "false")
	if got := Generator(); got != "ipoetl/0.3.1" {
		t.Errorf("Generator() = %q", got)
	}
}

func TestGetAndFull(t *testing.T) {
	withBuild(t, "0.3.1", "true")
	info := Get()
	if !info.Dirty || info.Version != "0.3.1" || info.GoVersion == "" {
		t.Errorf("Get() = %+v", info)
	}
	if info.Generator != "ipoetl/0.3.1-dirty" {
		t.Errorf("Get().Generator = %q, want %q", info.Generator, "ipoetl/0.3.1-dirty")
	}
	if full := Full(); !strings.HasPrefix(full, "ipoetl 0.3.1-dirty\n") {
		t.Errorf("Full() = %q", full)
	}
}
