package fetcher

import (
	"os/exec"

	"github.com/jmylchreest/ipoetl/internal/logger"
)

// Chrome/Chromium binary names and install locations, most common first.
var chromeBinaryNames = []string{
	"google-chrome-stable",
	"google-chrome",
	"chromium",
	"chromium-browser",
	"chrome",
	"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	"/Applications/Chromium.app/Contents/MacOS/Chromium",
	"/snap/bin/chromium",
	`C:\Program Files\Google\Chrome\Application\chrome.exe`,
}

// lookPath is replaced in tests.
var lookPath = exec.LookPath

// FindChromePath returns the first Chrome binary found, or "" to let
// chromedp use its own lookup.
func FindChromePath() string {
	for _, name := range chromeBinaryNames {
		if path, err := lookPath(name); err == nil {
			logger.Debug("found Chrome binary", "path", path)
			return path
		}
	}
	logger.Warn("no Chrome binary found, dynamic fetches may fail")
	return ""
}
