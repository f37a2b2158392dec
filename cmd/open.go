package cmd

import (
	"os"
	"os/exec"

	"github.com/razvandimescu/molesk/internal/logger"
)

func openURL(url string) {
	var name string
	var args []string

	switch {
	case fileExists("/usr/bin/open"): // macOS
		name = "open"
		args = []string{url}
	case fileExists("/usr/bin/xdg-open"): // Linux
		name = "xdg-open"
		args = []string{url}
	default: // Windows
		name = "cmd"
		args = []string{"/c", "start", url}
	}

	if err := exec.Command(name, args...).Start(); err != nil {
		logger.Warn("Warning: Failed to open URL %s: %v", url, err)
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
