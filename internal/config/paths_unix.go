//go:build linux || darwin

package config

import (
	"os"
	"path/filepath"
)

func configSearchPaths() []string {
	paths := []string{}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "operion", "agent.yaml"))
	}
	paths = append(paths,
		"/etc/operion/agent.yaml",
		"agent.yaml",
	)
	return paths
}
