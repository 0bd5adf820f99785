//go:build windows

package config

import (
	"os"
	"path/filepath"
)

func configSearchPaths() []string {
	paths := []string{}
	if appData := os.Getenv("APPDATA"); appData != "" {
		paths = append(paths, filepath.Join(appData, "Operion", "agent.yaml"))
	}
	paths = append(paths,
		filepath.Join(os.Getenv("ProgramData"), "Operion", "agent.yaml"),
		"agent.yaml",
	)
	return paths
}
