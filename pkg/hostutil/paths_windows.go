//go:build windows

package hostutil

import (
	"os"
	"path/filepath"
)

func commonDirs() []string {
	var dirs []string
	if local := os.Getenv("LOCALAPPDATA"); local != "" {
		dirs = append(dirs, filepath.Join(local, "Android", "Sdk", "platform-tools"))
	}
	if pf := os.Getenv("ProgramFiles"); pf != "" {
		dirs = append(dirs,
			filepath.Join(pf, "Android", "platform-tools"),
			filepath.Join(pf, "scrcpy"),
		)
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, "scoop", "shims"))
	}
	return append(dirs, `C:\platform-tools`)
}
