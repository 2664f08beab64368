//go:build !windows

package hostutil

func commonDirs() []string {
	return []string{
		"/usr/bin",
		"/usr/local/bin",
		"/opt/homebrew/bin",
		"/usr/local/opt/android-platform-tools/bin",
		"/snap/bin",
	}
}
