package bridge

import "runtime"

// classpathSeparator returns the OS-specific java -cp entry separator.
func classpathSeparator() string {
	if runtime.GOOS == "windows" {
		return ";"
	}
	return ":"
}
