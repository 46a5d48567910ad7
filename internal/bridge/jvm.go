package bridge

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/kotlin-lsp/sidecar-bridge/internal/errs"
)

// findJava locates a JVM executable, preferring an explicit JavaHome, then
// JAVA_HOME, then PATH. This mirrors the corpus's own
// getJavaExecutable/findEquinoxLauncher layering for a JDTLS launch.
func findJava(javaHome string) (string, error) {
	exeName := "java"
	if runtime.GOOS == "windows" {
		exeName = "java.exe"
	}

	if javaHome != "" {
		candidate := filepath.Join(javaHome, "bin", exeName)
		if isExecutable(candidate) {
			return candidate, nil
		}
		return "", errs.JvmNotFound("javaHome set to " + javaHome + " but " + candidate + " is not executable")
	}

	if envHome := os.Getenv("JAVA_HOME"); envHome != "" {
		candidate := filepath.Join(envHome, "bin", exeName)
		if isExecutable(candidate) {
			return candidate, nil
		}
	}

	if path, err := exec.LookPath(exeName); err == nil {
		return path, nil
	}

	return "", errs.JvmNotFound("no javaHome configured, JAVA_HOME unset, and java not on PATH")
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode()&0111 != 0 || runtime.GOOS == "windows"
}
