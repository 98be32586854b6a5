//go:build !linux

package toolchain

import "runtime"

// HostCanRun reports false: generated executables are Linux ELF binaries.
func HostCanRun() (bool, string) {
	return false, runtime.GOOS + "/" + runtime.GOARCH
}

// checkExecutable relies on exec.LookPath, which already requires the
// executable bit where the platform has one.
func checkExecutable(path string) error {
	return nil
}
