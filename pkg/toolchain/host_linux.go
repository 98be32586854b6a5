//go:build linux

package toolchain

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// HostCanRun reports whether executables produced by this toolchain
// (x86-64 ELF) can run on this machine, and the machine name seen.
func HostCanRun() (bool, string) {
	var u unix.Utsname
	if err := unix.Uname(&u); err != nil {
		return false, "unknown"
	}
	machine := unix.ByteSliceToString(u.Machine[:])
	return machine == "x86_64", machine
}

func checkExecutable(path string) error {
	if err := unix.Access(path, unix.X_OK); err != nil {
		return fmt.Errorf("%s is not executable: %w", path, err)
	}
	return nil
}
