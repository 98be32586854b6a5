package toolchain

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

// ToolInfo describes one located external tool.
type ToolInfo struct {
	Name    string
	Path    string
	Version string // canonical semver, empty when unknown
	Err     error
}

var versionPattern = regexp.MustCompile(`(?i)version\s+v?(\d+(?:\.\d+)*)`)

// CanonicalVersion turns a tool version such as "2.16.01" into the semver
// "v2.16.1". Missing minor/patch parts are filled with zero.
func CanonicalVersion(v string) (string, error) {
	v = strings.TrimPrefix(strings.TrimSpace(v), "v")
	parts := strings.Split(v, ".")
	if len(parts) == 0 || len(parts) > 3 || parts[0] == "" {
		return "", fmt.Errorf("malformed version %q", v)
	}
	nums := make([]string, 0, 3)
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return "", fmt.Errorf("malformed version %q", v)
		}
		nums = append(nums, strconv.Itoa(n))
	}
	for len(nums) < 3 {
		nums = append(nums, "0")
	}
	out := semver.Canonical("v" + strings.Join(nums, "."))
	if out == "" {
		return "", fmt.Errorf("malformed version %q", v)
	}
	return out, nil
}

// ParseVersion extracts the version from a tool's version banner, e.g.
// "NASM version 2.16.01 compiled on ..." or "GNU ld (GNU Binutils) 2.42".
func ParseVersion(banner string) (string, error) {
	if m := versionPattern.FindStringSubmatch(banner); m != nil {
		return CanonicalVersion(m[1])
	}
	// binutils prints the version as the last word of the first line
	first, _, _ := strings.Cut(banner, "\n")
	if fields := strings.Fields(first); len(fields) > 0 {
		return CanonicalVersion(fields[len(fields)-1])
	}
	return "", fmt.Errorf("no version in %q", banner)
}

// AtLeast reports whether have is minimum or newer. Both are tool versions as
// accepted by CanonicalVersion.
func AtLeast(have, minimum string) (bool, error) {
	h, err := CanonicalVersion(have)
	if err != nil {
		return false, err
	}
	m, err := CanonicalVersion(minimum)
	if err != nil {
		return false, err
	}
	return semver.Compare(h, m) >= 0, nil
}

func probe(ctx context.Context, name string, versionFlag string) ToolInfo {
	info := ToolInfo{Name: name}
	path, err := exec.LookPath(name)
	if err != nil {
		info.Err = err
		return info
	}
	info.Path = path
	if err := checkExecutable(path); err != nil {
		info.Err = err
		return info
	}

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, path, versionFlag)
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		info.Err = fmt.Errorf("%s %s: %w", name, versionFlag, err)
		return info
	}
	if v, err := ParseVersion(out.String()); err == nil {
		info.Version = v
	}
	return info
}

// Probe locates the assembler and linker and reads their versions.
func (t *Toolchain) Probe(ctx context.Context) (assembler, linker ToolInfo) {
	return probe(ctx, t.Assembler, "-v"), probe(ctx, t.Linker, "-v")
}

// CheckAssembler fails when the assembler is missing or older than minimum.
// An empty minimum accepts any version.
func (t *Toolchain) CheckAssembler(ctx context.Context, minimum string) error {
	info := probe(ctx, t.Assembler, "-v")
	if info.Err != nil {
		return fmt.Errorf("assembler %s unavailable: %w", t.Assembler, info.Err)
	}
	if minimum == "" || info.Version == "" {
		return nil
	}
	ok, err := AtLeast(info.Version, minimum)
	if err != nil {
		return fmt.Errorf("min_assembler_version: %w", err)
	}
	if !ok {
		return fmt.Errorf("assembler %s is version %s, need at least %s", info.Path, info.Version, minimum)
	}
	t.logger().Debug("assembler ok", "path", info.Path, "version", info.Version)
	return nil
}
