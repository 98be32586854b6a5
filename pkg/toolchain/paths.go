package toolchain

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Paths are the files one native build reads and writes.
type Paths struct {
	Source string
	Asm    string
	Object string
	Exe    string
}

// OutputPaths derives the build artefacts from the source path: prog.minos
// becomes prog.asm, prog.o and the executable prog. Intermediates go to
// outDir when it is set, otherwise next to the source. A non-empty exe
// overrides the executable path.
func OutputPaths(source, outDir, exe string) (Paths, error) {
	full, err := filepath.Abs(source)
	if err != nil {
		return Paths{}, fmt.Errorf("resolve %s: %w", source, err)
	}
	dir := filepath.Dir(full)
	if outDir != "" {
		if dir, err = filepath.Abs(outDir); err != nil {
			return Paths{}, fmt.Errorf("resolve %s: %w", outDir, err)
		}
	}

	base := strings.TrimSuffix(filepath.Base(full), filepath.Ext(full))
	if base == "" {
		base = filepath.Base(full)
	}
	stem := filepath.Join(dir, base)

	p := Paths{
		Source: full,
		Asm:    stem + ".asm",
		Object: stem + ".o",
		Exe:    stem,
	}
	if exe != "" {
		if p.Exe, err = filepath.Abs(exe); err != nil {
			return Paths{}, fmt.Errorf("resolve %s: %w", exe, err)
		}
	}
	// never let the build overwrite its own input
	for _, out := range []*string{&p.Asm, &p.Object, &p.Exe} {
		if *out == full {
			*out += ".out"
		}
	}
	return p, nil
}

// Intermediates lists the files that only exist to produce the executable.
func (p Paths) Intermediates() []string {
	return []string{p.Asm, p.Object}
}
