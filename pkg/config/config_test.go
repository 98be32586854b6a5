package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	c := Default()
	if c.Toolchain.Assembler != "nasm" || c.Toolchain.Linker != "ld" {
		t.Errorf("tools = %q, %q", c.Toolchain.Assembler, c.Toolchain.Linker)
	}
	if !reflect.DeepEqual(c.Toolchain.AssemblerArgs, []string{"-felf64"}) {
		t.Errorf("assembler args = %v", c.Toolchain.AssemblerArgs)
	}
	if !c.Build.Keep() {
		t.Errorf("intermediates should be kept by default")
	}
	if c.Check.Stack != "flow" || c.Diagnostics.Color != "auto" {
		t.Errorf("check/color = %q, %q", c.Check.Stack, c.Diagnostics.Color)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "minos.yaml", `
toolchain:
  assembler: /opt/nasm/bin/nasm
  linker_args: ["-static"]
build:
  output_dir: out
  keep_intermediates: false
check:
  stack: linear
diagnostics:
  color: never
`)
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Toolchain.Assembler != "/opt/nasm/bin/nasm" || c.Toolchain.Linker != "ld" {
		t.Errorf("toolchain = %+v", c.Toolchain)
	}
	if !reflect.DeepEqual(c.Toolchain.LinkerArgs, []string{"-static"}) {
		t.Errorf("linker args = %v", c.Toolchain.LinkerArgs)
	}
	if c.Build.Keep() || c.Build.OutputDir != "out" {
		t.Errorf("build = %+v", c.Build)
	}
	if c.Check.Stack != "linear" || c.Diagnostics.Color != "never" {
		t.Errorf("check/color = %q, %q", c.Check.Stack, c.Diagnostics.Color)
	}
	if c.Path != path {
		t.Errorf("Path = %q", c.Path)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name, body, want string
	}{
		{"bad yaml", "toolchain: [", "parsing config file"},
		{"bad stack", "check:\n  stack: deep\n", "check.stack"},
		{"bad color", "diagnostics:\n  color: rainbow\n", "diagnostics.color"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, strings.ReplaceAll(tt.name, " ", "_")+".yaml", tt.body)
			_, err := Load(path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load error = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	c, err := Discover("", dir)
	if err != nil {
		t.Fatalf("Discover without file: %v", err)
	}
	if c.Path != "" || c.Toolchain.Assembler != "nasm" {
		t.Errorf("expected defaults, got %+v", c)
	}

	writeFile(t, dir, FileName, "check:\n  stack: off\n")
	c, err = Discover("", dir)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if c.Check.Stack != "off" {
		t.Errorf("stack = %q", c.Check.Stack)
	}

	if _, err := Discover(filepath.Join(dir, "missing.yaml"), dir); err == nil {
		t.Errorf("an explicit missing file should be an error")
	}
}
