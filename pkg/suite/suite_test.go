package suite

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadSpec(t *testing.T) {
	s, err := LoadSpec(filepath.Join("testdata", "mixed.yaml"))
	if err != nil {
		t.Fatalf("LoadSpec: %v", err)
	}
	if s.Name != "mixed" || len(s.Cases) != 5 {
		t.Fatalf("spec = %+v", s)
	}
	if s.Cases[2].Name != "case3" {
		t.Errorf("default case name = %q", s.Cases[2].Name)
	}
	if s.Cases[0].Stdout == nil || *s.Cases[0].Stdout != "5\n" {
		t.Errorf("stdout = %v", s.Cases[0].Stdout)
	}
	if s.Cases[2].Stdout != nil {
		t.Errorf("unset stdout should stay nil")
	}

	if _, err := LoadSpec(filepath.Join("testdata", "bad_backend.yaml")); err == nil || !strings.Contains(err.Error(), `unknown backend "jvm"`) {
		t.Errorf("bad backend error = %v", err)
	}
}

func TestLoadSpecDefaults(t *testing.T) {
	specs, err := Load(filepath.Join("..", "..", "suites"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(specs) < 3 {
		t.Fatalf("found %d suites", len(specs))
	}
	for _, s := range specs {
		if len(s.Backends) == 0 {
			t.Errorf("%s: backends not defaulted", s.Path)
		}
	}
}

func TestFind(t *testing.T) {
	files, err := Find("testdata")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{filepath.Join("testdata", "bad_backend.yaml"), filepath.Join("testdata", "mixed.yaml")}
	if strings.Join(files, ",") != strings.Join(want, ",") {
		t.Errorf("Find = %v, want %v", files, want)
	}
	if _, err := Find("testdata/does-not-exist"); err == nil {
		t.Errorf("expected error for missing path")
	}
}

func TestRunnerInterp(t *testing.T) {
	s, err := LoadSpec(filepath.Join("testdata", "mixed.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	var progress bytes.Buffer
	r := &Runner{MaxSteps: 1000, Progress: &progress}
	results, err := r.Run(context.Background(), []*Spec{s})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	passed, failed, skipped := results.Counts()
	if passed != 2 || failed != 2 || skipped != 1 {
		t.Errorf("counts = %d/%d/%d, want 2/2/1: %+v", passed, failed, skipped, results)
	}
	fails := results.Failures()
	if len(fails) != 2 || fails[0].Case != "wrong output" || fails[1].Case != "unexpected success" {
		t.Fatalf("failures = %+v", fails)
	}
	if !strings.Contains(fails[0].Reason, `want "6\n"`) {
		t.Errorf("reason = %q", fails[0].Reason)
	}
}

// TestRepositorySuites runs the suites shipped with the repository. Native
// cases are skipped when nasm/ld are unavailable.
func TestRepositorySuites(t *testing.T) {
	specs, err := Load(filepath.Join("..", "..", "suites"))
	if err != nil {
		t.Fatal(err)
	}
	r := &Runner{MaxSteps: 100000}
	results, err := r.Run(context.Background(), specs)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, f := range results.Failures() {
		t.Errorf("%s/%s [%s]: %s", f.Suite, f.Case, f.Backend, f.Reason)
	}
	if passed, _, _ := results.Counts(); passed == 0 {
		t.Errorf("no case passed")
	}
}

func TestCheck(t *testing.T) {
	out := "5\n"
	c := &Case{Stdout: &out}
	if got := check(c, outcome{stdout: "5\n"}); got != "" {
		t.Errorf("check = %q", got)
	}
	c = &Case{Error: "underflow"}
	if got := check(c, outcome{}); !strings.Contains(got, "program succeeded") {
		t.Errorf("check = %q", got)
	}
}
