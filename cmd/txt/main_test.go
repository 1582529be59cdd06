package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

// runCLI runs the command with a config that disables watching.
func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := writeFile(t, dir, "txt.toml", "[watch]\nenabled = false\n\n[backup]\ndir = \""+filepath.ToSlash(dir)+"\"\n")
	var stdout, stderr bytes.Buffer
	code := run(append([]string{"-config", cfg}, args...), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestVersion(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run([]string{"-version"}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.HasPrefix(stdout.String(), "txt dev") {
		t.Errorf("stdout = %q", stdout.String())
	}
}

func TestUsage(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code int
	}{
		{"no command", nil, 2},
		{"unknown command", []string{"frob"}, 2},
		{"help", []string{"-h"}, 0},
		{"bad flag", []string{"-nope"}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, _ := runCLI(t, tt.args...)
			if code != tt.code {
				t.Errorf("exit code = %d, want %d", code, tt.code)
			}
		})
	}
}

func TestStats(t *testing.T) {
	p := writeFile(t, t.TempDir(), "a.txt", "hello world\r\nsecond line\r\n")
	code, out, errOut := runCLI(t, "stats", p)
	if code != 0 {
		t.Fatalf("exit code = %d: %s", code, errOut)
	}
	for _, want := range []string{"bytes=26", "lines=2", "words=4", "linebreak=MSDOS"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestStatsMissingFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "missing.txt")
	code, _, errOut := runCLI(t, "stats", p)
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(errOut, "missing.txt") {
		t.Errorf("stderr = %q", errOut)
	}
	if _, err := os.Stat(p); !os.IsNotExist(err) {
		t.Error("stats created the file")
	}
}

func TestCat(t *testing.T) {
	content := "one\ntwo\nthree\n"
	p := writeFile(t, t.TempDir(), "a.txt", content)
	code, out, errOut := runCLI(t, "cat", p)
	if code != 0 {
		t.Fatalf("exit code = %d: %s", code, errOut)
	}
	if out != content {
		t.Errorf("cat = %q, want %q", out, content)
	}
}

func TestDetect(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		content string
		want    string
	}{
		{"a\nb\nc\n", "LINUX"},
		{"a\r\nb\r\n", "MSDOS"},
		{"a\rb\rc\r", "MAC"},
		{"no breaks", "NO_INIT"},
	}
	for i, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			p := writeFile(t, dir, string(rune('a'+i))+".txt", tt.content)
			code, out, errOut := runCLI(t, "detect", p)
			if code != 0 {
				t.Fatalf("exit code = %d: %s", code, errOut)
			}
			if !strings.Contains(out, ": "+tt.want) {
				t.Errorf("detect = %q, want %s", out, tt.want)
			}
		})
	}
}

func TestRunScript(t *testing.T) {
	dir := t.TempDir()
	target := writeFile(t, dir, "doc.txt", "hello\n")
	src := writeFile(t, dir, "edit.lua", `
doc.insert(doc.len() - 1, " world")
local s = doc.stats()
print(s.words)
`)

	code, out, errOut := runCLI(t, "run", src, target, "-save")
	if code != 0 {
		t.Fatalf("exit code = %d: %s", code, errOut)
	}
	if !strings.HasPrefix(out, "2\n") {
		t.Errorf("script output = %q", out)
	}
	got, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hello world\n" {
		t.Errorf("saved = %q", got)
	}
}

func TestRunScriptWithoutSave(t *testing.T) {
	dir := t.TempDir()
	target := writeFile(t, dir, "doc.txt", "keep\n")
	src := writeFile(t, dir, "edit.lua", `doc.delete(0, doc.len())`)

	if code, _, errOut := runCLI(t, "run", src, target); code != 0 {
		t.Fatalf("exit code = %d: %s", code, errOut)
	}
	got, _ := os.ReadFile(target)
	if string(got) != "keep\n" {
		t.Errorf("file changed without -save: %q", got)
	}
}

func TestRunScriptError(t *testing.T) {
	dir := t.TempDir()
	target := writeFile(t, dir, "doc.txt", "abc")
	src := writeFile(t, dir, "bad.lua", `doc.delete(0, 100)`)

	code, _, errOut := runCLI(t, "run", "-save", src, target)
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(errOut, "out of range") {
		t.Errorf("stderr = %q", errOut)
	}
	got, _ := os.ReadFile(target)
	if string(got) != "abc" {
		t.Errorf("file = %q", got)
	}
}

func TestLineBreakFlag(t *testing.T) {
	code, _, errOut := runCLI(t, "-linebreak", "bogus", "stats", "x")
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(errOut, "bogus") {
		t.Errorf("stderr = %q", errOut)
	}
}
