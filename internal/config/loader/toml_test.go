package loader

import (
	"errors"
	"io/fs"
	"strings"
	"testing"
	"time"
)

// MemFS is an in-memory file system for testing.
type MemFS struct {
	files map[string][]byte
}

func NewMemFS() *MemFS {
	return &MemFS{files: make(map[string][]byte)}
}

func (m *MemFS) AddFile(path string, content string) {
	m.files[path] = []byte(content)
}

func (m *MemFS) Open(name string) (fs.File, error) {
	return nil, fs.ErrNotExist
}

func (m *MemFS) ReadFile(path string) ([]byte, error) {
	data, ok := m.files[path]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return data, nil
}

func (m *MemFS) Stat(path string) (fs.FileInfo, error) {
	if _, ok := m.files[path]; ok {
		return &memFileInfo{name: path}, nil
	}
	return nil, fs.ErrNotExist
}

type memFileInfo struct {
	name string
}

func (f *memFileInfo) Name() string       { return f.name }
func (f *memFileInfo) Size() int64        { return 0 }
func (f *memFileInfo) Mode() fs.FileMode  { return 0644 }
func (f *memFileInfo) ModTime() time.Time { return time.Now() }
func (f *memFileInfo) IsDir() bool        { return false }
func (f *memFileInfo) Sys() any           { return nil }

func TestTOMLLoader_Load(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/txt.toml", `
[linebreak]
fallback = "MSDOS"
detectBytes = 1024

[watch]
enabled = false
debounce = "250ms"
`)

	config, err := NewTOMLLoaderWithFS(memfs, "/txt.toml").Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	lb, ok := config["linebreak"].(map[string]any)
	if !ok {
		t.Fatal("expected linebreak to be a map")
	}
	if lb["fallback"] != "MSDOS" {
		t.Errorf("fallback = %v", lb["fallback"])
	}
	if lb["detectBytes"] != int64(1024) {
		t.Errorf("detectBytes = %v (%T), want 1024", lb["detectBytes"], lb["detectBytes"])
	}
	watch := config["watch"].(map[string]any)
	if watch["enabled"] != false || watch["debounce"] != "250ms" {
		t.Errorf("watch = %v", watch)
	}
}

func TestTOMLLoader_Missing(t *testing.T) {
	config, err := NewTOMLLoaderWithFS(NewMemFS(), "/nope.toml").Load()
	if err != nil || config != nil {
		t.Errorf("Load() = %v, %v; want nil, nil", config, err)
	}
}

func TestTOMLLoader_ParseError(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/bad.toml", "[linebreak\nfallback = 1\n")

	_, err := NewTOMLLoaderWithFS(memfs, "/bad.toml").Load()
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want *ParseError", err)
	}
	if pe.Path != "/bad.toml" || pe.Line < 1 {
		t.Errorf("ParseError = %+v", pe)
	}
	if !strings.Contains(err.Error(), "/bad.toml") {
		t.Errorf("message %q should name the file", err.Error())
	}
}

func TestTOMLLoader_LoadFromReader(t *testing.T) {
	config, err := NewTOMLLoader("").LoadFromReader(strings.NewReader(`log = { level = "debug" }`))
	if err != nil {
		t.Fatal(err)
	}
	if config["log"].(map[string]any)["level"] != "debug" {
		t.Errorf("config = %v", config)
	}
}

func TestForPath(t *testing.T) {
	tests := []struct {
		path    string
		want    string
		wantErr bool
	}{
		{"a.toml", "*loader.TOMLLoader", false},
		{"a.TOML", "*loader.TOMLLoader", false},
		{"a.yaml", "*loader.YAMLLoader", false},
		{"a.yml", "*loader.YAMLLoader", false},
		{"a.json", "", true},
		{"noext", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			l, err := ForPath(NewMemFS(), tt.path)
			if tt.wantErr {
				if !errors.Is(err, ErrUnsupportedFormat) {
					t.Errorf("err = %v, want ErrUnsupportedFormat", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got := typeString(l); got != tt.want {
				t.Errorf("loader = %s, want %s", got, tt.want)
			}
		})
	}
}

func typeString(l FileLoader) string {
	switch l.(type) {
	case *TOMLLoader:
		return "*loader.TOMLLoader"
	case *YAMLLoader:
		return "*loader.YAMLLoader"
	}
	return "?"
}

func TestDeepMerge(t *testing.T) {
	dst := map[string]any{
		"linebreak": map[string]any{"fallback": "LINUX", "detectBytes": 65536},
		"log":       map[string]any{"level": "info"},
	}
	src := map[string]any{
		"linebreak": map[string]any{"fallback": "MAC"},
		"backup":    map[string]any{"dir": "/tmp/b"},
	}
	got := DeepMerge(dst, src)

	lb := got["linebreak"].(map[string]any)
	if lb["fallback"] != "MAC" || lb["detectBytes"] != 65536 {
		t.Errorf("linebreak = %v", lb)
	}
	if got["log"].(map[string]any)["level"] != "info" {
		t.Error("untouched section lost")
	}

	// The merged result must not alias src.
	got["backup"].(map[string]any)["dir"] = "changed"
	if src["backup"].(map[string]any)["dir"] != "/tmp/b" {
		t.Error("DeepMerge aliased a source map")
	}
}

func TestClone(t *testing.T) {
	src := map[string]any{"a": map[string]any{"b": 1}}
	c := Clone(src)
	c["a"].(map[string]any)["b"] = 2
	if src["a"].(map[string]any)["b"] != 1 {
		t.Error("Clone is shallow")
	}
	if Clone(nil) != nil {
		t.Error("Clone(nil) != nil")
	}
}
