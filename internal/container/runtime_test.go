// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package container

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

// mockExecutor records calls and returns configured responses.
type mockExecutor struct {
	availableBins map[string]bool // binary -> whether LookPath succeeds
	runnableCmds  map[string]bool // "bin arg1 arg2" -> whether RunSilent succeeds
	runFunc       func(name string, args []string, dir string, stdout io.Writer) error

	lastName string
	lastArgs []string
	lastDir  string
}

func (m *mockExecutor) LookPath(file string) (string, error) {
	if m.availableBins[file] {
		return "/usr/bin/" + file, nil
	}
	return "", errors.New("not found: " + file)
}

func (m *mockExecutor) RunSilent(_ context.Context, name string, args ...string) error {
	key := name + " " + strings.Join(args, " ")
	if m.runnableCmds[key] {
		return nil
	}
	return errors.New("command failed: " + key)
}

func (m *mockExecutor) Run(_ context.Context, name string, args []string, dir string, stdout io.Writer) error {
	m.lastName, m.lastArgs, m.lastDir = name, args, dir
	if m.runFunc != nil {
		return m.runFunc(name, args, dir, stdout)
	}
	return nil
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name     string
		exec     *mockExecutor
		image    string
		wantName string
		wantErr  bool
	}{
		{
			name:     "tool on PATH",
			exec:     &mockExecutor{availableBins: map[string]bool{"pdftoppm": true, "docker": true}},
			image:    "poppler:latest",
			wantName: "native",
		},
		{
			name: "docker when tool missing",
			exec: &mockExecutor{
				availableBins: map[string]bool{"docker": true},
				runnableCmds:  map[string]bool{"docker info": true},
			},
			image:    "poppler:latest",
			wantName: "docker",
		},
		{
			name: "podman fallback when docker missing",
			exec: &mockExecutor{
				availableBins: map[string]bool{"podman": true},
				runnableCmds:  map[string]bool{"podman info": true},
			},
			image:    "poppler:latest",
			wantName: "podman",
		},
		{
			name: "docker on PATH but info fails, podman works",
			exec: &mockExecutor{
				availableBins: map[string]bool{"docker": true, "podman": true},
				runnableCmds:  map[string]bool{"podman info": true},
			},
			image:    "poppler:latest",
			wantName: "podman",
		},
		{
			name: "containers ignored without an image",
			exec: &mockExecutor{
				availableBins: map[string]bool{"docker": true},
				runnableCmds:  map[string]bool{"docker info": true},
			},
			wantErr: true,
		},
		{
			name:    "nothing available",
			exec:    &mockExecutor{},
			image:   "poppler:latest",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt, err := detect(tt.exec, "pdftoppm", tt.image)
			if tt.wantErr {
				if !errors.Is(err, ErrNoRuntime) {
					t.Fatalf("expected ErrNoRuntime, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rt.Name() != tt.wantName {
				t.Errorf("got runtime %q, want %q", rt.Name(), tt.wantName)
			}
		})
	}
}

func TestNativeRun(t *testing.T) {
	m := &mockExecutor{
		runFunc: func(_ string, _ []string, _ string, stdout io.Writer) error {
			_, err := stdout.Write([]byte("ok"))
			return err
		},
	}
	rt := &native{tool: "pdftohtml", exec: m}

	var out bytes.Buffer
	err := rt.Run(context.Background(), Invocation{
		Args:   []string{"-xml", "in.pdf", "out"},
		Dir:    "/tmp/work",
		Mounts: []string{"/ignored"},
		Stdout: &out,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.lastName != "pdftohtml" {
		t.Errorf("ran %q, want pdftohtml", m.lastName)
	}
	if got := strings.Join(m.lastArgs, " "); got != "-xml in.pdf out" {
		t.Errorf("args = %q", got)
	}
	if m.lastDir != "/tmp/work" {
		t.Errorf("dir = %q, want /tmp/work", m.lastDir)
	}
	if out.String() != "ok" {
		t.Errorf("stdout = %q, want ok", out.String())
	}
}

func TestContainerizedRun(t *testing.T) {
	m := &mockExecutor{}
	rt := &containerized{bin: "podman", tool: "pdftoppm", image: "poppler:24", exec: m}

	err := rt.Run(context.Background(), Invocation{
		Args:   []string{"-r", "300", "-png", "/docs/a.pdf", "page"},
		Dir:    "/tmp/out",
		Mounts: []string{"/docs", "/tmp/out"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "run --rm -v /tmp/out:/tmp/out -v /docs:/docs -w /tmp/out poppler:24 pdftoppm -r 300 -png /docs/a.pdf page"
	if got := strings.Join(m.lastArgs, " "); got != want {
		t.Errorf("args =\n  %q\nwant\n  %q", got, want)
	}
	if m.lastName != "podman" {
		t.Errorf("ran %q, want podman", m.lastName)
	}
	if m.lastDir != "" {
		t.Errorf("host dir = %q, want empty", m.lastDir)
	}
}

func TestRunWrapsError(t *testing.T) {
	m := &mockExecutor{
		runFunc: func(string, []string, string, io.Writer) error { return errors.New("exit status 1") },
	}
	rt := &containerized{bin: "docker", tool: "pdftohtml", image: "img", exec: m}

	err := rt.Run(context.Background(), Invocation{})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "pdftohtml in docker container img") {
		t.Errorf("error should name tool and runtime, got: %v", err)
	}
}

func TestLimitedBuffer(t *testing.T) {
	var b limitedBuffer
	n, err := b.Write(bytes.Repeat([]byte("x"), 3000))
	if err != nil || n != 3000 {
		t.Fatalf("Write = %d, %v", n, err)
	}
	if len(b.buf) != 2048 {
		t.Errorf("kept %d bytes, want 2048", len(b.buf))
	}
}
