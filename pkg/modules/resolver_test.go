package modules

import (
	"os"
	"path/filepath"
	"testing"

	"valuescript/pkg/values"
)

func writeModule(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestDefaultImportAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "lib.ts", `
		export default function() {
			return 7;
		}
	`)
	main := writeModule(t, dir, "main.ts", `
		import seven from "./lib";
		export default function() {
			return seven();
		}
	`)

	r := NewResolver()
	m, err := r.LoadFile(main)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	got, err := m.RunDefault(nil)
	if err != nil {
		t.Fatalf("RunDefault: %v", err)
	}
	if values.AsNumber(got) != 7 {
		t.Fatalf("got %v, want 7", got)
	}
}

func TestNamedImportPicksOneExport(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "lib.ts", `
		export function double(x) {
			return x * 2;
		}
		export function triple(x) {
			return x * 3;
		}
	`)
	main := writeModule(t, dir, "main.ts", `
		import { triple } from "./lib";
		export default function() {
			return triple(5);
		}
	`)

	r := NewResolver()
	m, err := r.LoadFile(main)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	got, err := m.RunDefault(nil)
	if err != nil {
		t.Fatalf("RunDefault: %v", err)
	}
	if values.AsNumber(got) != 15 {
		t.Fatalf("got %v, want 15", got)
	}
}

func TestBareSpecifierRejected(t *testing.T) {
	dir := t.TempDir()
	main := writeModule(t, dir, "main.ts", `
		import x from "leftpad";
		export default function() {
			return x;
		}
	`)

	r := NewResolver()
	m, err := r.LoadFile(main)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	// The import binding is lazy; forcing it through the default export
	// surfaces the resolution failure.
	if _, err := m.RunDefault(nil); err == nil {
		t.Fatal("expected a bare-specifier resolution error")
	}
}

func TestModuleLoadedOnce(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "shared.ts", `
		export default function() {
			return "s";
		}
	`)
	writeModule(t, dir, "a.ts", `
		import s from "./shared";
		export default function() {
			return s();
		}
	`)
	main := writeModule(t, dir, "main.ts", `
		import a from "./a";
		import s from "./shared";
		export default function() {
			return a() + s();
		}
	`)

	r := NewResolver()
	m, err := r.LoadFile(main)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	got, err := m.RunDefault(nil)
	if err != nil {
		t.Fatalf("RunDefault: %v", err)
	}
	if values.AsString(got) != "ss" {
		t.Fatalf("got %v, want \"ss\"", got)
	}
	if len(r.cache) != 3 {
		t.Fatalf("cache holds %d modules, want 3 (shared loaded once)", len(r.cache))
	}
}
