package driver

import (
	"strings"
	"testing"

	"valuescript/pkg/values"
)

func run(t *testing.T, src string) values.Value {
	t.Helper()
	v, err := RunSource("test.ts", src, nil, nil)
	if err != nil {
		t.Fatalf("RunSource: %v", err)
	}
	return v
}

func expectCompileError(t *testing.T, src string) {
	t.Helper()
	_, err := RunSource("test.ts", src, nil, nil)
	if err == nil {
		t.Fatal("expected a compile error")
	}
	if _, ok := err.(*CompileFailure); !ok {
		t.Fatalf("expected a CompileFailure, got %T: %v", err, err)
	}
}

// Mutating through one binding must not be observable through an alias
// taken earlier.
func TestArrayAliasUnaffectedByMutation(t *testing.T) {
	got := run(t, `
		export default function() {
			const a = [1, 2, 3];
			const b = a;
			a[0] = 9;
			return b[0];
		}
	`)
	if values.AsNumber(got) != 1 {
		t.Fatalf("b[0] = %v, want 1", got)
	}
}

func TestForOfOverString(t *testing.T) {
	got := run(t, `
		export default function() {
			let s = "";
			for (const c of "abc") {
				s = s + c + ".";
			}
			return s;
		}
	`)
	if values.AsString(got) != "a.b.c." {
		t.Fatalf("s = %q, want \"a.b.c.\"", got)
	}
}

// A captured binding is a snapshot; mutating it from inside the closure
// is rejected at compile time.
func TestMutationOfCapturedBindingIsCompileError(t *testing.T) {
	expectCompileError(t, `
		export default function() {
			function make() {
				let x = 0;
				return () => ++x;
			}
			const f = make();
			return f();
		}
	`)
}

func TestMutationOfConstIsCompileError(t *testing.T) {
	expectCompileError(t, `
		export default function() {
			const x = 1;
			x = 2;
			return x;
		}
	`)
}

func TestTryCatchFinallyReturnsCaughtValue(t *testing.T) {
	got := run(t, `
		export default function() {
			try {
				throw "e";
			} catch (e) {
				return e;
			} finally {
			}
		}
	`)
	if values.AsString(got) != "e" {
		t.Fatalf("got %v, want \"e\"", got)
	}
}

// A pending return inside try still runs the finally body before the
// frame ends: the inner finally throws, proving it ran after the
// return was staged, and the outer catch observes it.
func TestFinallyRunsBeforePendingReturn(t *testing.T) {
	got := run(t, `
		export default function() {
			try {
				try {
					return "r";
				} finally {
					throw "f";
				}
			} catch (e) {
				return e;
			}
		}
	`)
	if values.AsString(got) != "f" {
		t.Fatalf("got %v, want \"f\"", got)
	}

	plain := run(t, `
		export default function() {
			try {
				return "r";
			} finally {
			}
		}
	`)
	if values.AsString(plain) != "r" {
		t.Fatalf("got %v, want \"r\"", plain)
	}
}

func TestFinallyRethrowsUncaughtException(t *testing.T) {
	got := run(t, `
		export default function() {
			let log = "";
			try {
				try {
					throw "x";
				} finally {
					log = log + "f";
				}
			} catch (e) {
				return e + log;
			}
		}
	`)
	if values.AsString(got) != "xf" {
		t.Fatalf("got %v, want \"xf\"", got)
	}
}

// Nested-subscript assignment packs the chain back up: the updated
// inner object lands in a fresh outer object, leaving aliases intact.
func TestNestedSubscriptWritePacksUp(t *testing.T) {
	got := run(t, `
		export default function() {
			const o = { a: { b: 1 } };
			const p = o;
			p.a.b = 2;
			return [o.a.b, p.a.b];
		}
	`)
	elements := values.AsArray(got).Elements
	if values.AsNumber(elements[0]) != 1 || values.AsNumber(elements[1]) != 2 {
		t.Fatalf("got [%v, %v], want [1, 2]", elements[0], elements[1])
	}
}

func TestClosureCapturesSnapshot(t *testing.T) {
	got := run(t, `
		export default function() {
			const x = 1;
			const f = () => x;
			return f();
		}
	`)
	if values.AsNumber(got) != 1 {
		t.Fatalf("got %v, want 1", got)
	}
}

func TestMethodCallOnConstReceiverFailsAtRuntime(t *testing.T) {
	_, err := RunSource("test.ts", `
		export default function() {
			const bowl = ["apple"];
			bowl.push("peach");
			return bowl;
		}
	`, nil, nil)
	if err == nil {
		t.Fatal("expected a runtime TypeError for push through a const binding")
	}
}

func TestMethodCallOnLetReceiverMutatesOnlyReceiver(t *testing.T) {
	got := run(t, `
		export default function() {
			let left = ["apple", "mango"];
			const snapshot = left;
			left.push("peach");
			return [left.length, snapshot.length];
		}
	`)
	elements := values.AsArray(got).Elements
	if values.AsNumber(elements[0]) != 3 || values.AsNumber(elements[1]) != 2 {
		t.Fatalf("got [%v, %v], want [3, 2]", elements[0], elements[1])
	}
}

func TestClassInstanceAndMethods(t *testing.T) {
	got := run(t, `
		class Counter {
			count = 0;
			bump() {
				this.count = this.count + 1;
				return this.count;
			}
		}
		export default function() {
			let c = new Counter();
			c.bump();
			c.bump();
			return c.count;
		}
	`)
	if values.AsNumber(got) != 2 {
		t.Fatalf("count = %v, want 2", got)
	}
}

func TestEnumCompilesToFrozenTable(t *testing.T) {
	got := run(t, `
		enum Direction {
			Up,
			Down,
			Label = "lbl",
		}
		export default function() {
			return [Direction.Up, Direction.Down, Direction[1], Direction.Label];
		}
	`)
	elements := values.AsArray(got).Elements
	if values.AsNumber(elements[0]) != 0 || values.AsNumber(elements[1]) != 1 {
		t.Fatalf("numeric members = [%v, %v], want [0, 1]", elements[0], elements[1])
	}
	if values.AsString(elements[2]) != "Down" {
		t.Fatalf("reverse mapping Direction[1] = %v, want \"Down\"", elements[2])
	}
	if values.AsString(elements[3]) != "lbl" {
		t.Fatalf("string member = %v, want \"lbl\"", elements[3])
	}
}

func TestGeneratorEndToEnd(t *testing.T) {
	got := run(t, `
		export default function() {
			const g = function*() {
				yield 1;
				yield 2;
			};
			const it = g();
			return [it.next().value, it.next().value, it.next().done];
		}
	`)
	elements := values.AsArray(got).Elements
	if values.AsNumber(elements[0]) != 1 || values.AsNumber(elements[1]) != 2 {
		t.Fatalf("yielded [%v, %v], want [1, 2]", elements[0], elements[1])
	}
	if !elements[2].Truthy() {
		t.Fatalf("done = %v after both yields, want true", elements[2])
	}
}

func TestYieldStarFromSource(t *testing.T) {
	got := run(t, `
		export default function() {
			const inner = function*() {
				yield "a";
				yield "b";
			};
			const outer = function*() {
				yield* inner();
				yield "c";
			};
			let s = "";
			for (const x of outer()) {
				s = s + x;
			}
			return s;
		}
	`)
	if values.AsString(got) != "abc" {
		t.Fatalf("got %q, want \"abc\"", got)
	}
}

func TestDestructuringWithDefaultsAndRest(t *testing.T) {
	got := run(t, `
		export default function() {
			const [a, b = 10, ...rest] = [1, undefined, 3, 4];
			const { x, ...others } = { x: 5, y: 6, z: 7 };
			return [a, b, rest.length, x, others.y];
		}
	`)
	elements := values.AsArray(got).Elements
	want := []float64{1, 10, 2, 5, 6}
	for i, w := range want {
		if values.AsNumber(elements[i]) != w {
			t.Fatalf("element %d = %v, want %v", i, elements[i], w)
		}
	}
}

func TestNullishAndOptionalChaining(t *testing.T) {
	got := run(t, `
		export default function() {
			const o = { a: 1 };
			let missing = undefined;
			const fromChain = missing?.a;
			const fallback = fromChain ?? "none";
			return [o?.a, fallback];
		}
	`)
	elements := values.AsArray(got).Elements
	if values.AsNumber(elements[0]) != 1 {
		t.Fatalf("o?.a = %v, want 1", elements[0])
	}
	if values.AsString(elements[1]) != "none" {
		t.Fatalf("fallback = %v, want \"none\"", elements[1])
	}
}

// Identical source must assemble to identical bytes (Testable Property
// #8): compile twice and compare.
func TestDeterministicBytecode(t *testing.T) {
	src := `
		export default function() {
			const { a, ...rest } = { a: 1, b: 2, c: 3 };
			let total = a;
			for (const k of [rest.b, rest.c]) {
				total = total + k;
			}
			return total;
		}
	`
	first, err := CompileSource("test.ts", src)
	if err != nil {
		t.Fatalf("CompileSource: %v", err)
	}
	second, err := CompileSource("test.ts", src)
	if err != nil {
		t.Fatalf("CompileSource: %v", err)
	}
	if string(first.Bytecode) != string(second.Bytecode) {
		t.Fatal("identical source produced different bytecode")
	}
}

func TestHigherOrderArrayMethods(t *testing.T) {
	got := run(t, `
		export default function() {
			let xs = [1, 2, 3, 4];
			const doubledEvens = xs.filter((x) => x % 2 === 0).map((x) => x * 2);
			return doubledEvens.join(",");
		}
	`)
	if values.AsString(got) != "4,8" {
		t.Fatalf("got %q, want \"4,8\"", got)
	}
}

func TestLintForCapturedLetSurvivesCompilation(t *testing.T) {
	result, err := CompileSource("test.ts", `
		export default function() {
			let x = 1;
			const f = () => x;
			return f();
		}
	`)
	if err != nil {
		t.Fatalf("CompileSource: %v", err)
	}
	if result.HasErrors() {
		t.Fatal("a captured let is a lint, not an error")
	}
	lint := false
	for _, d := range result.Diagnostics {
		if strings.Contains(strings.ToLower(d.Error()), "lint") {
			lint = true
		}
	}
	if !lint {
		t.Error("expected a lint diagnostic for the captured let")
	}
}
