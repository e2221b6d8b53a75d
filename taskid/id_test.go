package taskid

import "testing"

func TestParse_RoundTrip(t *testing.T) {
	cases := []string{
		"F:1:S0:1:U1",
		"F:1:S0:1:U1:P0:5",
		"F:1:S0:1:U1:P0:5:C2",
		"F:1:S0:1:U1:P0:5:C2:W3",
		"!:F:1:S0:1:U1:P0:5",
	}
	for _, s := range cases {
		id, err := Parse(s)
		if err != nil {
			t.Fatalf("Parse(%q) failed: %v", s, err)
		}
		if got := id.String(); got != s {
			t.Fatalf("round trip mismatch: got %q want %q", got, s)
		}
	}
}

func TestParse_Malformed(t *testing.T) {
	cases := []string{
		"",
		"F:1:S0:1",
		"F:1:X0:1:U1",
		"F:1:S0:2:U1",
		"G:1:S0:1:U1",
		"F:1:S0:1:U1:Z9",
	}
	for _, s := range cases {
		if _, err := Parse(s); err == nil {
			t.Fatalf("Parse(%q) unexpectedly succeeded", s)
		}
	}
}

func TestWithSpace_Idempotent(t *testing.T) {
	id := New(1, 0, 1)
	id = id.WithSpace(0, 5)
	again := id.WithSpace(9, 9)
	if again != id {
		t.Fatalf("WithSpace re-applied mutated an already-tagged id: got %+v want %+v", again, id)
	}
}

func TestWithComputer_Idempotent(t *testing.T) {
	id := New(1, 0, 1).WithSpace(0, 5).WithComputer(2)
	again := id.WithComputer(9)
	if again != id {
		t.Fatalf("WithComputer re-applied mutated an already-tagged id")
	}
}

func TestWithoutComputer_StripsComputerAndWorker(t *testing.T) {
	id := New(1, 0, 1).WithSpace(0, 5).WithComputer(2).WithWorker(3)
	stripped := id.WithoutComputer()
	if stripped.HasComputer || stripped.HasWorker {
		t.Fatalf("expected computer and worker segments stripped, got %+v", stripped)
	}
	if stripped.String() != "F:1:S0:1:U1:P0:5" {
		t.Fatalf("unexpected stripped id: %s", stripped.String())
	}
}

func TestAsSuccessor(t *testing.T) {
	id := New(1, 0, 1).AsSuccessor()
	if !id.Successor {
		t.Fatal("expected Successor flag set")
	}
	if id.String()[:2] != "!:" {
		t.Fatalf("expected leading successor marker, got %q", id.String())
	}
}

func TestGobRoundTrip(t *testing.T) {
	id := New(1, 0, 1).WithSpace(0, 5).WithComputer(2)
	data, err := id.GobEncode()
	if err != nil {
		t.Fatalf("GobEncode: %v", err)
	}
	var decoded ID
	if err := decoded.GobDecode(data); err != nil {
		t.Fatalf("GobDecode: %v", err)
	}
	if decoded != id {
		t.Fatalf("gob round trip mismatch: got %+v want %+v", decoded, id)
	}
}
