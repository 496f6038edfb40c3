package musickey

import "testing"

// TestOpenKeyLancelotAgreeWithCanonicalCode mirrors the teacher's
// determinism-style property tests (internal/planner/planner_property_test.go):
// every notation must resolve to the same canonical code.
func TestOpenKeyLancelotAgreeWithCanonicalCode(t *testing.T) {
	cases := []struct {
		name  string
		got   Code
		want  Code
	}{
		{"OpenKey(1,Major)", OpenKeyCode(1, ModeMajor), 1},
		{"Lancelot(8,Major)", LancelotCode(8, ModeMajor), 1},
		{"OpenKey(12,Minor)", OpenKeyCode(12, ModeMinor), 24},
		{"Lancelot(7,Minor)", LancelotCode(7, ModeMinor), 24},
	}
	for _, c := range cases {
		if c.got != c.want {
			t.Errorf("%s = %d, want %d", c.name, c.got, c.want)
		}
	}
}

func TestOpenKeyRoundTrip(t *testing.T) {
	for code := Code(1); code <= MaxCode; code++ {
		n, mode, ok := OpenKeyFromCode(code)
		if !ok {
			t.Fatalf("code %d: expected ok", code)
		}
		if got := OpenKeyCode(n, mode); got != code {
			t.Errorf("code %d: round trip via OpenKey got %d", code, got)
		}
	}
}

func TestLancelotRoundTrip(t *testing.T) {
	for code := Code(1); code <= MaxCode; code++ {
		n, mode, ok := LancelotFromCode(code)
		if !ok {
			t.Fatalf("code %d: expected ok", code)
		}
		if got := LancelotCode(n, mode); got != code {
			t.Errorf("code %d: round trip via Lancelot got %d", code, got)
		}
	}
}

func TestEngineRoundTrip(t *testing.T) {
	for code := Code(1); code <= MaxCode; code++ {
		n, ok := EngineFromCode(code)
		if !ok {
			t.Fatalf("code %d: expected ok", code)
		}
		if got := EngineCode(n); got != code {
			t.Errorf("code %d: round trip via Engine got %d", code, got)
		}
	}
}

func TestStringNotationsRoundTrip(t *testing.T) {
	parsers := []struct {
		name   string
		format func(Code) string
		parse  func(string) (Code, bool)
	}{
		{"canonical", FormatCanonical, ParseCanonical},
		{"traditional", FormatTraditional, ParseTraditional},
		{"openkey", FormatOpenKey, ParseOpenKey},
		{"lancelot", FormatLancelot, ParseLancelot},
		{"traxsource", FormatTraxsource, ParseTraxsource},
		{"beatport", FormatBeatport, ParseBeatport},
		{"serato", FormatSerato, ParseSerato},
	}
	for _, p := range parsers {
		for code := Code(1); code <= MaxCode; code++ {
			s := p.format(code)
			if s == "" {
				t.Errorf("%s: code %d formatted empty", p.name, code)
				continue
			}
			got, ok := p.parse(s)
			if !ok {
				t.Errorf("%s: parse(%q) failed for code %d", p.name, s, code)
				continue
			}
			if got != code {
				t.Errorf("%s: round trip %q -> %d, want %d", p.name, s, got, code)
			}
		}
	}
}

func TestModeParity(t *testing.T) {
	for code := Code(1); code <= MaxCode; code++ {
		mode, ok := code.Mode()
		if !ok {
			t.Fatalf("code %d: expected a mode", code)
		}
		wantMajor := code%2 == 1
		if (mode == ModeMajor) != wantMajor {
			t.Errorf("code %d: mode = %v, want major=%v", code, mode, wantMajor)
		}
	}
}

func TestOffCodeHasNoMode(t *testing.T) {
	if _, ok := Code(0).Mode(); ok {
		t.Fatal("Off code should have no mode")
	}
}
