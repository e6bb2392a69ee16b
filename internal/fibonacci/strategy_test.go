package fibonacci

import "testing"

func TestParseStrategy(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in      string
		want    Strategy
		wantErr bool
	}{
		{"linear", Linear, false},
		{"LINEAR", Linear, false},
		{" logarithmic ", Logarithmic, false},
		{"closedFormExact", ClosedFormExact, false},
		{"closedformapprox", ClosedFormApprox, false},
		{"memoizedRecursive", MemoizedRecursive, false},
		{"unmemoizedRecursive", UnmemoizedRecursive, false},
		{"iterfib", Linear, false},
		{"binetfib", ClosedFormExact, false},
		{"fast", Logarithmic, false},
		{"matrix", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := ParseStrategy(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseStrategy(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("ParseStrategy(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseMode(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", ModeDefault, false},
		{"inline", Inline, false},
		{"cooperative", Cooperative, false},
		{"thread", ThreadOffload, false},
		{"process", ProcessOffload, false},
		{"Process-Offload", ProcessOffload, false},
		{"gpu", ModeDefault, true},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseMode(%q) = (%v, %v), want (%v, wantErr=%v)", tt.in, got, err, tt.want, tt.wantErr)
		}
	}
}

func TestProfiles(t *testing.T) {
	t.Parallel()
	for _, s := range Strategies() {
		p := s.Profile()
		if !p.Allows(p.DefaultMode) {
			t.Errorf("%v: default mode %v is not allowed", s, p.DefaultMode)
		}
		if p.Allows(ModeDefault) {
			t.Errorf("%v: ModeDefault must not be listed", s)
		}
		if p.Allows(Cooperative) {
			if _, err := NewStepper(s, 3, nil); err != nil && s != MemoizedRecursive {
				t.Errorf("%v allows cooperative mode but has no stepper: %v", s, err)
			}
		}
	}
	if UnmemoizedRecursive.Profile().Allows(Cooperative) {
		t.Error("unmemoized recursion cannot run cooperatively")
	}
	if !MemoizedRecursive.UsesCache() || Linear.UsesCache() {
		t.Error("only the memoized strategy uses the cache")
	}
}

func TestStrategyString(t *testing.T) {
	t.Parallel()
	if got := Strategy(99).String(); got != "Strategy(99)" {
		t.Errorf("String() = %q", got)
	}
	if Strategy(99).Valid() {
		t.Error("Strategy(99) must not be valid")
	}
	if got := Mode(99).String(); got != "Mode(99)" {
		t.Errorf("Mode String() = %q", got)
	}
	if len(Strategies()) != 6 {
		t.Errorf("expected 6 strategies, got %d", len(Strategies()))
	}
}
