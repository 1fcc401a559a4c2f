package textutil

import "testing"

func TestRatio(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want func(int) bool
	}{
		{"equal", "Views", "Views", func(s int) bool { return s == 100 }},
		{"case insensitive", "views", "VIEWS", func(s int) bool { return s == 100 }},
		{"empty a", "", "Views", func(s int) bool { return s == 0 }},
		{"both empty", "", "", func(s int) bool { return s == 100 }},
		{"one edit apart", "DAMN", "DAMM", func(s int) bool { return s >= 70 && s < 100 }},
		{"disjoint", "xyzzy", "qwerty", func(s int) bool { return s < 40 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Ratio(tt.a, tt.b)
			if !tt.want(got) {
				t.Errorf("Ratio(%q, %q) = %d", tt.a, tt.b, got)
			}
		})
	}
}

func TestRatioSymmetric(t *testing.T) {
	a, b := "To Pimp a Butterfly", "To Pimp a Butterfly (Deluxe)"
	if Ratio(a, b) != Ratio(b, a) {
		t.Errorf("Ratio not symmetric: %d vs %d", Ratio(a, b), Ratio(b, a))
	}
}

func TestTokenSortRatio(t *testing.T) {
	got := TokenSortRatio("MF DOOM Madvillainy", "Madvillainy MF DOOM")
	if got != 100 {
		t.Errorf("TokenSortRatio(reordered) = %d, want 100", got)
	}
}

func TestTokenSetRatioSuperset(t *testing.T) {
	got := TokenSetRatio("damn.", "damn. collectors edition")
	if got != 100 {
		t.Errorf("TokenSetRatio(subset) = %d, want 100", got)
	}
}

func TestTokenSetRatioDistinct(t *testing.T) {
	got := TokenSetRatio("Views", "Take Care")
	if got >= 85 {
		t.Errorf("TokenSetRatio(distinct albums) = %d, want < 85", got)
	}
}

func TestTokenSetRatioSymmetric(t *testing.T) {
	a, b := "channel orange", "orange channel deluxe"
	if TokenSetRatio(a, b) != TokenSetRatio(b, a) {
		t.Error("TokenSetRatio not symmetric")
	}
}
