package course

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Type
	}{
		{"exact td", "COURS_TD", CoursTd},
		{"lowercase td", "cours_td", CoursTd},
		{"dashed td normalizes", "cours-td", CoursTd},
		{"spaced td normalizes", "COURS TD", CoursTd},
		{"padded", "  TP  ", CoursTp},
		{"projet", "PROJET", Projet},
		{"auto appr", "AUTO_APPR", AutoAppr},
		{"empty", "", Unknown},
		{"blank", "   ", Unknown},
		{"garbage", "REUNION", Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.raw); got != tt.want {
				t.Errorf("Classify(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

// "est-epreuve" normalizes to "EST_EPREUVE" which misses the table; only
// the second pass on the original string matches it.
func TestClassify_EpreuveSecondPass(t *testing.T) {
	if got := Classify("est-epreuve"); got != Epreuve {
		t.Errorf("Classify(est-epreuve) = %v, want Epreuve", got)
	}
	if got := Classify("EST-EPREUVE"); got != Epreuve {
		t.Errorf("Classify(EST-EPREUVE) = %v, want Epreuve", got)
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		t    Type
		want string
	}{
		{Unknown, "Autre"},
		{CoursTd, "TD"},
		{CoursTp, "TP"},
		{Projet, "Projet"},
		{Epreuve, "Épreuve"},
		{AutoAppr, "Auto-apprentissage"},
		{Type(99), "Autre"},
	}

	for _, tt := range tests {
		if got := DisplayName(tt.t); got != tt.want {
			t.Errorf("DisplayName(%v) = %q, want %q", tt.t, got, tt.want)
		}
	}
}

func TestDisplayNameFromRaw(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"known type", "COURS_TD", "TD"},
		{"epreuve", "est-epreuve", "Épreuve"},
		{"blank falls back to generic", "  ", "Autre"},
		{"unknown keeps raw text", "Réunion pédagogique", "Réunion pédagogique"},
		{"unknown collapses whitespace", "  Réunion   pédagogique ", "Réunion pédagogique"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DisplayNameFromRaw(tt.raw); got != tt.want {
				t.Errorf("DisplayNameFromRaw(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}
