package facematch

import "testing"

func TestRemoveDiacritics(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Honza", "Honza"},
		{"José", "Jose"},
		{"Peña", "Pena"},
		{"Žluťoučký kůň", "Zlutoucky kun"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := RemoveDiacritics(tt.input)
			if result != tt.expected {
				t.Errorf("RemoveDiacritics(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestNormalizePersonName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"María López", "maria lopez"},
		{"maria-lopez", "maria lopez"},
		{"JOHN DOE", "john doe"},
		{"  Ana   Gómez ", "ana gomez"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := NormalizePersonName(tt.input)
			if result != tt.expected {
				t.Errorf("NormalizePersonName(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestFullName(t *testing.T) {
	if got := FullName(" Ana ", "Gómez"); got != "Ana Gómez" {
		t.Errorf("FullName = %q", got)
	}
	if got := FullName("Ana", ""); got != "Ana" {
		t.Errorf("FullName without family name = %q", got)
	}
}

func TestNameMatches(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		expected bool
	}{
		{"empty query", "", true},
		{"given name", "maria", true},
		{"family name without accent", "lopez", true},
		{"full name with accent", "María López", true},
		{"dashed", "maria-lopez", true},
		{"external key", "4567", true},
		{"no match", "pedro", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NameMatches(tt.query, "María", "López", "12345678")
			if got != tt.expected {
				t.Errorf("NameMatches(%q) = %v, want %v", tt.query, got, tt.expected)
			}
		})
	}
}
