package slug

import "testing"

func TestMake(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"simple word", "General", "general"},
		{"two words", "General Discussion", "general-discussion"},
		{"already lowercase", "chat", "chat"},
		{"multiple spaces", "Off   Topic", "off-topic"},
		{"punctuation", "Q&A: Help!", "q-a-help"},
		{"leading symbols", "## Announcements", "announcements"},
		{"trailing symbols", "News...", "news"},
		{"digits", "Top 10 Lists", "top-10-lists"},
		{"mixed case", "GoLang Tips", "golang-tips"},
		{"empty", "", ""},
		{"only symbols", "!!!", ""},
		{"unicode stripped", "Café Talk", "caf-talk"},
		{"underscores", "site_feedback", "site-feedback"},
		{"hyphenated input", "how-to guides", "how-to-guides"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Make(tt.input); got != tt.expected {
				t.Errorf("Make(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}
