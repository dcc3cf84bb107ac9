package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetector_MatchIsCaseInsensitiveSubstring(t *testing.T) {
	d := NewDetector(nil)

	for _, keyword := range DefaultEscalationKeywords {
		_, ok := d.Match("prefix " + keyword + " suffix")
		assert.True(t, ok, keyword)
	}

	tests := []struct {
		text string
		want bool
	}{
		{"I want to talk to a HUMAN agent", true},
		{"Позовите ОПЕРАТОРА пожалуйста", true},
		{"can I SpEaK To SoMeOnE", true},
		{"superhumanly fast delivery", true},
		{"hello", false},
		{"status?", false},
		{"", false},
	}
	for _, tt := range tests {
		_, ok := d.Match(tt.text)
		assert.Equal(t, tt.want, ok, tt.text)
	}
}

func TestNewDetector_NormalizesCustomKeywords(t *testing.T) {
	d := NewDetector([]string{"  Escalate ", "", "escalate", "CALL ME"})

	assert.Equal(t, []string{"escalate", "call me"}, d.Keywords())
	keyword, ok := d.Match("please call me back")
	assert.True(t, ok)
	assert.Equal(t, "call me", keyword)
	_, ok = d.Match("talk to a human")
	assert.False(t, ok)
}

func TestNewDetector_EmptyListFallsBackToDefaults(t *testing.T) {
	d := NewDetector([]string{" ", ""})
	assert.Equal(t, DefaultEscalationKeywords, d.Keywords())
}
