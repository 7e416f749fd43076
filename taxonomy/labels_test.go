package taxonomy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLabeler_Label(t *testing.T) {
	l := NewLabeler()

	tests := []struct {
		name  string
		texts []string
		want  string
	}{
		{"most frequent", []string{"soil_health testing", "Soil carbon"}, "Soil-related"},
		{"first seen wins ties", []string{"carbon soil", "precision"}, "Carbon-related"},
		{"stop words ignored", []string{"the farming of the land", "farming for the future"}, "Farming-related"},
		{"only stop words", []string{"and the of", "related"}, "Macrocategory 3"},
		{"no texts", nil, "Macrocategory 3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, l.Label(tt.texts, macroFallback(3)))
		})
	}
}

func TestLabeler_Tokens(t *testing.T) {
	l := NewLabeler()
	assert.Equal(t, []string{"no", "till", "farming"}, l.Tokens("No_till  and FARMING"))
	assert.Empty(t, l.Tokens("  "))
}

func TestFallbackLabels(t *testing.T) {
	assert.Equal(t, "Macrocategory 0", macroFallback(0))
	assert.Equal(t, "Microcategory 2_5", microFallback(2, 5))
}
