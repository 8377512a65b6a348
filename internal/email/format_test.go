package email

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// stripSpaces removes every kind of space so assertions do not depend on
// the exact grouping separator the locale data emits.
func stripSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', ' ', ' ', ' ':
			return -1
		}
		return r
	}, s)
}

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string // compared space-insensitively
	}{
		{"bare integer gets euro suffix", "150", "150€"},
		{"already has symbol passes through", "150€", "150€"},
		{"symbol with space passes through", "150 €", "150€"},
		{"symbol mid-string passes through", "€150", "€150"},
		{"decimal comma", "150,50", "150,5€"},
		{"grouping", "1234,5", "1234,5€"},
		{"free text gets suffix", "environ 150", "environ150€"},
		{"empty stays empty", "", ""},
		{"whitespace only stays empty", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formatPrice(tt.in)
			assert.Equal(t, tt.want, stripSpaces(got))
		})
	}
}

func TestFormatPrice_EscapesMarkup(t *testing.T) {
	got := formatPrice("<b>150</b>€")
	assert.NotContains(t, got, "<b>")
	assert.Contains(t, got, "&lt;b&gt;")
}

func TestFormatMileage(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare integer gets km suffix", "120000", "120000km"},
		{"already has km passes through", "120000 km", "120000km"},
		{"uppercase KM passes through", "120000 KM", "120000KM"},
		{"free text gets suffix", "faible kilométrage", "faiblekilométragekm"},
		{"empty stays empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formatMileage(tt.in)
			assert.Equal(t, tt.want, stripSpaces(got))
		})
	}
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in     string
		want   float64
		wantOK bool
	}{
		{"150", 150, true},
		{"150,5", 150.5, true},
		{"150.5", 150.5, true},
		{"1 234,56", 1234.56, true},
		{"1.234,56", 1234.56, true},
		{"abc", 0, false},
		{"12abc", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := parseNumber(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.InDelta(t, tt.want, got, 0.001)
			}
		})
	}
}

func TestStartsWithGreeting(t *testing.T) {
	tests := []struct {
		msg  string
		want bool
	}{
		{"Bonjour, votre pièce est prête", true},
		{"bonjour", true},
		{"BONSOIR Monsieur", true},
		{"Salut!", true},
		{"Hello,", true},
		{"Coucou", true},
		{"  Bonjour", true},
		{"Bonjourno", false}, // whole-word match only
		{"Votre pièce est prête", false},
		{"", false},
		{"Merci de votre demande", false},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			assert.Equal(t, tt.want, startsWithGreeting(tt.msg))
		})
	}
}

func TestNl2br(t *testing.T) {
	assert.Equal(t, "ligne 1<br>ligne 2", nl2br("ligne 1\nligne 2"))
	assert.Equal(t, "ligne 1<br>ligne 2", nl2br("ligne 1\r\nligne 2"))
	assert.Equal(t, "a &amp; b<br>c", nl2br("a & b\nc"))
}

func TestEscapeText(t *testing.T) {
	got := escapeText(`<script>"a" & 'b'</script>`)
	assert.NotContains(t, got, "<script>")
	assert.Contains(t, got, "&lt;script&gt;")
	assert.Contains(t, got, "&amp;")
	assert.Contains(t, got, "&#34;")
	assert.Contains(t, got, "&#39;")
}

func TestStyleAttr(t *testing.T) {
	got := styleAttr([]cssDecl{
		{"margin", "16px 0"},
		{"background-color", "#f4f6f8"},
	})
	assert.Equal(t, "margin: 16px 0; background-color: #f4f6f8;", got)

	// Order is preserved exactly as declared
	reversed := styleAttr([]cssDecl{
		{"background-color", "#f4f6f8"},
		{"margin", "16px 0"},
	})
	assert.Equal(t, "background-color: #f4f6f8; margin: 16px 0;", reversed)
}

func TestOrDash(t *testing.T) {
	assert.Equal(t, "—", orDash(""))
	assert.Equal(t, "—", orDash("   "))
	assert.Equal(t, "Moteur", orDash("Moteur"))
	assert.Equal(t, "&lt;x&gt;", orDash("<x>"))
}
