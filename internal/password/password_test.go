package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheck(t *testing.T) {
	cases := []struct {
		name   string
		p1, p2 string
		want   error
	}{
		{"valid", "Abcdef1!", "Abcdef1!", nil},
		{"valid long", "Correct-Horse-Battery-9", "Correct-Horse-Battery-9", nil},
		{"mismatch", "Abcdef1!", "Abcdef1?", ErrMismatch},
		{"seven chars", "Abcde1!", "Abcde1!", ErrTooShort},
		{"empty", "", "", ErrTooShort},
		{"space", "Abc def1!", "Abc def1!", ErrInvalidChar},
		{"non ascii", "Abcdéf1!", "Abcdéf1!", ErrInvalidChar},
		{"no lower", "ABCDEF1!", "ABCDEF1!", ErrMissingLower},
		{"no upper", "abcdef1!", "abcdef1!", ErrMissingUpper},
		{"no digit", "Abcdefg!", "Abcdefg!", ErrMissingDigit},
		{"no symbol", "Abcdefg1", "Abcdefg1", ErrMissingSymbol},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.ErrorIs(t, Check(c.p1, c.p2), c.want)
			assert.Equal(t, c.want == nil, Verify(c.p1, c.p2))
		})
	}
}

// Property: dropping any one character class from a valid password makes it invalid.
func TestVerify_EveryClassRequired(t *testing.T) {
	classes := []string{"abcd", "ABCD", "1234", "!?#-"}
	for skip := range classes {
		var b strings.Builder
		for i, c := range classes {
			if i != skip {
				b.WriteString(c)
			}
		}
		p := b.String()
		assert.False(t, Verify(p, p), "missing class %d should fail: %q", skip, p)
	}
	all := strings.Join(classes, "")
	assert.True(t, Verify(all, all))
}

func TestVerify_AllPunctuationAccepted(t *testing.T) {
	for _, c := range punctuation {
		p := "Abcdef1" + string(c)
		assert.True(t, Verify(p, p), "punctuation %q", c)
	}
}

func TestDigest(t *testing.T) {
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", Digest(""))
	d := Digest("Abcdef1!")
	assert.Len(t, d, 64)
	assert.Equal(t, strings.ToLower(d), d)
}
