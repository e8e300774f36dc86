package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeTextRemovesNulAndControls(t *testing.T) {
	assert.Equal(t, "abcd\n\txy", SanitizeText("ab\x00cd\x01\x02\n\txy"))
}

func TestSanitizeTextNormalisesLineEndings(t *testing.T) {
	assert.Equal(t, "one\ntwo\nthree", SanitizeText("  one\r\ntwo\rthree\x7f  "))
}
