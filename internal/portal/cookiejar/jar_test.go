package cookiejar

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetFromHeader_StripsAttributes(t *testing.T) {
	j := New()
	j.SetFromHeader("JSESSIONID=abc123; Path=/portale; HttpOnly; Secure")
	assert.Equal(t, "JSESSIONID=abc123", j.Header())
}

func TestSetFromHeader_LastWriteWins(t *testing.T) {
	j := New()
	j.SetFromHeader("A=1")
	j.SetFromHeader("A=2")
	assert.Equal(t, 1, j.Len())
	assert.Equal(t, "A=2", j.Header())
}

func TestSetFromHeader_ValueContainingEquals(t *testing.T) {
	j := New()
	j.SetFromHeader("token=a=b=c; Path=/")
	assert.Equal(t, "token=a=b=c", j.Header())
}

func TestSetFromHeader_IgnoresMalformed(t *testing.T) {
	j := New()
	j.SetFromHeader("no-equals-here")
	j.SetFromHeader("=empty-name")
	assert.Equal(t, 0, j.Len())
}

func TestHeader_JoinsInFirstSeenOrder(t *testing.T) {
	j := New()
	j.SetFromHeader("A=1")
	j.SetFromHeader("B=2; Max-Age=60")
	j.SetFromHeader("C=3")
	j.SetFromHeader("A=9") // update must not reorder
	assert.Equal(t, "A=9; B=2; C=3", j.Header())
}

func TestClear(t *testing.T) {
	j := New()
	j.SetFromHeader("A=1")
	j.Clear()
	assert.Equal(t, 0, j.Len())
	assert.Equal(t, "", j.Header())
}

func TestString_NeverLeaksValues(t *testing.T) {
	j := New()
	j.SetFromHeader("JSESSIONID=topsecret")
	s := j.String()
	assert.False(t, strings.Contains(s, "topsecret"))
	assert.Contains(t, s, "1")
}
