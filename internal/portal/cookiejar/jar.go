// Package cookiejar implements the minimal cookie store the authority portal
// needs. The portal's cookies do not follow RFC 6265 domain/path scoping
// (net/http's cookiejar would drop several of them), so this jar keeps a flat
// name→value map: attributes are discarded and the last write wins.
package cookiejar

import (
	"fmt"
	"strings"
)

// Jar accumulates Set-Cookie values for one portal session. It is not safe
// for concurrent use; one jar belongs to one session client.
type Jar struct {
	names  []string
	values map[string]string
}

func New() *Jar {
	return &Jar{values: make(map[string]string)}
}

// SetFromHeader stores one raw Set-Cookie header value. Everything after the
// first ';' (Path, Domain, HttpOnly, Secure, SameSite, Max-Age, ...) is
// discarded. The name/value split happens on the first '=' only, so values
// containing '=' survive intact. Malformed values without '=' are ignored.
func (j *Jar) SetFromHeader(raw string) {
	pair := raw
	if i := strings.Index(pair, ";"); i >= 0 {
		pair = pair[:i]
	}
	pair = strings.TrimSpace(pair)

	i := strings.Index(pair, "=")
	if i <= 0 {
		return
	}
	name := pair[:i]
	value := pair[i+1:]

	if _, ok := j.values[name]; !ok {
		j.names = append(j.names, name)
	}
	j.values[name] = value
}

// Header renders the accumulated cookies as a single Cookie request header
// value: name=value pairs joined by "; ", in first-seen order.
func (j *Jar) Header() string {
	pairs := make([]string, 0, len(j.names))
	for _, name := range j.names {
		pairs = append(pairs, name+"="+j.values[name])
	}
	return strings.Join(pairs, "; ")
}

// Len reports the number of stored cookies.
func (j *Jar) Len() int {
	return len(j.names)
}

// Clear empties the jar.
func (j *Jar) Clear() {
	j.names = nil
	j.values = make(map[string]string)
}

// String reports only a count. Cookie values are session credentials and
// must never end up in logs.
func (j *Jar) String() string {
	return fmt.Sprintf("cookiejar(%d cookies)", len(j.names))
}
