package http

import (
	"crypto/md5"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"regexp"
	"strings"
)

var (
	// ErrNoChallenge is returned when a 401 carries no digest challenge
	ErrNoChallenge = errors.New("missing digest challenge")
	// ErrMalformedChallenge is returned when a challenge lacks required parameters
	ErrMalformedChallenge = errors.New("malformed digest challenge")
)

// extraChallenge matches a second challenge appended after the first one.
var extraChallenge = regexp.MustCompile(`(?i),\s*Digest\s.*$`)

// DigestChallenge holds the parameters of a WWW-Authenticate: Digest header
type DigestChallenge struct {
	Realm     string
	Nonce     string
	Qop       string
	Opaque    string
	Algorithm string
}

// ParseChallenge parses the first Digest challenge in a WWW-Authenticate
// header. Additional challenges after it are ignored.
func ParseChallenge(header string) (*DigestChallenge, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return nil, ErrNoChallenge
	}

	scheme, rest, _ := strings.Cut(header, " ")
	if !strings.EqualFold(scheme, "Digest") {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrNoChallenge, scheme)
	}
	rest = extraChallenge.ReplaceAllString(rest, "")

	params := ParseWWWAuthenticate(rest)
	challenge := &DigestChallenge{
		Realm:     params["realm"],
		Nonce:     params["nonce"],
		Qop:       params["qop"],
		Opaque:    params["opaque"],
		Algorithm: params["algorithm"],
	}
	if challenge.Nonce == "" {
		return nil, fmt.Errorf("%w: no nonce", ErrMalformedChallenge)
	}

	return challenge, nil
}

// ParseWWWAuthenticate splits comma separated key=value pairs. Values may be
// quoted; commas inside quotes belong to the value. Keys are lowercased.
func ParseWWWAuthenticate(params string) map[string]string {
	result := make(map[string]string)

	for _, part := range splitParams(params) {
		part = strings.TrimSpace(part)
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		value = strings.TrimPrefix(value, `"`)
		value = strings.TrimSuffix(value, `"`)
		result[key] = value
	}

	return result
}

func splitParams(s string) []string {
	var parts []string
	var current strings.Builder
	quoted := false

	for _, r := range s {
		switch {
		case r == '"':
			quoted = !quoted
			current.WriteRune(r)
		case r == ',' && !quoted:
			parts = append(parts, current.String())
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	if current.Len() > 0 {
		parts = append(parts, current.String())
	}
	return parts
}

// AuthAttempt is the client side state of one request's digest exchange.
// It is never shared between requests.
type AuthAttempt struct {
	nc int
}

// next advances the nonce count and returns it with a fresh client nonce
func (a *AuthAttempt) next() (nc string, cnonce string, err error) {
	a.nc++
	cnonce, err = GenerateCnonce()
	if err != nil {
		return "", "", err
	}
	return fmt.Sprintf("%08x", a.nc), cnonce, nil
}

// DigestAuth contains the parameters needed to answer a challenge
type DigestAuth struct {
	Username  string
	Password  string
	Method    string
	URI       string
	Challenge *DigestChallenge
	Qop       string
	Nc        string
	Cnonce    string
}

// ComputeDigestResponse calculates the response hash:
// H(H(user:realm:pass):nonce:nc:cnonce:qop:H(method:uri))
func (d *DigestAuth) ComputeDigestResponse() (string, error) {
	h, err := digestHash(d.Challenge.Algorithm)
	if err != nil {
		return "", err
	}

	ha1 := h(fmt.Sprintf("%s:%s:%s", d.Username, d.Challenge.Realm, d.Password))
	ha2 := h(fmt.Sprintf("%s:%s", d.Method, d.URI))

	return h(fmt.Sprintf("%s:%s:%s:%s:%s:%s", ha1, d.Challenge.Nonce, d.Nc, d.Cnonce, d.Qop, ha2)), nil
}

// BuildAuthorizationHeader creates the Authorization header value
func (d *DigestAuth) BuildAuthorizationHeader() (string, error) {
	response, err := d.ComputeDigestResponse()
	if err != nil {
		return "", err
	}

	opaque := d.Challenge.Opaque
	if opaque == "" {
		opaque = "null"
	}

	parts := []string{
		fmt.Sprintf(`username="%s"`, d.Username),
		fmt.Sprintf(`realm="%s"`, d.Challenge.Realm),
		fmt.Sprintf(`nonce="%s"`, d.Challenge.Nonce),
		fmt.Sprintf(`uri="%s"`, d.URI),
		fmt.Sprintf(`response="%s"`, response),
		fmt.Sprintf(`opaque="%s"`, opaque),
		fmt.Sprintf(`qop=%s`, d.Qop),
		fmt.Sprintf(`nc=%s`, d.Nc),
		fmt.Sprintf(`cnonce="%s"`, d.Cnonce),
	}

	return "Digest " + strings.Join(parts, ", "), nil
}

// selectQop picks "auth" from the offered protection levels. An empty
// offer is treated as "auth"; anything else is unsupported.
func selectQop(offered string) (string, error) {
	if strings.TrimSpace(offered) == "" {
		return "auth", nil
	}
	for _, q := range strings.Split(offered, ",") {
		if strings.TrimSpace(q) == "auth" {
			return "auth", nil
		}
	}
	return "", fmt.Errorf("%w: unsupported qop %q", ErrMalformedChallenge, offered)
}

func digestHash(algorithm string) (func(string) string, error) {
	var newHash func() hash.Hash
	switch strings.ToUpper(algorithm) {
	case "", "MD5":
		newHash = md5.New
	case "SHA-256":
		newHash = sha256.New
	default:
		return nil, fmt.Errorf("%w: unsupported algorithm %q", ErrMalformedChallenge, algorithm)
	}

	return func(s string) string {
		h := newHash()
		h.Write([]byte(s))
		return hex.EncodeToString(h.Sum(nil))
	}, nil
}

// GenerateCnonce generates a random 16 character lowercase hex client nonce
func GenerateCnonce() (string, error) {
	b := make([]byte, 8)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
