package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseChallenge(t *testing.T) {
	header := `Digest qop="auth",algorithm=MD5,realm="monero-rpc",nonce="hBZ2rZIxElv4lqCRrUylXA==",stale=false, ` +
		`Digest qop="auth",algorithm=SHA-256,realm="monero-rpc",nonce="other==",stale=false`

	challenge, err := ParseChallenge(header)
	require.NoError(t, err)
	assert.Equal(t, "monero-rpc", challenge.Realm)
	assert.Equal(t, "hBZ2rZIxElv4lqCRrUylXA==", challenge.Nonce)
	assert.Equal(t, "auth", challenge.Qop)
	assert.Equal(t, "MD5", challenge.Algorithm)
	assert.Empty(t, challenge.Opaque)
}

func TestParseChallenge_QuotedComma(t *testing.T) {
	challenge, err := ParseChallenge(`Digest realm="a, b", nonce="n", qop="auth,auth-int", opaque="xyz"`)
	require.NoError(t, err)
	assert.Equal(t, "a, b", challenge.Realm)
	assert.Equal(t, "auth,auth-int", challenge.Qop)
	assert.Equal(t, "xyz", challenge.Opaque)
}

func TestParseChallenge_Errors(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   error
	}{
		{"empty", "", ErrNoChallenge},
		{"basic scheme", `Basic realm="x"`, ErrNoChallenge},
		{"no nonce", `Digest realm="x", qop="auth"`, ErrMalformedChallenge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseChallenge(tt.header)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestDigestAuth_ComputeDigestResponse(t *testing.T) {
	auth := &DigestAuth{
		Username: "Mufasa",
		Password: "Circle Of Life",
		Method:   "GET",
		URI:      "/dir/index.html",
		Challenge: &DigestChallenge{
			Realm: "testrealm@host.com",
			Nonce: "dcd98b7102dd2f0e8b11d0f600bfb0c093",
		},
		Qop:    "auth",
		Nc:     "00000001",
		Cnonce: "0a4f113b",
	}

	response, err := auth.ComputeDigestResponse()
	require.NoError(t, err)
	assert.Equal(t, "6629fae49393a05397450978507c4ef1", response)
}

func TestDigestAuth_BuildAuthorizationHeader(t *testing.T) {
	auth := &DigestAuth{
		Username:  "user",
		Password:  "pass",
		Method:    "POST",
		URI:       "https://node.example/json_rpc",
		Challenge: &DigestChallenge{Realm: "r", Nonce: "n"},
		Qop:       "auth",
		Nc:        "00000001",
		Cnonce:    "0123456789abcdef",
	}

	header, err := auth.BuildAuthorizationHeader()
	require.NoError(t, err)

	response, err := auth.ComputeDigestResponse()
	require.NoError(t, err)

	want := `Digest username="user", realm="r", nonce="n", uri="https://node.example/json_rpc", ` +
		`response="` + response + `", opaque="null", qop=auth, nc=00000001, cnonce="0123456789abcdef"`
	assert.Equal(t, want, header)
}

func TestDigestAuth_SHA256(t *testing.T) {
	auth := &DigestAuth{
		Username:  "u",
		Password:  "p",
		Method:    "GET",
		URI:       "/",
		Challenge: &DigestChallenge{Realm: "r", Nonce: "n", Algorithm: "SHA-256"},
		Qop:       "auth",
		Nc:        "00000001",
		Cnonce:    "c",
	}

	response, err := auth.ComputeDigestResponse()
	require.NoError(t, err)
	assert.Len(t, response, 64)
}

func TestDigestAuth_UnsupportedAlgorithm(t *testing.T) {
	auth := &DigestAuth{Challenge: &DigestChallenge{Nonce: "n", Algorithm: "MD5-sess"}}

	_, err := auth.ComputeDigestResponse()
	assert.ErrorIs(t, err, ErrMalformedChallenge)
}

func TestSelectQop(t *testing.T) {
	qop, err := selectQop("")
	require.NoError(t, err)
	assert.Equal(t, "auth", qop)

	qop, err = selectQop("auth-int, auth")
	require.NoError(t, err)
	assert.Equal(t, "auth", qop)

	_, err = selectQop("auth-int")
	assert.ErrorIs(t, err, ErrMalformedChallenge)
}

func TestAuthAttempt_Next(t *testing.T) {
	attempt := &AuthAttempt{}
	hexNonce := regexp.MustCompile(`^[0-9a-f]{16}$`)

	nc, cnonce, err := attempt.next()
	require.NoError(t, err)
	assert.Equal(t, "00000001", nc)
	assert.Regexp(t, hexNonce, cnonce)

	nc, second, err := attempt.next()
	require.NoError(t, err)
	assert.Equal(t, "00000002", nc)
	assert.NotEqual(t, cnonce, second)
}

// digestServer answers unauthenticated requests with a challenge and checks
// the Authorization header of the retry. accept decides the retry status.
func digestServer(t *testing.T, hits *atomic.Int32, accept bool) *httptest.Server {
	t.Helper()

	var server *httptest.Server
	server = httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)

		header := r.Header.Get("Authorization")
		if header == "" || !accept {
			w.Header().Set("WWW-Authenticate", `Digest realm="rpc", nonce="abc123", qop="auth", algorithm=MD5`)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		params := ParseWWWAuthenticate(strings.TrimPrefix(header, "Digest "))
		assert.Equal(t, "00000001", params["nc"])
		assert.Equal(t, "null", params["opaque"])
		assert.Equal(t, server.URL+"/json_rpc", params["uri"])

		expected := &DigestAuth{
			Username:  "user",
			Password:  "secret",
			Method:    r.Method,
			URI:       params["uri"],
			Challenge: &DigestChallenge{Realm: "rpc", Nonce: "abc123"},
			Qop:       params["qop"],
			Nc:        params["nc"],
			Cnonce:    params["cnonce"],
		}
		response, err := expected.ComputeDigestResponse()
		require.NoError(t, err)

		if params["response"] != response {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"result":"ok"}`))
	}))
	return server
}

func TestClient_DigestRetry(t *testing.T) {
	var hits atomic.Int32
	server := digestServer(t, &hits, true)
	defer server.Close()

	req := NewRequest("POST", server.URL+"/json_rpc").
		SetBody(Text(`{"method":"get_info"}`)).
		SetCredentials("user", "secret").
		SetRejectUnauthorized(false)

	resp, err := NewClient().Execute(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, `{"result":"ok"}`, resp.BodyString())
	assert.Equal(t, int32(2), hits.Load())
}

func TestClient_DigestRejected(t *testing.T) {
	var hits atomic.Int32
	server := digestServer(t, &hits, false)
	defer server.Close()

	req := NewRequest("GET", server.URL+"/json_rpc").
		SetCredentials("user", "wrong").
		SetRejectUnauthorized(false)

	_, err := NewClient().Execute(context.Background(), req)

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, 401, authErr.StatusCode)
	assert.Equal(t, 401, StatusCode(err))
	require.NotNil(t, authErr.Response)
	assert.Equal(t, int32(2), hits.Load())
}

func TestClient_UnauthorizedWithoutCredentials(t *testing.T) {
	var hits atomic.Int32
	server := digestServer(t, &hits, true)
	defer server.Close()

	_, err := NewClient().Execute(context.Background(), NewRequest("GET", server.URL+"/json_rpc").SetRejectUnauthorized(false))

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, int32(1), hits.Load())
}

func TestClient_UnauthorizedWithoutChallenge(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	req := NewRequest("GET", server.URL).SetCredentials("user", "secret")
	_, err := NewClient().Execute(context.Background(), req)

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.ErrorIs(t, err, ErrNoChallenge)
	assert.Equal(t, int32(1), hits.Load())
}
