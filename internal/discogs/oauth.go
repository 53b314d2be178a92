package discogs

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Discogs accepts the OAuth 1.0a PLAINTEXT signature method, which keeps the
// signing step to a single string concatenation. The signature is the
// percent-encoded consumer secret, an ampersand, and the percent-encoded
// token secret (empty during the request-token step).
func plaintextSignature(consumerSecret, tokenSecret string) string {
	return url.QueryEscape(consumerSecret) + "&" + url.QueryEscape(tokenSecret)
}

func nonce() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand failing means the platform is broken; fall back to the
		// clock rather than aborting a read-only API call.
		return strconv.FormatInt(time.Now().UnixNano(), 16)
	}
	return hex.EncodeToString(b)
}

type oauthParams struct {
	ConsumerKey    string
	ConsumerSecret string
	Token          string
	TokenSecret    string
	Callback       string
	Verifier       string
}

// header builds the Authorization header value for one request.
func (p oauthParams) header() string {
	pairs := []string{
		fmt.Sprintf("oauth_consumer_key=%q", p.ConsumerKey),
		fmt.Sprintf("oauth_nonce=%q", nonce()),
		fmt.Sprintf("oauth_signature=%q", plaintextSignature(p.ConsumerSecret, p.TokenSecret)),
		`oauth_signature_method="PLAINTEXT"`,
		fmt.Sprintf("oauth_timestamp=%q", strconv.FormatInt(time.Now().Unix(), 10)),
	}
	if p.Token != "" {
		pairs = append(pairs, fmt.Sprintf("oauth_token=%q", p.Token))
	}
	if p.Callback != "" {
		pairs = append(pairs, fmt.Sprintf("oauth_callback=%q", url.QueryEscape(p.Callback)))
	}
	if p.Verifier != "" {
		pairs = append(pairs, fmt.Sprintf("oauth_verifier=%q", p.Verifier))
	}
	return "OAuth " + strings.Join(pairs, ", ")
}

// parseTokenResponse decodes the form-encoded body of the request-token and
// access-token endpoints.
func parseTokenResponse(body string) (token, secret string, err error) {
	values, err := url.ParseQuery(strings.TrimSpace(body))
	if err != nil {
		return "", "", fmt.Errorf("malformed token response: %w", err)
	}
	token = values.Get("oauth_token")
	secret = values.Get("oauth_token_secret")
	if token == "" || secret == "" {
		return "", "", fmt.Errorf("token response missing oauth_token or oauth_token_secret")
	}
	return token, secret, nil
}
