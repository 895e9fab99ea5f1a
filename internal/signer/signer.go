// Package signer produces HMAC-SHA1 signed URLs for Google Maps web services.
package signer

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"errors"
	"net/url"
	"strings"

	"github.com/me/lunchwheel/pkg/model"
)

// Sign returns rawURL with a signature query parameter appended.
//
// The HMAC is computed over the path and query only. The secret is the
// base64 (standard or URL-safe) key from the Google Cloud console; decoding
// is lenient, so a malformed secret still signs but is rejected upstream.
func Sign(rawURL, secretKeyBase64 string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", &model.SigningError{URL: rawURL, Err: err}
	}
	if u.Scheme == "" || u.Host == "" {
		return "", &model.SigningError{URL: rawURL, Err: errors.New("url is not absolute")}
	}

	toSign := u.EscapedPath()
	if u.RawQuery != "" {
		toSign += "?" + u.RawQuery
	}

	mac := hmac.New(sha1.New, decodeSecret(secretKeyBase64))
	mac.Write([]byte(toSign))
	sig := base64.URLEncoding.EncodeToString(mac.Sum(nil))

	sep := "&"
	if u.RawQuery == "" {
		sep = "?"
	}
	return rawURL + sep + "signature=" + url.QueryEscape(sig), nil
}

// decodeSecret decodes base64 the forgiving way: both alphabets are accepted,
// padding is optional and characters outside the alphabet are skipped.
func decodeSecret(s string) []byte {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '+', r == '/':
			b.WriteRune(r)
		case r == '-':
			b.WriteByte('+')
		case r == '_':
			b.WriteByte('/')
		}
	}
	clean := b.String()
	// A single trailing sextet cannot form a byte.
	if len(clean)%4 == 1 {
		clean = clean[:len(clean)-1]
	}
	key, err := base64.RawStdEncoding.DecodeString(clean)
	if err != nil {
		return nil
	}
	return key
}
