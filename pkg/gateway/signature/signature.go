// Package signature implements the HMAC field-set signing scheme shared by
// the payment gateways: an ordered subset of request fields is joined into a
// canonical string and signed with HMAC-SHA256 under the merchant secret.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strings"
)

type Encoding int

const (
	EncodingBase64 Encoding = iota
	EncodingHex
)

// Codec signs and verifies one gateway's field set. Fields lists the signed
// field names in the exact order the gateway's documentation prescribes.
type Codec struct {
	Fields    []string
	Delimiter string
	Encoding  Encoding
}

// Canonical builds the signed string: name=value pairs for each configured
// field, joined by the delimiter. Fields absent from params or carrying an
// empty value are skipped entirely, not replaced by an empty string; the
// gateways sign only fields actually present, and reproducing that asymmetry
// is required for signatures to match.
func (c Codec) Canonical(params map[string]string) string {
	var b strings.Builder

	for _, name := range c.Fields {
		value, ok := params[name]
		if !ok || value == "" {
			continue
		}

		if b.Len() > 0 {
			b.WriteString(c.Delimiter)
		}

		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(value)
	}

	return b.String()
}

func (c Codec) Sign(params map[string]string, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(c.Canonical(params)))
	sum := mac.Sum(nil)

	if c.Encoding == EncodingHex {
		return hex.EncodeToString(sum)
	}

	return base64.StdEncoding.EncodeToString(sum)
}

// Verify recomputes the signature and compares it in constant time. Malformed
// or missing input never panics; it verifies as false and the caller rejects.
func (c Codec) Verify(params map[string]string, secret, provided string) bool {
	if provided == "" {
		return false
	}

	expected := c.Sign(params, secret)

	return hmac.Equal([]byte(expected), []byte(provided))
}
