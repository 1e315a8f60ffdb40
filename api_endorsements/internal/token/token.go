// Package token binds a pin request to an item, an actor and a coarse time
// bucket. Tokens stay valid for the bucket they were issued in and the one
// after it.
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strconv"
	"strings"
	"time"

	"github.com/DiscordHubDev/DiscordHub-sub000/api_endorsements/internal/clock"
)

// Claims are the fields a token is bound to
type Claims struct {
	ItemID   string
	ItemType string
	ActorID  string
}

// Codec issues and verifies tokens. Verify fails closed on any malformed input.
type Codec interface {
	Encode(c Claims, now time.Time) string
	Verify(tok string, c Claims, now time.Time) bool
	Width() time.Duration
}

// ExpiresAt is the last instant a token issued at now still verifies
func ExpiresAt(now time.Time, width time.Duration) time.Time {
	b := clock.Bucket(now, width)
	return time.UnixMilli((b + 2) * width.Milliseconds()).Add(-time.Millisecond).UTC()
}

func withinSkew(tokenBucket, nowBucket int64) bool {
	d := tokenBucket - nowBucket
	return d >= -1 && d <= 1
}

// LegacyCodec is the base64 "id:type:actor:bucket" format older clients
// compute themselves. It is reversible and carries no secret.
type LegacyCodec struct {
	width time.Duration
}

func NewLegacyCodec(width time.Duration) *LegacyCodec {
	if width <= 0 {
		width = clock.DefaultBucketWidth
	}
	return &LegacyCodec{width: width}
}

func (l *LegacyCodec) Width() time.Duration { return l.width }

func (l *LegacyCodec) Encode(c Claims, now time.Time) string {
	raw := strings.Join([]string{
		c.ItemID, c.ItemType, c.ActorID,
		strconv.FormatInt(clock.Bucket(now, l.width), 10),
	}, ":")
	return base64.StdEncoding.EncodeToString([]byte(raw))
}

func (l *LegacyCodec) Verify(tok string, c Claims, now time.Time) bool {
	if tok == "" {
		return false
	}
	decoded, err := base64.StdEncoding.DecodeString(tok)
	if err != nil {
		return false
	}
	parts := strings.Split(string(decoded), ":")
	if len(parts) != 4 {
		return false
	}
	if parts[0] != c.ItemID || parts[1] != c.ItemType || parts[2] != c.ActorID {
		return false
	}
	bucket, err := strconv.ParseInt(parts[3], 10, 64)
	if err != nil {
		return false
	}
	return withinSkew(bucket, clock.Bucket(now, l.width))
}

// SignedCodec issues an HMAC-SHA256 over the claims and bucket. The bucket
// is not transmitted; Verify recomputes the MAC for the adjacent buckets.
type SignedCodec struct {
	secret []byte
	width  time.Duration
}

func NewSignedCodec(secret []byte, width time.Duration) *SignedCodec {
	if width <= 0 {
		width = clock.DefaultBucketWidth
	}
	return &SignedCodec{secret: append([]byte(nil), secret...), width: width}
}

func (s *SignedCodec) Width() time.Duration { return s.width }

func (s *SignedCodec) Encode(c Claims, now time.Time) string {
	return base64.RawURLEncoding.EncodeToString(s.mac(c, clock.Bucket(now, s.width)))
}

func (s *SignedCodec) Verify(tok string, c Claims, now time.Time) bool {
	if tok == "" || len(s.secret) == 0 {
		return false
	}
	got, err := base64.RawURLEncoding.DecodeString(tok)
	if err != nil || len(got) != sha256.Size {
		return false
	}
	b := clock.Bucket(now, s.width)
	ok := false
	for _, candidate := range []int64{b - 1, b, b + 1} {
		// no early exit so timing does not reveal which bucket matched
		if hmac.Equal(got, s.mac(c, candidate)) {
			ok = true
		}
	}
	return ok
}

func (s *SignedCodec) mac(c Claims, bucket int64) []byte {
	h := hmac.New(sha256.New, s.secret)
	// length-prefixed fields so "a|b" + "c" never collides with "a" + "b|c"
	for _, f := range []string{c.ItemID, c.ItemType, c.ActorID} {
		h.Write([]byte(strconv.Itoa(len(f))))
		h.Write([]byte{':'})
		h.Write([]byte(f))
	}
	h.Write([]byte(strconv.FormatInt(bucket, 10)))
	return h.Sum(nil)
}

// NewCodec returns a SignedCodec when a secret is configured and the legacy
// codec otherwise.
func NewCodec(secret string, width time.Duration) Codec {
	if secret != "" {
		return NewSignedCodec([]byte(secret), width)
	}
	return NewLegacyCodec(width)
}
