package token

import (
	"encoding/base64"
	"testing"
	"time"
)

var (
	claims = Claims{ItemID: "123456789012345678", ItemType: "community", ActorID: "987654321098765432"}
	// aligned to a 5 minute bucket boundary
	issued = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
)

func codecs() map[string]Codec {
	return map[string]Codec{
		"legacy": NewLegacyCodec(5 * time.Minute),
		"signed": NewSignedCodec([]byte("pin-secret"), 5*time.Minute),
	}
}

func TestCodecFreshness(t *testing.T) {
	for name, codec := range codecs() {
		t.Run(name, func(t *testing.T) {
			tok := codec.Encode(claims, issued)

			for _, offset := range []time.Duration{0, time.Minute, 5 * time.Minute, 9*time.Minute + 59*time.Second} {
				if !codec.Verify(tok, claims, issued.Add(offset)) {
					t.Fatalf("expected token valid at +%s", offset)
				}
			}
			for _, offset := range []time.Duration{10 * time.Minute, 30 * time.Minute, -6 * time.Minute} {
				if codec.Verify(tok, claims, issued.Add(offset)) {
					t.Fatalf("expected token invalid at %s", offset)
				}
			}
		})
	}
}

func TestCodecBindsClaims(t *testing.T) {
	for name, codec := range codecs() {
		t.Run(name, func(t *testing.T) {
			tok := codec.Encode(claims, issued)

			mutations := []Claims{
				{ItemID: "123456789012345679", ItemType: claims.ItemType, ActorID: claims.ActorID},
				{ItemID: claims.ItemID, ItemType: "agent", ActorID: claims.ActorID},
				{ItemID: claims.ItemID, ItemType: claims.ItemType, ActorID: "187654321098765432"},
			}
			for _, m := range mutations {
				if codec.Verify(tok, m, issued) {
					t.Fatalf("expected mismatch for %+v", m)
				}
			}
		})
	}
}

func TestCodecFailsClosed(t *testing.T) {
	legacy := NewLegacyCodec(5 * time.Minute)
	signed := NewSignedCodec([]byte("pin-secret"), 5*time.Minute)

	bad := []string{
		"",
		"!!!not-base64!!!",
		base64.StdEncoding.EncodeToString([]byte("only:three:parts")),
		base64.StdEncoding.EncodeToString([]byte(claims.ItemID + ":community:" + claims.ActorID + ":notanumber")),
		base64.StdEncoding.EncodeToString([]byte(claims.ItemID + ":community:" + claims.ActorID + ":1:extra")),
	}
	for _, tok := range bad {
		if legacy.Verify(tok, claims, issued) {
			t.Fatalf("legacy accepted %q", tok)
		}
		if signed.Verify(tok, claims, issued) {
			t.Fatalf("signed accepted %q", tok)
		}
	}

	// a legacy token is not a valid signature
	if signed.Verify(legacy.Encode(claims, issued), claims, issued) {
		t.Fatal("signed codec accepted a legacy token")
	}
}

func TestSignedCodecSecret(t *testing.T) {
	a := NewSignedCodec([]byte("one"), 5*time.Minute)
	b := NewSignedCodec([]byte("two"), 5*time.Minute)
	if b.Verify(a.Encode(claims, issued), claims, issued) {
		t.Fatal("expected different secrets to disagree")
	}
	if NewSignedCodec(nil, time.Minute).Verify(a.Encode(claims, issued), claims, issued) {
		t.Fatal("empty secret must never verify")
	}
}

func TestLegacyWireFormat(t *testing.T) {
	codec := NewLegacyCodec(5 * time.Minute)
	raw, err := base64.StdEncoding.DecodeString(codec.Encode(claims, issued))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := claims.ItemID + ":community:" + claims.ActorID + ":5925432"
	if string(raw) != want {
		t.Fatalf("expected %q, got %q", want, raw)
	}
}

func TestNewCodecAndExpiry(t *testing.T) {
	if _, ok := NewCodec("", time.Minute).(*LegacyCodec); !ok {
		t.Fatal("expected legacy codec without a secret")
	}
	if _, ok := NewCodec("s", time.Minute).(*SignedCodec); !ok {
		t.Fatal("expected signed codec with a secret")
	}

	exp := ExpiresAt(issued.Add(time.Minute), 5*time.Minute)
	if !exp.Equal(issued.Add(10*time.Minute - time.Millisecond)) {
		t.Fatalf("unexpected expiry %s", exp)
	}
}
