package testutil

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/DiscordHubDev/DiscordHub-sub000/pkg/auth"
)

// JWTTestHelper mints session tokens the way the identity provider does
type JWTTestHelper struct {
	Secret []byte
}

func NewJWTTestHelper() *JWTTestHelper {
	return &JWTTestHelper{
		Secret: []byte("test-secret-for-unit-tests"),
	}
}

func NewJWTTestHelperWithSecret(secret []byte) *JWTTestHelper {
	return &JWTTestHelper{Secret: secret}
}

// GenerateValidJWT returns a one-hour session for the user
func (h *JWTTestHelper) GenerateValidJWT(u TestUser) (string, error) {
	return auth.GenerateJWT(u.UserID, u.Username, u.Role, time.Hour, h.Secret)
}

func (h *JWTTestHelper) GenerateExpiredJWT(u TestUser) (string, error) {
	return h.sign(u, time.Now().Add(-time.Hour), jwt.SigningMethodHS256, h.Secret)
}

func (h *JWTTestHelper) GenerateJWTWithWrongSecret(u TestUser) (string, error) {
	return auth.GenerateJWT(u.UserID, u.Username, u.Role, time.Hour, []byte("wrong-secret"))
}

// GenerateJWTWithNoneAlgorithm builds an unsigned token; validation must reject it
func (h *JWTTestHelper) GenerateJWTWithNoneAlgorithm(u TestUser) (string, error) {
	claims := h.claims(u, time.Now().Add(time.Hour))
	token := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	return token.SignedString(jwt.UnsafeAllowNoneSignatureType)
}

func (h *JWTTestHelper) GenerateMalformedJWT() string {
	return "invalid.jwt.token.format"
}

func (h *JWTTestHelper) sign(u TestUser, expiresAt time.Time, method jwt.SigningMethod, secret []byte) (string, error) {
	token := jwt.NewWithClaims(method, h.claims(u, expiresAt))
	return token.SignedString(secret)
}

func (h *JWTTestHelper) claims(u TestUser, expiresAt time.Time) *auth.Claims {
	return &auth.Claims{
		UserID:   u.UserID,
		Username: u.Username,
		Role:     u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.UserID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(expiresAt.Add(-time.Hour)),
		},
	}
}

// TestUser is a directory member identified by a snowflake
type TestUser struct {
	UserID   string
	Username string
	Role     string
}

var (
	// OwnerUser owns the fixture items below
	OwnerUser = TestUser{UserID: "123456789012345678", Username: "owner", Role: "user"}
	// DeveloperUser is listed as an agent developer
	DeveloperUser = TestUser{UserID: "223456789012345678", Username: "dev", Role: "user"}
	// VisitorUser has no relationship to any fixture item
	VisitorUser = TestUser{UserID: "323456789012345678", Username: "visitor", Role: "user"}
)

const (
	CommunityItemID = "900000000000000001"
	AgentItemID     = "900000000000000002"
)
