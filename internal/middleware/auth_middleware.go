package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// Key Locals yang diisi oleh Auth.
const (
	LocalEmpid = "empid"
	LocalRole  = "role"
)

// Claims is what the identity supplier puts in the bearer token. Tokens are
// issued elsewhere; this service only verifies them.
type Claims struct {
	Empid string `json:"empid"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

func Auth(secret string) fiber.Handler {
	key := []byte(secret)
	return func(c *fiber.Ctx) error {
		// 1. Ambil token dari Header Authorization
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return unauthorized(c, "missing bearer token")
		}

		// Format header: "Bearer <token>"
		tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))

		// 2. Parse dan validasi token (signature + exp)
		claims := &Claims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fiber.ErrUnauthorized
			}
			return key, nil
		})
		if err != nil || !token.Valid || claims.Empid == "" {
			return unauthorized(c, "invalid or expired token")
		}

		// 3. Simpan identitas ke Context untuk dipakai handler
		c.Locals(LocalEmpid, claims.Empid)
		c.Locals(LocalRole, claims.Role)

		return c.Next()
	}
}

func unauthorized(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": msg, "code": "UNAUTHORIZED"})
}
