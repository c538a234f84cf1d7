package notify

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	perr "syncfabric/internal/platform/errors"
)

// conflictLinkTTL bounds how long an emailed conflict link stays usable
const conflictLinkTTL = 24 * time.Hour

// Tokens signs and verifies the conflict links embedded in notification
// emails. The link grants read access to exactly one conflict.
type Tokens struct {
	secret []byte
}

func NewTokens(secret string) *Tokens {
	return &Tokens{secret: []byte(secret)}
}

// MakeConflictToken signs a link token scoped to one conflict id
func (t *Tokens) MakeConflictToken(conflictID int64) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"conflict_id": conflictID,
		"iat":         now.Unix(),
		"exp":         now.Add(conflictLinkTTL).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// VerifyConflictToken checks signature and expiry and returns the conflict id
// the token was minted for
func (t *Tokens) VerifyConflictToken(token string) (int64, error) {
	parsed, err := jwt.Parse(token, func(tk *jwt.Token) (any, error) {
		if _, ok := tk.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, perr.Unauthorizedf("unexpected signing method %v", tk.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil || !parsed.Valid {
		return 0, perr.Unauthorizedf("invalid conflict token")
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return 0, perr.Unauthorizedf("invalid conflict token")
	}
	id, ok := claims["conflict_id"].(float64)
	if !ok {
		return 0, perr.Unauthorizedf("invalid conflict token")
	}
	return int64(id), nil
}
