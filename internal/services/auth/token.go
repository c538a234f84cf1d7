package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	perr "syncfabric/internal/platform/errors"
)

// accessTokenTTL matches a working day with margin
const accessTokenTTL = 480 * time.Minute

// Claims is the decoded access-token payload
type Claims struct {
	Subject string
	IsAdmin bool
}

func (s *Service) createAccessToken(sub string, isAdmin bool) (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub":      sub,
		"is_admin": isAdmin,
		"iat":      now.Unix(),
		"exp":      now.Add(accessTokenTTL).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *Service) decodeToken(token string) (Claims, error) {
	parsed, err := jwt.Parse(token, func(tk *jwt.Token) (any, error) {
		if _, ok := tk.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, perr.Unauthorizedf("unexpected signing method %v", tk.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return Claims{}, perr.Unauthorizedf("invalid token")
	}
	mc, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, perr.Unauthorizedf("invalid token")
	}
	sub, _ := mc["sub"].(string)
	isAdmin, _ := mc["is_admin"].(bool)
	if sub == "" {
		return Claims{}, perr.Unauthorizedf("invalid token")
	}
	return Claims{Subject: sub, IsAdmin: isAdmin}, nil
}
