package echoapi

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/khaosat/core"
)

const (
	contextSessionKey = "session"
	bearerPrefix      = "Bearer "
)

var (
	errMissingToken         = echo.NewHTTPError(http.StatusUnauthorized, "missing or malformed jwt")
	errInvalidToken         = echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired jwt")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusUnauthorized, "authentication failed")
)

// Claims represents the authorization claims transmitted via a JWT.
// Subject holds the student ID; admins have none.
type Claims struct {
	jwt.RegisteredClaims
	IsAdmin bool `json:"is_admin,omitempty"`
}

func (c Claims) session() core.Session {
	if c.IsAdmin {
		return core.AdminSession()
	}
	return core.StudentSession(c.Subject)
}

type authenticator struct {
	secret        []byte
	issuer        string
	ttl           time.Duration
	adminUsername string
	adminHash     []byte
}

func newAuthenticator(conf *core.Config) *authenticator {
	ttl := conf.Server.JWTExpirationDelta
	if ttl <= 0 {
		ttl = core.DefaultJWTExpiration
	}
	return &authenticator{
		secret:        []byte(conf.SecretKey),
		issuer:        conf.AppName,
		ttl:           ttl,
		adminUsername: conf.Admin.Username,
		adminHash:     []byte(conf.Admin.PasswordHash),
	}
}

// GenerateToken signs a token for the session.
func (a *authenticator) GenerateToken(sess core.Session) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    a.issuer,
			Subject:   sess.StudentID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
		IsAdmin: sess.IsAdmin,
	}
	ss, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func (a *authenticator) parse(tokenStr string) (*Claims, error) {
	claims := new(Claims)
	token, err := jwt.ParseWithClaims(
		tokenStr,
		claims,
		func(*jwt.Token) (interface{}, error) { return a.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(a.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	if !token.Valid || (!claims.IsAdmin && claims.Subject == "") {
		return nil, errInvalidToken
	}
	return claims, nil
}

// authenticateAdmin checks the credentials against the configured admin account.
// An empty password hash disables admin login.
func (a *authenticator) authenticateAdmin(username, password string) error {
	if len(a.adminHash) == 0 {
		return errAuthenticationFailed
	}
	sameUser := subtle.ConstantTimeCompare([]byte(username), []byte(a.adminUsername)) == 1
	if err := bcrypt.CompareHashAndPassword(a.adminHash, []byte(password)); err != nil || !sameUser {
		return errAuthenticationFailed
	}
	return nil
}

// middleware verifies the bearer token and stores the caller's core.Session in the context.
func (a *authenticator) middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			header := ctx.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(header, bearerPrefix) {
				return errMissingToken
			}
			tokenStr := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
			if tokenStr == "" {
				return errMissingToken
			}
			claims, err := a.parse(tokenStr)
			if err != nil {
				return errInvalidToken
			}
			ctx.Set(contextSessionKey, claims.session())
			return next(ctx)
		}
	}
}

// getSession returns the caller's session. Unauthenticated requests get the zero Session.
func getSession(ctx echo.Context) core.Session {
	sess, _ := ctx.Get(contextSessionKey).(core.Session)
	return sess
}
