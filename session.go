package stackauth

import (
	"fmt"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/golang-jwt/jwt/v5"
)

// SessionIssuer persists a successful login: the user id and a signed JWT
// are put into the scs session and the token is also set as a cookie.
type SessionIssuer struct {
	Session *scs.SessionManager

	// HS256 signing key.  Required.
	JWTSecretKey string
	JWTIssuer    string

	// Name of the session variable and cookie holding the token
	AuthTokenSessionVar string
	UserParamName       string

	// Defaults to one hour
	TokenExpiry time.Duration
}

func (s *SessionIssuer) ensureDefaults() {
	if s.JWTIssuer == "" {
		s.JWTIssuer = "stackauth"
	}
	if s.AuthTokenSessionVar == "" {
		s.AuthTokenSessionVar = "stackauthToken"
	}
	if s.UserParamName == "" {
		s.UserParamName = "loggedInUserId"
	}
	if s.TokenExpiry <= 0 {
		s.TokenExpiry = time.Hour
	}
}

// Issue signs a token for user and stores it.  The request must have passed
// through Session.LoadAndSave when a session manager is configured.
func (s *SessionIssuer) Issue(w http.ResponseWriter, r *http.Request, user User) error {
	s.ensureDefaults()
	if s.JWTSecretKey == "" {
		return WrapError(CodeConfiguration, "session issuer has no JWT secret key", nil)
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": user.Id(),
		"iss": s.JWTIssuer,
		"exp": now.Add(s.TokenExpiry).Unix(),
		"iat": now.Unix(),
	})
	tokenString, err := token.SignedString([]byte(s.JWTSecretKey))
	if err != nil {
		return fmt.Errorf("error signing token: %w", err)
	}

	if s.Session != nil {
		s.Session.Put(r.Context(), s.UserParamName, user.Id())
		s.Session.Put(r.Context(), s.AuthTokenSessionVar, tokenString)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.AuthTokenSessionVar,
		Value:    tokenString,
		Path:     "/",
		HttpOnly: true,
		Expires:  now.Add(s.TokenExpiry),
		MaxAge:   int(s.TokenExpiry.Seconds()),
	})
	return nil
}

// VerifyToken checks a token minted by Issue and returns its subject
func (s *SessionIssuer) VerifyToken(tokenString string) (userId string, err error) {
	s.ensureDefaults()
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		return []byte(s.JWTSecretKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(s.JWTIssuer))
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", fmt.Errorf("invalid token")
	}
	sub, err := token.Claims.GetSubject()
	if err != nil {
		return "", err
	}
	if sub == "" {
		return "", fmt.Errorf("subject not found")
	}
	return sub, nil
}
