package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/valyala/fasthttp"

	"parley/pkg/api/router"
	"parley/pkg/api/utils"
	"parley/pkg/config"
	"parley/pkg/state/logger"
	"parley/pkg/store/keys"
	"parley/pkg/telemetry"
)

// caller role
type Role int

const (
	RoleUnauth Role = iota
	RoleFrontend
	RoleBackend
	RoleAdmin
)

func (r Role) String() string {
	switch r {
	case RoleFrontend:
		return "frontend"
	case RoleBackend:
		return "backend"
	case RoleAdmin:
		return "admin"
	default:
		return "unauth"
	}
}

// user values set on the request once identity is resolved
const (
	callerKey   = "caller"
	externalKey = "external_id"
)

// Resolver maps an external identity to the internal user id; "" when no user is synced.
type Resolver interface {
	ResolveExternal(externalID string) (string, error)
}

// security config
type SecConfig struct {
	AllowedOrigins []string
	RPS            float64
	Burst          int
	IPWhitelist    []string
	BackendKeys    map[string]struct{}
	FrontendKeys   map[string]struct{}
	AdminKeys      map[string]struct{}

	JWTSecret   string
	JWTIssuer   string
	JWTAudience string

	Users Resolver
}

// creates an HMAC signature for a user ID
func CreateHMACSignature(userID, key string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(userID))
	return hex.EncodeToString(mac.Sum(nil))
}

// verifies a user ID against its HMAC signature using available signing keys
func VerifyHMACSignature(userID, signature string) bool {
	for k := range config.GetSigningKeys() {
		expected := CreateHMACSignature(userID, k)
		if hmac.Equal([]byte(expected), []byte(signature)) {
			return true
		}
	}
	return false
}

// ParseUserToken validates an HS256 token and returns its subject.
func ParseUserToken(token string, cfg SecConfig) (string, error) {
	opts := []jwtlib.ParserOption{jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()})}
	if cfg.JWTIssuer != "" {
		opts = append(opts, jwtlib.WithIssuer(cfg.JWTIssuer))
	}
	if cfg.JWTAudience != "" {
		opts = append(opts, jwtlib.WithAudience(cfg.JWTAudience))
	}
	parsed, err := jwtlib.Parse(token, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected alg: %v", t.Header["alg"])
		}
		return []byte(cfg.JWTSecret), nil
	}, opts...)
	if err != nil {
		return "", err
	}
	sub, err := parsed.Claims.GetSubject()
	if err != nil {
		return "", err
	}
	if sub == "" {
		return "", fmt.Errorf("token has no subject")
	}
	return sub, nil
}

// resolveIdentity attaches the caller to ctx. It writes the response and
// returns false only for credentials that are present but wrong; a request
// with no identity proceeds without a caller.
func resolveIdentity(ctx *fasthttp.RequestCtx, cfg SecConfig, role Role, apiKey string) bool {
	tr := telemetry.Track("auth.resolve_identity")
	defer tr.Finish()

	external := ""
	userID := utils.GetUserID(ctx)
	sig := utils.GetUserSignature(ctx)
	bearer := utils.BearerToken(ctx)

	switch {
	case sig != "":
		if userID == "" {
			router.WriteJSONError(ctx, fasthttp.StatusUnauthorized, "missing signature headers")
			return false
		}
		tr.Mark("verify_signature")
		if !VerifyHMACSignature(userID, sig) {
			logger.Warn("invalid_signature", "user", userID, "remote", ctx.RemoteAddr().String(), "path", utils.GetPath(ctx))
			router.WriteJSONError(ctx, fasthttp.StatusUnauthorized, "invalid signature")
			return false
		}
		external = userID

	case bearer != "" && bearer != apiKey && cfg.JWTSecret != "":
		tr.Mark("verify_token")
		sub, err := ParseUserToken(bearer, cfg)
		if err != nil {
			logger.Warn("invalid_token", "error", err, "remote", ctx.RemoteAddr().String(), "path", utils.GetPath(ctx))
			router.WriteJSONError(ctx, fasthttp.StatusUnauthorized, "invalid token")
			return false
		}
		external = sub

	case role == RoleBackend && userID != "":
		// backend keys act for any user without a signature
		external = userID
	}

	if external == "" {
		return true
	}
	if err := keys.ValidateExternalID(external); err != nil {
		router.WriteJSONError(ctx, fasthttp.StatusBadRequest, "invalid user id")
		return false
	}
	ctx.SetUserValue(externalKey, external)

	if cfg.Users == nil {
		return true
	}
	tr.Mark("lookup_user")
	id, err := cfg.Users.ResolveExternal(external)
	if err != nil {
		logger.Error("identity_lookup_failed", "external", external, "error", err)
		router.WriteJSONError(ctx, fasthttp.StatusInternalServerError, "internal error")
		return false
	}
	if id == "" {
		logger.Debug("identity_not_synced", "external", external)
		return true
	}
	ctx.SetUserValue(callerKey, id)
	return true
}

// Caller returns the internal user id resolved for the request, or "".
func Caller(ctx *fasthttp.RequestCtx) string {
	if v, ok := ctx.UserValue(callerKey).(string); ok {
		return v
	}
	return ""
}

// ExternalID returns the verified external identity of the request, or "".
func ExternalID(ctx *fasthttp.RequestCtx) string {
	if v, ok := ctx.UserValue(externalKey).(string); ok {
		return v
	}
	return ""
}
