package session

import (
	"statusflow/bizerror"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

const TokenExpiration = 24 * time.Hour

const SystemAdminPermission = "system_admin"

var TokenCache = cache.New(TokenExpiration, 1*time.Minute)

const KeySecCtx = "SecCtx"
const KeySecToken = "sec_token"

// IssueToken creates an authenticated session for identity and registers it in the token cache.
func IssueToken(identity Identity, perms Permissions) *Context {
	secCtx := &Context{
		Token:       uuid.New().String(),
		Identity:    identity,
		Perms:       perms,
		SigningTime: time.Now(),
	}
	TokenCache.Set(secCtx.Token, secCtx, cache.DefaultExpiration)
	return secCtx
}

// RegisterToken makes a well known token, e.g. a bootstrap admin token, resolve to the session.
func RegisterToken(token string, identity Identity, perms Permissions) *Context {
	secCtx := &Context{Token: token, Identity: identity, Perms: perms, SigningTime: time.Now()}
	TokenCache.Set(token, secCtx, cache.NoExpiration)
	return secCtx
}

func FindSecurityContext(ctx *gin.Context) *Context {
	value, found := ctx.Get(KeySecCtx)
	if !found {
		return nil
	}
	secCtx, ok := value.(*Context)
	if !ok || secCtx.Token == "" {
		return nil
	}
	return secCtx
}

// SimpleAuthFilter resolves the session from the sec_token cookie or a bearer Authorization header.
func SimpleAuthFilter() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token := extractToken(ctx)
		if token == "" {
			panic(bizerror.ErrUnauthenticated)
		}
		securityContextValue, found := TokenCache.Get(token)
		if !found {
			panic(bizerror.ErrUnauthenticated)
		}
		secCtx, ok := securityContextValue.(*Context)
		if !ok {
			panic(bizerror.ErrUnauthenticated)
		}
		SaveSecurityContext(ctx, secCtx)
		ctx.Next()
	}
}

func SaveSecurityContext(ctx *gin.Context, secCtx *Context) {
	if secCtx != nil && secCtx.Token != "" {
		ctx.Set(KeySecCtx, secCtx)
	}
}

func extractToken(ctx *gin.Context) string {
	if token, err := ctx.Cookie(KeySecToken); err == nil && token != "" {
		return token
	}
	auth := ctx.GetHeader("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
