package session

import (
	"net/http"
	"statusflow/bizerror"
	"statusflow/common"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/patrickmn/go-cache"
)

var (
	PathSession  = "/v1/session"
	PathSessions = "/v1/sessions"
)

// TokenIssuing asks for a token acting as Identity, e.g. for a service calling on behalf of its users.
type TokenIssuing struct {
	Identity Identity    `json:"identity"`
	Perms    Permissions `json:"perms"`
}

func RegisterSessionRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group(PathSession, middleWares...)
	g.GET("", DetailSessionSecurityContext)
	g.DELETE("", DeleteSession)

	r.Group(PathSessions, middleWares...).POST("", CreateSession)
}

// DetailSessionSecurityContext returns the current session and extends it. Registered tokens never expire.
func DetailSessionSecurityContext(c *gin.Context) {
	sec := FindSecurityContext(c)
	if sec == nil {
		panic(bizerror.ErrUnauthenticated)
	}
	_, expiration, found := TokenCache.GetWithExpiration(sec.Token)
	if !found {
		panic(bizerror.ErrUnauthenticated)
	}
	if !expiration.IsZero() {
		refreshed := &Context{Token: sec.Token, Identity: sec.Identity, Perms: sec.Perms, SigningTime: time.Now()}
		TokenCache.Set(sec.Token, refreshed, cache.DefaultExpiration)
		sec = refreshed
	}
	c.JSON(http.StatusOK, sec)
}

func DeleteSession(c *gin.Context) {
	if sec := FindSecurityContext(c); sec != nil {
		TokenCache.Delete(sec.Token)
	}
	c.SetCookie(KeySecToken, "", -1, "/", "", false, true)
	c.Status(http.StatusNoContent)
}

func CreateSession(c *gin.Context) {
	sec := FindSecurityContext(c)
	if sec == nil {
		panic(bizerror.ErrUnauthenticated)
	}
	if !sec.Perms.HasRole(SystemAdminPermission) {
		panic(bizerror.ErrForbidden)
	}
	issuing := TokenIssuing{}
	if err := c.ShouldBindBodyWith(&issuing, binding.JSON); err != nil {
		panic(&common.ErrBadParam{Cause: err})
	}
	c.JSON(http.StatusCreated, IssueToken(issuing.Identity, issuing.Perms))
}
