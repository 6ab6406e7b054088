package testinfra

import (
	"io"
	"net/http"
	"net/http/httptest"
	"statusflow/session"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
)

// BuildSecCtx builds an authenticated session holding perms.
func BuildSecCtx(uid types.ID, perms ...string) *session.Context {
	return &session.Context{
		Token:    "token_" + uid.String(),
		Identity: session.Identity{ID: uid, Name: "user" + uid.String()},
		Perms:    perms,
	}
}

// ExecuteRequest serves req on router and returns the status code, body and headers.
func ExecuteRequest(req *http.Request, router *gin.Engine) (int, string, http.Header) {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body), resp.Header
}

// InjectSecCtx installs sec on every request routed after it, in place of the auth filter.
func InjectSecCtx(sec *session.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		session.SaveSecurityContext(c, sec)
		c.Next()
	}
}
