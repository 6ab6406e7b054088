package session

import (
	"time"

	"github.com/fundwit/go-commons/types"
)

type Context struct {
	Token    string      `json:"token"`
	Identity Identity    `json:"identity"`
	Perms    Permissions `json:"perms"`

	SigningTime time.Time `json:"-"`
}

type Identity struct {
	ID       types.ID `json:"id" binding:"required"`
	Name     string   `json:"name" binding:"required"`
	Nickname string   `json:"nickname"`
}

func (c *Context) HasScopeViewPerm(scopeID types.ID) bool {
	return c.Perms.HasRole(SystemAdminPermission) || c.Perms.HasRoleSuffix("_"+scopeID.String())
}
