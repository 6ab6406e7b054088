package session

import (
	"strings"

	"github.com/fundwit/go-commons/types"
)

// Permissions are permission names, either global ("application.update") or bound to a scope with an
// "_<scopeId>" suffix ("application.update_100").
type Permissions []string

func (c Permissions) HasRole(role string) bool {
	for _, v := range c {
		if strings.EqualFold(v, role) {
			return true
		}
	}
	return false
}

func (c Permissions) HasRolePrefix(prefix string) bool {
	for _, v := range c {
		if strings.HasPrefix(strings.ToLower(v), strings.ToLower(prefix)) {
			return true
		}
	}
	return false
}

func (c Permissions) HasRoleSuffix(suffix string) bool {
	for _, v := range c {
		if strings.HasSuffix(strings.ToLower(v), strings.ToLower(suffix)) {
			return true
		}
	}
	return false
}

// HasScopedRole reports whether role is held globally or for the scope.
func (c Permissions) HasScopedRole(role string, scopeID types.ID) bool {
	return c.HasRole(role) || c.HasRole(role+"_"+scopeID.String())
}

// VisibleScopes parses the scope ids of scope bound permissions.
func (c Permissions) VisibleScopes() []types.ID {
	scopeIds := []types.ID{}
	seen := map[types.ID]bool{}
	for _, v := range c {
		idx := strings.LastIndex(v, "_")
		if idx < 0 {
			continue
		}
		id, err := types.ParseID(v[idx+1:])
		if err != nil || seen[id] {
			continue
		}
		seen[id] = true
		scopeIds = append(scopeIds, id)
	}
	return scopeIds
}
