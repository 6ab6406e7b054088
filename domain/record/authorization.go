package record

import (
	"statusflow/domain/transition"
	"statusflow/session"

	"github.com/fundwit/go-commons/types"
)

// UpdatePermission is needed, globally or for the scope, before any transition of an application.
const UpdatePermission = "application.update"

// OwnSuffix marks an auth item granted only on applications the actor owns, e.g. "approve.own".
const OwnSuffix = ".own"

// Authorize grants an auth item held globally, held for the application's scope, or held with the
// ".own" suffix by the application's owner.
func Authorize(sec *session.Context) transition.Authorizer[*Application] {
	return func(authItem string, a *Application) bool {
		if sec.Perms.HasScopedRole(authItem, a.ScopeID) {
			return true
		}
		return a.OwnerID == sec.Identity.ID && sec.Perms.HasScopedRole(authItem+OwnSuffix, a.ScopeID)
	}
}

// GroupAuthorize tells whether the actor could use authItem on any application of the scope, either
// through the plain item or its ".own" variant. A batch the actor cannot use at all is forbidden as a
// whole instead of skipping every record.
func GroupAuthorize(sec *session.Context, scopeID types.ID) func(authItem string) bool {
	return func(authItem string) bool {
		return sec.Perms.HasScopedRole(authItem, scopeID) || sec.Perms.HasScopedRole(authItem+OwnSuffix, scopeID)
	}
}

func IsAdmin(sec *session.Context) transition.AdminOverride {
	return func() bool {
		return sec.Perms.HasRole(session.SystemAdminPermission)
	}
}

func canUpdate(sec *session.Context, a *Application) bool {
	return sec.Perms.HasRole(session.SystemAdminPermission) || sec.Perms.HasScopedRole(UpdatePermission, a.ScopeID)
}

func canView(sec *session.Context, a *Application) bool {
	return a.OwnerID == sec.Identity.ID || sec.HasScopeViewPerm(a.ScopeID)
}
