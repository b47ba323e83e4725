package core

import "github.com/flotilla-dev/flotilla/internal/types"

// requireLevel gates an action on a resource's permission map. Admins
// bypass resource permissions entirely.
func requireLevel(user *types.User, perms types.PermissionsMap, level types.PermissionLevel) error {
	if user.Admin {
		return nil
	}
	if perms.Get(user.ID) >= level {
		return nil
	}
	return ErrPermissionDenied
}

// canRead reports whether the user may see the resource at all.
func canRead(user *types.User, perms types.PermissionsMap) bool {
	return requireLevel(user, perms, types.PermissionRead) == nil
}

// ownerPermissions seeds a new resource's map: the creator gets full
// control.
func ownerPermissions(user *types.User) types.PermissionsMap {
	return types.PermissionsMap{user.ID: types.PermissionUpdate}
}
