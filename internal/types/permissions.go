package types

import (
	"encoding/json"
	"fmt"
)

// PermissionLevel orders what a user may do with a resource.
type PermissionLevel int

const (
	PermissionNone PermissionLevel = iota
	PermissionRead
	PermissionExecute
	PermissionUpdate
)

var permissionNames = map[PermissionLevel]string{
	PermissionNone:    "none",
	PermissionRead:    "read",
	PermissionExecute: "execute",
	PermissionUpdate:  "update",
}

func (p PermissionLevel) String() string {
	if s, ok := permissionNames[p]; ok {
		return s
	}
	return "none"
}

// MarshalJSON encodes the level as its lowercase name.
func (p PermissionLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON decodes a lowercase level name.
func (p *PermissionLevel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for level, name := range permissionNames {
		if name == s {
			*p = level
			return nil
		}
	}
	return fmt.Errorf("unknown permission level %q", s)
}

// PermissionsMap maps user id to the level granted on a resource.
type PermissionsMap map[string]PermissionLevel

// Get returns the level granted to the user, PermissionNone if absent.
func (m PermissionsMap) Get(userID string) PermissionLevel {
	if m == nil {
		return PermissionNone
	}
	return m[userID]
}
