package core

import (
	"errors"
	"fmt"
)

// ErrBusy is the admission failure: another action already holds the
// resource. Kind-specific variants wrap it so errors.Is(err, ErrBusy)
// catches all of them.
var (
	ErrBusy           = errors.New("busy")
	ErrServerBusy     = fmt.Errorf("server %w", ErrBusy)
	ErrDeploymentBusy = fmt.Errorf("deployment %w", ErrBusy)
	ErrBuildBusy      = fmt.Errorf("build %w", ErrBusy)
)

var (
	// ErrPermissionDenied rejects a caller below the required level.
	ErrPermissionDenied = errors.New("user does not have permission to perform this action")

	// ErrNoServer rejects actions on a resource with no server attached.
	ErrNoServer = errors.New("resource has no server attached")

	// ErrServerUnavailable rejects actions aimed at a server whose last
	// poll was not Ok.
	ErrServerUnavailable = errors.New("cannot send action when server is unreachable or disabled")
)
