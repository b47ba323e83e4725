package core

import (
	"errors"
	"fmt"

	"github.com/flotilla-dev/flotilla/internal/auth"
	"github.com/flotilla-dev/flotilla/internal/store"
	"github.com/flotilla-dev/flotilla/internal/types"
)

// ErrInvalidCredentials covers both unknown usernames and wrong
// passwords so the response does not reveal which.
var ErrInvalidCredentials = errors.New("invalid username or password")

// ErrUserDisabled rejects authenticated but not-yet-enabled users.
var ErrUserDisabled = errors.New("user is disabled")

// LoginResponse carries the session token issued to a user.
type LoginResponse struct {
	JWT string `json:"jwt"`
}

// CreateLocalUser registers a username/password user. The first user
// ever created becomes the enabled admin; later users start disabled
// until an admin enables them.
func (s *State) CreateLocalUser(username, password string) (LoginResponse, error) {
	username = types.NormalizeName(username)
	if username == "" {
		return LoginResponse{}, errors.New("username must not be empty")
	}
	if err := auth.ValidatePassword(password); err != nil {
		return LoginResponse{}, err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return LoginResponse{}, err
	}
	count, err := s.Store.CountUsers()
	if err != nil {
		return LoginResponse{}, err
	}

	now := types.Now()
	user := types.User{
		Username:     username,
		PasswordHash: hash,
		Admin:        count == 0,
		Enabled:      count == 0,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Store.CreateUser(&user); err != nil {
		return LoginResponse{}, err
	}
	s.Log.Info("user created", "username", username, "admin", user.Admin)

	token, err := auth.SignJWT(s.Cfg.JWTSecret, user.ID, s.Cfg.JWTValidFor)
	if err != nil {
		return LoginResponse{}, err
	}
	return LoginResponse{JWT: token}, nil
}

// Login exchanges credentials for a session token.
func (s *State) Login(username, password string) (LoginResponse, error) {
	user, err := s.Store.GetUserByUsername(types.NormalizeName(username))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return LoginResponse{}, ErrInvalidCredentials
		}
		return LoginResponse{}, err
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return LoginResponse{}, ErrInvalidCredentials
	}
	token, err := auth.SignJWT(s.Cfg.JWTSecret, user.ID, s.Cfg.JWTValidFor)
	if err != nil {
		return LoginResponse{}, err
	}
	return LoginResponse{JWT: token}, nil
}

// AuthenticateJWT resolves a session token to its enabled user.
func (s *State) AuthenticateJWT(token string) (types.User, error) {
	userID, err := auth.VerifyJWT(s.Cfg.JWTSecret, token)
	if err != nil {
		return types.User{}, err
	}
	user, err := s.Store.GetUser(userID)
	if err != nil {
		return types.User{}, err
	}
	if !user.Enabled {
		return types.User{}, ErrUserDisabled
	}
	return user, nil
}

// AuthenticateApiKey resolves a key/secret pair to its enabled user.
func (s *State) AuthenticateApiKey(key, secret string) (types.User, error) {
	record, err := s.Store.GetApiKey(key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrInvalidCredentials
		}
		return types.User{}, err
	}
	if auth.HashSecret(secret) != record.SecretHash {
		return types.User{}, ErrInvalidCredentials
	}
	user, err := s.Store.GetUser(record.UserID)
	if err != nil {
		return types.User{}, err
	}
	if !user.Enabled {
		return types.User{}, ErrUserDisabled
	}
	return user, nil
}

// CreateApiKeyResponse carries the one-time plaintext secret.
type CreateApiKeyResponse struct {
	Key    string `json:"key"`
	Secret string `json:"secret"`
}

// CreateApiKey mints an api key for the calling user. The secret is
// returned exactly once; only its hash is stored.
func (s *State) CreateApiKey(user *types.User, name string) (CreateApiKeyResponse, error) {
	key, secret, secretHash, err := auth.GenerateApiKey()
	if err != nil {
		return CreateApiKeyResponse{}, err
	}
	record := types.ApiKey{
		Key:        key,
		SecretHash: secretHash,
		Name:       name,
		UserID:     user.ID,
		CreatedAt:  types.Now(),
	}
	if err := s.Store.CreateApiKey(&record); err != nil {
		return CreateApiKeyResponse{}, err
	}
	return CreateApiKeyResponse{Key: key, Secret: secret}, nil
}

// DeleteApiKey revokes a key. Only its owner or an admin may.
func (s *State) DeleteApiKey(user *types.User, key string) error {
	record, err := s.Store.GetApiKey(key)
	if err != nil {
		return err
	}
	if !user.Admin && record.UserID != user.ID {
		return ErrPermissionDenied
	}
	return s.Store.DeleteApiKey(key)
}

// ListApiKeys returns the caller's keys with secret hashes stripped.
func (s *State) ListApiKeys(user *types.User) ([]types.ApiKey, error) {
	keys, err := s.Store.ListApiKeysForUser(user.ID)
	if err != nil {
		return nil, err
	}
	for i := range keys {
		keys[i].SecretHash = ""
	}
	return keys, nil
}

// UpdateUserEnabled flips a user's enabled flag. Admin only; admins
// cannot disable themselves.
func (s *State) UpdateUserEnabled(user *types.User, userID string, enabled bool) (types.User, error) {
	if !user.Admin {
		return types.User{}, ErrPermissionDenied
	}
	if userID == user.ID && !enabled {
		return types.User{}, fmt.Errorf("cannot disable own account")
	}
	target, err := s.Store.GetUser(userID)
	if err != nil {
		return types.User{}, err
	}
	target.Enabled = enabled
	target.UpdatedAt = types.Now()
	if err := s.Store.ReplaceUser(&target); err != nil {
		return types.User{}, err
	}
	return target.Sanitized(), nil
}

// UpdateUserCreateServerPermissions grants or revokes server creation.
func (s *State) UpdateUserCreateServerPermissions(user *types.User, userID string, allowed bool) (types.User, error) {
	if !user.Admin {
		return types.User{}, ErrPermissionDenied
	}
	target, err := s.Store.GetUser(userID)
	if err != nil {
		return types.User{}, err
	}
	target.CreateServerPermissions = allowed
	target.UpdatedAt = types.Now()
	if err := s.Store.ReplaceUser(&target); err != nil {
		return types.User{}, err
	}
	return target.Sanitized(), nil
}

// UpdateResourcePermission sets one user's level on one resource.
// Admin only. Only server, deployment, build, procedure, and alerter
// targets carry permission maps.
func (s *State) UpdateResourcePermission(user *types.User, target types.UpdateTarget, userID string, level types.PermissionLevel) error {
	if !user.Admin {
		return ErrPermissionDenied
	}
	if _, err := s.Store.GetUser(userID); err != nil {
		return err
	}
	switch target.Type {
	case types.TargetServer:
		server, err := s.Store.GetServer(target.ID)
		if err != nil {
			return err
		}
		server.Permissions = setLevel(server.Permissions, userID, level)
		return s.Store.ReplaceServer(server.Name, &server)
	case types.TargetDeployment:
		d, err := s.Store.GetDeployment(target.ID)
		if err != nil {
			return err
		}
		d.Permissions = setLevel(d.Permissions, userID, level)
		return s.Store.ReplaceDeployment(d.Name, &d)
	case types.TargetBuild:
		b, err := s.Store.GetBuild(target.ID)
		if err != nil {
			return err
		}
		b.Permissions = setLevel(b.Permissions, userID, level)
		return s.Store.ReplaceBuild(b.Name, &b)
	case types.TargetProcedure:
		p, err := s.Store.GetProcedure(target.ID)
		if err != nil {
			return err
		}
		p.Permissions = setLevel(p.Permissions, userID, level)
		return s.Store.ReplaceProcedure(p.Name, &p)
	default:
		return fmt.Errorf("target type %q does not carry permissions", target.Type)
	}
}

func setLevel(m types.PermissionsMap, userID string, level types.PermissionLevel) types.PermissionsMap {
	if m == nil {
		m = types.PermissionsMap{}
	}
	if level == types.PermissionNone {
		delete(m, userID)
	} else {
		m[userID] = level
	}
	return m
}
