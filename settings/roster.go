package settings

import (
	"errors"
	"fmt"
)

type Role string

const (
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

var (
	// ErrLastAdmin rejects removal of the only remaining admin.
	ErrLastAdmin = errors.New("cannot remove the last admin")

	ErrNotInRoster = errors.New("id is not in the roster")
)

// IsModerator reads the live roster; admin edits take effect immediately.
func (s *Store) IsModerator(id int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return contains(s.cur.Moderators, id)
}

func (s *Store) IsAdmin(id int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return contains(s.cur.Admins, id)
}

// AddRole grants a role to an actor id. Adding an id that already has the
// role is a no-op.
func (s *Store) AddRole(role Role, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch role {
	case RoleModerator:
		if !contains(s.cur.Moderators, id) {
			s.cur.Moderators = append(s.cur.Moderators, id)
		}
	case RoleAdmin:
		if !contains(s.cur.Admins, id) {
			s.cur.Admins = append(s.cur.Admins, id)
		}
	default:
		return fmt.Errorf("unknown role: %s", role)
	}
	s.logger.Info("roster entry added", "role", role, "id", id)
	return nil
}

// RemoveRole revokes a role. Removing the last admin fails with ErrLastAdmin
// and leaves the roster unchanged.
func (s *Store) RemoveRole(role Role, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch role {
	case RoleModerator:
		if !contains(s.cur.Moderators, id) {
			return ErrNotInRoster
		}
		s.cur.Moderators = remove(s.cur.Moderators, id)
	case RoleAdmin:
		if !contains(s.cur.Admins, id) {
			return ErrNotInRoster
		}
		if len(s.cur.Admins) == 1 {
			return ErrLastAdmin
		}
		s.cur.Admins = remove(s.cur.Admins, id)
	default:
		return fmt.Errorf("unknown role: %s", role)
	}
	s.logger.Info("roster entry removed", "role", role, "id", id)
	return nil
}

func contains(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func remove(ids []int64, id int64) []int64 {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
