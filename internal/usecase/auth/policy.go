package auth

import domain "accounts/backend/internal/domain/auth"

// AuthorizeSelf allows the request only when the caller owns the target user record.
func AuthorizeSelf(ac domain.AuthContext, targetID int64) error {
	if ac.User == nil || ac.User.ID != targetID {
		return domain.ErrForbidden
	}
	return nil
}
