package auth

// Authorization rules live here, in one place, so create/cancel/finish cannot
// drift apart in how they compare roles.

// IsElevated reports whether the principal may act on behalf of, or override,
// an ordinary owner.
func IsElevated(p Principal) bool {
	return p.Role == RoleAdmin || p.Role == RoleStaff
}

// CanActFor reports whether the principal may perform an owner-scoped
// mutation on resources belonging to ownerID.
func CanActFor(p Principal, ownerID string) bool {
	if p.ID == ownerID {
		return true
	}
	return IsElevated(p)
}
