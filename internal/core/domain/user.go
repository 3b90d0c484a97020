package domain

// UserRole is one of a closed set of roles.
type UserRole string

const (
	RoleUser       UserRole = "user"
	RoleMaintainer UserRole = "maintainer"
	RoleAdmin      UserRole = "admin"
)

// ParseUserRole requires an exact, case-sensitive match. There is no default.
func ParseUserRole(raw Raw) (UserRole, error) {
	s, err := raw.single(FieldUserRole)
	if err != nil {
		return "", err
	}
	role := UserRole(s)
	if err := role.Validate(); err != nil {
		return "", err
	}
	return role, nil
}

// Validate rejects anything outside the role set.
func (r UserRole) Validate() error {
	switch r {
	case RoleUser, RoleMaintainer, RoleAdmin:
		return nil
	}
	return fieldError(FieldUserRole, "must be one of %s, %s, %s", RoleUser, RoleMaintainer, RoleAdmin)
}

func (r UserRole) String() string { return string(r) }

// UserProfile is the full identity record of a user.
type UserProfile struct {
	UserID       UserID
	Username     Username
	EmailAddress EmailAddress
	UserRole     UserRole
}

// Identity projects p onto the fields needed for authorization.
func (p UserProfile) Identity() UserIdentity {
	return UserIdentity{UserID: p.UserID, UserRole: p.UserRole}
}

// UserIdentity is the {id, role} projection of a profile.
type UserIdentity struct {
	UserID   UserID
	UserRole UserRole
}

// IsAdmin reports whether the identity carries the admin role.
func (i UserIdentity) IsAdmin() bool { return i.UserRole == RoleAdmin }
