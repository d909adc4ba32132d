package reengage

type Access byte

const (
	AccessUndefined Access = 0
	AccessForbidden Access = 1
	AccessAllowed   Access = 2
)

type PermissionName string

const (
	PermissionDashboardView     PermissionName = "dashboard.view"
	PermissionNotificationsView PermissionName = "notifications.view"
	PermissionExperienceView    PermissionName = "experience.view"
)

// AccessLevel is the platform's view of a user inside a company.
type AccessLevel string

const (
	AccessLevelNone     AccessLevel = "no_access"
	AccessLevelCustomer AccessLevel = "customer"
	AccessLevelAdmin    AccessLevel = "admin"
)

type Role struct {
	Level       AccessLevel
	Permissions map[PermissionName]bool
}

var AllRoles map[AccessLevel]Role = mapRolesByLevel(
	Role{
		Level: AccessLevelAdmin,
		Permissions: map[PermissionName]bool{
			PermissionDashboardView:     true,
			PermissionNotificationsView: true,
			PermissionExperienceView:    true,
		},
	},
	Role{
		Level: AccessLevelCustomer,
		Permissions: map[PermissionName]bool{
			PermissionDashboardView:     false,
			PermissionNotificationsView: false,
			PermissionExperienceView:    true,
		},
	},
	Role{
		Level:       AccessLevelNone,
		Permissions: map[PermissionName]bool{},
	},
)

func mapRolesByLevel(roles ...Role) map[AccessLevel]Role {
	rolesMap := make(map[AccessLevel]Role)
	for _, role := range roles {
		if _, ok := rolesMap[role.Level]; ok {
			panic("Duplicated access level: `" + role.Level + "`!")
		}
		rolesMap[role.Level] = role
	}
	return rolesMap
}

func (role Role) Access(name PermissionName) Access {
	hasPermission, ok := role.Permissions[name]
	switch {
	case !ok:
		return AccessUndefined
	case hasPermission:
		return AccessAllowed
	default:
		return AccessForbidden
	}
}

// Access resolves a permission for the level. Unknown levels are undefined.
func (l AccessLevel) Access(name PermissionName) Access {
	role, ok := AllRoles[l]
	if !ok {
		return AccessUndefined
	}
	return role.Access(name)
}
