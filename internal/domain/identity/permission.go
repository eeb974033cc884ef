package identity

// Permission is an action a user may perform, formatted as "resource:action"
type Permission string

const (
	PermContactRead   Permission = "contact:read"
	PermContactWrite  Permission = "contact:write"
	PermSupplierRead  Permission = "supplier:read"
	PermSupplierWrite Permission = "supplier:write"
	PermQuoteRead     Permission = "quote:read"
	PermQuoteWrite    Permission = "quote:write"
	PermInvoiceRead   Permission = "invoice:read"
	PermInvoiceWrite  Permission = "invoice:write"
	PermExpenseRead   Permission = "expense:read"
	PermExpenseWrite  Permission = "expense:write"
	PermAudioRead     Permission = "audio:read"
	PermAudioWrite    Permission = "audio:write"
	PermSettingsRead  Permission = "settings:read"
	PermSettingsWrite Permission = "settings:write"
	PermUserManage    Permission = "user:manage"
	PermWildcard      Permission = "*"
)

// Role is the membership level of a user inside a tenant
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
	RoleViewer Role = "viewer"
)

// IsValid checks if the role is known
func (r Role) IsValid() bool {
	_, ok := rolePermissions[r]
	return ok
}

var readPermissions = []Permission{
	PermContactRead, PermSupplierRead, PermQuoteRead, PermInvoiceRead,
	PermExpenseRead, PermAudioRead, PermSettingsRead,
}

var writePermissions = []Permission{
	PermContactWrite, PermSupplierWrite, PermQuoteWrite, PermInvoiceWrite,
	PermExpenseWrite, PermAudioWrite,
}

var rolePermissions = map[Role][]Permission{
	RoleOwner:  {PermWildcard},
	RoleAdmin:  append(append(append([]Permission{}, readPermissions...), writePermissions...), PermSettingsWrite, PermUserManage),
	RoleMember: append(append([]Permission{}, readPermissions...), writePermissions...),
	RoleViewer: append([]Permission{}, readPermissions...),
}

// Permissions returns the permission codes granted by the role
func (r Role) Permissions() []string {
	perms := rolePermissions[r]
	out := make([]string, len(perms))
	for i, p := range perms {
		out[i] = string(p)
	}
	return out
}
