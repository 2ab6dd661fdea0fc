package policy

// Role names. Keep these stable; they are part of the token and policy contracts.
const (
	RoleAdmin      = "admin_access"
	RoleCommonUser = "common_user_access"
	RoleApp        = "app_access"
)

// Policy names exposed to route guards.
const (
	Admin      = "CodedByKay.BondBridge.API.Admin"
	CommonUser = "CodedByKay.BondBridge.API.CommonUser"
	AppAccess  = "CodedByKay.BondBridge.API.AppAccess"
)
