package rbac

const (
	PermTestView         = "test:view"
	PermTestStart        = "test:start"
	PermAttemptSubmit    = "attempt:submit"
	PermAttemptViewOwn   = "attempt:view-own"
	PermAnalyticsViewOwn = "analytics:view-own"
	PermTestManage       = "test:manage"
)

var RolePermissions = map[string][]string{
	"student": {
		PermTestView,
		PermTestStart,
		PermAttemptSubmit,
		PermAttemptViewOwn,
		PermAnalyticsViewOwn,
	},
	"admin": {
		"*", // everything
	},
}
