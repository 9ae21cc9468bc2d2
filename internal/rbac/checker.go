package rbac

import (
	"context"
	"strings"
)

// Checker answers permission questions for a role. A grant is either an
// exact permission, "*" or a "resource:*" prefix.
type Checker struct {
	grants map[string][]string
}

func NewChecker(rp map[string][]string) *Checker {
	if rp == nil {
		rp = RolePermissions
	}
	return &Checker{grants: rp}
}

func (c *Checker) Has(role, perm string) bool {
	for _, g := range c.grants[role] {
		if grants(g, perm) {
			return true
		}
	}
	return false
}

func grants(grant, perm string) bool {
	switch {
	case grant == "*", grant == perm:
		return true
	case strings.HasSuffix(grant, ":*"):
		return strings.HasPrefix(perm, strings.TrimSuffix(grant, "*"))
	}
	return false
}

type roleKey struct{}

func WithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, roleKey{}, role)
}

func RoleFromContext(ctx context.Context) string {
	role, _ := ctx.Value(roleKey{}).(string)
	return role
}
