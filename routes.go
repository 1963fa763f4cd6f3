package budgetgate

import (
	"path"
	"strings"

	"github.com/minus-twelve/budgetgate/types"
)

type RouteClass int

const (
	// RouteUnrestricted paths are never inspected by the guard.
	RouteUnrestricted RouteClass = iota
	RoutePublic
	RouteProtected
)

func (c RouteClass) String() string {
	switch c {
	case RoutePublic:
		return "public"
	case RouteProtected:
		return "protected"
	default:
		return "unrestricted"
	}
}

// RouteTable is the fixed path classification consulted by the guard and by
// the navigation menu.
type RouteTable struct {
	Public     []string
	Protected  []string
	Restricted map[string][]types.Role

	PublicLanding        string
	AuthenticatedLanding string
	UnauthorizedPage     string
}

func DefaultRoutes() RouteTable {
	return RouteTable{
		Public: []string{"/", "forgot-password", "otp", "new-password"},
		Protected: []string{
			"/dashboard",
			"/budget",
			"/extension",
			"/service",
			"/pricing",
			"/user",
			"/config",
		},
		Restricted: map[string][]types.Role{
			"/config": {types.RoleAdmin},
			"/user":   {types.RoleAdmin},
		},
		PublicLanding:        "/",
		AuthenticatedLanding: "/dashboard",
		UnauthorizedPage:     "/unauthorized",
	}
}

func (t RouteTable) Classify(p string) RouteClass {
	p = cleanPath(p)
	for _, route := range t.Public {
		if p == "/"+strings.TrimPrefix(route, "/") {
			return RoutePublic
		}
	}
	for _, prefix := range t.Protected {
		if underPrefix(p, prefix) {
			return RouteProtected
		}
	}
	return RouteUnrestricted
}

// AllowedRoles returns the roles of the most specific restricted prefix
// covering p. ok is false when p only needs a valid session.
func (t RouteTable) AllowedRoles(p string) (roles []types.Role, ok bool) {
	p = cleanPath(p)
	best := ""
	for prefix, allowed := range t.Restricted {
		if underPrefix(p, prefix) && len(prefix) > len(best) {
			best = prefix
			roles = allowed
		}
	}
	return roles, best != ""
}

// Permits reports whether role may open p. Roles outside the enum are only
// refused where a restriction applies.
func (t RouteTable) Permits(p string, role types.Role) bool {
	allowed, restricted := t.AllowedRoles(p)
	if !restricted {
		return true
	}
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}

func underPrefix(p, prefix string) bool {
	prefix = "/" + strings.Trim(prefix, "/")
	if prefix == "/" {
		return true
	}
	return p == prefix || strings.HasPrefix(p, prefix+"/")
}

func cleanPath(p string) string {
	if p == "" {
		return "/"
	}
	if p[0] != '/' {
		p = "/" + p
	}
	return path.Clean(p)
}
