package auth

import (
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"gorm.io/gorm"

	"github.com/you/fueltrack/domain"
)

// rbacModel mirrors config/rbac_model.conf and is used when no model file is configured
const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = (g(r.sub, p.sub) || r.sub == p.sub) && keyMatch2(r.obj, p.obj) && regexMatch(r.act, p.act)
`

// DefaultPolicies are seeded into an empty policy table
var DefaultPolicies = [][]string{
	{domain.RoleEmployee, "/fuel/*", "GET|POST|DELETE"},
	{domain.RoleManager, "/manager/*", "GET"},
	{domain.RoleAdmin, "/admin/*", "GET|POST|PUT|PATCH|DELETE"},
}

// DefaultRoleInheritance makes admin a manager and manager an employee
var DefaultRoleInheritance = [][]string{
	{domain.RoleManager, domain.RoleEmployee},
	{domain.RoleAdmin, domain.RoleManager},
}

// CasbinService owns the enforcer backed by the casbin_rule table
type CasbinService struct{ E *casbin.Enforcer }

// NewCasbinService loads the model from modelPath (or the built-in model when
// empty) and the policies stored through the gorm adapter.
func NewCasbinService(db *gorm.DB, modelPath string) (*CasbinService, error) {
	adp, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin adapter: %w", err)
	}

	var m model.Model
	if modelPath != "" {
		m, err = model.NewModelFromFile(modelPath)
	} else {
		m, err = model.NewModelFromString(rbacModel)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load casbin model: %w", err)
	}

	e, err := casbin.NewEnforcer(m, adp)
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}
	if err := e.LoadPolicy(); err != nil {
		return nil, fmt.Errorf("failed to load casbin policy: %w", err)
	}
	return &CasbinService{E: e}, nil
}

// SeedDefaults installs DefaultPolicies and DefaultRoleInheritance when no
// policy exists yet. It reports whether anything was written.
func (s *CasbinService) SeedDefaults() (bool, error) {
	existing, err := s.E.GetPolicy()
	if err != nil {
		return false, fmt.Errorf("failed to read casbin policy: %w", err)
	}
	if len(existing) > 0 {
		return false, nil
	}

	if _, err := s.E.AddPolicies(DefaultPolicies); err != nil {
		return false, fmt.Errorf("failed to seed policies: %w", err)
	}
	if _, err := s.E.AddGroupingPolicies(DefaultRoleInheritance); err != nil {
		return false, fmt.Errorf("failed to seed role inheritance: %w", err)
	}
	return true, nil
}
