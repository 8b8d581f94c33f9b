package authz

import "strings"

// 内置角色
const (
	RoleSuperAdmin  = "SuperAdmin"
	RoleTenantAdmin = "TenantAdmin"
	RoleManager     = "Manager"
	RoleDriver      = "Driver"
	RoleParent      = "Parent"
)

// RoleDefaults 角色默认权限表：当数据库中没有显式或通配授权时的兜底层
// 进程启动时构建一次，之后只读共享，无需加锁
type RoleDefaults struct {
	superRoles map[string]struct{}
	grants     map[string]map[string]map[string]struct{} // role -> resource -> actions
}

// AllowsAction 默认表是否允许 (role, resource, action)
// 未知角色一律拒绝
func (d RoleDefaults) AllowsAction(role, resource, action string) bool {
	role = strings.ToLower(role)
	if _, ok := d.superRoles[role]; ok {
		return true
	}
	resources, ok := d.grants[role]
	if !ok {
		return false
	}
	actions, ok := resources[strings.ToLower(resource)]
	if !ok {
		return false
	}
	_, ok = actions[action]
	return ok
}

// AllowsName 按权限名检查默认表，权限名约定为 "<resource>.<action>" 小写形式
func (d RoleDefaults) AllowsName(role, name string) bool {
	role = strings.ToLower(role)
	if _, ok := d.superRoles[role]; ok {
		return true
	}
	resource, action, found := strings.Cut(strings.ToLower(name), ".")
	if !found {
		return false
	}
	for _, candidate := range []string{ActionCreate, ActionRead, ActionUpdate, ActionDelete} {
		if strings.ToLower(candidate) == action {
			return d.AllowsAction(role, resource, candidate)
		}
	}
	return false
}

// DefaultRolePolicy 构建内置角色默认权限表
//
// SuperAdmin 与 TenantAdmin 无条件放行；其余已知角色按静态白名单放行；
// 未知角色没有任何默认权限
func DefaultRolePolicy() RoleDefaults {
	readOnly := []string{ActionRead}
	fullCRUD := []string{ActionCreate, ActionRead, ActionUpdate, ActionDelete}

	builder := newDefaultsBuilder()
	builder.super(RoleSuperAdmin)
	builder.super(RoleTenantAdmin)

	// 调度管理员：运营数据全量，审计日志只读
	builder.grant(RoleManager, "trips", fullCRUD...)
	builder.grant(RoleManager, "students", fullCRUD...)
	builder.grant(RoleManager, "drivers", fullCRUD...)
	builder.grant(RoleManager, "vehicles", fullCRUD...)
	builder.grant(RoleManager, "routes", fullCRUD...)
	builder.grant(RoleManager, "auditlogs", readOnly...)

	// 司机：查看并推进自己的行程，其余只读
	builder.grant(RoleDriver, "trips", ActionRead, ActionUpdate)
	builder.grant(RoleDriver, "students", readOnly...)
	builder.grant(RoleDriver, "vehicles", readOnly...)
	builder.grant(RoleDriver, "routes", readOnly...)

	// 家长：只读孩子相关数据
	builder.grant(RoleParent, "trips", readOnly...)
	builder.grant(RoleParent, "students", readOnly...)

	return builder.build()
}

type defaultsBuilder struct {
	defaults RoleDefaults
}

func newDefaultsBuilder() *defaultsBuilder {
	return &defaultsBuilder{defaults: RoleDefaults{
		superRoles: make(map[string]struct{}),
		grants:     make(map[string]map[string]map[string]struct{}),
	}}
}

func (b *defaultsBuilder) super(role string) {
	b.defaults.superRoles[strings.ToLower(role)] = struct{}{}
}

func (b *defaultsBuilder) grant(role, resource string, actions ...string) {
	role = strings.ToLower(role)
	resource = strings.ToLower(resource)
	if b.defaults.grants[role] == nil {
		b.defaults.grants[role] = make(map[string]map[string]struct{})
	}
	if b.defaults.grants[role][resource] == nil {
		b.defaults.grants[role][resource] = make(map[string]struct{})
	}
	for _, action := range actions {
		b.defaults.grants[role][resource][action] = struct{}{}
	}
}

func (b *defaultsBuilder) build() RoleDefaults {
	return b.defaults
}
