package models

import (
	"time"

	"github.com/google/uuid"
)

// Role constants. Approvals are gated on the approver set below.
const (
	RoleAdmin      = "admin"
	RoleManager    = "manager"
	RoleSupervisor = "supervisor"
	RoleTechnician = "technician"
	RoleOperator   = "operator"
)

// ApproverRoles is the set of roles allowed to approve or reject requests
var ApproverRoles = []string{RoleManager, RoleSupervisor, RoleAdmin}

// IsApproverRole reports whether role may approve/reject requests
func IsApproverRole(role string) bool {
	for _, r := range ApproverRoles {
		if r == role {
			return true
		}
	}
	return false
}

// User is the minimal directory entry needed for role gates and
// role-set notification fan-out. Full user management lives elsewhere.
type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TenantID  string    `gorm:"type:varchar(255);not null;index" json:"tenantId"`
	Email     string    `gorm:"type:varchar(255);not null" json:"email"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Role      string    `gorm:"type:varchar(30);not null;index" json:"role"`
	IsActive  bool      `gorm:"not null;default:true" json:"isActive"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName returns the table name for User
func (User) TableName() string {
	return "users"
}
