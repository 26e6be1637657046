package domain

import "time"

// AuditAction names a mutation kind in the audit trail.
type AuditAction string

const (
	ActionReceive         AuditAction = "stock.receive"
	ActionRelocate        AuditAction = "stock.relocate"
	ActionRequestCreate   AuditAction = "request.create"
	ActionRequestApprove  AuditAction = "request.approve"
	ActionRequestReject   AuditAction = "request.reject"
	ActionItemCreate      AuditAction = "item.create"
	ActionItemUpdate      AuditAction = "item.update"
	ActionItemDelete      AuditAction = "item.delete"
	ActionItemImport      AuditAction = "item.import"
	ActionWarehouseCreate AuditAction = "warehouse.create"
	ActionWarehouseRename AuditAction = "warehouse.rename"
	ActionWarehouseDelete AuditAction = "warehouse.delete"
	ActionUserRegister    AuditAction = "user.register"
	ActionUserApprove     AuditAction = "user.approve"
	ActionUserRoleChange  AuditAction = "user.role"
	ActionUserDelete      AuditAction = "user.delete"
)

// AuditRecord is one append-only entry of the activity log.
type AuditRecord struct {
	ID        string      `bson:"_id" json:"id"`
	Timestamp time.Time   `bson:"timestamp" json:"timestamp"`
	Actor     string      `bson:"actor" json:"actor"`
	Role      Role        `bson:"role" json:"role"`
	Action    AuditAction `bson:"action" json:"action"`
	Detail    string      `bson:"detail" json:"detail"`
}
