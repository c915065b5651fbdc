// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package schema

// SystemAuditLogTable represents the 'system.auditlog' table
type SystemAuditLogTable struct {
	Table      string
	ID         string
	ActorID    string
	ActorEmail string
	Action     string
	TargetType string
	TargetID   string
	Details    string
	IPAddress  string
	CreatedAt  string
}

var SystemAuditLog = SystemAuditLogTable{
	Table:      "system.auditlog",
	ID:         "id",
	ActorID:    "actorid",
	ActorEmail: "actoremail",
	Action:     "action",
	TargetType: "targettype",
	TargetID:   "targetid",
	Details:    "details",
	IPAddress:  "ipaddress",
	CreatedAt:  "createdat",
}
