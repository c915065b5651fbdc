// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package schema

// SystemSettingTable represents the 'system.setting' table
type SystemSettingTable struct {
	Table     string
	Key       string
	Value     string
	UpdatedBy string
	UpdatedAt string
}

var SystemSetting = SystemSettingTable{
	Table:     "system.setting",
	Key:       "key",
	Value:     "value",
	UpdatedBy: "updatedby",
	UpdatedAt: "updatedat",
}
