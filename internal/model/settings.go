package model

// Keys of the system_settings table.
const (
	SettingHospitalCharge  = "hospital_charge"
	SettingSpecializations = "specializations"
)

type SystemSetting struct {
	Key   string `db:"setting_key" json:"key"`
	Value string `db:"setting_value" json:"value"`
}
