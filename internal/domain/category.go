package domain

import "strings"

// Category is the closed classification taxonomy for resident messages.
type Category string

const (
	// 공용 공간 및 시설
	CategoryCommonFacility Category = "common_facility"
	CategoryAccessControl  Category = "access_control"
	CategorySecurity       Category = "security"
	CategoryLandscaping    Category = "landscaping"
	CategoryLighting       Category = "lighting"

	// 생활 불편 및 위생
	CategoryNoise   Category = "noise"
	CategoryHygiene Category = "hygiene"
	CategorySmoking Category = "smoking"

	CategoryParking Category = "parking"

	// 입주민·관리사무소 분쟁
	CategoryResidentDispute Category = "resident_dispute"
	CategoryStaffService    Category = "staff_service"

	CategoryUnitRepair     Category = "unit_repair"
	CategoryBilling        Category = "billing"
	CategoryAdministration Category = "administration"
	CategoryStatusInquiry  Category = "status_inquiry"

	CategoryDelivery  Category = "delivery"
	CategorySafety    Category = "safety"
	CategoryEmergency Category = "emergency"
	CategorySchedule  Category = "schedule"

	CategoryInquiry     Category = "inquiry"
	CategoryComplaint   Category = "complaint"
	CategoryMaintenance Category = "maintenance"
)

// AllCategories lists the taxonomy in declaration order.
var AllCategories = []Category{
	CategoryCommonFacility,
	CategoryAccessControl,
	CategorySecurity,
	CategoryLandscaping,
	CategoryLighting,
	CategoryNoise,
	CategoryHygiene,
	CategorySmoking,
	CategoryParking,
	CategoryResidentDispute,
	CategoryStaffService,
	CategoryUnitRepair,
	CategoryBilling,
	CategoryAdministration,
	CategoryStatusInquiry,
	CategoryDelivery,
	CategorySafety,
	CategoryEmergency,
	CategorySchedule,
	CategoryInquiry,
	CategoryComplaint,
	CategoryMaintenance,
}

// Valid reports whether c belongs to the taxonomy.
func (c Category) Valid() bool {
	for _, known := range AllCategories {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCategory accepts enum names in any case ("NOISE", "noise").
func ParseCategory(raw string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(raw)))
	if c.Valid() {
		return c, true
	}
	return "", false
}
