package domain

// SpecialtyGeneral marks staff who take general inquiries; every category may fall back to them.
const SpecialtyGeneral = CategoryInquiry

// StaffMember is a member of the management office roster.
type StaffMember struct {
	ID          string     `yaml:"id"`
	Name        string     `yaml:"name"`
	Role        string     `yaml:"role"`
	Department  string     `yaml:"department"`
	Specialties []Category `yaml:"specialties"`
	Active      bool       `yaml:"active"`
}

// Handles reports whether the member lists the category or the general specialty.
func (s StaffMember) Handles(category Category) bool {
	for _, sp := range s.Specialties {
		if sp == category || sp == SpecialtyGeneral {
			return true
		}
	}
	return false
}
