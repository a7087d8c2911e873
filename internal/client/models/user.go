package models

// User is the locally authenticated viewer.
//
// PatientID is the patient-record id, which the API may use as author id
// instead of the account id. It is empty for doctors.
type User struct {
	ID        string
	PatientID string
	Role      Role
	Name      string
}

// Owns reports whether authorID identifies this user under either of
// their identifiers.
func (u User) Owns(authorID string) bool {
	if authorID == "" {
		return false
	}
	return authorID == u.ID || (u.PatientID != "" && authorID == u.PatientID)
}

// IsPatient reports whether the viewer acts as a patient.
func (u User) IsPatient() bool {
	return u.Role == RolePatient || u.Role == ""
}

// ChatRole is the role messages typed by the user are sent as.
func (u User) ChatRole() Role {
	if u.Role == RoleDoctor {
		return RoleDoctor
	}
	return RolePatient
}
