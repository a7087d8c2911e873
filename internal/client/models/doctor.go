package models

// Doctor is a normalized entry of the doctor directory.
type Doctor struct {
	ID              string
	Name            string
	Specialty       string
	ExperienceYears int
}
