package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/medchat/internal/client/client"
	"github.com/dmitrijs2005/medchat/internal/client/models"
	"github.com/dmitrijs2005/medchat/internal/logging"
)

// Ordered extraction rules for doctor records.
var (
	DoctorIDKeys        = []string{"id", "doctor_id", "user_id"}
	DoctorNameKeys      = []string{"name", "full_name", "display_name"}
	DoctorSpecialtyKeys = []string{"specialty", "specialization", "department"}

	ExperienceKeys     = []string{"years_of_experience", "experience", "experience_years"}
	PracticeStartKeys  = []string{"practice_start_date", "practicing_since", "started_practice_at"}
	GraduationYearKeys = []string{"graduation_year", "graduated_year"}
)

// graduationBuffer is subtracted from the years since graduation.
const graduationBuffer = 2

// minPracticeYear is the lowest bare number read as a practice start year.
const minPracticeYear = 1900

// DoctorFromRaw normalizes a doctor record. now supplies the current year
// for derived experience.
func DoctorFromRaw(r models.RawRecord, now time.Time) models.Doctor {
	d := models.Doctor{}
	d.ID, _ = r.String(DoctorIDKeys...)
	d.Name, _ = r.String(DoctorNameKeys...)
	if d.Name == "" {
		if u, ok := r.Record("user"); ok {
			d.Name, _ = u.String(DoctorNameKeys...)
		}
	}
	d.Specialty, _ = r.String(DoctorSpecialtyKeys...)
	d.ExperienceYears = ExperienceYears(r, now)
	return d
}

// ExperienceYears applies the experience rules in order: explicit fields,
// then years since the practice start (a date or a bare year), then years since graduation
// minus a two-year buffer. The result is never negative.
func ExperienceYears(r models.RawRecord, now time.Time) int {
	for _, k := range ExperienceKeys {
		if n, ok := r.Int(k); ok {
			return max(n, 0)
		}
	}
	if start, ok := r.Time(PracticeStartKeys...); ok {
		return max(now.Year()-start.Year(), 0)
	}
	if year, ok := r.Int(PracticeStartKeys...); ok && year >= minPracticeYear {
		return max(now.Year()-year, 0)
	}
	if year, ok := r.Int(GraduationYearKeys...); ok && year > 0 {
		return max(now.Year()-year-graduationBuffer, 0)
	}
	return 0
}

// DoctorService is the doctor directory with its selector.
type DoctorService interface {
	Load(ctx context.Context) ([]models.Doctor, error)
	Doctors() []models.Doctor
	// Open shows the selector.
	Open()
	IsOpen() bool
	// Select remembers d and closes the selector. It does not create a
	// conversation.
	Select(d models.Doctor)
	Selected() (models.Doctor, bool)
}

type doctorService struct {
	client client.Client
	log    logging.Logger
	now    func() time.Time

	mu       sync.RWMutex
	doctors  []models.Doctor
	selected *models.Doctor
	open     bool
}

func NewDoctorService(c client.Client, log logging.Logger) DoctorService {
	return &doctorService{client: c, log: log.With("component", "doctors"), now: time.Now}
}

func (s *doctorService) Load(ctx context.Context) ([]models.Doctor, error) {
	raws, err := s.client.ListDoctors(ctx)
	if err != nil {
		return nil, fmt.Errorf("list doctors: %w", err)
	}
	now := s.now()
	out := make([]models.Doctor, 0, len(raws))
	for _, r := range raws {
		d := DoctorFromRaw(r, now)
		if d.ID == "" {
			continue
		}
		out = append(out, d)
	}

	s.mu.Lock()
	s.doctors = out
	s.mu.Unlock()
	s.log.Debug(ctx, "doctors loaded", "count", len(out))
	return append([]models.Doctor(nil), out...), nil
}

func (s *doctorService) Doctors() []models.Doctor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Doctor(nil), s.doctors...)
}

func (s *doctorService) Open() {
	s.mu.Lock()
	s.open = true
	s.mu.Unlock()
}

func (s *doctorService) IsOpen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.open
}

func (s *doctorService) Select(d models.Doctor) {
	s.mu.Lock()
	s.selected = &d
	s.open = false
	s.mu.Unlock()
}

func (s *doctorService) Selected() (models.Doctor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selected == nil {
		return models.Doctor{}, false
	}
	return *s.selected, true
}
