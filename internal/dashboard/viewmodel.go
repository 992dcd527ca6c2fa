package dashboard

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/ehr/dashboard/internal/platform/backend"
)

// ErrMalformedPayload marks a payload whose shape does not match its
// section's schema. It degrades the section exactly like a failed request.
var ErrMalformedPayload = errors.New("malformed payload")

// ---------------------------------------------------------------------------
// Sections
// ---------------------------------------------------------------------------

type PatientTotals struct {
	Total  float64 `json:"total"`
	Active float64 `json:"active"`
}

type PatientsSection struct {
	ActiveSplit []DonutSlice      `json:"active_split"`
	Totals      PatientTotals     `json:"totals"`
	NewInRange  []TimeSeriesPoint `json:"new_in_range"`
	ByGender    []DonutSlice      `json:"by_gender"`
	GenderTotal float64           `json:"gender_total"`
	ByRegion    []BucketRow       `json:"by_region"`
	ByCity      []BucketRow       `json:"by_city"`
	ByAgeBand   []BucketRow       `json:"by_age_band"`
}

type ProfessionalSummary struct {
	Total      float64 `json:"total" validate:"gte=0"`
	Ativos     float64 `json:"ativos" validate:"gte=0"`
	Inativos   float64 `json:"inativos" validate:"gte=0"`
	MediaIdade float64 `json:"media_idade" validate:"gte=0"`
}

type ProfessionalsSection struct {
	Summary     ProfessionalSummary `json:"summary"`
	ActiveSplit []DonutSlice        `json:"active_split"`
	ActiveTotal float64             `json:"active_total"`
	ByRole      []BucketRow         `json:"by_role"`
	ByGender    []DonutSlice        `json:"by_gender"`
	GenderTotal float64             `json:"gender_total"`
	ByAgeBand   []BucketRow         `json:"by_age_band"`
	StaffMix    []DonutSlice        `json:"staff_mix"`
	StaffTotal  float64             `json:"staff_total"`
}

type AppointmentSummary struct {
	Total       float64 `json:"total"`
	AvgWait     float64 `json:"avg_wait_minutes"`
	AvgDuration float64 `json:"avg_duration_minutes"`
}

type AppointmentsSection struct {
	Summary            AppointmentSummary `json:"summary"`
	ByStatus           []DonutSlice       `json:"by_status"`
	StatusTotal        float64            `json:"status_total"`
	ByType             []BucketRow        `json:"by_type"`
	ByDay              []TimeSeriesPoint  `json:"by_day"`
	ByWeekday          []WeekdayRow       `json:"by_weekday"`
	ByAgeBand          []BucketRow        `json:"by_age_band"`
	ByPatientGender    []DonutSlice       `json:"by_patient_gender"`
	PatientGenderTotal float64            `json:"patient_gender_total"`
}

type FeedbackSection struct {
	Scores  []DonutSlice `json:"scores"`
	Total   float64      `json:"total"`
	Average string       `json:"average"`
}

type MedicationsSection struct {
	Rows       []Row        `json:"rows"`
	Dosage     DosageStats  `json:"dosage"`
	SizeSlices []DonutSlice `json:"size_slices"`
	SizeTotal  float64      `json:"size_total"`
}

// CatalogSection is a plain list endpoint shown as a count plus an export.
type CatalogSection struct {
	Rows  []Row `json:"rows"`
	Count int   `json:"count"`
}

// ViewModel is everything one dashboard page binds to.
type ViewModel struct {
	Loading bool      `json:"loading"`
	Token   uint64    `json:"token"`
	Range   DateRange `json:"range"`

	Patients       PatientsSection      `json:"patients"`
	Professionals  ProfessionalsSection `json:"professionals"`
	Appointments   AppointmentsSection  `json:"appointments"`
	Feedback       FeedbackSection      `json:"feedback"`
	Medications    MedicationsSection   `json:"medications"`
	Diseases       CatalogSection       `json:"diseases"`
	Allergies      CatalogSection       `json:"allergies"`
	FamilyDiseases CatalogSection       `json:"family_diseases"`
	DosageCatalog  CatalogSection       `json:"dosage_catalog"`

	// Degraded names the sections that fell back after a failure.
	Degraded []string `json:"degraded"`
	// Extras keeps payloads of requests no section binds to.
	Extras map[string]json.RawMessage `json:"extras,omitempty"`
}

// NewViewModel returns a loading view with every section at its fallback.
func NewViewModel(r DateRange) ViewModel {
	vm := ViewModel{Loading: true, Range: r, Degraded: []string{}}
	for _, b := range binders {
		b.fallback(&vm)
	}
	vm.finalize()
	return vm
}

// Settlement is the outcome of one request spec within a cycle.
type Settlement struct {
	Spec   RequestSpec
	Result backend.Result
}

// Apply folds one settlement into the view. A failed request or a payload
// that does not fit the section's schema resets the section to its fallback
// and records it in Degraded; the returned error explains why.
func (vm *ViewModel) Apply(s Settlement) error {
	name := s.Spec.Name
	b, known := binders[name]

	if !s.Result.OK() {
		if known {
			b.fallback(vm)
		}
		vm.degrade(name)
		return s.Result.Err
	}

	if !known {
		if vm.Extras == nil {
			vm.Extras = map[string]json.RawMessage{}
		}
		vm.Extras[name] = s.Result.Payload
		return nil
	}

	if err := b.apply(vm, s.Result.Payload); err != nil {
		b.fallback(vm)
		vm.degrade(name)
		return err
	}
	return nil
}

func (vm *ViewModel) degrade(name string) {
	for _, d := range vm.Degraded {
		if d == name {
			return
		}
	}
	vm.Degraded = append(vm.Degraded, name)
}

// finalize derives the values that depend on more than one section or on a
// whole chart.
func (vm *ViewModel) finalize() {
	p := &vm.Professionals
	var doctors, nurses float64
	for _, r := range p.ByRole {
		switch r.Bucket {
		case "Médico":
			doctors = r.Total
		case "Enfermeiro":
			nurses = r.Total
		}
	}
	others := p.Summary.Total - doctors - nurses
	if others < 0 {
		others = 0
	}
	p.StaffMix = []DonutSlice{
		{Label: "Médicos", Total: doctors, Fill: Chart1},
		{Label: "Enfermeiros", Total: nurses, Fill: Chart2},
		{Label: "Outros", Total: others, Fill: Chart3},
	}

	// Donut centre totals.
	vm.Patients.GenderTotal = DonutTotal(vm.Patients.ByGender)
	p.ActiveTotal = DonutTotal(p.ActiveSplit)
	p.GenderTotal = DonutTotal(p.ByGender)
	p.StaffTotal = DonutTotal(p.StaffMix)
	vm.Appointments.StatusTotal = DonutTotal(vm.Appointments.ByStatus)
	vm.Appointments.PatientGenderTotal = DonutTotal(vm.Appointments.ByPatientGender)
	vm.Medications.SizeTotal = DonutTotal(vm.Medications.SizeSlices)
}

// IsDegraded reports whether the named section fell back.
func (vm ViewModel) IsDegraded(name string) bool {
	for _, d := range vm.Degraded {
		if d == name {
			return true
		}
	}
	return false
}

// formatAverage renders sum/n with one decimal, or "0" when n is zero.
func formatAverage(sum, n float64) string {
	if n == 0 {
		return "0"
	}
	return strconv.FormatFloat(sum/n, 'f', 1, 64)
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedPayload, fmt.Sprintf(format, args...))
}
