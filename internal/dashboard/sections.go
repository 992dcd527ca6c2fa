package dashboard

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"
)

// Section names. Each names one backend request and the ViewModel fields it
// feeds.
const (
	SectionPatientsActive       = "pacientes-ativos"
	SectionPatientsNew          = "pacientes-novos"
	SectionPatientsGender       = "pacientes-genero"
	SectionPatientsRegion       = "pacientes-uf"
	SectionPatientsCity         = "pacientes-cidade"
	SectionPatientsAgeBand      = "pacientes-faixa"
	SectionProfessionalsSummary = "profissionais-basicos"
	SectionProfessionalsRole    = "profissionais-cargo"
	SectionProfessionalsGender  = "profissionais-genero"
	SectionProfessionalsAgeBand = "profissionais-faixa"
	SectionAppointments         = "consultas-basicos"
	SectionFeedback             = "feedback-notas"
	SectionMedications          = "medicamentos"
	SectionDiseases             = "doencas"
	SectionAllergies            = "alergias"
	SectionFamilyDiseases       = "doencas-familiares"
	SectionDosageCatalog        = "posologias"
)

// RequestSpec names one backend request of a fetch cycle.
type RequestSpec struct {
	Name           string `json:"name"`
	Path           string `json:"path"`
	RangeSensitive bool   `json:"range_sensitive"`
}

// Target is the request path, with the range query appended when the
// endpoint is range sensitive.
func (s RequestSpec) Target(r DateRange) string {
	if s.RangeSensitive {
		return s.Path + r.Query()
	}
	return s.Path
}

// DefaultRequestSpecs is the endpoint surface of the clinical records API.
func DefaultRequestSpecs() []RequestSpec {
	return []RequestSpec{
		{Name: SectionPatientsActive, Path: "/pacientes-ativos"},
		{Name: SectionPatientsNew, Path: "/pacientes-novos", RangeSensitive: true},
		{Name: SectionPatientsGender, Path: "/pacientes-genero"},
		{Name: SectionPatientsRegion, Path: "/pacientes-uf"},
		{Name: SectionPatientsCity, Path: "/pacientes-cidade"},
		{Name: SectionPatientsAgeBand, Path: "/pacientes-faixa"},
		{Name: SectionProfessionalsSummary, Path: "/profissionais-basicos"},
		{Name: SectionProfessionalsRole, Path: "/profissionais-cargo"},
		{Name: SectionProfessionalsGender, Path: "/profissionais-genero"},
		{Name: SectionProfessionalsAgeBand, Path: "/profissionais-faixa"},
		{Name: SectionAppointments, Path: "/consultas-basicos", RangeSensitive: true},
		{Name: SectionFeedback, Path: "/feedback-notas", RangeSensitive: true},
		{Name: SectionMedications, Path: "/medicamentos"},
		{Name: SectionDiseases, Path: "/doencas"},
		{Name: SectionAllergies, Path: "/alergias"},
		{Name: SectionFamilyDiseases, Path: "/doencas-familiares"},
		{Name: SectionDosageCatalog, Path: "/posologias"},
	}
}

// ---------------------------------------------------------------------------
// Payload schemas
// ---------------------------------------------------------------------------

var validate = validator.New()

type genderRow struct {
	Genero string  `json:"genero"`
	Total  float64 `json:"total" validate:"gte=0"`
}

type statusRow struct {
	Status string  `json:"status"`
	Total  float64 `json:"total" validate:"gte=0"`
}

type typeRow struct {
	Tipo  string  `json:"tipo"`
	Total float64 `json:"total" validate:"gte=0"`
}

type dayRow struct {
	Rotulo string  `json:"rotulo"`
	Total  float64 `json:"total" validate:"gte=0"`
}

type appointmentPayload struct {
	Total   float64       `json:"total" validate:"gte=0"`
	Espera  float64       `json:"espera" validate:"gte=0"`
	Duracao float64       `json:"duracao" validate:"gte=0"`
	Status  []statusRow   `json:"status" validate:"dive"`
	Tipo    []typeRow     `json:"tipo" validate:"dive"`
	Dia     []dayRow      `json:"dia" validate:"dive"`
	Dow     []WeekdayRow  `json:"dow" validate:"dive"`
	Faixa   OrderedCounts `json:"faixa"`
	Genero  []genderRow   `json:"genero" validate:"dive"`
}

// ---------------------------------------------------------------------------
// Binders
// ---------------------------------------------------------------------------

// binder turns one section's payload into ViewModel fields, and knows the
// fallback for those fields.
type binder struct {
	apply    func(vm *ViewModel, raw json.RawMessage) error
	fallback func(vm *ViewModel)
}

var binders = map[string]binder{
	SectionPatientsActive: {
		apply: func(vm *ViewModel, raw json.RawMessage) error {
			counts, err := decodeCounts(raw)
			if err != nil {
				return err
			}
			vm.Patients.ActiveSplit = Donut(counts, ActiveCategory)
			active := counts.Get(string(Active))
			vm.Patients.Totals = PatientTotals{Total: active + counts.Get(string(Inactive)), Active: active}
			return nil
		},
		fallback: func(vm *ViewModel) {
			vm.Patients.ActiveSplit = []DonutSlice{}
			vm.Patients.Totals = PatientTotals{}
		},
	},
	SectionPatientsNew: {
		apply: func(vm *ViewModel, raw json.RawMessage) error {
			rows, err := decodeRows[dayRow](raw)
			if err != nil {
				return err
			}
			points := make([]TimeSeriesPoint, 0, len(rows))
			for _, r := range rows {
				points = append(points, TimeSeriesPoint{Label: r.Rotulo, Total: r.Total})
			}
			vm.Patients.NewInRange = points
			return nil
		},
		fallback: func(vm *ViewModel) { vm.Patients.NewInRange = []TimeSeriesPoint{} },
	},
	SectionPatientsGender: {
		apply: func(vm *ViewModel, raw json.RawMessage) error {
			rows, err := decodeRows[genderRow](raw)
			if err != nil {
				return err
			}
			vm.Patients.ByGender = genderSlices(rows)
			return nil
		},
		fallback: func(vm *ViewModel) { vm.Patients.ByGender = []DonutSlice{} },
	},
	SectionPatientsRegion: {
		apply: func(vm *ViewModel, raw json.RawMessage) (err error) {
			vm.Patients.ByRegion, err = decodeBuckets(raw, "uf")
			return err
		},
		fallback: func(vm *ViewModel) { vm.Patients.ByRegion = []BucketRow{} },
	},
	SectionPatientsCity: {
		apply: func(vm *ViewModel, raw json.RawMessage) (err error) {
			vm.Patients.ByCity, err = decodeBuckets(raw, "cidade")
			return err
		},
		fallback: func(vm *ViewModel) { vm.Patients.ByCity = []BucketRow{} },
	},
	SectionPatientsAgeBand: {
		apply: func(vm *ViewModel, raw json.RawMessage) error {
			counts, err := decodeCounts(raw)
			if err != nil {
				return err
			}
			vm.Patients.ByAgeBand = Normalize(counts)
			return nil
		},
		fallback: func(vm *ViewModel) { vm.Patients.ByAgeBand = []BucketRow{} },
	},
	SectionProfessionalsSummary: {
		apply: func(vm *ViewModel, raw json.RawMessage) error {
			var s ProfessionalSummary
			if err := decodeObject(raw, &s); err != nil {
				return err
			}
			vm.Professionals.Summary = s
			vm.Professionals.ActiveSplit = []DonutSlice{
				{Label: string(Active), Total: s.Ativos, Fill: Active.Fill()},
				{Label: string(Inactive), Total: s.Inativos, Fill: Inactive.Fill()},
			}
			return nil
		},
		fallback: func(vm *ViewModel) {
			vm.Professionals.Summary = ProfessionalSummary{}
			vm.Professionals.ActiveSplit = []DonutSlice{}
		},
	},
	SectionProfessionalsRole: {
		apply: func(vm *ViewModel, raw json.RawMessage) (err error) {
			vm.Professionals.ByRole, err = decodeBuckets(raw, "cargo")
			return err
		},
		fallback: func(vm *ViewModel) { vm.Professionals.ByRole = []BucketRow{} },
	},
	SectionProfessionalsGender: {
		apply: func(vm *ViewModel, raw json.RawMessage) error {
			rows, err := decodeRows[genderRow](raw)
			if err != nil {
				return err
			}
			vm.Professionals.ByGender = genderSlices(rows)
			return nil
		},
		fallback: func(vm *ViewModel) { vm.Professionals.ByGender = []DonutSlice{} },
	},
	SectionProfessionalsAgeBand: {
		apply: func(vm *ViewModel, raw json.RawMessage) error {
			counts, err := decodeCounts(raw)
			if err != nil {
				return err
			}
			vm.Professionals.ByAgeBand = Normalize(counts)
			return nil
		},
		fallback: func(vm *ViewModel) { vm.Professionals.ByAgeBand = []BucketRow{} },
	},
	SectionAppointments: {
		apply: func(vm *ViewModel, raw json.RawMessage) error {
			var p appointmentPayload
			if err := decodeObject(raw, &p); err != nil {
				return err
			}
			if err := checkCounts(p.Faixa); err != nil {
				return err
			}
			a := AppointmentsSection{
				Summary:   AppointmentSummary{Total: p.Total, AvgWait: p.Espera, AvgDuration: p.Duracao},
				ByStatus:  make([]DonutSlice, 0, len(p.Status)),
				ByType:    make([]BucketRow, 0, len(p.Tipo)),
				ByDay:     make([]TimeSeriesPoint, 0, len(p.Dia)),
				ByWeekday: Relabel(p.Dow),
				ByAgeBand: Normalize(p.Faixa),
			}
			for _, s := range p.Status {
				c := StatusCategory(s.Status)
				a.ByStatus = append(a.ByStatus, DonutSlice{Label: c.Label, Total: s.Total, Fill: c.Fill})
			}
			for _, t := range p.Tipo {
				a.ByType = append(a.ByType, BucketRow{Bucket: t.Tipo, Total: t.Total})
			}
			for _, d := range p.Dia {
				a.ByDay = append(a.ByDay, TimeSeriesPoint{Label: d.Rotulo, Total: d.Total})
			}
			a.ByPatientGender = genderSlices(p.Genero)
			vm.Appointments = a
			return nil
		},
		fallback: func(vm *ViewModel) {
			vm.Appointments = AppointmentsSection{
				ByStatus:        []DonutSlice{},
				ByType:          []BucketRow{},
				ByDay:           []TimeSeriesPoint{},
				ByWeekday:       []WeekdayRow{},
				ByAgeBand:       []BucketRow{},
				ByPatientGender: []DonutSlice{},
			}
		},
	},
	SectionFeedback: {
		apply: func(vm *ViewModel, raw json.RawMessage) error {
			counts, err := decodeCounts(raw)
			if err != nil {
				return err
			}
			var total, weighted, scored float64
			for _, c := range counts {
				total += c.Value
				if score, err := strconv.Atoi(c.Key); err == nil && score >= 1 && score <= 5 {
					weighted += float64(score) * c.Value
					scored += c.Value
				}
			}
			vm.Feedback = FeedbackSection{
				Scores:  Donut(counts, FeedbackCategory),
				Total:   total,
				Average: formatAverage(weighted, scored),
			}
			return nil
		},
		fallback: func(vm *ViewModel) {
			vm.Feedback = FeedbackSection{Scores: []DonutSlice{}, Average: "0"}
		},
	},
	SectionMedications: {
		apply: func(vm *ViewModel, raw json.RawMessage) error {
			rows, err := decodeRecords(raw)
			if err != nil {
				return err
			}
			stats := Analyze(MedicationsFromRows(rows))
			vm.Medications = MedicationsSection{Rows: rows, Dosage: stats, SizeSlices: SizeSlices(stats)}
			return nil
		},
		fallback: func(vm *ViewModel) {
			stats := EmptyDosageStats()
			vm.Medications = MedicationsSection{Rows: []Row{}, Dosage: stats, SizeSlices: SizeSlices(stats)}
		},
	},
	SectionDiseases:       catalogBinder(func(vm *ViewModel) *CatalogSection { return &vm.Diseases }),
	SectionAllergies:      catalogBinder(func(vm *ViewModel) *CatalogSection { return &vm.Allergies }),
	SectionFamilyDiseases: catalogBinder(func(vm *ViewModel) *CatalogSection { return &vm.FamilyDiseases }),
	SectionDosageCatalog:  catalogBinder(func(vm *ViewModel) *CatalogSection { return &vm.DosageCatalog }),
}

func catalogBinder(field func(vm *ViewModel) *CatalogSection) binder {
	return binder{
		apply: func(vm *ViewModel, raw json.RawMessage) error {
			rows, err := decodeRecords(raw)
			if err != nil {
				return err
			}
			*field(vm) = CatalogSection{Rows: rows, Count: len(rows)}
			return nil
		},
		fallback: func(vm *ViewModel) { *field(vm) = CatalogSection{Rows: []Row{}} },
	}
}

func genderSlices(rows []genderRow) []DonutSlice {
	slices := make([]DonutSlice, 0, len(rows))
	for _, r := range rows {
		c := GenderCategory(r.Genero)
		slices = append(slices, DonutSlice{Label: c.Label, Total: r.Total, Fill: c.Fill})
	}
	return slices
}

// ---------------------------------------------------------------------------
// Decoding
// ---------------------------------------------------------------------------

func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

func decodeCounts(raw json.RawMessage) (OrderedCounts, error) {
	if isNull(raw) {
		return nil, malformed("expected counter object, got null")
	}
	var counts OrderedCounts
	if err := json.Unmarshal(raw, &counts); err != nil {
		return nil, malformed("%v", err)
	}
	if err := checkCounts(counts); err != nil {
		return nil, err
	}
	if counts == nil {
		counts = OrderedCounts{}
	}
	return counts, nil
}

func checkCounts(counts OrderedCounts) error {
	for _, c := range counts {
		if c.Value < 0 {
			return malformed("negative count %v for %q", c.Value, c.Key)
		}
	}
	return nil
}

func decodeObject(raw json.RawMessage, dst any) error {
	if isNull(raw) {
		return malformed("expected object, got null")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return malformed("%v", err)
	}
	if err := validate.Struct(dst); err != nil {
		return malformed("%v", err)
	}
	return nil
}

func decodeRows[T any](raw json.RawMessage) ([]T, error) {
	if isNull(raw) {
		return nil, malformed("expected array, got null")
	}
	var rows []T
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, malformed("%v", err)
	}
	for i := range rows {
		if err := validate.Struct(&rows[i]); err != nil {
			return nil, malformed("row %d: %v", i, err)
		}
	}
	if rows == nil {
		rows = []T{}
	}
	return rows, nil
}

func decodeRecords(raw json.RawMessage) ([]Row, error) {
	if isNull(raw) {
		return nil, malformed("expected array, got null")
	}
	var rows []Row
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, malformed("%v", err)
	}
	if rows == nil {
		rows = []Row{}
	}
	return rows, nil
}

// decodeBuckets reads records of the form {labelKey: ..., "total": n}.
func decodeBuckets(raw json.RawMessage, labelKey string) ([]BucketRow, error) {
	rows, err := decodeRecords(raw)
	if err != nil {
		return nil, err
	}
	out := make([]BucketRow, 0, len(rows))
	for i, r := range rows {
		total, ok := r["total"].(float64)
		if !ok || total < 0 {
			return nil, malformed("row %d: invalid total %v", i, r["total"])
		}
		label := ""
		if v, present := r[labelKey]; present && v != nil {
			label = fmt.Sprint(v)
		}
		out = append(out, BucketRow{Bucket: label, Total: total})
	}
	return out, nil
}
