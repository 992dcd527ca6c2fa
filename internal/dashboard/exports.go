package dashboard

import "sort"

// Export describes one downloadable row set of the committed view.
type Export struct {
	Name    string
	Sheet   string
	Rename  map[string]string
	Columns []string
	Rows    func(vm ViewModel) []Row
}

var exports = map[string]Export{
	SectionMedications: {
		Sheet:   "medicamentos",
		Rename:  map[string]string{"nome": "Medicamento", "posologias": "Posologias"},
		Columns: []string{"Medicamento", "Posologias"},
		Rows:    func(vm ViewModel) []Row { return vm.Medications.Rows },
	},
	"posologias-frequentes": {
		Sheet:   "posologias frequentes",
		Columns: []string{"Posologia", "Ocorrências"},
		Rows: func(vm ViewModel) []Row {
			rows := make([]Row, 0, len(vm.Medications.Dosage.TopSchedules))
			for _, s := range vm.Medications.Dosage.TopSchedules {
				rows = append(rows, Row{"Posologia": s.Schedule, "Ocorrências": s.Occurrences})
			}
			return rows
		},
	},
	SectionDiseases: {
		Sheet: "doencas",
		Rows:  func(vm ViewModel) []Row { return vm.Diseases.Rows },
	},
	SectionAllergies: {
		Sheet: "alergias",
		Rows:  func(vm ViewModel) []Row { return vm.Allergies.Rows },
	},
	SectionFamilyDiseases: {
		Sheet: "doencas familiares",
		Rows:  func(vm ViewModel) []Row { return vm.FamilyDiseases.Rows },
	},
	SectionDosageCatalog: {
		Sheet: "posologias",
		Rows:  func(vm ViewModel) []Row { return vm.DosageCatalog.Rows },
	},
	SectionPatientsRegion: {
		Sheet:   "pacientes por uf",
		Rename:  map[string]string{"bucket": "UF", "total": "Total"},
		Columns: []string{"UF", "Total"},
		Rows:    func(vm ViewModel) []Row { return bucketRows(vm.Patients.ByRegion) },
	},
	SectionPatientsCity: {
		Sheet:   "pacientes por cidade",
		Rename:  map[string]string{"bucket": "Cidade", "total": "Total"},
		Columns: []string{"Cidade", "Total"},
		Rows:    func(vm ViewModel) []Row { return bucketRows(vm.Patients.ByCity) },
	},
	SectionProfessionalsRole: {
		Sheet:   "profissionais por cargo",
		Rename:  map[string]string{"bucket": "Cargo", "total": "Total"},
		Columns: []string{"Cargo", "Total"},
		Rows:    func(vm ViewModel) []Row { return bucketRows(vm.Professionals.ByRole) },
	},
}

// LookupExport returns the export registered under name.
func LookupExport(name string) (Export, bool) {
	e, ok := exports[name]
	if ok {
		e.Name = name
	}
	return e, ok
}

// ExportNames lists every registered export, sorted.
func ExportNames() []string {
	names := make([]string, 0, len(exports))
	for n := range exports {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func bucketRows(rows []BucketRow) []Row {
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		out = append(out, Row{"bucket": r.Bucket, "total": r.Total})
	}
	return out
}
