package export

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/xuri/excelize/v2"
)

func sampleRows() []Row {
	return []Row{
		{"nome": "Dipirona", "posologias": "1cp 6/6h; se febre"},
		{"nome": "Losartana", "posologias": "1cp ao dia", "dose_mg": float64(50)},
	}
}

func TestMapRows_EmptyRenameIsIdentity(t *testing.T) {
	rows := sampleRows()
	got := MapRows(rows, map[string]string{})
	if !reflect.DeepEqual(got, rows) {
		t.Errorf("expected identity, got %v", got)
	}

	got = MapRows(rows, nil)
	if !reflect.DeepEqual(got, rows) {
		t.Errorf("expected identity for nil rename, got %v", got)
	}
}

func TestMapRows_Renames(t *testing.T) {
	got := MapRows(sampleRows(), map[string]string{"nome": "Medicamento", "posologias": "Posologias"})

	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got))
	}
	if got[0]["Medicamento"] != "Dipirona" || got[1]["Medicamento"] != "Losartana" {
		t.Errorf("expected row order and values preserved, got %v", got)
	}
	if _, ok := got[0]["nome"]; ok {
		t.Error("expected original field name to be dropped")
	}
	if got[1]["dose_mg"] != float64(50) {
		t.Errorf("expected unmapped field kept, got %v", got[1]["dose_mg"])
	}
}

func TestMapRows_DoesNotMutateInput(t *testing.T) {
	rows := sampleRows()
	MapRows(rows, map[string]string{"nome": "Medicamento"})
	if _, ok := rows[0]["nome"]; !ok {
		t.Error("expected input rows untouched")
	}
}

func TestMapRows_RenamedFieldWinsCollision(t *testing.T) {
	rows := []Row{{"a": 1, "b": 2}}
	got := MapRows(rows, map[string]string{"a": "b"})
	if len(got[0]) != 1 || got[0]["b"] != 1 {
		t.Errorf("expected renamed value to win, got %v", got[0])
	}
}

func TestSheetName(t *testing.T) {
	cases := map[string]string{
		"medicamentos":                          "medicamentos",
		"a/b:c":                                 "a_b_c",
		"":                                      "dados",
		"uma planilha com nome muito comprido demais": "uma planilha com nome muito com",
	}
	for in, want := range cases {
		if got := SheetName(in); got != want {
			t.Errorf("SheetName(%q) = %q, want %q", in, got, want)
		}
	}
	if FileName("doencas") != "doencas.xlsx" {
		t.Errorf("unexpected file name: %s", FileName("doencas"))
	}
}

func TestColumns_PreferredThenSorted(t *testing.T) {
	cols := Columns(sampleRows(), Options{Columns: []string{"posologias", "missing"}})
	want := []string{"posologias", "dose_mg", "nome"}
	if !reflect.DeepEqual(cols, want) {
		t.Errorf("expected %v, got %v", want, cols)
	}
}

func TestWrite_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	rows := append(sampleRows(), Row{"nome": "Insulina", "extra": map[string]any{"via": "SC"}})
	if err := Write(&buf, "medicamentos", rows, Options{Columns: []string{"nome", "posologias"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("failed to reopen workbook: %v", err)
	}
	defer f.Close()

	if f.GetSheetName(0) != "medicamentos" {
		t.Errorf("expected sheet medicamentos, got %s", f.GetSheetName(0))
	}

	got, err := f.GetRows("medicamentos")
	if err != nil {
		t.Fatalf("failed to read rows: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("expected header + 3 rows, got %d", len(got))
	}
	wantHeader := []string{"nome", "posologias", "dose_mg", "extra"}
	if !reflect.DeepEqual(got[0], wantHeader) {
		t.Errorf("expected header %v, got %v", wantHeader, got[0])
	}
	if got[1][0] != "Dipirona" || got[1][1] != "1cp 6/6h; se febre" {
		t.Errorf("unexpected first row: %v", got[1])
	}
	if got[2][2] != "50" {
		t.Errorf("expected numeric cell 50, got %v", got[2])
	}
	if got[3][3] != `{"via":"SC"}` {
		t.Errorf("expected nested value as JSON, got %v", got[3])
	}

	styleID, err := f.GetCellStyle("medicamentos", "A1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if styleID == 0 {
		t.Error("expected header cell to carry a style")
	}
}

func TestWrite_EmptyRows(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, "alergias", nil, Options{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.Len() == 0 {
		t.Error("expected a workbook even without rows")
	}
}

func TestWrite_StylesWholeHeader(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, "doencas", sampleRows(), Options{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("failed to reopen workbook: %v", err)
	}
	defer f.Close()

	first, err := f.GetCellStyle("doencas", "A1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	last, err := f.GetCellStyle("doencas", "C1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first == 0 || last != first {
		t.Errorf("expected every header cell to share the header style, got A1=%d C1=%d", first, last)
	}
	if body, _ := f.GetCellStyle("doencas", "A2"); body == first {
		t.Error("expected body cells to stay unstyled")
	}
}
