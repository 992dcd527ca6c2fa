// Package statsapi is a reference implementation of the clinical statistics
// API the dashboard consumes. Every endpoint is a fixed SQL query whose
// result is shaped into the JSON the dashboard expects.
package statsapi

// Shape says how a query result becomes JSON.
type Shape string

const (
	// ShapeCounter turns (key, total) rows into an ordered JSON object.
	ShapeCounter Shape = "counter"
	// ShapeRows returns every row as a JSON object.
	ShapeRows Shape = "rows"
	// ShapeObject returns the first row as a JSON object.
	ShapeObject Shape = "object"
)

// Part is a nested breakdown merged into an object endpoint under Key.
type Part struct {
	Key   string `json:"key"`
	Shape Shape  `json:"shape"`
	SQL   string `json:"sql"`
}

// Endpoint is one route of the statistics API. Range sensitive queries take
// the range start and end dates as $1 and $2.
type Endpoint struct {
	Path           string `json:"path"`
	Description    string `json:"description"`
	Shape          Shape  `json:"shape"`
	SQL            string `json:"sql"`
	RangeSensitive bool   `json:"range_sensitive"`
	Parts          []Part `json:"parts,omitempty"`
}

const ageYears = `date_part('year', age(data_nascimento))`

// ageBand groups ages into the bands shown on the dashboard. Rows are ordered
// by the youngest age in each band so bands arrive ascending.
const ageBand = `CASE
        WHEN data_nascimento IS NULL THEN 'ND'
        WHEN ` + ageYears + ` < 18 THEN '0-17'
        WHEN ` + ageYears + ` < 30 THEN '18-29'
        WHEN ` + ageYears + ` < 45 THEN '30-44'
        WHEN ` + ageYears + ` < 60 THEN '45-59'
        ELSE '60+'
    END`

const inRange = `data::date BETWEEN $1 AND $2`

// Endpoints is the route table of the reference backend.
var Endpoints = []Endpoint{
	{
		Path:        "/pacientes-ativos",
		Description: "Patients split by active state",
		Shape:       ShapeCounter,
		SQL:         `SELECT CASE WHEN ativo THEN 'Ativos' ELSE 'Inativos' END AS chave, COUNT(*) AS total FROM pacientes GROUP BY 1 ORDER BY 1`,
	},
	{
		Path:           "/pacientes-novos",
		Description:    "Patients registered per day within the range",
		Shape:          ShapeRows,
		SQL:            `SELECT to_char(criado_em, 'DD/MM') AS rotulo, COUNT(*) AS total FROM pacientes WHERE criado_em BETWEEN $1 AND $2 GROUP BY criado_em ORDER BY criado_em`,
		RangeSensitive: true,
	},
	{
		Path:        "/pacientes-genero",
		Description: "Patients by gender code",
		Shape:       ShapeRows,
		SQL:         `SELECT COALESCE(genero, 'ND') AS genero, COUNT(*) AS total FROM pacientes GROUP BY 1 ORDER BY 1`,
	},
	{
		Path:        "/pacientes-uf",
		Description: "Patients by state",
		Shape:       ShapeRows,
		SQL:         `SELECT COALESCE(uf, 'ND') AS uf, COUNT(*) AS total FROM pacientes GROUP BY 1 ORDER BY total DESC, uf`,
	},
	{
		Path:        "/pacientes-cidade",
		Description: "Top 20 cities by patient count",
		Shape:       ShapeRows,
		SQL:         `SELECT COALESCE(cidade, 'ND') AS cidade, COUNT(*) AS total FROM pacientes GROUP BY 1 ORDER BY total DESC, cidade LIMIT 20`,
	},
	{
		Path:        "/pacientes-faixa",
		Description: "Patients by age band",
		Shape:       ShapeCounter,
		SQL:         `SELECT ` + ageBand + ` AS chave, COUNT(*) AS total FROM pacientes GROUP BY 1 ORDER BY MIN(COALESCE(` + ageYears + `, 999))`,
	},
	{
		Path:        "/profissionais-basicos",
		Description: "Professional headcount and average age",
		Shape:       ShapeObject,
		SQL: `SELECT COUNT(*) AS total,
       COUNT(*) FILTER (WHERE ativo) AS ativos,
       COUNT(*) FILTER (WHERE NOT ativo) AS inativos,
       COALESCE(ROUND(AVG(` + ageYears + `)::numeric, 1), 0)::float8 AS media_idade
  FROM profissionais`,
	},
	{
		Path:        "/profissionais-cargo",
		Description: "Professionals by role",
		Shape:       ShapeRows,
		SQL:         `SELECT cargo, COUNT(*) AS total FROM profissionais GROUP BY cargo ORDER BY total DESC, cargo`,
	},
	{
		Path:        "/profissionais-genero",
		Description: "Professionals by gender code",
		Shape:       ShapeRows,
		SQL:         `SELECT COALESCE(genero, 'ND') AS genero, COUNT(*) AS total FROM profissionais GROUP BY 1 ORDER BY 1`,
	},
	{
		Path:        "/profissionais-faixa",
		Description: "Professionals by age band",
		Shape:       ShapeCounter,
		SQL:         `SELECT ` + ageBand + ` AS chave, COUNT(*) AS total FROM profissionais GROUP BY 1 ORDER BY MIN(COALESCE(` + ageYears + `, 999))`,
	},
	{
		Path:        "/consultas-basicos",
		Description: "Appointment summary with breakdowns within the range",
		Shape:       ShapeObject,
		SQL: `SELECT COUNT(*) AS total,
       COALESCE(AVG(espera_minutos), 0)::float8 AS espera,
       COALESCE(AVG(duracao_minutos), 0)::float8 AS duracao
  FROM consultas WHERE ` + inRange,
		RangeSensitive: true,
		Parts: []Part{
			{Key: "status", Shape: ShapeRows, SQL: `SELECT status, COUNT(*) AS total FROM consultas WHERE ` + inRange + ` GROUP BY status ORDER BY total DESC`},
			{Key: "tipo", Shape: ShapeRows, SQL: `SELECT COALESCE(tipo, 'ND') AS tipo, COUNT(*) AS total FROM consultas WHERE ` + inRange + ` GROUP BY 1 ORDER BY total DESC`},
			{Key: "dia", Shape: ShapeRows, SQL: `SELECT to_char(data::date, 'DD/MM') AS rotulo, COUNT(*) AS total FROM consultas WHERE ` + inRange + ` GROUP BY data::date ORDER BY data::date`},
			{Key: "dow", Shape: ShapeRows, SQL: `SELECT EXTRACT(DOW FROM data)::int AS dow, COUNT(*) AS total FROM consultas WHERE ` + inRange + ` GROUP BY 1 ORDER BY 1`},
			{Key: "faixa", Shape: ShapeCounter, SQL: `SELECT ` + ageBand + ` AS chave, COUNT(*) AS total FROM consultas c JOIN pacientes p ON p.id = c.paciente_id WHERE c.` + inRange + ` GROUP BY 1 ORDER BY MIN(COALESCE(` + ageYears + `, 999))`},
			{Key: "genero", Shape: ShapeRows, SQL: `SELECT COALESCE(p.genero, 'ND') AS genero, COUNT(*) AS total FROM consultas c JOIN pacientes p ON p.id = c.paciente_id WHERE c.` + inRange + ` GROUP BY 1 ORDER BY 1`},
		},
	},
	{
		Path:           "/feedback-notas",
		Description:    "Feedback score counts within the range",
		Shape:          ShapeCounter,
		SQL:            `SELECT nota::text AS chave, COUNT(*) AS total FROM feedback WHERE criado_em BETWEEN $1 AND $2 GROUP BY nota ORDER BY nota`,
		RangeSensitive: true,
	},
	{
		Path:        "/medicamentos",
		Description: "Medication catalogue with dosage schedules",
		Shape:       ShapeRows,
		SQL:         `SELECT id, nome, posologias FROM medicamentos ORDER BY nome`,
	},
	{
		Path:        "/doencas",
		Description: "Disease catalogue",
		Shape:       ShapeRows,
		SQL:         `SELECT id, nome, cid FROM doencas ORDER BY nome`,
	},
	{
		Path:        "/alergias",
		Description: "Allergy catalogue",
		Shape:       ShapeRows,
		SQL:         `SELECT id, nome FROM alergias ORDER BY nome`,
	},
	{
		Path:        "/doencas-familiares",
		Description: "Family disease history records",
		Shape:       ShapeRows,
		SQL:         `SELECT id, paciente_id, doenca, parentesco FROM doencas_familiares ORDER BY doenca`,
	},
	{
		Path:        "/posologias",
		Description: "Dosage schedule catalogue",
		Shape:       ShapeRows,
		SQL:         `SELECT id, descricao FROM posologias ORDER BY descricao`,
	},
}

// FindEndpoint looks up an endpoint by path.
func FindEndpoint(path string) *Endpoint {
	for i := range Endpoints {
		if Endpoints[i].Path == path {
			return &Endpoints[i]
		}
	}
	return nil
}
