package dashboard

// Color is a CSS hex fill used by the chart layer.
type Color string

// Chart palette. Chart1 is the primary brand colour, Chart5 the default for
// keys no table knows about.
const (
	Chart1 Color = "#fecc16"
	Chart2 Color = "#62a8ea"
	Chart3 Color = "#68d391"
	Chart4 Color = "#ed7362"
	Chart5 Color = "#8256d0"

	FallbackColor = Chart5
)

// Category is the label and fill of one categorical value.
type Category struct {
	Label string `json:"label"`
	Fill  Color  `json:"fill"`
}

// Categorizer maps a raw backend key to its Category.
type Categorizer func(key string) Category

// Colorize resolves key through the label and colour tables. Keys missing
// from labels are used as their own label; keys missing from colors get
// fallback.
func Colorize(key string, labels map[string]string, colors map[string]Color, fallback Color) Category {
	cat := Category{Label: key, Fill: fallback}
	if l, ok := labels[key]; ok {
		cat.Label = l
	}
	if c, ok := colors[key]; ok {
		cat.Fill = c
	}
	return cat
}

// categoryTables builds the label and colour tables of an enumerated domain
// from its methods, so Colorize sees exactly the known variants.
func categoryTables[K ~string](label func(K) string, fill func(K) Color, keys ...K) (map[string]string, map[string]Color) {
	labels := make(map[string]string, len(keys))
	colors := make(map[string]Color, len(keys))
	for _, k := range keys {
		labels[string(k)] = label(k)
		colors[string(k)] = fill(k)
	}
	return labels, colors
}

func keyLabel[K ~string](k K) string { return string(k) }

// ---------------------------------------------------------------------------
// Gender
// ---------------------------------------------------------------------------

type Gender string

const (
	GenderFemale      Gender = "F"
	GenderMale        Gender = "M"
	GenderOther       Gender = "O"
	GenderNotDeclared Gender = "ND"
)

func (g Gender) Label() string {
	switch g {
	case GenderFemale:
		return "Feminino"
	case GenderMale:
		return "Masculino"
	case GenderOther:
		return "Outro"
	case GenderNotDeclared:
		return "ND"
	default:
		return string(g)
	}
}

func (g Gender) Fill() Color {
	switch g {
	case GenderFemale:
		return "#f472b6"
	case GenderMale:
		return "#60a5fa"
	case GenderOther:
		return "#facc15"
	case GenderNotDeclared:
		return "#64748b"
	default:
		return FallbackColor
	}
}

var genderLabels, genderColors = categoryTables(Gender.Label, Gender.Fill,
	GenderFemale, GenderMale, GenderOther, GenderNotDeclared)

// GenderCategory is the Categorizer for gender codes.
func GenderCategory(key string) Category {
	return Colorize(key, genderLabels, genderColors, FallbackColor)
}

// ---------------------------------------------------------------------------
// Active state
// ---------------------------------------------------------------------------

type ActiveState string

const (
	Active   ActiveState = "Ativos"
	Inactive ActiveState = "Inativos"
)

func (s ActiveState) Fill() Color {
	switch s {
	case Active:
		return Chart3
	case Inactive:
		return Chart4
	default:
		return FallbackColor
	}
}

var activeLabels, activeColors = categoryTables(keyLabel[ActiveState], ActiveState.Fill,
	Active, Inactive)

// ActiveCategory is the Categorizer for the active/inactive split. Labels are
// the keys themselves.
func ActiveCategory(key string) Category {
	return Colorize(key, activeLabels, activeColors, FallbackColor)
}

// ---------------------------------------------------------------------------
// Appointment status
// ---------------------------------------------------------------------------

type AppointmentStatus string

const (
	StatusPending     AppointmentStatus = "Pendente"
	StatusConfirmed   AppointmentStatus = "Confirmada"
	StatusCompleted   AppointmentStatus = "Concluída"
	StatusCancelled   AppointmentStatus = "Cancelada"
	StatusNoShow      AppointmentStatus = "Faltou"
	StatusNotDeclared AppointmentStatus = "ND"
)

func (s AppointmentStatus) Fill() Color {
	switch s {
	case StatusPending:
		return Chart1
	case StatusConfirmed:
		return Chart3
	case StatusCompleted:
		return Chart2
	case StatusCancelled:
		return Chart4
	case StatusNoShow:
		return "#94a3b8"
	case StatusNotDeclared:
		return Chart5
	default:
		return FallbackColor
	}
}

var statusLabels, statusColors = categoryTables(keyLabel[AppointmentStatus], AppointmentStatus.Fill,
	StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow, StatusNotDeclared)

// StatusCategory is the Categorizer for appointment statuses.
func StatusCategory(key string) Category {
	return Colorize(key, statusLabels, statusColors, FallbackColor)
}

// ---------------------------------------------------------------------------
// Feedback score
// ---------------------------------------------------------------------------

// Sentiment buckets a feedback score.
type Sentiment int

const (
	SentimentUnknown Sentiment = iota
	SentimentNegative
	SentimentNeutral
	SentimentPositive
)

func (s Sentiment) Fill() Color {
	switch s {
	case SentimentNegative:
		return Chart4
	case SentimentNeutral:
		return Chart1
	case SentimentPositive:
		return Chart3
	default:
		return FallbackColor
	}
}

// FeedbackScore is a 1..5 rating as sent by the backend ("1".."5").
type FeedbackScore string

func (f FeedbackScore) Sentiment() Sentiment {
	switch f {
	case "1", "2":
		return SentimentNegative
	case "3":
		return SentimentNeutral
	case "4", "5":
		return SentimentPositive
	default:
		return SentimentUnknown
	}
}

func (f FeedbackScore) Label() string {
	switch f {
	case "1":
		return "Muito insatisfeito"
	case "2":
		return "Insatisfeito"
	case "3":
		return "Neutro"
	case "4":
		return "Satisfeito"
	case "5":
		return "Muito satisfeito"
	default:
		return string(f)
	}
}

var feedbackLabels, feedbackColors = categoryTables(FeedbackScore.Label,
	func(f FeedbackScore) Color { return f.Sentiment().Fill() },
	"1", "2", "3", "4", "5")

// FeedbackCategory is the Categorizer for feedback scores.
func FeedbackCategory(key string) Category {
	return Colorize(key, feedbackLabels, feedbackColors, FallbackColor)
}
