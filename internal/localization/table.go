package localization

import (
	"github.com/AliTahir-101/weather-api/internal/models"
)

// Language is a supported response language code.
type Language string

const (
	English Language = "en"
	Urdu    Language = "ur"
	Arabic  Language = "ar"
)

// Field identifies a semantic field of the weather payload, independent of
// how any language labels it.
type Field string

const (
	FieldCityName       Field = "city_name"
	FieldTemperature    Field = "temperature"
	FieldMinTemperature Field = "min_temperature"
	FieldMaxTemperature Field = "max_temperature"
	FieldHumidity       Field = "humidity"
	FieldPressure       Field = "pressure"
	FieldWindSpeed      Field = "wind_speed"
	FieldWindDirection  Field = "wind_direction"
	FieldDescription    Field = "description"
)

// fieldOrder is the payload field order for every language. Key order in the
// rendered JSON is part of the observable contract.
var fieldOrder = [9]Field{
	FieldCityName,
	FieldTemperature,
	FieldMinTemperature,
	FieldMaxTemperature,
	FieldHumidity,
	FieldPressure,
	FieldWindSpeed,
	FieldWindDirection,
	FieldDescription,
}

// languageTable holds the static translations for one language: the label
// shown for each semantic field, the compass direction names, and the texts
// for provider description codes.
type languageTable struct {
	labels       map[Field]string
	directions   map[models.Direction]string
	descriptions map[string]string
}

// tables is the full localization table. Pure static data; adding a language
// is one new entry here and touches no pipeline logic.
var tables = map[Language]languageTable{
	English: {
		labels: map[Field]string{
			FieldCityName:       "city_name",
			FieldTemperature:    "temperature",
			FieldMinTemperature: "min_temperature",
			FieldMaxTemperature: "max_temperature",
			FieldHumidity:       "humidity",
			FieldPressure:       "pressure",
			FieldWindSpeed:      "wind_speed",
			FieldWindDirection:  "wind_direction",
			FieldDescription:    "description",
		},
		directions: map[models.Direction]string{
			models.North:     "North",
			models.Northeast: "Northeast",
			models.East:      "East",
			models.Southeast: "Southeast",
			models.South:     "South",
			models.Southwest: "Southwest",
			models.West:      "West",
			models.Northwest: "Northwest",
		},
		descriptions: map[string]string{
			"clear_sky":        "clear sky",
			"few_clouds":       "few clouds",
			"scattered_clouds": "scattered clouds",
			"broken_clouds":    "broken clouds",
			"overcast_clouds":  "overcast clouds",
			"light_rain":       "light rain",
			"moderate_rain":    "moderate rain",
			"shower_rain":      "shower rain",
			"rain":             "rain",
			"drizzle":          "drizzle",
			"thunderstorm":     "thunderstorm",
			"snow":             "snow",
			"mist":             "mist",
			"haze":             "haze",
			"fog":              "fog",
		},
	},
	Urdu: {
		labels: map[Field]string{
			FieldCityName:       "شہر کا نام",
			FieldTemperature:    "درجہ حرارت",
			FieldMinTemperature: "کم سے کم درجہ حرارت",
			FieldMaxTemperature: "زیادہ سے زیادہ درجہ حرارت",
			FieldHumidity:       "نمی",
			FieldPressure:       "دباؤ",
			FieldWindSpeed:      "ہوا کی رفتار",
			FieldWindDirection:  "ہوا کا رخ",
			FieldDescription:    "تفصیل",
		},
		directions: map[models.Direction]string{
			models.North:     "شمال",
			models.Northeast: "شمال مشرق",
			models.East:      "مشرق",
			models.Southeast: "جنوب مشرق",
			models.South:     "جنوب",
			models.Southwest: "جنوب مغرب",
			models.West:      "مغرب",
			models.Northwest: "شمال مغرب",
		},
		descriptions: map[string]string{
			"clear_sky":        "صاف آسمان",
			"few_clouds":       "کچھ بادل",
			"scattered_clouds": "بکھرے ہوئے بادل",
			"broken_clouds":    "ٹوٹے ہوئے بادل",
			"overcast_clouds":  "گھنے بادل",
			"light_rain":       "ہلکی بارش",
			"moderate_rain":    "درمیانی بارش",
			"shower_rain":      "بوچھاڑ",
			"rain":             "بارش",
			"drizzle":          "پھوار",
			"thunderstorm":     "گرج چمک کا طوفان",
			"snow":             "برف باری",
			"mist":             "دھند",
			"haze":             "کہر",
			"fog":              "کہرا",
		},
	},
	Arabic: {
		labels: map[Field]string{
			FieldCityName:       "اسم المدينة",
			FieldTemperature:    "درجة الحرارة",
			FieldMinTemperature: "درجة الحرارة الصغرى",
			FieldMaxTemperature: "درجة الحرارة العظمى",
			FieldHumidity:       "الرطوبة",
			FieldPressure:       "الضغط الجوي",
			FieldWindSpeed:      "سرعة الرياح",
			FieldWindDirection:  "اتجاه الرياح",
			FieldDescription:    "الوصف",
		},
		directions: map[models.Direction]string{
			models.North:     "شمال",
			models.Northeast: "شمال شرق",
			models.East:      "شرق",
			models.Southeast: "جنوب شرق",
			models.South:     "جنوب",
			models.Southwest: "جنوب غرب",
			models.West:      "غرب",
			models.Northwest: "شمال غرب",
		},
		descriptions: map[string]string{
			"clear_sky":        "سماء صافية",
			"few_clouds":       "غيوم قليلة",
			"scattered_clouds": "غيوم متفرقة",
			"broken_clouds":    "غيوم متقطعة",
			"overcast_clouds":  "غيوم ملبدة",
			"light_rain":       "مطر خفيف",
			"moderate_rain":    "مطر معتدل",
			"shower_rain":      "زخات مطر",
			"rain":             "مطر",
			"drizzle":          "رذاذ",
			"thunderstorm":     "عاصفة رعدية",
			"snow":             "ثلج",
			"mist":             "ضباب خفيف",
			"haze":             "سديم",
			"fog":              "ضباب",
		},
	},
}

// Supported reports whether lang has a localization table.
func Supported(lang Language) bool {
	_, ok := tables[lang]
	return ok
}

// Languages returns the supported language codes.
func Languages() []Language {
	out := make([]Language, 0, len(tables))
	for _, lang := range []Language{English, Urdu, Arabic} {
		if _, ok := tables[lang]; ok {
			out = append(out, lang)
		}
	}
	return out
}

// Label returns the label string for a semantic field in the given language.
// ok is false when the language is unsupported.
func Label(lang Language, field Field) (string, bool) {
	table, ok := tables[lang]
	if !ok {
		return "", false
	}
	label, ok := table.labels[field]
	return label, ok
}

// DirectionName returns the localized compass direction name.
func DirectionName(lang Language, dir models.Direction) (string, bool) {
	table, ok := tables[lang]
	if !ok {
		return "", false
	}
	name, ok := table.directions[dir]
	return name, ok
}

// DescriptionText returns the localized text for a provider description code.
// ok is false when the language is unsupported or the code has no
// translation; callers fall back to the code itself in the latter case.
func DescriptionText(lang Language, code string) (string, bool) {
	table, ok := tables[lang]
	if !ok {
		return "", false
	}
	text, ok := table.descriptions[code]
	return text, ok
}
