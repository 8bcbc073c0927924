package ledger

// OtherCategory only takes a free-text description.
const OtherCategory = "Otros"

// subfilters are client-side labels per category. They end up as the
// expense description and are never stored as their own entity.
var subfilters = map[string][]string{
	"Transporte":      {"Uber", "Colectivo", "Taxi", "Metro", "Combustible", "Otro"},
	"Supermercado":    {"Verduleria", "Carniceria", "Panaderia", "Pasteleria", "Reposteria", "Otro"},
	"Restaurante":     {"Delivery", "Presencial", "Cafetería", "Otro"},
	"Servicios":       {"Luz", "Gas", "Agua", "Internet", "Teléfono", "Otro"},
	"Entretenimiento": {"Cine", "Streaming", "Juegos", "Otro"},
	"Salud":           {"Farmacia", "Médico", "Otro"},
	OtherCategory:     nil,
}

// Subfilters returns the subcategories of a category label, nil when the
// category takes free text.
func Subfilters(category string) []string {
	return subfilters[category]
}

func HasSubfilters(category string) bool {
	_, ok := subfilters[category]
	return ok
}
