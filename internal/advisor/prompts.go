package advisor

import (
	"encoding/json"
	"fmt"

	"github.com/noah-isme/backend-mayorista/internal/catalog"
)

// Kind identifies a suggestion type.
type Kind string

const (
	KindDescription Kind = "description"
	KindPricing     Kind = "pricing"
	KindSalesTrends Kind = "sales_trends"
)

var fallbacks = map[Kind]string{
	KindDescription: "No se pudo generar una descripción.",
	KindPricing:     "Sugerencia no disponible.",
	KindSalesTrends: "Análisis no disponible en este momento.",
}

// Fallback returns the text shown when the generator is unavailable.
func Fallback(k Kind) string {
	return fallbacks[k]
}

func descriptionPrompt(p catalog.Product) string {
	return fmt.Sprintf(`Actúa como un experto en copywriting para e-commerce mayorista.
Optimiza la descripción del siguiente producto para atraer más compradores B2B.
Destaca beneficios por volumen y calidad:
Producto: %s
Categoría: %s
Descripción actual: %s`, p.Name, p.Category, p.Description)
}

func pricingPrompt(p catalog.Product) string {
	return fmt.Sprintf(`Sugiere una estrategia de precios por volumen para el producto "%s" que cuesta actualmente $%d por unidad. El pedido mínimo es de %d unidades. Dame una tabla JSON con rangos sugeridos.`,
		p.Name, p.Price, max(p.MinOrder, 1))
}

func salesTrendsPrompt(points []MonthlySales) (string, error) {
	raw, err := json.Marshal(points)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`Analiza los siguientes datos de ventas mensuales y proporciona un resumen ejecutivo breve con 3 puntos clave para el vendedor mayorista:
%s`, raw), nil
}
