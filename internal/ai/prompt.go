// README: Prompt construction for the classifier tier.
package ai

import (
	"fmt"
	"strings"
)

// buildPrompt assembles the system identity, conversation state, catalog
// slice, and the strict output contract for one classification call.
func buildPrompt(req ClassifyRequest) string {
	var b strings.Builder

	fmt.Fprintf(&b, `Rol: Eres el asistente de reservas de "%s" (tipo: %s).
Fecha civil actual: %s (%s).
Horario de atención: %s
Servicios disponibles: %s

`, req.CompanyName, req.CompanyType, req.CivilDate, req.Weekday,
		orUnknown(req.Hours), orUnknown(strings.Join(req.AvailableServices, ", ")))

	if len(req.RecentTurns) > 0 {
		b.WriteString("Conversación reciente:\n")
		for _, t := range req.RecentTurns {
			role := "Usuario"
			if t.Role == "bot" {
				role = "Asistente"
			}
			fmt.Fprintf(&b, "- %s: %s\n", role, t.Text)
		}
		b.WriteString("\n")
	}

	if len(req.Collected) > 0 {
		b.WriteString("Datos ya recolectados (consérvalos, NO los pierdas ni los sobrescribas con null):\n")
		for k, v := range req.Collected {
			fmt.Fprintf(&b, "- %s: %s\n", k, v)
		}
		b.WriteString("\n")
	}

	if len(req.Catalog) > 0 {
		b.WriteString("Catálogo relevante:\n")
		for _, it := range req.Catalog {
			fmt.Fprintf(&b, "- %s (%s) $%d\n", it.Name, it.Category, it.Price)
		}
		b.WriteString("\n")
	}

	b.WriteString(`REGLAS:
1. Clasifica la intención del mensaje en exactamente una de: saludar, reservar, cancelar, consultar, despedida, otro.
2. Extrae solo datos presentes en el mensaje o en la conversación. Fechas en formato YYYY-MM-DD calculadas desde la fecha civil actual; horas en formato HH:MM de 24 horas.
3. Si la hora es ambigua (número menor a 7 sin am/pm ni período), asume la tarde/noche.
4. Los productos deben coincidir con nombres del catálogo; incluye cantidad (mínimo 1).
5. "service" debe ser una de las claves de servicio disponibles si el usuario la menciona o se deduce del contexto.
6. En "missingFields" lista los campos que aún faltan para completar la reserva.
7. "suggestedReply" es una respuesta corta y natural en español colombiano. Nunca incluyas códigos internos ni texto en mayúsculas sostenidas.
8. Responde SOLO con el JSON, sin markdown.

Esquema de salida:
{
  "intention": "saludar" | "reservar" | "cancelar" | "consultar" | "despedida" | "otro",
  "confidence": 0.0-1.0,
  "extractedData": {
    "date": "YYYY-MM-DD" | omitir,
    "time": "HH:MM" | omitir,
    "guests": entero | omitir,
    "phone": "string" | omitir,
    "service": "string" | omitir,
    "products": [{"name": "string", "quantity": entero}] | omitir
  },
  "missingFields": ["string"],
  "suggestedReply": "string",
  "thinking": {"razonamiento": "string"}
}

`)
	fmt.Fprintf(&b, "Mensaje del usuario: %s\n", req.Message)
	return b.String()
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "no especificado"
	}
	return s
}
