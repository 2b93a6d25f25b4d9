package importer

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Canonical column names of the import schema.
const (
	ColNombre        = "nombre"
	ColTelefono      = "telefono"
	ColNroSerie      = "nro_serie"
	ColTipo          = "tipo"
	ColVencimiento   = "vencimiento"
	ColUltimaRecarga = "ultima_recarga"
	ColEmpresa       = "empresa"
	ColOptIn         = "opt_in"
)

// RequiredColumns must all be present after header normalization for an
// import to proceed at all.
var RequiredColumns = []string{ColNombre, ColTelefono, ColNroSerie, ColTipo, ColVencimiento}

// columnAliases maps header slugs to canonical names. Customer spreadsheets
// come from many hands, so the common variants all collapse here.
var columnAliases = map[string]string{
	"nombre":       ColNombre,
	"cliente":      ColNombre,
	"razon_social": ColNombre,
	"contacto":     ColNombre,

	"telefono": ColTelefono,
	"celular":  ColTelefono,
	"whatsapp": ColTelefono,
	"tel":      ColTelefono,
	"movil":    ColTelefono,
	"numero":   ColTelefono,

	"nro_serie":    ColNroSerie,
	"serie":        ColNroSerie,
	"numero_serie": ColNroSerie,
	"nro_de_serie": ColNroSerie,
	"serial":       ColNroSerie,

	"tipo":      ColTipo,
	"clase":     ColTipo,
	"categoria": ColTipo,

	"vencimiento":          ColVencimiento,
	"vence":                ColVencimiento,
	"vto":                  ColVencimiento,
	"fecha_vencimiento":    ColVencimiento,
	"fecha_de_vencimiento": ColVencimiento,

	"ultima_recarga": ColUltimaRecarga,
	"recarga":        ColUltimaRecarga,
	"fecha_recarga":  ColUltimaRecarga,

	"empresa":  ColEmpresa,
	"compania": ColEmpresa,
	"company":  ColEmpresa,

	"opt_in":                ColOptIn,
	"optin":                 ColOptIn,
	"acepta_notificaciones": ColOptIn,
}

var accentStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeHeaders maps raw spreadsheet headers to canonical column names,
// preserving length and order. Headers with no alias pass through slugified,
// so optional unmapped columns survive the mapping.
func NormalizeHeaders(headers []string) []string {
	out := make([]string, len(headers))
	for i, header := range headers {
		slug := slugifyHeader(header)
		if canonical, ok := columnAliases[slug]; ok {
			out[i] = canonical
			continue
		}
		out[i] = slug
	}
	return out
}

// slugifyHeader lowercases, drops a parenthesized suffix such as
// "telefono (+E.164)", strips accents and collapses every run of
// non-alphanumeric characters into a single underscore.
func slugifyHeader(header string) string {
	s := strings.ToLower(strings.TrimSpace(header))

	if i := strings.Index(s, "("); i >= 0 {
		s = s[:i]
	}

	if stripped, _, err := transform.String(accentStripper, s); err == nil {
		s = stripped
	}

	var b strings.Builder
	pendingSep := false
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
			pendingSep = false
			continue
		}
		pendingSep = true
	}
	return b.String()
}
