// Package answer builds deterministic stock and quantity answers straight
// from catalog rows, without calling the generation provider.
package answer

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/easeaico/lens-assistant/internal/catalog"
	"github.com/easeaico/lens-assistant/internal/detect"
	"github.com/easeaico/lens-assistant/internal/types"
)

// maxCandidates is how many products a deterministic answer lists.
const maxCandidates = 3

const (
	tplNotFound  = "not_found"
	tplAvailable = "available"
	tplSoldOut   = "sold_out"
	tplList      = "list"
)

// templatesText holds one block per (template, language). Prices never appear.
var templatesText = `
{{define "not_found.fr"}}Désolé, je ne trouve pas ce produit dans notre catalogue. Pouvez-vous me donner la référence (SKU) exacte ?{{end}}
{{define "not_found.en"}}Sorry, I could not find this product in our catalog. Could you give me the exact product reference (SKU)?{{end}}
{{define "not_found.ar"}}عذراً، لم أجد هذا المنتج في الكتالوج. هل يمكنك إعطائي مرجع المنتج (SKU) بالضبط؟{{end}}
{{define "not_found.dz"}}Smahli, ma l9itch had le produit f le catalogue. 3tini la référence (SKU) ta3ou exactement.{{end}}

{{define "available.fr"}}Oui, {{.Name}} (SKU {{.SKU}}) est disponible : {{.Quantity}} en stock.{{end}}
{{define "available.en"}}Yes, {{.Name}} (SKU {{.SKU}}) is available: {{.Quantity}} in stock.{{end}}
{{define "available.ar"}}نعم، {{.Name}} (SKU {{.SKU}}) متوفر: {{.Quantity}} في المخزون.{{end}}
{{define "available.dz"}}Ih, {{.Name}} (SKU {{.SKU}}) kayen: {{.Quantity}} f le stock.{{end}}

{{define "sold_out.fr"}}Non, {{.Name}} (SKU {{.SKU}}) n'est pas disponible pour le moment : stock {{.Quantity}}.{{end}}
{{define "sold_out.en"}}No, {{.Name}} (SKU {{.SKU}}) is not available right now: stock {{.Quantity}}.{{end}}
{{define "sold_out.ar"}}لا، {{.Name}} (SKU {{.SKU}}) غير متوفر حالياً: المخزون {{.Quantity}}.{{end}}
{{define "sold_out.dz"}}La, {{.Name}} (SKU {{.SKU}}) makanch daba: stock {{.Quantity}}.{{end}}

{{define "list.fr"}}Voici le stock des produits correspondants :{{range .}}
{{.Rank}}. {{.Name}} (SKU {{.SKU}}) : {{.Quantity}}{{end}}{{end}}
{{define "list.en"}}Here is the stock for the matching products:{{range .}}
{{.Rank}}. {{.Name}} (SKU {{.SKU}}): {{.Quantity}}{{end}}{{end}}
{{define "list.ar"}}هذا هو مخزون المنتجات المطابقة:{{range .}}
{{.Rank}}. {{.Name}} (SKU {{.SKU}}): {{.Quantity}}{{end}}{{end}}
{{define "list.dz"}}Hada le stock ta3 les produits li ylaw9ou:{{range .}}
{{.Rank}}. {{.Name}} (SKU {{.SKU}}): {{.Quantity}}{{end}}{{end}}
`

var templates = template.Must(template.New("answer").Parse(templatesText))

// Request is the input of a deterministic answer.
type Request struct {
	Lang types.Lang
	Kind detect.QuestionKind
	// Brand is the brand named in the message, if any.
	Brand string
	Hits  []types.CatalogHit
}

type candidate struct {
	Rank     int
	Name     string
	SKU      string
	Quantity string
}

// Applies reports whether kind calls for a deterministic answer.
func Applies(kind detect.QuestionKind) bool {
	return kind == detect.QuestionAvailability || kind == detect.QuestionQuantity
}

// Build renders the answer for req.
func Build(req Request) (string, error) {
	lang := req.Lang
	if !lang.Valid() {
		lang = types.LangFrench
	}
	if len(req.Hits) == 0 {
		return render(tplNotFound, lang, nil)
	}

	hits := preferBrand(req.Hits, req.Brand)
	if len(hits) > maxCandidates {
		hits = hits[:maxCandidates]
	}
	candidates := make([]candidate, 0, len(hits))
	for i, h := range hits {
		candidates = append(candidates, candidate{
			Rank:     i + 1,
			Name:     productName(h),
			SKU:      h.SKU,
			Quantity: catalog.FormatQuantity(h),
		})
	}

	if req.Kind == detect.QuestionAvailability && len(hits) == 1 && hits[0].QuantityKnown() {
		if hits[0].InStock() {
			return render(tplAvailable, lang, candidates[0])
		}
		return render(tplSoldOut, lang, candidates[0])
	}
	return render(tplList, lang, candidates)
}

func preferBrand(hits []types.CatalogHit, brand string) []types.CatalogHit {
	if brand == "" {
		return hits
	}
	var subset []types.CatalogHit
	for _, h := range hits {
		if strings.EqualFold(h.Brand, brand) {
			subset = append(subset, h)
		}
	}
	if len(subset) == 0 {
		return hits
	}
	return subset
}

func productName(h types.CatalogHit) string {
	return strings.Join(strings.Fields(fmt.Sprintf("%s %s %.2f", h.Brand, h.Family, h.Index)), " ")
}

func render(name string, lang types.Lang, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name+"."+string(lang), data); err != nil {
		return "", fmt.Errorf("failed to render %s answer: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}
