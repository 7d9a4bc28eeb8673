package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/licitalab/editalscan/internal/entity"
)

var productIndicators = []string{"item", "descrição", "descricao", "quantidade", "valor", "preço", "preco", "produto"}

// ClassifyTable infers a table's type from its header row.
func ClassifyTable(t *entity.Table) entity.TableType {
	joined := strings.ToLower(strings.Join(t.Headers, " "))
	for _, ind := range productIndicators {
		if strings.Contains(joined, ind) {
			return entity.TableProducts
		}
	}
	if strings.Contains(joined, "documento") {
		return entity.TableDocuments
	}
	if strings.Contains(joined, "prazo") {
		return entity.TableSchedule
	}
	return entity.TableOther
}

// ProductTableScore measures how product-like a table is: header keyword
// density (0.4), numeric column density (0.3), row presence (0.2) and
// extraction confidence (0.1).
func ProductTableScore(t *entity.Table) float64 {
	score := 0.0

	if len(t.Headers) > 0 {
		hits := 0
		for _, h := range t.Headers {
			hl := strings.ToLower(h)
			for _, ind := range productIndicators {
				if strings.Contains(hl, ind) {
					hits++
					break
				}
			}
		}
		ratio := float64(hits) / float64(len(t.Headers))
		if ratio > 1 {
			ratio = 1
		}
		score += ratio * 0.4
	}

	if len(t.Rows) > 0 && len(t.Rows[0]) > 0 {
		numeric := 0
		for _, cell := range t.Rows[0] {
			if _, ok := ParseDecimal(cell); ok {
				numeric++
			}
		}
		density := float64(numeric) / float64(len(t.Rows[0]))
		if density > 0.5 {
			density = 0.5
		}
		score += density * 0.3
		score += 0.2
	}

	if t.Confidence > 0 {
		c := t.Confidence
		if c > 1 {
			c = c / 100
		}
		if c > 0.1 {
			c = 0.1
		}
		score += c
	}

	if score > 1 {
		score = 1
	}
	return score
}

// headerFields is checked in order: the most specific matches first so
// "valor unitário" binds to unit_price, never to the short "un" token.
var headerFields = []struct {
	field    string
	keywords []string
}{
	{"unit_price", []string{"valor unitário", "valor unitario", "preço unitário", "preco unitario", "vlr unit"}},
	{"total_price", []string{"valor total", "vlr total", "total"}},
	{"quantity", []string{"quantidade", "qtd", "quant"}},
	{"description", []string{"descrição", "descricao", "especificação", "especificacao"}},
	{"item", []string{"item", "nº", "numero", "número"}},
	{"unit", []string{"unidade", "medida", "un"}},
}

// StructureProducts maps a product table's raw rows into ProductRow
// records using header keyword matching. Rows with fewer than two cells
// are skipped.
func StructureProducts(t *entity.Table) []entity.ProductRow {
	var products []entity.ProductRow
	for _, row := range t.Rows {
		if len(row) < 2 {
			continue
		}
		var p entity.ProductRow
		matched := false
		for i, cell := range row {
			if i >= len(t.Headers) {
				break
			}
			field := fieldForHeader(t.Headers[i])
			if field == "" {
				continue
			}
			matched = true
			switch field {
			case "item":
				p.Item = strings.TrimSpace(cell)
			case "description":
				p.Description = strings.TrimSpace(cell)
			case "quantity":
				if v, ok := ParseDecimal(cell); ok {
					p.Quantity = v
				}
			case "unit":
				p.Unit = strings.TrimSpace(cell)
			case "unit_price":
				if v, ok := ParseDecimal(cell); ok {
					p.UnitPrice = v
				}
			case "total_price":
				if v, ok := ParseDecimal(cell); ok {
					p.TotalPrice = v
				}
			}
		}
		if matched {
			products = append(products, p)
		}
	}
	return products
}

func fieldForHeader(header string) string {
	hl := strings.ToLower(header)
	for _, hf := range headerFields {
		for _, kw := range hf.keywords {
			if len(kw) <= 3 {
				// short tokens match whole words only
				for _, word := range strings.Fields(hl) {
					if strings.Trim(word, ".:") == kw {
						return hf.field
					}
				}
				continue
			}
			if strings.Contains(hl, kw) {
				return hf.field
			}
		}
	}
	return ""
}

var nonNumeric = regexp.MustCompile(`[^\d,.\-]`)

// ParseDecimal parses a Brazilian-formatted number ("R$ 3.000,00",
// "1.234,5", "100") into a float64.
func ParseDecimal(s string) (float64, bool) {
	s = nonNumeric.ReplaceAllString(s, "")
	if s == "" || s == "-" {
		return 0, false
	}
	if strings.Contains(s, ",") {
		// thousands dots, decimal comma
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
