package entity

import "time"

// EditalInfo is the structured data extracted from an edital. Field names
// keep the Portuguese procurement vocabulary used downstream.
type EditalInfo struct {
	NumeroPregao       string     `json:"numero_pregao"`
	UASG               string     `json:"uasg"`
	Orgao              string     `json:"orgao"`
	Objeto             string     `json:"objeto"`
	ValorEstimado      float64    `json:"valor_estimado"`
	DataAbertura       *time.Time `json:"data_abertura,omitempty"`
	Modalidade         string     `json:"modalidade"`
	TipoLicitacao      string     `json:"tipo_licitacao"`
	CriterioJulgamento string     `json:"criterio_julgamento"`
}

// Empty reports whether no meaningful field was extracted.
func (e *EditalInfo) Empty() bool {
	if e == nil {
		return true
	}
	return e.NumeroPregao == "" && e.UASG == "" && e.Orgao == "" &&
		e.Objeto == "" && e.ValorEstimado == 0 && e.DataAbertura == nil
}

// RunMetadata is the caller-supplied metadata for one processing request.
// AI-extracted values win; these act as fallbacks and prompt hints.
type RunMetadata struct {
	Ano          int    `json:"ano,omitempty"`
	UASG         string `json:"uasg,omitempty"`
	NumeroPregao string `json:"numero_pregao,omitempty"`
	CallbackURL  string `json:"callback_url,omitempty"`
}
