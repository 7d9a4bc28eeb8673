package scoring

import "github.com/licitalab/editalscan/constants"

// riskPattern is one keyword-driven detection rule. Templates use
// %[1]s for the matched keyword.
type riskPattern struct {
	keywords            []string
	riskType            string
	baseProbability     float64
	baseImpact          float64
	descriptionTemplate string
	mitigationTemplate  string
}

// riskPatterns is the calibrated rule set for Brazilian procurement
// documents. Base scores reflect how often each signal actually
// materializes in lost or troubled contracts.
var riskPatterns = []riskPattern{
	{
		keywords:            []string{"especificação técnica", "norma técnica", "certificação", "homologação", "padrão técnico", "requisitos técnicos"},
		riskType:            constants.RiskTechnical,
		baseProbability:     0.6,
		baseImpact:          0.7,
		descriptionTemplate: "Risco técnico relacionado a %[1]s. Pode haver dificuldades na conformidade técnica ou certificações necessárias.",
		mitigationTemplate:  "Verificar antecipadamente todas as certificações e normas técnicas exigidas. Consultar fabricantes sobre conformidade.",
	},
	{
		keywords:            []string{"instalação", "montagem", "configuração", "implementação", "integração"},
		riskType:            constants.RiskTechnical,
		baseProbability:     0.5,
		baseImpact:          0.6,
		descriptionTemplate: "Complexidade na %[1]s pode gerar atrasos ou custos adicionais.",
		mitigationTemplate:  "Planejar detalhadamente a fase de %[1]s. Alocar recursos técnicos especializados.",
	},
	{
		keywords:            []string{"licitação", "habilitação", "documentação", "certidão", "regularidade fiscal", "trabalhista"},
		riskType:            constants.RiskLegal,
		baseProbability:     0.4,
		baseImpact:          0.8,
		descriptionTemplate: "Risco de inabilitação por questões de %[1]s.",
		mitigationTemplate:  "Manter documentação sempre atualizada. Verificar prazos de validade regularmente.",
	},
	{
		keywords:            []string{"prazo de entrega", "cronograma", "data limite", "urgência", "emergencial"},
		riskType:            constants.RiskOperational,
		baseProbability:     0.7,
		baseImpact:          0.6,
		descriptionTemplate: "Prazos apertados para %[1]s podem comprometer a qualidade ou viabilidade.",
		mitigationTemplate:  "Avaliar capacidade operacional. Considerar parcerias ou terceirização se necessário.",
	},
	{
		keywords:            []string{"menor preço", "maior desconto", "proposta mais vantajosa", "lance mínimo"},
		riskType:            constants.RiskCommercial,
		baseProbability:     0.8,
		baseImpact:          0.5,
		descriptionTemplate: "Alta competitividade por %[1]s pode pressionar margens.",
		mitigationTemplate:  "Otimizar custos operacionais. Considerar diferenciação técnica ou qualidade.",
	},
	{
		keywords:            []string{"garantia", "assistência técnica", "manutenção", "suporte técnico", "pós-venda"},
		riskType:            constants.RiskOperational,
		baseProbability:     0.5,
		baseImpact:          0.7,
		descriptionTemplate: "Obrigações de %[1]s podem gerar custos não previstos.",
		mitigationTemplate:  "Calcular custos de %[1]s no preço final. Estabelecer parcerias se necessário.",
	},
	{
		keywords:            []string{"grande quantidade", "volume elevado", "escala", "lotes múltiplos"},
		riskType:            constants.RiskOperational,
		baseProbability:     0.6,
		baseImpact:          0.6,
		descriptionTemplate: "Risco operacional devido ao %[1]s exigido.",
		mitigationTemplate:  "Avaliar capacidade de fornecimento. Considerar parcerias para atender demanda.",
	},
	{
		keywords:            []string{"pagamento em", "prazo de pagamento", "30 dias", "45 dias", "60 dias"},
		riskType:            constants.RiskFinancial,
		baseProbability:     0.4,
		baseImpact:          0.5,
		descriptionTemplate: "Risco de fluxo de caixa devido ao prazo de %[1]s.",
		mitigationTemplate:  "Planejar fluxo de caixa considerando prazos de pagamento. Avaliar necessidade de capital de giro.",
	},
	{
		keywords:            []string{"entrega em", "local de entrega", "região", "estado", "município", "logística"},
		riskType:            constants.RiskOperational,
		baseProbability:     0.3,
		baseImpact:          0.4,
		descriptionTemplate: "Desafios logísticos para %[1]s podem impactar custos e prazos.",
		mitigationTemplate:  "Verificar custos de transporte e logística para a região. Considerar parcerias locais.",
	},
}

// riskCategories maps a category label to the words that place a
// keyword or its context in it. Checked in a fixed order so the first
// match wins deterministically.
var riskCategoryOrder = []string{"prazo", "técnico", "financeiro", "legal", "operacional"}

var riskCategories = map[string][]string{
	"prazo":       {"prazo", "cronograma", "data", "entrega"},
	"técnico":     {"técnico", "especificação", "norma", "certificação"},
	"financeiro":  {"pagamento", "preço", "custo", "financeiro"},
	"legal":       {"legal", "documentação", "habilitação", "fiscal"},
	"operacional": {"operação", "logística", "fornecimento", "capacidade"},
}

// complexItemKeywords flag a product description as technically complex.
var complexItemKeywords = []string{
	"especificação técnica", "norma", "certificação", "homologação",
	"instalação", "configuração", "integração", "customização",
	"software", "sistema", "equipamento especializado",
}

// competitionKeywords indicate price-driven award criteria.
var competitionKeywords = []string{
	"menor preço", "maior desconto", "lance mínimo",
	"proposta mais vantajosa", "melhor técnica e preço",
}

// stateCapitals ground the geographic opportunity rule.
var stateCapitals = []string{
	"brasília", "são paulo", "rio de janeiro", "belo horizonte",
	"salvador", "fortaleza", "recife", "porto alegre", "curitiba",
}
