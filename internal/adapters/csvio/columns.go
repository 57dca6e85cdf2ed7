package csvio

// Registry columns.
const (
	ColRegistryID   = "REGISTRO_OPERADORA"
	ColRegistryName = "Razao_Social"
	ColRegistryTax  = "CNPJ"
	ColRegistryCat  = "Modalidade"
	ColRegistryUF   = "UF"
)

// Expense and output columns.
const (
	ColTaxID          = "CNPJ"
	ColRegANS         = "REG_ANS"
	ColRegistrationID = "RegistroANS"
	ColCompanyName    = "RazaoSocial"
	ColQuarter        = "Trimestre"
	ColYear           = "Ano"
	ColExpense        = "ValorDespesas"
	ColCategory       = "Modalidade"
	ColState          = "UF"

	ColCadastroIncompleto = "CadastroIncompleto"
	ColCNPJConflict       = "CNPJConflict"
	ColCNPJInvalido       = "CNPJInvalido"
	ColRazaoSocialAusente = "RazaoSocialAusente"

	// staging only
	ColLine         = "Linha"
	ColOfficialName = "RazaoSocialCadastro"
	ColMatched      = "MatchCadastro"
)

var (
	registryRequired = []string{ColRegistryID, ColRegistryName, ColRegistryTax, ColRegistryCat, ColRegistryUF}

	expenseRequired = []string{ColTaxID, ColCompanyName, ColQuarter, ColYear, ColExpense}

	// EnrichedHeader is the header of the enriched output.
	EnrichedHeader = []string{
		ColTaxID, ColCompanyName, ColQuarter, ColYear, ColExpense, ColRegistrationID, ColCategory, ColState,
		ColCadastroIncompleto, ColCNPJConflict, ColCNPJInvalido, ColRazaoSocialAusente,
	}

	stagingHeader = append(append([]string{}, EnrichedHeader...), ColLine, ColOfficialName, ColMatched)

	// AggregatedHeader is the header of the aggregated output.
	AggregatedHeader = []string{
		ColCompanyName, ColState, ColQuarter, ColYear, ColTaxID, ColRegistrationID, ColCategory, ColExpense,
		ColCNPJConflict, ColRazaoSocialAusente, ColCadastroIncompleto, ColCNPJInvalido,
	}

	// MetricsHeader is the header of the operator metrics output.
	MetricsHeader = []string{
		"Ranking", ColCompanyName, ColState, "TotalDespesas", "MediaTrimestral", "DesvioPadrao",
		"CoeficienteVariacao", "AltaVariabilidade", "QuantidadeTrimestres",
		ColCNPJConflict, ColRazaoSocialAusente, ColCadastroIncompleto,
		ColRegistrationID, ColCategory, ColTaxID,
	}

	conflictsHeader = []string{ColTaxID, "RazoesEncontradas"}
	unmatchedHeader = []string{ColRegistrationID, "QuantidadeRegistros", "RazaoSocialPlaceholder"}
	invalidHeader   = []string{ColTaxID, ColRegistrationID, ColCompanyName, "QuantidadeRegistros"}
	issuesHeader    = []string{"Linha", "Tipo", "Campo", "Valor", "Detalhe"}
)
