package upload

import (
	"github.com/rotaops/ingest/internal/domain"
)

// TransformFunc converts a raw cell value into a normalized scalar. A nil
// return with nil error means the value is absent.
type TransformFunc func(raw string) (any, error)

// ColumnMapping binds one backend column to its spreadsheet source header.
type ColumnMapping struct {
	Target    string
	Source    string
	Transform TransformFunc
}

// Config fully describes one upload kind. All fields are always present; an
// empty RPC name means that step is not configured.
type Config struct {
	Kind       domain.UploadKind
	Table      string
	Columns    []ColumnMapping
	InsertRPC  string
	DeleteRPC  string
	RefreshRPC string
}

// TargetColumns returns the backend column names in mapping order.
func (c Config) TargetColumns() []string {
	columns := make([]string, len(c.Columns))
	for i, m := range c.Columns {
		columns[i] = m.Target
	}
	return columns
}

var configs = map[domain.UploadKind]Config{
	domain.UploadKindCorridas: {
		Kind:  domain.UploadKindCorridas,
		Table: "dados_corridas",
		Columns: []ColumnMapping{
			{Target: "data_do_periodo", Source: "Data do Período", Transform: ToISODate},
			{Target: "periodo", Source: "Período", Transform: ToText},
			{Target: "duracao_do_periodo", Source: "Duração do Período", Transform: ToClockTime},
			{Target: "numero_minimo_de_entregadores_regulares_na_escala", Source: "Número Mínimo de Entregadores Regulares na Escala", Transform: ToInteger},
			{Target: "tag", Source: "Tag", Transform: ToText},
			{Target: "id_da_pessoa_entregadora", Source: "ID da Pessoa Entregadora", Transform: ToText},
			{Target: "pessoa_entregadora", Source: "Pessoa Entregadora", Transform: ToText},
			{Target: "praca", Source: "Praça", Transform: ToText},
			{Target: "sub_praca", Source: "Sub Praça", Transform: ToText},
			{Target: "origem", Source: "Origem", Transform: ToText},
			{Target: "tempo_disponivel_escalado", Source: "Tempo Disponível Escalado", Transform: ToClockTime},
			{Target: "tempo_disponivel_absoluto", Source: "Tempo Disponível Absoluto", Transform: ToClockTime},
			{Target: "numero_de_corridas_ofertadas", Source: "Número de Corridas Ofertadas", Transform: ToInteger},
			{Target: "numero_de_corridas_aceitas", Source: "Número de Corridas Aceitas", Transform: ToInteger},
			{Target: "numero_de_corridas_rejeitadas", Source: "Número de Corridas Rejeitadas", Transform: ToInteger},
			{Target: "numero_de_corridas_completadas", Source: "Número de Corridas Completadas", Transform: ToInteger},
			{Target: "numero_de_corridas_canceladas_pela_pessoa_entregadora", Source: "Número de Corridas Canceladas pela Pessoa Entregadora", Transform: ToInteger},
			{Target: "soma_das_taxas_das_corridas_aceitas", Source: "Soma das Taxas das Corridas Aceitas", Transform: ToNumber},
		},
		InsertRPC:  "insert_dados_corridas_batch",
		DeleteRPC:  "delete_all_dados_corridas",
		RefreshRPC: "refresh_dashboard_views",
	},
	domain.UploadKindMarketing: {
		Kind:  domain.UploadKindMarketing,
		Table: "dados_marketing",
		Columns: []ColumnMapping{
			{Target: "nome", Source: "Nome", Transform: ToText},
			{Target: "status", Source: "Status", Transform: ToText},
			{Target: "id_entregador", Source: "ID Entregador", Transform: ToText},
			{Target: "regiao", Source: "Região", Transform: ToText},
			{Target: "data_liberacao", Source: "Data Liberação", Transform: ToISODate},
			{Target: "sub_praca", Source: "Sub Praça", Transform: ToText},
			{Target: "telefone", Source: "Telefone", Transform: ToText},
			{Target: "telefone_2", Source: "Telefone 2", Transform: ToText},
			{Target: "data_envio", Source: "Data Envio", Transform: ToISODate},
			{Target: "rodou", Source: "Rodou", Transform: ToText},
			{Target: "data_rodou", Source: "Data Rodou", Transform: ToISODate},
			{Target: "responsavel", Source: "Responsável", Transform: ToText},
		},
		InsertRPC:  "insert_dados_marketing_batch",
		DeleteRPC:  "delete_all_dados_marketing",
		RefreshRPC: "refresh_marketing_views",
	},
	domain.UploadKindValoresCidades: {
		Kind:  domain.UploadKindValoresCidades,
		Table: "valores_cidades",
		Columns: []ColumnMapping{
			{Target: "data", Source: "Data", Transform: ToISODate},
			{Target: "id_agente", Source: "ID Agente", Transform: ToText},
			{Target: "cidade", Source: "Cidade", Transform: ToText},
			{Target: "valor", Source: "Valor", Transform: ToNumber},
		},
		InsertRPC:  "",
		DeleteRPC:  "",
		RefreshRPC: "",
	},
}

// ConfigFor returns the upload configuration for a kind.
func ConfigFor(kind domain.UploadKind) (Config, bool) {
	cfg, ok := configs[kind]
	return cfg, ok
}
