package gemini

import (
	"encoding/json"
	"strings"

	"google.golang.org/genai"

	"github.com/agentstation/concilia/pkg/errors"
	"github.com/agentstation/concilia/pkg/extract"
	"github.com/agentstation/concilia/pkg/ledger"
)

const (
	billingHeading   = "DOCUMENTO 1: BASE DE FATURAMENTO / LISTA DE COBRANÇA"
	statementHeading = "DOCUMENTO 2: EXTRATO BANCÁRIO / MOVIMENTAÇÃO DO BANCO"
)

const promptTemplate = `Você é um auditor financeiro especializado em conciliação bancária.

Você receberá dois documentos: uma lista de cobrança (clientes e valores esperados) e um extrato bancário (créditos recebidos).

Clientes já cadastrados (id e nome):
{{KNOWN}}

Tarefas:
1. Identifique cada crédito do extrato que corresponde a uma cobrança da lista.
2. Associe o pagador a um cliente cadastrado comparando nomes de forma semântica (abreviações, acentos, ordem dos sobrenomes, razão social). Use o id do cliente cadastrado.
3. Se um pagador da lista de cobrança não corresponder a nenhum cliente cadastrado, sugira um novo cliente em "novosClientes" com um id novo, o nome completo e "inicioCobranca" no formato YYYY-MM.
4. Para cada pagamento informe clienteId, mes (1-12) e ano da competência, valor numérico e dataPagamento no formato YYYY-MM-DD.
5. Não invente pagamentos: inclua apenas créditos presentes no extrato.

Responda somente com o JSON pedido.`

func buildPrompt(known []ledger.Client) (string, error) {
	data, err := json.Marshal(extract.Known(known))
	if err != nil {
		return "", errors.WrapParse("json", "", err)
	}
	return strings.Replace(promptTemplate, "{{KNOWN}}", string(data), 1), nil
}

func responseSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"pagamentos": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"clienteId":     {Type: genai.TypeString},
						"mes":           {Type: genai.TypeInteger},
						"ano":           {Type: genai.TypeInteger},
						"valor":         {Type: genai.TypeNumber},
						"dataPagamento": {Type: genai.TypeString},
					},
					Required: []string{"clienteId", "mes", "ano", "valor", "dataPagamento"},
				},
			},
			"novosClientes": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"id":             {Type: genai.TypeString},
						"nome":           {Type: genai.TypeString},
						"inicioCobranca": {Type: genai.TypeString},
					},
					Required: []string{"id", "nome", "inicioCobranca"},
				},
			},
		},
		Required: []string{"pagamentos", "novosClientes"},
	}
}
