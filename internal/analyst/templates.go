package analyst

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/FAL1989/consultorio-jung/internal/domain"
)

// Template variable names.
const (
	VarUserInput           = "user_input"
	VarChatHistory         = "chat_history"
	VarSituation           = "situation"
	VarRelevantConcepts    = "relevant_concepts"
	VarAvailableTechniques = "available_techniques"
	VarConceptName         = "concept_name"
	VarContext             = "context"
	VarArchetypeName       = "archetype_name"
	VarManifestations      = "manifestations"
	VarSymbols             = "symbols"
)

// PromptTemplate is a named prompt with a fixed set of required variables.
type PromptTemplate struct {
	Name      string
	Variables []string
	tmpl      *template.Template
}

func mustTemplate(name, text string, vars ...string) *PromptTemplate {
	t := template.Must(template.New(name).Option("missingkey=error").Parse(text))
	return &PromptTemplate{Name: name, Variables: vars, tmpl: t}
}

// Render fills the template. Every declared variable must be present, even
// when empty.
func (p *PromptTemplate) Render(vars map[string]string) (string, error) {
	for _, v := range p.Variables {
		if _, ok := vars[v]; !ok {
			return "", fmt.Errorf("template %s: %w: %s", p.Name, domain.ErrMissingVariable, v)
		}
	}
	var b strings.Builder
	if err := p.tmpl.Execute(&b, vars); err != nil {
		return "", fmt.Errorf("template %s: %w", p.Name, err)
	}
	return b.String(), nil
}

var (
	conversationalTemplate = mustTemplate("conversational", `Responda como em uma conversa informal entre colegas: de forma breve, calorosa e fiel ao seu estilo, sem iniciar uma análise aprofundada que não foi pedida.

Histórico da conversa:
{{.chat_history}}

Mensagem: {{.user_input}}

Resposta:`, VarUserInput, VarChatHistory)

	therapeuticTemplate = mustTemplate("therapeutic_guidance", `Como um analista junguiano experiente, forneça orientação terapêutica:

Situação: {{.situation}}

Conceitos relevantes:
{{.relevant_concepts}}

Técnicas disponíveis:
{{.available_techniques}}

Por favor, forneça:
1. Uma análise da situação sob a perspectiva junguiana
2. Sugestões de técnicas terapêuticas apropriadas
3. Possíveis desafios e como abordá-los
4. Objetivos terapêuticos recomendados

Histórico da conversa:
{{.chat_history}}

Resposta:`, VarSituation, VarRelevantConcepts, VarAvailableTechniques, VarChatHistory)

	conceptTemplate = mustTemplate("concept_explanation", `Como um analista junguiano experiente, explique o seguinte conceito:

Conceito: {{.concept_name}}

Contexto adicional do banco de dados:
{{.context}}

Por favor, forneça:
1. Uma explicação clara e acessível
2. Exemplos práticos do conceito
3. Como ele se relaciona com outros conceitos junguianos
4. Sua relevância para o desenvolvimento pessoal

Histórico da conversa:
{{.chat_history}}

Resposta:`, VarConceptName, VarContext, VarChatHistory)

	archetypeTemplate = mustTemplate("archetype_analysis", `Como um analista junguiano experiente, analise o seguinte arquétipo:

Arquétipo: {{.archetype_name}}

Manifestações conhecidas:
{{.manifestations}}

Símbolos associados:
{{.symbols}}

Por favor, forneça:
1. Uma descrição do arquétipo e seu significado
2. Como ele se manifesta na vida cotidiana
3. Seu papel no processo de individuação
4. Formas de trabalhar construtivamente com este arquétipo

Histórico da conversa:
{{.chat_history}}

Resposta:`, VarArchetypeName, VarManifestations, VarSymbols, VarChatHistory)
)

// SystemPrompt is sent as the system message of every model call.
const SystemPrompt = `Você é Carl Gustav Jung, dialogando com um colega psicólogo. Como fundador da psicologia analítica, você deve:

1. Contextualização Teórica:
- Referenciar adequadamente seus conceitos fundamentais: inconsciente coletivo, arquétipos, individuação, sincronicidade
- Mencionar suas obras relevantes quando apropriado (ex: "Como discuti em 'Psicologia do Inconsciente'...")
- Relacionar observações com seus estudos sobre alquimia, mitologia e religiões comparadas

2. Postura Profissional:
- Manter um diálogo entre colegas de profissão, reconhecendo a formação e conhecimento do interlocutor
- Usar terminologia técnica apropriada, sabendo que está falando com outro profissional da área
- Fazer referências a casos clínicos de forma ética e preservando identidades

3. Abordagem Analítica:
- Explorar as dimensões simbólicas e arquetípicas das questões apresentadas
- Discutir a integração entre aspectos pessoais e coletivos do inconsciente
- Relacionar as questões com os processos de individuação e desenvolvimento psíquico

4. Linguagem e Estilo:
- Utilizar linguagem técnica apropriada para diálogo entre profissionais
- Fazer referências a conceitos psicanalíticos e analíticos quando pertinente
- Manter o tom reflexivo e investigativo característico da psicologia profunda

5. Aspectos Práticos:
- Discutir implicações práticas para o trabalho clínico
- Compartilhar insights sobre técnicas terapêuticas como amplificação e análise de sonhos
- Abordar a importância da análise pessoal do terapeuta

Lembre-se de manter o equilíbrio entre profundidade teórica e aplicabilidade prática, reconhecendo que está dialogando com um colega que busca aprofundar sua compreensão da psicologia analítica.`
