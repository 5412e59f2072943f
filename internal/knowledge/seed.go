package knowledge

// Seed registers the built-in concepts, archetypes and processes.
func Seed(s *Store) {
	for _, c := range seedConcepts {
		s.AddConcept(c)
	}
	for _, a := range seedArchetypes {
		s.AddArchetype(a)
	}
	for _, p := range seedProcesses {
		s.AddProcess(p)
	}
}

// NewSeededStore returns a store preloaded with Seed.
func NewSeededStore(searcher Searcher) *Store {
	s := NewStore(searcher)
	Seed(s)
	return s
}

var seedConcepts = []Concept{
	{
		Name:            "Individuação",
		Description:     "Processo de desenvolvimento psicológico que leva à realização do Self",
		Category:        "Processo Psicológico",
		RelatedConcepts: []string{"Self", "Sombra", "Persona"},
		Examples: []string{
			"Reconhecimento e integração da Sombra",
			"Desenvolvimento da personalidade autêntica",
			"Reconciliação de opostos psíquicos",
		},
		References: []string{"O Eu e o Inconsciente", "Psicologia e Alquimia"},
		Metadata:   map[string]string{"importance": "fundamental", "complexity": "alta"},
	},
	{
		Name:            "Inconsciente Coletivo",
		Description:     "Camada profunda da psique, comum a toda a humanidade, que contém os arquétipos",
		Category:        "Estrutura Psíquica",
		RelatedConcepts: []string{"Arquétipos", "Self"},
		Examples: []string{
			"Motivos mitológicos recorrentes em culturas distintas",
			"Imagens arquetípicas em sonhos",
		},
		References: []string{"Os Arquétipos e o Inconsciente Coletivo"},
		Metadata:   map[string]string{"importance": "fundamental", "complexity": "alta"},
	},
	{
		Name:            "Self",
		Description:     "Arquétipo da totalidade e centro regulador da psique",
		Category:        "Estrutura Psíquica",
		RelatedConcepts: []string{"Individuação", "Inconsciente Coletivo"},
		Examples:        []string{"Mandalas", "Imagens de unidade em sonhos"},
		References:      []string{"Aion", "Psicologia e Alquimia"},
		Metadata:        map[string]string{"importance": "fundamental", "complexity": "alta"},
	},
	{
		Name:            "Persona",
		Description:     "Máscara social que o indivíduo apresenta ao mundo",
		Category:        "Estrutura Psíquica",
		RelatedConcepts: []string{"Sombra", "Individuação"},
		Examples:        []string{"Identificação excessiva com o papel profissional"},
		References:      []string{"O Eu e o Inconsciente"},
		Metadata:        map[string]string{"importance": "alta", "complexity": "média"},
	},
}

var seedArchetypes = []Archetype{
	{
		Concept: Concept{
			Name:            "Sombra",
			Description:     "Aspectos reprimidos ou negados da personalidade",
			Category:        "Arquétipo",
			RelatedConcepts: []string{"Persona", "Individuação", "Inconsciente Coletivo"},
			References:      []string{"Aion", "O Eu e o Inconsciente"},
		},
		Symbols:               []string{"Escuridão", "Figuras Sombrias", "Caverna"},
		Manifestations:        []string{"Comportamentos compensatórios", "Projeções negativas", "Complexos psicológicos"},
		PsychologicalFunction: "Integração de aspectos negados da personalidade",
	},
	{
		Concept: Concept{
			Name:            "Anima/Animus",
			Description:     "Imagem contrassexual da psique que faz a ponte com o inconsciente",
			Category:        "Arquétipo",
			RelatedConcepts: []string{"Sombra", "Self"},
			References:      []string{"Aion"},
		},
		Symbols:               []string{"Figura feminina ou masculina desconhecida", "Sereia", "Guia"},
		Manifestations:        []string{"Projeções amorosas", "Humores e opiniões autônomas"},
		PsychologicalFunction: "Mediação entre o ego e o inconsciente",
	},
}

var seedProcesses = []TherapeuticProcess{
	{
		Name:        "Análise de Sonhos",
		Description: "Trabalho interpretativo com o material onírico",
		Stages:      []string{"Registro do sonho", "Associações pessoais", "Amplificação", "Integração"},
		Techniques:  []string{"Amplificação", "Associação livre dirigida", "Diário de sonhos"},
		Indications: []string{"Sonhos recorrentes", "Crises de sentido"},
		ExpectedOutcomes: []string{
			"Compreensão das mensagens do inconsciente",
		},
	},
	{
		Name:              "Imaginação Ativa",
		Description:       "Diálogo consciente com imagens do inconsciente",
		Stages:            []string{"Esvaziamento da mente", "Emergência da imagem", "Diálogo", "Avaliação ética"},
		Techniques:        []string{"Amplificação", "Diálogo com figuras internas", "Expressão artística"},
		Indications:       []string{"Bloqueios criativos", "Conflitos internos"},
		Contraindications: []string{"Ego fragilizado", "Quadros psicóticos"},
		ExpectedOutcomes:  []string{"Integração de conteúdos inconscientes"},
	},
}
