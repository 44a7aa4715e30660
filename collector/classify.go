package collector

import "strings"

// TeamDefault is returned when no rule matches, including the empty input.
const TeamDefault = "COLABORADOR"

// teamRules is an ordered table: the first keyword hit wins, so the order is
// part of the contract. Do not sort or regroup it.
var teamRules = []struct {
	label    string
	keywords []string
}{
	{"DIRETORIA", []string{"diretoria", "diretor"}},
	{"GESTAO", []string{"gestores", "gerencia", "coordenacao"}},
	{"FINANCEIRO", []string{"financeiro", "contabil", "fiscal"}},
	{"RH", []string{"recursos humanos", "departamento pessoal"}},
	{"TI", []string{"tecnologia", "infraestrutura", "desenvolvimento"}},
	{"COMERCIAL", []string{"comercial", "vendas"}},
	{"OPERACOES", []string{"operacoes", "logistica"}},
	{"ESTAGIARIO", []string{"estagiario", "estagio"}},
	{"TERCEIRIZADO", []string{"terceirizado", "terceiros"}},
}

// Classify maps a user's raw group-name list to exactly one team label.
// Total and deterministic: every input, including nil, yields a label.
func Classify(groupNames []string) string {
	if len(groupNames) == 0 {
		return TeamDefault
	}

	haystack := strings.ToLower(strings.Join(groupNames, " "))
	for _, rule := range teamRules {
		for _, keyword := range rule.keywords {
			if strings.Contains(haystack, keyword) {
				return rule.label
			}
		}
	}
	return TeamDefault
}

// TeamLabels returns the closed label set, default included.
func TeamLabels() []string {
	labels := make([]string, 0, len(teamRules)+1)
	for _, rule := range teamRules {
		labels = append(labels, rule.label)
	}
	return append(labels, TeamDefault)
}
