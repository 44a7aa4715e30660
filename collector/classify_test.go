package collector

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		groups []string
		want   string
	}{
		{"empty input", nil, TeamDefault},
		{"no match", []string{"Cafeteria", "Social Club"}, TeamDefault},
		{"single keyword", []string{"GRP_Financeiro"}, "FINANCEIRO"},
		{"case insensitive", []string{"DIRETORIA EXECUTIVA"}, "DIRETORIA"},
		{"keyword inside larger name", []string{"Equipe Desenvolvimento Backend"}, "TI"},
		{"two word keyword", []string{"Recursos Humanos"}, "RH"},
		{"diretoria beats gestao", []string{"Gestores", "Diretoria"}, "DIRETORIA"},
		{"gestao beats financeiro", []string{"Financeiro", "Coordenacao"}, "GESTAO"},
		{"estagiario after operations", []string{"Estagiario Logistica"}, "OPERACOES"},
		{"terceirizado alone", []string{"Terceirizados Portaria"}, "TERCEIRIZADO"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.groups); got != tt.want {
				t.Errorf("Classify(%v) = %q, want %q", tt.groups, got, tt.want)
			}
		})
	}
}

func TestClassifyDeterministic(t *testing.T) {
	groups := []string{"Vendas Sul", "Gerencia Comercial", "Estagio"}
	first := Classify(groups)
	for i := 0; i < 10; i++ {
		if got := Classify(groups); got != first {
			t.Fatalf("Classify not deterministic: got %q then %q", first, got)
		}
	}
}

func TestTeamLabelsClosedSet(t *testing.T) {
	labels := TeamLabels()
	seen := make(map[string]bool, len(labels))
	for _, label := range labels {
		if seen[label] {
			t.Fatalf("duplicate label %q", label)
		}
		seen[label] = true
	}
	if !seen[TeamDefault] {
		t.Fatalf("label set must include the default %q", TeamDefault)
	}
}
