package models

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestLeadFillDefaults(t *testing.T) {
	l := Lead{Nome: "Maria Silva", Email: "maria@ex.com"}
	l.FillDefaults()

	if l.Nome != "Maria Silva" {
		t.Errorf("expected Nome preserved, got %q", l.Nome)
	}
	if l.Email != "maria@ex.com" {
		t.Errorf("expected Email preserved, got %q", l.Email)
	}
	if l.Telefone != NotProvided {
		t.Errorf("expected Telefone sentinel, got %q", l.Telefone)
	}
	if l.Interesse != NotProvided {
		t.Errorf("expected Interesse sentinel, got %q", l.Interesse)
	}
}

func TestLeadJSONKeys(t *testing.T) {
	// Extraction replies use the Portuguese field names as JSON keys.
	raw := `{"Nome":"Maria Silva","Email":"maria@ex.com","Telefone":"11999990000","Interesse":"Automação"}`
	var l Lead
	if err := json.Unmarshal([]byte(raw), &l); err != nil {
		t.Fatalf("unexpected unmarshal error: %v", err)
	}
	if l.Nome != "Maria Silva" || l.Interesse != "Automação" {
		t.Errorf("unexpected lead: %+v", l)
	}

	l.Classificacao = ClassificationHot
	out, err := json.Marshal(l)
	if err != nil {
		t.Fatalf("unexpected marshal error: %v", err)
	}
	if want := `"Classificação":"Lead Quente"`; !strings.Contains(string(out), want) {
		t.Errorf("expected serialized lead to contain %s, got %s", want, out)
	}
}

func TestIsCanonicalClassification(t *testing.T) {
	for _, label := range []string{ClassificationHot, ClassificationWarm, ClassificationCold} {
		if !IsCanonicalClassification(label) {
			t.Errorf("expected %q to be canonical", label)
		}
	}
	if IsCanonicalClassification(ClassificationError) {
		t.Error("error sentinel must not be canonical")
	}
	if IsCanonicalClassification("Lead Excelente") {
		t.Error("out-of-vocabulary label must not be canonical")
	}
}
