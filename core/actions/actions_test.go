package actions

import (
	"context"
	"testing"
)

func TestRegisterAndCall(t *testing.T) {
	r := New()
	r.Register("ecoar", Definition{
		Handler: func(ctx context.Context, req Request) (map[string]any, error) {
			return map[string]any{"modelo": req.Model}, nil
		},
	})

	if !r.Has("ecoar") {
		t.Error("Has(ecoar) = false")
	}

	out, err := r.Call(context.Background(), "ecoar", Request{Model: "pnp.aluno"})
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if out["modelo"] != "pnp.aluno" {
		t.Errorf("modelo = %v, want pnp.aluno", out["modelo"])
	}
}

func TestCallUnregistered(t *testing.T) {
	r := New()
	if _, err := r.Call(context.Background(), "nada", Request{}); err == nil {
		t.Error("expected error for unregistered handler")
	}
}

func TestBuiltinSoma(t *testing.T) {
	r := Builtin()

	out, err := r.Call(context.Background(), "realizar_soma", Request{
		Input: map[string]any{"a": float64(2), "b": float64(3)},
	})
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if out["soma"] != int64(5) {
		t.Errorf("soma = %v, want 5", out["soma"])
	}
}

func TestBuiltinSubtracao(t *testing.T) {
	r := Builtin()

	out, err := r.Call(context.Background(), "realizar_subtracao", Request{
		Input: map[string]any{"a": 10, "b": 4},
	})
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if out["subtracao"] != int64(6) {
		t.Errorf("subtracao = %v, want 6", out["subtracao"])
	}
}

func TestBuiltinSomaMissingInput(t *testing.T) {
	r := Builtin()

	if _, err := r.Call(context.Background(), "realizar_soma", Request{
		Input: map[string]any{"a": 1},
	}); err == nil {
		t.Error("expected error for missing operand")
	}

	if _, err := r.Call(context.Background(), "realizar_soma", Request{
		Input: map[string]any{"a": 1.5, "b": 2},
	}); err == nil {
		t.Error("expected error for fractional operand")
	}
}

func TestBuiltinExibir(t *testing.T) {
	r := Builtin()

	alertas, err := r.Call(context.Background(), "exibir_alertas", Request{})
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if alertas["a"] != 1 {
		t.Errorf("alertas = %v, want {a: 1}", alertas)
	}

	cartoes, err := r.Call(context.Background(), "exibir_cartoes", Request{})
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if cartoes["b"] != 2 {
		t.Errorf("cartoes = %v, want {b: 2}", cartoes)
	}
}

func TestTemplate(t *testing.T) {
	r := Builtin()

	tmpl, ok := r.Template("realizar_soma")
	if !ok {
		t.Fatal("Template(realizar_soma) not found")
	}
	if tmpl["u"] != 1 {
		t.Errorf("template u = %v, want 1", tmpl["u"])
	}

	if _, ok := r.Template("nada"); ok {
		t.Error("Template(nada) should not be found")
	}
}

func TestListSorted(t *testing.T) {
	names := Builtin().List()
	want := []string{"exibir_alertas", "exibir_cartoes", "realizar_soma", "realizar_subtracao"}
	if len(names) != len(want) {
		t.Fatalf("List = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("List[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}
