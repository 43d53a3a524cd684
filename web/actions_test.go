package web_test

import (
	"net/http"
	"testing"
)

func TestListActionTemplate(t *testing.T) {
	srv := newServer(t)

	tmpl := getJSON(t, srv, "/users/somar/", http.StatusOK)
	if tmpl["u"] != float64(1) {
		t.Errorf("template u = %v, want 1", tmpl["u"])
	}
	if _, ok := tmpl["a"]; !ok {
		t.Error("template should list the a operand")
	}
}

func TestListActionDispatch(t *testing.T) {
	srv := newServer(t)

	result := doJSON(t, srv, http.MethodPost, "/users/somar/",
		`{"a": 2, "b": 3}`, http.StatusOK)
	if result["soma"] != float64(5) {
		t.Errorf("soma = %v, want 5", result["soma"])
	}

	result = doJSON(t, srv, http.MethodPost, "/users/alertas/", `{}`, http.StatusOK)
	if result["a"] != float64(1) {
		t.Errorf("alertas a = %v, want 1", result["a"])
	}
}

func TestListActionBadInput(t *testing.T) {
	srv := newServer(t)

	doJSON(t, srv, http.MethodPost, "/users/somar/", `{"a": 2}`, http.StatusBadRequest)
	doJSON(t, srv, http.MethodPost, "/users/somar/", `{"a": 1.5, "b": 1}`, http.StatusBadRequest)
}

func TestDetailActionDispatch(t *testing.T) {
	srv := newServer(t)

	result := doJSON(t, srv, http.MethodPost, "/users/u1/subtrair/",
		`{"a": 9, "b": 4}`, http.StatusOK)
	if result["subtracao"] != float64(5) {
		t.Errorf("subtracao = %v, want 5", result["subtracao"])
	}

	result = doJSON(t, srv, http.MethodPost, "/users/u1/cartoes/", `{}`, http.StatusOK)
	if result["b"] != float64(2) {
		t.Errorf("cartoes b = %v, want 2", result["b"])
	}
}

func TestDetailActionMissingRecord(t *testing.T) {
	srv := newServer(t)

	doJSON(t, srv, http.MethodPost, "/users/missing/cartoes/", `{}`, http.StatusNotFound)
}

func TestActionChoicesLookup(t *testing.T) {
	srv := newServer(t)

	paths := []string{
		"/users/somar/?choices_field=groups",
		"/users/u1/subtrair/?choices_field=groups",
	}
	for _, path := range paths {
		resp, err := http.Post(srv.URL+path, "application/json", nil)
		if err != nil {
			t.Fatalf("POST %s: %v", path, err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			t.Fatalf("POST %s status = %d", path, resp.StatusCode)
		}

		var choices []map[string]any
		err = decodeInto(resp, &choices)
		resp.Body.Close()
		if err != nil {
			t.Fatalf("decode choices for %s: %v", path, err)
		}
		if len(choices) != 2 {
			t.Errorf("%s: len(choices) = %d, want 2 distinct groups", path, len(choices))
		}
	}
}

func TestActionNotDeclared(t *testing.T) {
	srv := newServer(t)

	// groups declares no actions, so the path falls through to the
	// record route, which takes no POST
	resp, err := http.Post(srv.URL+"/groups/somar/", "application/json", nil)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("undeclared action status = %d, want 405", resp.StatusCode)
	}
}
