package web_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/pnpstats/adminapi/adapters/memory"
	"github.com/pnpstats/adminapi/adapters/metrics"
	"github.com/pnpstats/adminapi/core/actions"
	"github.com/pnpstats/adminapi/core/registry"
	"github.com/pnpstats/adminapi/core/schema"
	"github.com/pnpstats/adminapi/web"
)

const testDoc = `
models:
  auth.user:
    prefix: users
    search: [username, groups__name]
    filters: [is_active, groups]
    ordering: [username]
    list:
      fields: [id, username, email]
      actions:
        somar: realizar_soma
        alertas: exibir_alertas
    view:
      fields: [id, username, email, is_active, groups]
      actions:
        subtrair: realizar_subtracao
        cartoes: exibir_cartoes
  auth.group:
    prefix: groups
    view:
      fields: [id, name]
  pnp.aluno:
    prefix: alunos
    fieldsets:
      identificacao: [nome, matricula]
      vinculo: [curso, situacao]
`

// newServer builds a router over a seeded in-memory store.
func newServer(t *testing.T) *httptest.Server {
	t.Helper()

	doc, err := schema.Parse([]byte(testDoc))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	reg, err := registry.FromDocument(doc)
	if err != nil {
		t.Fatalf("FromDocument error: %v", err)
	}

	store := memory.NewStore()
	ctx := context.Background()
	for _, entry := range reg.List() {
		if err := store.EnsureModel(ctx, entry.Key); err != nil {
			t.Fatalf("EnsureModel(%s): %v", entry.Key, err)
		}
	}

	seed := []map[string]any{
		{"id": "u1", "username": "ana.silva", "email": "ana@pnp.dev", "is_active": true,
			"groups": []any{map[string]any{"id": 1, "name": "gestores"}}},
		{"id": "u2", "username": "bruno.costa", "email": "bruno@pnp.dev", "is_active": true,
			"groups": []any{map[string]any{"id": 2, "name": "analistas"}}},
		{"id": "u3", "username": "carla.melo", "email": "carla@pnp.dev", "is_active": false,
			"groups": []any{map[string]any{"id": 1, "name": "gestores"}}},
	}
	for _, rec := range seed {
		if _, err := store.Create(ctx, "auth.user", rec); err != nil {
			t.Fatalf("seed user: %v", err)
		}
	}
	if _, err := store.Create(ctx, "pnp.aluno", map[string]any{
		"id": "a1", "nome": "Diego Ramos", "matricula": "2023001",
		"curso": map[string]any{"id": 9, "nome": "Edificacoes"}, "situacao": "matriculado",
	}); err != nil {
		t.Fatalf("seed aluno: %v", err)
	}

	api := web.NewAPI(reg, store, actions.Builtin(), zerolog.Nop())
	router := web.NewRouter(api, zerolog.Nop(), web.RouterConfig{EnableOpenAPI: true})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, srv *httptest.Server, path string, wantStatus int) map[string]any {
	t.Helper()

	resp, err := http.Get(srv.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		t.Fatalf("GET %s status = %d, want %d", path, resp.StatusCode, wantStatus)
	}

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return body
}

func doJSON(t *testing.T, srv *httptest.Server, method, path, body string, wantStatus int) map[string]any {
	t.Helper()

	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		t.Fatalf("%s %s status = %d, want %d", method, path, resp.StatusCode, wantStatus)
	}
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return decoded
}

func decodeInto(resp *http.Response, v any) error {
	return json.NewDecoder(resp.Body).Decode(v)
}

func results(t *testing.T, body map[string]any) []any {
	t.Helper()
	list, ok := body["results"].([]any)
	if !ok {
		t.Fatalf("results missing from envelope: %v", body)
	}
	return list
}

func TestHealthAndVersion(t *testing.T) {
	srv := newServer(t)

	body := getJSON(t, srv, "/health", http.StatusOK)
	if body["status"] != "ok" {
		t.Errorf("health status = %v, want ok", body["status"])
	}

	body = getJSON(t, srv, "/version", http.StatusOK)
	if body["version"] == "" {
		t.Error("version should not be empty")
	}
}

func TestOpenAPIEndpoint(t *testing.T) {
	srv := newServer(t)

	body := getJSON(t, srv, "/openapi.json", http.StatusOK)
	if body["openapi"] != "3.0.3" {
		t.Errorf("openapi = %v, want 3.0.3", body["openapi"])
	}

	paths, ok := body["paths"].(map[string]any)
	if !ok {
		t.Fatal("paths missing from spec")
	}
	if _, ok := paths["/users/"]; !ok {
		t.Error("/users/ missing from generated spec")
	}
	if _, ok := paths["/alunos/{id}/"]; !ok {
		t.Error("/alunos/{id}/ missing from generated spec")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	doc, err := schema.Parse([]byte(testDoc))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	reg, err := registry.FromDocument(doc)
	if err != nil {
		t.Fatalf("FromDocument error: %v", err)
	}

	store := memory.NewStore()
	store.EnsureModel(context.Background(), "auth.user")

	preg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(preg)
	api := web.NewAPI(reg, store, actions.Builtin(), zerolog.Nop())
	api.SetMetrics(m)
	router := web.NewRouter(api, zerolog.Nop(), web.RouterConfig{Metrics: m})

	srv := httptest.NewServer(router)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/users/")
	if err != nil {
		t.Fatalf("GET /users/: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /users/ status = %d", resp.StatusCode)
	}

	families, err := preg.Gather()
	if err != nil {
		t.Fatalf("Gather error: %v", err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "pnpadmin_requests_total" {
			found = true
		}
	}
	if !found {
		t.Error("pnpadmin_requests_total not recorded after request")
	}
}

func TestUnknownModelRoutes(t *testing.T) {
	srv := newServer(t)

	resp, err := http.Get(srv.URL + "/turmas/")
	if err != nil {
		t.Fatalf("GET /turmas/: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown prefix status = %d, want 404", resp.StatusCode)
	}
}
