package httpapi_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/timgst1/policyd/internal/authn"
	"github.com/timgst1/policyd/internal/authz"
	"github.com/timgst1/policyd/internal/events"
	"github.com/timgst1/policyd/internal/httpapi"
	"github.com/timgst1/policyd/internal/rbac"
	"github.com/timgst1/policyd/internal/services/attributes"
	"github.com/timgst1/policyd/internal/services/kasregistry"
	"github.com/timgst1/policyd/internal/services/namespaces"
	"github.com/timgst1/policyd/internal/services/servicetest"
	"github.com/timgst1/policyd/internal/services/subjectmapping"
	"github.com/timgst1/policyd/internal/wellknown"
)

const (
	adminToken  = "admin-token"
	viewerToken = "viewer-token"
)

type staticDocumentSource struct{ doc *rbac.Document }

func (s staticDocumentSource) Current() (*rbac.Document, bool) {
	if s.doc == nil {
		return nil, false
	}
	return s.doc, true
}

func writeTempTokenFile(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "tokens")
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write token file: %v", err)
	}
	return p
}

// docAdminAndViewer gives "admin" everything under policy/ and "viewer"
// read access to namespaces only.
func docAdminAndViewer() *rbac.Document {
	subject := func(name string) rbac.Subject {
		var s rbac.Subject
		s.Name = name
		s.Match.Kind = "bearer"
		s.Match.Name = name
		return s
	}
	return &rbac.Document{
		APIVersion: rbac.APIVersion,
		Kind:       rbac.Kind,
		Subjects:   []rbac.Subject{subject("admin"), subject("viewer")},
		Roles: []rbac.Role{
			{Name: "policy-admin", Permissions: []rbac.Permission{{Action: "*", KeyPrefix: "policy/"}}},
			{Name: "namespace-reader", Permissions: []rbac.Permission{
				{Action: authz.ActionRead, KeyExact: authz.ResourceNamespaces},
				{Action: authz.ActionList, KeyExact: authz.ResourceNamespaces},
			}},
		},
		Bindings: []rbac.Binding{
			{Subject: "admin", Roles: []string{"policy-admin"}},
			{Subject: "viewer", Roles: []string{"namespace-reader"}},
		},
	}
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	bearer, err := authn.NewBearerFromFile(writeTempTokenFile(t, "admin="+adminToken+"\nviewer="+viewerToken+"\n"))
	if err != nil {
		t.Fatalf("NewBearerFromFile: %v", err)
	}

	log := servicetest.Logger()
	client := servicetest.NewClient(t)
	em := events.NewEmitter(nil, log)

	reg := wellknown.NewRegistry()
	if err := reg.Register("platform_issuer", "https://idp.example.com"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	h := httpapi.NewRouter(httpapi.Deps{
		Logger:           log,
		Authenticator:    bearer,
		Authorizer:       authz.NewRuntimeAuthorizer(staticDocumentSource{doc: docAdminAndViewer()}),
		Namespaces:       namespaces.NewService(client, em, log),
		Attributes:       attributes.NewService(client, em, log),
		KeyAccessServers: kasregistry.NewService(client, em, log),
		SubjectMappings:  subjectmapping.NewService(client, em, log),
		WellKnown:        reg,
	})
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, r)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		b, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected %d, got %d: %s", want, resp.StatusCode, b)
	}
}

func decode(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func createNamespace(t *testing.T, srv *httptest.Server, name string) string {
	t.Helper()
	resp := do(t, http.MethodPost, srv.URL+"/v1/namespaces", adminToken, map[string]any{"name": name})
	expectStatus(t, resp, http.StatusCreated)
	var out namespaces.CreateNamespaceResponse
	decode(t, resp, &out)
	if out.Namespace == nil || out.Namespace.ID == "" {
		t.Fatalf("expected namespace id in response")
	}
	return out.Namespace.ID
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)
	expectStatus(t, do(t, http.MethodGet, srv.URL+"/healthz", "", nil), http.StatusOK)
	expectStatus(t, do(t, http.MethodGet, srv.URL+"/readyz", "", nil), http.StatusOK)
}

func TestV1_UnauthorizedWithoutHeader(t *testing.T) {
	srv := newTestServer(t)
	resp := do(t, http.MethodGet, srv.URL+"/v1/namespaces", "", nil)
	expectStatus(t, resp, http.StatusUnauthorized)
	if resp.Header.Get("WWW-Authenticate") != "Bearer" {
		t.Fatalf("expected WWW-Authenticate challenge")
	}
}

func TestV1_UnauthorizedWithUnknownToken(t *testing.T) {
	srv := newTestServer(t)
	expectStatus(t, do(t, http.MethodGet, srv.URL+"/v1/namespaces", "nope", nil), http.StatusUnauthorized)
}

func TestV1Namespaces_ForbiddenWhenPolicyDeniesWrite(t *testing.T) {
	srv := newTestServer(t)
	resp := do(t, http.MethodPost, srv.URL+"/v1/namespaces", viewerToken, map[string]any{"name": "example.com"})
	expectStatus(t, resp, http.StatusForbidden)
}

func TestV1Namespaces_CreateThenReadAsViewer(t *testing.T) {
	srv := newTestServer(t)
	id := createNamespace(t, srv, "Example.com")

	resp := do(t, http.MethodGet, srv.URL+"/v1/namespaces/"+id, viewerToken, nil)
	expectStatus(t, resp, http.StatusOK)
	var got namespaces.GetNamespaceResponse
	decode(t, resp, &got)
	if got.Namespace.Name != "example.com" {
		t.Fatalf("expected name=example.com, got %q", got.Namespace.Name)
	}
	if got.Namespace.FQN != "https://example.com" {
		t.Fatalf("expected fqn=https://example.com, got %q", got.Namespace.FQN)
	}

	resp = do(t, http.MethodGet, srv.URL+"/v1/namespaces?limit=10", viewerToken, nil)
	expectStatus(t, resp, http.StatusOK)
	var list namespaces.ListNamespacesResponse
	decode(t, resp, &list)
	if len(list.Namespaces) != 1 {
		t.Fatalf("expected 1 namespace, got %d", len(list.Namespaces))
	}
}

func TestV1Namespaces_DuplicateIsConflict(t *testing.T) {
	srv := newTestServer(t)
	createNamespace(t, srv, "example.com")

	resp := do(t, http.MethodPost, srv.URL+"/v1/namespaces", adminToken, map[string]any{"name": "example.com"})
	expectStatus(t, resp, http.StatusConflict)
}

func TestV1Namespaces_NotFound(t *testing.T) {
	srv := newTestServer(t)
	resp := do(t, http.MethodGet, srv.URL+"/v1/namespaces/does-not-exist", viewerToken, nil)
	expectStatus(t, resp, http.StatusNotFound)

	var body struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	decode(t, resp, &body)
	if body.Code != "NotFound" {
		t.Fatalf("expected code NotFound, got %q", body.Code)
	}
}

func TestV1Namespaces_BadPagination(t *testing.T) {
	srv := newTestServer(t)
	resp := do(t, http.MethodGet, srv.URL+"/v1/namespaces?limit=abc", viewerToken, nil)
	expectStatus(t, resp, http.StatusBadRequest)
}

func TestV1Attributes_ViewerCannotList(t *testing.T) {
	srv := newTestServer(t)
	expectStatus(t, do(t, http.MethodGet, srv.URL+"/v1/attributes", viewerToken, nil), http.StatusForbidden)
}

func TestV1Attributes_CreateAndResolveByFqn(t *testing.T) {
	srv := newTestServer(t)
	nsID := createNamespace(t, srv, "example.com")

	resp := do(t, http.MethodPost, srv.URL+"/v1/attributes", adminToken, map[string]any{
		"namespace_id": nsID,
		"name":         "classification",
		"rule":         "HIERARCHY",
		"values":       []string{"top", "secret", "public"},
	})
	expectStatus(t, resp, http.StatusCreated)
	var created attributes.CreateAttributeResponse
	decode(t, resp, &created)
	if len(created.Attribute.Values) != 3 {
		t.Fatalf("expected 3 values, got %d", len(created.Attribute.Values))
	}

	fqn := "https://example.com/attr/classification/value/secret"
	resp = do(t, http.MethodGet, srv.URL+"/v1/fqns?fqn="+fqn, adminToken, nil)
	expectStatus(t, resp, http.StatusOK)
	var byFqn attributes.GetAttributeValuesByFqnsResponse
	decode(t, resp, &byFqn)
	got, ok := byFqn.FqnAttributeValues[fqn]
	if !ok || got.Value == nil || got.Value.Value != "secret" {
		t.Fatalf("expected %s to resolve, got %+v", fqn, byFqn.FqnAttributeValues)
	}

	resp = do(t, http.MethodGet, srv.URL+"/v1/attributes/"+created.Attribute.ID+"/values", adminToken, nil)
	expectStatus(t, resp, http.StatusOK)
	var values attributes.ListAttributeValuesResponse
	decode(t, resp, &values)
	if len(values.Values) != 3 || values.Values[0].Value != "top" {
		t.Fatalf("expected values in definition order, got %+v", values.Values)
	}
}

func TestV1Entitlements(t *testing.T) {
	srv := newTestServer(t)
	nsID := createNamespace(t, srv, "example.com")

	resp := do(t, http.MethodPost, srv.URL+"/v1/attributes", adminToken, map[string]any{
		"namespace_id": nsID,
		"name":         "department",
		"rule":         "ANY_OF",
		"values":       []string{"eng"},
	})
	expectStatus(t, resp, http.StatusCreated)
	var attr attributes.CreateAttributeResponse
	decode(t, resp, &attr)

	resp = do(t, http.MethodPost, srv.URL+"/v1/subject-mappings", adminToken, map[string]any{
		"attribute_value_id": attr.Attribute.Values[0].ID,
		"actions":            []map[string]any{{"standard": "DECRYPT"}},
		"new_subject_condition_set": map[string]any{
			"subject_sets": []map[string]any{{
				"condition_groups": []map[string]any{{
					"boolean_operator": "AND",
					"conditions": []map[string]any{{
						"subject_external_selector_value": ".department",
						"operator":                        "IN",
						"subject_external_values":         []string{"engineering"},
					}},
				}},
			}},
		},
	})
	expectStatus(t, resp, http.StatusCreated)

	resp = do(t, http.MethodPost, srv.URL+"/v1/entitlements", adminToken, map[string]any{
		"entity": map[string]any{"department": "engineering"},
	})
	expectStatus(t, resp, http.StatusOK)
	var ent subjectmapping.ResolveEntitlementsResponse
	decode(t, resp, &ent)
	if len(ent.Entitlements) != 1 || ent.Entitlements[0].AttributeValueFqn != "https://example.com/attr/department/value/eng" {
		t.Fatalf("unexpected entitlements %+v", ent.Entitlements)
	}
}

func TestWellKnown_ETag(t *testing.T) {
	srv := newTestServer(t)

	resp := do(t, http.MethodGet, srv.URL+"/.well-known/policy-configuration", "", nil)
	expectStatus(t, resp, http.StatusOK)
	etag := resp.Header.Get("ETag")
	if etag == "" {
		t.Fatalf("expected ETag header")
	}
	var body struct {
		Configuration map[string]any `json:"configuration"`
	}
	decode(t, resp, &body)
	if body.Configuration["platform_issuer"] != "https://idp.example.com" {
		t.Fatalf("unexpected configuration %+v", body.Configuration)
	}

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/.well-known/policy-configuration", nil)
	req.Header.Set("If-None-Match", etag)
	resp2, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusNotModified {
		t.Fatalf("expected %d, got %d", http.StatusNotModified, resp2.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	createNamespace(t, srv, "example.com")

	resp := do(t, http.MethodGet, srv.URL+"/metrics", "", nil)
	expectStatus(t, resp, http.StatusOK)
	b, _ := io.ReadAll(resp.Body)
	if !bytes.Contains(b, []byte("policyd_rpc_requests_total")) {
		t.Fatalf("expected rpc request counter in metrics output")
	}
}
