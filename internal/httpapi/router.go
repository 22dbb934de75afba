package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/timgst1/policyd/internal/authn"
	"github.com/timgst1/policyd/internal/authz"
	"github.com/timgst1/policyd/internal/httpapi/handlers"
	"github.com/timgst1/policyd/internal/httpapi/middleware"
	"github.com/timgst1/policyd/internal/policy"
	"github.com/timgst1/policyd/internal/rpc"
	"github.com/timgst1/policyd/internal/services/attributes"
	"github.com/timgst1/policyd/internal/services/kasregistry"
	"github.com/timgst1/policyd/internal/services/namespaces"
	"github.com/timgst1/policyd/internal/services/subjectmapping"
	"github.com/timgst1/policyd/internal/wellknown"
)

type Deps struct {
	Logger        *slog.Logger
	Authenticator authn.Authenticator
	Authorizer    authz.Authorizer

	Namespaces       namespaces.NamespaceServiceServer
	Attributes       attributes.AttributesServiceServer
	KeyAccessServers kasregistry.KeyAccessServerRegistryServiceServer
	SubjectMappings  subjectmapping.SubjectMappingServiceServer
	WellKnown        *wellknown.Registry

	// Ready backs /readyz; nil means always ready.
	Ready func(ctx context.Context) error
}

// Rules is the access table shared with the gRPC server.
func Rules() rpc.Rules {
	return rpc.Merge(namespaces.Rules, attributes.Rules, kasregistry.Rules, subjectmapping.Rules)
}

func NewRouter(deps Deps) http.Handler {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	if deps.Authorizer == nil {
		deps.Authorizer = authz.AllowAll{}
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.AccessLog(log))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if deps.Ready != nil {
			if err := deps.Ready(r.Context()); err != nil {
				log.Warn("not ready", "err", err)
				http.Error(w, "not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(200)
		w.Write([]byte("ready"))
	})
	r.Handle("/metrics", promhttp.Handler())
	if deps.WellKnown != nil {
		r.Method(http.MethodGet, "/.well-known/policy-configuration", handlers.WellKnown{Registry: deps.WellKnown, Log: log})
	}

	rt := &routes{az: deps.Authorizer, rules: Rules()}
	r.Route("/v1", func(v1 chi.Router) {
		v1.Use(middleware.RequireAuth(deps.Authenticator))
		rt.r = v1
		if deps.Namespaces != nil {
			namespaceRoutes(rt, log, deps.Namespaces)
		}
		if deps.Attributes != nil {
			attributeRoutes(rt, log, deps.Attributes)
		}
		if deps.KeyAccessServers != nil {
			kasRoutes(rt, log, deps.KeyAccessServers)
		}
		if deps.SubjectMappings != nil {
			subjectMappingRoutes(rt, log, deps.SubjectMappings)
		}
	})

	return r
}

type routes struct {
	r     chi.Router
	az    authz.Authorizer
	rules rpc.Rules
}

// add mounts h behind the access rule of the RPC method it serves.
func (rt *routes) add(httpMethod, pattern, rpcMethod string, h http.HandlerFunc) {
	rt.r.With(middleware.Authorize(rt.az, rt.rules[rpcMethod])).Method(httpMethod, pattern, h)
}

func namespaceRoutes(rt *routes, log *slog.Logger, s namespaces.NamespaceServiceServer) {
	rt.add(http.MethodGet, "/namespaces", namespaces.MethodListNamespaces,
		handlers.Handle(log, namespaces.MethodListNamespaces, s.ListNamespaces,
			handlers.Listing(func(req *namespaces.ListNamespacesRequest, st policy.ActiveState, p policy.PageRequest) {
				req.State, req.Pagination = st, p
			})))
	rt.add(http.MethodPost, "/namespaces", namespaces.MethodCreateNamespace,
		handlers.Handle(log, namespaces.MethodCreateNamespace, s.CreateNamespace))
	rt.add(http.MethodGet, "/namespaces/{id}", namespaces.MethodGetNamespace,
		handlers.Handle(log, namespaces.MethodGetNamespace, s.GetNamespace,
			handlers.Path("id", func(req *namespaces.GetNamespaceRequest, v string) { req.ID = v })))
	rt.add(http.MethodPatch, "/namespaces/{id}", namespaces.MethodUpdateNamespace,
		handlers.Handle(log, namespaces.MethodUpdateNamespace, s.UpdateNamespace,
			handlers.Path("id", func(req *namespaces.UpdateNamespaceRequest, v string) { req.ID = v })))
	rt.add(http.MethodDelete, "/namespaces/{id}", namespaces.MethodDeactivateNamespace,
		handlers.Handle(log, namespaces.MethodDeactivateNamespace, s.DeactivateNamespace,
			handlers.Path("id", func(req *namespaces.DeactivateNamespaceRequest, v string) { req.ID = v })))
}

func attributeRoutes(rt *routes, log *slog.Logger, s attributes.AttributesServiceServer) {
	rt.add(http.MethodGet, "/attributes", attributes.MethodListAttributes,
		handlers.Handle(log, attributes.MethodListAttributes, s.ListAttributes,
			handlers.Listing(func(req *attributes.ListAttributesRequest, st policy.ActiveState, p policy.PageRequest) {
				req.State, req.Pagination = st, p
			}),
			func(r *http.Request, req *attributes.ListAttributesRequest) error {
				req.Namespace = r.URL.Query().Get("namespace")
				return nil
			}))
	rt.add(http.MethodPost, "/attributes", attributes.MethodCreateAttribute,
		handlers.Handle(log, attributes.MethodCreateAttribute, s.CreateAttribute))
	rt.add(http.MethodGet, "/attributes/{id}", attributes.MethodGetAttribute,
		handlers.Handle(log, attributes.MethodGetAttribute, s.GetAttribute,
			handlers.Path("id", func(req *attributes.GetAttributeRequest, v string) { req.ID = v })))
	rt.add(http.MethodPatch, "/attributes/{id}", attributes.MethodUpdateAttribute,
		handlers.Handle(log, attributes.MethodUpdateAttribute, s.UpdateAttribute,
			handlers.Path("id", func(req *attributes.UpdateAttributeRequest, v string) { req.ID = v })))
	rt.add(http.MethodDelete, "/attributes/{id}", attributes.MethodDeactivateAttribute,
		handlers.Handle(log, attributes.MethodDeactivateAttribute, s.DeactivateAttribute,
			handlers.Path("id", func(req *attributes.DeactivateAttributeRequest, v string) { req.ID = v })))

	rt.add(http.MethodGet, "/attributes/{id}/values", attributes.MethodListAttributeValues,
		handlers.Handle(log, attributes.MethodListAttributeValues, s.ListAttributeValues,
			handlers.Path("id", func(req *attributes.ListAttributeValuesRequest, v string) { req.AttributeID = v }),
			handlers.Listing(func(req *attributes.ListAttributeValuesRequest, st policy.ActiveState, p policy.PageRequest) {
				req.State, req.Pagination = st, p
			})))
	rt.add(http.MethodPost, "/attributes/{id}/values", attributes.MethodCreateAttributeValue,
		handlers.Handle(log, attributes.MethodCreateAttributeValue, s.CreateAttributeValue,
			handlers.Path("id", func(req *attributes.CreateAttributeValueRequest, v string) { req.AttributeID = v })))
	rt.add(http.MethodGet, "/values/{id}", attributes.MethodGetAttributeValue,
		handlers.Handle(log, attributes.MethodGetAttributeValue, s.GetAttributeValue,
			handlers.Path("id", func(req *attributes.GetAttributeValueRequest, v string) { req.ID = v })))
	rt.add(http.MethodPatch, "/values/{id}", attributes.MethodUpdateAttributeValue,
		handlers.Handle(log, attributes.MethodUpdateAttributeValue, s.UpdateAttributeValue,
			handlers.Path("id", func(req *attributes.UpdateAttributeValueRequest, v string) { req.ID = v })))
	rt.add(http.MethodDelete, "/values/{id}", attributes.MethodDeactivateAttributeValue,
		handlers.Handle(log, attributes.MethodDeactivateAttributeValue, s.DeactivateAttributeValue,
			handlers.Path("id", func(req *attributes.DeactivateAttributeValueRequest, v string) { req.ID = v })))

	rt.add(http.MethodGet, "/fqns", attributes.MethodGetAttributeValuesByFqns,
		handlers.Handle(log, attributes.MethodGetAttributeValuesByFqns, s.GetAttributeValuesByFqns,
			func(r *http.Request, req *attributes.GetAttributeValuesByFqnsRequest) error {
				req.Fqns = r.URL.Query()["fqn"]
				return nil
			}))
	rt.add(http.MethodPost, "/fqns", attributes.MethodGetAttributeValuesByFqns,
		handlers.Handle(log, attributes.MethodGetAttributeValuesByFqns, s.GetAttributeValuesByFqns))

	rt.add(http.MethodPost, "/grants/attributes", attributes.MethodAssignKeyAccessServerToAttribute,
		handlers.Handle(log, attributes.MethodAssignKeyAccessServerToAttribute, s.AssignKeyAccessServerToAttribute))
	rt.add(http.MethodDelete, "/grants/attributes", attributes.MethodRemoveKeyAccessServerFromAttribute,
		handlers.Handle(log, attributes.MethodRemoveKeyAccessServerFromAttribute, s.RemoveKeyAccessServerFromAttribute))
	rt.add(http.MethodPost, "/grants/values", attributes.MethodAssignKeyAccessServerToValue,
		handlers.Handle(log, attributes.MethodAssignKeyAccessServerToValue, s.AssignKeyAccessServerToValue))
	rt.add(http.MethodDelete, "/grants/values", attributes.MethodRemoveKeyAccessServerFromValue,
		handlers.Handle(log, attributes.MethodRemoveKeyAccessServerFromValue, s.RemoveKeyAccessServerFromValue))
}

func kasRoutes(rt *routes, log *slog.Logger, s kasregistry.KeyAccessServerRegistryServiceServer) {
	rt.add(http.MethodGet, "/key-access-servers", kasregistry.MethodListKeyAccessServers,
		handlers.Handle(log, kasregistry.MethodListKeyAccessServers, s.ListKeyAccessServers,
			handlers.Listing(func(req *kasregistry.ListKeyAccessServersRequest, _ policy.ActiveState, p policy.PageRequest) {
				req.Pagination = p
			})))
	rt.add(http.MethodPost, "/key-access-servers", kasregistry.MethodCreateKeyAccessServer,
		handlers.Handle(log, kasregistry.MethodCreateKeyAccessServer, s.CreateKeyAccessServer))
	rt.add(http.MethodGet, "/key-access-servers/{id}", kasregistry.MethodGetKeyAccessServer,
		handlers.Handle(log, kasregistry.MethodGetKeyAccessServer, s.GetKeyAccessServer,
			handlers.Path("id", func(req *kasregistry.GetKeyAccessServerRequest, v string) { req.ID = v })))
	rt.add(http.MethodPatch, "/key-access-servers/{id}", kasregistry.MethodUpdateKeyAccessServer,
		handlers.Handle(log, kasregistry.MethodUpdateKeyAccessServer, s.UpdateKeyAccessServer,
			handlers.Path("id", func(req *kasregistry.UpdateKeyAccessServerRequest, v string) { req.ID = v })))
	rt.add(http.MethodDelete, "/key-access-servers/{id}", kasregistry.MethodDeleteKeyAccessServer,
		handlers.Handle(log, kasregistry.MethodDeleteKeyAccessServer, s.DeleteKeyAccessServer,
			handlers.Path("id", func(req *kasregistry.DeleteKeyAccessServerRequest, v string) { req.ID = v })))
}

func subjectMappingRoutes(rt *routes, log *slog.Logger, s subjectmapping.SubjectMappingServiceServer) {
	rt.add(http.MethodGet, "/subject-condition-sets", subjectmapping.MethodListSubjectConditionSets,
		handlers.Handle(log, subjectmapping.MethodListSubjectConditionSets, s.ListSubjectConditionSets,
			handlers.Listing(func(req *subjectmapping.ListSubjectConditionSetsRequest, _ policy.ActiveState, p policy.PageRequest) {
				req.Pagination = p
			})))
	rt.add(http.MethodPost, "/subject-condition-sets", subjectmapping.MethodCreateSubjectConditionSet,
		handlers.Handle(log, subjectmapping.MethodCreateSubjectConditionSet, s.CreateSubjectConditionSet))
	rt.add(http.MethodGet, "/subject-condition-sets/{id}", subjectmapping.MethodGetSubjectConditionSet,
		handlers.Handle(log, subjectmapping.MethodGetSubjectConditionSet, s.GetSubjectConditionSet,
			handlers.Path("id", func(req *subjectmapping.GetSubjectConditionSetRequest, v string) { req.ID = v })))
	rt.add(http.MethodPatch, "/subject-condition-sets/{id}", subjectmapping.MethodUpdateSubjectConditionSet,
		handlers.Handle(log, subjectmapping.MethodUpdateSubjectConditionSet, s.UpdateSubjectConditionSet,
			handlers.Path("id", func(req *subjectmapping.UpdateSubjectConditionSetRequest, v string) { req.ID = v })))
	rt.add(http.MethodDelete, "/subject-condition-sets/{id}", subjectmapping.MethodDeleteSubjectConditionSet,
		handlers.Handle(log, subjectmapping.MethodDeleteSubjectConditionSet, s.DeleteSubjectConditionSet,
			handlers.Path("id", func(req *subjectmapping.DeleteSubjectConditionSetRequest, v string) { req.ID = v })))

	rt.add(http.MethodGet, "/subject-mappings", subjectmapping.MethodListSubjectMappings,
		handlers.Handle(log, subjectmapping.MethodListSubjectMappings, s.ListSubjectMappings,
			handlers.Listing(func(req *subjectmapping.ListSubjectMappingsRequest, _ policy.ActiveState, p policy.PageRequest) {
				req.Pagination = p
			})))
	rt.add(http.MethodPost, "/subject-mappings", subjectmapping.MethodCreateSubjectMapping,
		handlers.Handle(log, subjectmapping.MethodCreateSubjectMapping, s.CreateSubjectMapping))
	rt.add(http.MethodPost, "/subject-mappings/match", subjectmapping.MethodMatchSubjectMappings,
		handlers.Handle(log, subjectmapping.MethodMatchSubjectMappings, s.MatchSubjectMappings))
	rt.add(http.MethodGet, "/subject-mappings/{id}", subjectmapping.MethodGetSubjectMapping,
		handlers.Handle(log, subjectmapping.MethodGetSubjectMapping, s.GetSubjectMapping,
			handlers.Path("id", func(req *subjectmapping.GetSubjectMappingRequest, v string) { req.ID = v })))
	rt.add(http.MethodPatch, "/subject-mappings/{id}", subjectmapping.MethodUpdateSubjectMapping,
		handlers.Handle(log, subjectmapping.MethodUpdateSubjectMapping, s.UpdateSubjectMapping,
			handlers.Path("id", func(req *subjectmapping.UpdateSubjectMappingRequest, v string) { req.ID = v })))
	rt.add(http.MethodDelete, "/subject-mappings/{id}", subjectmapping.MethodDeleteSubjectMapping,
		handlers.Handle(log, subjectmapping.MethodDeleteSubjectMapping, s.DeleteSubjectMapping,
			handlers.Path("id", func(req *subjectmapping.DeleteSubjectMappingRequest, v string) { req.ID = v })))

	rt.add(http.MethodPost, "/entitlements", subjectmapping.MethodResolveEntitlements,
		handlers.Handle(log, subjectmapping.MethodResolveEntitlements, s.ResolveEntitlements))
}
