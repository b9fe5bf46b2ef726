package main

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/chainworks-labs/ipmeta/internal/access"
	"github.com/chainworks-labs/ipmeta/internal/domain"
	"github.com/chainworks-labs/ipmeta/internal/metadata"
	"github.com/chainworks-labs/ipmeta/internal/platform/auth"
	"github.com/chainworks-labs/ipmeta/internal/repo"
	"github.com/chainworks-labs/ipmeta/internal/repo/postgres"
)

type resolverAPI struct {
	logger   *slog.Logger
	svc      *resolverService
	resource domain.Address
}

func newResolverAPI(logger *slog.Logger, svc *resolverService, resource domain.Address) *resolverAPI {
	return &resolverAPI{logger: logger, svc: svc, resource: resource}
}

func (api *resolverAPI) register(mux *http.ServeMux) {
	mux.HandleFunc("POST /records", api.handleRegisterRecord)
	mux.HandleFunc("GET /records/{record_id}/metadata", api.handleGetMetadata)
	mux.HandleFunc("GET /records/{record_id}/owner", api.handleGetOwner)
	mux.HandleFunc("GET /records/{record_id}/token-uri", api.handleGetTokenURI)

	mux.HandleFunc("PUT /records/{record_id}/metadata", api.handleSetMetadata)
	mux.HandleFunc("PATCH /records/{record_id}/name", api.handleSetName)
	mux.HandleFunc("PATCH /records/{record_id}/category", api.handleSetCategory)
	mux.HandleFunc("PATCH /records/{record_id}/description", api.handleSetDescription)
	mux.HandleFunc("PATCH /records/{record_id}/hash", api.handleSetHash)
	mux.HandleFunc("PATCH /records/{record_id}/token-uri", api.handleSetTokenURI)

	mux.HandleFunc("PUT /records/{record_id}/controller", api.handleTransferController)
	mux.HandleFunc("PUT /records/{record_id}/permissions", api.handleSetPermission)
	mux.HandleFunc("POST /records/{record_id}/document", api.handlePublishDocument)

	mux.HandleFunc("GET /capabilities", api.handleCapabilities)
}

type registerRecordRequest struct {
	RecordID   string `json:"record_id"`
	Controller string `json:"controller"`
	Source     string `json:"source,omitempty"`
}

type metadataResponse struct {
	RecordID         string `json:"record_id"`
	Name             string `json:"name"`
	Category         string `json:"category"`
	Description      string `json:"description,omitempty"`
	Hash             string `json:"hash"`
	RegistrationDate uint64 `json:"registration_date"`
	Registrant       string `json:"registrant"`
	TokenURI         string `json:"token_uri,omitempty"`
	Owner            string `json:"owner"`
}

type setMetadataRequest struct {
	Name             string `json:"name"`
	Category         string `json:"category"`
	Description      string `json:"description,omitempty"`
	Hash             string `json:"hash,omitempty"`
	RegistrationDate uint64 `json:"registration_date"`
	Registrant       string `json:"registrant"`
	TokenURI         string `json:"token_uri,omitempty"`
}

type setPermissionRequest struct {
	Principal string `json:"principal"`
	Resource  string `json:"resource,omitempty"`
	Selector  string `json:"selector"`
	Level     string `json:"level"`
}

func (api *resolverAPI) handleRegisterRecord(w http.ResponseWriter, r *http.Request) {
	var req registerRecordRequest
	if err := decodeJSON(r, &req); err != nil {
		api.writeError(w, r, http.StatusBadRequest, "invalid_json")
		return
	}
	id, err := domain.ParseRecordID(req.RecordID)
	if err != nil {
		api.writeError(w, r, http.StatusBadRequest, "invalid_record_id")
		return
	}
	controller, err := domain.ParseAddress(req.Controller)
	if err != nil {
		api.writeError(w, r, http.StatusBadRequest, "invalid_controller")
		return
	}
	source := strings.TrimSpace(req.Source)
	if source == "" {
		source = "api"
	}

	identity, _ := auth.IdentityFromContext(r.Context())
	registration := domain.Registration{ID: id, Controller: controller, Source: source}
	if err := api.svc.RegisterRecord(r.Context(), registration, api.buildAuditContext(r, identity)); err != nil {
		if postgres.IsUniqueViolation(err) || strings.Contains(err.Error(), "already registered") {
			api.writeError(w, r, http.StatusConflict, "record_exists")
			return
		}
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	w.Header().Set("Location", "/records/"+id.Hex()+"/metadata")
	api.writeJSON(w, http.StatusCreated, map[string]any{
		"record_id":  id.Hex(),
		"controller": controller.Hex(),
		"source":     source,
	})
}

func (api *resolverAPI) handleGetMetadata(w http.ResponseWriter, r *http.Request) {
	id, ok := api.recordID(w, r)
	if !ok {
		return
	}
	view, err := api.svc.Metadata(r.Context(), id)
	if err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	api.writeJSON(w, http.StatusOK, metadataResponse{
		RecordID:         id.Hex(),
		Name:             view.Record.Name,
		Category:         view.Record.Category.Label(),
		Description:      view.Record.Description,
		Hash:             view.Record.Hash.Hex(),
		RegistrationDate: view.Record.RegistrationDate,
		Registrant:       view.Record.Registrant.Hex(),
		TokenURI:         view.Record.URI,
		Owner:            view.Owner.Hex(),
	})
}

func (api *resolverAPI) handleGetOwner(w http.ResponseWriter, r *http.Request) {
	id, ok := api.recordID(w, r)
	if !ok {
		return
	}
	owner, err := api.svc.Owner(r.Context(), id)
	if err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	api.writeJSON(w, http.StatusOK, map[string]any{
		"record_id": id.Hex(),
		"owner":     owner.Hex(),
	})
}

func (api *resolverAPI) handleGetTokenURI(w http.ResponseWriter, r *http.Request) {
	id, ok := api.recordID(w, r)
	if !ok {
		return
	}
	uri, err := api.svc.TokenURI(r.Context(), id)
	if err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	api.writeJSON(w, http.StatusOK, map[string]any{
		"record_id": id.Hex(),
		"token_uri": uri,
	})
}

func (api *resolverAPI) handleSetMetadata(w http.ResponseWriter, r *http.Request) {
	id, ok := api.recordID(w, r)
	if !ok {
		return
	}
	caller, identity, ok := api.caller(w, r)
	if !ok {
		return
	}

	var req setMetadataRequest
	if err := decodeJSON(r, &req); err != nil {
		api.writeError(w, r, http.StatusBadRequest, "invalid_json")
		return
	}
	category, err := domain.ParseCategory(req.Category)
	if err != nil {
		api.writeError(w, r, http.StatusBadRequest, "invalid_category")
		return
	}
	registrant, err := domain.ParseAddress(req.Registrant)
	if err != nil {
		api.writeError(w, r, http.StatusBadRequest, "invalid_registrant")
		return
	}
	var hash domain.Hash
	if strings.TrimSpace(req.Hash) != "" {
		hash, err = domain.ParseHash(req.Hash)
		if err != nil {
			api.writeError(w, r, http.StatusBadRequest, "invalid_hash")
			return
		}
	}

	record := domain.MetadataRecord{
		Name:             req.Name,
		Category:         category,
		Description:      req.Description,
		Hash:             hash,
		RegistrationDate: req.RegistrationDate,
		Registrant:       registrant,
		URI:              req.TokenURI,
	}
	if err := api.svc.SetMetadata(r.Context(), caller, id, record, api.buildAuditContext(r, identity)); err != nil {
		api.writeMutationError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (api *resolverAPI) handleSetName(w http.ResponseWriter, r *http.Request) {
	api.handleFieldPatch(w, r, "name", func(r *http.Request, caller domain.Address, id domain.RecordID, value string, auditCtx auditContext) error {
		return api.svc.SetName(r.Context(), caller, id, value, auditCtx)
	})
}

func (api *resolverAPI) handleSetCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := api.recordID(w, r)
	if !ok {
		return
	}
	caller, identity, ok := api.caller(w, r)
	if !ok {
		return
	}
	var req struct {
		Category string `json:"category"`
	}
	if err := decodeJSON(r, &req); err != nil {
		api.writeError(w, r, http.StatusBadRequest, "invalid_json")
		return
	}
	category, err := domain.ParseCategory(req.Category)
	if err != nil {
		api.writeError(w, r, http.StatusBadRequest, "invalid_category")
		return
	}
	if err := api.svc.SetCategory(r.Context(), caller, id, category, api.buildAuditContext(r, identity)); err != nil {
		api.writeMutationError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (api *resolverAPI) handleSetDescription(w http.ResponseWriter, r *http.Request) {
	api.handleFieldPatch(w, r, "description", func(r *http.Request, caller domain.Address, id domain.RecordID, value string, auditCtx auditContext) error {
		return api.svc.SetDescription(r.Context(), caller, id, value, auditCtx)
	})
}

func (api *resolverAPI) handleSetHash(w http.ResponseWriter, r *http.Request) {
	id, ok := api.recordID(w, r)
	if !ok {
		return
	}
	caller, identity, ok := api.caller(w, r)
	if !ok {
		return
	}
	var req struct {
		Hash string `json:"hash"`
	}
	if err := decodeJSON(r, &req); err != nil {
		api.writeError(w, r, http.StatusBadRequest, "invalid_json")
		return
	}
	hash, err := domain.ParseHash(req.Hash)
	if err != nil {
		api.writeError(w, r, http.StatusBadRequest, "invalid_hash")
		return
	}
	if err := api.svc.SetHash(r.Context(), caller, id, hash, api.buildAuditContext(r, identity)); err != nil {
		api.writeMutationError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (api *resolverAPI) handleSetTokenURI(w http.ResponseWriter, r *http.Request) {
	api.handleFieldPatch(w, r, "token_uri", func(r *http.Request, caller domain.Address, id domain.RecordID, value string, auditCtx auditContext) error {
		return api.svc.SetTokenURI(r.Context(), caller, id, value, auditCtx)
	})
}

func (api *resolverAPI) handleFieldPatch(w http.ResponseWriter, r *http.Request, field string, apply func(*http.Request, domain.Address, domain.RecordID, string, auditContext) error) {
	id, ok := api.recordID(w, r)
	if !ok {
		return
	}
	caller, identity, ok := api.caller(w, r)
	if !ok {
		return
	}
	var req map[string]string
	if err := decodeJSON(r, &req); err != nil {
		api.writeError(w, r, http.StatusBadRequest, "invalid_json")
		return
	}
	value, exists := req[field]
	if !exists {
		api.writeError(w, r, http.StatusBadRequest, field+"_required")
		return
	}
	if err := apply(r, caller, id, value, api.buildAuditContext(r, identity)); err != nil {
		api.writeMutationError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (api *resolverAPI) handleTransferController(w http.ResponseWriter, r *http.Request) {
	id, ok := api.recordID(w, r)
	if !ok {
		return
	}
	var req struct {
		Controller string `json:"controller"`
	}
	if err := decodeJSON(r, &req); err != nil {
		api.writeError(w, r, http.StatusBadRequest, "invalid_json")
		return
	}
	controller, err := domain.ParseAddress(req.Controller)
	if err != nil || controller.IsZero() {
		api.writeError(w, r, http.StatusBadRequest, "invalid_controller")
		return
	}

	identity, _ := auth.IdentityFromContext(r.Context())
	if err := api.svc.TransferController(r.Context(), id, controller, api.buildAuditContext(r, identity)); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			api.writeError(w, r, http.StatusNotFound, "record_not_found")
			return
		}
		api.writeError(w, r, http.StatusBadRequest, "invalid_transfer")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (api *resolverAPI) handleSetPermission(w http.ResponseWriter, r *http.Request) {
	id, ok := api.recordID(w, r)
	if !ok {
		return
	}
	var req setPermissionRequest
	if err := decodeJSON(r, &req); err != nil {
		api.writeError(w, r, http.StatusBadRequest, "invalid_json")
		return
	}
	principal, err := domain.ParseAddress(req.Principal)
	if err != nil {
		api.writeError(w, r, http.StatusBadRequest, "invalid_principal")
		return
	}
	resource := api.resource
	if strings.TrimSpace(req.Resource) != "" {
		resource, err = domain.ParseAddress(req.Resource)
		if err != nil {
			api.writeError(w, r, http.StatusBadRequest, "invalid_resource")
			return
		}
	}
	level, err := domain.ParsePermissionLevel(req.Level)
	if err != nil {
		api.writeError(w, r, http.StatusBadRequest, "invalid_level")
		return
	}
	selector := strings.TrimSpace(req.Selector)
	if selector != domain.SelectorWildcard && !metadata.KnownSelector(selector) {
		api.writeError(w, r, http.StatusBadRequest, "invalid_selector")
		return
	}

	identity, _ := auth.IdentityFromContext(r.Context())
	permission := domain.Permission{
		ID:        id,
		Principal: principal,
		Resource:  resource,
		Selector:  selector,
		Level:     level,
	}
	if err := api.svc.SetPermission(r.Context(), permission, api.buildAuditContext(r, identity)); err != nil {
		api.writeError(w, r, http.StatusBadRequest, "invalid_permission")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (api *resolverAPI) handlePublishDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := api.recordID(w, r)
	if !ok {
		return
	}
	caller, identity, ok := api.caller(w, r)
	if !ok {
		return
	}
	setOverride := r.URL.Query().Get("set_override") == "true"
	key, uri, err := api.svc.PublishDocument(r.Context(), id, caller, setOverride, api.buildAuditContext(r, identity))
	if err != nil {
		if errors.Is(err, access.ErrUnauthorized) {
			api.writeError(w, r, http.StatusForbidden, "unauthorized_selector")
			return
		}
		if errors.Is(err, repo.ErrNotFound) {
			api.writeError(w, r, http.StatusNotFound, "no_document")
			return
		}
		if strings.Contains(err.Error(), "not configured") {
			api.writeError(w, r, http.StatusServiceUnavailable, "archive_unavailable")
			return
		}
		api.writeError(w, r, http.StatusBadGateway, "object_store_error")
		return
	}
	api.writeJSON(w, http.StatusCreated, map[string]any{
		"record_id":    id.Hex(),
		"object_key":   key,
		"token_uri":    uri,
		"set_override": setOverride,
	})
}

func (api *resolverAPI) handleCapabilities(w http.ResponseWriter, r *http.Request) {
	api.writeJSON(w, http.StatusOK, map[string]any{
		"capability": metadata.CapabilityMetadataResolver,
		"selectors":  metadata.Selectors(),
	})
}

func (api *resolverAPI) recordID(w http.ResponseWriter, r *http.Request) (domain.RecordID, bool) {
	id, err := domain.ParseRecordID(r.PathValue("record_id"))
	if err != nil || id.IsZero() {
		api.writeError(w, r, http.StatusBadRequest, "invalid_record_id")
		return domain.RecordID{}, false
	}
	return id, true
}

// caller resolves the acting on-chain principal from the authenticated
// identity subject.
func (api *resolverAPI) caller(w http.ResponseWriter, r *http.Request) (domain.Address, auth.Identity, bool) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok || strings.TrimSpace(identity.Subject) == "" {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return domain.Address{}, auth.Identity{}, false
	}
	caller, err := domain.ParseAddress(identity.Subject)
	if err != nil {
		api.writeError(w, r, http.StatusBadRequest, "invalid_caller_address")
		return domain.Address{}, auth.Identity{}, false
	}
	return caller, identity, true
}

func (api *resolverAPI) writeMutationError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, access.ErrUnauthorized) {
		api.writeError(w, r, http.StatusForbidden, "unauthorized_selector")
		return
	}
	api.writeError(w, r, http.StatusBadRequest, "invalid_record")
}

func (api *resolverAPI) buildAuditContext(r *http.Request, identity auth.Identity) auditContext {
	actor := strings.TrimSpace(identity.Subject)
	if actor == "" {
		actor = "anonymous"
	}
	return auditContext{
		Actor:     actor,
		RequestID: r.Header.Get("X-Request-Id"),
		IP:        requestIP(r.RemoteAddr),
		UserAgent: r.UserAgent(),
		Path:      r.URL.Path,
		Service:   "resolver",
	}
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("multiple JSON values")
	}
	return nil
}

func (api *resolverAPI) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(body)
}

func (api *resolverAPI) writeError(w http.ResponseWriter, r *http.Request, status int, code string) {
	api.writeJSON(w, status, map[string]any{
		"error":      code,
		"request_id": r.Header.Get("X-Request-Id"),
	})
}

func requestIP(remoteAddr string) net.IP {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return nil
	}
	return net.ParseIP(host)
}
