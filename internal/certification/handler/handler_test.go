package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attest/internal/certification/locks"
	"attest/internal/certification/models"
	"attest/internal/certification/service"
	certstore "attest/internal/certification/store"
	"attest/internal/governance"
	"attest/internal/platform/token"
	id "attest/pkg/domain"
)

type env struct {
	router *chi.Mux
	tokens *token.JWTService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.New(
		certstore.NewInMemoryStore(),
		locks.NewInMemoryLocker(),
		governance.NewStaticProvider(governance.Settings{RequireDelegationReview: true}),
		service.WithLogger(logger),
	)
	tokens := token.NewJWTService("test-signing-key", "attest", "attest-api")

	router := chi.NewRouter()
	New(svc, logger, tokens).Register(router)
	return &env{router: router, tokens: tokens}
}

func (e *env) do(t *testing.T, method, path, actor string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if actor != "" {
		bearer, err := e.tokens.GenerateAccessToken(actor, time.Minute)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *env) createCert(t *testing.T) models.Certification {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/certifications", "ada", map[string]any{
		"name":   "quarterly exception review",
		"type":   "application_owner",
		"owners": []string{"ada"},
		"phases": []map[string]any{
			{"phase": "active", "enabled": true, "duration_days": 30},
			{"phase": "challenge", "enabled": true, "duration_days": 10},
		},
		"entities": []map[string]any{
			{
				"identity": "jsmith",
				"items": []map[string]any{
					{"type": "exception", "application": "HR System", "native_identity": "acct1"},
					{"type": "exception", "application": "HR System", "native_identity": "acct1"},
				},
			},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var cert models.Certification
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&cert))
	return cert
}

func firstItem(t *testing.T, cert models.Certification) *models.Item {
	t.Helper()
	for _, it := range cert.Items {
		return it
	}
	t.Fatal("certification has no items")
	return nil
}

func TestAuthRequired(t *testing.T) {
	e := newEnv(t)

	rec := e.do(t, http.MethodPost, "/certifications", "", map[string]any{"name": "x"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateAndGet(t *testing.T) {
	e := newEnv(t)
	cert := e.createCert(t)
	assert.False(t, cert.ID.IsZero())
	assert.Equal(t, "ada", cert.Creator)
	assert.Len(t, cert.Items, 2)

	rec := e.do(t, http.MethodGet, "/certifications/"+cert.ID.String(), "ada", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, http.MethodGet, "/certifications/"+id.NewCertificationID().String(), "ada", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.do(t, http.MethodGet, "/certifications/not-a-uuid", "ada", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDecideEndpoint(t *testing.T) {
	e := newEnv(t)
	cert := e.createCert(t)
	it := firstItem(t, cert)

	rec := e.do(t, http.MethodPost,
		"/certifications/"+cert.ID.String()+"/items/"+it.ID.String()+"/decision",
		"ada", map[string]any{"status": "approved", "comments": "verified"})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = e.do(t, http.MethodGet, "/certifications/"+cert.ID.String(), "ada", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var loaded models.Certification
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&loaded))
	decided := loaded.Item(it.ID)
	require.NotNil(t, decided.Action)
	assert.Equal(t, models.StatusApproved, decided.Action.Status)
	assert.Equal(t, "ada", decided.Action.Actor)
}

func TestDecideEndpoint_AccountRevokeCascades(t *testing.T) {
	e := newEnv(t)
	cert := e.createCert(t)
	it := firstItem(t, cert)

	rec := e.do(t, http.MethodPost,
		"/certifications/"+cert.ID.String()+"/items/"+it.ID.String()+"/decision",
		"ada", map[string]any{
			"status":      "revoke_account",
			"remediation": "send_provision_request",
			"recipient":   "remediator",
		})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = e.do(t, http.MethodGet, "/certifications/"+cert.ID.String(), "ada", nil)
	var loaded models.Certification
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&loaded))
	for _, item := range loaded.Items {
		require.NotNil(t, item.Action, "revoke account reaches every item on the account")
		assert.Equal(t, models.StatusRemediated, item.Action.Status)
		assert.True(t, item.Action.RevokeAccount)
	}
}

func TestDecideEndpoint_ConflictMapsTo409(t *testing.T) {
	e := newEnv(t)
	cert := e.createCert(t)
	it := firstItem(t, cert)

	// Delegate the item, then decide as the owner outside any work item.
	rec := e.do(t, http.MethodPost,
		"/certifications/"+cert.ID.String()+"/items/"+it.ID.String()+"/delegate",
		"ada", map[string]any{"recipient": "bob"})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = e.do(t, http.MethodPost,
		"/certifications/"+cert.ID.String()+"/items/"+it.ID.String()+"/decision",
		"ada", map[string]any{"status": "approved"})
	require.Equal(t, http.StatusConflict, rec.Code)

	var errBody struct {
		Error       string `json:"error"`
		Description string `json:"error_description"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&errBody))
	assert.Equal(t, "conflict", errBody.Error)
	assert.NotEmpty(t, errBody.Description)
}

func TestLifecycleEndpoints(t *testing.T) {
	e := newEnv(t)
	cert := e.createCert(t)
	base := "/certifications/" + cert.ID.String()

	rec := e.do(t, http.MethodPost, base+"/activate", "ada", nil)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = e.do(t, http.MethodPost, base+"/advance-phase", "ada", nil)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = e.do(t, http.MethodGet, base, "ada", nil)
	var loaded models.Certification
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&loaded))
	assert.Equal(t, models.PhaseChallenge, loaded.Phase)

	rec = e.do(t, http.MethodPost, base+"/sign", "ada", nil)
	assert.Equal(t, http.StatusConflict, rec.Code, "open items block sign off")
}

func TestReassignEndpoint(t *testing.T) {
	e := newEnv(t)
	cert := e.createCert(t)
	it := firstItem(t, cert)

	rec := e.do(t, http.MethodPost, "/certifications/"+cert.ID.String()+"/reassign",
		"ada", map[string]any{
			"recipient": "bob",
			"item_ids":  []string{it.ID.String()},
		})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	rec = e.do(t, http.MethodGet, "/certifications/"+cert.ID.String(), "ada", nil)
	var loaded models.Certification
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&loaded))
	require.Len(t, loaded.Commands, 1)
	assert.Equal(t, "bob", loaded.Commands[0].Recipient)
}
