package pets

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serenyx/internal/identity"
)

func newTestRouter(t *testing.T) (*chi.Mux, *Service) {
	t.Helper()
	svc := newTestService()
	h := NewHandler(svc, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := chi.NewRouter()
	h.Register(r)
	return r, svc
}

func asSubject(req *http.Request, id string) *http.Request {
	ctx := identity.WithSubject(req.Context(), identity.Subject{ID: id})
	return req.WithContext(ctx)
}

func TestHandleCreate(t *testing.T) {
	r, _ := newTestRouter(t)

	t.Run("valid payload returns 201 with the new pet", func(t *testing.T) {
		body := `{"name":"Rex","type":"Dog","breed":"Labrador","age":24}`
		req := asSubject(httptest.NewRequest(http.MethodPost, "/pets", strings.NewReader(body)), "u1")

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)
		var pet Pet
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pet))
		assert.NotEmpty(t, pet.ID)
		assert.Equal(t, "u1", pet.OwnerID)
	})

	t.Run("invalid payload returns 400 with one detail per field", func(t *testing.T) {
		body := `{"name":"","type":"Dragon","breed":"","age":500}`
		req := asSubject(httptest.NewRequest(http.MethodPost, "/pets", strings.NewReader(body)), "u1")

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		var resp struct {
			Error   string `json:"error"`
			Details []struct {
				Field   string `json:"field"`
				Message string `json:"message"`
			} `json:"details"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "validation_error", resp.Error)
		assert.Len(t, resp.Details, 4)
	})

	t.Run("malformed body returns 400", func(t *testing.T) {
		req := asSubject(httptest.NewRequest(http.MethodPost, "/pets", strings.NewReader("{")), "u1")

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing subject returns 401", func(t *testing.T) {
		body := `{"name":"Rex","type":"Dog","breed":"Labrador","age":24}`
		req := httptest.NewRequest(http.MethodPost, "/pets", strings.NewReader(body))

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestHandleGetAndDelete(t *testing.T) {
	r, svc := newTestRouter(t)

	created, err := svc.Create(context.Background(), identity.Subject{ID: "u1"}, CreatePetRequest{
		Name: "Rex", Type: TypeDog, Breed: "Labrador", Age: 24,
	})
	require.NoError(t, err)

	t.Run("owner can read", func(t *testing.T) {
		req := asSubject(httptest.NewRequest(http.MethodGet, "/pets/"+created.ID, nil), "u1")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("foreign pet reads as 404", func(t *testing.T) {
		req := asSubject(httptest.NewRequest(http.MethodGet, "/pets/"+created.ID, nil), "u2")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("delete returns 204 and the pet is gone", func(t *testing.T) {
		req := asSubject(httptest.NewRequest(http.MethodDelete, "/pets/"+created.ID, nil), "u1")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code)

		req = asSubject(httptest.NewRequest(http.MethodGet, "/pets/"+created.ID, nil), "u1")
		rec = httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHandleUpdate(t *testing.T) {
	r, svc := newTestRouter(t)

	created, err := svc.Create(context.Background(), identity.Subject{ID: "u1"}, CreatePetRequest{
		Name: "Rex", Type: TypeDog, Breed: "Labrador", Age: 24,
	})
	require.NoError(t, err)

	t.Run("partial update keeps other fields", func(t *testing.T) {
		req := asSubject(httptest.NewRequest(http.MethodPut, "/pets/"+created.ID, strings.NewReader(`{"name":"Rexford"}`)), "u1")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var pet Pet
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pet))
		assert.Equal(t, "Rexford", pet.Name)
		assert.Equal(t, "Labrador", pet.Breed)
	})

	t.Run("out-of-range field returns 400", func(t *testing.T) {
		req := asSubject(httptest.NewRequest(http.MethodPut, "/pets/"+created.ID, strings.NewReader(`{"age":999}`)), "u1")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
