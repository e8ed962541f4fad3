package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"bitbucket.org/bjitlabs/erpgate_backend/config"
	"bitbucket.org/bjitlabs/erpgate_backend/erp"
	"github.com/gin-gonic/gin"
)

type stubProductStore struct {
	image    []byte
	imageErr error
}

func (s *stubProductStore) ListProducts(context.Context, int, int) ([]erp.Product, error) {
	return nil, nil
}

func (s *stubProductStore) GetProduct(context.Context, int) (*erp.Product, error) {
	return nil, erp.ErrNotFound
}

func (s *stubProductStore) FindProductByCode(context.Context, string) (*erp.Product, error) {
	return nil, erp.ErrNotFound
}

func (s *stubProductStore) ProductImage(context.Context, int) ([]byte, error) {
	return s.image, s.imageErr
}

func imageRequest(t *testing.T, store *stubProductStore, url string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := config.Config{APIAccessKey: "gate-key"}
	r := gin.New()
	r.GET("/api/product/image/:id", productImageHandler(store, cfg))
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, url, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestProductImage_ServesBytesWithQueryKey(t *testing.T) {
	store := &stubProductStore{image: []byte("GIF89a image bytes")}
	w := imageRequest(t, store, "/api/product/image/5?api_key=gate-key")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", w.Code)
	}
	if w.Body.String() != "GIF89a image bytes" {
		t.Fatalf("body %q", w.Body.String())
	}
}

func TestProductImage_WrongKeyIs404(t *testing.T) {
	store := &stubProductStore{image: []byte("x")}
	w := imageRequest(t, store, "/api/product/image/5?api_key=wrong")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status %d, want 404", w.Code)
	}
}

func TestProductImage_MissingImageIs404(t *testing.T) {
	store := &stubProductStore{imageErr: erp.ErrNotFound}
	w := imageRequest(t, store, "/api/product/image/5?api_key=gate-key")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status %d, want 404", w.Code)
	}
}

func TestProductImage_DependencyFailureIs404(t *testing.T) {
	store := &stubProductStore{imageErr: errors.New("erp unreachable")}
	w := imageRequest(t, store, "/api/product/image/5?api_key=gate-key")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status %d, want 404", w.Code)
	}
	if w.Body.String() != `{"error":"not found"}` {
		t.Fatalf("body %q leaks the failure", w.Body.String())
	}
}
