package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/grocery-shop/internal/catalog"
)

type mockCatalogService struct {
	listCategoriesFunc func(ctx context.Context) ([]catalog.Category, error)
	listProductsFunc   func(ctx context.Context, categoryID *uuid.UUID) ([]catalog.Product, error)
	getProductFunc     func(ctx context.Context, id uuid.UUID) (*catalog.Product, error)
}

func (m *mockCatalogService) ListCategories(ctx context.Context) ([]catalog.Category, error) {
	return m.listCategoriesFunc(ctx)
}

func (m *mockCatalogService) ListProducts(ctx context.Context, categoryID *uuid.UUID) ([]catalog.Product, error) {
	return m.listProductsFunc(ctx, categoryID)
}

func (m *mockCatalogService) GetProduct(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	return m.getProductFunc(ctx, id)
}

func TestProductHandler_ListProducts(t *testing.T) {
	t.Run("all_active", func(t *testing.T) {
		mockSvc := &mockCatalogService{
			listProductsFunc: func(ctx context.Context, categoryID *uuid.UUID) ([]catalog.Product, error) {
				assert.Nil(t, categoryID)
				return []catalog.Product{
					{ID: uuid.Must(uuid.NewV4()), Name: "Basmati Rice", Price: decimal.RequireFromString("120.00"), Stock: 40, IsActive: true},
				}, nil
			},
		}
		h := NewProductHandler(mockSvc)

		req := httptest.NewRequest(http.MethodGet, "/products", nil)
		w := httptest.NewRecorder()

		h.ListProducts(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var got []catalog.Product
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		require.Len(t, got, 1)
		assert.Equal(t, "Basmati Rice", got[0].Name)
	})

	t.Run("filtered_by_category", func(t *testing.T) {
		wantCategory := uuid.Must(uuid.NewV4())
		mockSvc := &mockCatalogService{
			listProductsFunc: func(ctx context.Context, categoryID *uuid.UUID) ([]catalog.Product, error) {
				require.NotNil(t, categoryID)
				assert.Equal(t, wantCategory, *categoryID)
				return []catalog.Product{}, nil
			},
		}
		h := NewProductHandler(mockSvc)

		req := httptest.NewRequest(http.MethodGet, "/products?category="+wantCategory.String(), nil)
		w := httptest.NewRecorder()

		h.ListProducts(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("invalid_category_param", func(t *testing.T) {
		mockSvc := &mockCatalogService{
			listProductsFunc: func(ctx context.Context, categoryID *uuid.UUID) ([]catalog.Product, error) {
				t.Fatal("service should not be called")
				return nil, nil
			},
		}
		h := NewProductHandler(mockSvc)

		req := httptest.NewRequest(http.MethodGet, "/products?category=groceries", nil)
		w := httptest.NewRecorder()

		h.ListProducts(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestProductHandler_GetProduct(t *testing.T) {
	productID := uuid.Must(uuid.NewV4())

	tests := []struct {
		name           string
		id             string
		getProduct     func(ctx context.Context, id uuid.UUID) (*catalog.Product, error)
		expectedStatus int
	}{
		{
			name: "success",
			id:   productID.String(),
			getProduct: func(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
				return &catalog.Product{ID: id, Name: "Toor Dal", Price: decimal.RequireFromString("85.00"), IsActive: true}, nil
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "not_found",
			id:   productID.String(),
			getProduct: func(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
				return nil, catalog.ErrProductNotFound
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name: "invalid_id",
			id:   "42",
			getProduct: func(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
				t.Fatal("service should not be called")
				return nil, nil
			},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockSvc := &mockCatalogService{getProductFunc: tt.getProduct}
			h := NewProductHandler(mockSvc)

			req := httptest.NewRequest(http.MethodGet, "/products/"+tt.id, nil)
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("id", tt.id)
			req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
			w := httptest.NewRecorder()

			h.GetProduct(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

func TestProductHandler_ListCategories(t *testing.T) {
	mockSvc := &mockCatalogService{
		listCategoriesFunc: func(ctx context.Context) ([]catalog.Category, error) {
			return []catalog.Category{
				{ID: uuid.Must(uuid.NewV4()), Name: "Staples"},
				{ID: uuid.Must(uuid.NewV4()), Name: "Snacks"},
			}, nil
		},
	}
	h := NewProductHandler(mockSvc)

	req := httptest.NewRequest(http.MethodGet, "/categories", nil)
	w := httptest.NewRecorder()

	h.ListCategories(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var got []catalog.Category
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Len(t, got, 2)
}
