package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
)

type Service interface {
	ListCategories(ctx context.Context) ([]Category, error)
	ListProducts(ctx context.Context, categoryID *uuid.UUID) ([]Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*Product, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) ListCategories(ctx context.Context) ([]Category, error) {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to fetch categories in repository")
		return nil, fmt.Errorf("service: failed to fetch categories: %w", err)
	}

	return categories, nil
}

func (s *service) ListProducts(ctx context.Context, categoryID *uuid.UUID) ([]Product, error) {
	var (
		products []Product
		err      error
	)
	if categoryID != nil {
		products, err = s.repo.ListProductsByCategory(ctx, *categoryID)
	} else {
		products, err = s.repo.ListActiveProducts(ctx)
	}
	if err != nil {
		log.Error().Err(err).Msg("service: failed to fetch products in repository")
		return nil, fmt.Errorf("service: failed to fetch products: %w", err)
	}

	return products, nil
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*Product, error) {
	product, err := s.repo.GetActiveProduct(ctx, id)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			log.Warn().Stringer("product_id", id).Msg("service: product not found by id")
			return nil, ErrProductNotFound
		}

		log.Error().Err(err).Msg("service: failed to fetch product by id in repository")
		return nil, fmt.Errorf("service: failed to fetch product by id: %w", err)
	}

	return product, nil
}
