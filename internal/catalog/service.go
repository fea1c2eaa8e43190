package catalog

import (
	"context"
	"fmt"

	"github.com/jalvarez-dev/farmline-storefront/pkg/backend"
	pkgerrors "github.com/jalvarez-dev/farmline-storefront/pkg/errors"
)

type productLister interface {
	ListProducts(ctx context.Context) ([]backend.Product, error)
}

// Service is a thin catalog passthrough for the product listing page.
type Service struct {
	client productLister
}

func NewService(client productLister) (*Service, error) {
	if client == nil {
		return nil, fmt.Errorf("backend client required")
	}
	return &Service{client: client}, nil
}

func (s *Service) List(ctx context.Context) ([]backend.Product, error) {
	products, err := s.client.ListProducts(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return products, nil
}
