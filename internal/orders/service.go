package orders

import (
	"context"
	"fmt"

	"github.com/jalvarez-dev/farmline-storefront/pkg/backend"
	pkgerrors "github.com/jalvarez-dev/farmline-storefront/pkg/errors"
)

type orderLister interface {
	ListOrders(ctx context.Context) ([]backend.Order, error)
}

// Service is a thin order-history passthrough.
type Service struct {
	client orderLister
}

func NewService(client orderLister) (*Service, error) {
	if client == nil {
		return nil, fmt.Errorf("backend client required")
	}
	return &Service{client: client}, nil
}

func (s *Service) List(ctx context.Context) ([]backend.Order, error) {
	orders, err := s.client.ListOrders(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return orders, nil
}
