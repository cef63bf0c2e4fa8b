package cart

import (
	"context"
	"fmt"
)

func (s *Service) ItemCount(ctx context.Context) (int, error) {
	c, err := s.Cart(ctx)
	return c.TotalItems, err
}

func (s *Service) Total(ctx context.Context) (float64, error) {
	c, err := s.Cart(ctx)
	return c.TotalPrice, err
}

func (s *Service) Contains(ctx context.Context, productID, variantID int64) (bool, error) {
	_, ok, err := s.Item(ctx, productID, variantID)
	return ok, err
}

func (s *Service) Item(ctx context.Context, productID, variantID int64) (Item, bool, error) {
	c, err := s.Cart(ctx)
	if err != nil {
		return Item{}, false, err
	}
	id := ItemID(productID, variantID)
	for _, it := range c.Items {
		if it.ID == id {
			return it, true, nil
		}
	}
	return Item{}, false, nil
}

// Validate checks the cart against the stock and prices it last saw.
func (s *Service) Validate(ctx context.Context) ([]Issue, error) {
	c, err := s.Cart(ctx)
	if err != nil {
		return nil, err
	}

	var issues []Issue
	for _, it := range c.Items {
		switch {
		case it.Stock <= 0:
			issues = append(issues, Issue{ItemID: it.ID, Message: fmt.Sprintf("%s is out of stock", it.ProductName)})
		case it.Quantity > it.Stock:
			issues = append(issues, Issue{ItemID: it.ID, Message: fmt.Sprintf("%s: only %d available", it.ProductName, it.Stock)})
		}
		if it.Price <= 0 {
			issues = append(issues, Issue{ItemID: it.ID, Message: fmt.Sprintf("%s has no valid price", it.ProductName)})
		}
	}
	return issues, nil
}

// DiscountedTotal subtracts discount from the total, never going below 0.
func (s *Service) DiscountedTotal(ctx context.Context, discount float64) (float64, error) {
	total, err := s.Total(ctx)
	if err != nil {
		return 0, err
	}
	return max(total-discount, 0), nil
}

// Grouped returns lines keyed by product, variants together.
func (s *Service) Grouped(ctx context.Context) (map[int64][]Item, error) {
	c, err := s.Cart(ctx)
	if err != nil {
		return nil, err
	}

	out := make(map[int64][]Item)
	for _, it := range c.Items {
		out[it.ProductID] = append(out[it.ProductID], it)
	}
	return out, nil
}

// OrderData projects the cart into the checkout payload.
func (s *Service) OrderData(ctx context.Context) (OrderData, error) {
	c, err := s.Cart(ctx)
	if err != nil {
		return OrderData{}, err
	}

	od := OrderData{
		Items:      make([]OrderLine, 0, len(c.Items)),
		TotalItems: c.TotalItems,
		TotalPrice: c.TotalPrice,
	}
	for _, it := range c.Items {
		od.Items = append(od.Items, OrderLine{
			ProductID: it.ProductID,
			VariantID: it.VariantID,
			Quantity:  it.Quantity,
			Note:      it.Note,
		})
	}
	return od, nil
}
