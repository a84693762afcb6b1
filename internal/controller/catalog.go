package controller

import (
	"context"

	"github.com/pubsync/pubsync/internal/gateway"
	"github.com/pubsync/pubsync/internal/sync/asyncstate"
	"github.com/pubsync/pubsync/internal/sync/envelope"
)

const MessageCategoriesFailed = "unable to load categories"

// Catalog loads categories and their subcategories.
type Catalog struct {
	gw            gateway.RepositoryGateway
	Categories    *asyncstate.Observable[[]gateway.Category]
	Category      *asyncstate.Observable[gateway.Category]
	Subcategories *asyncstate.Observable[[]gateway.Subcategory]
}

func NewCatalog(gw gateway.RepositoryGateway) *Catalog {
	return &Catalog{
		gw:            gw,
		Categories:    asyncstate.NewObservable[[]gateway.Category](),
		Category:      asyncstate.NewObservable[gateway.Category](),
		Subcategories: asyncstate.NewObservable[[]gateway.Subcategory](),
	}
}

func (c *Catalog) LoadCategories(ctx context.Context) envelope.Envelope[[]gateway.Category] {
	return asyncstate.Run(ctx, c.Categories, c.gw.GetAllCategories, MessageCategoriesFailed)
}

func (c *Catalog) LoadCategory(ctx context.Context, id int64) envelope.Envelope[gateway.Category] {
	return asyncstate.Run(ctx, c.Category, func(ctx context.Context) envelope.Envelope[gateway.Category] {
		return c.gw.GetCategoryByID(ctx, id)
	}, MessageCategoriesFailed)
}

func (c *Catalog) LoadSubcategories(ctx context.Context, categoryID int64) envelope.Envelope[[]gateway.Subcategory] {
	return asyncstate.Run(ctx, c.Subcategories, func(ctx context.Context) envelope.Envelope[[]gateway.Subcategory] {
		return c.gw.GetSubcategoriesByCategory(ctx, categoryID)
	}, MessageCategoriesFailed)
}
