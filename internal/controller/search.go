package controller

import (
	"github.com/pubsync/pubsync/internal/gateway"
	"github.com/pubsync/pubsync/internal/sync/search"
)

// NewSearch returns a publication search backed by gw.
func NewSearch(gw gateway.RepositoryGateway, opts search.Options) *search.Coordinator[gateway.Publication] {
	return search.NewCoordinator[gateway.Publication](gw.SearchPublications, opts)
}
