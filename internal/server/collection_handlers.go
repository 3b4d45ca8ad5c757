package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/promptnote/promptnote/internal/domain"
)

func (s *Server) registerCollectionRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-collections",
		Method:      http.MethodGet,
		Path:        "/api/collections",
		Summary:     "List collections",
		Tags:        []string{"Collections"},
	}, s.handleListCollections)

	huma.Register(s.api, huma.Operation{
		OperationID:   "create-collection",
		Method:        http.MethodPost,
		Path:          "/api/collections",
		Summary:       "Create collection",
		DefaultStatus: http.StatusCreated,
		Tags:          []string{"Collections"},
	}, s.handleCreateCollection)

	huma.Register(s.api, huma.Operation{
		OperationID: "update-collection",
		Method:      http.MethodPut,
		Path:        "/api/collections/{id}",
		Summary:     "Update collection",
		Tags:        []string{"Collections"},
	}, s.handleUpdateCollection)

	huma.Register(s.api, huma.Operation{
		OperationID: "delete-collection",
		Method:      http.MethodDelete,
		Path:        "/api/collections/{id}",
		Summary:     "Delete collection",
		Description: "Items in the collection are reassigned to the default collection, never deleted.",
		Tags:        []string{"Collections"},
	}, s.handleDeleteCollection)
}

// === DTOs ===

// CollectionRequest is the wire body for collection create/update.
type CollectionRequest struct {
	Name        *string `json:"name,omitempty" doc:"Collection name"`
	Description *string `json:"description,omitempty" doc:"Description"`
	Icon        *string `json:"icon,omitempty" doc:"Icon key, unknown values fall back to folder"`
}

// CreateCollectionInput wraps a collection creation for Huma.
type CreateCollectionInput struct {
	Authorization string `header:"Authorization"`
	Body          CollectionRequest
}

// UpdateCollectionInput wraps a collection update for Huma.
type UpdateCollectionInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Collection id"`
	Body          CollectionRequest
}

// CollectionOutput wraps a single collection for Huma.
type CollectionOutput struct {
	Body domain.Collection
}

// CollectionsOutput wraps a flat collection list for Huma.
type CollectionsOutput struct {
	Body []domain.Collection
}

// === Handlers ===

func (s *Server) handleListCollections(ctx context.Context, input *AuthedInput) (*CollectionsOutput, error) {
	user, err := s.currentUser(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	collections, err := s.store.ListCollections(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Collection, 0, len(collections))
	for _, c := range collections {
		out = append(out, *c)
	}
	return &CollectionsOutput{Body: out}, nil
}

func (s *Server) handleCreateCollection(ctx context.Context, input *CreateCollectionInput) (*CollectionOutput, error) {
	user, err := s.currentUser(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	c := &domain.Collection{}
	if input.Body.Name != nil {
		c.Name = *input.Body.Name
	}
	if input.Body.Description != nil {
		c.Description = *input.Body.Description
	}
	if input.Body.Icon != nil {
		c.Icon = *input.Body.Icon
	}

	if err := s.store.CreateCollection(ctx, user.ID, c); err != nil {
		return nil, err
	}
	return &CollectionOutput{Body: *c}, nil
}

func (s *Server) handleUpdateCollection(ctx context.Context, input *UpdateCollectionInput) (*CollectionOutput, error) {
	user, err := s.currentUser(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	c, err := s.store.UpdateCollection(ctx, user.ID, input.ID,
		input.Body.Name, input.Body.Description, input.Body.Icon)
	if err != nil {
		return nil, err
	}
	return &CollectionOutput{Body: *c}, nil
}

func (s *Server) handleDeleteCollection(ctx context.Context, input *struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Collection id"`
}) (*MessageOutput, error) {
	user, err := s.currentUser(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	if err := s.store.DeleteCollection(ctx, user.ID, input.ID); err != nil {
		return nil, err
	}
	return messageOutput("Coleção excluída com sucesso"), nil
}
