package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/promptnote/promptnote/internal/domain"
)

func (s *Server) registerTagRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-tags",
		Method:      http.MethodGet,
		Path:        "/api/tags",
		Summary:     "List tags",
		Description: "Returns the user's tags with usage counts.",
		Tags:        []string{"Tags"},
	}, s.handleListTags)

	huma.Register(s.api, huma.Operation{
		OperationID:   "create-tag",
		Method:        http.MethodPost,
		Path:          "/api/tags",
		Summary:       "Create tag",
		DefaultStatus: http.StatusCreated,
		Tags:          []string{"Tags"},
	}, s.handleCreateTag)

	huma.Register(s.api, huma.Operation{
		OperationID: "update-tag",
		Method:      http.MethodPut,
		Path:        "/api/tags/{id}",
		Summary:     "Update tag",
		Tags:        []string{"Tags"},
	}, s.handleUpdateTag)

	huma.Register(s.api, huma.Operation{
		OperationID: "delete-tag",
		Method:      http.MethodDelete,
		Path:        "/api/tags/{id}",
		Summary:     "Delete tag",
		Tags:        []string{"Tags"},
	}, s.handleDeleteTag)

	huma.Register(s.api, huma.Operation{
		OperationID: "list-tag-items",
		Method:      http.MethodGet,
		Path:        "/api/tags/{id}/items",
		Summary:     "List a tag's items",
		Tags:        []string{"Tags"},
	}, s.handleListTagItems)

	huma.Register(s.api, huma.Operation{
		OperationID:   "attach-tag",
		Method:        http.MethodPost,
		Path:          "/api/tags/items/{itemId}/tags/{tagId}",
		Summary:       "Attach tag to item",
		DefaultStatus: http.StatusCreated,
		Tags:          []string{"Tags"},
	}, s.handleAttachTag)

	huma.Register(s.api, huma.Operation{
		OperationID: "detach-tag",
		Method:      http.MethodDelete,
		Path:        "/api/tags/items/{itemId}/tags/{tagId}",
		Summary:     "Detach tag from item",
		Tags:        []string{"Tags"},
	}, s.handleDetachTag)
}

// === DTOs ===

// TagRequest is the wire body for tag create/update.
type TagRequest struct {
	Name  *string `json:"name,omitempty" doc:"Tag name"`
	Color *string `json:"color,omitempty" doc:"Display color class"`
}

// CreateTagInput wraps a tag creation for Huma.
type CreateTagInput struct {
	Authorization string `header:"Authorization"`
	Body          TagRequest
}

// UpdateTagInput wraps a tag update for Huma.
type UpdateTagInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Tag id"`
	Body          TagRequest
}

// TagOutput wraps a single tag for Huma.
type TagOutput struct {
	Body domain.Tag
}

// TagsOutput wraps a flat tag list for Huma.
type TagsOutput struct {
	Body []domain.Tag
}

// ItemTagInput identifies an item/tag pair by path parameters.
type ItemTagInput struct {
	Authorization string `header:"Authorization"`
	ItemID        string `path:"itemId" doc:"Item id"`
	TagID         string `path:"tagId" doc:"Tag id"`
}

// === Handlers ===

func (s *Server) handleListTags(ctx context.Context, input *AuthedInput) (*TagsOutput, error) {
	user, err := s.currentUser(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	tags, err := s.store.ListTags(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Tag, 0, len(tags))
	for _, t := range tags {
		out = append(out, *t)
	}
	return &TagsOutput{Body: out}, nil
}

func (s *Server) handleCreateTag(ctx context.Context, input *CreateTagInput) (*TagOutput, error) {
	user, err := s.currentUser(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	t := &domain.Tag{}
	if input.Body.Name != nil {
		t.Name = *input.Body.Name
	}
	if input.Body.Color != nil {
		t.Color = *input.Body.Color
	}

	if err := s.store.CreateTag(ctx, user.ID, t); err != nil {
		return nil, err
	}
	return &TagOutput{Body: *t}, nil
}

func (s *Server) handleUpdateTag(ctx context.Context, input *UpdateTagInput) (*TagOutput, error) {
	user, err := s.currentUser(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	t, err := s.store.UpdateTag(ctx, user.ID, input.ID, input.Body.Name, input.Body.Color)
	if err != nil {
		return nil, err
	}
	return &TagOutput{Body: *t}, nil
}

func (s *Server) handleDeleteTag(ctx context.Context, input *struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Tag id"`
}) (*MessageOutput, error) {
	user, err := s.currentUser(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	if err := s.store.DeleteTag(ctx, user.ID, input.ID); err != nil {
		return nil, err
	}
	return messageOutput("Tag excluída com sucesso"), nil
}

func (s *Server) handleListTagItems(ctx context.Context, input *struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Tag id"`
}) (*ItemsOutput, error) {
	user, err := s.currentUser(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	// 404 when the tag does not exist, matching the item-list routes.
	if _, err := s.store.GetTag(ctx, user.ID, input.ID); err != nil {
		return nil, err
	}

	items, err := s.store.ListTagItems(ctx, user.ID, input.ID)
	if err != nil {
		return nil, err
	}
	return &ItemsOutput{Body: derefItems(items)}, nil
}

func (s *Server) handleAttachTag(ctx context.Context, input *ItemTagInput) (*MessageOutput, error) {
	user, err := s.currentUser(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	if err := s.store.AttachTag(ctx, user.ID, input.ItemID, input.TagID); err != nil {
		return nil, err
	}
	return messageOutput("Tag adicionada ao item com sucesso"), nil
}

func (s *Server) handleDetachTag(ctx context.Context, input *ItemTagInput) (*MessageOutput, error) {
	user, err := s.currentUser(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	if err := s.store.DetachTag(ctx, user.ID, input.ItemID, input.TagID); err != nil {
		return nil, err
	}
	return messageOutput("Tag removida do item com sucesso"), nil
}
