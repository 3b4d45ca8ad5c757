package server

import (
	"context"
	"encoding/json/v2"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/promptnote/promptnote/internal/domain"
	"github.com/promptnote/promptnote/internal/errors"
)

func (s *Server) registerItemRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-items",
		Method:      http.MethodGet,
		Path:        "/api/items",
		Summary:     "List items",
		Description: "Returns all of the user's items, newest first.",
		Tags:        []string{"Items"},
	}, s.handleListItems)

	huma.Register(s.api, huma.Operation{
		OperationID:   "create-item",
		Method:        http.MethodPost,
		Path:          "/api/items",
		Summary:       "Create item",
		DefaultStatus: http.StatusCreated,
		Tags:          []string{"Items"},
	}, s.handleCreateItem)

	huma.Register(s.api, huma.Operation{
		OperationID: "get-item",
		Method:      http.MethodGet,
		Path:        "/api/items/{id}",
		Summary:     "Get item",
		Tags:        []string{"Items"},
	}, s.handleGetItem)

	huma.Register(s.api, huma.Operation{
		OperationID: "update-item",
		Method:      http.MethodPut,
		Path:        "/api/items/{id}",
		Summary:     "Update item",
		Description: "Partial update. Only the fields present in the body are written; a null preview clears the stored preview.",
		Tags:        []string{"Items"},
		// The body is a RawBody the handler decodes itself; without this,
		// huma validates the JSON object against the auto-generated
		// string/binary schema and rejects every request with 422.
		SkipValidateBody: true,
	}, s.handleUpdateItem)

	huma.Register(s.api, huma.Operation{
		OperationID: "delete-item",
		Method:      http.MethodDelete,
		Path:        "/api/items/{id}",
		Summary:     "Delete item",
		Tags:        []string{"Items"},
	}, s.handleDeleteItem)

	huma.Register(s.api, huma.Operation{
		OperationID: "list-items-by-collection",
		Method:      http.MethodGet,
		Path:        "/api/items/collection/{collectionId}",
		Summary:     "List items in a collection",
		Tags:        []string{"Items"},
	}, s.handleListItemsByCollection)

	huma.Register(s.api, huma.Operation{
		OperationID:   "create-collection-item",
		Method:        http.MethodPost,
		Path:          "/api/collections/{id}/items",
		Summary:       "Create item in collection",
		Description:   "Alternate creation route. The response wraps the item in an envelope.",
		DefaultStatus: http.StatusCreated,
		Tags:          []string{"Items"},
	}, s.handleCreateCollectionItem)

	huma.Register(s.api, huma.Operation{
		OperationID: "list-collection-items",
		Method:      http.MethodGet,
		Path:        "/api/collections/{id}/items",
		Summary:     "List a collection's items",
		Tags:        []string{"Items"},
	}, s.handleListCollectionItems)
}

// === DTOs ===

// ItemRequest is the wire body for item creation. The wire says
// collectionId where the domain model says collection.
type ItemRequest struct {
	Title        string          `json:"title,omitempty" doc:"Item title"`
	Description  string          `json:"description,omitempty" doc:"Short description"`
	Content      string          `json:"content,omitempty" doc:"Body text, code or prompt"`
	Type         string          `json:"type,omitempty" doc:"note, link, code or prompt"`
	URL          string          `json:"url,omitempty" doc:"Link URL"`
	Observation  string          `json:"observation,omitempty" doc:"Free-text note"`
	Tags         []string        `json:"tags,omitempty" doc:"Tag names"`
	CollectionID string          `json:"collectionId,omitempty" doc:"Owning collection id"`
	Preview      *domain.Preview `json:"preview,omitempty" doc:"Pre-fetched link preview"`
	Favorite     bool            `json:"favorite,omitempty" doc:"Favorite flag"`
}

func (r *ItemRequest) toDomain() *domain.Item {
	return &domain.Item{
		Title:       r.Title,
		Description: r.Description,
		Content:     r.Content,
		Type:        domain.NormalizeItemType(r.Type),
		URL:         r.URL,
		Observation: r.Observation,
		Tags:        r.Tags,
		Collection:  r.CollectionID,
		Preview:     r.Preview,
		Favorite:    r.Favorite,
	}
}

// CreateItemInput wraps an item creation for Huma.
type CreateItemInput struct {
	Authorization string `header:"Authorization"`
	Body          ItemRequest
}

// ItemOutput wraps a single item for Huma.
type ItemOutput struct {
	Body domain.Item
}

// ItemsOutput wraps a flat item list for Huma.
type ItemsOutput struct {
	Body []domain.Item
}

// ItemIDInput identifies an item by path parameter.
type ItemIDInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Item id"`
}

// UpdateItemInput carries a raw body so field presence survives decoding.
// A struct body cannot distinguish an absent preview from an explicit null.
type UpdateItemInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Item id"`
	RawBody       []byte `contentType:"application/json"`
}

// CollectionItemsInput identifies a collection by path parameter.
type CollectionItemsInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Collection id"`
}

// CreateCollectionItemInput wraps the alternate creation route for Huma.
type CreateCollectionItemInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Collection id"`
	Body          ItemRequest
}

// CollectionItemOutput is the enveloped response of the alternate route.
type CollectionItemOutput struct {
	Body struct {
		Item    domain.Item `json:"item"`
		Message string      `json:"message"`
	}
}

// === Handlers ===

func (s *Server) handleListItems(ctx context.Context, input *AuthedInput) (*ItemsOutput, error) {
	user, err := s.currentUser(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	items, err := s.store.ListItems(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return &ItemsOutput{Body: derefItems(items)}, nil
}

func (s *Server) handleCreateItem(ctx context.Context, input *CreateItemInput) (*ItemOutput, error) {
	user, err := s.currentUser(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	it := input.Body.toDomain()
	if err := s.store.CreateItem(ctx, user.ID, it); err != nil {
		return nil, err
	}

	created, err := s.store.GetItem(ctx, user.ID, it.ID)
	if err != nil {
		return nil, err
	}
	return &ItemOutput{Body: *created}, nil
}

func (s *Server) handleGetItem(ctx context.Context, input *ItemIDInput) (*ItemOutput, error) {
	user, err := s.currentUser(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	it, err := s.store.GetItem(ctx, user.ID, input.ID)
	if err != nil {
		return nil, err
	}
	return &ItemOutput{Body: *it}, nil
}

func (s *Server) handleUpdateItem(ctx context.Context, input *UpdateItemInput) (*ItemOutput, error) {
	user, err := s.currentUser(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if len(input.RawBody) > 0 {
		if err := json.Unmarshal(input.RawBody, &fields); err != nil {
			return nil, errors.Validation("corpo da requisição inválido")
		}
	}

	it, err := s.store.UpdateItemFields(ctx, user.ID, input.ID, fields)
	if err != nil {
		return nil, err
	}
	return &ItemOutput{Body: *it}, nil
}

func (s *Server) handleDeleteItem(ctx context.Context, input *ItemIDInput) (*MessageOutput, error) {
	user, err := s.currentUser(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	if err := s.store.DeleteItem(ctx, user.ID, input.ID); err != nil {
		return nil, err
	}
	return messageOutput("Item excluído com sucesso"), nil
}

func (s *Server) handleListItemsByCollection(ctx context.Context, input *struct {
	Authorization string `header:"Authorization"`
	CollectionID  string `path:"collectionId" doc:"Collection id"`
}) (*ItemsOutput, error) {
	user, err := s.currentUser(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	items, err := s.store.ListCollectionItems(ctx, user.ID, input.CollectionID)
	if err != nil {
		return nil, err
	}
	return &ItemsOutput{Body: derefItems(items)}, nil
}

func (s *Server) handleCreateCollectionItem(ctx context.Context, input *CreateCollectionItemInput) (*CollectionItemOutput, error) {
	user, err := s.currentUser(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	it := input.Body.toDomain()
	// The path wins over whatever the body says.
	it.Collection = input.ID
	if err := s.store.CreateItem(ctx, user.ID, it); err != nil {
		return nil, err
	}

	created, err := s.store.GetItem(ctx, user.ID, it.ID)
	if err != nil {
		return nil, err
	}

	out := &CollectionItemOutput{}
	out.Body.Item = *created
	out.Body.Message = "Item criado com sucesso"
	return out, nil
}

func (s *Server) handleListCollectionItems(ctx context.Context, input *CollectionItemsInput) (*ItemsOutput, error) {
	user, err := s.currentUser(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	items, err := s.store.ListCollectionItems(ctx, user.ID, input.ID)
	if err != nil {
		return nil, err
	}
	return &ItemsOutput{Body: derefItems(items)}, nil
}

func derefItems(items []*domain.Item) []domain.Item {
	out := make([]domain.Item, 0, len(items))
	for _, it := range items {
		out = append(out, *it)
	}
	return out
}
