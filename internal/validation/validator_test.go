package validation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptnote/promptnote/internal/domain"
	"github.com/promptnote/promptnote/internal/errors"
	"github.com/promptnote/promptnote/internal/validation"
)

type testRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Name     string `json:"name" validate:"required"`
}

func TestValidatorSuccess(t *testing.T) {
	v := validation.New()

	err := v.Validate(testRequest{
		Email:    "teste@exemplo.com",
		Password: "senha12345",
		Name:     "Usuário Teste",
	})
	assert.NoError(t, err)
}

func TestValidatorFieldErrors(t *testing.T) {
	v := validation.New()

	err := v.Validate(testRequest{Email: "not-an-email", Password: "short", Name: ""})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))

	var domainErr *errors.Error
	require.True(t, errors.As(err, &domainErr))
	details, ok := domainErr.Details.(map[string]string)
	require.True(t, ok)
	assert.Contains(t, details, "email")
	assert.Contains(t, details, "password")
	assert.Contains(t, details, "name")
}

func TestItemFormTitleRequired(t *testing.T) {
	err := validation.ItemForm("   ", "", domain.TypeNote, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "O título é obrigatório")
}

func TestItemFormLinkURL(t *testing.T) {
	assert.NoError(t, validation.ItemForm("Um link", "https://example.com", domain.TypeLink, ""))

	err := validation.ItemForm("Um link", "not a url", domain.TypeLink, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestItemFormObservationLength(t *testing.T) {
	long := make([]rune, domain.MaxObservationLength+1)
	for i := range long {
		long[i] = 'a'
	}
	err := validation.ItemForm("Nota", "", domain.TypeNote, string(long))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestCollectionName(t *testing.T) {
	assert.NoError(t, validation.CollectionName("Trabalho"))
	assert.Error(t, validation.CollectionName("  "))
}
