package model_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ericfisherdev/stadatax/internal/domain/model"
)

func TestError_IsMatchesKind(t *testing.T) {
	err := fmt.Errorf("fetching: %w", model.NewError(model.KindDataUnavailable, "nothing for 2023", nil))

	assert.ErrorIs(t, err, model.ErrDataUnavailable)
	assert.NotErrorIs(t, err, model.ErrMetadataUnavailable)
	assert.Equal(t, model.KindDataUnavailable, model.KindOf(err))
	assert.Equal(t, model.ErrorKind(""), model.KindOf(errors.New("plain")))
}

func TestError_UnwrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := model.NewError(model.KindNoConnectivity, "cannot reach provider", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "cannot reach provider: connection refused", err.Error())
}

func TestUnexpectedShape_TruncatesExcerpt(t *testing.T) {
	payload := []byte(strings.Repeat("x", 800))

	err := model.UnexpectedShape("bad list", payload)

	assert.Len(t, err.Excerpt, 500)
	assert.ErrorIs(t, err, model.ErrUnexpectedResponseShape)
}

func TestDestinationExists_CarriesPath(t *testing.T) {
	err := model.DestinationExists("/tmp/out.csv")

	assert.Equal(t, "/tmp/out.csv", err.Path)
	assert.Contains(t, err.Error(), "/tmp/out.csv")
}

func TestErrorKind_Category(t *testing.T) {
	tests := []struct {
		kind model.ErrorKind
		want model.Category
	}{
		{model.KindCredentialMissing, model.CategoryFixCredential},
		{model.KindCredentialInvalid, model.CategoryFixCredential},
		{model.KindNoConnectivity, model.CategoryRetryLater},
		{model.KindServerUnavailable, model.CategoryRetryLater},
		{model.KindMetadataUnavailable, model.CategoryNoData},
		{model.KindDataUnavailable, model.CategoryNoData},
		{model.KindUnsupportedFormat, model.CategoryChangeDestination},
		{model.KindDestinationExists, model.CategoryChangeDestination},
		{model.KindUnexpectedResponseShape, model.CategoryProviderError},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.kind.Category())
			assert.NotEmpty(t, tt.want.Hint())
		})
	}
}
