package validator

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lineRequest struct {
	ProductID string `json:"product_id" validate:"required,notblank"`
	Size      string `json:"size" validate:"omitempty,max=16"`
	Quantity  int    `json:"quantity" validate:"gte=0,lte=100"`
}

func TestValidate_Success(t *testing.T) {
	assert.NoError(t, Validate(lineRequest{ProductID: "42", Size: "M", Quantity: 2}))
}

func TestValidate_FieldsUseJSONNames(t *testing.T) {
	err := Validate(lineRequest{Quantity: 2})
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "is required", valErr.Fields()["product_id"])
	assert.Contains(t, err.Error(), "field 'product_id'")
}

func TestValidate_NotBlank(t *testing.T) {
	err := Validate(lineRequest{ProductID: "   "})
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "must not be blank", valErr.Fields()["product_id"])
}

func TestValidate_Ranges(t *testing.T) {
	err := Validate(lineRequest{ProductID: "1", Size: "XXXXXXXXXXXXXXXXXL", Quantity: 101})
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	fields := valErr.Fields()
	assert.Contains(t, fields["size"], "at most 16")
	assert.Contains(t, fields["quantity"], "less than or equal to 100")
}

type oneofStruct struct {
	Backend string `json:"backend" validate:"oneof=memory redis postgres"`
}

func TestValidate_OneOf(t *testing.T) {
	err := Validate(oneofStruct{Backend: "sqlite"})
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Fields()["backend"], "one of")
}

func TestDecodeAndValidate_Success(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"product_id":"7","size":"L","quantity":3}`))

	var s lineRequest
	require.NoError(t, DecodeAndValidate(req, &s))
	assert.Equal(t, "7", s.ProductID)
	assert.Equal(t, "L", s.Size)
	assert.Equal(t, 3, s.Quantity)
}

func TestDecodeAndValidate_InvalidJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{invalid"))

	var s lineRequest
	err := DecodeAndValidate(req, &s)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode request body")
}

func TestDecodeAndValidate_ValidationFails(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"product_id":"","quantity":1}`))

	var s lineRequest
	err := DecodeAndValidate(req, &s)

	var valErr *ValidationError
	assert.ErrorAs(t, err, &valErr)
}
