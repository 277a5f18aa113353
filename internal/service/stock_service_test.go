package service

import (
	"errors"
	"math"
	"testing"

	"litewms/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestWholeQuantity(t *testing.T) {
	qty, err := wholeQuantity(4)
	assert.NoError(t, err)
	assert.Equal(t, 4, qty)

	qty, err = wholeQuantity(0)
	assert.NoError(t, err)
	assert.Equal(t, 0, qty)

	qty, err = wholeQuantity(-3)
	assert.NoError(t, err)
	assert.Equal(t, -3, qty)

	// fractional input is rejected, never truncated
	_, err = wholeQuantity(4.5)
	assert.True(t, errors.Is(err, models.ErrValidation))

	_, err = wholeQuantity(math.NaN())
	assert.True(t, errors.Is(err, models.ErrValidation))

	_, err = wholeQuantity(math.Inf(1))
	assert.True(t, errors.Is(err, models.ErrValidation))
}

func TestValidateSchema(t *testing.T) {
	assert.NoError(t, validateSchema(nil))
	assert.NoError(t, validateSchema(models.AttributeList{
		{Name: "length", Options: []string{"3m"}},
		{Name: "color"},
	}))

	err := validateSchema(models.AttributeList{{Name: "  "}})
	assert.True(t, errors.Is(err, models.ErrValidation))

	err = validateSchema(models.AttributeList{
		{Name: "length"},
		{Name: "length"},
	})
	assert.True(t, errors.Is(err, models.ErrValidation))
}
