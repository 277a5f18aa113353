package specs

import (
	"errors"
	"testing"

	"litewms/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestSameSpec(t *testing.T) {
	cases := []struct {
		name string
		a    map[string]string
		b    map[string]string
		want bool
	}{
		{"both empty", map[string]string{}, map[string]string{}, true},
		{"nil equals empty", nil, map[string]string{}, true},
		{"identical", map[string]string{"length": "3m", "color": "blue"},
			map[string]string{"length": "3m", "color": "blue"}, true},
		{"order independent", map[string]string{"color": "blue", "length": "3m"},
			map[string]string{"length": "3m", "color": "blue"}, true},
		{"different value", map[string]string{"length": "3m"},
			map[string]string{"length": "5m"}, false},
		{"case sensitive", map[string]string{"length": "3M"},
			map[string]string{"length": "3m"}, false},
		{"extra key", map[string]string{"length": "3m"},
			map[string]string{"length": "3m", "color": "blue"}, false},
		{"missing key", map[string]string{"length": "3m", "color": "blue"},
			map[string]string{"length": "3m"}, false},
		{"same size different keys", map[string]string{"length": "3m"},
			map[string]string{"width": "3m"}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, SameSpec(tc.a, tc.b))
			assert.Equal(t, tc.want, SameSpec(tc.b, tc.a))
		})
	}
}

func TestValidate(t *testing.T) {
	cat := &models.Category{
		Name: "Fiber",
		Attributes: models.AttributeList{
			{Name: "length", Options: []string{"3m", "5m", "10m"}},
			{Name: "note", Options: nil},
		},
	}

	assert.NoError(t, Validate(cat, map[string]string{"length": "3m"}))
	assert.NoError(t, Validate(cat, map[string]string{"length": "5m", "note": "anything goes"}))
	assert.NoError(t, Validate(cat, nil))

	err := Validate(cat, map[string]string{"width": "3m"})
	assert.True(t, errors.Is(err, models.ErrAttributeMismatch))

	err = Validate(cat, map[string]string{"length": "7m"})
	assert.True(t, errors.Is(err, models.ErrAttributeMismatch))
}
