package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type sample struct {
	Title string   `json:"title" validate:"required,max=10"`
	Lat   *float64 `json:"latitude" validate:"omitempty,latitude"`
	Price *float64 `json:"price" validate:"omitempty,gte=0"`
}

func TestCheck(t *testing.T) {
	v := New()
	v.Check(true, "a", "never")
	v.Check(false, "b", "first")
	v.Check(false, "b", "second")

	assert.False(t, v.Valid())
	assert.Equal(t, map[string]string{"b": "first"}, v.Errors)
}

func TestStruct_UsesJSONNames(t *testing.T) {
	lat := 120.0
	price := -1.0

	v := New()
	v.Struct(sample{Lat: &lat, Price: &price})

	assert.Equal(t, "must be provided", v.Errors["title"])
	assert.Equal(t, "must be between -90 and 90", v.Errors["latitude"])
	assert.Equal(t, "must be greater than or equal to 0", v.Errors["price"])
}

func TestStruct_Valid(t *testing.T) {
	lat := 36.7
	v := New()
	v.Struct(sample{Title: "docs", Lat: &lat})
	assert.True(t, v.Valid())
}

func TestPermittedValue(t *testing.T) {
	assert.True(t, PermittedValue("sent", "sent", "deliveries"))
	assert.False(t, PermittedValue("x", "sent", "deliveries"))
}
