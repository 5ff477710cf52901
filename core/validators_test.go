package core

import (
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsPersonName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{name: "empty", in: "", want: false},
		{name: "latin", in: "Ada Lovelace", want: true},
		{name: "hangul", in: "철수", want: true},
		{name: "leading space", in: " Ada", want: false},
		{name: "control char", in: "Ada\x00", want: false},
		{name: "too long", in: strings.Repeat("a", 65), want: false},
		{name: "max length", in: strings.Repeat("가", 64), want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsPersonName(tt.in))
		})
	}
}

func TestInitValidators(t *testing.T) {
	validate := validator.New()
	translator := NewTranslator()
	InitValidators(validate, translator)

	type payload struct {
		Name  string `json:"name" validate:"required,personname"`
		Email string `json:"email" validate:"required,email"`
	}

	err := validate.Struct(payload{Name: "\tBob", Email: ""})
	require.Error(t, err)

	msgs := make(map[string]string)
	for _, fe := range err.(validator.ValidationErrors) {
		msgs[fe.Field()] = fe.Translate(translator)
	}
	assert.Equal(t, map[string]string{
		"name":  personNameText,
		"email": requiredText,
	}, msgs)
}
