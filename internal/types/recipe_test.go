package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIngredientAmountDecodesAnyValue(t *testing.T) {
	tests := []struct {
		body string
		want Amount
	}{
		{`{"id":1,"amount":200}`, "200"},
		{`{"id":1,"amount":"200"}`, "200"},
		{`{"id":1,"amount":"abc"}`, "abc"},
		{`{"id":1,"amount":1.5}`, "1.5"},
		{`{"id":1,"amount":null}`, "null"},
		{`{"id":1}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			var item IngredientAmount
			require.NoError(t, json.Unmarshal([]byte(tt.body), &item))
			assert.Equal(t, tt.want, item.Amount)
		})
	}
}
