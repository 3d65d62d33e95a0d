package rwlog

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func BenchmarkGetPointer(b *testing.B) {
	num := 10
	for i := 0; i < b.N; i++ {
		_ = GetPointer(&num)
	}
}

func TestGetPointer(t *testing.T) {
	tests := []any{true, 123, "group", struct{ Name string }{Name: "ds0"}}
	for _, test := range tests {
		expected := fmt.Sprintf("%p", &test)
		assert.Equal(t, expected, fmt.Sprintf("0x%x", GetPointer(&test)))
	}
}
