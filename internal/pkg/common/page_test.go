package common_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vreid/dareme/internal/pkg/common"
)

func TestPageBounds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		total, page, limit int
		start, end         int
	}{
		{0, 1, 20, 0, 0},
		{45, 1, 20, 0, 20},
		{45, 3, 20, 40, 45},
		{45, 4, 20, 45, 45},
		{40, 3, 20, 40, 40},
		{45, 0, 20, 45, 45},
		{45, math.MaxInt, 20, 45, 45},
		{45, math.MaxInt/20 + 2, 20, 45, 45},
	}

	for _, tt := range tests {
		start, end := common.PageBounds(tt.total, tt.page, tt.limit)
		assert.Equal(t, tt.start, start, "%+v", tt)
		assert.Equal(t, tt.end, end, "%+v", tt)
	}
}
