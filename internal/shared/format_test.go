package shared

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatIndonesianGrouping(t *testing.T) {
	assert.Equal(t, "1.234.567", FormatInt(1234567))
	assert.Equal(t, "0", FormatInt(0))
	assert.True(t, strings.HasPrefix(FormatRupiah(50000), "Rp50"))
	assert.Contains(t, FormatDecimal(5.5, 2), ",50")
}
