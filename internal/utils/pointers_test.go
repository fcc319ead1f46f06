package utils_test

import (
	"testing"

	"github.com/jrsteele09/go-credential-service/internal/utils"
	"github.com/stretchr/testify/require"
)

func TestPtr_CopiesValue(t *testing.T) {
	v := "issuer"
	p := utils.Ptr(v)
	v = "changed"
	require.Equal(t, "issuer", *p)
}
