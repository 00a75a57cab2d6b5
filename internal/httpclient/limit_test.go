package httpclient

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadAllWithLimitUnderLimit(t *testing.T) {
	data, err := ReadAllWithLimit(strings.NewReader("hello"), 10)
	require.NoError(t, err)
	require.Equal(t, "hello", string(data))
}

func TestReadAllWithLimitExactLimit(t *testing.T) {
	data, err := ReadAllWithLimit(strings.NewReader("hello"), 5)
	require.NoError(t, err)
	require.Equal(t, "hello", string(data))
}

func TestReadAllWithLimitOverLimit(t *testing.T) {
	_, err := ReadAllWithLimit(strings.NewReader("hello world"), 5)
	require.Error(t, err)
	require.True(t, IsResponseTooLarge(err))
}

func TestReadAllWithLimitZeroMeansUnbounded(t *testing.T) {
	data, err := ReadAllWithLimit(strings.NewReader(strings.Repeat("x", 1024)), 0)
	require.NoError(t, err)
	require.Len(t, data, 1024)
}
