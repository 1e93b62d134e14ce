package plan

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rangedl/rangedl/pkg/rangedlerr"
	"github.com/rangedl/rangedl/pkg/ranges"
)

type fakeSizeGetter struct {
	size uint64
	err  error
}

func (f fakeSizeGetter) GetSize(ctx context.Context, blobID string) (uint64, error) {
	return f.size, f.err
}

func TestResolveSizeOpenRangeAlwaysQueries(t *testing.T) {
	client := fakeSizeGetter{size: 26}
	size, err := ResolveSize(context.Background(), client, "blob", ranges.All(), false)
	require.NoError(t, err)
	require.NotNil(t, size)
	assert.Equal(t, uint64(26), *size)
}

func TestResolveSizeOpenRangeFailureIsTerminal(t *testing.T) {
	client := fakeSizeGetter{err: errors.New("boom")}
	_, err := ResolveSize(context.Background(), client, "blob", ranges.All(), false)
	require.Error(t, err)
	var rerr *rangedlerr.Error
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, rangedlerr.SizeUnavailable, rerr.Kind)
}

func TestResolveSizeClosedRangeSkipsQueryByDefault(t *testing.T) {
	client := fakeSizeGetter{err: errors.New("should not be called")}
	size, err := ResolveSize(context.Background(), client, "blob", ranges.FromToOffset(1, 11), false)
	require.NoError(t, err)
	assert.Nil(t, size)
}

func TestResolveSizeClosedRangeQueriesWhenAlwaysGetSize(t *testing.T) {
	client := fakeSizeGetter{size: 26}
	size, err := ResolveSize(context.Background(), client, "blob", ranges.ToInclusiveOffset(26), true)
	require.NoError(t, err)
	require.NotNil(t, size)
	assert.Equal(t, uint64(26), *size)
}
