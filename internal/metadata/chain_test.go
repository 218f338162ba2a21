package metadata

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "github.com/photoscale/photoscale/internal/errors"
)

type fakeSource struct {
	name  string
	md    *StructuredMetadata
	err   error
	calls int
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Extract(context.Context, []byte, string) (*StructuredMetadata, error) {
	f.calls++
	return f.md, f.err
}

func TestChainFirstWithMakeWins(t *testing.T) {
	t.Parallel()

	first := &fakeSource{name: "a", err: errors.New("broken")}
	second := &fakeSource{name: "b", md: &StructuredMetadata{Make: "DJI"}}
	third := &fakeSource{name: "c", md: &StructuredMetadata{Make: "Other"}}

	res, err := NewChain(first, nil, second, third).Run(t.Context(), nil, "")
	require.NoError(t, err)
	assert.Equal(t, "b", res.Source)
	assert.Equal(t, "DJI", res.Metadata.Make)
	assert.Contains(t, res.Failures, "a")
	assert.Equal(t, 0, third.calls, "chain stops at the first complete result")
}

func TestChainFallsBackWhenNoMake(t *testing.T) {
	t.Parallel()

	gpsOnly := &fakeSource{name: "exif", md: &StructuredMetadata{GPS: &GPSFix{Latitude: 1, Longitude: 2}}}
	withMake := &fakeSource{name: "exiftool", md: &StructuredMetadata{Make: "Parrot"}}

	res, err := NewChain(gpsOnly, withMake).Run(t.Context(), nil, "")
	require.NoError(t, err)
	assert.Equal(t, "exiftool", res.Source)
	assert.Equal(t, 1, gpsOnly.calls)

	res, err = NewChain(gpsOnly).Run(t.Context(), nil, "")
	require.NoError(t, err)
	assert.Equal(t, "exif", res.Source, "partial result is kept when nothing better exists")
	require.NotNil(t, res.Metadata.GPS)
}

func TestChainAllEmpty(t *testing.T) {
	t.Parallel()

	res, err := NewChain(
		&fakeSource{name: "a", md: &StructuredMetadata{}},
		&fakeSource{name: "b", err: errors.New("nope")},
	).Run(t.Context(), nil, "")
	require.NoError(t, err)
	assert.Nil(t, res.Metadata)
	assert.Empty(t, res.Source)
	assert.Equal(t, []string{"a", "b"}, NewChain(&fakeSource{name: "a"}, &fakeSource{name: "b"}).Sources())
}

func TestChainCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	src := &fakeSource{name: "a", md: &StructuredMetadata{Make: "DJI"}}
	_, err := NewChain(src).Run(ctx, nil, "")
	require.Error(t, err)
	assert.True(t, perrors.IsCategory(err, perrors.CategoryCancellation))
	assert.Equal(t, 0, src.calls)
}
