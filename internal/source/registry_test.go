// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/research-radar/pkg/types"
)

func TestBuild_PreservesOrderAndIntervals(t *testing.T) {
	cfg := types.SourcesConfig{
		Enabled:      []string{"rss", "ArXiv", "openalex"},
		Journals:     []string{"prl"},
		MinIntervals: map[string]time.Duration{"rss": 3 * time.Second},
	}
	adapters, err := Build(cfg, http.DefaultClient)
	require.NoError(t, err)
	require.Len(t, adapters, 3)

	assert.Equal(t, "rss", adapters[0].Name())
	assert.Equal(t, "arxiv", adapters[1].Name())
	assert.Equal(t, "openalex", adapters[2].Name())
	assert.Equal(t, 3*time.Second, adapters[0].MinRequestInterval())
	assert.Equal(t, ArxivMinInterval, adapters[1].MinRequestInterval())
}

func TestBuild_RejectsUnknownAndDuplicate(t *testing.T) {
	_, err := Build(types.SourcesConfig{Enabled: []string{"crossref"}}, http.DefaultClient)
	assert.ErrorContains(t, err, "unknown source")

	_, err = Build(types.SourcesConfig{Enabled: []string{"arxiv", "arxiv"}}, http.DefaultClient)
	assert.ErrorContains(t, err, "enabled twice")
}

func TestBuildEnricher(t *testing.T) {
	assert.Nil(t, BuildEnricher(types.SourcesConfig{}, http.DefaultClient))
	assert.NotNil(t, BuildEnricher(types.SourcesConfig{EnableSemanticScholar: true}, http.DefaultClient))
}

func TestThrottle_EnforcesInterval(t *testing.T) {
	th := NewThrottle(50 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, th.Wait(ctx))
	require.NoError(t, th.Wait(ctx))
	require.NoError(t, th.Wait(ctx))
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestThrottle_DisabledAndCancelled(t *testing.T) {
	assert.NoError(t, NewThrottle(0).Wait(context.Background()))

	th := NewThrottle(time.Hour)
	require.NoError(t, th.Wait(context.Background()))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, th.Wait(ctx))
}
