package tfidf

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func TestEmbed_FixedDimensionWithoutPrepare(t *testing.T) {
	e := NewEmbedder(64)
	v, err := e.Embed(context.Background(), "A sombra e a persona")
	require.NoError(t, err)
	assert.Len(t, v, 64)
	assert.Equal(t, 64, e.Dimension())
}

func TestEmbed_Normalized(t *testing.T) {
	e := NewEmbedder(0)
	v, err := e.Embed(context.Background(), "individuação do self e integração da sombra")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, cosine(v, v), 1e-6)
	assert.Len(t, v, DefaultDimension)
}

func TestEmbed_StopwordsOnly(t *testing.T) {
	v, err := NewEmbedder(32).Embed(context.Background(), "de que para the of")
	require.NoError(t, err)
	for _, x := range v {
		assert.Zero(t, x)
	}
}

func TestEmbed_SimilarTextsCloser(t *testing.T) {
	e := NewEmbedder(256)
	require.NoError(t, e.Prepare([]string{
		"A sombra reúne aspectos negados da personalidade",
		"A persona é a máscara social",
		"Os sonhos compensam a atitude consciente",
	}))
	ctx := context.Background()
	q, _ := e.Embed(ctx, "aspectos negados da sombra")
	a, _ := e.Embed(ctx, "A sombra reúne aspectos negados da personalidade")
	b, _ := e.Embed(ctx, "Os sonhos compensam a atitude consciente")
	assert.Greater(t, cosine(q, a), cosine(q, b))
}

func TestPrepare_Errors(t *testing.T) {
	e := NewEmbedder(16)
	assert.Error(t, e.Prepare(nil))
	assert.Error(t, e.Prepare([]string{"de a o"}))
}

func TestEmbed_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewEmbedder(16).Embed(ctx, "sombra")
	assert.ErrorIs(t, err, context.Canceled)
}
