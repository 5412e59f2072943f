package pinecone

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FAL1989/consultorio-jung/internal/domain"
)

func TestToStruct_ConvertsSlicesAndInts(t *testing.T) {
	s, err := toStruct(map[string]any{
		"text":        "A sombra...",
		"references":  []string{"Aion", "O Eu e o Inconsciente"},
		"chunk_index": 2,
		"empty":       nil,
	})
	require.NoError(t, err)
	f := s.GetFields()
	assert.Equal(t, "A sombra...", f["text"].GetStringValue())
	assert.Equal(t, float64(2), f["chunk_index"].GetNumberValue())
	refs := f["references"].GetListValue().GetValues()
	require.Len(t, refs, 2)
	assert.Equal(t, "Aion", refs[0].GetStringValue())
	assert.NotContains(t, f, "empty")
}

func TestToStruct_Empty(t *testing.T) {
	s, err := toStruct(nil)
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestFilterStruct(t *testing.T) {
	f, err := filterStruct(map[string]string{"concept": "Sombra"})
	require.NoError(t, err)
	eq := f.GetFields()["concept"].GetStructValue().GetFields()["$eq"]
	assert.Equal(t, "Sombra", eq.GetStringValue())

	f, err = filterStruct(nil)
	require.NoError(t, err)
	assert.Nil(t, f)
}

func TestFromStruct_RoundTrip(t *testing.T) {
	s, err := toStruct(map[string]any{"concept": "Persona", "references": []string{"Aion"}})
	require.NoError(t, err)
	md := fromStruct(s)
	assert.Equal(t, "Persona", md["concept"])
	assert.Equal(t, []any{"Aion"}, md["references"])

	assert.Empty(t, fromStruct(nil))
}

func TestNewStorage_RequiresCredentials(t *testing.T) {
	_, err := NewStorage(Config{Index: "jung"})
	var ce *domain.ConfigurationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "pinecone.api_key", ce.Key)

	_, err = NewStorage(Config{APIKey: "k"})
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "pinecone.index_name", ce.Key)
}
