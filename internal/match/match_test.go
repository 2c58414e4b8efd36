package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBest(t *testing.T) {
	names := []string{"Laranite", "Processed Food", "Food", "Quantanium"}

	got, ok := Best(names, "laranite")
	assert.True(t, ok)
	assert.Equal(t, "Laranite", got)

	// exact beats substring even when a longer name contains the query
	got, ok = Best(names, "FOOD")
	assert.True(t, ok)
	assert.Equal(t, "Food", got)

	got, ok = Best(names, "quant")
	assert.True(t, ok)
	assert.Equal(t, "Quantanium", got)

	_, ok = Best(names, "gold")
	assert.False(t, ok)

	_, ok = Best(names, "   ")
	assert.False(t, ok)
}

func TestBestSubstringPrefersShortest(t *testing.T) {
	got, ok := Best([]string{"Medical Supplies Pack", "Medical Supplies"}, "medical")
	assert.True(t, ok)
	assert.Equal(t, "Medical Supplies", got)
}

func TestContainsFold(t *testing.T) {
	assert.True(t, ContainsFold("", "anything"))
	assert.True(t, ContainsFold("hurston", "Lorville", "Hurston", "Stanton"))
	assert.True(t, ContainsFold("  STANTON ", "", "Stanton"))
	assert.False(t, ContainsFold("pyro", "Lorville", "Hurston", "Stanton"))
	assert.False(t, ContainsFold("pyro"))
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"where", "s", "the", "best", "quantanium", "price"},
		Tokenize("Where's the BEST quantanium-price?"))
	assert.Empty(t, Tokenize("!!! ---"))
	assert.Len(t, TokenSet("a a b"), 2)
}
