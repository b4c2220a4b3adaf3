package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiffTests(t *testing.T) {
	before := []TestRef{
		{Name: "CBC", Category: "Haematology", NetAmount: d("300")},
		{Name: "Lipid Profile", Category: "Biochemistry", NetAmount: d("800")},
	}
	after := []TestRef{
		{Name: "C.B.C", Category: "haematology", NetAmount: d("300")},
		{Name: "TSH", Category: "Hormones", NetAmount: d("450")},
	}

	diff := DiffTests(before, after)
	require.Len(t, diff.Added, 1)
	require.Len(t, diff.Removed, 1)
	assert.Equal(t, "TSH", diff.Added[0].Name)
	assert.Equal(t, "Lipid Profile", diff.Removed[0].Name)
	assert.True(t, d("-350").Equal(diff.Delta))
}

func TestDiffSameNameOtherCategory(t *testing.T) {
	before := []TestRef{{Name: "Culture", Category: "Microbiology", NetAmount: d("600")}}
	after := []TestRef{{Name: "Culture", Category: "Serology", NetAmount: d("600")}}

	diff := DiffTests(before, after)
	assert.Len(t, diff.Added, 1)
	assert.Len(t, diff.Removed, 1)
	assert.True(t, diff.Delta.IsZero())
}

func TestDiffNoChange(t *testing.T) {
	refs := Refs([]Line{line("CBC", "Haematology", "300", 2, "100")})
	diff := DiffTests(refs, refs)
	assert.Empty(t, diff.Added)
	assert.Empty(t, diff.Removed)
	assert.True(t, diff.Delta.IsZero())
	assert.True(t, d("500").Equal(refs[0].NetAmount))
}
