// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package figures

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/pdfextract/internal/layout"
	"github.com/pdiddy/pdfextract/pkg/types"
)

func TestAllText(t *testing.T) {
	src := &fakeSource{pages: []layout.Page{
		{Number: 1, Texts: []layout.TextBlock{{Text: "  Chapter One"}, {Text: "The phlogiston theory\nheld sway.  "}}},
		{Number: 2},
	}}

	pages, err := AllText(context.Background(), src, "a.pdf")
	require.NoError(t, err)
	assert.Equal(t, []types.PageText{
		{Page: 1, Text: "Chapter One\nThe phlogiston theory\nheld sway."},
		{Page: 2, Text: ""},
	}, pages)
}

func TestWriteAllText(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "text")
	long := strings.Repeat("氧", 600)
	pages := []types.PageText{{Page: 1, Text: "short page"}, {Page: 2, Text: long}}
	var out bytes.Buffer

	require.NoError(t, WriteAllText(pages, dir, &out))

	p1, err := os.ReadFile(filepath.Join(dir, "page1.txt"))
	require.NoError(t, err)
	assert.Equal(t, "short page", string(p1))

	p2, err := os.ReadFile(filepath.Join(dir, "page2.txt"))
	require.NoError(t, err)
	assert.Equal(t, long, string(p2))

	full, err := os.ReadFile(filepath.Join(dir, FullTextFile))
	require.NoError(t, err)
	assert.Equal(t, "\n\n--- Page 1 ---\nshort page\n\n--- Page 2 ---\n"+long, string(full))

	assert.Contains(t, out.String(), "\n===== Page 1 =====\nshort page...\n")
	assert.Contains(t, out.String(), "\n===== Page 2 =====\n"+strings.Repeat("氧", 500)+"...\n")
	assert.NotContains(t, out.String(), strings.Repeat("氧", 501))
}
