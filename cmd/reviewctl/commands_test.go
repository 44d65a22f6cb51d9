package main

import (
	"bytes"
	"testing"

	"doc-review-be/internal/dto"
	"doc-review-be/pkg/review/criteria"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
}

func TestPrintUsage_FormatsEuroWithFourDecimals(t *testing.T) {
	var buf bytes.Buffer
	printUsage(&buf, dto.UsageDTO{TokenTotal: 1500, CostTotal: 0.0075})
	assert.Equal(t, "Tokens: 1500  Kosten: €0.0075\n", buf.String())
}

func TestPrintStatus(t *testing.T) {
	var buf bytes.Buffer
	printStatus(&buf, "Datenschutz", string(criteria.StatusFail))
	assert.Equal(t, "fail     Datenschutz\n", buf.String())
}

func TestPrintCatalog_ListsEveryGroup(t *testing.T) {
	catalog, err := criteria.DefaultCatalog()
	require.NoError(t, err)

	var buf bytes.Buffer
	printCatalog(&buf, catalog)
	for _, g := range catalog.Groups {
		assert.Contains(t, buf.String(), g.ID)
	}
}

func TestRootCmd_RegistersSubcommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"catalog", "check", "chat", "watch"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}
}
