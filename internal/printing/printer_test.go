package printing_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/felixwingard/garp-shipping-connector/internal/printing"
)

func newTestPrinter(labelDir, documentDir string) *printing.SpoolPrinter {
	return printing.NewSpoolPrinter(labelDir, documentDir, otelzap.New(zap.NewNop()))
}

func spoolFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestSpoolPrinter_PrintLabel(t *testing.T) {
	dir := t.TempDir()
	printer := newTestPrinter(dir, "")

	err := printer.PrintLabel("107739-132888", []byte("%PDF-1.4 label"))

	require.NoError(t, err)
	names := spoolFiles(t, dir)
	require.Len(t, names, 1)
	assert.True(t, strings.HasPrefix(names[0], "107739-132888_label_"))
	assert.True(t, strings.HasSuffix(names[0], ".pdf"))

	content, err := os.ReadFile(filepath.Join(dir, names[0]))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 label", string(content))
}

func TestSpoolPrinter_PrintDocument(t *testing.T) {
	labelDir := t.TempDir()
	docDir := t.TempDir()
	printer := newTestPrinter(labelDir, docDir)

	err := printer.PrintDocument("107739-132888", "shipmentlist", []byte("%PDF-1.4 list"))

	require.NoError(t, err)
	names := spoolFiles(t, docDir)
	require.Len(t, names, 1)
	assert.True(t, strings.HasPrefix(names[0], "107739-132888_shipmentlist_"))
	assert.Empty(t, spoolFiles(t, labelDir), "documents must not land in the label spool")
}

func TestSpoolPrinter_PrintDocument_DefaultKind(t *testing.T) {
	docDir := t.TempDir()
	printer := newTestPrinter(t.TempDir(), docDir)

	require.NoError(t, printer.PrintDocument("107739-132888", "", []byte("x")))

	names := spoolFiles(t, docDir)
	require.Len(t, names, 1)
	assert.Contains(t, names[0], "_document_")
}

func TestSpoolPrinter_DocumentSpoolNotConfigured(t *testing.T) {
	printer := newTestPrinter(t.TempDir(), "")

	err := printer.PrintDocument("107739-132888", "shipmentlist", []byte("x"))

	assert.ErrorIs(t, err, printing.ErrNotConfigured)
}

func TestSpoolPrinter_LabelSpoolNotConfigured(t *testing.T) {
	printer := newTestPrinter("", "")

	err := printer.PrintLabel("107739-132888", []byte("x"))

	assert.ErrorIs(t, err, printing.ErrNotConfigured)
}

func TestSpoolPrinter_CreatesSpoolDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "spool")
	printer := newTestPrinter(dir, "")

	require.NoError(t, printer.PrintLabel("107739-132888", []byte("x")))
	assert.DirExists(t, dir)
}

func TestNopPrinter(t *testing.T) {
	var printer printing.NopPrinter

	assert.NoError(t, printer.PrintLabel("107739-132888", []byte("x")))
	assert.NoError(t, printer.PrintDocument("107739-132888", "shipmentlist", []byte("x")))
}
