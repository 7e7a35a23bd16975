package extraction_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facturas/internal/extraction"
)

func TestResultScanner_FlatText(t *testing.T) {
	input := `{"key": "factura1.pdf", "response": {"text": "{\"invoiceCode\":\"FAC-1\"}"}}
{"key": "factura2.pdf", "response": {"text": "payload two"}}`

	sc := extraction.NewResultScanner(strings.NewReader(input))

	require.True(t, sc.Scan())
	rec := sc.Record()
	assert.Equal(t, "factura1.pdf", rec.Key)
	assert.Equal(t, `{"invoiceCode":"FAC-1"}`, rec.Text)
	assert.NoError(t, rec.Err)

	require.True(t, sc.Scan())
	assert.Equal(t, "factura2.pdf", sc.Record().Key)
	assert.Equal(t, "payload two", sc.Record().Text)

	assert.False(t, sc.Scan())
	assert.NoError(t, sc.Err())
}

func TestResultScanner_CandidatePartsConcatenated(t *testing.T) {
	input := `{"key": "f.pdf", "response": {"candidates": [{"content": {"parts": [{"text": "{\"invoice"}, {"text": "Code\":\"FAC-9\"}"}]}}]}}`

	sc := extraction.NewResultScanner(strings.NewReader(input))
	require.True(t, sc.Scan())
	rec := sc.Record()
	assert.Equal(t, "f.pdf", rec.Key)
	assert.Equal(t, `{"invoiceCode":"FAC-9"}`, rec.Text)
}

func TestResultScanner_SkipsBlankLines(t *testing.T) {
	input := "\n\n" + `{"key": "a.pdf", "response": {"text": "x"}}` + "\n\n   \n" + `{"key": "b.pdf", "response": {"text": "y"}}` + "\n"

	sc := extraction.NewResultScanner(strings.NewReader(input))
	var keys []string
	for sc.Scan() {
		keys = append(keys, sc.Record().Key)
	}
	assert.Equal(t, []string{"a.pdf", "b.pdf"}, keys)
}

func TestResultScanner_MalformedLineDoesNotAbort(t *testing.T) {
	input := `{"key": "good1.pdf", "response": {"text": "ok"}}
this line is not json
{"key": "good2.pdf", "response": {"text": "ok too"}}`

	sc := extraction.NewResultScanner(strings.NewReader(input))

	require.True(t, sc.Scan())
	assert.NoError(t, sc.Record().Err)

	require.True(t, sc.Scan())
	assert.Error(t, sc.Record().Err)

	require.True(t, sc.Scan())
	assert.Equal(t, "good2.pdf", sc.Record().Key)
	assert.NoError(t, sc.Record().Err)

	assert.False(t, sc.Scan())
}

func TestResultScanner_ServiceError(t *testing.T) {
	input := `{"key": "broken.pdf", "error": {"message": "could not read document"}}
{"key": "broken2.pdf", "error": "bare string error"}`

	sc := extraction.NewResultScanner(strings.NewReader(input))

	require.True(t, sc.Scan())
	rec := sc.Record()
	assert.Equal(t, "broken.pdf", rec.Key)
	var recErr *extraction.RecordError
	require.ErrorAs(t, rec.Err, &recErr)
	assert.Equal(t, "could not read document", recErr.Message)

	require.True(t, sc.Scan())
	rec = sc.Record()
	require.ErrorAs(t, rec.Err, &recErr)
	assert.Equal(t, "bare string error", recErr.Message)
}

func TestResultScanner_MissingResponseAndError(t *testing.T) {
	sc := extraction.NewResultScanner(strings.NewReader(`{"key": "empty.pdf"}`))
	require.True(t, sc.Scan())
	assert.Error(t, sc.Record().Err)
	assert.Equal(t, "empty.pdf", sc.Record().Key)
}
