package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeInputFormat(t *testing.T) {
	assert.Equal(t, "txt", normalizeInputFormat("urls.txt", ""))
	assert.Equal(t, "txt", normalizeInputFormat("urls.list", ""))
	assert.Equal(t, "jsonl", normalizeInputFormat("urls.jsonl", ""))
	assert.Equal(t, "csv", normalizeInputFormat("urls.csv", ""))
	assert.Equal(t, "csv", normalizeInputFormat("urls.dat", ""))
	assert.Equal(t, "jsonl", normalizeInputFormat("urls.txt", "JSONL"))
}

func TestNormalizeOutputFormat(t *testing.T) {
	assert.Equal(t, "csv", normalizeOutputFormat("out.csv", ""))
	assert.Equal(t, "jsonl", normalizeOutputFormat("out.jsonl", ""))
	assert.Equal(t, "jsonl", normalizeOutputFormat("out.dat", ""))
	assert.Equal(t, "csv", normalizeOutputFormat("out.jsonl", "csv"))
}

func TestReadTxtSkipsBlanksAndComments(t *testing.T) {
	input := "http://a.example/\n\n# comment\n  https://b.example/path  \n"

	entries, err := readTxt(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "http://a.example/", entries[0].URL)
	assert.Equal(t, "https://b.example/path", entries[1].URL)
}

func TestReadJSONLAcceptsStringsAndObjects(t *testing.T) {
	input := `"http://bare.example/"
{"url":"http://labeled.example/","label":"phishing"}
{"not_a_url":"x"}
garbage line
`

	entries, err := readJSONL(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "http://bare.example/", entries[0].URL)
	assert.Empty(t, entries[0].Label)
	assert.Equal(t, "http://labeled.example/", entries[1].URL)
	assert.Equal(t, "phishing", entries[1].Label)
}

func TestReadCSVWithLabels(t *testing.T) {
	input := "url,label\nhttp://a.example/,benign\nhttp://b.example/,\n,phishing\n"

	entries, err := readCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "benign", entries[0].Label)
	assert.Empty(t, entries[1].Label)
}

func TestReadCSVRequiresURLColumn(t *testing.T) {
	_, err := readCSV(strings.NewReader("host,label\na.example,benign\n"))
	assert.Error(t, err)
}
