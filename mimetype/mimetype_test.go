package mimetype_test

//revive:disable:import-shadowing reason: Disabled for assert := assert.New(), which is
// the preferred method of using multiple asserts in a test.

import (
	"net/http"
	"testing"

	"github.com/illuscio-dev/spangraph-go/mimetype"
	"github.com/stretchr/testify/assert"
)

func ParameterizeFromString(
	test *testing.T, testStrings []string, mimeTypeExpected mimetype.MimeType,
) {
	for _, mimeTypeString := range testStrings {
		mimeTypeExtracted := mimetype.FromString(mimeTypeString)
		assert.Equal(test, mimeTypeExpected, mimeTypeExtracted, mimeTypeString)
	}
}

func ParameterizeFromHeader(
	test *testing.T, testStrings []string, mimeTypeExpected mimetype.MimeType,
) {
	for _, mimeTypeString := range testStrings {
		req := http.Request{
			Header: make(http.Header),
		}
		req.Header.Set("Content-Type", mimeTypeString)
		mimeTypeExtracted := mimetype.FromHeader(req.Header)
		assert.Equal(test, mimeTypeExpected, mimeTypeExtracted, mimeTypeString)
	}
}

func TestFromString(test *testing.T) {
	testCases := []struct {
		expected mimetype.MimeType
		values   []string
	}{
		{
			expected: mimetype.JSON,
			values: []string{
				"json",
				"JSON",
				"x-json",
				"application/json",
				"application/JSON",
				"application/x-json",
				"application/X-JSON",
				"application/json; charset=utf-8",
			},
		},
		{
			expected: mimetype.BSON,
			values:   []string{"bson", "x-bson", "application/bson", "application/X-BSON"},
		},
		{
			expected: mimetype.YAML,
			values:   []string{"yaml", "x-yaml", "application/yaml", "application/x-yaml"},
		},
		{
			expected: mimetype.MSGPACK,
			values:   []string{"msgpack", "application/msgpack", "application/x-msgpack"},
		},
		{
			expected: mimetype.CBOR,
			values:   []string{"cbor", "application/cbor"},
		},
		{
			expected: mimetype.BINC,
			values:   []string{"binc", "application/binc"},
		},
		{
			expected: mimetype.CSV,
			values:   []string{"text/csv", "TEXT/CSV", "text/CSV; header=present"},
		},
		{
			expected: mimetype.TEXT,
			values:   []string{"text", "TEXT", "text/plain", "TEXT/plain; charset=utf-8"},
		},
		{
			expected: mimetype.UNKNOWN,
			values:   []string{""},
		},
		{
			expected: mimetype.MimeType("text/html"),
			values:   []string{"text/html", "TEXT/HTML", "text/html;level=1"},
		},
	}

	for _, thisCase := range testCases {
		values := thisCase.values
		expected := thisCase.expected

		test.Run(string(expected)+" From String", func(subTest *testing.T) {
			ParameterizeFromString(subTest, values, expected)
		})
		test.Run(string(expected)+" From Header", func(subTest *testing.T) {
			ParameterizeFromHeader(subTest, values, expected)
		})
	}
}

func TestTypeAndSubtype(test *testing.T) {
	assert := assert.New(test)

	assert.Equal("application", mimetype.JSON.Type())
	assert.Equal("json", mimetype.JSON.Subtype())
	assert.Equal("", mimetype.UNKNOWN.Type())
	assert.Equal("", mimetype.MimeType("*/*").Subtype())
}

func TestParseMediaRange(test *testing.T) {
	assert := assert.New(test)

	mediaRange, err := mimetype.ParseMediaRange(
		` Text/HTML ; Level="1" ; q=0.7 ; ext=yes`,
	)
	assert.NoError(err)
	assert.Equal("text", mediaRange.Type)
	assert.Equal("html", mediaRange.Subtype)
	assert.Equal(0.7, mediaRange.Q)
	assert.Equal([]mimetype.Param{{Name: "level", Value: "1"}}, mediaRange.Params)
	assert.Equal([]mimetype.Param{{Name: "ext", Value: "yes"}}, mediaRange.Extensions)
	assert.Equal(mimetype.MimeType("text/html"), mediaRange.MimeType())
	assert.Equal("text/html;level=1;q=0.7;ext=yes", mediaRange.String())

	mediaRange, err = mimetype.ParseMediaRange("*/*")
	assert.NoError(err)
	assert.Equal(1.0, mediaRange.Q)
	assert.Equal("*/*", mediaRange.String())
}

func TestParseMediaRangeMalformed(test *testing.T) {
	malformed := []string{
		"",
		"json",
		"/json",
		"application/",
		"*/json",
		"application/json;q=2",
		"application/json;q=0.1234",
		"application/json;q=abc",
		"application/json;level",
		"text/ht ml",
	}

	for _, value := range malformed {
		_, err := mimetype.ParseMediaRange(value)
		assert.Error(test, err, value)
	}
}

func TestParseMediaTypeRejectsWildcards(test *testing.T) {
	_, err := mimetype.ParseMediaType("text/*")
	assert.Error(test, err)

	_, err = mimetype.ParseMediaType("text/csv")
	assert.NoError(test, err)
}

func TestMediaRangeMatches(test *testing.T) {
	assert := assert.New(test)

	candidate, err := mimetype.ParseMediaType("text/html;level=1;charset=UTF-8")
	assert.NoError(err)

	testCases := []struct {
		rangeText string
		matches   bool
	}{
		{"*/*", true},
		{"text/*", true},
		{"text/html", true},
		{"text/html;level=1", true},
		{"text/html;charset=utf-8", true},
		{"text/html;level=2", true},
		{"text/html;format=flowed", true},
		{"text/plain", false},
		{"application/*", false},
	}

	for _, thisCase := range testCases {
		mediaRange, err := mimetype.ParseMediaRange(thisCase.rangeText)
		assert.NoError(err)
		assert.Equal(thisCase.matches, mediaRange.Matches(candidate), thisCase.rangeText)
	}
}

func TestSpecificityOrdering(test *testing.T) {
	assert := assert.New(test)

	parse := func(text string) mimetype.MediaRange {
		mediaRange, err := mimetype.ParseMediaRange(text)
		assert.NoError(err)
		return mediaRange
	}

	assert.Greater(parse("text/html;level=1").Specificity(), parse("text/html").Specificity())
	assert.Greater(parse("text/html").Specificity(), parse("text/*").Specificity())
	assert.Greater(parse("text/*").Specificity(), parse("*/*").Specificity())
	// Parameters after q are extensions and do not narrow the range.
	assert.Equal(parse("text/html").Specificity(), parse("text/html;q=0.5;x=1").Specificity())
}

func TestMediaRangePrecedence(test *testing.T) {
	assert := assert.New(test)

	candidate, err := mimetype.ParseMediaType("text/html;level=1")
	assert.NoError(err)
	plain, err := mimetype.ParseMediaType("text/html")
	assert.NoError(err)

	parse := func(text string) mimetype.MediaRange {
		mediaRange, err := mimetype.ParseMediaRange(text)
		assert.NoError(err)
		return mediaRange
	}

	exact := parse("text/html").Precedence(candidate)
	assert.Greater(parse("text/html;level=1").Precedence(candidate), exact)
	assert.Equal(exact, parse("text/html;level=2").Precedence(candidate))
	assert.Equal(exact, parse("text/html;charset=utf-8").Precedence(plain))
	assert.Greater(exact, parse("text/*;level=1").Precedence(candidate))
	assert.Equal(parse("*/*").Specificity(), parse("*/*").Precedence(candidate))
}
