package encoding_test

//revive:disable:import-shadowing reason: Disabled for assert := assert.New(), which is
// the preferred method of using multiple asserts in a test.

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/illuscio-dev/spangraph-go/encoding"
	"github.com/illuscio-dev/spangraph-go/mimetype"
	"github.com/illuscio-dev/spangraph-go/negotiate"
	"github.com/illuscio-dev/spangraph-go/spanerrors"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
)

func TestEngineNegotiate(test *testing.T) {
	testCases := []struct {
		accept   string
		expected mimetype.MimeType
		ok       bool
	}{
		{"", mimetype.JSON, true},
		{"*/*", mimetype.JSON, true},
		{"application/msgpack, application/json;q=0.5", mimetype.MSGPACK, true},
		{"application/json;q=0.5, */*", mimetype.JSON, true},
		{"text/*", mimetype.CSV, true},
		{"text/*, text/csv;q=0", mimetype.TEXT, true},
		{"application/yaml;q=0.2, application/cbor;q=0.9", mimetype.CBOR, true},
		{"image/png", mimetype.UNKNOWN, false},
	}

	engine := createEngine(test)

	for _, thisCase := range testCases {
		test.Run(thisCase.accept, func(test *testing.T) {
			mimeType, ok := engine.Negotiate(thisCase.accept)
			assert.Equal(test, thisCase.ok, ok)
			assert.Equal(test, thisCase.expected, mimeType)
		})
	}
}

func TestNegotiateRepresentation(test *testing.T) {
	testCases := []struct {
		name     string
		headers  http.Header
		expected encoding.Representation
	}{
		{
			name:    "Defaults",
			headers: http.Header{},
			expected: encoding.Representation{
				MimeType: mimetype.JSON, Charset: "utf-8", Coding: negotiate.Identity,
			},
		},
		{
			name: "Gzip",
			headers: http.Header{
				"Accept":          {"application/yaml"},
				"Accept-Encoding": {"gzip, deflate"},
			},
			expected: encoding.Representation{
				MimeType: mimetype.YAML, Charset: "utf-8", Coding: "gzip",
			},
		},
		{
			name: "PreferredZstd",
			headers: http.Header{
				"Accept":          {"application/msgpack"},
				"Accept-Encoding": {"gzip;q=0.5, zstd"},
			},
			expected: encoding.Representation{
				MimeType: mimetype.MSGPACK, Coding: "zstd",
			},
		},
		{
			name: "UnsupportedCodingFallsBackToIdentity",
			headers: http.Header{
				"Accept-Encoding": {"br"},
			},
			expected: encoding.Representation{
				MimeType: mimetype.JSON, Charset: "utf-8", Coding: negotiate.Identity,
			},
		},
		{
			name: "BinaryIgnoresCharset",
			headers: http.Header{
				"Accept":         {"application/bson"},
				"Accept-Charset": {"iso-8859-1"},
			},
			expected: encoding.Representation{
				MimeType: mimetype.BSON, Coding: negotiate.Identity,
			},
		},
	}

	engine := createEngine(test)

	for _, thisCase := range testCases {
		test.Run(thisCase.name, func(test *testing.T) {
			representation, err := engine.NegotiateRepresentation(thisCase.headers)
			assert.NoError(test, err)
			assert.Equal(test, thisCase.expected, representation)
		})
	}
}

func TestNegotiateRepresentationNotAcceptable(test *testing.T) {
	testCases := []struct {
		name    string
		headers http.Header
		dataKey string
	}{
		{
			name:    "MediaType",
			headers: http.Header{"Accept": {"image/png"}},
			dataKey: "accept",
		},
		{
			name: "Charset",
			headers: http.Header{
				"Accept":         {"application/json"},
				"Accept-Charset": {"iso-8859-1"},
			},
			dataKey: "acceptCharset",
		},
		{
			name:    "Coding",
			headers: http.Header{"Accept-Encoding": {"br, identity;q=0"}},
			dataKey: "acceptEncoding",
		},
	}

	engine := createEngine(test)

	for _, thisCase := range testCases {
		test.Run(thisCase.name, func(test *testing.T) {
			assert := assert.New(test)

			_, err := engine.NegotiateRepresentation(thisCase.headers)
			assert.True(errors.Is(err, spanerrors.NotAcceptableError))

			var spanError *spanerrors.SpanError
			if assert.True(errors.As(err, &spanError)) {
				assert.Contains(spanError.ErrorData, thisCase.dataKey)
				assert.Contains(spanError.ErrorData, "supported")
			}
		})
	}
}

func TestRepresentationToHeader(test *testing.T) {
	assert := assert.New(test)

	header := http.Header{}
	encoding.Representation{
		MimeType: mimetype.JSON, Charset: "utf-8", Coding: "gzip",
	}.ToHeader(header)

	assert.Equal("application/json; charset=utf-8", header.Get("Content-Type"))
	assert.Equal("gzip", header.Get("Content-Encoding"))

	header = http.Header{}
	encoding.Representation{
		MimeType: mimetype.MSGPACK, Coding: negotiate.Identity,
	}.ToHeader(header)

	assert.Equal("application/msgpack", header.Get("Content-Type"))
	assert.Equal("", header.Get("Content-Encoding"))
}

func TestEncodeNegotiatedGzip(test *testing.T) {
	assert := assert.New(test)
	engine := createEngine(test)

	buffer := new(bytes.Buffer)
	representation, err := engine.EncodeNegotiated(
		http.Header{
			"Accept":          {"application/json"},
			"Accept-Encoding": {"gzip"},
		},
		Name{First: "Harry", Last: "Potter"},
		buffer,
	)
	if !assert.NoError(err) {
		return
	}
	assert.Equal("gzip", representation.Coding)

	reader, err := gzip.NewReader(buffer)
	if !assert.NoError(err) {
		return
	}
	plain, err := io.ReadAll(reader)
	assert.NoError(err)
	assert.Equal(`{"First":"Harry","Last":"Potter"}`+"\n", string(plain))
}

func TestEncodeNegotiatedIdentity(test *testing.T) {
	assert := assert.New(test)
	engine := createEngine(test)

	buffer := new(bytes.Buffer)
	representation, err := engine.EncodeNegotiated(
		http.Header{"Accept": {"text/plain"}}, "hello", buffer,
	)

	assert.NoError(err)
	assert.Equal(negotiate.Identity, representation.Coding)
	assert.Equal("text/plain; charset=utf-8", representation.ContentType())
	assert.Equal("hello", buffer.String())
}

func TestEncodeNegotiatedAcceptWithParameters(test *testing.T) {
	assert := assert.New(test)
	engine := createEngine(test)

	buffer := new(bytes.Buffer)
	representation, err := engine.EncodeNegotiated(
		http.Header{"Accept": {"application/json;charset=utf-8"}},
		Name{First: "Harry", Last: "Potter"},
		buffer,
	)

	assert.NoError(err)
	assert.Equal(mimetype.JSON, representation.MimeType)
	assert.Equal(`{"First":"Harry","Last":"Potter"}`+"\n", buffer.String())
}

func TestEncodeNegotiatedNotAcceptable(test *testing.T) {
	assert := assert.New(test)
	engine := createEngine(test)

	buffer := new(bytes.Buffer)
	_, err := engine.EncodeNegotiated(
		http.Header{"Accept": {"image/png"}}, Name{}, buffer,
	)

	assert.True(errors.Is(err, spanerrors.NotAcceptableError))
	assert.Equal(0, buffer.Len())
}

func TestNegotiatedRoundTrip(test *testing.T) {
	testCases := []struct {
		accept         string
		acceptEncoding string
	}{
		{"application/json", "gzip"},
		{"application/bson", "deflate"},
		{"application/yaml", "zstd"},
		{"application/msgpack", ""},
		{"application/cbor", "x-gzip;q=0.1, zstd;q=0.2"},
		{"text/csv", "deflate"},
	}

	for _, thisCase := range testCases {
		test.Run(thisCase.accept+" "+thisCase.acceptEncoding, func(test *testing.T) {
			assert := assert.New(test)
			engine := createEngine(test)

			buffer := new(bytes.Buffer)
			representation, err := engine.EncodeNegotiated(
				http.Header{
					"Accept":          {thisCase.accept},
					"Accept-Encoding": {thisCase.acceptEncoding},
				},
				Name{First: "Harry", Last: "Potter"},
				buffer,
			)
			if !assert.NoError(err) {
				return
			}

			header := http.Header{}
			representation.ToHeader(header)

			loaded := Name{}
			err = engine.DecodeContent(header, &loaded, buffer)
			assert.NoError(err)
			assert.Equal(Name{First: "Harry", Last: "Potter"}, loaded)
		})
	}
}

func TestDecodeContentStackedCodings(test *testing.T) {
	assert := assert.New(test)
	engine := createEngine(test)

	plain := new(bytes.Buffer)
	assert.NoError(engine.Encode(mimetype.JSON, Name{First: "Harry"}, plain))

	gzipped := new(bytes.Buffer)
	gzipWriter := gzip.NewWriter(gzipped)
	_, err := gzipWriter.Write(plain.Bytes())
	assert.NoError(err)
	assert.NoError(gzipWriter.Close())

	compressed := new(bytes.Buffer)
	zstdWriter, err := zstd.NewWriter(compressed)
	if !assert.NoError(err) {
		return
	}
	_, err = zstdWriter.Write(gzipped.Bytes())
	assert.NoError(err)
	assert.NoError(zstdWriter.Close())

	closer := &TestCloser{Buffer: compressed}

	loaded := Name{}
	err = engine.DecodeContent(
		http.Header{
			"Content-Type":     {"application/json; charset=UTF-8"},
			"Content-Encoding": {"gzip, zstd"},
		},
		&loaded,
		closer,
	)

	assert.NoError(err)
	assert.Equal(Name{First: "Harry"}, loaded)
	assert.True(closer.Closed)
}

func TestDecodeContentSniffsMissingType(test *testing.T) {
	engine := createEngine(test)

	loaded := Name{}
	err := engine.DecodeContent(
		http.Header{}, &loaded, strings.NewReader("First: Harry\n"),
	)

	assert.NoError(test, err)
	assert.Equal(test, Name{First: "Harry"}, loaded)
}

func TestDecodeContentUnsupported(test *testing.T) {
	testCases := []struct {
		name    string
		headers http.Header
	}{
		{
			name:    "MediaType",
			headers: http.Header{"Content-Type": {"text/html"}},
		},
		{
			name:    "Charset",
			headers: http.Header{"Content-Type": {"application/json; charset=latin-1"}},
		},
		{
			name: "Coding",
			headers: http.Header{
				"Content-Type":     {"application/json"},
				"Content-Encoding": {"br"},
			},
		},
	}

	engine := createEngine(test)

	for _, thisCase := range testCases {
		test.Run(thisCase.name, func(test *testing.T) {
			closer := &TestCloser{Buffer: bytes.NewBufferString(`{"First":"Harry"}`)}

			loaded := Name{}
			err := engine.DecodeContent(thisCase.headers, &loaded, closer)

			assert.True(test, errors.Is(err, spanerrors.UnsupportedMediaTypeError))
			assert.True(test, closer.Closed)
		})
	}
}

func TestDecodeContentCorruptCoding(test *testing.T) {
	engine := createEngine(test)

	loaded := Name{}
	err := engine.DecodeContent(
		http.Header{
			"Content-Type":     {"application/json"},
			"Content-Encoding": {"gzip"},
		},
		&loaded,
		bytes.NewBufferString(`{"First":"Harry"}`),
	)

	assert.True(test, errors.Is(err, spanerrors.ParseError))
}

func TestLoadConfig(test *testing.T) {
	assert := assert.New(test)

	config, err := encoding.LoadConfig(strings.NewReader(
		"allowSniff: true\n" +
			"codings: [zstd, identity]\n" +
			"graph:\n" +
			"  sortProperties: true\n" +
			"  maxDepth: 12\n",
	))
	if !assert.NoError(err) {
		return
	}

	assert.True(config.AllowSniff)
	assert.Equal([]string{"zstd", "identity"}, config.Codings)
	assert.True(config.Graph.SortProperties)
	assert.Equal(12, config.Graph.MaxDepth)
	// Unset keys keep their defaults.
	assert.True(config.Graph.IgnoreUnknownProperties)

	engine, err := encoding.NewContentEngineFromConfig(config)
	if !assert.NoError(err) {
		return
	}
	assert.True(engine.SniffType())
	assert.Equal([]string{"zstd"}, engine.Codings())
}

func TestLoadConfigEmpty(test *testing.T) {
	config, err := encoding.LoadConfig(strings.NewReader(""))

	assert.NoError(test, err)
	assert.Equal(test, encoding.DefaultConfig(), config)
}

func TestLoadConfigUnknownKey(test *testing.T) {
	_, err := encoding.LoadConfig(strings.NewReader("allowSnif: true\n"))

	assert.Error(test, err)
	assert.Contains(test, err.Error(), "error reading engine config")
}

func TestEngineUnknownCoding(test *testing.T) {
	config := encoding.DefaultConfig()
	config.Codings = []string{"gzip", "br"}

	engine, err := encoding.NewContentEngineFromConfig(config)

	assert.Nil(test, engine)
	assert.EqualError(test, err, "unknown content coding br")
}

func TestSetCodingIsNegotiated(test *testing.T) {
	assert := assert.New(test)

	config := encoding.DefaultConfig()
	config.Codings = nil
	engine, err := encoding.NewContentEngineFromConfig(config)
	if !assert.NoError(err) {
		return
	}

	representation, err := engine.NegotiateRepresentation(
		http.Header{"Accept-Encoding": {"gzip"}},
	)
	assert.NoError(err)
	assert.Equal(negotiate.Identity, representation.Coding)

	engine.SetCoding("gzip", gzipPassThrough{})

	representation, err = engine.NegotiateRepresentation(
		http.Header{"Accept-Encoding": {"gzip"}},
	)
	assert.NoError(err)
	assert.Equal("gzip", representation.Coding)
}

// A gzip Coding built on the klauspost package directly.
type gzipPassThrough struct{}

func (gzipPassThrough) NewWriter(writer io.Writer) (io.WriteCloser, error) {
	return gzip.NewWriter(writer), nil
}

func (gzipPassThrough) NewReader(reader io.Reader) (io.ReadCloser, error) {
	return gzip.NewReader(reader)
}

func TestSetLoggerReportsNegotiation(test *testing.T) {
	assert := assert.New(test)
	engine := createEngine(test)

	logs := new(bytes.Buffer)
	engine.SetLogger(slog.New(slog.NewTextHandler(
		logs, &slog.HandlerOptions{Level: slog.LevelDebug},
	)))

	_, err := engine.EncodeNegotiated(
		http.Header{"Accept": {"application/json"}}, Name{}, new(bytes.Buffer),
	)
	assert.NoError(err)

	assert.Contains(logs.String(), "negotiated representation")
	assert.Contains(logs.String(), `contentType="application/json; charset=utf-8"`)
	assert.Contains(logs.String(), "coding=identity")
}
