package encoding

import (
	"io"
	"sort"
	"strings"

	"github.com/illuscio-dev/spangraph-go/negotiate"
	"github.com/illuscio-dev/spangraph-go/spanerrors"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// Coding is a content-coding applied on top of an encoded payload, as named by the
// Content-Encoding and Accept-Encoding headers.
type Coding interface {
	// Wraps writer so that written bytes are compressed. Close flushes the coding but
	// does not close writer.
	NewWriter(writer io.Writer) (io.WriteCloser, error)

	// Wraps reader so that read bytes are decompressed.
	NewReader(reader io.Reader) (io.ReadCloser, error)
}

type gzipCoding struct{}

func (gzipCoding) NewWriter(writer io.Writer) (io.WriteCloser, error) {
	return gzip.NewWriter(writer), nil
}

func (gzipCoding) NewReader(reader io.Reader) (io.ReadCloser, error) {
	return gzip.NewReader(reader)
}

// "deflate" in HTTP is the zlib format.
type deflateCoding struct{}

func (deflateCoding) NewWriter(writer io.Writer) (io.WriteCloser, error) {
	return zlib.NewWriter(writer), nil
}

func (deflateCoding) NewReader(reader io.Reader) (io.ReadCloser, error) {
	return zlib.NewReader(reader)
}

type zstdCoding struct{}

func (zstdCoding) NewWriter(writer io.Writer) (io.WriteCloser, error) {
	return zstd.NewWriter(writer)
}

func (zstdCoding) NewReader(reader io.Reader) (io.ReadCloser, error) {
	decoder, err := zstd.NewReader(reader)
	if err != nil {
		return nil, err
	}
	return decoder.IOReadCloser(), nil
}

// Codings known by name. Names are lower case.
var knownCodings = map[string]Coding{
	"gzip":    gzipCoding{},
	"x-gzip":  gzipCoding{},
	"deflate": deflateCoding{},
	"zstd":    zstdCoding{},
}

// KnownCodings returns the names of the built-in content-codings, sorted.
func KnownCodings() []string {
	names := make([]string, 0, len(knownCodings))
	for name := range knownCodings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolves a coding name. identity has no Coding and is reported with ok true.
func lookupCoding(name string) (coding Coding, ok bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == negotiate.Identity {
		return nil, true
	}
	coding, ok = knownCodings[name]
	return coding, ok
}

// Splits a Content-Encoding header into its codings, in the order they were applied.
func splitCodings(header string) []string {
	var names []string
	for _, name := range strings.Split(header, ",") {
		name = strings.ToLower(strings.TrimSpace(name))
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}

// Undoes the codings of a Content-Encoding header on reader, resolving names with
// lookup. The returned function closes every decoding layer.
func decodeCodings(
	header string, reader io.Reader, lookup func(name string) (Coding, bool),
) (io.Reader, func(), error) {
	var closers []io.Closer
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i].Close()
		}
	}

	names := splitCodings(header)
	for i := len(names) - 1; i >= 0; i-- {
		coding, ok := lookup(names[i])
		if !ok {
			closeAll()
			return nil, nil, spanerrors.UnsupportedMediaTypeError.New(
				"unsupported content coding "+names[i],
				map[string]interface{}{"coding": names[i]},
				nil,
			)
		}
		if coding == nil {
			continue
		}

		decoded, err := coding.NewReader(reader)
		if err != nil {
			closeAll()
			return nil, nil, spanerrors.ParseError.New(
				"error opening "+names[i]+" content", nil, err,
			)
		}
		closers = append(closers, decoded)
		reader = decoded
	}

	return reader, closeAll, nil
}
