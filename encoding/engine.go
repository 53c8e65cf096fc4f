package encoding

import (
	"bytes"
	"io"
	"log/slog"
	"strings"

	"github.com/illuscio-dev/spangraph-go/beans"
	"github.com/illuscio-dev/spangraph-go/graph"
	"github.com/illuscio-dev/spangraph-go/mimetype"
	"github.com/illuscio-dev/spangraph-go/negotiate"
	"github.com/illuscio-dev/spangraph-go/spanerrors"
	"github.com/illuscio-dev/spangraph-go/swaps"
	"golang.org/x/xerrors"
)

// Type helpers
type encoderMapping map[mimetype.MimeType]Encoder
type decoderMapping map[mimetype.MimeType]Decoder

type registeredDecoder struct {
	mimeType mimetype.MimeType
	decoder  Decoder
}

/*
ContentEngine details the contract for a content encoding engine. The goal of the
content engine is to allow a common decoding and encoding methodology for any
supported mimetype, allowing easy support for client-requested payload encodings, and
a shared interface for different types of services to add support for various
encoding types.
*/
type ContentEngine interface {
	// Registers an encoder for a given mimetype.
	SetEncoder(mimeType mimetype.MimeType, encoder Encoder)

	// Registers a decoder for a given mimetype.
	SetDecoder(mimeType mimetype.MimeType, decoder Decoder)

	// Returns true if the engine has a registered encoder for the mimetype.
	HandlesEncode(mimeType mimetype.MimeType) bool

	// Returns true if the engine has a registered decoder for the mimetype.
	HandlesDecode(mimeType mimetype.MimeType) bool

	// Returns true if the engine has a registered encoder AND decoder for the mimetype.
	Handles(mimeType mimetype.MimeType) bool

	// Whether the engine will attempt to encode / decode unknown mimetypes.
	SniffType() bool

	// Mimetypes with a registered encoder, in registration order.
	EncodeTypes() []mimetype.MimeType

	// Picks the encode type that best satisfies an Accept header.
	Negotiate(accept string) (mimetype.MimeType, bool)

	// The graph used to convert content to and from neutral trees.
	Graph() *graph.Graph

	// Decode mimeType content from reader using the decoder for mimeType. Decoded
	// content is stored in contentReceiver.
	Decode(
		mimeType mimetype.MimeType,
		contentReceiver interface{},
		reader io.Reader,
	) error

	// Encode content as mimetype using registered mimeType to writer.
	Encode(
		mimeType mimetype.MimeType,
		content interface{},
		writer io.Writer,
	) error
}

/*
SpanEngine is the default implementation of the ContentEngine interface.
Implementation is done through an Interface so that the Engine can be extended
through type wrapping.

Instantiation

Use NewContentEngine() or NewContentEngineFromConfig() to create a new SpanEngine.

Default Mimetypes

• application/json

• application/bson

• application/yaml

• application/msgpack

• application/cbor

• application/binc

• text/csv

• text/plain

Every object format converts content to a neutral tree through the engine's
graph.Graph and writes that tree, so swaps, bean settings and type discriminators
registered on the graph apply to every format alike. Content that already is a
*neutral.Value is written as-is, and a *neutral.Value receiver gets the decoded tree.

JSON is read and written with go-json-experiment's jsontext, keeping mapping order.
MsgPack, CBOR and Binc use the codec library (https://godoc.org/github.com/ugorji/go/codec).
BSON uses the official driver (https://godoc.org/go.mongodb.org/mongo-driver); top-level
lists are written as documents separated by BsonListSepString. YAML uses yaml.v2 with
ordered mappings.

Default Text/Plain Returns

When encoding to plaintext, format.Sprint is used on the passed object, so any type
can be sent and represented as text.

Type Sniffing

If created with "sniffMimeType" set to true, when decoding SpanEngine will attempt
to use each decoder until one does not return an error or panic. Decoders are tried in
the order they were registered.

Content-Codings

EncodeNegotiated and DecodeContent apply the gzip, deflate and zstd codings of the
Accept-Encoding and Content-Encoding headers.

Panics

If an encoder or decoder panics during execution, that panic is caught and returned as
an error.
*/
type SpanEngine struct {
	// MimeType:Encoder mapping
	encoders encoderMapping
	// MimeType:Decoder mapping
	decoders decoderMapping
	// Mimetypes with an encoder in registration order. Used for negotiation.
	encodeTypes []mimetype.MimeType
	// List of all registered decoders in registration order. Used for sniffing.
	decoderList []registeredDecoder
	// Whether to attempt decoding when no explicit mimetype is known.
	sniffMimeType bool

	// Graph used by the object formats.
	graph *graph.Graph
	// Content-codings offered when negotiating, in preference order.
	codingNames []string
	// Name:Coding mapping of the offered codings.
	codings map[string]Coding
	// Logger for negotiation and sniffing events.
	logger *slog.Logger

	// Engine to pass to Encoder.Encoder() and Decoder.Decode() methods.
	passedEngine ContentEngine
}

// Change the engine passed into Encoder.Encode() and decoder.Decode()
func (engine *SpanEngine) SetPassedEngine(newEngine ContentEngine) {
	engine.passedEngine = newEngine
}

// Register an encoder for a given mimeType
func (engine *SpanEngine) SetEncoder(mimeType mimetype.MimeType, encoder Encoder) {
	if _, ok := engine.encoders[mimeType]; !ok {
		engine.encodeTypes = append(engine.encodeTypes, mimeType)
	}
	engine.encoders[mimeType] = encoder
}

// Register a decoder for a given mimeType
func (engine *SpanEngine) SetDecoder(mimeType mimetype.MimeType, decoder Decoder) {
	engine.decoders[mimeType] = decoder

	// Replacing a decoder keeps its place in the sniff order.
	for index, registered := range engine.decoderList {
		if registered.mimeType == mimeType {
			engine.decoderList[index].decoder = decoder
			return
		}
	}
	engine.decoderList = append(
		engine.decoderList, registeredDecoder{mimeType: mimeType, decoder: decoder},
	)
}

// Whether SpanEngine will attempt to decode UNKNOWN content.
func (engine *SpanEngine) SniffType() bool {
	return engine.sniffMimeType
}

// Whether the SpanEngine has a registered encoder for mimeType.
func (engine *SpanEngine) HandlesEncode(mimeType mimetype.MimeType) bool {
	_, ok := engine.encoders[mimeType]
	return ok
}

// Whether the SpanEngine has a registered decoder for mimeType.
func (engine *SpanEngine) HandlesDecode(mimeType mimetype.MimeType) bool {
	_, ok := engine.decoders[mimeType]
	return ok
}

// Whether the SpanEngine has a registered decoder AND encoder for mimeType.
func (engine *SpanEngine) Handles(mimeType mimetype.MimeType) bool {
	return engine.HandlesEncode(mimeType) && engine.HandlesDecode(mimeType)
}

// Mimetypes with a registered encoder, in registration order.
func (engine *SpanEngine) EncodeTypes() []mimetype.MimeType {
	encodeTypes := make([]mimetype.MimeType, len(engine.encodeTypes))
	copy(encodeTypes, engine.encodeTypes)
	return encodeTypes
}

// Negotiate picks the encode type that best satisfies accept. Ties go to the type
// registered first.
func (engine *SpanEngine) Negotiate(accept string) (mimetype.MimeType, bool) {
	return negotiate.Accept(accept, engine.encodeTypes)
}

// The graph used to convert content to and from neutral trees.
func (engine *SpanEngine) Graph() *graph.Graph {
	return engine.graph
}

// Replaces the graph used by the object formats.
func (engine *SpanEngine) SetGraph(newGraph *graph.Graph) {
	engine.graph = newGraph
}

// Registers a bean type with the graph's bean registry.
func (engine *SpanEngine) RegisterBeans(sample interface{}, config beans.BeanConfig) error {
	return engine.graph.Beans().Register(sample, config)
}

// Registers swaps with the graph's swap registry.
func (engine *SpanEngine) RegisterSwaps(newSwaps ...*swaps.Swap) error {
	return engine.graph.Swaps().Register(newSwaps...)
}

/*
SetLogger sets the logger for negotiation outcomes and sniffing failures, both written
at debug level. Graph events are reported to the same logger through a
graph.LogListener.
*/
func (engine *SpanEngine) SetLogger(logger *slog.Logger) {
	engine.logger = logger
	engine.graph = engine.graph.WithListener(graph.NewLogListener(logger))
}

// The engine's logger. Discards everything unless SetLogger was called.
func (engine *SpanEngine) Logger() *slog.Logger {
	return engine.logger
}

// Content-codings offered when negotiating, in preference order.
func (engine *SpanEngine) Codings() []string {
	codingNames := make([]string, len(engine.codingNames))
	copy(codingNames, engine.codingNames)
	return codingNames
}

// Registers or replaces a content-coding under name.
func (engine *SpanEngine) SetCoding(name string, coding Coding) {
	if _, ok := engine.codings[name]; !ok {
		engine.codingNames = append(engine.codingNames, name)
	}
	engine.codings[name] = coding
}

// Select what engine to pass into the encoder / decoder in case we are extending
// the engine type.
func (engine *SpanEngine) getEngine() (passEngine ContentEngine) {
	if engine.passedEngine != nil {
		passEngine = engine.passedEngine
	} else {
		passEngine = engine
	}

	return passEngine
}

// Turns a recovered panic value into an error.
func panicError(stage string, recovered interface{}) error {
	if err, ok := recovered.(error); ok {
		return xerrors.Errorf("panic during %v: %w", stage, err)
	}
	return xerrors.Errorf("panic during %v: %v", stage, recovered)
}

// Uses an encoder while catching panics to return as errors
func (engine *SpanEngine) safeEncode(
	encoder Encoder, writer io.Writer, content interface{},
) (err error) {
	defer func() {
		recovered := recover()
		if recovered != nil {
			err = panicError("encode", recovered)
		}
	}()

	passEngine := engine.getEngine()
	err = encoder.Encode(passEngine, writer, content)
	return err
}

// Uses a decoder while catching panics to return as errors
func (engine *SpanEngine) safeDecode(
	decoder Decoder, reader io.Reader, contentReceiver interface{},
) (err error) {
	defer func() {
		recovered := recover()
		if recovered != nil {
			err = panicError("decode", recovered)
		}
	}()

	passEngine := engine.getEngine()
	err = decoder.Decode(passEngine, reader, contentReceiver)

	return err
}

// Attempts to decode content with all registered decoders until one succeeds or all
// fail.
func (engine *SpanEngine) sniffContent(
	contentReceiver interface{},
	reader io.Reader,
) error {
	// We need to read the content multiple times, so lets load the bytes into a var.
	// This will cause a slight performance hit, which is why this is a separate process
	// from loading a KNOWN mimetype.
	contentBuffer := bytes.NewBuffer(make([]byte, 0))
	if _, err := contentBuffer.ReadFrom(reader); err != nil {
		return xerrors.Errorf("error reading contentBytes: %w", err)
	}

	var lastErr error
	attempted := make([]string, 0, len(engine.decoderList))

	for _, registered := range engine.decoderList {
		// Make a buffer for this attempt, otherwise we'll run out of bytes.
		thisReader := bytes.NewBuffer(contentBuffer.Bytes())
		thisErr := engine.safeDecode(registered.decoder, thisReader, contentReceiver)

		if thisErr == nil {
			engine.logger.Debug(
				"sniffed content type", slog.String("mimetype", string(registered.mimeType)),
			)
			return nil
		}

		engine.logger.Debug(
			"sniff attempt failed",
			slog.String("mimetype", string(registered.mimeType)),
			slog.String("error", thisErr.Error()),
		)
		attempted = append(attempted, string(registered.mimeType))
		lastErr = thisErr
	}

	return spanerrors.ParseError.New(
		"content could not be decoded by any registered decoder",
		map[string]interface{}{"attempted": attempted},
		lastErr,
	)
}

// Picks the mimetype for encoding / decoding objects when source or target mimetype is
// unknown.
func pickContentMimeType(
	mimeType mimetype.MimeType, content interface{}, encoding bool,
) mimetype.MimeType {
	if mimeType == mimetype.UNKNOWN {
		var useType mimetype.MimeType

		switch content.(type) {
		case string:
			useType = mimetype.TEXT
		case *string:
			useType = mimetype.TEXT
		default:
			useType = mimetype.JSON
		}

		// If we are decoding, we only want to force a text decoding if the receiver is
		// a string.
		if encoding || useType == mimetype.TEXT {
			mimeType = useType
		}
	}
	return mimeType
}

func (engine *SpanEngine) Decode(
	mimeType mimetype.MimeType,
	contentReceiver interface{},
	reader io.Reader,
) error {
	mimeType = pickContentMimeType(mimeType, contentReceiver, false)

	// Close the reader if it's a closer.
	if readCloser, ok := reader.(io.ReadCloser); ok {
		defer func() {
			_ = readCloser.Close()
		}()
	}

	// If we want to sniff
	if mimeType == mimetype.UNKNOWN {
		if !engine.SniffType() {
			return xerrors.New("mimetype is unknown and sniffing is disabled")
		}
		return engine.sniffContent(contentReceiver, reader)
	}

	decoder, ok := engine.decoders[mimeType]
	if !ok {
		return xerrors.New("no decoder for " + string(mimeType))
	}

	err := engine.safeDecode(decoder, reader, contentReceiver)
	if err != nil {
		return xerrors.Errorf("decode err: %w", err)
	}

	return nil
}

func (engine *SpanEngine) Encode(
	mimeType mimetype.MimeType,
	content interface{},
	writer io.Writer,
) error {
	mimeType = pickContentMimeType(mimeType, content, true)

	encoder, ok := engine.encoders[mimeType]
	if !ok {
		return xerrors.New("no encoder for " + string(mimeType))
	}

	err := engine.safeEncode(encoder, writer, content)
	if err != nil {
		return xerrors.Errorf(
			"encode err: %w", err,
		)
	}
	return nil
}

// NewContentEngine returns an engine with the default formats, codings and graph.
func NewContentEngine(allowSniff bool) (*SpanEngine, error) {
	config := DefaultConfig()
	config.AllowSniff = allowSniff
	return NewContentEngineFromConfig(config)
}

// NewContentEngineFromConfig returns an engine for config. options configure the graph
// built from config.Graph.
func NewContentEngineFromConfig(
	config Config, options ...graph.Option,
) (*SpanEngine, error) {
	// Create the content engine.
	engine := &SpanEngine{
		encoders:      make(encoderMapping),
		decoders:      make(decoderMapping),
		sniffMimeType: config.AllowSniff,
		graph:         graph.NewGraph(config.Graph, options...),
		codings:       make(map[string]Coding),
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, name := range config.Codings {
		coding, ok := lookupCoding(name)
		if !ok {
			return nil, xerrors.New("unknown content coding " + name)
		}
		// identity is always acceptable and needs no registration.
		if coding == nil {
			continue
		}
		engine.SetCoding(strings.ToLower(strings.TrimSpace(name)), coding)
	}

	formats := []struct {
		mimeType mimetype.MimeType
		format   interface {
			Encoder
			Decoder
		}
	}{
		{mimetype.JSON, &jsonEncoder{}},
		{mimetype.BSON, &bsonEncoder{}},
		{mimetype.YAML, &yamlEncoder{}},
		{mimetype.MSGPACK, &codecEncoder{name: "msgpack", handle: newMsgpackHandle()}},
		{mimetype.CBOR, &codecEncoder{name: "cbor", handle: newCborHandle()}},
		{mimetype.BINC, &codecEncoder{name: "binc", handle: newBincHandle()}},
		{mimetype.CSV, &csvEncoder{}},
		{mimetype.TEXT, &textEncoder{}},
	}

	// Add the default encoders and decoders.
	for _, format := range formats {
		engine.SetEncoder(format.mimeType, format.format)
		engine.SetDecoder(format.mimeType, format.format)
	}

	return engine, nil
}
