package graph

// DefaultDiscriminatorKey is the mapping key holding a bean's registered type name.
const DefaultDiscriminatorKey = "_type"

/*
Config holds the options of a Graph. It is a plain value: build it once, with a struct
literal or by adjusting DefaultConfig, and pass it to NewGraph.

The zero Config is strict: unknown properties fail parsing and depth is unbounded.
*/
type Config struct {
	// Trim leading and trailing white space from strings in both directions.
	TrimStrings bool `yaml:"trimStrings"`

	// Emit bean properties alphabetically instead of in declaration order.
	SortProperties bool `yaml:"sortProperties"`

	// Skip mapping keys a bean has no property for instead of failing.
	IgnoreUnknownProperties bool `yaml:"ignoreUnknownProperties"`

	// Maximum nesting of collections, maps and beans. 0 is unbounded.
	MaxDepth int `yaml:"maxDepth"`

	// Emit null for a reference cycle instead of failing.
	TolerateCycles bool `yaml:"tolerateCycles"`

	// Write the registered type name of beans held in interface values.
	AddTypeDiscriminator bool `yaml:"addTypeDiscriminator"`

	// Mapping key for the type name. Empty means DefaultDiscriminatorKey.
	TypeDiscriminatorKey string `yaml:"typeDiscriminatorKey"`

	// Keep bean properties whose value serializes to null.
	KeepNullProperties bool `yaml:"keepNullProperties"`

	// Leave out bean properties that fail to read or convert instead of failing.
	SkipPropertyErrors bool `yaml:"skipPropertyErrors"`
}

// DefaultConfig returns the configuration used when none is given: unknown
// properties are ignored and everything else is off.
func DefaultConfig() Config {
	return Config{
		IgnoreUnknownProperties: true,
		TypeDiscriminatorKey:    DefaultDiscriminatorKey,
	}
}

// DiscriminatorKey returns the effective type discriminator key.
func (config Config) DiscriminatorKey() string {
	if config.TypeDiscriminatorKey == "" {
		return DefaultDiscriminatorKey
	}
	return config.TypeDiscriminatorKey
}
