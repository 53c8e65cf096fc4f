package beans_test

//revive:disable:import-shadowing reason: Disabled for assert := assert.New(), which is
// the preferred method of using multiple asserts in a test.

import (
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/illuscio-dev/spangraph-go/beans"
	"github.com/illuscio-dev/spangraph-go/neutral"
	"github.com/stretchr/testify/assert"
	"golang.org/x/xerrors"
)

type Address struct {
	Street string `bean:"street"`
	City   string `bean:"city,omitempty"`
}

type Audit struct {
	CreatedBy string `bean:"createdBy"`
	Revision  int
}

type Person struct {
	Name     string            `bean:"name"`
	Age      int               `json:"age"`
	Email    string            `bean:"email,omitempty"`
	ID       string            `bean:"id,readonly"`
	Address  *Address          `bean:"address"`
	Tags     []string          `bean:"tags"`
	Extra    map[string]string `bean:"extra"`
	Skipped  string            `bean:"-"`
	internal string
	*Audit
}

type Node struct {
	Value    int     `bean:"value"`
	Next     *Node   `bean:"next"`
	Children []*Node `bean:"children"`
}

type Shape interface {
	Area() float64
}

func TestDescribeCategories(test *testing.T) {
	registry := beans.NewRegistry()

	testCases := []struct {
		sample   interface{}
		category beans.Category
	}{
		{true, beans.CategoryBool},
		{int8(1), beans.CategoryNumber},
		{uint64(1), beans.CategoryNumber},
		{1.5, beans.CategoryNumber},
		{"text", beans.CategoryString},
		{&Person{}, beans.CategoryPointer},
		{[]int{}, beans.CategoryCollection},
		{[2]int{}, beans.CategoryCollection},
		{map[string]int{}, beans.CategoryMap},
		{Person{}, beans.CategoryBean},
		{neutral.Null(), beans.CategoryNeutral},
		{make(chan int), beans.CategoryUnsupported},
		{complex(1, 2), beans.CategoryUnsupported},
	}

	for _, thisCase := range testCases {
		descriptor := registry.DescribeValue(thisCase.sample)
		assert.Equal(
			test, thisCase.category, descriptor.Category, descriptor.String(),
		)
	}

	anyDescriptor := registry.Describe(nil)
	assert.Equal(test, beans.CategoryAny, anyDescriptor.Category)

	shapeDescriptor := registry.Describe(reflect.TypeOf((*Shape)(nil)).Elem())
	assert.Equal(test, beans.CategoryInterface, shapeDescriptor.Category)
	assert.Equal(test, "Interface", shapeDescriptor.Category.String())
}

func propertyNames(properties []*beans.Property) []string {
	names := make([]string, len(properties))
	for i, property := range properties {
		names[i] = property.Name
	}
	return names
}

func TestBeanProperties(test *testing.T) {
	assert := assert.New(test)

	registry := beans.NewRegistry()
	descriptor := registry.DescribeValue(Person{})

	assert.Equal(
		[]string{
			"name", "age", "email", "id", "address", "tags", "extra",
			"createdBy", "Revision",
		},
		propertyNames(descriptor.Properties),
	)
	assert.Equal(
		[]string{
			"Revision", "address", "age", "createdBy", "email", "extra", "id",
			"name", "tags",
		},
		propertyNames(descriptor.SortedProperties()),
	)

	email, ok := descriptor.Property("email")
	assert.True(ok)
	assert.True(email.OmitEmpty)
	assert.True(email.CanWrite())

	id, ok := descriptor.Property("id")
	assert.True(ok)
	assert.True(id.CanRead())
	assert.False(id.CanWrite())

	address, _ := descriptor.Property("address")
	assert.Equal(beans.CategoryPointer, address.Descriptor.Category)
	assert.Equal(beans.CategoryBean, address.Descriptor.Elem.Category)

	extra, _ := descriptor.Property("extra")
	assert.Equal(beans.CategoryString, extra.Descriptor.Key.Category)
	assert.Equal(beans.CategoryString, extra.Descriptor.Elem.Category)

	_, ok = descriptor.Property("Skipped")
	assert.False(ok)
	_, ok = descriptor.Property("internal")
	assert.False(ok)
}

func TestRecursiveDescriptor(test *testing.T) {
	assert := assert.New(test)

	registry := beans.NewRegistry()
	pointer := registry.DescribeValue(&Node{})
	node := pointer.Elem

	next, _ := node.Property("next")
	assert.Same(pointer, next.Descriptor)

	children, _ := node.Property("children")
	assert.Same(pointer, children.Descriptor.Elem)

	// Cached on later calls.
	assert.Same(node, registry.DescribeValue(Node{}))
	assert.True(pointer.IsReference())
	assert.False(node.IsReference())
}

func TestPropertyGetAndSet(test *testing.T) {
	assert := assert.New(test)

	registry := beans.NewRegistry()
	descriptor := registry.DescribeValue(Person{})

	person := Person{Name: "Alice"}
	bean := reflect.ValueOf(&person).Elem()

	name, _ := descriptor.Property("name")
	value, err := name.Get(bean)
	assert.NoError(err)
	assert.Equal("Alice", value.Interface())

	// Promoted through a nil embedded pointer.
	createdBy, _ := descriptor.Property("createdBy")
	value, err = createdBy.Get(bean)
	assert.NoError(err)
	assert.False(value.IsValid())

	err = createdBy.Set(bean, reflect.ValueOf("bob"))
	assert.NoError(err)
	assert.NotNil(person.Audit)
	assert.Equal("bob", person.CreatedBy)

	id, _ := descriptor.Property("id")
	err = id.Set(bean, reflect.ValueOf("x"))
	assert.Error(err)
}

func TestRegisterConfig(test *testing.T) {
	assert := assert.New(test)

	registry := beans.NewRegistry()

	// Descriptors built before registration are replaced.
	before := registry.DescribeValue(Address{})
	assert.Equal("", before.TypeName)

	err := registry.Register(&Address{}, beans.BeanConfig{
		TypeName:      "address",
		PropertyOrder: []string{"city", "full"},
		ReadOnly:      []string{"street"},
		Accessors: map[string]beans.Accessor{
			"full": {
				Type: reflect.TypeOf(""),
				Get: func(bean interface{}) (interface{}, error) {
					address := bean.(*Address)
					return address.Street + ", " + address.City, nil
				},
			},
			"upper": {
				Type: reflect.TypeOf(""),
				Get: func(bean interface{}) (interface{}, error) {
					return strings.ToUpper(bean.(*Address).City), nil
				},
				Set: func(bean interface{}, value interface{}) error {
					bean.(*Address).City = strings.ToLower(value.(string))
					return nil
				},
			},
		},
	})
	assert.NoError(err)

	descriptor := registry.DescribeValue(Address{})
	assert.Equal("address", descriptor.TypeName)
	assert.Equal(
		[]string{"city", "full", "street", "upper"},
		propertyNames(descriptor.Properties),
	)

	registered, ok := registry.Lookup("address")
	assert.True(ok)
	assert.Equal(reflect.TypeOf(Address{}), registered)
	assert.Equal([]string{"address"}, registry.TypeNames())

	street, _ := descriptor.Property("street")
	assert.False(street.CanWrite())

	full, _ := descriptor.Property("full")
	assert.False(full.CanWrite())
	value, err := full.Get(reflect.ValueOf(Address{Street: "Main", City: "Town"}))
	assert.NoError(err)
	assert.Equal("Main, Town", value.Interface())

	address := Address{}
	upper, _ := descriptor.Property("upper")
	assert.True(upper.CanWrite())
	err = upper.Set(reflect.ValueOf(&address).Elem(), reflect.ValueOf("PARIS"))
	assert.NoError(err)
	assert.Equal("paris", address.City)
}

func TestAccessorErrors(test *testing.T) {
	assert := assert.New(test)

	registry := beans.NewRegistry()
	err := registry.Register(Address{}, beans.BeanConfig{
		Accessors: map[string]beans.Accessor{
			"broken": {
				Type: reflect.TypeOf(""),
				Get: func(bean interface{}) (interface{}, error) {
					return nil, xerrors.New("cannot read")
				},
			},
			"wrongType": {
				Type: reflect.TypeOf(""),
				Get: func(bean interface{}) (interface{}, error) {
					return 10, nil
				},
			},
		},
	})
	assert.NoError(err)

	descriptor := registry.DescribeValue(Address{})

	broken, _ := descriptor.Property("broken")
	_, err = broken.Get(reflect.ValueOf(Address{}))
	assert.EqualError(err, "cannot read")

	wrongType, _ := descriptor.Property("wrongType")
	_, err = wrongType.Get(reflect.ValueOf(Address{}))
	assert.Error(err)
}

func TestRegisterErrors(test *testing.T) {
	assert := assert.New(test)

	registry := beans.NewRegistry()

	assert.Error(registry.Register(10, beans.BeanConfig{}))
	assert.Error(registry.RegisterType(nil, beans.BeanConfig{}))
	assert.Error(registry.Register(Address{}, beans.BeanConfig{Ignore: []string{"zip"}}))
	assert.Error(registry.Register(Address{}, beans.BeanConfig{
		Accessors: map[string]beans.Accessor{"noGetter": {Type: reflect.TypeOf(1)}},
	}))

	assert.NoError(registry.Register(Address{}, beans.BeanConfig{TypeName: "place"}))
	assert.Error(registry.Register(Person{}, beans.BeanConfig{TypeName: "place"}))

	// Re-registering the same type under a new name releases the old one.
	assert.NoError(registry.Register(Address{}, beans.BeanConfig{TypeName: "location"}))
	_, ok := registry.Lookup("place")
	assert.False(ok)
	assert.NoError(registry.Register(Person{}, beans.BeanConfig{TypeName: "place"}))
}

func TestIgnoredProperties(test *testing.T) {
	registry := beans.NewRegistry()
	err := registry.Register(Address{}, beans.BeanConfig{Ignore: []string{"city"}})
	assert.NoError(test, err)

	descriptor := registry.DescribeValue(Address{})
	assert.Equal(test, []string{"street"}, propertyNames(descriptor.Properties))
}

func TestConcurrentDescribe(test *testing.T) {
	registry := beans.NewRegistry()

	results := make([]*beans.TypeDescriptor, 32)
	group := sync.WaitGroup{}
	for i := range results {
		group.Add(1)
		go func(i int) {
			defer group.Done()
			results[i] = registry.DescribeValue(map[string][]*Node{})
		}(i)
	}
	group.Wait()

	for _, descriptor := range results {
		assert.Same(test, results[0], descriptor)
	}
}

func TestIsEmpty(test *testing.T) {
	assert := assert.New(test)

	var nilPointer *Person
	empties := []interface{}{"", 0, uint(0), 0.0, false, []int{}, map[string]int{}, nilPointer}
	for _, value := range empties {
		assert.True(beans.IsEmpty(reflect.ValueOf(value)), "%#v", value)
	}
	assert.True(beans.IsEmpty(reflect.Value{}))

	filled := []interface{}{"x", 1, uint(1), 0.5, true, []int{1}, &Person{}, Person{}}
	for _, value := range filled {
		assert.False(beans.IsEmpty(reflect.ValueOf(value)), "%#v", value)
	}
}

func TestAccessorPanics(test *testing.T) {
	assert := assert.New(test)

	registry := beans.NewRegistry()
	err := registry.Register(Address{}, beans.BeanConfig{
		Accessors: map[string]beans.Accessor{
			"zip": {
				Type: reflect.TypeOf(""),
				Get: func(bean interface{}) (interface{}, error) {
					panic("getter blew up")
				},
				Set: func(bean interface{}, value interface{}) error {
					panic(xerrors.New("setter blew up"))
				},
			},
		},
	})
	assert.NoError(err)

	descriptor := registry.DescribeValue(Address{})
	zip, _ := descriptor.Property("zip")

	address := Address{}
	bean := reflect.ValueOf(&address).Elem()

	_, err = zip.Get(bean)
	assert.EqualError(err, `getter for "zip" panicked: getter blew up`)

	err = zip.Set(bean, reflect.ValueOf("75001"))
	assert.EqualError(err, `setter for "zip" panicked: setter blew up`)
}

type hiddenPart struct {
	Extra string
}

type Wrapper struct {
	*hiddenPart
	Name string
}

func TestUnexportedEmbeddedPointer(test *testing.T) {
	assert := assert.New(test)

	registry := beans.NewRegistry()
	descriptor := registry.DescribeValue(Wrapper{})

	extra, ok := descriptor.Property("Extra")
	if !assert.True(ok) {
		return
	}

	wrapper := Wrapper{}
	err := extra.Set(reflect.ValueOf(&wrapper).Elem(), reflect.ValueOf("e"))
	assert.Error(err)
	assert.Nil(wrapper.hiddenPart)

	// An allocated embedded struct can still be written through.
	wrapper = Wrapper{hiddenPart: &hiddenPart{}}
	err = extra.Set(reflect.ValueOf(&wrapper).Elem(), reflect.ValueOf("e"))
	assert.NoError(err)
	assert.Equal("e", wrapper.Extra)
}
