package vm

// ---------------------------------------------------------------------------
// Classes and instances
// ---------------------------------------------------------------------------

// ConstructorName is the method name the New opcode dispatches to after
// allocating an instance.
const ConstructorName = "init"

// NativeMethod is a method implemented in Go. Receiver is the bound value;
// args are in call order.
type NativeMethod func(machine *VM, receiver Value, args []Value) (Value, *RuntimeError)

// Class is an immutable class snapshot. Once published (stored in a
// global, captured by an instance, or linked as a superclass) it never
// changes; static fields are the one exception and live in a shared
// mutable cell. Class definition happens once, outside hot paths, through
// a ClassBuilder.
type Class struct {
	Name          string
	Super         *Class
	Methods       map[string]*Closure
	StaticMethods map[string]*Closure
	NativeMethods map[string]NativeMethod
	NativeStatics map[string]NativeMethod
	Constructor   *Closure
	Fields        map[string]Value // field declarations with default values
	FieldOrder    []string
	StaticFields  *HashObject // live values, shared mutable cell
	NestedClasses map[string]*Class
}

// ResolveMethod finds an instance method, walking the superclass chain.
func (c *Class) ResolveMethod(name string) (*Closure, bool) {
	for cls := c; cls != nil; cls = cls.Super {
		if m, ok := cls.Methods[name]; ok {
			return m, true
		}
	}
	return nil, false
}

// ResolveNativeMethod finds a native instance method, walking the chain.
func (c *Class) ResolveNativeMethod(name string) (NativeMethod, bool) {
	for cls := c; cls != nil; cls = cls.Super {
		if m, ok := cls.NativeMethods[name]; ok {
			return m, true
		}
	}
	return nil, false
}

// ResolveConstructor finds the constructor, walking the superclass chain.
func (c *Class) ResolveConstructor() (*Closure, bool) {
	for cls := c; cls != nil; cls = cls.Super {
		if cls.Constructor != nil {
			return cls.Constructor, true
		}
	}
	return nil, false
}

// allFields collects field declarations root-first so subclass defaults
// override superclass defaults.
func (c *Class) allFields() ([]string, map[string]Value) {
	if c == nil {
		return nil, map[string]Value{}
	}
	order, fields := c.Super.allFields()
	for _, name := range c.FieldOrder {
		if _, seen := fields[name]; !seen {
			order = append(order, name)
		}
		fields[name] = c.Fields[name]
	}
	return order, fields
}

// ClassBuilder accumulates a class definition while the Class/Inherit/
// Method/Field opcodes run. Finalize produces the immutable snapshot;
// nothing else ever observes the builder.
type ClassBuilder struct {
	Name          string
	Super         *Class
	Methods       map[string]*Closure
	StaticMethods map[string]*Closure
	Constructor   *Closure
	Fields        map[string]Value
	FieldOrder    []string
	StaticFields  *HashObject
	NestedClasses map[string]*Class
}

// NewClassBuilder starts an empty class definition.
func NewClassBuilder(name string) *ClassBuilder {
	return &ClassBuilder{
		Name:          name,
		Methods:       make(map[string]*Closure),
		StaticMethods: make(map[string]*Closure),
		Fields:        make(map[string]Value),
		StaticFields:  NewHash(),
		NestedClasses: make(map[string]*Class),
	}
}

// AddMethod records an instance method. A method named like the
// constructor becomes the constructor.
func (b *ClassBuilder) AddMethod(name string, method *Closure) {
	if name == ConstructorName {
		b.Constructor = method
		return
	}
	b.Methods[name] = method
}

// AddStaticMethod records a static method.
func (b *ClassBuilder) AddStaticMethod(name string, method *Closure) {
	b.StaticMethods[name] = method
}

// AddField records a field declaration with its default value.
func (b *ClassBuilder) AddField(name string, def Value) {
	if _, seen := b.Fields[name]; !seen {
		b.FieldOrder = append(b.FieldOrder, name)
	}
	b.Fields[name] = def
}

// AddStaticField records a live static field value.
func (b *ClassBuilder) AddStaticField(name string, v Value) {
	b.StaticFields.Set(name, v)
}

// Finalize publishes the immutable class snapshot. The builder must not
// be reused afterwards.
func (b *ClassBuilder) Finalize() *Class {
	cls := &Class{
		Name:          b.Name,
		Super:         b.Super,
		Methods:       b.Methods,
		StaticMethods: b.StaticMethods,
		NativeMethods: make(map[string]NativeMethod),
		NativeStatics: make(map[string]NativeMethod),
		Constructor:   b.Constructor,
		Fields:        b.Fields,
		FieldOrder:    b.FieldOrder,
		StaticFields:  b.StaticFields,
		NestedClasses: b.NestedClasses,
	}
	for _, m := range cls.Methods {
		m.Class = cls
	}
	for _, m := range cls.StaticMethods {
		m.Class = cls
	}
	if cls.Constructor != nil {
		cls.Constructor.Class = cls
	}
	return cls
}

// Instance is one object of a class. Fields live in shape-backed storage
// so property access can go through the hidden-class and inline-cache
// fast path; the instance is shared by reference.
type Instance struct {
	Class  *Class
	Fields *HiddenClassObject
}

// NewInstance allocates an instance with fields seeded from the class's
// field declarations, in declaration order so instances of one class
// share a shape history.
func NewInstance(cls *Class) *Instance {
	inst := &Instance{Class: cls, Fields: NewHiddenClassObject()}
	order, defaults := cls.allFields()
	for _, name := range order {
		inst.Fields.Set(GetSymbol(name), defaults[name])
	}
	return inst
}

// BoundMethod is a callable with its receiver captured. For arrays,
// strings and hashes Method is nil and the operation is resolved by Name
// against the receiver's native method table when the call happens.
type BoundMethod struct {
	Receiver Value
	Name     string
	Method   *Closure     // user-defined method, when resolved eagerly
	Native   NativeMethod // native method, when resolved eagerly
}
