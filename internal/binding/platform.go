package binding

import (
	"strings"

	"github.com/jward/quarry/internal/pattern"
	"github.com/jward/quarry/internal/syntax"
)

// stub describes a platform type. Members are written as "name(P1,P2)Ret"
// for methods, "name:Type" for fields and "new(P1)" for constructors, with
// an optional "static " prefix.
type stub struct {
	kind    pattern.TypeKind
	super   string
	ifaces  []string
	params  []string
	members []string
}

var objectMembers = []string{
	"new()", "equals(Object)boolean", "hashCode()int", "toString()String", "getClass()Class",
	"notify()void", "notifyAll()void", "wait()void", "wait(long)void",
}

var platformStubs = map[string]stub{
	"java.lang.Object":       {kind: pattern.Class, members: objectMembers},
	"java.lang.CharSequence": {kind: pattern.Interface, members: []string{"length()int", "charAt(int)char", "toString()String"}},
	"java.lang.String": {kind: pattern.Class, ifaces: []string{"java.lang.CharSequence", "java.lang.Comparable"}, members: []string{
		"new()", "new(String)", "new(char[])",
		"length()int", "charAt(int)char", "isEmpty()boolean", "isBlank()boolean", "substring(int)String",
		"substring(int,int)String", "indexOf(String)int", "indexOf(int)int", "contains(CharSequence)boolean",
		"startsWith(String)boolean", "endsWith(String)boolean", "equalsIgnoreCase(String)boolean",
		"toUpperCase()String", "toLowerCase()String", "trim()String", "strip()String", "split(String)String[]",
		"replace(CharSequence,CharSequence)String", "toCharArray()char[]", "compareTo(String)int",
		"static format(String,Object...)String", "static valueOf(Object)String", "static join(CharSequence,CharSequence...)String",
	}},
	"java.lang.StringBuilder": {kind: pattern.Class, ifaces: []string{"java.lang.CharSequence"}, members: []string{
		"new()", "new(String)", "new(int)", "append(Object)StringBuilder", "insert(int,Object)StringBuilder",
		"length()int", "reverse()StringBuilder", "setLength(int)void",
	}},
	"java.lang.Comparable":    {kind: pattern.Interface, params: []string{"T"}, members: []string{"compareTo(T)int"}},
	"java.lang.Runnable":      {kind: pattern.Interface, members: []string{"run()void"}},
	"java.lang.Iterable":      {kind: pattern.Interface, params: []string{"T"}, members: []string{"iterator()java.util.Iterator", "forEach(java.util.function.Consumer)void"}},
	"java.lang.AutoCloseable": {kind: pattern.Interface, members: []string{"close()void"}},
	"java.lang.Cloneable":     {kind: pattern.Interface},
	"java.lang.Enum": {kind: pattern.Class, params: []string{"E"}, ifaces: []string{"java.lang.Comparable"}, members: []string{
		"new(String,int)", "name()String", "ordinal()int", "compareTo(E)int",
	}},
	"java.lang.Record": {kind: pattern.Class, members: []string{"new()"}},
	"java.lang.Class":  {kind: pattern.Class, params: []string{"T"}, members: []string{"getName()String", "getSimpleName()String", "isInstance(Object)boolean", "cast(Object)T"}},
	"java.lang.Number": {kind: pattern.Class, members: []string{"new()", "intValue()int", "longValue()long", "doubleValue()double", "floatValue()float"}},
	"java.lang.Integer": {kind: pattern.Class, super: "java.lang.Number", ifaces: []string{"java.lang.Comparable"}, members: []string{
		"static MAX_VALUE:int", "static MIN_VALUE:int", "static parseInt(String)int", "static valueOf(int)Integer",
		"static toString(int)String", "static compare(int,int)int",
	}},
	"java.lang.Long": {kind: pattern.Class, super: "java.lang.Number", ifaces: []string{"java.lang.Comparable"}, members: []string{
		"static MAX_VALUE:long", "static MIN_VALUE:long", "static parseLong(String)long", "static valueOf(long)Long",
	}},
	"java.lang.Double":    {kind: pattern.Class, super: "java.lang.Number", ifaces: []string{"java.lang.Comparable"}, members: []string{"static parseDouble(String)double", "static valueOf(double)Double"}},
	"java.lang.Float":     {kind: pattern.Class, super: "java.lang.Number", ifaces: []string{"java.lang.Comparable"}},
	"java.lang.Short":     {kind: pattern.Class, super: "java.lang.Number", ifaces: []string{"java.lang.Comparable"}},
	"java.lang.Byte":      {kind: pattern.Class, super: "java.lang.Number", ifaces: []string{"java.lang.Comparable"}},
	"java.lang.Character": {kind: pattern.Class, ifaces: []string{"java.lang.Comparable"}, members: []string{"static isDigit(char)boolean", "static isLetter(char)boolean", "charValue()char"}},
	"java.lang.Boolean": {kind: pattern.Class, ifaces: []string{"java.lang.Comparable"}, members: []string{
		"static TRUE:Boolean", "static FALSE:Boolean", "static parseBoolean(String)boolean", "booleanValue()boolean",
	}},
	"java.lang.Void": {kind: pattern.Class},
	"java.lang.Math": {kind: pattern.Class, members: []string{
		"static PI:double", "static max(int,int)int", "static min(int,int)int", "static abs(int)int", "static sqrt(double)double",
		"static pow(double,double)double", "static floor(double)double", "static random()double",
	}},
	"java.lang.System": {kind: pattern.Class, members: []string{
		"static out:java.io.PrintStream", "static err:java.io.PrintStream", "static in:java.io.InputStream",
		"static currentTimeMillis()long", "static nanoTime()long", "static exit(int)void",
		"static getProperty(String)String", "static getenv(String)String", "static arraycopy(Object,int,Object,int,int)void",
	}},
	"java.lang.Thread": {kind: pattern.Class, ifaces: []string{"java.lang.Runnable"}, members: []string{
		"new()", "new(Runnable)", "start()void", "join()void", "interrupt()void", "static currentThread()Thread", "static sleep(long)void",
	}},
	"java.lang.Throwable": {kind: pattern.Class, members: []string{
		"new()", "new(String)", "new(String,Throwable)", "new(Throwable)",
		"getMessage()String", "getCause()Throwable", "printStackTrace()void", "addSuppressed(Throwable)void",
	}},
	"java.lang.Exception":                     exceptionStub("java.lang.Throwable"),
	"java.lang.Error":                         exceptionStub("java.lang.Throwable"),
	"java.lang.RuntimeException":              exceptionStub("java.lang.Exception"),
	"java.lang.InterruptedException":          exceptionStub("java.lang.Exception"),
	"java.lang.CloneNotSupportedException":    exceptionStub("java.lang.Exception"),
	"java.lang.IllegalArgumentException":      exceptionStub("java.lang.RuntimeException"),
	"java.lang.IllegalStateException":         exceptionStub("java.lang.RuntimeException"),
	"java.lang.NullPointerException":          exceptionStub("java.lang.RuntimeException"),
	"java.lang.UnsupportedOperationException": exceptionStub("java.lang.RuntimeException"),
	"java.lang.IndexOutOfBoundsException":     exceptionStub("java.lang.RuntimeException"),
	"java.lang.ClassCastException":            exceptionStub("java.lang.RuntimeException"),
	"java.lang.ArithmeticException":           exceptionStub("java.lang.RuntimeException"),
	"java.lang.AssertionError":                exceptionStub("java.lang.Error"),
	"java.lang.Override":                      {kind: pattern.Annotation},
	"java.lang.Deprecated":                    {kind: pattern.Annotation},
	"java.lang.SuppressWarnings":              {kind: pattern.Annotation, members: []string{"value()String[]"}},
	"java.lang.FunctionalInterface":           {kind: pattern.Annotation},
	"java.lang.SafeVarargs":                   {kind: pattern.Annotation},

	"java.io.PrintStream": {kind: pattern.Class, members: []string{
		"println()void", "println(Object)void", "print(Object)void", "printf(String,Object...)PrintStream", "flush()void",
	}},
	"java.io.InputStream":  {kind: pattern.Class, ifaces: []string{"java.io.Closeable"}, members: []string{"new()", "read()int"}},
	"java.io.Closeable":    {kind: pattern.Interface, ifaces: []string{"java.lang.AutoCloseable"}, members: []string{"close()void"}},
	"java.io.Serializable": {kind: pattern.Interface},
	"java.io.IOException":  exceptionStub("java.lang.Exception"),

	"java.util.Iterator": {kind: pattern.Interface, params: []string{"E"}, members: []string{"hasNext()boolean", "next()E", "remove()void"}},
	"java.util.Collection": {kind: pattern.Interface, params: []string{"E"}, ifaces: []string{"java.lang.Iterable"}, members: []string{
		"size()int", "isEmpty()boolean", "contains(Object)boolean", "add(E)boolean", "remove(Object)boolean",
		"clear()void", "stream()java.util.stream.Stream", "toArray()Object[]",
	}},
	"java.util.List": {kind: pattern.Interface, params: []string{"E"}, ifaces: []string{"java.util.Collection"}, members: []string{
		"get(int)E", "set(int,E)E", "add(int,E)void", "indexOf(Object)int", "subList(int,int)List", "static of(E...)List",
	}},
	"java.util.Set":   {kind: pattern.Interface, params: []string{"E"}, ifaces: []string{"java.util.Collection"}, members: []string{"static of(E...)Set"}},
	"java.util.Queue": {kind: pattern.Interface, params: []string{"E"}, ifaces: []string{"java.util.Collection"}, members: []string{"offer(E)boolean", "poll()E", "peek()E"}},
	"java.util.Deque": {kind: pattern.Interface, params: []string{"E"}, ifaces: []string{"java.util.Queue"}, members: []string{"push(E)void", "pop()E"}},
	"java.util.Map": {kind: pattern.Interface, params: []string{"K", "V"}, members: []string{
		"get(Object)V", "put(K,V)V", "remove(Object)V", "containsKey(Object)boolean", "size()int", "isEmpty()boolean",
		"keySet()Set", "values()Collection", "getOrDefault(Object,V)V", "static of()Map",
	}},
	"java.util.ArrayList":  {kind: pattern.Class, params: []string{"E"}, ifaces: []string{"java.util.List"}, members: []string{"new()", "new(int)", "new(java.util.Collection)"}},
	"java.util.LinkedList": {kind: pattern.Class, params: []string{"E"}, ifaces: []string{"java.util.List", "java.util.Deque"}, members: []string{"new()"}},
	"java.util.HashSet":    {kind: pattern.Class, params: []string{"E"}, ifaces: []string{"java.util.Set"}, members: []string{"new()", "new(int)"}},
	"java.util.HashMap":    {kind: pattern.Class, params: []string{"K", "V"}, ifaces: []string{"java.util.Map"}, members: []string{"new()", "new(int)"}},
	"java.util.ArrayDeque": {kind: pattern.Class, params: []string{"E"}, ifaces: []string{"java.util.Deque"}, members: []string{"new()"}},
	"java.util.Optional": {kind: pattern.Class, params: []string{"T"}, members: []string{
		"static of(T)Optional", "static empty()Optional", "static ofNullable(T)Optional",
		"isPresent()boolean", "get()T", "orElse(T)T",
	}},
	"java.util.Objects": {kind: pattern.Class, members: []string{
		"static equals(Object,Object)boolean", "static hash(Object...)int", "static requireNonNull(Object)Object", "static isNull(Object)boolean",
	}},
	"java.util.Arrays":      {kind: pattern.Class, members: []string{"static asList(Object...)List", "static sort(Object[])void", "static toString(Object[])String"}},
	"java.util.Collections": {kind: pattern.Class, members: []string{"static emptyList()List", "static unmodifiableList(List)List", "static sort(List)void"}},

	"java.util.function.Function":  {kind: pattern.Interface, params: []string{"T", "R"}, members: []string{"apply(T)R"}},
	"java.util.function.Supplier":  {kind: pattern.Interface, params: []string{"T"}, members: []string{"get()T"}},
	"java.util.function.Consumer":  {kind: pattern.Interface, params: []string{"T"}, members: []string{"accept(T)void"}},
	"java.util.function.Predicate": {kind: pattern.Interface, params: []string{"T"}, members: []string{"test(T)boolean"}},
	"java.util.stream.Stream": {kind: pattern.Interface, params: []string{"T"}, members: []string{
		"map(java.util.function.Function)Stream", "filter(java.util.function.Predicate)Stream",
		"forEach(java.util.function.Consumer)void", "count()long", "toList()java.util.List",
	}},
	"java.lang.annotation.Annotation": {kind: pattern.Interface},
}

func exceptionStub(super string) stub {
	return stub{kind: pattern.Class, super: super, members: []string{"new()", "new(String)", "new(String,Throwable)", "new(Throwable)"}}
}

// platform returns the stub binding of a platform type, or nil.
func (e *Environment) platform(qualified string) *TypeBinding {
	s, ok := platformStubs[qualified]
	if !ok {
		return nil
	}
	pkg, simple := pattern.SplitQualified(qualified)
	tb := &TypeBinding{
		Qualified:    qualified,
		Package:      pkg,
		Simple:       simple,
		Kind:         s.kind,
		TypeParams:   s.params,
		Platform:     true,
		superWritten: defaultSuper(s.kind, qualified, s.super),
		ifaceWritten: s.ifaces,
		env:          e,
		decl:         syntax.NoNode,
	}
	for _, m := range s.members {
		addStubMember(tb, m)
	}
	return tb
}

// syntheticPlatform stands in for a written java.* or javax.* type that
// has no stub: it has no members except a constructor accepting any
// arguments.
func syntheticPlatform(e *Environment, qualified string) *TypeBinding {
	pkg, simple := pattern.SplitQualified(qualified)
	if !isPlatformPackage(pkg) || !isUpper(simple) {
		return nil
	}
	tb := &TypeBinding{
		Qualified:    qualified,
		Package:      pkg,
		Simple:       simple,
		Kind:         pattern.Class,
		Platform:     true,
		superWritten: objectType,
		env:          e,
		decl:         syntax.NoNode,
	}
	tb.Methods = append(tb.Methods, &MethodBinding{Declaring: tb, Name: simple, Constructor: true, Varargs: true, Node: syntax.NoNode})
	return tb
}

func addStubMember(tb *TypeBinding, m string) {
	static := strings.HasPrefix(m, "static ")
	m = strings.TrimPrefix(m, "static ")
	if name, typ, ok := strings.Cut(m, ":"); ok {
		tb.Fields = append(tb.Fields, &FieldBinding{Declaring: tb, Name: name, Type: typ, Static: static, Node: syntax.NoNode})
		return
	}
	lp, rp := strings.IndexByte(m, '('), strings.IndexByte(m, ')')
	if lp < 0 || rp < lp {
		return
	}
	name, ret := m[:lp], m[rp+1:]
	var params []string
	varargs := false
	if list := m[lp+1 : rp]; list != "" {
		params = strings.Split(list, ",")
		if last := params[len(params)-1]; strings.HasSuffix(last, "...") {
			params[len(params)-1] = strings.TrimSuffix(last, "...") + "[]"
			varargs = true
		}
	}
	mb := &MethodBinding{Declaring: tb, Name: name, Params: params, Return: ret, Varargs: varargs, Static: static, Node: syntax.NoNode}
	if name == "new" {
		mb.Name, mb.Constructor, mb.Return = tb.Simple, true, ""
	}
	tb.Methods = append(tb.Methods, mb)
}

func isPlatformPackage(name string) bool {
	if name != "java" && name != "javax" && !strings.HasPrefix(name, "java.") && !strings.HasPrefix(name, "javax.") {
		return false
	}
	for _, seg := range strings.Split(name, ".") {
		if seg == "" || isUpper(seg) {
			return false
		}
	}
	return true
}
