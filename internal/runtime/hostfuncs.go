package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/risor-io/risor/object"

	"github.com/jward/quarry/internal/pattern"
)

// compiled carries a pattern through the VM. It has no exported surface so
// scripts can only pass it back to host functions.
type compiled struct {
	p pattern.Pattern
}

func wrap(p pattern.Pattern) object.Object {
	proxy, err := object.NewProxy(&compiled{p: p})
	if err != nil {
		return object.Errorf("proxy error: %v", err)
	}
	return proxy
}

func unwrap(obj object.Object) (pattern.Pattern, bool) {
	proxy, ok := obj.(*object.Proxy)
	if !ok {
		return nil, false
	}
	c, ok := proxy.Interface().(*compiled)
	if !ok || c.p == nil {
		return nil, false
	}
	return c.p, true
}

// builder turns the (name, options) arguments of a host function into a
// pattern.
type builder func(name string, m map[string]object.Object, opts []pattern.Option) (pattern.Pattern, error)

// makePatternFn creates a host function with the signature
//
//	fn(name, {option: value, ...}) → pattern
//
// keys lists the options accepted besides the rule options every pattern
// takes (mode, case, generics).
func makePatternFn(fn string, keys []string, build builder) *object.Builtin {
	allowed := map[string]bool{"mode": true, "case": true, "generics": true}
	for _, k := range keys {
		allowed[k] = true
	}
	return object.NewBuiltin(fn, func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) < 1 || len(args) > 2 {
			return object.Errorf("%s: expected 1 or 2 arguments, got %d", fn, len(args))
		}
		name, err := toString(args[0])
		if err != nil {
			return object.Errorf("%s: name: %v", fn, err)
		}
		m := map[string]object.Object{}
		if len(args) == 2 {
			if m, err = extractMap(args[1]); err != nil {
				return object.Errorf("%s: options: %v", fn, err)
			}
		}
		if err := checkKeys(m, allowed); err != nil {
			return object.Errorf("%s: %v", fn, err)
		}
		rule, err := parseRule(m)
		if err != nil {
			return object.Errorf("%s: %v", fn, err)
		}
		p, err := build(name, m, []pattern.Option{pattern.WithRule(rule)})
		if err != nil {
			return object.Errorf("%s: %v", fn, err)
		}
		return wrap(p)
	})
}

// type_decl(name, {kind}) → pattern
func makeTypeDeclFn() *object.Builtin {
	return makePatternFn("type_decl", []string{"kind"}, func(name string, m map[string]object.Object, opts []pattern.Option) (pattern.Pattern, error) {
		if s := getString(m, "kind"); s != "" {
			k, err := pattern.ParseTypeKind(s)
			if err != nil {
				return nil, err
			}
			opts = append(opts, pattern.WithTypeKind(k))
		}
		return pattern.NewTypeDecl(name, opts...), nil
	})
}

// type_ref(name, {fine}) → pattern
func makeTypeRefFn() *object.Builtin {
	return makePatternFn("type_ref", []string{"fine"}, func(name string, m map[string]object.Object, opts []pattern.Option) (pattern.Pattern, error) {
		opts, err := withFineGrain(m, opts)
		if err != nil {
			return nil, err
		}
		return pattern.NewTypeRef(name, opts...), nil
	})
}

// super_ref(name, {kind: "class"|"interface"}) → pattern
func makeSuperRefFn() *object.Builtin {
	return makePatternFn("super_ref", []string{"kind"}, func(name string, m map[string]object.Object, opts []pattern.Option) (pattern.Pattern, error) {
		opts = append(opts, pattern.WithSuperKind(pattern.ParseSuperKind(getString(m, "kind"))))
		return pattern.NewSuperTypeRef(name, opts...), nil
	})
}

// field(name, {declaring, type, limit, fine}) → pattern
func makeFieldFn() *object.Builtin {
	return makePatternFn("field", []string{"declaring", "type", "limit", "fine"}, func(name string, m map[string]object.Object, opts []pattern.Option) (pattern.Pattern, error) {
		opts, err := withMember(m, opts)
		if err != nil {
			return nil, err
		}
		if s := getString(m, "type"); s != "" {
			opts = append(opts, pattern.WithType(pattern.ParseTypeName(s)))
		}
		return pattern.NewField(name, opts...), nil
	})
}

// method(name, {declaring, returns, params, arity, varargs, limit, fine}) → pattern
func makeMethodFn() *object.Builtin {
	keys := []string{"declaring", "returns", "params", "arity", "varargs", "limit", "fine"}
	return makePatternFn("method", keys, func(name string, m map[string]object.Object, opts []pattern.Option) (pattern.Pattern, error) {
		opts, err := withMember(m, opts)
		if err != nil {
			return nil, err
		}
		if s := getString(m, "returns"); s != "" {
			opts = append(opts, pattern.WithType(pattern.ParseTypeName(s)))
		}
		if opts, err = withSignature(m, opts); err != nil {
			return nil, err
		}
		return pattern.NewMethod(name, opts...), nil
	})
}

// constructor(type, {params, arity, varargs, limit, fine}) → pattern
func makeConstructorFn() *object.Builtin {
	keys := []string{"params", "arity", "varargs", "limit", "fine"}
	return makePatternFn("constructor", keys, func(name string, m map[string]object.Object, opts []pattern.Option) (pattern.Pattern, error) {
		opts, err := withMember(m, opts)
		if err != nil {
			return nil, err
		}
		if opts, err = withSignature(m, opts); err != nil {
			return nil, err
		}
		return pattern.NewConstructor(name, opts...), nil
	})
}

// package_ref(name) → pattern
func makePackageRefFn() *object.Builtin {
	return makePatternFn("package_ref", nil, func(name string, _ map[string]object.Object, opts []pattern.Option) (pattern.Pattern, error) {
		if name == "" {
			return nil, fmt.Errorf("package name is required")
		}
		return pattern.NewPackageRef(name, opts...), nil
	})
}

// package_decl(name) → pattern
func makePackageDeclFn() *object.Builtin {
	return makePatternFn("package_decl", nil, func(name string, _ map[string]object.Object, opts []pattern.Option) (pattern.Pattern, error) {
		return pattern.NewPackageDecl(name, opts...), nil
	})
}

// any_of(p1, p2, ...) → pattern matching what any operand matches.
func makeAnyOfFn() *object.Builtin {
	return object.NewBuiltin("any_of", func(ctx context.Context, args ...object.Object) object.Object {
		ps, err := operands("any_of", args)
		if err != nil {
			return object.Errorf("%v", err)
		}
		return wrap(pattern.Or(ps[0], ps[1:]...))
	})
}

// all_of(p1, p2, ...) → pattern whose operands must all occur in a document.
func makeAllOfFn() *object.Builtin {
	return object.NewBuiltin("all_of", func(ctx context.Context, args ...object.Object) object.Object {
		ps, err := operands("all_of", args)
		if err != nil {
			return object.Errorf("%v", err)
		}
		if len(ps) == 1 {
			return wrap(ps[0])
		}
		return wrap(pattern.And(ps...))
	})
}

func operands(fn string, args []object.Object) ([]pattern.Pattern, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("%s: at least one pattern is required", fn)
	}
	ps := make([]pattern.Pattern, len(args))
	for i, a := range args {
		p, ok := unwrap(a)
		if !ok {
			return nil, fmt.Errorf("%s: argument %d is not a pattern (%s)", fn, i+1, typeName(a))
		}
		ps[i] = p
	}
	return ps, nil
}

func parseRule(m map[string]object.Object) (pattern.MatchRule, error) {
	rule := pattern.ExactCase
	mode, err := pattern.ParseMode(getString(m, "mode"))
	if err != nil {
		return rule, err
	}
	rule.Mode = mode
	if _, ok := m["case"]; ok {
		rule.CaseSensitive = getBool(m, "case")
	}
	switch g := getString(m, "generics"); g {
	case "", "erasure":
	case "full":
		rule.Generics = pattern.FullGeneric
	default:
		return rule, fmt.Errorf("unknown generics mode %q", g)
	}
	return rule, nil
}

func withFineGrain(m map[string]object.Object, opts []pattern.Option) ([]pattern.Option, error) {
	s := getString(m, "fine")
	if s == "" {
		return opts, nil
	}
	fg, err := pattern.ParseFineGrain(s)
	if err != nil {
		return nil, err
	}
	return append(opts, pattern.WithFineGrain(fg)), nil
}

func withMember(m map[string]object.Object, opts []pattern.Option) ([]pattern.Option, error) {
	if s := getString(m, "declaring"); s != "" {
		opts = append(opts, pattern.WithDeclaringType(pattern.ParseTypeName(s)))
	}
	limit, err := pattern.ParseLimit(getString(m, "limit"))
	if err != nil {
		return nil, err
	}
	opts = append(opts, pattern.WithLimit(limit))
	return withFineGrain(m, opts)
}

// withSignature reads params (a list of type names, "*" for any type),
// arity and varargs.
func withSignature(m map[string]object.Object, opts []pattern.Option) ([]pattern.Option, error) {
	if v, ok := m["params"]; ok {
		list, ok := v.(*object.List)
		if !ok {
			return nil, fmt.Errorf("params must be a list, got %s", v.Type())
		}
		params := make([]pattern.TypeName, 0, len(list.Value()))
		for _, item := range list.Value() {
			s, err := toString(item)
			if err != nil {
				return nil, fmt.Errorf("params: %v", err)
			}
			if s == "*" {
				params = append(params, pattern.TypeName{})
				continue
			}
			params = append(params, pattern.ParseTypeName(s))
		}
		opts = append(opts, pattern.WithParams(params...))
	}
	if _, ok := m["arity"]; ok {
		n := getInt(m, "arity")
		if n < 0 {
			return nil, fmt.Errorf("arity must not be negative, got %d", n)
		}
		opts = append(opts, pattern.WithArity(n))
	}
	if getBool(m, "varargs") {
		opts = append(opts, pattern.WithVarargs())
	}
	return opts, nil
}

func checkKeys(m map[string]object.Object, allowed map[string]bool) error {
	var unknown []string
	for k := range m {
		if !allowed[k] {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return fmt.Errorf("unknown option(s) %v", unknown)
}

// logObject provides log.Info/Warn/Error to scripts.
type logObject struct {
	logger *slog.Logger
}

func (l *logObject) Info(msg string)  { l.logger.Info(msg, "source", "pattern") }
func (l *logObject) Warn(msg string)  { l.logger.Warn(msg, "source", "pattern") }
func (l *logObject) Error(msg string) { l.logger.Error(msg, "source", "pattern") }
