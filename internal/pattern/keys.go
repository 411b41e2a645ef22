package pattern

import (
	"strconv"
	"strings"
)

// Category partitions index keys by the kind of occurrence they record.
type Category string

const (
	CatTypeDecl        Category = "typeDecl"
	CatSuperRef        Category = "superRef"
	CatFieldDecl       Category = "fieldDecl"
	CatMethodDecl      Category = "methodDecl"
	CatConstructorDecl Category = "constructorDecl"
	CatRef             Category = "ref"
	CatMethodRef       Category = "methodRef"
	CatConstructorRef  Category = "constructorRef"
)

const sep = "/"

// KeyFormat versions the key encoding. An index written with another
// version must be rebuilt.
const KeyFormat = "2"

// SuperKind narrows super-type references to extends or implements clauses.
type SuperKind uint8

const (
	AllSupers SuperKind = iota
	SuperClasses
	SuperInterfaces
)

// ParseSuperKind converts "all", "class" or "interface" to a SuperKind.
func ParseSuperKind(s string) SuperKind {
	switch strings.ToLower(s) {
	case "class", "classes":
		return SuperClasses
	case "interface", "interfaces":
		return SuperInterfaces
	}
	return AllSupers
}

// Key is a decoded index key. Which fields are populated depends on the
// category.
type Key struct {
	Category Category
	// Name is the simple type name, field name, selector or referenced name.
	Name string
	// Package is the package of the declaring or referencing type.
	Package string
	// Enclosing holds dotted enclosing type names for member types.
	Enclosing string
	TypeKind  TypeKind
	// Arity is -1 when the category carries none.
	Arity int

	// Super-type reference fields. SuperQualifier is the qualifier written in
	// source, often empty.
	SuperName      string
	SuperQualifier string
	// Relation is SuperClasses for extends of a class, SuperInterfaces for
	// implements and interface extends.
	Relation SuperKind
}

// Qualification returns the dotted package and enclosing type names.
func (k Key) Qualification() string {
	switch {
	case k.Package == "":
		return k.Enclosing
	case k.Enclosing == "":
		return k.Package
	}
	return k.Package + "." + k.Enclosing
}

// TypeDeclKey encodes a type declaration.
func TypeDeclKey(simple, pkg, enclosing string, kind TypeKind) string {
	return simple + sep + pkg + sep + enclosing + sep + string(kind.Char())
}

// SuperRefKey encodes a super-type reference of the declared type simple.
func SuperRefKey(superSimple, superQualifier, simple, pkg string, kind TypeKind, rel SuperKind) string {
	r := "C"
	if rel == SuperInterfaces {
		r = "I"
	}
	return superSimple + sep + superQualifier + sep + simple + sep + pkg + sep + string(kind.Char()) + sep + r
}

// FieldDeclKey encodes a field declaration.
func FieldDeclKey(name string) string { return name }

// MethodKey encodes a method declaration or invocation.
func MethodKey(selector string, arity int) string {
	return selector + sep + strconv.Itoa(arity)
}

// ConstructorDeclKey encodes a constructor declaration.
func ConstructorDeclKey(typ string, arity int, pkg string) string {
	return typ + sep + strconv.Itoa(arity) + sep + pkg
}

// ConstructorRefKey encodes an instance creation or explicit constructor call.
func ConstructorRefKey(typ string, arity int) string {
	return typ + sep + strconv.Itoa(arity)
}

// RefKey encodes a plain name reference.
func RefKey(name string) string { return name }

// DecodeKey splits a raw key of category c. Malformed keys decode to a Key
// with only Name set.
func DecodeKey(c Category, raw string) Key {
	k := Key{Category: c, Arity: -1}
	parts := strings.Split(raw, sep)
	k.Name = parts[0]
	switch c {
	case CatTypeDecl:
		if len(parts) == 4 {
			k.Package = parts[1]
			k.Enclosing = parts[2]
			if parts[3] != "" {
				k.TypeKind = typeKindFromChar(parts[3][0])
			}
		}
	case CatSuperRef:
		if len(parts) == 6 {
			k.SuperName = parts[0]
			k.SuperQualifier = parts[1]
			k.Name = parts[2]
			k.Package = parts[3]
			if parts[4] != "" {
				k.TypeKind = typeKindFromChar(parts[4][0])
			}
			k.Relation = SuperClasses
			if parts[5] == "I" {
				k.Relation = SuperInterfaces
			}
		}
	case CatMethodDecl, CatMethodRef, CatConstructorRef:
		if len(parts) == 2 {
			k.Arity = atoi(parts[1])
		}
	case CatConstructorDecl:
		if len(parts) == 3 {
			k.Arity = atoi(parts[1])
			k.Package = parts[2]
		}
	}
	return k
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return -1
	}
	return n
}
