package java

import (
	"fmt"
	"strings"

	"github.com/jward/quarry/internal/pattern"
	"github.com/jward/quarry/internal/store"
	"github.com/jward/quarry/internal/syntax"
)

// Extract writes the index postings, type declarations and package of a
// fully materialized tree for document docID.
func Extract(t *syntax.Tree, docID int64, context string, ds store.DataStore) error {
	seen := map[string]bool{}
	post := func(c pattern.Category, key string) error {
		if key == "" || seen[string(c)+"\x00"+key] {
			return nil
		}
		seen[string(c)+"\x00"+key] = true
		if err := ds.InsertPosting(&store.Posting{Category: string(c), Key: key, DocID: docID}); err != nil {
			return fmt.Errorf("extract %s: %w", t.Path, err)
		}
		return nil
	}
	refSegments := func(dotted string) error {
		for _, seg := range strings.Split(dotted, ".") {
			if err := post(pattern.CatRef, pattern.RefKey(seg)); err != nil {
				return err
			}
		}
		return nil
	}

	if t.Package != "" {
		if err := ds.InsertPackage(&store.Package{Name: t.Package, Context: context, DocID: docID}); err != nil {
			return fmt.Errorf("extract %s: %w", t.Path, err)
		}
	}

	var err error
	t.Walk(syntax.Root, func(id syntax.NodeID, n *syntax.Node) bool {
		if err != nil {
			return false
		}
		switch n.Kind {
		case syntax.TypeDecl:
			err = extractType(t, id, docID, ds, post)
		case syntax.FieldDecl, syntax.EnumConstant:
			err = post(pattern.CatFieldDecl, pattern.FieldDeclKey(n.Name))
			if err == nil && n.Kind == syntax.EnumConstant {
				err = post(pattern.CatConstructorRef, pattern.ConstructorRefKey(n.Type, n.Arity))
			}
		case syntax.MethodDecl:
			err = post(pattern.CatMethodDecl, pattern.MethodKey(n.Name, n.Arity))
		case syntax.ConstructorDecl:
			err = post(pattern.CatConstructorDecl, pattern.ConstructorDeclKey(n.Name, n.Arity, t.Package))
		case syntax.TypeRef, syntax.NameRef, syntax.FieldAccess:
			err = post(pattern.CatRef, pattern.RefKey(n.Name))
			if err == nil && n.Qualifier != "" {
				err = refSegments(n.Qualifier)
			}
		case syntax.PackageRef:
			err = refSegments(n.Name)
		case syntax.MethodCall:
			err = post(pattern.CatMethodRef, pattern.MethodKey(n.Name, n.Arity))
		case syntax.MemberImport:
			err = post(pattern.CatRef, pattern.RefKey(n.Name))
			if err == nil {
				err = post(pattern.CatMethodRef, pattern.MethodKey(n.Name, -1))
			}
		case syntax.ConstructorCall:
			err = post(pattern.CatConstructorRef, pattern.ConstructorRefKey(n.Name, n.Arity))
		case syntax.ExplicitConstructorCall:
			err = post(pattern.CatConstructorRef, pattern.ConstructorRefKey(t.ConstructedType(id), n.Arity))
		}
		return true
	})
	return err
}

func extractType(t *syntax.Tree, id syntax.NodeID, docID int64, ds store.DataStore, post func(pattern.Category, string) error) error {
	n := t.Node(id)
	if n.Name == "" {
		return nil
	}
	if err := post(pattern.CatTypeDecl, pattern.TypeDeclKey(n.Name, t.Package, t.EnclosingNames(id), n.TypeKind)); err != nil {
		return err
	}
	if n.Super != "" {
		simple, qual := splitWritten(n.Super)
		if err := post(pattern.CatSuperRef, pattern.SuperRefKey(simple, qual, n.Name, t.Package, n.TypeKind, pattern.SuperClasses)); err != nil {
			return err
		}
	}
	for _, in := range n.Interfaces {
		simple, qual := splitWritten(in)
		if err := post(pattern.CatSuperRef, pattern.SuperRefKey(simple, qual, n.Name, t.Package, n.TypeKind, pattern.SuperInterfaces)); err != nil {
			return err
		}
	}
	qualified := t.QualifiedName(id)
	if qualified == "" {
		return nil
	}
	td := &store.TypeDecl{DocID: docID, Qualified: qualified, Simple: n.Name, Package: t.Package, Kind: n.TypeKind.String()}
	if _, err := ds.InsertTypeDecl(td); err != nil {
		return fmt.Errorf("extract %s: %w", t.Path, err)
	}
	return nil
}

// splitWritten splits a written type such as a.b.C<D> into its simple name
// and qualifier.
func splitWritten(written string) (simple, qualifier string) {
	tn := pattern.ParseTypeName(written)
	return tn.Simple, tn.Qualification
}
