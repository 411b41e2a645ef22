package binary

import (
	"fmt"

	"github.com/jward/quarry/internal/pattern"
	"github.com/jward/quarry/internal/store"
)

// Extract writes the declaration postings of one manifest type for document
// docID. Binary documents contribute declarations only.
func Extract(m *Manifest, t *Type, docID int64, ds store.DataStore) error {
	post := func(c pattern.Category, key string) error {
		if err := ds.InsertPosting(&store.Posting{Category: string(c), Key: key, DocID: docID}); err != nil {
			return fmt.Errorf("extract %s: %w", t.Name, err)
		}
		return nil
	}
	pkg, simple, kind := t.Package(), t.Simple(), t.TypeKind()

	if err := post(pattern.CatTypeDecl, pattern.TypeDeclKey(simple, pkg, t.Enclosing(), kind)); err != nil {
		return err
	}
	if t.Super != "" {
		sq, ss := pattern.SplitQualified(t.Super)
		if err := post(pattern.CatSuperRef, pattern.SuperRefKey(ss, sq, simple, pkg, kind, pattern.SuperClasses)); err != nil {
			return err
		}
	}
	for _, in := range t.Interfaces {
		iq, is := pattern.SplitQualified(in)
		if err := post(pattern.CatSuperRef, pattern.SuperRefKey(is, iq, simple, pkg, kind, pattern.SuperInterfaces)); err != nil {
			return err
		}
	}
	for _, f := range t.Fields {
		if err := post(pattern.CatFieldDecl, pattern.FieldDeclKey(f.Name)); err != nil {
			return err
		}
	}
	for _, mt := range t.Methods {
		if err := post(pattern.CatMethodDecl, pattern.MethodKey(mt.Name, len(mt.Params))); err != nil {
			return err
		}
	}
	for _, c := range t.Constructors {
		if err := post(pattern.CatConstructorDecl, pattern.ConstructorDeclKey(simple, len(c.Params), pkg)); err != nil {
			return err
		}
	}

	td := &store.TypeDecl{DocID: docID, Qualified: t.Qualified(), Simple: simple, Package: pkg, Kind: kind.String()}
	if _, err := ds.InsertTypeDecl(td); err != nil {
		return fmt.Errorf("extract %s: %w", t.Name, err)
	}
	if pkg != "" {
		if err := ds.InsertPackage(&store.Package{Name: pkg, Context: m.Path, DocID: docID}); err != nil {
			return fmt.Errorf("extract %s: %w", t.Name, err)
		}
	}
	return nil
}
