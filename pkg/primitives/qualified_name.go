package primitives

import (
	"strings"

	dberror "imputedb/pkg/error"
)

// QualifiedName identifies an attribute through the alias of the table it
// belongs to. Base table statistics use an empty alias until they are bound
// to a scan.
type QualifiedName struct {
	Alias string
	Attr  string
}

// NewQualifiedName builds a qualified name from its parts.
func NewQualifiedName(alias, attr string) QualifiedName {
	return QualifiedName{Alias: alias, Attr: attr}
}

// ParseQualifiedName splits "alias.attr". A name without a dot has an empty alias.
func ParseQualifiedName(s string) (QualifiedName, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return QualifiedName{}, dberror.New(dberror.ErrCategoryUser, dberror.CodeInvalidArgument, "empty attribute name")
	}

	alias, attr, found := strings.Cut(s, ".")
	if !found {
		return QualifiedName{Attr: s}, nil
	}
	if alias == "" || attr == "" {
		return QualifiedName{}, dberror.Newf(dberror.ErrCategoryUser, dberror.CodeInvalidArgument, "malformed attribute name %q", s)
	}
	return QualifiedName{Alias: alias, Attr: attr}, nil
}

// Compare orders names by alias, then attribute.
func (q QualifiedName) Compare(other QualifiedName) int {
	if c := strings.Compare(q.Alias, other.Alias); c != 0 {
		return c
	}
	return strings.Compare(q.Attr, other.Attr)
}

// WithAlias rebinds the attribute to another alias.
func (q QualifiedName) WithAlias(alias string) QualifiedName {
	return QualifiedName{Alias: alias, Attr: q.Attr}
}

func (q QualifiedName) String() string {
	if q.Alias == "" {
		return q.Attr
	}
	return q.Alias + "." + q.Attr
}
