package typeid

import (
	"fmt"

	"go.jetify.com/typeid/v2"
)

const (
	PrefixOrganization = "org"
	PrefixPopup        = "popup"
	PrefixPolygon      = "poly"
	PrefixAsset        = "asset"
	PrefixOp           = "op"
)

func New(prefix string) string {
	id := typeid.MustGenerate(prefix)
	return id.String()
}

func NewOrganizationID() string { return New(PrefixOrganization) }
func NewPopupID() string        { return New(PrefixPopup) }
func NewPolygonID() string      { return New(PrefixPolygon) }
func NewAssetID() string        { return New(PrefixAsset) }
func NewOpID() string           { return New(PrefixOp) }

func Validate(id, expectedPrefix string) error {
	parsed, err := typeid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid typeid %q: %w", id, err)
	}
	if parsed.Prefix() != expectedPrefix {
		return fmt.Errorf("expected prefix %q but got %q in id %q", expectedPrefix, parsed.Prefix(), id)
	}
	return nil
}
